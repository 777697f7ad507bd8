package models

import "fmt"

// Result is what a single reconcile run reports back to the caller.
type Result struct {
	Changed  bool     `json:"changed"`
	Failed   bool     `json:"failed,omitempty"`
	Msg      string   `json:"msg,omitempty"`
	Result   string   `json:"result,omitempty"`
	User     *User    `json:"user,omitempty"`
	Diff     *Diff    `json:"diff,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Diff holds the comparable state of the user before and after the run.
type Diff struct {
	Before map[string]any `json:"before"`
	After  map[string]any `json:"after"`
}

func NewFailedResult(format string, args ...any) *Result {
	return &Result{
		Failed: true,
		Msg:    fmt.Sprintf(format, args...),
	}
}

func NewChangedResult(format string, args ...any) *Result {
	return &Result{
		Changed: true,
		Result:  fmt.Sprintf(format, args...),
	}
}

func NewUnchangedResult(format string, args ...any) *Result {
	return &Result{
		Result: fmt.Sprintf(format, args...),
	}
}

// ExitCode maps the result onto a process exit status.
func (r *Result) ExitCode() int {
	if r == nil || r.Failed {
		return 1
	}
	return 0
}
