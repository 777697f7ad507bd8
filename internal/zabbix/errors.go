package zabbix

import (
	"errors"
	"fmt"
	"strings"
)

// APIError is the error object of a JSON-RPC response.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data"`
}

func (e *APIError) Error() string {
	if len(e.Data) == 0 {
		return fmt.Sprintf("zabbix API error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("zabbix API error %d: %s %s", e.Code, e.Message, e.Data)
}

// IsAuthError reports whether err was caused by a rejected or expired session.
func IsAuthError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	text := strings.ToLower(apiErr.Data + " " + apiErr.Message)
	return strings.Contains(text, "not authori") ||
		strings.Contains(text, "session terminated") ||
		strings.Contains(text, "incorrect user name or password")
}

// HTTPError is returned when the frontend answers with a non-2xx status.
type HTTPError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}
