package models

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// LogEntry is a captured log record that can be handed back to the caller.
type LogEntry struct {
	Data    logrus.Fields `json:"data,omitempty"`
	Time    time.Time     `json:"time"`
	Level   logrus.Level  `json:"level,omitempty"`
	Message string        `json:"message,omitempty"`
}

func NewLogEntry(entry *logrus.Entry) *LogEntry {
	data := make(logrus.Fields, len(entry.Data))
	for key, value := range entry.Data {
		data[key] = value
	}

	return &LogEntry{
		Data:    data,
		Time:    entry.Time,
		Level:   entry.Level,
		Message: entry.Message,
	}
}

// String renders the entry as "message (key=value, ...)" with sorted keys.
func (l *LogEntry) String() string {
	if len(l.Data) == 0 {
		return l.Message
	}

	keys := make([]string, 0, len(l.Data))
	for key := range l.Data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%v", key, l.Data[key]))
	}

	return fmt.Sprintf("%s (%s)", l.Message, strings.Join(pairs, ", "))
}
