package config

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/thand-io/zabbix-user/internal/models"
)

const defaultWarningsBufferSize = 100

// warningsLogger is a logrus hook keeping the most recent warnings of a run
// in a ring buffer, so they can be reported alongside the result.
type warningsLogger struct {
	runUID      uuid.UUID
	eventBuffer []*models.LogEntry
	maxSize     int
	currentPos  int
	isFull      bool
	mu          sync.RWMutex
}

func newWarningsLogger(size int) *warningsLogger {
	if size <= 0 {
		size = defaultWarningsBufferSize
	}
	return &warningsLogger{
		runUID:      uuid.New(),
		eventBuffer: make([]*models.LogEntry, size),
		maxSize:     size,
	}
}

func (t *warningsLogger) Fire(entry *logrus.Entry) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.eventBuffer[t.currentPos] = models.NewLogEntry(entry)
	t.currentPos = (t.currentPos + 1) % t.maxSize

	if t.currentPos == 0 {
		t.isFull = true
	}

	return nil
}

func (t *warningsLogger) Levels() []logrus.Level {
	return []logrus.Level{
		logrus.WarnLevel,
	}
}

// GetEvents returns the buffered entries, oldest first.
func (t *warningsLogger) GetEvents() []*models.LogEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.isFull {
		result := make([]*models.LogEntry, t.currentPos)
		copy(result, t.eventBuffer[:t.currentPos])
		return result
	}

	result := make([]*models.LogEntry, t.maxSize)
	copy(result, t.eventBuffer[t.currentPos:])
	copy(result[t.maxSize-t.currentPos:], t.eventBuffer[:t.currentPos])
	return result
}

// Warnings renders the buffered entries as strings for the result.
func (c *Config) Warnings() []string {
	if c.logger == nil {
		return nil
	}
	events := c.logger.GetEvents()
	if len(events) == 0 {
		return nil
	}
	warnings := make([]string, 0, len(events))
	for _, event := range events {
		warnings = append(warnings, event.String())
	}
	return warnings
}

func (c *Config) GetRunID() string {
	if c.logger == nil {
		return ""
	}
	return c.logger.runUID.String()
}
