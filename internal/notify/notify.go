// Package notify is the client's user-facing notification channel, the
// headless analog of the PWA's dismissable toasts.
package notify

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"kompanion-sync/internal/metrics"
)

// Level classifies a notification for display
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Notification is a single dismissable message
type Notification struct {
	ID        string
	Level     Level
	Message   string
	CreatedAt time.Time
}

// Notifier receives user-facing messages
type Notifier interface {
	Notify(level Level, message string)
}

// Buffer is an in-memory Notifier that queues notifications until a
// consumer drains or dismisses them. Oldest entries are dropped once the
// buffer is full.
type Buffer struct {
	mu    sync.Mutex
	items []Notification
	max   int
}

// NewBuffer creates a notification buffer holding at most max entries
func NewBuffer(max int) *Buffer {
	if max < 1 {
		max = 100
	}
	return &Buffer{max: max}
}

// Notify queues a notification
func (b *Buffer) Notify(level Level, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items = append(b.items, Notification{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   message,
		CreatedAt: time.Now(),
	})
	if len(b.items) > b.max {
		b.items = b.items[len(b.items)-b.max:]
	}

	metrics.NotificationsTotal.WithLabelValues(string(level)).Inc()
}

// Pending returns a copy of the queued notifications, oldest first
func (b *Buffer) Pending() []Notification {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Notification, len(b.items))
	copy(out, b.items)
	return out
}

// Dismiss removes a notification by ID. Dismissing an unknown ID is a no-op.
func (b *Buffer) Dismiss(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, n := range b.items {
		if n.ID == id {
			b.items = append(b.items[:i], b.items[i+1:]...)
			return
		}
	}
}

// Clear drops all queued notifications
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items = nil
}

// Logger is a Notifier that writes notifications to a structured logger.
// Used in daemon mode where there is no UI to surface toasts.
type Logger struct {
	logger *slog.Logger
}

// NewLogger creates a logging Notifier
func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger}
}

// Notify logs the notification at a level matching its severity
func (l *Logger) Notify(level Level, message string) {
	switch level {
	case LevelError:
		l.logger.Error("notification", "message", message)
	default:
		l.logger.Info("notification", "level", string(level), "message", message)
	}

	metrics.NotificationsTotal.WithLabelValues(string(level)).Inc()
}
