package store

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Severity classifies a transient notification.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// DefaultNotificationTTL is how long a notification stays visible unless
// dismissed first.
const DefaultNotificationTTL = 5 * time.Second

// Notification is an ephemeral, non-blocking notice. It self-destructs
// when its duration elapses or on explicit dismissal, whichever comes
// first.
type Notification struct {
	ID       string
	Message  string
	Severity Severity
	Duration time.Duration
}

// NotificationStore owns the currently visible notifications.
type NotificationStore struct {
	mu     sync.RWMutex
	items  []Notification
	closed bool
}

// NewNotificationStore builds an empty notification store.
func NewNotificationStore() *NotificationStore {
	return &NotificationStore{}
}

// Items returns a snapshot of the visible notifications, oldest first.
func (s *NotificationStore) Items() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Notification, len(s.items))
	copy(out, s.items)
	return out
}

// Show displays a notification and schedules its self-destruction. The
// returned id can be used for early dismissal.
func (s *NotificationStore) Show(message string, severity Severity, duration time.Duration) string {
	if duration <= 0 {
		duration = DefaultNotificationTTL
	}

	n := Notification{
		ID:       uuid.NewString(),
		Message:  message,
		Severity: severity,
		Duration: duration,
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return n.ID
	}
	s.items = append(s.items, n)
	s.mu.Unlock()

	time.AfterFunc(duration, func() { s.Hide(n.ID) })
	return n.ID
}

// ShowInfo displays an informational notification with the default TTL.
func (s *NotificationStore) ShowInfo(message string) string {
	return s.Show(message, SeverityInfo, DefaultNotificationTTL)
}

// ShowSuccess displays a success notification with the default TTL.
func (s *NotificationStore) ShowSuccess(message string) string {
	return s.Show(message, SeveritySuccess, DefaultNotificationTTL)
}

// ShowError displays an error notification with the default TTL.
func (s *NotificationStore) ShowError(message string) string {
	return s.Show(message, SeverityError, DefaultNotificationTTL)
}

// ShowWarning displays a warning notification with the default TTL.
func (s *NotificationStore) ShowWarning(message string) string {
	return s.Show(message, SeverityWarning, DefaultNotificationTTL)
}

// Hide dismisses a notification by id; dismissing an id that already
// expired is a no-op.
func (s *NotificationStore) Hide(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.items[:0]
	for _, n := range s.items {
		if n.ID != id {
			kept = append(kept, n)
		}
	}
	s.items = kept
}

// Clear dismisses everything at once.
func (s *NotificationStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
}

// Close stops the store from accepting new notifications.
func (s *NotificationStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.items = nil
}
