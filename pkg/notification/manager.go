package notification

import (
	"fmt"
	"log/slog"
)

// System identifies a delivery channel (e.g. email).
type System string

const (
	EmailSystem System = "email"
)

// Manager fans a notification out to every registered delivery system. It
// implements Notifier so services can stay ignorant of how many channels are
// configured.
type Manager struct {
	notifiers map[System]Notifier
}

// NewManager creates an empty notification manager.
func NewManager() *Manager {
	return &Manager{
		notifiers: make(map[System]Notifier),
	}
}

// Register registers a notifier for a delivery system, replacing any previous
// one for the same system.
func (m *Manager) Register(system System, notifier Notifier) {
	m.notifiers[system] = notifier
}

// Send delivers the notification through every registered system. Delivery
// continues past individual failures; the first error is returned.
func (m *Manager) Send(notification Notification) error {
	if len(m.notifiers) == 0 {
		return fmt.Errorf("no notifiers registered")
	}

	var firstErr error
	for system, notifier := range m.notifiers {
		if err := notifier.Send(notification); err != nil {
			slog.Warn("Notification delivery failed", "system", system, "to", notification.To, "err", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
