package notification

import "sync"

// MockNotifier records notifications instead of delivering them. Useful for
// tests and the in-memory demo server.
type MockNotifier struct {
	mu   sync.Mutex
	Sent []Notification
}

// NewMockNotifier creates a new mock notifier
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) Send(notification Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, notification)
	return nil
}

// SentTo returns the notifications recorded for the recipient.
func (m *MockNotifier) SentTo(to string) []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Notification
	for _, n := range m.Sent {
		if n.To == to {
			out = append(out, n)
		}
	}
	return out
}
