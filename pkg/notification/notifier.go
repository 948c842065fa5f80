// Package notification delivers operational notices to admins, such as the
// notice sent when a device identity completes its OAuth binding.
package notification

// Notification carries a single notice to a recipient.
type Notification struct {
	To      string // recipient email address
	Subject string
	Body    string
}

// Notifier sends notifications through a delivery channel.
type Notifier interface {
	Send(notification Notification) error
}
