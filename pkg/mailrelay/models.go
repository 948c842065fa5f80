package mailrelay

import "time"

// Message is the relay's view of a mailbox message. The upstream provider
// payload is normalized to this shape before leaving the relay.
type Message struct {
	ID            string    `json:"id"`
	From          string    `json:"from"`
	To            string    `json:"to,omitempty"`
	Subject       string    `json:"subject"`
	Snippet       string    `json:"snippet,omitempty"`
	Date          time.Time `json:"date"`
	HasAttachment bool      `json:"has_attachment,omitempty"`
}

// SendRequest carries an outbound message to be sent as the device's account.
type SendRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
