// Package notification delivers operator notifications (currently email via
// SMTP) when the polling pipeline runs into trouble.
package notification

import "context"

// Message is the content to be delivered by a Provider.
type Message struct {
	Subject string
	Body    string
}

// Provider is the interface for notification delivery backends.
type Provider interface {
	// Name returns the provider identifier (e.g. "smtp").
	Name() string
	// Send delivers the message using the provider's transport.
	Send(ctx context.Context, msg Message) error
}

// SMTPConfig holds connection parameters for the SMTP provider.
type SMTPConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	FromAddr   string
	ToAddrs    string
	Encryption string // "none", "starttls", "ssl_tls"
}

// Configured reports whether enough fields are set to attempt delivery.
func (c SMTPConfig) Configured() bool {
	return c.Host != "" && c.FromAddr != "" && c.ToAddrs != ""
}
