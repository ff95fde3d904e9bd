// Package notifier provides outbound notification delivery for alerts.
package notifier

import (
	"context"
	"errors"
	"fmt"
)

// Message is a rendered notification ready for delivery.
type Message struct {
	Subject   string
	PlainBody string
	HTMLBody  string
}

// Mailer delivers a message to a single recipient address. Implementations
// must be safe for concurrent use.
type Mailer interface {
	// Send delivers the message to one address.
	Send(ctx context.Context, to string, msg *Message) error
	// Close releases any resources.
	Close() error
}

// SendError wraps a delivery failure, distinguishing permanent failures
// (bad address, rejected recipient) from transient ones worth retrying.
type SendError struct {
	Permanent bool
	Err       error
}

func (e *SendError) Error() string {
	if e.Permanent {
		return fmt.Sprintf("permanent send failure: %v", e.Err)
	}
	return fmt.Sprintf("transient send failure: %v", e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// IsPermanent reports whether err is a permanent delivery failure.
func IsPermanent(err error) bool {
	var sendErr *SendError
	return errors.As(err, &sendErr) && sendErr.Permanent
}
