package email

import (
	"context"
	"time"
)

// Message is one rendered receipt addressed to a member.
type Message struct {
	To      []string
	From    string // empty falls back to the sender's configured address
	Subject string
	HTML    string
	ReplyTo string
}

// Delivery records that the provider accepted a receipt. MessageID becomes
// the outbox entry's external ID.
type Delivery struct {
	MessageID string
	SentAt    time.Time
}

// Sender delivers receipts. Send is called from the outbox worker, so an
// error leaves the receipt queued for another attempt.
type Sender interface {
	Send(ctx context.Context, msg Message) (Delivery, error)
}
