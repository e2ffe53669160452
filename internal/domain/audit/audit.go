package audit

import (
	"crypto/rand"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
)

// Category groups audit events by the state they touch.
type Category string

const (
	CategorySequence Category = "sequence"
	CategoryOutbox   Category = "outbox"
)

// Action represents the admin action that occurred.
type Action string

const (
	ActionCounterOverride Action = "counter_override"
	ActionOutboxRetry     Action = "outbox_retry"
	ActionOutboxAbandon   Action = "outbox_abandon"
)

// Severity represents the severity level of an audit event.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

var ErrMissingAction = errors.New("audit event requires a category and action")

// Event is one admin action against sequence or outbox state.
type Event struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Category     Category  `json:"category"`
	Action       Action    `json:"action"`
	Severity     Severity  `json:"severity"`
	ResourceType string    `json:"resource_type,omitempty"`
	ResourceID   string    `json:"resource_id,omitempty"`
	Description  string    `json:"description,omitempty"`
	IPAddress    string    `json:"ip_address,omitempty"`
	UserAgent    string    `json:"user_agent,omitempty"`
	Outcome      string    `json:"outcome"`
	Reason       string    `json:"reason,omitempty"`
}

// Outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
)

// NewEvent creates an info-level event stamped at the given instant.
// PRE: category and action are non-empty
// POST: ID is a ULID ordered by at; Outcome is ok
func NewEvent(category Category, action Action, at time.Time) (Event, error) {
	if category == "" || action == "" {
		return Event{}, ErrMissingAction
	}
	id, err := ulid.New(ulid.Timestamp(at), rand.Reader)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:        id.String(),
		Timestamp: at.UTC(),
		Category:  category,
		Action:    action,
		Severity:  SeverityInfo,
		Outcome:   OutcomeOK,
	}, nil
}

// WithResource sets resource information.
func (e Event) WithResource(resourceType, resourceID string) Event {
	e.ResourceType = resourceType
	e.ResourceID = resourceID
	return e
}

// WithDescription sets the event description.
func (e Event) WithDescription(desc string) Event {
	e.Description = desc
	return e
}

// WithRequest sets IP address and user agent from the HTTP request.
func (e Event) WithRequest(ipAddress, userAgent string) Event {
	e.IPAddress = ipAddress
	e.UserAgent = userAgent
	return e
}

// Rejected marks the action as refused and raises severity to warning.
func (e Event) Rejected(reason string) Event {
	e.Outcome = OutcomeRejected
	e.Severity = SeverityWarning
	e.Reason = reason
	return e
}
