// Package queue defines the notification payloads exchanged over the
// message broker and the background consumer that delivers them.
package queue

// EventKind enumerates the closed set of participant notifications.
// The set is fixed and small, so kinds are a tagged constant rather
// than open-ended callback registration.
type EventKind string

const (
	EventCredentialIssued EventKind = "credential.issued"
	EventSessionStarted   EventKind = "session.started"
	EventSessionWarning   EventKind = "session.warning"
	EventSessionEnded     EventKind = "session.ended"
)

// NotificationEvent is published once per lifecycle event. It carries
// enough for the delivery worker to compose the participant message
// without querying the primary store.
type NotificationEvent struct {
	Kind         EventKind `json:"kind"`
	TicketID     string    `json:"ticket_id"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	Plan         string    `json:"plan,omitempty"`
	AmountINR    int       `json:"amount_inr,omitempty"`
	DurationMin  int       `json:"duration_min"`
	RemainingMin int       `json:"remaining_min,omitempty"`
	PaymentMode  string    `json:"payment_mode,omitempty"`
	OccurredAt   string    `json:"occurred_at"`
}
