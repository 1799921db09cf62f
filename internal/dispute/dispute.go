// Package dispute implements the contest sub-flow that runs alongside an
// order: one open dispute per order, an append-only response thread, and an
// admin resolution that settles the parent order in the same database
// transaction.
package dispute

import (
	"time"

	"github.com/google/uuid"
)

// Status of a dispute. Resolved and closed disputes stay in history; only
// one open or under-review dispute may exist per order.
type Status string

const (
	StatusOpen        Status = "open"
	StatusUnderReview Status = "under_review"
	StatusResolved    Status = "resolved"
	StatusClosed      Status = "closed"
)

// Active reports whether the dispute still blocks its order.
func (s Status) Active() bool {
	return s == StatusOpen || s == StatusUnderReview
}

// Outcome is the admin's ruling when resolving a dispute.
type Outcome string

const (
	OutcomeResume Outcome = "resume" // order returns to the verified-payment line
	OutcomeRefund Outcome = "refund"
	OutcomeCancel Outcome = "cancel"
)

func (o Outcome) Valid() bool {
	return o == OutcomeResume || o == OutcomeRefund || o == OutcomeCancel
}

// Dispute is a contest raised by one order party against the other.
type Dispute struct {
	ID      uuid.UUID
	OrderID uuid.UUID

	RaisedBy uuid.UUID
	Against  uuid.UUID

	Reason      string
	Description string
	Status      Status

	Resolution *string
	Outcome    *Outcome
	ResolvedBy *uuid.UUID
	ResolvedAt *time.Time

	CreatedAt time.Time
	UpdatedAt *time.Time
}

// Party reports whether id belongs to either side of the dispute.
func (d *Dispute) Party(id uuid.UUID) bool {
	return id == d.RaisedBy || id == d.Against
}

// Response is one message in a dispute's conversation thread.
type Response struct {
	ID        int64
	DisputeID uuid.UUID
	AuthorID  uuid.UUID
	Message   string
	Admin     bool
	CreatedAt time.Time
}
