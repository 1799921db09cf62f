package order

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents the lifecycle state of an order.
type Status string

const (
	StatusPending           Status = "pending"
	StatusContractGenerated Status = "contract_generated"
	// StatusAwaitingPayment covers both the freshly-signed contract and the
	// awaiting-new-proof point after a rejected payment.
	StatusAwaitingPayment  Status = "awaiting_payment"
	StatusPaymentReceived  Status = "payment_received"
	StatusPaymentVerified  Status = "payment_verified"
	StatusReadyForDelivery Status = "ready_for_delivery"
	StatusDelivered        Status = "delivered"
	StatusCompleted        Status = "completed"
	StatusCancelled        Status = "cancelled"
	StatusDispute          Status = "dispute"
	StatusRefunded         Status = "refunded"
)

// Terminal reports whether no further transitions are permitted.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusRefunded
}

// Valid reports whether s is one of the defined statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusContractGenerated, StatusAwaitingPayment,
		StatusPaymentReceived, StatusPaymentVerified, StatusReadyForDelivery,
		StatusDelivered, StatusCompleted, StatusCancelled, StatusDispute,
		StatusRefunded:
		return true
	}

	return false
}

// Role identifies what an actor is in relation to an order.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleDealer Role = "dealer"
	RoleAdmin  Role = "admin"
)

// Actor is the authenticated party requesting a transition. It is passed
// explicitly into every engine call; there is no ambient current user.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

var (
	ErrNotFound       = errors.New("order: not found")
	ErrInvalidState   = errors.New("order: transition not legal from current state")
	ErrForbidden      = errors.New("order: actor not permitted for this transition")
	ErrValidation     = errors.New("order: invalid or missing payload")
	ErrConflict       = errors.New("order: concurrent modification, re-read and retry")
	ErrDependency     = errors.New("order: external dependency unavailable")
	ErrAlreadyDecided = errors.New("order: payment proof already decided")
)

// MetaRejectionReason is the metadata key holding the latest payment
// rejection reason.
const MetaRejectionReason = "payment_rejection_reason"

// Transaction is the central escrow order entity. It is mutated exclusively
// through the Engine; stores never write fields outside a transition.
type Transaction struct {
	ID   uuid.UUID
	Code string

	BuyerID  uuid.UUID
	SellerID uuid.UUID
	DealerID *uuid.UUID

	VehicleID uuid.UUID

	Amount           int64 // minor units (cents)
	Currency         string
	CommissionRate   decimal.Decimal
	CommissionAmount int64
	NetAmount        int64

	Status           Status
	PaymentReference string

	ContractURL       *string
	SignedContractURL *string
	PaymentProof      *string

	VerifiedBy        *uuid.UUID
	VerificationNotes *string

	Notes              string
	CancellationReason *string

	Metadata map[string]string

	ContractGeneratedAt *time.Time
	ContractSignedAt    *time.Time
	PaymentReceivedAt   *time.Time
	PaymentVerifiedAt   *time.Time
	ReadyForDeliveryAt  *time.Time
	DeliveredAt         *time.Time
	CompletedAt         *time.Time
	CancelledAt         *time.Time
	RefundedAt          *time.Time

	CreatedAt time.Time
	UpdatedAt *time.Time
}

// Party reports whether the given actor id is the buyer, seller, or dealer
// on this order.
func (t *Transaction) Party(id uuid.UUID) bool {
	if id == t.BuyerID || id == t.SellerID {
		return true
	}

	return t.DealerID != nil && *t.DealerID == id
}

// Event is one immutable entry in an order's transition history. Events are
// append-only and written in the same database transaction as the state
// change they record.
type Event struct {
	ID        int64
	OrderID   uuid.UUID
	Seq       int
	Edge      Edge
	From      Status
	To        Status
	ActorID   uuid.UUID
	ActorRole Role
	Payload   []byte
	CreatedAt time.Time
}

// ListFilter narrows order listings.
type ListFilter struct {
	Status  *Status
	PartyID *uuid.UUID
	Before  *time.Time
	After   *time.Time
}

// Stats summarizes orders for the admin dashboard.
type Stats struct {
	ByStatus        map[Status]int `json:"by_status"`
	CompletedVolume int64          `json:"completed_volume"`
}
