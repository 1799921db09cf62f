package order

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Edge names a single transition of the order state machine. Every status
// change, including the payment-rejection reset, goes through an edge so the
// permission matrix lives in exactly one table.
type Edge string

const (
	EdgeGenerateContract Edge = "generate_contract"
	EdgeSignContract     Edge = "sign_contract"
	EdgeSubmitPayment    Edge = "submit_payment"
	EdgeVerifyPayment    Edge = "verify_payment"
	EdgeRejectPayment    Edge = "reject_payment"
	EdgeReadyForDelivery Edge = "ready_for_delivery"
	EdgeDeliver          Edge = "deliver"
	EdgeComplete         Edge = "complete"
	EdgeCancel           Edge = "cancel"
	EdgeOpenDispute      Edge = "open_dispute"
	EdgeResumeDispute    Edge = "resume_dispute"
	EdgeCancelDisputed   Edge = "cancel_disputed"
	EdgeRefund           Edge = "refund"
)

// Milestone identifies the timestamp column stamped by a transition.
type Milestone string

const (
	MilestoneNone             Milestone = ""
	MilestoneContractGen      Milestone = "contract_generated_at"
	MilestoneContractSigned   Milestone = "contract_signed_at"
	MilestonePaymentReceived  Milestone = "payment_received_at"
	MilestonePaymentVerified  Milestone = "payment_verified_at"
	MilestoneReadyForDelivery Milestone = "ready_for_delivery_at"
	MilestoneDelivered        Milestone = "delivered_at"
	MilestoneCompleted        Milestone = "completed_at"
	MilestoneCancelled        Milestone = "cancelled_at"
	MilestoneRefunded         Milestone = "refunded_at"
)

// Payload carries the caller-supplied data a transition may require.
type Payload struct {
	Reason      string // cancellation, rejection, or dispute reason
	Notes       string // free-text notes (verification, delivery)
	ProofRef    string // stored proof-of-payment reference
	ContractRef string // stored signed-contract reference
}

type field int

const (
	fieldReason field = iota
	fieldProofRef
	fieldContractRef
)

// rule describes one edge of the state machine.
type rule struct {
	from      []Status
	to        Status
	roles     []Role
	required  []field
	milestone Milestone
}

// rules is the canonical transition table. The engine enforces it and
// nothing else in the codebase changes an order's status.
var rules = map[Edge]rule{
	EdgeGenerateContract: {
		from:      []Status{StatusPending},
		to:        StatusContractGenerated,
		roles:     []Role{RoleSeller, RoleDealer, RoleAdmin},
		milestone: MilestoneContractGen,
	},
	EdgeSignContract: {
		from:      []Status{StatusContractGenerated},
		to:        StatusAwaitingPayment,
		roles:     []Role{RoleBuyer},
		required:  []field{fieldContractRef},
		milestone: MilestoneContractSigned,
	},
	EdgeSubmitPayment: {
		from:      []Status{StatusAwaitingPayment},
		to:        StatusPaymentReceived,
		roles:     []Role{RoleBuyer},
		required:  []field{fieldProofRef},
		milestone: MilestonePaymentReceived,
	},
	EdgeVerifyPayment: {
		from:      []Status{StatusPaymentReceived},
		to:        StatusPaymentVerified,
		roles:     []Role{RoleAdmin},
		milestone: MilestonePaymentVerified,
	},
	// Rejection does not walk the machine backwards; it resets to the
	// awaiting-proof point so the buyer can resubmit.
	EdgeRejectPayment: {
		from:     []Status{StatusPaymentReceived},
		to:       StatusAwaitingPayment,
		roles:    []Role{RoleAdmin},
		required: []field{fieldReason},
	},
	EdgeReadyForDelivery: {
		from:      []Status{StatusPaymentVerified},
		to:        StatusReadyForDelivery,
		roles:     []Role{RoleSeller, RoleDealer, RoleAdmin},
		milestone: MilestoneReadyForDelivery,
	},
	EdgeDeliver: {
		from:      []Status{StatusReadyForDelivery},
		to:        StatusDelivered,
		roles:     []Role{RoleBuyer, RoleSeller, RoleAdmin},
		milestone: MilestoneDelivered,
	},
	EdgeComplete: {
		from:      []Status{StatusDelivered},
		to:        StatusCompleted,
		roles:     []Role{RoleAdmin},
		milestone: MilestoneCompleted,
	},
	// Cancellation is only possible before any money has moved.
	EdgeCancel: {
		from:      []Status{StatusPending, StatusContractGenerated, StatusAwaitingPayment},
		to:        StatusCancelled,
		roles:     []Role{RoleBuyer, RoleSeller, RoleAdmin},
		required:  []field{fieldReason},
		milestone: MilestoneCancelled,
	},
	EdgeOpenDispute: {
		from: []Status{
			StatusPaymentReceived, StatusPaymentVerified,
			StatusReadyForDelivery, StatusDelivered,
		},
		to:       StatusDispute,
		roles:    []Role{RoleBuyer, RoleSeller},
		required: []field{fieldReason},
	},
	EdgeResumeDispute: {
		from:  []Status{StatusDispute},
		to:    StatusPaymentVerified,
		roles: []Role{RoleAdmin},
	},
	// Cancelling out of a dispute only happens through admin resolution,
	// so the edge is narrower than the regular pre-payment cancel.
	EdgeCancelDisputed: {
		from:      []Status{StatusDispute},
		to:        StatusCancelled,
		roles:     []Role{RoleAdmin},
		required:  []field{fieldReason},
		milestone: MilestoneCancelled,
	},
	EdgeRefund: {
		from:      []Status{StatusDispute, StatusPaymentVerified},
		to:        StatusRefunded,
		roles:     []Role{RoleAdmin},
		milestone: MilestoneRefunded,
	},
}

// TransitionRecord is everything the store needs to apply a transition: the
// conditional status swap, the milestone stamp, payload-derived writes, and
// the audit event. The store applies all of it in one database transaction.
type TransitionRecord struct {
	OrderID        uuid.UUID
	Edge           Edge
	ExpectedStatus Status
	NewStatus      Status
	Milestone      Milestone

	ActorID   uuid.UUID
	ActorRole Role

	SetProof              *string
	ClearProof            bool
	SetContractURL        *string
	SetSignedContractURL  *string
	SetVerifiedBy         *uuid.UUID
	SetVerificationNotes  *string
	SetCancellationReason *string
	MergeMetadata         map[string]string

	AuditPayload []byte
}

//go:generate mockgen -source=engine.go -destination=repository_mock.go -package=order
type Repository interface {
	CreateOrder(ctx context.Context, t *Transaction) error
	GetOrder(ctx context.Context, id uuid.UUID) (*Transaction, error)
	ListOrders(ctx context.Context, filter ListFilter) ([]*Transaction, error)
	// ApplyTransition performs the conditional state write plus audit append
	// atomically. It fails with ErrConflict if the stored status no longer
	// matches rec.ExpectedStatus.
	ApplyTransition(ctx context.Context, rec TransitionRecord) (*Transaction, error)
	ListEvents(ctx context.Context, orderID uuid.UUID) ([]Event, error)
	Statistics(ctx context.Context) (*Stats, error)
}

// ContractGenerator materializes a contract document for an order and
// returns an opaque reference to it.
type ContractGenerator interface {
	Generate(ctx context.Context, t *Transaction) (string, error)
}

// Notifier receives a fire-and-forget event after every applied transition.
// Implementations must never block the caller on delivery.
type Notifier interface {
	Dispatch(event string, orderID uuid.UUID)
}

// Engine validates and applies order transitions.
type Engine struct {
	repo      Repository
	contracts ContractGenerator
	notifier  Notifier
}

func NewEngine(repo Repository, contracts ContractGenerator, notifier Notifier) *Engine {
	return &Engine{repo: repo, contracts: contracts, notifier: notifier}
}

// Prepare validates a requested transition against the current order state
// and returns the record that would apply it. Nothing is persisted. Checks
// run in a fixed order: state legality, then role, then payload.
func (e *Engine) Prepare(ctx context.Context, orderID uuid.UUID, edge Edge, actor Actor, p Payload) (*Transaction, TransitionRecord, error) {
	t, err := e.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, TransitionRecord{}, err
	}

	r, ok := rules[edge]
	if !ok {
		return nil, TransitionRecord{}, fmt.Errorf("%w: unknown transition %q", ErrValidation, edge)
	}

	if t.Status.Terminal() {
		return nil, TransitionRecord{}, fmt.Errorf("%w: order %s is %s", ErrInvalidState, t.Code, t.Status)
	}

	if !statusIn(t.Status, r.from) {
		return nil, TransitionRecord{}, fmt.Errorf("%w: %s not allowed from %s", ErrInvalidState, edge, t.Status)
	}

	if err := checkActor(t, actor, r); err != nil {
		return nil, TransitionRecord{}, err
	}

	if err := checkPayload(p, r); err != nil {
		return nil, TransitionRecord{}, err
	}

	rec := TransitionRecord{
		OrderID:        t.ID,
		Edge:           edge,
		ExpectedStatus: t.Status,
		NewStatus:      r.to,
		Milestone:      r.milestone,
		ActorID:        actor.ID,
		ActorRole:      actor.Role,
	}

	applyPayload(&rec, edge, actor, p)

	rec.AuditPayload = auditPayload(t, rec, p)

	return t, rec, nil
}

// Request validates and applies a transition. On success the updated order
// is returned and a notification is dispatched; notification outcomes never
// affect the transition.
func (e *Engine) Request(ctx context.Context, orderID uuid.UUID, edge Edge, actor Actor, p Payload) (*Transaction, error) {
	t, rec, err := e.Prepare(ctx, orderID, edge, actor, p)
	if err != nil {
		return nil, err
	}

	// Contract generation must succeed before the transition is recorded:
	// the contract_generated state means the document exists.
	if edge == EdgeGenerateContract {
		url, err := e.contracts.Generate(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("%w: contract generation: %v", ErrDependency, err)
		}

		rec.SetContractURL = &url
	}

	updated, err := e.repo.ApplyTransition(ctx, rec)
	if err != nil {
		return nil, err
	}

	e.notifier.Dispatch("order."+string(edge), updated.ID)

	return updated, nil
}

// Apply persists a previously prepared record and dispatches the
// notification. Used by flows that must commit the transition together with
// their own writes (dispute resolution); the caller's repository is expected
// to hand the record to the order store inside its own transaction, so this
// helper is only for records with no extra writes.
func (e *Engine) Apply(ctx context.Context, rec TransitionRecord) (*Transaction, error) {
	updated, err := e.repo.ApplyTransition(ctx, rec)
	if err != nil {
		return nil, err
	}

	e.notifier.Dispatch("order."+string(rec.Edge), updated.ID)

	return updated, nil
}

// Notify exposes the fire-and-forget dispatcher to sibling flows that apply
// prepared records through their own stores.
func (e *Engine) Notify(event string, orderID uuid.UUID) {
	e.notifier.Dispatch(event, orderID)
}

func statusIn(s Status, set []Status) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}

	return false
}

func checkActor(t *Transaction, actor Actor, r rule) error {
	roleOK := false

	for _, role := range r.roles {
		if role == actor.Role {
			roleOK = true
			break
		}
	}

	if !roleOK {
		return fmt.Errorf("%w: role %s", ErrForbidden, actor.Role)
	}

	// Non-admin actors must also be the named party on the order.
	switch actor.Role {
	case RoleBuyer:
		if actor.ID != t.BuyerID {
			return fmt.Errorf("%w: not the buyer on this order", ErrForbidden)
		}
	case RoleSeller:
		if actor.ID != t.SellerID {
			return fmt.Errorf("%w: not the seller on this order", ErrForbidden)
		}
	case RoleDealer:
		if t.DealerID == nil || actor.ID != *t.DealerID {
			return fmt.Errorf("%w: not the dealer on this order", ErrForbidden)
		}
	}

	return nil
}

func checkPayload(p Payload, r rule) error {
	for _, f := range r.required {
		switch f {
		case fieldReason:
			if strings.TrimSpace(p.Reason) == "" {
				return fmt.Errorf("%w: reason is required", ErrValidation)
			}
		case fieldProofRef:
			if p.ProofRef == "" {
				return fmt.Errorf("%w: payment proof is required", ErrValidation)
			}
		case fieldContractRef:
			if p.ContractRef == "" {
				return fmt.Errorf("%w: signed contract is required", ErrValidation)
			}
		}
	}

	return nil
}

func applyPayload(rec *TransitionRecord, edge Edge, actor Actor, p Payload) {
	switch edge {
	case EdgeSignContract:
		rec.SetSignedContractURL = &p.ContractRef
	case EdgeSubmitPayment:
		rec.SetProof = &p.ProofRef
	case EdgeVerifyPayment:
		id := actor.ID
		rec.SetVerifiedBy = &id

		if p.Notes != "" {
			rec.SetVerificationNotes = &p.Notes
		}
	case EdgeRejectPayment:
		id := actor.ID
		rec.SetVerifiedBy = &id
		rec.ClearProof = true
		rec.MergeMetadata = map[string]string{MetaRejectionReason: p.Reason}

		if p.Notes != "" {
			rec.SetVerificationNotes = &p.Notes
		}
	case EdgeCancel, EdgeCancelDisputed:
		rec.SetCancellationReason = &p.Reason
	}
}

func auditPayload(t *Transaction, rec TransitionRecord, p Payload) []byte {
	entry := map[string]any{
		"order_code": t.Code,
		"from":       rec.ExpectedStatus,
		"to":         rec.NewStatus,
	}

	if p.Reason != "" {
		entry["reason"] = p.Reason
	}

	if p.Notes != "" {
		entry["notes"] = p.Notes
	}

	b, err := json.Marshal(entry)
	if err != nil {
		panic(err)
	}

	return b
}

// Legal reports whether edge is defined from the given status, without
// loading any order. Used by read-side surfaces to render available actions.
func Legal(from Status, edge Edge) bool {
	r, ok := rules[edge]
	if !ok || from.Terminal() {
		return false
	}

	return statusIn(from, r.from)
}

// AllowedRoles returns the permitted roles for an edge.
func AllowedRoles(edge Edge) []Role {
	r, ok := rules[edge]
	if !ok {
		return nil
	}

	out := make([]Role, len(r.roles))
	copy(out, r.roles)

	return out
}
