package dispute

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lauraedgell33/autoscout-sub002/internal/order"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=dispute

// Repository persists disputes and their response threads. Create and
// Resolve also carry a prepared order transition that must commit in the
// same database transaction as the dispute write.
type Repository interface {
	Create(ctx context.Context, d *Dispute, rec order.TransitionRecord) error
	Get(ctx context.Context, id uuid.UUID) (*Dispute, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*Dispute, error)
	ListActive(ctx context.Context) ([]*Dispute, error)
	SetStatus(ctx context.Context, id uuid.UUID, status Status) error
	AddResponse(ctx context.Context, r *Response) error
	ListResponses(ctx context.Context, disputeID uuid.UUID) ([]Response, error)
	Resolve(ctx context.Context, d *Dispute, rec order.TransitionRecord) error
}

// Service coordinates the dispute sub-flow with the order engine.
type Service struct {
	engine *order.Engine
	orders order.Repository
	repo   Repository
}

func NewService(engine *order.Engine, orders order.Repository, repo Repository) *Service {
	return &Service{engine: engine, orders: orders, repo: repo}
}

// OpenParams carries the data needed to raise a dispute.
type OpenParams struct {
	OrderID     uuid.UUID
	Against     uuid.UUID
	Reason      string
	Description string
}

// Open raises a dispute and moves the parent order into the dispute state in
// one transaction. Disputes require a recorded payment; the database keeps
// at most one active dispute per order.
func (s *Service) Open(ctx context.Context, actor order.Actor, p OpenParams) (*Dispute, error) {
	t, rec, err := s.engine.Prepare(ctx, p.OrderID, order.EdgeOpenDispute, actor, order.Payload{Reason: p.Reason})
	if err != nil {
		return nil, err
	}

	if t.PaymentReceivedAt == nil {
		return nil, fmt.Errorf("%w: no payment recorded on order %s", order.ErrInvalidState, t.Code)
	}

	if !t.Party(p.Against) || p.Against == actor.ID {
		return nil, fmt.Errorf("%w: disputed party must be the other side of the order", order.ErrValidation)
	}

	d := &Dispute{
		ID:          uuid.New(),
		OrderID:     t.ID,
		RaisedBy:    actor.ID,
		Against:     p.Against,
		Reason:      p.Reason,
		Description: p.Description,
		Status:      StatusOpen,
	}

	if err := s.repo.Create(ctx, d, rec); err != nil {
		return nil, err
	}

	s.engine.Notify("order."+string(order.EdgeOpenDispute), t.ID)

	return d, nil
}

// Get returns a dispute to its parties or an admin.
func (s *Service) Get(ctx context.Context, id uuid.UUID, actor order.Actor) (*Dispute, []Response, error) {
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	if actor.Role != order.RoleAdmin && !d.Party(actor.ID) {
		return nil, nil, fmt.Errorf("%w: not a party to this dispute", order.ErrForbidden)
	}

	responses, err := s.repo.ListResponses(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	return d, responses, nil
}

// ListByOrder returns the dispute history of an order.
func (s *Service) ListByOrder(ctx context.Context, orderID uuid.UUID, actor order.Actor) ([]*Dispute, error) {
	if actor.Role != order.RoleAdmin {
		t, err := s.orders.GetOrder(ctx, orderID)
		if err != nil {
			return nil, err
		}

		if !t.Party(actor.ID) {
			return nil, fmt.Errorf("%w: not a party to this order", order.ErrForbidden)
		}
	}

	return s.repo.ListByOrder(ctx, orderID)
}

// ListActive returns every open or under-review dispute, for the admin
// worklist.
func (s *Service) ListActive(ctx context.Context, actor order.Actor) ([]*Dispute, error) {
	if actor.Role != order.RoleAdmin {
		return nil, fmt.Errorf("%w: admin only", order.ErrForbidden)
	}

	return s.repo.ListActive(ctx)
}

// Respond appends a message to the dispute thread. The first admin response
// moves an open dispute under review.
func (s *Service) Respond(ctx context.Context, disputeID uuid.UUID, actor order.Actor, message string) (*Response, error) {
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("%w: message is required", order.ErrValidation)
	}

	d, err := s.repo.Get(ctx, disputeID)
	if err != nil {
		return nil, err
	}

	admin := actor.Role == order.RoleAdmin
	if !admin && !d.Party(actor.ID) {
		return nil, fmt.Errorf("%w: not a party to this dispute", order.ErrForbidden)
	}

	if !d.Status.Active() {
		return nil, fmt.Errorf("%w: dispute is %s", order.ErrInvalidState, d.Status)
	}

	r := &Response{
		DisputeID: d.ID,
		AuthorID:  actor.ID,
		Message:   message,
		Admin:     admin,
	}

	if err := s.repo.AddResponse(ctx, r); err != nil {
		return nil, err
	}

	if admin && d.Status == StatusOpen {
		if err := s.repo.SetStatus(ctx, d.ID, StatusUnderReview); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Resolve settles a dispute. The ruling drives the parent order out of the
// dispute state, and both writes commit in one transaction: a resolved
// dispute with an unresolved order (or vice versa) can never be observed.
func (s *Service) Resolve(ctx context.Context, disputeID uuid.UUID, admin order.Actor, resolution string, outcome Outcome) (*Dispute, error) {
	if admin.Role != order.RoleAdmin {
		return nil, fmt.Errorf("%w: only admins resolve disputes", order.ErrForbidden)
	}

	if strings.TrimSpace(resolution) == "" {
		return nil, fmt.Errorf("%w: resolution is required", order.ErrValidation)
	}

	if !outcome.Valid() {
		return nil, fmt.Errorf("%w: unknown outcome %q", order.ErrValidation, outcome)
	}

	d, err := s.repo.Get(ctx, disputeID)
	if err != nil {
		return nil, err
	}

	if !d.Status.Active() {
		return nil, fmt.Errorf("%w: dispute already %s", order.ErrInvalidState, d.Status)
	}

	var (
		edge    order.Edge
		payload order.Payload
	)

	switch outcome {
	case OutcomeResume:
		edge = order.EdgeResumeDispute
		payload = order.Payload{Notes: resolution}
	case OutcomeRefund:
		edge = order.EdgeRefund
		payload = order.Payload{Notes: resolution}
	case OutcomeCancel:
		edge = order.EdgeCancelDisputed
		payload = order.Payload{Reason: resolution}
	}

	_, rec, err := s.engine.Prepare(ctx, d.OrderID, edge, admin, payload)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	o := outcome

	d.Status = StatusResolved
	d.Resolution = &resolution
	d.Outcome = &o
	d.ResolvedBy = &admin.ID
	d.ResolvedAt = &now

	if err := s.repo.Resolve(ctx, d, rec); err != nil {
		return nil, err
	}

	s.engine.Notify("order."+string(edge), d.OrderID)
	s.engine.Notify("dispute.resolved", d.OrderID)

	return d, nil
}
