// Package payment implements the proof-of-payment workflow: bank transfer
// instructions, proof upload, and the admin verify/reject decision.
package payment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lauraedgell33/autoscout-sub002/internal/order"
)

// bulkWorkers caps concurrent decisions in a bulk verification run.
const bulkWorkers = 4

// Decision outcomes for a submitted proof.
const (
	DecisionVerified = "verified"
	DecisionRejected = "rejected"
)

// BankAccount is the escrow account buyers transfer into.
type BankAccount struct {
	Holder   string
	IBAN     string
	BIC      string
	BankName string
}

// Instructions is the payload returned to a buyer who needs to pay.
type Instructions struct {
	AccountHolder string `json:"account_holder"`
	IBAN          string `json:"iban"`
	BIC           string `json:"bic"`
	BankName      string `json:"bank_name"`
	Reference     string `json:"reference"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
}

// Decision is an admin ruling on a submitted proof.
type Decision struct {
	Outcome string
	Notes   string
	Reason  string // required when rejecting
}

//go:generate mockgen -source=service.go -destination=service_mock.go -package=payment

// DocumentStore persists uploaded proof files.
type DocumentStore interface {
	Save(orderID uuid.UUID, filename string, r io.Reader) (string, error)
	Open(ref string) (*os.File, error)
}

// Service drives payment-related transitions through the order engine.
type Service struct {
	engine  *order.Engine
	repo    order.Repository
	files   DocumentStore
	account BankAccount
	logger  *slog.Logger
}

func NewService(engine *order.Engine, repo order.Repository, files DocumentStore, account BankAccount, logger *slog.Logger) *Service {
	return &Service{
		engine:  engine,
		repo:    repo,
		files:   files,
		account: account,
		logger:  logger,
	}
}

// Instructions returns the transfer details for an order that is waiting on
// payment. Only the order's parties and admins may see them.
func (s *Service) Instructions(ctx context.Context, orderID uuid.UUID, actor order.Actor) (*Instructions, error) {
	t, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if actor.Role != order.RoleAdmin && !t.Party(actor.ID) {
		return nil, fmt.Errorf("%w: not a party to this order", order.ErrForbidden)
	}

	if t.Status != order.StatusAwaitingPayment {
		return nil, fmt.Errorf("%w: order %s is not awaiting payment", order.ErrInvalidState, t.Code)
	}

	return &Instructions{
		AccountHolder: s.account.Holder,
		IBAN:          s.account.IBAN,
		BIC:           s.account.BIC,
		BankName:      s.account.BankName,
		Reference:     t.PaymentReference,
		Amount:        order.FormatAmount(t.Amount),
		Currency:      t.Currency,
	}, nil
}

// SubmitProof stores the uploaded proof file and records the submission.
func (s *Service) SubmitProof(ctx context.Context, orderID uuid.UUID, actor order.Actor, filename string, file io.Reader) (*order.Transaction, error) {
	ref, err := s.files.Save(orderID, filename, file)
	if err != nil {
		return nil, fmt.Errorf("%w: storing payment proof: %v", order.ErrDependency, err)
	}

	return s.engine.Request(ctx, orderID, order.EdgeSubmitPayment, actor, order.Payload{ProofRef: ref})
}

// Proof opens the stored proof document for an order. Access follows the
// same rule as Instructions.
func (s *Service) Proof(ctx context.Context, orderID uuid.UUID, actor order.Actor) (*os.File, error) {
	t, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if actor.Role != order.RoleAdmin && !t.Party(actor.ID) {
		return nil, fmt.Errorf("%w: not a party to this order", order.ErrForbidden)
	}

	if t.PaymentProof == nil {
		return nil, fmt.Errorf("%w: no payment proof on order %s", order.ErrNotFound, t.Code)
	}

	f, err := s.files.Open(*t.PaymentProof)
	if err != nil {
		return nil, fmt.Errorf("%w: reading payment proof: %v", order.ErrDependency, err)
	}

	return f, nil
}

// Decide applies a single verify/reject ruling. A ruling on a proof that has
// already been decided fails with ErrAlreadyDecided rather than a bare state
// error, so callers can distinguish a lost race from a wrong call.
func (s *Service) Decide(ctx context.Context, orderID uuid.UUID, admin order.Actor, d Decision) (*order.Transaction, error) {
	var edge order.Edge

	switch d.Outcome {
	case DecisionVerified:
		edge = order.EdgeVerifyPayment
	case DecisionRejected:
		edge = order.EdgeRejectPayment
	default:
		return nil, fmt.Errorf("%w: unknown decision %q", order.ErrValidation, d.Outcome)
	}

	t, err := s.engine.Request(ctx, orderID, edge, admin, order.Payload{Notes: d.Notes, Reason: d.Reason})
	if err != nil {
		if errors.Is(err, order.ErrInvalidState) || errors.Is(err, order.ErrConflict) {
			if decided, derr := s.proofDecided(ctx, orderID); derr == nil && decided {
				return nil, fmt.Errorf("%w: order %s", order.ErrAlreadyDecided, orderID)
			}
		}

		return nil, err
	}

	return t, nil
}

// proofDecided reports whether the order's latest proof submission has
// already received a ruling.
func (s *Service) proofDecided(ctx context.Context, orderID uuid.UUID) (bool, error) {
	t, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return false, err
	}

	if t.PaymentVerifiedAt != nil {
		return true, nil
	}

	// A rejection clears the proof and leaves the reason behind; until the
	// buyer resubmits, the previous proof counts as decided.
	if t.Status == order.StatusAwaitingPayment {
		_, rejected := t.Metadata[order.MetaRejectionReason]
		return rejected, nil
	}

	return false, nil
}

// BatchItem is one order's decision in a bulk run.
type BatchItem struct {
	OrderID  uuid.UUID
	Decision Decision
}

// BatchResult reports one order's outcome. Err is nil on success.
type BatchResult struct {
	OrderID uuid.UUID
	Order   *order.Transaction
	Err     error
}

// DecideBatch applies decisions independently; one order's failure never
// aborts the rest. Results are returned in input order.
func (s *Service) DecideBatch(ctx context.Context, admin order.Actor, items []BatchItem) []BatchResult {
	results := make([]BatchResult, len(items))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bulkWorkers)

	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			t, err := s.Decide(ctx, item.OrderID, admin, item.Decision)
			results[i] = BatchResult{OrderID: item.OrderID, Order: t, Err: err}

			if err != nil {
				s.logger.Warn("bulk decision failed", "order_id", item.OrderID, "error", err)
			}

			return nil
		})
	}

	// Workers never return errors; Wait only fences completion.
	_ = g.Wait()

	return results
}
