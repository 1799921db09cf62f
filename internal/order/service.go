package order

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service handles order creation and read access. All status changes go
// through the Engine.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type CreateParams struct {
	BuyerID        uuid.UUID
	SellerID       uuid.UUID
	DealerID       *uuid.UUID
	VehicleID      uuid.UUID
	Amount         int64
	Currency       string
	CommissionRate decimal.Decimal
	Notes          string
}

// Create places a new order in the pending state. The vehicle hold (at most
// one active order per vehicle) is enforced by the store and surfaces as
// ErrConflict.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Transaction, error) {
	if params.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}

	if err := ValidateCurrency(params.Currency); err != nil {
		return nil, err
	}

	if params.CommissionRate.IsNegative() || params.CommissionRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("%w: commission rate must be in [0, 1)", ErrValidation)
	}

	if params.BuyerID == params.SellerID {
		return nil, fmt.Errorf("%w: buyer and seller must differ", ErrValidation)
	}

	commission, net := SplitCommission(params.Amount, params.CommissionRate)

	t := &Transaction{
		Code:             NewOrderCode(time.Now()),
		BuyerID:          params.BuyerID,
		SellerID:         params.SellerID,
		DealerID:         params.DealerID,
		VehicleID:        params.VehicleID,
		Amount:           params.Amount,
		Currency:         params.Currency,
		CommissionRate:   params.CommissionRate,
		CommissionAmount: commission,
		NetAmount:        net,
		Status:           StatusPending,
		PaymentReference: NewPaymentReference(),
		Notes:            params.Notes,
	}

	if err := s.repo.CreateOrder(ctx, t); err != nil {
		return nil, err
	}

	return t, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	return s.repo.GetOrder(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Transaction, error) {
	return s.repo.ListOrders(ctx, filter)
}

// Events returns the append-only transition history for an order.
func (s *Service) Events(ctx context.Context, orderID uuid.UUID) ([]Event, error) {
	if _, err := s.repo.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}

	return s.repo.ListEvents(ctx, orderID)
}

func (s *Service) Statistics(ctx context.Context) (*Stats, error) {
	return s.repo.Statistics(ctx)
}
