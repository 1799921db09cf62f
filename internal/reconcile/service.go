// Package reconcile matches booked statement entries against open orders by
// payment reference and amount, giving admins a worklist of transfers that
// are ready to verify.
package reconcile

import (
	"context"

	"github.com/lauraedgell33/autoscout-sub002/internal/order"
	"github.com/lauraedgell33/autoscout-sub002/internal/statement"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=reconcile

// Repository looks up orders by the transfer details a bank entry carries.
type Repository interface {
	// FindByReference returns the open order whose payment reference occurs
	// in the transfer purpose and whose amount matches exactly, or nil when
	// nothing fits.
	FindByReference(ctx context.Context, purpose string, amount int64) (*order.Transaction, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Match pairs one credit entry with the order it pays for.
type Match struct {
	Entry statement.Entry    `json:"entry"`
	Order *order.Transaction `json:"order"`
}

// Report summarizes one reconciliation run.
type Report struct {
	Matches   []Match           `json:"matches"`
	Unmatched []statement.Entry `json:"unmatched"`
	Debits    int               `json:"debits_skipped"`
}

// Reconcile classifies each entry. Debits are skipped; credits either match
// exactly one open order or land in the unmatched list for manual review.
func (s *Service) Reconcile(ctx context.Context, entries []statement.Entry) (*Report, error) {
	report := &Report{}

	for _, e := range entries {
		if !e.Credit() {
			report.Debits++
			continue
		}

		t, err := s.repo.FindByReference(ctx, e.Description, e.Amount)
		if err != nil {
			return nil, err
		}

		if t == nil {
			report.Unmatched = append(report.Unmatched, e)
			continue
		}

		report.Matches = append(report.Matches, Match{Entry: e, Order: t})
	}

	return report, nil
}
