package reconcile_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/lauraedgell33/autoscout-sub002/internal/order"
	"github.com/lauraedgell33/autoscout-sub002/internal/reconcile"
	"github.com/lauraedgell33/autoscout-sub002/internal/statement"
)

func entry(description string, amount int64) statement.Entry {
	return statement.Entry{
		Date:        time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC),
		Description: description,
		Amount:      amount,
	}
}

func TestService_Reconcile(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := reconcile.NewMockRepository(ctrl)
	svc := reconcile.NewService(repo)

	matched := &order.Transaction{
		ID:               uuid.New(),
		Code:             "ORD-2026-TESTCODE",
		PaymentReference: "PAY-ABCDEFGH2345",
		Amount:           123_456,
		Status:           order.StatusAwaitingPayment,
	}

	repo.EXPECT().
		FindByReference(gomock.Any(), "Autokauf PAY-ABCDEFGH2345", int64(123_456)).
		Return(matched, nil)
	repo.EXPECT().
		FindByReference(gomock.Any(), "Ueberweisung ohne Referenz", int64(50_000)).
		Return(nil, nil)

	entries := []statement.Entry{
		entry("Autokauf PAY-ABCDEFGH2345", 123_456),
		entry("Kontofuehrung", -990),
		entry("Ueberweisung ohne Referenz", 50_000),
	}

	report, err := svc.Reconcile(context.Background(), entries)
	require.NoError(t, err)

	require.Len(t, report.Matches, 1)
	assert.Equal(t, matched, report.Matches[0].Order)
	assert.Equal(t, entries[0], report.Matches[0].Entry)

	require.Len(t, report.Unmatched, 1)
	assert.Equal(t, entries[2], report.Unmatched[0])

	assert.Equal(t, 1, report.Debits)
}

func TestService_Reconcile_LookupError(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := reconcile.NewMockRepository(ctrl)
	svc := reconcile.NewService(repo)

	repo.EXPECT().
		FindByReference(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("connection reset"))

	_, err := svc.Reconcile(context.Background(), []statement.Entry{entry("PAY-X", 100)})
	assert.Error(t, err)
}
