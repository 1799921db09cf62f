package payment_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/lauraedgell33/autoscout-sub002/internal/order"
	"github.com/lauraedgell33/autoscout-sub002/internal/payment"
)

var (
	buyerID  = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	sellerID = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	adminID  = uuid.MustParse("99999999-9999-9999-9999-999999999999")
	orderID  = uuid.MustParse("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa")

	buyer = order.Actor{ID: buyerID, Role: order.RoleBuyer}
	admin = order.Actor{ID: adminID, Role: order.RoleAdmin}

	testAccount = payment.BankAccount{
		Holder:   "AutoScout Escrow GmbH",
		IBAN:     "DE89370400440532013000",
		BIC:      "COBADEFFXXX",
		BankName: "Commerzbank",
	}
)

type fixture struct {
	repo     *order.MockRepository
	files    *payment.MockDocumentStore
	notifier *order.MockNotifier
	svc      *payment.Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	repo := order.NewMockRepository(ctrl)
	files := payment.NewMockDocumentStore(ctrl)
	notifier := order.NewMockNotifier(ctrl)
	engine := order.NewEngine(repo, order.NewMockContractGenerator(ctrl), notifier)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := payment.NewService(engine, repo, files, testAccount, logger)

	return fixture{repo: repo, files: files, notifier: notifier, svc: svc}
}

func testOrder(status order.Status) *order.Transaction {
	return &order.Transaction{
		ID:               orderID,
		Code:             "ORD-2026-TESTCODE",
		BuyerID:          buyerID,
		SellerID:         sellerID,
		VehicleID:        uuid.MustParse("bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb"),
		Amount:           1_000_000,
		Currency:         "EUR",
		Status:           status,
		PaymentReference: "PAY-TESTREF12345",
	}
}

func TestService_Instructions(t *testing.T) {
	t.Run("BuyerGetsTransferDetails", func(t *testing.T) {
		f := newFixture(t)
		f.repo.EXPECT().GetOrder(gomock.Any(), orderID).Return(testOrder(order.StatusAwaitingPayment), nil)

		instr, err := f.svc.Instructions(context.Background(), orderID, buyer)
		require.NoError(t, err)
		assert.Equal(t, testAccount.IBAN, instr.IBAN)
		assert.Equal(t, "PAY-TESTREF12345", instr.Reference)
		assert.Equal(t, "10000.00", instr.Amount)
		assert.Equal(t, "EUR", instr.Currency)
	})

	t.Run("StrangerForbidden", func(t *testing.T) {
		f := newFixture(t)
		f.repo.EXPECT().GetOrder(gomock.Any(), orderID).Return(testOrder(order.StatusAwaitingPayment), nil)

		stranger := order.Actor{ID: uuid.New(), Role: order.RoleBuyer}
		_, err := f.svc.Instructions(context.Background(), orderID, stranger)
		assert.ErrorIs(t, err, order.ErrForbidden)
	})

	t.Run("WrongStatus", func(t *testing.T) {
		f := newFixture(t)
		f.repo.EXPECT().GetOrder(gomock.Any(), orderID).Return(testOrder(order.StatusPending), nil)

		_, err := f.svc.Instructions(context.Background(), orderID, buyer)
		assert.ErrorIs(t, err, order.ErrInvalidState)
	})
}

func TestService_SubmitProof(t *testing.T) {
	t.Run("StorageFailureIsDependencyError", func(t *testing.T) {
		f := newFixture(t)
		f.files.EXPECT().
			Save(orderID, "proof.pdf", gomock.Any()).
			Return("", errors.New("disk full"))

		_, err := f.svc.SubmitProof(context.Background(), orderID, buyer, "proof.pdf", strings.NewReader("pdf"))
		assert.ErrorIs(t, err, order.ErrDependency)
	})

	t.Run("SavedRefFlowsIntoTransition", func(t *testing.T) {
		f := newFixture(t)
		f.files.EXPECT().
			Save(orderID, "proof.pdf", gomock.Any()).
			Return("aaaaaaaa/proof.pdf", nil)
		f.repo.EXPECT().GetOrder(gomock.Any(), orderID).Return(testOrder(order.StatusAwaitingPayment), nil)
		f.repo.EXPECT().
			ApplyTransition(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, rec order.TransitionRecord) (*order.Transaction, error) {
				assert.Equal(t, order.EdgeSubmitPayment, rec.Edge)
				require.NotNil(t, rec.SetProof)
				assert.Equal(t, "aaaaaaaa/proof.pdf", *rec.SetProof)

				return testOrder(order.StatusPaymentReceived), nil
			})
		f.notifier.EXPECT().Dispatch("order.submit_payment", orderID)

		got, err := f.svc.SubmitProof(context.Background(), orderID, buyer, "proof.pdf", strings.NewReader("pdf"))
		require.NoError(t, err)
		assert.Equal(t, order.StatusPaymentReceived, got.Status)
	})
}

func TestService_Decide(t *testing.T) {
	t.Run("Verify", func(t *testing.T) {
		f := newFixture(t)
		f.repo.EXPECT().GetOrder(gomock.Any(), orderID).Return(testOrder(order.StatusPaymentReceived), nil)
		f.repo.EXPECT().
			ApplyTransition(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, rec order.TransitionRecord) (*order.Transaction, error) {
				assert.Equal(t, order.EdgeVerifyPayment, rec.Edge)
				assert.Equal(t, order.StatusPaymentVerified, rec.NewStatus)

				return testOrder(order.StatusPaymentVerified), nil
			})
		f.notifier.EXPECT().Dispatch("order.verify_payment", orderID)

		got, err := f.svc.Decide(context.Background(), orderID, admin, payment.Decision{Outcome: payment.DecisionVerified})
		require.NoError(t, err)
		assert.Equal(t, order.StatusPaymentVerified, got.Status)
	})

	t.Run("RejectWithoutReason", func(t *testing.T) {
		f := newFixture(t)
		f.repo.EXPECT().GetOrder(gomock.Any(), orderID).Return(testOrder(order.StatusPaymentReceived), nil)

		_, err := f.svc.Decide(context.Background(), orderID, admin, payment.Decision{Outcome: payment.DecisionRejected})
		assert.ErrorIs(t, err, order.ErrValidation)
	})

	t.Run("UnknownOutcome", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.Decide(context.Background(), orderID, admin, payment.Decision{Outcome: "maybe"})
		assert.ErrorIs(t, err, order.ErrValidation)
	})

	t.Run("AlreadyVerified", func(t *testing.T) {
		f := newFixture(t)

		verifiedAt := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
		decided := testOrder(order.StatusPaymentVerified)
		decided.PaymentVerifiedAt = &verifiedAt

		// First read backs the transition attempt, second backs the
		// already-decided probe.
		f.repo.EXPECT().GetOrder(gomock.Any(), orderID).Return(decided, nil).Times(2)

		_, err := f.svc.Decide(context.Background(), orderID, admin, payment.Decision{Outcome: payment.DecisionVerified})
		assert.ErrorIs(t, err, order.ErrAlreadyDecided)
	})

	t.Run("AlreadyRejected", func(t *testing.T) {
		f := newFixture(t)

		rejected := testOrder(order.StatusAwaitingPayment)
		rejected.Metadata = map[string]string{order.MetaRejectionReason: "amount mismatch"}

		f.repo.EXPECT().GetOrder(gomock.Any(), orderID).Return(rejected, nil).Times(2)

		_, err := f.svc.Decide(context.Background(), orderID, admin, payment.Decision{Outcome: payment.DecisionVerified})
		assert.ErrorIs(t, err, order.ErrAlreadyDecided)
	})

	t.Run("LostRaceWithoutPriorDecision", func(t *testing.T) {
		f := newFixture(t)
		f.repo.EXPECT().GetOrder(gomock.Any(), orderID).Return(testOrder(order.StatusPaymentReceived), nil).Times(2)
		f.repo.EXPECT().
			ApplyTransition(gomock.Any(), gomock.Any()).
			Return(nil, order.ErrConflict)

		_, err := f.svc.Decide(context.Background(), orderID, admin, payment.Decision{Outcome: payment.DecisionVerified})
		assert.ErrorIs(t, err, order.ErrConflict)
		assert.NotErrorIs(t, err, order.ErrAlreadyDecided)
	})
}

func TestService_DecideBatch(t *testing.T) {
	f := newFixture(t)

	otherID := uuid.MustParse("cccccccc-cccc-cccc-cccc-cccccccccccc")

	f.repo.EXPECT().GetOrder(gomock.Any(), orderID).Return(testOrder(order.StatusPaymentReceived), nil)
	f.repo.EXPECT().
		ApplyTransition(gomock.Any(), gomock.Any()).
		Return(testOrder(order.StatusPaymentVerified), nil)
	f.notifier.EXPECT().Dispatch("order.verify_payment", orderID)

	items := []payment.BatchItem{
		{OrderID: orderID, Decision: payment.Decision{Outcome: payment.DecisionVerified}},
		{OrderID: otherID, Decision: payment.Decision{Outcome: "bogus"}},
	}

	results := f.svc.DecideBatch(context.Background(), admin, items)
	require.Len(t, results, 2)

	assert.Equal(t, orderID, results[0].OrderID)
	require.NoError(t, results[0].Err)
	assert.Equal(t, order.StatusPaymentVerified, results[0].Order.Status)

	assert.Equal(t, otherID, results[1].OrderID)
	assert.ErrorIs(t, results[1].Err, order.ErrValidation)
	assert.Nil(t, results[1].Order)
}
