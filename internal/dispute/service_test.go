package dispute_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/lauraedgell33/autoscout-sub002/internal/dispute"
	"github.com/lauraedgell33/autoscout-sub002/internal/order"
)

var (
	buyerID   = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	sellerID  = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	adminID   = uuid.MustParse("99999999-9999-9999-9999-999999999999")
	orderID   = uuid.MustParse("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa")
	disputeID = uuid.MustParse("dddddddd-dddd-dddd-dddd-dddddddddddd")

	buyer  = order.Actor{ID: buyerID, Role: order.RoleBuyer}
	seller = order.Actor{ID: sellerID, Role: order.RoleSeller}
	admin  = order.Actor{ID: adminID, Role: order.RoleAdmin}
)

type fixture struct {
	orders   *order.MockRepository
	repo     *dispute.MockRepository
	notifier *order.MockNotifier
	svc      *dispute.Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	orders := order.NewMockRepository(ctrl)
	repo := dispute.NewMockRepository(ctrl)
	notifier := order.NewMockNotifier(ctrl)
	engine := order.NewEngine(orders, order.NewMockContractGenerator(ctrl), notifier)

	return fixture{
		orders:   orders,
		repo:     repo,
		notifier: notifier,
		svc:      dispute.NewService(engine, orders, repo),
	}
}

func testOrder(status order.Status) *order.Transaction {
	received := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	return &order.Transaction{
		ID:                orderID,
		Code:              "ORD-2026-TESTCODE",
		BuyerID:           buyerID,
		SellerID:          sellerID,
		VehicleID:         uuid.MustParse("bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb"),
		Amount:            1_000_000,
		Currency:          "EUR",
		Status:            status,
		PaymentReceivedAt: &received,
	}
}

func testDispute(status dispute.Status) *dispute.Dispute {
	return &dispute.Dispute{
		ID:       disputeID,
		OrderID:  orderID,
		RaisedBy: buyerID,
		Against:  sellerID,
		Reason:   "vehicle damaged on arrival",
		Status:   status,
	}
}

func openParams() dispute.OpenParams {
	return dispute.OpenParams{
		OrderID:     orderID,
		Against:     sellerID,
		Reason:      "vehicle damaged on arrival",
		Description: "Rear bumper dented during transport.",
	}
}

func TestService_Open(t *testing.T) {
	t.Run("BuyerOpensAgainstSeller", func(t *testing.T) {
		f := newFixture(t)
		f.orders.EXPECT().GetOrder(gomock.Any(), orderID).Return(testOrder(order.StatusPaymentVerified), nil)
		f.repo.EXPECT().
			Create(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, d *dispute.Dispute, rec order.TransitionRecord) error {
				assert.Equal(t, order.EdgeOpenDispute, rec.Edge)
				assert.Equal(t, order.StatusPaymentVerified, rec.ExpectedStatus)
				assert.Equal(t, order.StatusDispute, rec.NewStatus)
				assert.Equal(t, buyerID, d.RaisedBy)
				assert.Equal(t, sellerID, d.Against)
				assert.Equal(t, dispute.StatusOpen, d.Status)

				return nil
			})
		f.notifier.EXPECT().Dispatch("order.open_dispute", orderID)

		d, err := f.svc.Open(context.Background(), buyer, openParams())
		require.NoError(t, err)
		assert.Equal(t, dispute.StatusOpen, d.Status)
	})

	t.Run("NoPaymentRecorded", func(t *testing.T) {
		f := newFixture(t)

		o := testOrder(order.StatusPaymentReceived)
		o.PaymentReceivedAt = nil
		f.orders.EXPECT().GetOrder(gomock.Any(), orderID).Return(o, nil)

		_, err := f.svc.Open(context.Background(), buyer, openParams())
		assert.ErrorIs(t, err, order.ErrInvalidState)
	})

	t.Run("BeforePaymentRejected", func(t *testing.T) {
		f := newFixture(t)
		f.orders.EXPECT().GetOrder(gomock.Any(), orderID).Return(testOrder(order.StatusAwaitingPayment), nil)

		_, err := f.svc.Open(context.Background(), buyer, openParams())
		assert.ErrorIs(t, err, order.ErrInvalidState)
	})

	t.Run("AgainstSelf", func(t *testing.T) {
		f := newFixture(t)
		f.orders.EXPECT().GetOrder(gomock.Any(), orderID).Return(testOrder(order.StatusPaymentVerified), nil)

		p := openParams()
		p.Against = buyerID
		_, err := f.svc.Open(context.Background(), buyer, p)
		assert.ErrorIs(t, err, order.ErrValidation)
	})

	t.Run("AgainstOutsider", func(t *testing.T) {
		f := newFixture(t)
		f.orders.EXPECT().GetOrder(gomock.Any(), orderID).Return(testOrder(order.StatusPaymentVerified), nil)

		p := openParams()
		p.Against = uuid.New()
		_, err := f.svc.Open(context.Background(), buyer, p)
		assert.ErrorIs(t, err, order.ErrValidation)
	})

	t.Run("StrangerForbidden", func(t *testing.T) {
		f := newFixture(t)
		f.orders.EXPECT().GetOrder(gomock.Any(), orderID).Return(testOrder(order.StatusPaymentVerified), nil)

		stranger := order.Actor{ID: uuid.New(), Role: order.RoleBuyer}
		_, err := f.svc.Open(context.Background(), stranger, openParams())
		assert.ErrorIs(t, err, order.ErrForbidden)
	})

	t.Run("SecondActiveDisputeConflicts", func(t *testing.T) {
		f := newFixture(t)
		f.orders.EXPECT().GetOrder(gomock.Any(), orderID).Return(testOrder(order.StatusPaymentVerified), nil)
		f.repo.EXPECT().
			Create(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(order.ErrConflict)

		_, err := f.svc.Open(context.Background(), buyer, openParams())
		assert.ErrorIs(t, err, order.ErrConflict)
	})
}

func TestService_Respond(t *testing.T) {
	t.Run("EmptyMessage", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.Respond(context.Background(), disputeID, buyer, "   ")
		assert.ErrorIs(t, err, order.ErrValidation)
	})

	t.Run("StrangerForbidden", func(t *testing.T) {
		f := newFixture(t)
		f.repo.EXPECT().Get(gomock.Any(), disputeID).Return(testDispute(dispute.StatusOpen), nil)

		stranger := order.Actor{ID: uuid.New(), Role: order.RoleSeller}
		_, err := f.svc.Respond(context.Background(), disputeID, stranger, "let me in")
		assert.ErrorIs(t, err, order.ErrForbidden)
	})

	t.Run("SettledDispute", func(t *testing.T) {
		f := newFixture(t)
		f.repo.EXPECT().Get(gomock.Any(), disputeID).Return(testDispute(dispute.StatusResolved), nil)

		_, err := f.svc.Respond(context.Background(), disputeID, seller, "too late?")
		assert.ErrorIs(t, err, order.ErrInvalidState)
	})

	t.Run("PartyResponseKeepsStatus", func(t *testing.T) {
		f := newFixture(t)
		f.repo.EXPECT().Get(gomock.Any(), disputeID).Return(testDispute(dispute.StatusOpen), nil)
		f.repo.EXPECT().
			AddResponse(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, r *dispute.Response) error {
				assert.Equal(t, sellerID, r.AuthorID)
				assert.False(t, r.Admin)

				return nil
			})

		r, err := f.svc.Respond(context.Background(), disputeID, seller, "the bumper was fine at handover")
		require.NoError(t, err)
		assert.False(t, r.Admin)
	})

	t.Run("FirstAdminResponseMovesUnderReview", func(t *testing.T) {
		f := newFixture(t)
		f.repo.EXPECT().Get(gomock.Any(), disputeID).Return(testDispute(dispute.StatusOpen), nil)
		f.repo.EXPECT().
			AddResponse(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, r *dispute.Response) error {
				assert.True(t, r.Admin)
				return nil
			})
		f.repo.EXPECT().SetStatus(gomock.Any(), disputeID, dispute.StatusUnderReview)

		_, err := f.svc.Respond(context.Background(), disputeID, admin, "please upload photos of the damage")
		require.NoError(t, err)
	})

	t.Run("LaterAdminResponseLeavesStatus", func(t *testing.T) {
		f := newFixture(t)
		f.repo.EXPECT().Get(gomock.Any(), disputeID).Return(testDispute(dispute.StatusUnderReview), nil)
		f.repo.EXPECT().AddResponse(gomock.Any(), gomock.Any()).Return(nil)

		_, err := f.svc.Respond(context.Background(), disputeID, admin, "thanks, reviewing now")
		require.NoError(t, err)
	})
}

func TestService_Resolve(t *testing.T) {
	t.Run("NonAdminForbidden", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.Resolve(context.Background(), disputeID, buyer, "done", dispute.OutcomeResume)
		assert.ErrorIs(t, err, order.ErrForbidden)
	})

	t.Run("EmptyResolution", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.Resolve(context.Background(), disputeID, admin, "  ", dispute.OutcomeResume)
		assert.ErrorIs(t, err, order.ErrValidation)
	})

	t.Run("UnknownOutcome", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.Resolve(context.Background(), disputeID, admin, "done", dispute.Outcome("split"))
		assert.ErrorIs(t, err, order.ErrValidation)
	})

	t.Run("AlreadySettled", func(t *testing.T) {
		f := newFixture(t)
		f.repo.EXPECT().Get(gomock.Any(), disputeID).Return(testDispute(dispute.StatusResolved), nil)

		_, err := f.svc.Resolve(context.Background(), disputeID, admin, "done", dispute.OutcomeResume)
		assert.ErrorIs(t, err, order.ErrInvalidState)
	})

	resolutionCases := []struct {
		name       string
		outcome    dispute.Outcome
		wantEdge   order.Edge
		wantStatus order.Status
	}{
		{
			name:       "ResumeReturnsOrderToVerified",
			outcome:    dispute.OutcomeResume,
			wantEdge:   order.EdgeResumeDispute,
			wantStatus: order.StatusPaymentVerified,
		},
		{
			name:       "RefundClosesOrderRefunded",
			outcome:    dispute.OutcomeRefund,
			wantEdge:   order.EdgeRefund,
			wantStatus: order.StatusRefunded,
		},
		{
			name:       "CancelClosesOrderCancelled",
			outcome:    dispute.OutcomeCancel,
			wantEdge:   order.EdgeCancelDisputed,
			wantStatus: order.StatusCancelled,
		},
	}

	for _, tc := range resolutionCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.repo.EXPECT().Get(gomock.Any(), disputeID).Return(testDispute(dispute.StatusUnderReview), nil)
			f.orders.EXPECT().GetOrder(gomock.Any(), orderID).Return(testOrder(order.StatusDispute), nil)
			f.repo.EXPECT().
				Resolve(gomock.Any(), gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, d *dispute.Dispute, rec order.TransitionRecord) error {
					assert.Equal(t, tc.wantEdge, rec.Edge)
					assert.Equal(t, order.StatusDispute, rec.ExpectedStatus)
					assert.Equal(t, tc.wantStatus, rec.NewStatus)

					assert.Equal(t, dispute.StatusResolved, d.Status)
					require.NotNil(t, d.Resolution)
					assert.Equal(t, "inspection settled it", *d.Resolution)
					require.NotNil(t, d.Outcome)
					assert.Equal(t, tc.outcome, *d.Outcome)
					require.NotNil(t, d.ResolvedBy)
					assert.Equal(t, adminID, *d.ResolvedBy)
					require.NotNil(t, d.ResolvedAt)

					return nil
				})
			f.notifier.EXPECT().Dispatch("order."+string(tc.wantEdge), orderID)
			f.notifier.EXPECT().Dispatch("dispute.resolved", orderID)

			d, err := f.svc.Resolve(context.Background(), disputeID, admin, "inspection settled it", tc.outcome)
			require.NoError(t, err)
			assert.Equal(t, dispute.StatusResolved, d.Status)
		})
	}
}

func TestService_ListActive(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ListActive(context.Background(), seller)
	assert.ErrorIs(t, err, order.ErrForbidden)

	f.repo.EXPECT().ListActive(gomock.Any()).Return([]*dispute.Dispute{testDispute(dispute.StatusOpen)}, nil)
	got, err := f.svc.ListActive(context.Background(), admin)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
