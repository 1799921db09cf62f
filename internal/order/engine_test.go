package order_test

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
)

var (
	buyerID  = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	sellerID = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	dealerID = uuid.MustParse("33333333-3333-3333-3333-333333333333")
	adminID  = uuid.MustParse("99999999-9999-9999-9999-999999999999")
	orderID  = uuid.MustParse("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa")
)

func testOrder(status order.Status) *order.Transaction {
	received := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	return &order.Transaction{
		ID:                orderID,
		Code:              "ORD-2026-TESTCODE",
		BuyerID:           buyerID,
		SellerID:          sellerID,
		DealerID:          &dealerID,
		VehicleID:         uuid.MustParse("bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb"),
		Amount:            1_000_000,
		Currency:          "EUR",
		Status:            status,
		PaymentReference:  "PAY-TESTREF12345",
		PaymentReceivedAt: &received,
	}
}

func TestEngine_Request(t *testing.T) {
	type testCase struct {
		name       string
		edge       order.Edge
		actor      order.Actor
		payload    order.Payload
		current    order.Status
		setupMocks func(repo *order.MockRepository, gen *order.MockContractGenerator, notifier *order.MockNotifier)
		wantErr    error
	}

	tests := []testCase{
		{
			name:    "VerifyPaymentByAdmin",
			edge:    order.EdgeVerifyPayment,
			actor:   order.Actor{ID: adminID, Role: order.RoleAdmin},
			current: order.StatusPaymentReceived,
			setupMocks: func(repo *order.MockRepository, _ *order.MockContractGenerator, notifier *order.MockNotifier) {
				repo.EXPECT().
					ApplyTransition(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, rec order.TransitionRecord) (*order.Transaction, error) {
						assert.Equal(t, order.StatusPaymentReceived, rec.ExpectedStatus)
						assert.Equal(t, order.StatusPaymentVerified, rec.NewStatus)
						assert.Equal(t, order.MilestonePaymentVerified, rec.Milestone)
						require.NotNil(t, rec.SetVerifiedBy)
						assert.Equal(t, adminID, *rec.SetVerifiedBy)

						return testOrder(order.StatusPaymentVerified), nil
					})
				notifier.EXPECT().Dispatch("order.verify_payment", orderID)
			},
		},
		{
			name:    "TerminalOrderRejectsEverything",
			edge:    order.EdgeVerifyPayment,
			actor:   order.Actor{ID: adminID, Role: order.RoleAdmin},
			current: order.StatusCompleted,
			wantErr: order.ErrInvalidState,
		},
		{
			name:    "IllegalFromState",
			edge:    order.EdgeDeliver,
			actor:   order.Actor{ID: buyerID, Role: order.RoleBuyer},
			current: order.StatusPending,
			wantErr: order.ErrInvalidState,
		},
		{
			name:    "SellerCannotVerifyPayment",
			edge:    order.EdgeVerifyPayment,
			actor:   order.Actor{ID: sellerID, Role: order.RoleSeller},
			current: order.StatusPaymentReceived,
			wantErr: order.ErrForbidden,
		},
		{
			name:    "StrangerBuyerForbidden",
			edge:    order.EdgeSubmitPayment,
			actor:   order.Actor{ID: uuid.New(), Role: order.RoleBuyer},
			payload: order.Payload{ProofRef: "proofs/x.pdf"},
			current: order.StatusAwaitingPayment,
			wantErr: order.ErrForbidden,
		},
		{
			name:    "CancelRequiresReason",
			edge:    order.EdgeCancel,
			actor:   order.Actor{ID: buyerID, Role: order.RoleBuyer},
			current: order.StatusPending,
			wantErr: order.ErrValidation,
		},
		{
			name:    "CancelAfterPaymentReceivedRejected",
			edge:    order.EdgeCancel,
			actor:   order.Actor{ID: buyerID, Role: order.RoleBuyer},
			payload: order.Payload{Reason: "changed my mind"},
			current: order.StatusPaymentReceived,
			wantErr: order.ErrInvalidState,
		},
		{
			name:    "ConflictFromStore",
			edge:    order.EdgeVerifyPayment,
			actor:   order.Actor{ID: adminID, Role: order.RoleAdmin},
			current: order.StatusPaymentReceived,
			setupMocks: func(repo *order.MockRepository, _ *order.MockContractGenerator, _ *order.MockNotifier) {
				repo.EXPECT().
					ApplyTransition(gomock.Any(), gomock.Any()).
					Return(nil, order.ErrConflict)
			},
			wantErr: order.ErrConflict,
		},
		{
			name:    "ContractGenerationFailureAborts",
			edge:    order.EdgeGenerateContract,
			actor:   order.Actor{ID: sellerID, Role: order.RoleSeller},
			current: order.StatusPending,
			setupMocks: func(_ *order.MockRepository, gen *order.MockContractGenerator, _ *order.MockNotifier) {
				gen.EXPECT().
					Generate(gomock.Any(), gomock.Any()).
					Return("", errors.New("document service down"))
			},
			wantErr: order.ErrDependency,
		},
		{
			name:    "GenerateContractStoresURL",
			edge:    order.EdgeGenerateContract,
			actor:   order.Actor{ID: dealerID, Role: order.RoleDealer},
			current: order.StatusPending,
			setupMocks: func(repo *order.MockRepository, gen *order.MockContractGenerator, notifier *order.MockNotifier) {
				gen.EXPECT().
					Generate(gomock.Any(), gomock.Any()).
					Return("https://docs.example/contract.pdf", nil)
				repo.EXPECT().
					ApplyTransition(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, rec order.TransitionRecord) (*order.Transaction, error) {
						require.NotNil(t, rec.SetContractURL)
						assert.Equal(t, "https://docs.example/contract.pdf", *rec.SetContractURL)

						return testOrder(order.StatusContractGenerated), nil
					})
				notifier.EXPECT().Dispatch("order.generate_contract", orderID)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := order.NewMockRepository(ctrl)
			gen := order.NewMockContractGenerator(ctrl)
			notifier := order.NewMockNotifier(ctrl)

			repo.EXPECT().GetOrder(gomock.Any(), orderID).Return(testOrder(tt.current), nil)

			if tt.setupMocks != nil {
				tt.setupMocks(repo, gen, notifier)
			}

			engine := order.NewEngine(repo, gen, notifier)
			got, err := engine.Request(context.Background(), orderID, tt.edge, tt.actor, tt.payload)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)

				return
			}

			require.NoError(t, err)
			assert.NotNil(t, got)
		})
	}
}

func TestEngine_Prepare_RejectPayment(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := order.NewMockRepository(ctrl)
	repo.EXPECT().GetOrder(gomock.Any(), orderID).Return(testOrder(order.StatusPaymentReceived), nil)

	engine := order.NewEngine(repo, order.NewMockContractGenerator(ctrl), order.NewMockNotifier(ctrl))

	admin := order.Actor{ID: adminID, Role: order.RoleAdmin}

	_, rec, err := engine.Prepare(context.Background(), orderID, order.EdgeRejectPayment, admin, order.Payload{
		Reason: "amount does not match",
	})
	require.NoError(t, err)

	// Rejection resets to awaiting new proof, wipes the old one, and leaves
	// the reason in metadata.
	assert.Equal(t, order.StatusAwaitingPayment, rec.NewStatus)
	assert.True(t, rec.ClearProof)
	assert.Equal(t, "amount does not match", rec.MergeMetadata[order.MetaRejectionReason])
	assert.Equal(t, order.MilestoneNone, rec.Milestone)
}

func TestEngine_Prepare_RejectPaymentRequiresReason(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := order.NewMockRepository(ctrl)
	repo.EXPECT().GetOrder(gomock.Any(), orderID).Return(testOrder(order.StatusPaymentReceived), nil)

	engine := order.NewEngine(repo, order.NewMockContractGenerator(ctrl), order.NewMockNotifier(ctrl))

	admin := order.Actor{ID: adminID, Role: order.RoleAdmin}

	_, _, err := engine.Prepare(context.Background(), orderID, order.EdgeRejectPayment, admin, order.Payload{})
	assert.ErrorIs(t, err, order.ErrValidation)
}

func TestLegal(t *testing.T) {
	assert.True(t, order.Legal(order.StatusPending, order.EdgeGenerateContract))
	assert.True(t, order.Legal(order.StatusDispute, order.EdgeRefund))
	assert.True(t, order.Legal(order.StatusDispute, order.EdgeCancelDisputed))

	assert.False(t, order.Legal(order.StatusPending, order.EdgeDeliver))
	assert.False(t, order.Legal(order.StatusCompleted, order.EdgeCancel))
	assert.False(t, order.Legal(order.StatusRefunded, order.EdgeVerifyPayment))
	assert.False(t, order.Legal(order.StatusPaymentReceived, order.EdgeCancel))
}

func TestAllowedRoles(t *testing.T) {
	assert.ElementsMatch(t,
		[]order.Role{order.RoleAdmin},
		order.AllowedRoles(order.EdgeVerifyPayment),
	)
	assert.ElementsMatch(t,
		[]order.Role{order.RoleBuyer, order.RoleSeller},
		order.AllowedRoles(order.EdgeOpenDispute),
	)
	assert.Empty(t, order.AllowedRoles(order.Edge("bogus")))
}
