package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lauraedgell33/autoscout-sub002/internal/order"
)

type orderResponse struct {
	ID   uuid.UUID `json:"id"`
	Code string    `json:"code"`

	BuyerID   uuid.UUID  `json:"buyer_id"`
	SellerID  uuid.UUID  `json:"seller_id"`
	DealerID  *uuid.UUID `json:"dealer_id,omitempty"`
	VehicleID uuid.UUID  `json:"vehicle_id"`

	Amount           int64           `json:"amount"`
	Currency         string          `json:"currency"`
	CommissionRate   decimal.Decimal `json:"commission_rate"`
	CommissionAmount int64           `json:"commission_amount"`
	NetAmount        int64           `json:"net_amount"`

	Status           order.Status `json:"status"`
	PaymentReference string       `json:"payment_reference"`

	ContractURL       *string `json:"contract_url,omitempty"`
	SignedContractURL *string `json:"signed_contract_url,omitempty"`
	PaymentProof      *string `json:"payment_proof,omitempty"`

	VerifiedBy        *uuid.UUID `json:"verified_by,omitempty"`
	VerificationNotes *string    `json:"verification_notes,omitempty"`

	Notes              string            `json:"notes,omitempty"`
	CancellationReason *string           `json:"cancellation_reason,omitempty"`
	Metadata           map[string]string `json:"metadata,omitempty"`

	ContractGeneratedAt *time.Time `json:"contract_generated_at,omitempty"`
	ContractSignedAt    *time.Time `json:"contract_signed_at,omitempty"`
	PaymentReceivedAt   *time.Time `json:"payment_received_at,omitempty"`
	PaymentVerifiedAt   *time.Time `json:"payment_verified_at,omitempty"`
	ReadyForDeliveryAt  *time.Time `json:"ready_for_delivery_at,omitempty"`
	DeliveredAt         *time.Time `json:"delivered_at,omitempty"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`
	CancelledAt         *time.Time `json:"cancelled_at,omitempty"`
	RefundedAt          *time.Time `json:"refunded_at,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

func toResponse(t *order.Transaction) orderResponse {
	return orderResponse{
		ID:                  t.ID,
		Code:                t.Code,
		BuyerID:             t.BuyerID,
		SellerID:            t.SellerID,
		DealerID:            t.DealerID,
		VehicleID:           t.VehicleID,
		Amount:              t.Amount,
		Currency:            t.Currency,
		CommissionRate:      t.CommissionRate,
		CommissionAmount:    t.CommissionAmount,
		NetAmount:           t.NetAmount,
		Status:              t.Status,
		PaymentReference:    t.PaymentReference,
		ContractURL:         t.ContractURL,
		SignedContractURL:   t.SignedContractURL,
		PaymentProof:        t.PaymentProof,
		VerifiedBy:          t.VerifiedBy,
		VerificationNotes:   t.VerificationNotes,
		Notes:               t.Notes,
		CancellationReason:  t.CancellationReason,
		Metadata:            t.Metadata,
		ContractGeneratedAt: t.ContractGeneratedAt,
		ContractSignedAt:    t.ContractSignedAt,
		PaymentReceivedAt:   t.PaymentReceivedAt,
		PaymentVerifiedAt:   t.PaymentVerifiedAt,
		ReadyForDeliveryAt:  t.ReadyForDeliveryAt,
		DeliveredAt:         t.DeliveredAt,
		CompletedAt:         t.CompletedAt,
		CancelledAt:         t.CancelledAt,
		RefundedAt:          t.RefundedAt,
		CreatedAt:           t.CreatedAt,
		UpdatedAt:           t.UpdatedAt,
	}
}

func toResponseList(ts []*order.Transaction) []orderResponse {
	resp := make([]orderResponse, len(ts))
	for i, t := range ts {
		resp[i] = toResponse(t)
	}

	return resp
}

type eventResponse struct {
	Seq       int          `json:"seq"`
	Edge      order.Edge   `json:"edge"`
	From      order.Status `json:"from"`
	To        order.Status `json:"to"`
	ActorID   uuid.UUID    `json:"actor_id"`
	ActorRole order.Role   `json:"actor_role"`
	Payload   any          `json:"payload,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}
