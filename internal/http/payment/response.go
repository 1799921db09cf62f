package payment

import (
	"time"

	"github.com/google/uuid"

	"github.com/lauraedgell33/autoscout-sub002/internal/order"
)

// paymentStateResponse is the slice of the order relevant to the payment
// flow; the full order lives on the orders endpoints.
type paymentStateResponse struct {
	ID                uuid.UUID         `json:"id"`
	Code              string            `json:"code"`
	Status            order.Status      `json:"status"`
	PaymentReference  string            `json:"payment_reference"`
	PaymentProof      *string           `json:"payment_proof,omitempty"`
	VerifiedBy        *uuid.UUID        `json:"verified_by,omitempty"`
	VerificationNotes *string           `json:"verification_notes,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	PaymentReceivedAt *time.Time        `json:"payment_received_at,omitempty"`
	PaymentVerifiedAt *time.Time        `json:"payment_verified_at,omitempty"`
	UpdatedAt         *time.Time        `json:"updated_at,omitempty"`
}

func toResponse(t *order.Transaction) paymentStateResponse {
	return paymentStateResponse{
		ID:                t.ID,
		Code:              t.Code,
		Status:            t.Status,
		PaymentReference:  t.PaymentReference,
		PaymentProof:      t.PaymentProof,
		VerifiedBy:        t.VerifiedBy,
		VerificationNotes: t.VerificationNotes,
		Metadata:          t.Metadata,
		PaymentReceivedAt: t.PaymentReceivedAt,
		PaymentVerifiedAt: t.PaymentVerifiedAt,
		UpdatedAt:         t.UpdatedAt,
	}
}
