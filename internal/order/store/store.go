package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/lauraedgell33/autoscout-sub002/internal/order"
)

// Store persists orders and their transition history. The orders row is the
// unit of mutual exclusion: transitions are serialized per order through a
// conditional update on the stored status.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const selectOrderColumns = `
	o.id, o.code, o.buyer_id, o.seller_id, o.dealer_id, o.vehicle_id,
	o.amount, o.currency, o.commission_rate, o.commission_amount, o.net_amount,
	o.status, o.payment_reference,
	o.contract_url, o.signed_contract_url, o.payment_proof,
	o.verified_by, o.verification_notes, o.notes, o.cancellation_reason, o.metadata,
	o.contract_generated_at, o.contract_signed_at, o.payment_received_at,
	o.payment_verified_at, o.ready_for_delivery_at, o.delivered_at,
	o.completed_at, o.cancelled_at, o.refunded_at,
	o.created_at, o.updated_at
`

// scanOrder reads one order row in selectOrderColumns order.
func scanOrder(s scanner) (*order.Transaction, error) {
	var (
		t          order.Transaction
		statusStr  string
		dealerID   *uuid.UUID
		verifiedBy *uuid.UUID

		contractURL, signedURL, proof, verNotes, cancelReason sql.NullString

		metadata []byte
	)

	if err := s.Scan(
		&t.ID, &t.Code, &t.BuyerID, &t.SellerID, &dealerID, &t.VehicleID,
		&t.Amount, &t.Currency, &t.CommissionRate, &t.CommissionAmount, &t.NetAmount,
		&statusStr, &t.PaymentReference,
		&contractURL, &signedURL, &proof,
		&verifiedBy, &verNotes, &t.Notes, &cancelReason, &metadata,
		&t.ContractGeneratedAt, &t.ContractSignedAt, &t.PaymentReceivedAt,
		&t.PaymentVerifiedAt, &t.ReadyForDeliveryAt, &t.DeliveredAt,
		&t.CompletedAt, &t.CancelledAt, &t.RefundedAt,
		&t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}

	t.Status = order.Status(statusStr)
	t.DealerID = dealerID
	t.VerifiedBy = verifiedBy
	t.ContractURL = nullStr(contractURL)
	t.SignedContractURL = nullStr(signedURL)
	t.PaymentProof = nullStr(proof)
	t.VerificationNotes = nullStr(verNotes)
	t.CancellationReason = nullStr(cancelReason)

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &t.Metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata: %w", err)
		}
	}

	return &t, nil
}

func nullStr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}

	return &v.String
}

func (s *Store) CreateOrder(ctx context.Context, t *order.Transaction) error {
	query := `
		INSERT INTO orders (
			code, buyer_id, seller_id, dealer_id, vehicle_id,
			amount, currency, commission_rate, commission_amount, net_amount,
			status, payment_reference, notes, metadata, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, '{}', NOW())
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		t.Code,
		t.BuyerID,
		t.SellerID,
		t.DealerID,
		t.VehicleID,
		t.Amount,
		t.Currency,
		t.CommissionRate,
		t.CommissionAmount,
		t.NetAmount,
		t.Status,
		t.PaymentReference,
		t.Notes,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		// The partial unique index on vehicle_id rejects a second active
		// order for the same vehicle.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: vehicle already has an active order", order.ErrConflict)
		}

		return fmt.Errorf("creating order: %w", err)
	}

	return nil
}

func (s *Store) GetOrder(ctx context.Context, id uuid.UUID) (*order.Transaction, error) {
	query := `SELECT ` + selectOrderColumns + ` FROM orders o WHERE o.id = $1`

	t, err := scanOrder(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, order.ErrNotFound
		}

		return nil, fmt.Errorf("getting order: %w", err)
	}

	return t, nil
}

func (s *Store) ListOrders(ctx context.Context, filter order.ListFilter) ([]*order.Transaction, error) {
	query := `SELECT ` + selectOrderColumns + ` FROM orders o WHERE TRUE`

	var args []any

	argIdx := 1

	if filter.Status != nil {
		query += fmt.Sprintf(" AND o.status = $%d", argIdx)

		args = append(args, *filter.Status)
		argIdx++
	}

	if filter.PartyID != nil {
		query += fmt.Sprintf(" AND (o.buyer_id = $%d OR o.seller_id = $%d OR o.dealer_id = $%d)", argIdx, argIdx, argIdx)

		args = append(args, *filter.PartyID)
		argIdx++
	}

	if filter.After != nil {
		query += fmt.Sprintf(" AND o.created_at >= $%d", argIdx)

		args = append(args, *filter.After)
		argIdx++
	}

	if filter.Before != nil {
		query += fmt.Sprintf(" AND o.created_at <= $%d", argIdx)

		args = append(args, *filter.Before)
		argIdx++
	}

	query += " ORDER BY o.created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	defer rows.Close()

	var out []*order.Transaction

	for rows.Next() {
		t, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning order: %w", err)
		}

		out = append(out, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating orders: %w", err)
	}

	return out, nil
}

// ApplyTransition performs the conditional status update, payload writes,
// and audit append in a single database transaction. Either all of it is
// persisted or none of it.
func (s *Store) ApplyTransition(ctx context.Context, rec order.TransitionRecord) (*order.Transaction, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transition: %w", err)
	}
	defer dbTx.Rollback()

	if err := ExecTransition(ctx, dbTx, rec); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transition: %w", err)
	}

	return s.GetOrder(ctx, rec.OrderID)
}

// milestoneColumns whitelists timestamp columns a transition may stamp.
var milestoneColumns = map[order.Milestone]string{
	order.MilestoneContractGen:      "contract_generated_at",
	order.MilestoneContractSigned:   "contract_signed_at",
	order.MilestonePaymentReceived:  "payment_received_at",
	order.MilestonePaymentVerified:  "payment_verified_at",
	order.MilestoneReadyForDelivery: "ready_for_delivery_at",
	order.MilestoneDelivered:        "delivered_at",
	order.MilestoneCompleted:        "completed_at",
	order.MilestoneCancelled:        "cancelled_at",
	order.MilestoneRefunded:         "refunded_at",
}

// ExecTransition runs a transition's writes inside the caller's database
// transaction. Exposed so sibling stores (dispute) can commit their own rows
// atomically with the parent order's transition.
func ExecTransition(ctx context.Context, dbTx *sql.Tx, rec order.TransitionRecord) error {
	query := `UPDATE orders SET status = $1, updated_at = NOW()`
	args := []any{rec.NewStatus}
	argIdx := 2

	if rec.Milestone != order.MilestoneNone {
		col, ok := milestoneColumns[rec.Milestone]
		if !ok {
			return fmt.Errorf("unknown milestone %q", rec.Milestone)
		}

		query += fmt.Sprintf(", %s = COALESCE(%s, NOW())", col, col)
	}

	if rec.SetProof != nil {
		query += fmt.Sprintf(", payment_proof = $%d", argIdx)

		args = append(args, *rec.SetProof)
		argIdx++
	}

	if rec.ClearProof {
		query += ", payment_proof = NULL"
	}

	if rec.SetContractURL != nil {
		query += fmt.Sprintf(", contract_url = $%d", argIdx)

		args = append(args, *rec.SetContractURL)
		argIdx++
	}

	if rec.SetSignedContractURL != nil {
		query += fmt.Sprintf(", signed_contract_url = $%d", argIdx)

		args = append(args, *rec.SetSignedContractURL)
		argIdx++
	}

	if rec.SetVerifiedBy != nil {
		query += fmt.Sprintf(", verified_by = $%d", argIdx)

		args = append(args, *rec.SetVerifiedBy)
		argIdx++
	}

	if rec.SetVerificationNotes != nil {
		query += fmt.Sprintf(", verification_notes = $%d", argIdx)

		args = append(args, *rec.SetVerificationNotes)
		argIdx++
	}

	if rec.SetCancellationReason != nil {
		query += fmt.Sprintf(", cancellation_reason = $%d", argIdx)

		args = append(args, *rec.SetCancellationReason)
		argIdx++
	}

	if len(rec.MergeMetadata) > 0 {
		patch, err := json.Marshal(rec.MergeMetadata)
		if err != nil {
			return fmt.Errorf("encoding metadata patch: %w", err)
		}

		query += fmt.Sprintf(", metadata = metadata || $%d::jsonb", argIdx)

		args = append(args, patch)
		argIdx++
	}

	query += fmt.Sprintf(" WHERE id = $%d AND status = $%d", argIdx, argIdx+1)
	args = append(args, rec.OrderID, rec.ExpectedStatus)

	res, err := dbTx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating order status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking transition result: %w", err)
	}

	if affected == 0 {
		// Either the order is gone or someone else transitioned it first.
		var current string

		err := dbTx.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = $1`, rec.OrderID).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return order.ErrNotFound
		}

		if err != nil {
			return fmt.Errorf("re-reading order status: %w", err)
		}

		return fmt.Errorf("%w: expected %s, found %s", order.ErrConflict, rec.ExpectedStatus, current)
	}

	// Audit append. The MAX(seq) read is safe: the conditional update above
	// serializes concurrent transitions for this order.
	const eventSQL = `
		INSERT INTO order_events (order_id, seq, edge, from_status, to_status, actor_id, actor_role, payload, created_at)
		SELECT $1, COALESCE(MAX(seq), 0) + 1, $2, $3, $4, $5, $6, $7, NOW()
		FROM order_events WHERE order_id = $1
	`

	payload := rec.AuditPayload
	if payload == nil {
		payload = []byte(`{}`)
	}

	if _, err := dbTx.ExecContext(ctx, eventSQL,
		rec.OrderID, rec.Edge, rec.ExpectedStatus, rec.NewStatus, rec.ActorID, rec.ActorRole, payload,
	); err != nil {
		return fmt.Errorf("appending order event: %w", err)
	}

	return nil
}

func (s *Store) ListEvents(ctx context.Context, orderID uuid.UUID) ([]order.Event, error) {
	query := `
		SELECT id, order_id, seq, edge, from_status, to_status, actor_id, actor_role, payload, created_at
		FROM order_events
		WHERE order_id = $1
		ORDER BY seq ASC
	`

	rows, err := s.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	var out []order.Event

	for rows.Next() {
		var (
			e        order.Event
			edge     string
			from, to string
			role     string
		)

		if err := rows.Scan(&e.ID, &e.OrderID, &e.Seq, &edge, &from, &to, &e.ActorID, &role, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}

		e.Edge = order.Edge(edge)
		e.From = order.Status(from)
		e.To = order.Status(to)
		e.ActorRole = order.Role(role)

		out = append(out, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}

	return out, nil
}

func (s *Store) Statistics(ctx context.Context) (*order.Stats, error) {
	stats := &order.Stats{ByStatus: make(map[order.Status]int)}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("counting orders: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status string
			count  int
		)

		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scanning count: %w", err)
		}

		stats.ByStatus[order.Status(status)] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating counts: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM orders WHERE status = $1`, order.StatusCompleted,
	).Scan(&stats.CompletedVolume)
	if err != nil {
		return nil, fmt.Errorf("summing completed volume: %w", err)
	}

	return stats, nil
}

// Begin exposes a database transaction for flows that combine their own
// writes with ExecTransition.
func (s *Store) Begin(ctx context.Context) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, nil)
}

// FindByReference locates the open order a bank transfer pays for. The
// payment reference must occur in the transfer purpose and the amount must
// match exactly; only orders still waiting on money qualify.
func (s *Store) FindByReference(ctx context.Context, purpose string, amount int64) (*order.Transaction, error) {
	query := `
		SELECT ` + selectOrderColumns + `
		FROM orders o
		WHERE $1 ILIKE '%' || o.payment_reference || '%'
		  AND o.amount = $2
		  AND o.status IN ('awaiting_payment', 'payment_received')
		ORDER BY o.created_at ASC
		LIMIT 1
	`

	t, err := scanOrder(s.db.QueryRowContext(ctx, query, purpose, amount))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("finding order by reference: %w", err)
	}

	return t, nil
}
