package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/lauraedgell33/autoscout-sub002/internal/dispute"
	"github.com/lauraedgell33/autoscout-sub002/internal/order"
	orderstore "github.com/lauraedgell33/autoscout-sub002/internal/order/store"
)

// Store persists disputes. Writes that change the parent order (opening,
// resolving) run the order transition in the same database transaction as
// the dispute row.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const selectDisputeColumns = `
	d.id, d.order_id, d.raised_by, d.against, d.reason, d.description,
	d.status, d.resolution, d.outcome, d.resolved_by, d.resolved_at,
	d.created_at, d.updated_at
`

type scanner interface {
	Scan(dest ...any) error
}

func scanDispute(s scanner) (*dispute.Dispute, error) {
	var (
		d          dispute.Dispute
		statusStr  string
		resolution sql.NullString
		outcome    sql.NullString
	)

	if err := s.Scan(
		&d.ID, &d.OrderID, &d.RaisedBy, &d.Against, &d.Reason, &d.Description,
		&statusStr, &resolution, &outcome, &d.ResolvedBy, &d.ResolvedAt,
		&d.CreatedAt, &d.UpdatedAt,
	); err != nil {
		return nil, err
	}

	d.Status = dispute.Status(statusStr)

	if resolution.Valid {
		d.Resolution = &resolution.String
	}

	if outcome.Valid {
		o := dispute.Outcome(outcome.String)
		d.Outcome = &o
	}

	return &d, nil
}

// Create inserts the dispute and applies the parent order's transition to
// the dispute state atomically. A second active dispute for the same order
// trips the partial unique index and maps to ErrConflict.
func (s *Store) Create(ctx context.Context, d *dispute.Dispute, rec order.TransitionRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO disputes (id, order_id, raised_by, against, reason, description, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING created_at
	`

	err = tx.QueryRowContext(ctx, query,
		d.ID,
		d.OrderID,
		d.RaisedBy,
		d.Against,
		d.Reason,
		d.Description,
		d.Status,
	).Scan(&d.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: order already has an open dispute", order.ErrConflict)
		}

		return fmt.Errorf("inserting dispute: %w", err)
	}

	if err := orderstore.ExecTransition(ctx, tx, rec); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (*dispute.Dispute, error) {
	query := `SELECT ` + selectDisputeColumns + ` FROM disputes d WHERE d.id = $1`

	d, err := scanDispute(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: dispute %s", order.ErrNotFound, id)
		}

		return nil, fmt.Errorf("getting dispute: %w", err)
	}

	return d, nil
}

func (s *Store) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*dispute.Dispute, error) {
	query := `SELECT ` + selectDisputeColumns + ` FROM disputes d WHERE d.order_id = $1 ORDER BY d.created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("listing disputes: %w", err)
	}
	defer rows.Close()

	var disputes []*dispute.Dispute

	for rows.Next() {
		d, err := scanDispute(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning dispute: %w", err)
		}

		disputes = append(disputes, d)
	}

	return disputes, rows.Err()
}

// ListActive returns open and under-review disputes, oldest first.
func (s *Store) ListActive(ctx context.Context) ([]*dispute.Dispute, error) {
	query := `
		SELECT ` + selectDisputeColumns + `
		FROM disputes d
		WHERE d.status IN ('open', 'under_review')
		ORDER BY d.created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing active disputes: %w", err)
	}
	defer rows.Close()

	var disputes []*dispute.Dispute

	for rows.Next() {
		d, err := scanDispute(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning dispute: %w", err)
		}

		disputes = append(disputes, d)
	}

	return disputes, rows.Err()
}

func (s *Store) SetStatus(ctx context.Context, id uuid.UUID, status dispute.Status) error {
	query := `UPDATE disputes SET status = $2, updated_at = NOW() WHERE id = $1`

	res, err := s.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("updating dispute status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("%w: dispute %s", order.ErrNotFound, id)
	}

	return nil
}

func (s *Store) AddResponse(ctx context.Context, r *dispute.Response) error {
	query := `
		INSERT INTO dispute_responses (dispute_id, author_id, message, is_admin, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		r.DisputeID,
		r.AuthorID,
		r.Message,
		r.Admin,
	).Scan(&r.ID, &r.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting dispute response: %w", err)
	}

	return nil
}

func (s *Store) ListResponses(ctx context.Context, disputeID uuid.UUID) ([]dispute.Response, error) {
	query := `
		SELECT id, dispute_id, author_id, message, is_admin, created_at
		FROM dispute_responses
		WHERE dispute_id = $1
		ORDER BY id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, disputeID)
	if err != nil {
		return nil, fmt.Errorf("listing dispute responses: %w", err)
	}
	defer rows.Close()

	var responses []dispute.Response

	for rows.Next() {
		var r dispute.Response

		if err := rows.Scan(&r.ID, &r.DisputeID, &r.AuthorID, &r.Message, &r.Admin, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning dispute response: %w", err)
		}

		responses = append(responses, r)
	}

	return responses, rows.Err()
}

// Resolve stamps the ruling on the dispute and applies the parent order's
// exit transition. Both writes share one transaction: the conditional status
// update inside ExecTransition makes a racing resolution fail whole.
func (s *Store) Resolve(ctx context.Context, d *dispute.Dispute, rec order.TransitionRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE disputes
		SET status = $2, resolution = $3, outcome = $4, resolved_by = $5, resolved_at = $6, updated_at = NOW()
		WHERE id = $1 AND status IN ('open', 'under_review')
	`

	res, err := tx.ExecContext(ctx, query, d.ID, d.Status, d.Resolution, d.Outcome, d.ResolvedBy, d.ResolvedAt)
	if err != nil {
		return fmt.Errorf("resolving dispute: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("%w: dispute %s already settled", order.ErrConflict, d.ID)
	}

	if err := orderstore.ExecTransition(ctx, tx, rec); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}
