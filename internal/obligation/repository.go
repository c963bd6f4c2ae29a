package obligation

import (
	"context"
	"database/sql"
	"fmt"
)

// ListFilter narrows List results
type ListFilter struct {
	Type       *Type
	ActiveOnly bool // ACTIVE or PARTIALLY_PAID
}

// Store defines the typed record-store operations for obligations and their
// payments. The Postgres Repository implements it; service tests substitute
// an in-memory fake.
type Store interface {
	Insert(ctx context.Context, o *Obligation) error
	GetByID(ctx context.Context, id int64) (*Obligation, error)
	List(ctx context.Context, userID int64, filter ListFilter) ([]*Obligation, error)
	UpdateDetails(ctx context.Context, o *Obligation) error
	SetStatus(ctx context.Context, id int64, status Status) error
	SetRemaining(ctx context.Context, id int64, remaining int64, status Status) error

	// InsertPayment appends the payment row and applies the recomputed
	// remaining amount and status to the obligation atomically. When the
	// idempotency key already exists, nothing is written and the original
	// payment is returned with created=false.
	InsertPayment(ctx context.Context, p *ObligationPayment, newRemaining int64, newStatus Status) (payment *ObligationPayment, created bool, err error)
	ListPayments(ctx context.Context, obligationID int64) ([]*ObligationPayment, error)

	// Cross-link lookups for tontine auto-settlement.
	OldestActiveEngagement(ctx context.Context, tontineID int64) (*Obligation, error)
	CreanceForTontine(ctx context.Context, tontineID int64) (*Obligation, error)
	DeleteByTontine(ctx context.Context, tontineID int64) error
}

// Ensure Repository implements Store
var _ Store = (*Repository)(nil)

const obligationColumns = `id, user_id, type, person_name, description, total_amount, remaining_amount,
	due_date, confidence, status, linked_tontine_id, linked_fixed_charge_id, linked_savings_goal_id, created_at`

// Repository handles obligation data persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new obligation repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func scanObligation(row interface{ Scan(...interface{}) error }) (*Obligation, error) {
	o := &Obligation{}
	err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.Type,
		&o.PersonName,
		&o.Description,
		&o.TotalAmount,
		&o.RemainingAmount,
		&o.DueDate,
		&o.Confidence,
		&o.Status,
		&o.LinkedTontineID,
		&o.LinkedFixedChargeID,
		&o.LinkedSavingsGoalID,
		&o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// Insert creates a new obligation and fills the generated fields
func (r *Repository) Insert(ctx context.Context, o *Obligation) error {
	query := `
		INSERT INTO obligations (user_id, type, person_name, description, total_amount, remaining_amount,
			due_date, confidence, status, linked_tontine_id, linked_fixed_charge_id, linked_savings_goal_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		o.UserID, o.Type, o.PersonName, o.Description, o.TotalAmount, o.RemainingAmount,
		o.DueDate, o.Confidence, o.Status, o.LinkedTontineID, o.LinkedFixedChargeID, o.LinkedSavingsGoalID,
	).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create obligation: %w", err)
	}

	return nil
}

// GetByID retrieves an obligation by its ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*Obligation, error) {
	query := `SELECT ` + obligationColumns + ` FROM obligations WHERE id = $1`

	o, err := scanObligation(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get obligation: %w", err)
	}

	return o, nil
}

// List retrieves the user's obligations, optionally filtered by type and
// active status, ordered by due date then creation
func (r *Repository) List(ctx context.Context, userID int64, filter ListFilter) ([]*Obligation, error) {
	query := `SELECT ` + obligationColumns + ` FROM obligations WHERE user_id = $1`
	args := []interface{}{userID}

	if filter.Type != nil {
		args = append(args, *filter.Type)
		query += fmt.Sprintf(" AND type = $%d", len(args))
	}
	if filter.ActiveOnly {
		query += ` AND status IN ('ACTIVE', 'PARTIALLY_PAID')`
	}
	query += ` ORDER BY due_date ASC NULLS LAST, created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list obligations: %w", err)
	}
	defer rows.Close()

	var obligations []*Obligation
	for rows.Next() {
		o, err := scanObligation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan obligation: %w", err)
		}
		obligations = append(obligations, o)
	}

	return obligations, nil
}

// UpdateDetails persists the mutable fields of an obligation
func (r *Repository) UpdateDetails(ctx context.Context, o *Obligation) error {
	query := `
		UPDATE obligations
		SET person_name = $2, description = $3, total_amount = $4, remaining_amount = $5,
		    due_date = $6, confidence = $7, status = $8
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		o.ID, o.PersonName, o.Description, o.TotalAmount, o.RemainingAmount,
		o.DueDate, o.Confidence, o.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to update obligation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("obligation not found")
	}

	return nil
}

// SetStatus updates only the status of an obligation
func (r *Repository) SetStatus(ctx context.Context, id int64, status Status) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE obligations SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update obligation status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("obligation not found")
	}

	return nil
}

// SetRemaining updates the remaining amount and status together
func (r *Repository) SetRemaining(ctx context.Context, id int64, remaining int64, status Status) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE obligations SET remaining_amount = $2, status = $3 WHERE id = $1`,
		id, remaining, status)
	if err != nil {
		return fmt.Errorf("failed to update obligation amounts: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("obligation not found")
	}

	return nil
}

// InsertPayment appends an obligation payment and applies the recomputed
// remaining amount and status in one database transaction. A duplicate
// idempotency key writes nothing and returns the original row.
func (r *Repository) InsertPayment(ctx context.Context, p *ObligationPayment, newRemaining int64, newStatus Status) (*ObligationPayment, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	inserted := &ObligationPayment{}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO obligation_payments (obligation_id, amount, payment_date, account_id, notes, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING id, obligation_id, amount, payment_date, account_id, notes, idempotency_key, created_at
	`, p.ObligationID, p.Amount, p.PaymentDate, p.AccountID, p.Notes, p.IdempotencyKey).Scan(
		&inserted.ID,
		&inserted.ObligationID,
		&inserted.Amount,
		&inserted.PaymentDate,
		&inserted.AccountID,
		&inserted.Notes,
		&inserted.IdempotencyKey,
		&inserted.CreatedAt,
	)
	if err == sql.ErrNoRows {
		// Duplicate submission: return the original payment untouched.
		existing, lookupErr := r.getPaymentByKey(ctx, p.IdempotencyKey)
		if lookupErr != nil {
			return nil, false, lookupErr
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert obligation payment: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE obligations SET remaining_amount = $2, status = $3 WHERE id = $1`,
		p.ObligationID, newRemaining, newStatus,
	); err != nil {
		return nil, false, fmt.Errorf("failed to update obligation after payment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit payment: %w", err)
	}

	return inserted, true, nil
}

func (r *Repository) getPaymentByKey(ctx context.Context, key string) (*ObligationPayment, error) {
	p := &ObligationPayment{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, obligation_id, amount, payment_date, account_id, notes, idempotency_key, created_at
		FROM obligation_payments
		WHERE idempotency_key = $1
	`, key).Scan(
		&p.ID,
		&p.ObligationID,
		&p.Amount,
		&p.PaymentDate,
		&p.AccountID,
		&p.Notes,
		&p.IdempotencyKey,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment by idempotency key: %w", err)
	}
	return p, nil
}

// ListPayments retrieves the payment history of an obligation, oldest first
func (r *Repository) ListPayments(ctx context.Context, obligationID int64) ([]*ObligationPayment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, obligation_id, amount, payment_date, account_id, notes, idempotency_key, created_at
		FROM obligation_payments
		WHERE obligation_id = $1
		ORDER BY payment_date ASC, id ASC
	`, obligationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list obligation payments: %w", err)
	}
	defer rows.Close()

	var payments []*ObligationPayment
	for rows.Next() {
		p := &ObligationPayment{}
		if err := rows.Scan(
			&p.ID,
			&p.ObligationID,
			&p.Amount,
			&p.PaymentDate,
			&p.AccountID,
			&p.Notes,
			&p.IdempotencyKey,
			&p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan obligation payment: %w", err)
		}
		payments = append(payments, p)
	}

	return payments, nil
}

// OldestActiveEngagement finds the still-active engagement obligation linked
// to a tontine with the earliest due date. Returns nil when every linked
// engagement is settled or cancelled.
func (r *Repository) OldestActiveEngagement(ctx context.Context, tontineID int64) (*Obligation, error) {
	query := `SELECT ` + obligationColumns + `
		FROM obligations
		WHERE linked_tontine_id = $1
		  AND type = 'ENGAGEMENT'
		  AND status IN ('ACTIVE', 'PARTIALLY_PAID')
		ORDER BY due_date ASC NULLS LAST, id ASC
		LIMIT 1`

	o, err := scanObligation(r.db.QueryRowContext(ctx, query, tontineID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find linked engagement: %w", err)
	}

	return o, nil
}

// CreanceForTontine finds the creance obligation linked to a tontine (the
// current user's own payout)
func (r *Repository) CreanceForTontine(ctx context.Context, tontineID int64) (*Obligation, error) {
	query := `SELECT ` + obligationColumns + `
		FROM obligations
		WHERE linked_tontine_id = $1 AND type = 'CREANCE'
		ORDER BY id ASC
		LIMIT 1`

	o, err := scanObligation(r.db.QueryRowContext(ctx, query, tontineID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find linked creance: %w", err)
	}

	return o, nil
}

// DeleteByTontine removes all obligations linked to a tontine. Called by the
// tontine delete cascade; obligations hold only a weak reference so the
// storage layer cannot cascade this itself.
func (r *Repository) DeleteByTontine(ctx context.Context, tontineID int64) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM obligations WHERE linked_tontine_id = $1`, tontineID); err != nil {
		return fmt.Errorf("failed to delete linked obligations: %w", err)
	}
	return nil
}
