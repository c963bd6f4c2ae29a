package tontine

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// MemberPosition is one row of a batch position update
type MemberPosition struct {
	MemberID   int64
	Position   int
	PayoutDate time.Time
}

// Store defines the typed record-store operations for tontines, their
// members and their payment log. The Postgres Repository implements it;
// service tests substitute an in-memory fake.
type Store interface {
	Insert(ctx context.Context, t *Tontine) error
	GetByID(ctx context.Context, id int64) (*Tontine, error)
	ListByUserID(ctx context.Context, userID int64) ([]*Tontine, error)
	Update(ctx context.Context, t *Tontine) error
	Delete(ctx context.Context, id int64) error

	InsertMember(ctx context.Context, m *Member) error
	GetMember(ctx context.Context, memberID int64) (*Member, error)
	ListMembers(ctx context.Context, tontineID int64) ([]*Member, error)
	// UpdateMemberPositions applies a reorder as one store transaction:
	// either every row is written or none is.
	UpdateMemberPositions(ctx context.Context, tontineID int64, updates []MemberPosition) error
	MarkPotReceived(ctx context.Context, memberID int64) error
	DeleteMember(ctx context.Context, memberID int64) error

	// InsertPayment appends to the payment log. When the idempotency key
	// already exists, nothing is written and the original row is returned
	// with created=false.
	InsertPayment(ctx context.Context, p *Payment) (payment *Payment, created bool, err error)
	ListPayments(ctx context.Context, tontineID int64) ([]*Payment, error)
}

// Ensure Repository implements Store
var _ Store = (*Repository)(nil)

// Repository handles tontine data persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new tontine repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert creates a new tontine and fills the generated fields
func (r *Repository) Insert(ctx context.Context, t *Tontine) error {
	query := `
		INSERT INTO tontines (user_id, name, total_members, contribution_amount, frequency, start_date, current_cycle, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		t.UserID, t.Name, t.TotalMembers, t.ContributionAmount, t.Frequency, t.StartDate, t.CurrentCycle, t.Status,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create tontine: %w", err)
	}

	return nil
}

// GetByID retrieves a tontine by its ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*Tontine, error) {
	query := `
		SELECT id, user_id, name, total_members, contribution_amount, frequency, start_date, current_cycle, status, created_at
		FROM tontines
		WHERE id = $1
	`

	t := &Tontine{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&t.ID,
		&t.UserID,
		&t.Name,
		&t.TotalMembers,
		&t.ContributionAmount,
		&t.Frequency,
		&t.StartDate,
		&t.CurrentCycle,
		&t.Status,
		&t.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get tontine: %w", err)
	}

	return t, nil
}

// ListByUserID retrieves all tontines belonging to a user
func (r *Repository) ListByUserID(ctx context.Context, userID int64) ([]*Tontine, error) {
	query := `
		SELECT id, user_id, name, total_members, contribution_amount, frequency, start_date, current_cycle, status, created_at
		FROM tontines
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tontines: %w", err)
	}
	defer rows.Close()

	var tontines []*Tontine
	for rows.Next() {
		t := &Tontine{}
		if err := rows.Scan(
			&t.ID,
			&t.UserID,
			&t.Name,
			&t.TotalMembers,
			&t.ContributionAmount,
			&t.Frequency,
			&t.StartDate,
			&t.CurrentCycle,
			&t.Status,
			&t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan tontine: %w", err)
		}
		tontines = append(tontines, t)
	}

	return tontines, nil
}

// Update persists the mutable fields of a tontine
func (r *Repository) Update(ctx context.Context, t *Tontine) error {
	query := `
		UPDATE tontines
		SET name = $2, total_members = $3, contribution_amount = $4, frequency = $5,
		    start_date = $6, current_cycle = $7, status = $8
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		t.ID, t.Name, t.TotalMembers, t.ContributionAmount, t.Frequency, t.StartDate, t.CurrentCycle, t.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to update tontine: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("tontine not found")
	}

	return nil
}

// Delete removes a tontine. Members and payments cascade at the storage
// layer; linked obligations are cascaded by the service.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tontines WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tontine: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("tontine not found")
	}

	return nil
}

// InsertMember adds a member row and fills the generated ID
func (r *Repository) InsertMember(ctx context.Context, m *Member) error {
	query := `
		INSERT INTO tontine_members (tontine_id, member_name, phone_number, position_in_order, is_current_user, payout_date, has_received_pot)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		m.TontineID, m.MemberName, m.PhoneNumber, m.PositionInOrder, m.IsCurrentUser, m.PayoutDate, m.HasReceivedPot,
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("failed to add tontine member: %w", err)
	}

	return nil
}

// GetMember retrieves a member by its ID
func (r *Repository) GetMember(ctx context.Context, memberID int64) (*Member, error) {
	query := `
		SELECT id, tontine_id, member_name, phone_number, position_in_order, is_current_user, payout_date, has_received_pot
		FROM tontine_members
		WHERE id = $1
	`

	m := &Member{}
	err := r.db.QueryRowContext(ctx, query, memberID).Scan(
		&m.ID,
		&m.TontineID,
		&m.MemberName,
		&m.PhoneNumber,
		&m.PositionInOrder,
		&m.IsCurrentUser,
		&m.PayoutDate,
		&m.HasReceivedPot,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get tontine member: %w", err)
	}

	return m, nil
}

// ListMembers retrieves a tontine's members ordered by payout position
func (r *Repository) ListMembers(ctx context.Context, tontineID int64) ([]*Member, error) {
	query := `
		SELECT id, tontine_id, member_name, phone_number, position_in_order, is_current_user, payout_date, has_received_pot
		FROM tontine_members
		WHERE tontine_id = $1
		ORDER BY position_in_order ASC
	`

	rows, err := r.db.QueryContext(ctx, query, tontineID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tontine members: %w", err)
	}
	defer rows.Close()

	var members []*Member
	for rows.Next() {
		m := &Member{}
		if err := rows.Scan(
			&m.ID,
			&m.TontineID,
			&m.MemberName,
			&m.PhoneNumber,
			&m.PositionInOrder,
			&m.IsCurrentUser,
			&m.PayoutDate,
			&m.HasReceivedPot,
		); err != nil {
			return nil, fmt.Errorf("failed to scan tontine member: %w", err)
		}
		members = append(members, m)
	}

	return members, nil
}

// UpdateMemberPositions rewrites positions and payout dates for a set of
// members in one database transaction
func (r *Repository) UpdateMemberPositions(ctx context.Context, tontineID int64, updates []MemberPosition) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, u := range updates {
		result, err := tx.ExecContext(ctx, `
			UPDATE tontine_members
			SET position_in_order = $3, payout_date = $4
			WHERE id = $1 AND tontine_id = $2
		`, u.MemberID, tontineID, u.Position, u.PayoutDate)
		if err != nil {
			return fmt.Errorf("failed to update member position: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return fmt.Errorf("member %d not found in tontine %d", u.MemberID, tontineID)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit member positions: %w", err)
	}

	return nil
}

// MarkPotReceived locks a member after their payout
func (r *Repository) MarkPotReceived(ctx context.Context, memberID int64) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tontine_members SET has_received_pot = TRUE WHERE id = $1`, memberID)
	if err != nil {
		return fmt.Errorf("failed to mark pot received: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("member not found")
	}

	return nil
}

// DeleteMember removes a member row
func (r *Repository) DeleteMember(ctx context.Context, memberID int64) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM tontine_members WHERE id = $1`, memberID)
	if err != nil {
		return fmt.Errorf("failed to delete tontine member: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("member not found")
	}

	return nil
}

// InsertPayment appends a row to the tontine payment log. A duplicate
// idempotency key writes nothing and returns the original row.
func (r *Repository) InsertPayment(ctx context.Context, p *Payment) (*Payment, bool, error) {
	inserted := &Payment{}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO tontine_payments (tontine_id, type, amount, cycle_number, account_id, payment_date, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING id, tontine_id, type, amount, cycle_number, account_id, payment_date, idempotency_key, created_at
	`, p.TontineID, p.Type, p.Amount, p.CycleNumber, p.AccountID, p.PaymentDate, p.IdempotencyKey).Scan(
		&inserted.ID,
		&inserted.TontineID,
		&inserted.Type,
		&inserted.Amount,
		&inserted.CycleNumber,
		&inserted.AccountID,
		&inserted.PaymentDate,
		&inserted.IdempotencyKey,
		&inserted.CreatedAt,
	)
	if err == sql.ErrNoRows {
		existing, lookupErr := r.getPaymentByKey(ctx, p.IdempotencyKey)
		if lookupErr != nil {
			return nil, false, lookupErr
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert tontine payment: %w", err)
	}

	return inserted, true, nil
}

func (r *Repository) getPaymentByKey(ctx context.Context, key string) (*Payment, error) {
	p := &Payment{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, tontine_id, type, amount, cycle_number, account_id, payment_date, idempotency_key, created_at
		FROM tontine_payments
		WHERE idempotency_key = $1
	`, key).Scan(
		&p.ID,
		&p.TontineID,
		&p.Type,
		&p.Amount,
		&p.CycleNumber,
		&p.AccountID,
		&p.PaymentDate,
		&p.IdempotencyKey,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment by idempotency key: %w", err)
	}
	return p, nil
}

// ListPayments retrieves a tontine's payment history, newest first
func (r *Repository) ListPayments(ctx context.Context, tontineID int64) ([]*Payment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, tontine_id, type, amount, cycle_number, account_id, payment_date, idempotency_key, created_at
		FROM tontine_payments
		WHERE tontine_id = $1
		ORDER BY payment_date DESC, id DESC
	`, tontineID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tontine payments: %w", err)
	}
	defer rows.Close()

	var payments []*Payment
	for rows.Next() {
		p := &Payment{}
		if err := rows.Scan(
			&p.ID,
			&p.TontineID,
			&p.Type,
			&p.Amount,
			&p.CycleNumber,
			&p.AccountID,
			&p.PaymentDate,
			&p.IdempotencyKey,
			&p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan tontine payment: %w", err)
		}
		payments = append(payments, p)
	}

	return payments, nil
}
