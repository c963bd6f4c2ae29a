package transaction

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Mirror receives the mirrored transaction of every obligation payment and
// tontine contribution/payout. Implemented by the Postgres Repository;
// service tests substitute an in-memory fake.
type Mirror interface {
	Create(ctx context.Context, userID, accountID, categoryID, amount int64, label string, date time.Time) (*Transaction, error)
}

// Ensure Repository implements Mirror
var _ Mirror = (*Repository)(nil)

// Repository handles transaction data persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new transaction repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create appends a transaction and applies its signed amount to the account
// balance in a single database transaction, so the ledger row and the balance
// can never disagree.
func (r *Repository) Create(ctx context.Context, userID, accountID, categoryID, amount int64, label string, date time.Time) (*Transaction, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	txn := &Transaction{}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO transactions (user_id, account_id, category_id, amount, label, transaction_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, user_id, account_id, category_id, amount, label, transaction_date, created_at
	`, userID, accountID, categoryID, amount, label, date).Scan(
		&txn.ID,
		&txn.UserID,
		&txn.AccountID,
		&txn.CategoryID,
		&txn.Amount,
		&txn.Label,
		&txn.Date,
		&txn.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE accounts SET balance = balance + $2 WHERE id = $1
	`, accountID, amount); err != nil {
		return nil, fmt.Errorf("failed to update account balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return txn, nil
}

// ListByUserID retrieves a page of the user's ledger, newest first
func (r *Repository) ListByUserID(ctx context.Context, userID int64, limit, offset int) ([]*Transaction, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE user_id = $1`, userID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	query := `
		SELECT id, user_id, account_id, category_id, amount, label, transaction_date, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY transaction_date DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txns []*Transaction
	for rows.Next() {
		txn := &Transaction{}
		if err := rows.Scan(
			&txn.ID,
			&txn.UserID,
			&txn.AccountID,
			&txn.CategoryID,
			&txn.Amount,
			&txn.Label,
			&txn.Date,
			&txn.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, txn)
	}

	return txns, total, nil
}
