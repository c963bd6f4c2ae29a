package account

import (
	"context"
	"database/sql"
	"fmt"
)

// Store defines the storage operations the rest of the engine needs from
// payment methods. The Postgres Repository implements it; service tests
// substitute an in-memory fake.
type Store interface {
	Create(ctx context.Context, userID int64, req *CreateAccountRequest) (*Account, error)
	GetByID(ctx context.Context, id int64) (*Account, error)
	ListByUserID(ctx context.Context, userID int64) ([]*Account, error)
}

// Ensure Repository implements Store
var _ Store = (*Repository)(nil)

// Repository handles account data persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new account repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new account into the database
func (r *Repository) Create(ctx context.Context, userID int64, req *CreateAccountRequest) (*Account, error) {
	query := `
		INSERT INTO accounts (user_id, name, balance, allow_negative_balance)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, name, balance, allow_negative_balance, created_at
	`

	acc := &Account{}
	err := r.db.QueryRowContext(ctx, query, userID, req.Name, req.InitialBalance, req.AllowNegativeBalance).Scan(
		&acc.ID,
		&acc.UserID,
		&acc.Name,
		&acc.Balance,
		&acc.AllowNegativeBalance,
		&acc.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return acc, nil
}

// GetByID retrieves an account by its ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*Account, error) {
	query := `
		SELECT id, user_id, name, balance, allow_negative_balance, created_at
		FROM accounts
		WHERE id = $1
	`

	acc := &Account{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&acc.ID,
		&acc.UserID,
		&acc.Name,
		&acc.Balance,
		&acc.AllowNegativeBalance,
		&acc.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return acc, nil
}

// ListByUserID retrieves all accounts belonging to a user
func (r *Repository) ListByUserID(ctx context.Context, userID int64) ([]*Account, error) {
	query := `
		SELECT id, user_id, name, balance, allow_negative_balance, created_at
		FROM accounts
		WHERE user_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*Account
	for rows.Next() {
		acc := &Account{}
		if err := rows.Scan(
			&acc.ID,
			&acc.UserID,
			&acc.Name,
			&acc.Balance,
			&acc.AllowNegativeBalance,
			&acc.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, acc)
	}

	return accounts, nil
}
