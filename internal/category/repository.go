package category

import (
	"context"
	"database/sql"
	"fmt"
)

// Resolver finds or creates categories by name. Implemented by the Postgres
// Repository; service tests substitute an in-memory fake.
type Resolver interface {
	ResolveOrCreate(ctx context.Context, userID int64, name string, nature Nature) (int64, error)
}

// Ensure Repository implements Resolver
var _ Resolver = (*Repository)(nil)

// Repository handles category data persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new category repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// ResolveOrCreate returns the ID of the category with the given name for the
// user, creating it if it does not exist. The upsert relies on the
// (user_id, name) uniqueness constraint so concurrent first-uses converge on
// a single row.
func (r *Repository) ResolveOrCreate(ctx context.Context, userID int64, name string, nature Nature) (int64, error) {
	query := `
		INSERT INTO categories (user_id, name, nature)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`

	var id int64
	if err := r.db.QueryRowContext(ctx, query, userID, name, nature).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to resolve category %q: %w", name, err)
	}

	return id, nil
}

// ListByUserID retrieves all categories belonging to a user
func (r *Repository) ListByUserID(ctx context.Context, userID int64) ([]*Category, error) {
	query := `
		SELECT id, user_id, name, nature, created_at
		FROM categories
		WHERE user_id = $1
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*Category
	for rows.Next() {
		c := &Category{}
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Nature, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}

	return categories, nil
}
