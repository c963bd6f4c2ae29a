package category

import "time"

// Nature indicates whether a category classifies money coming in or going out
type Nature string

const (
	NatureIncome  Nature = "INCOME"
	NatureExpense Nature = "EXPENSE"
)

// Reconciliation categories created lazily by the obligation and tontine
// engines. Resolution is an idempotent upsert keyed by (user_id, name), so
// two concurrent first-uses cannot create duplicates.
const (
	NameSettlementReceived = "Settlement received"
	NameSettlementPaid     = "Settlement paid"
	NameTontineSavings     = "Tontine savings"
)

// Category represents a transaction category
type Category struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	Nature    Nature    `json:"nature"`
	CreatedAt time.Time `json:"created_at"`
}
