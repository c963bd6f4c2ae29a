package account

import "time"

// Account represents a payment method (cash, bank account, mobile money)
type Account struct {
	ID                   int64     `json:"id"`
	UserID               int64     `json:"user_id"`
	Name                 string    `json:"name"`
	Balance              int64     `json:"balance"` // whole currency units
	AllowNegativeBalance bool      `json:"allow_negative_balance"`
	CreatedAt            time.Time `json:"created_at"`
}
