package transaction

import "time"

// Transaction is one row of the ordinary-transaction ledger. The obligation
// and tontine engines mirror every payment event here with a signed amount:
// positive for money received, negative for money paid out.
type Transaction struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	AccountID  int64     `json:"account_id"`
	CategoryID int64     `json:"category_id"`
	Amount     int64     `json:"amount"` // signed, whole currency units
	Label      string    `json:"label"`
	Date       time.Time `json:"date"`
	CreatedAt  time.Time `json:"created_at"`
}
