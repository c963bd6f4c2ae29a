package obligation

import "time"

// CreateObligationRequest represents the request to create an obligation
type CreateObligationRequest struct {
	Type        Type       `json:"type" validate:"required"`
	PersonName  string     `json:"person_name" validate:"required"`
	Description *string    `json:"description,omitempty"`
	TotalAmount int64      `json:"total_amount" validate:"required"`
	DueDate     *string    `json:"due_date,omitempty"` // YYYY-MM-DD
	Confidence  Confidence `json:"confidence,omitempty"`
}

// LogPaymentRequest represents the request to log a payment against an
// obligation. IdempotencyKey is optional: resubmitting the same key returns
// the original payment instead of double-counting.
type LogPaymentRequest struct {
	Amount         int64   `json:"amount" validate:"required"`
	PaymentDate    string  `json:"payment_date" validate:"required"` // YYYY-MM-DD
	AccountID      int64   `json:"payment_method_id" validate:"required"`
	Notes          *string `json:"notes,omitempty"`
	IdempotencyKey string  `json:"idempotency_key,omitempty"`
}

// UpdateObligationRequest represents a partial edit of an obligation
type UpdateObligationRequest struct {
	PersonName  *string     `json:"person_name,omitempty"`
	Description *string     `json:"description,omitempty"`
	TotalAmount *int64      `json:"total_amount,omitempty"`
	DueDate     *string     `json:"due_date,omitempty"` // YYYY-MM-DD
	Confidence  *Confidence `json:"confidence,omitempty"`
}

// PaymentResult is returned by LogPayment
type PaymentResult struct {
	Payment    *ObligationPayment `json:"payment"`
	Obligation *Obligation        `json:"obligation"`
	// Settled is true when this payment brought the obligation to zero.
	// The UI uses it to trigger the celebration screen.
	Settled bool `json:"settled"`
}

// parseDate parses a YYYY-MM-DD request field
func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}
