package obligation

import "time"

// Type distinguishes the direction of an obligation
type Type string

const (
	TypeCreance    Type = "CREANCE"    // owed to the user
	TypeEngagement Type = "ENGAGEMENT" // owed by the user
)

// Confidence expresses how certain the user is of collecting a creance.
// Engagements are always CERTAIN.
type Confidence string

const (
	ConfidenceCertain   Confidence = "CERTAIN"
	ConfidenceProbable  Confidence = "PROBABLE"
	ConfidenceUncertain Confidence = "UNCERTAIN"
)

// Status represents the lifecycle state of an obligation
type Status string

const (
	StatusActive        Status = "ACTIVE"
	StatusPartiallyPaid Status = "PARTIALLY_PAID"
	StatusSettled       Status = "SETTLED"
	StatusCancelled     Status = "CANCELLED"
)

// Obligation represents a tracked debt or credit between the user and a
// third party
type Obligation struct {
	ID              int64      `json:"id"`
	UserID          int64      `json:"user_id"`
	Type            Type       `json:"type"`
	PersonName      string     `json:"person_name"`
	Description     *string    `json:"description,omitempty"`
	TotalAmount     int64      `json:"total_amount"`
	RemainingAmount int64      `json:"remaining_amount"`
	DueDate         *time.Time `json:"due_date,omitempty"`
	Confidence      Confidence `json:"confidence"`
	Status          Status     `json:"status"`

	// Weak references for UI badges and auto-settlement lookups. The
	// obligation does not own the target.
	LinkedTontineID     *int64 `json:"linked_tontine_id,omitempty"`
	LinkedFixedChargeID *int64 `json:"linked_fixed_charge_id,omitempty"`
	LinkedSavingsGoalID *int64 `json:"linked_savings_goal_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// IsTerminal reports whether the obligation has reached a final state.
// No transition leaves SETTLED or CANCELLED.
func (o *Obligation) IsTerminal() bool {
	return o.Status == StatusSettled || o.Status == StatusCancelled
}

// statusForRemaining derives the post-payment status from the new remaining
// amount.
func statusForRemaining(remaining int64) Status {
	if remaining == 0 {
		return StatusSettled
	}
	return StatusPartiallyPaid
}

// ObligationPayment is an immutable record of one payment logged against an
// obligation
type ObligationPayment struct {
	ID             int64     `json:"id"`
	ObligationID   int64     `json:"obligation_id"`
	Amount         int64     `json:"amount"`
	PaymentDate    time.Time `json:"payment_date"`
	AccountID      int64     `json:"account_id"`
	Notes          *string   `json:"notes,omitempty"`
	IdempotencyKey string    `json:"idempotency_key"`
	CreatedAt      time.Time `json:"created_at"`
}
