package tontine

import (
	"time"

	"github.com/JeffBoundamas/kuna-cash-flow-sub000/internal/tontine/schedule"
)

// Status represents the lifecycle state of a tontine
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
)

// PaymentType distinguishes the two tontine payment events
type PaymentType string

const (
	PaymentTypeContribution PaymentType = "CONTRIBUTION"
	PaymentTypePotReceived  PaymentType = "POT_RECEIVED"
)

// Tontine represents a rotating-savings group: every member contributes a
// fixed amount per cycle and one member receives the full pot each cycle, in
// a pre-agreed order.
type Tontine struct {
	ID                 int64              `json:"id"`
	UserID             int64              `json:"user_id"`
	Name               string             `json:"name"`
	TotalMembers       int                `json:"total_members"`
	ContributionAmount int64              `json:"contribution_amount"`
	Frequency          schedule.Frequency `json:"frequency"`
	StartDate          time.Time          `json:"start_date"`
	CurrentCycle       int                `json:"current_cycle"`
	Status             Status             `json:"status"`
	CreatedAt          time.Time          `json:"created_at"`
}

// PotAmount is the lump sum one member receives per cycle
func (t *Tontine) PotAmount() int64 {
	return t.ContributionAmount * int64(t.TotalMembers)
}

// Member represents one participant in a tontine. Once HasReceivedPot is
// true the member is locked: its position can no longer change and it cannot
// be removed.
type Member struct {
	ID              int64     `json:"id"`
	TontineID       int64     `json:"tontine_id"`
	MemberName      string    `json:"member_name"`
	PhoneNumber     *string   `json:"phone_number,omitempty"`
	PositionInOrder int       `json:"position_in_order"`
	IsCurrentUser   bool      `json:"is_current_user"`
	PayoutDate      time.Time `json:"payout_date"`
	HasReceivedPot  bool      `json:"has_received_pot"`
}

// Payment is one row of the append-only tontine payment log
type Payment struct {
	ID             int64       `json:"id"`
	TontineID      int64       `json:"tontine_id"`
	Type           PaymentType `json:"type"`
	Amount         int64       `json:"amount"`
	CycleNumber    int         `json:"cycle_number"`
	AccountID      int64       `json:"account_id"`
	PaymentDate    time.Time   `json:"payment_date"`
	IdempotencyKey string      `json:"idempotency_key"`
	CreatedAt      time.Time   `json:"created_at"`
}
