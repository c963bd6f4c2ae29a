package tontine

import (
	"time"

	"github.com/JeffBoundamas/kuna-cash-flow-sub000/internal/tontine/schedule"
)

// MemberInput describes one member at tontine creation, in payout order
type MemberInput struct {
	MemberName    string  `json:"member_name" validate:"required"`
	PhoneNumber   *string `json:"phone_number,omitempty"`
	IsCurrentUser bool    `json:"is_current_user"`
}

// CreateTontineRequest represents the request to create a tontine. Members
// are supplied in payout order; positions are assigned from the array order.
type CreateTontineRequest struct {
	Name               string             `json:"name" validate:"required"`
	ContributionAmount int64              `json:"contribution_amount" validate:"required"`
	Frequency          schedule.Frequency `json:"frequency" validate:"required"`
	StartDate          string             `json:"start_date" validate:"required"` // YYYY-MM-DD
	Members            []MemberInput      `json:"members" validate:"required"`
}

// UpdateTontineRequest represents a partial edit of a tontine. Changes apply
// to future cycles only; recorded payments and obligations are not
// retroactively modified.
type UpdateTontineRequest struct {
	Name               *string             `json:"name,omitempty"`
	ContributionAmount *int64              `json:"contribution_amount,omitempty"`
	Frequency          *schedule.Frequency `json:"frequency,omitempty"`
	StartDate          *string             `json:"start_date,omitempty"` // YYYY-MM-DD
}

// LogContributionRequest represents one member contribution for a cycle
type LogContributionRequest struct {
	Amount         int64  `json:"amount" validate:"required"`
	CycleNumber    int    `json:"cycle_number" validate:"required"`
	AccountID      int64  `json:"payment_method_id" validate:"required"`
	PaymentDate    string `json:"payment_date,omitempty"` // YYYY-MM-DD, defaults to today
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// ReceivePotRequest represents the pot payout event for a cycle
type ReceivePotRequest struct {
	MemberID       int64  `json:"member_id" validate:"required"`
	Amount         int64  `json:"amount" validate:"required"`
	CycleNumber    int    `json:"cycle_number" validate:"required"`
	AccountID      int64  `json:"payment_method_id" validate:"required"`
	PaymentDate    string `json:"payment_date,omitempty"` // YYYY-MM-DD, defaults to today
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// AddMemberRequest appends a member at the next free position
type AddMemberRequest struct {
	MemberName  string  `json:"member_name" validate:"required"`
	PhoneNumber *string `json:"phone_number,omitempty"`
}

// ReorderMembersRequest carries the full member list in the new payout order
type ReorderMembersRequest struct {
	MemberIDs []int64 `json:"member_ids" validate:"required"`
}

// TontineDetail bundles a tontine with its ordered member list
type TontineDetail struct {
	Tontine   *Tontine  `json:"tontine"`
	Members   []*Member `json:"members"`
	PotAmount int64     `json:"pot_amount"`
}

// parseDate parses a YYYY-MM-DD request field
func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}
