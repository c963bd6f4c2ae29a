package tontine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JeffBoundamas/kuna-cash-flow-sub000/internal/account"
	"github.com/JeffBoundamas/kuna-cash-flow-sub000/internal/category"
	"github.com/JeffBoundamas/kuna-cash-flow-sub000/internal/obligation"
	"github.com/JeffBoundamas/kuna-cash-flow-sub000/internal/tontine/schedule"
	"github.com/JeffBoundamas/kuna-cash-flow-sub000/internal/transaction"
)

// Common errors
var (
	ErrTontineNotFound    = errors.New("tontine not found")
	ErrMemberNotFound     = errors.New("member not found")
	ErrAccountNotFound    = errors.New("payment method not found")
	ErrNameRequired       = errors.New("tontine name is required")
	ErrMemberNameRequired = errors.New("member name is required")
	ErrTooFewMembers      = errors.New("a tontine requires at least 2 members")
	ErrOneCurrentUser     = errors.New("exactly one member must be designated as the current user")
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrInvalidFrequency   = errors.New("frequency must be WEEKLY or MONTHLY")
	ErrInvalidDate        = errors.New("date must be in YYYY-MM-DD format")
	ErrInvalidCycle       = errors.New("cycle number must be positive")
	ErrMemberLocked       = errors.New("cannot remove a member who already received the pot")
	ErrPotAlreadyReceived = errors.New("member already received the pot")
	ErrLockedPosition     = errors.New("cannot change the position of a member who already received the pot")
	ErrMemberListMismatch = errors.New("reorder must include every member exactly once")
)

// ObligationLedger is the obligation-side surface the rotation manager
// drives: tontine creation generates linked obligations, contribution and
// payout events auto-settle them, deletion cascades them.
// Implemented by obligation.Service.
type ObligationLedger interface {
	CreateLinked(ctx context.Context, userID int64, typ obligation.Type, personName, description string, amount int64, dueDate time.Time, tontineID int64) error
	SettleOldestEngagement(ctx context.Context, tontineID, amount int64) error
	ForceSettleCreance(ctx context.Context, tontineID int64) error
	DeleteByTontine(ctx context.Context, tontineID int64) error
}

// Service handles tontine business logic: rotation state, member ordering
// and the cross-link side effects on the obligation ledger.
type Service struct {
	store       Store
	accounts    account.Store
	categories  category.Resolver
	mirror      transaction.Mirror
	obligations ObligationLedger
}

// NewService creates a new tontine service
func NewService(store Store, accounts account.Store, categories category.Resolver, mirror transaction.Mirror, obligations ObligationLedger) *Service {
	return &Service{
		store:       store,
		accounts:    accounts,
		categories:  categories,
		mirror:      mirror,
		obligations: obligations,
	}
}

// Create creates a tontine with its ordered member list and materializes the
// cross-linked obligations: one engagement per cycle for the contributions
// the user will owe, and one creance for the user's own payout.
func (s *Service) Create(ctx context.Context, userID int64, req *CreateTontineRequest) (*TontineDetail, error) {
	if req.Name == "" {
		return nil, ErrNameRequired
	}
	if req.ContributionAmount <= 0 {
		return nil, ErrInvalidAmount
	}
	if !schedule.Valid(req.Frequency) {
		return nil, ErrInvalidFrequency
	}
	startDate, err := parseDate(req.StartDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start date: %w", ErrInvalidDate)
	}
	if len(req.Members) < 2 {
		return nil, ErrTooFewMembers
	}

	currentUserCount := 0
	for _, m := range req.Members {
		if m.MemberName == "" {
			return nil, ErrMemberNameRequired
		}
		if m.IsCurrentUser {
			currentUserCount++
		}
	}
	if currentUserCount != 1 {
		return nil, ErrOneCurrentUser
	}

	t := &Tontine{
		UserID:             userID,
		Name:               req.Name,
		TotalMembers:       len(req.Members),
		ContributionAmount: req.ContributionAmount,
		Frequency:          req.Frequency,
		StartDate:          startDate,
		CurrentCycle:       1,
		Status:             StatusActive,
	}

	if err := s.store.Insert(ctx, t); err != nil {
		return nil, err
	}

	var currentUserPayout time.Time
	members := make([]*Member, 0, len(req.Members))
	for i, mi := range req.Members {
		position := i + 1
		m := &Member{
			TontineID:       t.ID,
			MemberName:      mi.MemberName,
			PhoneNumber:     mi.PhoneNumber,
			PositionInOrder: position,
			IsCurrentUser:   mi.IsCurrentUser,
			PayoutDate:      schedule.PayoutDate(startDate, t.Frequency, position),
		}
		if err := s.store.InsertMember(ctx, m); err != nil {
			return nil, err
		}
		if m.IsCurrentUser {
			currentUserPayout = m.PayoutDate
		}
		members = append(members, m)
	}

	// One engagement per cycle: each future contribution shows up as a
	// forecastable outflow on the obligation ledger.
	for cycle := 1; cycle <= t.TotalMembers; cycle++ {
		due := schedule.AddCycles(startDate, t.Frequency, cycle-1)
		description := fmt.Sprintf("Tontine %s, cycle %d contribution", t.Name, cycle)
		if err := s.obligations.CreateLinked(ctx, userID, obligation.TypeEngagement, t.Name, description, t.ContributionAmount, due, t.ID); err != nil {
			return nil, err
		}
	}

	// The user's own payout shows up as a forecastable inflow.
	payoutDesc := fmt.Sprintf("Tontine %s payout", t.Name)
	if err := s.obligations.CreateLinked(ctx, userID, obligation.TypeCreance, t.Name, payoutDesc, t.PotAmount(), currentUserPayout, t.ID); err != nil {
		return nil, err
	}

	slog.Info("tontine created",
		"tontine_id", t.ID, "members", t.TotalMembers, "pot", t.PotAmount(), "frequency", t.Frequency)

	return &TontineDetail{Tontine: t, Members: members, PotAmount: t.PotAmount()}, nil
}

// GetByID retrieves a tontine by its ID
func (s *Service) GetByID(ctx context.Context, id int64) (*Tontine, error) {
	t, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrTontineNotFound
	}
	return t, nil
}

// GetDetail retrieves a tontine with its ordered member list
func (s *Service) GetDetail(ctx context.Context, id int64) (*TontineDetail, error) {
	t, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	members, err := s.store.ListMembers(ctx, id)
	if err != nil {
		return nil, err
	}

	return &TontineDetail{Tontine: t, Members: members, PotAmount: t.PotAmount()}, nil
}

// ListByUserID retrieves all tontines belonging to a user
func (s *Service) ListByUserID(ctx context.Context, userID int64) ([]*Tontine, error) {
	return s.store.ListByUserID(ctx, userID)
}

// ListPayments retrieves a tontine's payment history
func (s *Service) ListPayments(ctx context.Context, id int64) ([]*Payment, error) {
	if _, err := s.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListPayments(ctx, id)
}

func (s *Service) paymentDate(raw string) (time.Time, error) {
	if raw == "" {
		now := time.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	d, err := parseDate(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid payment date: %w", ErrInvalidDate)
	}
	return d, nil
}

// LogContribution records one member contribution for a cycle: a debit
// against the chosen payment method, an append to the payment log, a
// mirrored ledger transaction, and FIFO auto-settlement of the oldest active
// linked engagement. Partial and excess amounts are tolerated; settlement
// clamps at zero.
func (s *Service) LogContribution(ctx context.Context, userID, tontineID int64, req *LogContributionRequest) (*Payment, error) {
	t, err := s.GetByID(ctx, tontineID)
	if err != nil {
		return nil, err
	}

	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if req.CycleNumber < 1 {
		return nil, ErrInvalidCycle
	}

	paymentDate, err := s.paymentDate(req.PaymentDate)
	if err != nil {
		return nil, err
	}

	acc, err := s.accounts.GetByID(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, ErrAccountNotFound
	}
	if err := account.CheckDebit(acc, req.Amount); err != nil {
		return nil, err
	}

	key := req.IdempotencyKey
	if key == "" {
		key = uuid.New().String()
	}

	payment := &Payment{
		TontineID:      t.ID,
		Type:           PaymentTypeContribution,
		Amount:         req.Amount,
		CycleNumber:    req.CycleNumber,
		AccountID:      req.AccountID,
		PaymentDate:    paymentDate,
		IdempotencyKey: key,
	}

	inserted, created, err := s.store.InsertPayment(ctx, payment)
	if err != nil {
		return nil, err
	}
	if !created {
		return inserted, nil
	}

	categoryID, err := s.categories.ResolveOrCreate(ctx, userID, category.NameTontineSavings, category.NatureExpense)
	if err != nil {
		return nil, err
	}
	label := fmt.Sprintf("Contribution to %s", t.Name)
	if _, err := s.mirror.Create(ctx, userID, req.AccountID, categoryID, -req.Amount, label, paymentDate); err != nil {
		return nil, err
	}

	if err := s.obligations.SettleOldestEngagement(ctx, t.ID, req.Amount); err != nil {
		return nil, err
	}

	return inserted, nil
}

// ReceivePot records the payout event for a cycle: the receiving member is
// locked, the cycle advances, a mirrored +amount ledger transaction is
// written, and the tontine's linked creance is settled outright. When the
// last member has been paid the tontine completes.
func (s *Service) ReceivePot(ctx context.Context, userID, tontineID int64, req *ReceivePotRequest) (*Payment, error) {
	t, err := s.GetByID(ctx, tontineID)
	if err != nil {
		return nil, err
	}

	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if req.CycleNumber < 1 {
		return nil, ErrInvalidCycle
	}

	member, err := s.store.GetMember(ctx, req.MemberID)
	if err != nil {
		return nil, err
	}
	if member == nil || member.TontineID != t.ID {
		return nil, ErrMemberNotFound
	}
	if member.HasReceivedPot {
		return nil, ErrPotAlreadyReceived
	}

	paymentDate, err := s.paymentDate(req.PaymentDate)
	if err != nil {
		return nil, err
	}

	acc, err := s.accounts.GetByID(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, ErrAccountNotFound
	}

	key := req.IdempotencyKey
	if key == "" {
		key = uuid.New().String()
	}

	payment := &Payment{
		TontineID:      t.ID,
		Type:           PaymentTypePotReceived,
		Amount:         req.Amount,
		CycleNumber:    req.CycleNumber,
		AccountID:      req.AccountID,
		PaymentDate:    paymentDate,
		IdempotencyKey: key,
	}

	inserted, created, err := s.store.InsertPayment(ctx, payment)
	if err != nil {
		return nil, err
	}
	if !created {
		return inserted, nil
	}

	if err := s.store.MarkPotReceived(ctx, member.ID); err != nil {
		return nil, err
	}

	categoryID, err := s.categories.ResolveOrCreate(ctx, userID, category.NameTontineSavings, category.NatureExpense)
	if err != nil {
		return nil, err
	}
	label := fmt.Sprintf("Pot received from %s", t.Name)
	if _, err := s.mirror.Create(ctx, userID, req.AccountID, categoryID, req.Amount, label, paymentDate); err != nil {
		return nil, err
	}

	// The cycle counter only moves forward. Recording a payout for an
	// earlier cycle late never rewinds it.
	if req.CycleNumber+1 > t.CurrentCycle {
		t.CurrentCycle = req.CycleNumber + 1
	}

	members, err := s.store.ListMembers(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	remaining := 0
	for _, m := range members {
		if !m.HasReceivedPot && m.ID != member.ID {
			remaining++
		}
	}
	if remaining == 0 {
		t.Status = StatusCompleted
	}

	if err := s.store.Update(ctx, t); err != nil {
		return nil, err
	}

	// The pot arrives as one lump sum: the linked creance settles outright,
	// never partially.
	if err := s.obligations.ForceSettleCreance(ctx, t.ID); err != nil {
		return nil, err
	}

	slog.Info("pot received",
		"tontine_id", t.ID, "member_id", member.ID, "cycle", req.CycleNumber, "completed", t.Status == StatusCompleted)

	return inserted, nil
}

// ReorderMembers applies a new payout order. Members who already received
// the pot are locked and must keep their slot; every member's payout date is
// recomputed from its new position and the whole set is persisted as one
// batch.
func (s *Service) ReorderMembers(ctx context.Context, tontineID int64, newOrder []int64) ([]*Member, error) {
	t, err := s.GetByID(ctx, tontineID)
	if err != nil {
		return nil, err
	}

	members, err := s.store.ListMembers(ctx, tontineID)
	if err != nil {
		return nil, err
	}

	if len(newOrder) != len(members) {
		return nil, ErrMemberListMismatch
	}
	byID := make(map[int64]*Member, len(members))
	for _, m := range members {
		byID[m.ID] = m
	}

	updates := make([]MemberPosition, 0, len(newOrder))
	for i, memberID := range newOrder {
		m, ok := byID[memberID]
		if !ok {
			return nil, ErrMemberListMismatch
		}
		delete(byID, memberID)

		position := i + 1
		if m.HasReceivedPot && position != m.PositionInOrder {
			return nil, ErrLockedPosition
		}
		updates = append(updates, MemberPosition{
			MemberID:   memberID,
			Position:   position,
			PayoutDate: schedule.PayoutDate(t.StartDate, t.Frequency, position),
		})
	}

	if err := s.store.UpdateMemberPositions(ctx, tontineID, updates); err != nil {
		return nil, err
	}

	return s.store.ListMembers(ctx, tontineID)
}

// AddMember appends a member at the next position. Nothing else is
// recomputed; existing payout dates and obligations stand.
func (s *Service) AddMember(ctx context.Context, tontineID int64, req *AddMemberRequest) (*Member, error) {
	t, err := s.GetByID(ctx, tontineID)
	if err != nil {
		return nil, err
	}
	if req.MemberName == "" {
		return nil, ErrMemberNameRequired
	}

	members, err := s.store.ListMembers(ctx, tontineID)
	if err != nil {
		return nil, err
	}

	position := len(members) + 1
	m := &Member{
		TontineID:       t.ID,
		MemberName:      req.MemberName,
		PhoneNumber:     req.PhoneNumber,
		PositionInOrder: position,
		PayoutDate:      schedule.PayoutDate(t.StartDate, t.Frequency, position),
	}
	if err := s.store.InsertMember(ctx, m); err != nil {
		return nil, err
	}

	t.TotalMembers = position
	if err := s.store.Update(ctx, t); err != nil {
		return nil, err
	}

	return m, nil
}

// DeleteMember removes a member, renumbers the remaining members
// contiguously from 1 and recomputes every payout date. Members who already
// received the pot cannot be removed, and a tontine never drops below 2
// members.
func (s *Service) DeleteMember(ctx context.Context, tontineID, memberID int64) error {
	t, err := s.GetByID(ctx, tontineID)
	if err != nil {
		return err
	}

	member, err := s.store.GetMember(ctx, memberID)
	if err != nil {
		return err
	}
	if member == nil || member.TontineID != t.ID {
		return ErrMemberNotFound
	}
	if member.HasReceivedPot {
		return ErrMemberLocked
	}

	members, err := s.store.ListMembers(ctx, tontineID)
	if err != nil {
		return err
	}
	if len(members)-1 < 2 {
		return ErrTooFewMembers
	}

	if err := s.store.DeleteMember(ctx, memberID); err != nil {
		return err
	}

	updates := make([]MemberPosition, 0, len(members)-1)
	position := 0
	for _, m := range members {
		if m.ID == memberID {
			continue
		}
		position++
		updates = append(updates, MemberPosition{
			MemberID:   m.ID,
			Position:   position,
			PayoutDate: schedule.PayoutDate(t.StartDate, t.Frequency, position),
		})
	}
	if err := s.store.UpdateMemberPositions(ctx, tontineID, updates); err != nil {
		return err
	}

	t.TotalMembers = position
	return s.store.Update(ctx, t)
}

// Update edits a tontine's terms. Changes apply to future cycles only:
// recorded payments, generated obligations and member payout dates are not
// retroactively recomputed.
func (s *Service) Update(ctx context.Context, tontineID int64, req *UpdateTontineRequest) (*Tontine, error) {
	t, err := s.GetByID(ctx, tontineID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if *req.Name == "" {
			return nil, ErrNameRequired
		}
		t.Name = *req.Name
	}
	if req.ContributionAmount != nil {
		if *req.ContributionAmount <= 0 {
			return nil, ErrInvalidAmount
		}
		t.ContributionAmount = *req.ContributionAmount
	}
	if req.Frequency != nil {
		if !schedule.Valid(*req.Frequency) {
			return nil, ErrInvalidFrequency
		}
		t.Frequency = *req.Frequency
	}
	if req.StartDate != nil {
		d, err := parseDate(*req.StartDate)
		if err != nil {
			return nil, fmt.Errorf("invalid start date: %w", ErrInvalidDate)
		}
		t.StartDate = d
	}

	if err := s.store.Update(ctx, t); err != nil {
		return nil, err
	}

	return t, nil
}

// Delete removes a tontine. Linked obligations are a separate aggregate with
// only a weak reference, so they are cascaded here first; members and
// payments cascade at the storage layer.
func (s *Service) Delete(ctx context.Context, tontineID int64) error {
	if _, err := s.GetByID(ctx, tontineID); err != nil {
		return err
	}

	if err := s.obligations.DeleteByTontine(ctx, tontineID); err != nil {
		return err
	}

	return s.store.Delete(ctx, tontineID)
}
