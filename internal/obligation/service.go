package obligation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JeffBoundamas/kuna-cash-flow-sub000/internal/account"
	"github.com/JeffBoundamas/kuna-cash-flow-sub000/internal/category"
	"github.com/JeffBoundamas/kuna-cash-flow-sub000/internal/transaction"
)

// Common errors
var (
	ErrObligationNotFound     = errors.New("obligation not found")
	ErrAccountNotFound        = errors.New("payment method not found")
	ErrInvalidType            = errors.New("type must be CREANCE or ENGAGEMENT")
	ErrPersonNameRequired     = errors.New("person name is required")
	ErrInvalidAmount          = errors.New("amount must be positive")
	ErrInvalidDate            = errors.New("date must be in YYYY-MM-DD format")
	ErrInvalidConfidence      = errors.New("confidence must be CERTAIN, PROBABLE or UNCERTAIN")
	ErrAmountExceedsRemaining = errors.New("amount exceeds remaining balance")
	ErrObligationTerminal     = errors.New("obligation is already settled or cancelled")
	ErrTotalBelowPaid         = errors.New("total amount cannot be reduced below the amount already paid")
)

// Service handles obligation business logic: the lifecycle state machine,
// payment logging with its mirrored ledger transaction, and the cross-link
// operations driven by tontine events.
type Service struct {
	store      Store
	accounts   account.Store
	categories category.Resolver
	mirror     transaction.Mirror
}

// NewService creates a new obligation service
func NewService(store Store, accounts account.Store, categories category.Resolver, mirror transaction.Mirror) *Service {
	return &Service{
		store:      store,
		accounts:   accounts,
		categories: categories,
		mirror:     mirror,
	}
}

func validConfidence(c Confidence) bool {
	return c == ConfidenceCertain || c == ConfidenceProbable || c == ConfidenceUncertain
}

// Create creates a new obligation in the ACTIVE state with the full amount
// remaining. Confidence is forced to CERTAIN for engagements: how sure the
// user is of collecting only makes sense for money owed to them.
func (s *Service) Create(ctx context.Context, userID int64, req *CreateObligationRequest) (*Obligation, error) {
	if req.Type != TypeCreance && req.Type != TypeEngagement {
		return nil, ErrInvalidType
	}
	if req.PersonName == "" {
		return nil, ErrPersonNameRequired
	}
	if req.TotalAmount <= 0 {
		return nil, ErrInvalidAmount
	}

	confidence := req.Confidence
	if confidence == "" {
		confidence = ConfidenceCertain
	}
	if !validConfidence(confidence) {
		return nil, ErrInvalidConfidence
	}
	if req.Type == TypeEngagement {
		confidence = ConfidenceCertain
	}

	var dueDate *time.Time
	if req.DueDate != nil && *req.DueDate != "" {
		d, err := parseDate(*req.DueDate)
		if err != nil {
			return nil, fmt.Errorf("invalid due date: %w", ErrInvalidDate)
		}
		dueDate = &d
	}

	o := &Obligation{
		UserID:          userID,
		Type:            req.Type,
		PersonName:      req.PersonName,
		Description:     req.Description,
		TotalAmount:     req.TotalAmount,
		RemainingAmount: req.TotalAmount,
		DueDate:         dueDate,
		Confidence:      confidence,
		Status:          StatusActive,
	}

	if err := s.store.Insert(ctx, o); err != nil {
		return nil, err
	}

	return o, nil
}

// GetByID retrieves an obligation by its ID
func (s *Service) GetByID(ctx context.Context, id int64) (*Obligation, error) {
	o, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrObligationNotFound
	}
	return o, nil
}

// List retrieves the user's obligations with optional filters
func (s *Service) List(ctx context.Context, userID int64, filter ListFilter) ([]*Obligation, error) {
	return s.store.List(ctx, userID, filter)
}

// ListPayments retrieves the payment history of an obligation
func (s *Service) ListPayments(ctx context.Context, id int64) ([]*ObligationPayment, error) {
	if _, err := s.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListPayments(ctx, id)
}

// LogPayment records a payment against an obligation, recomputes its
// remaining amount and status, and mirrors the payment into the transaction
// ledger under the matching reconciliation category.
//
// The payment row and the obligation update land in one store transaction.
// The mirrored ledger write is a second store call: if it fails, the payment
// stands and the ledger misses one row. Callers see the whole operation fail
// and may retry with the same idempotency key without double-counting.
func (s *Service) LogPayment(ctx context.Context, userID, obligationID int64, req *LogPaymentRequest) (*PaymentResult, error) {
	o, err := s.GetByID(ctx, obligationID)
	if err != nil {
		return nil, err
	}

	if o.IsTerminal() {
		// A retry of the payment that settled the obligation must still be
		// idempotent: return the original result instead of a rejection.
		if req.IdempotencyKey != "" {
			payments, err := s.store.ListPayments(ctx, obligationID)
			if err != nil {
				return nil, err
			}
			for _, p := range payments {
				if p.IdempotencyKey == req.IdempotencyKey {
					return &PaymentResult{
						Payment:    p,
						Obligation: o,
						Settled:    o.Status == StatusSettled,
					}, nil
				}
			}
		}
		return nil, ErrObligationTerminal
	}
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if req.Amount > o.RemainingAmount {
		return nil, ErrAmountExceedsRemaining
	}

	paymentDate, err := parseDate(req.PaymentDate)
	if err != nil {
		return nil, fmt.Errorf("invalid payment date: %w", ErrInvalidDate)
	}

	acc, err := s.accounts.GetByID(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, ErrAccountNotFound
	}

	// Paying an engagement debits the chosen payment method.
	if o.Type == TypeEngagement {
		if err := account.CheckDebit(acc, req.Amount); err != nil {
			return nil, err
		}
	}

	key := req.IdempotencyKey
	if key == "" {
		key = uuid.New().String()
	}

	newRemaining := o.RemainingAmount - req.Amount
	newStatus := statusForRemaining(newRemaining)

	payment := &ObligationPayment{
		ObligationID:   o.ID,
		Amount:         req.Amount,
		PaymentDate:    paymentDate,
		AccountID:      req.AccountID,
		Notes:          req.Notes,
		IdempotencyKey: key,
	}

	inserted, created, err := s.store.InsertPayment(ctx, payment, newRemaining, newStatus)
	if err != nil {
		return nil, err
	}
	if !created {
		// Resubmission of an already-applied payment: report the current
		// state without mirroring a second ledger row.
		current, err := s.GetByID(ctx, obligationID)
		if err != nil {
			return nil, err
		}
		return &PaymentResult{
			Payment:    inserted,
			Obligation: current,
			Settled:    current.Status == StatusSettled,
		}, nil
	}

	if err := s.mirrorPayment(ctx, userID, o, req.AccountID, req.Amount, paymentDate); err != nil {
		return nil, err
	}

	o.RemainingAmount = newRemaining
	o.Status = newStatus

	return &PaymentResult{
		Payment:    inserted,
		Obligation: o,
		Settled:    newStatus == StatusSettled,
	}, nil
}

// mirrorPayment appends the signed ledger transaction for an obligation
// payment: +amount for money collected on a creance, -amount for money paid
// out on an engagement.
func (s *Service) mirrorPayment(ctx context.Context, userID int64, o *Obligation, accountID, amount int64, date time.Time) error {
	var (
		categoryName string
		nature       category.Nature
		signed       int64
		label        string
	)
	if o.Type == TypeCreance {
		categoryName = category.NameSettlementReceived
		nature = category.NatureIncome
		signed = amount
		label = fmt.Sprintf("Settlement received from %s", o.PersonName)
	} else {
		categoryName = category.NameSettlementPaid
		nature = category.NatureExpense
		signed = -amount
		label = fmt.Sprintf("Settlement paid to %s", o.PersonName)
	}

	categoryID, err := s.categories.ResolveOrCreate(ctx, userID, categoryName, nature)
	if err != nil {
		return err
	}

	if _, err := s.mirror.Create(ctx, userID, accountID, categoryID, signed, label, date); err != nil {
		return err
	}

	return nil
}

// Update edits an obligation. A total amount change shifts the remaining
// amount by the same delta; the total can never drop below what has already
// been paid. Terminal obligations are not editable.
func (s *Service) Update(ctx context.Context, id int64, req *UpdateObligationRequest) (*Obligation, error) {
	o, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.IsTerminal() {
		return nil, ErrObligationTerminal
	}

	if req.PersonName != nil {
		if *req.PersonName == "" {
			return nil, ErrPersonNameRequired
		}
		o.PersonName = *req.PersonName
	}
	if req.Description != nil {
		o.Description = req.Description
	}
	if req.DueDate != nil {
		if *req.DueDate == "" {
			o.DueDate = nil
		} else {
			d, err := parseDate(*req.DueDate)
			if err != nil {
				return nil, fmt.Errorf("invalid due date: %w", ErrInvalidDate)
			}
			o.DueDate = &d
		}
	}
	if req.Confidence != nil {
		if !validConfidence(*req.Confidence) {
			return nil, ErrInvalidConfidence
		}
		if o.Type == TypeCreance {
			o.Confidence = *req.Confidence
		}
	}

	if req.TotalAmount != nil && *req.TotalAmount != o.TotalAmount {
		newTotal := *req.TotalAmount
		if newTotal <= 0 {
			return nil, ErrInvalidAmount
		}

		alreadyPaid := o.TotalAmount - o.RemainingAmount
		if newTotal < alreadyPaid {
			return nil, ErrTotalBelowPaid
		}

		newRemaining := o.RemainingAmount + (newTotal - o.TotalAmount)
		if newRemaining < 0 {
			newRemaining = 0
		}
		o.TotalAmount = newTotal
		o.RemainingAmount = newRemaining
		if newRemaining == 0 {
			o.Status = StatusSettled
		} else if alreadyPaid > 0 {
			o.Status = StatusPartiallyPaid
		} else {
			o.Status = StatusActive
		}
	}

	if err := s.store.UpdateDetails(ctx, o); err != nil {
		return nil, err
	}

	return o, nil
}

// Cancel marks an obligation as cancelled, freezing its remaining amount.
// Already-terminal obligations are rejected.
func (s *Service) Cancel(ctx context.Context, id int64) (*Obligation, error) {
	o, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.IsTerminal() {
		return nil, ErrObligationTerminal
	}

	if err := s.store.SetStatus(ctx, id, StatusCancelled); err != nil {
		return nil, err
	}

	o.Status = StatusCancelled
	return o, nil
}

// CreateLinked creates an obligation carrying a weak reference to a tontine.
// Used by tontine creation to materialize each future cycle's contribution
// as an engagement and the user's own payout as a creance.
func (s *Service) CreateLinked(ctx context.Context, userID int64, typ Type, personName, description string, amount int64, dueDate time.Time, tontineID int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	var desc *string
	if description != "" {
		desc = &description
	}

	o := &Obligation{
		UserID:          userID,
		Type:            typ,
		PersonName:      personName,
		Description:     desc,
		TotalAmount:     amount,
		RemainingAmount: amount,
		DueDate:         &dueDate,
		Confidence:      ConfidenceCertain,
		Status:          StatusActive,
		LinkedTontineID: &tontineID,
	}

	return s.store.Insert(ctx, o)
}

// SettleOldestEngagement applies a tontine contribution to the oldest
// still-active engagement linked to the tontine (FIFO by due date).
// Overpayment is clamped to zero; underpayment leaves the obligation
// partially paid. A contribution with no active engagement left is a no-op.
func (s *Service) SettleOldestEngagement(ctx context.Context, tontineID, amount int64) error {
	o, err := s.store.OldestActiveEngagement(ctx, tontineID)
	if err != nil {
		return err
	}
	if o == nil {
		slog.Warn("contribution with no active engagement to settle", "tontine_id", tontineID)
		return nil
	}

	newRemaining := o.RemainingAmount - amount
	if newRemaining < 0 {
		newRemaining = 0
	}
	newStatus := statusForRemaining(newRemaining)

	if err := s.store.SetRemaining(ctx, o.ID, newRemaining, newStatus); err != nil {
		return err
	}

	slog.Info("auto-settled engagement from tontine contribution",
		"obligation_id", o.ID, "tontine_id", tontineID, "remaining", newRemaining, "status", newStatus)
	return nil
}

// ForceSettleCreance settles the tontine's linked creance outright. The pot
// arrives as one lump sum, so unlike contributions there is no partial path.
func (s *Service) ForceSettleCreance(ctx context.Context, tontineID int64) error {
	o, err := s.store.CreanceForTontine(ctx, tontineID)
	if err != nil {
		return err
	}
	if o == nil {
		slog.Warn("pot received with no linked creance", "tontine_id", tontineID)
		return nil
	}
	if o.IsTerminal() {
		return nil
	}

	if err := s.store.SetRemaining(ctx, o.ID, 0, StatusSettled); err != nil {
		return err
	}

	slog.Info("force-settled creance on pot receipt", "obligation_id", o.ID, "tontine_id", tontineID)
	return nil
}

// DeleteByTontine removes every obligation linked to a tontine. Part of the
// tontine delete cascade.
func (s *Service) DeleteByTontine(ctx context.Context, tontineID int64) error {
	return s.store.DeleteByTontine(ctx, tontineID)
}
