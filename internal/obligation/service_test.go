package obligation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/JeffBoundamas/kuna-cash-flow-sub000/internal/account"
	"github.com/JeffBoundamas/kuna-cash-flow-sub000/internal/category"
	"github.com/JeffBoundamas/kuna-cash-flow-sub000/internal/transaction"
)

// fakeStore is an in-memory Store for service tests
type fakeStore struct {
	obligations map[int64]*Obligation
	payments    []*ObligationPayment
	nextID      int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{obligations: make(map[int64]*Obligation)}
}

func (f *fakeStore) Insert(_ context.Context, o *Obligation) error {
	f.nextID++
	o.ID = f.nextID
	o.CreatedAt = time.Now()
	clone := *o
	f.obligations[o.ID] = &clone
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id int64) (*Obligation, error) {
	o, ok := f.obligations[id]
	if !ok {
		return nil, nil
	}
	clone := *o
	return &clone, nil
}

func (f *fakeStore) List(_ context.Context, userID int64, filter ListFilter) ([]*Obligation, error) {
	var out []*Obligation
	for _, o := range f.obligations {
		if o.UserID != userID {
			continue
		}
		if filter.Type != nil && o.Type != *filter.Type {
			continue
		}
		if filter.ActiveOnly && o.Status != StatusActive && o.Status != StatusPartiallyPaid {
			continue
		}
		clone := *o
		out = append(out, &clone)
	}
	return out, nil
}

func (f *fakeStore) UpdateDetails(_ context.Context, o *Obligation) error {
	existing, ok := f.obligations[o.ID]
	if !ok {
		return errors.New("obligation not found")
	}
	existing.PersonName = o.PersonName
	existing.Description = o.Description
	existing.TotalAmount = o.TotalAmount
	existing.RemainingAmount = o.RemainingAmount
	existing.DueDate = o.DueDate
	existing.Confidence = o.Confidence
	existing.Status = o.Status
	return nil
}

func (f *fakeStore) SetStatus(_ context.Context, id int64, status Status) error {
	o, ok := f.obligations[id]
	if !ok {
		return errors.New("obligation not found")
	}
	o.Status = status
	return nil
}

func (f *fakeStore) SetRemaining(_ context.Context, id int64, remaining int64, status Status) error {
	o, ok := f.obligations[id]
	if !ok {
		return errors.New("obligation not found")
	}
	o.RemainingAmount = remaining
	o.Status = status
	return nil
}

func (f *fakeStore) InsertPayment(_ context.Context, p *ObligationPayment, newRemaining int64, newStatus Status) (*ObligationPayment, bool, error) {
	for _, existing := range f.payments {
		if existing.IdempotencyKey == p.IdempotencyKey {
			clone := *existing
			return &clone, false, nil
		}
	}
	o, ok := f.obligations[p.ObligationID]
	if !ok {
		return nil, false, errors.New("obligation not found")
	}
	f.nextID++
	p.ID = f.nextID
	p.CreatedAt = time.Now()
	clone := *p
	f.payments = append(f.payments, &clone)
	o.RemainingAmount = newRemaining
	o.Status = newStatus
	result := *p
	return &result, true, nil
}

func (f *fakeStore) ListPayments(_ context.Context, obligationID int64) ([]*ObligationPayment, error) {
	var out []*ObligationPayment
	for _, p := range f.payments {
		if p.ObligationID == obligationID {
			clone := *p
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (f *fakeStore) OldestActiveEngagement(_ context.Context, tontineID int64) (*Obligation, error) {
	var oldest *Obligation
	for _, o := range f.obligations {
		if o.LinkedTontineID == nil || *o.LinkedTontineID != tontineID {
			continue
		}
		if o.Type != TypeEngagement {
			continue
		}
		if o.Status != StatusActive && o.Status != StatusPartiallyPaid {
			continue
		}
		if oldest == nil || (o.DueDate != nil && oldest.DueDate != nil && o.DueDate.Before(*oldest.DueDate)) {
			oldest = o
		}
	}
	if oldest == nil {
		return nil, nil
	}
	clone := *oldest
	return &clone, nil
}

func (f *fakeStore) CreanceForTontine(_ context.Context, tontineID int64) (*Obligation, error) {
	for _, o := range f.obligations {
		if o.LinkedTontineID != nil && *o.LinkedTontineID == tontineID && o.Type == TypeCreance {
			clone := *o
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) DeleteByTontine(_ context.Context, tontineID int64) error {
	for id, o := range f.obligations {
		if o.LinkedTontineID != nil && *o.LinkedTontineID == tontineID {
			delete(f.obligations, id)
		}
	}
	return nil
}

// fakeAccounts is an in-memory account.Store
type fakeAccounts struct {
	accounts map[int64]*account.Account
}

func (f *fakeAccounts) Create(_ context.Context, _ int64, _ *account.CreateAccountRequest) (*account.Account, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeAccounts) GetByID(_ context.Context, id int64) (*account.Account, error) {
	acc, ok := f.accounts[id]
	if !ok {
		return nil, nil
	}
	return acc, nil
}

func (f *fakeAccounts) ListByUserID(_ context.Context, _ int64) ([]*account.Account, error) {
	return nil, nil
}

// fakeResolver resolves category names to stable ids and records them
type fakeResolver struct {
	names []string
}

func (f *fakeResolver) ResolveOrCreate(_ context.Context, _ int64, name string, _ category.Nature) (int64, error) {
	for i, n := range f.names {
		if n == name {
			return int64(i + 1), nil
		}
	}
	f.names = append(f.names, name)
	return int64(len(f.names)), nil
}

// mirrorCall records one mirrored ledger transaction
type mirrorCall struct {
	userID     int64
	accountID  int64
	categoryID int64
	amount     int64
	label      string
}

type fakeMirror struct {
	calls []mirrorCall
}

func (f *fakeMirror) Create(_ context.Context, userID, accountID, categoryID, amount int64, label string, date time.Time) (*transaction.Transaction, error) {
	f.calls = append(f.calls, mirrorCall{userID, accountID, categoryID, amount, label})
	return &transaction.Transaction{
		ID:         int64(len(f.calls)),
		UserID:     userID,
		AccountID:  accountID,
		CategoryID: categoryID,
		Amount:     amount,
		Label:      label,
		Date:       date,
	}, nil
}

type testEnv struct {
	store    *fakeStore
	accounts *fakeAccounts
	resolver *fakeResolver
	mirror   *fakeMirror
	service  *Service
}

func newTestEnv() *testEnv {
	store := newFakeStore()
	accounts := &fakeAccounts{accounts: map[int64]*account.Account{
		1: {ID: 1, UserID: 1, Name: "Cash", Balance: 100000, AllowNegativeBalance: false},
		2: {ID: 2, UserID: 1, Name: "Tight", Balance: 500, AllowNegativeBalance: false},
	}}
	resolver := &fakeResolver{}
	mirror := &fakeMirror{}
	return &testEnv{
		store:    store,
		accounts: accounts,
		resolver: resolver,
		mirror:   mirror,
		service:  NewService(store, accounts, resolver, mirror),
	}
}

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("creance starts active with full remaining", func(t *testing.T) {
		env := newTestEnv()
		o, err := env.service.Create(ctx, 1, &CreateObligationRequest{
			Type:        TypeCreance,
			PersonName:  "Awa",
			TotalAmount: 10000,
			Confidence:  ConfidenceProbable,
		})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if o.RemainingAmount != 10000 || o.Status != StatusActive {
			t.Errorf("got remaining=%d status=%s, want 10000 ACTIVE", o.RemainingAmount, o.Status)
		}
		if o.Confidence != ConfidenceProbable {
			t.Errorf("got confidence %s, want PROBABLE", o.Confidence)
		}
	})

	t.Run("engagement confidence forced to certain", func(t *testing.T) {
		env := newTestEnv()
		o, err := env.service.Create(ctx, 1, &CreateObligationRequest{
			Type:        TypeEngagement,
			PersonName:  "Moussa",
			TotalAmount: 5000,
			Confidence:  ConfidenceUncertain,
		})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if o.Confidence != ConfidenceCertain {
			t.Errorf("got confidence %s, want CERTAIN", o.Confidence)
		}
	})

	t.Run("non-positive amount rejected", func(t *testing.T) {
		env := newTestEnv()
		_, err := env.service.Create(ctx, 1, &CreateObligationRequest{
			Type:        TypeCreance,
			PersonName:  "Awa",
			TotalAmount: 0,
		})
		if !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("got %v, want ErrInvalidAmount", err)
		}
	})

	t.Run("unknown type rejected", func(t *testing.T) {
		env := newTestEnv()
		_, err := env.service.Create(ctx, 1, &CreateObligationRequest{
			Type:        "LOAN",
			PersonName:  "Awa",
			TotalAmount: 100,
		})
		if !errors.Is(err, ErrInvalidType) {
			t.Errorf("got %v, want ErrInvalidType", err)
		}
	})

	t.Run("malformed due date rejected", func(t *testing.T) {
		env := newTestEnv()
		_, err := env.service.Create(ctx, 1, &CreateObligationRequest{
			Type:        TypeCreance,
			PersonName:  "Awa",
			TotalAmount: 100,
			DueDate:     strPtr("15/01/2025"),
		})
		if !errors.Is(err, ErrInvalidDate) {
			t.Errorf("got %v, want ErrInvalidDate", err)
		}
	})

	t.Run("unknown confidence rejected", func(t *testing.T) {
		env := newTestEnv()
		_, err := env.service.Create(ctx, 1, &CreateObligationRequest{
			Type:        TypeCreance,
			PersonName:  "Awa",
			TotalAmount: 100,
			Confidence:  "MAYBE",
		})
		if !errors.Is(err, ErrInvalidConfidence) {
			t.Errorf("got %v, want ErrInvalidConfidence", err)
		}
	})
}

func TestLogPaymentLifecycle(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	o, err := env.service.Create(ctx, 1, &CreateObligationRequest{
		Type:        TypeCreance,
		PersonName:  "Awa",
		TotalAmount: 10000,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// First payment leaves a partially paid obligation.
	result, err := env.service.LogPayment(ctx, 1, o.ID, &LogPaymentRequest{
		Amount:      4000,
		PaymentDate: "2025-01-15",
		AccountID:   1,
	})
	if err != nil {
		t.Fatalf("LogPayment failed: %v", err)
	}
	if result.Obligation.RemainingAmount != 6000 || result.Obligation.Status != StatusPartiallyPaid {
		t.Errorf("got remaining=%d status=%s, want 6000 PARTIALLY_PAID",
			result.Obligation.RemainingAmount, result.Obligation.Status)
	}
	if result.Settled {
		t.Error("expected Settled=false after partial payment")
	}

	// Second payment settles it.
	result, err = env.service.LogPayment(ctx, 1, o.ID, &LogPaymentRequest{
		Amount:      6000,
		PaymentDate: "2025-02-15",
		AccountID:   1,
	})
	if err != nil {
		t.Fatalf("LogPayment failed: %v", err)
	}
	if result.Obligation.RemainingAmount != 0 || result.Obligation.Status != StatusSettled {
		t.Errorf("got remaining=%d status=%s, want 0 SETTLED",
			result.Obligation.RemainingAmount, result.Obligation.Status)
	}
	if !result.Settled {
		t.Error("expected Settled=true after final payment")
	}

	// No transition leaves SETTLED.
	_, err = env.service.LogPayment(ctx, 1, o.ID, &LogPaymentRequest{
		Amount:      1,
		PaymentDate: "2025-03-01",
		AccountID:   1,
	})
	if !errors.Is(err, ErrObligationTerminal) {
		t.Errorf("got %v, want ErrObligationTerminal", err)
	}

	// Payment sum law: total - remaining == sum of payments.
	payments, err := env.service.ListPayments(ctx, o.ID)
	if err != nil {
		t.Fatalf("ListPayments failed: %v", err)
	}
	var sum int64
	for _, p := range payments {
		sum += p.Amount
	}
	if sum != 10000 {
		t.Errorf("payment sum = %d, want 10000", sum)
	}

	// Both payments were mirrored as positive incoming settlements.
	if len(env.mirror.calls) != 2 {
		t.Fatalf("got %d mirrored transactions, want 2", len(env.mirror.calls))
	}
	if env.mirror.calls[0].amount != 4000 || env.mirror.calls[1].amount != 6000 {
		t.Errorf("mirrored amounts = %d, %d, want 4000, 6000",
			env.mirror.calls[0].amount, env.mirror.calls[1].amount)
	}
}

func TestLogPaymentValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	o, _ := env.service.Create(ctx, 1, &CreateObligationRequest{
		Type:        TypeCreance,
		PersonName:  "Awa",
		TotalAmount: 1000,
	})

	t.Run("amount exceeding remaining rejected", func(t *testing.T) {
		_, err := env.service.LogPayment(ctx, 1, o.ID, &LogPaymentRequest{
			Amount:      1001,
			PaymentDate: "2025-01-15",
			AccountID:   1,
		})
		if !errors.Is(err, ErrAmountExceedsRemaining) {
			t.Errorf("got %v, want ErrAmountExceedsRemaining", err)
		}
	})

	t.Run("non-positive amount rejected", func(t *testing.T) {
		_, err := env.service.LogPayment(ctx, 1, o.ID, &LogPaymentRequest{
			Amount:      0,
			PaymentDate: "2025-01-15",
			AccountID:   1,
		})
		if !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("got %v, want ErrInvalidAmount", err)
		}
	})

	t.Run("malformed payment date rejected", func(t *testing.T) {
		_, err := env.service.LogPayment(ctx, 1, o.ID, &LogPaymentRequest{
			Amount:      100,
			PaymentDate: "15 Jan 2025",
			AccountID:   1,
		})
		if !errors.Is(err, ErrInvalidDate) {
			t.Errorf("got %v, want ErrInvalidDate", err)
		}
	})

	t.Run("unknown payment method rejected", func(t *testing.T) {
		_, err := env.service.LogPayment(ctx, 1, o.ID, &LogPaymentRequest{
			Amount:      100,
			PaymentDate: "2025-01-15",
			AccountID:   99,
		})
		if !errors.Is(err, ErrAccountNotFound) {
			t.Errorf("got %v, want ErrAccountNotFound", err)
		}
	})

	t.Run("rejected payment leaves obligation unchanged", func(t *testing.T) {
		current, err := env.service.GetByID(ctx, o.ID)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if current.RemainingAmount != 1000 || current.Status != StatusActive {
			t.Errorf("got remaining=%d status=%s, want 1000 ACTIVE", current.RemainingAmount, current.Status)
		}
	})
}

func TestLogPaymentEngagementGuard(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	o, _ := env.service.Create(ctx, 1, &CreateObligationRequest{
		Type:        TypeEngagement,
		PersonName:  "Moussa",
		TotalAmount: 2000,
	})

	// Account 2 holds 500: paying 600 would overdraw it.
	_, err := env.service.LogPayment(ctx, 1, o.ID, &LogPaymentRequest{
		Amount:      600,
		PaymentDate: "2025-01-15",
		AccountID:   2,
	})
	var insufficient *account.ErrInsufficientBalance
	if !errors.As(err, &insufficient) {
		t.Fatalf("got %v, want ErrInsufficientBalance", err)
	}
	if len(env.mirror.calls) != 0 {
		t.Error("rejected payment must not be mirrored")
	}

	// Within balance: mirrored as a negative outgoing settlement.
	result, err := env.service.LogPayment(ctx, 1, o.ID, &LogPaymentRequest{
		Amount:      500,
		PaymentDate: "2025-01-15",
		AccountID:   2,
	})
	if err != nil {
		t.Fatalf("LogPayment failed: %v", err)
	}
	if result.Obligation.Status != StatusPartiallyPaid {
		t.Errorf("got status %s, want PARTIALLY_PAID", result.Obligation.Status)
	}
	if len(env.mirror.calls) != 1 || env.mirror.calls[0].amount != -500 {
		t.Fatalf("expected one mirrored transaction of -500, got %+v", env.mirror.calls)
	}
	if env.resolver.names[0] != category.NameSettlementPaid {
		t.Errorf("got category %q, want %q", env.resolver.names[0], category.NameSettlementPaid)
	}
}

func TestLogPaymentIdempotency(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	o, _ := env.service.Create(ctx, 1, &CreateObligationRequest{
		Type:        TypeCreance,
		PersonName:  "Awa",
		TotalAmount: 1000,
	})

	req := &LogPaymentRequest{
		Amount:         400,
		PaymentDate:    "2025-01-15",
		AccountID:      1,
		IdempotencyKey: "retry-key-1",
	}

	first, err := env.service.LogPayment(ctx, 1, o.ID, req)
	if err != nil {
		t.Fatalf("LogPayment failed: %v", err)
	}

	// Resubmission with the same key does not double-count.
	second, err := env.service.LogPayment(ctx, 1, o.ID, req)
	if err != nil {
		t.Fatalf("resubmitted LogPayment failed: %v", err)
	}
	if second.Payment.ID != first.Payment.ID {
		t.Errorf("resubmission created a new payment: %d vs %d", second.Payment.ID, first.Payment.ID)
	}
	if second.Obligation.RemainingAmount != 600 {
		t.Errorf("got remaining=%d, want 600", second.Obligation.RemainingAmount)
	}
	if second.Settled {
		t.Error("resubmitted partial payment must not report Settled")
	}
	if len(env.mirror.calls) != 1 {
		t.Errorf("got %d mirrored transactions, want 1", len(env.mirror.calls))
	}
}

func TestLogPaymentIdempotencyAfterSettlement(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	o, _ := env.service.Create(ctx, 1, &CreateObligationRequest{
		Type:        TypeCreance,
		PersonName:  "Awa",
		TotalAmount: 1000,
	})

	req := &LogPaymentRequest{
		Amount:         1000,
		PaymentDate:    "2025-01-15",
		AccountID:      1,
		IdempotencyKey: "settle-key-1",
	}

	first, err := env.service.LogPayment(ctx, 1, o.ID, req)
	if err != nil {
		t.Fatalf("LogPayment failed: %v", err)
	}
	if !first.Settled {
		t.Fatal("expected Settled=true on the settling payment")
	}

	// Retrying the settling payment reports the original outcome rather
	// than a terminal-state rejection.
	second, err := env.service.LogPayment(ctx, 1, o.ID, req)
	if err != nil {
		t.Fatalf("resubmitted LogPayment failed: %v", err)
	}
	if second.Payment.ID != first.Payment.ID {
		t.Errorf("resubmission created a new payment: %d vs %d", second.Payment.ID, first.Payment.ID)
	}
	if !second.Settled || second.Obligation.Status != StatusSettled {
		t.Errorf("got settled=%v status=%s, want true SETTLED", second.Settled, second.Obligation.Status)
	}
	if len(env.mirror.calls) != 1 {
		t.Errorf("got %d mirrored transactions, want 1", len(env.mirror.calls))
	}

	// A different key against the settled obligation is still rejected.
	_, err = env.service.LogPayment(ctx, 1, o.ID, &LogPaymentRequest{
		Amount:         1,
		PaymentDate:    "2025-01-16",
		AccountID:      1,
		IdempotencyKey: "other-key",
	})
	if !errors.Is(err, ErrObligationTerminal) {
		t.Errorf("got %v, want ErrObligationTerminal", err)
	}
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*testEnv, *Obligation) {
		t.Helper()
		env := newTestEnv()
		o, err := env.service.Create(ctx, 1, &CreateObligationRequest{
			Type:        TypeCreance,
			PersonName:  "Awa",
			TotalAmount: 10000,
		})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if _, err := env.service.LogPayment(ctx, 1, o.ID, &LogPaymentRequest{
			Amount:      4000,
			PaymentDate: "2025-01-15",
			AccountID:   1,
		}); err != nil {
			t.Fatalf("LogPayment failed: %v", err)
		}
		return env, o
	}

	t.Run("total change shifts remaining by the same delta", func(t *testing.T) {
		env, o := setup(t)
		updated, err := env.service.Update(ctx, o.ID, &UpdateObligationRequest{
			TotalAmount: int64Ptr(8000),
		})
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if updated.TotalAmount != 8000 || updated.RemainingAmount != 4000 {
			t.Errorf("got total=%d remaining=%d, want 8000 4000", updated.TotalAmount, updated.RemainingAmount)
		}
		if updated.Status != StatusPartiallyPaid {
			t.Errorf("got status %s, want PARTIALLY_PAID", updated.Status)
		}
	})

	t.Run("total below already paid rejected", func(t *testing.T) {
		env, o := setup(t)
		_, err := env.service.Update(ctx, o.ID, &UpdateObligationRequest{
			TotalAmount: int64Ptr(3000),
		})
		if !errors.Is(err, ErrTotalBelowPaid) {
			t.Errorf("got %v, want ErrTotalBelowPaid", err)
		}
	})

	t.Run("total reduced to exactly paid settles", func(t *testing.T) {
		env, o := setup(t)
		updated, err := env.service.Update(ctx, o.ID, &UpdateObligationRequest{
			TotalAmount: int64Ptr(4000),
		})
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if updated.RemainingAmount != 0 || updated.Status != StatusSettled {
			t.Errorf("got remaining=%d status=%s, want 0 SETTLED", updated.RemainingAmount, updated.Status)
		}
	})

	t.Run("cancelled obligation not editable", func(t *testing.T) {
		env, o := setup(t)
		if _, err := env.service.Cancel(ctx, o.ID); err != nil {
			t.Fatalf("Cancel failed: %v", err)
		}
		_, err := env.service.Update(ctx, o.ID, &UpdateObligationRequest{
			PersonName: strPtr("Someone else"),
		})
		if !errors.Is(err, ErrObligationTerminal) {
			t.Errorf("got %v, want ErrObligationTerminal", err)
		}
	})
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	o, _ := env.service.Create(ctx, 1, &CreateObligationRequest{
		Type:        TypeCreance,
		PersonName:  "Awa",
		TotalAmount: 1000,
	})
	if _, err := env.service.LogPayment(ctx, 1, o.ID, &LogPaymentRequest{
		Amount:      300,
		PaymentDate: "2025-01-15",
		AccountID:   1,
	}); err != nil {
		t.Fatalf("LogPayment failed: %v", err)
	}

	cancelled, err := env.service.Cancel(ctx, o.ID)
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	// Cancellation freezes the remaining amount.
	if cancelled.Status != StatusCancelled || cancelled.RemainingAmount != 700 {
		t.Errorf("got status=%s remaining=%d, want CANCELLED 700", cancelled.Status, cancelled.RemainingAmount)
	}

	// Cancelling a terminal obligation is rejected.
	if _, err := env.service.Cancel(ctx, o.ID); !errors.Is(err, ErrObligationTerminal) {
		t.Errorf("got %v, want ErrObligationTerminal", err)
	}
}

func TestSettleOldestEngagementFIFO(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	jan := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)

	if err := env.service.CreateLinked(ctx, 1, TypeEngagement, "Tontine", "cycle 1", 1000, jan, 7); err != nil {
		t.Fatalf("CreateLinked failed: %v", err)
	}
	if err := env.service.CreateLinked(ctx, 1, TypeEngagement, "Tontine", "cycle 2", 1000, feb, 7); err != nil {
		t.Fatalf("CreateLinked failed: %v", err)
	}

	// First contribution hits the January obligation, never February.
	if err := env.service.SettleOldestEngagement(ctx, 7, 1000); err != nil {
		t.Fatalf("SettleOldestEngagement failed: %v", err)
	}

	typ := TypeEngagement
	all, _ := env.service.List(ctx, 1, ListFilter{Type: &typ})
	var janOb, febOb *Obligation
	for _, o := range all {
		if o.DueDate.Equal(jan) {
			janOb = o
		} else {
			febOb = o
		}
	}
	if janOb.Status != StatusSettled || janOb.RemainingAmount != 0 {
		t.Errorf("january: got status=%s remaining=%d, want SETTLED 0", janOb.Status, janOb.RemainingAmount)
	}
	if febOb.Status != StatusActive || febOb.RemainingAmount != 1000 {
		t.Errorf("february: got status=%s remaining=%d, want ACTIVE 1000", febOb.Status, febOb.RemainingAmount)
	}

	// Underpayment leaves the next obligation partially paid.
	if err := env.service.SettleOldestEngagement(ctx, 7, 400); err != nil {
		t.Fatalf("SettleOldestEngagement failed: %v", err)
	}
	febAfter, _ := env.service.GetByID(ctx, febOb.ID)
	if febAfter.Status != StatusPartiallyPaid || febAfter.RemainingAmount != 600 {
		t.Errorf("got status=%s remaining=%d, want PARTIALLY_PAID 600", febAfter.Status, febAfter.RemainingAmount)
	}

	// Overpayment clamps at zero.
	if err := env.service.SettleOldestEngagement(ctx, 7, 5000); err != nil {
		t.Fatalf("SettleOldestEngagement failed: %v", err)
	}
	febFinal, _ := env.service.GetByID(ctx, febOb.ID)
	if febFinal.Status != StatusSettled || febFinal.RemainingAmount != 0 {
		t.Errorf("got status=%s remaining=%d, want SETTLED 0", febFinal.Status, febFinal.RemainingAmount)
	}

	// With everything settled, a further contribution is a no-op.
	if err := env.service.SettleOldestEngagement(ctx, 7, 1000); err != nil {
		t.Errorf("expected no-op, got %v", err)
	}
}

func TestForceSettleCreance(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	payout := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	if err := env.service.CreateLinked(ctx, 1, TypeCreance, "Tontine", "payout", 3000, payout, 7); err != nil {
		t.Fatalf("CreateLinked failed: %v", err)
	}

	// Partial payment history does not matter: the pot settles in full.
	creance, _ := env.store.CreanceForTontine(ctx, 7)
	if err := env.store.SetRemaining(ctx, creance.ID, 2000, StatusPartiallyPaid); err != nil {
		t.Fatalf("SetRemaining failed: %v", err)
	}

	if err := env.service.ForceSettleCreance(ctx, 7); err != nil {
		t.Fatalf("ForceSettleCreance failed: %v", err)
	}

	after, _ := env.service.GetByID(ctx, creance.ID)
	if after.RemainingAmount != 0 || after.Status != StatusSettled {
		t.Errorf("got remaining=%d status=%s, want 0 SETTLED", after.RemainingAmount, after.Status)
	}
}

func TestDeleteByTontine(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	due := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	_ = env.service.CreateLinked(ctx, 1, TypeEngagement, "Tontine", "cycle 1", 1000, due, 7)
	_ = env.service.CreateLinked(ctx, 1, TypeCreance, "Tontine", "payout", 3000, due, 7)
	if _, err := env.service.Create(ctx, 1, &CreateObligationRequest{
		Type:        TypeCreance,
		PersonName:  "Unrelated",
		TotalAmount: 500,
	}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := env.service.DeleteByTontine(ctx, 7); err != nil {
		t.Fatalf("DeleteByTontine failed: %v", err)
	}

	all, _ := env.service.List(ctx, 1, ListFilter{})
	if len(all) != 1 || all[0].PersonName != "Unrelated" {
		t.Errorf("expected only the unrelated obligation to survive, got %d", len(all))
	}
}
