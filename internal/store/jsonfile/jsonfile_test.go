package jsonfile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/venue-entry-service/internal/model"
	"github.com/iliyamo/venue-entry-service/internal/store"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	if err := s.Register(ctx, "TXN1", "KEYA"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := s.Register(ctx, "TXN1", "KEYB"); !errors.Is(err, store.ErrAlreadyExists) {
		t.Fatalf("duplicate register: got %v, want ErrAlreadyExists", err)
	}
	// The original key must survive the rejected overwrite attempt.
	rec, err := s.GetKeyRecord(ctx, "TXN1")
	if err != nil {
		t.Fatalf("GetKeyRecord: %v", err)
	}
	if rec.SecureKey != "KEYA" {
		t.Fatalf("secure key clobbered: got %q", rec.SecureKey)
	}
}

func TestVerifyAndConsumeOutcomes(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	if err := s.Register(ctx, "TXN1", "KEYA"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := s.VerifyAndConsume(ctx, "NOPE", "KEYA"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("unknown txn: got %v, want ErrNotFound", err)
	}
	if err := s.VerifyAndConsume(ctx, "TXN1", "KEYA"); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if err := s.VerifyAndConsume(ctx, "TXN1", "KEYA"); !errors.Is(err, store.ErrAlreadyUsed) {
		t.Fatalf("replay: got %v, want ErrAlreadyUsed", err)
	}
	rec, err := s.GetKeyRecord(ctx, "TXN1")
	if err != nil {
		t.Fatalf("GetKeyRecord: %v", err)
	}
	if !rec.Used || rec.UsedAt == nil {
		t.Fatalf("record not marked used: %+v", rec)
	}
}

func TestKeyMismatchDoesNotBurnRecord(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	if err := s.Register(ctx, "TXN2", "KEYB"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := s.VerifyAndConsume(ctx, "TXN2", "WRONG"); !errors.Is(err, store.ErrKeyMismatch) {
		t.Fatalf("mismatch: got %v, want ErrKeyMismatch", err)
	}
	// The honest retry with the right key still succeeds.
	if err := s.VerifyAndConsume(ctx, "TXN2", "KEYB"); err != nil {
		t.Fatalf("retry after mismatch: %v", err)
	}
}

func TestVerifyAndConsumeSingleWinner(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	if err := s.Register(ctx, "TXN3", "KEYC"); err != nil {
		t.Fatalf("register: %v", err)
	}

	const callers = 32
	var wg sync.WaitGroup
	results := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.VerifyAndConsume(ctx, "TXN3", "KEYC")
		}(i)
	}
	wg.Wait()

	consumed := 0
	for i, err := range results {
		switch {
		case err == nil:
			consumed++
		case errors.Is(err, store.ErrAlreadyUsed):
		default:
			t.Fatalf("caller %d: unexpected result %v", i, err)
		}
	}
	if consumed != 1 {
		t.Fatalf("got %d consumers, want exactly 1", consumed)
	}
}

func TestStateSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Register(ctx, "TXN4", "KEYD"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := s.VerifyAndConsume(ctx, "TXN4", "KEYD"); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if _, err := s.Create(ctx, "TXN4", "Ravi", "919911223344", 15*time.Minute); err != nil {
		t.Fatalf("create session: %v", err)
	}
	if _, err := s.Transition(ctx, "TXN4", model.StateRunning, time.Now()); err != nil {
		t.Fatalf("transition: %v", err)
	}

	// A crash-restart must see the consumed key and the running session.
	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if err := reopened.VerifyAndConsume(ctx, "TXN4", "KEYD"); !errors.Is(err, store.ErrAlreadyUsed) {
		t.Fatalf("replay after reopen: got %v, want ErrAlreadyUsed", err)
	}
	active, err := reopened.ListActive(ctx)
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(active) != 1 || active[0].TicketID != "TXN4" || active[0].State != model.StateRunning {
		t.Fatalf("active sessions after reopen: %+v", active)
	}
	if active[0].StartedAt == nil {
		t.Fatal("started-at lost across reopen")
	}
}

func TestTransitionLegality(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	now := time.Now()

	if _, err := s.Create(ctx, "T1", "Mira", "918800990011", 10*time.Minute); err != nil {
		t.Fatalf("create: %v", err)
	}

	cases := []struct {
		name    string
		to      model.SessionState
		wantErr error
	}{
		{"scheduled to warning is illegal", model.StateWarningSent, store.ErrInvalidTransition},
		{"scheduled to ended is illegal", model.StateEnded, store.ErrInvalidTransition},
		{"scheduled to running", model.StateRunning, nil},
		{"running to running is illegal", model.StateRunning, store.ErrInvalidTransition},
		{"running to warning", model.StateWarningSent, nil},
		{"warning to running is illegal", model.StateRunning, store.ErrInvalidTransition},
		{"warning to ended", model.StateEnded, nil},
		{"ended is terminal", model.StateRunning, store.ErrInvalidTransition},
	}
	for _, tc := range cases {
		_, err := s.Transition(ctx, "T1", tc.to, now)
		if !errors.Is(err, tc.wantErr) {
			t.Fatalf("%s: got %v, want %v", tc.name, err, tc.wantErr)
		}
	}

	if _, err := s.Transition(ctx, "missing", model.StateRunning, now); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("missing ticket: got %v, want ErrNotFound", err)
	}
}

func TestRunningStraightToEnded(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	now := time.Now()

	if _, err := s.Create(ctx, "T2", "Dev", "917700880099", 3*time.Minute); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Transition(ctx, "T2", model.StateRunning, now); err != nil {
		t.Fatalf("to running: %v", err)
	}
	sess, err := s.Transition(ctx, "T2", model.StateEnded, now.Add(3*time.Minute))
	if err != nil {
		t.Fatalf("to ended: %v", err)
	}
	if sess.State != model.StateEnded || sess.EndedAt == nil {
		t.Fatalf("session after end: %+v", sess)
	}
}

func TestLedgerTotals(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	entries := []store.LedgerEntry{
		{Timestamp: time.Now(), Name: "Asha", TransactionID: "A", AmountINR: 50, DurationMin: 15, Status: "Pending", PaymentMode: "online", Plan: "Premium"},
		{Timestamp: time.Now(), Name: "Ravi", TransactionID: "B", AmountINR: 40, DurationMin: 15, Status: "Pending", PaymentMode: "cash", Plan: "Standard"},
	}
	for _, e := range entries {
		if err := s.Append(ctx, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	got, err := s.Totals(ctx)
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if got.Entries != 2 || got.TotalINR != 90 {
		t.Fatalf("totals: %+v", got)
	}
}
