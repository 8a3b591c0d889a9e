// Package store defines the durable state surfaces of the service:
// the credential key registry, the session store and the entry ledger.
// Two implementations exist — MySQL for the normal deployment and a
// JSON-file store for single-machine setups and tests. Both must obey
// the same contracts: mutations are flushed before they return, and
// VerifyAndConsume hands out at most one successful consumption per
// transaction id no matter how many callers race.
package store

import (
	"context"
	"time"

	"github.com/iliyamo/venue-entry-service/internal/model"
)

// KeyRegistry maps transaction ids to issued-credential records and
// provides the atomic single-use check.
type KeyRegistry interface {
	// Register inserts a fresh unused record. ErrAlreadyExists when the
	// transaction id already has one; existing records are never
	// overwritten.
	Register(ctx context.Context, transactionID, secureKey string) error

	// VerifyAndConsume looks up the record and, when present, unused
	// and matching, atomically marks it used. Exactly one concurrent
	// caller may get nil; the rest see ErrAlreadyUsed. A key mismatch
	// does not consume the record.
	VerifyAndConsume(ctx context.Context, transactionID, secureKey string) error

	// GetKeyRecord returns the record for auditing and dashboards.
	GetKeyRecord(ctx context.Context, transactionID string) (model.KeyRecord, error)
}

// SessionStore is the durable source of truth for entry windows. The
// scheduler's in-memory timers are derived from it and disposable.
type SessionStore interface {
	// Create inserts a session in StateScheduled. ErrAlreadyExists when
	// the ticket id already has one.
	Create(ctx context.Context, ticketID, name, phone string, duration time.Duration) (model.Session, error)

	// Transition moves a session into newState at the given instant.
	// Legality is decided by model.CanTransition; an illegal move is
	// ErrInvalidTransition, never a silent coercion. The started-at
	// timestamp is stamped on the move into Running, ended-at on the
	// move into Ended.
	Transition(ctx context.Context, ticketID string, newState model.SessionState, at time.Time) (model.Session, error)

	Get(ctx context.Context, ticketID string) (model.Session, error)

	// ListActive returns sessions in Running or WarningSent, in no
	// particular order. Used at startup to rebuild the timer set.
	ListActive(ctx context.Context) ([]model.Session, error)
}

// LedgerEntry is the flattened row recorded per issued credential.
// Column meaning mirrors the operator's bookkeeping sheet; the core
// only ever writes it.
type LedgerEntry struct {
	Timestamp     time.Time `json:"timestamp"`
	Name          string    `json:"name"`
	Phone         string    `json:"phone"`
	TransactionID string    `json:"transaction_id"`
	AmountINR     int       `json:"amount"`
	DurationMin   int       `json:"duration"`
	Status        string    `json:"status"`
	PaymentMode   string    `json:"payment_mode"`
	Plan          string    `json:"plan"`
}

// Totals aggregates the ledger for the stats dashboard.
type Totals struct {
	Entries  int `json:"entries"`
	TotalINR int `json:"total_inr"`
}

// Ledger receives one entry per issued credential.
type Ledger interface {
	Append(ctx context.Context, e LedgerEntry) error
	Totals(ctx context.Context) (Totals, error)
}
