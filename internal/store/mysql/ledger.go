package mysql

import (
	"context"
	"database/sql"

	"github.com/iliyamo/venue-entry-service/internal/store"
)

// Ledger implements store.Ledger on the ledger_entries table. One row
// per issued credential; the core only appends and aggregates.
type Ledger struct{ DB *sql.DB }

func NewLedger(db *sql.DB) *Ledger { return &Ledger{DB: db} }

func (l *Ledger) Append(ctx context.Context, e store.LedgerEntry) error {
	_, err := l.DB.ExecContext(ctx,
		`INSERT INTO ledger_entries
		 (recorded_at, name, phone, transaction_id, amount_inr, duration_min, status, payment_mode, plan)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Timestamp.UTC(), e.Name, e.Phone, e.TransactionID,
		e.AmountINR, e.DurationMin, e.Status, e.PaymentMode, e.Plan)
	return err
}

func (l *Ledger) Totals(ctx context.Context) (store.Totals, error) {
	var t store.Totals
	var total sql.NullInt64
	err := l.DB.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(amount_inr), 0) FROM ledger_entries`).
		Scan(&t.Entries, &total)
	if err != nil {
		return store.Totals{}, err
	}
	t.TotalINR = int(total.Int64)
	return t, nil
}
