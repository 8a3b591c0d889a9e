package mysql

import (
	"context"
	"database/sql"

	"github.com/iliyamo/venue-entry-service/internal/model"
	"github.com/iliyamo/venue-entry-service/internal/store"
)

// KeyRegistry implements store.KeyRegistry on the key_records table.
type KeyRegistry struct{ DB *sql.DB }

func NewKeyRegistry(db *sql.DB) *KeyRegistry { return &KeyRegistry{DB: db} }

// Register inserts a fresh unused record. The primary key carries the
// never-overwrite rule: a duplicate insert maps to ErrAlreadyExists.
func (r *KeyRegistry) Register(ctx context.Context, transactionID, secureKey string) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO key_records (transaction_id, secure_key, used, created_at)
		 VALUES (?, ?, 0, UTC_TIMESTAMP())`,
		transactionID, secureKey)
	if isDuplicate(err) {
		return store.ErrAlreadyExists
	}
	return err
}

// VerifyAndConsume marks the record used with a single conditional
// UPDATE. The row-level write lock makes it atomic: of any number of
// concurrent callers presenting the same transaction id, exactly one
// UPDATE matches. Only when no row matched do we read the record back
// to tell NotFound, AlreadyUsed and KeyMismatch apart.
func (r *KeyRegistry) VerifyAndConsume(ctx context.Context, transactionID, secureKey string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE key_records SET used = 1, used_at = UTC_TIMESTAMP()
		 WHERE transaction_id = ? AND secure_key = ? AND used = 0`,
		transactionID, secureKey)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	var storedKey string
	var used bool
	err = r.DB.QueryRowContext(ctx,
		`SELECT secure_key, used FROM key_records WHERE transaction_id = ?`,
		transactionID).Scan(&storedKey, &used)
	if err == sql.ErrNoRows {
		return store.ErrNotFound
	}
	if err != nil {
		return err
	}
	if used {
		return store.ErrAlreadyUsed
	}
	return store.ErrKeyMismatch
}

func (r *KeyRegistry) GetKeyRecord(ctx context.Context, transactionID string) (model.KeyRecord, error) {
	var (
		rec    model.KeyRecord
		usedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		`SELECT transaction_id, secure_key, used, used_at, created_at
		 FROM key_records WHERE transaction_id = ?`,
		transactionID).Scan(&rec.TransactionID, &rec.SecureKey, &rec.Used, &usedAt, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return model.KeyRecord{}, store.ErrNotFound
	}
	if err != nil {
		return model.KeyRecord{}, err
	}
	if usedAt.Valid {
		t := usedAt.Time
		rec.UsedAt = &t
	}
	return rec, nil
}
