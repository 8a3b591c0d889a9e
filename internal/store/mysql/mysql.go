// Package mysql implements the durable stores on MySQL. Single-use
// consumption and session transitions are expressed as conditional
// UPDATEs so the database row is the serialization point; no
// application-level locking is needed.
package mysql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

// schemaStatements creates the tables this package needs. created_at
// is always set by the INSERTs (UTC_TIMESTAMP() is not valid as a bare
// DATETIME column default), so the columns carry no defaults here.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS key_records (
		transaction_id VARCHAR(64) NOT NULL PRIMARY KEY,
		secure_key     VARCHAR(64) NOT NULL,
		used           TINYINT(1)  NOT NULL DEFAULT 0,
		used_at        DATETIME    NULL,
		created_at     DATETIME    NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		ticket_id    VARCHAR(64)  NOT NULL PRIMARY KEY,
		name         VARCHAR(128) NOT NULL,
		phone        VARCHAR(32)  NOT NULL,
		duration_sec INT          NOT NULL,
		state        VARCHAR(16)  NOT NULL,
		created_at   DATETIME     NOT NULL,
		started_at   DATETIME     NULL,
		ended_at     DATETIME     NULL,
		KEY idx_sessions_state (state)
	)`,
	`CREATE TABLE IF NOT EXISTS ledger_entries (
		id             BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		recorded_at    DATETIME     NOT NULL,
		name           VARCHAR(128) NOT NULL,
		phone          VARCHAR(32)  NOT NULL,
		transaction_id VARCHAR(64)  NOT NULL,
		amount_inr     INT          NOT NULL,
		duration_min   INT          NOT NULL,
		status         VARCHAR(16)  NOT NULL,
		payment_mode   VARCHAR(16)  NOT NULL,
		plan           VARCHAR(32)  NOT NULL
	)`,
}

// EnsureSchema creates the tables this package needs. Statements are
// idempotent so it is safe to run at every boot.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, q := range schemaStatements {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// isDuplicate reports whether err is a MySQL duplicate-key violation.
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
