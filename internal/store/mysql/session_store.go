package mysql

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/venue-entry-service/internal/model"
	"github.com/iliyamo/venue-entry-service/internal/store"
)

// SessionStore implements store.SessionStore on the sessions table.
// Transitions are conditional UPDATEs whose WHERE clause names the
// legal source states, so an illegal move simply matches no row and
// the ended-vs-missing distinction is made on the follow-up read.
type SessionStore struct{ DB *sql.DB }

func NewSessionStore(db *sql.DB) *SessionStore { return &SessionStore{DB: db} }

func (r *SessionStore) Create(ctx context.Context, ticketID, name, phone string, duration time.Duration) (model.Session, error) {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO sessions (ticket_id, name, phone, duration_sec, state, created_at)
		 VALUES (?, ?, ?, ?, ?, UTC_TIMESTAMP())`,
		ticketID, name, phone, int64(duration/time.Second), model.StateScheduled)
	if isDuplicate(err) {
		return model.Session{}, store.ErrAlreadyExists
	}
	if err != nil {
		return model.Session{}, err
	}
	return r.Get(ctx, ticketID)
}

func (r *SessionStore) Transition(ctx context.Context, ticketID string, newState model.SessionState, at time.Time) (model.Session, error) {
	sources := model.TransitionSources(newState)
	if len(sources) == 0 {
		return model.Session{}, store.ErrInvalidTransition
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(sources)), ",")

	q := `UPDATE sessions SET state = ?`
	args := []any{string(newState)}
	switch newState {
	case model.StateRunning:
		q += `, started_at = ?`
		args = append(args, at.UTC())
	case model.StateEnded:
		q += `, ended_at = ?`
		args = append(args, at.UTC())
	}
	q += ` WHERE ticket_id = ? AND state IN (` + placeholders + `)`
	args = append(args, ticketID)
	for _, s := range sources {
		args = append(args, string(s))
	}

	res, err := r.DB.ExecContext(ctx, q, args...)
	if err != nil {
		return model.Session{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Session{}, err
	}
	if n == 0 {
		// Either the ticket does not exist or it is in a state the
		// transition is not legal from.
		if _, getErr := r.Get(ctx, ticketID); getErr != nil {
			return model.Session{}, getErr
		}
		return model.Session{}, store.ErrInvalidTransition
	}
	return r.Get(ctx, ticketID)
}

func (r *SessionStore) Get(ctx context.Context, ticketID string) (model.Session, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT ticket_id, name, phone, duration_sec, state, created_at, started_at, ended_at
		 FROM sessions WHERE ticket_id = ?`, ticketID)
	return scanSession(row)
}

func (r *SessionStore) ListActive(ctx context.Context) ([]model.Session, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT ticket_id, name, phone, duration_sec, state, created_at, started_at, ended_at
		 FROM sessions WHERE state IN (?, ?)`,
		model.StateRunning, model.StateWarningSent)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

type rowScanner interface{ Scan(dest ...any) error }

func scanSession(row rowScanner) (model.Session, error) {
	var (
		sess        model.Session
		durationSec int64
		startedAt   sql.NullTime
		endedAt     sql.NullTime
	)
	err := row.Scan(&sess.TicketID, &sess.Name, &sess.Phone, &durationSec,
		&sess.State, &sess.CreatedAt, &startedAt, &endedAt)
	if err == sql.ErrNoRows {
		return model.Session{}, store.ErrNotFound
	}
	if err != nil {
		return model.Session{}, err
	}
	sess.Duration = time.Duration(durationSec) * time.Second
	if startedAt.Valid {
		t := startedAt.Time
		sess.StartedAt = &t
	}
	if endedAt.Valid {
		t := endedAt.Time
		sess.EndedAt = &t
	}
	return sess, nil
}
