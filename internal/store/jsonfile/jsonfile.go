// Package jsonfile is the zero-infrastructure store backend: state
// lives in JSON files inside a data directory. Every mutation rewrites
// the affected file through a temp-file-plus-rename so a crash leaves
// either the old or the new state, never a torn write. A single mutex
// serializes all mutations, which also gives VerifyAndConsume its
// at-most-one-consumer guarantee; gate volume is far below anything
// that would make the coarse lock matter.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/iliyamo/venue-entry-service/internal/model"
	"github.com/iliyamo/venue-entry-service/internal/store"
)

const (
	keysFile     = "key_records.json"
	sessionsFile = "sessions.json"
	ledgerFile   = "ledger.jsonl"
)

// Store implements store.KeyRegistry, store.SessionStore and
// store.Ledger on top of a directory of JSON files.
type Store struct {
	mu       sync.Mutex
	dir      string
	keys     map[string]model.KeyRecord
	sessions map[string]model.Session
}

// Open loads (or initializes) the state files under dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	s := &Store{
		dir:      dir,
		keys:     map[string]model.KeyRecord{},
		sessions: map[string]model.Session{},
	}
	if err := loadJSON(filepath.Join(dir, keysFile), &s.keys); err != nil {
		return nil, fmt.Errorf("load key records: %w", err)
	}
	if err := loadJSON(filepath.Join(dir, sessionsFile), &s.sessions); err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}
	return s, nil
}

func loadJSON(path string, dst any) error {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

// writeJSON persists v at path atomically: marshal, write a sibling
// temp file, fsync, rename over the old file.
func writeJSON(path string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (s *Store) persistKeys() error {
	return writeJSON(filepath.Join(s.dir, keysFile), s.keys)
}

func (s *Store) persistSessions() error {
	return writeJSON(filepath.Join(s.dir, sessionsFile), s.sessions)
}

// ----- store.KeyRegistry -----

func (s *Store) Register(ctx context.Context, transactionID, secureKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[transactionID]; ok {
		return store.ErrAlreadyExists
	}
	rec := model.KeyRecord{
		TransactionID: transactionID,
		SecureKey:     secureKey,
		CreatedAt:     time.Now().UTC(),
	}
	s.keys[transactionID] = rec
	if err := s.persistKeys(); err != nil {
		delete(s.keys, transactionID)
		return err
	}
	return nil
}

func (s *Store) VerifyAndConsume(ctx context.Context, transactionID, secureKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.keys[transactionID]
	if !ok {
		return store.ErrNotFound
	}
	if rec.Used {
		return store.ErrAlreadyUsed
	}
	if rec.SecureKey != secureKey {
		return store.ErrKeyMismatch
	}
	now := time.Now().UTC()
	rec.Used = true
	rec.UsedAt = &now
	s.keys[transactionID] = rec
	if err := s.persistKeys(); err != nil {
		// Roll back in memory: the consumption did not happen until the
		// write is durable.
		rec.Used = false
		rec.UsedAt = nil
		s.keys[transactionID] = rec
		return err
	}
	return nil
}

func (s *Store) GetKeyRecord(ctx context.Context, transactionID string) (model.KeyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.keys[transactionID]
	if !ok {
		return model.KeyRecord{}, store.ErrNotFound
	}
	return rec, nil
}

// ----- store.SessionStore -----

func (s *Store) Create(ctx context.Context, ticketID, name, phone string, duration time.Duration) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[ticketID]; ok {
		return model.Session{}, store.ErrAlreadyExists
	}
	sess := model.Session{
		TicketID:  ticketID,
		Name:      name,
		Phone:     phone,
		Duration:  duration,
		State:     model.StateScheduled,
		CreatedAt: time.Now().UTC(),
	}
	s.sessions[ticketID] = sess
	if err := s.persistSessions(); err != nil {
		delete(s.sessions, ticketID)
		return model.Session{}, err
	}
	return sess, nil
}

func (s *Store) Transition(ctx context.Context, ticketID string, newState model.SessionState, at time.Time) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[ticketID]
	if !ok {
		return model.Session{}, store.ErrNotFound
	}
	if !model.CanTransition(sess.State, newState) {
		return model.Session{}, store.ErrInvalidTransition
	}
	prev := sess
	at = at.UTC()
	sess.State = newState
	switch newState {
	case model.StateRunning:
		sess.StartedAt = &at
	case model.StateEnded:
		sess.EndedAt = &at
	}
	s.sessions[ticketID] = sess
	if err := s.persistSessions(); err != nil {
		s.sessions[ticketID] = prev
		return model.Session{}, err
	}
	return sess, nil
}

func (s *Store) Get(ctx context.Context, ticketID string) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[ticketID]
	if !ok {
		return model.Session{}, store.ErrNotFound
	}
	return sess, nil
}

func (s *Store) ListActive(ctx context.Context) ([]model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Session
	for _, sess := range s.sessions {
		if sess.State == model.StateRunning || sess.State == model.StateWarningSent {
			out = append(out, sess)
		}
	}
	return out, nil
}

// ----- store.Ledger -----

func (s *Store) Append(ctx context.Context, e store.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(s.dir, ledgerFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(append(raw, '\n')); err != nil {
		return err
	}
	return f.Sync()
}

func (s *Store) Totals(ctx context.Context) (store.Totals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := os.ReadFile(filepath.Join(s.dir, ledgerFile))
	if os.IsNotExist(err) {
		return store.Totals{}, nil
	}
	if err != nil {
		return store.Totals{}, err
	}
	var t store.Totals
	dec := json.NewDecoder(bytes.NewReader(raw))
	for dec.More() {
		var e store.LedgerEntry
		if err := dec.Decode(&e); err != nil {
			return store.Totals{}, fmt.Errorf("ledger line %d: %w", t.Entries+1, err)
		}
		t.Entries++
		t.TotalINR += e.AmountINR
	}
	return t, nil
}
