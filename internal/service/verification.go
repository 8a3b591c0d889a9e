// Package service holds the orchestration layer between the HTTP
// handlers and the stores: token verification, credential issuance and
// the notification publisher.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/venue-entry-service/internal/model"
	"github.com/iliyamo/venue-entry-service/internal/store"
	"github.com/iliyamo/venue-entry-service/internal/token"
)

// RejectReason classifies why a scanned token was refused. Each value
// gets a distinct operator-visible message at the gate.
type RejectReason string

const (
	ReasonTampered           RejectReason = "tampered"
	ReasonMalformed          RejectReason = "malformed"
	ReasonExpiredFormat      RejectReason = "expired_format"
	ReasonDuplicateEntry     RejectReason = "duplicate_entry"
	ReasonUnknownTransaction RejectReason = "unknown_transaction"
)

// Outcome is the result of presenting a token at the gate.
type Outcome struct {
	Admitted   bool
	Reason     RejectReason
	Credential model.Credential // populated when decode succeeded
}

// Verifier answers "is this token valid and unused" and consumes it.
type Verifier struct {
	codec *token.Codec
	keys  store.KeyRegistry
}

func NewVerifier(codec *token.Codec, keys store.KeyRegistry) *Verifier {
	return &Verifier{codec: codec, keys: keys}
}

// Verify decodes the token and atomically consumes the matching
// registry record. Expected failures (replay, mismatch, unknown id,
// bad token) come back as a rejected Outcome; only storage trouble is
// an error, and then nothing has been consumed.
func (v *Verifier) Verify(ctx context.Context, tok string) (Outcome, error) {
	cred, err := v.codec.Decode(tok)
	if err != nil {
		switch {
		case errors.Is(err, token.ErrUnknownVersion):
			return Outcome{Reason: ReasonExpiredFormat}, nil
		case errors.Is(err, token.ErrMalformed):
			return Outcome{Reason: ReasonMalformed}, nil
		default:
			return Outcome{Reason: ReasonTampered}, nil
		}
	}

	err = v.keys.VerifyAndConsume(ctx, cred.TransactionID, cred.SecureKey)
	switch {
	case err == nil:
		return Outcome{Admitted: true, Credential: cred}, nil
	case errors.Is(err, store.ErrAlreadyUsed):
		return Outcome{Reason: ReasonDuplicateEntry, Credential: cred}, nil
	case errors.Is(err, store.ErrKeyMismatch):
		// Key inside an authentic token never mismatches unless the
		// registry was reissued underneath it; treat it as tampering.
		return Outcome{Reason: ReasonTampered, Credential: cred}, nil
	case errors.Is(err, store.ErrNotFound):
		return Outcome{Reason: ReasonUnknownTransaction, Credential: cred}, nil
	default:
		return Outcome{}, fmt.Errorf("verify %s: %w", cred.TransactionID, err)
	}
}
