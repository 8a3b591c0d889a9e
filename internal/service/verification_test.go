package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"testing"
	"time"

	"github.com/iliyamo/venue-entry-service/internal/model"
	"github.com/iliyamo/venue-entry-service/internal/store/jsonfile"
	"github.com/iliyamo/venue-entry-service/internal/token"
)

func newCodec(t *testing.T) *token.Codec {
	t.Helper()
	key := make([]byte, token.KeySize)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("rand: %v", err)
	}
	c, err := token.NewCodec(key)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	return c
}

func issueToken(t *testing.T, c *token.Codec, st *jsonfile.Store, txnID, secureKey string) string {
	t.Helper()
	if err := st.Register(context.Background(), txnID, secureKey); err != nil {
		t.Fatalf("register: %v", err)
	}
	tok, err := c.Encode(model.Credential{
		TransactionID: txnID,
		Name:          "Asha",
		Phone:         "919900112233",
		Plan:          "Premium",
		DurationMin:   15,
		AmountINR:     50,
		SecureKey:     secureKey,
		IssuedAt:      time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return tok
}

func TestVerifyAdmitsOnceThenRejectsReplay(t *testing.T) {
	st, err := jsonfile.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	codec := newCodec(t)
	v := NewVerifier(codec, st)
	ctx := context.Background()

	tok := issueToken(t, codec, st, "TXN1", "00000000000042")

	first, err := v.Verify(ctx, tok)
	if err != nil {
		t.Fatalf("first verify: %v", err)
	}
	if !first.Admitted {
		t.Fatalf("first verify rejected: %+v", first)
	}
	if first.Credential.TransactionID != "TXN1" || first.Credential.Name != "Asha" {
		t.Fatalf("credential details lost: %+v", first.Credential)
	}

	second, err := v.Verify(ctx, tok)
	if err != nil {
		t.Fatalf("second verify: %v", err)
	}
	if second.Admitted || second.Reason != ReasonDuplicateEntry {
		t.Fatalf("replay outcome: %+v", second)
	}
}

func TestVerifyRejections(t *testing.T) {
	st, err := jsonfile.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	codec := newCodec(t)
	v := NewVerifier(codec, st)
	ctx := context.Background()

	// A well-formed token whose transaction was never registered.
	orphan, err := codec.Encode(model.Credential{
		TransactionID: "GHOST", SecureKey: "00000000000001", IssuedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	// A token sealed by someone else's key.
	foreign, err := newCodec(t).Encode(model.Credential{
		TransactionID: "TXN9", SecureKey: "00000000000009", IssuedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	// An authentic token carrying a key the registry does not hold.
	if err := st.Register(ctx, "TXN2", "00000000000002"); err != nil {
		t.Fatalf("register: %v", err)
	}
	mismatched, err := codec.Encode(model.Credential{
		TransactionID: "TXN2", SecureKey: "99999999999999", IssuedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	// A future-format token this build does not understand.
	raw := make([]byte, 24)
	raw[0] = 0x02
	futureFormat := base64.RawURLEncoding.EncodeToString(raw)

	cases := []struct {
		name string
		tok  string
		want RejectReason
	}{
		{"unregistered transaction", orphan, ReasonUnknownTransaction},
		{"foreign key", foreign, ReasonTampered},
		{"registry key mismatch", mismatched, ReasonTampered},
		{"garbage", "%%%", ReasonTampered},
		{"unknown format version", futureFormat, ReasonExpiredFormat},
	}
	for _, tc := range cases {
		out, err := v.Verify(ctx, tc.tok)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if out.Admitted || out.Reason != tc.want {
			t.Fatalf("%s: got %+v, want reason %s", tc.name, out, tc.want)
		}
	}

	// The mismatch must not have burned TXN2: the real token still works.
	real, err := codec.Encode(model.Credential{
		TransactionID: "TXN2", SecureKey: "00000000000002", IssuedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := v.Verify(ctx, real)
	if err != nil {
		t.Fatalf("verify real token: %v", err)
	}
	if !out.Admitted {
		t.Fatalf("mismatch burned the record: %+v", out)
	}
}
