package token

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/iliyamo/venue-entry-service/internal/model"
)

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("rand: %v", err)
	}
	c, err := NewCodec(key)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	return c
}

func sampleCredential() model.Credential {
	return model.Credential{
		TransactionID: "TXN-20250101-0001",
		Name:          "Asha",
		Phone:         "919900112233",
		Plan:          "Premium",
		DurationMin:   15,
		AmountINR:     50,
		SecureKey:     "00431577260941",
		IssuedAt:      time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	c := newTestCodec(t)
	cred := sampleCredential()

	tok, err := c.Encode(cred)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := c.Decode(tok)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != cred {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, cred)
	}
}

func TestEncodeIsUnlinkable(t *testing.T) {
	c := newTestCodec(t)
	cred := sampleCredential()
	a, err := c.Encode(cred)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	b, err := c.Encode(cred)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if a == b {
		t.Fatal("two encodes of the same credential produced identical tokens")
	}
}

func TestDecodeRejectsBitFlips(t *testing.T) {
	c := newTestCodec(t)
	tok, err := c.Encode(sampleCredential())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	raw, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil {
		t.Fatalf("decode base64: %v", err)
	}
	// Flip every bit position past the version byte; each result must
	// be rejected as tampered, never accepted or misparsed.
	for i := 1; i < len(raw); i++ {
		for bit := 0; bit < 8; bit++ {
			mut := make([]byte, len(raw))
			copy(mut, raw)
			mut[i] ^= 1 << bit
			_, err := c.Decode(base64.RawURLEncoding.EncodeToString(mut))
			if !errors.Is(err, ErrTampered) {
				t.Fatalf("flip byte %d bit %d: got %v, want ErrTampered", i, bit, err)
			}
		}
	}
}

func TestDecodeUnknownVersion(t *testing.T) {
	c := newTestCodec(t)
	tok, err := c.Encode(sampleCredential())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	raw, _ := base64.RawURLEncoding.DecodeString(tok)
	raw[0] = 0x7f
	_, err = c.Decode(base64.RawURLEncoding.EncodeToString(raw))
	if !errors.Is(err, ErrUnknownVersion) {
		t.Fatalf("got %v, want ErrUnknownVersion", err)
	}
}

func TestDecodeGarbage(t *testing.T) {
	c := newTestCodec(t)
	cases := []string{"", "!!!not-base64!!!", "AQ", base64.RawURLEncoding.EncodeToString([]byte{formatV1, 1, 2, 3})}
	for _, in := range cases {
		if _, err := c.Decode(in); !errors.Is(err, ErrTampered) {
			t.Errorf("Decode(%q): got %v, want ErrTampered", in, err)
		}
	}
}

func TestDecodeWrongKey(t *testing.T) {
	a := newTestCodec(t)
	b := newTestCodec(t)
	tok, err := a.Encode(sampleCredential())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := b.Decode(tok); !errors.Is(err, ErrTampered) {
		t.Fatalf("got %v, want ErrTampered", err)
	}
}

func TestLoadOrCreateKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret.key")

	first, err := LoadOrCreateKey(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(first) != KeySize {
		t.Fatalf("key length %d, want %d", len(first), KeySize)
	}
	second, err := LoadOrCreateKey(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if string(first) != string(second) {
		t.Fatal("reload returned a different key")
	}
}
