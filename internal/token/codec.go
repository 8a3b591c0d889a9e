// Package token implements the encrypted ticket credential codec.
// A token is an AES-256-GCM sealed JSON credential, prefixed with a
// format version byte and encoded with URL-safe base64 so it can be
// embedded directly in a QR verify link.
package token

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iliyamo/venue-entry-service/internal/model"
)

// Token layout: version || nonce || ciphertext. The version byte is a
// forward-compat hook: a future key rotation or layout change bumps it
// and old verifiers reject the token explicitly instead of reporting a
// tamper.
const formatV1 = 0x01

// KeySize is the required secret key length (AES-256).
const KeySize = 32

var (
	// ErrTampered is returned when authentication fails: the token was
	// modified, truncated, or sealed with a different key.
	ErrTampered = errors.New("token: tampered or undecodable")
	// ErrMalformed is returned when the token authenticates but the
	// plaintext does not parse into a credential.
	ErrMalformed = errors.New("token: malformed payload")
	// ErrUnknownVersion is returned when the format version byte is not
	// recognized by this build.
	ErrUnknownVersion = errors.New("token: unknown format version")
)

// Codec seals and opens ticket credentials with a process-wide secret.
type Codec struct {
	aead cipher.AEAD
}

// NewCodec builds a codec from a 32-byte secret key.
func NewCodec(key []byte) (*Codec, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("token: key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Codec{aead: aead}, nil
}

// Encode seals a credential into a URL-safe token string. A fresh
// nonce is drawn per call, so encoding the same credential twice
// yields unlinkable tokens.
func (c *Codec) Encode(cred model.Credential) (string, error) {
	plain, err := json.Marshal(cred)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	out := make([]byte, 0, 1+len(nonce)+len(plain)+c.aead.Overhead())
	out = append(out, formatV1)
	out = append(out, nonce...)
	out = c.aead.Seal(out, nonce, plain, []byte{formatV1})
	return base64.RawURLEncoding.EncodeToString(out), nil
}

// Decode opens a token back into the credential it carries. The token
// is attacker-controlled input at verification time, so every failure
// mode maps to a typed error the caller surfaces as a rejection.
func (c *Codec) Decode(s string) (model.Credential, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return model.Credential{}, ErrTampered
	}
	if len(raw) < 1 {
		return model.Credential{}, ErrTampered
	}
	version, rest := raw[0], raw[1:]
	if version != formatV1 {
		return model.Credential{}, ErrUnknownVersion
	}
	if len(rest) < c.aead.NonceSize() {
		return model.Credential{}, ErrTampered
	}
	nonce, sealed := rest[:c.aead.NonceSize()], rest[c.aead.NonceSize():]
	plain, err := c.aead.Open(nil, nonce, sealed, []byte{version})
	if err != nil {
		return model.Credential{}, ErrTampered
	}
	var cred model.Credential
	if err := json.Unmarshal(plain, &cred); err != nil {
		return model.Credential{}, ErrMalformed
	}
	if cred.TransactionID == "" || cred.SecureKey == "" {
		return model.Credential{}, ErrMalformed
	}
	return cred, nil
}
