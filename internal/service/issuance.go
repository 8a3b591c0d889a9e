package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/venue-entry-service/internal/model"
	"github.com/iliyamo/venue-entry-service/internal/queue"
	"github.com/iliyamo/venue-entry-service/internal/store"
	"github.com/iliyamo/venue-entry-service/internal/token"
)

// QRRenderer turns a verify URL into a scannable image file and
// returns its path. Rendering is pure encoding; the issuer never
// inspects the output.
type QRRenderer interface {
	Render(data string) (string, error)
}

// IssueRequest is a validated entry submission.
type IssueRequest struct {
	Name          string
	Phone         string
	TransactionID string // empty for cash payments; generated
	Plan          model.Plan
	PaymentMode   string // "online" or "cash"
}

// IssueResult is everything produced for one participant.
type IssueResult struct {
	Credential model.Credential
	Token      string
	VerifyURL  string
	QRPath     string
}

// Issuer runs the credential issuance pipeline: secure key, registry
// record, sealed token, QR image, ledger row, issued notification.
type Issuer struct {
	codec   *token.Codec
	keys    store.KeyRegistry
	ledger  store.Ledger
	qr      QRRenderer
	sink    NotificationSink
	baseURL string
}

// NotificationSink mirrors the scheduler-side interface so the issuer
// can request the CredentialIssued notification through the same
// publisher.
type NotificationSink interface {
	Notify(ctx context.Context, ev queue.NotificationEvent) error
}

func NewIssuer(codec *token.Codec, keys store.KeyRegistry, ledger store.Ledger, qr QRRenderer, sink NotificationSink, baseURL string) *Issuer {
	return &Issuer{codec: codec, keys: keys, ledger: ledger, qr: qr, sink: sink, baseURL: strings.TrimRight(baseURL, "/")}
}

// Issue registers and issues a credential for a paid entry. The
// registry insert is the commit point: a duplicate transaction id
// fails with store.ErrAlreadyExists before anything else happens.
// Ledger and notification failures after that point are logged, not
// fatal — the credential is already valid.
func (i *Issuer) Issue(ctx context.Context, req IssueRequest) (IssueResult, error) {
	txnID := req.TransactionID
	if req.PaymentMode == "cash" {
		var err error
		txnID, err = cashTransactionID(time.Now())
		if err != nil {
			return IssueResult{}, err
		}
	}

	secureKey, err := newSecureKey()
	if err != nil {
		return IssueResult{}, err
	}
	if err := i.keys.Register(ctx, txnID, secureKey); err != nil {
		return IssueResult{}, err
	}

	cred := model.Credential{
		TransactionID: txnID,
		Name:          req.Name,
		Phone:         normalizePhone(req.Phone),
		Plan:          req.Plan.Name,
		DurationMin:   int(req.Plan.Duration.Minutes()),
		AmountINR:     req.Plan.AmountINR,
		SecureKey:     secureKey,
		IssuedAt:      time.Now().UTC(),
	}
	tok, err := i.codec.Encode(cred)
	if err != nil {
		return IssueResult{}, err
	}
	verifyURL := i.baseURL + "/verify?token=" + url.QueryEscape(tok)

	qrPath, err := i.qr.Render(verifyURL)
	if err != nil {
		return IssueResult{}, fmt.Errorf("render qr: %w", err)
	}

	if err := i.ledger.Append(ctx, store.LedgerEntry{
		Timestamp:     cred.IssuedAt,
		Name:          cred.Name,
		Phone:         cred.Phone,
		TransactionID: txnID,
		AmountINR:     cred.AmountINR,
		DurationMin:   cred.DurationMin,
		Status:        "Pending",
		PaymentMode:   req.PaymentMode,
		Plan:          cred.Plan,
	}); err != nil {
		log.Printf("issuer: ledger append for %s failed: %v", txnID, err)
	}

	if err := i.sink.Notify(ctx, queue.NotificationEvent{
		Kind:        queue.EventCredentialIssued,
		TicketID:    txnID,
		Name:        cred.Name,
		Phone:       cred.Phone,
		Plan:        cred.Plan,
		AmountINR:   cred.AmountINR,
		DurationMin: cred.DurationMin,
		PaymentMode: req.PaymentMode,
		OccurredAt:  cred.IssuedAt.Format(time.RFC3339),
	}); err != nil {
		log.Printf("issuer: issued notification for %s failed: %v", txnID, err)
	}

	return IssueResult{Credential: cred, Token: tok, VerifyURL: verifyURL, QRPath: qrPath}, nil
}

// newSecureKey returns a 14-digit zero-padded decimal key from
// crypto/rand, the single-use proof bound to the transaction id.
func newSecureKey() (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(14), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%014d", n), nil
}

// cashTransactionID builds an id for walk-in cash payments:
// CASH-YYYYMMDD-HHMMSS-<uuid fragment>.
func cashTransactionID(now time.Time) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("CASH-%s-%s", now.Format("20060102-150405"), id.String()[:8]), nil
}

// normalizePhone strips spacing and prefix punctuation so the number
// is a plain digit string for the notification transport.
func normalizePhone(p string) string {
	r := strings.NewReplacer(" ", "", "-", "", "+", "")
	return r.Replace(p)
}
