package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/iliyamo/venue-entry-service/internal/model"
	"github.com/iliyamo/venue-entry-service/internal/queue"
	"github.com/iliyamo/venue-entry-service/internal/store"
	"github.com/iliyamo/venue-entry-service/internal/store/jsonfile"
)

type stubRenderer struct{ rendered []string }

func (r *stubRenderer) Render(data string) (string, error) {
	r.rendered = append(r.rendered, data)
	return "/tmp/fake.png", nil
}

type stubSink struct {
	mu     sync.Mutex
	events []queue.NotificationEvent
}

func (s *stubSink) Notify(ctx context.Context, ev queue.NotificationEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func newIssuer(t *testing.T) (*Issuer, *jsonfile.Store, *stubRenderer, *stubSink) {
	t.Helper()
	st, err := jsonfile.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	r := &stubRenderer{}
	sink := &stubSink{}
	iss := NewIssuer(newCodec(t), st, st, r, sink, "http://10.0.0.5:8080/")
	return iss, st, r, sink
}

func TestIssueOnlineEntry(t *testing.T) {
	iss, st, r, sink := newIssuer(t)
	ctx := context.Background()
	plan, err := model.ParsePlan("premium_50")
	if err != nil {
		t.Fatalf("plan: %v", err)
	}

	res, err := iss.Issue(ctx, IssueRequest{
		Name: "Asha", Phone: "+91 99001-12233", TransactionID: "TXN1",
		Plan: plan, PaymentMode: "online",
	})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if res.Credential.Phone != "919900112233" {
		t.Fatalf("phone not normalized: %q", res.Credential.Phone)
	}
	if len(res.Credential.SecureKey) != 14 {
		t.Fatalf("secure key %q, want 14 digits", res.Credential.SecureKey)
	}
	if !strings.HasPrefix(res.VerifyURL, "http://10.0.0.5:8080/verify?token=") {
		t.Fatalf("verify url: %q", res.VerifyURL)
	}
	if len(r.rendered) != 1 || r.rendered[0] != res.VerifyURL {
		t.Fatalf("qr rendered with %v", r.rendered)
	}

	rec, err := st.GetKeyRecord(ctx, "TXN1")
	if err != nil {
		t.Fatalf("key record: %v", err)
	}
	if rec.Used || rec.SecureKey != res.Credential.SecureKey {
		t.Fatalf("key record: %+v", rec)
	}

	totals, err := st.Totals(ctx)
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if totals.Entries != 1 || totals.TotalINR != 50 {
		t.Fatalf("ledger totals: %+v", totals)
	}

	if len(sink.events) != 1 || sink.events[0].Kind != queue.EventCredentialIssued {
		t.Fatalf("notifications: %+v", sink.events)
	}
}

func TestIssueRejectsDuplicateTransaction(t *testing.T) {
	iss, _, _, _ := newIssuer(t)
	ctx := context.Background()
	plan, _ := model.ParsePlan("standard_40")

	req := IssueRequest{Name: "Ravi", Phone: "918800990011", TransactionID: "TXN1", Plan: plan, PaymentMode: "online"}
	if _, err := iss.Issue(ctx, req); err != nil {
		t.Fatalf("first issue: %v", err)
	}
	if _, err := iss.Issue(ctx, req); !errors.Is(err, store.ErrAlreadyExists) {
		t.Fatalf("duplicate issue: got %v, want ErrAlreadyExists", err)
	}
}

func TestIssueCashGeneratesTransactionID(t *testing.T) {
	iss, _, _, _ := newIssuer(t)
	ctx := context.Background()
	plan, _ := model.ParsePlan("standard_40")

	res, err := iss.Issue(ctx, IssueRequest{Name: "Mira", Phone: "917700880099", Plan: plan, PaymentMode: "cash"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !strings.HasPrefix(res.Credential.TransactionID, "CASH-") {
		t.Fatalf("cash transaction id: %q", res.Credential.TransactionID)
	}
}
