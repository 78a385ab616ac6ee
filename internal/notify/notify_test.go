package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"incapacity-claims/internal/domain"
	"incapacity-claims/internal/repository"
)

type sent struct {
	to, subject, body string
}

type fakeNotifier struct {
	mu     sync.Mutex
	sent   []sent
	failTo map[string]int // remaining failures per address
}

func (f *fakeNotifier) Send(_ context.Context, address, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTo[address] > 0 {
		f.failTo[address]--
		return errors.New("mailbox unavailable")
	}
	f.sent = append(f.sent, sent{to: address, subject: subject, body: body})
	return nil
}

func (f *fakeNotifier) recipients() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, s := range f.sent {
		out = append(out, s.to)
	}
	sort.Strings(out)
	return out
}

func newTestDispatcher(n Notifier, retries int) *Dispatcher {
	return NewDispatcher(n, DispatcherConfig{Retries: retries, RetryWait: time.Millisecond}, zap.NewNop())
}

func TestDispatcher_OneFailureDoesNotBlockOthers(t *testing.T) {
	n := &fakeNotifier{failTo: map[string]int{"b@example.com": 5}}
	d := newTestDispatcher(n, 1)

	ok := d.Notify(context.Background(), KindNewClaim, []string{"a@example.com", "b@example.com", "c@example.com"}, Payload{ClaimID: 1})
	assert.True(t, ok)
	d.Wait()

	assert.Equal(t, []string{"a@example.com", "c@example.com"}, n.recipients())
}

func TestDispatcher_RetriesOnce(t *testing.T) {
	n := &fakeNotifier{failTo: map[string]int{"a@example.com": 1}}
	d := newTestDispatcher(n, 1)

	d.Notify(context.Background(), KindPaid, []string{"a@example.com"}, Payload{ClaimID: 3})
	d.Wait()
	assert.Equal(t, []string{"a@example.com"}, n.recipients())
}

func TestDispatcher_NoRecipients(t *testing.T) {
	d := newTestDispatcher(&fakeNotifier{}, 0)
	assert.False(t, d.Notify(context.Background(), KindNewClaim, nil, Payload{}))
	assert.False(t, d.Notify(context.Background(), KindNewClaim, []string{""}, Payload{}))
	assert.False(t, d.Notify(context.Background(), Kind("bogus"), []string{"a@example.com"}, Payload{}))
}

func TestDispatcher_SurvivesCanceledRequest(t *testing.T) {
	n := &fakeNotifier{}
	d := newTestDispatcher(n, 0)
	ctx, cancel := context.WithCancel(context.Background())
	d.Notify(ctx, KindReviewed, []string{"a@example.com"}, Payload{ClaimID: 1})
	cancel()
	d.Wait()
	assert.Len(t, n.recipients(), 1)
}

func TestRender(t *testing.T) {
	subject, body, ok := Render(KindRejected, Payload{ClaimID: 7, Reason: "missing diagnosis"})
	require.True(t, ok)
	assert.Contains(t, subject, "#7")
	assert.Contains(t, body, "missing diagnosis")

	_, body, ok = Render(KindReviewed, Payload{ClaimID: 7, Reason: "should not appear"})
	require.True(t, ok)
	assert.NotContains(t, body, "should not appear")
}

func seedRouter(t *testing.T) (*Router, *fakeNotifier, *Dispatcher, *repository.MemoryClaimsRepo) {
	t.Helper()
	ref := repository.NewMemoryReferenceRepo()
	ref.PutClaimType(domain.CatalogItem{ID: 1, Name: "General illness"})
	ref.PutUser(domain.User{UserID: 1, FullName: "Ana Admin", Email: "ana@example.com", Role: domain.RoleAdmin, Active: true})
	ref.PutUser(domain.User{UserID: 2, FullName: "Old Admin", Email: "old@example.com", Role: domain.RoleAdmin, Active: false})
	ref.PutUser(domain.User{UserID: 3, FullName: "Bob Admin", Email: "bob@example.com", Role: domain.RoleAdmin, Active: true})
	ref.PutUser(domain.User{UserID: 100, FullName: "Eva Employee", Email: "eva@example.com", Role: domain.RoleEmployee, Active: true})

	claims := repository.NewMemoryClaimsRepo()
	_, err := claims.CreateClaim(context.Background(), &domain.Claim{ClaimantID: 100, ClaimTypeID: 1, Status: domain.StatusPending})
	require.NoError(t, err)

	n := &fakeNotifier{}
	d := newTestDispatcher(n, 0)
	return NewRouter(d, ref, ref, claims, zap.NewNop()), n, d, claims
}

func TestRouter_NewClaimGoesToActiveReviewers(t *testing.T) {
	r, n, d, _ := seedRouter(t)
	ev := domain.NewClaimEvent(domain.EventCreated, 1, 100)
	require.NoError(t, r.HandleEvent(context.Background(), ev))
	d.Wait()
	assert.Equal(t, []string{"ana@example.com", "bob@example.com"}, n.recipients())
	assert.Contains(t, n.sent[0].body, "General illness")
}

func TestRouter_RejectionGoesToClaimantWithReason(t *testing.T) {
	r, n, d, _ := seedRouter(t)
	ev := domain.NewClaimEvent(domain.EventStatusChanged, 1, 1)
	ev.ClaimantID = 100
	ev.OldStatus = domain.StatusPending
	ev.NewStatus = domain.StatusRejected
	ev.RejectionMessage = "missing diagnosis"

	require.NoError(t, r.HandleEvent(context.Background(), ev))
	d.Wait()
	require.Equal(t, []string{"eva@example.com"}, n.recipients())
	assert.Contains(t, n.sent[0].body, "missing diagnosis")
}

func TestRouter_UnchangedStatusIsSilent(t *testing.T) {
	r, n, d, _ := seedRouter(t)
	ev := domain.NewClaimEvent(domain.EventMarkedReviewed, 1, 1)
	ev.OldStatus = domain.StatusReviewed
	ev.NewStatus = domain.StatusReviewed
	require.NoError(t, r.HandleEvent(context.Background(), ev))
	d.Wait()
	assert.Empty(t, n.recipients())
}

func TestMailRelayNotifier_PostsJSON(t *testing.T) {
	var got relayMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	n := NewMailRelayNotifier(srv.URL+"/send", "secret", "noreply@example.com", time.Second)
	require.NoError(t, n.Send(context.Background(), "eva@example.com", "hi", "body"))
	assert.Equal(t, "eva@example.com", got.To)
	assert.Equal(t, "noreply@example.com", got.From)
}

func TestMailRelayNotifier_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewMailRelayNotifier(srv.URL, "", "noreply@example.com", time.Second)
	assert.Error(t, n.Send(context.Background(), "eva@example.com", "hi", "body"))
}

func TestSMTPNotifier_BuildsMessage(t *testing.T) {
	n := NewSMTPNotifier("mail.example.com:587", "user", "pw", "noreply@example.com")
	var gotAddr string
	var gotMsg []byte
	n.send = func(addr string, _ smtp.Auth, _ string, to []string, msg []byte) error {
		gotAddr = addr
		gotMsg = msg
		assert.Equal(t, []string{"eva@example.com"}, to)
		return nil
	}
	require.NoError(t, n.Send(context.Background(), "eva@example.com", "Subject line", "line1\nline2"))
	assert.Equal(t, "mail.example.com:587", gotAddr)
	assert.Contains(t, string(gotMsg), "Subject: Subject line\r\n")
	assert.Contains(t, string(gotMsg), "line1\r\nline2")
}
