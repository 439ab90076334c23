package dispatch_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Serenityblood/victory-test/internal/dispatch"
	"github.com/Serenityblood/victory-test/internal/model"
	"github.com/Serenityblood/victory-test/internal/telegram"
)

// --- Mock storage ---

type mockScan struct {
	recipients []int64
	moderators []int64
	mailings   []*model.Mailing

	marked     []int
	committed  bool
	rolledBack bool
	markErr    error
	commitErr  error
}

func (s *mockScan) RecipientIDs(ctx context.Context) ([]int64, error) {
	return s.recipients, nil
}

func (s *mockScan) ReportRecipientIDs(ctx context.Context, roles []model.Role) ([]int64, error) {
	return s.moderators, nil
}

func (s *mockScan) DueMailings(ctx context.Context, now time.Time) ([]*model.Mailing, error) {
	due := []*model.Mailing{}
	for _, m := range s.mailings {
		if m.Status == model.StatusPending && !m.SendAt.After(now) {
			due = append(due, m)
		}
	}
	return due, nil
}

func (s *mockScan) MarkDone(ctx context.Context, ids []int) error {
	if s.markErr != nil {
		return s.markErr
	}
	s.marked = ids
	return nil
}

func (s *mockScan) Commit() error {
	if s.commitErr != nil {
		return s.commitErr
	}
	s.committed = true
	for _, id := range s.marked {
		for _, m := range s.mailings {
			if m.ID == id {
				m.Status = model.StatusDone
			}
		}
	}
	return nil
}

func (s *mockScan) Rollback() error {
	s.rolledBack = true
	return nil
}

type mockStore struct {
	scan *mockScan
}

func (s *mockStore) BeginScan(ctx context.Context) (dispatch.ScanTx, error) {
	return s.scan, nil
}

// --- Telegram API stub ---

type sentCall struct {
	Method string
	ChatID int64
	Text   string
}

type tgStub struct {
	mu      sync.Mutex
	calls   []sentCall
	failFor map[int64]int
}

func (s *tgStub) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(r.URL.Path, "/")
		method := parts[len(parts)-1]

		var body struct {
			ChatID  int64  `json:"chat_id"`
			Text    string `json:"text"`
			Caption string `json:"caption"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		text := body.Text
		if text == "" {
			text = body.Caption
		}
		s.mu.Lock()
		s.calls = append(s.calls, sentCall{Method: method, ChatID: body.ChatID, Text: text})
		status, failed := s.failFor[body.ChatID]
		s.mu.Unlock()

		if failed {
			w.WriteHeader(status)
			w.Write([]byte(`{"ok":false,"description":"blocked"}`))
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}
}

func (s *tgStub) callsTo(chatID int64) []sentCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []sentCall{}
	for _, c := range s.calls {
		if c.ChatID == chatID {
			out = append(out, c)
		}
	}
	return out
}

func (s *tgStub) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// --- Failure sink ---

type captureSink struct {
	mu       sync.Mutex
	failures []model.DeliveryFailure
}

func (c *captureSink) Publish(f model.DeliveryFailure) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = append(c.failures, f)
	return nil
}

// --- Helpers ---

func newDispatcher(t *testing.T, scan *mockScan, stub *tgStub, sink dispatch.FailureSink) *dispatch.Dispatcher {
	t.Helper()
	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)

	client := telegram.NewClient(srv.URL, "TESTTOKEN", 2*time.Second)
	return dispatch.NewDispatcher(
		&mockStore{scan: scan},
		client,
		sink,
		dispatch.Config{
			Interval:    time.Minute,
			MaxInFlight: 10,
			ReportRoles: []model.Role{model.RoleAdmin, model.RoleModerator},
		},
		zerolog.Nop(),
	)
}

func pendingMailing(id int, sendAt time.Time) *model.Mailing {
	return &model.Mailing{
		ID:      id,
		Name:    "promo",
		SendAt:  sendAt,
		Message: "hello",
		Status:  model.StatusPending,
	}
}

// --- Scenarios ---

func TestScanAllDeliveriesSucceed(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	scan := &mockScan{
		recipients: []int64{1, 2, 3},
		moderators: []int64{999},
		mailings:   []*model.Mailing{pendingMailing(10, past)},
	}
	stub := &tgStub{}

	d := newDispatcher(t, scan, stub, nil)
	if err := d.Scan(context.Background()); err != nil {
		t.Fatal(err)
	}

	if !scan.committed {
		t.Fatal("scan must commit")
	}
	if scan.mailings[0].Status != model.StatusDone {
		t.Errorf("mailing must be done, got %s", scan.mailings[0].Status)
	}

	reports := stub.callsTo(999)
	if len(reports) != 1 {
		t.Fatalf("expected 1 report message, got %d", len(reports))
	}
	if !strings.Contains(reports[0].Text, "Sent: 3") || !strings.Contains(reports[0].Text, "Failed: 0") {
		t.Errorf("unexpected report: %q", reports[0].Text)
	}
}

func TestScanCountsFailedDelivery(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	scan := &mockScan{
		recipients: []int64{1, 2, 3},
		moderators: []int64{999},
		mailings:   []*model.Mailing{pendingMailing(10, past)},
	}
	stub := &tgStub{failFor: map[int64]int{2: http.StatusInternalServerError}}
	sink := &captureSink{}

	d := newDispatcher(t, scan, stub, sink)
	if err := d.Scan(context.Background()); err != nil {
		t.Fatal(err)
	}

	if scan.mailings[0].Status != model.StatusDone {
		t.Errorf("a delivery failure must not keep the mailing pending")
	}

	reports := stub.callsTo(999)
	if len(reports) != 1 {
		t.Fatalf("expected 1 report message, got %d", len(reports))
	}
	if !strings.Contains(reports[0].Text, "Sent: 2") || !strings.Contains(reports[0].Text, "Failed: 1") {
		t.Errorf("unexpected report: %q", reports[0].Text)
	}

	if len(sink.failures) != 1 {
		t.Fatalf("expected 1 published failure, got %d", len(sink.failures))
	}
	f := sink.failures[0]
	if f.RecipientID != 2 || f.StatusCode != http.StatusInternalServerError {
		t.Errorf("unexpected failure record: %+v", f)
	}
}

func TestScanSkipsWhenDirectoryEmpty(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	scan := &mockScan{
		recipients: []int64{},
		moderators: []int64{999},
		mailings:   []*model.Mailing{pendingMailing(10, past)},
	}
	stub := &tgStub{}

	d := newDispatcher(t, scan, stub, nil)
	if err := d.Scan(context.Background()); err != nil {
		t.Fatal(err)
	}

	if scan.committed {
		t.Error("empty directory must not commit anything")
	}
	if !scan.rolledBack {
		t.Error("scan transaction must be released")
	}
	if len(scan.marked) != 0 {
		t.Error("no mailing may be marked done")
	}
	if stub.total() != 0 {
		t.Errorf("no outbound calls expected, got %d", stub.total())
	}
	if scan.mailings[0].Status != model.StatusPending {
		t.Error("mailing must stay pending")
	}
}

func TestScanLeavesFutureMailingsPending(t *testing.T) {
	future := time.Now().Add(time.Hour)
	scan := &mockScan{
		recipients: []int64{1, 2},
		moderators: []int64{999},
		mailings:   []*model.Mailing{pendingMailing(10, future)},
	}
	stub := &tgStub{}

	d := newDispatcher(t, scan, stub, nil)
	if err := d.Scan(context.Background()); err != nil {
		t.Fatal(err)
	}

	if scan.mailings[0].Status != model.StatusPending {
		t.Error("future mailing must stay pending")
	}
	if stub.total() != 0 {
		t.Errorf("no deliveries expected, got %d", stub.total())
	}
	if scan.committed {
		t.Error("nothing to commit")
	}
}

func TestScanSkipsMalformedMailing(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	bad := pendingMailing(10, past)
	bad.Extra.Media = &model.Media{MediaType: "sticker", URL: "u"}
	good := pendingMailing(11, past)

	scan := &mockScan{
		recipients: []int64{1},
		moderators: []int64{},
		mailings:   []*model.Mailing{bad, good},
	}
	stub := &tgStub{}

	d := newDispatcher(t, scan, stub, nil)
	if err := d.Scan(context.Background()); err != nil {
		t.Fatal(err)
	}

	if bad.Status != model.StatusPending {
		t.Error("malformed mailing must not be marked done")
	}
	if good.Status != model.StatusDone {
		t.Error("the rest of the scan must still be processed")
	}
}

func TestScanAbortsOnStorageError(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	scan := &mockScan{
		recipients: []int64{1},
		moderators: []int64{},
		mailings:   []*model.Mailing{pendingMailing(10, past)},
		markErr:    errors.New("connection reset"),
	}
	stub := &tgStub{}

	d := newDispatcher(t, scan, stub, nil)
	if err := d.Scan(context.Background()); err == nil {
		t.Fatal("storage errors must propagate")
	}

	if scan.committed {
		t.Error("a failed scan must not commit")
	}
	if !scan.rolledBack {
		t.Error("a failed scan must roll back")
	}
	if scan.mailings[0].Status != model.StatusPending {
		t.Error("status must be unchanged after an aborted scan")
	}
}

func TestScanAccountsEveryRecipient(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	scan := &mockScan{
		recipients: []int64{1, 2, 3, 4, 5},
		moderators: []int64{999},
		mailings:   []*model.Mailing{pendingMailing(10, past)},
	}
	stub := &tgStub{failFor: map[int64]int{
		1: http.StatusForbidden,
		4: http.StatusBadGateway,
	}}

	d := newDispatcher(t, scan, stub, nil)
	if err := d.Scan(context.Background()); err != nil {
		t.Fatal(err)
	}

	reports := stub.callsTo(999)
	if len(reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(reports))
	}
	// sent + failed must add up to the snapshot size
	if !strings.Contains(reports[0].Text, "Sent: 3") || !strings.Contains(reports[0].Text, "Failed: 2") {
		t.Errorf("unexpected report: %q", reports[0].Text)
	}
}
