package supabase_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/boddenberg/ledger-bot-go/internal/domain"
	"github.com/boddenberg/ledger-bot-go/internal/infra/resilience"
	"github.com/boddenberg/ledger-bot-go/internal/infra/supabase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type captured struct {
	Method string
	Path   string
	Query  url.Values
	Prefer string
	APIKey string
	Auth   string
	Body   string
}

// fakePostgREST records every request and answers with a canned reply.
type fakePostgREST struct {
	mu       sync.Mutex
	requests []captured
	status   int
	reply    string
}

func (f *fakePostgREST) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, captured{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Prefer: r.Header.Get("Prefer"),
		APIKey: r.Header.Get("apikey"),
		Auth:   r.Header.Get("Authorization"),
		Body:   string(body),
	})
	status, reply := f.status, f.reply
	f.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(reply))
}

func (f *fakePostgREST) last(t *testing.T) captured {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

func newClient(t *testing.T, fake *fakePostgREST) *supabase.Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return supabase.NewClient(srv.Client(), srv.URL, "anon-key", "service-key",
		resilience.NewCircuitBreaker("supabase-test"), resilience.NewBulkhead(4), zap.NewNop())
}

func TestInsertRecord(t *testing.T) {
	fake := &fakePostgREST{
		status: http.StatusCreated,
		reply:  `[{"id":42,"openid":"oUSER1","nickname":"Alice","amount":18.5,"category":"coffee","description":"coffee","created_at":"2026-10-15T06:30:00+00:00"}]`,
	}
	c := newClient(t, fake)

	at := time.Date(2026, 10, 15, 14, 30, 0, 0, time.FixedZone("CST", 8*3600))
	saved, err := c.InsertRecord(context.Background(), domain.Record{
		OwnerID:     "oUSER1",
		DisplayName: "Alice",
		Amount:      decimal.RequireFromString("18.5"),
		Category:    "coffee",
		Description: "coffee",
		CreatedAt:   at,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), saved.ID)
	assert.True(t, saved.CreatedAt.Equal(at))
	assert.Equal(t, "18.5", saved.Amount.String())

	req := fake.last(t)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/rest/v1/records", req.Path)
	assert.Equal(t, "return=representation", req.Prefer)
	assert.Equal(t, "anon-key", req.APIKey)
	assert.Equal(t, "Bearer service-key", req.Auth)

	var sent map[string]any
	require.NoError(t, json.Unmarshal([]byte(req.Body), &sent))
	assert.NotContains(t, sent, "id")
	assert.Equal(t, "oUSER1", sent["openid"])
}

func TestListRecords_BuildsFilters(t *testing.T) {
	fake := &fakePostgREST{reply: `[]`}
	c := newClient(t, fake)

	fromT := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	toT := time.Date(2026, 10, 15, 6, 30, 0, 0, time.UTC)
	rows, err := c.ListRecords(context.Background(), domain.RecordFilter{
		From:                &fromT,
		To:                  &toT,
		DescriptionContains: "50%_off",
		Limit:               20,
		Offset:              40,
	})
	require.NoError(t, err)
	assert.Empty(t, rows)

	req := fake.last(t)
	assert.Equal(t, "/rest/v1/records", req.Path)
	assert.ElementsMatch(t, []string{"gte.2026-10-01T00:00:00Z", "lte.2026-10-15T06:30:00Z"}, req.Query["created_at"])
	assert.Equal(t, `ilike.*50\%\_off*`, req.Query.Get("description"))
	assert.Equal(t, "created_at.desc,id.desc", req.Query.Get("order"))
	assert.Equal(t, "20", req.Query.Get("limit"))
	assert.Equal(t, "40", req.Query.Get("offset"))
}

func TestListRecords_AscendingByCategory(t *testing.T) {
	fake := &fakePostgREST{reply: `[{"id":1,"amount":"3","category":"Supper","description":"wings","created_at":"2026-10-15T06:30:00Z"}]`}
	c := newClient(t, fake)

	rows, err := c.ListRecords(context.Background(), domain.RecordFilter{Category: "Supper", Ascending: true})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "wings", rows[0].Description)

	req := fake.last(t)
	assert.Equal(t, "eq.Supper", req.Query.Get("category"))
	assert.Equal(t, "created_at.asc,id.asc", req.Query.Get("order"))
	assert.Empty(t, req.Query.Get("limit"))
	assert.Empty(t, req.Query.Get("offset"))
}

func TestSaveDailyTotal_Upserts(t *testing.T) {
	fake := &fakePostgREST{status: http.StatusCreated, reply: `[]`}
	c := newClient(t, fake)

	err := c.SaveDailyTotal(context.Background(), domain.DailyTotal{
		Date:  "2026-09-05",
		Total: decimal.RequireFromString("30.5"),
	})
	require.NoError(t, err)

	req := fake.last(t)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/rest/v1/daily_totals", req.Path)
	assert.Equal(t, "date", req.Query.Get("on_conflict"))
	assert.Contains(t, req.Prefer, "resolution=merge-duplicates")
	assert.Contains(t, req.Body, `"source_ids":[]`)
}

func TestGetDailyTotal_Missing(t *testing.T) {
	fake := &fakePostgREST{reply: `[]`}
	c := newClient(t, fake)

	total, err := c.GetDailyTotal(context.Background(), "2026-09-05")
	require.NoError(t, err)
	assert.Nil(t, total)
	assert.Equal(t, "eq.2026-09-05", fake.last(t).Query.Get("date"))
}

func TestGetDebt(t *testing.T) {
	fake := &fakePostgREST{reply: `[]`}
	c := newClient(t, fake)

	_, err := c.GetDebt(context.Background(), "Alice")
	var nerr *domain.ErrNotFound
	require.ErrorAs(t, err, &nerr)

	fake.reply = `[{"name":"Alice","amount":"700","status":"active","note":"concert tickets"}]`
	debt, err := c.GetDebt(context.Background(), "Alice")
	require.NoError(t, err)
	assert.Equal(t, "700.00", debt.Amount.StringFixed(2))
	assert.Equal(t, domain.DebtActive, debt.Status)
}

func TestUpdateAndDelete(t *testing.T) {
	fake := &fakePostgREST{status: http.StatusNoContent}
	c := newClient(t, fake)
	ctx := context.Background()

	require.NoError(t, c.UpdateRecord(ctx, 7, domain.RecordUpdate{
		Amount: decimal.RequireFromString("16"), Category: "Supper", Description: "wings",
	}))
	req := fake.last(t)
	assert.Equal(t, http.MethodPatch, req.Method)
	assert.Equal(t, "eq.7", req.Query.Get("id"))
	assert.Equal(t, "return=minimal", req.Prefer)

	require.NoError(t, c.DeleteRecord(ctx, 7))
	assert.Equal(t, http.MethodDelete, fake.last(t).Method)

	require.NoError(t, c.DeleteDeleted(ctx, 9))
	req = fake.last(t)
	assert.Equal(t, "/rest/v1/deleted_records", req.Path)
	assert.Equal(t, "eq.9", req.Query.Get("id"))
}

func TestNon2xxIsExternalServiceError(t *testing.T) {
	fake := &fakePostgREST{status: http.StatusInternalServerError, reply: `{"message":"boom"}`}
	c := newClient(t, fake)

	_, err := c.ListDebts(context.Background(), domain.DebtActive)

	var eerr *domain.ErrExternalService
	require.ErrorAs(t, err, &eerr)
	assert.Equal(t, "supabase/debts", eerr.Service)
	assert.Equal(t, http.StatusInternalServerError, supabase.StatusCode(err))
}

func TestBreakerOpensAndStopsCalling(t *testing.T) {
	fake := &fakePostgREST{status: http.StatusServiceUnavailable}
	c := newClient(t, fake)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := c.ListDeleted(ctx, "oUSER1", 20)
		require.Error(t, err)
	}

	_, err := c.ListDeleted(ctx, "oUSER1", 20)
	var oerr *domain.ErrCircuitOpen
	require.ErrorAs(t, err, &oerr)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Len(t, fake.requests, 5)
}
