package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moni/internal/cache"
	"moni/internal/core"
	"moni/internal/dashboard"
	"moni/internal/log"
	"moni/internal/patterns"
	"moni/internal/report"
	"moni/internal/storage"
)

type fakeTransactions struct {
	mu      sync.Mutex
	created []core.Transaction
	filters []storage.Filter
	deleted []string
	list    []core.Transaction
	err     error
}

func (f *fakeTransactions) Create(_ context.Context, t *core.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := t.Validate(); err != nil {
		return err
	}
	if f.err != nil {
		return f.err
	}
	t.ID = "tx-1"
	f.created = append(f.created, *t)
	return nil
}

func (f *fakeTransactions) Delete(_ context.Context, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, userID+"/"+id)
	return nil
}

func (f *fakeTransactions) List(_ context.Context, filter storage.Filter) ([]core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, filter)
	return f.list, f.err
}

type fakeAccounts struct {
	categories []core.Category
	assets     []core.Asset
	budgets    []core.Budget
}

func (f *fakeAccounts) CreateCategory(_ context.Context, c *core.Category) error {
	c.ID = "cat-1"
	f.categories = append(f.categories, *c)
	return nil
}

func (f *fakeAccounts) ListCategories(context.Context, string) ([]core.Category, error) {
	return f.categories, nil
}

func (f *fakeAccounts) CreateAsset(_ context.Context, a *core.Asset) error {
	a.ID = "asset-1"
	f.assets = append(f.assets, *a)
	return nil
}

func (f *fakeAccounts) CreateLiability(_ context.Context, l *core.Liability) error {
	l.ID = "liab-1"
	return nil
}

func (f *fakeAccounts) UpsertBudget(_ context.Context, b *core.Budget) error {
	b.ID = "budget-1"
	f.budgets = append(f.budgets, *b)
	return nil
}

type fakeInsights struct {
	snapshot storage.PatternSnapshot
	err      error
}

func (f *fakeInsights) Patterns(_ context.Context, userID string) (patterns.Result, error) {
	return patterns.Result{RulesVersion: "2024.1", WindowTotal: 1500}, f.err
}

func (f *fakeInsights) Snapshot(context.Context, string) (storage.PatternSnapshot, error) {
	if f.err != nil {
		return storage.PatternSnapshot{}, f.err
	}
	return f.snapshot, nil
}

type fakeReports struct {
	got report.Request
}

func (f *fakeReports) Generate(_ context.Context, req report.Request) (*report.Document, error) {
	f.got = req
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &report.Document{HTML: "<html><body>Reporte</body></html>", Filename: "reporte-2024-03-gastos.html"}, nil
}

type fakeDashboard struct {
	year, month int
	months      int
}

func (f *fakeDashboard) MonthlySummary(_ context.Context, _ string, year, month int) (dashboard.MonthlySummary, error) {
	f.year, f.month = year, month
	return dashboard.MonthlySummary{Period: core.Period{Year: year, Month: month}.String(), SavingsRate: 50}, nil
}

func (f *fakeDashboard) History(_ context.Context, _ string, months int) ([]dashboard.HistoryPoint, error) {
	f.months = months
	return []dashboard.HistoryPoint{{Period: "2024-03", Month: "mar", Inc: 25, Exp: 12.5}}, nil
}

func (f *fakeDashboard) NetWorth(context.Context, string) (dashboard.NetWorth, error) {
	return dashboard.NetWorth{NetWorth: decimal.NewFromInt(800000), Assets: []dashboard.AssetPosition{}, Liabilities: []dashboard.LiabilityPosition{}}, nil
}

func (f *fakeDashboard) BudgetProgress(_ context.Context, _ string, year, month int) ([]dashboard.BudgetStatus, error) {
	f.year, f.month = year, month
	return []dashboard.BudgetStatus{{BudgetID: "b1", PercentUsed: 116.67, OverLimit: true}}, nil
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type testServer struct {
	*Server
	txs     *fakeTransactions
	acc     *fakeAccounts
	ins     *fakeInsights
	reports *fakeReports
	dash    *fakeDashboard
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := log.DefaultConfig()
	cfg.Output = io.Discard

	ts := &testServer{
		txs:     &fakeTransactions{},
		acc:     &fakeAccounts{},
		ins:     &fakeInsights{},
		reports: &fakeReports{},
		dash:    &fakeDashboard{},
	}
	ts.Server = NewServer(":0", Deps{
		Transactions: ts.txs,
		Accounts:     ts.acc,
		Insights:     ts.ins,
		Reports:      ts.reports,
		Dashboard:    ts.dash,
		Database:     fakePinger{},
		Cache:        cache.NewStore(cache.Options{}),
	}, Options{Logger: log.New(cfg), AllowedOrigins: []string{"https://app.moni.mx"}})
	ts.now = func() time.Time { return time.Date(2024, 3, 20, 9, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { _ = ts.Shutdown(context.Background()) })
	return ts
}

func (ts *testServer) do(method, target, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	ts.Handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", decodeBody(t, rr)["status"])
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))

	rr = ts.do(http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ready", decodeBody(t, rr)["status"])

	ts.deps.Database = fakePinger{err: errors.New("database is closed")}
	rr = ts.do(http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "not_ready", body["status"])
	assert.Contains(t, body["checks"].(map[string]any)["database"], "database is closed")
}

func TestMetrics(t *testing.T) {
	ts := newTestServer(t)
	ts.do(http.MethodGet, "/healthz", "")

	rr := ts.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "http_requests_total 1\n")
	assert.Contains(t, rr.Body.String(), "cache_entries 0\n")
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t)
	rr := ts.do(http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"error":"route not found"}`, rr.Body.String())
}

func TestCreateTransaction(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(http.MethodPost, "/api/transactions",
		`{"user_id":"u1","description":" Tacos ","amount":"120.50","date":"2024-03-02","type":"gasto","category_id":"c1"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	body := decodeBody(t, rr)
	assert.Equal(t, "tx-1", body["id"])
	assert.Equal(t, "Tacos", body["description"])
	assert.Equal(t, "120.5", body["amount"])
	assert.Equal(t, "2024-03-02", body["date"])
	assert.Equal(t, "gasto", body["type"])

	require.Len(t, ts.txs.created, 1)
	assert.Equal(t, core.NewDate(2024, 3, 2), ts.txs.created[0].Date)
	assert.Equal(t, "c1", ts.txs.created[0].CategoryID)
}

func TestCreateTransactionValidation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"missing user", `{"description":"x","amount":1,"date":"2024-03-02","type":"gasto"}`, "missing user id"},
		{"zero amount", `{"user_id":"u1","description":"x","amount":0,"date":"2024-03-02","type":"gasto"}`, "invalid amount"},
		{"bad type", `{"user_id":"u1","description":"x","amount":1,"date":"2024-03-02","type":"otro"}`, "invalid transaction type"},
		{"bad date", `{"user_id":"u1","description":"x","amount":1,"date":"02/03/2024","type":"gasto"}`, "invalid date"},
		{"empty description", `{"user_id":"u1","description":"  ","amount":1,"date":"2024-03-02","type":"ingreso"}`, "empty description"},
		{"long description", `{"user_id":"u1","description":"` + strings.Repeat("a", 201) + `","amount":1,"date":"2024-03-02","type":"gasto"}`, "description too long"},
		{"unknown field", `{"user_id":"u1","foo":1}`, "invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			rr := ts.do(http.MethodPost, "/api/transactions", tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Contains(t, decodeBody(t, rr)["error"], tt.wantErr)
			assert.Empty(t, ts.txs.created)
		})
	}
}

func TestListTransactions(t *testing.T) {
	ts := newTestServer(t)
	ts.txs.list = []core.Transaction{
		{ID: "a", UserID: "u1", Description: "Nomina", Amount: decimal.NewFromInt(25000), Date: core.NewDate(2024, 3, 15), Type: core.Income},
	}

	rr := ts.do(http.MethodGet, "/api/transactions?user_id=u1&year=2024&month=3&type=ingreso", "")
	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "2024-03", body["period"])
	assert.EqualValues(t, 1, body["count"])

	require.Len(t, ts.txs.filters, 1)
	f := ts.txs.filters[0]
	assert.Equal(t, "u1", f.UserID)
	assert.Equal(t, core.Income, f.Type)
	assert.Equal(t, core.NewDate(2024, 3, 1), f.From)
	assert.Equal(t, core.NewDate(2024, 4, 1), f.To)

	rr = ts.do(http.MethodGet, "/api/transactions?user_id=u1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "2024-03", decodeBody(t, rr)["period"], "defaults to the current month")

	rr = ts.do(http.MethodGet, "/api/transactions?year=2024", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.do(http.MethodGet, "/api/transactions?user_id=u1&type=otro", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	ts.txs.err = errors.New("database is locked")
	rr = ts.do(http.MethodGet, "/api/transactions?user_id=u1", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"database is locked"}`, rr.Body.String())
}

func TestDeleteTransaction(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(http.MethodDelete, "/api/transactions/tx-9?user_id=u1", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, []string{"u1/tx-9"}, ts.txs.deleted)

	rr = ts.do(http.MethodGet, "/api/transactions/tx-9?user_id=u1", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, "DELETE", rr.Header().Get("Allow"))

	ts.txs.err = core.ErrNotFound
	rr = ts.do(http.MethodDelete, "/api/transactions/tx-9?user_id=u1", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCategoriesAndAccounts(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(http.MethodPost, "/api/categories", `{"user_id":"u1","name":"Comida","type":"expense","color":"#aa5500"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "gasto", decodeBody(t, rr)["type"])

	rr = ts.do(http.MethodGet, "/api/categories?user_id=u1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeBody(t, rr)["categories"], 1)

	rr = ts.do(http.MethodPost, "/api/assets", `{"user_id":"u1","name":"Casa","value":1500000,"cost":"1200000"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "asset-1", decodeBody(t, rr)["id"])
	require.Len(t, ts.acc.assets, 1)
	assert.True(t, decimal.NewFromInt(1200000).Equal(ts.acc.assets[0].Cost))

	rr = ts.do(http.MethodPost, "/api/liabilities", `{"user_id":"u1","name":"Hipoteca","balance":-1}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.do(http.MethodPost, "/api/budgets", `{"user_id":"u1","category_id":"cat-1","monthly_limit":3000}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "budget-1", decodeBody(t, rr)["id"])

	rr = ts.do(http.MethodGet, "/api/budgets?user_id=u1&year=2024&month=2", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 2, ts.dash.month)
	assert.Equal(t, "2024-02", decodeBody(t, rr)["period"])

	rr = ts.do(http.MethodPut, "/api/assets", `{}`)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestInsightsEndpoints(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(http.MethodGet, "/api/insights/patterns?user_id=u1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "2024.1", body["rulesVersion"])
	assert.Contains(t, body, "fixed")

	rr = ts.do(http.MethodGet, "/api/insights/patterns", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error":"missing user id"}`, rr.Body.String())

	ts.ins.snapshot = storage.PatternSnapshot{
		UserID:       "u1",
		ComputedAt:   time.Date(2024, 3, 19, 10, 0, 0, 0, time.UTC),
		RulesVersion: "2024.1",
		Payload:      []byte(`{"windowTotal":1500}`),
	}
	rr = ts.do(http.MethodGet, "/api/insights/snapshot?user_id=u1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"user_id":"u1","computed_at":"2024-03-19T10:00:00Z","rules_version":"2024.1","patterns":{"windowTotal":1500}}`, rr.Body.String())

	ts.ins.err = core.ErrNotFound
	rr = ts.do(http.MethodGet, "/api/insights/snapshot?user_id=u1", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestReportEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(http.MethodPost, "/api/reports", `{"user_id":"u1","year":2024,"month":3,"type":"gasto"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body := decodeBody(t, rr)
	assert.Equal(t, "reporte-2024-03-gastos.html", body["filename"])
	assert.Contains(t, body["html"], "<body>Reporte</body>")
	assert.Len(t, body, 2)
	assert.Equal(t, report.TypeExpense, ts.reports.got.Type)

	rr = ts.do(http.MethodPost, "/api/reports", `{"year":2024,"month":3}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.do(http.MethodPost, "/api/reports", `{"user_id":"u1","year":2024,"month":14}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.do(http.MethodGet, "/api/reports", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestDashboardEndpoints(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(http.MethodGet, "/api/dashboard/summary?user_id=u1&year=2024&month=2", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "2024-02", decodeBody(t, rr)["period"])

	rr = ts.do(http.MethodGet, "/api/dashboard/summary?user_id=u1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 3, ts.dash.month)

	rr = ts.do(http.MethodGet, "/api/dashboard/history?user_id=u1&months=12", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 12, ts.dash.months)
	assert.Len(t, decodeBody(t, rr)["history"], 1)

	rr = ts.do(http.MethodGet, "/api/dashboard/history?user_id=u1&months=-1", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.do(http.MethodGet, "/api/dashboard/net-worth?user_id=u1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "800000", decodeBody(t, rr)["netWorth"])

	rr = ts.do(http.MethodGet, "/api/dashboard/net-worth", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUnwiredServices(t *testing.T) {
	cfg := log.DefaultConfig()
	cfg.Output = io.Discard
	srv := NewServer(":0", Deps{}, Options{Logger: log.New(cfg)})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	for _, path := range []string{"/api/insights/patterns?user_id=u1", "/api/dashboard/summary?user_id=u1", "/readyz"} {
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code, path)
	}
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/transactions", nil)
	req.Header.Set("Origin", "https://app.moni.mx")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	ts.Handler.ServeHTTP(rr, req)

	assert.Equal(t, "https://app.moni.mx", rr.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://evil.example")
	rr = httptest.NewRecorder()
	ts.Handler.ServeHTTP(rr, req)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	cfg := log.DefaultConfig()
	cfg.Output = io.Discard
	srv := NewServer(":0", Deps{Database: fakePinger{}}, Options{Logger: log.New(cfg), RateLimitPerMinute: 2})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		codes = append(codes, rr.Code)
		if rr.Code == http.StatusTooManyRequests {
			assert.Equal(t, "60", rr.Header().Get("Retry-After"))
			assert.JSONEq(t, `{"error":"rate limit exceeded"}`, rr.Body.String())
		}
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
}
