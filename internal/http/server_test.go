package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"fintrack/internal/auth"
	"fintrack/internal/classifier"
	"fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

type testEnv struct {
	srv     *Server
	repo    *storage.SQLiteRepository
	metrics *metrics.Metrics
	now     time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "fintrack.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	logger := log.New(log.Config{Level: slog.LevelError, Format: "json", Output: io.Discard})
	m := metrics.New()
	cls := classifier.NewDefault()

	env := &testEnv{repo: repo, metrics: m, now: time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)}
	srv, err := NewServer(Options{
		Addr:               ":0",
		RateLimitPerMinute: 1000,
		Logger:             logger,
		Metrics:            m,
	}, Services{
		Users:        auth.NewPasswordAuthenticator(repo),
		Sessions:     auth.NewSessionManager("test-secret-test-secret-test-secret", 2*time.Hour),
		Transactions: services.NewTransactionService(repo, cls, nil, m, logger),
		Reports:      services.NewReportService(repo, services.ReportOptions{}),
		Planning:     services.NewPlanningService(repo, cls),
		Activity:     services.NewActivityService(repo),
		Categories:   cls.Categories(),
		Readiness:    repo.Ping,
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	srv.now = func() time.Time { return env.now }
	t.Cleanup(func() { srv.limiter.Stop() })
	env.srv = srv
	return env
}

// client carries cookies between requests the way a browser would.
type client struct {
	t       *testing.T
	env     *testEnv
	cookies map[string]*http.Cookie
}

func (e *testEnv) client(t *testing.T) *client {
	return &client{t: t, env: e, cookies: make(map[string]*http.Cookie)}
}

func (c *client) do(method, target, body string, header http.Header) *httptest.ResponseRecorder {
	c.t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if body != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}

	rec := httptest.NewRecorder()
	c.env.srv.Handler.ServeHTTP(rec, req)

	for _, ck := range rec.Result().Cookies() {
		if ck.MaxAge < 0 || ck.Value == "" {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck
	}
	return rec
}

func (c *client) get(target string) *httptest.ResponseRecorder {
	c.t.Helper()
	return c.do(http.MethodGet, target, "", nil)
}

func (c *client) postForm(target string, form url.Values) *httptest.ResponseRecorder {
	c.t.Helper()
	return c.do(http.MethodPost, target, form.Encode(), nil)
}

func (c *client) register(username string) {
	c.t.Helper()
	rec := c.postForm("/register", url.Values{
		"username":         {username},
		"password":         {"correct-horse"},
		"confirm_password": {"correct-horse"},
	})
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
		c.t.Fatalf("register %s: status %d location %q", username, rec.Code, rec.Header().Get("Location"))
	}
	if _, ok := c.cookies[SessionCookieName]; !ok {
		c.t.Fatalf("register %s: no session cookie", username)
	}
}

func (c *client) createJSON(description, amount string) transactionJSON {
	c.t.Helper()
	body, _ := json.Marshal(map[string]any{
		"date":        "2024-05-10",
		"description": description,
		"amount":      amount,
		"type":        "expense",
	})
	rec := c.do(http.MethodPost, "/transactions", string(body), http.Header{"Content-Type": {"application/json"}})
	if rec.Code != http.StatusCreated {
		c.t.Fatalf("create %q: status %d body %s", description, rec.Code, rec.Body.String())
	}
	var out transactionJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		c.t.Fatalf("decode created transaction: %v", err)
	}
	return out
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return v
}

func TestGuardForAnonymousVisitors(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)

	tests := []struct {
		path     string
		status   int
		location string
	}{
		{"/", http.StatusSeeOther, "/login"},
		{"/goals", http.StatusSeeOther, "/login"},
		{"/transactions/new", http.StatusSeeOther, "/login"},
		{"/api/summary", http.StatusUnauthorized, ""},
		{"/login", http.StatusOK, ""},
		{"/register", http.StatusOK, ""},
		{"/healthz", http.StatusOK, ""},
		{"/static/app.css", http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := c.get(tt.path)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if got := rec.Header().Get("Location"); got != tt.location {
				t.Errorf("Location = %q, want %q", got, tt.location)
			}
		})
	}

	rec := c.get("/api/summary")
	if body := decode[errorBody](t, rec); body.Error != "unauthenticated" {
		t.Error("401 from the API should carry a JSON error")
	}
	if got := testutil.ToFloat64(env.metrics.SessionRedirects); got != 5 {
		t.Errorf("session rejections = %v, want 5", got)
	}
}

func TestStaticAssetsAreCacheable(t *testing.T) {
	env := newTestEnv(t)
	rec := env.client(t).get("/static/app.js")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Cache-Control"); !strings.HasPrefix(got, "public") {
		t.Errorf("Cache-Control = %q, want public caching", got)
	}
}

func TestRegisterLoginLogout(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)
	c.register("alice")

	rec := c.get("/")
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Welcome, alice!") {
		t.Error("dashboard should show the welcome flash once")
	}
	if rec.Header().Get("Content-Security-Policy") == "" {
		t.Error("pages must carry a CSP header")
	}
	if strings.Contains(c.get("/").Body.String(), "Welcome, alice!") {
		t.Error("flash should be consumed after the first render")
	}

	rec = c.postForm("/logout", nil)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
		t.Fatalf("logout: status %d location %q", rec.Code, rec.Header().Get("Location"))
	}
	if rec := c.get("/"); rec.Code != http.StatusSeeOther {
		t.Fatalf("after logout / status = %d, want redirect", rec.Code)
	}

	rec = c.postForm("/login", url.Values{"username": {"alice"}, "password": {"wrong-password"}})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login status = %d, want 401", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Invalid username or password.") {
		t.Error("bad login should explain the failure")
	}

	rec = c.postForm("/login", url.Values{"username": {"alice"}, "password": {"correct-horse"}})
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
		t.Fatalf("login: status %d location %q", rec.Code, rec.Header().Get("Location"))
	}
	if rec := c.get("/"); rec.Code != http.StatusOK {
		t.Fatalf("after login / status = %d", rec.Code)
	}
}

func TestRegisterRejections(t *testing.T) {
	env := newTestEnv(t)
	env.client(t).register("bob")

	tests := []struct {
		name   string
		form   url.Values
		status int
	}{
		{"duplicate", url.Values{"username": {"bob"}, "password": {"another-pass"}, "confirm_password": {"another-pass"}}, http.StatusConflict},
		{"mismatch", url.Values{"username": {"carol"}, "password": {"another-pass"}, "confirm_password": {"different"}}, http.StatusUnprocessableEntity},
		{"short password", url.Values{"username": {"carol"}, "password": {"short"}, "confirm_password": {"short"}}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := env.client(t)
			rec := c.postForm("/register", tt.form)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if _, ok := c.cookies[SessionCookieName]; ok {
				t.Error("failed registration must not start a session")
			}
		})
	}
}

func TestSessionInactivityWindow(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)
	c.register("dora")

	// each request slides the window forward
	for i := 0; i < 3; i++ {
		env.now = env.now.Add(90 * time.Minute)
		if rec := c.get("/"); rec.Code != http.StatusOK {
			t.Fatalf("request %d after 90m idle: status %d", i, rec.Code)
		}
	}

	env.now = env.now.Add(2*time.Hour + time.Minute)
	rec := c.get("/")
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
		t.Fatalf("expired session: status %d location %q", rec.Code, rec.Header().Get("Location"))
	}
	if _, ok := c.cookies[SessionCookieName]; ok {
		t.Error("expired session cookie should be cleared")
	}
}

func TestCreateTransaction(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)
	c.register("erin")

	t.Run("form", func(t *testing.T) {
		rec := c.postForm("/transactions", url.Values{
			"date":        {"2024-05-10"},
			"description": {"Grocery run"},
			"amount":      {"12.50"},
			"type":        {"expense"},
		})
		if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
			t.Fatalf("status %d location %q", rec.Code, rec.Header().Get("Location"))
		}
		if !strings.Contains(c.get("/").Body.String(), "Grocery run") {
			t.Error("dashboard should list the new transaction")
		}
	})

	t.Run("invalid amount", func(t *testing.T) {
		rec := c.postForm("/transactions", url.Values{
			"date":        {"2024-05-10"},
			"description": {"Lunch"},
			"amount":      {"twelve"},
			"type":        {"expense"},
		})
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d, want 422", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `value="Lunch"`) {
			t.Error("form should be re-rendered with the submitted values")
		}
	})

	t.Run("json amount error carries parse detail", func(t *testing.T) {
		body := `{"date":"2024-05-10","description":"Laptop","amount":"1,000","type":"expense"}`
		rec := c.do(http.MethodPost, "/transactions", body, http.Header{"Content-Type": {"application/json"}})
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d, want 422", rec.Code)
		}
		if msg := decode[errorBody](t, rec).Error; !strings.Contains(msg, "ambiguous separator") {
			t.Errorf("error %q should carry the parse detail", msg)
		}
	})

	t.Run("json", func(t *testing.T) {
		created := c.createJSON("Netflix subscription", "15.99")
		if created.Category != "Entertainment" || created.AmountCents != 1599 {
			t.Errorf("created = %+v", created)
		}
	})

	t.Run("partial", func(t *testing.T) {
		rec := c.do(http.MethodPost, "/transactions",
			url.Values{"date": {"2024-05-11"}, "description": {"Salary"}, "amount": {"2000"}, "type": {"income"}}.Encode(),
			http.Header{"HX-Request": {"true"}})
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201", rec.Code)
		}
		trigger := rec.Header().Get(TriggerHeader)
		for _, want := range []string{"transaction:created", "charts:refresh", "form:reset"} {
			if !strings.Contains(trigger, want) {
				t.Errorf("HX-Trigger %q missing %s", trigger, want)
			}
		}
	})

	rec := c.get("/api/summary?month=2024-05")
	if rec.Code != http.StatusOK {
		t.Fatalf("summary status = %d", rec.Code)
	}
	summary := decode[summaryJSON](t, rec)
	if summary.Expenses != 28.49 || summary.Income != 2000 {
		t.Errorf("summary = %+v, want expenses 28.49 and income 2000", summary)
	}
	if len(summary.ByCategory) != 2 || summary.ByCategory[0].Category != "Entertainment" {
		t.Errorf("by category = %+v", summary.ByCategory)
	}
}

func TestDeleteTransactionOwnership(t *testing.T) {
	env := newTestEnv(t)
	owner, other := env.client(t), env.client(t)
	owner.register("frank")
	other.register("grace")

	created := owner.createJSON("Pizza night", "30")
	target := "/transactions/" + strconv.FormatInt(created.ID, 10)

	if rec := other.postForm(target+"/delete", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("foreign delete status = %d, want 404", rec.Code)
	}
	frank, err := env.repo.GetUserByUsername(context.Background(), "frank")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.repo.GetTransaction(context.Background(), created.ID, frank.ID); err != nil {
		t.Fatalf("foreign delete removed the owner's row: %v", err)
	}

	rec := owner.do(http.MethodDelete, target, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("owner delete status = %d", rec.Code)
	}
	if trigger := rec.Header().Get(TriggerHeader); !strings.Contains(trigger, "transaction:deleted") {
		t.Errorf("HX-Trigger = %q", trigger)
	}

	if rec := owner.do(http.MethodDelete, target, "", nil); rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
	if summary := decode[summaryJSON](t, owner.get("/api/summary?month=2024-05")); summary.Expenses != 0 {
		t.Errorf("summary after delete = %+v, cache should have been invalidated", summary)
	}
}

func TestReportEndpoints(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)
	c.register("heidi")
	c.createJSON("Uber to airport", "42")

	tests := []struct {
		target string
		status int
	}{
		{"/api/trend", http.StatusOK},
		{"/api/trend?months=3", http.StatusOK},
		{"/api/trend?months=0", http.StatusUnprocessableEntity},
		{"/api/trend?months=61", http.StatusUnprocessableEntity},
		{"/api/summary?month=2024-13", http.StatusUnprocessableEntity},
		{"/api/activity", http.StatusOK},
		{"/api/activity?limit=500", http.StatusUnprocessableEntity},
		{"/api/chart_data", http.StatusOK},
		{"/api/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			if rec := c.get(tt.target); rec.Code != tt.status {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body.String())
			}
		})
	}

	trend := decode[[]services.ChartTrendPoint](t, c.get("/api/trend?months=3"))
	if len(trend) != 1 || trend[0].Month != "2024-05" || trend[0].Expenses != 42 {
		t.Errorf("trend = %+v", trend)
	}

	charts := decode[services.ChartData](t, c.get("/api/chart_data"))
	if charts.CategoryData["Transportation"] != 42 {
		t.Errorf("category data = %v", charts.CategoryData)
	}
	if charts.MonthlyTrends == nil {
		t.Error("monthly trends should be an empty list, not null")
	}

	if activity := c.get("/api/activity").Body.String(); strings.TrimSpace(activity) != "[]" {
		t.Errorf("activity without a worker = %s, want []", activity)
	}
}

func TestGoalsAndBudgets(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)
	c.register("ivan")

	rec := c.postForm("/goals", url.Values{"name": {"Holiday"}, "target_amount": {"1000"}, "target_date": {"2024-12-31"}})
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/goals" {
		t.Fatalf("create goal: status %d location %q", rec.Code, rec.Header().Get("Location"))
	}
	ivan, err := env.repo.GetUserByUsername(context.Background(), "ivan")
	if err != nil {
		t.Fatal(err)
	}
	goals, err := env.repo.ListSavingsGoals(context.Background(), ivan.ID)
	if err != nil || len(goals) != 1 {
		t.Fatalf("goals = %v, %v", goals, err)
	}
	goalPath := "/goals/" + strconv.FormatInt(goals[0].ID, 10)

	rec = c.do(http.MethodPost, goalPath+"/contribute", url.Values{"amount": {"250"}}.Encode(), http.Header{"HX-Request": {"true"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("contribute status = %d", rec.Code)
	}
	if trigger := rec.Header().Get(TriggerHeader); !strings.Contains(trigger, `"progress":25`) {
		t.Errorf("HX-Trigger = %q, want goal progress 25", trigger)
	}

	if rec := c.postForm("/goals", url.Values{"name": {""}, "target_amount": {"10"}}); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("nameless goal status = %d, want 422", rec.Code)
	}

	if rec := c.postForm("/budgets", url.Values{"category": {"Food"}, "amount": {"200"}, "month": {"2024-05"}}); rec.Code != http.StatusSeeOther {
		t.Fatalf("set budget status = %d", rec.Code)
	}
	if rec := c.postForm("/budgets", url.Values{"category": {"Yachts"}, "amount": {"200"}, "month": {"2024-05"}}); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("unknown category status = %d, want 422", rec.Code)
	}

	page := c.get("/goals").Body.String()
	for _, want := range []string{"Holiday", "$250.00 of $1,000.00", "Food", "$200.00"} {
		if !strings.Contains(page, want) {
			t.Errorf("goals page missing %q", want)
		}
	}

	c.createJSON("Restaurant dinner", "250")
	if dash := c.get("/").Body.String(); !strings.Contains(dash, `class="over"`) {
		t.Error("dashboard should flag the exceeded Food budget")
	}

	if rec := c.postForm(goalPath+"/delete", nil); rec.Code != http.StatusSeeOther {
		t.Errorf("delete goal status = %d", rec.Code)
	}
	if rec := c.postForm(goalPath+"/delete", nil); rec.Code != http.StatusNotFound {
		t.Errorf("second goal delete status = %d, want 404", rec.Code)
	}
}

func TestHealthReadyAndMetrics(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)

	health := decode[map[string]any](t, c.get("/healthz"))
	if health["status"] != "ok" {
		t.Errorf("health = %v", health)
	}

	rec := c.get("/readyz")
	if rec.Code != http.StatusOK {
		t.Fatalf("ready status = %d", rec.Code)
	}
	ready := decode[map[string]any](t, rec)
	if checks, _ := ready["checks"].(map[string]any); checks["database"] != "ok" {
		t.Errorf("ready checks = %v", ready["checks"])
	}

	env.srv.svc.Readiness = func(context.Context) error { return errors.New("database is locked") }
	if rec := c.get("/readyz"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("failing readiness status = %d, want 503", rec.Code)
	}

	rec = c.get("/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `fintrack_http_requests_total{method="GET",route="/healthz",status="200"} 1`) {
		t.Errorf("metrics should count the health check by route template")
	}
}

func TestSuspiciousRequestsAreCounted(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)
	c.do(http.MethodGet, "/login", "", http.Header{"User-Agent": {"sqlmap/1.7"}})

	rec := c.get("/metrics")
	if !strings.Contains(rec.Body.String(), "fintrack_suspicious_requests_total 1") {
		t.Error("suspicious request counter should be 1")
	}
}
