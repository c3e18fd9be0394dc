package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/prefs"
	"fintrack/internal/store"
	"fintrack/internal/store/memory"
	"fintrack/internal/view"
)

func newTestServer(t *testing.T, jwtMgr *auth.JWTManager) *Server {
	t.Helper()

	mem := memory.New()
	prefStore, err := prefs.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("prefs.NewStore() error = %v", err)
	}

	s := NewServer(Options{
		Addr: ":0",
		Stores: store.Stores{
			Transactions: mem.Transactions(),
			Categories:   mem.Categories(),
		},
		Users: memory.NewUsers(),
		JWT:   jwtMgr,
		Prefs: prefStore,
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s
}

func doRequest(s *Server, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.RemoteAddr = "192.0.2.1:1234"
	w := httptest.NewRecorder()
	s.Handler.ServeHTTP(w, req)
	return w
}

// listModel polls the list endpoint until cond holds on the decoded model.
// Snapshot delivery to the session is asynchronous.
func listModel(t *testing.T, s *Server, target string, cond func(view.Model) bool) view.Model {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		w := doRequest(s, http.MethodGet, target, "")
		if w.Code != http.StatusOK {
			t.Fatalf("GET %s = %d, want 200: %s", target, w.Code, w.Body.String())
		}
		var m view.Model
		if err := json.NewDecoder(w.Body).Decode(&m); err != nil {
			t.Fatalf("decode model: %v", err)
		}
		if cond(m) {
			return m
		}
		if time.Now().After(deadline) {
			t.Fatalf("GET %s never reached expected state, last model: %+v", target, m)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t, nil)

	if w := doRequest(s, http.MethodGet, "/healthz", ""); w.Code != http.StatusOK {
		t.Errorf("GET /healthz = %d, want 200", w.Code)
	}
	if w := doRequest(s, http.MethodGet, "/readyz", ""); w.Code != http.StatusOK {
		t.Errorf("GET /readyz = %d, want 200", w.Code)
	}
}

func TestTransactionLifecycle(t *testing.T) {
	s := newTestServer(t, nil)

	w := doRequest(s, http.MethodPost, "/api/transactions",
		`{"date":"2024-03-15","type":"expense","category":"Food","description":"lunch","amount":"12.50"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("POST /api/transactions = %d: %s", w.Code, w.Body.String())
	}

	m := listModel(t, s, "/api/transactions", func(m view.Model) bool { return len(m.Rows) == 1 })
	row := m.Rows[0]
	if row.Category != "Food" || row.Amount != "12.50" {
		t.Errorf("row = %+v, want Food 12.50", row)
	}

	w = doRequest(s, http.MethodPut, "/api/transactions/"+row.ID,
		`{"date":"2024-03-16","type":"expense","category":"Rent","amount":"800"}`)
	if w.Code != http.StatusNoContent {
		t.Fatalf("PUT /api/transactions/{id} = %d: %s", w.Code, w.Body.String())
	}
	listModel(t, s, "/api/transactions", func(m view.Model) bool {
		return len(m.Rows) == 1 && m.Rows[0].Category == "Rent"
	})

	w = doRequest(s, http.MethodDelete, "/api/transactions/"+row.ID, "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("DELETE /api/transactions/{id} = %d", w.Code)
	}
	listModel(t, s, "/api/transactions", func(m view.Model) bool { return m.Empty })

	if w = doRequest(s, http.MethodDelete, "/api/transactions/"+row.ID, ""); w.Code != http.StatusNotFound {
		t.Errorf("DELETE missing id = %d, want 404", w.Code)
	}
}

func TestCreateTransaction_Invalid(t *testing.T) {
	s := newTestServer(t, nil)

	w := doRequest(s, http.MethodPost, "/api/transactions",
		`{"date":"2024-03-15","type":"expense","category":"Food","amount":"0"}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("zero amount = %d, want 422", w.Code)
	}

	w = doRequest(s, http.MethodPost, "/api/transactions", `{broken`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed body = %d, want 400", w.Code)
	}
}

func TestListTransactions_QueryFilters(t *testing.T) {
	s := newTestServer(t, nil)

	for _, body := range []string{
		`{"date":"2024-03-15","type":"income","category":"Salary","amount":"5000"}`,
		`{"date":"2024-02-10","type":"expense","category":"Rent","amount":"1200"}`,
	} {
		if w := doRequest(s, http.MethodPost, "/api/transactions", body); w.Code != http.StatusCreated {
			t.Fatalf("POST = %d: %s", w.Code, w.Body.String())
		}
	}
	listModel(t, s, "/api/transactions", func(m view.Model) bool { return len(m.Rows) == 2 })

	m := listModel(t, s, "/api/transactions?month=2024-03", func(m view.Model) bool { return len(m.Rows) == 1 })
	if m.Rows[0].Category != "Salary" {
		t.Errorf("filtered row = %+v, want Salary", m.Rows[0])
	}
	if m.Totals.Income != "5000.00" || m.Totals.Expense != "0.00" {
		t.Errorf("totals = %+v", m.Totals)
	}
}

func TestSetFilters_DrivesDefaultList(t *testing.T) {
	s := newTestServer(t, nil)

	for _, body := range []string{
		`{"date":"2024-03-15","type":"income","category":"Salary","amount":"5000"}`,
		`{"date":"2024-02-10","type":"expense","category":"Rent","amount":"1200"}`,
	} {
		if w := doRequest(s, http.MethodPost, "/api/transactions", body); w.Code != http.StatusCreated {
			t.Fatalf("POST = %d", w.Code)
		}
	}
	listModel(t, s, "/api/transactions", func(m view.Model) bool { return len(m.Rows) == 2 })

	if w := doRequest(s, http.MethodPut, "/api/filters", `{"type":"expense"}`); w.Code != http.StatusNoContent {
		t.Fatalf("PUT /api/filters = %d", w.Code)
	}

	m := listModel(t, s, "/api/transactions", func(m view.Model) bool { return len(m.Rows) == 1 })
	if m.Rows[0].Category != "Rent" {
		t.Errorf("row after session filter = %+v, want Rent", m.Rows[0])
	}
}

func TestCategoryEndpoints(t *testing.T) {
	s := newTestServer(t, nil)

	w := doRequest(s, http.MethodPost, "/api/categories", `{"name":"Travel","kind":"expense"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("POST /api/categories = %d: %s", w.Code, w.Body.String())
	}
	var created categoryResponse
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatalf("decode category: %v", err)
	}
	if created.ID == "" || created.Name != "Travel" || created.Kind != "expense" {
		t.Errorf("created = %+v", created)
	}

	// Wait for the snapshot so the duplicate guard sees the cached list.
	deadline := time.Now().Add(2 * time.Second)
	for {
		w = doRequest(s, http.MethodGet, "/api/categories", "")
		var list []categoryResponse
		_ = json.NewDecoder(w.Body).Decode(&list)
		if len(list) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("category never appeared in the session")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if w = doRequest(s, http.MethodPost, "/api/categories", `{"name":" travel ","kind":"income"}`); w.Code != http.StatusConflict {
		t.Errorf("duplicate category = %d, want 409", w.Code)
	}

	if w = doRequest(s, http.MethodPut, "/api/categories/"+created.ID, `{"kind":"both"}`); w.Code != http.StatusNoContent {
		t.Errorf("PUT kind = %d, want 204", w.Code)
	}
	if w = doRequest(s, http.MethodDelete, "/api/categories/"+created.ID, ""); w.Code != http.StatusNoContent {
		t.Errorf("DELETE = %d, want 204", w.Code)
	}
	if w = doRequest(s, http.MethodDelete, "/api/categories/"+created.ID, ""); w.Code != http.StatusNotFound {
		t.Errorf("DELETE missing = %d, want 404", w.Code)
	}
}

func TestCategoryOptions(t *testing.T) {
	s := newTestServer(t, nil)

	if w := doRequest(s, http.MethodPost, "/api/categories", `{"name":"Food","kind":"expense"}`); w.Code != http.StatusCreated {
		t.Fatalf("POST = %d", w.Code)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		w := doRequest(s, http.MethodGet, "/api/categories/options?type=expense&current=Legacy", "")
		if w.Code != http.StatusOK {
			t.Fatalf("GET options = %d", w.Code)
		}
		var opts []view.Option
		if err := json.NewDecoder(w.Body).Decode(&opts); err != nil {
			t.Fatalf("decode options: %v", err)
		}
		if len(opts) == 2 {
			if !opts[1].OutOfBand || opts[1].Name != "Legacy" {
				t.Errorf("options = %+v, want trailing out-of-band Legacy", opts)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("options never settled, last: %+v", opts)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestExportEndpoints(t *testing.T) {
	s := newTestServer(t, nil)

	if w := doRequest(s, http.MethodPost, "/api/transactions",
		`{"date":"2024-03-15","type":"expense","category":"Food","amount":"12.50"}`); w.Code != http.StatusCreated {
		t.Fatalf("POST = %d", w.Code)
	}
	listModel(t, s, "/api/transactions", func(m view.Model) bool { return len(m.Rows) == 1 })

	w := doRequest(s, http.MethodGet, "/api/export/json", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /api/export/json = %d", w.Code)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Errorf("Content-Disposition = %q, want attachment", cd)
	}
	var records []map[string]any
	if err := json.NewDecoder(w.Body).Decode(&records); err != nil {
		t.Fatalf("export is not a JSON array: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("exported %d records, want 1", len(records))
	}

	w = doRequest(s, http.MethodGet, "/api/export/csv", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /api/export/csv = %d", w.Code)
	}
	if !strings.HasPrefix(w.Body.String(), "id,date,type,category,description,amount") {
		t.Errorf("CSV body = %q, want header first", w.Body.String())
	}

	if w = doRequest(s, http.MethodPost, "/api/export/sheets", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("POST /api/export/sheets unconfigured = %d, want 503", w.Code)
	}
}

func TestImportEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	w := doRequest(s, http.MethodPost, "/api/import", `[
		{"date":"2024-01-01","type":"income","category":"Salary","amount":"1000"},
		{"date":"2024-01-02","type":"expense","category":"Food","amount":"12.50"}
	]`)
	if w.Code != http.StatusOK {
		t.Fatalf("POST /api/import = %d: %s", w.Code, w.Body.String())
	}
	var resp importResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Succeeded != 2 || resp.Failed != 0 {
		t.Errorf("import result = %+v, want 2 succeeded", resp)
	}

	if w = doRequest(s, http.MethodPost, "/api/import", `{"not":"an array"}`); w.Code != http.StatusBadRequest {
		t.Errorf("import of object = %d, want 400", w.Code)
	}
}

func TestPrefsEndpoints(t *testing.T) {
	s := newTestServer(t, nil)

	if w := doRequest(s, http.MethodGet, "/api/prefs/ui.collapsed", ""); w.Code != http.StatusNotFound {
		t.Errorf("GET unset pref = %d, want 404", w.Code)
	}

	if w := doRequest(s, http.MethodPut, "/api/prefs/ui.collapsed", `{"value":"true"}`); w.Code != http.StatusNoContent {
		t.Fatalf("PUT pref = %d", w.Code)
	}

	w := doRequest(s, http.MethodGet, "/api/prefs/ui.collapsed", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET pref = %d", w.Code)
	}
	var v prefValue
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil || v.Value != "true" {
		t.Errorf("pref value = %+v err=%v, want true", v, err)
	}

	if w = doRequest(s, http.MethodDelete, "/api/prefs/ui.collapsed", ""); w.Code != http.StatusNoContent {
		t.Errorf("DELETE pref = %d, want 204", w.Code)
	}
	if w = doRequest(s, http.MethodGet, "/api/prefs/ui.collapsed", ""); w.Code != http.StatusNotFound {
		t.Errorf("GET deleted pref = %d, want 404", w.Code)
	}

	// The PIN hash only moves through the lock endpoints.
	if w = doRequest(s, http.MethodPut, "/api/prefs/lock.pin_hash", `{"value":"x"}`); w.Code != http.StatusForbidden {
		t.Errorf("PUT reserved key = %d, want 403", w.Code)
	}
}

func TestPINLock(t *testing.T) {
	s := newTestServer(t, nil)

	if w := doRequest(s, http.MethodPost, "/api/lock/verify", `{"pin":"1234"}`); w.Code != http.StatusNotFound {
		t.Errorf("verify without PIN = %d, want 404", w.Code)
	}

	if w := doRequest(s, http.MethodPost, "/api/lock/pin", `{"pin":"12"}`); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("short PIN = %d, want 422", w.Code)
	}

	if w := doRequest(s, http.MethodPost, "/api/lock/pin", `{"pin":"1234"}`); w.Code != http.StatusNoContent {
		t.Fatalf("set PIN = %d", w.Code)
	}

	w := doRequest(s, http.MethodPost, "/api/lock/verify", `{"pin":"1234"}`)
	var resp pinVerifyResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil || !resp.Valid {
		t.Errorf("verify correct PIN = %+v err=%v, want valid", resp, err)
	}

	w = doRequest(s, http.MethodPost, "/api/lock/verify", `{"pin":"4321"}`)
	resp = pinVerifyResponse{}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil || resp.Valid {
		t.Errorf("verify wrong PIN = %+v err=%v, want invalid", resp, err)
	}

	if w = doRequest(s, http.MethodDelete, "/api/lock/pin", ""); w.Code != http.StatusNoContent {
		t.Fatalf("clear PIN = %d", w.Code)
	}
	if w = doRequest(s, http.MethodPost, "/api/lock/verify", `{"pin":"1234"}`); w.Code != http.StatusNotFound {
		t.Errorf("verify after clear = %d, want 404", w.Code)
	}
}

func TestAuth_AnonymousMode(t *testing.T) {
	s := newTestServer(t, nil)

	w := doRequest(s, http.MethodPost, "/api/auth/register", `{"email":"a@b.com","password":"secret1"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("register = %d: %s", w.Code, w.Body.String())
	}
	var resp authResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.UserID == "" || resp.Email != "a@b.com" {
		t.Errorf("register response = %+v", resp)
	}
	if resp.Token != "" {
		t.Error("no token should be issued without a JWT manager")
	}

	if w = doRequest(s, http.MethodPost, "/api/auth/register", `{"email":"a@b.com","password":"secret1"}`); w.Code != http.StatusConflict {
		t.Errorf("duplicate register = %d, want 409", w.Code)
	}
	if w = doRequest(s, http.MethodPost, "/api/auth/register", `{"email":"no-at-sign","password":"secret1"}`); w.Code != http.StatusBadRequest {
		t.Errorf("bad email = %d, want 400", w.Code)
	}

	if w = doRequest(s, http.MethodPost, "/api/auth/login", `{"email":"a@b.com","password":"wrong!"}`); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong password login = %d, want 401", w.Code)
	}
	if w = doRequest(s, http.MethodPost, "/api/auth/login", `{"email":"a@b.com","password":"secret1"}`); w.Code != http.StatusOK {
		t.Errorf("login = %d, want 200", w.Code)
	}
}

func TestAuth_TokenRequiredWithJWT(t *testing.T) {
	s := newTestServer(t, auth.NewJWTManager("test-secret", time.Hour))

	if w := doRequest(s, http.MethodGet, "/api/transactions", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated list = %d, want 401", w.Code)
	}

	w := doRequest(s, http.MethodPost, "/api/auth/register", `{"email":"a@b.com","password":"secret1"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("register = %d: %s", w.Code, w.Body.String())
	}
	var resp authResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("register should issue a token when JWT is configured")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	req.RemoteAddr = "192.0.2.1:1234"
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("authenticated list = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	req.Header.Set("Authorization", "Bearer garbage")
	rec = httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("garbage token = %d, want 401", rec.Code)
	}
}
