package integration_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const jwtSecret = "integration-secret"

type row = map[string]any

// fakeSupabase answers the subset of PostgREST, GoTrue and the get_user_plans
// RPC the BFF uses, over in-memory tables.
type fakeSupabase struct {
	mu        sync.Mutex
	tables    map[string][]row
	passwords map[string]string // email -> password
	users     map[string]string // email -> user id
}

func newFakeSupabase(t *testing.T) (*fakeSupabase, *httptest.Server) {
	t.Helper()
	f := &fakeSupabase{
		tables:    make(map[string][]row),
		passwords: make(map[string]string),
		users:     make(map[string]string),
	}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeSupabase) addUser(email, password string, profile row) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.passwords[email] = password
	f.users[email] = profile["id"].(string)
	profile["email"] = email
	f.insertLocked("profiles", profile)
}

func (f *fakeSupabase) seed(table string, r row) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertLocked(table, r)
}

func (f *fakeSupabase) rows(table string) []row {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]row(nil), f.tables[table]...)
}

func (f *fakeSupabase) insertLocked(table string, r row) row {
	if _, ok := r["id"]; !ok {
		r["id"] = uuid.NewString()
	}
	if _, ok := r["created_at"]; !ok {
		r["created_at"] = time.Now().UTC().Format(time.RFC3339)
	}
	f.tables[table] = append(f.tables[table], r)
	return r
}

func (f *fakeSupabase) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasPrefix(r.URL.Path, "/auth/v1/"):
		f.serveAuth(w, r)
	case r.URL.Path == "/rest/v1/rpc/get_user_plans":
		f.serveUserPlans(w, r)
	case strings.HasPrefix(r.URL.Path, "/rest/v1/"):
		f.serveTable(w, r, strings.TrimPrefix(r.URL.Path, "/rest/v1/"))
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeSupabase) serveAuth(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/auth/v1/token":
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		json.NewDecoder(r.Body).Decode(&body)

		f.mu.Lock()
		want, known := f.passwords[body.Email]
		userID := f.users[body.Email]
		f.mu.Unlock()
		if !known || want != body.Password {
			writeFakeJSON(w, http.StatusBadRequest, row{"error": "invalid_grant", "error_description": "Invalid login credentials"})
			return
		}
		writeFakeJSON(w, http.StatusOK, row{
			"access_token":  issueToken(userID, time.Hour),
			"refresh_token": "refresh-" + userID,
			"expires_in":    3600,
			"token_type":    "bearer",
			"user":          row{"id": userID, "email": body.Email},
		})
	case "/auth/v1/logout":
		w.WriteHeader(http.StatusNoContent)
	default:
		http.NotFound(w, r)
	}
}

func issueToken(userID string, ttl time.Duration) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		Audience:  jwt.ClaimStrings{"authenticated"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	})
	signed, err := token.SignedString([]byte(jwtSecret))
	if err != nil {
		panic(err)
	}
	return signed
}

func (f *fakeSupabase) serveUserPlans(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID string `json:"p_user_id"`
	}
	json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	defer f.mu.Unlock()
	out := []row{}
	for _, up := range f.tables["user_plans"] {
		if up["user_id"] != body.UserID || up["status"] != "active" {
			continue
		}
		for _, p := range f.tables["subscription_plans"] {
			if p["id"] != up["plan_id"] {
				continue
			}
			out = append(out, row{
				"user_plan_id":       up["id"],
				"plan_id":            p["id"],
				"name":               p["name"],
				"included_weight_kg": p["included_weight_kg"],
				"billing_cycle":      up["billing_cycle"],
				"status":             up["status"],
				"started_at":         up["created_at"],
			})
		}
	}
	writeFakeJSON(w, http.StatusOK, out)
}

func (f *fakeSupabase) serveTable(w http.ResponseWriter, r *http.Request, table string) {
	params := r.URL.Query()

	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodGet:
		matched := f.filterLocked(table, params)
		sortRows(matched, params.Get("order"))
		writeFakeJSON(w, http.StatusOK, paginate(matched, params))

	case http.MethodPost:
		raw, _ := io.ReadAll(r.Body)
		var payload []row
		if len(raw) > 0 && raw[0] == '{' {
			var one row
			if err := json.Unmarshal(raw, &one); err != nil {
				writeFakeJSON(w, http.StatusBadRequest, row{"message": err.Error()})
				return
			}
			payload = []row{one}
		} else if err := json.Unmarshal(raw, &payload); err != nil {
			writeFakeJSON(w, http.StatusBadRequest, row{"message": err.Error()})
			return
		}
		created := make([]row, 0, len(payload))
		for _, p := range payload {
			created = append(created, f.insertLocked(table, p))
		}
		writeFakeJSON(w, http.StatusCreated, created)

	case http.MethodPatch:
		var updates row
		if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
			writeFakeJSON(w, http.StatusBadRequest, row{"message": err.Error()})
			return
		}
		matched := f.filterLocked(table, params)
		for _, m := range matched {
			for k, v := range updates {
				m[k] = v
			}
		}
		writeFakeJSON(w, http.StatusOK, matched)

	case http.MethodDelete:
		var kept []row
		for _, rr := range f.tables[table] {
			if !matchesAll(rr, params) {
				kept = append(kept, rr)
			}
		}
		f.tables[table] = kept
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// filterLocked returns the live rows of table matching every filter, so
// PATCH can update them in place.
func (f *fakeSupabase) filterLocked(table string, params url.Values) []row {
	out := []row{}
	for _, rr := range f.tables[table] {
		if matchesAll(rr, params) {
			out = append(out, rr)
		}
	}
	return out
}

var reservedParams = map[string]bool{"select": true, "order": true, "limit": true, "offset": true}

func matchesAll(r row, params url.Values) bool {
	for col, exprs := range params {
		if reservedParams[col] {
			continue
		}
		for _, expr := range exprs {
			if !matches(r[col], expr) {
				return false
			}
		}
	}
	return true
}

func matches(v any, expr string) bool {
	s := ""
	if v != nil {
		s = fmt.Sprint(v)
	}
	switch {
	case expr == "is.null":
		return v == nil
	case strings.HasPrefix(expr, "eq."):
		return v != nil && s == strings.TrimPrefix(expr, "eq.")
	case strings.HasPrefix(expr, "neq."):
		return s != strings.TrimPrefix(expr, "neq.")
	case strings.HasPrefix(expr, "not.in.("):
		return !inList(s, strings.TrimPrefix(expr, "not.in."))
	case strings.HasPrefix(expr, "in.("):
		return v != nil && inList(s, strings.TrimPrefix(expr, "in."))
	case strings.HasPrefix(expr, "gte."):
		return v != nil && s >= strings.TrimPrefix(expr, "gte.")
	}
	return false
}

func inList(s, list string) bool {
	for _, item := range strings.Split(strings.Trim(list, "()"), ",") {
		if item == s {
			return true
		}
	}
	return false
}

func sortRows(rows []row, order string) {
	if order == "" {
		return
	}
	col, dir, _ := strings.Cut(order, ".")
	sort.SliceStable(rows, func(i, j int) bool {
		if dir == "desc" {
			return lessValue(rows[j][col], rows[i][col])
		}
		return lessValue(rows[i][col], rows[j][col])
	})
}

func lessValue(a, b any) bool {
	if fa, ok := a.(float64); ok {
		if fb, ok := b.(float64); ok {
			return fa < fb
		}
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}

func paginate(rows []row, params url.Values) []row {
	offset, _ := strconv.Atoi(params.Get("offset"))
	if offset > len(rows) {
		return []row{}
	}
	rows = rows[offset:]
	if limit, err := strconv.Atoi(params.Get("limit")); err == nil && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}

func writeFakeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
