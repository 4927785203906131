package routes

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Dosada05/match-score/brackets"
	"github.com/Dosada05/match-score/handlers"
	"github.com/Dosada05/match-score/middleware"
	"github.com/go-chi/chi/v5"
)

const testSecret = "routes-secret"

// Сервисы не нужны: проверяются только ответы, которые не доходят до них.
func newTestRouter(t *testing.T, limiter *middleware.RateLimiter) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := chi.NewRouter()
	SetupRoutes(router, Handlers{
		Auth:       handlers.NewAuthHandler(nil, testSecret),
		Player:     handlers.NewPlayerHandler(nil),
		Match:      handlers.NewMatchHandler(nil),
		Tournament: handlers.NewTournamentHandler(nil),
		Claim:      handlers.NewClaimHandler(nil),
		Dashboard:  handlers.NewDashboardHandler(nil),
		WebSocket:  handlers.NewWebSocketHandler(brackets.NewHub(logger), nil, logger),
	}, Options{
		JWTSecret:      testSecret,
		AllowedOrigins: []string{"*"},
		RateLimiter:    limiter,
	})
	return router
}

func bearer(t *testing.T, isAdmin, isDirector bool) string {
	t.Helper()
	token, err := middleware.IssueToken([]byte(testSecret), 1, isAdmin, isDirector)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	return "Bearer " + token
}

func TestProtectedRoutes(t *testing.T) {
	router := newTestRouter(t, nil)

	tests := []struct {
		name   string
		method string
		path   string
		auth   string
		want   int
	}{
		{"anonymous tournament create", http.MethodPost, "/api/tournaments", "", http.StatusUnauthorized},
		{"plain user tournament create", http.MethodPost, "/api/tournaments", bearer(t, false, false), http.StatusForbidden},
		{"plain user next round", http.MethodPost, "/api/tournaments/1/next-round", bearer(t, false, false), http.StatusForbidden},
		{"director deletes player", http.MethodDelete, "/api/players/1", bearer(t, false, true), http.StatusForbidden},
		{"director lists claims", http.MethodGet, "/api/claims", bearer(t, false, true), http.StatusForbidden},
		{"anonymous claim", http.MethodPost, "/api/claims/director", "", http.StatusUnauthorized},
		{"anonymous score", http.MethodPost, "/api/matches/1/score", "", http.StatusUnauthorized},
		{"director reads stats", http.MethodGet, "/api/admin/stats", bearer(t, false, true), http.StatusForbidden},
		{"anonymous me", http.MethodGet, "/api/auth/me", "", http.StatusUnauthorized},
		// Проходит проверку ролей и отклоняется хендлером из-за пустого тела
		{"director tournament create", http.MethodPost, "/api/tournaments", bearer(t, false, true), http.StatusBadRequest},
		{"admin resolves claim", http.MethodPost, "/api/claims/1/resolve", bearer(t, true, false), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestAPIIsRateLimited(t *testing.T) {
	limiter := middleware.NewRateLimiter(1, slog.New(slog.NewTextHandler(io.Discard, nil)))
	router := newTestRouter(t, limiter)

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(""))
		req.RemoteAddr = "203.0.113.5:4000"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}
	if code := send(); code != http.StatusBadRequest {
		t.Fatalf("first status = %d, want 400", code)
	}
	if code := send(); code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", code)
	}

	// Вне /api лимит не действует
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("healthz status = %d", rec.Code)
		}
	}
}

func TestSwaggerDocIsServed(t *testing.T) {
	router := newTestRouter(t, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "/tournaments/{tournamentID}/next-round") {
		t.Fatalf("status = %d, body = %.200s", rec.Code, rec.Body.String())
	}
}

func TestSwaggerDocCoversAPIRoutes(t *testing.T) {
	router := newTestRouter(t, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var doc struct {
		Paths map[string]map[string]json.RawMessage `json:"paths"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("doc.json is not valid JSON: %v", err)
	}

	walk := func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		if !strings.HasPrefix(route, "/api/") || strings.Contains(route, "*") {
			return nil
		}
		path := strings.TrimPrefix(route, "/api")
		if len(path) > 1 {
			path = strings.TrimSuffix(path, "/")
		}
		if _, ok := doc.Paths[path][strings.ToLower(method)]; !ok {
			t.Errorf("%s %s is missing from doc.json", method, path)
		}
		return nil
	}
	if err := chi.Walk(router.(chi.Routes), walk); err != nil {
		t.Fatalf("chi.Walk() error = %v", err)
	}
	if _, ok := doc.Paths["/matches/{matchID}/score"]["post"]; !ok {
		t.Fatal("score update must be documented")
	}
}
