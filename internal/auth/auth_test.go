package auth

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

var testSecret = []byte("test-secret")

func protectedHandler(t *testing.T, wantUser string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := FromContext(r.Context())
		if !ok {
			t.Error("expected claims in request context")
		}
		if wantUser != "" && claims.UserID != wantUser {
			t.Errorf("expected user %q, got %q", wantUser, claims.UserID)
		}
		w.WriteHeader(http.StatusOK)
	}
}

func newTestMiddleware() *Middleware {
	return NewMiddleware(testSecret, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRequireRole(t *testing.T) {
	m := newTestMiddleware()

	t.Run("rejects missing token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		rec := httptest.NewRecorder()

		m.RequireRole(RoleCustomer)(protectedHandler(t, ""))(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("rejects malformed token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		rec := httptest.NewRecorder()

		m.RequireRole(RoleCustomer)(protectedHandler(t, ""))(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("rejects token signed with another secret", func(t *testing.T) {
		token, err := SignToken([]byte("other-secret"), Claims{UserID: "u1", Role: RoleCustomer}, time.Hour)
		if err != nil {
			t.Fatalf("failed to sign token: %v", err)
		}

		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		m.RequireRole(RoleCustomer)(protectedHandler(t, ""))(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("rejects expired token", func(t *testing.T) {
		token, err := SignToken(testSecret, Claims{UserID: "u1", Role: RoleCustomer}, -time.Minute)
		if err != nil {
			t.Fatalf("failed to sign token: %v", err)
		}

		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		m.RequireRole(RoleCustomer)(protectedHandler(t, ""))(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("rejects wrong role with 403", func(t *testing.T) {
		token, err := SignToken(testSecret, Claims{UserID: "u1", Role: RoleCustomer}, time.Hour)
		if err != nil {
			t.Fatalf("failed to sign token: %v", err)
		}

		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		m.RequireRole(RoleAdmin)(protectedHandler(t, ""))(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Errorf("expected 403, got %d", rec.Code)
		}

		var resp map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp["error"] != "insufficient privileges" {
			t.Errorf("unexpected error message: %s", resp["error"])
		}
	})

	t.Run("passes claims through for a valid token", func(t *testing.T) {
		token, err := SignToken(testSecret, Claims{UserID: "u42", Username: "alice", Role: RoleCustomer}, time.Hour)
		if err != nil {
			t.Fatalf("failed to sign token: %v", err)
		}

		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		m.RequireRole(RoleCustomer, RoleAdmin)(protectedHandler(t, "u42"))(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})
}
