package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chatsync/internal/auth"
)

func authedEcho(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(GetUserID(r.Context())))
	})
}

func TestTokenAuthBearerHeader(t *testing.T) {
	tm := auth.NewTokenManager("test-secret", time.Minute)
	token, err := tm.Issue("user_42")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/conversations", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	TokenAuth(tm)(authedEcho(t)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "user_42" {
		t.Fatalf("expected user id in context, got %q", rec.Body.String())
	}
}

func TestTokenAuthQueryFallback(t *testing.T) {
	tm := auth.NewTokenManager("test-secret", time.Minute)
	token, err := tm.Issue("user_42")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil)
	rec := httptest.NewRecorder()
	TokenAuth(tm)(authedEcho(t)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 via query token, got %d", rec.Code)
	}
}

func TestTokenAuthMissingToken(t *testing.T) {
	tm := auth.NewTokenManager("test-secret", time.Minute)
	req := httptest.NewRequest(http.MethodGet, "/api/conversations", nil)
	rec := httptest.NewRecorder()
	TokenAuth(tm)(authedEcho(t)).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestTokenAuthInvalidToken(t *testing.T) {
	tm := auth.NewTokenManager("test-secret", time.Minute)
	req := httptest.NewRequest(http.MethodGet, "/api/conversations", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	rec := httptest.NewRecorder()
	TokenAuth(tm)(authedEcho(t)).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
