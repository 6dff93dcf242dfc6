package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIssueAndVerify(t *testing.T) {
	a, err := New("s3cret")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	token, err := a.Issue("cli", time.Hour)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	claims, err := a.Verify(token)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if claims.Subject != "cli" {
		t.Fatalf("expected subject cli, got %q", claims.Subject)
	}
}

func TestVerifyRejectsForeignAndExpiredTokens(t *testing.T) {
	a, _ := New("one")
	b, _ := New("two")

	foreign, err := b.Issue("cli", time.Hour)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if _, err := a.Verify(foreign); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for foreign signature, got %v", err)
	}

	a.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := a.Issue("cli", time.Minute)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	a.now = time.Now
	if _, err := a.Verify(expired); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestNewRequiresSecret(t *testing.T) {
	if _, err := New("  "); !errors.Is(err, ErrNoSecret) {
		t.Fatalf("expected ErrNoSecret, got %v", err)
	}
}

func TestMiddleware(t *testing.T) {
	a, _ := New("s3cret")
	token, _ := a.Issue("cli", time.Hour)

	handler := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", "", http.StatusUnauthorized},
		{"garbage", "Bearer nope", "", http.StatusUnauthorized},
		{"header", "Bearer " + token, "", http.StatusNoContent},
		{"query", "", "?token=" + token, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/files"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}
