package app

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestRequireTokenAcceptsMatchingBearer(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	guarded := RequireToken(logger, string(hash))(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/runs", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rr := httptest.NewRecorder()
	guarded.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected pass-through, got %d", rr.Code)
	}
}

func TestRequireTokenRejectsBadToken(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	guarded := RequireToken(logger, string(hash))(okHandler())

	for _, header := range []string{"", "Bearer wrong"} {
		req := httptest.NewRequest(http.MethodPost, "/runs", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rr := httptest.NewRecorder()
		guarded.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 for %q, got %d", header, rr.Code)
		}
	}
}

func TestRequireTokenEmptyHashDisablesGuard(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	guarded := RequireToken(logger, "")(okHandler())

	rr := httptest.NewRecorder()
	guarded.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/runs", nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("empty hash must disable the guard, got %d", rr.Code)
	}
}

func TestEntitiesValidated(t *testing.T) {
	cfg := &Config{BaseDir: "/srv/gannet"}
	entities, err := cfg.Entities()
	if err != nil {
		t.Fatalf("Entities returned error: %v", err)
	}
	if len(entities) != 2 {
		t.Fatalf("expected both legal entities, got %d", len(entities))
	}
	if entities[0].Company != "SL" || entities[1].Company != "LLC" {
		t.Fatalf("unexpected entity companies: %+v", entities)
	}
}
