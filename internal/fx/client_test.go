package fx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientLatest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/latest" || r.URL.Query().Get("base") != "EUR" {
			t.Fatalf("unexpected request: %s", r.URL)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"base":"EUR","rates":{"USD":1.09,"GBP":0.86}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	rates, err := client.Latest(context.Background())
	if err != nil {
		t.Fatalf("Latest returned error: %v", err)
	}
	if rates["USD"] != 1.09 {
		t.Fatalf("unexpected rates: %v", rates)
	}
}

func TestClientMonthRequestsFullRange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2026-02-01..2026-02-28" {
			t.Fatalf("unexpected range path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"base":"EUR","rates":{"2026-02-02":{"USD":1.05}}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	quotes, err := client.Month(context.Background(), 2026, time.February)
	if err != nil {
		t.Fatalf("Month returned error: %v", err)
	}
	if quotes["2026-02-02"]["USD"] != 1.05 {
		t.Fatalf("unexpected quotes: %v", quotes)
	}
}

func TestClientSurfacesHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	if _, err := client.Latest(context.Background()); err == nil {
		t.Fatalf("expected error on 5xx response")
	}
}

func TestClientEmptyLatestIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"base":"EUR","rates":{}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	if _, err := client.Latest(context.Background()); err == nil {
		t.Fatalf("expected error on empty snapshot")
	}
}
