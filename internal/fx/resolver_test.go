package fx

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type fakeService struct {
	latest    map[string]float64
	latestErr error
	months    map[string]map[string]map[string]float64
	monthErr  error
	calls     []string
}

func (f *fakeService) Latest(ctx context.Context) (map[string]float64, error) {
	return f.latest, f.latestErr
}

func (f *fakeService) Month(ctx context.Context, year int, month time.Month) (map[string]map[string]float64, error) {
	key := fmt.Sprintf("%04d-%02d", year, int(month))
	f.calls = append(f.calls, key)
	if f.monthErr != nil {
		return nil, f.monthErr
	}
	return f.months[key], nil
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestResolvePublishedDay(t *testing.T) {
	svc := &fakeService{months: map[string]map[string]map[string]float64{
		"2026-03": {"2026-03-16": {"USD": 1.10, "GBP": 0.85}},
	}}
	resolver := NewResolver(svc, nil, nil)

	table := resolver.Resolve(context.Background(), day("2026-03-16"))
	if table["EUR"].USD != 1.10 {
		t.Fatalf("expected published rate, got %v", table["EUR"].USD)
	}
	if len(svc.calls) != 1 {
		t.Fatalf("expected one month fetch, got %v", svc.calls)
	}
}

func TestResolveWalksBackOverWeekend(t *testing.T) {
	// Saturday and Sunday unpublished, Friday carries the rate.
	svc := &fakeService{months: map[string]map[string]map[string]float64{
		"2026-03": {"2026-03-13": {"USD": 1.07}},
	}}
	resolver := NewResolver(svc, nil, nil)

	table := resolver.Resolve(context.Background(), day("2026-03-15"))
	if table["EUR"].USD != 1.07 {
		t.Fatalf("expected Friday's rate, got %v", table["EUR"].USD)
	}
}

func TestResolveCrossesMonthBoundary(t *testing.T) {
	svc := &fakeService{months: map[string]map[string]map[string]float64{
		"2026-03": {},
		"2026-02": {"2026-02-27": {"USD": 1.05}},
	}}
	resolver := NewResolver(svc, nil, nil)

	table := resolver.Resolve(context.Background(), day("2026-03-02"))
	if table["EUR"].USD != 1.05 {
		t.Fatalf("expected late-February rate, got %v", table["EUR"].USD)
	}
	if len(svc.calls) != 2 {
		t.Fatalf("expected both months fetched, got %v", svc.calls)
	}
}

func TestResolveExhaustedBackoffUsesFallback(t *testing.T) {
	svc := &fakeService{months: map[string]map[string]map[string]float64{
		// Rate exists but is eight days out, beyond the walk.
		"2026-03": {"2026-03-08": {"USD": 1.20}},
	}}
	resolver := NewResolver(svc, nil, nil)

	table := resolver.Resolve(context.Background(), day("2026-03-16"))
	if table["EUR"].USD != FallbackTable()["EUR"].USD {
		t.Fatalf("expected fallback table beyond the back-off window, got %v", table["EUR"].USD)
	}
}

func TestResolveServiceFailureFallsBackAndDoesNotRetry(t *testing.T) {
	svc := &fakeService{monthErr: errors.New("boom")}
	resolver := NewResolver(svc, nil, nil)

	first := resolver.Resolve(context.Background(), day("2026-03-16"))
	second := resolver.Resolve(context.Background(), day("2026-03-17"))

	if first["USD"] != FallbackTable()["USD"] || second["USD"] != FallbackTable()["USD"] {
		t.Fatalf("expected deterministic fallback on service failure")
	}
	for i, call := range svc.calls {
		for _, later := range svc.calls[i+1:] {
			if call == later {
				t.Fatalf("month %s fetched twice within one run: %v", call, svc.calls)
			}
		}
	}
}

func TestResolveFallbackInvokesHook(t *testing.T) {
	svc := &fakeService{months: map[string]map[string]map[string]float64{
		"2026-03": {"2026-03-16": {"USD": 1.10}},
	}}
	resolver := NewResolver(svc, nil, nil)
	fallbacks := 0
	resolver.OnFallback(func() { fallbacks++ })

	resolver.Resolve(context.Background(), day("2026-03-16"))
	if fallbacks != 0 {
		t.Fatalf("published day must not count as fallback")
	}

	resolver.Resolve(context.Background(), day("2026-03-30"))
	resolver.Resolve(context.Background(), day("2026-03-31"))
	if fallbacks != 2 {
		t.Fatalf("expected one hook call per fallback day, got %d", fallbacks)
	}
}

func TestPreloadFetchesDistinctMonthsChronologically(t *testing.T) {
	svc := &fakeService{months: map[string]map[string]map[string]float64{}}
	resolver := NewResolver(svc, nil, nil)

	resolver.Preload(context.Background(), []time.Time{
		day("2026-03-10"),
		day("2026-01-05"),
		day("2026-03-20"),
		day("2026-02-14"),
	})

	want := []string{"2026-01", "2026-02", "2026-03"}
	if len(svc.calls) != len(want) {
		t.Fatalf("expected %v, got %v", want, svc.calls)
	}
	for i, m := range want {
		if svc.calls[i] != m {
			t.Fatalf("expected chronological fetches %v, got %v", want, svc.calls)
		}
	}
}

func TestLatestFallsBackOnError(t *testing.T) {
	svc := &fakeService{latestErr: errors.New("service down")}
	resolver := NewResolver(svc, nil, nil)

	table := resolver.Latest(context.Background())
	if table["CHF"] != FallbackTable()["CHF"] {
		t.Fatalf("expected fallback snapshot, got %v", table["CHF"])
	}
}

func TestMonthRatesSortedWithSpanishLabel(t *testing.T) {
	svc := &fakeService{months: map[string]map[string]map[string]float64{
		"2026-03": {
			"2026-03-03": {"USD": 1.08},
			"2026-03-02": {"USD": 1.07},
		},
	}}
	resolver := NewResolver(svc, nil, nil)

	label, days := resolver.MonthRates(context.Background(), 2026, time.March)
	if label != "marzo 2026" {
		t.Fatalf("expected label marzo 2026, got %q", label)
	}
	if len(days) != 2 || !days[0].Date.Before(days[1].Date) {
		t.Fatalf("expected two ascending days, got %v", days)
	}
}
