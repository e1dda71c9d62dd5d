package fx

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/gannetworld/gannet-reports/internal/shared"
)

// maxBackoffDays bounds the backward walk used to cross weekends and
// holidays when no rate was published for the requested day.
const maxBackoffDays = 7

// Resolver resolves a calendar date to the rate table effective that
// day. It fetches whole months at a time, caches per-day tables for the
// lifetime of one report run and degrades to the static fallback table
// when the service cannot deliver.
type Resolver struct {
	svc        RateService
	snapshots  *SnapshotCache
	fallback   Table
	logger     *slog.Logger
	onFallback func()

	mu        sync.Mutex
	daily     map[string]Table
	attempted map[string]struct{}
}

// NewResolver constructs a resolver. snapshots may be nil.
func NewResolver(svc RateService, snapshots *SnapshotCache, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		svc:       svc,
		snapshots: snapshots,
		fallback:  FallbackTable(),
		logger:    logger,
		daily:     make(map[string]Table),
		attempted: make(map[string]struct{}),
	}
}

// Fallback exposes the static table the resolver degrades to.
func (r *Resolver) Fallback() Table {
	return r.fallback
}

// OnFallback registers a hook invoked each time a calendar date falls
// through to the static table. Set before the first Resolve call.
func (r *Resolver) OnFallback(fn func()) {
	r.onFallback = fn
}

func (r *Resolver) countFallback() {
	if r.onFallback != nil {
		r.onFallback()
	}
}

// Resolve returns the rate table effective for the given calendar date.
// Missing days walk backward up to maxBackoffDays, fetching the prior
// month when the walk crosses a month boundary. When nothing resolves
// the static fallback table is returned; Resolve never fails.
func (r *Resolver) Resolve(ctx context.Context, date time.Time) Table {
	day := midnightUTC(date)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.ensureMonthLocked(ctx, day.Year(), day.Month())
	if table, ok := r.daily[isoDay(day)]; ok {
		return table
	}
	for i := 1; i <= maxBackoffDays; i++ {
		prior := day.AddDate(0, 0, -i)
		r.ensureMonthLocked(ctx, prior.Year(), prior.Month())
		if table, ok := r.daily[isoDay(prior)]; ok {
			return table
		}
	}
	r.logger.Warn("fx: no rate within back-off window, using fallback",
		slog.String("date", isoDay(day)))
	r.countFallback()
	return r.fallback
}

// Preload fetches every distinct unattempted month covering the given
// dates, one request per month, in chronological order.
func (r *Resolver) Preload(ctx context.Context, dates []time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]time.Time)
	for _, d := range dates {
		if d.IsZero() {
			continue
		}
		first := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
		key := first.Format("2006-01")
		if _, done := r.attempted[key]; done {
			continue
		}
		seen[key] = first
	}

	months := make([]time.Time, 0, len(seen))
	for _, first := range seen {
		months = append(months, first)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	for _, first := range months {
		r.ensureMonthLocked(ctx, first.Year(), first.Month())
	}
}

// Latest fetches the service's most recent snapshot, independent of any
// historical date, with the same fallback discipline as Resolve.
func (r *Resolver) Latest(ctx context.Context) Table {
	quotes, err := r.svc.Latest(ctx)
	if err != nil {
		r.logger.Warn("fx: latest snapshot unavailable, using fallback", slog.Any("error", err))
		return r.fallback
	}
	return BuildTable(quotes, r.fallback)
}

// DailyRate pairs one published day with its rate table, for display in
// generated rate sheets.
type DailyRate struct {
	Date  time.Time `json:"date"`
	Rates Table     `json:"rates"`
}

// MonthRates returns a human label and the per-day tables of the given
// month, ascending by date. Days the service never published (weekends,
// holidays, failed fetches) are absent.
func (r *Resolver) MonthRates(ctx context.Context, year int, month time.Month) (string, []DailyRate) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ensureMonthLocked(ctx, year, month)

	var days []DailyRate
	for key, table := range r.daily {
		d, err := time.Parse("2006-01-02", key)
		if err != nil || d.Year() != year || d.Month() != month {
			continue
		}
		days = append(days, DailyRate{Date: d, Rates: table})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })

	label := shared.MonthNameES(month) + " " + time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Format("2006")
	return label, days
}

// ensureMonthLocked fetches a month once per run. The month is marked
// attempted even when the fetch fails so a flaky service cannot cause a
// retry storm inside a single run.
func (r *Resolver) ensureMonthLocked(ctx context.Context, year int, month time.Month) {
	key := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
	if _, done := r.attempted[key]; done {
		return
	}
	r.attempted[key] = struct{}{}

	loader := func(ctx context.Context) (map[string]map[string]float64, error) {
		return r.svc.Month(ctx, year, month)
	}
	quotes, err := r.snapshots.FetchMonth(ctx, year, month, loader)
	if err != nil {
		r.logger.Warn("fx: month fetch failed",
			slog.String("month", key), slog.Any("error", err))
		return
	}
	for day, dayQuotes := range quotes {
		r.daily[day] = BuildTable(dayQuotes, r.fallback)
	}
	r.logger.Info("fx: month loaded", slog.String("month", key), slog.Int("days", len(quotes)))
}

func midnightUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func isoDay(t time.Time) string {
	return t.Format("2006-01-02")
}
