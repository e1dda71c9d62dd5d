// Package sales turns raw reservation exports into the canonical
// per-reservation rows every downstream report consumes.
package sales

import (
	"context"
	"math"
	"time"

	"github.com/gannetworld/gannet-reports/internal/fx"
	"github.com/gannetworld/gannet-reports/internal/ingest"
	"github.com/gannetworld/gannet-reports/internal/shared"
)

// RateMode selects how FX rates are applied during aggregation.
type RateMode int

const (
	// RateModeLatest applies one shared snapshot table to every row.
	RateModeLatest RateMode = iota
	// RateModeHistorical resolves each row's sale date individually.
	RateModeHistorical
)

// ParseRateMode maps a configuration string to a RateMode, defaulting
// to RateModeLatest for anything unrecognised.
func ParseRateMode(s string) RateMode {
	if s == "historical" {
		return RateModeHistorical
	}
	return RateModeLatest
}

// RateSource resolves a calendar date to a rate table. *fx.Resolver
// satisfies it.
type RateSource interface {
	Resolve(ctx context.Context, date time.Time) fx.Table
}

// AggregatorConfig fixes the rate strategy for one aggregation pass.
// The weekly report resolves historically per sale date; the remaining
// reports share the latest snapshot. The choice is explicit
// configuration, never inferred.
type AggregatorConfig struct {
	Mode     RateMode
	Latest   fx.Table
	Resolver RateSource
}

// postTripDays is the fiscal reference offset applied after trip end.
const postTripDays = 45

// CanonicalRow is one reservation with converted monetary fields and
// derived calendar attributes. Rows are immutable once built and live
// only for the duration of one report run. Pointer fields stay nil when
// the underlying date is missing; the row itself is always produced.
type CanonicalRow struct {
	Company     string     `json:"company"`
	Folio       int64      `json:"folio"`
	Closed      bool       `json:"closed"`
	SaleDate    *time.Time `json:"sale_date,omitempty"`
	TripStart   *time.Time `json:"trip_start,omitempty"`
	TripEnd     *time.Time `json:"trip_end,omitempty"`
	Salesperson string     `json:"salesperson"`
	SaleWeek    *int       `json:"sale_week,omitempty"`
	GuestCount  int        `json:"guest_count"`

	ClientTotal    float64 `json:"client_total"`
	Currency       string  `json:"currency"`
	ClientTotalEUR float64 `json:"client_total_eur"`
	ClientTotalUSD float64 `json:"client_total_usd"`
	Profit         float64 `json:"profit"`
	ProfitEUR      float64 `json:"profit_eur"`
	ProfitUSD      float64 `json:"profit_usd"`
	ProfitRatio    float64 `json:"profit_ratio"`

	SaleMonth      *int `json:"sale_month,omitempty"`
	SaleYear       *int `json:"sale_year,omitempty"`
	TripStartMonth *int `json:"trip_start_month,omitempty"`
	TripStartYear  *int `json:"trip_start_year,omitempty"`

	Date45      *time.Time `json:"date_45,omitempty"`
	Month45Name string     `json:"month_45,omitempty"`
	Year45      *int       `json:"year_45,omitempty"`

	Notes string `json:"notes,omitempty"`
}

// BuildCanonicalRows joins reservations with their derived
// profitability and produces one canonical row per reservation. Folio
// order of the input is preserved; profitability defaults to zero for
// folios with no service lines.
func BuildCanonicalRows(ctx context.Context, cfg AggregatorConfig, reservations []ingest.Reservation, profitability map[int64]float64, company string) []CanonicalRow {
	rows := make([]CanonicalRow, 0, len(reservations))
	for _, res := range reservations {
		table := cfg.Latest
		if cfg.Mode == RateModeHistorical && cfg.Resolver != nil && res.SaleDate != nil {
			table = cfg.Resolver.Resolve(ctx, *res.SaleDate)
		}

		profit := profitability[res.Folio]
		clientEUR, clientUSD := fx.Convert(res.ClientTotal, res.Currency, table)
		profitEUR, profitUSD := fx.Convert(profit, res.Currency, table)

		row := CanonicalRow{
			Company:        company,
			Folio:          res.Folio,
			Closed:         res.Closed,
			SaleDate:       res.SaleDate,
			TripStart:      res.TripStart,
			TripEnd:        res.TripEnd,
			Salesperson:    res.Salesperson,
			GuestCount:     res.GuestCount,
			ClientTotal:    res.ClientTotal,
			Currency:       res.Currency,
			ClientTotalEUR: clientEUR,
			ClientTotalUSD: clientUSD,
			Profit:         profit,
			ProfitEUR:      profitEUR,
			ProfitUSD:      profitUSD,
			ProfitRatio:    profitRatio(profit, res.ClientTotal),
			Notes:          res.Notes,
		}
		if res.SaleDate != nil {
			week := shared.ISOWeek(*res.SaleDate)
			month, year := int(res.SaleDate.Month()), res.SaleDate.Year()
			row.SaleWeek, row.SaleMonth, row.SaleYear = &week, &month, &year
		}
		if res.TripStart != nil {
			month, year := int(res.TripStart.Month()), res.TripStart.Year()
			row.TripStartMonth, row.TripStartYear = &month, &year
		}
		if res.TripEnd != nil {
			d45 := res.TripEnd.AddDate(0, 0, postTripDays)
			year45 := d45.Year()
			row.Date45 = &d45
			row.Month45Name = shared.MonthNameES(d45.Month())
			row.Year45 = &year45
		}
		rows = append(rows, row)
	}
	return rows
}

// profitRatio guards the zero-total case: a reservation with no client
// total reports ratio 0 and surfaces in findings instead.
func profitRatio(profit, total float64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(profit/total*1e6) / 1e6
}
