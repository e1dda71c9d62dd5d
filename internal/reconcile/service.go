package reconcile

import (
	"log/slog"
	"math"
	"sort"

	"github.com/gannetworld/gannet-reports/internal/fx"
	"github.com/gannetworld/gannet-reports/internal/ingest"
)

// Engine runs AP/AR reconciliation for one entity under one aggregation
// variant.
type Engine struct {
	company string
	variant Variant
	logger  *slog.Logger
}

// NewEngine constructs an engine for the given entity.
func NewEngine(company string, variant Variant, logger *slog.Logger) *Engine {
	if variant == "" {
		variant = VariantIncludeThenSubtract
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{company: company, variant: variant, logger: logger}
}

// Reconcile matches one payment ledger against reservation totals. A
// result is produced for every folio the ledger touches: applied
// payments, direct-sale rows even when the variant excludes them from
// settled, and wallet rows where they affect the remainder. Results
// ascend by folio; folios absent from the reservation set reconcile
// against an owed amount of zero rather than failing.
func (e *Engine) Reconcile(side Side, reservations []ingest.Reservation, payments []ingest.Payment, rates fx.Table) []Result {
	byFolio := make(map[int64]ingest.Reservation, len(reservations))
	for _, res := range reservations {
		byFolio[res.Folio] = res
	}

	directCodes := DirectSaleCodes(e.company)
	settled := make(map[int64]float64)
	directSale := make(map[int64]float64)
	wallet := make(map[int64]float64)
	fallbackCurrency := make(map[int64]string)

	for _, p := range payments {
		if p.Cancelled {
			continue
		}
		if p.MethodCode == WalletCode {
			// Wallet rows never count as settled, applied or not.
			wallet[p.Folio] += p.Amount
			noteCurrency(fallbackCurrency, p)
			continue
		}
		if !p.Applied() {
			continue
		}
		noteCurrency(fallbackCurrency, p)
		if _, direct := directCodes[p.MethodCode]; direct {
			directSale[p.Folio] += p.Amount
			if e.variant == VariantExcludeAtSource {
				continue
			}
		}
		settled[p.Folio] += p.Amount
	}

	// A folio settled only by direct-sale rows, or only by wallet rows
	// where they count, still gets a result.
	seen := make(map[int64]struct{}, len(settled))
	for folio := range settled {
		seen[folio] = struct{}{}
	}
	for folio := range directSale {
		seen[folio] = struct{}{}
	}
	if side == SideAR && e.company == "LLC" {
		for folio := range wallet {
			seen[folio] = struct{}{}
		}
	}
	folios := make([]int64, 0, len(seen))
	for folio := range seen {
		folios = append(folios, folio)
	}
	sort.Slice(folios, func(i, j int) bool { return folios[i] < folios[j] })

	results := make([]Result, 0, len(folios))
	for _, folio := range folios {
		res, known := byFolio[folio]

		owed := res.ClientTotal
		if side == SideAP {
			owed = res.SupplierTotal
		}
		currency := res.Currency
		if !known || currency == "" {
			currency = fallbackCurrency[folio]
		}

		remainder := owed - settled[folio]
		if e.variant == VariantExcludeAtSource {
			remainder = owed - directSale[folio] - settled[folio]
		}
		walletAmount := 0.0
		if side == SideAR && e.company == "LLC" {
			walletAmount = wallet[folio]
			remainder -= walletAmount
		}
		remainderUSD := round2(remainder * rates.Lookup(currency).USD)

		result := Result{
			Folio:        folio,
			Currency:     currency,
			Owed:         round2(owed),
			Settled:      round2(settled[folio]),
			DirectSale:   round2(directSale[folio]),
			Wallet:       round2(walletAmount),
			Remainder:    round2(remainder),
			RemainderUSD: remainderUSD,
			Flagged:      remainderUSD < 0,
		}
		if known {
			result.TripStart = res.TripStart
		}
		results = append(results, result)
	}

	e.logger.Info("reconcile: ledger matched",
		slog.String("side", string(side)),
		slog.String("company", e.company),
		slog.Int("folios", len(results)),
		slog.Int("flagged", countFlagged(results)))
	return results
}

// Flagged filters the anomalous results of a reconciliation pass.
func Flagged(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if r.Flagged {
			out = append(out, r)
		}
	}
	return out
}

func noteCurrency(byFolio map[int64]string, p ingest.Payment) {
	if _, ok := byFolio[p.Folio]; !ok {
		byFolio[p.Folio] = p.Currency
	}
}

func countFlagged(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Flagged {
			n++
		}
	}
	return n
}

func round2(v float64) float64 {
	return math.Round(v*1e2) / 1e2
}
