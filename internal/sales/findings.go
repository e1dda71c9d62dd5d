package sales

import (
	"fmt"
	"time"

	"github.com/gannetworld/gannet-reports/internal/ingest"
)

// Finding is a business-data observation surfaced to report readers.
// Findings are collected and reported, never raised as errors.
type Finding struct {
	Company     string     `json:"company"`
	Folio       int64      `json:"folio"`
	Message     string     `json:"message"`
	Salesperson string     `json:"salesperson"`
	SaleDate    *time.Time `json:"sale_date,omitempty"`
}

// ratio above which profitability is implausible for a travel booking.
const suspiciousRatio = 0.5

var knownCurrencies = map[string]struct{}{
	"EUR": {}, "USD": {}, "GBP": {}, "GPB": {}, "CHF": {}, "MXN": {}, "JPY": {},
}

// DetectFindings scans reservations joined with profitability for
// data-quality anomalies.
func DetectFindings(reservations []ingest.Reservation, profitability map[int64]float64, company string) []Finding {
	var findings []Finding
	for _, res := range reservations {
		profit := profitability[res.Folio]
		add := func(message string) {
			findings = append(findings, Finding{
				Company:     company,
				Folio:       res.Folio,
				Message:     message,
				Salesperson: res.Salesperson,
				SaleDate:    res.SaleDate,
			})
		}

		if res.ClientTotal < 0 {
			add(fmt.Sprintf("total_cliente negativo (%.2f)", res.ClientTotal))
		}
		if profit < 0 {
			add(fmt.Sprintf("rentabilidad negativa (%.2f)", profit))
		}
		if res.ClientTotal > 0 && profit/res.ClientTotal > suspiciousRatio {
			add(fmt.Sprintf("rentabilidad muy alta (%.1f%% de %.2f)", profit/res.ClientTotal*100, res.ClientTotal))
		}
		if res.ClientTotal == 0 && profit != 0 {
			add(fmt.Sprintf("total_cliente=0 pero tiene rentabilidad (%.2f)", profit))
		}
		if _, ok := knownCurrencies[res.Currency]; !ok {
			add(fmt.Sprintf("moneda desconocida %q", res.Currency))
		}
		if res.TripStart == nil {
			add("sin fecha_inicio")
		}
		if res.TripEnd == nil {
			add("sin fecha_fin")
		}
	}
	return findings
}
