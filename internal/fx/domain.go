package fx

import "math"

// Rate expresses the value of one unit of a currency in EUR and USD.
type Rate struct {
	EUR float64 `json:"eur"`
	USD float64 `json:"usd"`
}

// Table maps a currency code to its EUR/USD rates for one calendar day
// (or for the latest available snapshot).
type Table map[string]Rate

// Currencies lists every code the reporting pipeline must resolve.
// GPB is a recognised data-entry typo of GBP in the booking system and
// always carries identical rates.
var Currencies = []string{"EUR", "USD", "GBP", "GPB", "CHF", "JPY", "MXN"}

const (
	baseCurrency = "EUR"
	usdCurrency  = "USD"
	typoPound    = "GPB"
	pound        = "GBP"
)

// Lookup returns the rate for code, falling back to the EUR entry when
// the code is unknown. Unknown codes are a data-quality finding, not an
// error; conversion must never abort a row.
func (t Table) Lookup(code string) Rate {
	if r, ok := t[code]; ok {
		return r
	}
	return t[baseCurrency]
}

// BuildTable derives a Table from service quotes expressed as
// "1 EUR = X currency". Each entry becomes 1 currency = 1/X EUR and
// 1 currency = (1/X)*(EUR->USD) USD, rounded to six decimals. EUR is
// pinned to exactly 1.0 regardless of the computed value.
func BuildTable(quotesFromEUR map[string]float64, fallback Table) Table {
	usdPerEUR, ok := quotesFromEUR[usdCurrency]
	if !ok || usdPerEUR <= 0 {
		usdPerEUR = fallback[baseCurrency].USD
	}

	table := make(Table, len(Currencies))
	for _, code := range Currencies {
		lookup := code
		if code == typoPound {
			lookup = pound
		}
		quote, ok := quotesFromEUR[lookup]
		if !ok || quote <= 0 {
			table[code] = fallback.Lookup(code)
			continue
		}
		toEUR := 1.0 / quote
		table[code] = Rate{EUR: round6(toEUR), USD: round6(toEUR * usdPerEUR)}
	}
	table[baseCurrency] = Rate{EUR: 1.0, USD: round6(usdPerEUR)}
	return table
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

func round2(v float64) float64 {
	return math.Round(v*1e2) / 1e2
}
