package fx

import "strings"

// Convert normalises a monetary amount into EUR and USD using the given
// table. Blank or unknown currency codes default to the EUR entry
// rather than failing; monetary outputs are rounded to two decimals at
// the point of conversion.
func Convert(amount float64, currency string, table Table) (eur, usd float64) {
	code := strings.TrimSpace(currency)
	if code == "" {
		code = baseCurrency
	}
	rate := table.Lookup(code)
	return round2(amount * rate.EUR), round2(amount * rate.USD)
}
