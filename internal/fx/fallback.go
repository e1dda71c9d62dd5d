package fx

// FallbackTable returns the static rate table used whenever the rate
// service is unreachable or a date cannot be resolved. Values mirror
// the rates embedded in the report templates.
func FallbackTable() Table {
	return Table{
		"EUR": {EUR: 1.0, USD: 1.16},
		"USD": {EUR: 0.86, USD: 1.0},
		"GBP": {EUR: 1.15, USD: 1.34},
		"GPB": {EUR: 1.15, USD: 1.34}, // typo in source data
		"CHF": {EUR: 1.07, USD: 1.25},
		"JPY": {EUR: 0.0055, USD: 0.0064},
		"MXN": {EUR: 0.046, USD: 0.054},
	}
}
