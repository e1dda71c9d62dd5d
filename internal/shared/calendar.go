package shared

import "time"

var monthNamesES = map[time.Month]string{
	time.January:   "enero",
	time.February:  "febrero",
	time.March:     "marzo",
	time.April:     "abril",
	time.May:       "mayo",
	time.June:      "junio",
	time.July:      "julio",
	time.August:    "agosto",
	time.September: "septiembre",
	time.October:   "octubre",
	time.November:  "noviembre",
	time.December:  "diciembre",
}

// MonthNameES returns the Spanish month name used throughout the
// generated reports.
func MonthNameES(m time.Month) string {
	return monthNamesES[m]
}

// ISOWeek returns the ISO-8601 week number for a date. ISO numbering is
// the canonical sale-week definition for every report.
func ISOWeek(t time.Time) int {
	_, week := t.ISOWeek()
	return week
}
