// Package commissions aggregates supplier commissions that remain
// unpaid, bucketed by the fiscal month falling 45 days after checkout.
package commissions

import (
	"sort"
	"time"

	"github.com/gannetworld/gannet-reports/internal/fx"
	"github.com/gannetworld/gannet-reports/internal/ingest"
	"github.com/gannetworld/gannet-reports/internal/shared"
)

// postCheckoutDays is the fiscal offset applied after the stay ends.
const postCheckoutDays = 45

// PendingLine is one unpaid commission row of the breakdown table.
type PendingLine struct {
	Folio         int64      `json:"folio"`
	SupplierCode  int64      `json:"supplier_code"`
	SupplierName  string     `json:"supplier_name"`
	SupplierMail  string     `json:"supplier_email"`
	SupplierCity  string     `json:"supplier_city"`
	Salesperson   string     `json:"salesperson"`
	StayStart     *time.Time `json:"stay_start,omitempty"`
	StayEnd       *time.Time `json:"stay_end,omitempty"`
	Currency      string     `json:"currency"`
	Commission    float64    `json:"commission"`
	CommissionEUR float64    `json:"commission_eur"`
	CommissionUSD float64    `json:"commission_usd"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	Month         int        `json:"month,omitempty"`
	MonthName     string     `json:"month_name,omitempty"`
	Year          int        `json:"year,omitempty"`
}

// Bucket totals pending commissions for one fiscal month.
type Bucket struct {
	Year      int     `json:"year"`
	Month     int     `json:"month"`
	MonthName string  `json:"month_name"`
	TotalEUR  float64 `json:"total_eur"`
	TotalUSD  float64 `json:"total_usd"`
	Count     int     `json:"count"`
}

// FilterPending keeps the service lines whose commission is still
// payable: pending flag set, non-zero amount, unapplied payment date,
// service not cancelled.
func FilterPending(lines []ingest.ServiceLine) []ingest.ServiceLine {
	var pending []ingest.ServiceLine
	for _, line := range lines {
		if line.CommissionPending && line.Commission != 0 && line.CommissionPaidAt == nil && !line.Cancelled {
			pending = append(pending, line)
		}
	}
	return pending
}

// BuildPending converts filtered lines into breakdown rows enriched
// with supplier master data and the reservation's salesperson, sorted
// by supplier then folio. Lines without a stay end keep a nil due date
// and are excluded from fiscal buckets.
func BuildPending(lines []ingest.ServiceLine, suppliers map[int64]ingest.Supplier, salespersonByFolio map[int64]string, rates fx.Table) []PendingLine {
	rows := make([]PendingLine, 0, len(lines))
	for _, line := range lines {
		eur, usd := fx.Convert(line.Commission, line.Currency, rates)
		supplier := suppliers[line.SupplierCode]

		row := PendingLine{
			Folio:         line.Folio,
			SupplierCode:  line.SupplierCode,
			SupplierName:  supplier.Name,
			SupplierMail:  supplier.Email,
			SupplierCity:  supplier.City,
			Salesperson:   salespersonByFolio[line.Folio],
			StayStart:     line.StayStart,
			StayEnd:       line.StayEnd,
			Currency:      line.Currency,
			Commission:    line.Commission,
			CommissionEUR: eur,
			CommissionUSD: usd,
		}
		if line.StayEnd != nil {
			due := line.StayEnd.AddDate(0, 0, postCheckoutDays)
			row.DueDate = &due
			row.Month = int(due.Month())
			row.MonthName = shared.MonthNameES(due.Month())
			row.Year = due.Year()
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].SupplierCode != rows[j].SupplierCode {
			return rows[i].SupplierCode < rows[j].SupplierCode
		}
		return rows[i].Folio < rows[j].Folio
	})
	return rows
}

// BucketByFiscalMonth totals pending rows per fiscal month, ascending.
func BucketByFiscalMonth(rows []PendingLine) []Bucket {
	type key struct{ year, month int }
	totals := make(map[key]*Bucket)
	for _, row := range rows {
		if row.DueDate == nil {
			continue
		}
		k := key{row.Year, row.Month}
		b := totals[k]
		if b == nil {
			b = &Bucket{Year: row.Year, Month: row.Month, MonthName: row.MonthName}
			totals[k] = b
		}
		b.TotalEUR += row.CommissionEUR
		b.TotalUSD += row.CommissionUSD
		b.Count++
	}

	buckets := make([]Bucket, 0, len(totals))
	for _, b := range totals {
		buckets = append(buckets, *b)
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Year != buckets[j].Year {
			return buckets[i].Year < buckets[j].Year
		}
		return buckets[i].Month < buckets[j].Month
	})
	return buckets
}
