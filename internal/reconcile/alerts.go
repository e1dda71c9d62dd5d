package reconcile

import (
	"sort"
	"time"

	"github.com/gannetworld/gannet-reports/internal/ingest"
)

// upcomingWindowDays is how far ahead a due date must fall to raise an
// upcoming alert.
const upcomingWindowDays = 7

// Alert is one unsettled supplier payment approaching or past its due
// date, enriched with supplier master data for the notification tables.
type Alert struct {
	Folio        int64      `json:"folio"`
	Salesperson  string     `json:"salesperson"`
	PaymentDate  *time.Time `json:"payment_date,omitempty"`
	SupplierCode int64      `json:"supplier_code"`
	SupplierName string     `json:"supplier_name"`
	SupplierMail string     `json:"supplier_email"`
	SupplierCity string     `json:"supplier_city"`
	DueDate      time.Time  `json:"due_date"`
	Amount       float64    `json:"amount"`
}

// Alerts buckets supplier payments by urgency, each bucket ascending by
// due date.
type Alerts struct {
	Upcoming []Alert `json:"upcoming"`
	Overdue  []Alert `json:"overdue"`
}

// PaymentAlerts classifies unsettled supplier payments (unapplied date
// sentinel, zero wallet amount) against today. Payments due more than
// upcomingWindowDays out are ignored, as are rows without a due date.
func PaymentAlerts(payments []ingest.Payment, suppliers map[int64]ingest.Supplier, today time.Time) Alerts {
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)

	var alerts Alerts
	for _, p := range payments {
		if p.AppliedAt != nil || p.WalletAmount != 0 || p.DueDate == nil {
			continue
		}
		daysRemaining := int(p.DueDate.Sub(today).Hours() / 24)
		if daysRemaining > upcomingWindowDays {
			continue
		}

		supplier := suppliers[p.SupplierCode]
		alert := Alert{
			Folio:        p.Folio,
			Salesperson:  p.Salesperson,
			PaymentDate:  p.PaymentDate,
			SupplierCode: p.SupplierCode,
			SupplierName: supplier.Name,
			SupplierMail: supplier.Email,
			SupplierCity: supplier.City,
			DueDate:      *p.DueDate,
			Amount:       p.Amount,
		}
		if daysRemaining < 0 {
			alerts.Overdue = append(alerts.Overdue, alert)
		} else {
			alerts.Upcoming = append(alerts.Upcoming, alert)
		}
	}

	byDue := func(list []Alert) func(i, j int) bool {
		return func(i, j int) bool { return list[i].DueDate.Before(list[j].DueDate) }
	}
	sort.Slice(alerts.Upcoming, byDue(alerts.Upcoming))
	sort.Slice(alerts.Overdue, byDue(alerts.Overdue))
	return alerts
}
