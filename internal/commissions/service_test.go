package commissions

import (
	"testing"
	"time"

	"github.com/gannetworld/gannet-reports/internal/fx"
	"github.com/gannetworld/gannet-reports/internal/ingest"
)

func datePtr(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestFilterPendingKeepsPayableLinesOnly(t *testing.T) {
	lines := []ingest.ServiceLine{
		{Folio: 1, Commission: 50, CommissionPending: true},
		{Folio: 2, Commission: 0, CommissionPending: true},
		{Folio: 3, Commission: 30, CommissionPending: false},
		{Folio: 4, Commission: 40, CommissionPending: true, CommissionPaidAt: datePtr("2026-02-01")},
		{Folio: 5, Commission: 20, CommissionPending: true, Cancelled: true},
	}

	pending := FilterPending(lines)
	if len(pending) != 1 || pending[0].Folio != 1 {
		t.Fatalf("expected only folio 1 pending, got %+v", pending)
	}
}

func TestBuildPendingEnrichesAndBuckets(t *testing.T) {
	rates := fx.Table{
		"EUR": {EUR: 1.0, USD: 1.10},
		"USD": {EUR: 0.909091, USD: 1.0},
	}
	suppliers := map[int64]ingest.Supplier{
		300: {Code: 300, Name: "Viajes Mar", Email: "mar@example.com", City: "Cancún"},
	}
	salesperson := map[int64]string{10: "Ana"}
	lines := []ingest.ServiceLine{{
		Folio:        10,
		SupplierCode: 300,
		Currency:     "EUR",
		Commission:   100,
		StayStart:    datePtr("2026-05-01"),
		StayEnd:      datePtr("2026-05-10"),
	}}

	rows := BuildPending(lines, suppliers, salesperson, rates)
	if len(rows) != 1 {
		t.Fatalf("expected one pending row, got %d", len(rows))
	}
	row := rows[0]
	if row.SupplierName != "Viajes Mar" || row.Salesperson != "Ana" {
		t.Fatalf("row must join supplier and salesperson: %+v", row)
	}
	if row.CommissionEUR != 100 || row.CommissionUSD != 110 {
		t.Fatalf("unexpected conversion: %v / %v", row.CommissionEUR, row.CommissionUSD)
	}
	// 2026-05-10 plus 45 days is 2026-06-24.
	if row.DueDate == nil || !row.DueDate.Equal(*datePtr("2026-06-24")) {
		t.Fatalf("expected due date 2026-06-24, got %v", row.DueDate)
	}
	if row.Month != 6 || row.MonthName != "junio" || row.Year != 2026 {
		t.Fatalf("unexpected fiscal bucket: %d %q %d", row.Month, row.MonthName, row.Year)
	}
}

func TestBuildPendingWithoutStayEndHasNoBucket(t *testing.T) {
	rows := BuildPending([]ingest.ServiceLine{{Folio: 1, Currency: "EUR", Commission: 10}}, nil, nil, fx.FallbackTable())
	if rows[0].DueDate != nil || rows[0].Month != 0 {
		t.Fatalf("missing stay end must leave the bucket unset: %+v", rows[0])
	}
}

func TestBuildPendingSortedBySupplierThenFolio(t *testing.T) {
	lines := []ingest.ServiceLine{
		{Folio: 5, SupplierCode: 200, Currency: "EUR", Commission: 1},
		{Folio: 1, SupplierCode: 200, Currency: "EUR", Commission: 1},
		{Folio: 9, SupplierCode: 100, Currency: "EUR", Commission: 1},
	}
	rows := BuildPending(lines, nil, nil, fx.FallbackTable())

	if rows[0].SupplierCode != 100 || rows[1].Folio != 1 || rows[2].Folio != 5 {
		t.Fatalf("expected supplier then folio ordering, got %+v", rows)
	}
}

func TestBucketByFiscalMonthTotalsAscending(t *testing.T) {
	rows := []PendingLine{
		{CommissionEUR: 10, CommissionUSD: 11, DueDate: datePtr("2026-07-01"), Month: 7, MonthName: "julio", Year: 2026},
		{CommissionEUR: 20, CommissionUSD: 22, DueDate: datePtr("2026-07-15"), Month: 7, MonthName: "julio", Year: 2026},
		{CommissionEUR: 5, CommissionUSD: 6, DueDate: datePtr("2026-06-20"), Month: 6, MonthName: "junio", Year: 2026},
		{CommissionEUR: 1, CommissionUSD: 1}, // no due date, excluded
	}

	buckets := BucketByFiscalMonth(rows)
	if len(buckets) != 2 {
		t.Fatalf("expected two buckets, got %+v", buckets)
	}
	if buckets[0].Month != 6 || buckets[0].TotalEUR != 5 || buckets[0].Count != 1 {
		t.Fatalf("unexpected june bucket: %+v", buckets[0])
	}
	if buckets[1].Month != 7 || buckets[1].TotalEUR != 30 || buckets[1].TotalUSD != 33 || buckets[1].Count != 2 {
		t.Fatalf("unexpected july bucket: %+v", buckets[1])
	}
}
