package reconcile

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

func flatRates() fx.Table {
	return fx.Table{"EUR": {EUR: 1.0, USD: 1.0}, "USD": {EUR: 1.0, USD: 1.0}}
}

func applied(folio int64, amount float64, method string) ingest.Payment {
	return ingest.Payment{
		Folio:      folio,
		Amount:     amount,
		Currency:   "EUR",
		MethodCode: method,
		AppliedAt:  datePtr("2026-03-01"),
	}
}

func TestReconcileAPSettlesAgainstSupplierTotal(t *testing.T) {
	reservations := []ingest.Reservation{{Folio: 1, SupplierTotal: 800, ClientTotal: 1000, Currency: "EUR"}}
	payments := []ingest.Payment{applied(1, 500, "TRF")}

	engine := NewEngine("SL", VariantIncludeThenSubtract, nil)
	results := engine.Reconcile(SideAP, reservations, payments, flatRates())

	if len(results) != 1 {
		t.Fatalf("expected one folio, got %d", len(results))
	}
	r := results[0]
	if r.Owed != 800 || r.Settled != 500 || r.Remainder != 300 {
		t.Fatalf("unexpected AP reconciliation: %+v", r)
	}
	if r.Flagged {
		t.Fatalf("positive remainder must not be flagged")
	}
}

func TestReconcileUnappliedAndCancelledIgnored(t *testing.T) {
	reservations := []ingest.Reservation{{Folio: 1, ClientTotal: 1000, Currency: "EUR"}}
	unapplied := ingest.Payment{Folio: 1, Amount: 400, Currency: "EUR", MethodCode: "TRF"}
	cancelled := applied(1, 300, "TRF")
	cancelled.Cancelled = true
	payments := []ingest.Payment{applied(1, 200, "TRF"), unapplied, cancelled}

	engine := NewEngine("SL", VariantIncludeThenSubtract, nil)
	results := engine.Reconcile(SideAR, reservations, payments, flatRates())

	if results[0].Settled != 200 {
		t.Fatalf("only applied, non-cancelled payments settle: %+v", results[0])
	}
}

func TestReconcileVariantsAgreeOnRemainder(t *testing.T) {
	// Direct-sale handling differs between variants but the remainder
	// must collapse to the same figure.
	reservations := []ingest.Reservation{{Folio: 1, ClientTotal: 1000, Currency: "EUR"}}
	payments := []ingest.Payment{
		applied(1, 600, "TRF"),
		applied(1, 300, "00B"), // SL direct-sale code
	}

	include := NewEngine("SL", VariantIncludeThenSubtract, nil).
		Reconcile(SideAR, reservations, payments, flatRates())[0]
	exclude := NewEngine("SL", VariantExcludeAtSource, nil).
		Reconcile(SideAR, reservations, payments, flatRates())[0]

	if include.Settled != 900 || include.DirectSale != 300 {
		t.Fatalf("include variant sums every applied payment: %+v", include)
	}
	if exclude.Settled != 600 || exclude.DirectSale != 300 {
		t.Fatalf("exclude variant drops direct-sale codes from settled: %+v", exclude)
	}
	if include.Remainder != 100 || exclude.Remainder != 100 {
		t.Fatalf("variants must agree on the remainder: %v vs %v", include.Remainder, exclude.Remainder)
	}
}

func TestReconcileDirectSaleOnlyFolioSurvivesExcludeVariant(t *testing.T) {
	// A folio paid entirely through the direct-sale channel settles
	// nothing under the exclude variant but must still be reported.
	reservations := []ingest.Reservation{{Folio: 1, ClientTotal: 1000, Currency: "EUR"}}
	payments := []ingest.Payment{applied(1, 300, "00B")}

	engine := NewEngine("SL", VariantExcludeAtSource, nil)
	results := engine.Reconcile(SideAR, reservations, payments, flatRates())

	if len(results) != 1 {
		t.Fatalf("expected one folio, got %d", len(results))
	}
	r := results[0]
	if r.Settled != 0 || r.DirectSale != 300 {
		t.Fatalf("direct-sale amount belongs in its own bucket: %+v", r)
	}
	if r.Remainder != 700 {
		t.Fatalf("remainder nets the direct-sale bucket off owed: %v", r.Remainder)
	}
	if r.Currency != "EUR" {
		t.Fatalf("currency comes from the payment when needed, got %q", r.Currency)
	}
}

func TestReconcileWalletOnlyFolioSurvivesForMexicoAR(t *testing.T) {
	reservations := []ingest.Reservation{{Folio: 1, ClientTotal: 1000, Currency: "EUR"}}
	payments := []ingest.Payment{applied(1, 200, WalletCode)}

	engine := NewEngine("LLC", VariantIncludeThenSubtract, nil)
	results := engine.Reconcile(SideAR, reservations, payments, flatRates())

	if len(results) != 1 {
		t.Fatalf("folio settled entirely by wallet must still be reported, got %d results", len(results))
	}
	r := results[0]
	if r.Settled != 0 || r.Wallet != 200 || r.Remainder != 800 {
		t.Fatalf("unexpected wallet-only reconciliation: %+v", r)
	}

	// Outside the Mexico AR case wallet rows carry no balance effect,
	// so a wallet-only folio stays out of the report.
	spain := NewEngine("SL", VariantIncludeThenSubtract, nil)
	if got := spain.Reconcile(SideAR, reservations, payments, flatRates()); len(got) != 0 {
		t.Fatalf("wallet-only folio must not appear for the Spain entity: %+v", got)
	}
}

func TestReconcileWalletExcludedAndSubtractedForMexicoAR(t *testing.T) {
	reservations := []ingest.Reservation{{Folio: 1, ClientTotal: 1000, Currency: "EUR"}}
	payments := []ingest.Payment{
		applied(1, 700, "TRF"),
		applied(1, 200, WalletCode),
	}

	engine := NewEngine("LLC", VariantIncludeThenSubtract, nil)
	results := engine.Reconcile(SideAR, reservations, payments, flatRates())

	r := results[0]
	if r.Settled != 700 {
		t.Fatalf("wallet rows never count as settled, got %v", r.Settled)
	}
	if r.Wallet != 200 {
		t.Fatalf("expected wallet amount 200, got %v", r.Wallet)
	}
	if r.Remainder != 100 {
		t.Fatalf("wallet subtracts at the remainder stage: %v", r.Remainder)
	}
}

func TestReconcileWalletNotSubtractedForSpain(t *testing.T) {
	reservations := []ingest.Reservation{{Folio: 1, ClientTotal: 1000, Currency: "EUR"}}
	payments := []ingest.Payment{
		applied(1, 700, "TRF"),
		applied(1, 200, WalletCode),
	}

	engine := NewEngine("SL", VariantIncludeThenSubtract, nil)
	r := engine.Reconcile(SideAR, reservations, payments, flatRates())[0]

	if r.Wallet != 0 || r.Remainder != 300 {
		t.Fatalf("wallet subtraction applies to the Mexico entity only: %+v", r)
	}
}

func TestReconcileFlagsNegativeUSDRemainder(t *testing.T) {
	reservations := []ingest.Reservation{{Folio: 1, SupplierTotal: 400, Currency: "EUR"}}
	payments := []ingest.Payment{applied(1, 500, "TRF")}

	engine := NewEngine("SL", VariantIncludeThenSubtract, nil)
	r := engine.Reconcile(SideAP, reservations, payments, flatRates())[0]

	if !r.Flagged {
		t.Fatalf("overpaid folio must be flagged: %+v", r)
	}
	if len(Flagged([]Result{r})) != 1 {
		t.Fatalf("Flagged must keep the anomalous result")
	}
}

func TestReconcileUnknownFolioOwesZero(t *testing.T) {
	payments := []ingest.Payment{applied(99, 250, "TRF")}

	engine := NewEngine("SL", VariantIncludeThenSubtract, nil)
	results := engine.Reconcile(SideAR, nil, payments, flatRates())

	r := results[0]
	if r.Folio != 99 || r.Owed != 0 || r.Remainder != -250 {
		t.Fatalf("unknown folio reconciles against zero owed: %+v", r)
	}
	if r.Currency != "EUR" {
		t.Fatalf("currency falls back to the payment's, got %q", r.Currency)
	}
	if !r.Flagged {
		t.Fatalf("negative remainder must be flagged")
	}
}

func TestReconcileResultsSortedByFolio(t *testing.T) {
	payments := []ingest.Payment{
		applied(30, 10, "TRF"),
		applied(10, 10, "TRF"),
		applied(20, 10, "TRF"),
	}
	engine := NewEngine("SL", VariantIncludeThenSubtract, nil)
	results := engine.Reconcile(SideAR, nil, payments, flatRates())

	for i := 1; i < len(results); i++ {
		if results[i-1].Folio > results[i].Folio {
			t.Fatalf("results must ascend by folio: %+v", results)
		}
	}
}
