// Package reconcile matches supplier and client payment ledgers against
// reservation totals per folio, separating direct-sale channels and
// flagging anomalies.
package reconcile

import "time"

// Side selects which ledger a reconciliation pass covers.
type Side string

const (
	// SideAP reconciles supplier payments against total_proveedor.
	SideAP Side = "AP"
	// SideAR reconciles client payments against total_cliente.
	SideAR Side = "AR"
)

// Variant selects how applied payments are aggregated with respect to
// direct-sale channels. The two observed report generations disagree;
// the variant is explicit deployment configuration, never inferred.
type Variant string

const (
	// VariantIncludeThenSubtract sums every applied payment and tracks
	// direct-sale amounts separately for display; the remainder nets
	// them out arithmetically.
	VariantIncludeThenSubtract Variant = "INCLUDE_THEN_SUBTRACT"
	// VariantExcludeAtSource drops direct-sale method codes from the
	// settled sum and subtracts the direct-sale bucket from the owed
	// side instead.
	VariantExcludeAtSource Variant = "EXCLUDE_AT_SOURCE"
)

// ParseVariant maps a configuration string to a Variant, defaulting to
// VariantIncludeThenSubtract for anything unrecognised.
func ParseVariant(s string) Variant {
	if Variant(s) == VariantExcludeAtSource {
		return VariantExcludeAtSource
	}
	return VariantIncludeThenSubtract
}

// WalletCode is the Mexico-entity store-credit method. Wallet rows are
// excluded from settled sums entirely and subtracted at the remainder
// stage for AR.
const WalletCode = "4ZP"

// DirectSaleCodes returns the per-entity payment-method codes that
// denote direct sales.
func DirectSaleCodes(company string) map[string]struct{} {
	switch company {
	case "SL":
		return map[string]struct{}{"00B": {}}
	case "LLC":
		return map[string]struct{}{"4E2": {}, "E04": {}}
	}
	return map[string]struct{}{}
}

// Result is the reconciliation outcome for one reservation folio on one
// side. Flagged marks a negative USD remainder: an overpaid supplier on
// the AP side, and the open-question client sign condition on AR.
type Result struct {
	Folio        int64      `json:"folio"`
	Currency     string     `json:"currency"`
	Owed         float64    `json:"owed"`
	Settled      float64    `json:"settled"`
	DirectSale   float64    `json:"direct_sale"`
	Wallet       float64    `json:"wallet,omitempty"`
	Remainder    float64    `json:"remainder"`
	RemainderUSD float64    `json:"remainder_usd"`
	TripStart    *time.Time `json:"trip_start,omitempty"`
	Flagged      bool       `json:"flagged"`
}
