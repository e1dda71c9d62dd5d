package ingest

import (
	"errors"
	"time"
)

// UnappliedDate is the booking system's sentinel for a payment that has
// not been applied yet.
const UnappliedDate = "0000-00-00"

// ErrMissingFile indicates a required CSV could not be located in the
// entity's data directory. It is fatal for that entity/report only; the
// surrounding run continues with the remaining entities.
var ErrMissingFile = errors.New("ingest: required csv not found")

// Reservation is one confirmed booking exported by the booking system.
// Cancelled rows are filtered at load time.
type Reservation struct {
	Folio         int64
	Closed        bool
	SaleDate      *time.Time
	TripStart     *time.Time
	TripEnd       *time.Time
	Salesperson   string
	GuestCount    int
	ClientTotal   float64
	SupplierTotal float64
	Currency      string
	Notes         string
}

// ServiceLine is one reservation detail/service row. Commission amounts
// summed per folio yield the derived profitability figure.
type ServiceLine struct {
	Folio             int64
	Number            int
	SupplierCode      int64
	Description       string
	ServiceType       string
	StayStart         *time.Time
	StayEnd           *time.Time
	Currency          string
	Subtotal          float64
	Commission        float64
	CommissionPending bool
	CommissionPaidAt  *time.Time
	Cancelled         bool
}

// Payment is one supplier- or client-ledger row. AppliedAt is nil while
// the row still carries the unapplied sentinel date.
type Payment struct {
	Folio        int64
	Amount       float64
	Currency     string
	MethodCode   string
	AppliedAt    *time.Time
	DueDate      *time.Time
	WalletAmount float64
	SupplierCode int64
	Salesperson  string
	PaymentDate  *time.Time
	Cancelled    bool
}

// Applied reports whether the payment carries a real application date.
func (p Payment) Applied() bool {
	return !p.Cancelled && p.AppliedAt != nil
}

// Supplier is one row of the supplier master file.
type Supplier struct {
	Code  int64
	Name  string
	Email string
	City  string
}
