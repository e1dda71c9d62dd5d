package sales

// BookingMatrix accumulates USD sales by [sale week][departure-month
// key]. Month keys 1-12 address the first tracked fiscal year and
// month+13 the following one; the matrix deliberately tracks only those
// two years and drops everything else.
type BookingMatrix map[int]map[int]float64

// secondYearOffset shifts the following fiscal year's months past the
// first year's total column in the rendered sheet.
const secondYearOffset = 13

// BuildBookingMatrix re-aggregates canonical rows into the forward
// booking-window view. Rows without a sale date or departure date have
// no place in a departure-month matrix and are skipped without creating
// keys or zero cells. The per-week percentage row rendered below each
// week is a report-writer formula, not produced here.
func BuildBookingMatrix(rows []CanonicalRow, fiscalYear1 int) BookingMatrix {
	matrix := make(BookingMatrix)
	for _, row := range rows {
		if row.SaleWeek == nil || row.TripStart == nil {
			continue
		}

		var monthKey int
		switch row.TripStart.Year() {
		case fiscalYear1:
			monthKey = int(row.TripStart.Month())
		case fiscalYear1 + 1:
			monthKey = int(row.TripStart.Month()) + secondYearOffset
		default:
			continue
		}

		week := *row.SaleWeek
		if matrix[week] == nil {
			matrix[week] = make(map[int]float64)
		}
		matrix[week][monthKey] += row.ClientTotalUSD
	}
	return matrix
}
