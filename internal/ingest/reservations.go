package ingest

import (
	"log/slog"
	"sort"
)

// LoadReservations reads reserva.csv, drops cancelled rows and sorts by
// folio. A missing file is fatal for the calling entity/report.
func LoadReservations(dataDir string, logger *slog.Logger) ([]Reservation, error) {
	path, err := FindCSV(dataDir, "reserva")
	if err != nil {
		return nil, err
	}
	t, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	reservations := make([]Reservation, 0, len(t.rows))
	for _, row := range t.rows {
		if parseBool(t.get(row, "cancelada")) {
			continue
		}
		reservations = append(reservations, Reservation{
			Folio:         parseInt(t.get(row, "folio")),
			Closed:        parseBool(t.get(row, "cerrada")),
			SaleDate:      parseDate(t.get(row, "fecha")),
			TripStart:     parseDate(t.get(row, "fecha_inicio")),
			TripEnd:       parseDate(t.get(row, "fecha_fin")),
			Salesperson:   t.get(row, "vendedor"),
			GuestCount:    int(parseInt(t.get(row, "usuarios_invitados"))),
			ClientTotal:   parseFloat(t.get(row, "total_cliente")),
			SupplierTotal: parseFloat(t.get(row, "total_proveedor")),
			Currency:      t.get(row, "moneda"),
			Notes:         t.get(row, "observaciones"),
		})
	}
	sort.Slice(reservations, func(i, j int) bool {
		return reservations[i].Folio < reservations[j].Folio
	})

	logger.Info("ingest: reservations loaded",
		slog.String("path", path),
		slog.Int("total", len(t.rows)),
		slog.Int("active", len(reservations)))
	return reservations, nil
}
