package ingest

import (
	"log/slog"
	"sort"
)

// LoadServiceLines reads dreserva.csv. The commission column drifted
// between export generations (monto_comision vs comision_monto); both
// are accepted.
func LoadServiceLines(dataDir string, logger *slog.Logger) ([]ServiceLine, error) {
	path, err := FindCSV(dataDir, "dreserva")
	if err != nil {
		return nil, err
	}
	t, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	commissionCol := "monto_comision"
	if !t.has(commissionCol) && t.has("comision_monto") {
		commissionCol = "comision_monto"
	}

	lines := make([]ServiceLine, 0, len(t.rows))
	for _, row := range t.rows {
		lines = append(lines, ServiceLine{
			Folio:             parseInt(t.get(row, "folio")),
			Number:            int(parseInt(t.get(row, "numero"))),
			SupplierCode:      parseInt(t.get(row, "proveedor")),
			Description:       t.get(row, "descripcion"),
			ServiceType:       t.get(row, "tipo_servicio"),
			StayStart:         parseDate(t.get(row, "inicio_estancia")),
			StayEnd:           parseDate(t.get(row, "fin_estancia")),
			Currency:          t.get(row, "moneda"),
			Subtotal:          parseFloat(t.get(row, "subtotal")),
			Commission:        parseFloat(t.get(row, commissionCol)),
			CommissionPending: parseBool(t.get(row, "comision_pendiente")),
			CommissionPaidAt:  parseDate(t.get(row, "fecha_pago")),
			Cancelled:         parseBool(t.get(row, "servicio_cancelado")),
		})
	}
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].Folio != lines[j].Folio {
			return lines[i].Folio < lines[j].Folio
		}
		return lines[i].Number < lines[j].Number
	})

	logger.Info("ingest: service lines loaded", slog.String("path", path), slog.Int("rows", len(lines)))
	return lines, nil
}

// ComputeProfitability sums commission amounts per folio. The figure is
// derived fresh on every run and never persisted.
func ComputeProfitability(lines []ServiceLine) map[int64]float64 {
	profit := make(map[int64]float64)
	for _, line := range lines {
		profit[line.Folio] += line.Commission
	}
	return profit
}
