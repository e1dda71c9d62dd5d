package ingest

import "log/slog"

// LoadSupplierPayments reads pago_proveedor.csv. Application dates live
// in fecha_aplicacion; unapplied rows carry the 0000-00-00 sentinel and
// stay with a nil AppliedAt.
func LoadSupplierPayments(dataDir string, logger *slog.Logger) ([]Payment, error) {
	return loadPayments(dataDir, "pago_proveedor", "fecha_aplicacion", logger)
}

// LoadClientPayments reads pago_cliente.csv, whose application date
// column is fecha_proceso in current exports (older ones used
// fecha_aplicacion).
func LoadClientPayments(dataDir string, logger *slog.Logger) ([]Payment, error) {
	return loadPayments(dataDir, "pago_cliente", "fecha_proceso", logger)
}

func loadPayments(dataDir, baseName, dateColumn string, logger *slog.Logger) ([]Payment, error) {
	path, err := FindCSV(dataDir, baseName)
	if err != nil {
		return nil, err
	}
	t, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	if !t.has(dateColumn) && t.has("fecha_aplicacion") {
		dateColumn = "fecha_aplicacion"
	}

	payments := make([]Payment, 0, len(t.rows))
	for _, row := range t.rows {
		payments = append(payments, Payment{
			Folio:        parseInt(t.get(row, "reserva")),
			Amount:       parseFloat(t.get(row, "monto")),
			Currency:     t.get(row, "moneda"),
			MethodCode:   t.get(row, "forma_pago"),
			AppliedAt:    parseDate(t.get(row, dateColumn)),
			DueDate:      parseDate(t.get(row, "fecha_limite")),
			WalletAmount: parseFloat(t.get(row, "monto_monedero")),
			SupplierCode: parseInt(t.get(row, "proveedor")),
			Salesperson:  t.get(row, "vendedor"),
			PaymentDate:  parseDate(t.get(row, "fecha")),
			Cancelled:    parseBool(t.get(row, "cancelado")),
		})
	}

	logger.Info("ingest: payments loaded", slog.String("path", path), slog.Int("rows", len(payments)))
	return payments, nil
}
