package ingest

import "log/slog"

// LoadSuppliers reads the supplier master keyed by clave. A missing
// file yields an empty map: supplier data only enriches alerts and
// breakdowns, it never gates a report.
func LoadSuppliers(dataDir string, logger *slog.Logger) map[int64]Supplier {
	path, err := FindCSV(dataDir, "proveedor")
	if err != nil {
		logger.Warn("ingest: supplier master missing", slog.String("dir", dataDir))
		return map[int64]Supplier{}
	}
	t, err := readCSV(path)
	if err != nil {
		logger.Warn("ingest: supplier master unreadable", slog.String("path", path), slog.Any("error", err))
		return map[int64]Supplier{}
	}

	suppliers := make(map[int64]Supplier, len(t.rows))
	for _, row := range t.rows {
		code := parseInt(t.get(row, "clave"))
		if code == 0 {
			continue
		}
		suppliers[code] = Supplier{
			Code:  code,
			Name:  t.get(row, "nombre"),
			Email: t.get(row, "correo_e_contacto"),
			City:  t.get(row, "ciudad"),
		}
	}

	logger.Info("ingest: suppliers loaded", slog.String("path", path), slog.Int("rows", len(suppliers)))
	return suppliers
}
