package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gannetworld/gannet-reports/internal/sales"
)

// Exporter writes the run's output shapes as CSV/JSON artifacts. These
// files are the hand-off point for the spreadsheet writers; workbook
// layout, pivots and charts are theirs.
type Exporter struct {
	outputDir string
	logger    *slog.Logger
}

// NewExporter constructs an exporter rooted at outputDir.
func NewExporter(outputDir string, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{outputDir: outputDir, logger: logger}
}

// WriteRun persists every artifact of one run under
// <outputDir>/Week_<week>_<year>/.
func (e *Exporter) WriteRun(run *RunResult) error {
	dir := filepath.Join(e.outputDir, fmt.Sprintf("Week_%d_%d", run.Week, run.Year))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("export: create output dir: %w", err)
	}

	if err := e.writeCanonicalCSV(filepath.Join(dir, "data.csv"), run.Rows()); err != nil {
		return err
	}
	artifacts := map[string]any{
		"booking_matrix.json": run.Matrix,
		"findings.json":       run.Findings(),
		"fx_latest.json":      run.LatestRates,
		"entities.json":       run.Entities,
	}
	for name, value := range artifacts {
		if err := writeJSON(filepath.Join(dir, name), value); err != nil {
			return err
		}
	}

	e.logger.Info("export: artifacts written", slog.String("dir", dir))
	return nil
}

func writeJSON(path string, value any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(value); err != nil {
		return fmt.Errorf("export: encode %s: %w", filepath.Base(path), err)
	}
	return nil
}

var canonicalHeader = []string{
	"compania", "folio", "cerrada", "fecha", "fecha_inicio", "fecha_fin",
	"vendedor", "semana", "usuarios_invitados", "total_cliente", "moneda",
	"total_venta_eur", "total_venta_usd", "rentabilidad", "rentabilidad_eur",
	"rentabilidad_usd", "pct_rentabilidad", "mes", "ano", "mes_inicio",
	"ano_inicio", "fecha_45", "mes_45", "ano_45", "observaciones",
}

func (e *Exporter) writeCanonicalCSV(path string, rows []sales.CanonicalRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	w := csv.NewWriter(f)
	if err := w.Write(canonicalHeader); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			row.Company,
			strconv.FormatInt(row.Folio, 10),
			boolField(row.Closed),
			dateField(row.SaleDate),
			dateField(row.TripStart),
			dateField(row.TripEnd),
			row.Salesperson,
			intField(row.SaleWeek),
			strconv.Itoa(row.GuestCount),
			floatField(row.ClientTotal),
			row.Currency,
			floatField(row.ClientTotalEUR),
			floatField(row.ClientTotalUSD),
			floatField(row.Profit),
			floatField(row.ProfitEUR),
			floatField(row.ProfitUSD),
			strconv.FormatFloat(row.ProfitRatio, 'f', 6, 64),
			intField(row.SaleMonth),
			intField(row.SaleYear),
			intField(row.TripStartMonth),
			intField(row.TripStartYear),
			dateField(row.Date45),
			row.Month45Name,
			intField(row.Year45),
			row.Notes,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func dateField(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func intField(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func floatField(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func boolField(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
