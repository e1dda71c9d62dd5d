// Package ingest reads the booking system's CSV exports. Files arrive
// latin-1 encoded, with inconsistent naming ("reserva (1).csv", backup
// subdirectories) and occasional column-name drift, all of which the
// loaders tolerate.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"
)

// FindCSV locates a CSV by base name inside dataDir. The exact name
// wins; otherwise name variants and backup subdirectories are searched
// and the most recently modified candidate is used.
func FindCSV(dataDir, baseName string) (string, error) {
	exact := filepath.Join(dataDir, baseName+".csv")
	if _, err := os.Stat(exact); err == nil {
		return exact, nil
	}

	var candidates []string
	_ = filepath.WalkDir(dataDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		name := d.Name()
		if strings.HasPrefix(name, baseName) && strings.HasSuffix(name, ".csv") {
			candidates = append(candidates, path)
		}
		return nil
	})
	if len(candidates) == 0 {
		return "", fmt.Errorf("%w: %s in %s", ErrMissingFile, baseName, dataDir)
	}
	sort.Slice(candidates, func(i, j int) bool {
		return modTime(candidates[i]).After(modTime(candidates[j]))
	})
	return candidates[0], nil
}

func modTime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

// table is a parsed CSV with header-indexed access.
type table struct {
	index map[string]int
	rows  [][]string
}

// readCSV parses a latin-1 encoded CSV into a header-indexed table.
func readCSV(path string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	reader := csv.NewReader(charmap.ISO8859_1.NewDecoder().Reader(f))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("ingest: parse %s: %w", filepath.Base(path), err)
	}
	if len(records) == 0 {
		return &table{index: map[string]int{}}, nil
	}

	index := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		index[strings.TrimSpace(name)] = i
	}
	return &table{index: index, rows: records[1:]}, nil
}

// get returns the named column of a row, blank when absent.
func (t *table) get(row []string, column string) string {
	i, ok := t.index[column]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// has reports whether the file carries the named column.
func (t *table) has(column string) bool {
	_, ok := t.index[column]
	return ok
}

var dateLayouts = []string{"2006-01-02", "2006-01-02 15:04:05", "02/01/2006"}

// parseDate parses a booking-system date. Blank values and the
// unapplied sentinel yield nil, as does anything unparseable: a bad
// date never aborts a row.
func parseDate(val string) *time.Time {
	s := strings.TrimSpace(val)
	if s == "" || s == UnappliedDate {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &t
		}
	}
	return nil
}

// parseFloat tolerates blank and malformed numerics, defaulting to 0.
func parseFloat(val string) float64 {
	s := strings.TrimSpace(val)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

func parseInt(val string) int64 {
	s := strings.TrimSpace(val)
	if s == "" {
		return 0
	}
	// Some exports render integer keys as floats ("5001.0").
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f)
	}
	return 0
}

func parseBool(val string) bool {
	switch strings.TrimSpace(val) {
	case "1", "true", "True":
		return true
	}
	return false
}
