// Package export writes users' metric readings to CSV files.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/pruthviraj-b/lifetracker-sub001/internal/models"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/store"
)

// NothingToExport is returned when the user has no readings.
const NothingToExport = "You have no metrics to export yet."

var header = []string{"date", "metric", "value", "unit", "recorded_at"}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// Option configures a CSVExporter.
type Option func(*CSVExporter)

// WithClock sets the time source used for file names.
func WithClock(now func() time.Time) Option {
	return func(e *CSVExporter) { e.now = now }
}

// CSVExporter writes one CSV file per export under dir.
type CSVExporter struct {
	records store.Records
	dir     string
	now     func() time.Time
}

// NewCSVExporter creates an exporter writing into dir, which is created on demand.
func NewCSVExporter(records store.Records, dir string, opts ...Option) *CSVExporter {
	e := &CSVExporter{records: records, dir: dir, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FileName returns the export file name for userID at t.
func FileName(userID string, t time.Time) string {
	return fmt.Sprintf("metrics-%s-%s.csv", unsafeChars.ReplaceAllString(userID, "_"), t.Format("20060102-150405"))
}

// ExportMetrics writes the user's readings, oldest first, and reports the file path.
func (e *CSVExporter) ExportMetrics(ctx context.Context, uc models.UserContext) (models.ActionResult, error) {
	if uc.UserID == "" {
		return models.ActionResult{}, fmt.Errorf("export requires a user")
	}
	recs, err := e.records.ListRecords(ctx, models.EntityMetrics, uc.UserID)
	if err != nil {
		return models.ActionResult{}, fmt.Errorf("failed to list metrics: %w", err)
	}
	if len(recs) == 0 {
		return models.ActionResult{Message: NothingToExport}, nil
	}
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Data.String("date") < recs[j].Data.String("date")
	})

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return models.ActionResult{}, fmt.Errorf("failed to create export directory: %w", err)
	}
	path := filepath.Join(e.dir, FileName(uc.UserID, e.now()))
	if err := writeCSV(path, recs); err != nil {
		return models.ActionResult{}, err
	}

	slog.Info("CSVExporter.ExportMetrics: export written", "userID", uc.UserID, "path", path, "rows", len(recs))
	return models.ActionResult{Message: fmt.Sprintf("Exported %d metric readings to %s.", len(recs), path)}, nil
}

func writeCSV(path string, recs []models.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write export header: %w", err)
	}
	for _, r := range recs {
		value := ""
		if v, ok := r.Data.Float("value"); ok {
			value = strconv.FormatFloat(v, 'f', -1, 64)
		}
		row := []string{r.Data.String("date"), r.Name, value, r.Data.String("unit"), r.CreatedAt.UTC().Format(time.RFC3339)}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write export row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush export: %w", err)
	}
	return f.Close()
}
