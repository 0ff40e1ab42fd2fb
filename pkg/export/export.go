// Package export writes result tables to files or MongoDB.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"ecomtools/pkg/models"
	"ecomtools/pkg/tableio"
)

const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

type Exporter interface {
	Export(ctx context.Context, name string, t models.Table) error
}

// FileExporter writes one timestamped file per table into Dir.
type FileExporter struct {
	Dir    string
	Format string
	Now    func() time.Time
}

func NewFileExporter(dir, format string) (*FileExporter, error) {
	if format == "" {
		format = FormatCSV
	}
	if format != FormatCSV && format != FormatJSON {
		return nil, fmt.Errorf("%w: unknown export format %q", models.ErrInvalidConfig, format)
	}
	return &FileExporter{Dir: dir, Format: format, Now: time.Now}, nil
}

// TimestampedFilename returns <dir>/<name>_<yyyymmdd_hhmmss>.<ext>.
func TimestampedFilename(dir, name, ext string, now time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.%s", name, now.Format("20060102_150405"), ext))
}

func (e *FileExporter) Export(ctx context.Context, name string, t models.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create folder: %w", err)
	}
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	path := TimestampedFilename(e.Dir, name, e.Format, now())
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	switch e.Format {
	case FormatJSON:
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		err = enc.Encode(Rows(t))
	default:
		err = tableio.WriteCSV(f, t)
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	slog.Info("exported", "table", name, "path", path)
	return nil
}

// Rows turns a table into one map per record, keyed by header. Cells keep their types,
// so numbers stay numbers and absent values encode as JSON null.
func Rows(t models.Table) []map[string]any {
	header := t.Header()
	values := t.Values()
	out := make([]map[string]any, 0, len(values))
	for _, rec := range values {
		row := make(map[string]any, len(header))
		for i, h := range header {
			if i < len(rec) {
				row[h] = rec[i]
			} else {
				row[h] = nil
			}
		}
		out = append(out, row)
	}
	return out
}

// Report exports every table of r, stopping at the first failure.
func Report(ctx context.Context, e Exporter, r *models.Report) error {
	for _, nt := range r.Tables() {
		if err := e.Export(ctx, nt.Name, nt.Table); err != nil {
			return fmt.Errorf("export %s: %w", nt.Name, err)
		}
	}
	return nil
}
