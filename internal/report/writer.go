// Package report renders organization reports to CSV, JSON and Excel
// artifacts on disk.
package report

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cmdouglas/adoreport/internal/model"
)

// Writer renders one organization's report into the output directory.
type Writer struct {
	dir              string
	includeTimestamp bool
	logger           *slog.Logger
}

// NewWriter creates the output directory if needed and returns a Writer.
func NewWriter(dir string, includeTimestamp bool, logger *slog.Logger) (*Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir == "" {
		dir = "./reports"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	return &Writer{dir: dir, includeTimestamp: includeTimestamp, logger: logger}, nil
}

// GenerateAll writes the report in every requested format and returns the
// generated file paths keyed by format. A failure in one format is logged
// and does not prevent the others.
func (w *Writer) GenerateAll(r *model.OrganizationReport, formats []string) map[string][]string {
	generated := make(map[string][]string)

	for _, format := range formats {
		var (
			paths []string
			err   error
		)
		switch strings.ToLower(format) {
		case "csv":
			paths, err = w.GenerateCSVReports(r)
		case "json":
			var path string
			path, err = w.GenerateJSONReport(r)
			paths = []string{path}
		case "excel":
			var path string
			path, err = w.GenerateExcelReport(r)
			paths = []string{path}
		default:
			w.logger.Warn("unknown report format", "format", format)
			continue
		}
		if err != nil {
			w.logger.Error("failed to generate report", "format", format, "error", err)
			continue
		}
		generated[strings.ToLower(format)] = paths
	}

	return generated
}

// filename builds an output path, optionally suffixed with the report's
// generation timestamp.
func (w *Writer) filename(base, ext string, generatedAt time.Time) string {
	if w.includeTimestamp {
		base = fmt.Sprintf("%s_%s", base, generatedAt.UTC().Format("20060102_150405"))
	}
	return filepath.Join(w.dir, base+ext)
}

// sortedKeys returns map keys in lexical order so output rows are stable
// across runs.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// yesNo renders an optional boolean the way the reports expect.
func yesNo(b *bool) string {
	switch {
	case b == nil:
		return "Unknown"
	case *b:
		return "Yes"
	default:
		return "No"
	}
}

// dateOrEmpty renders an optional timestamp as a plain date.
func dateOrEmpty(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

// titleize turns an internal key like "basicPlusTestPlans" or
// "azure_active_directory" into a display heading.
func titleize(s string) string {
	s = strings.ReplaceAll(s, "_", " ")
	words := strings.Fields(s)
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

// costOrZero renders the license cost, with nil meaning no entitlement.
func costOrZero(cost *float64) float64 {
	if cost == nil {
		return 0
	}
	return *cost
}

// groupNames extracts display names.
func groupNames(groups []model.Group) []string {
	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, g.DisplayName)
	}
	return names
}
