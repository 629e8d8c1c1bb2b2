package excel

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gounlearn/domain/attack"
	"gounlearn/domain/core"
	"gounlearn/ports"

	"github.com/xuri/excelize/v2"
)

// DataReader reads scored samples and an optional metric grid from an xlsx
// workbook, or samples alone from a CSV file.
//
// The samples sheet is either long (a "group" and a "score" column) or wide
// (one column per group, headed by the group name). The metrics sheet has
// threshold, attack, fpr and fnr columns in any order.
type DataReader struct {
	cfg      ExcelConfig
	fileType string // "xlsx" or "csv"
}

var _ ports.DatasetSource = (*DataReader)(nil)

// NewDataReader creates a reader that handles both Excel and CSV files
func NewDataReader(cfg ExcelConfig) *DataReader {
	fileType := "xlsx"
	if strings.ToLower(filepath.Ext(cfg.FilePath)) == ".csv" {
		fileType = "csv"
	}
	return &DataReader{cfg: cfg, fileType: fileType}
}

// Name returns the file's base name
func (r *DataReader) Name() string {
	return filepath.Base(r.cfg.FilePath)
}

// Samples reads the samples sheet
func (r *DataReader) Samples(ctx context.Context) ([]attack.ScoredSample, error) {
	rows, err := r.readRows(ctx, r.cfg.SamplesSheet)
	if err != nil {
		return nil, err
	}
	return parseSamples(r.Name(), rows)
}

// Metrics reads the metrics sheet. CSV files and workbooks without the
// sheet carry no grid.
func (r *DataReader) Metrics(ctx context.Context) ([]attack.MetricSample, error) {
	if r.fileType == "csv" {
		return nil, nil
	}
	rows, err := r.readRows(ctx, r.cfg.MetricsSheet)
	if err != nil {
		var missing excelize.ErrSheetNotExist
		if errors.As(err, &missing) {
			log.Printf("[DataReader] %s has no %q sheet; metrics will be derived", r.Name(), r.cfg.MetricsSheet)
			return nil, nil
		}
		return nil, err
	}
	return parseMetrics(r.Name(), rows)
}

func (r *DataReader) readRows(ctx context.Context, sheet string) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(r.cfg.FilePath); err != nil {
		return nil, fmt.Errorf("%s file not found: %s: %w", strings.ToUpper(r.fileType), r.cfg.FilePath, err)
	}
	if r.fileType == "csv" {
		return r.readCSVRows()
	}
	return r.readSheetRows(sheet)
}

func (r *DataReader) readSheetRows(sheet string) ([][]string, error) {
	startTime := time.Now()
	f, err := excelize.OpenFile(r.cfg.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	log.Printf("[DataReader] %s!%s read in %.2fms (%d rows)",
		r.Name(), sheet, float64(time.Since(startTime).Nanoseconds())/1e6, len(rows))
	return rows, nil
}

func (r *DataReader) readCSVRows() ([][]string, error) {
	file, err := os.Open(r.cfg.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	return rows, nil
}

func parseSamples(source string, rows [][]string) ([]attack.ScoredSample, error) {
	if len(rows) < 2 {
		return nil, core.NewMalformedSourceError(source, "samples need a header row and at least one data row")
	}
	header := normalizeHeader(rows[0])

	if gi, si := indexOf(header, "group"), indexOf(header, "score"); gi >= 0 && si >= 0 {
		samples := make([]attack.ScoredSample, 0, len(rows)-1)
		for n, row := range rows[1:] {
			if blank(row) {
				continue
			}
			g, err := attack.ParseGroup(cell(row, gi))
			if err != nil {
				return nil, core.NewMalformedSourceError(source, fmt.Sprintf("row %d: %v", n+2, err))
			}
			score, err := parseNumber(cell(row, si))
			if err != nil {
				return nil, core.NewMalformedSourceError(source, fmt.Sprintf("row %d: %v", n+2, err))
			}
			samples = append(samples, attack.ScoredSample{Score: score, Group: g})
		}
		return samples, nil
	}

	// wide layout: every column headed by a group name
	groups := make([]attack.Group, len(header))
	found := false
	for i, h := range header {
		if g, err := attack.ParseGroup(h); err == nil {
			groups[i] = g
			found = true
		}
	}
	if !found {
		return nil, core.NewMalformedSourceError(source, "no group/score columns and no group-named columns")
	}

	var samples []attack.ScoredSample
	for _, g := range attack.Groups {
		for col, cg := range groups {
			if cg != g {
				continue
			}
			for n, row := range rows[1:] {
				raw := cell(row, col)
				if raw == "" {
					continue // ragged columns
				}
				score, err := parseNumber(raw)
				if err != nil {
					return nil, core.NewMalformedSourceError(source, fmt.Sprintf("row %d column %q: %v", n+2, header[col], err))
				}
				samples = append(samples, attack.ScoredSample{Score: score, Group: g})
			}
		}
	}
	return samples, nil
}

func parseMetrics(source string, rows [][]string) ([]attack.MetricSample, error) {
	if len(rows) < 2 {
		return nil, nil
	}
	header := normalizeHeader(rows[0])
	cols := map[string]int{
		"threshold": indexOf(header, "threshold", "t"),
		"attack":    indexOf(header, "attack", "attack_score", "attack score"),
		"fpr":       indexOf(header, "fpr", "false_positive_rate"),
		"fnr":       indexOf(header, "fnr", "false_negative_rate"),
	}
	for name, i := range cols {
		if i < 0 {
			return nil, core.NewMalformedSourceError(source, fmt.Sprintf("metrics sheet has no %s column", name))
		}
	}

	metrics := make([]attack.MetricSample, 0, len(rows)-1)
	for n, row := range rows[1:] {
		if blank(row) {
			continue
		}
		var vals [4]float64
		for k, name := range []string{"threshold", "attack", "fpr", "fnr"} {
			v, err := parseNumber(cell(row, cols[name]))
			if err != nil {
				return nil, core.NewMalformedSourceError(source, fmt.Sprintf("metrics row %d %s: %v", n+2, name, err))
			}
			vals[k] = v
		}
		metrics = append(metrics, attack.MetricSample{
			Threshold:         vals[0],
			AttackScore:       vals[1],
			FalsePositiveRate: vals[2],
			FalseNegativeRate: vals[3],
		})
	}
	return metrics, nil
}

func normalizeHeader(row []string) []string {
	out := make([]string, len(row))
	for i, h := range row {
		out[i] = strings.ToLower(strings.TrimSpace(h))
	}
	return out
}

func indexOf(header []string, names ...string) int {
	for i, h := range header {
		for _, n := range names {
			if h == n {
				return i
			}
		}
	}
	return -1
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseNumber(s string) (float64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty cell")
	}
	return strconv.ParseFloat(s, 64)
}
