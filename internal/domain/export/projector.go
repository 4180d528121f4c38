// Package export flattens stored analysis results into tabular bytes for
// download. Projection is a pure function of its input: identical results
// and options yield identical rows, and CSV and XLSX renderings carry the
// same logical cells.
package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/draftlab/drawing-server/internal/domain/analysis"
)

// Format selects the output serialization.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatExcel Format = "excel"
)

var (
	ErrEmptyDataset      = errors.New("nothing to export")
	ErrUnsupportedFormat = errors.New("unsupported export format")
)

// Options controls projection behavior. DateFormat is a Go reference layout.
type Options struct {
	IncludeHeaders bool
	DateFormat     string
	AllowEmpty     bool
}

// DefaultOptions returns the options used when the caller supplies none.
func DefaultOptions() Options {
	return Options{
		IncludeHeaders: true,
		DateFormat:     "2006-01-02 15:04:05",
		AllowEmpty:     true,
	}
}

// header is the fixed column order shared by both formats.
var header = []string{
	"result_id", "file_id", "title", "drawing_number", "analyzed_at",
	"status", "error", "section", "name", "value", "unit", "type",
	"quantity", "material", "specifications",
}

// Section discriminates what each flattened row describes.
const (
	sectionSummary   = "summary"
	sectionDimension = "dimension"
	sectionPart      = "part"
	sectionMaterial  = "material"
)

// Project serializes results in the requested format.
func Project(results []analysis.AnalysisResult, format Format, opts Options) ([]byte, error) {
	rows := Flatten(results, opts)
	if len(rows) == 0 && !opts.AllowEmpty {
		return nil, ErrEmptyDataset
	}

	switch format {
	case FormatCSV:
		return renderCSV(rows, opts)
	case FormatExcel:
		return renderXLSX(rows, opts)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// Flatten expands each result into one row per dimension, then per part,
// then per material, repeating the result-level columns on every row. A
// result with no detail entries emits a single summary row.
func Flatten(results []analysis.AnalysisResult, opts Options) [][]string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		base := []string{
			r.ID,
			r.FileID,
			r.Title,
			r.DrawingNumber,
			r.AnalyzedAt.Format(opts.DateFormat),
			string(r.Status),
			r.Error,
		}

		emitted := false
		for _, d := range r.Dimensions {
			rows = append(rows, detailRow(base, sectionDimension,
				d.Label, formatValue(d.Value), string(d.Unit), string(d.Type), "", "", ""))
			emitted = true
		}
		for _, p := range r.PartsList {
			rows = append(rows, detailRow(base, sectionPart,
				p.Name, "", "", "", strconv.Itoa(p.Quantity), p.Material, p.Specifications))
			emitted = true
		}
		for _, m := range r.Materials {
			rows = append(rows, detailRow(base, sectionMaterial,
				m.Name, "", "", m.Type, "", "", m.Specifications))
			emitted = true
		}
		if !emitted {
			rows = append(rows, detailRow(base, sectionSummary, "", "", "", "", "", "", ""))
		}
	}
	return rows
}

func detailRow(base []string, section, name, value, unit, typ, quantity, material, specs string) []string {
	row := make([]string, 0, len(header))
	row = append(row, base...)
	row = append(row, section, name, value, unit, typ, quantity, material, specs)
	return row
}

// formatValue renders a dimension value with the minimal digits that
// round-trip, so exports are byte-stable.
func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func renderCSV(rows [][]string, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if opts.IncludeHeaders {
		if err := w.Write(header); err != nil {
			return nil, err
		}
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

const sheetName = "Analysis Results"

func renderXLSX(rows [][]string, opts Options) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	f.SetSheetName("Sheet1", sheetName)

	rowIdx := 1
	if opts.IncludeHeaders {
		boldStyle, err := f.NewStyle(&excelize.Style{
			Font: &excelize.Font{Bold: true, Size: 11},
			Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
			Border: []excelize.Border{
				{Type: "bottom", Color: "000000", Style: 1},
			},
		})
		if err != nil {
			return nil, err
		}
		for i, h := range header {
			col, _ := excelize.ColumnNumberToName(i + 1)
			cell := fmt.Sprintf("%s%d", col, rowIdx)
			f.SetCellValue(sheetName, cell, h)
			f.SetCellStyle(sheetName, cell, cell, boldStyle)
		}
		rowIdx++
	}

	for _, row := range rows {
		for i, cellValue := range row {
			col, _ := excelize.ColumnNumberToName(i + 1)
			f.SetCellValue(sheetName, fmt.Sprintf("%s%d", col, rowIdx), cellValue)
		}
		rowIdx++
	}

	colWidths := []float64{30, 30, 24, 16, 20, 10, 24, 10, 20, 10, 6, 10, 8, 14, 24}
	for i, w := range colWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, col, col, w)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ParseFormat resolves the user-supplied format string. "xlsx" is accepted
// as an alias for excel.
func ParseFormat(raw string) (Format, error) {
	switch raw {
	case "csv":
		return FormatCSV, nil
	case "excel", "xlsx":
		return FormatExcel, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, raw)
	}
}
