package httpapi

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"pq-sarfi/internal/domain"
	"pq-sarfi/internal/service"
)

// ThresholdImportHeader import template header
var ThresholdImportHeader = []string{
	"Min Voltage (%)",
	"Duration (s)",
}

// ThresholdExportHeader export header
var ThresholdExportHeader = []string{
	"Min Voltage (%)",
	"Duration (s)",
	"Sort Order",
}

const thresholdSheetName = "Thresholds"

// ParseThresholdImport reads threshold rows from an uploaded Excel file.
// The first row is the header and is skipped. A cell that does not parse as
// a number yields NaN so the row still reaches the batch importer and is
// reported as a per-row failure instead of aborting the upload.
func ParseThresholdImport(r io.Reader) ([]service.ThresholdRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}

	var out []service.ThresholdRow
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		if isEmptyRow(row) {
			continue
		}
		out = append(out, service.ThresholdRow{
			MinVoltage: cellFloat(row, 0),
			Duration:   cellFloat(row, 1),
		})
	}

	return out, nil
}

func isEmptyRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func cellFloat(row []string, col int) float64 {
	if col >= len(row) {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(row[col]), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// GenerateThresholdImportTemplate builds the empty import template
func GenerateThresholdImportTemplate() ([]byte, error) {
	return generateThresholdExcel(ThresholdImportHeader, nil)
}

// GenerateThresholdExport builds a workbook holding one standard's curve
func GenerateThresholdExport(standard *domain.BenchmarkStandard, thresholds []*domain.Threshold) ([]byte, error) {
	data := make([][]any, 0, len(thresholds))
	for _, t := range thresholds {
		data = append(data, []any{t.MinVoltage, t.Duration, t.SortOrder})
	}
	return generateThresholdExcel(ThresholdExportHeader, data)
}

func generateThresholdExcel(headers []string, data [][]any) ([]byte, error) {
	f := excelize.NewFile()
	// Note: Don't defer Close() here, because WriteTo needs the file to be open

	index, err := f.NewSheet(thresholdSheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(thresholdSheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(thresholdSheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}

	for rowIdx, row := range data {
		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, rowIdx+2)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetCellValue(thresholdSheetName, cell, value); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell %s: %w", cell, err)
			}
		}
	}

	for col := range headers {
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to resolve column name: %w", err)
		}
		if err := f.SetColWidth(thresholdSheetName, name, name, 18); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close workbook: %w", err)
	}

	return buf.Bytes(), nil
}
