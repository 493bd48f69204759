package engine

import (
	"sort"
	"time"

	"pq-sarfi/internal/domain"
)

// MaxComparisonYears the most years a year-over-year comparison may span
const MaxComparisonYears = 5

// MonthlyPoint one point of a flat monthly series (single-series charts)
type MonthlyPoint struct {
	Year  int     `json:"year"`
	Month int     `json:"month"`
	Value float64 `json:"value"`
}

// MonthlyReport flattens a dense series for chart consumers
func MonthlyReport(series MonthlySeries) []MonthlyPoint {
	points := make([]MonthlyPoint, 0, len(series.Months))
	for i, k := range series.Months {
		points = append(points, MonthlyPoint{
			Year:  k.Year,
			Month: int(k.Month),
			Value: series.Values[i],
		})
	}
	return points
}

// YearComparison the same month index across N selected years
type YearComparison struct {
	Bucket float64             `json:"bucket"`
	Years  []int               `json:"years"`
	Values map[int][12]float64 `json:"values"` // year -> value per month index
}

// YearOverYear reshapes a series into a same-month comparison across up to
// five years. Years absent from the series produce all-zero rows.
func YearOverYear(series MonthlySeries, years []int) (YearComparison, error) {
	if len(years) == 0 {
		return YearComparison{}, &domain.ValidationError{Field: "years", Message: "at least one year is required"}
	}
	if len(years) > MaxComparisonYears {
		return YearComparison{}, &domain.ValidationError{Field: "years", Message: "at most 5 years may be compared"}
	}

	sorted := make([]int, len(years))
	copy(sorted, years)
	sort.Ints(sorted)

	cmp := YearComparison{
		Bucket: series.Bucket,
		Years:  sorted,
		Values: make(map[int][12]float64, len(sorted)),
	}
	for _, y := range sorted {
		cmp.Values[y] = [12]float64{}
	}

	for i, k := range series.Months {
		row, ok := cmp.Values[k.Year]
		if !ok {
			continue
		}
		row[int(k.Month)-1] += series.Values[i]
		cmp.Values[k.Year] = row
	}

	return cmp, nil
}

// MatrixRow one row of a tabular summary
type MatrixRow struct {
	Key     string    `json:"key"`
	Values  []float64 `json:"values"`
	Total   float64   `json:"total"`
	Percent float64   `json:"percent"` // share of the grand total
}

// MatrixReport the dimension-by-month matrix reshaped for tables
type MatrixReport struct {
	Bucket       float64     `json:"bucket"`
	Months       []string    `json:"months"`
	Rows         []MatrixRow `json:"rows"`
	ColumnTotals []float64   `json:"column_totals"`
	GrandTotal   float64     `json:"grand_total"`
}

// MatrixReportFrom reshapes an aggregation matrix. Pure transformation: no
// business logic beyond reshaping and percentage computation.
func MatrixReportFrom(matrix Matrix) MatrixReport {
	report := MatrixReport{
		Bucket:     matrix.Bucket,
		Months:     make([]string, 0, len(matrix.Months)),
		Rows:       make([]MatrixRow, 0, len(matrix.Keys)),
		GrandTotal: matrix.GrandTotal,
	}
	for _, k := range matrix.Months {
		report.Months = append(report.Months, k.String())
	}

	for _, key := range matrix.Keys {
		row := MatrixRow{
			Key:    key,
			Values: make([]float64, 0, len(matrix.Months)),
			Total:  matrix.RowTotals[key],
		}
		for _, k := range matrix.Months {
			row.Values = append(row.Values, matrix.Cell(key, k))
		}
		row.Percent = Percentage(row.Total, matrix.GrandTotal)
		report.Rows = append(report.Rows, row)
	}

	report.ColumnTotals = make([]float64, 0, len(matrix.Months))
	for _, k := range matrix.Months {
		report.ColumnTotals = append(report.ColumnTotals, matrix.ColTotals[k])
	}

	return report
}

// Percentage computes value/total*100, returning 0 when total is 0
func Percentage(value, total float64) float64 {
	if total == 0 {
		return 0
	}
	return value / total * 100
}

// MeterTableRow one per-meter drill-down line
type MeterTableRow struct {
	MeterID      string  `json:"meter_id"`
	OC           string  `json:"oc"`
	Location     string  `json:"location"`
	VoltageLevel string  `json:"voltage_level"`
	EventCount   int     `json:"event_count"`
	Weighted     float64 `json:"weighted"`
}

// MeterTable aggregates one bucket's contributions per meter, sorted by
// meter id. Meters missing from the roster keep their contribution with
// empty descriptive fields so the table total matches the index total.
func MeterTable(classified []ClassifiedEvent, registry *WeightRegistry, bucket float64, meters *MeterIndex) []MeterTableRow {
	byMeter := make(map[string]*MeterTableRow)
	for _, c := range classified {
		if c.Outcome.Skipped || !c.Outcome.Trips(bucket) {
			continue
		}
		row, ok := byMeter[c.Event.MeterID]
		if !ok {
			row = &MeterTableRow{MeterID: c.Event.MeterID}
			if meters != nil {
				if m, found := meters.Lookup(c.Event.MeterID); found {
					row.OC = m.OC
					row.Location = m.Location
					row.VoltageLevel = m.VoltageLevel
				}
			}
			byMeter[c.Event.MeterID] = row
		}
		row.EventCount++
		row.Weighted += Contribution(&c.Event, bucket) * registry.Weight(c.Event.MeterID)
	}

	rows := make([]MeterTableRow, 0, len(byMeter))
	for _, row := range byMeter {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].MeterID < rows[j].MeterID })
	return rows
}

// DrillDownRow one classified event for drill-down tables
type DrillDownRow struct {
	EventID          string    `json:"event_id"`
	Timestamp        time.Time `json:"timestamp"`
	MeterID          string    `json:"meter_id"`
	CircuitID        string    `json:"circuit_id"`
	RemainingVoltage float64   `json:"remaining_voltage"`
	DurationS        float64   `json:"duration_s"`
	Buckets          []float64 `json:"buckets"`
	Skipped          bool      `json:"skipped"`
	SkipReason       string    `json:"skip_reason,omitempty"`
}

// DrillDown lists every classified event with its outcome, preserving input
// order. Skipped events stay visible so "N events skipped" is auditable.
func DrillDown(classified []ClassifiedEvent) []DrillDownRow {
	rows := make([]DrillDownRow, 0, len(classified))
	for _, c := range classified {
		rows = append(rows, DrillDownRow{
			EventID:          c.Event.EventID,
			Timestamp:        c.Event.Timestamp,
			MeterID:          c.Event.MeterID,
			CircuitID:        c.Event.CircuitID,
			RemainingVoltage: c.Outcome.RemainingVoltage,
			DurationS:        c.Outcome.DurationS,
			Buckets:          c.Outcome.Buckets,
			Skipped:          c.Outcome.Skipped,
			SkipReason:       c.Outcome.SkipReason,
		})
	}
	return rows
}
