package engine

import (
	"fmt"
	"sort"
	"time"

	"pq-sarfi/internal/domain"
)

// UnresolvedKey the bucket key for events whose dimension value cannot be
// resolved. Unresolved values are never dropped, so totals stay conserved.
const UnresolvedKey = "N/A"

// MonthKey one calendar month
type MonthKey struct {
	Year  int
	Month time.Month
}

// String formats as "2024-05"
func (k MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, int(k.Month))
}

// MarshalText lets MonthKey serve as a JSON value and map key
func (k MonthKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses the "2024-05" form
func (k *MonthKey) UnmarshalText(b []byte) error {
	var year, month int
	if _, err := fmt.Sscanf(string(b), "%d-%d", &year, &month); err != nil {
		return fmt.Errorf("invalid month key %q: %w", string(b), err)
	}
	if month < 1 || month > 12 {
		return fmt.Errorf("invalid month key %q: month out of range", string(b))
	}
	k.Year = year
	k.Month = time.Month(month)
	return nil
}

// Before reports chronological order
func (k MonthKey) Before(other MonthKey) bool {
	if k.Year != other.Year {
		return k.Year < other.Year
	}
	return k.Month < other.Month
}

// Next returns the following month
func (k MonthKey) Next() MonthKey {
	if k.Month == time.December {
		return MonthKey{Year: k.Year + 1, Month: time.January}
	}
	return MonthKey{Year: k.Year, Month: k.Month + 1}
}

// MonthOf truncates a timestamp to its month
func MonthOf(t time.Time) MonthKey {
	return MonthKey{Year: t.Year(), Month: t.Month()}
}

// MonthRange an inclusive month window
type MonthRange struct {
	Start MonthKey
	End   MonthKey
}

// Months expands the window to the dense, chronologically sorted month list
func (r MonthRange) Months() []MonthKey {
	if r.End.Before(r.Start) {
		return nil
	}
	var months []MonthKey
	for k := r.Start; ; k = k.Next() {
		months = append(months, k)
		if k == r.End {
			break
		}
	}
	return months
}

// Contains reports whether the window covers a month
func (r MonthRange) Contains(k MonthKey) bool {
	return !k.Before(r.Start) && !r.End.Before(k)
}

// RangeOf derives the tightest month window covering the classified events.
// ok=false when there are no dated events.
func RangeOf(classified []ClassifiedEvent) (MonthRange, bool) {
	var rng MonthRange
	found := false
	for _, c := range classified {
		k := MonthOf(c.Event.Timestamp)
		if !found {
			rng = MonthRange{Start: k, End: k}
			found = true
			continue
		}
		if k.Before(rng.Start) {
			rng.Start = k
		}
		if rng.End.Before(k) {
			rng.End = k
		}
	}
	return rng, found
}

// MonthlySeries a dense month series for one bucket. Months with zero
// qualifying events still appear with value 0 — no gaps.
type MonthlySeries struct {
	Bucket float64    `json:"bucket"`
	Months []MonthKey `json:"months"`
	Values []float64  `json:"values"`
	Total  float64    `json:"total"`
}

// AggregateByMonth computes, for each month of the window, the weighted sum
// of bucket contributions: sum(contribution(event) * weight(event.meter_id)).
// Skipped events never contribute.
func AggregateByMonth(classified []ClassifiedEvent, registry *WeightRegistry, bucket float64, rng MonthRange) MonthlySeries {
	months := rng.Months()
	index := make(map[MonthKey]int, len(months))
	for i, k := range months {
		index[k] = i
	}

	series := MonthlySeries{
		Bucket: bucket,
		Months: months,
		Values: make([]float64, len(months)),
	}

	for _, c := range classified {
		if c.Outcome.Skipped || !c.Outcome.Trips(bucket) {
			continue
		}
		k := MonthOf(c.Event.Timestamp)
		i, ok := index[k]
		if !ok {
			continue
		}
		v := Contribution(&c.Event, bucket) * registry.Weight(c.Event.MeterID)
		series.Values[i] += v
		series.Total += v
	}

	return series
}

// DimensionFn extracts the secondary grouping key of an event. meter is nil
// when the event's meter is not in the roster.
type DimensionFn func(ev *domain.Event, meter *domain.PQMeter) string

// DimensionOC groups by the meter's operating company
func DimensionOC(ev *domain.Event, meter *domain.PQMeter) string {
	if meter == nil || meter.OC == "" {
		return UnresolvedKey
	}
	return meter.OC
}

// DimensionLocation groups by the meter's location
func DimensionLocation(ev *domain.Event, meter *domain.PQMeter) string {
	if meter == nil || meter.Location == "" {
		return UnresolvedKey
	}
	return meter.Location
}

// DimensionCircuit groups by the event's circuit
func DimensionCircuit(ev *domain.Event, meter *domain.PQMeter) string {
	if ev.CircuitID == "" {
		return UnresolvedKey
	}
	return ev.CircuitID
}

// DimensionByName resolves a configured dimension selector
func DimensionByName(name string) (DimensionFn, error) {
	switch name {
	case "oc":
		return DimensionOC, nil
	case "location":
		return DimensionLocation, nil
	case "circuit":
		return DimensionCircuit, nil
	default:
		return nil, &domain.ValidationError{Field: "dimension", Message: fmt.Sprintf("unknown dimension %q", name)}
	}
}

// Matrix a (dimension_key, month) aggregation with row, column and grand
// totals. Keys are sorted lexicographically, months chronologically, so
// output is deterministic. Conservation invariant: the grand total equals
// the sum of all cells.
type Matrix struct {
	Bucket     float64                         `json:"bucket"`
	Keys       []string                        `json:"keys"`
	Months     []MonthKey                      `json:"months"`
	Cells      map[string]map[MonthKey]float64 `json:"cells"`
	RowTotals  map[string]float64              `json:"row_totals"`
	ColTotals  map[MonthKey]float64            `json:"col_totals"`
	GrandTotal float64                         `json:"grand_total"`
}

// Cell reads one cell (0 when absent)
func (m *Matrix) Cell(key string, month MonthKey) float64 {
	if row, ok := m.Cells[key]; ok {
		return row[month]
	}
	return 0
}

// AggregateByDimension groups weighted bucket contributions by
// dimensionFn(event) and month. Unresolved dimension values map to the "N/A"
// key rather than being dropped, so totals are always conserved.
func AggregateByDimension(classified []ClassifiedEvent, registry *WeightRegistry, bucket float64, rng MonthRange, dimension DimensionFn, meters *MeterIndex) Matrix {
	matrix := Matrix{
		Bucket:    bucket,
		Months:    rng.Months(),
		Cells:     make(map[string]map[MonthKey]float64),
		RowTotals: make(map[string]float64),
		ColTotals: make(map[MonthKey]float64),
	}

	for _, c := range classified {
		if c.Outcome.Skipped || !c.Outcome.Trips(bucket) {
			continue
		}
		k := MonthOf(c.Event.Timestamp)
		if !rng.Contains(k) {
			continue
		}

		var meter *domain.PQMeter
		if meters != nil {
			if m, ok := meters.Lookup(c.Event.MeterID); ok {
				meter = &m
			}
		}
		key := dimension(&c.Event, meter)
		if key == "" {
			key = UnresolvedKey
		}

		v := Contribution(&c.Event, bucket) * registry.Weight(c.Event.MeterID)

		if matrix.Cells[key] == nil {
			matrix.Cells[key] = make(map[MonthKey]float64)
		}
		matrix.Cells[key][k] += v
		matrix.RowTotals[key] += v
		matrix.ColTotals[k] += v
		matrix.GrandTotal += v
	}

	matrix.Keys = make([]string, 0, len(matrix.Cells))
	for key := range matrix.Cells {
		matrix.Keys = append(matrix.Keys, key)
	}
	sort.Strings(matrix.Keys)

	return matrix
}
