package engine

import (
	"iter"
	"math"
	"sort"

	"pq-sarfi/internal/domain"
)

// SortField selects the threshold listing sort key
type SortField string

// SortOrder selects ascending or descending listing
type SortOrder string

const (
	SortByMinVoltage SortField = "min_voltage"
	SortByDuration   SortField = "duration"

	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// CurvePoint one threshold point of a benchmarking curve
type CurvePoint struct {
	MinVoltage float64
	Duration   float64
	SortOrder  int
}

// Curve an immutable snapshot of one standard's threshold points, built per
// query. An empty curve classifies every event into no bucket.
type Curve struct {
	Name   string
	points []CurvePoint
}

// NewCurve builds a curve from stored thresholds
func NewCurve(name string, thresholds []*domain.Threshold) *Curve {
	points := make([]CurvePoint, 0, len(thresholds))
	for _, t := range thresholds {
		points = append(points, CurvePoint{
			MinVoltage: t.MinVoltage,
			Duration:   t.Duration,
			SortOrder:  t.SortOrder,
		})
	}
	return &Curve{Name: name, points: points}
}

// DefaultSARFIBrackets the deployed fixed-bracket behavior: standard-
// independent percentage brackets at 10/30/50/70/80/90 that trip on remaining
// voltage alone. Expressed as a degenerate curve whose points carry an
// unbounded duration, so the duration selection rule always passes.
func DefaultSARFIBrackets() *Curve {
	brackets := []float64{10, 30, 50, 70, 80, 90}
	points := make([]CurvePoint, 0, len(brackets))
	for i, b := range brackets {
		points = append(points, CurvePoint{
			MinVoltage: b,
			Duration:   math.Inf(1),
			SortOrder:  i + 1,
		})
	}
	return &Curve{Name: "SARFI", points: points}
}

// Empty reports whether the curve has no points
func (c *Curve) Empty() bool {
	return len(c.points) == 0
}

// Len returns the number of points
func (c *Curve) Len() int {
	return len(c.points)
}

// Points yields the curve's points sorted by the requested field, ties broken
// by sort_order ascending. The sequence is finite and restartable: each range
// starts from the first point again.
func (c *Curve) Points(sortBy SortField, order SortOrder) iter.Seq[CurvePoint] {
	sorted := make([]CurvePoint, len(c.points))
	copy(sorted, c.points)

	less := func(a, b CurvePoint) bool {
		var av, bv float64
		if sortBy == SortByDuration {
			av, bv = a.Duration, b.Duration
		} else {
			av, bv = a.MinVoltage, b.MinVoltage
		}
		if av != bv {
			if order == OrderDesc {
				return av > bv
			}
			return av < bv
		}
		return a.SortOrder < b.SortOrder
	}
	sort.SliceStable(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })

	return func(yield func(CurvePoint) bool) {
		for _, p := range sorted {
			if !yield(p) {
				return
			}
		}
	}
}
