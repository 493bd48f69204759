package domain

// BenchmarkStandard a named PQ benchmarking standard (ITIC, SEMI F47,
// IEC 61000-4-34 style). Owns 0..N thresholds; deletion cascades.
type BenchmarkStandard struct {
	StandardID  string `db:"standard_id"`
	Name        string `db:"standard_name"` // unique display name
	Description string `db:"description"`
}

// Threshold one (voltage%, duration) point of a benchmarking curve.
// (standard_id, min_voltage, duration) is unique at stored precision
// (3 decimals). Ordering is driven by sort_order, not implied monotonicity:
// this is a data-entry curve, not a guaranteed monotonic function.
type Threshold struct {
	ThresholdID string  `db:"threshold_id"`
	StandardID  string  `db:"standard_id"`
	MinVoltage  float64 `db:"min_voltage"` // 0–100, percent of nominal
	Duration    float64 `db:"duration"`    // 0–1, seconds
	SortOrder   int     `db:"sort_order"`
}

// ToJSON converts for HTTP responses
func (s *BenchmarkStandard) ToJSON() map[string]any {
	return map[string]any{
		"standard_id": s.StandardID,
		"name":        s.Name,
		"description": s.Description,
	}
}

// ToJSON converts for HTTP responses
func (t *Threshold) ToJSON() map[string]any {
	return map[string]any{
		"threshold_id": t.ThresholdID,
		"standard_id":  t.StandardID,
		"min_voltage":  t.MinVoltage,
		"duration":     t.Duration,
		"sort_order":   t.SortOrder,
	}
}
