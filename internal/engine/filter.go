package engine

import (
	"time"

	"pq-sarfi/internal/domain"

	"go.uber.org/zap"
)

// VoltageLevelAll disables voltage-level filtering
const VoltageLevelAll = "All"

// FilterConfig the recognized event-inclusion options. All predicates are
// ANDed. Zero value of the Include* flags means "drop"; use
// DefaultFilterConfig for the permissive defaults.
type FilterConfig struct {
	// Inclusive timestamp bounds. Permissive parsing: an unparseable date
	// string means the bound is not applied, never a hard error — a malformed
	// input must not silently discard all data.
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`

	// When false, retain only events with is_mother_event=true
	IncludeChildEvents bool `json:"includeChildEvents"`
	// When false, drop operator-marked false positives
	IncludeFalseEvents bool `json:"includeFalseEvents"`
	// When false, drop special events (e.g. typhoon)
	IncludeSpecialEvents bool `json:"includeSpecialEvents"`

	// Exact match on the meter's voltage level, or "All"
	VoltageLevel string `json:"voltageLevel"`

	// Calendar years the event's timestamp year must belong to; ignored when
	// empty
	SelectedYears []int `json:"selectedYears"`
}

// DefaultFilterConfig returns the permissive configuration (nothing dropped)
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		IncludeChildEvents:   true,
		IncludeFalseEvents:   true,
		IncludeSpecialEvents: true,
		VoltageLevel:         VoltageLevelAll,
	}
}

// MeterIndex a resolved-join lookup from meter_id to the meter record
type MeterIndex struct {
	byMeterID map[string]domain.PQMeter
}

// NewMeterIndex builds the lookup from the meter roster
func NewMeterIndex(meters []domain.PQMeter) *MeterIndex {
	idx := &MeterIndex{byMeterID: make(map[string]domain.PQMeter, len(meters))}
	for _, m := range meters {
		idx.byMeterID[m.MeterID] = m
	}
	return idx
}

// Lookup resolves one meter
func (i *MeterIndex) Lookup(meterID string) (domain.PQMeter, bool) {
	m, ok := i.byMeterID[meterID]
	return m, ok
}

// Len returns the roster size
func (i *MeterIndex) Len() int {
	return len(i.byMeterID)
}

// FilterPipeline applies the deterministic inclusion/exclusion policy to a
// raw event set. Output is an order-preserving subsequence of the input.
type FilterPipeline struct {
	cfg    FilterConfig
	meters *MeterIndex
	logger *zap.Logger

	startBound *time.Time
	endBound   *time.Time
	yearSet    map[int]bool
}

// NewFilterPipeline builds a pipeline for one configuration. meters may be
// nil when VoltageLevel is "All" (no join needed).
func NewFilterPipeline(cfg FilterConfig, meters *MeterIndex, logger *zap.Logger) *FilterPipeline {
	p := &FilterPipeline{cfg: cfg, meters: meters, logger: logger}

	if t, ok := ParseDateBound(cfg.StartDate, false); ok {
		p.startBound = &t
	} else if cfg.StartDate != "" && logger != nil {
		logger.Warn("Unparseable start date, bound not applied",
			zap.String("start_date", cfg.StartDate),
		)
	}
	if t, ok := ParseDateBound(cfg.EndDate, true); ok {
		p.endBound = &t
	} else if cfg.EndDate != "" && logger != nil {
		logger.Warn("Unparseable end date, bound not applied",
			zap.String("end_date", cfg.EndDate),
		)
	}

	if len(cfg.SelectedYears) > 0 {
		p.yearSet = make(map[int]bool, len(cfg.SelectedYears))
		for _, y := range cfg.SelectedYears {
			p.yearSet[y] = true
		}
	}

	return p
}

// Apply filters the event set. When a specific voltage level is requested and
// an event's meter is unknown, the join fails closed with NotFoundError
// rather than silently defaulting.
func (p *FilterPipeline) Apply(events []domain.Event) ([]domain.Event, error) {
	voltageFilter := p.cfg.VoltageLevel != "" && p.cfg.VoltageLevel != VoltageLevelAll

	var out []domain.Event
	for _, ev := range events {
		// not configurable: only voltage dips participate
		if ev.EventType != domain.EventTypeVoltageDip {
			continue
		}

		if p.startBound != nil && ev.Timestamp.Before(*p.startBound) {
			continue
		}
		if p.endBound != nil && ev.Timestamp.After(*p.endBound) {
			continue
		}
		if p.yearSet != nil && !p.yearSet[ev.Timestamp.Year()] {
			continue
		}

		if !p.cfg.IncludeChildEvents && !ev.IsMotherEvent {
			continue
		}
		if !p.cfg.IncludeFalseEvents && ev.FalseEvent {
			continue
		}
		if !p.cfg.IncludeSpecialEvents && ev.IsSpecialEvent {
			continue
		}

		if voltageFilter {
			if p.meters == nil {
				return nil, &domain.NotFoundError{Entity: "meter", ID: ev.MeterID}
			}
			meter, ok := p.meters.Lookup(ev.MeterID)
			if !ok {
				return nil, &domain.NotFoundError{Entity: "meter", ID: ev.MeterID}
			}
			if meter.VoltageLevel != p.cfg.VoltageLevel {
				continue
			}
		}

		out = append(out, ev)
	}

	return out, nil
}

// ParseDateBound parses a filter date permissively. Accepted layouts:
// RFC3339 timestamps and plain dates (2006-01-02, 2006/01/02). A plain date
// used as an end bound covers the whole day (inclusive upper bound).
func ParseDateBound(s string, endOfDay bool) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	for _, layout := range []string{"2006-01-02", "2006/01/02"} {
		if t, err := time.Parse(layout, s); err == nil {
			if endOfDay {
				t = t.Add(24*time.Hour - time.Nanosecond)
			}
			return t, true
		}
	}
	return time.Time{}, false
}
