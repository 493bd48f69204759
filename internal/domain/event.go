package domain

import "time"

// EventTypeVoltageDip only events of this type participate in SARFI
// computation. The predicate is not configurable.
const EventTypeVoltageDip = "voltage_dip"

// Event one summarized voltage-dip record from the upstream collection
// system. Read-only input: this engine never mutates events.
// V1/V2/V3 are per-phase remaining voltages in percent of nominal; a nil
// phase means the phase was not captured for this record.
type Event struct {
	EventID        string     `db:"event_id" json:"event_id"`
	EventType      string     `db:"event_type" json:"event_type"`
	Timestamp      time.Time  `db:"event_time" json:"timestamp"`
	V1             *float64   `db:"v1" json:"v1"`
	V2             *float64   `db:"v2" json:"v2"`
	V3             *float64   `db:"v3" json:"v3"`
	DurationMS     float64    `db:"duration_ms" json:"duration_ms"`
	MeterID        string     `db:"meter_id" json:"meter_id"`
	SubstationID   string     `db:"substation_id" json:"substation_id"`
	CircuitID      string     `db:"circuit_id" json:"circuit_id"`
	IsMotherEvent  bool       `db:"is_mother_event" json:"is_mother_event"`
	IsChildEvent   bool       `db:"is_child_event" json:"is_child_event"`
	FalseEvent     bool       `db:"false_event" json:"false_event"`
	IsSpecialEvent bool       `db:"is_special_event" json:"is_special_event"`
	Sarfi70        *float64   `db:"sarfi_70" json:"sarfi_70,omitempty"`
}

// RemainingVoltage the minimum of the present phase voltages. ok=false when
// all three phases are missing (the event cannot be classified).
func (e *Event) RemainingVoltage() (float64, bool) {
	var min float64
	found := false
	for _, v := range []*float64{e.V1, e.V2, e.V3} {
		if v == nil {
			continue
		}
		if !found || *v < min {
			min = *v
		}
		found = true
	}
	return min, found
}

// DurationSeconds converts the stored millisecond duration
func (e *Event) DurationSeconds() float64 {
	return e.DurationMS / 1000.0
}

// PQMeter one monitored point. Read-only input owned by the asset registry.
type PQMeter struct {
	ID           string `db:"id" json:"id"`
	MeterID      string `db:"meter_id" json:"meter_id"`
	OC           string `db:"oc" json:"oc"` // operating company
	Location     string `db:"location" json:"location"`
	SubstationID string `db:"substation_id" json:"substation_id"`
	VoltageLevel string `db:"voltage_level" json:"voltage_level"`
}
