package domain

import "database/sql"

// DefaultWeightFactor applies when no ProfileWeight row exists for a
// (profile, meter) pair. Absence is not an error.
const DefaultWeightFactor = 1.0

// SARFIProfile one weighting profile (per year). At most one active profile
// per year is expected but not enforced as a hard constraint.
type SARFIProfile struct {
	ProfileID string `db:"profile_id"`
	Name      string `db:"profile_name"`
	Year      int    `db:"profile_year"`
	IsActive  bool   `db:"is_active"`
}

// ProfileWeight the customer/criticality weight of one meter within one
// profile. Unique on (profile_id, meter_id).
type ProfileWeight struct {
	ProfileID    string         `db:"profile_id"`
	MeterID      string         `db:"meter_id"`
	WeightFactor float64        `db:"weight_factor"`
	Notes        sql.NullString `db:"notes"`
}

// ToJSON converts for HTTP responses
func (p *SARFIProfile) ToJSON() map[string]any {
	return map[string]any{
		"profile_id": p.ProfileID,
		"name":       p.Name,
		"year":       p.Year,
		"is_active":  p.IsActive,
	}
}

// ToJSON converts for HTTP responses
func (w *ProfileWeight) ToJSON() map[string]any {
	m := map[string]any{
		"profile_id":    w.ProfileID,
		"meter_id":      w.MeterID,
		"weight_factor": w.WeightFactor,
	}
	if w.Notes.Valid {
		m["notes"] = w.Notes.String
	}
	return m
}
