package engine

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pq-sarfi/internal/domain"
)

func classifiedAt(id string, ts time.Time, meterID string) ClassifiedEvent {
	v := 40.0
	ev := domain.Event{
		EventID:    id,
		EventType:  domain.EventTypeVoltageDip,
		Timestamp:  ts,
		V1:         &v,
		DurationMS: 50,
		MeterID:    meterID,
	}
	return ClassifiedEvent{Event: ev, Outcome: Classify(ev, DefaultSARFIBrackets())}
}

func TestMonthKey_RoundTrip(t *testing.T) {
	k := MonthKey{Year: 2024, Month: time.May}
	assert.Equal(t, "2024-05", k.String())

	data, err := json.Marshal(k)
	require.NoError(t, err)
	assert.Equal(t, `"2024-05"`, string(data))

	var back MonthKey
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, k, back)

	var bad MonthKey
	assert.Error(t, bad.UnmarshalText([]byte("2024-13")))
}

func TestMonthRange_DenseMonths(t *testing.T) {
	rng := MonthRange{
		Start: MonthKey{Year: 2022, Month: time.November},
		End:   MonthKey{Year: 2023, Month: time.February},
	}
	months := rng.Months()
	require.Len(t, months, 4)
	assert.Equal(t, MonthKey{Year: 2022, Month: time.November}, months[0])
	assert.Equal(t, MonthKey{Year: 2023, Month: time.February}, months[3])
}

func TestAggregateByMonth_ZeroFilled(t *testing.T) {
	// events in Jan 2022 and Dec 2024 only; the 36-month window between them
	// must still be dense
	classified := []ClassifiedEvent{
		classifiedAt("EV-1", time.Date(2022, 1, 5, 0, 0, 0, 0, time.UTC), "MTR-001"),
		classifiedAt("EV-2", time.Date(2024, 12, 20, 0, 0, 0, 0, time.UTC), "MTR-001"),
	}
	rng := MonthRange{
		Start: MonthKey{Year: 2022, Month: time.January},
		End:   MonthKey{Year: 2024, Month: time.December},
	}

	series := AggregateByMonth(classified, EmptyWeightRegistry(), 70, rng)
	require.Len(t, series.Months, 36)
	require.Len(t, series.Values, 36)

	assert.Equal(t, 1.0, series.Values[0])
	assert.Equal(t, 1.0, series.Values[35])
	for i := 1; i < 35; i++ {
		assert.Zero(t, series.Values[i])
	}
	assert.Equal(t, 2.0, series.Total)
}

func TestAggregateByMonth_WeightsApplied(t *testing.T) {
	classified := []ClassifiedEvent{
		classifiedAt("EV-1", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), "MTR-001"),
		classifiedAt("EV-2", time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), "MTR-002"),
	}
	registry := NewWeightRegistry("p1", []*domain.ProfileWeight{
		{ProfileID: "p1", MeterID: "MTR-001", WeightFactor: 2.5},
	})
	rng := MonthRange{
		Start: MonthKey{Year: 2024, Month: time.May},
		End:   MonthKey{Year: 2024, Month: time.May},
	}

	series := AggregateByMonth(classified, registry, 70, rng)
	// MTR-002 has no weight row and defaults to 1.0
	assert.Equal(t, 3.5, series.Values[0])
	assert.Equal(t, 3.5, series.Total)
}

func TestAggregateByMonth_SkippedEventsExcluded(t *testing.T) {
	skipped := ClassifiedEvent{
		Event:   domain.Event{EventID: "EV-skip", Timestamp: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), MeterID: "MTR-001"},
		Outcome: ClassificationOutcome{EventID: "EV-skip", Skipped: true},
	}
	rng := MonthRange{
		Start: MonthKey{Year: 2024, Month: time.May},
		End:   MonthKey{Year: 2024, Month: time.May},
	}

	series := AggregateByMonth([]ClassifiedEvent{skipped}, EmptyWeightRegistry(), 70, rng)
	assert.Zero(t, series.Total)
}

func TestAggregateByDimension_Conservation(t *testing.T) {
	meters := testMeters()
	classified := []ClassifiedEvent{
		classifiedAt("EV-1", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), "MTR-001"),
		classifiedAt("EV-2", time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), "MTR-002"),
		classifiedAt("EV-3", time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), "MTR-unknown"),
	}
	registry := NewWeightRegistry("p1", []*domain.ProfileWeight{
		{ProfileID: "p1", MeterID: "MTR-001", WeightFactor: 1.7},
		{ProfileID: "p1", MeterID: "MTR-002", WeightFactor: 0.3},
	})
	rng := MonthRange{
		Start: MonthKey{Year: 2024, Month: time.May},
		End:   MonthKey{Year: 2024, Month: time.June},
	}

	matrix := AggregateByDimension(classified, registry, 70, rng, DimensionOC, meters)

	// unknown meter lands in "N/A", not dropped
	assert.Contains(t, matrix.Keys, UnresolvedKey)
	assert.Contains(t, matrix.Keys, "North")
	assert.Contains(t, matrix.Keys, "South")

	var cellSum float64
	for _, key := range matrix.Keys {
		for _, month := range matrix.Months {
			cellSum += matrix.Cell(key, month)
		}
	}
	assert.InDelta(t, matrix.GrandTotal, cellSum, 1e-9)

	var rowSum, colSum float64
	for _, v := range matrix.RowTotals {
		rowSum += v
	}
	for _, v := range matrix.ColTotals {
		colSum += v
	}
	assert.InDelta(t, matrix.GrandTotal, rowSum, 1e-9)
	assert.InDelta(t, matrix.GrandTotal, colSum, 1e-9)
	assert.InDelta(t, 3.0, matrix.GrandTotal, 1e-9)
}

func TestAggregateByDimension_KeysSorted(t *testing.T) {
	meters := testMeters()
	classified := []ClassifiedEvent{
		classifiedAt("EV-1", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), "MTR-002"),
		classifiedAt("EV-2", time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), "MTR-001"),
	}
	rng := MonthRange{
		Start: MonthKey{Year: 2024, Month: time.May},
		End:   MonthKey{Year: 2024, Month: time.May},
	}

	matrix := AggregateByDimension(classified, EmptyWeightRegistry(), 70, rng, DimensionOC, meters)
	assert.Equal(t, []string{"North", "South"}, matrix.Keys)
}

func TestDimensionByName(t *testing.T) {
	for _, name := range []string{"oc", "location", "circuit"} {
		fn, err := DimensionByName(name)
		require.NoError(t, err)
		require.NotNil(t, fn)
	}

	_, err := DimensionByName("substation")
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestRangeOf(t *testing.T) {
	classified := []ClassifiedEvent{
		classifiedAt("EV-1", time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC), "MTR-001"),
		classifiedAt("EV-2", time.Date(2022, 2, 1, 0, 0, 0, 0, time.UTC), "MTR-001"),
		classifiedAt("EV-3", time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC), "MTR-001"),
	}

	rng, ok := RangeOf(classified)
	require.True(t, ok)
	assert.Equal(t, MonthKey{Year: 2022, Month: time.February}, rng.Start)
	assert.Equal(t, MonthKey{Year: 2024, Month: time.November}, rng.End)

	_, ok = RangeOf(nil)
	assert.False(t, ok)
}

func TestWeightRegistry_Defaults(t *testing.T) {
	registry := NewWeightRegistry("p1", []*domain.ProfileWeight{
		{ProfileID: "p1", MeterID: "MTR-001", WeightFactor: 4.2},
	})

	assert.Equal(t, 4.2, registry.Weight("MTR-001"))
	assert.Equal(t, domain.DefaultWeightFactor, registry.Weight("MTR-404"))
	assert.Equal(t, 1, registry.Len())
	assert.Equal(t, "p1", registry.ProfileID())

	empty := EmptyWeightRegistry()
	assert.Equal(t, 1.0, empty.Weight("anything"))
}

func TestWeightRegistry_ZeroWeightIsExplicit(t *testing.T) {
	registry := NewWeightRegistry("p1", []*domain.ProfileWeight{
		{ProfileID: "p1", MeterID: "MTR-001", WeightFactor: 0},
	})
	// an explicit 0 row silences the meter, it does not fall back to 1.0
	assert.Zero(t, registry.Weight("MTR-001"))
}

func TestMonthRange_Contains(t *testing.T) {
	rng := MonthRange{
		Start: MonthKey{Year: 2024, Month: time.March},
		End:   MonthKey{Year: 2024, Month: time.June},
	}
	assert.True(t, rng.Contains(MonthKey{Year: 2024, Month: time.March}))
	assert.True(t, rng.Contains(MonthKey{Year: 2024, Month: time.June}))
	assert.False(t, rng.Contains(MonthKey{Year: 2024, Month: time.July}))
	assert.False(t, rng.Contains(MonthKey{Year: 2023, Month: time.December}))
}
