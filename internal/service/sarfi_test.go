package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pq-sarfi/internal/domain"
	"pq-sarfi/internal/engine"
	"pq-sarfi/internal/repository"
)

// fakeKVStore in-memory KVStore with TTL semantics, standing in for Redis
type fakeKVStore struct {
	mu   sync.Mutex
	data map[string]fakeKVEntry
}

type fakeKVEntry struct {
	value   string
	expires time.Time
}

func newFakeKVStore() *fakeKVStore {
	return &fakeKVStore{data: map[string]fakeKVEntry{}}
}

func (f *fakeKVStore) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.data[key]
	if !ok || time.Now().After(entry.expires) {
		return "", ErrCacheMiss
	}
	return entry.value, nil
}

func (f *fakeKVStore) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = fakeKVEntry{value: value, expires: time.Now().Add(ttl)}
	return nil
}

func (f *fakeKVStore) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.data)
}

type sarfiFixture struct {
	svc       *SARFIService
	events    *repository.MemoryEventsRepo
	meters    *repository.MemoryMetersRepo
	standards *repository.MemoryStandardsRepo
	profiles  *repository.MemoryProfilesRepo
}

func newSARFIFixture(t *testing.T, kv KVStore) *sarfiFixture {
	t.Helper()
	f := &sarfiFixture{
		events:    repository.NewMemoryEventsRepo(),
		meters:    repository.NewMemoryMetersRepo(),
		standards: repository.NewMemoryStandardsRepo(),
		profiles:  repository.NewMemoryProfilesRepo(),
	}
	f.svc = NewSARFIService(f.standards, f.profiles, f.events, f.meters, kv, zap.NewNop())
	return f
}

func fp(v float64) *float64 { return &v }

func (f *sarfiFixture) seedDip(t *testing.T, eventID, meterID string, ts time.Time, remaining, durationMS float64) {
	t.Helper()
	err := f.events.InsertEvent(context.Background(), &domain.Event{
		EventID:       eventID,
		EventType:     domain.EventTypeVoltageDip,
		Timestamp:     ts,
		V1:            fp(remaining),
		DurationMS:    durationMS,
		MeterID:       meterID,
		IsMotherEvent: true,
	})
	require.NoError(t, err)
}

func (f *sarfiFixture) seedMeter(t *testing.T, meterID, oc, location, voltageLevel string) {
	t.Helper()
	err := f.meters.UpsertMeter(context.Background(), &domain.PQMeter{
		ID:           "id-" + meterID,
		MeterID:      meterID,
		OC:           oc,
		Location:     location,
		VoltageLevel: voltageLevel,
	})
	require.NoError(t, err)
}

func permissiveOptions() QueryOptions {
	return QueryOptions{Filter: engine.DefaultFilterConfig()}
}

func TestMonthlySeries_FixedBrackets(t *testing.T) {
	f := newSARFIFixture(t, nil)
	ctx := context.Background()

	// 40% remaining trips the 50/70/80/90 brackets; 85% trips only 90
	f.seedDip(t, "EVT-1", "MTR-001", time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC), 40, 200)
	f.seedDip(t, "EVT-2", "MTR-001", time.Date(2024, 3, 8, 10, 0, 0, 0, time.UTC), 85, 200)

	result, err := f.svc.MonthlySeries(ctx, permissiveOptions())
	require.NoError(t, err)
	assert.Equal(t, 70.0, result.Series.Bucket)
	assert.Equal(t, 1.0, result.Series.Total)

	opts := permissiveOptions()
	opts.Bucket = 90
	result, err = f.svc.MonthlySeries(ctx, opts)
	require.NoError(t, err)
	assert.Equal(t, 2.0, result.Series.Total)
}

func TestMonthlySeries_CurveFromStandard(t *testing.T) {
	f := newSARFIFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, f.standards.CreateStandard(ctx, &domain.BenchmarkStandard{
		StandardID: "std-1",
		Name:       "SEMI F47",
	}))
	require.NoError(t, f.standards.CreateThreshold(ctx, &domain.Threshold{
		ThresholdID: "thr-1",
		StandardID:  "std-1",
		MinVoltage:  70,
		Duration:    0.5,
		SortOrder:   1,
	}))

	f.seedDip(t, "EVT-1", "MTR-001", time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC), 60, 300)
	// longer than every threshold duration: outside the curve entirely
	f.seedDip(t, "EVT-2", "MTR-001", time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC), 60, 2000)

	opts := permissiveOptions()
	opts.StandardID = "std-1"
	result, err := f.svc.MonthlySeries(ctx, opts)
	require.NoError(t, err)
	assert.Equal(t, 1.0, result.Series.Total)

	opts.StandardID = "missing"
	_, err = f.svc.MonthlySeries(ctx, opts)
	var notFound *domain.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestMonthlySeries_WeightedByProfile(t *testing.T) {
	f := newSARFIFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, f.profiles.CreateProfile(ctx, &domain.SARFIProfile{
		ProfileID: "prof-1",
		Name:      "Key accounts",
		Year:      2024,
	}))
	require.NoError(t, f.profiles.UpsertWeight(ctx, &domain.ProfileWeight{
		ProfileID:    "prof-1",
		MeterID:      "MTR-001",
		WeightFactor: 3.0,
	}))

	f.seedDip(t, "EVT-1", "MTR-001", time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC), 40, 200)
	f.seedDip(t, "EVT-2", "MTR-002", time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC), 40, 200)

	opts := permissiveOptions()
	opts.ProfileID = "prof-1"
	result, err := f.svc.MonthlySeries(ctx, opts)
	require.NoError(t, err)
	// 3.0 weighted + 1.0 default
	assert.Equal(t, 4.0, result.Series.Total)

	// no profile: unweighted
	result, err = f.svc.MonthlySeries(ctx, permissiveOptions())
	require.NoError(t, err)
	assert.Equal(t, 2.0, result.Series.Total)
}

func TestMonthlySeries_ExplicitDateRangeIsDense(t *testing.T) {
	f := newSARFIFixture(t, nil)
	ctx := context.Background()

	f.seedDip(t, "EVT-1", "MTR-001", time.Date(2024, 2, 15, 10, 0, 0, 0, time.UTC), 40, 200)

	opts := permissiveOptions()
	opts.Filter.StartDate = "2024-01-01"
	opts.Filter.EndDate = "2024-03-31"
	result, err := f.svc.MonthlySeries(ctx, opts)
	require.NoError(t, err)
	require.Len(t, result.Series.Months, 3)
	assert.Equal(t, []float64{0, 1, 0}, result.Series.Values)
	require.Len(t, result.Points, 3)
	assert.Equal(t, 2, result.Points[1].Month)
}

func TestMonthlySeries_CountsSkipped(t *testing.T) {
	f := newSARFIFixture(t, nil)
	ctx := context.Background()

	f.seedDip(t, "EVT-1", "MTR-001", time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC), 40, 200)
	// all phases missing: unclassifiable, reported not silently dropped
	require.NoError(t, f.events.InsertEvent(ctx, &domain.Event{
		EventID:       "EVT-2",
		EventType:     domain.EventTypeVoltageDip,
		Timestamp:     time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC),
		DurationMS:    200,
		MeterID:       "MTR-001",
		IsMotherEvent: true,
	}))

	result, err := f.svc.MonthlySeries(ctx, permissiveOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1.0, result.Series.Total)
}

func TestMonthlySeries_CacheHitReturnsSnapshot(t *testing.T) {
	kv := newFakeKVStore()
	f := newSARFIFixture(t, kv)
	ctx := context.Background()

	f.seedDip(t, "EVT-1", "MTR-001", time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC), 40, 200)

	result, err := f.svc.MonthlySeries(ctx, permissiveOptions())
	require.NoError(t, err)
	assert.Equal(t, 1.0, result.Series.Total)
	assert.Equal(t, 1, kv.len())

	// within the TTL the snapshot wins over fresh data
	f.seedDip(t, "EVT-2", "MTR-001", time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC), 40, 200)
	result, err = f.svc.MonthlySeries(ctx, permissiveOptions())
	require.NoError(t, err)
	assert.Equal(t, 1.0, result.Series.Total)

	// a different query fingerprint misses and recomputes
	opts := permissiveOptions()
	opts.Bucket = 90
	result, err = f.svc.MonthlySeries(ctx, opts)
	require.NoError(t, err)
	assert.Equal(t, 2.0, result.Series.Total)
	assert.Equal(t, 2, kv.len())
}

func TestDimensionMatrix_Conservation(t *testing.T) {
	f := newSARFIFixture(t, nil)
	ctx := context.Background()

	f.seedMeter(t, "MTR-001", "North", "Alpha", "11kV")
	f.seedMeter(t, "MTR-002", "South", "Beta", "33kV")
	f.seedDip(t, "EVT-1", "MTR-001", time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC), 40, 200)
	f.seedDip(t, "EVT-2", "MTR-002", time.Date(2024, 4, 5, 10, 0, 0, 0, time.UTC), 40, 200)
	f.seedDip(t, "EVT-3", "MTR-404", time.Date(2024, 4, 6, 10, 0, 0, 0, time.UTC), 40, 200)

	result, err := f.svc.DimensionMatrix(ctx, permissiveOptions(), "oc")
	require.NoError(t, err)
	assert.Equal(t, "oc", result.Dimension)
	assert.Equal(t, 3.0, result.Report.GrandTotal)

	// the unresolved meter lands in its own key instead of vanishing
	keys := make([]string, 0, len(result.Report.Rows))
	rowSum := 0.0
	for _, row := range result.Report.Rows {
		keys = append(keys, row.Key)
		rowSum += row.Total
	}
	assert.Contains(t, keys, "N/A")
	assert.InDelta(t, result.Report.GrandTotal, rowSum, 1e-9)

	colSum := 0.0
	for _, v := range result.Report.ColumnTotals {
		colSum += v
	}
	assert.InDelta(t, result.Report.GrandTotal, colSum, 1e-9)

	_, err = f.svc.DimensionMatrix(ctx, permissiveOptions(), "substation")
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestDimensionMatrices_FanOut(t *testing.T) {
	f := newSARFIFixture(t, nil)
	ctx := context.Background()

	f.seedMeter(t, "MTR-001", "North", "Alpha", "11kV")
	f.seedMeter(t, "MTR-002", "South", "Beta", "33kV")
	f.seedDip(t, "EVT-1", "MTR-001", time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC), 40, 200)
	f.seedDip(t, "EVT-2", "MTR-002", time.Date(2024, 4, 5, 10, 0, 0, 0, time.UTC), 40, 200)

	results, err := f.svc.DimensionMatrices(ctx, permissiveOptions(), []string{"oc", "location", "circuit"})
	require.NoError(t, err)
	require.Len(t, results, 3)

	// every view slices the same events, so totals must line up
	for name, r := range results {
		assert.Equal(t, name, r.Dimension)
		assert.Equal(t, 2.0, r.Report.GrandTotal, name)
	}

	_, err = f.svc.DimensionMatrices(ctx, permissiveOptions(), []string{"oc", "bogus"})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestYearOverYear(t *testing.T) {
	f := newSARFIFixture(t, nil)
	ctx := context.Background()

	f.seedDip(t, "EVT-1", "MTR-001", time.Date(2023, 3, 5, 10, 0, 0, 0, time.UTC), 40, 200)
	f.seedDip(t, "EVT-2", "MTR-001", time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC), 40, 200)
	f.seedDip(t, "EVT-3", "MTR-001", time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC), 40, 200)

	cmp, err := f.svc.YearOverYear(ctx, permissiveOptions(), []int{2024, 2023})
	require.NoError(t, err)
	assert.Equal(t, []int{2023, 2024}, cmp.Years)
	assert.Equal(t, 1.0, cmp.Values[2023][2]) // March
	assert.Equal(t, 2.0, cmp.Values[2024][2])
	assert.Equal(t, 0.0, cmp.Values[2024][5])

	_, err = f.svc.YearOverYear(ctx, permissiveOptions(), []int{2020, 2021, 2022, 2023, 2024, 2025})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestDrillDown(t *testing.T) {
	f := newSARFIFixture(t, nil)
	ctx := context.Background()

	f.seedMeter(t, "MTR-001", "North", "Alpha", "11kV")
	f.seedDip(t, "EVT-1", "MTR-001", time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC), 40, 200)
	f.seedDip(t, "EVT-2", "MTR-001", time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC), 40, 200)
	require.NoError(t, f.events.InsertEvent(ctx, &domain.Event{
		EventID:       "EVT-3",
		EventType:     domain.EventTypeVoltageDip,
		Timestamp:     time.Date(2024, 3, 7, 10, 0, 0, 0, time.UTC),
		DurationMS:    200,
		MeterID:       "MTR-001",
		IsMotherEvent: true,
	}))

	result, err := f.svc.DrillDown(ctx, permissiveOptions())
	require.NoError(t, err)
	require.Len(t, result.Rows, 3)
	assert.Equal(t, 1, result.Skipped)

	skipped := 0
	for _, row := range result.Rows {
		if row.Skipped {
			skipped++
			assert.NotEmpty(t, row.SkipReason)
		}
	}
	assert.Equal(t, 1, skipped)

	require.Len(t, result.Meters, 1)
	assert.Equal(t, "MTR-001", result.Meters[0].MeterID)
	assert.Equal(t, "North", result.Meters[0].OC)
	assert.Equal(t, 2, result.Meters[0].EventCount)
	assert.Equal(t, 2.0, result.Meters[0].Weighted)
}

func TestVoltageLevelFilter_FailsClosedOnUnknownMeter(t *testing.T) {
	f := newSARFIFixture(t, nil)
	ctx := context.Background()

	f.seedMeter(t, "MTR-001", "North", "Alpha", "11kV")
	f.seedDip(t, "EVT-1", "MTR-001", time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC), 40, 200)
	f.seedDip(t, "EVT-2", "MTR-404", time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC), 40, 200)

	opts := permissiveOptions()
	opts.Filter.VoltageLevel = "11kV"
	_, err := f.svc.MonthlySeries(ctx, opts)
	var notFound *domain.NotFoundError
	require.ErrorAs(t, err, &notFound)
}
