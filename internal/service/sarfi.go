package service

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"pq-sarfi/internal/domain"
	"pq-sarfi/internal/engine"
	"pq-sarfi/internal/repository"

	"go.uber.org/zap"
)

// DefaultBucket the index computed when the caller does not pick one
// (SARFI-70, the deployed default)
const DefaultBucket = 70.0

// snapshotTTL how long a computed aggregation stays cached
const snapshotTTL = 60 * time.Second

// QueryOptions one SARFI computation request
type QueryOptions struct {
	// StandardID selects the benchmarking curve; empty selects the fixed
	// 10/30/50/70/80/90 brackets
	StandardID string `json:"standard_id"`
	// ProfileID selects the weighting profile; empty computes the unweighted
	// index
	ProfileID string `json:"profile_id"`
	// Bucket the severity bucket (threshold min_voltage value); 0 means the
	// default bucket
	Bucket float64 `json:"bucket"`
	// Filter the event-inclusion policy
	Filter engine.FilterConfig `json:"filter"`
}

// MonthlyResult a dense monthly series plus its audit counters
type MonthlyResult struct {
	Series  engine.MonthlySeries  `json:"series"`
	Points  []engine.MonthlyPoint `json:"points"`
	Skipped int                   `json:"skipped"`
}

// MatrixResult a dimension-by-month table plus its audit counters
type MatrixResult struct {
	Dimension string              `json:"dimension"`
	Report    engine.MatrixReport `json:"report"`
	Skipped   int                 `json:"skipped"`
}

// DrillDownResult per-event outcomes for drill-down tables
type DrillDownResult struct {
	Rows    []engine.DrillDownRow  `json:"rows"`
	Meters  []engine.MeterTableRow `json:"meters"`
	Skipped int                    `json:"skipped"`
}

// SARFIService runs the batch computation: filter → classify → aggregate →
// assemble. Stateless: every query builds immutable snapshots of its inputs,
// so concurrent queries need no locking.
type SARFIService struct {
	standards repository.StandardsRepository
	profiles  repository.ProfilesRepository
	events    repository.EventsRepository
	meters    repository.MetersRepository
	kv        KVStore // optional aggregation snapshot cache
	logger    *zap.Logger
}

// NewSARFIService creates the service. kv may be nil to disable caching.
func NewSARFIService(
	standards repository.StandardsRepository,
	profiles repository.ProfilesRepository,
	events repository.EventsRepository,
	meters repository.MetersRepository,
	kv KVStore,
	logger *zap.Logger,
) *SARFIService {
	return &SARFIService{
		standards: standards,
		profiles:  profiles,
		events:    events,
		meters:    meters,
		kv:        kv,
		logger:    logger,
	}
}

// queryInputs the immutable per-query snapshot
type queryInputs struct {
	classified []engine.ClassifiedEvent
	registry   *engine.WeightRegistry
	meterIndex *engine.MeterIndex
	rng        engine.MonthRange
	bucket     float64
	skipped    int
}

func (s *SARFIService) bucketOf(opts QueryOptions) float64 {
	if opts.Bucket != 0 {
		return opts.Bucket
	}
	return DefaultBucket
}

// loadInputs loads events, meters, weights and the curve, then runs the
// filter and classifier. Boundary I/O errors propagate as StorageError.
func (s *SARFIService) loadInputs(ctx context.Context, opts QueryOptions) (*queryInputs, error) {
	curve, err := s.loadCurve(ctx, opts.StandardID)
	if err != nil {
		return nil, err
	}

	registry, err := s.loadRegistry(ctx, opts.ProfileID)
	if err != nil {
		return nil, err
	}

	meterList, err := s.meters.ListMeters(ctx)
	if err != nil {
		return nil, err
	}
	meterIndex := engine.NewMeterIndex(meterList)

	filters := repository.EventFilters{EventType: domain.EventTypeVoltageDip}
	if t, ok := engine.ParseDateBound(opts.Filter.StartDate, false); ok {
		filters.StartTime = &t
	}
	if t, ok := engine.ParseDateBound(opts.Filter.EndDate, true); ok {
		filters.EndTime = &t
	}

	events, err := s.events.ListEvents(ctx, filters)
	if err != nil {
		return nil, err
	}

	pipeline := engine.NewFilterPipeline(opts.Filter, meterIndex, s.logger)
	filtered, err := pipeline.Apply(events)
	if err != nil {
		return nil, err
	}

	classified := engine.ClassifyAll(filtered, curve)

	in := &queryInputs{
		classified: classified,
		registry:   registry,
		meterIndex: meterIndex,
		bucket:     s.bucketOf(opts),
		skipped:    engine.CountSkipped(classified),
	}
	in.rng = s.monthRange(opts, classified)

	s.logger.Debug("Loaded SARFI query inputs",
		zap.Int("raw_events", len(events)),
		zap.Int("filtered_events", len(filtered)),
		zap.Int("skipped_events", in.skipped),
		zap.Float64("bucket", in.bucket),
	)

	return in, nil
}

func (s *SARFIService) loadCurve(ctx context.Context, standardID string) (*engine.Curve, error) {
	if standardID == "" {
		return engine.DefaultSARFIBrackets(), nil
	}

	standard, err := s.standards.GetStandard(ctx, standardID)
	if err != nil {
		return nil, err
	}
	thresholds, err := s.standards.ListThresholds(ctx, standardID, repository.ThresholdSort{})
	if err != nil {
		return nil, err
	}

	return engine.NewCurve(standard.Name, thresholds), nil
}

func (s *SARFIService) loadRegistry(ctx context.Context, profileID string) (*engine.WeightRegistry, error) {
	if profileID == "" {
		return engine.EmptyWeightRegistry(), nil
	}
	if _, err := s.profiles.GetProfile(ctx, profileID); err != nil {
		return nil, err
	}
	rows, err := s.profiles.GetWeights(ctx, profileID)
	if err != nil {
		return nil, err
	}
	return engine.NewWeightRegistry(profileID, rows), nil
}

// monthRange derives the dense output window: explicit date bounds win, then
// selected years (January of the first through December of the last), then
// the tightest window covering the classified events.
func (s *SARFIService) monthRange(opts QueryOptions, classified []engine.ClassifiedEvent) engine.MonthRange {
	start, startOK := engine.ParseDateBound(opts.Filter.StartDate, false)
	end, endOK := engine.ParseDateBound(opts.Filter.EndDate, true)
	if startOK && endOK {
		return engine.MonthRange{Start: engine.MonthOf(start), End: engine.MonthOf(end)}
	}

	if len(opts.Filter.SelectedYears) > 0 {
		minYear, maxYear := opts.Filter.SelectedYears[0], opts.Filter.SelectedYears[0]
		for _, y := range opts.Filter.SelectedYears {
			if y < minYear {
				minYear = y
			}
			if y > maxYear {
				maxYear = y
			}
		}
		return engine.MonthRange{
			Start: engine.MonthKey{Year: minYear, Month: time.January},
			End:   engine.MonthKey{Year: maxYear, Month: time.December},
		}
	}

	if rng, ok := engine.RangeOf(classified); ok {
		return rng
	}
	return engine.MonthRange{}
}

// MonthlySeries computes the dense weighted month series for one bucket
func (s *SARFIService) MonthlySeries(ctx context.Context, opts QueryOptions) (*MonthlyResult, error) {
	var cached MonthlyResult
	key := s.cacheKey("monthly", opts, "")
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	in, err := s.loadInputs(ctx, opts)
	if err != nil {
		return nil, err
	}

	series := engine.AggregateByMonth(in.classified, in.registry, in.bucket, in.rng)
	result := &MonthlyResult{
		Series:  series,
		Points:  engine.MonthlyReport(series),
		Skipped: in.skipped,
	}

	s.cacheSet(ctx, key, result)
	return result, nil
}

// DimensionMatrix computes the (dimension, month) matrix for one bucket
func (s *SARFIService) DimensionMatrix(ctx context.Context, opts QueryOptions, dimension string) (*MatrixResult, error) {
	dimensionFn, err := engine.DimensionByName(dimension)
	if err != nil {
		return nil, err
	}

	var cached MatrixResult
	key := s.cacheKey("matrix", opts, dimension)
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	in, err := s.loadInputs(ctx, opts)
	if err != nil {
		return nil, err
	}

	matrix := engine.AggregateByDimension(in.classified, in.registry, in.bucket, in.rng, dimensionFn, in.meterIndex)
	result := &MatrixResult{
		Dimension: dimension,
		Report:    engine.MatrixReportFrom(matrix),
		Skipped:   in.skipped,
	}

	s.cacheSet(ctx, key, result)
	return result, nil
}

// DimensionMatrices fans the same event snapshot out across several
// dimensions concurrently. Inputs are immutable, so no locking is needed.
func (s *SARFIService) DimensionMatrices(ctx context.Context, opts QueryOptions, dimensions []string) (map[string]*MatrixResult, error) {
	dimensionFns := make(map[string]engine.DimensionFn, len(dimensions))
	for _, d := range dimensions {
		fn, err := engine.DimensionByName(d)
		if err != nil {
			return nil, err
		}
		dimensionFns[d] = fn
	}

	in, err := s.loadInputs(ctx, opts)
	if err != nil {
		return nil, err
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]*MatrixResult, len(dimensions))
	)
	for name, fn := range dimensionFns {
		wg.Add(1)
		go func(name string, fn engine.DimensionFn) {
			defer wg.Done()
			matrix := engine.AggregateByDimension(in.classified, in.registry, in.bucket, in.rng, fn, in.meterIndex)
			result := &MatrixResult{
				Dimension: name,
				Report:    engine.MatrixReportFrom(matrix),
				Skipped:   in.skipped,
			}
			mu.Lock()
			results[name] = result
			mu.Unlock()
		}(name, fn)
	}
	wg.Wait()

	return results, nil
}

// YearOverYear computes the same-month comparison across up to five years
func (s *SARFIService) YearOverYear(ctx context.Context, opts QueryOptions, years []int) (*engine.YearComparison, error) {
	if len(years) > 0 {
		opts.Filter.SelectedYears = years
	}

	monthly, err := s.MonthlySeries(ctx, opts)
	if err != nil {
		return nil, err
	}

	cmp, err := engine.YearOverYear(monthly.Series, years)
	if err != nil {
		return nil, err
	}
	return &cmp, nil
}

// DrillDown lists per-event outcomes and the per-meter table for one query
func (s *SARFIService) DrillDown(ctx context.Context, opts QueryOptions) (*DrillDownResult, error) {
	in, err := s.loadInputs(ctx, opts)
	if err != nil {
		return nil, err
	}

	return &DrillDownResult{
		Rows:    engine.DrillDown(in.classified),
		Meters:  engine.MeterTable(in.classified, in.registry, in.bucket, in.meterIndex),
		Skipped: in.skipped,
	}, nil
}

// cacheKey fingerprints a query. Key shape: pq-sarfi:<kind>:<hash>
func (s *SARFIService) cacheKey(kind string, opts QueryOptions, dimension string) string {
	payload, _ := json.Marshal(struct {
		Opts      QueryOptions `json:"opts"`
		Dimension string       `json:"dimension"`
	}{opts, dimension})
	sum := sha256.Sum256(payload)
	return fmt.Sprintf("pq-sarfi:%s:%x", kind, sum[:12])
}

func (s *SARFIService) cacheGet(ctx context.Context, key string, out any) bool {
	if s.kv == nil {
		return false
	}
	val, err := s.kv.Get(ctx, key)
	if err != nil {
		if err != ErrCacheMiss {
			s.logger.Debug("Snapshot cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		s.logger.Debug("Snapshot cache entry unreadable", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (s *SARFIService) cacheSet(ctx context.Context, key string, v any) {
	if s.kv == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.kv.Set(ctx, key, string(payload), snapshotTTL); err != nil {
		s.logger.Debug("Snapshot cache write failed", zap.String("key", key), zap.Error(err))
	}
}
