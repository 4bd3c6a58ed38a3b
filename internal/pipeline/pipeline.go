package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/city-sensor-pipeline/internal/adapter/dataset"
	"github.com/couchcryptid/city-sensor-pipeline/internal/domain"
	"github.com/couchcryptid/city-sensor-pipeline/internal/observability"
)

const (
	// sampleRows is how many leading rows feed column inference.
	sampleRows = 20
	// selectQueue bounds pending city-selection events.
	selectQueue = 16
)

// ErrStale is returned by Load when a newer load started before this one
// could publish. The result was discarded.
var ErrStale = errors.New("batch superseded by a newer load")

// Fetcher returns the raw bytes of a dataset path.
type Fetcher interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// Config carries the static inputs of the pipeline.
type Config struct {
	Cities      map[string]domain.City
	DefaultCity string
	Registry    *domain.Registry // nil uses domain.DefaultRegistry
	Location    *time.Location   // nil uses UTC
	Jitter      domain.Jitter    // nil uses the process-wide random source
	Publisher   StatePublisher   // optional
}

// Pipeline orchestrates the fetch-parse-normalize-aggregate cycle and owns
// the published state.
type Pipeline struct {
	fetcher     Fetcher
	cities      map[string]domain.City
	defaultCity string
	registry    *domain.Registry
	location    *time.Location
	jitter      domain.Jitter
	publisher   StatePublisher
	logger      *slog.Logger
	metrics     *observability.Metrics

	generation atomic.Uint64
	mu         sync.Mutex // serializes state transitions
	state      atomic.Pointer[State]
	ready      atomic.Bool
	selects    chan string
}

// New creates a Pipeline with the given source and observability.
func New(f Fetcher, cfg Config, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	reg := cfg.Registry
	if reg == nil {
		reg = domain.DefaultRegistry()
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	p := &Pipeline{
		fetcher:     f,
		cities:      cfg.Cities,
		defaultCity: cfg.DefaultCity,
		registry:    reg,
		location:    loc,
		jitter:      cfg.Jitter,
		publisher:   cfg.Publisher,
		logger:      logger,
		metrics:     metrics,
		selects:     make(chan string, selectQueue),
	}
	p.state.Store(&State{})
	return p
}

// CheckReadiness returns nil once a snapshot has been published, or an error
// describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no snapshot has been published yet")
	}
	return nil
}

// State returns the current state. The returned value must not be modified.
func (p *Pipeline) State() State {
	return *p.state.Load()
}

// City returns the configured city for key.
func (p *Pipeline) City(key string) (domain.City, bool) {
	c, ok := p.cities[key]
	return c, ok
}

// Cities returns the configured cities keyed by city key.
func (p *Pipeline) Cities() map[string]domain.City {
	return p.cities
}

// Registry returns the base sensor registry.
func (p *Pipeline) Registry() *domain.Registry {
	return p.registry
}

// Location is the zone hours and minutes are derived in.
func (p *Pipeline) Location() *time.Location {
	return p.location
}

// Run loads the default city, then serves city-selection events until the
// context is cancelled. In-flight loads are awaited before returning.
//
// Generations are taken here, in the order events leave the queue, so the
// most recent selection always wins regardless of goroutine scheduling.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "default_city", p.defaultCity, "cities", len(p.cities))

	var wg sync.WaitGroup
	start := func(key string) {
		gen := p.generation.Add(1)
		wg.Go(func() {
			if _, err := p.load(ctx, gen, key); err != nil && !errors.Is(err, ErrStale) {
				p.logger.Error("load failed", "city", key, "error", err)
			}
		})
	}

	start(p.defaultCity)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			wg.Wait()
			return nil
		case key := <-p.selects:
			start(key)
		}
	}
}

// Select queues a city-selection event for Run. Unknown cities are rejected
// without touching the current state.
func (p *Pipeline) Select(cityKey string) error {
	if _, ok := p.cities[cityKey]; !ok {
		return fmt.Errorf("%w: %q", domain.ErrUnknownCity, cityKey)
	}
	select {
	case p.selects <- cityKey:
		return nil
	default:
		return errors.New("too many pending city selections")
	}
}

// Load runs one complete ingestion for cityKey and publishes the result.
// Every ingestion failure is converted into demo data, so the only error is
// ErrStale when a newer load overtook this one.
func (p *Pipeline) Load(ctx context.Context, cityKey string) (*Snapshot, error) {
	return p.load(ctx, p.generation.Add(1), cityKey)
}

func (p *Pipeline) load(ctx context.Context, gen uint64, cityKey string) (*Snapshot, error) {
	start := time.Now()
	p.setLoading(gen, cityKey)

	log := p.logger.With("city", cityKey, "generation", gen)
	log.Debug("load started")

	snap, err := p.ingest(ctx, gen, cityKey)
	if err != nil {
		log.Warn("ingestion failed, using demo data", "error", err)
		snap = p.demoSnapshot(gen, cityKey, err)
	}

	if !p.publish(snap) {
		p.metrics.StaleBatches.Inc()
		log.Info("stale batch discarded", "latest", p.generation.Load())
		return nil, ErrStale
	}

	p.metrics.IngestionDuration.Observe(time.Since(start).Seconds())
	log.Info("snapshot published",
		"records", len(snap.Records),
		"sensors", len(snap.Statistics.Canonical()),
		"demo", snap.UsingDemoData,
	)
	return snap, nil
}

func (p *Pipeline) ingest(ctx context.Context, gen uint64, cityKey string) (*Snapshot, error) {
	city, ok := p.cities[cityKey]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownCity, cityKey)
	}

	body, err := p.fetch(ctx, city)
	if err != nil {
		return nil, err
	}

	table, err := dataset.Parse(string(body))
	if err != nil {
		return nil, err
	}

	cols, err := domain.InferColumns(table.Headers, table.Sample(sampleRows), p.registry)
	if err != nil {
		return nil, err
	}

	reg := p.registry.Extend(cols)
	records, report := domain.NewNormalizer(reg, p.location, p.jitter).Normalize(table.Rows, cols, city)
	p.observeReport(report)
	p.logger.Debug("rows normalized",
		"city", cityKey,
		"generation", gen,
		"total", report.Total,
		"valid", report.Valid,
		"invalid", report.Invalid,
		"repaired", report.Repaired,
	)
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %d rows read, none usable", domain.ErrEmptyResult, report.Total)
	}

	stats, err := computeStatistics(records, reg)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		ID:         uuid.New(),
		Generation: gen,
		City:       city,
		Records:    records,
		Registry:   reg,
		Statistics: stats,
		Classifier: domain.NewClassifier(reg, stats),
		Columns:    &cols,
		Report:     report,
		CreatedAt:  domain.Now(),
	}, nil
}

// fetch tries the city's primary dataset, then its fallback.
func (p *Pipeline) fetch(ctx context.Context, city domain.City) ([]byte, error) {
	body, err := p.fetcher.Fetch(ctx, city.DatasetPath)
	if err == nil {
		return body, nil
	}
	if city.FallbackDatasetPath == "" || city.FallbackDatasetPath == city.DatasetPath {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrFetch, city.DatasetPath, err)
	}

	p.logger.Warn("primary dataset unavailable, trying fallback",
		"city", city.Key, "path", city.DatasetPath, "fallback", city.FallbackDatasetPath, "error", err)

	body, ferr := p.fetcher.Fetch(ctx, city.FallbackDatasetPath)
	if ferr != nil {
		return nil, fmt.Errorf("%w: primary %s: %w; fallback %s: %w",
			domain.ErrFetch, city.DatasetPath, err, city.FallbackDatasetPath, ferr)
	}
	return body, nil
}

func computeStatistics(records []domain.SensorRecord, reg *domain.Registry) (stats domain.Statistics, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", domain.ErrStatistics, r)
		}
	}()
	return domain.ComputeStatistics(records, reg), nil
}

// demoSnapshot builds the fallback result. An unknown city falls back to the
// default city's box.
func (p *Pipeline) demoSnapshot(gen uint64, cityKey string, cause error) *Snapshot {
	city, ok := p.cities[cityKey]
	if !ok {
		city = p.cities[p.defaultCity]
	}
	records := domain.GenerateDemo(city, p.jitter)
	stats := domain.ComputeStatistics(records, p.registry)
	return &Snapshot{
		ID:            uuid.New(),
		Generation:    gen,
		City:          city,
		Records:       records,
		Registry:      p.registry,
		Statistics:    stats,
		Classifier:    domain.NewClassifier(p.registry, stats),
		UsingDemoData: true,
		Error:         fmt.Sprintf("dataset could not be loaded, showing demo data: %v", cause),
		CreatedAt:     domain.Now(),
	}
}

func (p *Pipeline) setLoading(gen uint64, cityKey string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.generation.Load() {
		return
	}
	cur := p.state.Load()
	p.swap(&State{Snapshot: cur.Snapshot, Loading: true, LoadingCity: cityKey})
}

// publish installs snap if its generation is still the latest.
func (p *Pipeline) publish(snap *Snapshot) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if snap.Generation != p.generation.Load() {
		return false
	}
	p.swap(&State{Snapshot: snap})
	p.ready.Store(true)

	outcome := "real"
	demo := 0.0
	if snap.UsingDemoData {
		outcome, demo = "demo", 1
	}
	p.metrics.Ingestions.WithLabelValues(outcome).Inc()
	p.metrics.UsingDemoData.Set(demo)
	p.metrics.PublishedRecords.Set(float64(len(snap.Records)))
	return true
}

func (p *Pipeline) swap(s *State) {
	p.state.Store(s)
	if p.publisher != nil {
		p.publisher.PublishState(*s)
	}
}

func (p *Pipeline) observeReport(r domain.NormalizeReport) {
	p.metrics.Rows.WithLabelValues("valid").Add(float64(r.Valid))
	p.metrics.Rows.WithLabelValues("invalid").Add(float64(r.Invalid))
	p.metrics.CoordinateRepairs.WithLabelValues(string(domain.RepairSwapped)).Add(float64(r.Swapped))
	p.metrics.CoordinateRepairs.WithLabelValues(string(domain.RepairCentered)).Add(float64(r.Centered))
	p.metrics.CoordinateRepairs.WithLabelValues(string(domain.RepairJittered)).Add(float64(r.Jittered))
}
