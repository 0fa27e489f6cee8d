// Package coordinator runs the refresh loop: it fetches each category of
// grid data on its own schedule, falls back to the previous value when an
// upstream misbehaves, and publishes immutable snapshots.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gridpulse/gridpulse/pkg/log"
	"github.com/gridpulse/gridpulse/pkg/metrics"
	"github.com/gridpulse/gridpulse/pkg/sources"
	"github.com/gridpulse/gridpulse/pkg/storage"
	"github.com/gridpulse/gridpulse/pkg/types"
	"github.com/levenlabs/go-lflag"
	"github.com/sony/gobreaker"
)

// SourceClient is the set of upstream fetches the coordinator drives. It is
// implemented by sources.Client.
type SourceClient interface {
	GetCurrentPrice(ctx context.Context, now time.Time) (float64, error)
	GetCurrentFrequency(ctx context.Context, now time.Time) (float64, error)
	GetGeneration(ctx context.Context, now time.Time) (*types.Generation, error)
	GetEmbeddedGeneration(ctx context.Context, now time.Time) (*sources.EmbeddedGeneration, error)
	GetWindPeaks(ctx context.Context, now time.Time) (*types.WindData, error)
	GetCarbonIntensity(ctx context.Context, now time.Time) (*types.CarbonIntensity, error)
	GetSystemWarnings(ctx context.Context) (*types.SystemWarnings, error)
	GetWindForecast(ctx context.Context, now time.Time, earliest bool) (*types.GenerationForecast, error)
	GetSolarForecast(ctx context.Context, now time.Time) (*types.GenerationForecast, error)
	GetDemandDayAhead(ctx context.Context, now time.Time) (*types.DemandDayAheadForecast, error)
	GetLongTermWindForecast(ctx context.Context, now time.Time) (*types.LongTermForecast, *types.LongTermForecast, error)
	GetEmbeddedForecast(ctx context.Context, now time.Time) (*sources.EmbeddedForecast, error)
	GetDemandForecast(ctx context.Context, now time.Time, dayAhead *types.DemandDayAheadForecast) (*types.DemandForecast, *types.DemandForecast, error)
	GetDFSRequirements(ctx context.Context) (*types.DFSRequirements, error)
	GetMarginForecast(ctx context.Context, now time.Time) (*types.MarginForecast, error)
}

// Coordinator owns the current snapshot and the per-category schedule.
type Coordinator struct {
	sources  SourceClient
	db       storage.Database
	schedule *Schedule
	interval time.Duration

	// one refresh pass at a time; pending holds the categories fetched
	// fresh this pass, marked on the schedule only once the snapshot
	// publishes so an aborted pass leaves them due
	passMu  sync.Mutex
	pending []types.Category

	mu       sync.RWMutex
	snapshot *types.Snapshot
	updated  time.Time
}

// Configured sets up flags for the coordinator and returns the instance.
func Configured(src SourceClient, db storage.Database) *Coordinator {
	c := New(src, db)
	interval := lflag.Duration("refresh-interval", 2*time.Minute, "how often to run a refresh pass")
	lflag.Do(func() {
		c.interval = *interval
	})
	return c
}

// New returns a coordinator with the default refresh interval. This is
// primarily used for testing.
func New(src SourceClient, db storage.Database) *Coordinator {
	return &Coordinator{
		sources:  src,
		db:       db,
		schedule: NewSchedule(),
		interval: 2 * time.Minute,
	}
}

// Validate ensures the configuration is valid.
func (c *Coordinator) Validate() error {
	if c.interval <= 0 {
		return fmt.Errorf("refresh-interval must be positive")
	}
	return nil
}

// Snapshot returns the latest published snapshot and when it was published.
// It returns nil before the first pass completes.
func (c *Coordinator) Snapshot() (*types.Snapshot, time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot, c.updated
}

// ScheduleStatus returns the last successful refresh time per category.
func (c *Coordinator) ScheduleStatus() map[types.Category]time.Time {
	return c.schedule.Status()
}

var errFetchPanic = errors.New("fetch panicked")

// fetchCategory runs fetch if the category is due and returns either the
// fresh value or, on a recoverable failure, the previous one. Only an
// invalid-auth error is returned to the caller; everything else degrades to
// the carry-over.
func fetchCategory[T any](ctx context.Context, c *Coordinator, cat types.Category, now time.Time, prev T, fetch func() (T, error)) (T, error) {
	if !c.schedule.IsDue(cat, now) {
		return prev, nil
	}

	metrics.FetchAttempt(string(cat))
	fresh, err := runSafely(fetch)
	if err == nil {
		c.pending = append(c.pending, cat)
		return fresh, nil
	}

	metrics.FetchFailure(string(cat))
	if !sources.IsRecoverable(err) {
		return prev, err
	}

	l := log.Ctx(ctx)
	if expectedFailure(err) {
		l.WarnContext(ctx, "category refresh failed, keeping previous value",
			slog.String("category", string(cat)),
			slog.Any("error", err),
		)
	} else {
		l.ErrorContext(ctx, "category refresh failed, keeping previous value",
			slog.String("category", string(cat)),
			slog.Any("error", err),
		)
	}
	metrics.Fallback(string(cat))
	return prev, nil
}

// expectedFailure reports whether the error is the kind upstreams produce
// routinely (bad data, bad status, timeouts, connection trouble, an open
// breaker). Anything else, panics included, is logged at error level.
func expectedFailure(err error) bool {
	var dataErr *sources.UnexpectedDataError
	var statusErr *sources.UnexpectedStatusCodeError
	var netErr net.Error
	switch {
	case errors.As(err, &dataErr),
		errors.As(err, &statusErr),
		errors.As(err, &netErr),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, gobreaker.ErrOpenState):
		return true
	}
	return false
}

func runSafely[T any](fetch func() (T, error)) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errFetchPanic, r)
		}
	}()
	return fetch()
}

// generationBundle is everything refreshed atomically with the fuel
// breakdown: the embedded estimates folded in, the wind peaks, and the
// demand and transfer totals derived from the combined figures.
type generationBundle struct {
	generation     *types.Generation
	windData       *types.WindData
	totalDemand    *int
	totalTransfers *int
}

// Refresh runs one pass: every due category is fetched, everything else is
// carried over, and the result is published as a new snapshot and persisted.
// It only returns an error when an upstream rejects our credentials, in
// which case no snapshot is published.
func (c *Coordinator) Refresh(ctx context.Context, now time.Time) error {
	c.passMu.Lock()
	defer c.passMu.Unlock()

	started := time.Now()
	c.pending = c.pending[:0]
	prev, _ := c.Snapshot()
	if prev == nil {
		prev = &types.Snapshot{}
	}
	next := &types.Snapshot{}
	var err error

	next.SellPrice, err = fetchCategory(ctx, c, types.CategorySellPrice, now, prev.SellPrice, func() (*float64, error) {
		price, err := c.sources.GetCurrentPrice(ctx, now)
		if err != nil {
			return nil, err
		}
		return &price, nil
	})
	if err != nil {
		return err
	}

	next.GridFrequency, err = fetchCategory(ctx, c, types.CategoryGridFrequency, now, prev.GridFrequency, func() (*float64, error) {
		freq, err := c.sources.GetCurrentFrequency(ctx, now)
		if err != nil {
			return nil, err
		}
		return &freq, nil
	})
	if err != nil {
		return err
	}

	next.CarbonIntensity, err = fetchCategory(ctx, c, types.CategoryCarbonIntensity, now, prev.CarbonIntensity, func() (*types.CarbonIntensity, error) {
		return c.sources.GetCarbonIntensity(ctx, now)
	})
	if err != nil {
		return err
	}

	next.SystemWarnings, err = fetchCategory(ctx, c, types.CategorySystemWarnings, now, prev.SystemWarnings, func() (*types.SystemWarnings, error) {
		return c.sources.GetSystemWarnings(ctx)
	})
	if err != nil {
		return err
	}

	// the breakdown, embedded estimates, wind peaks, and derived totals move
	// together so the snapshot never mixes two collection instants
	prevBundle := &generationBundle{
		generation:     prev.GridGeneration,
		windData:       prev.WindData,
		totalDemand:    prev.TotalDemandMWH,
		totalTransfers: prev.TotalTransfersMWH,
	}
	bundle, err := fetchCategory(ctx, c, types.CategoryGridGeneration, now, prevBundle, func() (*generationBundle, error) {
		gen, err := c.sources.GetGeneration(ctx, now)
		if err != nil {
			return nil, err
		}
		embedded, err := c.sources.GetEmbeddedGeneration(ctx, now)
		if err != nil {
			return nil, err
		}
		windData, err := c.sources.GetWindPeaks(ctx, now)
		if err != nil {
			return nil, err
		}
		combined := combineGeneration(gen, embedded)
		demand := totalDemand(combined)
		transfers := totalTransfers(combined)
		return &generationBundle{
			generation:     combined,
			windData:       windData,
			totalDemand:    &demand,
			totalTransfers: &transfers,
		}, nil
	})
	if err != nil {
		return err
	}
	next.GridGeneration = bundle.generation
	next.WindData = bundle.windData
	next.TotalDemandMWH = bundle.totalDemand
	next.TotalTransfersMWH = bundle.totalTransfers

	next.WindForecast, err = fetchCategory(ctx, c, types.CategoryWindForecast, now, prev.WindForecast, func() (*types.GenerationForecast, error) {
		return c.sources.GetWindForecast(ctx, now, false)
	})
	if err != nil {
		return err
	}

	next.WindForecastEarliest, err = fetchCategory(ctx, c, types.CategoryWindForecastEarly, now, prev.WindForecastEarliest, func() (*types.GenerationForecast, error) {
		return c.sources.GetWindForecast(ctx, now, true)
	})
	if err != nil {
		return err
	}

	type longTermWind struct {
		three, fourteen *types.LongTermForecast
	}
	ltw, err := fetchCategory(ctx, c, types.CategoryLongTermWind, now, &longTermWind{prev.NowToThreeWindForecast, prev.FourteenWindForecast}, func() (*longTermWind, error) {
		three, fourteen, err := c.sources.GetLongTermWindForecast(ctx, now)
		if err != nil {
			return nil, err
		}
		return &longTermWind{three, fourteen}, nil
	})
	if err != nil {
		return err
	}
	next.NowToThreeWindForecast = ltw.three
	next.FourteenWindForecast = ltw.fourteen

	next.SolarForecast, err = fetchCategory(ctx, c, types.CategorySolarForecast, now, prev.SolarForecast, func() (*types.GenerationForecast, error) {
		return c.sources.GetSolarForecast(ctx, now)
	})
	if err != nil {
		return err
	}

	prevEmbedded := &sources.EmbeddedForecast{
		ThreeDaySolar:    prev.ThreeEmbeddedSolar,
		FourteenDaySolar: prev.FourteenEmbeddedSolar,
		ThreeDayWind:     prev.ThreeEmbeddedWind,
		FourteenDayWind:  prev.FourteenEmbeddedWind,
	}
	embedded, err := fetchCategory(ctx, c, types.CategoryLongTermEmbedded, now, prevEmbedded, func() (*sources.EmbeddedForecast, error) {
		return c.sources.GetEmbeddedForecast(ctx, now)
	})
	if err != nil {
		return err
	}
	next.ThreeEmbeddedSolar = embedded.ThreeDaySolar
	next.FourteenEmbeddedSolar = embedded.FourteenDaySolar
	next.ThreeEmbeddedWind = embedded.ThreeDayWind
	next.FourteenEmbeddedWind = embedded.FourteenDayWind

	next.GridDemandDayAheadForecast, err = fetchCategory(ctx, c, types.CategoryDemandDayAhead, now, prev.GridDemandDayAheadForecast, func() (*types.DemandDayAheadForecast, error) {
		return c.sources.GetDemandDayAhead(ctx, now)
	})
	if err != nil {
		return err
	}

	// the NESO series starts a few hours out, so the day-ahead points from
	// this same pass fill the gap at the front
	type demandForecasts struct {
		three, fourteen *types.DemandForecast
	}
	dayAhead := next.GridDemandDayAheadForecast
	demand, err := fetchCategory(ctx, c, types.CategoryDemandForecast, now, &demandForecasts{prev.GridDemandThreeDayForecast, prev.GridDemandFourteenDayForecast}, func() (*demandForecasts, error) {
		three, fourteen, err := c.sources.GetDemandForecast(ctx, now, dayAhead)
		if err != nil {
			return nil, err
		}
		return &demandForecasts{three, fourteen}, nil
	})
	if err != nil {
		return err
	}
	next.GridDemandThreeDayForecast = demand.three
	next.GridDemandFourteenDayForecast = demand.fourteen

	next.DFSRequirements, err = fetchCategory(ctx, c, types.CategoryDFSRequirements, now, prev.DFSRequirements, func() (*types.DFSRequirements, error) {
		return c.sources.GetDFSRequirements(ctx)
	})
	if err != nil {
		return err
	}

	next.MarginForecast, err = fetchCategory(ctx, c, types.CategoryMarginForecast, now, prev.MarginForecast, func() (*types.MarginForecast, error) {
		return c.sources.GetMarginForecast(ctx, now)
	})
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.snapshot = next
	c.updated = now
	c.mu.Unlock()
	for _, cat := range c.pending {
		c.schedule.MarkUpdated(cat, now)
	}
	metrics.PassCompleted(started)

	if err := c.db.SaveSnapshot(ctx, next, now); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to persist snapshot",
			slog.Any("error", err),
		)
	}
	return nil
}

// Run restores the last persisted snapshot, then refreshes on the configured
// interval until the context is canceled.
func (c *Coordinator) Run(ctx context.Context) error {
	snap, updated, err := c.db.GetLatestSnapshot(ctx)
	switch {
	case err == nil:
		c.mu.Lock()
		c.snapshot = snap
		c.updated = updated
		c.mu.Unlock()
		log.Ctx(ctx).InfoContext(ctx, "restored persisted snapshot",
			slog.Time("updated", updated),
		)
	case errors.Is(err, storage.ErrNoSnapshot):
	default:
		log.Ctx(ctx).WarnContext(ctx, "failed to restore persisted snapshot",
			slog.Any("error", err),
		)
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		if err := c.Refresh(ctx, time.Now().UTC()); err != nil {
			// invalid credentials need operator attention; keep serving
			// whatever we already have
			log.Ctx(ctx).ErrorContext(ctx, "refresh pass aborted",
				slog.Any("error", err),
			)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
