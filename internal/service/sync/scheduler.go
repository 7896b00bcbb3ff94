package sync

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/evroam/oicp-bridge/internal/domain"
	"github.com/evroam/oicp-bridge/internal/observability/telemetry"
	"github.com/evroam/oicp-bridge/internal/ports"
	"github.com/evroam/oicp-bridge/internal/service/events"
)

// nowFunc is swapped in tests.
var nowFunc = time.Now

type Kind string

const (
	KindData   Kind = "data"
	KindStatus Kind = "status"
)

// Options configure the two pull cycles.
type Options struct {
	DataInterval      time.Duration
	StatusInterval    time.Duration
	InitialDelay      time.Duration
	DisablePullData   bool
	DisablePullStatus bool
	SearchCenter      *domain.GeoCoordinate
	RadiusKM          float64
}

func (o *Options) applyDefaults() {
	if o.DataInterval <= 0 {
		o.DataInterval = 15 * time.Minute
	}
	if o.StatusInterval <= 0 {
		o.StatusInterval = time.Minute
	}
}

// Scheduler drives the periodic data and status pulls. Each kind owns a
// non-reentrant running flag acquired with compare-and-swap: a tick that
// finds the flag held is dropped, never queued. The status cycle depends on
// the graph populated by the data cycle, so it takes the data flag first and
// aborts the whole tick when either flag is held. Flags are released on
// every exit path; a panicking cycle is recovered, its innermost cause
// logged and reported on the event bus, and the ticker keeps running.
type Scheduler struct {
	client ports.RoamingClient
	rec    *Reconciler
	bus    *events.Bus
	opts   Options
	log    *zap.Logger

	dataRunning   atomic.Bool
	statusRunning atomic.Bool

	mu            sync.Mutex
	lastDataRun   time.Time
	lastStatusRun time.Time

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewScheduler(client ports.RoamingClient, rec *Reconciler, bus *events.Bus, opts Options, log *zap.Logger) *Scheduler {
	opts.applyDefaults()
	return &Scheduler{
		client: client,
		rec:    rec,
		bus:    bus,
		opts:   opts,
		log:    log,
		stop:   make(chan struct{}),
	}
}

// Start launches the two timer loops. It returns immediately.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(2)
	go s.loop(ctx, KindData, s.opts.DataInterval, s.runDataCycle)
	go s.loop(ctx, KindStatus, s.opts.StatusInterval, s.runStatusCycle)
	s.log.Info("Synchronization scheduler started",
		zap.Duration("data_interval", s.opts.DataInterval),
		zap.Duration("status_interval", s.opts.StatusInterval),
	)
}

func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, kind Kind, interval time.Duration, cycle func(context.Context)) {
	defer s.wg.Done()

	if s.opts.InitialDelay > 0 {
		select {
		case <-time.After(s.opts.InitialDelay):
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	cycle(ctx)
	for {
		select {
		case <-ticker.C:
			cycle(ctx)
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// LastRun reports the timestamp recorded for the previous successful pull of
// the given kind; it is used as the incremental "since" bound.
func (s *Scheduler) LastRun(kind Kind) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if kind == KindData {
		return s.lastDataRun
	}
	return s.lastStatusRun
}

func (s *Scheduler) setLastRun(kind Kind, ts time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if kind == KindData {
		s.lastDataRun = ts
	} else {
		s.lastStatusRun = ts
	}
}

// runDataCycle executes one data pull tick synchronously on the calling
// goroutine.
func (s *Scheduler) runDataCycle(ctx context.Context) {
	if s.opts.DisablePullData {
		return
	}
	if !s.dataRunning.CompareAndSwap(false, true) {
		telemetry.SyncSkippedTicks.WithLabelValues(string(KindData)).Inc()
		s.log.Debug("Data pull already running, skipping tick")
		return
	}
	defer s.dataRunning.Store(false)

	s.guarded(KindData, func() {
		// Captured before the request so records changed mid-pull are not
		// missed by the next incremental pull.
		startedAt := nowFunc()

		var since *time.Time
		if last := s.LastRun(KindData); !last.IsZero() {
			since = &last
		}

		res, err := s.client.PullEVSEData(ctx, ports.PullDataRequest{
			SearchCenter: s.opts.SearchCenter,
			RadiusKM:     s.opts.RadiusKM,
			Since:        since,
		})
		if err != nil {
			telemetry.SyncCyclesTotal.WithLabelValues(string(KindData), "error").Inc()
			s.log.Error("EVSE data pull failed", zap.Error(err))
			return
		}
		if !res.Successful() {
			telemetry.SyncCyclesTotal.WithLabelValues(string(KindData), "error").Inc()
			s.log.Error("EVSE data pull rejected",
				zap.Int("status", res.StatusCode),
				zap.String("description", res.Description),
			)
			return
		}

		s.rec.ReconcileData(ctx, res.Records)
		s.setLastRun(KindData, startedAt)
		telemetry.SyncCyclesTotal.WithLabelValues(string(KindData), "ok").Inc()
	})
}

// runStatusCycle executes one status pull tick. It needs the identity state
// produced by the data cycle, so it holds both flags for its duration.
func (s *Scheduler) runStatusCycle(ctx context.Context) {
	if s.opts.DisablePullStatus {
		return
	}
	if !s.dataRunning.CompareAndSwap(false, true) {
		telemetry.SyncSkippedTicks.WithLabelValues(string(KindStatus)).Inc()
		s.log.Debug("Data pull in progress, skipping status tick")
		return
	}
	defer s.dataRunning.Store(false)

	if !s.statusRunning.CompareAndSwap(false, true) {
		telemetry.SyncSkippedTicks.WithLabelValues(string(KindStatus)).Inc()
		s.log.Debug("Status pull already running, skipping tick")
		return
	}
	defer s.statusRunning.Store(false)

	s.guarded(KindStatus, func() {
		startedAt := nowFunc()

		res, err := s.client.PullEVSEStatus(ctx, ports.PullStatusRequest{
			SearchCenter: s.opts.SearchCenter,
			RadiusKM:     s.opts.RadiusKM,
		})
		if err != nil {
			telemetry.SyncCyclesTotal.WithLabelValues(string(KindStatus), "error").Inc()
			s.log.Error("EVSE status pull failed", zap.Error(err))
			return
		}
		if !res.Successful() {
			telemetry.SyncCyclesTotal.WithLabelValues(string(KindStatus), "error").Inc()
			s.log.Error("EVSE status pull rejected",
				zap.Int("status", res.StatusCode),
				zap.String("description", res.Description),
			)
			return
		}

		s.rec.ReconcileStatus(ctx, res.Records)
		s.setLastRun(KindStatus, startedAt)
		telemetry.SyncCyclesTotal.WithLabelValues(string(KindStatus), "ok").Inc()
	})
}

// guarded runs one cycle body, converting any panic into a logged exception
// event so the timer loop survives.
func (s *Scheduler) guarded(kind Kind, fn func()) {
	defer func() {
		if p := recover(); p != nil {
			cause := innermost(p)
			s.log.Error("Sync cycle panicked",
				zap.String("kind", string(kind)),
				zap.Any("cause", cause),
			)
			if s.bus != nil {
				op := events.OpPullEVSEData
				if kind == KindStatus {
					op = events.OpPullEVSEStatus
				}
				s.bus.EmitException(op, cause)
			}
		}
	}()
	fn()
}

// innermost unwraps a recovered value to its deepest error cause.
func innermost(p any) any {
	err, ok := p.(error)
	if !ok {
		return p
	}
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}
