package sync

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/evroam/oicp-bridge/internal/graph"
	"github.com/evroam/oicp-bridge/internal/mocks"
	"github.com/evroam/oicp-bridge/internal/ports"
	"github.com/evroam/oicp-bridge/internal/service/events"
)

func newTestScheduler(client ports.RoamingClient) *Scheduler {
	store := graph.NewStore(zap.NewNop())
	rec := NewReconciler(store, nil, nil, nil, zap.NewNop())
	return NewScheduler(client, rec, events.NewBus(zap.NewNop()), Options{}, zap.NewNop())
}

func TestDataCycleSkipsTickWhilePullRunning(t *testing.T) {
	var pulls atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{})

	client := &mocks.MockRoamingClient{
		PullEVSEDataFunc: func(ctx context.Context, req ports.PullDataRequest) (ports.PullDataResult, error) {
			pulls.Add(1)
			close(started)
			<-release
			return ports.PullDataResult{CallResult: ports.CallResult{StatusCode: 200}}, nil
		},
	}
	s := newTestScheduler(client)

	done := make(chan struct{})
	go func() {
		s.runDataCycle(context.Background())
		close(done)
	}()
	<-started

	// A second tick while the first pull is in flight must return without
	// issuing another pull.
	s.runDataCycle(context.Background())
	if got := pulls.Load(); got != 1 {
		t.Errorf("pulls during overlap = %d, want 1", got)
	}

	close(release)
	<-done

	s.runDataCycle(context.Background())
	if got := pulls.Load(); got != 2 {
		t.Errorf("pulls after release = %d, want 2", got)
	}
}

func TestStatusCycleAbortsWhileDataPullRunning(t *testing.T) {
	var statusPulls atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{})

	client := &mocks.MockRoamingClient{
		PullEVSEDataFunc: func(ctx context.Context, req ports.PullDataRequest) (ports.PullDataResult, error) {
			close(started)
			<-release
			return ports.PullDataResult{CallResult: ports.CallResult{StatusCode: 200}}, nil
		},
		PullEVSEStatusFunc: func(ctx context.Context, req ports.PullStatusRequest) (ports.PullStatusResult, error) {
			statusPulls.Add(1)
			return ports.PullStatusResult{CallResult: ports.CallResult{StatusCode: 200}}, nil
		},
	}
	s := newTestScheduler(client)

	done := make(chan struct{})
	go func() {
		s.runDataCycle(context.Background())
		close(done)
	}()
	<-started

	s.runStatusCycle(context.Background())
	if got := statusPulls.Load(); got != 0 {
		t.Errorf("status pulls during data pull = %d, want 0", got)
	}

	close(release)
	<-done

	s.runStatusCycle(context.Background())
	if got := statusPulls.Load(); got != 1 {
		t.Errorf("status pulls after release = %d, want 1", got)
	}
}

func TestDataCyclePassesLastRunAsSince(t *testing.T) {
	var since []*time.Time
	client := &mocks.MockRoamingClient{
		PullEVSEDataFunc: func(ctx context.Context, req ports.PullDataRequest) (ports.PullDataResult, error) {
			since = append(since, req.Since)
			return ports.PullDataResult{CallResult: ports.CallResult{StatusCode: 200}}, nil
		},
	}
	s := newTestScheduler(client)

	fixed := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	nowFunc = func() time.Time { return fixed }
	defer func() { nowFunc = time.Now }()

	s.runDataCycle(context.Background())
	s.runDataCycle(context.Background())

	if len(since) != 2 {
		t.Fatalf("pulls = %d, want 2", len(since))
	}
	if since[0] != nil {
		t.Errorf("first pull since = %v, want nil", since[0])
	}
	if since[1] == nil || !since[1].Equal(fixed) {
		t.Errorf("second pull since = %v, want %v", since[1], fixed)
	}
}

func TestDataCycleDoesNotAdvanceLastRunOnFailure(t *testing.T) {
	client := &mocks.MockRoamingClient{
		PullEVSEDataFunc: func(ctx context.Context, req ports.PullDataRequest) (ports.PullDataResult, error) {
			return ports.PullDataResult{CallResult: ports.CallResult{StatusCode: 503}}, nil
		},
	}
	s := newTestScheduler(client)

	s.runDataCycle(context.Background())
	if last := s.LastRun(KindData); !last.IsZero() {
		t.Errorf("last run advanced after rejected pull: %v", last)
	}
}

func TestCyclePanicIsRecovered(t *testing.T) {
	client := &mocks.MockRoamingClient{
		PullEVSEDataFunc: func(ctx context.Context, req ports.PullDataRequest) (ports.PullDataResult, error) {
			panic("pull exploded")
		},
	}
	s := newTestScheduler(client)

	var caught atomic.Bool
	bus := events.NewBus(zap.NewNop())
	bus.OnException(func(op events.Operation, recovered any) {
		caught.Store(true)
	})
	s.bus = bus

	s.runDataCycle(context.Background())

	if !caught.Load() {
		t.Error("panic was not reported on the event bus")
	}
	if s.dataRunning.Load() {
		t.Error("running flag still held after panic")
	}
}
