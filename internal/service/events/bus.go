package events

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/evroam/oicp-bridge/internal/observability/telemetry"
)

// Operation names every externally visible roaming call.
type Operation string

const (
	OpPullEVSEData       Operation = "PullEVSEData"
	OpPullEVSEStatus     Operation = "PullEVSEStatus"
	OpPullEVSEStatusByID Operation = "PullEVSEStatusById"
	OpPushAuthData       Operation = "PushAuthenticationData"
	OpReserve            Operation = "Reserve"
	OpCancelReservation  Operation = "CancelReservation"
	OpRemoteStart        Operation = "RemoteStart"
	OpRemoteStop         Operation = "RemoteStop"
	OpSendCDR            Operation = "SendChargeDetailRecord"
	OpGetCDRs            Operation = "GetChargeDetailRecords"
	OpAuthorizeStart     Operation = "AuthorizeStart"
	OpAuthorizeStop      Operation = "AuthorizeStop"
	OpInboundCDR         Operation = "ChargeDetailRecord"
)

// Event is one half of a request/response pair surrounding an operation.
type Event struct {
	Operation  Operation
	TrackingID string
	Timestamp  time.Time
	OK         bool
	Detail     string
}

type Handler func(Event)

type ExceptionHandler func(op Operation, recovered any)

// Bus delivers request/response/exception notifications to registered
// handlers. A handler that panics is recovered and logged; it never affects
// the operation that raised the event.
type Bus struct {
	mu         sync.RWMutex
	onRequest  []Handler
	onResponse []Handler
	onPanic    []ExceptionHandler
	stats      Stats
	log        *zap.Logger
}

func NewBus(log *zap.Logger) *Bus {
	return &Bus{log: log}
}

func (b *Bus) OnRequest(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onRequest = append(b.onRequest, h)
}

func (b *Bus) OnResponse(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onResponse = append(b.onResponse, h)
}

func (b *Bus) OnException(h ExceptionHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onPanic = append(b.onPanic, h)
}

// EmitRequest records the request counter and notifies subscribers.
func (b *Bus) EmitRequest(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	b.stats.countRequest(e.Operation, e.OK)
	telemetry.RequestsTotal.WithLabelValues(string(e.Operation), outcome(e.OK)).Inc()

	b.mu.RLock()
	handlers := b.onRequest
	b.mu.RUnlock()
	for _, h := range handlers {
		b.deliver(h, e)
	}
}

// EmitResponse records the response counter and notifies subscribers.
func (b *Bus) EmitResponse(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	b.stats.countResponse(e.Operation, e.OK)
	telemetry.ResponsesTotal.WithLabelValues(string(e.Operation), outcome(e.OK)).Inc()

	b.mu.RLock()
	handlers := b.onResponse
	b.mu.RUnlock()
	for _, h := range handlers {
		b.deliver(h, e)
	}
}

// EmitException reports a recovered panic from a sync cycle or handler.
func (b *Bus) EmitException(op Operation, recovered any) {
	b.mu.RLock()
	handlers := b.onPanic
	b.mu.RUnlock()
	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.log.Error("Exception handler panicked", zap.Any("panic", r))
				}
			}()
			h(op, recovered)
		}()
	}
}

// deliver isolates a subscriber: a panicking handler must never break the
// protocol mediation that raised the event.
func (b *Bus) deliver(h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("Event subscriber panicked",
				zap.String("operation", string(e.Operation)),
				zap.Any("panic", r),
			)
		}
	}()
	h(e)
}

func (b *Bus) Stats() *Stats { return &b.stats }

func outcome(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
