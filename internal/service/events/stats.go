package events

import (
	"sync"
	"sync/atomic"
)

// OpCounters holds the four per-operation counters. Process-wide lifecycle,
// reset only by constructing a fresh bus in tests.
type OpCounters struct {
	RequestsOK     atomic.Uint64
	RequestsError  atomic.Uint64
	ResponsesOK    atomic.Uint64
	ResponsesError atomic.Uint64
}

type Stats struct {
	mu  sync.Mutex
	ops map[Operation]*OpCounters
}

func (s *Stats) get(op Operation) *OpCounters {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ops == nil {
		s.ops = make(map[Operation]*OpCounters)
	}
	c, ok := s.ops[op]
	if !ok {
		c = &OpCounters{}
		s.ops[op] = c
	}
	return c
}

func (s *Stats) countRequest(op Operation, ok bool) {
	c := s.get(op)
	if ok {
		c.RequestsOK.Add(1)
	} else {
		c.RequestsError.Add(1)
	}
}

func (s *Stats) countResponse(op Operation, ok bool) {
	c := s.get(op)
	if ok {
		c.ResponsesOK.Add(1)
	} else {
		c.ResponsesError.Add(1)
	}
}

// Of returns the counters for an operation, creating them on first use.
func (s *Stats) Of(op Operation) *OpCounters {
	return s.get(op)
}

// CounterSnapshot is a plain-value copy of one operation's counters.
type CounterSnapshot struct {
	RequestsOK     uint64 `json:"requests_ok"`
	RequestsError  uint64 `json:"requests_error"`
	ResponsesOK    uint64 `json:"responses_ok"`
	ResponsesError uint64 `json:"responses_error"`
}

// Snapshot copies all counters for reporting endpoints.
func (s *Stats) Snapshot() map[Operation]CounterSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[Operation]CounterSnapshot, len(s.ops))
	for op, c := range s.ops {
		out[op] = CounterSnapshot{
			RequestsOK:     c.RequestsOK.Load(),
			RequestsError:  c.RequestsError.Load(),
			ResponsesOK:    c.ResponsesOK.Load(),
			ResponsesError: c.ResponsesError.Load(),
		}
	}
	return out
}
