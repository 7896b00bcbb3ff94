package store

import (
	"context"
	"sync"

	"github.com/evroam/oicp-bridge/internal/domain"
	"github.com/evroam/oicp-bridge/internal/ports"
)

// MemorySessionStore keeps sessions in process memory. Used as the fallback
// when no Redis URL is configured, and by tests.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.ChargingSession
}

func NewMemorySessionStore() ports.SessionStore {
	return &MemorySessionStore{sessions: make(map[string]domain.ChargingSession)}
}

func (s *MemorySessionStore) Save(ctx context.Context, session *domain.ChargingSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = *session
	return nil
}

func (s *MemorySessionStore) TryGet(ctx context.Context, id string) (*domain.ChargingSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if session, ok := s.sessions[id]; ok {
		return &session, nil
	}
	return nil, nil
}

func (s *MemorySessionStore) TryGetLatest(ctx context.Context, evseID domain.EVSEID) (*domain.ChargingSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.ChargingSession
	for id := range s.sessions {
		session := s.sessions[id]
		if session.EVSEID != evseID || session.Status != domain.SessionStatusActive {
			continue
		}
		if latest == nil || session.StartedAt.After(latest.StartedAt) {
			latest = &session
		}
	}
	return latest, nil
}

func (s *MemorySessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// MemoryReservationStore is the in-process counterpart for reservations.
type MemoryReservationStore struct {
	mu           sync.RWMutex
	reservations map[string]domain.Reservation
}

func NewMemoryReservationStore() ports.ReservationStore {
	return &MemoryReservationStore{reservations: make(map[string]domain.Reservation)}
}

func (s *MemoryReservationStore) Save(ctx context.Context, reservation *domain.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reservations[reservation.ID] = *reservation
	return nil
}

func (s *MemoryReservationStore) TryGet(ctx context.Context, id string) (*domain.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if reservation, ok := s.reservations[id]; ok {
		return &reservation, nil
	}
	return nil, nil
}

func (s *MemoryReservationStore) TryGetLatest(ctx context.Context, evseID domain.EVSEID) (*domain.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.Reservation
	for id := range s.reservations {
		reservation := s.reservations[id]
		if reservation.EVSEID != evseID || reservation.Status != domain.ReservationStatusActive {
			continue
		}
		if latest == nil || reservation.CreatedAt.After(latest.CreatedAt) {
			latest = &reservation
		}
	}
	return latest, nil
}

func (s *MemoryReservationStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.reservations, id)
	return nil
}
