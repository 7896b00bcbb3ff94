package graph

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/evroam/oicp-bridge/internal/domain"
	"github.com/evroam/oicp-bridge/internal/ports"
)

// Store is the in-memory entity graph shared between the sync cycles and
// request mediation. Updates are field-level overwrites, last write wins;
// the sync locks serialize pull cycles against each other but not against
// concurrent mediation, so readers may see a mix of two cycles' fields.
// Every method returns a copy taken under the lock; pointers into the maps
// never escape the store.
type Store struct {
	mu        sync.RWMutex
	operators map[domain.OperatorID]*domain.Operator
	pools     map[domain.PoolID]*domain.Pool
	stations  map[domain.StationID]*domain.Station
	evses     map[domain.EVSEID]*domain.EVSE
	log       *zap.Logger
}

func NewStore(log *zap.Logger) ports.EntityGraph {
	return &Store{
		operators: make(map[domain.OperatorID]*domain.Operator),
		pools:     make(map[domain.PoolID]*domain.Pool),
		stations:  make(map[domain.StationID]*domain.Station),
		evses:     make(map[domain.EVSEID]*domain.EVSE),
		log:       log,
	}
}

func (s *Store) GetOrCreateOperator(id domain.OperatorID, name string) (domain.Operator, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if op, ok := s.operators[id]; ok {
		if name != "" {
			op.Name = name
		}
		op.UpdatedAt = time.Now()
		return *op, false
	}

	now := time.Now()
	op := &domain.Operator{ID: id, Name: name, CreatedAt: now, UpdatedAt: now}
	s.operators[id] = op
	s.log.Debug("Created operator", zap.String("operator_id", id.String()), zap.String("name", name))
	return *op, true
}

func (s *Store) GetOrCreatePool(pool domain.Pool) (domain.Pool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if existing, ok := s.pools[pool.ID]; ok {
		existing.Name = pool.Name
		existing.Address = pool.Address
		existing.GeoCoordinate = pool.GeoCoordinate
		existing.AuthenticationModes = pool.AuthenticationModes
		existing.PaymentOptions = pool.PaymentOptions
		existing.Accessibility = pool.Accessibility
		existing.HotlinePhoneNumber = pool.HotlinePhoneNumber
		existing.IsOpen24Hours = pool.IsOpen24Hours
		existing.OpeningTimes = pool.OpeningTimes
		existing.UpdatedAt = now
		return *existing, false
	}

	pool.CreatedAt = now
	pool.UpdatedAt = now
	created := pool
	s.pools[pool.ID] = &created
	return created, true
}

func (s *Store) GetOrCreateStation(station domain.Station) (domain.Station, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if existing, ok := s.stations[station.ID]; ok {
		existing.Name = station.Name
		existing.AuthenticationModes = station.AuthenticationModes
		existing.IsHubjectCompatible = station.IsHubjectCompatible
		existing.DynamicInfoAvail = station.DynamicInfoAvail
		existing.UpdatedAt = now
		return *existing, false
	}

	station.CreatedAt = now
	station.UpdatedAt = now
	created := station
	s.stations[station.ID] = &created
	return created, true
}

func (s *Store) GetOrCreateEVSE(evse domain.EVSE) (domain.EVSE, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if existing, ok := s.evses[evse.ID]; ok {
		existing.StationID = evse.StationID
		existing.Plugs = evse.Plugs
		existing.ChargingModes = evse.ChargingModes
		existing.MaxCapacityKW = evse.MaxCapacityKW
		existing.UpdatedAt = now
		return *existing, false
	}

	if evse.Status == "" {
		evse.Status = domain.EVSEStatusUnknown
	}
	evse.CreatedAt = now
	evse.UpdatedAt = now
	created := evse
	s.evses[evse.ID] = &created
	return created, true
}

func (s *Store) TryGetEVSE(id domain.EVSEID) (domain.EVSE, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	evse, ok := s.evses[id]
	if !ok {
		return domain.EVSE{}, false
	}
	return *evse, true
}

func (s *Store) UpdateEVSEStatus(id domain.EVSEID, status domain.EVSEStatus, at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	evse, ok := s.evses[id]
	if !ok || evse.Status == status {
		return false
	}
	evse.Status = status
	evse.StatusUpdated = at
	evse.UpdatedAt = time.Now()
	return true
}

func (s *Store) Operators() []domain.Operator {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ops := make([]domain.Operator, 0, len(s.operators))
	for _, op := range s.operators {
		ops = append(ops, *op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].Name < ops[j].Name })
	return ops
}
