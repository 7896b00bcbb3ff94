package mocks

import (
	"context"
	"time"

	"github.com/evroam/oicp-bridge/internal/domain"
)

// MockEntityGraph is a mock implementation of EntityGraph
type MockEntityGraph struct {
	GetOrCreateOperatorFunc func(id domain.OperatorID, name string) (domain.Operator, bool)
	GetOrCreatePoolFunc     func(pool domain.Pool) (domain.Pool, bool)
	GetOrCreateStationFunc  func(station domain.Station) (domain.Station, bool)
	GetOrCreateEVSEFunc     func(evse domain.EVSE) (domain.EVSE, bool)
	TryGetEVSEFunc          func(id domain.EVSEID) (domain.EVSE, bool)
	UpdateEVSEStatusFunc    func(id domain.EVSEID, status domain.EVSEStatus, at time.Time) bool
	OperatorsFunc           func() []domain.Operator
}

func (m *MockEntityGraph) GetOrCreateOperator(id domain.OperatorID, name string) (domain.Operator, bool) {
	if m.GetOrCreateOperatorFunc != nil {
		return m.GetOrCreateOperatorFunc(id, name)
	}
	return domain.Operator{ID: id, Name: name}, true
}

func (m *MockEntityGraph) GetOrCreatePool(pool domain.Pool) (domain.Pool, bool) {
	if m.GetOrCreatePoolFunc != nil {
		return m.GetOrCreatePoolFunc(pool)
	}
	return pool, true
}

func (m *MockEntityGraph) GetOrCreateStation(station domain.Station) (domain.Station, bool) {
	if m.GetOrCreateStationFunc != nil {
		return m.GetOrCreateStationFunc(station)
	}
	return station, true
}

func (m *MockEntityGraph) GetOrCreateEVSE(evse domain.EVSE) (domain.EVSE, bool) {
	if m.GetOrCreateEVSEFunc != nil {
		return m.GetOrCreateEVSEFunc(evse)
	}
	return evse, true
}

func (m *MockEntityGraph) TryGetEVSE(id domain.EVSEID) (domain.EVSE, bool) {
	if m.TryGetEVSEFunc != nil {
		return m.TryGetEVSEFunc(id)
	}
	return domain.EVSE{}, false
}

func (m *MockEntityGraph) UpdateEVSEStatus(id domain.EVSEID, status domain.EVSEStatus, at time.Time) bool {
	if m.UpdateEVSEStatusFunc != nil {
		return m.UpdateEVSEStatusFunc(id, status, at)
	}
	return false
}

func (m *MockEntityGraph) Operators() []domain.Operator {
	if m.OperatorsFunc != nil {
		return m.OperatorsFunc()
	}
	return nil
}

// MockSessionStore is a mock implementation of SessionStore
type MockSessionStore struct {
	SaveFunc         func(ctx context.Context, session *domain.ChargingSession) error
	TryGetFunc       func(ctx context.Context, id string) (*domain.ChargingSession, error)
	TryGetLatestFunc func(ctx context.Context, evseID domain.EVSEID) (*domain.ChargingSession, error)
	DeleteFunc       func(ctx context.Context, id string) error
}

func (m *MockSessionStore) Save(ctx context.Context, session *domain.ChargingSession) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, session)
	}
	return nil
}

func (m *MockSessionStore) TryGet(ctx context.Context, id string) (*domain.ChargingSession, error) {
	if m.TryGetFunc != nil {
		return m.TryGetFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockSessionStore) TryGetLatest(ctx context.Context, evseID domain.EVSEID) (*domain.ChargingSession, error) {
	if m.TryGetLatestFunc != nil {
		return m.TryGetLatestFunc(ctx, evseID)
	}
	return nil, nil
}

func (m *MockSessionStore) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// MockReservationStore is a mock implementation of ReservationStore
type MockReservationStore struct {
	SaveFunc         func(ctx context.Context, reservation *domain.Reservation) error
	TryGetFunc       func(ctx context.Context, id string) (*domain.Reservation, error)
	TryGetLatestFunc func(ctx context.Context, evseID domain.EVSEID) (*domain.Reservation, error)
	DeleteFunc       func(ctx context.Context, id string) error
}

func (m *MockReservationStore) Save(ctx context.Context, reservation *domain.Reservation) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, reservation)
	}
	return nil
}

func (m *MockReservationStore) TryGet(ctx context.Context, id string) (*domain.Reservation, error) {
	if m.TryGetFunc != nil {
		return m.TryGetFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockReservationStore) TryGetLatest(ctx context.Context, evseID domain.EVSEID) (*domain.Reservation, error) {
	if m.TryGetLatestFunc != nil {
		return m.TryGetLatestFunc(ctx, evseID)
	}
	return nil, nil
}

func (m *MockReservationStore) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// MockCDRArchive is a mock implementation of CDRArchive
type MockCDRArchive struct {
	SaveFunc            func(ctx context.Context, cdr *domain.ChargeDetailRecord) error
	FindBySessionIDFunc func(ctx context.Context, sessionID string) (*domain.ChargeDetailRecord, error)
}

func (m *MockCDRArchive) Save(ctx context.Context, cdr *domain.ChargeDetailRecord) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, cdr)
	}
	return nil
}

func (m *MockCDRArchive) FindBySessionID(ctx context.Context, sessionID string) (*domain.ChargeDetailRecord, error) {
	if m.FindBySessionIDFunc != nil {
		return m.FindBySessionIDFunc(ctx, sessionID)
	}
	return nil, nil
}
