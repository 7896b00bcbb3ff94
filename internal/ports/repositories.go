package ports

import (
	"context"
	"time"

	"github.com/evroam/oicp-bridge/internal/domain"
)

// EntityGraph is the mutable local model of operators, pools, stations and
// EVSEs that reconciliation writes into and request mediation reads from.
//
// Consistency contract: updates are field-level and last-write-wins. There
// is no transaction boundary; a reader may observe a graph where some fields
// of an entity come from pull cycle N and others from N+1. Callers must
// tolerate this ("eventually reconciled per field"). All methods return
// detached copies; an entity value never changes after it leaves the graph.
type EntityGraph interface {
	GetOrCreateOperator(id domain.OperatorID, name string) (domain.Operator, bool)
	GetOrCreatePool(pool domain.Pool) (domain.Pool, bool)
	GetOrCreateStation(station domain.Station) (domain.Station, bool)
	GetOrCreateEVSE(evse domain.EVSE) (domain.EVSE, bool)
	TryGetEVSE(id domain.EVSEID) (domain.EVSE, bool)
	// UpdateEVSEStatus overwrites the cached status. Returns false when the
	// EVSE is unknown or the status equals the cached value.
	UpdateEVSEStatus(id domain.EVSEID, status domain.EVSEStatus, at time.Time) bool
	Operators() []domain.Operator
}

type SessionStore interface {
	Save(ctx context.Context, session *domain.ChargingSession) error
	TryGet(ctx context.Context, id string) (*domain.ChargingSession, error)
	// TryGetLatest returns the most recently started active session for the
	// given EVSE, or nil when none exists.
	TryGetLatest(ctx context.Context, evseID domain.EVSEID) (*domain.ChargingSession, error)
	Delete(ctx context.Context, id string) error
}

type ReservationStore interface {
	Save(ctx context.Context, reservation *domain.Reservation) error
	TryGet(ctx context.Context, id string) (*domain.Reservation, error)
	TryGetLatest(ctx context.Context, evseID domain.EVSEID) (*domain.Reservation, error)
	Delete(ctx context.Context, id string) error
}

// CDRArchive persists charge detail records received from the hub.
type CDRArchive interface {
	Save(ctx context.Context, cdr *domain.ChargeDetailRecord) error
	FindBySessionID(ctx context.Context, sessionID string) (*domain.ChargeDetailRecord, error)
}
