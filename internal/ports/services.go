package ports

import (
	"context"
	"time"

	"github.com/evroam/oicp-bridge/internal/domain"
)

// CallResult is the transport envelope every roaming-client operation
// returns. Protocol and network failures are carried here as values; the
// client returns a Go error only for caller contract violations and context
// cancellation.
type CallResult struct {
	StatusCode  int
	Description string
	RawBody     []byte
}

func (r CallResult) Successful() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// CallOptions are the per-call defaults shared by all roaming operations.
// Zero values mean: provider id from the adapter configuration, timestamp at
// call time, a freshly generated tracking id and the client's default
// timeout.
type CallOptions struct {
	ProviderID domain.ProviderID
	Timestamp  time.Time
	TrackingID string
	Timeout    time.Duration
}

type PullDataRequest struct {
	SearchCenter *domain.GeoCoordinate
	RadiusKM     float64
	Since        *time.Time
	Options      CallOptions
}

type PullDataResult struct {
	CallResult
	Records []domain.EVSEDataRecord
}

type PullStatusRequest struct {
	SearchCenter *domain.GeoCoordinate
	RadiusKM     float64
	Options      CallOptions
}

type PullStatusByIDRequest struct {
	EVSEIDs []domain.EVSEID
	Options CallOptions
}

type PullStatusResult struct {
	CallResult
	Records []domain.EVSEStatusRecord
}

type PushAuthDataRequest struct {
	Identifications []string
	Action          string
	Options         CallOptions
}

type ReservationStartRequest struct {
	EVSEID           domain.EVSEID
	Identification   string
	SessionID        string
	PartnerProductID string
	Options          CallOptions
}

type ReservationStopRequest struct {
	EVSEID    domain.EVSEID
	SessionID string
	Options   CallOptions
}

type RemoteStartRequest struct {
	EVSEID           domain.EVSEID
	Identification   string
	SessionID        string
	PartnerProductID string
	Options          CallOptions
}

type RemoteStopRequest struct {
	EVSEID    domain.EVSEID
	SessionID string
	Options   CallOptions
}

type GetCDRsRequest struct {
	From    time.Time
	To      time.Time
	Options CallOptions
}

type CDRsResult struct {
	CallResult
	Records []domain.ChargeDetailRecord
}

type SessionResult struct {
	CallResult
	SessionID string
}

type AckResult struct {
	CallResult
}

// RoamingClient is the typed facade over the outbound hub transport, one
// operation per protocol call.
type RoamingClient interface {
	PullEVSEData(ctx context.Context, req PullDataRequest) (PullDataResult, error)
	PullEVSEStatus(ctx context.Context, req PullStatusRequest) (PullStatusResult, error)
	PullEVSEStatusByID(ctx context.Context, req PullStatusByIDRequest) (PullStatusResult, error)
	PushAuthenticationData(ctx context.Context, req PushAuthDataRequest) (AckResult, error)
	ReservationStart(ctx context.Context, req ReservationStartRequest) (SessionResult, error)
	ReservationStop(ctx context.Context, req ReservationStopRequest) (AckResult, error)
	RemoteStart(ctx context.Context, req RemoteStartRequest) (SessionResult, error)
	RemoteStop(ctx context.Context, req RemoteStopRequest) (AckResult, error)
	SendChargeDetailRecord(ctx context.Context, cdr domain.ChargeDetailRecord, opts CallOptions) (AckResult, error)
	GetChargeDetailRecords(ctx context.Context, req GetCDRsRequest) (CDRsResult, error)
}

type AuthorizeStartRequest struct {
	EVSEID           domain.EVSEID
	Identification   string
	SessionID        string
	PartnerProductID string
	OperatorID       domain.OperatorID
}

type AuthorizeStopRequest struct {
	EVSEID         domain.EVSEID
	Identification string
	SessionID      string
	OperatorID     domain.OperatorID
}

// Authorizer is the local authorization/session domain the inbound mediator
// forwards hub requests into.
type Authorizer interface {
	AuthorizeStart(ctx context.Context, req AuthorizeStartRequest) (domain.AuthStartResult, error)
	AuthorizeStop(ctx context.Context, req AuthorizeStopRequest) (domain.AuthStopResult, error)
	SendChargeDetailRecords(ctx context.Context, cdrs []domain.ChargeDetailRecord) (domain.SendCDRsResult, error)
}
