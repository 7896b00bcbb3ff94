package mediator

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evroam/oicp-bridge/internal/domain"
	"github.com/evroam/oicp-bridge/internal/ports"
	"github.com/evroam/oicp-bridge/internal/service/events"
)

// ResponseVariant is the protocol-level outcome the bridge answers the hub
// with. The roaming server translates variants into wire status codes.
type ResponseVariant string

const (
	RespAuthorized                ResponseVariant = "Authorized"
	RespNotAuthorized             ResponseVariant = "NotAuthorized"
	RespSessionIsInvalid          ResponseVariant = "SessionIsInvalid"
	RespCommunicationToEVSEFailed ResponseVariant = "CommunicationToEVSEFailed"
	RespNoEVConnectedToEVSE       ResponseVariant = "NoEVConnectedToEVSE"
	RespEVSEAlreadyReserved       ResponseVariant = "EVSEAlreadyReserved"
	RespUnknownEVSEID             ResponseVariant = "UnknownEVSEID"
	RespEVSEOutOfService          ResponseVariant = "EVSEOutOfService"
	RespServiceNotAvailable       ResponseVariant = "ServiceNotAvailable"
	RespSuccess                   ResponseVariant = "Success"
	RespError                     ResponseVariant = "Error"
)

type AuthorizeStartResponse struct {
	Variant             ResponseVariant
	SessionID           string
	ProviderID          domain.ProviderID
	StopIdentifications []string
}

type AuthorizeStopResponse struct {
	Variant    ResponseVariant
	SessionID  string
	ProviderID domain.ProviderID
}

type CDRResponse struct {
	Variant ResponseVariant
}

// Mediator forwards inbound roaming-server events into the local
// authorization domain and maps the domain result back onto protocol
// response variants. Each request is handled independently; there is no
// mediation state.
type Mediator struct {
	auth    ports.Authorizer
	archive ports.CDRArchive
	bus     *events.Bus
	log     *zap.Logger
}

// NewMediator wires the inbound side. archive may be nil when CDR
// persistence is disabled.
func NewMediator(auth ports.Authorizer, archive ports.CDRArchive, bus *events.Bus, log *zap.Logger) *Mediator {
	return &Mediator{auth: auth, archive: archive, bus: bus, log: log}
}

func (m *Mediator) HandleAuthorizeStart(ctx context.Context, req ports.AuthorizeStartRequest) AuthorizeStartResponse {
	trackingID := uuid.NewString()
	m.bus.EmitRequest(events.Event{Operation: events.OpAuthorizeStart, TrackingID: trackingID, OK: true})

	result, err := m.auth.AuthorizeStart(ctx, req)
	if err != nil {
		m.log.Error("AuthorizeStart domain call failed", zap.Error(err))
		m.bus.EmitResponse(events.Event{Operation: events.OpAuthorizeStart, TrackingID: trackingID, OK: false, Detail: err.Error()})
		return AuthorizeStartResponse{Variant: RespServiceNotAvailable}
	}

	resp := mapAuthStart(result)
	m.bus.EmitResponse(events.Event{
		Operation:  events.OpAuthorizeStart,
		TrackingID: trackingID,
		OK:         resp.Variant == RespAuthorized,
		Detail:     string(resp.Variant),
	})
	return resp
}

func mapAuthStart(result domain.AuthStartResult) AuthorizeStartResponse {
	switch result.Result {
	case domain.AuthStartAuthorized:
		return AuthorizeStartResponse{
			Variant:             RespAuthorized,
			SessionID:           result.SessionID,
			ProviderID:          result.ProviderID,
			StopIdentifications: result.AuthStopIdentifiers,
		}
	case domain.AuthStartNotAuthorized:
		return AuthorizeStartResponse{Variant: RespNotAuthorized}
	case domain.AuthStartInvalidSessionID:
		return AuthorizeStartResponse{Variant: RespSessionIsInvalid}
	case domain.AuthStartCommunicationTimeout:
		return AuthorizeStartResponse{Variant: RespCommunicationToEVSEFailed}
	case domain.AuthStartStartChargingTimeout:
		return AuthorizeStartResponse{Variant: RespNoEVConnectedToEVSE}
	case domain.AuthStartReserved:
		return AuthorizeStartResponse{Variant: RespEVSEAlreadyReserved}
	case domain.AuthStartUnknownLocation:
		return AuthorizeStartResponse{Variant: RespUnknownEVSEID}
	case domain.AuthStartOutOfService:
		return AuthorizeStartResponse{Variant: RespEVSEOutOfService}
	default:
		return AuthorizeStartResponse{Variant: RespServiceNotAvailable}
	}
}

func (m *Mediator) HandleAuthorizeStop(ctx context.Context, req ports.AuthorizeStopRequest) AuthorizeStopResponse {
	trackingID := uuid.NewString()
	m.bus.EmitRequest(events.Event{Operation: events.OpAuthorizeStop, TrackingID: trackingID, OK: true})

	result, err := m.auth.AuthorizeStop(ctx, req)
	if err != nil {
		m.log.Error("AuthorizeStop domain call failed", zap.Error(err))
		m.bus.EmitResponse(events.Event{Operation: events.OpAuthorizeStop, TrackingID: trackingID, OK: false, Detail: err.Error()})
		return AuthorizeStopResponse{Variant: RespServiceNotAvailable}
	}

	resp := mapAuthStop(result)
	m.bus.EmitResponse(events.Event{
		Operation:  events.OpAuthorizeStop,
		TrackingID: trackingID,
		OK:         resp.Variant == RespAuthorized,
		Detail:     string(resp.Variant),
	})
	return resp
}

func mapAuthStop(result domain.AuthStopResult) AuthorizeStopResponse {
	switch result.Result {
	case domain.AuthStopAuthorized:
		return AuthorizeStopResponse{
			Variant:    RespAuthorized,
			SessionID:  result.SessionID,
			ProviderID: result.ProviderID,
		}
	case domain.AuthStopInvalidSessionID:
		return AuthorizeStopResponse{Variant: RespSessionIsInvalid}
	case domain.AuthStopCommunicationTimeout:
		return AuthorizeStopResponse{Variant: RespCommunicationToEVSEFailed}
	case domain.AuthStopStopChargingTimeout:
		return AuthorizeStopResponse{Variant: RespNoEVConnectedToEVSE}
	case domain.AuthStopUnknownLocation:
		return AuthorizeStopResponse{Variant: RespUnknownEVSEID}
	case domain.AuthStopOutOfService:
		return AuthorizeStopResponse{Variant: RespEVSEOutOfService}
	default:
		return AuthorizeStopResponse{Variant: RespServiceNotAvailable}
	}
}

// HandleChargeDetailRecord wraps the single inbound CDR into a batch,
// forwards it to the domain's bulk submission and derives the
// acknowledgement from the first failed item.
func (m *Mediator) HandleChargeDetailRecord(ctx context.Context, cdr domain.ChargeDetailRecord) CDRResponse {
	trackingID := uuid.NewString()
	m.bus.EmitRequest(events.Event{Operation: events.OpInboundCDR, TrackingID: trackingID, OK: true})

	if m.archive != nil {
		if err := m.archive.Save(ctx, &cdr); err != nil {
			m.log.Error("Failed to archive inbound CDR",
				zap.String("session_id", cdr.SessionID),
				zap.Error(err),
			)
		}
	}

	result, err := m.auth.SendChargeDetailRecords(ctx, []domain.ChargeDetailRecord{cdr})
	if err != nil {
		m.log.Error("CDR domain call failed", zap.Error(err))
		m.bus.EmitResponse(events.Event{Operation: events.OpInboundCDR, TrackingID: trackingID, OK: false, Detail: err.Error()})
		return CDRResponse{Variant: RespServiceNotAvailable}
	}

	resp := mapCDR(result)
	m.bus.EmitResponse(events.Event{
		Operation:  events.OpInboundCDR,
		TrackingID: trackingID,
		OK:         resp.Variant == RespSuccess,
		Detail:     string(resp.Variant),
	})
	return resp
}

func mapCDR(result domain.SendCDRsResult) CDRResponse {
	if result.Result == domain.CDRResultSuccess {
		return CDRResponse{Variant: RespSuccess}
	}
	failed := result.FirstFailed()
	if failed == nil {
		return CDRResponse{Variant: RespServiceNotAvailable}
	}
	switch failed.Result {
	case domain.CDRResultInvalidSessionID:
		return CDRResponse{Variant: RespSessionIsInvalid}
	case domain.CDRResultUnknownLocation:
		return CDRResponse{Variant: RespUnknownEVSEID}
	case domain.CDRResultError:
		return CDRResponse{Variant: RespError}
	default:
		return CDRResponse{Variant: RespServiceNotAvailable}
	}
}
