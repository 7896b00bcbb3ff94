package domain

// Result codes returned by the local authorization domain. The mediator maps
// these onto protocol response variants, both directions.

type AuthStartResultType string

const (
	AuthStartAuthorized           AuthStartResultType = "Authorized"
	AuthStartNotAuthorized        AuthStartResultType = "NotAuthorized"
	AuthStartInvalidSessionID     AuthStartResultType = "InvalidSessionId"
	AuthStartCommunicationTimeout AuthStartResultType = "CommunicationTimeout"
	AuthStartStartChargingTimeout AuthStartResultType = "StartChargingTimeout"
	AuthStartReserved             AuthStartResultType = "Reserved"
	AuthStartUnknownLocation      AuthStartResultType = "UnknownLocation"
	AuthStartOutOfService         AuthStartResultType = "OutOfService"
)

type AuthStartResult struct {
	Result              AuthStartResultType
	SessionID           string
	ProviderID          ProviderID
	AuthStopIdentifiers []string
	Description         string
}

type AuthStopResultType string

const (
	AuthStopAuthorized           AuthStopResultType = "Authorized"
	AuthStopNotAuthorized        AuthStopResultType = "NotAuthorized"
	AuthStopInvalidSessionID     AuthStopResultType = "InvalidSessionId"
	AuthStopCommunicationTimeout AuthStopResultType = "CommunicationTimeout"
	AuthStopStopChargingTimeout  AuthStopResultType = "StopChargingTimeout"
	AuthStopUnknownLocation      AuthStopResultType = "UnknownLocation"
	AuthStopOutOfService         AuthStopResultType = "OutOfService"
)

type AuthStopResult struct {
	Result      AuthStopResultType
	SessionID   string
	ProviderID  ProviderID
	Description string
}

type CDRResultType string

const (
	CDRResultSuccess          CDRResultType = "Success"
	CDRResultInvalidSessionID CDRResultType = "InvalidSessionId"
	CDRResultUnknownLocation  CDRResultType = "UnknownLocation"
	CDRResultError            CDRResultType = "Error"
)

// SendCDRsResult reports a bulk CDR submission. Per-item results keep their
// input order so callers can inspect the first failure.
type SendCDRsResult struct {
	Result CDRResultType
	Items  []CDRItemResult
}

type CDRItemResult struct {
	SessionID string
	Result    CDRResultType
	Reason    string
}

func (r SendCDRsResult) FirstFailed() *CDRItemResult {
	for i := range r.Items {
		if r.Items[i].Result != CDRResultSuccess {
			return &r.Items[i]
		}
	}
	return nil
}

// Outbound command results. Transport and protocol failures are carried as
// values, never as errors.

type CommandResultType string

const (
	CommandSuccess CommandResultType = "Success"
	CommandError   CommandResultType = "Error"
)

type ReserveResult struct {
	Result        CommandResultType
	ReservationID string
	Description   string
}

type CancelReservationResult struct {
	Result      CommandResultType
	Description string
}

type RemoteStartResult struct {
	Result      CommandResultType
	SessionID   string
	Description string
}

type RemoteStopResult struct {
	Result      CommandResultType
	SessionID   string
	Description string
}
