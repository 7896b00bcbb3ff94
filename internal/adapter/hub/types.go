package hub

import (
	"time"

	"github.com/evroam/oicp-bridge/internal/domain"
)

// OICP wire types, JSON body shapes of the hub's HTTP endpoints.

// StatusCode is the structured result the hub attaches to every response.
type StatusCode struct {
	Code           string `json:"Code"`
	Description    string `json:"Description,omitempty"`
	AdditionalInfo string `json:"AdditionalInfo,omitempty"`
}

// OICP status codes used by this bridge.
const (
	CodeSuccess             = "000"
	CodeRFIDAuthFailed      = "102"
	CodeServiceNotAvailable = "320"
	CodeSessionInvalid      = "400"
	CodeEVSECommFailed      = "501"
	CodeNoEVConnected       = "510"
	CodeAlreadyReserved     = "601"
	CodeUnknownEVSEID       = "603"
	CodeEVSEOutOfService    = "700"
)

type Acknowledgement struct {
	Result     bool       `json:"Result"`
	StatusCode StatusCode `json:"StatusCode"`
	SessionID  string     `json:"SessionID,omitempty"`
}

type Identification struct {
	RFIDMifareFamilyIdentification *RFIDIdentification   `json:"RFIDMifareFamilyIdentification,omitempty"`
	RemoteIdentification           *RemoteIdentification `json:"RemoteIdentification,omitempty"`
}

type RFIDIdentification struct {
	UID string `json:"UID"`
}

type RemoteIdentification struct {
	EvcoID string `json:"EvcoID"`
}

// UID returns whichever identifier the identification carries.
func (id Identification) UID() string {
	if id.RFIDMifareFamilyIdentification != nil {
		return id.RFIDMifareFamilyIdentification.UID
	}
	if id.RemoteIdentification != nil {
		return id.RemoteIdentification.EvcoID
	}
	return ""
}

// RFID wraps a plain UID into the wire identification shape.
func RFID(uid string) Identification {
	return Identification{RFIDMifareFamilyIdentification: &RFIDIdentification{UID: uid}}
}

type pullEVSEDataRequest struct {
	ProviderID     string                `json:"ProviderID"`
	GeoCoordinates *domain.GeoCoordinate `json:"GeoCoordinates,omitempty"`
	SearchRadiusKM float64               `json:"SearchRadius,omitempty"`
	LastCall       *time.Time            `json:"LastCall,omitempty"`
}

type pullEVSEDataResponse struct {
	Content    []domain.EVSEDataRecord `json:"content"`
	StatusCode *StatusCode             `json:"StatusCode,omitempty"`
}

type pullEVSEStatusRequest struct {
	ProviderID     string                `json:"ProviderID"`
	GeoCoordinates *domain.GeoCoordinate `json:"GeoCoordinates,omitempty"`
	SearchRadiusKM float64               `json:"SearchRadius,omitempty"`
}

type pullEVSEStatusByIDRequest struct {
	ProviderID string   `json:"ProviderID"`
	EvseIDs    []string `json:"EvseID"`
}

type pullEVSEStatusResponse struct {
	Content    []domain.EVSEStatusRecord `json:"content"`
	StatusCode *StatusCode               `json:"StatusCode,omitempty"`
}

type pushAuthDataRequest struct {
	ProviderID      string           `json:"ProviderID"`
	ActionType      string           `json:"ActionType"`
	Identifications []Identification `json:"AuthenticationDataRecords"`
}

type remoteSessionRequest struct {
	SessionID        string         `json:"SessionID,omitempty"`
	ProviderID       string         `json:"ProviderID"`
	EvseID           string         `json:"EvseID"`
	Identification   Identification `json:"Identification"`
	PartnerProductID string         `json:"PartnerProductID,omitempty"`
}

type remoteStopRequest struct {
	SessionID  string `json:"SessionID"`
	ProviderID string `json:"ProviderID"`
	EvseID     string `json:"EvseID"`
}

type getCDRsRequest struct {
	ProviderID string    `json:"ProviderID"`
	From       time.Time `json:"From"`
	To         time.Time `json:"To"`
}

type getCDRsResponse struct {
	Content    []cdrRecord `json:"content"`
	StatusCode *StatusCode `json:"StatusCode,omitempty"`
}

// cdrRecord is the wire CDR shape, converted to domain.ChargeDetailRecord at
// the facade boundary.
type cdrRecord struct {
	SessionID        string         `json:"SessionID"`
	EvseID           string         `json:"EvseID"`
	ProviderID       string         `json:"ProviderID,omitempty"`
	Identification   Identification `json:"Identification"`
	SessionStart     time.Time      `json:"SessionStart"`
	SessionEnd       time.Time      `json:"SessionEnd"`
	ChargingStart    time.Time      `json:"ChargingStart"`
	ChargingEnd      time.Time      `json:"ChargingEnd"`
	ConsumedEnergyWh int64          `json:"ConsumedEnergy"`
	MeterValueStart  float64        `json:"MeterValueStart,omitempty"`
	MeterValueEnd    float64        `json:"MeterValueEnd,omitempty"`
	PartnerProductID string         `json:"PartnerProductID,omitempty"`
}

func (r cdrRecord) toDomain() (domain.ChargeDetailRecord, error) {
	evseID, err := domain.ParseEVSEID(r.EvseID)
	if err != nil {
		return domain.ChargeDetailRecord{}, err
	}
	return domain.ChargeDetailRecord{
		SessionID:        r.SessionID,
		EVSEID:           evseID,
		ProviderID:       domain.ProviderID(r.ProviderID),
		Identification:   r.Identification.UID(),
		SessionStart:     r.SessionStart,
		SessionEnd:       r.SessionEnd,
		ChargingStart:    r.ChargingStart,
		ChargingEnd:      r.ChargingEnd,
		ConsumedEnergyWh: r.ConsumedEnergyWh,
		MeterValueStart:  r.MeterValueStart,
		MeterValueEnd:    r.MeterValueEnd,
		PartnerProductID: r.PartnerProductID,
	}, nil
}

func cdrToWire(cdr domain.ChargeDetailRecord) cdrRecord {
	return cdrRecord{
		SessionID:        cdr.SessionID,
		EvseID:           cdr.EVSEID.String(),
		ProviderID:       cdr.ProviderID.String(),
		Identification:   RFID(cdr.Identification),
		SessionStart:     cdr.SessionStart,
		SessionEnd:       cdr.SessionEnd,
		ChargingStart:    cdr.ChargingStart,
		ChargingEnd:      cdr.ChargingEnd,
		ConsumedEnergyWh: cdr.ConsumedEnergyWh,
		MeterValueStart:  cdr.MeterValueStart,
		MeterValueEnd:    cdr.MeterValueEnd,
		PartnerProductID: cdr.PartnerProductID,
	}
}

// Inbound wire types, bodies the hub POSTs to this bridge.

type AuthorizeStartRequest struct {
	OperatorID       string         `json:"OperatorID"`
	EvseID           string         `json:"EvseID,omitempty"`
	Identification   Identification `json:"Identification"`
	PartnerProductID string         `json:"PartnerProductID,omitempty"`
	SessionID        string         `json:"SessionID,omitempty"`
}

type AuthorizeStartResponse struct {
	AuthorizationStatus              string           `json:"AuthorizationStatus"`
	StatusCode                       StatusCode       `json:"StatusCode"`
	SessionID                        string           `json:"SessionID,omitempty"`
	ProviderID                       string           `json:"ProviderID,omitempty"`
	AuthorizationStopIdentifications []Identification `json:"AuthorizationStopIdentifications,omitempty"`
}

type AuthorizeStopRequest struct {
	OperatorID     string         `json:"OperatorID"`
	EvseID         string         `json:"EvseID,omitempty"`
	SessionID      string         `json:"SessionID"`
	Identification Identification `json:"Identification"`
}

type AuthorizeStopResponse struct {
	AuthorizationStatus string     `json:"AuthorizationStatus"`
	StatusCode          StatusCode `json:"StatusCode"`
	SessionID           string     `json:"SessionID,omitempty"`
	ProviderID          string     `json:"ProviderID,omitempty"`
}

type ChargeDetailRecordRequest struct {
	OperatorID string    `json:"OperatorID"`
	CDR        cdrRecord `json:"ChargeDetailRecord"`
}
