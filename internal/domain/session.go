package domain

import "time"

type SessionStatus string

const (
	SessionStatusActive  SessionStatus = "Active"
	SessionStatusStopped SessionStatus = "Stopped"
)

// ChargingSession tracks one live charging process. The remote session id is
// an opaque string minted by the hub and round-tripped unchanged.
type ChargingSession struct {
	ID              string        `json:"id"`
	RemoteSessionID string        `json:"remote_session_id"`
	EVSEID          EVSEID        `json:"evse_id"`
	ProviderID      ProviderID    `json:"provider_id"`
	Identification  string        `json:"identification"`
	Status          SessionStatus `json:"status"`
	StartedAt       time.Time     `json:"started_at"`
	StoppedAt       *time.Time    `json:"stopped_at,omitempty"`
}

type ReservationStatus string

const (
	ReservationStatusActive    ReservationStatus = "Active"
	ReservationStatusCancelled ReservationStatus = "Cancelled"
)

type Reservation struct {
	ID              string            `json:"id"`
	RemoteSessionID string            `json:"remote_session_id"`
	EVSEID          EVSEID            `json:"evse_id"`
	ProviderID      ProviderID        `json:"provider_id"`
	ProductID       string            `json:"product_id,omitempty"`
	StartTime       time.Time         `json:"start_time"`
	Duration        time.Duration     `json:"duration"`
	Status          ReservationStatus `json:"status"`
	CreatedAt       time.Time         `json:"created_at"`
}

// ChargeDetailRecord is the billing-relevant summary of a completed session.
type ChargeDetailRecord struct {
	SessionID        string     `json:"session_id"`
	EVSEID           EVSEID     `json:"evse_id"`
	ProviderID       ProviderID `json:"provider_id"`
	Identification   string     `json:"identification"`
	SessionStart     time.Time  `json:"session_start"`
	SessionEnd       time.Time  `json:"session_end"`
	ChargingStart    time.Time  `json:"charging_start"`
	ChargingEnd      time.Time  `json:"charging_end"`
	ConsumedEnergyWh int64      `json:"consumed_energy_wh"`
	MeterValueStart  float64    `json:"meter_value_start"`
	MeterValueEnd    float64    `json:"meter_value_end"`
	PartnerProductID string     `json:"partner_product_id,omitempty"`
}
