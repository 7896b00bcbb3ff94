package domain

import (
	"strings"
	"time"
)

type EVSEStatus string

const (
	EVSEStatusAvailable    EVSEStatus = "Available"
	EVSEStatusOccupied     EVSEStatus = "Occupied"
	EVSEStatusReserved     EVSEStatus = "Reserved"
	EVSEStatusOutOfService EVSEStatus = "OutOfService"
	EVSEStatusUnknown      EVSEStatus = "Unknown"
)

type GeoCoordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Address struct {
	Street      string `json:"street"`
	HouseNumber string `json:"house_number"`
	PostalCode  string `json:"postal_code"`
	City        string `json:"city"`
	Country     string `json:"country"`
}

// Normalized flattens the address into a canonical uppercase form used for
// stable pool-id derivation. Whitespace runs collapse to a single space.
func (a Address) Normalized() string {
	parts := []string{a.Country, a.PostalCode, a.City, a.Street, a.HouseNumber}
	joined := strings.Join(parts, " ")
	return strings.ToUpper(strings.Join(strings.Fields(joined), " "))
}

// EVSEDataRecord is one charge point as delivered by the hub in a data pull.
// Immutable per pull cycle.
type EVSEDataRecord struct {
	EVSEID              string        `json:"EvseID"`
	OperatorID          string        `json:"OperatorID"`
	OperatorName        string        `json:"OperatorName"`
	StationID           string        `json:"ChargingStationID"`
	StationName         string        `json:"ChargingStationName"`
	Address             Address       `json:"Address"`
	GeoCoordinate       GeoCoordinate `json:"GeoCoordinates"`
	Plugs               []string      `json:"Plugs"`
	ChargingModes       []string      `json:"ChargingModes"`
	AuthenticationModes []string      `json:"AuthenticationModes"`
	PaymentOptions      []string      `json:"PaymentOptions"`
	Accessibility       string        `json:"Accessibility"`
	HotlinePhoneNumber  string        `json:"HotlinePhoneNumber"`
	IsOpen24Hours       bool          `json:"IsOpen24Hours"`
	OpeningTimes        string        `json:"OpeningTimes"`
	MaxCapacityKW       float64       `json:"MaxCapacity"`
	IsHubjectCompatible bool          `json:"IsHubjectCompatible"`
	DynamicInfoAvail    string        `json:"DynamicInfoAvailable"`
	LastUpdate          time.Time     `json:"lastUpdate"`
}

// EVSEStatusRecord is one status datum from a status pull.
type EVSEStatusRecord struct {
	EVSEID    string     `json:"EvseID"`
	Status    EVSEStatus `json:"EvseStatus"`
	Timestamp time.Time  `json:"Timestamp"`
}

// StatusChange is one applied status transition, the unit appended to the
// change-audit log and published on the message queue.
type StatusChange struct {
	EVSEID    EVSEID     `json:"evse_id"`
	Status    EVSEStatus `json:"status"`
	Timestamp time.Time  `json:"timestamp"`
}

// Entity graph. Each level is owned by the one above and is created lazily
// on first sighting of a remote record referencing it. Field updates are
// last-write-wins with no versioning; see the graph store contract.

type Operator struct {
	ID        OperatorID
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Pool struct {
	ID                  PoolID
	OperatorID          OperatorID
	Name                string
	Address             Address
	GeoCoordinate       GeoCoordinate
	AuthenticationModes []string
	PaymentOptions      []string
	Accessibility       string
	HotlinePhoneNumber  string
	IsOpen24Hours       bool
	OpeningTimes        string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type Station struct {
	ID                  StationID
	PoolID              PoolID
	Name                string
	AuthenticationModes []string
	IsHubjectCompatible bool
	DynamicInfoAvail    string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type EVSE struct {
	ID            EVSEID
	StationID     StationID
	Status        EVSEStatus
	Plugs         []string
	ChargingModes []string
	MaxCapacityKW float64
	StatusUpdated time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
