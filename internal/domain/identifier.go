package domain

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// Identifier formats follow the DIN/ISO spec used on the roaming hub:
// operators "DE*GEF", providers "DE-GDF", EVSEs "DE*GEF*E1234567*A*1".
var (
	operatorIDPattern = regexp.MustCompile(`^[A-Za-z]{2}\*?[A-Za-z0-9]{3}$`)
	providerIDPattern = regexp.MustCompile(`^[A-Za-z]{2}[*-]?[A-Za-z0-9]{3}$`)
	evseIDPattern     = regexp.MustCompile(`^([A-Za-z]{2}\*?[A-Za-z0-9]{3})\*?E([A-Za-z0-9*]{1,30})$`)
)

type OperatorID string

func ParseOperatorID(s string) (OperatorID, error) {
	if !operatorIDPattern.MatchString(s) {
		return "", fmt.Errorf("invalid operator id %q", s)
	}
	return OperatorID(strings.ToUpper(s)), nil
}

func (id OperatorID) String() string { return string(id) }

type ProviderID string

func ParseProviderID(s string) (ProviderID, error) {
	if !providerIDPattern.MatchString(s) {
		return "", fmt.Errorf("invalid provider id %q", s)
	}
	return ProviderID(strings.ToUpper(s)), nil
}

func (id ProviderID) String() string { return string(id) }

type EVSEID string

func ParseEVSEID(s string) (EVSEID, error) {
	if !evseIDPattern.MatchString(s) {
		return "", fmt.Errorf("invalid EVSE id %q", s)
	}
	return EVSEID(strings.ToUpper(s)), nil
}

func (id EVSEID) String() string { return string(id) }

// OperatorID returns the operator prefix of the EVSE id, e.g.
// "DE*GEF" for "DE*GEF*E1234567*A*1".
func (id EVSEID) OperatorID() OperatorID {
	m := evseIDPattern.FindStringSubmatch(string(id))
	if m == nil {
		return ""
	}
	return OperatorID(m[1])
}

type PoolID string

func (id PoolID) String() string { return string(id) }

type StationID string

func (id StationID) String() string { return string(id) }

// DerivePoolID builds a stable pool identifier from the operator, the
// normalized postal address and the geo coordinate. The hub does not assign
// pool ids, so repeated pulls for the same physical location must converge
// on the same id.
func DerivePoolID(operatorID OperatorID, address Address, geo GeoCoordinate) PoolID {
	canonical := fmt.Sprintf("%s|%s|%.6f|%.6f",
		operatorID, address.Normalized(), geo.Latitude, geo.Longitude)
	sum := sha1.Sum([]byte(canonical))
	return PoolID(fmt.Sprintf("%s*P%s", operatorID, strings.ToUpper(hex.EncodeToString(sum[:5]))))
}

// DeriveStationID builds a station identifier within a pool when the remote
// record does not carry one of its own.
func DeriveStationID(poolID PoolID, evseID EVSEID) StationID {
	// Strip the trailing connector segments so all EVSEs of one cabinet
	// group under the same station.
	base := string(evseID)
	if i := strings.LastIndex(base, "*"); i > 0 {
		base = base[:i]
	}
	sum := sha1.Sum([]byte(string(poolID) + "|" + base))
	return StationID(fmt.Sprintf("%s*S%s", poolID, strings.ToUpper(hex.EncodeToString(sum[:4]))))
}

// ReservationID composes the local reservation identifier for a remote
// session accepted by the hub: operator id, the literal "*R" marker and the
// remote session id, concatenated without separators.
func ReservationID(operatorID OperatorID, remoteSessionID string) string {
	return string(operatorID) + "*R" + remoteSessionID
}
