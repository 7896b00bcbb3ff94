package sync

import (
	"go.uber.org/zap"

	"github.com/evroam/oicp-bridge/internal/domain"
)

// EVSEInfo resolves a remote EVSE id to its enclosing pool/station context.
type EVSEInfo struct {
	EVSEID        domain.EVSEID
	PoolID        domain.PoolID
	StationID     domain.StationID
	Address       domain.Address
	GeoCoordinate domain.GeoCoordinate
}

// BuildIndex derives the lookup index for one operator's batch of records.
// Pool ids are derived from (operator id, normalized address, geo) so that
// repeated pulls for the same physical location converge on one pool. EVSE
// ids must be unique within a cycle; on collision the first-seen mapping
// wins. Records with an unparsable EVSE id are counted as skipped and left
// out of the index. The index is read-only after construction and rebuilt
// fresh every cycle.
func BuildIndex(operatorID domain.OperatorID, records []domain.EVSEDataRecord, log *zap.Logger) (map[domain.EVSEID]EVSEInfo, uint64) {
	index := make(map[domain.EVSEID]EVSEInfo, len(records))
	var skipped uint64

	for i := range records {
		rec := &records[i]

		evseID, err := domain.ParseEVSEID(rec.EVSEID)
		if err != nil {
			skipped++
			log.Warn("Skipping record with invalid EVSE id",
				zap.String("evse_id", rec.EVSEID),
				zap.Error(err),
			)
			continue
		}

		if _, exists := index[evseID]; exists {
			skipped++
			log.Warn("Duplicate EVSE id in pull batch, keeping first",
				zap.String("evse_id", evseID.String()),
			)
			continue
		}

		poolID := domain.DerivePoolID(operatorID, rec.Address, rec.GeoCoordinate)
		stationID := domain.StationID(rec.StationID)
		if stationID == "" {
			stationID = domain.DeriveStationID(poolID, evseID)
		}

		index[evseID] = EVSEInfo{
			EVSEID:        evseID,
			PoolID:        poolID,
			StationID:     stationID,
			Address:       rec.Address,
			GeoCoordinate: rec.GeoCoordinate,
		}
	}

	return index, skipped
}
