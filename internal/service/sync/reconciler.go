package sync

import (
	"context"
	"encoding/json"
	"sort"

	"go.uber.org/zap"

	"github.com/evroam/oicp-bridge/internal/adapter/queue"
	"github.com/evroam/oicp-bridge/internal/domain"
	"github.com/evroam/oicp-bridge/internal/observability/telemetry"
	"github.com/evroam/oicp-bridge/internal/ports"
)

// StatusChangeSubject is the queue subject status transitions are published on.
const StatusChangeSubject = "evse.status.changed"

// OperatorFilter decides whether an operator's records enter the local
// graph. Returning false skips the whole operator group.
type OperatorFilter func(name string, id domain.OperatorID) bool

// ChangeSink receives the applied status transitions of one cycle.
type ChangeSink interface {
	Append(changes []domain.StatusChange) error
}

type Reconciler struct {
	graph  ports.EntityGraph
	filter OperatorFilter
	sink   ChangeSink
	mq     queue.MessageQueue
	log    *zap.Logger
}

// NewReconciler builds the engine that merges pulled batches into the entity
// graph. filter, sink and mq may be nil: a nil filter admits every operator,
// a nil sink or mq disables the corresponding change fan-out.
func NewReconciler(graph ports.EntityGraph, filter OperatorFilter, sink ChangeSink, mq queue.MessageQueue, log *zap.Logger) *Reconciler {
	if filter == nil {
		filter = func(string, domain.OperatorID) bool { return true }
	}
	return &Reconciler{graph: graph, filter: filter, sink: sink, mq: mq, log: log}
}

// DataSummary aggregates one data reconciliation cycle.
type DataSummary struct {
	Operators         int
	OperatorsFiltered int
	PoolsCreated      uint64
	PoolsUpdated      uint64
	StationsCreated   uint64
	StationsUpdated   uint64
	EVSEsCreated      uint64
	EVSEsUpdated      uint64
	Skipped           uint64
}

// StatusSummary aggregates one status reconciliation cycle.
type StatusSummary struct {
	Updated uint64
	Skipped uint64
	Changes []domain.StatusChange
}

// ReconcileData merges a pulled data batch into the graph. Operator groups
// are processed in display-name order for reproducible logs. A record that
// fails conversion or panics during entity creation is counted as skipped;
// one bad record never aborts the batch.
func (r *Reconciler) ReconcileData(ctx context.Context, records []domain.EVSEDataRecord) DataSummary {
	var summary DataSummary

	groups := groupByOperator(records)
	for _, group := range groups {
		if ctx.Err() != nil {
			r.log.Warn("Data reconciliation cancelled", zap.Error(ctx.Err()))
			break
		}

		if !r.filter(group.name, domain.OperatorID(group.id)) {
			summary.OperatorsFiltered++
			summary.Skipped += uint64(len(group.records))
			r.log.Info("Operator filtered, skipping records",
				zap.String("operator", group.name),
				zap.Int("records", len(group.records)),
			)
			continue
		}

		operatorID, err := domain.ParseOperatorID(group.id)
		if err != nil {
			summary.Skipped += uint64(len(group.records))
			r.log.Warn("Illegal operator id, skipping group",
				zap.String("operator_id", group.id),
				zap.Int("records", len(group.records)),
				zap.Error(err),
			)
			continue
		}

		summary.Operators++
		r.graph.GetOrCreateOperator(operatorID, group.name)

		index, skipped := BuildIndex(operatorID, group.records, r.log)
		summary.Skipped += skipped

		opSummary := r.reconcileOperator(ctx, operatorID, group.records, index)
		summary.PoolsCreated += opSummary.PoolsCreated
		summary.PoolsUpdated += opSummary.PoolsUpdated
		summary.StationsCreated += opSummary.StationsCreated
		summary.StationsUpdated += opSummary.StationsUpdated
		summary.EVSEsCreated += opSummary.EVSEsCreated
		summary.EVSEsUpdated += opSummary.EVSEsUpdated
		summary.Skipped += opSummary.Skipped

		r.log.Info("Operator reconciled",
			zap.String("operator", group.name),
			zap.Uint64("evses_created", opSummary.EVSEsCreated),
			zap.Uint64("evses_updated", opSummary.EVSEsUpdated),
			zap.Uint64("skipped", opSummary.Skipped),
		)
	}

	r.log.Info("Data cycle reconciled",
		zap.Int("operators", summary.Operators),
		zap.Int("operators_filtered", summary.OperatorsFiltered),
		zap.Uint64("pools_created", summary.PoolsCreated),
		zap.Uint64("stations_created", summary.StationsCreated),
		zap.Uint64("evses_created", summary.EVSEsCreated),
		zap.Uint64("evses_updated", summary.EVSEsUpdated),
		zap.Uint64("skipped", summary.Skipped),
	)
	return summary
}

func (r *Reconciler) reconcileOperator(ctx context.Context, operatorID domain.OperatorID, records []domain.EVSEDataRecord, index map[domain.EVSEID]EVSEInfo) DataSummary {
	var summary DataSummary

	for i := range records {
		if ctx.Err() != nil {
			break
		}
		rec := &records[i]

		evseID, err := domain.ParseEVSEID(rec.EVSEID)
		if err != nil {
			// Already counted as skipped by BuildIndex.
			continue
		}
		info, ok := index[evseID]
		if !ok || info.EVSEID != evseID {
			continue
		}

		if !r.applyRecord(rec, info, &summary) {
			summary.Skipped++
		}
	}

	return summary
}

// applyRecord creates or updates the pool/station/EVSE cascade for one
// record. Panics from malformed nested fields are confined to the record.
func (r *Reconciler) applyRecord(rec *domain.EVSEDataRecord, info EVSEInfo, summary *DataSummary) (ok bool) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("Record reconciliation panicked", zap.Any("panic", p))
			ok = false
		}
	}()

	_, created := r.graph.GetOrCreatePool(domain.Pool{
		ID:                  info.PoolID,
		OperatorID:          info.EVSEID.OperatorID(),
		Name:                rec.StationName,
		Address:             rec.Address,
		GeoCoordinate:       rec.GeoCoordinate,
		AuthenticationModes: rec.AuthenticationModes,
		PaymentOptions:      rec.PaymentOptions,
		Accessibility:       rec.Accessibility,
		HotlinePhoneNumber:  rec.HotlinePhoneNumber,
		IsOpen24Hours:       rec.IsOpen24Hours,
		OpeningTimes:        rec.OpeningTimes,
	})
	countEntity(summary, "pool", created)

	_, created = r.graph.GetOrCreateStation(domain.Station{
		ID:                  info.StationID,
		PoolID:              info.PoolID,
		Name:                rec.StationName,
		AuthenticationModes: rec.AuthenticationModes,
		IsHubjectCompatible: rec.IsHubjectCompatible,
		DynamicInfoAvail:    rec.DynamicInfoAvail,
	})
	countEntity(summary, "station", created)

	_, created = r.graph.GetOrCreateEVSE(domain.EVSE{
		ID:            info.EVSEID,
		StationID:     info.StationID,
		Plugs:         rec.Plugs,
		ChargingModes: rec.ChargingModes,
		MaxCapacityKW: rec.MaxCapacityKW,
	})
	countEntity(summary, "evse", created)

	return true
}

func countEntity(summary *DataSummary, level string, created bool) {
	action := "updated"
	if created {
		action = "created"
	}
	telemetry.ReconciledRecords.WithLabelValues(level, action).Inc()

	switch level {
	case "pool":
		if created {
			summary.PoolsCreated++
		} else {
			summary.PoolsUpdated++
		}
	case "station":
		if created {
			summary.StationsCreated++
		} else {
			summary.StationsUpdated++
		}
	case "evse":
		if created {
			summary.EVSEsCreated++
		} else {
			summary.EVSEsUpdated++
		}
	}
}

// ReconcileStatus applies a status batch to the graph. Only known EVSEs are
// touched; a status equal to the cached value counts as skipped so no
// redundant change notification leaves the bridge. The applied changes are
// appended to the change sink and published on the queue.
func (r *Reconciler) ReconcileStatus(ctx context.Context, records []domain.EVSEStatusRecord) StatusSummary {
	var summary StatusSummary

	for i := range records {
		if ctx.Err() != nil {
			r.log.Warn("Status reconciliation cancelled", zap.Error(ctx.Err()))
			break
		}
		rec := &records[i]

		evseID, err := domain.ParseEVSEID(rec.EVSEID)
		if err != nil {
			summary.Skipped++
			r.log.Warn("Skipping status record with invalid EVSE id",
				zap.String("evse_id", rec.EVSEID),
				zap.Error(err),
			)
			continue
		}

		if _, known := r.graph.TryGetEVSE(evseID); !known {
			summary.Skipped++
			continue
		}

		ts := rec.Timestamp
		if ts.IsZero() {
			ts = nowFunc()
		}
		if !r.graph.UpdateEVSEStatus(evseID, rec.Status, ts) {
			summary.Skipped++
			continue
		}

		summary.Updated++
		telemetry.EVSEStatusChanges.Inc()
		summary.Changes = append(summary.Changes, domain.StatusChange{
			EVSEID:    evseID,
			Status:    rec.Status,
			Timestamp: ts,
		})
	}

	if len(summary.Changes) > 0 {
		if r.sink != nil {
			if err := r.sink.Append(summary.Changes); err != nil {
				r.log.Error("Failed to append status changes to audit log", zap.Error(err))
			}
		}
		if r.mq != nil {
			r.publishChanges(summary.Changes)
		}
	}

	r.log.Info("Status cycle reconciled",
		zap.Uint64("updated", summary.Updated),
		zap.Uint64("skipped", summary.Skipped),
	)
	return summary
}

func (r *Reconciler) publishChanges(changes []domain.StatusChange) {
	for i := range changes {
		payload, err := json.Marshal(&changes[i])
		if err != nil {
			r.log.Error("Failed to encode status change", zap.Error(err))
			continue
		}
		if err := r.mq.Publish(StatusChangeSubject, payload); err != nil {
			r.log.Error("Failed to publish status change",
				zap.String("evse_id", changes[i].EVSEID.String()),
				zap.Error(err),
			)
		}
	}
}

type operatorGroup struct {
	id      string
	name    string
	records []domain.EVSEDataRecord
}

// groupByOperator buckets records by operator id and orders the groups by
// display name, then id, so cycle logs are reproducible.
func groupByOperator(records []domain.EVSEDataRecord) []operatorGroup {
	byID := make(map[string]*operatorGroup)
	for i := range records {
		rec := &records[i]
		g, ok := byID[rec.OperatorID]
		if !ok {
			g = &operatorGroup{id: rec.OperatorID, name: rec.OperatorName}
			byID[rec.OperatorID] = g
		}
		if g.name == "" {
			g.name = rec.OperatorName
		}
		g.records = append(g.records, *rec)
	}

	groups := make([]operatorGroup, 0, len(byID))
	for _, g := range byID {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].name != groups[j].name {
			return groups[i].name < groups[j].name
		}
		return groups[i].id < groups[j].id
	})
	return groups
}
