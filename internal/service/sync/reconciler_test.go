package sync

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/evroam/oicp-bridge/internal/domain"
	"github.com/evroam/oicp-bridge/internal/graph"
	"github.com/evroam/oicp-bridge/internal/mocks"
)

type captureSink struct {
	batches [][]domain.StatusChange
}

func (c *captureSink) Append(changes []domain.StatusChange) error {
	c.batches = append(c.batches, changes)
	return nil
}

func TestReconcileDataIsIdempotent(t *testing.T) {
	store := graph.NewStore(zap.NewNop())
	rec := NewReconciler(store, nil, nil, nil, zap.NewNop())

	records := []domain.EVSEDataRecord{
		dataRecord("DE*GEF*E1234567*A*1"),
		dataRecord("DE*GEF*E1234567*A*2"),
	}

	first := rec.ReconcileData(context.Background(), records)
	if first.EVSEsCreated != 2 {
		t.Fatalf("first pass created %d EVSEs, want 2", first.EVSEsCreated)
	}
	if first.PoolsCreated != 1 {
		t.Fatalf("first pass created %d pools, want 1", first.PoolsCreated)
	}

	second := rec.ReconcileData(context.Background(), records)
	if second.EVSEsCreated != 0 || second.PoolsCreated != 0 || second.StationsCreated != 0 {
		t.Errorf("second pass created entities: %+v", second)
	}
	if second.EVSEsUpdated != 2 {
		t.Errorf("second pass updated %d EVSEs, want 2", second.EVSEsUpdated)
	}
}

func TestReconcileDataIsolatesBadRecords(t *testing.T) {
	store := graph.NewStore(zap.NewNop())
	rec := NewReconciler(store, nil, nil, nil, zap.NewNop())

	records := []domain.EVSEDataRecord{
		dataRecord("DE*GEF*E1234567*A*1"),
		dataRecord("broken"),
		dataRecord("DE*GEF*E1234567*A*2"),
	}

	summary := rec.ReconcileData(context.Background(), records)
	if summary.EVSEsCreated != 2 {
		t.Errorf("created %d EVSEs, want 2", summary.EVSEsCreated)
	}
	if summary.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", summary.Skipped)
	}
}

func TestReconcileDataOperatorFilter(t *testing.T) {
	store := graph.NewStore(zap.NewNop())
	filter := func(name string, id domain.OperatorID) bool { return id != "DE*BDO" }
	rec := NewReconciler(store, filter, nil, nil, zap.NewNop())

	blocked := dataRecord("DE*BDO*E55*1")
	blocked.OperatorID = "DE*BDO"
	blocked.OperatorName = "Blocked Operator"

	summary := rec.ReconcileData(context.Background(), []domain.EVSEDataRecord{
		dataRecord("DE*GEF*E1234567*A*1"),
		blocked,
	})

	if summary.OperatorsFiltered != 1 {
		t.Errorf("operators filtered = %d, want 1", summary.OperatorsFiltered)
	}
	if _, known := store.TryGetEVSE("DE*BDO*E55*1"); known {
		t.Error("filtered operator's EVSE entered the graph")
	}
	if _, known := store.TryGetEVSE("DE*GEF*E1234567*A*1"); !known {
		t.Error("admitted operator's EVSE missing from the graph")
	}
}

func TestReconcileStatusAppliesAndNotifies(t *testing.T) {
	store := graph.NewStore(zap.NewNop())
	sink := &captureSink{}
	mq := &mocks.MockMessageQueue{}
	rec := NewReconciler(store, nil, sink, mq, zap.NewNop())

	rec.ReconcileData(context.Background(), []domain.EVSEDataRecord{dataRecord("DE*GEF*E1234567*A*1")})

	ts := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	summary := rec.ReconcileStatus(context.Background(), []domain.EVSEStatusRecord{
		{EVSEID: "DE*GEF*E1234567*A*1", Status: domain.EVSEStatusAvailable, Timestamp: ts},
	})

	if summary.Updated != 1 {
		t.Fatalf("updated = %d, want 1", summary.Updated)
	}
	if len(sink.batches) != 1 || len(sink.batches[0]) != 1 {
		t.Fatalf("sink got %d batches, want 1 batch of 1", len(sink.batches))
	}
	if len(mq.Published) != 1 {
		t.Fatalf("published %d messages, want 1", len(mq.Published))
	}
	if mq.Published[0].Subject != StatusChangeSubject {
		t.Errorf("subject = %s, want %s", mq.Published[0].Subject, StatusChangeSubject)
	}
	var change domain.StatusChange
	if err := json.Unmarshal(mq.Published[0].Data, &change); err != nil {
		t.Fatalf("published payload not decodable: %v", err)
	}
	if change.Status != domain.EVSEStatusAvailable {
		t.Errorf("published status = %s, want Available", change.Status)
	}
}

func TestReconcileStatusSkipsNoopAndUnknown(t *testing.T) {
	store := graph.NewStore(zap.NewNop())
	sink := &captureSink{}
	mq := &mocks.MockMessageQueue{}
	rec := NewReconciler(store, nil, sink, mq, zap.NewNop())

	rec.ReconcileData(context.Background(), []domain.EVSEDataRecord{dataRecord("DE*GEF*E1234567*A*1")})
	rec.ReconcileStatus(context.Background(), []domain.EVSEStatusRecord{
		{EVSEID: "DE*GEF*E1234567*A*1", Status: domain.EVSEStatusOccupied},
	})

	// Same status again plus a status for an EVSE the graph never saw.
	summary := rec.ReconcileStatus(context.Background(), []domain.EVSEStatusRecord{
		{EVSEID: "DE*GEF*E1234567*A*1", Status: domain.EVSEStatusOccupied},
		{EVSEID: "DE*GEF*E9999999*A*1", Status: domain.EVSEStatusAvailable},
	})

	if summary.Updated != 0 {
		t.Errorf("updated = %d, want 0", summary.Updated)
	}
	if summary.Skipped != 2 {
		t.Errorf("skipped = %d, want 2", summary.Skipped)
	}
	if len(sink.batches) != 1 {
		t.Errorf("sink got %d batches, want only the initial one", len(sink.batches))
	}
	if len(mq.Published) != 1 {
		t.Errorf("published %d messages, want only the initial one", len(mq.Published))
	}
}
