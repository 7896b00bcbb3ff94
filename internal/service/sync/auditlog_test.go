package sync

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/evroam/oicp-bridge/internal/domain"
)

func TestAuditLogFraming(t *testing.T) {
	dir := t.TempDir()
	audit, err := NewAuditLog(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("NewAuditLog: %v", err)
	}

	ts := time.Date(2024, 5, 10, 12, 30, 0, 0, time.UTC)
	err = audit.Append([]domain.StatusChange{
		{EVSEID: "DE*GEF*E1234567*A*1", Status: domain.EVSEStatusAvailable, Timestamp: ts},
		{EVSEID: "DE*GEF*E1234567*A*2", Status: domain.EVSEStatusOccupied, Timestamp: ts.Add(time.Minute)},
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "EVSEStatusChanges_2024-05.log"))
	if err != nil {
		t.Fatalf("reading audit file: %v", err)
	}

	want := "2024-05-10T12:30:00Z\x1eDE*GEF*E1234567*A*1\x1eAvailable\x1f" +
		"2024-05-10T12:31:00Z\x1eDE*GEF*E1234567*A*2\x1eOccupied\x1f"
	if string(raw) != want {
		t.Errorf("audit file content = %q, want %q", raw, want)
	}
}

func TestAuditLogRoutesByMonth(t *testing.T) {
	dir := t.TempDir()
	audit, err := NewAuditLog(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("NewAuditLog: %v", err)
	}

	err = audit.Append([]domain.StatusChange{
		{EVSEID: "DE*GEF*E1*1", Status: domain.EVSEStatusAvailable, Timestamp: time.Date(2024, 4, 30, 23, 59, 0, 0, time.UTC)},
		{EVSEID: "DE*GEF*E1*1", Status: domain.EVSEStatusOccupied, Timestamp: time.Date(2024, 5, 1, 0, 1, 0, 0, time.UTC)},
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	for _, name := range []string{"EVSEStatusChanges_2024-04.log", "EVSEStatusChanges_2024-05.log"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}
}

func TestAuditLogAppendIsAppendOnly(t *testing.T) {
	dir := t.TempDir()
	audit, _ := NewAuditLog(dir, zap.NewNop())

	ts := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	change := domain.StatusChange{EVSEID: "DE*GEF*E1*1", Status: domain.EVSEStatusAvailable, Timestamp: ts}

	if err := audit.Append([]domain.StatusChange{change}); err != nil {
		t.Fatalf("first append: %v", err)
	}
	if err := audit.Append([]domain.StatusChange{change}); err != nil {
		t.Fatalf("second append: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "EVSEStatusChanges_2024-05.log"))
	if err != nil {
		t.Fatalf("reading audit file: %v", err)
	}
	records := 0
	for _, b := range raw {
		if b == recordEnd {
			records++
		}
	}
	if records != 2 {
		t.Errorf("records = %d, want 2", records)
	}
}
