package roaming

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/evroam/oicp-bridge/internal/domain"
	"github.com/evroam/oicp-bridge/internal/mocks"
	"github.com/evroam/oicp-bridge/internal/ports"
)

func newTestService(client ports.RoamingClient) (*Service, *mocks.MockSessionStore, *mocks.MockReservationStore) {
	sessions := &mocks.MockSessionStore{}
	reservations := &mocks.MockReservationStore{}
	return NewService(client, sessions, reservations, zap.NewNop()), sessions, reservations
}

func TestReserveComposesReservationID(t *testing.T) {
	client := &mocks.MockRoamingClient{
		ReservationStartFunc: func(ctx context.Context, req ports.ReservationStartRequest) (ports.SessionResult, error) {
			return ports.SessionResult{
				CallResult: ports.CallResult{StatusCode: 200},
				SessionID:  "abc123",
			}, nil
		},
	}
	svc, _, reservations := newTestService(client)

	var saved *domain.Reservation
	reservations.SaveFunc = func(ctx context.Context, r *domain.Reservation) error {
		saved = r
		return nil
	}

	res, err := svc.Reserve(context.Background(), ReserveRequest{
		EVSEID:         "DE*GEF*E1234567*A*1",
		Identification: "11223344",
		Duration:       15 * time.Minute,
	})
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if res.Result != domain.CommandSuccess {
		t.Fatalf("result = %s, want Success", res.Result)
	}
	if res.ReservationID != "DE*GEF*Rabc123" {
		t.Errorf("reservation id = %q, want %q", res.ReservationID, "DE*GEF*Rabc123")
	}
	if saved == nil || saved.RemoteSessionID != "abc123" {
		t.Error("reservation not persisted with the remote session id")
	}
}

func TestReserveWithoutEVSEIsContractViolation(t *testing.T) {
	svc, _, _ := newTestService(&mocks.MockRoamingClient{})

	_, err := svc.Reserve(context.Background(), ReserveRequest{Identification: "11223344"})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestReserveHubRejectionIsValue(t *testing.T) {
	client := &mocks.MockRoamingClient{
		ReservationStartFunc: func(ctx context.Context, req ports.ReservationStartRequest) (ports.SessionResult, error) {
			return ports.SessionResult{
				CallResult: ports.CallResult{StatusCode: 409, Description: "601 EVSE already reserved"},
			}, nil
		},
	}
	svc, _, _ := newTestService(client)

	res, err := svc.Reserve(context.Background(), ReserveRequest{EVSEID: "DE*GEF*E1234567*A*1"})
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if res.Result != domain.CommandError {
		t.Errorf("result = %s, want Error", res.Result)
	}
}

func TestCancelReservationRecoversContext(t *testing.T) {
	var stopReq ports.ReservationStopRequest
	client := &mocks.MockRoamingClient{
		ReservationStopFunc: func(ctx context.Context, req ports.ReservationStopRequest) (ports.AckResult, error) {
			stopReq = req
			return ports.AckResult{CallResult: ports.CallResult{StatusCode: 200}}, nil
		},
	}
	svc, _, reservations := newTestService(client)

	reservations.TryGetFunc = func(ctx context.Context, id string) (*domain.Reservation, error) {
		return &domain.Reservation{
			ID:              id,
			RemoteSessionID: "abc123",
			EVSEID:          "DE*GEF*E1234567*A*1",
			ProviderID:      "DE-GDF",
			Status:          domain.ReservationStatusActive,
		}, nil
	}
	var saved *domain.Reservation
	reservations.SaveFunc = func(ctx context.Context, r *domain.Reservation) error {
		saved = r
		return nil
	}

	res, err := svc.CancelReservation(context.Background(), "DE*GEF*Rabc123", ports.CallOptions{})
	if err != nil {
		t.Fatalf("CancelReservation: %v", err)
	}
	if res.Result != domain.CommandSuccess {
		t.Fatalf("result = %s, want Success", res.Result)
	}
	if stopReq.SessionID != "abc123" {
		t.Errorf("stop used session id %q, want the remote one", stopReq.SessionID)
	}
	if stopReq.EVSEID != "DE*GEF*E1234567*A*1" {
		t.Errorf("stop used EVSE %q", stopReq.EVSEID)
	}
	if stopReq.Options.ProviderID != "DE-GDF" {
		t.Errorf("provider not recovered from reservation: %q", stopReq.Options.ProviderID)
	}
	if saved == nil || saved.Status != domain.ReservationStatusCancelled {
		t.Error("reservation not marked cancelled")
	}
}

func TestCancelUnknownReservation(t *testing.T) {
	svc, _, _ := newTestService(&mocks.MockRoamingClient{})

	res, err := svc.CancelReservation(context.Background(), "DE*GEF*Rmissing", ports.CallOptions{})
	if err != nil {
		t.Fatalf("CancelReservation: %v", err)
	}
	if res.Result != domain.CommandError {
		t.Errorf("result = %s, want Error for unknown reservation", res.Result)
	}
}

func TestRemoteStartPacksProductID(t *testing.T) {
	var startReq ports.RemoteStartRequest
	client := &mocks.MockRoamingClient{
		RemoteStartFunc: func(ctx context.Context, req ports.RemoteStartRequest) (ports.SessionResult, error) {
			startReq = req
			return ports.SessionResult{CallResult: ports.CallResult{StatusCode: 200}, SessionID: "xyz789"}, nil
		},
	}
	svc, _, _ := newTestService(client)

	start := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	res, err := svc.RemoteStart(context.Background(), RemoteStartRequest{
		EVSEID:         "DE*GEF*E1234567*A*1",
		Identification: "11223344",
		ProductID:      "AC3",
		StartTime:      &start,
		Duration:       90 * time.Second,
		ReservationID:  "DE*GEF*Rabc123",
	})
	if err != nil {
		t.Fatalf("RemoteStart: %v", err)
	}
	if res.SessionID != "DE*GEF*Rxyz789" {
		t.Errorf("session id = %q, want DE*GEF*Rxyz789", res.SessionID)
	}

	want := "P=AC3|S=2024-05-10T12:00:00Z|D=90sec|R=DE*GEF*Rabc123"
	if startReq.PartnerProductID != want {
		t.Errorf("partner product id = %q, want %q", startReq.PartnerProductID, want)
	}
}

func TestRemoteStopFailsFastWithoutAccountID(t *testing.T) {
	svc, _, _ := newTestService(&mocks.MockRoamingClient{})

	_, err := svc.RemoteStop(context.Background(), RemoteStopRequest{SessionID: "DE*GEF*Rxyz789"})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestRemoteStopUsesStoredSession(t *testing.T) {
	var stopReq ports.RemoteStopRequest
	client := &mocks.MockRoamingClient{
		RemoteStopFunc: func(ctx context.Context, req ports.RemoteStopRequest) (ports.AckResult, error) {
			stopReq = req
			return ports.AckResult{CallResult: ports.CallResult{StatusCode: 200}}, nil
		},
	}
	svc, sessions, _ := newTestService(client)

	sessions.TryGetFunc = func(ctx context.Context, id string) (*domain.ChargingSession, error) {
		return &domain.ChargingSession{
			ID:              id,
			RemoteSessionID: "xyz789",
			EVSEID:          "DE*GEF*E1234567*A*1",
			ProviderID:      "DE-GDF",
			Status:          domain.SessionStatusActive,
			StartedAt:       time.Now(),
		}, nil
	}
	var saved *domain.ChargingSession
	sessions.SaveFunc = func(ctx context.Context, s *domain.ChargingSession) error {
		saved = s
		return nil
	}

	res, err := svc.RemoteStop(context.Background(), RemoteStopRequest{
		SessionID:      "DE*GEF*Rxyz789",
		Identification: "11223344",
	})
	if err != nil {
		t.Fatalf("RemoteStop: %v", err)
	}
	if res.Result != domain.CommandSuccess {
		t.Fatalf("result = %s, want Success", res.Result)
	}
	if stopReq.EVSEID != "DE*GEF*E1234567*A*1" || stopReq.SessionID != "xyz789" {
		t.Errorf("stop request = %+v", stopReq)
	}
	if saved == nil || saved.Status != domain.SessionStatusStopped || saved.StoppedAt == nil {
		t.Error("session not marked stopped")
	}
}

func TestGetChargeDetailRecordsRejectsEmptyRange(t *testing.T) {
	svc, _, _ := newTestService(&mocks.MockRoamingClient{})

	now := time.Now()
	_, err := svc.GetChargeDetailRecords(context.Background(), now, now, ports.CallOptions{})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("err = %v, want ErrInvalidArgument", err)
	}
}
