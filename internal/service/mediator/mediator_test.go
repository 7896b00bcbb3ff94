package mediator

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/evroam/oicp-bridge/internal/domain"
	"github.com/evroam/oicp-bridge/internal/mocks"
	"github.com/evroam/oicp-bridge/internal/ports"
	"github.com/evroam/oicp-bridge/internal/service/events"
)

func newTestMediator(auth ports.Authorizer, archive ports.CDRArchive) (*Mediator, *events.Bus) {
	bus := events.NewBus(zap.NewNop())
	return NewMediator(auth, archive, bus, zap.NewNop()), bus
}

func TestHandleAuthorizeStartAuthorized(t *testing.T) {
	auth := &mocks.MockAuthorizer{
		AuthorizeStartFunc: func(ctx context.Context, req ports.AuthorizeStartRequest) (domain.AuthStartResult, error) {
			return domain.AuthStartResult{
				Result:              domain.AuthStartAuthorized,
				SessionID:           "f8c7c2bf-10a8-4a9a-91a4-c7c2d3a4e5f6",
				ProviderID:          "DE-GDF",
				AuthStopIdentifiers: []string{"11223344", "55667788"},
			}, nil
		},
	}
	med, bus := newTestMediator(auth, nil)

	resp := med.HandleAuthorizeStart(context.Background(), ports.AuthorizeStartRequest{
		EVSEID:         "DE*GEF*E1234567*A*1",
		Identification: "11223344",
	})

	if resp.Variant != RespAuthorized {
		t.Fatalf("variant = %s, want Authorized", resp.Variant)
	}
	if resp.SessionID != "f8c7c2bf-10a8-4a9a-91a4-c7c2d3a4e5f6" {
		t.Errorf("session id = %s", resp.SessionID)
	}
	if resp.ProviderID != "DE-GDF" {
		t.Errorf("provider id = %s, want DE-GDF", resp.ProviderID)
	}
	if len(resp.StopIdentifications) != 2 ||
		resp.StopIdentifications[0] != "11223344" ||
		resp.StopIdentifications[1] != "55667788" {
		t.Errorf("stop identifications = %v, want [11223344 55667788]", resp.StopIdentifications)
	}

	c := bus.Stats().Of(events.OpAuthorizeStart)
	if c.RequestsOK.Load() != 1 || c.ResponsesOK.Load() != 1 {
		t.Errorf("counters = req %d / resp %d, want 1 / 1", c.RequestsOK.Load(), c.ResponsesOK.Load())
	}
}

func TestHandleAuthorizeStartVariants(t *testing.T) {
	cases := []struct {
		result domain.AuthStartResultType
		want   ResponseVariant
	}{
		{domain.AuthStartNotAuthorized, RespNotAuthorized},
		{domain.AuthStartInvalidSessionID, RespSessionIsInvalid},
		{domain.AuthStartCommunicationTimeout, RespCommunicationToEVSEFailed},
		{domain.AuthStartStartChargingTimeout, RespNoEVConnectedToEVSE},
		{domain.AuthStartReserved, RespEVSEAlreadyReserved},
		{domain.AuthStartUnknownLocation, RespUnknownEVSEID},
		{domain.AuthStartOutOfService, RespEVSEOutOfService},
		{domain.AuthStartResultType("SomethingNew"), RespServiceNotAvailable},
	}

	for _, tc := range cases {
		t.Run(string(tc.result), func(t *testing.T) {
			auth := &mocks.MockAuthorizer{
				AuthorizeStartFunc: func(ctx context.Context, req ports.AuthorizeStartRequest) (domain.AuthStartResult, error) {
					return domain.AuthStartResult{Result: tc.result}, nil
				},
			}
			med, _ := newTestMediator(auth, nil)

			resp := med.HandleAuthorizeStart(context.Background(), ports.AuthorizeStartRequest{})
			if resp.Variant != tc.want {
				t.Errorf("variant = %s, want %s", resp.Variant, tc.want)
			}
		})
	}
}

func TestHandleAuthorizeStartDomainError(t *testing.T) {
	auth := &mocks.MockAuthorizer{
		AuthorizeStartFunc: func(ctx context.Context, req ports.AuthorizeStartRequest) (domain.AuthStartResult, error) {
			return domain.AuthStartResult{}, errors.New("session store down")
		},
	}
	med, bus := newTestMediator(auth, nil)

	resp := med.HandleAuthorizeStart(context.Background(), ports.AuthorizeStartRequest{})
	if resp.Variant != RespServiceNotAvailable {
		t.Errorf("variant = %s, want ServiceNotAvailable", resp.Variant)
	}
	if bus.Stats().Of(events.OpAuthorizeStart).ResponsesError.Load() != 1 {
		t.Error("error response not counted")
	}
}

func TestHandleAuthorizeStopVariants(t *testing.T) {
	cases := []struct {
		result domain.AuthStopResultType
		want   ResponseVariant
	}{
		{domain.AuthStopAuthorized, RespAuthorized},
		{domain.AuthStopInvalidSessionID, RespSessionIsInvalid},
		{domain.AuthStopCommunicationTimeout, RespCommunicationToEVSEFailed},
		{domain.AuthStopStopChargingTimeout, RespNoEVConnectedToEVSE},
		{domain.AuthStopUnknownLocation, RespUnknownEVSEID},
		{domain.AuthStopOutOfService, RespEVSEOutOfService},
		{domain.AuthStopNotAuthorized, RespServiceNotAvailable},
	}

	for _, tc := range cases {
		t.Run(string(tc.result), func(t *testing.T) {
			auth := &mocks.MockAuthorizer{
				AuthorizeStopFunc: func(ctx context.Context, req ports.AuthorizeStopRequest) (domain.AuthStopResult, error) {
					return domain.AuthStopResult{Result: tc.result}, nil
				},
			}
			med, _ := newTestMediator(auth, nil)

			resp := med.HandleAuthorizeStop(context.Background(), ports.AuthorizeStopRequest{})
			if resp.Variant != tc.want {
				t.Errorf("variant = %s, want %s", resp.Variant, tc.want)
			}
		})
	}
}

func TestHandleChargeDetailRecordSuccess(t *testing.T) {
	var archived *domain.ChargeDetailRecord
	archive := &mocks.MockCDRArchive{
		SaveFunc: func(ctx context.Context, cdr *domain.ChargeDetailRecord) error {
			archived = cdr
			return nil
		},
	}
	auth := &mocks.MockAuthorizer{}
	med, _ := newTestMediator(auth, archive)

	resp := med.HandleChargeDetailRecord(context.Background(), domain.ChargeDetailRecord{SessionID: "s-1"})
	if resp.Variant != RespSuccess {
		t.Errorf("variant = %s, want Success", resp.Variant)
	}
	if archived == nil || archived.SessionID != "s-1" {
		t.Error("CDR was not archived")
	}
}

func TestHandleChargeDetailRecordInvalidSession(t *testing.T) {
	auth := &mocks.MockAuthorizer{
		SendChargeDetailRecordsFunc: func(ctx context.Context, cdrs []domain.ChargeDetailRecord) (domain.SendCDRsResult, error) {
			return domain.SendCDRsResult{
				Result: domain.CDRResultError,
				Items: []domain.CDRItemResult{
					{SessionID: cdrs[0].SessionID, Result: domain.CDRResultInvalidSessionID},
				},
			}, nil
		},
	}
	med, _ := newTestMediator(auth, nil)

	resp := med.HandleChargeDetailRecord(context.Background(), domain.ChargeDetailRecord{SessionID: "bogus"})
	if resp.Variant != RespSessionIsInvalid {
		t.Errorf("variant = %s, want SessionIsInvalid", resp.Variant)
	}
}

func TestHandleChargeDetailRecordArchiveFailureIsNonFatal(t *testing.T) {
	archive := &mocks.MockCDRArchive{
		SaveFunc: func(ctx context.Context, cdr *domain.ChargeDetailRecord) error {
			return errors.New("database gone")
		},
	}
	med, _ := newTestMediator(&mocks.MockAuthorizer{}, archive)

	resp := med.HandleChargeDetailRecord(context.Background(), domain.ChargeDetailRecord{SessionID: "s-1"})
	if resp.Variant != RespSuccess {
		t.Errorf("variant = %s, want Success despite archive failure", resp.Variant)
	}
}
