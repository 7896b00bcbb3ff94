package mocks

import (
	"context"

	"github.com/evroam/oicp-bridge/internal/domain"
	"github.com/evroam/oicp-bridge/internal/ports"
)

// MockRoamingClient is a mock implementation of RoamingClient
type MockRoamingClient struct {
	PullEVSEDataFunc           func(ctx context.Context, req ports.PullDataRequest) (ports.PullDataResult, error)
	PullEVSEStatusFunc         func(ctx context.Context, req ports.PullStatusRequest) (ports.PullStatusResult, error)
	PullEVSEStatusByIDFunc     func(ctx context.Context, req ports.PullStatusByIDRequest) (ports.PullStatusResult, error)
	PushAuthenticationDataFunc func(ctx context.Context, req ports.PushAuthDataRequest) (ports.AckResult, error)
	ReservationStartFunc       func(ctx context.Context, req ports.ReservationStartRequest) (ports.SessionResult, error)
	ReservationStopFunc        func(ctx context.Context, req ports.ReservationStopRequest) (ports.AckResult, error)
	RemoteStartFunc            func(ctx context.Context, req ports.RemoteStartRequest) (ports.SessionResult, error)
	RemoteStopFunc             func(ctx context.Context, req ports.RemoteStopRequest) (ports.AckResult, error)
	SendChargeDetailRecordFunc func(ctx context.Context, cdr domain.ChargeDetailRecord, opts ports.CallOptions) (ports.AckResult, error)
	GetChargeDetailRecordsFunc func(ctx context.Context, req ports.GetCDRsRequest) (ports.CDRsResult, error)
}

func (m *MockRoamingClient) PullEVSEData(ctx context.Context, req ports.PullDataRequest) (ports.PullDataResult, error) {
	if m.PullEVSEDataFunc != nil {
		return m.PullEVSEDataFunc(ctx, req)
	}
	return ports.PullDataResult{CallResult: ports.CallResult{StatusCode: 200}}, nil
}

func (m *MockRoamingClient) PullEVSEStatus(ctx context.Context, req ports.PullStatusRequest) (ports.PullStatusResult, error) {
	if m.PullEVSEStatusFunc != nil {
		return m.PullEVSEStatusFunc(ctx, req)
	}
	return ports.PullStatusResult{CallResult: ports.CallResult{StatusCode: 200}}, nil
}

func (m *MockRoamingClient) PullEVSEStatusByID(ctx context.Context, req ports.PullStatusByIDRequest) (ports.PullStatusResult, error) {
	if m.PullEVSEStatusByIDFunc != nil {
		return m.PullEVSEStatusByIDFunc(ctx, req)
	}
	return ports.PullStatusResult{CallResult: ports.CallResult{StatusCode: 200}}, nil
}

func (m *MockRoamingClient) PushAuthenticationData(ctx context.Context, req ports.PushAuthDataRequest) (ports.AckResult, error) {
	if m.PushAuthenticationDataFunc != nil {
		return m.PushAuthenticationDataFunc(ctx, req)
	}
	return ports.AckResult{CallResult: ports.CallResult{StatusCode: 200}}, nil
}

func (m *MockRoamingClient) ReservationStart(ctx context.Context, req ports.ReservationStartRequest) (ports.SessionResult, error) {
	if m.ReservationStartFunc != nil {
		return m.ReservationStartFunc(ctx, req)
	}
	return ports.SessionResult{CallResult: ports.CallResult{StatusCode: 200}}, nil
}

func (m *MockRoamingClient) ReservationStop(ctx context.Context, req ports.ReservationStopRequest) (ports.AckResult, error) {
	if m.ReservationStopFunc != nil {
		return m.ReservationStopFunc(ctx, req)
	}
	return ports.AckResult{CallResult: ports.CallResult{StatusCode: 200}}, nil
}

func (m *MockRoamingClient) RemoteStart(ctx context.Context, req ports.RemoteStartRequest) (ports.SessionResult, error) {
	if m.RemoteStartFunc != nil {
		return m.RemoteStartFunc(ctx, req)
	}
	return ports.SessionResult{CallResult: ports.CallResult{StatusCode: 200}}, nil
}

func (m *MockRoamingClient) RemoteStop(ctx context.Context, req ports.RemoteStopRequest) (ports.AckResult, error) {
	if m.RemoteStopFunc != nil {
		return m.RemoteStopFunc(ctx, req)
	}
	return ports.AckResult{CallResult: ports.CallResult{StatusCode: 200}}, nil
}

func (m *MockRoamingClient) SendChargeDetailRecord(ctx context.Context, cdr domain.ChargeDetailRecord, opts ports.CallOptions) (ports.AckResult, error) {
	if m.SendChargeDetailRecordFunc != nil {
		return m.SendChargeDetailRecordFunc(ctx, cdr, opts)
	}
	return ports.AckResult{CallResult: ports.CallResult{StatusCode: 200}}, nil
}

func (m *MockRoamingClient) GetChargeDetailRecords(ctx context.Context, req ports.GetCDRsRequest) (ports.CDRsResult, error) {
	if m.GetChargeDetailRecordsFunc != nil {
		return m.GetChargeDetailRecordsFunc(ctx, req)
	}
	return ports.CDRsResult{CallResult: ports.CallResult{StatusCode: 200}}, nil
}

// MockAuthorizer is a mock implementation of Authorizer
type MockAuthorizer struct {
	AuthorizeStartFunc          func(ctx context.Context, req ports.AuthorizeStartRequest) (domain.AuthStartResult, error)
	AuthorizeStopFunc           func(ctx context.Context, req ports.AuthorizeStopRequest) (domain.AuthStopResult, error)
	SendChargeDetailRecordsFunc func(ctx context.Context, cdrs []domain.ChargeDetailRecord) (domain.SendCDRsResult, error)
}

func (m *MockAuthorizer) AuthorizeStart(ctx context.Context, req ports.AuthorizeStartRequest) (domain.AuthStartResult, error) {
	if m.AuthorizeStartFunc != nil {
		return m.AuthorizeStartFunc(ctx, req)
	}
	return domain.AuthStartResult{Result: domain.AuthStartNotAuthorized}, nil
}

func (m *MockAuthorizer) AuthorizeStop(ctx context.Context, req ports.AuthorizeStopRequest) (domain.AuthStopResult, error) {
	if m.AuthorizeStopFunc != nil {
		return m.AuthorizeStopFunc(ctx, req)
	}
	return domain.AuthStopResult{Result: domain.AuthStopInvalidSessionID}, nil
}

func (m *MockAuthorizer) SendChargeDetailRecords(ctx context.Context, cdrs []domain.ChargeDetailRecord) (domain.SendCDRsResult, error) {
	if m.SendChargeDetailRecordsFunc != nil {
		return m.SendChargeDetailRecordsFunc(ctx, cdrs)
	}
	return domain.SendCDRsResult{Result: domain.CDRResultSuccess}, nil
}
