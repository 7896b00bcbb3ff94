package roaming

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/evroam/oicp-bridge/internal/domain"
	"github.com/evroam/oicp-bridge/internal/ports"
)

// ErrInvalidArgument marks caller contract violations at the facade
// boundary; runtime and network conditions come back as result values.
var ErrInvalidArgument = errors.New("invalid argument")

// Service is the outbound command facade: it builds protocol requests from
// local reservation/session state, invokes the roaming client and converts
// the protocol outcome into domain result types.
type Service struct {
	client       ports.RoamingClient
	sessions     ports.SessionStore
	reservations ports.ReservationStore
	log          *zap.Logger
}

func NewService(client ports.RoamingClient, sessions ports.SessionStore, reservations ports.ReservationStore, log *zap.Logger) *Service {
	return &Service{
		client:       client,
		sessions:     sessions,
		reservations: reservations,
		log:          log,
	}
}

type ReserveRequest struct {
	EVSEID         domain.EVSEID
	Identification string
	ProductID      string
	StartTime      *time.Time
	Duration       time.Duration
	Options        ports.CallOptions
}

// Reserve books the EVSE at the hub. The charging location must resolve to
// exactly one EVSE id. On success the local reservation id is the EVSE's
// operator id, the literal "*R" marker and the remote session id,
// concatenated without separators.
func (s *Service) Reserve(ctx context.Context, req ReserveRequest) (domain.ReserveResult, error) {
	if req.EVSEID == "" {
		return domain.ReserveResult{}, fmt.Errorf("%w: charging location does not resolve to an EVSE", ErrInvalidArgument)
	}

	productID := ProductSpec{
		ProductID: req.ProductID,
		StartTime: req.StartTime,
		Duration:  req.Duration,
	}.Encode()

	res, err := s.client.ReservationStart(ctx, ports.ReservationStartRequest{
		EVSEID:           req.EVSEID,
		Identification:   req.Identification,
		PartnerProductID: productID,
		Options:          req.Options,
	})
	if err != nil {
		return domain.ReserveResult{}, err
	}
	if !res.Successful() {
		return domain.ReserveResult{
			Result:      domain.CommandError,
			Description: transportStatus(res.CallResult),
		}, nil
	}

	reservationID := domain.ReservationID(req.EVSEID.OperatorID(), res.SessionID)
	reservation := &domain.Reservation{
		ID:              reservationID,
		RemoteSessionID: res.SessionID,
		EVSEID:          req.EVSEID,
		ProviderID:      req.Options.ProviderID,
		ProductID:       req.ProductID,
		Duration:        req.Duration,
		Status:          domain.ReservationStatusActive,
		CreatedAt:       time.Now(),
	}
	if req.StartTime != nil {
		reservation.StartTime = *req.StartTime
	}
	if err := s.reservations.Save(ctx, reservation); err != nil {
		s.log.Error("Failed to persist reservation",
			zap.String("reservation_id", reservationID),
			zap.Error(err),
		)
	}

	return domain.ReserveResult{Result: domain.CommandSuccess, ReservationID: reservationID}, nil
}

// CancelReservation stops a reservation at the hub. The cancellation request
// carries only the reservation id, so provider and EVSE context are
// recovered from the stored reservation.
func (s *Service) CancelReservation(ctx context.Context, reservationID string, opts ports.CallOptions) (domain.CancelReservationResult, error) {
	if reservationID == "" {
		return domain.CancelReservationResult{}, fmt.Errorf("%w: missing reservation id", ErrInvalidArgument)
	}

	reservation, err := s.reservations.TryGet(ctx, reservationID)
	if err != nil {
		return domain.CancelReservationResult{}, err
	}
	if reservation == nil {
		return domain.CancelReservationResult{
			Result:      domain.CommandError,
			Description: "unknown reservation " + reservationID,
		}, nil
	}

	if opts.ProviderID == "" {
		opts.ProviderID = reservation.ProviderID
	}
	res, err := s.client.ReservationStop(ctx, ports.ReservationStopRequest{
		EVSEID:    reservation.EVSEID,
		SessionID: reservation.RemoteSessionID,
		Options:   opts,
	})
	if err != nil {
		return domain.CancelReservationResult{}, err
	}
	if !res.Successful() {
		return domain.CancelReservationResult{
			Result:      domain.CommandError,
			Description: transportStatus(res.CallResult),
		}, nil
	}

	reservation.Status = domain.ReservationStatusCancelled
	if err := s.reservations.Save(ctx, reservation); err != nil {
		s.log.Error("Failed to update cancelled reservation", zap.Error(err))
	}
	return domain.CancelReservationResult{Result: domain.CommandSuccess}, nil
}

type RemoteStartRequest struct {
	EVSEID         domain.EVSEID
	Identification string
	ProductID      string
	StartTime      *time.Time
	Duration       time.Duration
	ReservationID  string
	Options        ports.CallOptions
}

// RemoteStart begins a charging session at the hub.
func (s *Service) RemoteStart(ctx context.Context, req RemoteStartRequest) (domain.RemoteStartResult, error) {
	if req.EVSEID == "" {
		return domain.RemoteStartResult{}, fmt.Errorf("%w: charging location does not resolve to an EVSE", ErrInvalidArgument)
	}

	productID := ProductSpec{
		ProductID:     req.ProductID,
		StartTime:     req.StartTime,
		Duration:      req.Duration,
		ReservationID: req.ReservationID,
	}.Encode()

	res, err := s.client.RemoteStart(ctx, ports.RemoteStartRequest{
		EVSEID:           req.EVSEID,
		Identification:   req.Identification,
		PartnerProductID: productID,
		Options:          req.Options,
	})
	if err != nil {
		return domain.RemoteStartResult{}, err
	}
	if !res.Successful() {
		return domain.RemoteStartResult{
			Result:      domain.CommandError,
			Description: transportStatus(res.CallResult),
		}, nil
	}

	sessionID := domain.ReservationID(req.EVSEID.OperatorID(), res.SessionID)
	session := &domain.ChargingSession{
		ID:              sessionID,
		RemoteSessionID: res.SessionID,
		EVSEID:          req.EVSEID,
		ProviderID:      req.Options.ProviderID,
		Identification:  req.Identification,
		Status:          domain.SessionStatusActive,
		StartedAt:       time.Now(),
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		s.log.Error("Failed to persist charging session",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
	}

	return domain.RemoteStartResult{Result: domain.CommandSuccess, SessionID: sessionID}, nil
}

type RemoteStopRequest struct {
	SessionID      string
	Identification string
	Options        ports.CallOptions
}

// RemoteStop ends a charging session. The remote identification must carry a
// resolvable account id; the active session provides the EVSE id the stop
// request needs.
func (s *Service) RemoteStop(ctx context.Context, req RemoteStopRequest) (domain.RemoteStopResult, error) {
	if req.Identification == "" {
		return domain.RemoteStopResult{}, fmt.Errorf("%w: remote identification has no resolvable account id", ErrInvalidArgument)
	}
	if req.SessionID == "" {
		return domain.RemoteStopResult{}, fmt.Errorf("%w: missing session id", ErrInvalidArgument)
	}

	session, err := s.sessions.TryGet(ctx, req.SessionID)
	if err != nil {
		return domain.RemoteStopResult{}, err
	}
	if session == nil {
		return domain.RemoteStopResult{
			Result:      domain.CommandError,
			Description: "unknown session " + req.SessionID,
		}, nil
	}

	opts := req.Options
	if opts.ProviderID == "" {
		opts.ProviderID = session.ProviderID
	}
	res, err := s.client.RemoteStop(ctx, ports.RemoteStopRequest{
		EVSEID:    session.EVSEID,
		SessionID: session.RemoteSessionID,
		Options:   opts,
	})
	if err != nil {
		return domain.RemoteStopResult{}, err
	}
	if !res.Successful() {
		return domain.RemoteStopResult{
			Result:      domain.CommandError,
			SessionID:   req.SessionID,
			Description: transportStatus(res.CallResult),
		}, nil
	}

	now := time.Now()
	session.Status = domain.SessionStatusStopped
	session.StoppedAt = &now
	if err := s.sessions.Save(ctx, session); err != nil {
		s.log.Error("Failed to update stopped session", zap.Error(err))
	}

	return domain.RemoteStopResult{Result: domain.CommandSuccess, SessionID: req.SessionID}, nil
}

// GetChargeDetailRecords pulls CDRs for a date range. Per-record conversion
// failures are isolated inside the client and logged as warnings; the batch
// is never aborted by one bad record.
func (s *Service) GetChargeDetailRecords(ctx context.Context, from, to time.Time, opts ports.CallOptions) ([]domain.ChargeDetailRecord, error) {
	if !to.After(from) {
		return nil, fmt.Errorf("%w: empty date range", ErrInvalidArgument)
	}

	res, err := s.client.GetChargeDetailRecords(ctx, ports.GetCDRsRequest{From: from, To: to, Options: opts})
	if err != nil {
		return nil, err
	}
	if !res.Successful() {
		return nil, fmt.Errorf("charge detail record pull rejected: %s", transportStatus(res.CallResult))
	}
	return res.Records, nil
}

// PushAuthenticationData uploads the provider's token list to the hub.
func (s *Service) PushAuthenticationData(ctx context.Context, identifications []string, action string, opts ports.CallOptions) (domain.CommandResultType, error) {
	if len(identifications) == 0 {
		return domain.CommandError, fmt.Errorf("%w: no identifications to push", ErrInvalidArgument)
	}

	res, err := s.client.PushAuthenticationData(ctx, ports.PushAuthDataRequest{
		Identifications: identifications,
		Action:          action,
		Options:         opts,
	})
	if err != nil {
		return domain.CommandError, err
	}
	if !res.Successful() {
		return domain.CommandError, nil
	}
	return domain.CommandSuccess, nil
}

func transportStatus(res ports.CallResult) string {
	if res.Description != "" {
		return fmt.Sprintf("%d %s", res.StatusCode, res.Description)
	}
	return fmt.Sprintf("%d", res.StatusCode)
}
