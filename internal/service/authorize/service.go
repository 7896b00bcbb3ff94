package authorize

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evroam/oicp-bridge/internal/domain"
	"github.com/evroam/oicp-bridge/internal/ports"
)

// Service is a reference implementation of the local authorization domain:
// a configured token allowlist plus the shared session store. Deployments
// with a full EMP backend replace this via the ports.Authorizer interface.
type Service struct {
	graph      ports.EntityGraph
	sessions   ports.SessionStore
	providerID domain.ProviderID
	allowed    map[string]struct{}
	log        *zap.Logger
}

func NewService(graph ports.EntityGraph, sessions ports.SessionStore, providerID domain.ProviderID, allowedUIDs []string, log *zap.Logger) *Service {
	allowed := make(map[string]struct{}, len(allowedUIDs))
	for _, uid := range allowedUIDs {
		allowed[uid] = struct{}{}
	}
	return &Service{
		graph:      graph,
		sessions:   sessions,
		providerID: providerID,
		allowed:    allowed,
		log:        log,
	}
}

func (s *Service) AuthorizeStart(ctx context.Context, req ports.AuthorizeStartRequest) (domain.AuthStartResult, error) {
	if req.EVSEID != "" {
		evse, known := s.graph.TryGetEVSE(req.EVSEID)
		if !known {
			return domain.AuthStartResult{Result: domain.AuthStartUnknownLocation}, nil
		}
		switch evse.Status {
		case domain.EVSEStatusOutOfService:
			return domain.AuthStartResult{Result: domain.AuthStartOutOfService}, nil
		case domain.EVSEStatusReserved:
			return domain.AuthStartResult{Result: domain.AuthStartReserved}, nil
		}
	}

	if _, ok := s.allowed[req.Identification]; !ok {
		return domain.AuthStartResult{Result: domain.AuthStartNotAuthorized}, nil
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	session := &domain.ChargingSession{
		ID:             sessionID,
		EVSEID:         req.EVSEID,
		ProviderID:     s.providerID,
		Identification: req.Identification,
		Status:         domain.SessionStatusActive,
		StartedAt:      nowFunc(),
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return domain.AuthStartResult{}, err
	}

	return domain.AuthStartResult{
		Result:              domain.AuthStartAuthorized,
		SessionID:           sessionID,
		ProviderID:          s.providerID,
		AuthStopIdentifiers: []string{req.Identification},
	}, nil
}

func (s *Service) AuthorizeStop(ctx context.Context, req ports.AuthorizeStopRequest) (domain.AuthStopResult, error) {
	if req.SessionID == "" {
		return domain.AuthStopResult{Result: domain.AuthStopInvalidSessionID}, nil
	}

	session, err := s.sessions.TryGet(ctx, req.SessionID)
	if err != nil {
		return domain.AuthStopResult{}, err
	}
	if session == nil {
		return domain.AuthStopResult{Result: domain.AuthStopInvalidSessionID}, nil
	}

	if req.EVSEID != "" {
		if _, known := s.graph.TryGetEVSE(req.EVSEID); !known {
			return domain.AuthStopResult{Result: domain.AuthStopUnknownLocation}, nil
		}
	}

	now := nowFunc()
	session.Status = domain.SessionStatusStopped
	session.StoppedAt = &now
	if err := s.sessions.Save(ctx, session); err != nil {
		return domain.AuthStopResult{}, err
	}

	return domain.AuthStopResult{
		Result:     domain.AuthStopAuthorized,
		SessionID:  session.ID,
		ProviderID: session.ProviderID,
	}, nil
}

// SendChargeDetailRecords accepts a batch and reports a per-item result in
// input order. A CDR referencing an unknown session is rejected with
// InvalidSessionId; the rest of the batch proceeds.
func (s *Service) SendChargeDetailRecords(ctx context.Context, cdrs []domain.ChargeDetailRecord) (domain.SendCDRsResult, error) {
	result := domain.SendCDRsResult{Result: domain.CDRResultSuccess}

	for i := range cdrs {
		cdr := &cdrs[i]
		item := domain.CDRItemResult{SessionID: cdr.SessionID, Result: domain.CDRResultSuccess}

		session, err := s.sessions.TryGet(ctx, cdr.SessionID)
		if err != nil {
			return domain.SendCDRsResult{}, err
		}
		if session == nil {
			item.Result = domain.CDRResultInvalidSessionID
			item.Reason = "unknown session"
			result.Result = domain.CDRResultError
			s.log.Warn("CDR references unknown session", zap.String("session_id", cdr.SessionID))
		}

		result.Items = append(result.Items, item)
	}

	return result, nil
}
