package hub

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/evroam/oicp-bridge/internal/domain"
	"github.com/evroam/oicp-bridge/internal/ports"
	"github.com/evroam/oicp-bridge/internal/service/mediator"
)

// Server exposes the hub-facing inbound endpoints and forwards each request
// into the mediator. It is the only subscriber expected to produce the
// protocol response.
type Server struct {
	med *mediator.Mediator
	log *zap.Logger
}

func NewServer(med *mediator.Mediator, log *zap.Logger) *Server {
	return &Server{med: med, log: log}
}

// Register mounts the OICP routes on the given fiber app.
func (s *Server) Register(app *fiber.App) {
	app.Post("/api/oicp/charging/v21/operators/:operatorID/authorize/start", s.authorizeStart)
	app.Post("/api/oicp/charging/v21/operators/:operatorID/authorize/stop", s.authorizeStop)
	app.Post("/api/oicp/cdrmgmt/v22/operators/:operatorID/charge-detail-record", s.chargeDetailRecord)
}

func (s *Server) authorizeStart(c *fiber.Ctx) error {
	var req AuthorizeStartRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(AuthorizeStartResponse{
			AuthorizationStatus: "NotAuthorized",
			StatusCode:          StatusCode{Code: CodeServiceNotAvailable, Description: "undecodable request"},
		})
	}

	operatorID, err := domain.ParseOperatorID(c.Params("operatorID"))
	if err != nil {
		operatorID, _ = domain.ParseOperatorID(req.OperatorID)
	}
	evseID, _ := domain.ParseEVSEID(req.EvseID)

	resp := s.med.HandleAuthorizeStart(c.Context(), ports.AuthorizeStartRequest{
		EVSEID:           evseID,
		Identification:   req.Identification.UID(),
		SessionID:        req.SessionID,
		PartnerProductID: req.PartnerProductID,
		OperatorID:       operatorID,
	})

	wire := AuthorizeStartResponse{
		AuthorizationStatus: "NotAuthorized",
		StatusCode:          statusCodeFor(resp.Variant),
		SessionID:           resp.SessionID,
		ProviderID:          resp.ProviderID.String(),
	}
	if resp.Variant == mediator.RespAuthorized {
		wire.AuthorizationStatus = "Authorized"
		wire.AuthorizationStopIdentifications = make([]Identification, len(resp.StopIdentifications))
		for i, uid := range resp.StopIdentifications {
			wire.AuthorizationStopIdentifications[i] = RFID(uid)
		}
	}
	return c.JSON(wire)
}

func (s *Server) authorizeStop(c *fiber.Ctx) error {
	var req AuthorizeStopRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(AuthorizeStopResponse{
			AuthorizationStatus: "NotAuthorized",
			StatusCode:          StatusCode{Code: CodeServiceNotAvailable, Description: "undecodable request"},
		})
	}

	operatorID, err := domain.ParseOperatorID(c.Params("operatorID"))
	if err != nil {
		operatorID, _ = domain.ParseOperatorID(req.OperatorID)
	}
	evseID, _ := domain.ParseEVSEID(req.EvseID)

	resp := s.med.HandleAuthorizeStop(c.Context(), ports.AuthorizeStopRequest{
		EVSEID:         evseID,
		Identification: req.Identification.UID(),
		SessionID:      req.SessionID,
		OperatorID:     operatorID,
	})

	wire := AuthorizeStopResponse{
		AuthorizationStatus: "NotAuthorized",
		StatusCode:          statusCodeFor(resp.Variant),
		SessionID:           resp.SessionID,
		ProviderID:          resp.ProviderID.String(),
	}
	if resp.Variant == mediator.RespAuthorized {
		wire.AuthorizationStatus = "Authorized"
	}
	return c.JSON(wire)
}

func (s *Server) chargeDetailRecord(c *fiber.Ctx) error {
	var req ChargeDetailRecordRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(Acknowledgement{
			Result:     false,
			StatusCode: StatusCode{Code: CodeServiceNotAvailable, Description: "undecodable request"},
		})
	}

	cdr, err := req.CDR.toDomain()
	if err != nil {
		s.log.Warn("Inbound CDR failed conversion", zap.Error(err))
		return c.JSON(Acknowledgement{
			Result:     false,
			StatusCode: StatusCode{Code: CodeUnknownEVSEID, Description: err.Error()},
		})
	}

	resp := s.med.HandleChargeDetailRecord(c.Context(), cdr)
	return c.JSON(Acknowledgement{
		Result:     resp.Variant == mediator.RespSuccess,
		StatusCode: statusCodeFor(resp.Variant),
		SessionID:  cdr.SessionID,
	})
}

// statusCodeFor translates a mediation variant into the wire status code.
func statusCodeFor(v mediator.ResponseVariant) StatusCode {
	switch v {
	case mediator.RespAuthorized, mediator.RespSuccess:
		return StatusCode{Code: CodeSuccess, Description: "Success"}
	case mediator.RespNotAuthorized:
		return StatusCode{Code: CodeRFIDAuthFailed, Description: "RFID Authentication failed - invalid UID"}
	case mediator.RespSessionIsInvalid:
		return StatusCode{Code: CodeSessionInvalid, Description: "Session is invalid"}
	case mediator.RespCommunicationToEVSEFailed:
		return StatusCode{Code: CodeEVSECommFailed, Description: "Communication to EVSE failed"}
	case mediator.RespNoEVConnectedToEVSE:
		return StatusCode{Code: CodeNoEVConnected, Description: "No EV connected to EVSE"}
	case mediator.RespEVSEAlreadyReserved:
		return StatusCode{Code: CodeAlreadyReserved, Description: "EVSE already reserved"}
	case mediator.RespUnknownEVSEID:
		return StatusCode{Code: CodeUnknownEVSEID, Description: "Unknown EVSE ID"}
	case mediator.RespEVSEOutOfService:
		return StatusCode{Code: CodeEVSEOutOfService, Description: "EVSE out of service"}
	case mediator.RespError:
		return StatusCode{Code: CodeServiceNotAvailable, Description: "Processing error"}
	default:
		return StatusCode{Code: CodeServiceNotAvailable, Description: "Service not available"}
	}
}
