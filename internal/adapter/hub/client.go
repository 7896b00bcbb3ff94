package hub

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/evroam/oicp-bridge/internal/domain"
	"github.com/evroam/oicp-bridge/internal/observability/telemetry"
	"github.com/evroam/oicp-bridge/internal/ports"
	"github.com/evroam/oicp-bridge/internal/service/events"
)

// statusByIDChunkSize is the hub-imposed ceiling on ids per status lookup.
const statusByIDChunkSize = 100

// ErrInvalidArgument marks caller contract violations; everything the
// network or the hub does wrong is reported inside the CallResult instead.
var ErrInvalidArgument = errors.New("invalid argument")

type ClientConfig struct {
	BaseURL        string
	ProviderID     domain.ProviderID
	APIKey         string
	DefaultTimeout time.Duration
	Breaker        BreakerSettings
}

// BreakerSettings tune the circuit breaker guarding the hub transport. Zero
// values fall back to the adapter defaults; Disabled bypasses the breaker
// entirely.
type BreakerSettings struct {
	Disabled            bool
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32
}

// Client is the typed facade over the hub's outbound HTTP API. Calls go
// through a circuit breaker; 5xx responses and transport errors count as
// breaker failures.
type Client struct {
	cfg     ClientConfig
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	bus     *events.Bus
	log     *zap.Logger
}

func NewClient(cfg ClientConfig, bus *events.Bus, log *zap.Logger) *Client {
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = 30 * time.Second
	}
	if cfg.Breaker.Interval <= 0 {
		cfg.Breaker.Interval = time.Minute
	}
	if cfg.Breaker.Timeout <= 0 {
		cfg.Breaker.Timeout = 30 * time.Second
	}
	if cfg.Breaker.ConsecutiveFailures == 0 {
		cfg.Breaker.ConsecutiveFailures = 5
	}

	var breaker *gobreaker.CircuitBreaker
	if !cfg.Breaker.Disabled {
		breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "oicp-hub",
			MaxRequests: 3,
			Interval:    cfg.Breaker.Interval,
			Timeout:     cfg.Breaker.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= cfg.Breaker.ConsecutiveFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn("Hub circuit breaker state changed",
					zap.String("name", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		})
	}

	return &Client{
		cfg:     cfg,
		http:    &http.Client{},
		breaker: breaker,
		bus:     bus,
		log:     log,
	}
}

func (c *Client) PullEVSEData(ctx context.Context, req ports.PullDataRequest) (ports.PullDataResult, error) {
	opts := c.fill(req.Options)

	var payload pullEVSEDataResponse
	call, err := c.post(ctx, events.OpPullEVSEData, "/api/oicp/evsepull/v23/providers/"+string(opts.ProviderID)+"/data-records", pullEVSEDataRequest{
		ProviderID:     string(opts.ProviderID),
		GeoCoordinates: req.SearchCenter,
		SearchRadiusKM: req.RadiusKM,
		LastCall:       req.Since,
	}, &payload, opts)
	if err != nil {
		return ports.PullDataResult{}, err
	}

	return ports.PullDataResult{CallResult: call, Records: payload.Content}, nil
}

func (c *Client) PullEVSEStatus(ctx context.Context, req ports.PullStatusRequest) (ports.PullStatusResult, error) {
	opts := c.fill(req.Options)

	var payload pullEVSEStatusResponse
	call, err := c.post(ctx, events.OpPullEVSEStatus, "/api/oicp/evsepull/v21/providers/"+string(opts.ProviderID)+"/status-records", pullEVSEStatusRequest{
		ProviderID:     string(opts.ProviderID),
		GeoCoordinates: req.SearchCenter,
		SearchRadiusKM: req.RadiusKM,
	}, &payload, opts)
	if err != nil {
		return ports.PullStatusResult{}, err
	}

	return ports.PullStatusResult{CallResult: call, Records: payload.Content}, nil
}

// PullEVSEStatusByID resolves statuses for an explicit id list. The hub
// accepts at most 100 ids per call, so the list is chunked and the chunks
// are issued sequentially. A failing chunk degrades to a warning while the
// remaining chunks proceed.
func (c *Client) PullEVSEStatusByID(ctx context.Context, req ports.PullStatusByIDRequest) (ports.PullStatusResult, error) {
	if len(req.EVSEIDs) == 0 {
		return ports.PullStatusResult{}, fmt.Errorf("%w: empty EVSE id list", ErrInvalidArgument)
	}
	opts := c.fill(req.Options)

	result := ports.PullStatusResult{}
	anyOK := false
	var lastFailure ports.CallResult

	for start := 0; start < len(req.EVSEIDs); start += statusByIDChunkSize {
		end := start + statusByIDChunkSize
		if end > len(req.EVSEIDs) {
			end = len(req.EVSEIDs)
		}
		chunk := req.EVSEIDs[start:end]

		ids := make([]string, len(chunk))
		for i, id := range chunk {
			ids[i] = id.String()
		}

		var payload pullEVSEStatusResponse
		call, err := c.post(ctx, events.OpPullEVSEStatusByID, "/api/oicp/evsepull/v21/providers/"+string(opts.ProviderID)+"/status-records-by-id", pullEVSEStatusByIDRequest{
			ProviderID: string(opts.ProviderID),
			EvseIDs:    ids,
		}, &payload, opts)
		if err != nil {
			return ports.PullStatusResult{}, err
		}
		if !call.Successful() {
			lastFailure = call
			c.log.Warn("Status-by-id chunk failed",
				zap.Int("offset", start),
				zap.Int("size", len(chunk)),
				zap.Int("status", call.StatusCode),
			)
			continue
		}

		anyOK = true
		result.CallResult = call
		result.Records = append(result.Records, payload.Content...)
	}

	if !anyOK {
		result.CallResult = lastFailure
	}
	return result, nil
}

func (c *Client) PushAuthenticationData(ctx context.Context, req ports.PushAuthDataRequest) (ports.AckResult, error) {
	opts := c.fill(req.Options)

	identifications := make([]Identification, len(req.Identifications))
	for i, uid := range req.Identifications {
		identifications[i] = RFID(uid)
	}
	action := req.Action
	if action == "" {
		action = "fullLoad"
	}

	var ack Acknowledgement
	call, err := c.post(ctx, events.OpPushAuthData, "/api/oicp/authdata/v21/providers/"+string(opts.ProviderID)+"/push-request", pushAuthDataRequest{
		ProviderID:      string(opts.ProviderID),
		ActionType:      action,
		Identifications: identifications,
	}, &ack, opts)
	if err != nil {
		return ports.AckResult{}, err
	}

	return ports.AckResult{CallResult: ackResult(call, ack)}, nil
}

func (c *Client) ReservationStart(ctx context.Context, req ports.ReservationStartRequest) (ports.SessionResult, error) {
	if req.EVSEID == "" {
		return ports.SessionResult{}, fmt.Errorf("%w: missing EVSE id", ErrInvalidArgument)
	}
	opts := c.fill(req.Options)

	var ack Acknowledgement
	call, err := c.post(ctx, events.OpReserve, "/api/oicp/charging/v21/providers/"+string(opts.ProviderID)+"/reservation-start-request", remoteSessionRequest{
		SessionID:        req.SessionID,
		ProviderID:       string(opts.ProviderID),
		EvseID:           req.EVSEID.String(),
		Identification:   RFID(req.Identification),
		PartnerProductID: req.PartnerProductID,
	}, &ack, opts)
	if err != nil {
		return ports.SessionResult{}, err
	}

	return ports.SessionResult{CallResult: ackResult(call, ack), SessionID: ack.SessionID}, nil
}

func (c *Client) ReservationStop(ctx context.Context, req ports.ReservationStopRequest) (ports.AckResult, error) {
	if req.SessionID == "" {
		return ports.AckResult{}, fmt.Errorf("%w: missing session id", ErrInvalidArgument)
	}
	opts := c.fill(req.Options)

	var ack Acknowledgement
	call, err := c.post(ctx, events.OpCancelReservation, "/api/oicp/charging/v21/providers/"+string(opts.ProviderID)+"/reservation-stop-request", remoteStopRequest{
		SessionID:  req.SessionID,
		ProviderID: string(opts.ProviderID),
		EvseID:     req.EVSEID.String(),
	}, &ack, opts)
	if err != nil {
		return ports.AckResult{}, err
	}

	return ports.AckResult{CallResult: ackResult(call, ack)}, nil
}

func (c *Client) RemoteStart(ctx context.Context, req ports.RemoteStartRequest) (ports.SessionResult, error) {
	if req.EVSEID == "" {
		return ports.SessionResult{}, fmt.Errorf("%w: missing EVSE id", ErrInvalidArgument)
	}
	opts := c.fill(req.Options)

	var ack Acknowledgement
	call, err := c.post(ctx, events.OpRemoteStart, "/api/oicp/charging/v21/providers/"+string(opts.ProviderID)+"/remote-start-request", remoteSessionRequest{
		SessionID:        req.SessionID,
		ProviderID:       string(opts.ProviderID),
		EvseID:           req.EVSEID.String(),
		Identification:   RFID(req.Identification),
		PartnerProductID: req.PartnerProductID,
	}, &ack, opts)
	if err != nil {
		return ports.SessionResult{}, err
	}

	return ports.SessionResult{CallResult: ackResult(call, ack), SessionID: ack.SessionID}, nil
}

func (c *Client) RemoteStop(ctx context.Context, req ports.RemoteStopRequest) (ports.AckResult, error) {
	if req.SessionID == "" {
		return ports.AckResult{}, fmt.Errorf("%w: missing session id", ErrInvalidArgument)
	}
	opts := c.fill(req.Options)

	var ack Acknowledgement
	call, err := c.post(ctx, events.OpRemoteStop, "/api/oicp/charging/v21/providers/"+string(opts.ProviderID)+"/remote-stop-request", remoteStopRequest{
		SessionID:  req.SessionID,
		ProviderID: string(opts.ProviderID),
		EvseID:     req.EVSEID.String(),
	}, &ack, opts)
	if err != nil {
		return ports.AckResult{}, err
	}

	return ports.AckResult{CallResult: ackResult(call, ack)}, nil
}

func (c *Client) SendChargeDetailRecord(ctx context.Context, cdr domain.ChargeDetailRecord, reqOpts ports.CallOptions) (ports.AckResult, error) {
	if cdr.SessionID == "" {
		return ports.AckResult{}, fmt.Errorf("%w: CDR without session id", ErrInvalidArgument)
	}
	opts := c.fill(reqOpts)

	var ack Acknowledgement
	call, err := c.post(ctx, events.OpSendCDR, "/api/oicp/cdrmgmt/v22/operators/"+string(cdr.EVSEID.OperatorID())+"/charge-detail-record", cdrToWire(cdr), &ack, opts)
	if err != nil {
		return ports.AckResult{}, err
	}

	return ports.AckResult{CallResult: ackResult(call, ack)}, nil
}

func (c *Client) GetChargeDetailRecords(ctx context.Context, req ports.GetCDRsRequest) (ports.CDRsResult, error) {
	opts := c.fill(req.Options)

	var payload getCDRsResponse
	call, err := c.post(ctx, events.OpGetCDRs, "/api/oicp/cdrmgmt/v22/providers/"+string(opts.ProviderID)+"/get-charge-detail-records-request", getCDRsRequest{
		ProviderID: string(opts.ProviderID),
		From:       req.From,
		To:         req.To,
	}, &payload, opts)
	if err != nil {
		return ports.CDRsResult{}, err
	}

	result := ports.CDRsResult{CallResult: call}
	for i := range payload.Content {
		cdr, convErr := payload.Content[i].toDomain()
		if convErr != nil {
			// One malformed record must not abort the batch.
			c.log.Warn("Skipping unconvertible CDR",
				zap.String("session_id", payload.Content[i].SessionID),
				zap.Error(convErr),
			)
			continue
		}
		result.Records = append(result.Records, cdr)
	}
	return result, nil
}

// fill applies the adapter-wide defaults to per-call options.
func (c *Client) fill(opts ports.CallOptions) ports.CallOptions {
	if opts.ProviderID == "" {
		opts.ProviderID = c.cfg.ProviderID
	}
	if opts.Timestamp.IsZero() {
		opts.Timestamp = time.Now()
	}
	if opts.TrackingID == "" {
		opts.TrackingID = uuid.NewString()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = c.cfg.DefaultTimeout
	}
	return opts
}

// post issues one JSON request and decodes the response into out. Transport
// and protocol failures come back inside the CallResult; the error return is
// reserved for context cancellation.
func (c *Client) post(ctx context.Context, op events.Operation, path string, body any, out any, opts ports.CallOptions) (ports.CallResult, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		c.bus.EmitRequest(events.Event{Operation: op, TrackingID: opts.TrackingID, OK: false, Detail: err.Error()})
		return ports.CallResult{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	c.bus.EmitRequest(events.Event{Operation: op, TrackingID: opts.TrackingID, OK: true})

	callCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	started := time.Now()
	res, err := c.execute(func() (any, error) {
		req, reqErr := http.NewRequestWithContext(callCtx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(encoded))
		if reqErr != nil {
			return nil, reqErr
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Correlation-ID", opts.TrackingID)
		if c.cfg.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		}

		resp, doErr := c.http.Do(req)
		if doErr != nil {
			return nil, doErr
		}
		defer resp.Body.Close()

		raw, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, readErr
		}

		call := ports.CallResult{StatusCode: resp.StatusCode, RawBody: raw}
		if resp.StatusCode >= 500 {
			// Counts as a breaker failure but still surfaces as a result.
			return call, fmt.Errorf("hub returned %d", resp.StatusCode)
		}
		return call, nil
	})
	telemetry.HubCallDuration.WithLabelValues(string(op)).Observe(time.Since(started).Seconds())

	if err != nil {
		if ctx.Err() != nil {
			c.bus.EmitResponse(events.Event{Operation: op, TrackingID: opts.TrackingID, OK: false, Detail: ctx.Err().Error()})
			return ports.CallResult{}, ctx.Err()
		}
		call, ok := res.(ports.CallResult)
		if !ok {
			call = ports.CallResult{Description: err.Error()}
		}
		if call.Description == "" {
			call.Description = err.Error()
		}
		c.bus.EmitResponse(events.Event{Operation: op, TrackingID: opts.TrackingID, OK: false, Detail: call.Description})
		return call, nil
	}

	call := res.(ports.CallResult)
	if call.Successful() && out != nil && len(call.RawBody) > 0 {
		if decErr := json.Unmarshal(call.RawBody, out); decErr != nil {
			call.StatusCode = http.StatusBadGateway
			call.Description = fmt.Sprintf("undecodable hub response: %v", decErr)
		}
	}

	c.bus.EmitResponse(events.Event{
		Operation:  op,
		TrackingID: opts.TrackingID,
		OK:         call.Successful(),
		Detail:     call.Description,
	})
	return call, nil
}

func (c *Client) execute(fn func() (any, error)) (any, error) {
	if c.breaker == nil {
		return fn()
	}
	return c.breaker.Execute(fn)
}

// ackResult folds the hub's structured acknowledgement into the transport
// result: a 2xx carrying Result=false is still a protocol-level failure.
func ackResult(call ports.CallResult, ack Acknowledgement) ports.CallResult {
	if call.Successful() && !ack.Result {
		call.StatusCode = http.StatusConflict
		call.Description = ack.StatusCode.Code + " " + ack.StatusCode.Description
	}
	return call
}
