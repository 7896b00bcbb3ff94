package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/evroam/oicp-bridge/internal/domain"
	"github.com/evroam/oicp-bridge/internal/ports"
	"github.com/evroam/oicp-bridge/internal/service/events"
)

func newTestClient(baseURL string) *Client {
	return NewClient(ClientConfig{
		BaseURL:    baseURL,
		ProviderID: "DE-GDF",
		APIKey:     "test-key",
	}, events.NewBus(zap.NewNop()), zap.NewNop())
}

func TestPullEVSEStatusByIDChunks(t *testing.T) {
	var chunkSizes []int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req pullEVSEStatusByIDRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("undecodable request: %v", err)
		}
		chunkSizes = append(chunkSizes, len(req.EvseIDs))

		records := make([]domain.EVSEStatusRecord, len(req.EvseIDs))
		for i, id := range req.EvseIDs {
			records[i] = domain.EVSEStatusRecord{EVSEID: id, Status: domain.EVSEStatusAvailable}
		}
		json.NewEncoder(w).Encode(pullEVSEStatusResponse{Content: records})
	}))
	defer srv.Close()

	ids := make([]domain.EVSEID, 250)
	for i := range ids {
		ids[i] = domain.EVSEID(fmt.Sprintf("DE*GEF*E%07d", i))
	}

	res, err := newTestClient(srv.URL).PullEVSEStatusByID(context.Background(), ports.PullStatusByIDRequest{EVSEIDs: ids})
	if err != nil {
		t.Fatalf("PullEVSEStatusByID: %v", err)
	}

	if len(chunkSizes) != 3 {
		t.Fatalf("hub saw %d calls, want 3", len(chunkSizes))
	}
	if chunkSizes[0] != 100 || chunkSizes[1] != 100 || chunkSizes[2] != 50 {
		t.Errorf("chunk sizes = %v, want [100 100 50]", chunkSizes)
	}
	if len(res.Records) != 250 {
		t.Errorf("records = %d, want 250", len(res.Records))
	}
	if !res.Successful() {
		t.Errorf("call not successful: %d %s", res.StatusCode, res.Description)
	}
}

func TestPullEVSEStatusByIDFailingChunkDegrades(t *testing.T) {
	var call int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call++
		if call == 2 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var req pullEVSEStatusByIDRequest
		json.NewDecoder(r.Body).Decode(&req)
		records := make([]domain.EVSEStatusRecord, len(req.EvseIDs))
		for i, id := range req.EvseIDs {
			records[i] = domain.EVSEStatusRecord{EVSEID: id, Status: domain.EVSEStatusAvailable}
		}
		json.NewEncoder(w).Encode(pullEVSEStatusResponse{Content: records})
	}))
	defer srv.Close()

	ids := make([]domain.EVSEID, 250)
	for i := range ids {
		ids[i] = domain.EVSEID(fmt.Sprintf("DE*GEF*E%07d", i))
	}

	res, err := newTestClient(srv.URL).PullEVSEStatusByID(context.Background(), ports.PullStatusByIDRequest{EVSEIDs: ids})
	if err != nil {
		t.Fatalf("PullEVSEStatusByID: %v", err)
	}
	if call != 3 {
		t.Errorf("hub saw %d calls, want 3 despite the failing chunk", call)
	}
	if len(res.Records) != 150 {
		t.Errorf("records = %d, want 150", len(res.Records))
	}
	if !res.Successful() {
		t.Errorf("result should report the successful chunks, got %d", res.StatusCode)
	}
}

func TestPullEVSEStatusByIDEmptyListIsContractViolation(t *testing.T) {
	_, err := newTestClient("http://unused").PullEVSEStatusByID(context.Background(), ports.PullStatusByIDRequest{})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestRemoteStartNegativeAckBecomesConflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Acknowledgement{
			Result:     false,
			StatusCode: StatusCode{Code: CodeAlreadyReserved, Description: "EVSE already reserved"},
		})
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL).RemoteStart(context.Background(), ports.RemoteStartRequest{
		EVSEID:         "DE*GEF*E1234567*A*1",
		Identification: "11223344",
	})
	if err != nil {
		t.Fatalf("RemoteStart: %v", err)
	}
	if res.Successful() {
		t.Error("negative acknowledgement reported as success")
	}
	if res.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409", res.StatusCode)
	}
}

func TestBreakerOpensAfterConfiguredFailures(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{
		BaseURL:    srv.URL,
		ProviderID: "DE-GDF",
		Breaker:    BreakerSettings{ConsecutiveFailures: 1},
	}, events.NewBus(zap.NewNop()), zap.NewNop())

	first, err := client.PullEVSEData(context.Background(), ports.PullDataRequest{})
	if err != nil {
		t.Fatalf("first pull: %v", err)
	}
	if first.Successful() {
		t.Fatal("5xx reported as success")
	}

	second, err := client.PullEVSEData(context.Background(), ports.PullDataRequest{})
	if err != nil {
		t.Fatalf("second pull: %v", err)
	}
	if second.Successful() {
		t.Error("open breaker reported as success")
	}
	if second.Description == "" {
		t.Error("open breaker result carries no description")
	}
	if calls != 1 {
		t.Errorf("hub saw %d calls, want 1 once the breaker opened", calls)
	}
}

func TestBreakerDisabledAllowsEveryCall(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{
		BaseURL:    srv.URL,
		ProviderID: "DE-GDF",
		Breaker:    BreakerSettings{Disabled: true, ConsecutiveFailures: 1},
	}, events.NewBus(zap.NewNop()), zap.NewNop())

	for i := 0; i < 3; i++ {
		if _, err := client.PullEVSEData(context.Background(), ports.PullDataRequest{}); err != nil {
			t.Fatalf("pull %d: %v", i, err)
		}
	}
	if calls != 3 {
		t.Errorf("hub saw %d calls, want 3 with the breaker disabled", calls)
	}
}

func TestTransportErrorIsValueNotError(t *testing.T) {
	res, err := newTestClient("http://127.0.0.1:1").PullEVSEData(context.Background(), ports.PullDataRequest{})
	if err != nil {
		t.Fatalf("transport failure must not surface as error, got %v", err)
	}
	if res.Successful() {
		t.Error("transport failure reported as success")
	}
	if res.Description == "" {
		t.Error("transport failure carries no description")
	}
}

func TestGetChargeDetailRecordsSkipsUnconvertible(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(getCDRsResponse{Content: []cdrRecord{
			{SessionID: "good", EvseID: "DE*GEF*E1234567*A*1"},
			{SessionID: "bad", EvseID: "not-an-evse-id"},
			{SessionID: "good-2", EvseID: "DE*GEF*E1234567*A*2"},
		}})
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL).GetChargeDetailRecords(context.Background(), ports.GetCDRsRequest{})
	if err != nil {
		t.Fatalf("GetChargeDetailRecords: %v", err)
	}
	if len(res.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(res.Records))
	}
	if res.Records[0].SessionID != "good" || res.Records[1].SessionID != "good-2" {
		t.Errorf("unexpected record order: %v", res.Records)
	}
}
