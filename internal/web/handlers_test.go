// internal/web/handlers_test.go
package web

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"plcview/internal/config"
	"plcview/internal/query"
	"plcview/internal/store"
	"plcview/internal/supervisor"
	"plcview/internal/tag"
)

type fakeHealth struct{ all []supervisor.Health }

func (f fakeHealth) Health(device string) (supervisor.Health, bool) {
	for _, h := range f.all {
		if h.Device == device {
			return h, true
		}
	}
	return supervisor.Health{}, false
}

func (f fakeHealth) HealthAll() []supervisor.Health { return f.all }

func testServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	bit := 4
	cfg := &config.Config{
		Listen: ":0",
		Stream: config.StreamConfig{IntervalMs: 50},
		Devices: []config.DeviceConfig{
			{
				Name:   "plc1",
				Driver: config.DriverSim,
				Tags: []config.TagConfig{
					{Name: "temp", Block: 1, Offset: 0, Type: "real"},
					{Name: "running", Block: 1, Offset: 4, Type: "bool", Bit: &bit},
				},
			},
		},
	}

	st, err := store.New(cfg.SignalNames(), 16)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	health := fakeHealth{all: []supervisor.Health{
		{Device: "plc1", State: supervisor.StatePolling, UpdatedAt: time.Now()},
	}}
	view := query.New(cfg, st, health)
	return New(cfg, view, log.New(io.Discard, "", 0)), st
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	resp := httptest.NewRecorder()
	s.Handler().ServeHTTP(resp, req)
	return resp
}

func TestSignalsEndpoint(t *testing.T) {
	s, _ := testServer(t)

	resp := get(t, s, "/api/v1/signals")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var body struct {
		Devices []query.DeviceSignals `json:"devices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Devices) != 1 || body.Devices[0].Device != "plc1" {
		t.Fatalf("unexpected devices: %+v", body.Devices)
	}
	sigs := body.Devices[0].Signals
	if len(sigs) != 2 || sigs[0].Name != "plc1.temp" || sigs[1].Name != "plc1.running" {
		t.Fatalf("unexpected signals: %+v", sigs)
	}
	if sigs[1].Bit == nil || *sigs[1].Bit != 4 {
		t.Fatalf("expected bit 4 on plc1.running, got %+v", sigs[1].Bit)
	}
}

func TestDataEndpoint(t *testing.T) {
	s, st := testServer(t)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	st.Append("plc1.temp", tag.Sample{At: base, Value: tag.FloatValue(21.5)})
	st.Append("plc1.temp", tag.Sample{At: base.Add(time.Second), Value: tag.FloatValue(22.0)})
	st.Append("plc1.running", tag.Sample{At: base, Value: tag.BoolValue(true)})

	resp := get(t, s, "/api/v1/data?signals=plc1.temp,plc1.running")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var body dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	temp := body.Series["plc1.temp"]
	if len(temp) != 2 {
		t.Fatalf("expected 2 temp points, got %d", len(temp))
	}
	if temp[0].V == nil || *temp[0].V != 21.5 {
		t.Fatalf("unexpected first temp point: %+v", temp[0])
	}
	if temp[0].T != base.UnixMilli() {
		t.Fatalf("expected t %d, got %d", base.UnixMilli(), temp[0].T)
	}
	run := body.Series["plc1.running"]
	if len(run) != 1 || run[0].V == nil || *run[0].V != 1 {
		t.Fatalf("expected bool rendered as 1, got %+v", run)
	}
	if body.Health["plc1"] != "polling" {
		t.Fatalf("unexpected health: %+v", body.Health)
	}
}

func TestDataMaxLimitsSamples(t *testing.T) {
	s, st := testServer(t)

	base := time.Now()
	for i := 0; i < 5; i++ {
		st.Append("plc1.temp", tag.Sample{At: base.Add(time.Duration(i) * time.Second), Value: tag.FloatValue(float64(i))})
	}

	resp := get(t, s, "/api/v1/data?signals=plc1.temp&max=2")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	pts := body.Series["plc1.temp"]
	if len(pts) != 2 {
		t.Fatalf("expected 2 points, got %d", len(pts))
	}
	if *pts[0].V != 3 || *pts[1].V != 4 {
		t.Fatalf("expected newest two samples, got %+v", pts)
	}
}

func TestDataInvalidSampleIsNull(t *testing.T) {
	s, st := testServer(t)

	st.Append("plc1.temp", tag.Sample{At: time.Now()}) // decode failure placeholder

	resp := get(t, s, "/api/v1/data?signals=plc1.temp")
	var body dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	pts := body.Series["plc1.temp"]
	if len(pts) != 1 || pts[0].V != nil {
		t.Fatalf("expected one null point, got %+v", pts)
	}
}

func TestSignalEndpoint(t *testing.T) {
	s, st := testServer(t)

	base := time.Now()
	for i := 0; i < 3; i++ {
		st.Append("plc1.temp", tag.Sample{At: base, Value: tag.FloatValue(float64(i))})
	}

	resp := get(t, s, "/api/v1/signal?name=plc1.temp&max=2")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body signalResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Latest == nil || *body.Latest.V != 2 {
		t.Fatalf("unexpected latest: %+v", body.Latest)
	}
	if len(body.History) != 2 || *body.History[0].V != 1 {
		t.Fatalf("unexpected history: %+v", body.History)
	}
}

func TestSignalEndpointErrors(t *testing.T) {
	s, _ := testServer(t)

	if resp := get(t, s, "/api/v1/signal"); resp.Code != http.StatusBadRequest {
		t.Fatalf("missing name: expected 400, got %d", resp.Code)
	}
	if resp := get(t, s, "/api/v1/signal?name=plc1.nope"); resp.Code != http.StatusNotFound {
		t.Fatalf("unknown signal: expected 404, got %d", resp.Code)
	}
}

func TestDataUnknownSignal(t *testing.T) {
	s, _ := testServer(t)

	resp := get(t, s, "/api/v1/data?signals=plc1.nope")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestDataBadMax(t *testing.T) {
	s, _ := testServer(t)

	resp := get(t, s, "/api/v1/data?signals=plc1.temp&max=-1")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := testServer(t)

	resp := get(t, s, "/api/v1/health")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body struct {
		Devices []supervisor.Health `json:"devices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Devices) != 1 || body.Devices[0].State != supervisor.StatePolling {
		t.Fatalf("unexpected health: %+v", body.Devices)
	}
}

func TestPageServesDashboard(t *testing.T) {
	s, _ := testServer(t)

	resp := get(t, s, "/")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("unexpected content type %q", ct)
	}
	if !strings.Contains(resp.Body.String(), "PLC Dashboard") {
		t.Fatalf("dashboard page missing title")
	}
}

func TestPageUnknownPathIs404(t *testing.T) {
	s, _ := testServer(t)

	resp := get(t, s, "/no-such-page")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestHealthzEndpoint(t *testing.T) {
	s, _ := testServer(t)

	resp := get(t, s, "/healthz")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "ok") {
		t.Fatalf("unexpected body %q", resp.Body.String())
	}
}

func TestStreamFirstFrame(t *testing.T) {
	s, st := testServer(t)

	st.Append("plc1.temp", tag.Sample{At: time.Now(), Value: tag.FloatValue(33.0)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // handler sends the first frame, then exits on the dead context

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stream", nil).WithContext(ctx)
	resp := httptest.NewRecorder()
	s.Handler().ServeHTTP(resp, req)

	if ct := resp.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}
	body := resp.Body.String()
	if !strings.HasPrefix(body, "event: update\ndata: ") {
		t.Fatalf("unexpected frame start: %q", body)
	}

	var upd streamUpdate
	payload := strings.TrimPrefix(strings.Split(body, "\n\n")[0], "event: update\ndata: ")
	if err := json.Unmarshal([]byte(payload), &upd); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	p, ok := upd.Latest["plc1.temp"]
	if !ok || p.V == nil || *p.V != 33.0 {
		t.Fatalf("unexpected latest: %+v", upd.Latest)
	}
	if upd.Health["plc1"] != "polling" {
		t.Fatalf("unexpected health: %+v", upd.Health)
	}
}
