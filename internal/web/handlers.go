// internal/web/handlers.go
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"plcview/internal/store"
	"plcview/internal/supervisor"
	"plcview/internal/tag"
)

// point is one chart-ready sample: epoch-millis timestamp and a value
// that is null when the sample failed to decode.
type point struct {
	T int64    `json:"t"`
	V *float64 `json:"v"`
}

func toPoint(smp tag.Sample) point {
	p := point{T: smp.At.UnixMilli()}
	if f, ok := smp.Value.Float64(); ok {
		p.V = &f
	}
	return p
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleSignals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": s.view.Signals()})
}

type dataResponse struct {
	Series map[string][]point `json:"series"`
	Health map[string]string  `json:"health"`
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	series, ok := s.fetchSeries(w, r)
	if !ok {
		return
	}

	resp := dataResponse{
		Series: make(map[string][]point, len(series)),
		Health: healthLabels(s.view.Health()),
	}
	for name, hist := range series {
		pts := make([]point, 0, len(hist))
		for _, smp := range hist {
			pts = append(pts, toPoint(smp))
		}
		resp.Series[name] = pts
	}
	writeJSON(w, http.StatusOK, resp)
}

type signalResponse struct {
	Name    string  `json:"name"`
	Latest  *point  `json:"latest"`
	History []point `json:"history"`
}

func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		http.Error(w, "name required", http.StatusBadRequest)
		return
	}
	max, err := parseMax(r.URL.Query().Get("max"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	data, err := s.view.Signal(name, max)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrUnknownSignal) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	resp := signalResponse{Name: name, History: make([]point, 0, len(data.History))}
	if data.Latest != nil {
		p := toPoint(*data.Latest)
		resp.Latest = &p
	}
	for _, smp := range data.History {
		resp.History = append(resp.History, toPoint(smp))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": s.view.Health()})
}

// fetchSeries parses the shared signals/max query params and loads the
// series, writing the error response itself when something is off.
func (s *Server) fetchSeries(w http.ResponseWriter, r *http.Request) (map[string][]tag.Sample, bool) {
	names := splitSignals(r.URL.Query().Get("signals"))
	max, err := parseMax(r.URL.Query().Get("max"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}

	series, err := s.view.Series(names, max)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrUnknownSignal) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return nil, false
	}
	return series, true
}

func healthLabels(all []supervisor.Health) map[string]string {
	out := make(map[string]string, len(all))
	for _, h := range all {
		out[h.Device] = h.Label()
	}
	return out
}

func splitSignals(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseMax(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("max must be a non-negative integer")
	}
	return n, nil
}
