package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// simServer plays back a Scenario over HTTP: each path's call count is
// tracked independently so a test can script per-endpoint sequences
// (the tool-simulator analogue of the teacher's per-pane scripted agent
// behavior, replayed over a real transport instead of tmux IPC).
type simServer struct {
	scenario *Scenario
	log      *slog.Logger

	mu     sync.Mutex
	counts map[string]int
}

func newSimServer(sc *Scenario, log *slog.Logger) *simServer {
	return &simServer{scenario: sc, log: log, counts: make(map[string]int)}
}

func (s *simServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	i := s.counts[r.URL.Path]
	s.counts[r.URL.Path] = i + 1
	s.mu.Unlock()

	resp, ok := s.scenario.next(r.URL.Path, i)
	if !ok {
		s.log.Warn("sim: no route scripted for path", "path", r.URL.Path)
		http.NotFound(w, r)
		return
	}

	if resp.DelayMS > 0 {
		time.Sleep(time.Duration(resp.DelayMS) * time.Millisecond)
	}

	s.log.Info("sim: replaying scripted response", "path", r.URL.Path, "call", i, "status", resp.StatusCode)

	statusCode := resp.StatusCode
	if statusCode == 0 {
		statusCode = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if resp.Body != nil {
		json.NewEncoder(w).Encode(resp.Body)
	}
}
