// Package healthcheck provides the liveness/readiness HTTP server and the
// CLI probe client, per SPEC_FULL.md §4.9.
package healthcheck

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// Server exposes /healthz (liveness) and /readyz (readiness), ported from
// the source's httplib-based handlers.
type Server struct {
	httpServer *http.Server
	liveness   int32
	readiness  int32
}

// NewServer builds a server bound to port. Liveness defaults to true;
// readiness defaults to false until SetReady(true) is called.
func NewServer(port int) *Server {
	s := &Server{liveness: 1}
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/readyz", s.handleReadyz)
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("0.0.0.0:%d", port),
		Handler: mux,
	}
	return s
}

type statusBody struct {
	Status string `json:"status"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeStatus(w, atomic.LoadInt32(&s.liveness) != 0, "healthy", "unhealthy")
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	writeStatus(w, atomic.LoadInt32(&s.readiness) != 0, "ready", "notready")
}

func writeStatus(w http.ResponseWriter, ok bool, upMsg, downMsg string) {
	status := downMsg
	code := http.StatusServiceUnavailable
	if ok {
		status = upMsg
		code = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(statusBody{Status: status})
}

// SetLive toggles the liveness flag.
func (s *Server) SetLive(live bool) { atomic.StoreInt32(&s.liveness, boolToInt32(live)) }

// SetReady toggles the readiness flag.
func (s *Server) SetReady(ready bool) { atomic.StoreInt32(&s.readiness, boolToInt32(ready)) }

func boolToInt32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

// Start begins serving in a background goroutine. Errors other than a
// clean shutdown are logged, not returned, matching the C++ server's own
// fire-and-forget listen() failure handling.
func (s *Server) Start() {
	log.Info().Str("component", "healthcheck").Str("addr", s.httpServer.Addr).Msg("healthcheck server listening")
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Str("component", "healthcheck").Err(err).Msg("healthcheck server failed")
		}
	}()
}

// Stop gracefully shuts the server down within ctx's deadline.
func (s *Server) Stop(ctx context.Context) error {
	log.Info().Str("component", "healthcheck").Msg("healthcheck server stopping")
	return s.httpServer.Shutdown(ctx)
}

// Probe queries a running healthcheck server's endpoint and reports
// whether it returned 2xx, for the CLI's `healthcheck` subcommand.
func Probe(port int, endpoint string, timeout time.Duration) (bool, error) {
	client := &http.Client{Timeout: timeout}
	url := fmt.Sprintf("http://127.0.0.1:%d%s", port, endpoint)
	resp, err := client.Get(url)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}
