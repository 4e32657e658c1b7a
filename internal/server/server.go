// Package server exposes a capture service over HTTP: a small JSON
// status/control API plus a websocket feed of delegate events, in the
// teacher's hand-rolled net/http.ServeMux style.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/audiolibrelab/jamcapture/internal/capture"
	"github.com/audiolibrelab/jamcapture/internal/service"
)

// Server is the HTTP control plane for a capture service.
type Server struct {
	service service.Service
	addr    string
	mux     *http.ServeMux
	upgrader websocket.Upgrader
}

// New constructs a Server bound to addr (e.g. ":8080") and wired to
// svc.
func New(svc service.Service, addr string) *Server {
	s := &Server{
		service: svc,
		addr:    addr,
		mux:     http.NewServeMux(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/status", s.handleStatus)
	s.mux.HandleFunc("/start", s.handleStart)
	s.mux.HandleFunc("/pause", s.handlePause)
	s.mux.HandleFunc("/resume", s.handleResume)
	s.mux.HandleFunc("/stop", s.handleStop)
	s.mux.HandleFunc("/sources", s.handleSources)
	s.mux.HandleFunc("/ws", s.handleWebSocket)
}

// ListenAndServe starts the HTTP server; it blocks until the server
// stops or errors.
func (s *Server) ListenAndServe() error {
	slog.Info("starting capture control server", "addr", s.addr)
	return http.ListenAndServe(s.addr, s.mux)
}

type statusResponse struct {
	State       string              `json:"state"`
	Levels      capture.AudioLevels `json:"levels"`
	Diagnostics capture.Diagnostics `json:"diagnostics"`
	LastError   string              `json:"last_error,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		State:       s.service.State().String(),
		Levels:      s.service.Levels(),
		Diagnostics: s.service.Diagnostics(),
		LastError:   s.service.LastError(),
	})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.service.Start(); err != nil {
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{State: s.service.State().String()})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.service.Pause(); err != nil {
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{State: s.service.State().String()})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.service.Resume(); err != nil {
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{State: s.service.State().String()})
}

type stopResponse struct {
	Path     string  `json:"path"`
	Duration float64 `json:"duration_seconds"`
	Checksum string  `json:"checksum"`
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	result, err := s.service.Stop()
	if err != nil {
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stopResponse{
		Path:     result.Path,
		Duration: result.Duration.Seconds(),
		Checksum: result.Checksum,
	})
}

type sourcesResponse struct {
	Sources []capture.AudioSource `json:"sources"`
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sourcesResponse{Sources: s.service.Sources()})
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// wsEvent is the envelope pushed to websocket clients for every
// delegate notification.
type wsEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// wsSubscriber forwards delegate events to a single websocket
// connection, serializing writes behind its own mutex since gorilla's
// Conn does not allow concurrent writers.
type wsSubscriber struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsSubscriber) send(event wsEvent) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.conn.WriteJSON(event); err != nil {
		slog.Debug("websocket write failed", "error", err)
	}
}

func (w *wsSubscriber) OnStateChanged(state capture.State, elapsed float64) {
	w.send(wsEvent{Type: "state_changed", Payload: map[string]interface{}{
		"state": state.String(), "elapsed_seconds": elapsed,
	}})
}

func (w *wsSubscriber) OnLevelsUpdated(levels capture.AudioLevels) {
	w.send(wsEvent{Type: "levels_updated", Payload: levels})
}

func (w *wsSubscriber) OnEncounteredError(err error) {
	w.send(wsEvent{Type: "error", Payload: map[string]string{"error": err.Error()}})
}

func (w *wsSubscriber) OnFinished(result capture.RecordingResult) {
	w.send(wsEvent{Type: "finished", Payload: map[string]interface{}{
		"path": result.Path, "checksum": result.Checksum, "duration_seconds": result.Duration.Seconds(),
	}})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sub := &wsSubscriber{conn: conn}
	unsubscribe := s.service.Subscribe(sub)
	defer unsubscribe()

	// Block on reads purely to detect client disconnect; this
	// endpoint is server-push only.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
