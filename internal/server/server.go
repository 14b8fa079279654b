// Package server exposes missions over HTTP: a server-sent event stream, a
// websocket stream, the stored mission history, health and metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/salekh/genseo-workshop/internal/metrics"
	"github.com/salekh/genseo-workshop/internal/mission"
	"github.com/salekh/genseo-workshop/internal/storage"
)

const defaultHistoryLimit = 20

// Runner starts missions. *mission.Orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, req mission.Request) <-chan mission.Event
}

// History lists stored missions. storage.Backend satisfies it.
type History interface {
	Query(ctx context.Context, filter storage.Filter) ([]*storage.MissionRecord, error)
}

// Server routes HTTP requests to the mission runner.
type Server struct {
	runner   Runner
	history  History
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// New returns a Server. history may be nil when no storage is configured.
func New(runner Runner, history History, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		runner:  runner,
		history: history,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Handler returns the routed handler with CORS and request logging applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/mission/stream", s.handleStream)
	mux.HandleFunc("GET /api/mission/ws", s.handleWebsocket)
	mux.HandleFunc("GET /api/missions", s.handleHistory)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())
	return s.logRequests(cors(mux))
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully within shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// requestFromQuery reads a mission request from URL query parameters.
func requestFromQuery(r *http.Request) (mission.Request, error) {
	q := r.URL.Query()
	req := mission.Request{
		Topic:       q.Get("topic"),
		ContentType: q.Get("content_type"),
		TargetGroup: q.Get("target_group"),
		Location:    q.Get("location"),
		Language:    q.Get("language"),
	}
	if v := q.Get("max_competitors"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, fmt.Errorf("%w: max_competitors must be an integer", mission.ErrInvalidRequest)
		}
		req.MaxCompetitors = n
	}
	return req, checkRequest(req)
}

// checkRequest rejects requests that cannot become valid through defaults.
func checkRequest(req mission.Request) error {
	if strings.TrimSpace(req.Topic) == "" {
		return fmt.Errorf("%w: topic is required", mission.ErrInvalidRequest)
	}
	if req.MaxCompetitors < 0 {
		return fmt.Errorf("%w: max_competitors must be positive", mission.ErrInvalidRequest)
	}
	return nil
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	req, err := requestFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		s.logger.Error("streaming not supported", "error", err)
		return
	}

	ctx := r.Context()
	for ev := range s.runner.Run(ctx, req) {
		data, err := json.Marshal(ev)
		if err != nil {
			s.logger.Error("failed to encode event", "type", ev.Type, "error", err)
			continue
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			s.logger.Debug("client disconnected", "error", err)
			return
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	var req mission.Request
	if err := conn.ReadJSON(&req); err != nil {
		s.closeWebsocket(conn, websocket.CloseUnsupportedData, "invalid request: "+err.Error())
		return
	}
	if err := checkRequest(req); err != nil {
		s.closeWebsocket(conn, websocket.ClosePolicyViolation, err.Error())
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		// Any read error means the client went away.
		for {
			if _, _, err := conn.NextReader(); err != nil {
				cancel()
				return
			}
		}
	}()

	for ev := range s.runner.Run(ctx, req) {
		if err := conn.WriteJSON(ev); err != nil {
			s.logger.Debug("websocket client disconnected", "error", err)
			cancel()
			return
		}
	}
	s.closeWebsocket(conn, websocket.CloseNormalClosure, "mission complete")
}

func (s *Server) closeWebsocket(conn *websocket.Conn, code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil {
		s.logger.Debug("websocket close failed", "error", err)
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "mission history is not configured")
		return
	}

	filter := storage.Filter{Topic: r.URL.Query().Get("topic"), Limit: defaultHistoryLimit}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = n
	}

	records, err := s.history.Query(r.Context(), filter)
	if err != nil {
		s.logger.Error("history query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to query missions")
		return
	}
	if records == nil {
		records = []*storage.MissionRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
