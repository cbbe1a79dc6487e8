package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"macrocopilot/src/database"
	"macrocopilot/src/datamodels"
	"macrocopilot/src/metrics"
	"macrocopilot/src/utils/errors"
)

// RunStore is the slice of the database the server reads run state from.
type RunStore interface {
	database.RunsDatabase
	SubscribeRunStatus(ctx context.Context, runId string) (<-chan string, func() error, error)
}

type Server struct {
	config        datamodels.ServerConfig
	upgrader      websocket.Upgrader
	httpMux       *http.ServeMux
	routesOnce    sync.Once
	metricsWriter *metrics.WebsocketMetricsWriter
	reports       *ReportStore
	runs          RunStore
}

func NewServer(config datamodels.ServerConfig, wsConfig datamodels.WSConfig) *Server {
	if config.ReportEndpoint == "" {
		config.ReportEndpoint = "/report"
	}
	if config.HealthEndpoint == "" {
		config.HealthEndpoint = "/health"
	}
	return &Server{
		config:   config,
		upgrader: wsConfig.Upgrader,
		httpMux:  http.NewServeMux(),
		reports:  NewReportStore(),
	}
}

func (s *Server) WithMetricsWriter(metricsWriter *metrics.WebsocketMetricsWriter) *Server {
	s.metricsWriter = metricsWriter
	return s
}

func (s *Server) WithReportStore(reports *ReportStore) *Server {
	s.reports = reports
	return s
}

// WithRunStore enables the run listing endpoint and run status subscriptions.
func (s *Server) WithRunStore(runs RunStore) *Server {
	s.runs = runs
	return s
}

func (s *Server) Reports() *ReportStore {
	return s.reports
}

// Handler returns the mux with every endpoint registered.
func (s *Server) Handler() http.Handler {
	s.routesOnce.Do(func() {
		s.RegisterHealthCheck()
		s.RegisterReport()
		s.RegisterRuns()
		s.RegisterWebSocketHandler()
		s.RegisterSwagger()
	})
	return s.httpMux
}

func (s *Server) Start(ctx context.Context) error {
	if s.metricsWriter == nil {
		return errors.New("metrics writer is nil")
	}
	server := &http.Server{
		Addr:              ":" + strings.TrimPrefix(s.config.Port, ":"),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("Shutting down server")
		if err := server.Close(); err != nil {
			slog.Error("Failed to close server", "error", err)
		}
	}()

	slog.Info("Starting server", "addr", server.Addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return errors.Wrap(err, "server error")
	}

	return nil
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.metricsWriter == nil {
		http.Error(w, "metric streaming is disabled", http.StatusServiceUnavailable)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	s.metricsWriter.AddClient(conn)
	defer s.metricsWriter.RemoveClient(conn)

	slog.Info("Client connected", "remote", conn.RemoteAddr())

	welcomeMessage := WebSocketResponse{
		Success: true,
		Data:    "Welcome to the macro copilot metric stream",
	}
	if err := s.metricsWriter.Send(conn, welcomeMessage); err != nil {
		slog.Error("Failed to send welcome message", "error", err)
		return
	}

	for {
		mType, msg, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("Error reading message", "error", err)
			}
			break
		}
		if mType != websocket.TextMessage {
			slog.Info(fmt.Sprintf("Ignoring websocket message type: %d", mType))
			continue
		}

		var wsMessage WebSocketMessage
		if err := json.Unmarshal(msg, &wsMessage); err != nil {
			slog.Error("Failed to unmarshal message", "error", err)
			_ = s.metricsWriter.Send(conn, WebSocketResponse{Success: false, Error: err.Error()})
			continue
		}

		var response WebSocketResponse
		switch wsMessage.MessageType {
		case Command:
			response = s.handleCommand(ctx, conn, wsMessage.Message)
		default:
			response = WebSocketResponse{Success: false, Error: fmt.Sprintf("unknown message type %q", wsMessage.MessageType)}
		}
		if err := s.metricsWriter.Send(conn, response); err != nil {
			slog.Error("Failed to send response", "error", err)
			return
		}
	}
}

// forwardRunStatus relays status notifications of one run until ctx ends or
// the subscription closes.
func (s *Server) forwardRunStatus(ctx context.Context, conn *websocket.Conn, runId string, statuses <-chan string, unsubscribe func() error) {
	defer func() {
		if err := unsubscribe(); err != nil {
			slog.Warn("Failed to unsubscribe from run status", "run_id", runId, "error", err)
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case status, ok := <-statuses:
			if !ok {
				return
			}
			event := WebSocketResponse{Success: true, Data: RunStatusEvent{RunId: runId, Status: datamodels.RunStatus(status)}}
			if err := s.metricsWriter.Send(conn, event); err != nil {
				slog.Warn("Failed to forward run status", "run_id", runId, "error", err)
				return
			}
		}
	}
}
