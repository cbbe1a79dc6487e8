package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	httpSwagger "github.com/swaggo/http-swagger"

	"macrocopilot/src/datamodels"
	"macrocopilot/src/utils/general"
	"macrocopilot/src/version"
)

// @title Macro Copilot API
// @version 1.0
// @description Reports, run history and a live metric stream for the macro regime copilot
// @host localhost:8080
// @BasePath /

// WebSocketMessageType represents the type of WebSocket message
// @Description Type of message being sent over WebSocket connection
type WebSocketMessageType string

const (
	// Command message type for sending commands
	Command WebSocketMessageType = "command"
)

// WebSocketMessage represents a message sent over WebSocket
// @Description Message structure for WebSocket communication
type WebSocketMessage struct {
	// Type of the WebSocket message
	// Required: true
	// Enum: command
	MessageType WebSocketMessageType `json:"message_type" example:"command"`
	// Raw JSON message payload
	// Required: true
	Message json.RawMessage `json:"message"`
}

// WebSocketResponse represents a response sent back over WebSocket
// @Description Response structure for WebSocket communication
type WebSocketResponse struct {
	// Whether the operation was successful
	// Required: true
	Success bool `json:"success" example:"true"`
	// Response payload data
	// Required: false
	Data any `json:"data"`
	// Error message if operation failed
	// Required: false
	Error string `json:"error,omitempty" example:"Failed to process message"`
}

type CommandAction string

const (
	SubscribeRun CommandAction = "subscribe_run"
)

// CommandData represents a command to be sent over WebSocket
// @Description Data structure for command messages
type CommandData struct {
	// Command action to be performed
	// Required: true
	Action CommandAction `json:"action" example:"subscribe_run"`
	// Run the command applies to
	RunId string `json:"run_id" example:"3b0f6a52-8c1d-5e7a-a2f9-6d4c1e9b7a30"`
}

// RunStatusEvent is pushed to subscribers when a run changes status.
type RunStatusEvent struct {
	RunId  string               `json:"run_id"`
	Status datamodels.RunStatus `json:"status"`
}

type HealthResponse struct {
	Status      string            `json:"status" example:"ok"`
	Build       map[string]string `json:"build"`
	SystemUsage map[string]string `json:"system_usage"`
}

// RegisterHealthCheck registers the health check endpoint
// @Summary Health check endpoint
// @Description Returns health status, build info and process usage
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (s *Server) RegisterHealthCheck() {
	s.httpMux.HandleFunc("GET "+s.config.HealthEndpoint, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{
			Status:      "ok",
			Build:       version.GetBuildInfo(),
			SystemUsage: general.GetSystemUsage(),
		})
	})
}

// RegisterReport registers the latest report endpoint
// @Summary Latest run report
// @Description Returns features, evaluation, periods and summary statistics of the last finished run
// @Tags report
// @Produce json
// @Success 200 {object} RunReport
// @Failure 404 {object} WebSocketResponse
// @Router /report [get]
func (s *Server) RegisterReport() {
	s.httpMux.HandleFunc("GET "+s.config.ReportEndpoint, func(w http.ResponseWriter, r *http.Request) {
		report, ok := s.reports.Latest()
		if !ok {
			writeJSON(w, http.StatusNotFound, WebSocketResponse{Success: false, Error: "no run has finished yet"})
			return
		}
		writeJSON(w, http.StatusOK, report)
	})
}

// RegisterRuns registers the run history endpoint
// @Summary Run history
// @Description Lists persisted runs, most recent first
// @Tags runs
// @Produce json
// @Param limit query int false "Maximum number of runs"
// @Success 200 {array} datamodels.BacktestRun
// @Failure 503 {object} WebSocketResponse
// @Router /runs [get]
func (s *Server) RegisterRuns() {
	s.httpMux.HandleFunc("GET /runs", func(w http.ResponseWriter, r *http.Request) {
		if s.runs == nil {
			writeJSON(w, http.StatusServiceUnavailable, WebSocketResponse{Success: false, Error: "run history needs postgres"})
			return
		}
		limit := 20
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, WebSocketResponse{Success: false, Error: "limit must be an integer"})
				return
			}
			limit = parsed
		}
		runs, err := s.runs.ListRuns(r.Context(), limit)
		if err != nil {
			slog.Error("Failed to list runs", "error", err)
			writeJSON(w, http.StatusInternalServerError, WebSocketResponse{Success: false, Error: "failed to list runs"})
			return
		}
		writeJSON(w, http.StatusOK, runs)
	})
}

// RegisterWebSocketHandler registers the WebSocket endpoint
// @Summary WebSocket connection endpoint
// @Description Streams run metrics as they are written and run status changes on request
// @Tags websocket
// @Accept json
// @Produce json
// @Success 101 {string} string "Switching protocols to websocket"
// @Router /ws [get]
func (s *Server) RegisterWebSocketHandler() {
	s.httpMux.HandleFunc("/ws", s.handleWebSocket)
}

// RegisterSwagger registers the Swagger documentation endpoint
// @Summary Swagger documentation endpoint
// @Description Serves the Swagger UI and the OpenAPI document
// @Tags docs
// @Produce json,html
// @Success 200 {string} string "Swagger documentation UI"
// @Router /swagger/ [get]
func (s *Server) RegisterSwagger() {
	s.httpMux.HandleFunc("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
}

// handleCommand processes incoming command messages over WebSocket
// @Description Handles incoming command data over WebSocket connection
// @Accept json
// @Produce json
// @Param payload body CommandData true "Command payload"
// @Success 200 {object} WebSocketResponse
// @Failure 400 {object} WebSocketResponse
func (s *Server) handleCommand(ctx context.Context, conn *websocket.Conn, payload []byte) WebSocketResponse {
	var command CommandData
	if err := json.Unmarshal(payload, &command); err != nil {
		slog.Error("Failed to unmarshal command payload", "error", err)
		return WebSocketResponse{
			Success: false,
			Error:   err.Error(),
		}
	}

	switch command.Action {
	case SubscribeRun:
		if s.runs == nil {
			return WebSocketResponse{Success: false, Error: "run status needs postgres"}
		}
		if command.RunId == "" {
			return WebSocketResponse{Success: false, Error: "run_id is required"}
		}
		statuses, unsubscribe, err := s.runs.SubscribeRunStatus(ctx, command.RunId)
		if err != nil {
			slog.Error("Failed to subscribe to run status", "run_id", command.RunId, "error", err)
			return WebSocketResponse{Success: false, Error: "failed to subscribe"}
		}
		go s.forwardRunStatus(ctx, conn, command.RunId, statuses, unsubscribe)
		slog.Info("Client subscribed to run status", "run_id", command.RunId)
		return WebSocketResponse{Success: true, Data: command}
	default:
		return WebSocketResponse{Success: false, Error: "unknown command " + string(command.Action)}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
