package net

import (
	"encoding/json"
	"errors"
	nethttp "net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/FrogCounters/boatboat/internal/hub"
	"github.com/FrogCounters/boatboat/internal/net/proto"
	"github.com/FrogCounters/boatboat/internal/net/ws"
	"github.com/FrogCounters/boatboat/internal/observability"
	"github.com/FrogCounters/boatboat/internal/telemetry"
	"github.com/FrogCounters/boatboat/internal/world"
)

type HTTPHandlerConfig struct {
	Logger            zerolog.Logger
	WebSocket         ws.HandlerConfig
	Observability     observability.Config
	BroadcastInterval time.Duration
	Counters          *telemetry.Counters
}

type joinShipResponse struct {
	Success  bool   `json:"success"`
	ShipID   string `json:"ship_id"`
	PlayerID string `json:"player_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewHTTPHandler(h *hub.Hub, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	mux := nethttp.NewServeMux()
	wsHandler := ws.NewHandler(h, cfg.WebSocket)

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		payload := struct {
			Status         string            `json:"status"`
			ServerTime     int64             `json:"serverTime"`
			Hub            hub.Diagnostics   `json:"hub"`
			BroadcastMilli int64             `json:"broadcastIntervalMillis"`
			Telemetry      map[string]uint64 `json:"telemetry,omitempty"`
		}{
			Status:         "ok",
			ServerTime:     time.Now().UnixMilli(),
			Hub:            h.DiagnosticsSnapshot(),
			BroadcastMilli: cfg.BroadcastInterval.Milliseconds(),
			Telemetry:      cfg.Counters.Snapshot(),
		}
		writeJSON(w, nethttp.StatusOK, payload)
	})

	mux.HandleFunc("/joinship", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if websocket.IsWebSocketUpgrade(r) {
			wsHandler.HandleCrew(w, r)
			return
		}
		if r.Method != nethttp.MethodGet {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}

		shipID := r.URL.Query().Get("ship_id")
		if shipID == "" {
			writeJSON(w, nethttp.StatusBadRequest, errorResponse{Error: "Missing ship_id"})
			return
		}
		playerID, err := h.IssueTicket(shipID)
		if errors.Is(err, world.ErrShipNotFound) {
			writeJSON(w, nethttp.StatusNotFound, errorResponse{Error: "Ship not found"})
			return
		}
		if err != nil {
			logger.Error().Err(err).Str("ship", shipID).Msg("failed to issue crew ticket")
			httpError(w, "failed to join ship", nethttp.StatusInternalServerError)
			return
		}
		writeJSON(w, nethttp.StatusOK, joinShipResponse{Success: true, ShipID: shipID, PlayerID: playerID})
	})

	mux.HandleFunc("/protocol/schema", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodGet {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, nethttp.StatusOK, proto.Schema())
	})

	mux.HandleFunc("/ws", wsHandler.HandleVehicle)
	mux.HandleFunc("/ws/crew", wsHandler.HandleCrew)

	if observability.Mount(mux, cfg.Observability) {
		logger.Info().Msg("pprof endpoints mounted at /debug/pprof/")
	}

	return mux
}

func writeJSON(w nethttp.ResponseWriter, status int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		httpError(w, "failed to encode", nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func httpError(w nethttp.ResponseWriter, msg string, code int) {
	nethttp.Error(w, msg, code)
}
