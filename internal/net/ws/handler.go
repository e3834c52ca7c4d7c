package ws

import (
	nethttp "net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/FrogCounters/boatboat/internal/hub"
	"github.com/FrogCounters/boatboat/internal/session"
	"github.com/FrogCounters/boatboat/internal/telemetry"
)

// HandlerConfig tunes the websocket transport.
type HandlerConfig struct {
	Logger  zerolog.Logger
	Metrics telemetry.Metrics

	WriteWait    time.Duration
	PingInterval time.Duration
	IdleTimeout  time.Duration
	SendQueue    int
	ReadLimit    int64

	InboundRate  float64
	InboundBurst int
}

func (cfg HandlerConfig) withDefaults() HandlerConfig {
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = 10 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 10 * time.Second
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 30 * time.Second
	}
	if cfg.SendQueue <= 0 {
		cfg.SendQueue = 64
	}
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = 64 << 10
	}
	if cfg.InboundRate <= 0 {
		cfg.InboundRate = 120
	}
	if cfg.InboundBurst <= 0 {
		cfg.InboundBurst = 240
	}
	if cfg.Metrics == nil {
		cfg.Metrics = telemetry.Nop
	}
	return cfg
}

// Handler upgrades HTTP requests into vehicle and crew sessions.
type Handler struct {
	hub      *hub.Hub
	logger   zerolog.Logger
	cfg      HandlerConfig
	upgrader websocket.Upgrader
}

// NewHandler constructs a websocket handler bound to h.
func NewHandler(h *hub.Hub, cfg HandlerConfig) *Handler {
	cfg = cfg.withDefaults()
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}
	return &Handler{
		hub:      h,
		logger:   cfg.Logger,
		cfg:      cfg,
		upgrader: upgrader,
	}
}

// HandleVehicle serves a vehicle connection: the server assigns a ship id and
// announces it in the init frame.
func (h *Handler) HandleVehicle(w nethttp.ResponseWriter, r *nethttp.Request) {
	c, s, ok := h.open(w, r)
	if !ok {
		return
	}
	if _, err := h.hub.ConnectVehicle(s); err != nil {
		h.logger.Warn().Err(err).Msg("vehicle handshake failed")
		return
	}
	h.serve(c, s)
}

// HandleCrew serves a crew connection identified by ?ship_id= or by a
// REST-issued ?player_id=.
func (h *Handler) HandleCrew(w nethttp.ResponseWriter, r *nethttp.Request) {
	query := r.URL.Query()
	target := hub.CrewTarget{
		ShipID:   query.Get("ship_id"),
		PlayerID: query.Get("player_id"),
	}
	c, s, ok := h.open(w, r)
	if !ok {
		return
	}
	if _, err := h.hub.ConnectCrew(s, target); err != nil {
		h.logger.Debug().Err(err).Str("remote", r.RemoteAddr).Msg("crew handshake rejected")
		return
	}
	h.serve(c, s)
}

func (h *Handler) open(w nethttp.ResponseWriter, r *nethttp.Request) (*conn, *session.Session, bool) {
	wsConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("upgrade failed")
		return nil, nil, false
	}

	var s *session.Session
	c := newConn(wsConn, h.cfg, func(err error) {
		if s != nil {
			s.MarkFailed(err)
		}
	})
	s = session.New(c, time.Now())
	go c.writeLoop()

	if err := s.Accept(); err != nil {
		s.Close(session.CloseMalformed, "invalid handshake")
		return nil, nil, false
	}
	return c, s, true
}

func (h *Handler) serve(c *conn, s *session.Session) {
	logger := h.logger.With().Str("session", s.ID()).Str("role", s.Role().String()).Str("ship", s.ShipID()).Logger()
	limiter := rate.NewLimiter(rate.Limit(h.cfg.InboundRate), h.cfg.InboundBurst)
	readWait := h.cfg.IdleTimeout + h.cfg.PingInterval

	c.ws.SetReadLimit(h.cfg.ReadLimit)
	_ = c.ws.SetReadDeadline(time.Now().Add(readWait))
	c.ws.SetPongHandler(func(string) error {
		h.hub.Touch(s)
		return c.ws.SetReadDeadline(time.Now().Add(readWait))
	})

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug().Err(err).Msg("read failed")
			}
			h.hub.Disconnect(s, websocket.CloseNormalClosure, "transport closed")
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(readWait))

		if !limiter.Allow() {
			h.cfg.Metrics.Add(telemetry.WithReason(telemetry.MetricMessagesDropped, "rate_limited"), 1)
			logger.Debug().Msg("inbound rate exceeded; message dropped")
			continue
		}
		_ = h.hub.Handle(s, payload)
	}
}
