package handler

import (
	"context"
	"net/http"

	"github.com/dcanales/billetera-backend/internal/websocket"
	ws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// TokenValidator resolves a session token to a user id. Browsers cannot set
// headers on WebSocket upgrades, so the token arrives as a query parameter.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (uid string, err error)
}

// WebSocketHandler upgrades connections onto the per-user event feed
type WebSocketHandler struct {
	hub       *websocket.Hub
	validator TokenValidator
	origins   map[string]bool
	upgrader  ws.Upgrader
}

// NewWebSocketHandler creates a new WebSocketHandler
func NewWebSocketHandler(hub *websocket.Hub, validator TokenValidator, allowedOrigins []string) *WebSocketHandler {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		origins[origin] = true
	}

	h := &WebSocketHandler{
		hub:       hub,
		validator: validator,
		origins:   origins,
	}
	h.upgrader = ws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// checkOrigin admits the configured origins plus requests without an Origin
// header (non-browser clients).
func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || h.origins[origin] {
		return true
	}
	log.Warn().Str("origin", origin).Msg("WebSocket origin rejected")
	return false
}

// HandleWS authenticates and upgrades a connection at GET /ws
func (h *WebSocketHandler) HandleWS(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing token")
	}
	uid, err := h.validator.ValidateToken(c.Request().Context(), token)
	if err != nil {
		log.Debug().Err(err).Msg("WebSocket token rejected")
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade failed")
		return err
	}

	client := websocket.NewClient(conn, uid, h.hub)
	h.hub.Register(client)
	log.Info().
		Str("uid", uid).
		Str("client_id", client.ID()).
		Msg("WebSocket client connected")

	go client.WriteLoop()
	go client.ReadLoop()
	return nil
}
