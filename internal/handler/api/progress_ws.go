package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"SignalDesk/internal/domain/models"
	"SignalDesk/internal/service/metrics"
	"SignalDesk/internal/service/progress"
	applogger "SignalDesk/pkg/logger"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = pongWait * 9 / 10
)

// ProgressStreamHandler streams progress events over a websocket.
// Optional ticker and agent query parameters filter the stream.
type ProgressStreamHandler struct {
	hub      *progress.Hub
	upgrader websocket.Upgrader
	logger   *applogger.Logger
}

func NewProgressStreamHandler(hub *progress.Hub, logger *applogger.Logger) *ProgressStreamHandler {
	metrics.Register()
	if logger == nil {
		logger = applogger.NewNop()
	}
	return &ProgressStreamHandler{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *ProgressStreamHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/progress", h.Stream)
}

func (h *ProgressStreamHandler) Stream(c echo.Context) error {
	ticker := strings.ToUpper(strings.TrimSpace(c.QueryParam("ticker")))
	agent := strings.TrimSpace(c.QueryParam("agent"))

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Warn("progress upgrade failed", applogger.Error(err))
		return nil
	}
	defer conn.Close()

	events, cancel := h.hub.Subscribe()
	defer cancel()
	metrics.ProgressClients.Inc()
	defer metrics.ProgressClients.Dec()

	closed := make(chan struct{})
	go readPump(conn, closed)

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	for {
		select {
		case <-closed:
			return nil
		case <-c.Request().Context().Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if !matches(ev, ticker, agent) {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				h.logger.Debug("progress client gone", applogger.Error(err))
				return nil
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		}
	}
}

// readPump discards client frames and keeps the pong deadline fresh. It
// closes done once the client goes away.
func readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// matches keeps agent wide events (no ticker) when filtering by ticker.
func matches(ev models.ProgressEvent, ticker, agent string) bool {
	if agent != "" && ev.Agent != agent {
		return false
	}
	return ticker == "" || ev.Ticker == "" || ev.Ticker == ticker
}
