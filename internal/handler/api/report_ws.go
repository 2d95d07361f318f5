package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"VolScan/internal/domain/models"
	domrepo "VolScan/internal/domain/repository"
	"VolScan/internal/repository"
	xlogger "VolScan/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 16
)

// Message types pushed to subscribers.
const (
	TypeConnection = "connection"
	TypeReport     = "report"
)

type wsMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// ReportHub pushes a summary of every published report to WebSocket subscribers.
type ReportHub struct {
	mu       sync.RWMutex
	clients  map[*wsClient]struct{}
	upgrader websocket.Upgrader
	latest   LatestReports
	log      *xlogger.Logger
}

type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func NewReportHub(logger *xlogger.Logger, latest LatestReports) *ReportHub {
	return &ReportHub{
		clients: make(map[*wsClient]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		latest: latest,
		log:    logger,
	}
}

var _ domrepo.ResultSink = (*ReportHub)(nil)

func (h *ReportHub) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/report", h.Subscribe)
}

func (h *ReportHub) Name() string { return "websocket" }

// Publish broadcasts the report summary. Slow subscribers are dropped.
func (h *ReportHub) Publish(_ context.Context, r *models.Report) error {
	msg, err := encodeMessage(TypeReport, repository.NewReportEvent(r))
	if err != nil {
		return err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.log.Warn("websocket subscriber too slow, dropping", xlogger.String("client_id", c.id))
			go h.remove(c)
		}
	}
	return nil
}

// Clients returns the number of connected subscribers.
func (h *ReportHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Subscribe upgrades the connection and streams reports until the peer leaves.
func (h *ReportHub) Subscribe(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", xlogger.Error(err))
		return nil
	}
	client := &wsClient{id: uuid.NewString(), conn: conn, send: make(chan []byte, sendBuffer)}

	hello := map[string]interface{}{"client_id": client.id}
	if r, ok := h.latest.Latest(); ok {
		hello["latest"] = repository.NewReportEvent(r)
	}
	if msg, err := encodeMessage(TypeConnection, hello); err == nil {
		client.send <- msg
	}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	h.log.Info("websocket subscriber connected",
		xlogger.String("client_id", client.id),
		xlogger.String("remote", c.Request().RemoteAddr),
	)

	go h.writePump(client)
	h.readPump(client)
	return nil
}

// Close disconnects every subscriber.
func (h *ReportHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		c.once.Do(func() { close(c.send) })
	}
}

func (h *ReportHub) remove(c *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.once.Do(func() { close(c.send) })
	}
	h.mu.Unlock()
}

// readPump discards inbound frames and detects disconnects.
func (h *ReportHub) readPump(c *wsClient) {
	defer func() {
		h.remove(c)
		c.conn.Close()
		h.log.Info("websocket subscriber disconnected", xlogger.String("client_id", c.id))
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { return c.conn.SetReadDeadline(time.Now().Add(pongWait)) })
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("websocket read error", xlogger.String("client_id", c.id), xlogger.Error(err))
			}
			return
		}
	}
}

func (h *ReportHub) writePump(c *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func encodeMessage(typ string, data interface{}) ([]byte, error) {
	return json.Marshal(wsMessage{Type: typ, Data: data, Timestamp: time.Now().UTC()})
}
