package push

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"AutoTrade/internal/domain/models"
	"AutoTrade/internal/repository"
	svcmetrics "AutoTrade/internal/service/metrics"
	"AutoTrade/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub broadcasts executed trades to connected WebSocket clients.
type Hub struct {
	log     *logger.Logger
	lock    sync.Mutex
	clients map[*websocket.Conn]struct{}
}

func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{
		log:     log.With(logger.String("component", "push")),
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// RegisterRoutes mounts GET /ws.
func (h *Hub) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws", h.serve)
}

func (h *Hub) serve(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", logger.Error(err))
		return nil
	}
	h.add(conn)
	go h.drain(conn)
	return nil
}

// drain discards inbound frames and detects disconnects.
func (h *Hub) drain(conn *websocket.Conn) {
	defer h.remove(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) add(conn *websocket.Conn) {
	h.lock.Lock()
	h.clients[conn] = struct{}{}
	n := len(h.clients)
	h.lock.Unlock()
	svcmetrics.PushClients.Set(float64(n))
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.lock.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		_ = conn.Close()
	}
	n := len(h.clients)
	h.lock.Unlock()
	svcmetrics.PushClients.Set(float64(n))
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return len(h.clients)
}

// Broadcast writes msg to every client and drops the ones that fail.
func (h *Hub) Broadcast(msg []byte) {
	h.lock.Lock()
	defer h.lock.Unlock()
	for conn := range h.clients {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			_ = conn.Close()
			delete(h.clients, conn)
		}
	}
	svcmetrics.PushClients.Set(float64(len(h.clients)))
}

// OnTrade implements NotificationSink.
func (h *Hub) OnTrade(_ context.Context, t models.TradeRecord) error {
	b, err := json.Marshal(repository.TradeEvent{Type: repository.EventNewTrade, Trade: t, Sent: time.Now().Unix()})
	if err != nil {
		return err
	}
	h.Broadcast(b)
	return nil
}

// Close disconnects all clients.
func (h *Hub) Close() {
	h.lock.Lock()
	defer h.lock.Unlock()
	for conn := range h.clients {
		_ = conn.Close()
		delete(h.clients, conn)
	}
}
