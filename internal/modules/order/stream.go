package order

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	clientBufferSize = 16
)

const (
	MessageOrders       = "orders"
	MessageStockWarning = "stock_warning"
)

// StreamMessage is the envelope pushed to staff dashboards.
type StreamMessage struct {
	Type    string        `json:"type"`
	Orders  []OrderView   `json:"orders,omitempty"`
	Warning *StockWarning `json:"warning,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type streamClient struct {
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func (c *streamClient) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// Hub streams the live order list and stock warnings to connected staff.
// New clients receive the latest order list right away.
type Hub struct {
	service Service
	bus     EventBus.Bus
	log     *zap.Logger

	mu      sync.Mutex
	clients map[*streamClient]struct{}
	last    []byte
	sub     Subscription
	stopped bool
}

func NewHub(service Service, bus EventBus.Bus, log *zap.Logger) *Hub {
	return &Hub{
		service: service,
		bus:     bus,
		log:     log,
		clients: make(map[*streamClient]struct{}),
	}
}

// Start subscribes to order changes and stock warnings.
func (h *Hub) Start() error {
	sub, err := h.service.ObserveOrders(h.onOrders)
	if err != nil {
		return err
	}
	if h.bus != nil {
		if err := h.bus.Subscribe(TopicStockWarning, h.onStockWarning); err != nil {
			sub.Unsubscribe()
			return err
		}
	}
	h.mu.Lock()
	h.sub = sub
	h.mu.Unlock()
	return nil
}

// Stop cancels the subscriptions and disconnects every client.
func (h *Hub) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	sub := h.sub
	clients := h.clients
	h.clients = make(map[*streamClient]struct{})
	h.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	if h.bus != nil {
		_ = h.bus.Unsubscribe(TopicStockWarning, h.onStockWarning)
	}
	for c := range clients {
		c.close()
	}
}

// ClientCount is the number of connected dashboards.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &streamClient{
		conn: conn,
		send: make(chan []byte, clientBufferSize),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	if h.last != nil {
		c.send <- h.last
	}
	h.mu.Unlock()

	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) onOrders(orders []*Order) {
	views := make([]OrderView, len(orders))
	for i, o := range orders {
		views[i] = NewOrderView(o)
	}
	msg, err := json.Marshal(StreamMessage{Type: MessageOrders, Orders: views})
	if err != nil {
		h.log.Error("encode order stream message", zap.Error(err))
		return
	}
	h.mu.Lock()
	h.last = msg
	h.mu.Unlock()
	h.broadcast(msg)
}

func (h *Hub) onStockWarning(w StockWarning) {
	msg, err := json.Marshal(StreamMessage{Type: MessageStockWarning, Warning: &w})
	if err != nil {
		h.log.Error("encode stock warning", zap.Error(err))
		return
	}
	h.broadcast(msg)
}

// broadcast drops clients whose buffer is full rather than blocking writers.
func (h *Hub) broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.log.Warn("dropping slow stream client")
			delete(h.clients, c)
			c.close()
		}
	}
}

func (h *Hub) unregister(c *streamClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

func (h *Hub) readPump(c *streamClient) {
	defer h.unregister(c)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Debug("stream client read", zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writePump(c *streamClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		h.unregister(c)
	}()
	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
