package stream

import (
	"net/http"
	"sync"
	"time"

	"PriceWatch/internal/domain/models"
	applogger "PriceWatch/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 90 * time.Second
	pingPeriod = 45 * time.Second
	sendBuffer = 64
)

// Message is one frame pushed to chart clients.
type Message struct {
	Type      string            `json:"type"`
	ItemKey   string            `json:"item_key"`
	Timeframe models.Timeframe  `json:"timeframe,omitempty"`
	Zoom      models.ZoomWindow `json:"zoom,omitempty"`
	Data      interface{}       `json:"data,omitempty"`
	At        time.Time         `json:"at"`
}

const (
	TypeSnapshot   = "snapshot"
	TypeCandles    = "candles"
	TypeRange      = "range"
	TypeEvaluation = "evaluation"
)

type client struct {
	conn *websocket.Conn
	out  chan Message
	done chan struct{}
}

// Hub fans chart updates out to websocket clients subscribed per item. It
// is the rendering sink of a session. Slow clients drop frames rather than
// block publishers.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*client]struct{}
	upgrader websocket.Upgrader
	log      *applogger.Logger
	now      func() time.Time
}

func NewHub(l *applogger.Logger) *Hub {
	if l == nil {
		l = applogger.Nop()
	}
	return &Hub{
		clients: make(map[string]map[*client]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin:       func(*http.Request) bool { return true },
			EnableCompression: true,
		},
		log: l.With(applogger.String("component", "stream")),
		now: time.Now,
	}
}

// PublishCandles pushes the candle series of the current timeframe.
func (h *Hub) PublishCandles(itemKey string, tf models.Timeframe, candles []models.Candle) {
	h.broadcast(itemKey, Message{Type: TypeCandles, ItemKey: itemKey, Timeframe: tf, Data: candles})
}

// PublishRange pushes the visible range for a zoom window.
func (h *Hub) PublishRange(itemKey string, zoom models.ZoomWindow, r models.Range) {
	h.broadcast(itemKey, Message{Type: TypeRange, ItemKey: itemKey, Zoom: zoom, Data: r})
}

// PublishEvaluation pushes the outcome of a poll cycle.
func (h *Hub) PublishEvaluation(itemKey string, res models.EvaluationResult) {
	h.broadcast(itemKey, Message{Type: TypeEvaluation, ItemKey: itemKey, Data: res})
}

// Subscribers returns the number of clients watching itemKey.
func (h *Hub) Subscribers(itemKey string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[itemKey])
}

func (h *Hub) broadcast(itemKey string, m Message) {
	m.At = h.now().UTC()
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[itemKey] {
		select {
		case c.out <- m:
		default:
			h.log.Debug("dropping frame for slow client", applogger.String("item", itemKey), applogger.String("type", m.Type))
		}
	}
}

// Serve upgrades the request and streams itemKey's updates until the
// client goes away. The greeting frames are sent first.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, itemKey string, greeting ...Message) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	cl := &client{conn: conn, out: make(chan Message, sendBuffer), done: make(chan struct{})}
	for _, m := range greeting {
		m.At = h.now().UTC()
		cl.out <- m
	}
	h.add(itemKey, cl)
	defer h.remove(itemKey, cl)

	go h.writeLoop(cl)

	// Reader only keeps the deadline fresh and notices disconnects.
	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	close(cl.done)
	return nil
}

func (h *Hub) writeLoop(cl *client) {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case m := <-cl.out:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteJSON(m); err != nil {
				return
			}
		case <-ping.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-cl.done:
			return
		}
	}
}

func (h *Hub) add(itemKey string, cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[itemKey]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[itemKey] = set
	}
	set[cl] = struct{}{}
}

func (h *Hub) remove(itemKey string, cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.clients[itemKey]; ok {
		delete(set, cl)
		if len(set) == 0 {
			delete(h.clients, itemKey)
		}
	}
}

// CloseItem disconnects every client of itemKey; used when a session closes.
func (h *Hub) CloseItem(itemKey string) {
	h.mu.Lock()
	set := h.clients[itemKey]
	delete(h.clients, itemKey)
	h.mu.Unlock()
	for cl := range set {
		_ = cl.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"),
			time.Now().Add(writeWait))
		_ = cl.conn.Close()
	}
}
