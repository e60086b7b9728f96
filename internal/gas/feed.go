package gas

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gaslens/gaslens/internal/observability/metrics"
)

const (
	writeWait = 5 * time.Second
	// sendBuffer is how many readings a client may fall behind before it is dropped
	sendBuffer = 4
)

// FeedMessage is pushed to websocket subscribers on every poll
type FeedMessage struct {
	Data      GasPrice `json:"data"`
	Source    Source   `json:"source"`
	Level     string   `json:"level"`
	Alert     bool     `json:"alert"`
	Timestamp int64    `json:"timestamp"`
}

// thresholds are a subscriber's alert bounds in gwei; zero disables a bound
type thresholds struct {
	below float64
	above float64
}

func (t thresholds) triggered(standard float64) bool {
	return (t.below > 0 && standard <= t.below) || (t.above > 0 && standard >= t.above)
}

// Feed polls the gas service and broadcasts readings to websocket clients
type Feed struct {
	svc      Reader
	interval time.Duration
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

// client is one subscriber. Only its write loop writes to conn.
type client struct {
	conn   *websocket.Conn
	bounds thresholds
	send   chan Reading
}

// FeedOption configures a Feed
type FeedOption func(*Feed)

// WithOriginCheck decides which browser origins may open the feed. Without
// it only same-origin and non-browser clients are accepted.
func WithOriginCheck(check func(r *http.Request) bool) FeedOption {
	return func(f *Feed) {
		f.upgrader.CheckOrigin = check
	}
}

// NewFeed creates a gas feed polling every interval
func NewFeed(svc Reader, interval time.Duration, logger *slog.Logger, opts ...FeedOption) *Feed {
	if interval <= 0 {
		interval = 12 * time.Second
	}
	f := &Feed{
		svc:      svc,
		interval: interval,
		logger:   logger,
		clients:  make(map[*client]struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Run polls until ctx is cancelled, skipping polls while nobody is listening
func (f *Feed) Run(ctx context.Context) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if f.clientCount() == 0 {
				continue
			}
			f.broadcast(f.svc.Current(ctx))
		}
	}
}

// Close disconnects every client
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for c := range f.clients {
		f.drop(c)
	}
	metrics.GasFeedClients(0)
}

// ServeHTTP upgrades the connection and sends the current reading
// immediately. Optional below/above query parameters set alert thresholds.
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	bounds, ok := parseThresholds(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "below and above must be positive numbers")
		return
	}

	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, bounds: bounds, send: make(chan Reading, sendBuffer)}
	c.send <- f.svc.Current(r.Context())

	f.mu.Lock()
	f.clients[c] = struct{}{}
	metrics.GasFeedClients(len(f.clients))
	f.mu.Unlock()

	go f.writeLoop(c)
	go f.readLoop(c)
}

// readLoop discards client frames and unregisters the client once the
// connection closes
func (f *Feed) readLoop(c *client) {
	defer f.remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writeLoop delivers queued readings until the client is dropped
func (f *Feed) writeLoop(c *client) {
	for reading := range c.send {
		if err := f.write(c, reading); err != nil {
			f.logger.Debug("dropping gas feed client", "error", err)
			f.remove(c)
			return
		}
	}
}

// broadcast queues reading for every client without waiting on any of
// them. Clients whose queue is full are dropped.
func (f *Feed) broadcast(reading Reading) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for c := range f.clients {
		select {
		case c.send <- reading:
		default:
			f.logger.Debug("dropping slow gas feed client")
			f.drop(c)
		}
	}
}

func (f *Feed) write(c *client, reading Reading) error {
	msg, err := json.Marshal(FeedMessage{
		Data:      reading.Price,
		Source:    reading.Source,
		Level:     Level(reading.Price.Standard),
		Alert:     c.bounds.triggered(reading.Price.Standard),
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		return err
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

func (f *Feed) remove(c *client) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drop(c)
}

// drop must be called with f.mu held
func (f *Feed) drop(c *client) {
	if _, ok := f.clients[c]; !ok {
		return
	}
	delete(f.clients, c)
	close(c.send)
	c.conn.Close()
	metrics.GasFeedClients(len(f.clients))
}

func (f *Feed) clientCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

func parseThresholds(r *http.Request) (thresholds, bool) {
	var t thresholds
	for _, p := range []struct {
		name string
		dst  *float64
	}{{"below", &t.below}, {"above", &t.above}} {
		raw := r.URL.Query().Get(p.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || !(v > 0) {
			return thresholds{}, false
		}
		*p.dst = v
	}
	return t, true
}
