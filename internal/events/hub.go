package events

import (
	"net/http"
	"sync"
	"time"

	"github.com/cryptoarcade/backend/internal/logger"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxConnsPerAccount = 8
)

// Hub relays an account's events to its websocket connections.
type Hub struct {
	broker   Broker
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[string]int // account id -> open connections
}

func NewHub(broker Broker, allowedOrigins []string) *Hub {
	h := &Hub{broker: broker, conns: make(map[string]int)}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

// originChecker accepts any origin when the list is empty or holds a
// wildcard entry.
func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin || a == "https://*" || a == "http://*" {
				return true
			}
		}
		return false
	}
}

// Connections reports how many sockets accountID has open.
func (h *Hub) Connections(accountID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conns[accountID]
}

func (h *Hub) track(accountID string, delta int) {
	h.mu.Lock()
	h.conns[accountID] += delta
	if h.conns[accountID] <= 0 {
		delete(h.conns, accountID)
	}
	h.mu.Unlock()
}

// Serve upgrades the request and streams accountID's events until the
// client goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, accountID string) {
	if h.Connections(accountID) >= maxConnsPerAccount {
		http.Error(w, "too many connections", http.StatusTooManyRequests)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WarnCtx(r.Context(), "websocket upgrade failed", zap.Error(err))
		return
	}

	events, cancel := h.broker.Subscribe(accountID)
	h.track(accountID, 1)
	logger.InfoCtx(r.Context(), "ws connected", zap.String("account_id", accountID))

	done := make(chan struct{})
	go h.readPump(conn, done)

	defer func() {
		cancel()
		h.track(accountID, -1)
		conn.Close()
		logger.Info("ws disconnected", zap.String("account_id", accountID))
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case ev, ok := <-events:
			if !ok {
				// dropped for lagging; the client reconnects and re-reads its balance
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "resync"),
					time.Now().Add(writeWait))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				logger.Warn("ws send failed", zap.String("account_id", accountID), zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// readPump drains client frames so control messages are processed, and
// closes done when the connection ends.
func (h *Hub) readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
