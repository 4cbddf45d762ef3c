package notify

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const clientBuffer = 64

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type wsMessage struct {
	Type   string  `json:"type"`
	Notice *Notice `json:"notice,omitempty"`
}

// Hub pushes notices to websocket clients. Slow clients lose notices
// rather than stall the sender.
type Hub struct {
	mu      sync.Mutex
	clients map[chan Notice]struct{}
	closed  bool
	logger  *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{clients: make(map[chan Notice]struct{}), logger: logger}
}

func (h *Hub) Deliver(n Notice) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- n:
		default:
			h.logger.Debug("dropping notice for slow client", zap.String("id", n.ID))
		}
	}
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.clients {
		delete(h.clients, ch)
		close(ch)
	}
}

func (h *Hub) add(ch chan Notice) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[ch] = struct{}{}
	return true
}

// remove closes ch unless Close already did.
func (h *Hub) remove(ch chan Notice) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[ch]; ok {
		delete(h.clients, ch)
		close(ch)
	}
}

// ServeHTTP upgrades the request and streams notices until the client
// disconnects or the hub is closed. The first message is {"type":"ready"}.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade", zap.Error(err))
		return
	}
	defer conn.Close()

	out := make(chan Notice, clientBuffer)
	if !h.add(out) {
		return
	}
	defer h.remove(out)

	if err := conn.WriteJSON(wsMessage{Type: "ready"}); err != nil {
		return
	}

	// Writer: exits when remove or Close closes out, then closes the conn so
	// the read loop below unblocks.
	go func() {
		for n := range out {
			n := n
			if err := conn.WriteJSON(wsMessage{Type: "notice", Notice: &n}); err != nil {
				break
			}
		}
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
