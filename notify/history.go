package notify

import "sync"

const defaultHistorySize = 50

// History keeps the most recent notices, oldest first.
type History struct {
	mu      sync.Mutex
	max     int
	notices []Notice
}

func NewHistory(max int) *History {
	if max <= 0 {
		max = defaultHistorySize
	}
	return &History{max: max}
}

func (h *History) Deliver(n Notice) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.notices = append(h.notices, n)
	if len(h.notices) > h.max {
		excess := len(h.notices) - h.max
		h.notices = append([]Notice(nil), h.notices[excess:]...)
	}
}

func (h *History) List() []Notice {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Notice, len(h.notices))
	copy(out, h.notices)
	return out
}

// Messages returns the notices at level, in order. Pass "" for all levels.
func (h *History) Messages(level Level) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, n := range h.notices {
		if level == "" || n.Level == level {
			out = append(out, n.Message)
		}
	}
	return out
}

func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.notices = nil
}
