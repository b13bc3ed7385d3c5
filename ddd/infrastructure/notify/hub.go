package notify

import (
	"sync"
	"time"

	"signage-service/pkg/logger"
)

// Notice is one unit delivered to a live-channel subscriber: either a
// heartbeat marker or a new manifest version.
type Notice struct {
	Heartbeat bool
	Version   int64
}

const subscriberBuffer = 8

// Hub fans manifest-version notices out to connected players. The
// heartbeat ticker only runs while at least one subscriber is connected.
type Hub struct {
	heartbeat time.Duration

	mu     sync.Mutex
	subs   map[chan Notice]struct{}
	ticker *time.Ticker
	stop   chan struct{}
}

func NewHub(heartbeat time.Duration) *Hub {
	return &Hub{heartbeat: heartbeat, subs: make(map[chan Notice]struct{})}
}

// Subscribe registers a listener and returns its channel plus a cancel
// function. The first subscriber starts the heartbeat ticker.
func (h *Hub) Subscribe() (<-chan Notice, func()) {
	ch := make(chan Notice, subscriberBuffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	if len(h.subs) == 1 {
		h.startHeartbeatLocked()
	}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
			if len(h.subs) == 0 {
				h.stopHeartbeatLocked()
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Broadcast delivers a new version to every subscriber. A subscriber whose
// buffer is full misses this notice; polling covers the gap.
func (h *Hub) Broadcast(version int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- Notice{Version: version}:
		default:
			logger.Debugf("dropped version notice for slow subscriber")
		}
	}
}

// Subscribers reports the current connection count.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) startHeartbeatLocked() {
	if h.heartbeat <= 0 {
		return
	}
	h.ticker = time.NewTicker(h.heartbeat)
	h.stop = make(chan struct{})
	go func(tick *time.Ticker, stop chan struct{}) {
		for {
			select {
			case <-tick.C:
				h.mu.Lock()
				for ch := range h.subs {
					select {
					case ch <- Notice{Heartbeat: true}:
					default:
					}
				}
				h.mu.Unlock()
			case <-stop:
				return
			}
		}
	}(h.ticker, h.stop)
}

func (h *Hub) stopHeartbeatLocked() {
	if h.ticker != nil {
		h.ticker.Stop()
		close(h.stop)
		h.ticker = nil
		h.stop = nil
	}
}
