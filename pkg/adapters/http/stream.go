package http

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/aretw0/rerun/internal/logging"
	"github.com/aretw0/rerun/pkg/domain"
	"github.com/aretw0/rerun/pkg/ports"
)

// DefaultBufferSize is the number of messages a slow subscriber may fall behind before drops.
const DefaultBufferSize = 256

// StreamManager fans engine messages out to the SSE and WebSocket connections of each session.
// It implements ports.Transport, so it is handed to the App as its transport.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan []byte]struct{}
	buffer      int
	logger      *slog.Logger
}

// NewStreamManager creates an empty stream manager.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan []byte]struct{}),
		buffer:      DefaultBufferSize,
		logger:      logger,
	}
}

var _ ports.Transport = (*StreamManager)(nil)

// Subscribe registers a connection for a session. The returned function unsubscribes and
// closes the channel.
func (sm *StreamManager) Subscribe(sessionID string) (<-chan []byte, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan []byte, sm.buffer)
	if _, ok := sm.subscribers[sessionID]; !ok {
		sm.subscribers[sessionID] = make(map[chan []byte]struct{})
	}
	sm.subscribers[sessionID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[sessionID]; ok {
				delete(subs, ch)
				close(ch)
				if len(subs) == 0 {
					delete(sm.subscribers, sessionID)
				}
			}
		})
	}
}

// Subscribers returns the number of connections of a session.
func (sm *StreamManager) Subscribers(sessionID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[sessionID])
}

// Broadcast delivers a payload to every connection of a session without blocking.
func (sm *StreamManager) Broadcast(sessionID string, payload []byte) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[sessionID] {
		select {
		case ch <- payload:
		default:
			// Slow client: drop rather than stall the run.
			sm.logger.Warn("Stream buffer full, dropping message", "session_id", sessionID)
		}
	}
}

// Send implements ports.Transport.
func (sm *StreamManager) Send(sessionID string, u domain.Update) {
	sm.publish(sessionID, domain.NewUpdateMessage(sessionID, u))
}

// SendStatus implements ports.Transport.
func (sm *StreamManager) SendStatus(sessionID string, status domain.Status, unused map[string]int) {
	sm.publish(sessionID, domain.NewStatusMessage(sessionID, status, unused))
}

func (sm *StreamManager) publish(sessionID string, msg domain.Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		sm.logger.Error("Failed to encode message", "session_id", sessionID, "err", err)
		return
	}
	sm.Broadcast(sessionID, payload)
}
