package memory

import (
	"sync"

	"github.com/aretw0/rerun/pkg/domain"
)

// Recorder implements ports.Transport by keeping every message in memory.
// It backs tests and the terminal demo.
type Recorder struct {
	mu       sync.Mutex
	messages []domain.Message
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Send records an update.
func (r *Recorder) Send(sessionID string, u domain.Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, domain.NewUpdateMessage(sessionID, u))
}

// SendStatus records a status notification.
func (r *Recorder) SendStatus(sessionID string, status domain.Status, unused map[string]int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, domain.NewStatusMessage(sessionID, status, unused))
}

// Messages returns a copy of everything recorded.
func (r *Recorder) Messages() []domain.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Updates returns the recorded update messages, skipping status notifications.
func (r *Recorder) Updates() []domain.Message {
	var out []domain.Message
	for _, m := range r.Messages() {
		if m.Type == domain.MessageTypeUpdate {
			out = append(out, m)
		}
	}
	return out
}

// Statuses returns the recorded status notifications.
func (r *Recorder) Statuses() []domain.Message {
	var out []domain.Message
	for _, m := range r.Messages() {
		if m.Type == domain.MessageTypeStatus {
			out = append(out, m)
		}
	}
	return out
}

// Drain returns everything recorded and forgets it.
func (r *Recorder) Drain() []domain.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.messages
	r.messages = nil
	return out
}
