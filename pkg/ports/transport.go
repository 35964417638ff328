package ports

import "github.com/aretw0/rerun/pkg/domain"

// Transport is the render/transport collaborator the engine calls outward.
// Implementations must not block materially and must be safe for concurrent use.
type Transport interface {
	// Send delivers one add, replace or truncate operation.
	Send(sessionID string, update domain.Update)

	// SendStatus delivers a run status notification.
	// unused is only set at the end of runs of developer sessions.
	SendStatus(sessionID string, status domain.Status, unused map[string]int)
}

// TransportFuncs adapts plain functions to Transport.
type TransportFuncs struct {
	SendFunc       func(sessionID string, update domain.Update)
	SendStatusFunc func(sessionID string, status domain.Status, unused map[string]int)
}

func (t TransportFuncs) Send(sessionID string, update domain.Update) {
	if t.SendFunc != nil {
		t.SendFunc(sessionID, update)
	}
}

func (t TransportFuncs) SendStatus(sessionID string, status domain.Status, unused map[string]int) {
	if t.SendStatusFunc != nil {
		t.SendStatusFunc(sessionID, status, unused)
	}
}

// Multi fans every call out to several transports in order.
func Multi(transports ...Transport) Transport {
	return multi(transports)
}

type multi []Transport

func (m multi) Send(sessionID string, update domain.Update) {
	for _, t := range m {
		t.Send(sessionID, update)
	}
}

func (m multi) SendStatus(sessionID string, status domain.Status, unused map[string]int) {
	for _, t := range m {
		t.SendStatus(sessionID, status, unused)
	}
}
