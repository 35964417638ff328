package domain

// Update is one incremental operation for the client.
//
// Render == nil together with ClearBefore means "truncate Container from Index onward".
type Update struct {
	Render      *string
	Register    *string
	Container   Container
	Index       *int
	ClearBefore bool
}

// IsTruncation reports whether the update only deletes entries.
func (u Update) IsTruncation() bool {
	return u.Render == nil && u.ClearBefore
}

// Message is the transport-neutral representation of an update or status notification.
type Message struct {
	Type        string         `json:"type"`
	SessionID   string         `json:"session_id"`
	Container   string         `json:"container,omitempty"`
	Index       *int           `json:"index,omitempty"`
	ClearBefore bool           `json:"clear_before,omitempty"`
	Render      *string        `json:"render,omitempty"`
	Register    *string        `json:"register,omitempty"`
	Status      Status         `json:"status,omitempty"`
	Unused      map[string]int `json:"unused,omitempty"`
}

const (
	MessageTypeUpdate = "update"
	MessageTypeStatus = "status"
)

// NewUpdateMessage converts an update for transports.
func NewUpdateMessage(sessionID string, u Update) Message {
	return Message{
		Type:        MessageTypeUpdate,
		SessionID:   sessionID,
		Container:   u.Container.Key(),
		Index:       u.Index,
		ClearBefore: u.ClearBefore,
		Render:      u.Render,
		Register:    u.Register,
	}
}

// NewStatusMessage converts a status notification for transports.
func NewStatusMessage(sessionID string, status Status, unused map[string]int) Message {
	return Message{
		Type:      MessageTypeStatus,
		SessionID: sessionID,
		Status:    status,
		Unused:    unused,
	}
}
