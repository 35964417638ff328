package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventRunBegin EventType = "run_begin"
	EventRunEnd   EventType = "run_end"
	EventSend     EventType = "send"
	EventSkip     EventType = "skip"
	EventConflict EventType = "conflict"
)

// SendKind classifies emitted updates.
type SendKind string

const (
	SendWidget   SendKind = "widget"
	SendTruncate SendKind = "truncate"
	SendReset    SendKind = "reset"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// RunEvent marks the start or the end of a run.
type RunEvent struct {
	EventBase
	Outcome  OutcomeKind   `json:"outcome,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	Widgets  int           `json:"widgets,omitempty"`
}

// SendEvent describes one emitted or skipped widget update.
type SendEvent struct {
	EventBase
	Kind       SendKind `json:"kind,omitempty"`
	Container  string   `json:"container"`
	WidgetKey  string   `json:"widget_key,omitempty"`
	WidgetType string   `json:"widget_type,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnRunBegin func(context.Context, *RunEvent)
	OnRunEnd   func(context.Context, *RunEvent)
	OnSend     func(context.Context, *SendEvent)
	OnSkip     func(context.Context, *SendEvent)

	// OnConflict fires when a widget is rejected for a duplicate identity.
	OnConflict func(context.Context, *SendEvent)
}

// OutcomeKind classifies how a run finished.
type OutcomeKind string

const (
	OutcomeCompleted OutcomeKind = "completed"
	OutcomeBreak     OutcomeKind = "break"
	OutcomeFailed    OutcomeKind = "failed"
)
