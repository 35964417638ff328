package ports

import "context"

// ReloadEvent is emitted by the hot-reload collaborator.
type ReloadEvent struct {
	// Source names what changed, e.g. a file path.
	Source string

	// DependenciesChanged is set when values built against the previous dependency set are no longer usable.
	DependenciesChanged bool
}

// Reloader produces a runnable script from source and reports changes.
type Reloader interface {
	// Watch streams reload events until ctx is cancelled.
	Watch(ctx context.Context) (<-chan ReloadEvent, error)
}
