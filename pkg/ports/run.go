package ports

import (
	"context"

	"github.com/aretw0/rerun/pkg/domain"
)

// Run is the execution handle threaded through user scripts.
// It replaces any goroutine-bound ambient context: every widget builder receives it explicitly.
type Run interface {
	// Context is cancelled when the run is abandoned.
	Context() context.Context

	SessionID() string

	// Add places a widget into a container and returns what the script sees:
	// the widget value, a sub-container, a slice of layout containers, or nil.
	Add(w domain.Widget, c domain.Container) (any, error)

	// Instantiated records that a widget was constructed. Add balances it.
	Instantiated(typeName string)

	// Page returns the page whose namespace prefixes new widget identities.
	Page() domain.Page
	SetPage(p domain.Page)

	URL() domain.URLContext

	// UserState is the free-form session map owned by the script.
	UserState() map[string]any

	// WidgetValue returns the value of a user-keyed widget of the current page.
	WidgetValue(userKey string) (any, bool)

	// RegisterMedia stores a payload for this run and returns its URL path.
	RegisterMedia(data []byte, mimeType string) string

	Cache() Cache
}
