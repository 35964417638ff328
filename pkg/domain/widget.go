package domain

// Field is one identity-relevant construction parameter of a widget.
type Field struct {
	Name  string
	Value any
}

// Identity carries what the identity resolver needs from a widget.
type Identity struct {
	// Fields are the construction parameters that define structural identity.
	// Callbacks and other non-comparable values must not be listed.
	Fields []Field

	// UserKey is the explicit key chosen by the script author, if any.
	UserKey string

	// NoPersist drops the widget state as soon as the widget leaves the script.
	NoPersist bool
}

// RenderContext is what a widget sees when producing its markup.
type RenderContext struct {
	Key       string
	Value     any
	HasValue  bool
	Container Container
}

// Widget is implemented by every element a script can place into a container.
type Widget interface {
	// TypeName is the declared type of the widget, used for identity and one-time registration.
	TypeName() string

	// Identity returns the identity-relevant parameters.
	Identity() Identity

	// Render returns the markup for the widget in its current state.
	Render(rc RenderContext) string

	// Register returns markup the client needs once per session for this widget type.
	Register() string
}

// Stateful widgets return a value to the script and keep it in session state.
type Stateful interface {
	Widget

	// DefaultValue is the value before any user interaction.
	DefaultValue() any

	// ParseValue converts a value reported by the client into the widget value type.
	ParseValue(raw any) (any, error)
}

// Resettable widgets revert to an idle value after each run, like momentary buttons.
type Resettable interface {
	// ResetValue returns the value to keep after the run and whether it changed.
	ResetValue(current any) (any, bool)
}

// WithCallback widgets run a callback at the start of the run triggered by their update.
type WithCallback interface {
	Callback() func(value any)
}

// Navigator widgets derive their value from the URL context instead of session state.
type Navigator interface {
	ResolveValue(url URLContext) any
}

// Submitter marks the submit widget of a form.
type Submitter interface {
	IsSubmit() bool
}

// ContainerProvider widgets return a sub-container to the script.
type ContainerProvider interface {
	Container(parent Container, key string) (Container, error)
}

// LayoutProvider widgets return several managed child containers to the script.
type LayoutProvider interface {
	Containers(parent Container, key string) ([]Container, error)
}

// ReturnsState reports whether the widget value counts as session state.
func ReturnsState(w Widget) bool {
	_, ok := w.(Stateful)
	return ok
}
