package domain

import (
	"maps"
	"net/url"
)

// Status is the run status reported to the client.
type Status string

const (
	StatusBegin   Status = "BEGIN"
	StatusRunning Status = "RUNNING"
	StatusEnd     Status = "END"
)

// DefaultNamespace is the page namespace used before any page is selected.
const DefaultNamespace = "app"

// Page is one page of a multi-page app.
type Page struct {
	// Path is the URL path that selects the page, e.g. "/settings".
	Path string
	// Title is shown in navigation.
	Title string
	// Namespace prefixes the identity of every widget declared while the page is active.
	Namespace string
}

// NamespaceOrDefault returns the identity namespace of the page.
func (p Page) NamespaceOrDefault() string {
	if p.Namespace != "" {
		return p.Namespace
	}
	if p.Path != "" {
		return "page" + p.Path
	}
	return DefaultNamespace
}

// URLContext is the client URL that triggered the run.
type URLContext struct {
	Path  string
	Query url.Values
}

// Clone returns a deep copy.
func (u URLContext) Clone() URLContext {
	out := URLContext{Path: u.Path}
	if u.Query != nil {
		out.Query = make(url.Values, len(u.Query))
		for k, v := range u.Query {
			out.Query[k] = append([]string(nil), v...)
		}
	}
	return out
}

// MediaEntry is a payload registered during a run and served by hash.
type MediaEntry struct {
	Hash     string
	MimeType string
	Data     []byte
}

// SessionState is the durable state of one connected client.
// It is not safe for concurrent use: the session gate serialises every access.
type SessionState struct {
	ID string

	// UserState is free-form state owned by the script.
	UserState map[string]any

	// WidgetState holds widget values by internal key. Not exposed to scripts.
	WidgetState map[string]any

	// UserVisibleWidgetState holds widget values by namespaced user key.
	UserVisibleWidgetState map[string]any

	InternalKeyToUserKey map[string]string

	// PendingFormState buffers updates of widgets inside forms until submit, by form key then internal key.
	PendingFormState map[string]map[string]any

	// FormKeysToReset lists widgets restored to their initial value at the end of the next run.
	FormKeysToReset map[string]struct{}

	// CallbackKey is the widget whose callback runs at the start of the next run.
	CallbackKey string

	URL   URLContext
	Media map[string]MediaEntry

	LastExecutionPage *Page
	IsDeveloper       bool

	// RegisteredTypes are widget types whose register markup the client already received.
	RegisteredTypes map[string]struct{}

	// NavigationKeys are widgets whose state is derived from the URL.
	NavigationKeys map[string]struct{}

	// LastExecution is the frozen snapshot of the previous run, owned by the runtime.
	LastExecution any
}

// NewSessionState creates an empty session.
func NewSessionState(id string) *SessionState {
	return &SessionState{
		ID:                     id,
		UserState:              make(map[string]any),
		WidgetState:            make(map[string]any),
		UserVisibleWidgetState: make(map[string]any),
		InternalKeyToUserKey:   make(map[string]string),
		PendingFormState:       make(map[string]map[string]any),
		FormKeysToReset:        make(map[string]struct{}),
		Media:                  make(map[string]MediaEntry),
		RegisteredTypes:        make(map[string]struct{}),
		NavigationKeys:         make(map[string]struct{}),
	}
}

// NamespacedUserKey builds the key of a user-visible widget value.
func NamespacedUserKey(namespace, userKey string) string {
	return namespace + ":" + userKey
}

// Upsert stores a widget value under its internal key and, when present, its namespaced user key.
func (s *SessionState) Upsert(internalKey, namespacedUserKey string, value any) {
	s.WidgetState[internalKey] = value
	if namespacedUserKey != "" {
		s.UserVisibleWidgetState[namespacedUserKey] = value
		s.InternalKeyToUserKey[internalKey] = namespacedUserKey
	}
}

// Forget removes every trace of a widget value.
func (s *SessionState) Forget(internalKey string) {
	delete(s.WidgetState, internalKey)
	if userKey, ok := s.InternalKeyToUserKey[internalKey]; ok {
		delete(s.UserVisibleWidgetState, userKey)
		delete(s.InternalKeyToUserKey, internalKey)
	}
	for formKey, pending := range s.PendingFormState {
		delete(pending, internalKey)
		if len(pending) == 0 {
			delete(s.PendingFormState, formKey)
		}
	}
	delete(s.FormKeysToReset, internalKey)
	delete(s.NavigationKeys, internalKey)
}

// VisibleSnapshot returns a copy of the user-visible widget state.
func (s *SessionState) VisibleSnapshot() map[string]any {
	return maps.Clone(s.UserVisibleWidgetState)
}

// ResetValues drops widget and user state but keeps the session, its URL and its last snapshot.
func (s *SessionState) ResetValues() {
	clear(s.UserState)
	clear(s.WidgetState)
	clear(s.UserVisibleWidgetState)
	clear(s.InternalKeyToUserKey)
	clear(s.PendingFormState)
	clear(s.FormKeysToReset)
	clear(s.NavigationKeys)
	s.CallbackKey = ""
}
