package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/rerun/internal/logging"
	"github.com/aretw0/rerun/pkg/adapters/memory"
	"github.com/aretw0/rerun/pkg/domain"
	"github.com/aretw0/rerun/pkg/ports"
	"github.com/aretw0/rerun/pkg/session"
)

// Engine reconciles successive runs of a script into incremental updates.
// It is the only writer of execution and session state while a run is open.
type Engine struct {
	sessions  *session.Registry
	transport ports.Transport
	cache     ports.Cache
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	mediaPath func(sessionID, hash string) string

	mu      sync.Mutex
	running map[string]*Execution
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithCache replaces the default in-memory cache.
func WithCache(cache ports.Cache) EngineOption {
	return func(e *Engine) {
		if cache != nil {
			e.cache = cache
		}
	}
}

// WithRegistry shares a session registry with other components.
func WithRegistry(r *session.Registry) EngineOption {
	return func(e *Engine) {
		if r != nil {
			e.sessions = r
		}
	}
}

// WithMediaPath customises the URL returned for registered media.
func WithMediaPath(fn func(sessionID, hash string) string) EngineOption {
	return func(e *Engine) {
		if fn != nil {
			e.mediaPath = fn
		}
	}
}

// NewEngine creates an engine sending updates to the given transport.
func NewEngine(transport ports.Transport, opts ...EngineOption) *Engine {
	e := &Engine{
		sessions:  session.NewRegistry(),
		transport: transport,
		cache:     memory.NewCache(),
		logger:    logging.NewNop(),
		mediaPath: func(sessionID, hash string) string {
			return fmt.Sprintf("/sessions/%s/media/%s", sessionID, hash)
		},
		running: make(map[string]*Execution),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.transport == nil {
		e.transport = ports.TransportFuncs{}
	}
	return e
}

// Sessions exposes the session registry.
func (e *Engine) Sessions() *session.Registry { return e.sessions }

// Cache returns the process-wide cache.
func (e *Engine) Cache() ports.Cache { return e.cache }

// Begin opens a run for the session.
// It fails with an IllegalStateError when a run is already open for the same session.
func (e *Engine) Begin(ctx context.Context, sessionID string) (*Execution, error) {
	e.mu.Lock()
	if _, busy := e.running[sessionID]; busy {
		e.mu.Unlock()
		return nil, domain.NewIllegalStateError("a run is already in progress for session %q", sessionID)
	}
	sess := e.sessions.GetOrCreate(sessionID)
	x := newExecution(ctx, e, sess)
	e.running[sessionID] = x
	e.mu.Unlock()

	e.transport.SendStatus(sessionID, domain.StatusBegin, nil)

	// Media is registered again by every run.
	clear(sess.Media)

	if prev, ok := sess.LastExecution.(*snapshot); ok {
		x.prev = prev
	}

	if key := sess.CallbackKey; key != "" {
		sess.CallbackKey = ""
		e.runCallback(x, key)
	}

	e.logger.Debug("Run started", "session_id", sessionID)
	if e.hooks.OnRunBegin != nil {
		e.hooks.OnRunBegin(ctx, &domain.RunEvent{
			EventBase: domain.EventBase{Timestamp: x.started, Type: domain.EventRunBegin, SessionID: sessionID},
		})
	}
	return x, nil
}

// runCallback invokes the callback of the widget whose update triggered this run.
// Callbacks run once, before any widget of the new run is added.
func (e *Engine) runCallback(x *Execution, key string) {
	reg := x.prev.lookup(key)
	if reg == nil {
		e.logger.Warn("Callback widget missing from previous run", "session_id", x.sessionID, "key", key)
		return
	}
	cb, ok := reg.Widget.(domain.WithCallback)
	if !ok || cb.Callback() == nil {
		return
	}
	value, ok := x.session.WidgetState[key]
	if !ok {
		value = reg.Value
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Widget callback panicked", "session_id", x.sessionID, "key", key, "panic", r)
		}
	}()
	cb.Callback()(value)
}

// Current returns the open run of a session, if any.
func (e *Engine) Current(sessionID string) (*Execution, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	x, ok := e.running[sessionID]
	return x, ok
}

func (e *Engine) release(x *Execution) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if cur, ok := e.running[x.sessionID]; ok && cur == x {
		delete(e.running, x.sessionID)
	}
}

func (e *Engine) send(x *Execution, u domain.Update, kind domain.SendKind, reg *Registration) {
	e.transport.Send(x.sessionID, u)
	if e.hooks.OnSend != nil {
		ev := &domain.SendEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventSend, SessionID: x.sessionID},
			Kind:      kind,
			Container: u.Container.Key(),
		}
		if reg != nil {
			ev.WidgetKey = reg.InternalKey
			ev.WidgetType = reg.Widget.TypeName()
		}
		e.hooks.OnSend(x.ctx, ev)
	}
}

func (e *Engine) skipped(x *Execution, reg *Registration) {
	if e.hooks.OnSkip != nil {
		e.hooks.OnSkip(x.ctx, &domain.SendEvent{
			EventBase:  domain.EventBase{Timestamp: time.Now(), Type: domain.EventSkip, SessionID: x.sessionID},
			Container:  reg.Container.Key(),
			WidgetKey:  reg.InternalKey,
			WidgetType: reg.Widget.TypeName(),
		})
	}
}

func (e *Engine) conflict(x *Execution, reg *Registration) {
	e.logger.Debug("Duplicate widget identity", "session_id", x.sessionID, "key", reg.InternalKey, "container", reg.Container.Key())
	if e.hooks.OnConflict != nil {
		e.hooks.OnConflict(x.ctx, &domain.SendEvent{
			EventBase:  domain.EventBase{Timestamp: time.Now(), Type: domain.EventConflict, SessionID: x.sessionID},
			Container:  reg.Container.Key(),
			WidgetKey:  reg.InternalKey,
			WidgetType: reg.Widget.TypeName(),
		})
	}
}

// SetURLContext records the URL of the session and invalidates URL-derived widget state.
func (e *Engine) SetURLContext(sessionID, path string, query map[string][]string) {
	sess := e.sessions.GetOrCreate(sessionID)
	sess.URL = domain.URLContext{Path: path, Query: query}.Clone()
	for key := range sess.NavigationKeys {
		delete(sess.WidgetState, key)
	}
	clear(sess.NavigationKeys)
}

// SetDeveloper marks a session as originating from a developer (localhost or dev mode).
func (e *Engine) SetDeveloper(sessionID string, developer bool) {
	e.sessions.GetOrCreate(sessionID).IsDeveloper = developer
}

// RegisterCallback records the widget whose callback runs at the start of the next run.
func (e *Engine) RegisterCallback(sessionID, widgetKey string) error {
	sess, ok := e.sessions.Get(sessionID)
	if !ok {
		return fmt.Errorf("register callback: %w", domain.ErrSessionNotFound)
	}
	sess.CallbackKey = widgetKey
	return nil
}

// UserState returns the live free-form state of a session.
func (e *Engine) UserState(sessionID string) (map[string]any, error) {
	sess, ok := e.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return sess.UserState, nil
}

// UserVisibleWidgetState returns a copy of the user-keyed widget values of a session.
func (e *Engine) UserVisibleWidgetState(sessionID string) (map[string]any, error) {
	sess, ok := e.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return sess.VisibleSnapshot(), nil
}

// Media returns a payload registered by the last run of a session.
func (e *Engine) Media(sessionID, hash string) (domain.MediaEntry, bool) {
	sess, ok := e.sessions.Get(sessionID)
	if !ok {
		return domain.MediaEntry{}, false
	}
	m, ok := sess.Media[hash]
	return m, ok
}

// ResetSession drops widget and user values of one session, keeping the session itself.
func (e *Engine) ResetSession(sessionID string) {
	if sess, ok := e.sessions.Get(sessionID); ok {
		sess.ResetValues()
	}
}

// ClearCache empties the shared cache, e.g. after the script dependencies changed.
func (e *Engine) ClearCache(ctx context.Context) error {
	if err := e.cache.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	e.logger.Info("Cache cleared")
	return nil
}

// Disconnect destroys the state of a session.
func (e *Engine) Disconnect(sessionID string) {
	e.sessions.Delete(sessionID)
	e.logger.Debug("Session disconnected", "session_id", sessionID)
}

// Layout describes the containers and widgets of the last finished run of a session.
// It is empty until the first run ends.
func (e *Engine) Layout(sessionID string) ([]domain.ContainerLayout, error) {
	sess, ok := e.sessions.Get(sessionID)
	if !ok {
		return nil, fmt.Errorf("layout: %w", domain.ErrSessionNotFound)
	}
	snap, _ := sess.LastExecution.(*snapshot)
	if snap == nil {
		return nil, nil
	}
	out := make([]domain.ContainerLayout, 0, len(snap.order))
	for _, ck := range snap.order {
		fs := snap.slots[ck]
		cl := domain.ContainerLayout{
			Container: ck,
			InPlace:   fs.container.InPlace(),
			Form:      fs.container.IsFormRoot(),
			Widgets:   make([]domain.LayoutWidget, 0, len(fs.regs)),
		}
		if parent, ok := fs.container.Parent(); ok {
			cl.Parent = parent.Key()
		}
		for _, reg := range fs.regs {
			cl.Widgets = append(cl.Widgets, domain.LayoutWidget{
				Type:     reg.Widget.TypeName(),
				Key:      reg.InternalKey,
				UserKey:  reg.UserKey,
				Stateful: reg.ReturnsState(),
			})
		}
		out = append(out, cl)
	}
	return out, nil
}
