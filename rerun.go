package rerun

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/rerun/internal/logging"
	"github.com/aretw0/rerun/internal/runtime"
	"github.com/aretw0/rerun/pkg/domain"
	"github.com/aretw0/rerun/pkg/ports"
	"github.com/aretw0/rerun/pkg/session"
)

// Version is the library version reported by the CLI.
const Version = "0.1.0"

// DefaultMaxReruns bounds consecutive break-and-rerun cycles of a single Run call.
const DefaultMaxReruns = 16

// Script is a user program. It declares widgets through the run handle, top to bottom.
type Script func(run ports.Run) error

// Execution is an open run. Hosts that drive runs themselves call End exactly once.
type Execution interface {
	ports.Run
	// SetOutcome records how the script finished, for lifecycle hooks.
	SetOutcome(kind domain.OutcomeKind)
	End() error
}

// Rerun stops the current run and starts a new one. onBreak, if set, runs in between.
func Rerun(onBreak func()) error {
	return domain.Rerun(onBreak)
}

// App is the high-level entry point: sessions, cache and reconciliation behind one API.
type App struct {
	runtime   *runtime.Engine
	gate      *session.Manager
	transport ports.Transport
	cache     ports.Cache
	locker    ports.DistributedLocker
	hooks     domain.LifecycleHooks
	logger    *slog.Logger

	devMode   bool
	heartbeat time.Duration
	maxReruns int
}

// Option defines a functional option for configuring the App.
type Option func(*App)

// WithTransport sets the collaborator receiving updates and status notifications.
func WithTransport(t ports.Transport) Option {
	return func(a *App) {
		a.transport = t
	}
}

// WithCache replaces the default in-memory cache, e.g. with the Redis adapter.
func WithCache(c ports.Cache) Option {
	return func(a *App) {
		a.cache = c
	}
}

// WithLocker makes the session gate hold a distributed lock across replicas.
func WithLocker(l ports.DistributedLocker) Option {
	return func(a *App) {
		a.locker = l
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(a *App) {
		a.hooks = hooks
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

// WithDevMode treats every session as a developer session.
func WithDevMode(enabled bool) Option {
	return func(a *App) {
		a.devMode = enabled
	}
}

// WithHeartbeat sends RUNNING status notifications at the given interval while a script runs.
func WithHeartbeat(interval time.Duration) Option {
	return func(a *App) {
		a.heartbeat = interval
	}
}

// WithMaxReruns bounds consecutive break-and-rerun cycles.
func WithMaxReruns(n int) Option {
	return func(a *App) {
		a.maxReruns = n
	}
}

// New initializes an App.
func New(opts ...Option) (*App, error) {
	a := &App{maxReruns: DefaultMaxReruns}
	for _, opt := range opts {
		opt(a)
	}
	if a.maxReruns < 0 {
		return nil, fmt.Errorf("max reruns must not be negative, got %d", a.maxReruns)
	}
	if a.heartbeat < 0 {
		return nil, fmt.Errorf("heartbeat must not be negative, got %s", a.heartbeat)
	}
	if a.logger == nil {
		a.logger = logging.NewNop()
	}
	if a.transport == nil {
		a.transport = ports.TransportFuncs{}
	}

	gateOpts := []session.Option{session.WithLogger(a.logger)}
	if a.locker != nil {
		gateOpts = append(gateOpts, session.WithLocker(a.locker))
	}
	a.gate = session.NewManager(gateOpts...)

	a.runtime = runtime.NewEngine(a.transport,
		runtime.WithLifecycleHooks(a.hooks),
		runtime.WithLogger(a.logger),
		runtime.WithCache(a.cache),
	)
	return a, nil
}

// BeginExecution opens a run without holding the session gate.
// Hosts using it are responsible for serialising runs of a session; Run does this for them.
func (a *App) BeginExecution(ctx context.Context, sessionID string) (Execution, error) {
	if a.devMode {
		a.runtime.SetDeveloper(sessionID, true)
	}
	x, err := a.runtime.Begin(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return x, nil
}

// WithSession runs fn while holding the gate of a session.
func (a *App) WithSession(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	return a.gate.WithLock(ctx, sessionID, fn)
}

// SetURLContext records the URL of the session before its next run.
func (a *App) SetURLContext(ctx context.Context, sessionID, path string, query map[string][]string) error {
	return a.gate.WithLock(ctx, sessionID, func(context.Context) error {
		a.runtime.SetURLContext(sessionID, path, query)
		return nil
	})
}

// SetDeveloper marks a session as originating from a developer.
func (a *App) SetDeveloper(ctx context.Context, sessionID string, developer bool) error {
	return a.gate.WithLock(ctx, sessionID, func(context.Context) error {
		a.runtime.SetDeveloper(sessionID, developer || a.devMode)
		return nil
	})
}

// UpdateWidget applies a client-reported value before the next run.
func (a *App) UpdateWidget(ctx context.Context, sessionID, widgetKey string, value any) error {
	return a.gate.WithLock(ctx, sessionID, func(context.Context) error {
		return a.runtime.UpdateWidget(sessionID, widgetKey, value)
	})
}

// RegisterCallback schedules the callback of a widget for the start of the next run.
func (a *App) RegisterCallback(ctx context.Context, sessionID, widgetKey string) error {
	return a.gate.WithLock(ctx, sessionID, func(context.Context) error {
		return a.runtime.RegisterCallback(sessionID, widgetKey)
	})
}

// Cache returns the process-wide cache.
func (a *App) Cache() ports.Cache {
	return a.runtime.Cache()
}

// UserState returns the live free-form state of a session. Callers must hold the session gate
// when they mutate it outside of a run.
func (a *App) UserState(sessionID string) (map[string]any, error) {
	return a.runtime.UserState(sessionID)
}

// UserVisibleWidgetState returns a copy of the user-keyed widget values of a session.
func (a *App) UserVisibleWidgetState(ctx context.Context, sessionID string) (map[string]any, error) {
	var out map[string]any
	err := a.gate.WithLock(ctx, sessionID, func(context.Context) error {
		var err error
		out, err = a.runtime.UserVisibleWidgetState(sessionID)
		return err
	})
	return out, err
}

// Layout describes the containers and widgets of the last finished run of a session.
func (a *App) Layout(ctx context.Context, sessionID string) ([]domain.ContainerLayout, error) {
	var out []domain.ContainerLayout
	err := a.gate.WithLock(ctx, sessionID, func(context.Context) error {
		var err error
		out, err = a.runtime.Layout(sessionID)
		return err
	})
	return out, err
}

// Media returns a payload registered by the last run of a session.
func (a *App) Media(ctx context.Context, sessionID, hash string) (domain.MediaEntry, bool) {
	var (
		m  domain.MediaEntry
		ok bool
	)
	_ = a.gate.WithLock(ctx, sessionID, func(context.Context) error {
		m, ok = a.runtime.Media(sessionID, hash)
		return nil
	})
	return m, ok
}

// Sessions returns the IDs of the known sessions.
func (a *App) Sessions() []string {
	return a.runtime.Sessions().IDs()
}

// DeveloperReset clears the cache and every session's widget and user state.
// Each session is reset under its own gate, so runs in progress finish first.
func (a *App) DeveloperReset(ctx context.Context) error {
	return a.runtime.DeveloperReset(ctx, a.gate.WithLock)
}

// Disconnect destroys the state of a session.
func (a *App) Disconnect(ctx context.Context, sessionID string) error {
	return a.gate.WithLock(ctx, sessionID, func(context.Context) error {
		a.runtime.Disconnect(sessionID)
		return nil
	})
}

// WatchReloads clears the cache whenever the reloader reports changed dependencies.
// It blocks until ctx is cancelled or the reloader stops.
func (a *App) WatchReloads(ctx context.Context, r ports.Reloader) error {
	events, err := r.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to watch for reloads: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			a.logger.Info("Script changed", "source", ev.Source, "dependencies_changed", ev.DependenciesChanged)
			if ev.DependenciesChanged {
				if err := a.runtime.ClearCache(ctx); err != nil {
					a.logger.Error("Failed to clear cache after reload", "err", err)
				}
			}
		}
	}
}
