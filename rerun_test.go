package rerun_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/rerun"
	"github.com/aretw0/rerun/pkg/adapters/memory"
	"github.com/aretw0/rerun/pkg/domain"
	"github.com/aretw0/rerun/pkg/ports"
	"github.com/aretw0/rerun/pkg/widgets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sid = "s1"

func newApp(t *testing.T, opts ...rerun.Option) (*rerun.App, *memory.Recorder) {
	t.Helper()
	rec := memory.NewRecorder()
	app, err := rerun.New(append([]rerun.Option{rerun.WithTransport(rec)}, opts...)...)
	require.NoError(t, err)
	return app, rec
}

func greeting(run ports.Run) error {
	name, err := widgets.TextInput(run, "Name").Key("name").Default("world").Use()
	if err != nil {
		return err
	}
	return widgets.Text(run, "Hello, "+name).Use()
}

func TestNew_InvalidOptions(t *testing.T) {
	_, err := rerun.New(rerun.WithMaxReruns(-1))
	assert.Error(t, err)
	_, err = rerun.New(rerun.WithHeartbeat(-time.Second))
	assert.Error(t, err)
}

func TestApp_RunIsIncremental(t *testing.T) {
	app, rec := newApp(t)
	ctx := context.Background()

	out := app.Run(ctx, sid, greeting)
	require.NoError(t, out.Err)
	assert.Equal(t, domain.OutcomeCompleted, out.Kind)
	assert.Len(t, rec.Drain(), 4, "BEGIN, two widgets, END")

	app.Run(ctx, sid, greeting)
	assert.Len(t, rec.Drain(), 2, "only status notifications")

	require.NoError(t, app.UpdateWidget(ctx, sid, "app:key:name", "Ada"))
	app.Run(ctx, sid, greeting)
	msgs := rec.Drain()
	var renders []string
	for _, m := range msgs {
		if m.Render != nil {
			renders = append(renders, *m.Render)
		}
	}
	require.Len(t, renders, 2)
	assert.Equal(t, "<p>Hello, Ada</p>", renders[1])

	visible, err := app.UserVisibleWidgetState(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, "Ada", visible["app:name"])
}

func TestApp_BreakAndRerun(t *testing.T) {
	app, _ := newApp(t)
	runs := 0
	broke := 0
	script := func(run ports.Run) error {
		runs++
		state := run.UserState()
		if state["ready"] == nil {
			return rerun.Rerun(func() {
				broke++
				state["ready"] = true
			})
		}
		return widgets.Text(run, "ready").Use()
	}

	out := app.Run(context.Background(), sid, script)
	require.NoError(t, out.Err)
	assert.Equal(t, domain.OutcomeCompleted, out.Kind)
	assert.Equal(t, 1, out.Reruns)
	assert.Equal(t, 2, runs)
	assert.Equal(t, 1, broke)
}

func TestApp_MaxReruns(t *testing.T) {
	app, _ := newApp(t, rerun.WithMaxReruns(2))
	broke := 0
	out := app.Run(context.Background(), sid, func(run ports.Run) error {
		return rerun.Rerun(func() { broke++ })
	})

	assert.Equal(t, domain.OutcomeBreak, out.Kind)
	assert.ErrorIs(t, out.Err, rerun.ErrTooManyReruns)
	assert.Equal(t, 2, out.Reruns)
	assert.Equal(t, 2, broke)
}

func TestApp_ScriptErrorIsShownInApp(t *testing.T) {
	app, rec := newApp(t)
	boom := errors.New("database unavailable")

	out := app.Run(context.Background(), sid, func(run ports.Run) error {
		if err := widgets.Text(run, "before").Use(); err != nil {
			return err
		}
		return boom
	})
	assert.Equal(t, domain.OutcomeFailed, out.Kind)
	assert.ErrorIs(t, out.Err, boom)

	updates := rec.Updates()
	require.Len(t, updates, 2)
	assert.Contains(t, *updates[1].Render, "This app has encountered an error.")
	assert.NotContains(t, *updates[1].Render, "database unavailable")
}

func TestApp_DeveloperSeesRootCause(t *testing.T) {
	app, rec := newApp(t, rerun.WithDevMode(true))
	boom := errors.New("database unavailable")

	out := app.Run(context.Background(), sid, func(run ports.Run) error {
		return fmt.Errorf("load orders: %w", fmt.Errorf("query: %w", boom))
	})
	assert.ErrorIs(t, out.Err, boom)

	updates := rec.Updates()
	require.Len(t, updates, 1)
	render := *updates[0].Render
	assert.True(t, strings.HasPrefix(render, `<div class="error">`+"database unavailable"), render)
	assert.Contains(t, render, "load orders: query: database unavailable")
}

func TestApp_DeveloperSeesPanicDetail(t *testing.T) {
	app, rec := newApp(t, rerun.WithDevMode(true))

	out := app.Run(context.Background(), sid, func(run ports.Run) error {
		panic("kaboom")
	})
	var p *rerun.PanicError
	require.ErrorAs(t, out.Err, &p)
	assert.Equal(t, "kaboom", p.Value)

	updates := rec.Updates()
	require.Len(t, updates, 1)
	assert.Contains(t, *updates[0].Render, "script panicked: kaboom")
	assert.Contains(t, *updates[0].Render, "<pre>")

	// The session stays usable.
	out = app.Run(context.Background(), sid, greeting)
	assert.NoError(t, out.Err)
}

func TestApp_DuplicateIdentityFailsRun(t *testing.T) {
	app, _ := newApp(t)
	out := app.Run(context.Background(), sid, func(run ports.Run) error {
		if _, err := widgets.Checkbox(run, "Same").Use(); err != nil {
			return err
		}
		_, err := widgets.Checkbox(run, "Same").Use()
		return err
	})
	assert.ErrorIs(t, out.Err, domain.ErrDuplicateIdentity)
}

func TestApp_ConcurrentRunsOfOneSessionAreSerialised(t *testing.T) {
	app, _ := newApp(t)
	var mu sync.Mutex
	active, peak := 0, 0
	script := func(run ports.Run) error {
		mu.Lock()
		active++
		peak = max(peak, active)
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		active--
		mu.Unlock()
		return nil
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out := app.Run(context.Background(), sid, script)
			assert.NoError(t, out.Err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, peak)
}

func TestApp_Heartbeat(t *testing.T) {
	app, rec := newApp(t, rerun.WithHeartbeat(5*time.Millisecond))
	app.Run(context.Background(), sid, func(run ports.Run) error {
		time.Sleep(40 * time.Millisecond)
		return nil
	})

	running := 0
	for _, m := range rec.Statuses() {
		if m.Status == domain.StatusRunning {
			running++
		}
	}
	assert.Positive(t, running)
}

func TestApp_BeginExecutionIsNotReentrant(t *testing.T) {
	app, _ := newApp(t)
	ctx := context.Background()

	x, err := app.BeginExecution(ctx, sid)
	require.NoError(t, err)
	_, err = app.BeginExecution(ctx, sid)
	assert.ErrorIs(t, err, domain.ErrIllegalState)
	require.NoError(t, x.End())
}

func TestApp_DeveloperResetAndDisconnect(t *testing.T) {
	app, _ := newApp(t)
	ctx := context.Background()

	app.Run(ctx, sid, func(run ports.Run) error {
		run.UserState()["visits"] = 1
		return run.Cache().Put(run.Context(), "k", "v")
	})
	app.Run(ctx, "s2", greeting)
	assert.Equal(t, []string{sid, "s2"}, app.Sessions())

	require.NoError(t, app.DeveloperReset(ctx))
	state, err := app.UserState(sid)
	require.NoError(t, err)
	assert.Empty(t, state)
	_, ok, _ := app.Cache().Get(ctx, "k")
	assert.False(t, ok)

	require.NoError(t, app.Disconnect(ctx, sid))
	_, err = app.UserState(sid)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestApp_CacheIsSharedAcrossSessions(t *testing.T) {
	app, _ := newApp(t)
	ctx := context.Background()

	write := func(run ports.Run) error {
		return run.Cache().Put(run.Context(), "rates", 1.5)
	}
	var seen []any
	read := func(run ports.Run) error {
		v, ok, err := run.Cache().Get(run.Context(), "rates")
		if err != nil {
			return err
		}
		if !ok {
			v = nil
		}
		seen = append(seen, v)
		return nil
	}

	require.NoError(t, app.Run(ctx, "writer", write).Err)
	require.NoError(t, app.Run(ctx, "reader", read).Err)
	require.NoError(t, app.Run(ctx, "writer", read).Err)
	assert.Equal(t, []any{1.5, 1.5}, seen)

	require.NoError(t, app.DeveloperReset(ctx))
	seen = nil
	require.NoError(t, app.Run(ctx, "reader", read).Err)
	require.NoError(t, app.Run(ctx, "writer", read).Err)
	assert.Equal(t, []any{nil, nil}, seen)
}

type fakeReloader struct{ events chan ports.ReloadEvent }

func (f *fakeReloader) Watch(ctx context.Context) (<-chan ports.ReloadEvent, error) {
	return f.events, nil
}

func TestApp_WatchReloadsClearsCache(t *testing.T) {
	app, _ := newApp(t)
	ctx := context.Background()
	require.NoError(t, app.Cache().Put(ctx, "k", "v"))

	r := &fakeReloader{events: make(chan ports.ReloadEvent)}
	done := make(chan error, 1)
	go func() { done <- app.WatchReloads(ctx, r) }()

	r.events <- ports.ReloadEvent{Source: "app.go"}
	_, ok, _ := app.Cache().Get(ctx, "k")
	assert.True(t, ok, "source-only change keeps the cache")

	r.events <- ports.ReloadEvent{Source: "go.mod", DependenciesChanged: true}
	close(r.events)
	require.NoError(t, <-done)

	_, ok, _ = app.Cache().Get(ctx, "k")
	assert.False(t, ok)
}
