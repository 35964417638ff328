package runtime_test

import (
	"context"
	"testing"

	"github.com/aretw0/rerun/internal/runtime"
	"github.com/aretw0/rerun/pkg/adapters/memory"
	"github.com/aretw0/rerun/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sid = "session-1"

func newEngine(opts ...runtime.EngineOption) (*runtime.Engine, *memory.Recorder) {
	rec := memory.NewRecorder()
	return runtime.NewEngine(rec, opts...), rec
}

// run executes one full run and returns the updates it produced.
func run(t *testing.T, e *runtime.Engine, rec *memory.Recorder, script func(x *runtime.Execution)) []domain.Message {
	t.Helper()
	rec.Drain()
	x, err := e.Begin(context.Background(), sid)
	require.NoError(t, err)
	script(x)
	require.NoError(t, x.End())

	var updates []domain.Message
	for _, m := range rec.Drain() {
		if m.Type == domain.MessageTypeUpdate {
			updates = append(updates, m)
		}
	}
	return updates
}

func add(t *testing.T, x *runtime.Execution, w domain.Widget, c domain.Container) any {
	t.Helper()
	v, err := x.Add(w, c)
	require.NoError(t, err)
	return v
}

func texts(bodies ...string) func(x *runtime.Execution) {
	return func(x *runtime.Execution) {
		for _, b := range bodies {
			_, _ = x.Add(text{body: b}, domain.Main)
		}
	}
}

func TestEngine_FirstRunSendsEverything(t *testing.T) {
	e, rec := newEngine()
	updates := run(t, e, rec, texts("A", "B", "C"))

	require.Len(t, updates, 3)
	for i, u := range updates {
		require.NotNil(t, u.Index)
		assert.Equal(t, i, *u.Index)
		assert.False(t, u.ClearBefore)
		assert.Equal(t, "main", u.Container)
	}
	assert.Equal(t, "<p>C</p>", *updates[2].Render)
}

func TestEngine_IdenticalRerunSendsNothing(t *testing.T) {
	e, rec := newEngine()
	run(t, e, rec, texts("A", "B", "C"))

	updates := run(t, e, rec, texts("A", "B", "C"))
	assert.Empty(t, updates)
}

func TestEngine_DivergenceClearsTail(t *testing.T) {
	e, rec := newEngine()
	run(t, e, rec, texts("A", "B", "C"))

	updates := run(t, e, rec, texts("A", "B", "D"))
	require.Len(t, updates, 1)
	assert.Equal(t, "<p>D</p>", *updates[0].Render)
	assert.Equal(t, 2, *updates[0].Index)
	assert.True(t, updates[0].ClearBefore)
}

func TestEngine_AfterDivergenceWidgetsAreAppended(t *testing.T) {
	e, rec := newEngine()
	run(t, e, rec, texts("A", "B", "C"))

	updates := run(t, e, rec, texts("X", "B", "C"))
	require.Len(t, updates, 3)

	assert.Equal(t, 0, *updates[0].Index)
	assert.True(t, updates[0].ClearBefore)
	for _, u := range updates[1:] {
		assert.Nil(t, u.Index, "append after divergence")
		assert.False(t, u.ClearBefore)
	}
}

func TestEngine_ShrinkTruncatesAtEnd(t *testing.T) {
	e, rec := newEngine()
	run(t, e, rec, texts("A", "B", "C"))

	updates := run(t, e, rec, texts("A"))
	require.Len(t, updates, 1)
	assert.Nil(t, updates[0].Render)
	assert.True(t, updates[0].ClearBefore)
	assert.Equal(t, 1, *updates[0].Index)
}

func TestEngine_VanishedContainerIsTruncated(t *testing.T) {
	e, rec := newEngine()
	run(t, e, rec, func(x *runtime.Execution) {
		add(t, x, text{body: "main"}, domain.Main)
		add(t, x, text{body: "side"}, domain.Sidebar)
	})

	updates := run(t, e, rec, texts("main"))
	require.Len(t, updates, 1)
	assert.Equal(t, "sidebar", updates[0].Container)
	assert.Equal(t, 0, *updates[0].Index)
	assert.Nil(t, updates[0].Render)
}

func TestEngine_InPlaceContainerAlwaysRebuilt(t *testing.T) {
	e, rec := newEngine()
	slot, err := domain.Main.InPlaceChild("status")
	require.NoError(t, err)

	script := func(x *runtime.Execution) {
		add(t, x, text{body: "loading"}, slot)
		add(t, x, text{body: "done"}, slot)
	}
	run(t, e, rec, script)
	updates := run(t, e, rec, script)

	require.Len(t, updates, 2)
	for _, u := range updates {
		assert.Equal(t, "main/status!", u.Container)
		assert.Equal(t, 0, *u.Index)
		assert.True(t, u.ClearBefore)
	}

	x, err := e.Begin(context.Background(), sid)
	require.NoError(t, err)
	add(t, x, text{body: "one"}, slot)
	add(t, x, text{body: "two"}, slot)
	assert.Len(t, x.Registrations(slot), 1, "in-place containers hold a single widget")
	require.NoError(t, x.End())
}

func TestEngine_RebuiltSubContainerIsResent(t *testing.T) {
	e, rec := newEngine()
	var inner domain.Container
	script := func(first string) func(x *runtime.Execution) {
		return func(x *runtime.Execution) {
			add(t, x, text{body: first}, domain.Main)
			inner = add(t, x, expander{label: "details"}, domain.Main).(domain.Container)
			add(t, x, text{body: "inside"}, inner)
		}
	}
	run(t, e, rec, script("A"))

	updates := run(t, e, rec, script("B"))
	require.Len(t, updates, 3)
	assert.Equal(t, inner.Key(), updates[2].Container)
	assert.Equal(t, 0, *updates[2].Index)
	assert.True(t, updates[2].ClearBefore)

	assert.Empty(t, run(t, e, rec, script("B")))
}

func TestEngine_LayoutChildrenAreResent(t *testing.T) {
	e, rec := newEngine()
	script := func(first string) func(x *runtime.Execution) {
		return func(x *runtime.Execution) {
			add(t, x, text{body: first}, domain.Main)
			cols := add(t, x, columns{n: 2}, domain.Main).([]domain.Container)
			add(t, x, text{body: "left"}, cols[0])
			add(t, x, text{body: "right"}, cols[1])
		}
	}
	run(t, e, rec, script("A"))

	updates := run(t, e, rec, script("B"))
	require.Len(t, updates, 4)
	assert.True(t, updates[2].ClearBefore)
	assert.True(t, updates[3].ClearBefore)
}

func TestEngine_RegisterMarkupOncePerType(t *testing.T) {
	e, rec := newEngine()
	updates := run(t, e, rec, func(x *runtime.Execution) {
		add(t, x, input{label: "first"}, domain.Main)
		add(t, x, input{label: "second"}, domain.Main)
	})

	require.Len(t, updates, 2)
	require.NotNil(t, updates[0].Register)
	assert.Equal(t, "<script>input</script>", *updates[0].Register)
	assert.Nil(t, updates[1].Register)
}

func TestEngine_DuplicateIdentity(t *testing.T) {
	e, _ := newEngine()
	x, err := e.Begin(context.Background(), sid)
	require.NoError(t, err)
	defer x.End()

	add(t, x, input{label: "Name"}, domain.Main)
	_, err = x.Add(input{label: "Name"}, domain.Main)
	assert.ErrorIs(t, err, domain.ErrDuplicateIdentity)

	add(t, x, input{label: "City", key: "city"}, domain.Main)
	_, err = x.Add(input{label: "Town", key: "city"}, domain.Sidebar)
	assert.ErrorIs(t, err, domain.ErrDuplicateIdentity)

	// Markup-only widgets may repeat.
	add(t, x, text{body: "---"}, domain.Main)
	add(t, x, text{body: "---"}, domain.Main)
}

func TestEngine_SameIdentityAcrossRunsIsFine(t *testing.T) {
	e, rec := newEngine()
	script := func(x *runtime.Execution) { add(t, x, input{label: "Name"}, domain.Main) }
	run(t, e, rec, script)
	run(t, e, rec, script)
}

func TestEngine_ReentrantBegin(t *testing.T) {
	e, _ := newEngine()
	x, err := e.Begin(context.Background(), sid)
	require.NoError(t, err)

	_, err = e.Begin(context.Background(), sid)
	assert.ErrorIs(t, err, domain.ErrIllegalState)

	other, err := e.Begin(context.Background(), "session-2")
	require.NoError(t, err, "other sessions are independent")
	require.NoError(t, other.End())

	require.NoError(t, x.End())
	assert.ErrorIs(t, x.End(), domain.ErrIllegalState)

	_, err = x.Add(text{body: "late"}, domain.Main)
	assert.ErrorIs(t, err, domain.ErrIllegalState)

	again, err := e.Begin(context.Background(), sid)
	require.NoError(t, err)
	require.NoError(t, again.End())
}

func TestEngine_StatusNotifications(t *testing.T) {
	e, rec := newEngine()
	run(t, e, rec, texts("A"))

	x, err := e.Begin(context.Background(), sid)
	require.NoError(t, err)
	require.NoError(t, x.End())

	statuses := rec.Statuses()
	require.Len(t, statuses, 2)
	assert.Equal(t, domain.StatusBegin, statuses[0].Status)
	assert.Equal(t, domain.StatusEnd, statuses[1].Status)
	assert.Nil(t, statuses[1].Unused)
}

func TestEngine_UnusedWidgetsReportedToDevelopers(t *testing.T) {
	e, rec := newEngine()
	e.SetDeveloper(sid, true)

	x, err := e.Begin(context.Background(), sid)
	require.NoError(t, err)
	x.Instantiated("text")
	x.Instantiated("text")
	add(t, x, text{body: "used"}, domain.Main)
	require.NoError(t, x.End())

	statuses := rec.Statuses()
	require.Len(t, statuses, 2)
	assert.Equal(t, map[string]int{"text": 1}, statuses[1].Unused)
}

func TestEngine_ValuesSurviveReruns(t *testing.T) {
	e, rec := newEngine()
	var got any
	script := func(x *runtime.Execution) {
		got = add(t, x, input{label: "Name", def: "anon"}, domain.Main)
	}

	run(t, e, rec, script)
	assert.Equal(t, "anon", got)

	x, _ := e.Begin(context.Background(), sid)
	script(x)
	key := x.Registrations(domain.Main)[0].InternalKey
	require.NoError(t, x.End())

	require.NoError(t, e.UpdateWidget(sid, key, "Ada"))
	updates := run(t, e, rec, script)
	assert.Equal(t, "Ada", got)
	require.Len(t, updates, 1, "value change re-renders the widget")
	assert.Contains(t, *updates[0].Render, `value="Ada"`)
}

func TestEngine_UserKeyedValuesAreVisible(t *testing.T) {
	e, rec := newEngine()
	script := func(x *runtime.Execution) {
		add(t, x, input{label: "Name", key: "name"}, domain.Main)
	}
	run(t, e, rec, script)
	require.NoError(t, e.UpdateWidget(sid, "app:key:name", "Ada"))

	visible, err := e.UserVisibleWidgetState(sid)
	require.NoError(t, err)
	assert.Equal(t, "Ada", visible["app:name"])

	x, err := e.Begin(context.Background(), sid)
	require.NoError(t, err)
	v, ok := x.WidgetValue("name")
	assert.True(t, ok)
	assert.Equal(t, "Ada", v)
	require.NoError(t, x.End())
}

func TestEngine_PruneDropsVanishedState(t *testing.T) {
	e, rec := newEngine()
	var structural string
	run(t, e, rec, func(x *runtime.Execution) {
		add(t, x, input{label: "Plain"}, domain.Main)
		add(t, x, input{label: "Kept", key: "kept"}, domain.Main)
		add(t, x, input{label: "Gone", key: "gone", noPersist: true}, domain.Main)
		structural = x.Registrations(domain.Main)[0].InternalKey
	})
	require.NoError(t, e.UpdateWidget(sid, structural, "a"))
	require.NoError(t, e.UpdateWidget(sid, "app:key:kept", "b"))
	require.NoError(t, e.UpdateWidget(sid, "app:key:gone", "c"))

	run(t, e, rec, texts("nothing"))

	sess, ok := e.Sessions().Get(sid)
	require.True(t, ok)
	assert.NotContains(t, sess.WidgetState, structural)
	assert.NotContains(t, sess.WidgetState, "app:key:gone")
	assert.NotContains(t, sess.UserVisibleWidgetState, "app:gone")
	assert.Equal(t, "b", sess.WidgetState["app:key:kept"])
	assert.Equal(t, "b", sess.UserVisibleWidgetState["app:kept"])

	var got any
	run(t, e, rec, func(x *runtime.Execution) {
		got = add(t, x, input{label: "Kept again", key: "kept"}, domain.Main)
	})
	assert.Equal(t, "b", got, "keyed state survives absence")
}

func TestEngine_MomentaryButtonAndCallback(t *testing.T) {
	e, rec := newEngine()
	var clicks []any
	var seen []any
	script := func(x *runtime.Execution) {
		seen = append(seen, add(t, x, button{label: "Go", onClick: func(v any) { clicks = append(clicks, v) }}, domain.Main))
	}

	run(t, e, rec, script)
	x, _ := e.Begin(context.Background(), sid)
	script(x)
	key := x.Registrations(domain.Main)[0].InternalKey
	require.NoError(t, x.End())

	require.NoError(t, e.UpdateWidget(sid, key, true))
	run(t, e, rec, script)
	run(t, e, rec, script)

	assert.Equal(t, []any{false, false, true, false}, seen)
	assert.Equal(t, []any{true}, clicks, "callback runs once, before the triggered run")
}

func TestEngine_PanickingCallbackDoesNotBreakRun(t *testing.T) {
	e, rec := newEngine()
	script := func(x *runtime.Execution) {
		add(t, x, button{label: "Boom", onClick: func(any) { panic("boom") }}, domain.Main)
	}
	run(t, e, rec, script)

	sess, _ := e.Sessions().Get(sid)
	var key string
	for k := range sess.WidgetState {
		key = k
	}
	require.NoError(t, e.UpdateWidget(sid, key, true))
	run(t, e, rec, script)
}

func TestEngine_FormBuffersUntilSubmit(t *testing.T) {
	e, rec := newEngine()
	var name any
	var formC domain.Container
	script := func(x *runtime.Execution) {
		formC = add(t, x, form{name: "signup"}, domain.Main).(domain.Container)
		name = add(t, x, input{label: "Name", key: "name"}, formC)
		add(t, x, button{label: "Send", submit: true}, formC)
	}
	run(t, e, rec, script)

	x, _ := e.Begin(context.Background(), sid)
	script(x)
	submit := x.Registrations(formC)[1].InternalKey
	require.NoError(t, x.End())

	require.NoError(t, e.UpdateWidget(sid, "app:key:name", "Ada"))
	run(t, e, rec, script)
	assert.Equal(t, "", name, "buffered until submit")

	require.NoError(t, e.UpdateWidget(sid, submit, true))
	run(t, e, rec, script)
	assert.Equal(t, "Ada", name)

	sess, _ := e.Sessions().Get(sid)
	assert.Empty(t, sess.PendingFormState)
}

func TestEngine_FormClearOnSubmit(t *testing.T) {
	e, rec := newEngine()
	var name any
	var formC domain.Container
	script := func(x *runtime.Execution) {
		formC = add(t, x, form{name: "search", clearOnSubmit: true}, domain.Main).(domain.Container)
		name = add(t, x, input{label: "Query", key: "q"}, formC)
		add(t, x, button{label: "Search", submit: true}, formC)
	}
	run(t, e, rec, script)
	x, _ := e.Begin(context.Background(), sid)
	script(x)
	submit := x.Registrations(formC)[1].InternalKey
	require.NoError(t, x.End())

	require.NoError(t, e.UpdateWidget(sid, "app:key:q", "golang"))
	require.NoError(t, e.UpdateWidget(sid, submit, true))

	updates := run(t, e, rec, script)
	assert.Equal(t, "golang", name, "script sees the submitted value once")

	var reset *domain.Message
	for i := range updates {
		if updates[i].Container == formC.Key() && updates[i].Render != nil && *updates[i].Render == `<input label="Query" value="">` {
			reset = &updates[i]
		}
	}
	require.NotNil(t, reset, "cleared widget is corrected in place")
	assert.Equal(t, 0, *reset.Index)
	assert.False(t, reset.ClearBefore)

	run(t, e, rec, script)
	assert.Equal(t, "", name)
}

func TestEngine_FormClearOnSubmitKeepsUntouchedValues(t *testing.T) {
	e, rec := newEngine()
	run(t, e, rec, func(x *runtime.Execution) {
		add(t, x, input{label: "B", key: "b"}, domain.Main)
	})
	require.NoError(t, e.UpdateWidget(sid, "app:key:b", "kept"))

	var a, b any
	var formC domain.Container
	script := func(x *runtime.Execution) {
		formC = add(t, x, form{name: "edit", clearOnSubmit: true}, domain.Main).(domain.Container)
		a = add(t, x, input{label: "A", key: "a"}, formC)
		b = add(t, x, input{label: "B", key: "b"}, formC)
		add(t, x, button{label: "Save", submit: true}, formC)
	}
	x, err := e.Begin(context.Background(), sid)
	require.NoError(t, err)
	script(x)
	submit := x.Registrations(formC)[2].InternalKey
	require.NoError(t, x.End())
	assert.Equal(t, "kept", b)

	require.NoError(t, e.UpdateWidget(sid, "app:key:a", "typed"))
	require.NoError(t, e.UpdateWidget(sid, submit, true))

	run(t, e, rec, script)
	assert.Equal(t, "typed", a)
	assert.Equal(t, "kept", b)

	run(t, e, rec, script)
	assert.Equal(t, "", a, "applied value is cleared")
	assert.Equal(t, "kept", b, "value the submit never touched survives")
}

func TestEngine_SubmitOutsideForm(t *testing.T) {
	e, _ := newEngine()
	x, err := e.Begin(context.Background(), sid)
	require.NoError(t, err)
	defer x.End()

	_, err = x.Add(button{label: "Go"}, domain.Main)
	require.NoError(t, err, "plain buttons need no form")

	_, err = x.Add(button{label: "Send", submit: true}, domain.Main)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestEngine_UpdateWidgetErrors(t *testing.T) {
	e, rec := newEngine()
	assert.ErrorIs(t, e.UpdateWidget("nobody", "k", "v"), domain.ErrSessionNotFound)

	run(t, e, rec, func(x *runtime.Execution) {
		add(t, x, input{label: "Name", key: "name"}, domain.Main)
		add(t, x, text{body: "static"}, domain.Main)
	})
	assert.ErrorIs(t, e.UpdateWidget(sid, "app:key:missing", "v"), domain.ErrConfiguration)
	assert.ErrorIs(t, e.UpdateWidget(sid, "app:key:name", 42), domain.ErrConfiguration)

	x, err := e.Begin(context.Background(), sid)
	require.NoError(t, err)
	add(t, x, input{label: "Name", key: "name"}, domain.Main)
	err = e.UpdateWidget(sid, "app:key:name", "Ada")
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.NotErrorIs(t, err, domain.ErrIllegalState)
	require.NoError(t, x.End())

	sess, _ := e.Sessions().Get(sid)
	assert.Equal(t, "", sess.WidgetState["app:key:name"])
}

func TestEngine_NavigationFollowsURL(t *testing.T) {
	e, rec := newEngine()
	var page any
	script := func(x *runtime.Execution) { page = add(t, x, nav{}, domain.Main) }

	e.SetURLContext(sid, "/settings", nil)
	run(t, e, rec, script)
	assert.Equal(t, "/settings", page)

	e.SetURLContext(sid, "/about", map[string][]string{"tab": {"team"}})
	run(t, e, rec, script)
	assert.Equal(t, "/about", page)

	x, err := e.Begin(context.Background(), sid)
	require.NoError(t, err)
	assert.Equal(t, "team", x.URL().Query.Get("tab"))
	require.NoError(t, x.End())
}

func TestEngine_PageNamespacesIdentity(t *testing.T) {
	e, rec := newEngine()
	var keys []string
	run(t, e, rec, func(x *runtime.Execution) {
		add(t, x, input{label: "Name", key: "name"}, domain.Main)
		x.SetPage(domain.Page{Path: "/settings"})
		add(t, x, input{label: "Name", key: "name"}, domain.Main)
		for _, r := range x.Registrations(domain.Main) {
			keys = append(keys, r.InternalKey)
		}
	})
	assert.Equal(t, []string{"app:key:name", "page/settings:key:name"}, keys)

	sess, _ := e.Sessions().Get(sid)
	require.NotNil(t, sess.LastExecutionPage)
	assert.Equal(t, "/settings", sess.LastExecutionPage.Path)
}

func TestEngine_MediaIsPerRun(t *testing.T) {
	e, rec := newEngine()
	var url string
	run(t, e, rec, func(x *runtime.Execution) {
		url = x.RegisterMedia([]byte("png-bytes"), "image/png")
	})
	assert.Contains(t, url, "/sessions/"+sid+"/media/")

	sess, _ := e.Sessions().Get(sid)
	require.Len(t, sess.Media, 1)
	var hash string
	for h := range sess.Media {
		hash = h
	}
	m, ok := e.Media(sid, hash)
	require.True(t, ok)
	assert.Equal(t, "image/png", m.MimeType)

	run(t, e, rec, texts("no media"))
	_, ok = e.Media(sid, hash)
	assert.False(t, ok)
}

func TestEngine_DeveloperReset(t *testing.T) {
	e, rec := newEngine()
	ctx := context.Background()
	run(t, e, rec, func(x *runtime.Execution) {
		add(t, x, input{label: "Name", key: "name"}, domain.Main)
		x.UserState()["count"] = 3
		require.NoError(t, x.Cache().Put(ctx, "expensive", 42))
	})
	require.NoError(t, e.UpdateWidget(sid, "app:key:name", "Ada"))

	require.NoError(t, e.DeveloperReset(ctx, nil))

	state, err := e.UserState(sid)
	require.NoError(t, err)
	assert.Empty(t, state)
	visible, _ := e.UserVisibleWidgetState(sid)
	assert.Empty(t, visible)
	_, ok, _ := e.Cache().Get(ctx, "expensive")
	assert.False(t, ok)
}

func TestEngine_DeveloperResetGuardsEachSession(t *testing.T) {
	e, rec := newEngine()
	ctx := context.Background()
	run(t, e, rec, texts("A"))

	var guarded []string
	guard := func(ctx context.Context, id string, fn func(context.Context) error) error {
		guarded = append(guarded, id)
		return fn(ctx)
	}
	require.NoError(t, e.DeveloperReset(ctx, guard))
	assert.Equal(t, []string{sid}, guarded)

	failing := func(context.Context, string, func(context.Context) error) error {
		return context.DeadlineExceeded
	}
	assert.ErrorIs(t, e.DeveloperReset(ctx, failing), context.DeadlineExceeded)
}

func TestEngine_Disconnect(t *testing.T) {
	e, rec := newEngine()
	run(t, e, rec, texts("A"))
	e.Disconnect(sid)

	_, err := e.UserState(sid)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestEngine_LifecycleHooks(t *testing.T) {
	var begins, ends, sends, skips int
	hooks := domain.LifecycleHooks{
		OnRunBegin: func(context.Context, *domain.RunEvent) { begins++ },
		OnRunEnd:   func(context.Context, *domain.RunEvent) { ends++ },
		OnSend:     func(context.Context, *domain.SendEvent) { sends++ },
		OnSkip:     func(context.Context, *domain.SendEvent) { skips++ },
	}
	e, rec := newEngine(runtime.WithLifecycleHooks(hooks))

	run(t, e, rec, texts("A", "B"))
	run(t, e, rec, texts("A", "C"))

	assert.Equal(t, 2, begins)
	assert.Equal(t, 2, ends)
	assert.Equal(t, 3, sends)
	assert.Equal(t, 1, skips)
}

func TestEngine_Layout(t *testing.T) {
	e, rec := newEngine()

	_, err := e.Layout(sid)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	var inner domain.Container
	run(t, e, rec, func(x *runtime.Execution) {
		add(t, x, text{body: "A"}, domain.Main)
		add(t, x, input{label: "Name", key: "name"}, domain.Main)
		inner = add(t, x, expander{label: "more"}, domain.Main).(domain.Container)
		add(t, x, text{body: "inside"}, inner)
	})

	layout, err := e.Layout(sid)
	require.NoError(t, err)
	require.Len(t, layout, 2)

	assert.Equal(t, "main", layout[0].Container)
	assert.Empty(t, layout[0].Parent)
	require.Len(t, layout[0].Widgets, 3)
	assert.Equal(t, "text", layout[0].Widgets[0].Type)
	assert.False(t, layout[0].Widgets[0].Stateful)
	assert.Equal(t, "app:key:name", layout[0].Widgets[1].Key)
	assert.Equal(t, "app:name", layout[0].Widgets[1].UserKey)
	assert.True(t, layout[0].Widgets[1].Stateful)

	assert.Equal(t, inner.Key(), layout[1].Container)
	assert.Equal(t, "main", layout[1].Parent)
	require.Len(t, layout[1].Widgets, 1)
}
