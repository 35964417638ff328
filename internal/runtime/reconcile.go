package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/rerun/pkg/domain"
	"github.com/aretw0/rerun/pkg/identity"
	"github.com/mohae/deepcopy"
)

// Add places a widget into a container in script order.
//
// Within a container, widgets that render exactly like the widget at the same position of the
// previous run produce no traffic. The first difference clears the client container from that
// position onward, and everything after it is appended.
func (x *Execution) Add(w domain.Widget, c domain.Container) (any, error) {
	if x.ended {
		return nil, domain.NewIllegalStateError("no run in progress for session %q", x.sessionID)
	}
	if c.IsZero() {
		return nil, domain.NewConfigurationError("widget %s added to an uninitialised container", w.TypeName())
	}
	x.used(w.TypeName())

	id := w.Identity()
	namespace := x.page.NamespaceOrDefault()
	key, err := identity.Key(w.TypeName(), id, namespace)
	if err != nil {
		return nil, err
	}

	if s, ok := w.(domain.Submitter); ok && s.IsSubmit() {
		if _, inForm := c.EnclosingFormKey(); !inForm {
			return nil, domain.NewConfigurationError("submit widget %q must be placed inside a form", key)
		}
	}

	reg := &Registration{
		Widget:      w,
		InternalKey: key,
		NoPersist:   id.NoPersist,
		Container:   c,
	}
	if id.UserKey != "" {
		reg.UserKey = domain.NamespacedUserKey(namespace, id.UserKey)
	}

	stateful, returnsState := w.(domain.Stateful)
	if returnsState {
		if err := x.checkDuplicate(reg); err != nil {
			x.engine.conflict(x, reg)
			return nil, err
		}
	} else {
		reg.InternalKey = x.disambiguate(key)
	}

	// Sub-containers are resolved before the widget is registered so that invalid nesting leaves no trace.
	var provided, layout []domain.Container
	switch p := w.(type) {
	case domain.ContainerProvider:
		child, err := p.Container(c, reg.InternalKey)
		if err != nil {
			return nil, err
		}
		reg.Returned = child
		provided = []domain.Container{child}
	case domain.LayoutProvider:
		children, err := p.Containers(c, reg.InternalKey)
		if err != nil {
			return nil, err
		}
		reg.Returned = children
		layout = children
	}

	if returnsState {
		if err := x.hydrate(reg, stateful); err != nil {
			return nil, err
		}
		reg.Returned = reg.Value
	}

	s := x.slotFor(c)
	if c.InPlace() {
		for pair := s.widgets.Oldest(); pair != nil; pair = pair.Next() {
			x.unregister(pair.Value)
		}
		s = newSlot(c)
		x.containerToComponents.Set(c.Key(), s)
	}
	s.widgets.Set(reg.InternalKey, reg)
	x.byKey[reg.InternalKey] = reg
	if reg.UserKey != "" && returnsState {
		x.byUserKey[reg.UserKey] = reg
	}

	x.reconcile(reg, provided, layout)
	return reg.Returned, nil
}

func (x *Execution) checkDuplicate(reg *Registration) error {
	if first, dup := x.byKey[reg.InternalKey]; dup {
		return &domain.DuplicateIdentityError{First: first.ref(), Second: reg.ref()}
	}
	if reg.UserKey != "" {
		if first, dup := x.byUserKey[reg.UserKey]; dup {
			return &domain.DuplicateIdentityError{First: first.ref(), Second: reg.ref()}
		}
	}
	return nil
}

// disambiguate gives markup-only widgets that collide structurally a stable occurrence suffix.
func (x *Execution) disambiguate(key string) string {
	if _, taken := x.byKey[key]; !taken {
		return key
	}
	for {
		x.occurrences[key]++
		candidate := fmt.Sprintf("%s#%d", key, x.occurrences[key])
		if _, taken := x.byKey[candidate]; !taken {
			return candidate
		}
	}
}

func (x *Execution) unregister(reg *Registration) {
	delete(x.byKey, reg.InternalKey)
	if reg.UserKey != "" && x.byUserKey[reg.UserKey] == reg {
		delete(x.byUserKey, reg.UserKey)
	}
}

// hydrate binds the session value onto a stateful widget and publishes it for later widgets of the run.
func (x *Execution) hydrate(reg *Registration, w domain.Stateful) error {
	if mapped, ok := x.session.InternalKeyToUserKey[reg.InternalKey]; ok && mapped != reg.UserKey {
		return domain.NewIllegalStateError("session maps widget %q to user key %q, widget declares %q",
			reg.InternalKey, mapped, reg.UserKey)
	}

	def := w.DefaultValue()
	reg.InitialValue = deepcopy.Copy(def)
	reg.HasValue = true

	// Navigation widgets never hydrate: their value is recomputed from the URL on every run.
	if nav, ok := w.(domain.Navigator); ok {
		reg.Value = nav.ResolveValue(x.session.URL)
		x.session.NavigationKeys[reg.InternalKey] = struct{}{}
	} else if v, ok := x.session.WidgetState[reg.InternalKey]; ok {
		reg.Value = v
	} else {
		reg.Value = def
	}

	x.session.Upsert(reg.InternalKey, reg.UserKey, reg.Value)
	return nil
}

// reconcile runs the point-of-first-difference check for one widget and emits it when needed.
func (x *Execution) reconcile(reg *Registration, provided, layout []domain.Container) {
	c := reg.Container
	ck := c.Key()
	cursor := x.cursors[ck]
	rendered := reg.Render()

	appendOnly := false
	clearBefore := false

	switch {
	case c.InPlace():
		// Single-slot containers are always fully rebuilt.
		cursor = 0
		x.divergence[ck] = true
		clearBefore = true
	case x.divergence[ck]:
		// Position no longer matters once the tail was cleared: append.
		appendOnly = true
	case x.forcedDivergence(c):
		x.divergence[ck] = true
		clearBefore = true
	default:
		if prev := x.prev.at(ck, cursor); prev != nil {
			if prev.Render() == rendered {
				x.cursors[ck] = cursor + 1
				x.engine.skipped(x, reg)
				return
			}
			x.divergence[ck] = true
			clearBefore = true
		}
	}

	var index *int
	if !appendOnly {
		idx := cursor
		index = &idx
	}

	var register *string
	typeName := reg.Widget.TypeName()
	if _, seen := x.session.RegisteredTypes[typeName]; !seen {
		x.session.RegisteredTypes[typeName] = struct{}{}
		if markup := reg.Widget.Register(); markup != "" {
			register = &markup
		}
	}

	x.engine.send(x, domain.Update{
		Render:      &rendered,
		Register:    register,
		Container:   c,
		Index:       index,
		ClearBefore: clearBefore,
	}, domain.SendWidget, reg)
	x.cursors[ck] = cursor + 1

	// The client rebuilt the widget, so whatever it contains must be sent again.
	for _, child := range provided {
		x.cleared[child.Key()] = struct{}{}
	}
	for _, child := range layout {
		x.clearedLayouts[child.Key()] = struct{}{}
	}
}

// End closes the run: truncates shrunk containers, applies resets, prunes stale state and
// stores the run as the session's last execution.
// The run-in-progress marker is always released, even when End fails.
func (x *Execution) End() error {
	defer x.engine.release(x)
	if x.ended {
		return domain.NewIllegalStateError("run for session %q already ended", x.sessionID)
	}
	x.ended = true

	x.truncate()
	x.resetMomentary()
	x.resetForms()
	x.prune()

	x.session.LastExecution = x.freeze()
	if x.hasPage {
		page := x.page
		x.session.LastExecutionPage = &page
	}

	var unused map[string]int
	if x.session.IsDeveloper {
		unused = x.unusedCounts()
	}
	x.engine.transport.SendStatus(x.sessionID, domain.StatusEnd, unused)

	duration := time.Since(x.started)
	x.engine.logger.Debug("Run ended", "session_id", x.sessionID, "widgets", len(x.byKey), "duration", duration)
	if len(unused) > 0 {
		x.engine.logger.Warn("Widgets built but never placed; did you forget Use()?", "session_id", x.sessionID, "unused", unused)
	}
	if x.engine.hooks.OnRunEnd != nil {
		x.engine.hooks.OnRunEnd(x.ctx, &domain.RunEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventRunEnd, SessionID: x.sessionID},
			Outcome:   x.outcome,
			Duration:  duration,
			Widgets:   len(x.byKey),
		})
	}
	return nil
}

// truncate deletes trailing entries of containers that shrank or disappeared since the previous run.
// Shrinking never reaches the clear-before path of Add, so it is handled here.
func (x *Execution) truncate() {
	if x.prev == nil {
		return
	}
	for _, ck := range x.prev.order {
		fs := x.prev.slots[ck]
		length := 0
		if s, ok := x.containerToComponents.Get(ck); ok {
			length = s.widgets.Len()
		}
		if length >= len(fs.regs) {
			continue
		}
		index := length
		x.engine.send(x, domain.Update{
			Container:   fs.container,
			Index:       &index,
			ClearBefore: true,
		}, domain.SendTruncate, nil)
	}
}

func (x *Execution) each(fn func(s *slot, index int, reg *Registration)) {
	for pair := x.containerToComponents.Oldest(); pair != nil; pair = pair.Next() {
		i := 0
		for w := pair.Value.widgets.Oldest(); w != nil; w = w.Next() {
			fn(pair.Value, i, w.Value)
			i++
		}
	}
}

// resetMomentary applies the reset-if-needed policy of every widget of the run.
func (x *Execution) resetMomentary() {
	x.each(func(_ *slot, _ int, reg *Registration) {
		r, ok := reg.Widget.(domain.Resettable)
		if !ok || !reg.HasValue {
			return
		}
		if v, changed := r.ResetValue(reg.Value); changed {
			reg.Value = v
			x.session.Upsert(reg.InternalKey, reg.UserKey, v)
		}
	})
}

// resetForms restores widgets of submitted clear-on-submit forms to their initial value.
// Each restored widget is corrected in place at its exact index.
func (x *Execution) resetForms() {
	pending := x.session.FormKeysToReset
	if len(pending) == 0 {
		return
	}
	x.each(func(s *slot, i int, reg *Registration) {
		if _, ok := pending[reg.InternalKey]; !ok || !reg.HasValue {
			return
		}
		reg.Value = deepcopy.Copy(reg.InitialValue)
		x.session.Upsert(reg.InternalKey, reg.UserKey, reg.Value)

		rendered := reg.Render()
		index := i
		x.engine.send(x, domain.Update{
			Render:    &rendered,
			Container: s.container,
			Index:     &index,
		}, domain.SendReset, reg)
	})
	clear(pending)
}

// prune drops the state of widgets that left the script, unless they carry a persistent user key.
func (x *Execution) prune() {
	if x.prev == nil {
		return
	}
	for _, ck := range x.prev.order {
		for _, reg := range x.prev.slots[ck].regs {
			if _, still := x.byKey[reg.InternalKey]; still {
				continue
			}
			if reg.UserKey != "" && !reg.NoPersist {
				continue
			}
			x.session.Forget(reg.InternalKey)
		}
	}
}

// DeveloperReset clears the cache and the widget and user state of every session.
// Sessions themselves survive. guard, when set, wraps each session reset, typically with the session gate.
func (e *Engine) DeveloperReset(ctx context.Context, guard func(ctx context.Context, sessionID string, fn func(context.Context) error) error) error {
	if err := e.ClearCache(ctx); err != nil {
		return err
	}
	ids := e.sessions.IDs()
	var errs []error
	for _, id := range ids {
		reset := func(context.Context) error {
			e.ResetSession(id)
			return nil
		}
		if guard == nil {
			_ = reset(ctx)
			continue
		}
		if err := guard(ctx, id, reset); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", id, err))
		}
	}
	e.logger.Info("Developer reset applied", "sessions", len(ids))
	return errors.Join(errs...)
}
