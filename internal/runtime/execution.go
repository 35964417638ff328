package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/rerun/pkg/domain"
	"github.com/aretw0/rerun/pkg/ports"
	"github.com/cespare/xxhash/v2"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Registration is one widget placed by the run that created it.
// It is read-only once the run ends, except for reset-to-initial and form clears.
type Registration struct {
	Widget      domain.Widget
	InternalKey string

	// UserKey is the namespaced user key, empty when the widget is identified structurally.
	UserKey   string
	NoPersist bool

	Value    any
	HasValue bool

	// InitialValue is a deep copy of the default value captured at first bind.
	InitialValue any

	Container domain.Container

	// Returned is what Add handed back to the script.
	Returned any
}

// ReturnsState reports whether the widget value is session state.
func (r *Registration) ReturnsState() bool {
	return domain.ReturnsState(r.Widget)
}

// Render produces the markup of the widget in its current state.
func (r *Registration) Render() string {
	return r.Widget.Render(domain.RenderContext{
		Key:       r.InternalKey,
		Value:     r.Value,
		HasValue:  r.HasValue,
		Container: r.Container,
	})
}

func (r *Registration) ref() domain.WidgetRef {
	return domain.WidgetRef{
		TypeName:    r.Widget.TypeName(),
		InternalKey: r.InternalKey,
		UserKey:     r.UserKey,
		Container:   r.Container.Key(),
	}
}

// slot is the ordered content of one container in one run.
type slot struct {
	container domain.Container
	widgets   *orderedmap.OrderedMap[string, *Registration]
}

func newSlot(c domain.Container) *slot {
	return &slot{
		container: c,
		widgets:   orderedmap.New[string, *Registration](),
	}
}

// Execution is the single-threaded scratchpad of one run.
// It implements ports.Run and is handed to the script explicitly.
type Execution struct {
	ctx       context.Context
	engine    *Engine
	session   *domain.SessionState
	sessionID string
	started   time.Time

	// containerToComponents keeps script order for containers and for widgets within each container.
	containerToComponents *orderedmap.OrderedMap[string, *slot]

	byKey       map[string]*Registration
	byUserKey   map[string]*Registration
	occurrences map[string]int

	cursors        map[string]int
	divergence     map[string]bool
	cleared        map[string]struct{}
	clearedLayouts map[string]struct{}

	page    domain.Page
	hasPage bool

	instantiated map[string]int

	prev    *snapshot
	ended   bool
	outcome domain.OutcomeKind
}

var _ ports.Run = (*Execution)(nil)

func newExecution(ctx context.Context, e *Engine, sess *domain.SessionState) *Execution {
	return &Execution{
		ctx:                   ctx,
		engine:                e,
		session:               sess,
		sessionID:             sess.ID,
		started:               time.Now(),
		containerToComponents: orderedmap.New[string, *slot](),
		byKey:                 make(map[string]*Registration),
		byUserKey:             make(map[string]*Registration),
		occurrences:           make(map[string]int),
		cursors:               make(map[string]int),
		divergence:            make(map[string]bool),
		cleared:               make(map[string]struct{}),
		clearedLayouts:        make(map[string]struct{}),
		instantiated:          make(map[string]int),
		outcome:               domain.OutcomeCompleted,
	}
}

// Context returns the context the run was started with.
func (x *Execution) Context() context.Context { return x.ctx }

// SessionID returns the session the run belongs to.
func (x *Execution) SessionID() string { return x.sessionID }

// Page returns the active page, or a zero page using the default namespace.
func (x *Execution) Page() domain.Page { return x.page }

// SetPage switches the namespace used for widgets added from now on.
func (x *Execution) SetPage(p domain.Page) {
	x.page = p
	x.hasPage = true
}

// URL returns a copy of the session URL context.
func (x *Execution) URL() domain.URLContext { return x.session.URL.Clone() }

// UserState returns the live free-form session map.
func (x *Execution) UserState() map[string]any { return x.session.UserState }

// WidgetValue reads the value of a user-keyed widget in the current page namespace.
func (x *Execution) WidgetValue(userKey string) (any, bool) {
	v, ok := x.session.UserVisibleWidgetState[domain.NamespacedUserKey(x.page.NamespaceOrDefault(), userKey)]
	return v, ok
}

// SetOutcome records how the script finished, for lifecycle hooks. It defaults to completed.
func (x *Execution) SetOutcome(kind domain.OutcomeKind) {
	x.outcome = kind
}

// Cache returns the process-wide cache.
func (x *Execution) Cache() ports.Cache { return x.engine.cache }

// RegisterMedia stores a payload in the session media table until the next run starts.
func (x *Execution) RegisterMedia(data []byte, mimeType string) string {
	hash := fmt.Sprintf("%016x", xxhash.Sum64(data))
	x.session.Media[hash] = domain.MediaEntry{Hash: hash, MimeType: mimeType, Data: data}
	return x.engine.mediaPath(x.sessionID, hash)
}

// Instantiated records a constructed widget. Add balances the counter.
func (x *Execution) Instantiated(typeName string) {
	x.instantiated[typeName]++
}

func (x *Execution) used(typeName string) {
	x.instantiated[typeName]--
}

// unusedCounts lists widget types built more often than placed.
func (x *Execution) unusedCounts() map[string]int {
	var out map[string]int
	for name, n := range x.instantiated {
		if n <= 0 {
			continue
		}
		if out == nil {
			out = make(map[string]int)
		}
		out[name] = n
	}
	return out
}

// Len returns the number of widgets placed so far.
func (x *Execution) Len() int {
	return len(x.byKey)
}

// Registrations returns the widgets of a container in script order.
func (x *Execution) Registrations(c domain.Container) []*Registration {
	s, ok := x.containerToComponents.Get(c.Key())
	if !ok {
		return nil
	}
	out := make([]*Registration, 0, s.widgets.Len())
	for pair := s.widgets.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

func (x *Execution) slotFor(c domain.Container) *slot {
	key := c.Key()
	s, ok := x.containerToComponents.Get(key)
	if !ok {
		s = newSlot(c)
		x.containerToComponents.Set(key, s)
	}
	return s
}

// forcedDivergence reports whether the container, or one of its ancestors, was cleared this run.
func (x *Execution) forcedDivergence(c domain.Container) bool {
	for _, key := range c.Lineage() {
		if _, ok := x.cleared[key]; ok {
			return true
		}
		if _, ok := x.clearedLayouts[key]; ok {
			return true
		}
	}
	return false
}

// snapshot is the frozen, indexable form of a finished run.
type snapshot struct {
	order []string
	slots map[string]*frozenSlot
	byKey map[string]*Registration
}

type frozenSlot struct {
	container domain.Container
	regs      []*Registration
}

func (x *Execution) freeze() *snapshot {
	snap := &snapshot{
		slots: make(map[string]*frozenSlot, x.containerToComponents.Len()),
		byKey: make(map[string]*Registration, len(x.byKey)),
	}
	for pair := x.containerToComponents.Oldest(); pair != nil; pair = pair.Next() {
		fs := &frozenSlot{container: pair.Value.container}
		for w := pair.Value.widgets.Oldest(); w != nil; w = w.Next() {
			fs.regs = append(fs.regs, w.Value)
			snap.byKey[w.Key] = w.Value
		}
		snap.order = append(snap.order, pair.Key)
		snap.slots[pair.Key] = fs
	}
	return snap
}

// at returns the registration at position i of a container in the previous run.
func (s *snapshot) at(containerKey string, i int) *Registration {
	if s == nil {
		return nil
	}
	fs, ok := s.slots[containerKey]
	if !ok || i >= len(fs.regs) {
		return nil
	}
	return fs.regs[i]
}

func (s *snapshot) lookup(key string) *Registration {
	if s == nil {
		return nil
	}
	return s.byKey[key]
}
