package runtime_test

import (
	"fmt"

	"github.com/aretw0/rerun/pkg/domain"
	"github.com/aretw0/rerun/pkg/identity"
)

// Minimal widgets exercising each capability the engine knows about.

type text struct{ body string }

func (w text) TypeName() string { return "text" }
func (w text) Identity() domain.Identity {
	return domain.Identity{Fields: []domain.Field{{Name: "body", Value: w.body}}}
}
func (w text) Render(domain.RenderContext) string { return "<p>" + w.body + "</p>" }
func (w text) Register() string                   { return "" }

type input struct {
	label     string
	key       string
	def       string
	noPersist bool
	onChange  func(any)
}

func (w input) TypeName() string { return "input" }
func (w input) Identity() domain.Identity {
	return domain.Identity{
		Fields:    []domain.Field{{Name: "label", Value: w.label}, {Name: "default", Value: w.def}},
		UserKey:   w.key,
		NoPersist: w.noPersist,
	}
}
func (w input) Render(rc domain.RenderContext) string {
	return fmt.Sprintf("<input label=%q value=%q>", w.label, fmt.Sprint(rc.Value))
}
func (w input) Register() string  { return "<script>input</script>" }
func (w input) DefaultValue() any { return w.def }
func (w input) ParseValue(raw any) (any, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("expected string, got %T", raw)
	}
	return s, nil
}
func (w input) Callback() func(any) { return w.onChange }

type button struct {
	label   string
	submit  bool
	onClick func(any)
}

func (w button) TypeName() string {
	if w.submit {
		return "submit"
	}
	return "button"
}
func (w button) Identity() domain.Identity {
	return domain.Identity{Fields: []domain.Field{{Name: "label", Value: w.label}}}
}
func (w button) Render(domain.RenderContext) string { return "<button>" + w.label + "</button>" }
func (w button) Register() string                   { return "" }
func (w button) DefaultValue() any                  { return false }
func (w button) ParseValue(raw any) (any, error) {
	b, ok := raw.(bool)
	if !ok {
		return nil, fmt.Errorf("expected bool, got %T", raw)
	}
	return b, nil
}
func (w button) ResetValue(cur any) (any, bool) {
	if cur == true {
		return false, true
	}
	return cur, false
}
func (w button) Callback() func(any) { return w.onClick }
func (w button) IsSubmit() bool      { return w.submit }

type expander struct{ label string }

func (w expander) TypeName() string { return "expander" }
func (w expander) Identity() domain.Identity {
	return domain.Identity{Fields: []domain.Field{{Name: "label", Value: w.label}}}
}
func (w expander) Render(domain.RenderContext) string { return "<details>" + w.label + "</details>" }
func (w expander) Register() string                   { return "" }
func (w expander) Container(parent domain.Container, key string) (domain.Container, error) {
	return parent.Child(identity.Segment(key))
}

type form struct {
	name          string
	clearOnSubmit bool
}

func (w form) TypeName() string { return "form" }
func (w form) Identity() domain.Identity {
	return domain.Identity{Fields: []domain.Field{{Name: "name", Value: w.name}}}
}
func (w form) Render(domain.RenderContext) string { return "<form>" + w.name + "</form>" }
func (w form) Register() string                   { return "" }
func (w form) Container(parent domain.Container, key string) (domain.Container, error) {
	return parent.FormChild(identity.Segment(key), w.clearOnSubmit)
}

type columns struct{ n int }

func (w columns) TypeName() string { return "columns" }
func (w columns) Identity() domain.Identity {
	return domain.Identity{Fields: []domain.Field{{Name: "n", Value: w.n}}}
}
func (w columns) Render(domain.RenderContext) string { return fmt.Sprintf("<cols n=%d>", w.n) }
func (w columns) Register() string                   { return "" }
func (w columns) Containers(parent domain.Container, key string) ([]domain.Container, error) {
	seg := identity.Segment(key)
	out := make([]domain.Container, 0, w.n)
	for i := range w.n {
		c, err := parent.Child(fmt.Sprintf("%s_%d", seg, i))
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

type nav struct{}

func (nav) TypeName() string                   { return "navigation" }
func (nav) Identity() domain.Identity          { return domain.Identity{} }
func (nav) Render(domain.RenderContext) string { return "<nav>" }
func (nav) Register() string                   { return "" }
func (nav) DefaultValue() any                  { return "/" }
func (nav) ParseValue(raw any) (any, error)    { return fmt.Sprint(raw), nil }
func (nav) ResolveValue(u domain.URLContext) any {
	if u.Path == "" {
		return "/"
	}
	return u.Path
}
