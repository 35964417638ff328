package widgets

import (
	"fmt"

	"github.com/aretw0/rerun/pkg/domain"
	"github.com/aretw0/rerun/pkg/identity"
	"github.com/aretw0/rerun/pkg/ports"
)

// ExpanderWidget is a collapsible section with its own container.
type ExpanderWidget struct {
	base
	label    string
	expanded bool
}

// Expander builds a collapsed section.
func Expander(r ports.Run, label string) *ExpanderWidget {
	return &ExpanderWidget{base: newBase(r, "expander", field("label", label)), label: label}
}

// Expanded opens the section initially.
func (w *ExpanderWidget) Expanded() *ExpanderWidget {
	w.expanded = true
	w.fields = append(w.fields, field("expanded", true))
	return w
}

func (w *ExpanderWidget) Render(rc domain.RenderContext) string {
	open := ""
	if w.expanded {
		open = " open"
	}
	return fmt.Sprintf(`<details%s %s><summary>%s</summary></details>`, open, attrs(rc), escape(w.label))
}

func (w *ExpanderWidget) Container(parent domain.Container, key string) (domain.Container, error) {
	return parent.Child(identity.Segment(key))
}

// Use places the section in the main container and returns its inner container.
func (w *ExpanderWidget) Use() (domain.Container, error) { return w.UseIn(domain.Main) }

func (w *ExpanderWidget) UseIn(c domain.Container) (domain.Container, error) {
	return addContainer(w.run, w, c)
}

// ColumnsWidget lays out n side-by-side containers.
type ColumnsWidget struct {
	base
	n int
}

// Columns builds a row of n columns.
func Columns(r ports.Run, n int) *ColumnsWidget {
	return &ColumnsWidget{base: newBase(r, "columns", field("n", n)), n: n}
}

func (w *ColumnsWidget) Render(rc domain.RenderContext) string {
	return fmt.Sprintf(`<div class="columns" data-count="%d" %s></div>`, w.n, attrs(rc))
}

func (w *ColumnsWidget) Containers(parent domain.Container, key string) ([]domain.Container, error) {
	if w.n < 1 {
		return nil, domain.NewConfigurationError("columns need a positive count, got %d", w.n)
	}
	seg := identity.Segment(key)
	out := make([]domain.Container, 0, w.n)
	for i := range w.n {
		col, err := parent.Child(fmt.Sprintf("%s_%d", seg, i))
		if err != nil {
			return nil, err
		}
		out = append(out, col)
	}
	return out, nil
}

// Use places the row in the main container and returns one container per column.
func (w *ColumnsWidget) Use() ([]domain.Container, error) { return w.UseIn(domain.Main) }

func (w *ColumnsWidget) UseIn(c domain.Container) ([]domain.Container, error) {
	v, err := w.run.Add(w, c)
	if err != nil {
		return nil, err
	}
	cols, _ := v.([]domain.Container)
	return cols, nil
}

// EmptyWidget reserves a single-slot container whose content is replaced on every Add.
type EmptyWidget struct {
	base
}

// Empty builds a placeholder.
func Empty(r ports.Run) *EmptyWidget {
	return &EmptyWidget{base: newBase(r, "empty")}
}

func (w *EmptyWidget) Render(rc domain.RenderContext) string {
	return fmt.Sprintf(`<div class="empty" %s></div>`, attrs(rc))
}

func (w *EmptyWidget) Container(parent domain.Container, key string) (domain.Container, error) {
	return parent.InPlaceChild(identity.Segment(key))
}

func (w *EmptyWidget) Use() (domain.Container, error) { return w.UseIn(domain.Main) }

func (w *EmptyWidget) UseIn(c domain.Container) (domain.Container, error) {
	return addContainer(w.run, w, c)
}

// FormWidget groups inputs whose values are applied together on submit.
type FormWidget struct {
	base
	name          string
	clearOnSubmit bool
}

// Form builds a form. Forms cannot be nested.
func Form(r ports.Run, name string) *FormWidget {
	return &FormWidget{base: newBase(r, "form", field("name", name)), name: name}
}

// ClearOnSubmit restores the form inputs to their defaults after each submit.
func (w *FormWidget) ClearOnSubmit() *FormWidget {
	w.clearOnSubmit = true
	w.fields = append(w.fields, field("clear_on_submit", true))
	return w
}

func (w *FormWidget) Render(rc domain.RenderContext) string {
	return fmt.Sprintf(`<form name="%s" %s></form>`, escape(w.name), attrs(rc))
}

func (w *FormWidget) Container(parent domain.Container, key string) (domain.Container, error) {
	return parent.FormChild(identity.Segment(key), w.clearOnSubmit)
}

func (w *FormWidget) Use() (domain.Container, error) { return w.UseIn(domain.Main) }

func (w *FormWidget) UseIn(c domain.Container) (domain.Container, error) {
	return addContainer(w.run, w, c)
}

func addContainer(r ports.Run, w domain.Widget, c domain.Container) (domain.Container, error) {
	v, err := r.Add(w, c)
	if err != nil {
		return domain.Container{}, err
	}
	child, _ := v.(domain.Container)
	return child, nil
}
