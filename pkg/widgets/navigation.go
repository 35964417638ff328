package widgets

import (
	"fmt"
	"strings"

	"github.com/aretw0/rerun/pkg/domain"
	"github.com/aretw0/rerun/pkg/ports"
	"github.com/spf13/cast"
)

// NavigationWidget selects the active page from the URL path.
// Its value is recomputed from the URL on every run and never restored from session state.
type NavigationWidget struct {
	base
	pages []domain.Page
}

// Navigation builds a page selector. The first page is the default.
func Navigation(r ports.Run, pages ...domain.Page) *NavigationWidget {
	paths := make([]string, 0, len(pages))
	for _, p := range pages {
		paths = append(paths, p.Path)
	}
	return &NavigationWidget{base: newBase(r, "navigation", field("pages", paths)), pages: pages}
}

func (w *NavigationWidget) Render(rc domain.RenderContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<nav %s>`, attrs(rc))
	current := cast.ToString(rc.Value)
	for _, p := range w.pages {
		class := ""
		if p.Path == current {
			class = ` class="active"`
		}
		fmt.Fprintf(&b, `<a href="%s"%s>%s</a>`, escape(p.Path), class, escape(p.Title))
	}
	b.WriteString("</nav>")
	return b.String()
}

func (w *NavigationWidget) DefaultValue() any {
	if len(w.pages) == 0 {
		return ""
	}
	return w.pages[0].Path
}

func (w *NavigationWidget) ParseValue(raw any) (any, error) {
	s, err := cast.ToStringE(raw)
	if err != nil {
		return nil, err
	}
	if _, ok := w.find(s); !ok {
		return nil, fmt.Errorf("unknown page %q", s)
	}
	return s, nil
}

// ResolveValue picks the page matching the URL path, falling back to the first page.
func (w *NavigationWidget) ResolveValue(u domain.URLContext) any {
	if p, ok := w.find(u.Path); ok {
		return p.Path
	}
	return w.DefaultValue()
}

func (w *NavigationWidget) find(path string) (domain.Page, bool) {
	for _, p := range w.pages {
		if p.Path == path {
			return p, true
		}
	}
	return domain.Page{}, false
}

// Use places the selector in the sidebar, activates the selected page on the run and returns it.
func (w *NavigationWidget) Use() (domain.Page, error) { return w.UseIn(domain.Sidebar) }

func (w *NavigationWidget) UseIn(c domain.Container) (domain.Page, error) {
	if len(w.pages) == 0 {
		return domain.Page{}, domain.NewConfigurationError("navigation needs at least one page")
	}
	v, err := w.run.Add(w, c)
	if err != nil {
		return domain.Page{}, err
	}
	page, _ := w.find(cast.ToString(v))
	w.run.SetPage(page)
	return page, nil
}
