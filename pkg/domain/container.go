package domain

import (
	"strings"
)

// ContainerSeparator joins container path segments in canonical keys.
const ContainerSeparator = "."

const (
	// MainContainerName is the root segment of the main content area.
	MainContainerName = "main"
	// SidebarContainerName is the root segment of the sidebar.
	SidebarContainerName = "sidebar"
)

var (
	// Main is the default placement target for widgets.
	Main = Container{path: []string{MainContainerName}}

	// Sidebar is the secondary root placement target.
	Sidebar = Container{path: []string{SidebarContainerName}}
)

// Container is an addressable placement target for widgets.
// Containers are recreated on every run, so equality is structural:
// two containers are the same when their path, parent and in-place flag match.
type Container struct {
	path     []string
	parent   *Container
	inPlace  bool
	formRoot bool

	// clearOnSubmit is the form policy carried by form roots. It is not part of the identity.
	clearOnSubmit bool
}

// Path returns a copy of the container path segments.
func (c Container) Path() []string {
	out := make([]string, len(c.path))
	copy(out, c.path)
	return out
}

// Parent returns the enclosing container, if any.
func (c Container) Parent() (Container, bool) {
	if c.parent == nil {
		return Container{}, false
	}
	return *c.parent, true
}

// InPlace reports whether the container holds a single, always replaced slot.
func (c Container) InPlace() bool { return c.inPlace }

// IsFormRoot reports whether the container is the root of a form.
func (c Container) IsFormRoot() bool { return c.formRoot }

// ClearOnSubmit reports whether the form rooted at this container resets its widgets after submit.
func (c Container) ClearOnSubmit() bool { return c.formRoot && c.clearOnSubmit }

// IsZero reports whether the container was never initialised.
func (c Container) IsZero() bool { return len(c.path) == 0 }

// Key returns the canonical identity of the container.
// It encodes the parent chain, the path and the in-place flag.
func (c Container) Key() string {
	var b strings.Builder
	c.writeKey(&b)
	return b.String()
}

func (c Container) writeKey(b *strings.Builder) {
	if c.parent == nil {
		b.WriteString(strings.Join(c.path, ContainerSeparator))
	} else {
		c.parent.writeKey(b)
		b.WriteString("/")
		b.WriteString(c.path[len(c.path)-1])
	}
	if c.inPlace {
		b.WriteString("!")
	}
}

// Equal reports structural equality.
func (c Container) Equal(other Container) bool {
	return c.Key() == other.Key()
}

// String implements fmt.Stringer.
func (c Container) String() string {
	return c.Key()
}

// Child returns an appendable sub-container.
func (c Container) Child(key string) (Container, error) {
	return c.derive(key, false, false)
}

// InPlaceChild returns a single-slot sub-container. Every widget sent to it replaces the previous one.
func (c Container) InPlaceChild(key string) (Container, error) {
	return c.derive(key, true, false)
}

// FormChild returns the root container of a new form.
// Forms cannot be nested.
func (c Container) FormChild(key string, clearOnSubmit bool) (Container, error) {
	if enclosing, ok := c.EnclosingFormKey(); ok {
		return Container{}, NewConfigurationError("form %q cannot be created inside form %q: forms cannot be nested", key, enclosing)
	}
	child, err := c.derive(key, false, true)
	if err != nil {
		return Container{}, err
	}
	child.clearOnSubmit = clearOnSubmit
	return child, nil
}

func (c Container) derive(key string, inPlace, formRoot bool) (Container, error) {
	if c.IsZero() {
		return Container{}, NewIllegalStateError("cannot derive container %q from a zero container", key)
	}
	if strings.TrimSpace(key) == "" {
		return Container{}, NewConfigurationError("container key cannot be blank")
	}
	if strings.Contains(key, ContainerSeparator) || strings.ContainsAny(key, "/!") {
		return Container{}, NewConfigurationError("container key %q cannot contain %q, \"/\" or \"!\"", key, ContainerSeparator)
	}

	parent := c
	path := make([]string, len(c.path), len(c.path)+1)
	copy(path, c.path)

	return Container{
		path:     append(path, key),
		parent:   &parent,
		inPlace:  inPlace,
		formRoot: formRoot,
	}, nil
}

// EnclosingForm walks the parent chain and returns the first form root, including the container itself.
func (c Container) EnclosingForm() (Container, bool) {
	for cur := &c; cur != nil; cur = cur.parent {
		if cur.formRoot {
			return *cur, true
		}
	}
	return Container{}, false
}

// EnclosingFormKey returns the terminal path segment of the enclosing form root.
func (c Container) EnclosingFormKey() (string, bool) {
	form, ok := c.EnclosingForm()
	if !ok {
		return "", false
	}
	return form.path[len(form.path)-1], true
}

// Lineage returns the canonical keys of the container and all its ancestors, innermost first.
func (c Container) Lineage() []string {
	var keys []string
	for cur := &c; cur != nil; cur = cur.parent {
		keys = append(keys, cur.Key())
	}
	return keys
}
