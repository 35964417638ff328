// Package graph draws the container tree of a run as a Mermaid flowchart.
package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/rerun/pkg/domain"
)

// Overlay highlights parts of the layout, typically what the last run sent.
type Overlay struct {
	Sent      []string
	Container string
}

// GenerateMermaid produces a Mermaid flowchart from a run layout.
// Shapes: containers are subroutines, in-place containers are circles,
// stateful widgets are parallelograms and markup-only widgets are rectangles.
func GenerateMermaid(layout []domain.ContainerLayout, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, c := range layout {
		cid := sanitizeMermaidID("c_" + c.Container)
		opener, closer := "[[", "]]"
		if c.InPlace {
			opener, closer = "((", "))"
		}
		label := c.Container
		if c.Form {
			label += " (form)"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", cid, opener, quote(label), closer)
		if c.Parent != "" {
			fmt.Fprintf(&sb, "    %s -.-> %s\n", sanitizeMermaidID("c_"+c.Parent), cid)
		}

		for i, w := range c.Widgets {
			wid := sanitizeMermaidID(w.Key)
			opener, closer := "[", "]"
			if w.Stateful {
				opener, closer = "[/", "/]"
			}
			label := w.Type
			if w.UserKey != "" {
				label += " " + w.UserKey
			}
			fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", wid, opener, quote(label), closer)
			fmt.Fprintf(&sb, "    %s -- \"%d\" --> %s\n", cid, i, wid)
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef sent fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, key := range overlay.Sent {
			id := sanitizeMermaidID(key)
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			fmt.Fprintf(&sb, "    class %s sent;\n", id)
		}
		if overlay.Container != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID("c_"+overlay.Container))
		}
	}

	return sb.String()
}

var mermaidUnsafe = strings.NewReplacer(
	".", "_", "-", "_", "/", "_", "\\", "_",
	":", "_", "!", "_", "#", "_", " ", "_",
)

func sanitizeMermaidID(id string) string {
	return mermaidUnsafe.Replace(id)
}

func quote(label string) string {
	return strings.ReplaceAll(label, "\"", "'")
}
