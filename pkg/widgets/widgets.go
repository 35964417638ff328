package widgets

import (
	"fmt"
	"html"
	"strings"

	"github.com/aretw0/rerun/pkg/domain"
	"github.com/aretw0/rerun/pkg/ports"
)

// base carries what every widget needs for identity and placement.
type base struct {
	run       ports.Run
	typeName  string
	fields    []domain.Field
	key       string
	noPersist bool
}

func newBase(r ports.Run, typeName string, fields ...domain.Field) base {
	r.Instantiated(typeName)
	return base{run: r, typeName: typeName, fields: fields}
}

func (b *base) TypeName() string { return b.typeName }

func (b *base) Identity() domain.Identity {
	return domain.Identity{Fields: b.fields, UserKey: b.key, NoPersist: b.noPersist}
}

func (b *base) Register() string { return "" }

func field(name string, value any) domain.Field {
	return domain.Field{Name: name, Value: value}
}

// register is the client-side behaviour a stateful widget type ships once per session.
func register(typeName, event string) string {
	return fmt.Sprintf(`<script data-widget=%q data-event=%q></script>`, typeName, event)
}

// attrs renders the attributes shared by interactive widgets.
func attrs(rc domain.RenderContext) string {
	return fmt.Sprintf(`data-key="%s" data-container="%s"`, html.EscapeString(rc.Key), html.EscapeString(rc.Container.Key()))
}

func escape(s string) string {
	return html.EscapeString(s)
}

func lines(parts ...string) string {
	return strings.Join(parts, "")
}
