package widgets

import (
	"fmt"

	"github.com/aretw0/rerun/pkg/domain"
	"github.com/aretw0/rerun/pkg/ports"
)

// TextWidget displays a paragraph.
type TextWidget struct {
	base
	body string
}

// Text builds a paragraph.
func Text(r ports.Run, body string) *TextWidget {
	return &TextWidget{base: newBase(r, "text", field("body", body)), body: body}
}

func (w *TextWidget) Render(domain.RenderContext) string {
	return "<p>" + escape(w.body) + "</p>"
}

// Use places the paragraph in the main container.
func (w *TextWidget) Use() error { return w.UseIn(domain.Main) }

// UseIn places the paragraph in c.
func (w *TextWidget) UseIn(c domain.Container) error {
	_, err := w.run.Add(w, c)
	return err
}

// TitleWidget displays a heading.
type TitleWidget struct {
	base
	text  string
	level int
}

// Title builds a top-level heading.
func Title(r ports.Run, text string) *TitleWidget {
	return Heading(r, text, 1)
}

// Heading builds a heading of the given level, clamped to 1..6.
func Heading(r ports.Run, text string, level int) *TitleWidget {
	level = max(1, min(level, 6))
	return &TitleWidget{base: newBase(r, "title", field("text", text), field("level", level)), text: text, level: level}
}

func (w *TitleWidget) Render(domain.RenderContext) string {
	return fmt.Sprintf("<h%d>%s</h%d>", w.level, escape(w.text), w.level)
}

func (w *TitleWidget) Use() error { return w.UseIn(domain.Main) }

func (w *TitleWidget) UseIn(c domain.Container) error {
	_, err := w.run.Add(w, c)
	return err
}

// ErrorBoxWidget displays a failure. The detail is only rendered when non-empty.
type ErrorBoxWidget struct {
	base
	message string
	detail  string
}

// ErrorBox builds an error display.
func ErrorBox(r ports.Run, message, detail string) *ErrorBoxWidget {
	return &ErrorBoxWidget{
		base:    newBase(r, "error", field("message", message), field("detail", detail)),
		message: message,
		detail:  detail,
	}
}

func (w *ErrorBoxWidget) Render(domain.RenderContext) string {
	if w.detail == "" {
		return `<div class="error">` + escape(w.message) + `</div>`
	}
	return lines(`<div class="error">`, escape(w.message), `<pre>`, escape(w.detail), `</pre></div>`)
}

func (w *ErrorBoxWidget) Use() error { return w.UseIn(domain.Main) }

func (w *ErrorBoxWidget) UseIn(c domain.Container) error {
	_, err := w.run.Add(w, c)
	return err
}

// ImageWidget displays a payload served from the session media table.
type ImageWidget struct {
	base
	src     string
	caption string
}

// Image registers data as media for this run and builds an image pointing at it.
func Image(r ports.Run, data []byte, mimeType, caption string) *ImageWidget {
	src := r.RegisterMedia(data, mimeType)
	return &ImageWidget{
		base:    newBase(r, "image", field("src", src), field("caption", caption)),
		src:     src,
		caption: caption,
	}
}

func (w *ImageWidget) Render(domain.RenderContext) string {
	return fmt.Sprintf(`<figure><img src="%s" alt="%s"><figcaption>%s</figcaption></figure>`,
		escape(w.src), escape(w.caption), escape(w.caption))
}

func (w *ImageWidget) Use() error { return w.UseIn(domain.Main) }

func (w *ImageWidget) UseIn(c domain.Container) error {
	_, err := w.run.Add(w, c)
	return err
}
