package widgets

import (
	"fmt"
	"slices"

	"github.com/aretw0/rerun/pkg/domain"
	"github.com/aretw0/rerun/pkg/ports"
	"github.com/spf13/cast"
)

// ButtonWidget is a momentary button: it reads true for exactly one run after a click.
type ButtonWidget struct {
	base
	label   string
	onClick func()
	submit  bool
}

// Button builds a momentary button.
func Button(r ports.Run, label string) *ButtonWidget {
	return &ButtonWidget{base: newBase(r, "button", field("label", label)), label: label}
}

// FormSubmitButton builds the button that applies the buffered values of its form.
// It must be placed inside a form container.
func FormSubmitButton(r ports.Run, label string) *ButtonWidget {
	return &ButtonWidget{base: newBase(r, "form_submit", field("label", label)), label: label, submit: true}
}

// Key sets an explicit identity.
func (w *ButtonWidget) Key(key string) *ButtonWidget { w.key = key; return w }

// OnClick runs fn at the start of the run triggered by a click.
func (w *ButtonWidget) OnClick(fn func()) *ButtonWidget { w.onClick = fn; return w }

func (w *ButtonWidget) Render(rc domain.RenderContext) string {
	kind := "button"
	if w.submit {
		kind = "submit"
	}
	return fmt.Sprintf(`<button type="%s" %s>%s</button>`, kind, attrs(rc), escape(w.label))
}

func (w *ButtonWidget) Register() string { return register(w.typeName, "click") }

func (w *ButtonWidget) DefaultValue() any { return false }

func (w *ButtonWidget) ParseValue(raw any) (any, error) { return cast.ToBoolE(raw) }

func (w *ButtonWidget) ResetValue(current any) (any, bool) {
	if cast.ToBool(current) {
		return false, true
	}
	return current, false
}

func (w *ButtonWidget) IsSubmit() bool { return w.submit }

func (w *ButtonWidget) Callback() func(any) {
	if w.onClick == nil {
		return nil
	}
	return func(v any) {
		if cast.ToBool(v) {
			w.onClick()
		}
	}
}

// Use places the button in the main container and reports whether it was clicked.
func (w *ButtonWidget) Use() (bool, error) { return w.UseIn(domain.Main) }

func (w *ButtonWidget) UseIn(c domain.Container) (bool, error) {
	v, err := w.run.Add(w, c)
	if err != nil {
		return false, err
	}
	return cast.ToBool(v), nil
}

// CheckboxWidget is a persistent on/off toggle.
type CheckboxWidget struct {
	base
	label    string
	value    bool
	onChange func(bool)
}

// Checkbox builds a checkbox, unchecked by default.
func Checkbox(r ports.Run, label string) *CheckboxWidget {
	return &CheckboxWidget{base: newBase(r, "checkbox", field("label", label)), label: label}
}

func (w *CheckboxWidget) Key(key string) *CheckboxWidget { w.key = key; return w }

// NoPersist drops the value as soon as the checkbox leaves the script, even when keyed.
func (w *CheckboxWidget) NoPersist() *CheckboxWidget { w.noPersist = true; return w }

// Default sets the initial state. It is part of the identity.
func (w *CheckboxWidget) Default(checked bool) *CheckboxWidget {
	w.value = checked
	w.fields = append(w.fields, field("default", checked))
	return w
}

func (w *CheckboxWidget) OnChange(fn func(bool)) *CheckboxWidget { w.onChange = fn; return w }

func (w *CheckboxWidget) Render(rc domain.RenderContext) string {
	checked := ""
	if cast.ToBool(rc.Value) {
		checked = " checked"
	}
	return fmt.Sprintf(`<label><input type="checkbox" %s%s>%s</label>`, attrs(rc), checked, escape(w.label))
}

func (w *CheckboxWidget) Register() string { return register(w.typeName, "change") }

func (w *CheckboxWidget) DefaultValue() any { return w.value }

func (w *CheckboxWidget) ParseValue(raw any) (any, error) { return cast.ToBoolE(raw) }

func (w *CheckboxWidget) Callback() func(any) {
	if w.onChange == nil {
		return nil
	}
	return func(v any) { w.onChange(cast.ToBool(v)) }
}

func (w *CheckboxWidget) Use() (bool, error) { return w.UseIn(domain.Main) }

func (w *CheckboxWidget) UseIn(c domain.Container) (bool, error) {
	v, err := w.run.Add(w, c)
	if err != nil {
		return false, err
	}
	return cast.ToBool(v), nil
}

// TextInputWidget is a single-line text field.
type TextInputWidget struct {
	base
	label       string
	value       string
	placeholder string
	onChange    func(string)
}

// TextInput builds an empty text field.
func TextInput(r ports.Run, label string) *TextInputWidget {
	return &TextInputWidget{base: newBase(r, "text_input", field("label", label)), label: label}
}

func (w *TextInputWidget) Key(key string) *TextInputWidget { w.key = key; return w }

func (w *TextInputWidget) NoPersist() *TextInputWidget { w.noPersist = true; return w }

func (w *TextInputWidget) Default(value string) *TextInputWidget {
	w.value = value
	w.fields = append(w.fields, field("default", value))
	return w
}

func (w *TextInputWidget) Placeholder(p string) *TextInputWidget {
	w.placeholder = p
	w.fields = append(w.fields, field("placeholder", p))
	return w
}

func (w *TextInputWidget) OnChange(fn func(string)) *TextInputWidget { w.onChange = fn; return w }

func (w *TextInputWidget) Render(rc domain.RenderContext) string {
	return fmt.Sprintf(`<label>%s<input type="text" %s value="%s" placeholder="%s"></label>`,
		escape(w.label), attrs(rc), escape(cast.ToString(rc.Value)), escape(w.placeholder))
}

func (w *TextInputWidget) Register() string { return register(w.typeName, "input") }

func (w *TextInputWidget) DefaultValue() any { return w.value }

func (w *TextInputWidget) ParseValue(raw any) (any, error) { return cast.ToStringE(raw) }

func (w *TextInputWidget) Callback() func(any) {
	if w.onChange == nil {
		return nil
	}
	return func(v any) { w.onChange(cast.ToString(v)) }
}

func (w *TextInputWidget) Use() (string, error) { return w.UseIn(domain.Main) }

func (w *TextInputWidget) UseIn(c domain.Container) (string, error) {
	v, err := w.run.Add(w, c)
	if err != nil {
		return "", err
	}
	return cast.ToString(v), nil
}

// NumberInputWidget is a bounded numeric field.
type NumberInputWidget struct {
	base
	label    string
	min, max float64
	value    float64
}

// NumberInput builds a numeric field accepting values in [min, max]. The default is min.
func NumberInput(r ports.Run, label string, min, max float64) *NumberInputWidget {
	return &NumberInputWidget{
		base:  newBase(r, "number_input", field("label", label), field("min", min), field("max", max)),
		label: label,
		min:   min,
		max:   max,
		value: min,
	}
}

func (w *NumberInputWidget) Key(key string) *NumberInputWidget { w.key = key; return w }

func (w *NumberInputWidget) Default(v float64) *NumberInputWidget {
	w.value = v
	w.fields = append(w.fields, field("default", v))
	return w
}

func (w *NumberInputWidget) Render(rc domain.RenderContext) string {
	return fmt.Sprintf(`<label>%s<input type="number" %s min="%g" max="%g" value="%g"></label>`,
		escape(w.label), attrs(rc), w.min, w.max, cast.ToFloat64(rc.Value))
}

func (w *NumberInputWidget) Register() string { return register(w.typeName, "change") }

func (w *NumberInputWidget) DefaultValue() any { return w.value }

func (w *NumberInputWidget) ParseValue(raw any) (any, error) {
	v, err := cast.ToFloat64E(raw)
	if err != nil {
		return nil, err
	}
	if v < w.min || v > w.max {
		return nil, fmt.Errorf("%g is outside [%g, %g]", v, w.min, w.max)
	}
	return v, nil
}

func (w *NumberInputWidget) Use() (float64, error) { return w.UseIn(domain.Main) }

func (w *NumberInputWidget) UseIn(c domain.Container) (float64, error) {
	if w.min > w.max {
		return 0, domain.NewConfigurationError("number input %q: min %g is greater than max %g", w.label, w.min, w.max)
	}
	if w.value < w.min || w.value > w.max {
		return 0, domain.NewConfigurationError("number input %q: default %g is outside [%g, %g]", w.label, w.value, w.min, w.max)
	}
	v, err := w.run.Add(w, c)
	if err != nil {
		return 0, err
	}
	return cast.ToFloat64(v), nil
}

// SelectboxWidget picks one option from a list.
type SelectboxWidget struct {
	base
	label   string
	options []string
	index   int
}

// Selectbox builds a selector defaulting to the first option.
func Selectbox(r ports.Run, label string, options []string) *SelectboxWidget {
	return &SelectboxWidget{
		base:    newBase(r, "selectbox", field("label", label), field("options", options)),
		label:   label,
		options: slices.Clone(options),
	}
}

func (w *SelectboxWidget) Key(key string) *SelectboxWidget { w.key = key; return w }

// Index selects the default option by position.
func (w *SelectboxWidget) Index(i int) *SelectboxWidget {
	w.index = i
	w.fields = append(w.fields, field("index", i))
	return w
}

func (w *SelectboxWidget) Render(rc domain.RenderContext) string {
	current := cast.ToString(rc.Value)
	out := fmt.Sprintf(`<label>%s<select %s>`, escape(w.label), attrs(rc))
	for _, o := range w.options {
		selected := ""
		if o == current {
			selected = " selected"
		}
		out += fmt.Sprintf(`<option%s>%s</option>`, selected, escape(o))
	}
	return out + "</select></label>"
}

func (w *SelectboxWidget) Register() string { return register(w.typeName, "change") }

func (w *SelectboxWidget) DefaultValue() any {
	if w.index < 0 || w.index >= len(w.options) {
		return ""
	}
	return w.options[w.index]
}

func (w *SelectboxWidget) ParseValue(raw any) (any, error) {
	s, err := cast.ToStringE(raw)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(w.options, s) {
		return nil, fmt.Errorf("%q is not an option", s)
	}
	return s, nil
}

func (w *SelectboxWidget) Use() (string, error) { return w.UseIn(domain.Main) }

func (w *SelectboxWidget) UseIn(c domain.Container) (string, error) {
	if len(w.options) == 0 || w.index < 0 || w.index >= len(w.options) {
		return "", domain.NewConfigurationError("selectbox %q: default index %d out of range", w.label, w.index)
	}
	v, err := w.run.Add(w, c)
	if err != nil {
		return "", err
	}
	return cast.ToString(v), nil
}
