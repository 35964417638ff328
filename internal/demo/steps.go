package demo

import (
	"context"
	"fmt"

	"github.com/aretw0/rerun"
	"github.com/aretw0/rerun/pkg/domain"
	"github.com/aretw0/rerun/pkg/identity"
)

// Step is one interaction of the scripted session replayed by the demo command.
// Apply runs before the script is rerun.
type Step struct {
	Narration string
	Apply     func(ctx context.Context, app *rerun.App, sessionID string) error
}

// Steps returns the scripted session: add two todos, tick one, clear it and open the about page.
func Steps() []Step {
	return []Step{
		{
			Narration: "## Open the app\nThe first run sends every widget.",
		},
		{
			Narration: "## Add a todo\nThe text input is buffered by the form until **Add** is clicked.",
			Apply:     addTodo("Buy milk"),
		},
		{
			Narration: "## Add another\nOnly the new checkbox and the summary change, and the form is cleared.",
			Apply:     addTodo("Write docs"),
		},
		{
			Narration: "## Tick the first todo\nThe checkbox value survives reruns because it has a key.",
			Apply:     set(TodoPage, TodoKey(1), true),
		},
		{
			Narration: "## Clear done todos\nThe button breaks the run and starts a new one with the shorter list.",
			Apply:     set(TodoPage, ClearDoneKey, true),
		},
		{
			Narration: "## Visit the about page\nNavigation follows the URL.",
			Apply: func(ctx context.Context, app *rerun.App, sessionID string) error {
				return app.SetURLContext(ctx, sessionID, AboutPage.Path, nil)
			},
		},
	}
}

// WidgetKey returns the internal key of a user-keyed widget declared on a page.
func WidgetKey(page domain.Page, userKey string) string {
	key, err := identity.ComputeInternalKey("", nil, false, &userKey, page.NamespaceOrDefault())
	if err != nil {
		panic(err)
	}
	return key
}

func set(page domain.Page, userKey string, value any) func(context.Context, *rerun.App, string) error {
	return func(ctx context.Context, app *rerun.App, sessionID string) error {
		return app.UpdateWidget(ctx, sessionID, WidgetKey(page, userKey), value)
	}
}

func addTodo(title string) func(context.Context, *rerun.App, string) error {
	return func(ctx context.Context, app *rerun.App, sessionID string) error {
		if err := set(TodoPage, NewTodoKey, title)(ctx, app, sessionID); err != nil {
			return err
		}
		submit, err := findWidget(ctx, app, sessionID, "form_submit")
		if err != nil {
			return err
		}
		return app.UpdateWidget(ctx, sessionID, submit, true)
	}
}

// findWidget returns the internal key of the first widget of a type in the last run.
func findWidget(ctx context.Context, app *rerun.App, sessionID, typeName string) (string, error) {
	layout, err := app.Layout(ctx, sessionID)
	if err != nil {
		return "", err
	}
	for _, c := range layout {
		for _, w := range c.Widgets {
			if w.Type == typeName {
				return w.Key, nil
			}
		}
	}
	return "", fmt.Errorf("no %s widget in the last run of session %q", typeName, sessionID)
}
