// Package demo is a small todo app written against the widget library.
// The serve command hosts it and the demo command replays a scripted session of it.
package demo

import (
	"fmt"
	"strings"

	"github.com/aretw0/rerun"
	"github.com/aretw0/rerun/pkg/domain"
	"github.com/aretw0/rerun/pkg/ports"
	"github.com/aretw0/rerun/pkg/widgets"
)

var (
	TodoPage  = domain.Page{Path: "/", Title: "Todos"}
	AboutPage = domain.Page{Path: "/about", Title: "About"}
)

// Keys of the widgets driven from outside the script.
const (
	NewTodoKey   = "new"
	ClearDoneKey = "clear"
)

const todosKey = "todos"

// Todo is one entry of the list, kept in the session user state.
type Todo struct {
	ID    int
	Title string
	Done  bool
}

// TodoKey returns the user key of the checkbox of a todo.
func TodoKey(id int) string { return fmt.Sprintf("todo-%d", id) }

// Todos returns the list stored in a session user state.
func Todos(state map[string]any) []Todo {
	todos, _ := state[todosKey].([]Todo)
	return todos
}

// Script is the app entry point.
func Script(run ports.Run) error {
	page, err := widgets.Navigation(run, TodoPage, AboutPage).Use()
	if err != nil {
		return err
	}
	if page.Path == AboutPage.Path {
		return about(run)
	}
	return todos(run)
}

func todos(run ports.Run) error {
	state := run.UserState()
	list := Todos(state)

	if err := widgets.Title(run, "Todos").Use(); err != nil {
		return err
	}

	form, err := widgets.Form(run, "add").ClearOnSubmit().Use()
	if err != nil {
		return err
	}
	title, err := widgets.TextInput(run, "New todo").Key(NewTodoKey).Placeholder("What needs doing?").UseIn(form)
	if err != nil {
		return err
	}
	added, err := widgets.FormSubmitButton(run, "Add").UseIn(form)
	if err != nil {
		return err
	}
	if title = strings.TrimSpace(title); added && title != "" {
		next, _ := state["next_id"].(int)
		next++
		state["next_id"] = next
		list = append(list, Todo{ID: next, Title: title})
	}

	remaining := 0
	for i := range list {
		done, err := widgets.Checkbox(run, list[i].Title).Key(TodoKey(list[i].ID)).Default(list[i].Done).Use()
		if err != nil {
			return err
		}
		list[i].Done = done
		if !done {
			remaining++
		}
	}
	state[todosKey] = list

	summary := "Nothing to do yet."
	if len(list) > 0 {
		summary = fmt.Sprintf("%d of %d remaining", remaining, len(list))
	}
	if err := widgets.Text(run, summary).Use(); err != nil {
		return err
	}

	clearDone, err := widgets.Button(run, "Clear done").Key(ClearDoneKey).Use()
	if err != nil {
		return err
	}
	if clearDone && remaining < len(list) {
		kept := list[:0:0]
		for _, t := range list {
			if !t.Done {
				kept = append(kept, t)
			}
		}
		return rerun.Rerun(func() { state[todosKey] = kept })
	}

	tip, err := tipOfTheDay(run)
	if err != nil {
		return err
	}
	return widgets.Text(run, tip).UseIn(domain.Sidebar)
}

var tips = []string{
	"Widgets with a key keep their value when their label changes.",
	"Only the part of the page that changed is sent again.",
	"Forms buffer their values until submitted.",
}

// tipOfTheDay is computed once per process and shared through the cache.
func tipOfTheDay(run ports.Run) (string, error) {
	ctx := run.Context()
	if v, ok, err := run.Cache().Get(ctx, "demo:tip"); err != nil {
		return "", err
	} else if s, isString := v.(string); ok && isString {
		return s, nil
	}
	tip := "Tip: " + tips[len(run.SessionID())%len(tips)]
	if err := run.Cache().Put(ctx, "demo:tip", tip); err != nil {
		return "", err
	}
	return tip, nil
}

var logo = []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="32" height="32"><circle cx="16" cy="16" r="14" fill="#2dd4bf"/></svg>`)

func about(run ports.Run) error {
	if err := widgets.Title(run, "About").Use(); err != nil {
		return err
	}
	if err := widgets.Image(run, logo, "image/svg+xml", "rerun").Use(); err != nil {
		return err
	}
	details, err := widgets.Expander(run, "How it works").Use()
	if err != nil {
		return err
	}
	if err := widgets.Text(run, "The script runs top to bottom on every interaction.").UseIn(details); err != nil {
		return err
	}
	cols, err := widgets.Columns(run, 2).Use()
	if err != nil {
		return err
	}
	if err := widgets.Text(run, "Server side state").UseIn(cols[0]); err != nil {
		return err
	}
	return widgets.Text(run, "Incremental updates").UseIn(cols[1])
}
