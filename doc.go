/*
Package rerun runs UI scripts top to bottom on every interaction and turns each run into the
smallest set of client updates.

A script declares widgets in order. Between two runs of the same session the engine compares the
new declarations with the previous run, container by container, and only sends what changed:
identical widgets are skipped, the first difference clears the rest of the container on the client,
and containers that shrank are truncated when the run ends. Widget values survive reruns because
every widget has a deterministic identity derived from its type and parameters, or from an
explicit key.

# Concept

The host (an HTTP server, a test, a terminal replay) owns the transport. The App owns sessions,
the shared cache and the reconciliation engine. Scripts receive an explicit run handle; there is
no ambient per-goroutine state.

# Usage

	app, err := rerun.New(rerun.WithTransport(transport))
	if err != nil {
		log.Fatal(err)
	}

	script := func(run ports.Run) error {
		name, err := widgets.TextInput(run, "Your name").Key("name").Use()
		if err != nil {
			return err
		}
		return widgets.Text(run, "Hello, "+name).Use()
	}

	outcome := app.Run(ctx, "session-123", script)
	if outcome.Err != nil {
		log.Println(outcome.Err)
	}

	// Later, when the client reports a new value:
	_ = app.UpdateWidget(ctx, "session-123", "app:key:name", "Ada")
	app.Run(ctx, "session-123", script)

A script may return rerun.Rerun(fn) (or domain.Rerun) to stop early and start over immediately;
fn runs between the two runs.
*/
package rerun
