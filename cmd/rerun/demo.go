package main

import (
	"fmt"
	"io"
	"os"

	"github.com/aretw0/rerun"
	"github.com/aretw0/rerun/internal/demo"
	"github.com/aretw0/rerun/internal/presentation/graph"
	"github.com/aretw0/rerun/internal/presentation/tui"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Replay a scripted session of the demo app in the terminal",
	Long: `Runs the demo app through a fixed sequence of interactions and prints every update
the browser would receive, so the incremental protocol can be followed step by step.`,
	RunE: runDemo,
}

func init() {
	rootCmd.AddCommand(demoCmd)
	demoCmd.Flags().Bool("status", false, "Also print BEGIN and END notifications")
	demoCmd.Flags().Bool("graph", false, "Print the final layout as a Mermaid flowchart")
	demoCmd.Flags().Bool("plain", false, "Disable colors and markdown styling")
}

func runDemo(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	statuses, _ := cmd.Flags().GetBool("status")
	showGraph, _ := cmd.Flags().GetBool("graph")
	plain, _ := cmd.Flags().GetBool("plain")

	w := cmd.OutOrStdout()
	printerOpts := []tui.PrinterOption{tui.WithStatuses(statuses)}
	var narrate func(string) (string, error)
	if plain {
		printerOpts = append(printerOpts, tui.WithProfile(termenv.Ascii))
		narrate = func(s string) (string, error) { return s + "\n", nil }
	} else {
		f, _ := w.(*os.File)
		narrate = tui.NewRenderer(f)
	}
	printer := tui.NewPrinter(w, printerOpts...)

	app, err := rerun.New(
		rerun.WithTransport(printer),
		rerun.WithLogger(logger),
		rerun.WithMaxReruns(cfg.Engine.MaxReruns),
	)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	const sessionID = "demo"
	for i, step := range demo.Steps() {
		if err := narrateStep(w, narrate, step.Narration); err != nil {
			return err
		}
		if step.Apply != nil {
			if err := step.Apply(ctx, app, sessionID); err != nil {
				return fmt.Errorf("step %d: %w", i+1, err)
			}
		}
		out := app.Run(ctx, sessionID, demo.Script)
		if out.Err != nil {
			return fmt.Errorf("step %d: %w", i+1, out.Err)
		}
		if out.Reruns > 0 {
			fmt.Fprintf(w, "(%d rerun)\n", out.Reruns)
		}
	}

	if showGraph {
		layout, err := app.Layout(ctx, sessionID)
		if err != nil {
			return err
		}
		fmt.Fprintln(w)
		fmt.Fprint(w, graph.GenerateMermaid(layout, nil))
	}
	return nil
}

func narrateStep(w io.Writer, narrate func(string) (string, error), markdown string) error {
	text, err := narrate(markdown)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(w, text)
	return err
}
