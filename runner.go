package rerun

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/aretw0/rerun/pkg/domain"
	"github.com/aretw0/rerun/pkg/widgets"
)

// ErrTooManyReruns is returned when a script keeps breaking beyond the configured bound.
var ErrTooManyReruns = errors.New("too many consecutive reruns")

// Outcome reports how Run finished.
type Outcome struct {
	Kind domain.OutcomeKind
	// Err is set for failed runs. A failed run still ended cleanly and showed the error in-app.
	Err error
	// Reruns counts break-and-rerun cycles.
	Reruns int
}

// PanicError wraps a panic raised by a script.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("script panicked: %v", e.Value)
}

// Run executes one script run for a session while holding its gate.
//
// A script returning a break-and-rerun value ends the run, invokes its callback and starts a new
// run right away. Script errors and panics are rendered as an error widget; developer sessions
// also see the detail. The run is always ended.
func (a *App) Run(ctx context.Context, sessionID string, script Script) Outcome {
	reruns := 0
	for {
		var (
			brk     *domain.BreakAndRerun
			failure error
		)
		err := a.gate.WithLock(ctx, sessionID, func(ctx context.Context) error {
			var err error
			brk, failure, err = a.runOnce(ctx, sessionID, script)
			if err == nil && brk != nil && brk.OnBreak != nil && reruns < a.maxReruns {
				brk.OnBreak()
			}
			return err
		})
		switch {
		case err != nil:
			if errors.Is(err, domain.ErrIllegalState) {
				a.logger.Error("Run aborted", "session_id", sessionID, "err", err)
			}
			return Outcome{Kind: domain.OutcomeFailed, Err: err, Reruns: reruns}
		case failure != nil:
			return Outcome{Kind: domain.OutcomeFailed, Err: failure, Reruns: reruns}
		case brk == nil:
			return Outcome{Kind: domain.OutcomeCompleted, Reruns: reruns}
		case reruns >= a.maxReruns:
			return Outcome{Kind: domain.OutcomeBreak, Err: ErrTooManyReruns, Reruns: reruns}
		}
		reruns++
	}
}

// runOnce performs a single run. It returns the break request or the script failure, which was
// already rendered into the run; err is only set for engine errors.
func (a *App) runOnce(ctx context.Context, sessionID string, script Script) (brk *domain.BreakAndRerun, failure error, err error) {
	x, err := a.BeginExecution(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}

	stop := a.startHeartbeat(ctx, sessionID)
	scriptErr := execute(x, script)
	stop()

	if scriptErr != nil {
		if b, ok := domain.AsBreak(scriptErr); ok {
			brk = b
			x.SetOutcome(domain.OutcomeBreak)
		} else {
			failure = scriptErr
			x.SetOutcome(domain.OutcomeFailed)
			a.showFailure(x, sessionID, scriptErr)
		}
	}

	if err := x.End(); err != nil {
		return nil, nil, err
	}
	return brk, failure, nil
}

func execute(x Execution, script Script) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return script(x)
}

// showFailure renders a script error at the end of the main container.
func (a *App) showFailure(x Execution, sessionID string, scriptErr error) {
	level := a.logger.Warn
	if errors.Is(scriptErr, domain.ErrIllegalState) {
		level = a.logger.Error
	}
	level("Script failed", "session_id", sessionID, "err", scriptErr)

	message := "This app has encountered an error."
	detail := ""
	if a.isDeveloper(sessionID) {
		cause := rootCause(scriptErr)
		message = cause.Error()
		var parts []string
		if cause != scriptErr {
			parts = append(parts, scriptErr.Error())
		}
		var p *PanicError
		if errors.As(scriptErr, &p) {
			parts = append(parts, string(p.Stack))
		}
		detail = strings.Join(parts, "\n\n")
	}
	if err := widgets.ErrorBox(x, message, detail).Use(); err != nil {
		a.logger.Error("Failed to show script error", "session_id", sessionID, "err", err)
	}
}

// rootCause follows single-error wrapping down to the innermost error.
func rootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

func (a *App) isDeveloper(sessionID string) bool {
	if a.devMode {
		return true
	}
	sess, ok := a.runtime.Sessions().Get(sessionID)
	return ok && sess.IsDeveloper
}

// startHeartbeat sends RUNNING notifications until the returned function is called.
func (a *App) startHeartbeat(ctx context.Context, sessionID string) func() {
	if a.heartbeat <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(a.heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				a.transport.SendStatus(sessionID, domain.StatusRunning, nil)
			}
		}
	}()
	return func() {
		close(done)
		<-stopped
	}
}
