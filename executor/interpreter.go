// Package executor runs validated action sequences against an
// automation driver, threading session state between steps.
package executor

import (
	"context"
	"time"

	"github.com/browserscript/browserscript/downloads"
	"github.com/browserscript/browserscript/driver"
	"github.com/browserscript/browserscript/models"
	"github.com/browserscript/browserscript/pkg/logger"
	"github.com/pkg/errors"
)

// Options tunes interpreter behavior.
type Options struct {
	// DefaultWait bounds element waits that do not carry their own
	// duration. Defaults to 10 seconds.
	DefaultWait time.Duration
	// PauseOnException holds execution after a runtime failure before
	// the error is re-raised, leaving the browser open for inspection.
	// Zero disables the pause.
	PauseOnException time.Duration
	// Delay is slept between consecutive actions, except after an
	// action that is itself a wait. Zero means no delay.
	Delay time.Duration
	// Watcher, when set, tracks the download directory; its baseline
	// resets on every navigation.
	Watcher *downloads.Watcher
}

// Interpreter executes action sequences strictly in order against one
// driver. Not safe for concurrent use: one interpreter, one driver,
// one session.
type Interpreter struct {
	driver  driver.Driver
	opts    Options
	session *Session
}

func New(d driver.Driver, opts Options) *Interpreter {
	if opts.DefaultWait <= 0 {
		opts.DefaultWait = 10 * time.Second
	}
	return &Interpreter{
		driver:  d,
		opts:    opts,
		session: NewSession(),
	}
}

// Session exposes the state threaded between actions, mainly so tests
// and callers can assert on it. Mutation stays inside the interpreter.
func (in *Interpreter) Session() *Session {
	return in.session
}

// Driver returns the underlying automation driver.
func (in *Interpreter) Driver() driver.Driver {
	return in.driver
}

// RunJSON parses and runs a JSON action document.
func (in *Interpreter) RunJSON(ctx context.Context, data []byte) error {
	actions, err := models.ParseJSON(data)
	if err != nil {
		return err
	}
	return in.Run(ctx, actions)
}

// RunYAML parses and runs a YAML action document.
func (in *Interpreter) RunYAML(ctx context.Context, data []byte) error {
	actions, err := models.ParseYAML(data)
	if err != nil {
		return err
	}
	return in.Run(ctx, actions)
}

// Run executes actions in order. The first failure aborts the run;
// nothing is retried.
func (in *Interpreter) Run(ctx context.Context, actions []models.Action) error {
	for i, action := range actions {
		var err error
		var isWait bool

		switch action.Target {
		case models.TargetBrowser:
			err = in.ActOnBrowser(ctx, action.Browser, action.Args)
			isWait = action.Browser == models.BrowserWait
		case models.TargetElement:
			err = in.ActOnElement(ctx, nil, "", action.Element, action.Args)
			isWait = action.Element == models.ElementWait
		default:
			err = errors.Wrap(models.ErrUnknownTarget, string(action.Target))
		}
		if err != nil {
			return errors.Wrapf(err, "action %d (%s)", i, action.Name())
		}

		// A wait action already introduced its own pause.
		if in.opts.Delay > 0 && !isWait {
			if err := sleep(ctx, in.opts.Delay); err != nil {
				return err
			}
		}
	}
	return nil
}

// WaitForDownload blocks until a new file matching glob finishes
// downloading, or timeout elapses. Requires a configured Watcher.
func (in *Interpreter) WaitForDownload(ctx context.Context, glob string, timeout time.Duration) (*models.DownloadedFile, error) {
	if in.opts.Watcher == nil {
		return nil, errors.New("no download directory configured")
	}
	return in.opts.Watcher.WaitFor(ctx, glob, timeout)
}

// CloseWindow closes the current window and, when a previous window is
// remembered, switches back to it.
func (in *Interpreter) CloseWindow() error {
	if err := in.driver.CloseWindow(); err != nil {
		return err
	}
	if last := in.session.LastWindow(); last != "" {
		return in.driver.SwitchToWindow(last)
	}
	return nil
}

// exceptionWait implements the failure policy: log the error with the
// last element context, optionally pause so a human can inspect the
// live browser, then hand the error back. Nothing is swallowed.
func (in *Interpreter) exceptionWait(ctx context.Context, err error) error {
	logger.Warn(ctx, "Error: %v", err)
	logger.Warn(ctx, "Last element: %s", in.session.describeLast())
	if in.opts.PauseOnException > 0 {
		logger.Warn(ctx, "Pausing for %s before surfacing the error", in.opts.PauseOnException)
		sleep(ctx, in.opts.PauseOnException)
	}
	return err
}

// sleep blocks for d or until the context is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
