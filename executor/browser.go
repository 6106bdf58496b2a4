package executor

import (
	"context"
	"strings"
	"time"

	"github.com/browserscript/browserscript/models"
	"github.com/browserscript/browserscript/pkg/logger"
	"github.com/pkg/errors"
)

// ActOnBrowser performs a browser-target action.
func (in *Interpreter) ActOnBrowser(ctx context.Context, action models.BrowserAction, args models.ActionArgs) error {
	switch action {
	case models.BrowserGo:
		goArgs, ok := args.(models.GoArgs)
		if !ok {
			return in.missingArgs(action, args)
		}
		logger.Info(ctx, "Navigating to %s", goArgs.URL)
		if err := in.driver.Navigate(ctx, goArgs.URL); err != nil {
			return err
		}
		// Navigation invalidates the element context and starts a
		// fresh download baseline.
		in.session.RecordNavigate()
		if in.opts.Watcher != nil {
			in.opts.Watcher.Reset()
		}
		return nil

	case models.BrowserNewTab:
		return in.driver.OpenTab(ctx)

	case models.BrowserSwitchTab:
		switchArgs, ok := args.(models.SwitchTabArgs)
		if !ok {
			return in.missingArgs(action, args)
		}
		return in.switchTab(ctx, switchArgs.Tab)

	case models.BrowserWait:
		waitArgs, ok := args.(models.BrowserWaitArgs)
		if !ok {
			return in.missingArgs(action, args)
		}
		return in.waitForUser(ctx, waitArgs.Duration)
	}
	return errors.Wrap(models.ErrUnknownAction, string(action))
}

// switchTab switches windows. "next" means the first window other than
// the current one, and quietly stays put when no other window exists.
// Anything else is a title-or-URL substring; when nothing matches, the
// previously active window is restored.
func (in *Interpreter) switchTab(ctx context.Context, tab string) error {
	previous, err := in.driver.CurrentWindow()
	if err != nil {
		return err
	}
	in.session.RecordWindowSwitch(previous)

	handles, err := in.driver.WindowHandles()
	if err != nil {
		return err
	}

	if tab == "next" {
		for _, handle := range handles {
			if handle != previous {
				logger.Debug(ctx, "Switching to: %s", handle)
				return in.driver.SwitchToWindow(handle)
			}
		}
		// No other window; stay where we are.
		return nil
	}

	for _, handle := range handles {
		if err := in.driver.SwitchToWindow(handle); err != nil {
			return err
		}
		title, err := in.driver.Title()
		if err != nil {
			return err
		}
		url, err := in.driver.CurrentURL()
		if err != nil {
			return err
		}
		if strings.Contains(title, tab) || strings.Contains(url, tab) {
			logger.Debug(ctx, "Switching to: %s", handle)
			return nil
		}
	}

	// Nothing matched; go back to where we started.
	return in.driver.SwitchToWindow(previous)
}

// waitForUser pauses the interpreter. Duration 0 intentionally blocks
// until the context is cancelled; it is the sentinel for manual,
// interactive pauses.
func (in *Interpreter) waitForUser(ctx context.Context, duration int) error {
	if duration == 0 {
		logger.Debug(ctx, "Sleeping until cancelled...")
		<-ctx.Done()
		return ctx.Err()
	}
	logger.Debug(ctx, "Sleeping for %d seconds...", duration)
	return sleep(ctx, time.Duration(duration)*time.Second)
}

func (in *Interpreter) missingArgs(action models.BrowserAction, args models.ActionArgs) error {
	if args == nil {
		return errors.Wrap(ErrMissingArguments, string(action))
	}
	return errors.Wrap(models.ErrArgumentShapeMismatch, string(action))
}
