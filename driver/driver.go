// Package driver defines the automation-driver capability set the
// action interpreter runs against, plus the go-rod implementation.
package driver

import (
	"context"
	"time"

	"github.com/browserscript/browserscript/locator"
	"github.com/pkg/errors"
)

var (
	// ErrNotFound reports that a locator matched no element.
	ErrNotFound = errors.New("element not found")
	// ErrWaitTimeout reports that a wait condition was not met in time.
	ErrWaitTimeout = errors.New("wait condition not met")
	// ErrNoPage reports that no page is open yet.
	ErrNoPage = errors.New("no active page")
)

// ElementRef is an opaque handle to a located element. Describe
// reports a human-readable identifier ("input#search", "a.nav-link")
// used in logs; it must not fail.
type ElementRef interface {
	Describe() string
}

// Driver is the capability set the interpreter needs from a browser
// automation backend. Implementations are not safe for concurrent use;
// one interpreter owns one driver.
type Driver interface {
	// Navigation and window management.
	Navigate(ctx context.Context, url string) error
	Title() (string, error)
	CurrentURL() (string, error)
	OpenTab(ctx context.Context) error
	WindowHandles() ([]string, error)
	CurrentWindow() (string, error)
	SwitchToWindow(handle string) error
	CloseWindow() error

	// Element location.
	FindElement(loc locator.Locator) (ElementRef, error)
	FindElements(loc locator.Locator) ([]ElementRef, error)
	WaitUntil(ctx context.Context, loc locator.Locator, cond locator.Condition, timeout time.Duration) (ElementRef, error)

	// Element effects.
	Click(ref ElementRef) error
	SendKeys(ref ElementRef, text string) error
	PressEnter(ref ElementRef) error
	Hover(ref ElementRef) error
	TagName(ref ElementRef) (string, error)
	Attribute(ref ElementRef, name string) (string, error)
	SelectOption(ref ElementRef, value string) error

	// ExecuteScript runs a script in page context. When refs are given
	// the script is evaluated with `this` bound to the first element.
	ExecuteScript(src string, refs ...ElementRef) error

	// PageHTML returns the current document markup.
	PageHTML() (string, error)
}
