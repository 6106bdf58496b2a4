package driver

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/browserscript/browserscript/locator"
	"github.com/browserscript/browserscript/pkg/logger"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/pkg/errors"
)

// Options configures the rod-backed driver.
type Options struct {
	BinPath     string // Chrome/Chromium binary; empty lets the launcher decide
	UserDataDir string // profile directory, preserves logins across runs
	DownloadDir string // when set, downloads land here
	Headless    *bool  // nil means autodetect from the environment
	UseStealth  bool
}

// Rod drives a Chromium browser through go-rod. The browser is
// launched lazily on the first navigation.
type Rod struct {
	opts Options

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	running  bool
}

func NewRod(opts Options) *Rod {
	return &Rod{opts: opts}
}

// Start launches the browser and opens the initial page. Calling Start
// on a running driver is a no-op.
func (r *Rod) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil
	}

	headless := false
	if r.opts.Headless != nil {
		headless = *r.opts.Headless
	} else if runtime.GOOS == "linux" && os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
		headless = true
		logger.Info(ctx, "No display detected, enabling headless mode")
	}

	l := launcher.New().
		Headless(headless).
		Devtools(false).
		Leakless(false)

	if r.opts.BinPath != "" {
		l = l.Bin(r.opts.BinPath)
	}
	if r.opts.UserDataDir != "" {
		if err := os.MkdirAll(r.opts.UserDataDir, 0o755); err == nil {
			l = l.UserDataDir(r.opts.UserDataDir)
		} else {
			logger.Warn(ctx, "Failed to create user data directory: %v", err)
		}
	}

	url, err := l.Launch()
	if err != nil {
		return errors.Wrap(err, "launch browser")
	}

	browser := rod.New().ControlURL(url)
	if err := browser.Connect(); err != nil {
		return errors.Wrap(err, "connect to browser")
	}

	if r.opts.DownloadDir != "" {
		if err := os.MkdirAll(r.opts.DownloadDir, 0o755); err != nil {
			logger.Warn(ctx, "Failed to create download directory: %v", err)
		}
		downloadBehavior := &proto.BrowserSetDownloadBehavior{
			Behavior:      proto.BrowserSetDownloadBehaviorBehaviorAllow,
			DownloadPath:  r.opts.DownloadDir,
			EventsEnabled: true,
		}
		if err := downloadBehavior.Call(browser); err != nil {
			logger.Warn(ctx, "Failed to set download behavior: %v", err)
		}
	}

	page, err := r.newPage(browser)
	if err != nil {
		browser.Close()
		return err
	}

	r.launcher = l
	r.browser = browser
	r.page = page
	r.running = true
	return nil
}

// Stop closes the browser and kills the launched process.
func (r *Rod) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return nil
	}
	err := r.browser.Close()
	if r.launcher != nil {
		r.launcher.Kill()
	}
	r.browser = nil
	r.page = nil
	r.running = false
	return err
}

// IsRunning reports whether the browser has been launched.
func (r *Rod) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Rod) newPage(browser *rod.Browser) (*rod.Page, error) {
	if r.opts.UseStealth {
		page, err := stealth.Page(browser)
		return page, errors.Wrap(err, "open stealth page")
	}
	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	return page, errors.Wrap(err, "open page")
}

func (r *Rod) activePage() (*rod.Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.page == nil {
		return nil, ErrNoPage
	}
	return r.page, nil
}

func (r *Rod) Navigate(ctx context.Context, url string) error {
	if err := r.Start(ctx); err != nil {
		return err
	}
	page, err := r.activePage()
	if err != nil {
		return err
	}
	if err := page.Context(ctx).Navigate(url); err != nil {
		return errors.Wrapf(err, "navigate to %s", url)
	}
	if err := page.Context(ctx).WaitLoad(); err != nil {
		// The page may be usable even when the load event never fires.
		logger.Warn(ctx, "Wait for page load failed: %v", err)
	}
	return nil
}

func (r *Rod) Title() (string, error) {
	page, err := r.activePage()
	if err != nil {
		return "", err
	}
	info, err := page.Info()
	if err != nil {
		return "", errors.Wrap(err, "page info")
	}
	return info.Title, nil
}

func (r *Rod) CurrentURL() (string, error) {
	page, err := r.activePage()
	if err != nil {
		return "", err
	}
	info, err := page.Info()
	if err != nil {
		return "", errors.Wrap(err, "page info")
	}
	return info.URL, nil
}

// OpenTab opens a background tab without changing the active page,
// matching the window.open() behavior the action language expects.
func (r *Rod) OpenTab(ctx context.Context) error {
	if err := r.Start(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	browser := r.browser
	r.mu.Unlock()
	_, err := r.newPage(browser)
	return err
}

func (r *Rod) WindowHandles() ([]string, error) {
	r.mu.Lock()
	browser := r.browser
	r.mu.Unlock()
	if browser == nil {
		return nil, ErrNoPage
	}
	pages, err := browser.Pages()
	if err != nil {
		return nil, errors.Wrap(err, "list pages")
	}
	handles := make([]string, 0, len(pages))
	for _, p := range pages {
		handles = append(handles, string(p.TargetID))
	}
	return handles, nil
}

func (r *Rod) CurrentWindow() (string, error) {
	page, err := r.activePage()
	if err != nil {
		return "", err
	}
	return string(page.TargetID), nil
}

func (r *Rod) SwitchToWindow(handle string) error {
	r.mu.Lock()
	browser := r.browser
	r.mu.Unlock()
	if browser == nil {
		return ErrNoPage
	}
	pages, err := browser.Pages()
	if err != nil {
		return errors.Wrap(err, "list pages")
	}
	for _, p := range pages {
		if string(p.TargetID) == handle {
			if _, err := p.Activate(); err != nil {
				return errors.Wrapf(err, "activate window %s", handle)
			}
			r.mu.Lock()
			r.page = p
			r.mu.Unlock()
			return nil
		}
	}
	return errors.Errorf("no window with handle %s", handle)
}

func (r *Rod) CloseWindow() error {
	page, err := r.activePage()
	if err != nil {
		return err
	}
	return page.Close()
}

// query maps a resolved locator onto a rod element query.
func query(page *rod.Page, loc locator.Locator) (*rod.Element, error) {
	switch loc.Method {
	case locator.ByID:
		return page.ElementX(fmt.Sprintf("//*[@id='%s']", loc.Value))
	case locator.ByName:
		return page.Element(fmt.Sprintf("[name=%q]", loc.Value))
	case locator.ByClassName:
		return page.Element("." + loc.Value)
	case locator.ByCSSSelector:
		return page.Element(loc.Value)
	case locator.ByXPath:
		return page.ElementX(loc.Value)
	case locator.ByLinkText:
		return page.ElementX(fmt.Sprintf("//a[normalize-space(text()) = '%s']", loc.Value))
	case locator.ByPartialLinkText:
		return page.ElementX(fmt.Sprintf("//a[contains(text(), '%s')]", loc.Value))
	case locator.ByTagName:
		return page.Element(loc.Value)
	default:
		return nil, errors.Wrap(locator.ErrUnknownMethod, string(loc.Method))
	}
}

func (r *Rod) FindElement(loc locator.Locator) (ElementRef, error) {
	page, err := r.activePage()
	if err != nil {
		return nil, err
	}
	el, err := query(page.Sleeper(rod.NotFoundSleeper), loc)
	if err != nil {
		if errors.Is(err, &rod.ElementNotFoundError{}) {
			return nil, errors.Wrap(ErrNotFound, loc.String())
		}
		return nil, errors.Wrapf(err, "find %s", loc)
	}
	return &rodElement{el: el}, nil
}

func (r *Rod) FindElements(loc locator.Locator) ([]ElementRef, error) {
	page, err := r.activePage()
	if err != nil {
		return nil, err
	}
	p := page.Sleeper(rod.NotFoundSleeper)
	var els rod.Elements
	switch loc.Method {
	case locator.ByXPath:
		els, err = p.ElementsX(loc.Value)
	case locator.ByID:
		els, err = p.ElementsX(fmt.Sprintf("//*[@id='%s']", loc.Value))
	case locator.ByName:
		els, err = p.Elements(fmt.Sprintf("[name=%q]", loc.Value))
	case locator.ByClassName:
		els, err = p.Elements("." + loc.Value)
	case locator.ByLinkText:
		els, err = p.ElementsX(fmt.Sprintf("//a[normalize-space(text()) = '%s']", loc.Value))
	case locator.ByPartialLinkText:
		els, err = p.ElementsX(fmt.Sprintf("//a[contains(text(), '%s')]", loc.Value))
	default:
		els, err = p.Elements(loc.Value)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "find all %s", loc)
	}
	refs := make([]ElementRef, 0, len(els))
	for _, el := range els {
		refs = append(refs, &rodElement{el: el})
	}
	return refs, nil
}

func (r *Rod) WaitUntil(ctx context.Context, loc locator.Locator, cond locator.Condition, timeout time.Duration) (ElementRef, error) {
	page, err := r.activePage()
	if err != nil {
		return nil, err
	}
	p := page.Context(ctx).Timeout(timeout)

	wrapTimeout := func(err error) error {
		if errors.Is(err, context.DeadlineExceeded) {
			return errors.Wrapf(ErrWaitTimeout, "%s %s after %s", loc, cond, timeout)
		}
		return errors.Wrapf(err, "wait for %s %s", loc, cond)
	}

	if cond == locator.ConditionInvisible {
		// Absence already satisfies the condition.
		el, err := query(page.Sleeper(rod.NotFoundSleeper), loc)
		if err != nil {
			if errors.Is(err, &rod.ElementNotFoundError{}) {
				return nil, nil
			}
			return nil, wrapTimeout(err)
		}
		if err := el.Timeout(timeout).WaitInvisible(); err != nil {
			return nil, wrapTimeout(err)
		}
		return &rodElement{el: el}, nil
	}

	el, err := query(p, loc)
	if err != nil {
		return nil, wrapTimeout(err)
	}

	switch cond {
	case locator.ConditionPresent:
		// Presence is what the query above already waited for.
	case locator.ConditionVisible:
		if err := el.WaitVisible(); err != nil {
			return nil, wrapTimeout(err)
		}
	case locator.ConditionClickable:
		if err := el.WaitVisible(); err != nil {
			return nil, wrapTimeout(err)
		}
		if err := el.WaitEnabled(); err != nil {
			return nil, wrapTimeout(err)
		}
	case locator.ConditionStable:
		if err := el.WaitStable(300 * time.Millisecond); err != nil {
			return nil, wrapTimeout(err)
		}
	default:
		return nil, errors.Wrap(locator.ErrUnknownCondition, string(cond))
	}

	return &rodElement{el: el}, nil
}

func (r *Rod) Click(ref ElementRef) error {
	el, err := unwrap(ref)
	if err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (r *Rod) SendKeys(ref ElementRef, text string) error {
	el, err := unwrap(ref)
	if err != nil {
		return err
	}
	return el.Input(text)
}

func (r *Rod) PressEnter(ref ElementRef) error {
	el, err := unwrap(ref)
	if err != nil {
		return err
	}
	return el.Type(input.Enter)
}

func (r *Rod) Hover(ref ElementRef) error {
	el, err := unwrap(ref)
	if err != nil {
		return err
	}
	return el.Hover()
}

func (r *Rod) TagName(ref ElementRef) (string, error) {
	el, err := unwrap(ref)
	if err != nil {
		return "", err
	}
	obj, err := el.Eval(`() => this.tagName.toLowerCase()`)
	if err != nil {
		return "", errors.Wrap(err, "tag name")
	}
	return obj.Value.Str(), nil
}

func (r *Rod) Attribute(ref ElementRef, name string) (string, error) {
	el, err := unwrap(ref)
	if err != nil {
		return "", err
	}
	value, err := el.Attribute(name)
	if err != nil {
		return "", errors.Wrapf(err, "attribute %s", name)
	}
	if value == nil {
		return "", nil
	}
	return *value, nil
}

func (r *Rod) SelectOption(ref ElementRef, value string) error {
	el, err := unwrap(ref)
	if err != nil {
		return err
	}
	return el.Select([]string{fmt.Sprintf(`[value=%q]`, value)}, true, rod.SelectorTypeCSSSector)
}

func (r *Rod) ExecuteScript(src string, refs ...ElementRef) error {
	if len(refs) > 0 {
		el, err := unwrap(refs[0])
		if err != nil {
			return err
		}
		_, err = el.Eval(src)
		return errors.Wrap(err, "execute script")
	}
	page, err := r.activePage()
	if err != nil {
		return err
	}
	_, err = page.Eval(src)
	return errors.Wrap(err, "execute script")
}

func (r *Rod) PageHTML() (string, error) {
	page, err := r.activePage()
	if err != nil {
		return "", err
	}
	return page.HTML()
}

func unwrap(ref ElementRef) (*rod.Element, error) {
	wrapped, ok := ref.(*rodElement)
	if !ok || wrapped.el == nil {
		return nil, errors.New("element reference does not belong to this driver")
	}
	return wrapped.el, nil
}

// rodElement wraps a rod element as an opaque ElementRef.
type rodElement struct {
	el   *rod.Element
	name string
}

// Describe builds a short, hopefully unique identifier for the
// element ("div#some-id"), used in logs. Best effort; never fails.
func (e *rodElement) Describe() string {
	if e.name != "" {
		return e.name
	}
	obj, err := e.el.Eval(`() => {
		const tag = this.tagName.toLowerCase();
		if (this.id) return tag + '#' + this.id;
		const name = this.getAttribute('name');
		if (name) return tag + '[name=' + name + ']';
		if (this.className && typeof this.className === 'string') return tag + '.' + this.className;
		return tag;
	}`)
	if err != nil {
		return "element"
	}
	e.name = obj.Value.Str()
	return e.name
}
