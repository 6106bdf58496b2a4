package executor

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/browserscript/browserscript/driver"
	"github.com/browserscript/browserscript/locator"
	"github.com/browserscript/browserscript/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeElement struct {
	name string
}

func (f *fakeElement) Describe() string { return f.name }

// fakeDriver is an in-memory Driver. Elements are registered under the
// string form of their locator; everything else records what was done
// to it.
type fakeDriver struct {
	elements map[string]*fakeElement
	tags     map[string]string
	attrs    map[string]map[string]string

	windows       []string
	currentWindow string
	titles        map[string]string
	urls          map[string]string

	navigated []string
	clicked   []string
	hovered   []string
	typed     map[string]string
	entered   []string
	selected  map[string]string
	scripts   []string

	waitTimesOut bool
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		elements:      map[string]*fakeElement{},
		tags:          map[string]string{},
		attrs:         map[string]map[string]string{},
		windows:       []string{"w0"},
		currentWindow: "w0",
		titles:        map[string]string{},
		urls:          map[string]string{},
		typed:         map[string]string{},
		selected:      map[string]string{},
	}
}

func (d *fakeDriver) addElement(loc locator.Locator, name, tag string) *fakeElement {
	el := &fakeElement{name: name}
	d.elements[loc.String()] = el
	d.tags[name] = tag
	return el
}

func (d *fakeDriver) Navigate(ctx context.Context, url string) error {
	d.navigated = append(d.navigated, url)
	d.urls[d.currentWindow] = url
	return nil
}

func (d *fakeDriver) Title() (string, error)      { return d.titles[d.currentWindow], nil }
func (d *fakeDriver) CurrentURL() (string, error) { return d.urls[d.currentWindow], nil }

func (d *fakeDriver) OpenTab(ctx context.Context) error {
	handle := fmt.Sprintf("w%d", len(d.windows))
	d.windows = append(d.windows, handle)
	d.currentWindow = handle
	return nil
}

func (d *fakeDriver) WindowHandles() ([]string, error) { return d.windows, nil }
func (d *fakeDriver) CurrentWindow() (string, error)   { return d.currentWindow, nil }
func (d *fakeDriver) SwitchToWindow(handle string) error {
	d.currentWindow = handle
	return nil
}

func (d *fakeDriver) CloseWindow() error {
	out := d.windows[:0]
	for _, w := range d.windows {
		if w != d.currentWindow {
			out = append(out, w)
		}
	}
	d.windows = out
	return nil
}

func (d *fakeDriver) FindElement(loc locator.Locator) (driver.ElementRef, error) {
	el, ok := d.elements[loc.String()]
	if !ok {
		return nil, driver.ErrNotFound
	}
	return el, nil
}

func (d *fakeDriver) FindElements(loc locator.Locator) ([]driver.ElementRef, error) {
	el, err := d.FindElement(loc)
	if err != nil {
		return nil, err
	}
	return []driver.ElementRef{el}, nil
}

func (d *fakeDriver) WaitUntil(ctx context.Context, loc locator.Locator, cond locator.Condition, timeout time.Duration) (driver.ElementRef, error) {
	if d.waitTimesOut {
		return nil, driver.ErrWaitTimeout
	}
	el, ok := d.elements[loc.String()]
	if !ok {
		return nil, driver.ErrWaitTimeout
	}
	return el, nil
}

func (d *fakeDriver) Click(ref driver.ElementRef) error {
	d.clicked = append(d.clicked, ref.Describe())
	return nil
}

func (d *fakeDriver) SendKeys(ref driver.ElementRef, text string) error {
	d.typed[ref.Describe()] = text
	return nil
}

func (d *fakeDriver) PressEnter(ref driver.ElementRef) error {
	d.entered = append(d.entered, ref.Describe())
	return nil
}

func (d *fakeDriver) Hover(ref driver.ElementRef) error {
	d.hovered = append(d.hovered, ref.Describe())
	return nil
}

func (d *fakeDriver) TagName(ref driver.ElementRef) (string, error) {
	return d.tags[ref.Describe()], nil
}

func (d *fakeDriver) Attribute(ref driver.ElementRef, name string) (string, error) {
	return d.attrs[ref.Describe()][name], nil
}

func (d *fakeDriver) SelectOption(ref driver.ElementRef, value string) error {
	d.selected[ref.Describe()] = value
	return nil
}

func (d *fakeDriver) ExecuteScript(src string, refs ...driver.ElementRef) error {
	d.scripts = append(d.scripts, src)
	return nil
}

func (d *fakeDriver) PageHTML() (string, error) { return "<html></html>", nil }

func TestRun_NavigateAndType(t *testing.T) {
	d := newFakeDriver()
	d.addElement(locator.Locator{Method: locator.ByID, Value: "q"}, "input#q", "input")
	in := New(d, Options{})

	doc := []byte(`[
		{"target": "browser", "action": "go", "args": {"url": "https://example.com"}},
		{"target": "element", "action": "type", "args": {"locate_by": "id", "locate_value": "q", "text": "hello\n"}}
	]`)
	require.NoError(t, in.RunJSON(context.Background(), doc))

	assert.Equal(t, []string{"https://example.com"}, d.navigated)
	assert.Equal(t, "hello", d.typed["input#q"])
	assert.Equal(t, []string{"input#q"}, d.entered)

	require.NotNil(t, in.Session().LastElement())
	assert.Equal(t, "input#q", in.Session().LastElement().Describe())
	assert.Equal(t, locator.ByID, in.Session().LastMethod())
}

func TestRun_LiteralBackslashNewlineMarker(t *testing.T) {
	d := newFakeDriver()
	el := d.addElement(locator.Locator{Method: locator.ByID, Value: "q"}, "input#q", "input")
	in := New(d, Options{})

	err := in.ActOnElement(context.Background(), el, "", models.ElementType, &models.TypeArgs{Text: `world\n`})
	require.NoError(t, err)
	assert.Equal(t, "world", d.typed["input#q"])
	assert.Equal(t, []string{"input#q"}, d.entered)
}

func TestRun_LastElementReused(t *testing.T) {
	d := newFakeDriver()
	d.addElement(locator.Locator{Method: locator.ByID, Value: "q"}, "input#q", "input")
	in := New(d, Options{})

	doc := []byte(`[
		{"target": "element", "action": "type", "args": {"locate_by": "id", "locate_value": "q", "text": "hi"}},
		{"target": "element", "action": "click"}
	]`)
	require.NoError(t, in.RunJSON(context.Background(), doc))

	assert.Equal(t, []string{"input#q"}, d.clicked)
}

func TestRun_NavigationInvalidatesElementContext(t *testing.T) {
	d := newFakeDriver()
	d.addElement(locator.Locator{Method: locator.ByID, Value: "q"}, "input#q", "input")
	in := New(d, Options{})

	doc := []byte(`[
		{"target": "element", "action": "click", "args": {"locate_by": "id", "locate_value": "q"}},
		{"target": "browser", "action": "go", "args": {"url": "https://example.com"}},
		{"target": "element", "action": "click"}
	]`)
	err := in.RunJSON(context.Background(), doc)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoSuchElement)
	assert.Contains(t, err.Error(), "action 2")

	// The method preference survives the navigation.
	assert.Equal(t, locator.ByID, in.Session().LastMethod())
	assert.Nil(t, in.Session().LastLocator())
}

func TestRun_MethodDefaultsToLastUsed(t *testing.T) {
	d := newFakeDriver()
	d.addElement(locator.Locator{Method: locator.ByName, Value: "a"}, "input[name=a]", "input")
	d.addElement(locator.Locator{Method: locator.ByName, Value: "b"}, "input[name=b]", "input")
	in := New(d, Options{})

	doc := []byte(`[
		{"target": "element", "action": "click", "args": {"locate_by": "name", "locate_value": "a"}},
		{"target": "element", "action": "click", "args": {"locate_value": "b"}}
	]`)
	require.NoError(t, in.RunJSON(context.Background(), doc))

	assert.Equal(t, []string{"input[name=a]", "input[name=b]"}, d.clicked)
}

func TestLocateValueAloneNeedsARememberedMethod(t *testing.T) {
	d := newFakeDriver()
	d.addElement(locator.Locator{Method: locator.ByID, Value: "q"}, "input#q", "input")
	in := New(d, Options{})

	// No locate_by and no previous find: the bare value must not be
	// looked up under a guessed method.
	doc := []byte(`[{"target": "element", "action": "click", "args": {"locate_value": "q"}}]`)
	err := in.RunJSON(context.Background(), doc)
	assert.ErrorIs(t, err, ErrNoSuchElement)
	assert.Empty(t, d.clicked)
}

func TestFindElement_FailureStillUpdatesLocatorContext(t *testing.T) {
	d := newFakeDriver()
	in := New(d, Options{})

	_, err := in.FindElement(context.Background(), "id", "missing")
	assert.ErrorIs(t, err, ErrNoSuchElement)

	require.NotNil(t, in.Session().LastLocator())
	assert.Equal(t, "id=missing", in.Session().LastLocator().String())
	assert.Equal(t, locator.ByID, in.Session().LastMethod())
}

func TestSwitchTab_Next(t *testing.T) {
	d := newFakeDriver()
	d.windows = []string{"w0", "w1"}
	in := New(d, Options{})

	doc := []byte(`[{"target": "browser", "action": "switch_tab", "args": {"tab": "next"}}]`)
	require.NoError(t, in.RunJSON(context.Background(), doc))

	assert.Equal(t, "w1", d.currentWindow)
	assert.Equal(t, "w0", in.Session().LastWindow())

	// "next" again returns to the first window.
	require.NoError(t, in.RunJSON(context.Background(), doc))
	assert.Equal(t, "w0", d.currentWindow)
	assert.Equal(t, "w1", in.Session().LastWindow())
}

func TestSwitchTab_NextWithSingleWindowStaysPut(t *testing.T) {
	d := newFakeDriver()
	in := New(d, Options{})

	err := in.ActOnBrowser(context.Background(), models.BrowserSwitchTab, models.SwitchTabArgs{Tab: "next"})
	require.NoError(t, err)
	assert.Equal(t, "w0", d.currentWindow)
}

func TestSwitchTab_TitleSubstring(t *testing.T) {
	d := newFakeDriver()
	d.windows = []string{"w0", "w1", "w2"}
	d.titles["w1"] = "Order Confirmation"
	in := New(d, Options{})

	err := in.ActOnBrowser(context.Background(), models.BrowserSwitchTab, models.SwitchTabArgs{Tab: "Confirmation"})
	require.NoError(t, err)
	assert.Equal(t, "w1", d.currentWindow)
}

func TestSwitchTab_NoMatchRestoresPrevious(t *testing.T) {
	d := newFakeDriver()
	d.windows = []string{"w0", "w1"}
	in := New(d, Options{})

	err := in.ActOnBrowser(context.Background(), models.BrowserSwitchTab, models.SwitchTabArgs{Tab: "nonexistent"})
	require.NoError(t, err)
	assert.Equal(t, "w0", d.currentWindow)
}

func TestBrowserWait_ZeroBlocksUntilCancelled(t *testing.T) {
	d := newFakeDriver()
	in := New(d, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := in.ActOnBrowser(ctx, models.BrowserWait, models.BrowserWaitArgs{Duration: 0})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBrowserGo_MissingArgs(t *testing.T) {
	d := newFakeDriver()
	in := New(d, Options{})

	err := in.ActOnBrowser(context.Background(), models.BrowserGo, nil)
	assert.ErrorIs(t, err, ErrMissingArguments)

	err = in.ActOnBrowser(context.Background(), models.BrowserGo, models.SwitchTabArgs{Tab: "x"})
	assert.ErrorIs(t, err, models.ErrArgumentShapeMismatch)
}

func TestType_MissingArgs(t *testing.T) {
	d := newFakeDriver()
	el := d.addElement(locator.Locator{Method: locator.ByID, Value: "q"}, "input#q", "input")
	in := New(d, Options{})

	err := in.ActOnElement(context.Background(), el, "", models.ElementType, nil)
	assert.ErrorIs(t, err, ErrMissingArguments)

	err = in.ActOnElement(context.Background(), el, "", models.ElementType, &models.ChangeArgs{Value: "x"})
	assert.ErrorIs(t, err, models.ErrArgumentShapeMismatch)
}

func TestElementWait_Timeout(t *testing.T) {
	d := newFakeDriver()
	d.waitTimesOut = true
	in := New(d, Options{DefaultWait: time.Second})

	doc := []byte(`[
		{"target": "element", "action": "wait", "args": {"locate_by": "id", "locate_value": "slow", "duration": 1}}
	]`)
	err := in.RunJSON(context.Background(), doc)
	assert.ErrorIs(t, err, ErrElementWaitTimeout)
}

func TestElementWait_ConditionMet(t *testing.T) {
	d := newFakeDriver()
	d.addElement(locator.Locator{Method: locator.ByID, Value: "box"}, "div#box", "div")
	in := New(d, Options{})

	doc := []byte(`[
		{"target": "element", "action": "wait", "args": {"locate_by": "id", "locate_value": "box", "wait_for": "visible"}},
		{"target": "element", "action": "click"}
	]`)
	require.NoError(t, in.RunJSON(context.Background(), doc))
	assert.Equal(t, []string{"div#box"}, d.clicked)
}

func TestChange_SelectsOptionOnSelectOnly(t *testing.T) {
	d := newFakeDriver()
	sel := d.addElement(locator.Locator{Method: locator.ByID, Value: "country"}, "select#country", "select")
	div := d.addElement(locator.Locator{Method: locator.ByID, Value: "box"}, "div#box", "div")
	in := New(d, Options{})

	err := in.ActOnElement(context.Background(), sel, "", models.ElementChange, &models.ChangeArgs{Value: "DE"})
	require.NoError(t, err)
	assert.Equal(t, "DE", d.selected["select#country"])

	err = in.ActOnElement(context.Background(), div, "", models.ElementChange, &models.ChangeArgs{Value: "DE"})
	require.NoError(t, err)
	assert.NotContains(t, d.selected, "div#box")
}

func TestClick_InjectUsesScript(t *testing.T) {
	d := newFakeDriver()
	el := d.addElement(locator.Locator{Method: locator.ByID, Value: "btn"}, "button#btn", "button")
	in := New(d, Options{})

	err := in.ActOnElement(context.Background(), el, "", models.ElementClick, &models.ElementArgs{Inject: true})
	require.NoError(t, err)
	assert.Empty(t, d.clicked)
	require.Len(t, d.scripts, 1)
	assert.Contains(t, d.scripts[0], "this.click()")
}

func TestMoveTo_HoverAndInject(t *testing.T) {
	d := newFakeDriver()
	el := d.addElement(locator.Locator{Method: locator.ByID, Value: "menu"}, "li#menu", "li")
	in := New(d, Options{})

	require.NoError(t, in.ActOnElement(context.Background(), el, "", models.ElementMoveTo, nil))
	assert.Equal(t, []string{"li#menu"}, d.hovered)

	require.NoError(t, in.ActOnElement(context.Background(), el, "", models.ElementMoveTo, &models.ElementArgs{Inject: true}))
	require.Len(t, d.scripts, 1)
	assert.Contains(t, d.scripts[0], "scrollIntoView")
}

func TestSetAttribute_InterpolatesScript(t *testing.T) {
	d := newFakeDriver()
	el := d.addElement(locator.Locator{Method: locator.ByID, Value: "box"}, "div#box", "div")
	in := New(d, Options{})

	err := in.ActOnElement(context.Background(), el, "", models.ElementSetAttribute, &models.SetAttributeArgs{Attribute: "hidden", Value: "true"})
	require.NoError(t, err)
	require.Len(t, d.scripts, 1)
	assert.Contains(t, d.scripts[0], `setAttribute("hidden", "true")`)
}

func TestCloseWindow_SwitchesBack(t *testing.T) {
	d := newFakeDriver()
	d.windows = []string{"w0", "w1"}
	in := New(d, Options{})

	require.NoError(t, in.ActOnBrowser(context.Background(), models.BrowserSwitchTab, models.SwitchTabArgs{Tab: "next"}))
	require.Equal(t, "w1", d.currentWindow)

	require.NoError(t, in.CloseWindow())
	assert.Equal(t, "w0", d.currentWindow)
	assert.Equal(t, []string{"w0"}, d.windows)
}

func TestRun_ErrorNamesActionAndIndex(t *testing.T) {
	d := newFakeDriver()
	in := New(d, Options{})

	doc := []byte(`[{"target": "element", "action": "click", "args": {"locate_by": "id", "locate_value": "ghost"}}]`)
	err := in.RunJSON(context.Background(), doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "action 0 (click)")
	assert.ErrorIs(t, err, ErrNoSuchElement)
}
