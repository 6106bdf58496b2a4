package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTarget(t *testing.T) {
	for _, name := range []string{"browser", "Browser", "BROWSER", " browser "} {
		target, err := ParseTarget(name)
		require.NoError(t, err, name)
		assert.Equal(t, TargetBrowser, target, name)
	}

	_, err := ParseTarget("page")
	assert.ErrorIs(t, err, ErrUnknownTarget)
}

func TestParseBrowserAction(t *testing.T) {
	for _, name := range []string{"new_tab", "New Tab", "NEW_TAB", "new tab"} {
		a, err := ParseBrowserAction(name)
		require.NoError(t, err, name)
		assert.Equal(t, BrowserNewTab, a, name)
	}

	_, err := ParseBrowserAction("click")
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestParseElementAction(t *testing.T) {
	tests := map[string]ElementAction{
		"click":          ElementClick,
		"Set Attribute":  ElementSetAttribute,
		"INSERT_TRUSTED": ElementInsertTrusted,
		"move to":        ElementMoveTo,
	}
	for name, want := range tests {
		a, err := ParseElementAction(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, a, name)
	}

	_, err := ParseElementAction("go")
	assert.ErrorIs(t, err, ErrUnknownAction)
}

// "wait" exists in both families; the target decides which one binds.
func TestWaitBindsPerTarget(t *testing.T) {
	browserWait, err := ParseBrowserAction("wait")
	require.NoError(t, err)
	assert.Equal(t, BrowserWait, browserWait)

	elementWait, err := ParseElementAction("wait")
	require.NoError(t, err)
	assert.Equal(t, ElementWait, elementWait)
}

func TestElementArgsBase(t *testing.T) {
	args := &TypeArgs{
		ElementArgs: ElementArgs{LocateBy: "id", LocateValue: "q"},
		Text:        "hello",
	}

	var generic ElementArguments = args
	base := generic.Base()
	assert.Equal(t, "id", base.LocateBy)
	assert.Equal(t, "q", base.LocateValue)
}

func TestActionName(t *testing.T) {
	a := Action{Target: TargetBrowser, Browser: BrowserGo}
	assert.Equal(t, "go", a.Name())

	a = Action{Target: TargetElement, Element: ElementClick}
	assert.Equal(t, "click", a.Name())
}
