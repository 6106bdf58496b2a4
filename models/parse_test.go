package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSON_Document(t *testing.T) {
	doc := []byte(`[
		{"target": "browser", "action": "go", "args": {"url": "https://example.com"}},
		{"target": "element", "action": "type", "args": {"locate_by": "id", "locate_value": "q", "text": "hello\n"}},
		{"target": "element", "action": "click"},
		{"target": "browser", "action": "wait", "args": {"duration": 3}}
	]`)

	actions, err := ParseJSON(doc)
	require.NoError(t, err)
	require.Len(t, actions, 4)

	assert.Equal(t, TargetBrowser, actions[0].Target)
	assert.Equal(t, BrowserGo, actions[0].Browser)
	assert.Equal(t, GoArgs{URL: "https://example.com"}, actions[0].Args)

	assert.Equal(t, TargetElement, actions[1].Target)
	assert.Equal(t, ElementType, actions[1].Element)
	typeArgs, ok := actions[1].Args.(*TypeArgs)
	require.True(t, ok)
	assert.Equal(t, "id", typeArgs.LocateBy)
	assert.Equal(t, "q", typeArgs.LocateValue)
	assert.Equal(t, "hello\n", typeArgs.Text)

	assert.Equal(t, ElementClick, actions[2].Element)
	assert.Nil(t, actions[2].Args)

	assert.Equal(t, BrowserWait, actions[3].Browser)
	assert.Equal(t, BrowserWaitArgs{Duration: 3}, actions[3].Args)
}

func TestParseYAML_Document(t *testing.T) {
	doc := []byte(`
- target: browser
  action: go
  args:
    url: https://example.com
- target: element
  action: set_attribute
  args:
    locate_by: css_selector
    locate_value: "#main"
    attribute: hidden
    value: "true"
`)

	actions, err := ParseYAML(doc)
	require.NoError(t, err)
	require.Len(t, actions, 2)

	setArgs, ok := actions[1].Args.(*SetAttributeArgs)
	require.True(t, ok)
	assert.Equal(t, "css_selector", setArgs.LocateBy)
	assert.Equal(t, "hidden", setArgs.Attribute)
	assert.Equal(t, "true", setArgs.Value)
}

func TestParse_CaseAndSpaceInsensitive(t *testing.T) {
	doc := []byte(`[{"target": "Browser", "action": "New Tab"}]`)
	actions, err := ParseJSON(doc)
	require.NoError(t, err)
	assert.Equal(t, BrowserNewTab, actions[0].Browser)
}

func TestParse_WaitBindsToTargetFamily(t *testing.T) {
	doc := []byte(`[
		{"target": "browser", "action": "wait", "args": {"duration": 1}},
		{"target": "element", "action": "wait", "args": {"locate_by": "id", "locate_value": "x", "duration": 1}}
	]`)
	actions, err := ParseJSON(doc)
	require.NoError(t, err)

	assert.Equal(t, BrowserWait, actions[0].Browser)
	assert.IsType(t, BrowserWaitArgs{}, actions[0].Args)

	assert.Equal(t, ElementWait, actions[1].Element)
	assert.IsType(t, &ElementArgs{}, actions[1].Args)
}

func TestParse_Failures(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"unknown target", `[{"target": "page", "action": "go"}]`, ErrUnknownTarget},
		{"unknown action", `[{"target": "browser", "action": "fly"}]`, ErrUnknownAction},
		{"action from wrong family", `[{"target": "browser", "action": "click"}]`, ErrUnknownAction},
		{"missing required arg", `[{"target": "browser", "action": "go", "args": {}}]`, ErrArgumentShapeMismatch},
		{"unexpected arg field", `[{"target": "browser", "action": "go", "args": {"url": "x", "tab": "y"}}]`, ErrArgumentShapeMismatch},
		{"unexpected record key", `[{"target": "browser", "action": "go", "extra": 1}]`, ErrArgumentShapeMismatch},
		{"wrong arg type", `[{"target": "browser", "action": "wait", "args": {"duration": "soon"}}]`, ErrArgumentShapeMismatch},
		{"fractional duration", `[{"target": "browser", "action": "wait", "args": {"duration": 1.5}}]`, ErrArgumentShapeMismatch},
		{"missing target", `[{"action": "go"}]`, ErrArgumentShapeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseJSON([]byte(tt.doc))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParse_ErrorNamesActionIndex(t *testing.T) {
	doc := []byte(`[
		{"target": "browser", "action": "go", "args": {"url": "x"}},
		{"target": "browser", "action": "fly"}
	]`)
	_, err := ParseJSON(doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "action 1")
}

func TestScript_Actions(t *testing.T) {
	script := &Script{
		Format:   FormatJSON,
		Document: []byte(`[{"target": "browser", "action": "new_tab"}]`),
	}
	actions, err := script.Actions()
	require.NoError(t, err)
	assert.Len(t, actions, 1)

	script.Format = "toml"
	_, err = script.Actions()
	assert.Error(t, err)
}
