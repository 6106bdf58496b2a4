package models

import (
	"github.com/browserscript/browserscript/locator"
	"github.com/pkg/errors"
)

// Parse-time failures. Run-time failures live in the executor package.
var (
	ErrUnknownTarget         = errors.New("unknown target")
	ErrUnknownAction         = errors.New("unknown action")
	ErrArgumentShapeMismatch = errors.New("arguments do not match action")
)

// Target selects which handler family processes an Action.
type Target string

const (
	TargetBrowser Target = "browser"
	TargetElement Target = "element"
)

// ParseTarget resolves a target name, case- and space-insensitively.
func ParseTarget(name string) (Target, error) {
	switch locator.Normalize(name) {
	case "browser":
		return TargetBrowser, nil
	case "element":
		return TargetElement, nil
	default:
		return "", errors.Wrap(ErrUnknownTarget, name)
	}
}

// BrowserAction is an action addressing the browser session as a whole.
type BrowserAction string

const (
	BrowserGo        BrowserAction = "go"
	BrowserNewTab    BrowserAction = "new_tab"
	BrowserSwitchTab BrowserAction = "switch_tab"
	BrowserWait      BrowserAction = "wait"
)

var browserActions = map[string]BrowserAction{
	"go":         BrowserGo,
	"new_tab":    BrowserNewTab,
	"switch_tab": BrowserSwitchTab,
	"wait":       BrowserWait,
}

// ParseBrowserAction resolves a browser action name. "new tab",
// "NEW_TAB" and "New_Tab" all resolve to the same value.
func ParseBrowserAction(name string) (BrowserAction, error) {
	a, ok := browserActions[locator.Normalize(name)]
	if !ok {
		return "", errors.Wrap(ErrUnknownAction, name)
	}
	return a, nil
}

// ElementAction is an action addressing a specific page element.
type ElementAction string

const (
	ElementChange        ElementAction = "change"
	ElementClick         ElementAction = "click"
	ElementDelete        ElementAction = "delete"
	ElementInsert        ElementAction = "insert"
	ElementInsertTrusted ElementAction = "insert_trusted"
	ElementMoveTo        ElementAction = "move_to"
	ElementSetAttribute  ElementAction = "set_attribute"
	ElementType          ElementAction = "type"
	ElementWait          ElementAction = "wait"
)

var elementActions = map[string]ElementAction{
	"change":         ElementChange,
	"click":          ElementClick,
	"delete":         ElementDelete,
	"insert":         ElementInsert,
	"insert_trusted": ElementInsertTrusted,
	"move_to":        ElementMoveTo,
	"set_attribute":  ElementSetAttribute,
	"type":           ElementType,
	"wait":           ElementWait,
}

// ParseElementAction resolves an element action name under the same
// normalization rule as ParseBrowserAction.
func ParseElementAction(name string) (ElementAction, error) {
	a, ok := elementActions[locator.Normalize(name)]
	if !ok {
		return "", errors.Wrap(ErrUnknownAction, name)
	}
	return a, nil
}

// ActionArgs is the tagged union of argument payloads. The concrete
// variant must match the action it is paired with; the parser enforces
// this via the action→shape table in parse.go.
type ActionArgs interface {
	isActionArgs()
}

// NewTabArgs is the empty-args variant for BrowserNewTab.
type NewTabArgs struct{}

// GoArgs carries the navigation URL for BrowserGo.
type GoArgs struct {
	URL string `json:"url" yaml:"url"`
}

// SwitchTabArgs carries the tab selector for BrowserSwitchTab: the
// literal "next", or a title-or-URL substring.
type SwitchTabArgs struct {
	Tab string `json:"tab" yaml:"tab"`
}

// BrowserWaitArgs carries the pause duration in seconds for
// BrowserWait. Duration 0 means block until cancelled; it is the
// sentinel for manual, interactive pauses.
type BrowserWaitArgs struct {
	Duration int `json:"duration" yaml:"duration"`
}

// ElementArgs is the base shared by every element action. It doubles
// as the empty-args variant for Click, Delete, MoveTo and Wait.
//
// Element is a programmatic escape hatch: callers constructing actions
// in code may pin the target element directly. It is never populated
// from a serialized document.
type ElementArgs struct {
	Element     any    `json:"-" yaml:"-"`
	LocateBy    string `json:"locate_by,omitempty" yaml:"locate_by,omitempty"`
	LocateValue string `json:"locate_value,omitempty" yaml:"locate_value,omitempty"`
	Wait        bool   `json:"wait,omitempty" yaml:"wait,omitempty"`
	WaitFor     string `json:"wait_for,omitempty" yaml:"wait_for,omitempty"`
	Duration    int    `json:"duration,omitempty" yaml:"duration,omitempty"`
	Inject      bool   `json:"inject,omitempty" yaml:"inject,omitempty"`
}

// ChangeArgs carries the option value for ElementChange.
type ChangeArgs struct {
	ElementArgs `yaml:",inline"`
	Value       string `json:"value" yaml:"value"`
}

// InsertArgs carries the HTML fragment for ElementInsert and
// ElementInsertTrusted.
type InsertArgs struct {
	ElementArgs `yaml:",inline"`
	HTML        string `json:"html" yaml:"html"`
}

// SetAttributeArgs carries the attribute name and value for
// ElementSetAttribute.
type SetAttributeArgs struct {
	ElementArgs `yaml:",inline"`
	Attribute   string `json:"attribute" yaml:"attribute"`
	Value       string `json:"value" yaml:"value"`
}

// TypeArgs carries the text for ElementType. A trailing newline marker
// (either a literal `\n` two-character sequence or a newline character)
// is stripped and followed by a return-key press.
type TypeArgs struct {
	ElementArgs `yaml:",inline"`
	Text        string `json:"text" yaml:"text"`
}

func (NewTabArgs) isActionArgs()        {}
func (GoArgs) isActionArgs()            {}
func (SwitchTabArgs) isActionArgs()     {}
func (BrowserWaitArgs) isActionArgs()   {}
func (*ElementArgs) isActionArgs()      {}
func (*ChangeArgs) isActionArgs()       {}
func (*InsertArgs) isActionArgs()       {}
func (*SetAttributeArgs) isActionArgs() {}
func (*TypeArgs) isActionArgs()         {}

// Base exposes the shared element fields; promotion through embedding
// makes every element-args variant satisfy ElementArguments.
func (a *ElementArgs) Base() *ElementArgs { return a }

// ElementArguments is implemented by every element-args variant.
type ElementArguments interface {
	ActionArgs
	Base() *ElementArgs
}

// Action is one declarative automation step. Exactly one of Browser or
// Element is set, matching Target. Args may be nil for argument-less
// actions; required-ness is checked when the action runs.
type Action struct {
	Target  Target
	Browser BrowserAction
	Element ElementAction
	Args    ActionArgs
}

// Name reports the resolved action name for logs and errors.
func (a Action) Name() string {
	if a.Target == TargetBrowser {
		return string(a.Browser)
	}
	return string(a.Element)
}
