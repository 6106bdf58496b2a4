package models

import (
	"encoding/json"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ParseJSON parses a JSON action document: an array of records with
// "target", "action" and an optional "args" mapping.
func ParseJSON(data []byte) ([]Action, error) {
	var records []map[string]any
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, errors.Wrap(err, "decode action document")
	}
	return ParseActions(records)
}

// ParseYAML parses a YAML action document of the same shape.
func ParseYAML(data []byte) ([]Action, error) {
	var records []map[string]any
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, errors.Wrap(err, "decode action document")
	}
	return ParseActions(records)
}

// ParseActions validates and shapes a sequence of untyped records into
// Actions, order preserved. It is a pure transformation: any failure
// aborts the whole batch before anything runs.
func ParseActions(records []map[string]any) ([]Action, error) {
	actions := make([]Action, 0, len(records))
	for i, record := range records {
		action, err := parseAction(record)
		if err != nil {
			return nil, errors.Wrapf(err, "action %d", i)
		}
		actions = append(actions, action)
	}
	return actions, nil
}

func parseAction(record map[string]any) (Action, error) {
	targetText, err := requireString(record, "target")
	if err != nil {
		return Action{}, err
	}
	target, err := ParseTarget(targetText)
	if err != nil {
		return Action{}, err
	}

	actionText, err := requireString(record, "action")
	if err != nil {
		return Action{}, err
	}

	for key := range record {
		switch key {
		case "target", "action", "args":
		default:
			return Action{}, errors.Wrapf(ErrArgumentShapeMismatch, "unexpected key %q", key)
		}
	}

	var argsMap map[string]any
	if raw, ok := record["args"]; ok && raw != nil {
		argsMap, ok = toStringMap(raw)
		if !ok {
			return Action{}, errors.Wrap(ErrArgumentShapeMismatch, "args is not a mapping")
		}
	}

	action := Action{Target: target}

	// The action name is resolved within the target's enum family;
	// "wait" exists in both families and must bind to the right one.
	switch target {
	case TargetBrowser:
		browserAction, err := ParseBrowserAction(actionText)
		if err != nil {
			return Action{}, err
		}
		action.Browser = browserAction
		if argsMap != nil {
			args, err := buildBrowserArgs(browserAction, argsMap)
			if err != nil {
				return Action{}, err
			}
			action.Args = args
		}
	case TargetElement:
		elementAction, err := ParseElementAction(actionText)
		if err != nil {
			return Action{}, err
		}
		action.Element = elementAction
		if argsMap != nil {
			args, err := buildElementArgs(elementAction, argsMap)
			if err != nil {
				return Action{}, err
			}
			action.Args = args
		}
	}

	return action, nil
}

// buildBrowserArgs constructs the args variant dictated by the action.
func buildBrowserArgs(action BrowserAction, m map[string]any) (ActionArgs, error) {
	f := newFieldSet(m)
	switch action {
	case BrowserGo:
		url, err := f.requiredString("url")
		if err != nil {
			return nil, err
		}
		return GoArgs{URL: url}, f.done()
	case BrowserNewTab:
		return NewTabArgs{}, f.done()
	case BrowserSwitchTab:
		tab, err := f.requiredString("tab")
		if err != nil {
			return nil, err
		}
		return SwitchTabArgs{Tab: tab}, f.done()
	case BrowserWait:
		duration, err := f.requiredInt("duration")
		if err != nil {
			return nil, err
		}
		return BrowserWaitArgs{Duration: duration}, f.done()
	}
	return nil, errors.Wrap(ErrUnknownAction, string(action))
}

// buildElementArgs constructs the args variant dictated by the action.
// Every element action accepts the shared base fields.
func buildElementArgs(action ElementAction, m map[string]any) (ActionArgs, error) {
	f := newFieldSet(m)
	base, err := elementBase(f)
	if err != nil {
		return nil, err
	}

	switch action {
	case ElementChange:
		value, err := f.optionalString("value")
		if err != nil {
			return nil, err
		}
		return &ChangeArgs{ElementArgs: base, Value: value}, f.done()
	case ElementInsert, ElementInsertTrusted:
		html, err := f.optionalString("html")
		if err != nil {
			return nil, err
		}
		return &InsertArgs{ElementArgs: base, HTML: html}, f.done()
	case ElementSetAttribute:
		attribute, err := f.optionalString("attribute")
		if err != nil {
			return nil, err
		}
		value, err := f.optionalString("value")
		if err != nil {
			return nil, err
		}
		return &SetAttributeArgs{ElementArgs: base, Attribute: attribute, Value: value}, f.done()
	case ElementType:
		text, err := f.optionalString("text")
		if err != nil {
			return nil, err
		}
		return &TypeArgs{ElementArgs: base, Text: text}, f.done()
	case ElementClick, ElementDelete, ElementMoveTo, ElementWait:
		return &base, f.done()
	}
	return nil, errors.Wrap(ErrUnknownAction, string(action))
}

func elementBase(f *fieldSet) (ElementArgs, error) {
	var base ElementArgs
	var err error
	if base.LocateBy, err = f.optionalString("locate_by"); err != nil {
		return base, err
	}
	if base.LocateValue, err = f.optionalString("locate_value"); err != nil {
		return base, err
	}
	if base.Wait, err = f.optionalBool("wait"); err != nil {
		return base, err
	}
	if base.WaitFor, err = f.optionalString("wait_for"); err != nil {
		return base, err
	}
	if base.Duration, err = f.optionalInt("duration"); err != nil {
		return base, err
	}
	if base.Inject, err = f.optionalBool("inject"); err != nil {
		return base, err
	}
	return base, nil
}

// fieldSet tracks which keys of an args mapping have been consumed, so
// leftovers surface as shape mismatches instead of being dropped.
type fieldSet struct {
	m    map[string]any
	seen map[string]bool
}

func newFieldSet(m map[string]any) *fieldSet {
	return &fieldSet{m: m, seen: make(map[string]bool, len(m))}
}

func (f *fieldSet) done() error {
	for key := range f.m {
		if !f.seen[key] {
			return errors.Wrapf(ErrArgumentShapeMismatch, "unexpected field %q", key)
		}
	}
	return nil
}

func (f *fieldSet) requiredString(key string) (string, error) {
	f.seen[key] = true
	raw, ok := f.m[key]
	if !ok {
		return "", errors.Wrapf(ErrArgumentShapeMismatch, "missing required field %q", key)
	}
	s, ok := raw.(string)
	if !ok {
		return "", errors.Wrapf(ErrArgumentShapeMismatch, "field %q is not a string", key)
	}
	return s, nil
}

func (f *fieldSet) optionalString(key string) (string, error) {
	f.seen[key] = true
	raw, ok := f.m[key]
	if !ok || raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", errors.Wrapf(ErrArgumentShapeMismatch, "field %q is not a string", key)
	}
	return s, nil
}

func (f *fieldSet) requiredInt(key string) (int, error) {
	f.seen[key] = true
	raw, ok := f.m[key]
	if !ok {
		return 0, errors.Wrapf(ErrArgumentShapeMismatch, "missing required field %q", key)
	}
	return asInt(key, raw)
}

func (f *fieldSet) optionalInt(key string) (int, error) {
	f.seen[key] = true
	raw, ok := f.m[key]
	if !ok || raw == nil {
		return 0, nil
	}
	return asInt(key, raw)
}

func (f *fieldSet) optionalBool(key string) (bool, error) {
	f.seen[key] = true
	raw, ok := f.m[key]
	if !ok || raw == nil {
		return false, nil
	}
	b, ok := raw.(bool)
	if !ok {
		return false, errors.Wrapf(ErrArgumentShapeMismatch, "field %q is not a boolean", key)
	}
	return b, nil
}

// asInt accepts the integer shapes the JSON and YAML decoders produce.
func asInt(key string, raw any) (int, error) {
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != float64(int(v)) {
			return 0, errors.Wrapf(ErrArgumentShapeMismatch, "field %q is not an integer", key)
		}
		return int(v), nil
	default:
		return 0, errors.Wrapf(ErrArgumentShapeMismatch, "field %q is not an integer", key)
	}
}

func requireString(record map[string]any, key string) (string, error) {
	raw, ok := record[key]
	if !ok {
		return "", errors.Wrapf(ErrArgumentShapeMismatch, "missing %q", key)
	}
	s, ok := raw.(string)
	if !ok {
		return "", errors.Wrapf(ErrArgumentShapeMismatch, "%q is not a string", key)
	}
	return s, nil
}

// toStringMap normalizes the mapping types the YAML and JSON decoders
// can produce for a nested object.
func toStringMap(raw any) (map[string]any, bool) {
	switch m := raw.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, v := range m {
			key, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[key] = v
		}
		return out, true
	default:
		return nil, false
	}
}
