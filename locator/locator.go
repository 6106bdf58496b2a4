// Package locator turns (method, value) pairs into driver-level
// locators, including the text-matching shorthands that compile down
// to XPath expressions.
package locator

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Method identifies how an element is searched for.
type Method string

const (
	ByID              Method = "id"
	ByName            Method = "name"
	ByClassName       Method = "class_name"
	ByCSSSelector     Method = "css_selector"
	ByXPath           Method = "xpath"
	ByLinkText        Method = "link_text"
	ByPartialLinkText Method = "partial_link_text"
	ByTagName         Method = "tag_name"

	// Convenience shorthands, compiled to XPath by Resolve.
	ByExactText         Method = "exact_text"
	ByStrippedExactText Method = "stripped_exact_text"
	ByText              Method = "text"
)

var methods = map[string]Method{
	"id":                  ByID,
	"name":                ByName,
	"class_name":          ByClassName,
	"css_selector":        ByCSSSelector,
	"xpath":               ByXPath,
	"link_text":           ByLinkText,
	"partial_link_text":   ByPartialLinkText,
	"tag_name":            ByTagName,
	"exact_text":          ByExactText,
	"stripped_exact_text": ByStrippedExactText,
	"text":                ByText,
}

// ErrUnknownMethod reports a search method outside the supported set.
var ErrUnknownMethod = errors.New("unknown locator method")

// Normalize lower-cases a name and replaces spaces with underscores,
// so "Class Name", "CLASS_NAME" and "class name" are all equivalent.
func Normalize(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

// ParseMethod resolves a method name, case- and space-insensitively.
func ParseMethod(name string) (Method, error) {
	m, ok := methods[Normalize(name)]
	if !ok {
		return "", errors.Wrap(ErrUnknownMethod, name)
	}
	return m, nil
}

// Locator is a concrete (method, value) pair expressed only in terms
// of the driver's native locating methods; the shorthand methods never
// survive Resolve.
type Locator struct {
	Method Method `json:"method"`
	Value  string `json:"value"`
}

func (l Locator) String() string {
	return fmt.Sprintf("%s=%s", l.Method, l.Value)
}

// Resolve builds a Locator from a search method and value. The
// shorthand methods compile into an XPath over elementType ("*" when
// empty, meaning any tag). The value is interpolated as-is: callers
// are responsible for avoiding characters that break the XPath string
// literal.
func Resolve(method Method, value, elementType string) Locator {
	if elementType == "" {
		elementType = "*"
	}
	switch method {
	case ByExactText:
		return Locator{Method: ByXPath, Value: fmt.Sprintf("//%s[text() = '%s']", elementType, value)}
	case ByStrippedExactText:
		return Locator{Method: ByXPath, Value: fmt.Sprintf("//%s[normalize-space(text()) = '%s']", elementType, value)}
	case ByText:
		return Locator{Method: ByXPath, Value: fmt.Sprintf("//%s[contains(text(), '%s')]", elementType, value)}
	default:
		return Locator{Method: method, Value: value}
	}
}

// Condition is a wait condition the driver can evaluate for a locator.
type Condition string

const (
	// ConditionPresent waits for the element to exist in the DOM.
	// This is the default wait condition.
	ConditionPresent Condition = "present"
	// ConditionVisible waits for the element to be rendered.
	ConditionVisible Condition = "visible"
	// ConditionInvisible waits for the element to be hidden or gone.
	ConditionInvisible Condition = "invisible"
	// ConditionClickable waits for the element to accept input.
	ConditionClickable Condition = "clickable"
	// ConditionStable waits for the element to stop moving.
	ConditionStable Condition = "stable"
)

var conditions = map[string]Condition{
	"present":   ConditionPresent,
	"visible":   ConditionVisible,
	"invisible": ConditionInvisible,
	"clickable": ConditionClickable,
	"stable":    ConditionStable,
}

// ErrUnknownCondition reports a wait condition outside the supported set.
var ErrUnknownCondition = errors.New("unknown wait condition")

// ParseCondition resolves a condition name, case- and space-insensitively.
func ParseCondition(name string) (Condition, error) {
	c, ok := conditions[Normalize(name)]
	if !ok {
		return "", errors.Wrap(ErrUnknownCondition, name)
	}
	return c, nil
}
