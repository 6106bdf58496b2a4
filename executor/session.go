package executor

import (
	"github.com/browserscript/browserscript/driver"
	"github.com/browserscript/browserscript/locator"
)

// Session is the state threaded between successive actions within one
// interpreter run: the last located element, the locator and method
// that found it, and the window that was active before the most recent
// tab switch. A session belongs to exactly one interpreter and is
// never shared; actions run strictly sequentially, so no locking.
type Session struct {
	lastElement driver.ElementRef
	lastLocator *locator.Locator
	lastMethod  locator.Method
	lastWindow  string
}

func NewSession() *Session {
	return &Session{}
}

// RecordFind remembers how an element was found so later actions can
// omit their locator and operate on "the last element".
func (s *Session) RecordFind(method locator.Method, loc locator.Locator, element driver.ElementRef) {
	s.lastMethod = method
	s.lastLocator = &loc
	s.lastElement = element
}

// RecordNavigate clears the element context: navigation invalidates
// prior DOM references. The method preference survives navigations.
func (s *Session) RecordNavigate() {
	s.lastLocator = nil
	s.lastElement = nil
}

// RecordWindowSwitch remembers the window that was active immediately
// before a tab switch, enabling a later switch back.
func (s *Session) RecordWindowSwitch(previousHandle string) {
	s.lastWindow = previousHandle
}

func (s *Session) LastElement() driver.ElementRef { return s.lastElement }
func (s *Session) LastLocator() *locator.Locator  { return s.lastLocator }
func (s *Session) LastMethod() locator.Method     { return s.lastMethod }
func (s *Session) LastWindow() string             { return s.lastWindow }

// describeLast renders the element context for failure logs.
func (s *Session) describeLast() string {
	name := "<none>"
	if s.lastElement != nil {
		name = s.lastElement.Describe()
	}
	if s.lastLocator != nil {
		name += " " + s.lastLocator.String()
	}
	return name
}
