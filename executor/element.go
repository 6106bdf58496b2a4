package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/browserscript/browserscript/driver"
	"github.com/browserscript/browserscript/locator"
	"github.com/browserscript/browserscript/models"
	"github.com/browserscript/browserscript/pkg/logger"
	"github.com/pkg/errors"
)

// ActOnElement performs an element-target action. The element can come
// from four places, checked in order: the element parameter, the Args
// escape hatch, a (locate_by, locate_value) lookup, the xpathSelector
// parameter, and finally the element remembered from the previous
// action. Run passes nil and "" so documents always resolve through
// the locator or the session.
func (in *Interpreter) ActOnElement(ctx context.Context, element driver.ElementRef, xpathSelector string, action models.ElementAction, args models.ActionArgs) error {
	var base *models.ElementArgs
	switch v := args.(type) {
	case nil:
		base = &models.ElementArgs{}
	case models.ElementArguments:
		base = v.Base()
	default:
		return errors.Wrap(models.ErrArgumentShapeMismatch, string(action))
	}

	if element == nil {
		if ref, ok := base.Element.(driver.ElementRef); ok {
			element = ref
		}
	}

	// Wait phase. Either the action itself is a wait, or the action
	// asked to wait before acting.
	if action == models.ElementWait || base.Wait {
		cond := locator.ConditionPresent
		if base.WaitFor != "" {
			c, err := locator.ParseCondition(base.WaitFor)
			if err != nil {
				return err
			}
			cond = c
		}
		duration := in.opts.DefaultWait
		if base.Duration > 0 {
			duration = time.Duration(base.Duration) * time.Second
		}
		el, err := in.WaitForElement(ctx, duration, cond, base.LocateBy, base.LocateValue)
		if err != nil {
			return err
		}
		if el != nil {
			element = el
		}
		if action == models.ElementWait {
			return nil
		}
	}

	// Locate phase. A bare locate_value is only actionable when a
	// method is named or one is remembered from a previous find.
	if element == nil && base.LocateValue != "" && (base.LocateBy != "" || in.session.lastMethod != "") {
		el, err := in.FindElement(ctx, base.LocateBy, base.LocateValue)
		if err != nil {
			return err
		}
		element = el
	}
	if element == nil && xpathSelector != "" {
		el, err := in.FindElement(ctx, string(locator.ByXPath), xpathSelector)
		if err != nil {
			return err
		}
		element = el
	}
	if element == nil {
		element = in.session.lastElement
	}
	if element == nil {
		return in.exceptionWait(ctx, errors.Wrap(ErrNoSuchElement, string(action)))
	}
	in.session.lastElement = element

	in.logEffect(ctx, element, action, args)
	return in.performEffect(ctx, element, action, args, base)
}

// FindElement locates one element. An empty method falls back to the
// method of the previous find, then to id. The locator context updates
// before the lookup, so a failed find still changes what a later
// locator-less action refers to. An empty value finds nothing and is
// not an error.
func (in *Interpreter) FindElement(ctx context.Context, methodName, value string) (driver.ElementRef, error) {
	if value == "" {
		logger.Warn(ctx, "Empty locate value, nothing to find")
		return nil, nil
	}
	method := in.session.lastMethod
	if methodName != "" {
		m, err := locator.ParseMethod(methodName)
		if err != nil {
			return nil, err
		}
		method = m
	}
	if method == "" {
		method = locator.ByID
	}
	loc := locator.Resolve(method, value, "")
	in.session.lastMethod = method
	in.session.lastLocator = &loc

	el, err := in.driver.FindElement(loc)
	if err != nil {
		if errors.Is(err, driver.ErrNotFound) {
			return nil, in.exceptionWait(ctx, errors.Wrap(ErrNoSuchElement, loc.String()))
		}
		return nil, in.exceptionWait(ctx, err)
	}
	in.session.RecordFind(method, loc, el)
	logger.Debug(ctx, "Found element %s by %s", el.Describe(), loc)
	return el, nil
}

// WaitForElement blocks until cond holds for the located element, up
// to duration. With no method and value, the wait re-checks the
// locator of the previous find. A successful invisible wait returns
// (nil, nil): there is no element to hand back.
func (in *Interpreter) WaitForElement(ctx context.Context, duration time.Duration, cond locator.Condition, methodName, value string) (driver.ElementRef, error) {
	var loc locator.Locator
	method := in.session.lastMethod
	if methodName != "" {
		m, err := locator.ParseMethod(methodName)
		if err != nil {
			return nil, err
		}
		method = m
	}
	if method == "" {
		method = locator.ByID
	}
	switch {
	case value != "":
		loc = locator.Resolve(method, value, "")
		in.session.lastMethod = method
		in.session.lastLocator = &loc
	case in.session.lastLocator != nil:
		loc = *in.session.lastLocator
	default:
		return nil, in.exceptionWait(ctx, errors.Wrap(ErrNoSuchElement, "no locator to wait on"))
	}

	logger.Debug(ctx, "Waiting up to %s for %s to be %s", duration, loc, cond)
	el, err := in.driver.WaitUntil(ctx, loc, cond, duration)
	if err != nil {
		if errors.Is(err, driver.ErrWaitTimeout) {
			return nil, in.exceptionWait(ctx, errors.Wrapf(ErrElementWaitTimeout, "%s not %s after %s", loc, cond, duration))
		}
		return nil, in.exceptionWait(ctx, err)
	}
	if el != nil {
		in.session.RecordFind(loc.Method, loc, el)
	}
	return el, nil
}

// performEffect applies the action to a resolved element. Runtime
// failures pass through the exception-wait policy.
func (in *Interpreter) performEffect(ctx context.Context, element driver.ElementRef, action models.ElementAction, args models.ActionArgs, base *models.ElementArgs) error {
	var err error
	switch action {
	case models.ElementChange:
		changeArgs, ok := args.(*models.ChangeArgs)
		if !ok {
			return elementArgsError(action, args)
		}
		err = in.changeElement(ctx, element, changeArgs.Value)

	case models.ElementClick:
		err = in.clickElement(ctx, element, base.Inject)

	case models.ElementDelete:
		err = in.driver.ExecuteScript(`() => { this.parentNode.removeChild(this); }`, element)

	case models.ElementInsert:
		insertArgs, ok := args.(*models.InsertArgs)
		if !ok {
			return elementArgsError(action, args)
		}
		src := fmt.Sprintf(`() => { this.innerHTML = "%s"; }`, insertArgs.HTML)
		err = in.driver.ExecuteScript(src, element)

	case models.ElementInsertTrusted:
		insertArgs, ok := args.(*models.InsertArgs)
		if !ok {
			return elementArgsError(action, args)
		}
		err = in.driver.ExecuteScript(trustedInsertScript(insertArgs.HTML), element)

	case models.ElementMoveTo:
		if base.Inject {
			err = in.driver.ExecuteScript(`() => { this.scrollIntoView({block: "center"}); this.focus(); }`, element)
		} else {
			err = in.driver.Hover(element)
		}

	case models.ElementSetAttribute:
		setArgs, ok := args.(*models.SetAttributeArgs)
		if !ok {
			return elementArgsError(action, args)
		}
		src := fmt.Sprintf(`() => { this.setAttribute("%s", "%s"); }`, setArgs.Attribute, setArgs.Value)
		err = in.driver.ExecuteScript(src, element)

	case models.ElementType:
		typeArgs, ok := args.(*models.TypeArgs)
		if !ok {
			return elementArgsError(action, args)
		}
		err = in.typeIntoElement(element, typeArgs.Text, base.Inject)

	case models.ElementWait:
		// Already satisfied by the wait phase.
		return nil

	default:
		return errors.Wrap(models.ErrUnknownAction, string(action))
	}
	if err != nil {
		return in.exceptionWait(ctx, err)
	}
	return nil
}

// changeElement selects an option on a select element. On anything
// else it does nothing: the action only models picking a dropdown
// value.
func (in *Interpreter) changeElement(ctx context.Context, element driver.ElementRef, value string) error {
	tag, err := in.driver.TagName(element)
	if err != nil {
		return err
	}
	if strings.ToLower(tag) != "select" {
		logger.Debug(ctx, "Change on <%s> ignored, only select is supported", tag)
		return nil
	}
	return in.driver.SelectOption(element, value)
}

// clickElement re-checks clickability for one second before clicking,
// so a click that immediately follows a find does not race the page
// settling.
func (in *Interpreter) clickElement(ctx context.Context, element driver.ElementRef, inject bool) error {
	if loc := in.session.lastLocator; loc != nil {
		el, err := in.driver.WaitUntil(ctx, *loc, locator.ConditionClickable, time.Second)
		if err != nil && !errors.Is(err, driver.ErrWaitTimeout) {
			return err
		}
		if el != nil {
			element = el
			in.session.lastElement = el
		}
	}
	if inject {
		return in.driver.ExecuteScript(`() => { this.click(); }`, element)
	}
	return in.driver.Click(element)
}

// typeIntoElement sends text to an element. A trailing newline marker,
// either the two-character sequence backslash-n or an actual newline,
// is stripped and replaced by a return-key press. Inject mode assigns
// the value directly in page context and never presses return.
func (in *Interpreter) typeIntoElement(element driver.ElementRef, text string, inject bool) error {
	if inject {
		return in.driver.ExecuteScript(fmt.Sprintf(`() => { this.value = "%s"; }`, text), element)
	}
	pressEnter := false
	if strings.HasSuffix(text, `\n`) {
		text = strings.TrimSuffix(text, `\n`)
		pressEnter = true
	} else if strings.HasSuffix(text, "\n") {
		text = strings.TrimSuffix(text, "\n")
		pressEnter = true
	}
	if err := in.driver.SendKeys(element, text); err != nil {
		return err
	}
	if pressEnter {
		return in.driver.PressEnter(element)
	}
	return nil
}

// logEffect records the action about to run. Text typed into password
// fields is masked.
func (in *Interpreter) logEffect(ctx context.Context, element driver.ElementRef, action models.ElementAction, args models.ActionArgs) {
	if typeArgs, ok := args.(*models.TypeArgs); ok && action == models.ElementType {
		text := typeArgs.Text
		if in.isPasswordField(element) {
			text = strings.Repeat("*", len(text))
		}
		logger.Debug(ctx, "Action %s %q on %s", action, text, element.Describe())
		return
	}
	logger.Debug(ctx, "Action %s on %s", action, element.Describe())
}

// isPasswordField guesses whether an element holds a secret, from its
// input type or its identifier.
func (in *Interpreter) isPasswordField(element driver.ElementRef) bool {
	if t, err := in.driver.Attribute(element, "type"); err == nil && strings.EqualFold(t, "password") {
		return true
	}
	name := strings.ToLower(element.Describe())
	for _, hint := range []string{"password", "passwd", "pwd"} {
		if strings.Contains(name, hint) {
			return true
		}
	}
	return false
}

// elementArgsError distinguishes "no args at all" from "args of the
// wrong variant" for actions that require arguments.
func elementArgsError(action models.ElementAction, args models.ActionArgs) error {
	if args == nil {
		return errors.Wrap(ErrMissingArguments, string(action))
	}
	return errors.Wrap(models.ErrArgumentShapeMismatch, string(action))
}

// trustedInsertScript appends markup through a Trusted Types policy,
// for pages whose CSP blocks plain innerHTML assignment. Unlike
// Insert, the fragment lands in a new child instead of replacing the
// element's content.
func trustedInsertScript(html string) string {
	return fmt.Sprintf(`() => {
		let markup = "%s";
		if (window.trustedTypes && window.trustedTypes.createPolicy) {
			const policy = window.trustedTypes.createPolicy("inserter", { createHTML: (s) => s });
			markup = policy.createHTML(markup);
		}
		const container = document.createElement("div");
		container.innerHTML = markup;
		this.appendChild(container);
	}`, html)
}
