package chromium

import (
	"context"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
	"gitlab.com/blackboxtests/bbt"
	"gitlab.com/blackboxtests/driver"
)

const connected = "function () { return true; }"

// Element wraps a rod element of a window
type Element struct {
	window *window
	el     *rod.Element
}

func (e *Element) eval(ctx context.Context, fn string, args ...interface{}) (interface{}, error) {
	res, err := e.el.Context(ctx).Evaluate(rod.Eval(driver.GuardScript(fn), args...).This(e.el.Object))
	if err != nil {
		return nil, classify(err)
	}
	return res.Value.Val(), nil
}

func (e *Element) value(ctx context.Context, script string, args ...interface{}) (interface{}, error) {
	return e.eval(ctx, driver.Script(script), args...)
}

// Find descendants of this element
func (e *Element) Find(ctx context.Context, by *bbt.Locator) ([]bbt.Element, error) {
	q, err := by.Query()
	if err != nil {
		return nil, err
	}
	if _, err := e.eval(ctx, connected); err != nil {
		return nil, err
	}

	el := e.el.Context(ctx)
	var found rod.Elements
	if q.Kind == bbt.QueryXPath {
		found, err = el.ElementsX(q.Expr)
	} else {
		found, err = el.Elements(q.Expr)
	}
	if err != nil {
		return nil, classify(err)
	}
	return e.window.wrap(found), nil
}

// point scrolls the element into view and returns where a pointer would hit it, in
// top level coordinates. Covered elements fail as not interactable.
func (e *Element) point(ctx context.Context) (*proto.Point, error) {
	if _, err := e.eval(ctx, connected); err != nil {
		return nil, err
	}
	el := e.el.Context(ctx)
	if err := el.ScrollIntoView(); err != nil {
		return nil, classify(err)
	}
	pt, err := el.Interactable()
	if err != nil {
		return nil, classify(err)
	}
	return pt, nil
}

// Click the element with the mouse. A click that opens a dialog blocks until the
// dialog is handled, so it returns once the dialog is reported.
func (e *Element) Click(ctx context.Context) error {
	pt, err := e.point(ctx)
	if err != nil {
		return err
	}
	mouse := e.window.page.Context(ctx).Mouse
	if err := mouse.MoveTo(*pt); err != nil {
		return classify(err)
	}

	select {
	case <-e.window.dialogCh:
	default:
	}
	clicked := make(chan error, 1)
	go func() {
		clicked <- mouse.Click(proto.InputMouseButtonLeft, 1)
	}()

	select {
	case err := <-clicked:
		return classify(err)
	case <-e.window.dialogCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Clear the element's value
func (e *Element) Clear(ctx context.Context) error {
	_, err := e.value(ctx, driver.ScriptClear)
	return err
}

// SendKeys focuses the element and types text. \n, \t and \b are sent as key presses.
func (e *Element) SendKeys(ctx context.Context, text string) error {
	if _, err := e.eval(ctx, "function () { this.focus(); }"); err != nil {
		return err
	}

	page := e.window.page.Context(ctx)
	var pending []rune
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		err := page.InsertText(string(pending))
		pending = pending[:0]
		return classify(err)
	}
	for _, r := range text {
		var key input.Key
		switch r {
		case '\r', '\n':
			key = input.Enter
		case '\t':
			key = input.Tab
		case '\b':
			key = input.Backspace
		default:
			pending = append(pending, r)
			continue
		}
		if err := flush(); err != nil {
			return err
		}
		if err := page.Keyboard.Type(key); err != nil {
			return classify(err)
		}
	}
	return flush()
}

// Submit the element's form
func (e *Element) Submit(ctx context.Context) error {
	_, err := e.value(ctx, driver.ScriptSubmit)
	return err
}

// MoveTo moves the mouse over the element
func (e *Element) MoveTo(ctx context.Context) error {
	pt, err := e.point(ctx)
	if err != nil {
		return err
	}
	return classify(e.window.page.Context(ctx).Mouse.MoveTo(*pt))
}

// Text as rendered
func (e *Element) Text(ctx context.Context) (string, error) {
	v, err := e.value(ctx, driver.ScriptText)
	if err != nil {
		return "", err
	}
	return driver.ToString(v)
}

// Attribute returns nil when the attribute is absent
func (e *Element) Attribute(ctx context.Context, name string) (*string, error) {
	v, err := e.value(ctx, driver.ScriptAttribute, name)
	if err != nil {
		return nil, err
	}
	return driver.ToOptionalString(v)
}

func (e *Element) state(ctx context.Context) (*driver.ElementState, error) {
	v, err := e.value(ctx, driver.ScriptState)
	if err != nil {
		return nil, err
	}
	return driver.ToState(v)
}

// TagName in lower case
func (e *Element) TagName(ctx context.Context) (string, error) {
	s, err := e.state(ctx)
	if err != nil {
		return "", err
	}
	return s.Tag, nil
}

// Displayed by computed style and size
func (e *Element) Displayed(ctx context.Context) (bool, error) {
	v, err := e.value(ctx, driver.ScriptVisible)
	if err != nil {
		return false, err
	}
	return driver.ToBool(v)
}

// Enabled unless disabled
func (e *Element) Enabled(ctx context.Context) (bool, error) {
	s, err := e.state(ctx)
	if err != nil {
		return false, err
	}
	return s.Enabled, nil
}

// Selected for options, checkboxes and radios
func (e *Element) Selected(ctx context.Context) (bool, error) {
	s, err := e.state(ctx)
	if err != nil {
		return false, err
	}
	return s.Selected, nil
}

// Obscured when another element would receive a click at its center
func (e *Element) Obscured(ctx context.Context) (bool, error) {
	v, err := e.value(ctx, driver.ScriptObscured)
	if err != nil {
		return false, err
	}
	return driver.ToBool(v)
}

// Location of the top left corner in document coordinates
func (e *Element) Location(ctx context.Context) (bbt.Point, error) {
	v, err := e.value(ctx, driver.ScriptLocation)
	if err != nil {
		return bbt.Point{}, err
	}
	return driver.ToPoint(v)
}
