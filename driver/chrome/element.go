package chrome

import (
	"context"

	"github.com/wirepair/gcd/gcdapi"
	"gitlab.com/blackboxtests/bbt"
	"gitlab.com/blackboxtests/driver"
)

// Element is a remote object reference to a DOM element in a Tab
type Element struct {
	tab      *Tab
	objectID string
}

func (e *Element) call(ctx context.Context, script string, byValue bool, args ...interface{}) (*gcdapi.RuntimeRemoteObject, error) {
	return e.tab.callOn(ctx, e.objectID, driver.ElementScript(script), byValue, args...)
}

func (e *Element) value(ctx context.Context, script string, args ...interface{}) (interface{}, error) {
	r, err := e.call(ctx, script, true, args...)
	if err != nil {
		return nil, err
	}
	return r.Value, nil
}

// Find descendants of this element
func (e *Element) Find(ctx context.Context, by *bbt.Locator) ([]bbt.Element, error) {
	return find(ctx, e.tab, e.objectID, by)
}

func find(ctx context.Context, t *Tab, rootID string, by *bbt.Locator) ([]bbt.Element, error) {
	q, err := by.Query()
	if err != nil {
		return nil, err
	}
	kind := "css"
	if q.Kind == bbt.QueryXPath {
		kind = "xpath"
	}
	r, err := t.callOn(ctx, rootID, driver.ElementScript(driver.ScriptQuery), false, kind, q.Expr)
	if err != nil {
		return nil, err
	}
	return t.elements(ctx, r.ObjectId)
}

// center scrolls the element into view and returns its midpoint in top level
// viewport coordinates
func (e *Element) center(ctx context.Context) (float64, float64, error) {
	v, err := e.value(ctx, driver.ScriptCenter)
	if err != nil {
		return 0, 0, err
	}
	x, y, err := driver.ToFloatPoint(v)
	if err != nil {
		return 0, 0, err
	}
	ox, oy, err := e.tab.frameOffset(ctx)
	if err != nil {
		return 0, 0, err
	}
	return x + ox, y + oy, nil
}

// Click the center of the element with the mouse
func (e *Element) Click(ctx context.Context) error {
	x, y, err := e.center(ctx)
	if err != nil {
		return err
	}
	return e.tab.click(ctx, x, y)
}

// Clear the element's value
func (e *Element) Clear(ctx context.Context) error {
	_, err := e.call(ctx, driver.ScriptClear, true)
	return err
}

// SendKeys focuses the element and types text
func (e *Element) SendKeys(ctx context.Context, text string) error {
	if _, err := e.call(ctx, "function () { this.focus(); }", true); err != nil {
		return err
	}
	return e.tab.sendKeys(text)
}

// Submit the element's form
func (e *Element) Submit(ctx context.Context) error {
	_, err := e.call(ctx, driver.ScriptSubmit, true)
	return err
}

// MoveTo moves the mouse over the element
func (e *Element) MoveTo(ctx context.Context) error {
	x, y, err := e.center(ctx)
	if err != nil {
		return err
	}
	return e.tab.moveMouse(x, y)
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
