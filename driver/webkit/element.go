package webkit

import (
	"context"
	"strings"

	"github.com/playwright-community/playwright-go"
	"gitlab.com/blackboxtests/bbt"
	"gitlab.com/blackboxtests/driver"
)

// Element is a playwright element handle in a window
type Element struct {
	d      *Driver
	window *window
	handle playwright.ElementHandle
}

func (e *Element) value(ctx context.Context, script string, args ...interface{}) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if args == nil {
		args = []interface{}{}
	}
	res, err := e.handle.Evaluate("(el, args) => ("+driver.ElementScript(script)+").apply(el, args)", args)
	return res, classify(err)
}

// Find descendants of this element
func (e *Element) Find(ctx context.Context, by *bbt.Locator) ([]bbt.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	selector, err := selectorFor(by)
	if err != nil {
		return nil, err
	}
	found, err := e.handle.QuerySelectorAll(selector)
	if err != nil {
		return nil, classify(err)
	}
	return e.window.wrap(e.d, found), nil
}

// Click waits at most one action timeout for the element to become actionable. A
// click that opens a dialog returns once the dialog is reported.
func (e *Element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-e.window.dialogCh:
	default:
	}

	clicked := make(chan error, 1)
	go func() {
		clicked <- e.handle.Click(playwright.ElementHandleClickOptions{Timeout: playwright.Float(e.d.timeout)})
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

// SendKeys types text into the element. \n, \t and \b are pressed as keys.
func (e *Element) SendKeys(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.handle.Focus(); err != nil {
		return classify(err)
	}

	keyboard := e.window.page.Keyboard()
	var pending strings.Builder
	flush := func() error {
		if pending.Len() == 0 {
			return nil
		}
		err := keyboard.InsertText(pending.String())
		pending.Reset()
		return classify(err)
	}
	for _, r := range text {
		var key string
		switch r {
		case '\r', '\n':
			key = "Enter"
		case '\t':
			key = "Tab"
		case '\b':
			key = "Backspace"
		default:
			pending.WriteRune(r)
			continue
		}
		if err := flush(); err != nil {
			return err
		}
		if err := keyboard.Press(key); err != nil {
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

// MoveTo hovers the element
func (e *Element) MoveTo(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return classify(e.handle.Hover(playwright.ElementHandleHoverOptions{Timeout: playwright.Float(e.d.timeout)}))
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
