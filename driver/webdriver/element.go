package webdriver

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/tebeka/selenium"
	"gitlab.com/blackboxtests/bbt"
	"gitlab.com/blackboxtests/driver"
)

// classify reads the W3C error code as well as the message of a selenium error
func classify(err error) error {
	if err == nil {
		return nil
	}
	var wdErr *selenium.Error
	if errors.As(err, &wdErr) {
		classified := driver.Classify(errors.New(wdErr.Err + ": " + wdErr.Message))
		if classified != nil && errors.Cause(classified) != classified {
			return classified
		}
	}
	return driver.Classify(err)
}

var keys = strings.NewReplacer(
	"\r\n", selenium.EnterKey,
	"\n", selenium.EnterKey,
	"\r", selenium.EnterKey,
	"\t", selenium.TabKey,
	"\b", selenium.BackspaceKey,
)

// Element is a WebDriver element reference
type Element struct {
	d  *Driver
	we selenium.WebElement
}

func (e *Element) script(ctx context.Context, name string, args ...interface{}) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := e.d.wd.ExecuteScript(driver.ArgumentsScript(name), append([]interface{}{e.we}, args...))
	return res, classify(err)
}

// Find descendants of this element
func (e *Element) Find(ctx context.Context, by *bbt.Locator) ([]bbt.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	using, value, err := query(by)
	if err != nil {
		return nil, err
	}
	found, err := e.we.FindElements(using, value)
	if err != nil {
		return nil, classify(err)
	}
	return e.d.wrap(found), nil
}

// Click natively, the endpoint scrolls the element into view
func (e *Element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return classify(e.we.Click())
}

// Clear the element's value
func (e *Element) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return classify(e.we.Clear())
}

// SendKeys types text, line breaks, tabs and backspaces become key presses
func (e *Element) SendKeys(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return classify(e.we.SendKeys(keys.Replace(text)))
}

// Submit the element's form
func (e *Element) Submit(ctx context.Context) error {
	_, err := e.script(ctx, driver.ScriptSubmit)
	return err
}

// MoveTo the element's top left corner
func (e *Element) MoveTo(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return classify(e.we.MoveTo(0, 0))
}

// Text as rendered
func (e *Element) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := e.we.Text()
	return strings.TrimSpace(text), classify(err)
}

// Attribute returns nil when the attribute is absent. Read through a script, the
// endpoint can not tell an absent attribute from an empty one.
func (e *Element) Attribute(ctx context.Context, name string) (*string, error) {
	v, err := e.script(ctx, driver.ScriptAttribute, name)
	if err != nil {
		return nil, err
	}
	return driver.ToOptionalString(v)
}

// TagName in lower case
func (e *Element) TagName(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	tag, err := e.we.TagName()
	return strings.ToLower(tag), classify(err)
}

// Displayed as the endpoint computes it
func (e *Element) Displayed(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	displayed, err := e.we.IsDisplayed()
	return displayed, classify(err)
}

// Enabled unless disabled
func (e *Element) Enabled(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	enabled, err := e.we.IsEnabled()
	return enabled, classify(err)
}

// Selected for options, checkboxes and radios
func (e *Element) Selected(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	selected, err := e.we.IsSelected()
	return selected, classify(err)
}

// Obscured when another element would receive a click at its center
func (e *Element) Obscured(ctx context.Context) (bool, error) {
	v, err := e.script(ctx, driver.ScriptObscured)
	if err != nil {
		return false, err
	}
	return driver.ToBool(v)
}

// Location of the top left corner in document coordinates
func (e *Element) Location(ctx context.Context) (bbt.Point, error) {
	if err := ctx.Err(); err != nil {
		return bbt.Point{}, err
	}
	p, err := e.we.Location()
	if err != nil {
		return bbt.Point{}, classify(err)
	}
	return bbt.Point{X: p.X, Y: p.Y}, nil
}
