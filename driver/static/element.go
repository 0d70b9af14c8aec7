package static

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"gitlab.com/blackboxtests/bbt"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Element is a node of a loaded document. It goes stale when the document is left
// or the node is removed from it.
type Element struct {
	d    *Driver
	w    *window
	doc  *document
	node *html.Node
}

// live locks the driver for the duration of an element operation
func (e *Element) live(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.d.lock.Lock()
	if e.d.closed {
		e.d.lock.Unlock()
		return nil, errors.Wrap(bbt.ErrSessionClosed, "driver closed")
	}
	if !e.doc.attached(e.node) {
		e.d.lock.Unlock()
		return nil, errors.Wrap(bbt.ErrStaleElement, "element is no longer attached to the document")
	}
	return e.d.lock.Unlock, nil
}

// Find descendants of this element
func (e *Element) Find(ctx context.Context, by *bbt.Locator) ([]bbt.Element, error) {
	unlock, err := e.live(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()
	found, err := query(e.node, by)
	if err != nil {
		return nil, err
	}
	return e.d.wrap(e.w, e.doc, found), nil
}

// Click runs the click handler and the default action. Disabled controls ignore it.
func (e *Element) Click(ctx context.Context) error {
	unlock, err := e.live(ctx)
	if err != nil {
		return err
	}
	defer unlock()
	if !displayed(e.node) {
		return errors.Wrap(bbt.ErrNotInteractable, "element is not displayed")
	}
	if !enabled(e.node) {
		return nil
	}
	return e.d.activate(ctx, e.w, e.doc, e.node)
}

// Clear the value of an editable control
func (e *Element) Clear(ctx context.Context) error {
	unlock, err := e.live(ctx)
	if err != nil {
		return err
	}
	defer unlock()
	if editable(e.node) {
		setValue(e.node, "")
	}
	return nil
}

// SendKeys appends text to the value. \b deletes the last character, \n in an
// input submits its form, \t is ignored.
func (e *Element) SendKeys(ctx context.Context, text string) error {
	unlock, err := e.live(ctx)
	if err != nil {
		return err
	}
	defer unlock()
	if !displayed(e.node) || !editable(e.node) || !enabled(e.node) {
		return errors.Wrap(bbt.ErrNotInteractable, "element can not take keyboard input")
	}

	v, _ := value(e.node)
	buf := []rune(v)
	for _, r := range text {
		switch r {
		case '\b':
			if len(buf) > 0 {
				buf = buf[:len(buf)-1]
			}
		case '\t':
		case '\r', '\n':
			if e.node.DataAtom == atom.Textarea {
				buf = append(buf, '\n')
				continue
			}
			setValue(e.node, string(buf))
			if form := formOf(e.doc, e.node); form != nil {
				if err := e.d.submit(ctx, e.w, e.doc, form, nil); err != nil {
					return err
				}
				return e.d.settle(ctx, e.w)
			}
		default:
			buf = append(buf, r)
		}
	}
	setValue(e.node, string(buf))
	return nil
}

// Submit the element's form, or the element itself when it is a form
func (e *Element) Submit(ctx context.Context) error {
	unlock, err := e.live(ctx)
	if err != nil {
		return err
	}
	defer unlock()
	form := formOf(e.doc, e.node)
	if e.node.DataAtom == atom.Form {
		form = e.node
	}
	if form == nil {
		return errors.New("element is not in a form")
	}
	if err := e.d.submit(ctx, e.w, e.doc, form, nil); err != nil {
		return err
	}
	return e.d.settle(ctx, e.w)
}

// MoveTo has nothing to hover, it only checks the element is still there
func (e *Element) MoveTo(ctx context.Context) error {
	unlock, err := e.live(ctx)
	if err != nil {
		return err
	}
	unlock()
	return nil
}

// Text of the displayed descendants
func (e *Element) Text(ctx context.Context) (string, error) {
	unlock, err := e.live(ctx)
	if err != nil {
		return "", err
	}
	defer unlock()
	return text(e.node), nil
}

// Attribute returns the live value, checked and selected state of form controls and
// the markup attribute for everything else
func (e *Element) Attribute(ctx context.Context, name string) (*string, error) {
	unlock, err := e.live(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	switch strings.ToLower(name) {
	case "value":
		if v, ok := value(e.node); ok {
			return &v, nil
		}
	case "checked", "selected":
		if e.node.DataAtom == atom.Option || inputType(e.node) == "checkbox" || inputType(e.node) == "radio" {
			if !selected(e.node) {
				return nil, nil
			}
			v := "true"
			return &v, nil
		}
	}
	if v, ok := attr(e.node, name); ok {
		return &v, nil
	}
	return nil, nil
}

// TagName in lower case
func (e *Element) TagName(ctx context.Context) (string, error) {
	unlock, err := e.live(ctx)
	if err != nil {
		return "", err
	}
	defer unlock()
	return strings.ToLower(e.node.Data), nil
}

// Displayed unless hidden by markup or inline style on the element or an ancestor
func (e *Element) Displayed(ctx context.Context) (bool, error) {
	unlock, err := e.live(ctx)
	if err != nil {
		return false, err
	}
	defer unlock()
	return displayed(e.node), nil
}

// Enabled unless disabled
func (e *Element) Enabled(ctx context.Context) (bool, error) {
	unlock, err := e.live(ctx)
	if err != nil {
		return false, err
	}
	defer unlock()
	return enabled(e.node), nil
}

// Selected for options, checkboxes and radios
func (e *Element) Selected(ctx context.Context) (bool, error) {
	unlock, err := e.live(ctx)
	if err != nil {
		return false, err
	}
	defer unlock()
	return selected(e.node), nil
}

// Obscured can not be known without layout
func (e *Element) Obscured(ctx context.Context) (bool, error) {
	unlock, err := e.live(ctx)
	if err != nil {
		return false, err
	}
	unlock()
	return false, bbt.ErrUnsupported
}

// Location is always the origin
func (e *Element) Location(ctx context.Context) (bbt.Point, error) {
	unlock, err := e.live(ctx)
	if err != nil {
		return bbt.Point{}, err
	}
	unlock()
	return bbt.Point{}, nil
}
