package mock

import (
	"context"
	"strconv"

	"gitlab.com/blackboxtests/bbt"
)

type Element struct {
	FindFn     func(ctx context.Context, by *bbt.Locator) ([]bbt.Element, error)
	FindCalled bool

	ClickFn     func(ctx context.Context) error
	ClickCalled bool

	ClearFn     func(ctx context.Context) error
	ClearCalled bool

	SendKeysFn     func(ctx context.Context, text string) error
	SendKeysCalled bool

	SubmitFn     func(ctx context.Context) error
	SubmitCalled bool

	MoveToFn     func(ctx context.Context) error
	MoveToCalled bool

	TextFn     func(ctx context.Context) (string, error)
	TextCalled bool

	AttributeFn     func(ctx context.Context, name string) (*string, error)
	AttributeCalled bool

	TagNameFn     func(ctx context.Context) (string, error)
	TagNameCalled bool

	DisplayedFn     func(ctx context.Context) (bool, error)
	DisplayedCalled bool

	EnabledFn     func(ctx context.Context) (bool, error)
	EnabledCalled bool

	SelectedFn     func(ctx context.Context) (bool, error)
	SelectedCalled bool

	ObscuredFn     func(ctx context.Context) (bool, error)
	ObscuredCalled bool

	LocationFn     func(ctx context.Context) (bbt.Point, error)
	LocationCalled bool
}

func (e *Element) Find(ctx context.Context, by *bbt.Locator) ([]bbt.Element, error) {
	e.FindCalled = true
	return e.FindFn(ctx, by)
}

func (e *Element) Click(ctx context.Context) error {
	e.ClickCalled = true
	return e.ClickFn(ctx)
}

func (e *Element) Clear(ctx context.Context) error {
	e.ClearCalled = true
	return e.ClearFn(ctx)
}

func (e *Element) SendKeys(ctx context.Context, text string) error {
	e.SendKeysCalled = true
	return e.SendKeysFn(ctx, text)
}

func (e *Element) Submit(ctx context.Context) error {
	e.SubmitCalled = true
	return e.SubmitFn(ctx)
}

func (e *Element) MoveTo(ctx context.Context) error {
	e.MoveToCalled = true
	return e.MoveToFn(ctx)
}

func (e *Element) Text(ctx context.Context) (string, error) {
	e.TextCalled = true
	return e.TextFn(ctx)
}

func (e *Element) Attribute(ctx context.Context, name string) (*string, error) {
	e.AttributeCalled = true
	return e.AttributeFn(ctx, name)
}

func (e *Element) TagName(ctx context.Context) (string, error) {
	e.TagNameCalled = true
	return e.TagNameFn(ctx)
}

func (e *Element) Displayed(ctx context.Context) (bool, error) {
	e.DisplayedCalled = true
	return e.DisplayedFn(ctx)
}

func (e *Element) Enabled(ctx context.Context) (bool, error) {
	e.EnabledCalled = true
	return e.EnabledFn(ctx)
}

func (e *Element) Selected(ctx context.Context) (bool, error) {
	e.SelectedCalled = true
	return e.SelectedFn(ctx)
}

func (e *Element) Obscured(ctx context.Context) (bool, error) {
	e.ObscuredCalled = true
	return e.ObscuredFn(ctx)
}

func (e *Element) Location(ctx context.Context) (bbt.Point, error) {
	e.LocationCalled = true
	return e.LocationFn(ctx)
}

// Node is the state a mock element reads and writes
type Node struct {
	Tag       string
	Text      string
	Attrs     map[string]string
	Hidden    bool
	Disabled  bool
	Selected  bool
	Obscured  bool
	Location  bbt.Point
	Children  map[string][]bbt.Element // keyed by locator description
	Keys      string                   // everything sent with SendKeys since the last Clear
	Clicks    int
	Submitted bool
	Hovered   bool
}

// MakeMockElement returns an element backed by n. Click toggles Selected, which is
// enough for option and checkbox tests.
func MakeMockElement(n *Node) *Element {
	if n.Attrs == nil {
		n.Attrs = make(map[string]string)
	}
	if n.Children == nil {
		n.Children = make(map[string][]bbt.Element)
	}
	e := &Element{}

	e.FindFn = func(ctx context.Context, by *bbt.Locator) ([]bbt.Element, error) {
		return n.Children[by.Describe()], nil
	}
	e.ClickFn = func(ctx context.Context) error {
		n.Clicks++
		n.Selected = !n.Selected
		return nil
	}
	e.ClearFn = func(ctx context.Context) error {
		n.Keys = ""
		return nil
	}
	e.SendKeysFn = func(ctx context.Context, text string) error {
		n.Keys += text
		return nil
	}
	e.SubmitFn = func(ctx context.Context) error {
		n.Submitted = true
		return nil
	}
	e.MoveToFn = func(ctx context.Context) error {
		n.Hovered = true
		return nil
	}
	e.TextFn = func(ctx context.Context) (string, error) {
		return n.Text, nil
	}
	e.AttributeFn = func(ctx context.Context, name string) (*string, error) {
		if v, ok := n.Attrs[name]; ok {
			return &v, nil
		}
		return nil, nil
	}
	e.TagNameFn = func(ctx context.Context) (string, error) {
		return n.Tag, nil
	}
	e.DisplayedFn = func(ctx context.Context) (bool, error) {
		return !n.Hidden, nil
	}
	e.EnabledFn = func(ctx context.Context) (bool, error) {
		return !n.Disabled, nil
	}
	e.SelectedFn = func(ctx context.Context) (bool, error) {
		return n.Selected, nil
	}
	e.ObscuredFn = func(ctx context.Context) (bool, error) {
		return n.Obscured, nil
	}
	e.LocationFn = func(ctx context.Context) (bbt.Point, error) {
		return n.Location, nil
	}
	return e
}

// MakeMockOptions returns option elements with the given texts, values are "v0", "v1", ...
func MakeMockOptions(texts ...string) ([]bbt.Element, []*Node) {
	elements := make([]bbt.Element, len(texts))
	nodes := make([]*Node, len(texts))
	for i, text := range texts {
		nodes[i] = &Node{Tag: "option", Text: text, Attrs: map[string]string{"value": "v" + strconv.Itoa(i)}}
		elements[i] = MakeMockElement(nodes[i])
	}
	return elements, nodes
}
