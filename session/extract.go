package session

import (
	"context"

	"gitlab.com/blackboxtests/bbt"
)

func (s *Session) readString(ctx context.Context, by *bbt.Locator, need bbt.Need, read func(el bbt.Element) (*string, error)) (*string, error) {
	var out *string
	err := s.act(ctx, bbt.ActRead, by, need, func(el bbt.Element) error {
		v, err := read(el)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

func textOf(ctx context.Context) func(el bbt.Element) (*string, error) {
	return func(el bbt.Element) (*string, error) {
		text, err := el.Text(ctx)
		if err != nil {
			return nil, err
		}
		return &text, nil
	}
}

func attributeOf(ctx context.Context, name string) func(el bbt.Element) (*string, error) {
	return func(el bbt.Element) (*string, error) {
		return el.Attribute(ctx, name)
	}
}

// Text returns the rendered text of the element, nil when not found and optional
func (s *Session) Text(ctx context.Context, by *bbt.Locator, need bbt.Need) (*string, error) {
	return s.readString(ctx, by, need, textOf(ctx))
}

// Attribute returns the named attribute, nil when absent
func (s *Session) Attribute(ctx context.Context, by *bbt.Locator, name string, need bbt.Need) (*string, error) {
	return s.readString(ctx, by, need, attributeOf(ctx, name))
}

// Value returns the value attribute
func (s *Session) Value(ctx context.Context, by *bbt.Locator, need bbt.Need) (*string, error) {
	return s.Attribute(ctx, by, "value", need)
}

// Link returns the href attribute
func (s *Session) Link(ctx context.Context, by *bbt.Locator, need bbt.Need) (*string, error) {
	return s.Attribute(ctx, by, "href", need)
}

// OnClick returns the onclick attribute
func (s *Session) OnClick(ctx context.Context, by *bbt.Locator, need bbt.Need) (*string, error) {
	return s.Attribute(ctx, by, "onclick", need)
}

// Displayed reports whether the element is visible. Driver faults read as false,
// a missing required element is still an error.
func (s *Session) Displayed(ctx context.Context, by *bbt.Locator, need bbt.Need) (bool, error) {
	var displayed bool
	err := s.act(ctx, bbt.ActRead, by, need, func(el bbt.Element) error {
		v, err := el.Displayed(ctx)
		displayed = v
		return err
	})
	if _, ok := err.(*bbt.DriverFaultErr); ok {
		return false, nil
	}
	return displayed, err
}

// Selected reports whether an option, checkbox or radio is selected
func (s *Session) Selected(ctx context.Context, by *bbt.Locator, need bbt.Need) (bool, error) {
	var selected bool
	err := s.act(ctx, bbt.ActRead, by, need, func(el bbt.Element) error {
		v, err := el.Selected(ctx)
		selected = v
		return err
	})
	return selected, err
}

// SelectOptions returns the text of each option under a select element, in order
func (s *Session) SelectOptions(ctx context.Context, by *bbt.Locator, need bbt.Need) ([]string, error) {
	var texts []string
	err := s.act(ctx, bbt.ActRead, by, need, func(el bbt.Element) error {
		options, err := el.Find(ctx, optionLocator)
		if err != nil {
			return err
		}
		out := make([]string, 0, len(options))
		for _, option := range options {
			text, err := option.Text(ctx)
			if err != nil {
				return err
			}
			out = append(out, text)
		}
		texts = out
		return nil
	})
	return texts, err
}

// Count returns the number of matches, nil when the query failed and was optional
func (s *Session) Count(ctx context.Context, by *bbt.Locator, need bbt.Need) (*int, error) {
	elements, err := s.resolveMany(ctx, bbt.ActFindAll, by, need)
	if err != nil || elements == nil {
		return nil, err
	}
	n := len(elements)
	return &n, nil
}

// collectStrings reads every match. The result always has one entry per match, an
// element that goes stale or fails optionally contributes nil.
func (s *Session) collectStrings(ctx context.Context, by *bbt.Locator, need bbt.Need, read func(el bbt.Element) (*string, error)) ([]*string, error) {
	elements, err := s.resolveMany(ctx, bbt.ActRead, by, need)
	if err != nil || elements == nil {
		return nil, err
	}

	out := make([]*string, len(elements))
	for i, el := range elements {
		v, err := read(el)
		if err != nil {
			if err = s.classify(ctx, bbt.ActRead, by, need, err); err != nil {
				return nil, err
			}
			continue
		}
		out[i] = v
	}
	return out, nil
}

// Texts of every match in document order
func (s *Session) Texts(ctx context.Context, by *bbt.Locator, need bbt.Need) ([]*string, error) {
	return s.collectStrings(ctx, by, need, textOf(ctx))
}

// Attributes returns the named attribute of every match, nil entries where absent
func (s *Session) Attributes(ctx context.Context, by *bbt.Locator, name string, need bbt.Need) ([]*string, error) {
	return s.collectStrings(ctx, by, need, attributeOf(ctx, name))
}

// Values returns the value attribute of every match
func (s *Session) Values(ctx context.Context, by *bbt.Locator, need bbt.Need) ([]*string, error) {
	return s.Attributes(ctx, by, "value", need)
}

// Links returns the href attribute of every match
func (s *Session) Links(ctx context.Context, by *bbt.Locator, need bbt.Need) ([]*string, error) {
	return s.Attributes(ctx, by, "href", need)
}

// OnClicks returns the onclick attribute of every match
func (s *Session) OnClicks(ctx context.Context, by *bbt.Locator, need bbt.Need) ([]*string, error) {
	return s.Attributes(ctx, by, "onclick", need)
}

// Displayeds reports visibility for every match
func (s *Session) Displayeds(ctx context.Context, by *bbt.Locator, need bbt.Need) ([]*bool, error) {
	elements, err := s.resolveMany(ctx, bbt.ActRead, by, need)
	if err != nil || elements == nil {
		return nil, err
	}

	out := make([]*bool, len(elements))
	for i, el := range elements {
		v, err := el.Displayed(ctx)
		if err != nil {
			if err = s.classify(ctx, bbt.ActRead, by, need, err); err != nil {
				return nil, err
			}
			continue
		}
		out[i] = &v
	}
	return out, nil
}
