package session

import (
	"context"
	"strconv"

	"gitlab.com/blackboxtests/bbt"
)

var optionLocator = bbt.ByTag("option")

type optionMatcher func(i int, option bbt.Element) (bool, error)

// SelectIndex selects the option at index i, counting from zero
func (s *Session) SelectIndex(ctx context.Context, by *bbt.Locator, i int, need bbt.Need) error {
	return s.selectOption(ctx, by, "index "+strconv.Itoa(i), need, func(n int, _ bbt.Element) (bool, error) {
		return n == i, nil
	})
}

// SelectText selects the first option whose visible text equals text
func (s *Session) SelectText(ctx context.Context, by *bbt.Locator, text string, need bbt.Need) error {
	return s.selectOption(ctx, by, text, need, func(_ int, option bbt.Element) (bool, error) {
		t, err := option.Text(ctx)
		return t == text, err
	})
}

// SelectValue selects the first option whose value attribute equals value
func (s *Session) SelectValue(ctx context.Context, by *bbt.Locator, value string, need bbt.Need) error {
	return s.selectOption(ctx, by, value, need, func(_ int, option bbt.Element) (bool, error) {
		v, err := option.Attribute(ctx, "value")
		return v != nil && *v == value, err
	})
}

func (s *Session) selectOption(ctx context.Context, by *bbt.Locator, want string, need bbt.Need, match optionMatcher) error {
	return s.act(ctx, bbt.ActSelect, by, need, func(el bbt.Element) error {
		options, err := el.Find(ctx, optionLocator)
		if err != nil {
			return err
		}

		for i, option := range options {
			ok, err := match(i, option)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}

			selected, err := option.Selected(ctx)
			if err != nil {
				return err
			}
			if selected {
				return nil
			}
			s.logger.Debug().Str("locator", by.Describe()).Str("option", want).Msg("selecting option")
			return option.Click(ctx)
		}
		return &bbt.InvalidSelectionErr{Description: by.Describe(), Option: want}
	})
}
