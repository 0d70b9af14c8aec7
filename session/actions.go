package session

import (
	"context"
	"fmt"
	"time"

	"gitlab.com/blackboxtests/bbt"
)

// Click the element once it is clickable. A click that fails because the element
// went stale or the driver refused it is retried, including the find, until
// ElementTimeout has passed since the first attempt.
func (s *Session) Click(ctx context.Context, by *bbt.Locator, need bbt.Need) error {
	deadline := time.Now().Add(s.cfg.ElementTimeout)
	for attempt := 1; ; attempt++ {
		el, err := s.resolveOne(ctx, bbt.ActClick, by, need)
		if err != nil || el == nil {
			return err
		}

		err = el.Click(ctx)
		if err == nil {
			return nil
		}

		if time.Now().Before(deadline) && retryable(ctx, err) {
			s.logger.Debug().Err(err).Str("locator", by.Describe()).Int("attempt", attempt).Msg("click failed, retrying")
			if !isStale(err) {
				if err := s.pause(ctx); err != nil {
					return err
				}
			}
			continue
		}
		return s.classify(ctx, bbt.ActClick, by, need, err)
	}
}

// Clear the value of an input
func (s *Session) Clear(ctx context.Context, by *bbt.Locator, need bbt.Need) error {
	return s.act(ctx, bbt.ActClear, by, need, func(el bbt.Element) error {
		return el.Clear(ctx)
	})
}

// SendKeys types text into the element
func (s *Session) SendKeys(ctx context.Context, by *bbt.Locator, text string, need bbt.Need) error {
	return s.act(ctx, bbt.ActSendKeys, by, need, func(el bbt.Element) error {
		return el.SendKeys(ctx, text)
	})
}

// ClearAndSendKeys replaces the element's value with text
func (s *Session) ClearAndSendKeys(ctx context.Context, by *bbt.Locator, text string, need bbt.Need) error {
	if err := s.Clear(ctx, by, need); err != nil {
		return err
	}
	return s.SendKeys(ctx, by, text, need)
}

// Submit the form the element belongs to
func (s *Session) Submit(ctx context.Context, by *bbt.Locator, need bbt.Need) error {
	return s.act(ctx, bbt.ActSubmit, by, need, func(el bbt.Element) error {
		return el.Submit(ctx)
	})
}

// Check moves the pointer onto the element and clicks it, for controls that ignore
// a plain element click.
func (s *Session) Check(ctx context.Context, by *bbt.Locator, need bbt.Need) error {
	return s.act(ctx, bbt.ActCheck, by, need, func(el bbt.Element) error {
		if err := el.MoveTo(ctx); err != nil {
			return err
		}
		return el.Click(ctx)
	})
}

// Hover moves the pointer onto the element
func (s *Session) Hover(ctx context.Context, by *bbt.Locator, need bbt.Need) error {
	return s.act(ctx, bbt.ActHover, by, need, func(el bbt.Element) error {
		return el.MoveTo(ctx)
	})
}

// ScrollTo scrolls the window so the element sits ScrollOffset pixels above the top edge
func (s *Session) ScrollTo(ctx context.Context, by *bbt.Locator, need bbt.Need) error {
	return s.act(ctx, bbt.ActScroll, by, need, func(el bbt.Element) error {
		loc, err := el.Location(ctx)
		if err != nil {
			return err
		}
		_, err = s.driver.ExecuteScript(ctx, fmt.Sprintf("window.scrollTo(0, %d)", loc.Y+s.cfg.ScrollOffset))
		return err
	})
}
