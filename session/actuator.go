package session

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gitlab.com/blackboxtests/bbt"
)

// resolveOne waits for the first match of by to become clickable, then queries again
// and returns the first match. When the element goes stale at any point the whole
// resolution starts over. There is no attempt limit: a document that keeps replacing
// the element keeps this looping until ctx is done.
func (s *Session) resolveOne(ctx context.Context, act bbt.ActionType, by *bbt.Locator, need bbt.Need) (bbt.Element, error) {
	for attempt := 1; ; attempt++ {
		el, err := s.resolveOnce(ctx, by, s.cfg.ElementTimeout)
		if err == nil {
			if el == nil && need == bbt.Required {
				return nil, s.notFound(ctx, by, bbt.ErrNoSuchElement)
			}
			return el, nil
		}

		if isStale(err) {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Debug().Str("locator", by.Describe()).Int("attempt", attempt).Msg("element went stale, resolving again")
			continue
		}
		return nil, s.classify(ctx, act, by, need, err)
	}
}

func (s *Session) resolveOnce(ctx context.Context, by *bbt.Locator, timeout time.Duration) (bbt.Element, error) {
	if err := s.waitClickable(ctx, by, timeout); err != nil {
		return nil, err
	}

	elements, err := s.driver.Find(ctx, by)
	if err != nil {
		return nil, err
	}
	if len(elements) == 0 {
		return nil, nil
	}
	return elements[0], nil
}

// resolveMany returns every match in document order without waiting. A nil slice
// means the query failed and the failure was not required to surface.
func (s *Session) resolveMany(ctx context.Context, act bbt.ActionType, by *bbt.Locator, need bbt.Need) ([]bbt.Element, error) {
	s.logger.Debug().Str("locator", by.Describe()).Str("action", act.String()).Msg("finding all")
	elements, err := s.driver.Find(ctx, by)
	if err != nil {
		return nil, s.classify(ctx, act, by, need, err)
	}
	if elements == nil {
		elements = []bbt.Element{}
	}
	return elements, nil
}

// resolvePresent waits only for existence, used for frames and WaitForElementExists
func (s *Session) resolvePresent(ctx context.Context, act bbt.ActionType, by *bbt.Locator, need bbt.Need, timeout time.Duration) (bbt.Element, error) {
	var found bbt.Element
	err := s.poll(ctx, timeout, func() (bool, error) {
		elements, err := s.driver.Find(ctx, by)
		if err != nil {
			if errors.Is(err, bbt.ErrNoSuchElement) || isStale(err) {
				return false, nil
			}
			return false, err
		}
		if len(elements) == 0 {
			return false, nil
		}
		found = elements[0]
		return true, nil
	})
	if err != nil {
		return nil, s.classify(ctx, act, by, need, err)
	}
	return found, nil
}

// waitClickable polls until the first match of by is displayed, enabled and not
// obscured. Staleness is returned to the caller so it can start over.
func (s *Session) waitClickable(ctx context.Context, by *bbt.Locator, timeout time.Duration) error {
	return s.poll(ctx, timeout, func() (bool, error) {
		elements, err := s.driver.Find(ctx, by)
		if err != nil {
			if errors.Is(err, bbt.ErrNoSuchElement) {
				return false, nil
			}
			return false, err
		}
		if len(elements) == 0 {
			return false, nil
		}
		return clickable(ctx, elements[0])
	})
}

func clickable(ctx context.Context, el bbt.Element) (bool, error) {
	displayed, err := el.Displayed(ctx)
	if err != nil || !displayed {
		return false, err
	}

	enabled, err := el.Enabled(ctx)
	if err != nil || !enabled {
		return false, err
	}

	obscured, err := el.Obscured(ctx)
	if errors.Is(err, bbt.ErrUnsupported) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return !obscured, nil
}

// poll calls cond every PollInterval until it returns true, returns an error, or
// timeout passes. cond is always called at least once.
func (s *Session) poll(ctx context.Context, timeout time.Duration, cond func() (bool, error)) error {
	deadline := time.Now().Add(timeout)
	for {
		ok, err := cond()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if !time.Now().Before(deadline) {
			return errors.Wrapf(bbt.ErrTimedOut, "waited %s", timeout)
		}
		if err := s.pause(ctx); err != nil {
			return err
		}
	}
}

func (s *Session) pause(ctx context.Context) error {
	return sleep(ctx, s.cfg.PollInterval)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// act resolves by and runs fn on the element. If fn reports the element went stale
// the element is resolved again, with the same unbounded policy as resolveOne.
func (s *Session) act(ctx context.Context, act bbt.ActionType, by *bbt.Locator, need bbt.Need, fn func(el bbt.Element) error) error {
	for {
		el, err := s.resolveOne(ctx, act, by, need)
		if err != nil || el == nil {
			return err
		}

		s.logger.Debug().Str("locator", by.Describe()).Str("action", act.String()).Msg("acting")
		err = fn(el)
		if err == nil {
			return nil
		}
		if isStale(err) && ctx.Err() == nil {
			continue
		}
		return s.classify(ctx, act, by, need, err)
	}
}
