package session

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gitlab.com/blackboxtests/bbt"
)

// FindElement resolves by to a clickable element
func (s *Session) FindElement(ctx context.Context, by *bbt.Locator, need bbt.Need) (bbt.Element, error) {
	return s.resolveOne(ctx, bbt.ActFind, by, need)
}

// FindElements returns every match of by in document order without waiting
func (s *Session) FindElements(ctx context.Context, by *bbt.Locator, need bbt.Need) ([]bbt.Element, error) {
	return s.resolveMany(ctx, bbt.ActFindAll, by, need)
}

// IsElementPresent reports whether by becomes clickable within timeout. Failures
// of any kind report false.
func (s *Session) IsElementPresent(ctx context.Context, by *bbt.Locator, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		err := s.waitClickable(ctx, by, time.Until(deadline))
		if err == nil {
			return true
		}
		if isStale(err) && time.Now().Before(deadline) && s.pause(ctx) == nil {
			continue
		}
		s.logger.Debug().Err(err).Str("locator", by.Describe()).Msg("element not present")
		return false
	}
}

// WaitToBeClickable blocks until by is clickable or timeout passes
func (s *Session) WaitToBeClickable(ctx context.Context, by *bbt.Locator, timeout time.Duration, need bbt.Need) (bool, error) {
	for {
		err := s.waitClickable(ctx, by, timeout)
		if err == nil {
			return true, nil
		}
		if isStale(err) && ctx.Err() == nil {
			continue
		}
		return false, s.classify(ctx, bbt.ActWait, by, need, err)
	}
}

// WaitForElementExists blocks until by matches at least one element, visible or not
func (s *Session) WaitForElementExists(ctx context.Context, by *bbt.Locator, timeout time.Duration, need bbt.Need) (bool, error) {
	el, err := s.resolvePresent(ctx, bbt.ActWait, by, need, timeout)
	return el != nil, err
}

func (s *Session) waitForAlert(ctx context.Context, timeout time.Duration) (bool, error) {
	err := s.poll(ctx, timeout, func() (bool, error) {
		return s.driver.AlertPresent(ctx)
	})
	if errors.Is(err, bbt.ErrTimedOut) {
		return false, nil
	}
	return err == nil, err
}
