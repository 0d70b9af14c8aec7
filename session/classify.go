package session

import (
	"context"

	"github.com/pkg/errors"
	"gitlab.com/blackboxtests/bbt"
)

// classify is the one place driver failures are turned into the public error set.
// It returns nil when the failure should be reported as an empty result.
func (s *Session) classify(ctx context.Context, act bbt.ActionType, by *bbt.Locator, need bbt.Need, err error) error {
	if err == nil {
		return nil
	}

	desc := ""
	if by != nil {
		desc = by.Describe()
	}

	var (
		closedErr    *bbt.SessionClosedErr
		cfgErr       *bbt.ConfigurationErr
		selectionErr *bbt.InvalidSelectionErr
		notFoundErr  *bbt.ElementNotFoundErr
		faultErr     *bbt.DriverFaultErr
		tabErr       *bbt.InvalidTabErr
	)

	var surfaced error
	switch {
	case errors.As(err, &closedErr), errors.As(err, &cfgErr), errors.As(err, &tabErr):
		surfaced = err
	case errors.As(err, &selectionErr), errors.As(err, &notFoundErr), errors.As(err, &faultErr):
		if need == bbt.Required {
			surfaced = err
		}
	case isSessionClosed(err):
		surfaced = &bbt.SessionClosedErr{Description: desc, Err: err}
	case ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
		surfaced = err
	case isStale(err):
		s.logger.Debug().Str("locator", desc).Str("action", act.String()).Msg("dropping stale element")
	case errors.Is(err, bbt.ErrNoSuchElement), errors.Is(err, bbt.ErrTimedOut):
		if need == bbt.Required {
			surfaced = s.notFound(ctx, by, err)
		}
	default:
		if need == bbt.Required {
			surfaced = &bbt.DriverFaultErr{Op: act.String(), Description: desc, Err: err}
		}
	}

	if surfaced == nil {
		s.logger.Debug().Err(err).Str("locator", desc).Str("action", act.String()).Str("need", need.String()).Msg("ignoring failure")
		return nil
	}
	s.logger.Warn().Err(err).Str("locator", desc).Str("action", act.String()).Msg("operation failed")
	return surfaced
}

func (s *Session) notFound(ctx context.Context, by *bbt.Locator, err error) error {
	html, htmlErr := s.driver.HTML(ctx)
	if htmlErr != nil {
		html = "<unavailable: " + htmlErr.Error() + ">"
	}
	return &bbt.ElementNotFoundErr{Description: by.Describe(), HTML: html, Err: err}
}

func isStale(err error) bool {
	return errors.Is(err, bbt.ErrStaleElement)
}

func isSessionClosed(err error) bool {
	return errors.Is(err, bbt.ErrSessionClosed) || errors.Is(err, bbt.ErrNoSuchWindow)
}

// retryable reports whether a failed click may be attempted again before its deadline
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || isSessionClosed(err) {
		return false
	}
	var cfgErr *bbt.ConfigurationErr
	return !errors.As(err, &cfgErr)
}
