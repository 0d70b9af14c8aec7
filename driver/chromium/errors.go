package chromium

import (
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/cdp"
	"github.com/pkg/errors"
	"gitlab.com/blackboxtests/bbt"
	"gitlab.com/blackboxtests/driver"
)

// classify maps rod's typed errors before falling back to the shared message table
func classify(err error) error {
	if err == nil {
		return nil
	}

	var (
		objectErr   *rod.ObjectNotFoundError
		notFound    *rod.ElementNotFoundError
		notInteract *rod.NotInteractableError
		invisible   *rod.InvisibleShapeError
		covered     *rod.CoveredError
		noPointer   *rod.NoPointerEventsError
		pageErr     *rod.PageNotFoundError
	)
	switch {
	case errors.As(err, &objectErr):
		return errors.Wrap(bbt.ErrStaleElement, err.Error())
	case errors.As(err, &notFound):
		return errors.Wrap(bbt.ErrNoSuchElement, err.Error())
	case errors.As(err, &notInteract), errors.As(err, &invisible), errors.As(err, &covered), errors.As(err, &noPointer):
		return errors.Wrap(bbt.ErrNotInteractable, err.Error())
	case errors.As(err, &pageErr):
		return errors.Wrap(bbt.ErrNoSuchWindow, err.Error())
	case errors.Is(err, cdp.ErrCtxNotFound):
		return errors.Wrap(bbt.ErrStaleElement, err.Error())
	}
	return driver.Classify(err)
}
