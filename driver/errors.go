package driver

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"gitlab.com/blackboxtests/bbt"
)

// fragments of native error messages, checked in order
var classes = []struct {
	sentinel  error
	fragments []string
}{
	{bbt.ErrStaleElement, []string{
		"stale element reference",
		"could not find object with given id",
		"node with given id does not belong to the document",
		"no node with given id",
		"not attached to the dom",
		"node is detached",
		"element is not attached",
		"cannot find context with specified id",
		"execution context was destroyed",
	}},
	{bbt.ErrNoAlert, []string{
		"no such alert",
		"no alert open",
		"no dialog is showing",
	}},
	{bbt.ErrNoSuchFrame, []string{
		"no such frame",
	}},
	{bbt.ErrNoSuchWindow, []string{
		"no such window",
		"target window already closed",
		"web view not found",
		"no target with given id",
	}},
	{bbt.ErrSessionClosed, []string{
		"target closed",
		"session closed",
		"invalid session id",
		"session deleted",
		"browser has been closed",
		"websocket: close",
		"use of closed network connection",
		"connection refused",
		"broken pipe",
	}},
	{bbt.ErrNotInteractable, []string{
		"element not interactable",
		"element click intercepted",
		"is not clickable at point",
		"element is covered",
		"element is not visible",
		"element is disabled",
	}},
	{bbt.ErrNoSuchElement, []string{
		"no such element",
		"unable to locate element",
		"cannot find element",
	}},
}

// Classify maps a native engine error onto the bbt sentinels by message. The native
// message is kept as context. Errors that already carry a sentinel, typed bbt errors,
// context errors and unknown messages are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if known(err) {
		return err
	}

	msg := strings.ToLower(err.Error())
	for _, class := range classes {
		for _, fragment := range class.fragments {
			if strings.Contains(msg, fragment) {
				return errors.Wrap(class.sentinel, err.Error())
			}
		}
	}
	return err
}

func known(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	for _, class := range classes {
		if errors.Is(err, class.sentinel) {
			return true
		}
	}
	var cfgErr *bbt.ConfigurationErr
	return errors.Is(err, bbt.ErrUnsupported) || errors.As(err, &cfgErr)
}
