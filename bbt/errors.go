package bbt

import (
	"strings"

	"github.com/pkg/errors"
)

// Engine implementations wrap their native errors with one of these so the
// session can classify failures without knowing the engine.
// revive:exported
var (
	ErrStaleElement    = errors.New("stale element reference")
	ErrNoSuchElement   = errors.New("no such element")
	ErrNoSuchWindow    = errors.New("no such window")
	ErrNoSuchFrame     = errors.New("no such frame")
	ErrNoAlert         = errors.New("no alert open")
	ErrNotInteractable = errors.New("element not interactable")
	ErrSessionClosed   = errors.New("session closed")
	ErrUnsupported     = errors.New("unsupported by engine")
	ErrTimedOut        = errors.New("timed out")
)

// ConfigurationErr an unsupported engine, strategy or invalid setting was requested
type ConfigurationErr struct {
	Message string
}

func (e *ConfigurationErr) Error() string {
	return "configuration error: " + e.Message
}

// ElementNotFoundErr a required element could not be located after waiting
type ElementNotFoundErr struct {
	Description string // locator description
	HTML        string // page source at the time of failure
	Err         error
}

func (e *ElementNotFoundErr) Error() string {
	var b strings.Builder
	b.WriteString("element not found\n")
	b.WriteString("Element: " + e.Description + "\n")
	b.WriteString("Html: " + e.HTML + "\n")
	return b.String()
}

func (e *ElementNotFoundErr) Cause() error  { return e.Err }
func (e *ElementNotFoundErr) Unwrap() error { return e.Err }

// SessionClosedErr the window or session went away under an in-flight operation
type SessionClosedErr struct {
	Description string
	Err         error
}

func (e *SessionClosedErr) Error() string {
	msg := "the window has been closed"
	if e.Description != "" {
		msg += " while accessing " + e.Description
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SessionClosedErr) Cause() error  { return e.Err }
func (e *SessionClosedErr) Unwrap() error { return e.Err }

// InvalidSelectionErr a select option that does not exist was requested
type InvalidSelectionErr struct {
	Description string
	Option      string
}

func (e *InvalidSelectionErr) Error() string {
	return "the option " + e.Option + " does not exist in " + e.Description
}

// DriverFaultErr any driver failure that is not one of the other kinds
type DriverFaultErr struct {
	Op          string
	Description string
	Err         error
}

func (e *DriverFaultErr) Error() string {
	msg := "driver fault during " + e.Op
	if e.Description != "" {
		msg += " on " + e.Description
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DriverFaultErr) Cause() error  { return e.Err }
func (e *DriverFaultErr) Unwrap() error { return e.Err }

// InvalidTabErr when we are unable to access a tab
type InvalidTabErr struct {
	Message string
}

func (e *InvalidTabErr) Error() string {
	return "Unable to access tab: " + e.Message
}
