package bbt

import (
	"context"
	"strings"
)

// Point on the page in CSS pixels
type Point struct {
	X int
	Y int
}

// Element is an engine specific handle to a located DOM node. Every method may return
// ErrStaleElement once the node has been replaced.
type Element interface {
	Find(ctx context.Context, by *Locator) ([]Element, error) // descendants in document order
	Click(ctx context.Context) error
	Clear(ctx context.Context) error
	SendKeys(ctx context.Context, text string) error
	Submit(ctx context.Context) error
	MoveTo(ctx context.Context) error // synthetic pointer move onto the element
	Text(ctx context.Context) (string, error)
	Attribute(ctx context.Context, name string) (*string, error) // nil when the attribute is absent
	TagName(ctx context.Context) (string, error)
	Displayed(ctx context.Context) (bool, error)
	Enabled(ctx context.Context) (bool, error)
	Selected(ctx context.Context) (bool, error)
	Obscured(ctx context.Context) (bool, error) // another element receives pointer events at its center
	Location(ctx context.Context) (Point, error)
}

// Driver is the browser capability surface a Session is built on. Each engine
// provides one implementation.
type Driver interface {
	Find(ctx context.Context, by *Locator) ([]Element, error) // in the current window and frame, document order
	Navigate(ctx context.Context, url string) error
	Refresh(ctx context.Context) error
	Back(ctx context.Context) error
	URL(ctx context.Context) (string, error)
	HTML(ctx context.Context) (string, error)
	ExecuteScript(ctx context.Context, script string, args ...interface{}) (interface{}, error)
	Windows(ctx context.Context) ([]string, error)
	CurrentWindow(ctx context.Context) (string, error)
	SwitchWindow(ctx context.Context, handle string) error
	CloseWindow(ctx context.Context) error
	MaximizeWindow(ctx context.Context) error
	SwitchFrame(ctx context.Context, frame Element) error
	SwitchDefault(ctx context.Context) error
	AlertPresent(ctx context.Context) (bool, error)
	AcceptAlert(ctx context.Context) error
	Close() error
}

// Engine names a Driver implementation
type Engine string

// revive:exported
const (
	Chrome   Engine = "chrome"
	Chromium Engine = "chromium"
	Firefox  Engine = "firefox"
	Edge     Engine = "edge"
	WebKit   Engine = "webkit"
	Static   Engine = "static"
)

// Engines supported by this module, in display order
var Engines = []Engine{Chrome, Chromium, Firefox, Edge, WebKit, Static}

// ParseEngine from config or the command line, case insensitive
func ParseEngine(s string) (Engine, error) {
	e := Engine(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Engines {
		if e == known {
			return e, nil
		}
	}
	return "", &ConfigurationErr{Message: "unsupported browser engine " + s}
}
