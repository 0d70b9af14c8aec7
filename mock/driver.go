package mock

import (
	"context"

	"gitlab.com/blackboxtests/bbt"
)

type Driver struct {
	FindFn     func(ctx context.Context, by *bbt.Locator) ([]bbt.Element, error)
	FindCalled bool

	NavigateFn     func(ctx context.Context, url string) error
	NavigateCalled bool

	RefreshFn     func(ctx context.Context) error
	RefreshCalled bool

	BackFn     func(ctx context.Context) error
	BackCalled bool

	URLFn     func(ctx context.Context) (string, error)
	URLCalled bool

	HTMLFn     func(ctx context.Context) (string, error)
	HTMLCalled bool

	ExecuteScriptFn     func(ctx context.Context, script string, args ...interface{}) (interface{}, error)
	ExecuteScriptCalled bool

	WindowsFn     func(ctx context.Context) ([]string, error)
	WindowsCalled bool

	CurrentWindowFn     func(ctx context.Context) (string, error)
	CurrentWindowCalled bool

	SwitchWindowFn     func(ctx context.Context, handle string) error
	SwitchWindowCalled bool

	CloseWindowFn     func(ctx context.Context) error
	CloseWindowCalled bool

	MaximizeWindowFn     func(ctx context.Context) error
	MaximizeWindowCalled bool

	SwitchFrameFn     func(ctx context.Context, frame bbt.Element) error
	SwitchFrameCalled bool

	SwitchDefaultFn     func(ctx context.Context) error
	SwitchDefaultCalled bool

	AlertPresentFn     func(ctx context.Context) (bool, error)
	AlertPresentCalled bool

	AcceptAlertFn     func(ctx context.Context) error
	AcceptAlertCalled bool

	CloseFn     func() error
	CloseCalled bool
}

func (d *Driver) Find(ctx context.Context, by *bbt.Locator) ([]bbt.Element, error) {
	d.FindCalled = true
	return d.FindFn(ctx, by)
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	d.NavigateCalled = true
	return d.NavigateFn(ctx, url)
}

func (d *Driver) Refresh(ctx context.Context) error {
	d.RefreshCalled = true
	return d.RefreshFn(ctx)
}

func (d *Driver) Back(ctx context.Context) error {
	d.BackCalled = true
	return d.BackFn(ctx)
}

func (d *Driver) URL(ctx context.Context) (string, error) {
	d.URLCalled = true
	return d.URLFn(ctx)
}

func (d *Driver) HTML(ctx context.Context) (string, error) {
	d.HTMLCalled = true
	return d.HTMLFn(ctx)
}

func (d *Driver) ExecuteScript(ctx context.Context, script string, args ...interface{}) (interface{}, error) {
	d.ExecuteScriptCalled = true
	return d.ExecuteScriptFn(ctx, script, args...)
}

func (d *Driver) Windows(ctx context.Context) ([]string, error) {
	d.WindowsCalled = true
	return d.WindowsFn(ctx)
}

func (d *Driver) CurrentWindow(ctx context.Context) (string, error) {
	d.CurrentWindowCalled = true
	return d.CurrentWindowFn(ctx)
}

func (d *Driver) SwitchWindow(ctx context.Context, handle string) error {
	d.SwitchWindowCalled = true
	return d.SwitchWindowFn(ctx, handle)
}

func (d *Driver) CloseWindow(ctx context.Context) error {
	d.CloseWindowCalled = true
	return d.CloseWindowFn(ctx)
}

func (d *Driver) MaximizeWindow(ctx context.Context) error {
	d.MaximizeWindowCalled = true
	return d.MaximizeWindowFn(ctx)
}

func (d *Driver) SwitchFrame(ctx context.Context, frame bbt.Element) error {
	d.SwitchFrameCalled = true
	return d.SwitchFrameFn(ctx, frame)
}

func (d *Driver) SwitchDefault(ctx context.Context) error {
	d.SwitchDefaultCalled = true
	return d.SwitchDefaultFn(ctx)
}

func (d *Driver) AlertPresent(ctx context.Context) (bool, error) {
	d.AlertPresentCalled = true
	return d.AlertPresentFn(ctx)
}

func (d *Driver) AcceptAlert(ctx context.Context) error {
	d.AcceptAlertCalled = true
	return d.AcceptAlertFn(ctx)
}

func (d *Driver) Close() error {
	d.CloseCalled = true
	return d.CloseFn()
}

// Page is the in-memory browser state behind MakeMockDriver
type Page struct {
	Elements   map[string][]bbt.Element // keyed by locator description
	Source     string
	Location   string
	Handles    []string
	Current    string
	Closed     []string // handles passed to CloseWindow, in order
	Frame      bbt.Element
	Alert      bool
	Accepted   int
	Scripts    []string
	Maximized  bool
	Closes     int
	History    []string
	Refreshes  int
	FindErrors []error // returned, one per call, before Elements is consulted
}

// MakeMockDriver returns a driver backed by p
func MakeMockDriver(p *Page) *Driver {
	if p.Elements == nil {
		p.Elements = make(map[string][]bbt.Element)
	}
	if len(p.Handles) == 0 {
		p.Handles = []string{"window-1"}
	}
	if p.Current == "" {
		p.Current = p.Handles[0]
	}
	d := &Driver{}

	d.FindFn = func(ctx context.Context, by *bbt.Locator) ([]bbt.Element, error) {
		if len(p.FindErrors) > 0 {
			err := p.FindErrors[0]
			p.FindErrors = p.FindErrors[1:]
			if err != nil {
				return nil, err
			}
		}
		return p.Elements[by.Describe()], nil
	}
	d.NavigateFn = func(ctx context.Context, url string) error {
		p.History = append(p.History, url)
		p.Location = url
		return nil
	}
	d.RefreshFn = func(ctx context.Context) error {
		p.Refreshes++
		return nil
	}
	d.BackFn = func(ctx context.Context) error {
		if len(p.History) > 1 {
			p.History = p.History[:len(p.History)-1]
			p.Location = p.History[len(p.History)-1]
		}
		return nil
	}
	d.URLFn = func(ctx context.Context) (string, error) {
		return p.Location, nil
	}
	d.HTMLFn = func(ctx context.Context) (string, error) {
		return p.Source, nil
	}
	d.ExecuteScriptFn = func(ctx context.Context, script string, args ...interface{}) (interface{}, error) {
		p.Scripts = append(p.Scripts, script)
		return nil, nil
	}
	d.WindowsFn = func(ctx context.Context) ([]string, error) {
		handles := make([]string, len(p.Handles))
		copy(handles, p.Handles)
		return handles, nil
	}
	d.CurrentWindowFn = func(ctx context.Context) (string, error) {
		return p.Current, nil
	}
	d.SwitchWindowFn = func(ctx context.Context, handle string) error {
		for _, h := range p.Handles {
			if h == handle {
				p.Current = handle
				return nil
			}
		}
		return bbt.ErrNoSuchWindow
	}
	d.CloseWindowFn = func(ctx context.Context) error {
		for i, h := range p.Handles {
			if h == p.Current {
				p.Closed = append(p.Closed, h)
				p.Handles = append(p.Handles[:i], p.Handles[i+1:]...)
				return nil
			}
		}
		return bbt.ErrNoSuchWindow
	}
	d.MaximizeWindowFn = func(ctx context.Context) error {
		p.Maximized = true
		return nil
	}
	d.SwitchFrameFn = func(ctx context.Context, frame bbt.Element) error {
		p.Frame = frame
		return nil
	}
	d.SwitchDefaultFn = func(ctx context.Context) error {
		p.Frame = nil
		return nil
	}
	d.AlertPresentFn = func(ctx context.Context) (bool, error) {
		return p.Alert, nil
	}
	d.AcceptAlertFn = func(ctx context.Context) error {
		if !p.Alert {
			return bbt.ErrNoAlert
		}
		p.Alert = false
		p.Accepted++
		return nil
	}
	d.CloseFn = func() error {
		p.Closes++
		return nil
	}
	return d
}
