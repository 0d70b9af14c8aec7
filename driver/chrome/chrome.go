// Package chrome drives Google Chrome over the devtools protocol with gcd
package chrome

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/wirepair/gcd"
	"github.com/wirepair/gcd/gcdapi"
	"gitlab.com/blackboxtests/bbt"
	"gitlab.com/blackboxtests/driver"
)

const navigationTimeout = 45 * time.Second

// Driver owns one chrome process and the page targets it has opened
type Driver struct {
	cfg     *bbt.Config
	leaser  *driver.LocalLeaser
	port    string
	g       *gcd.Gcd
	lock    sync.Mutex
	tabs    map[string]*Tab
	order   []string
	current *Tab
	logger  zerolog.Logger
}

// Open starts chrome and attaches to its first page
func Open(ctx context.Context, cfg *bbt.Config) (*Driver, error) {
	tmp := driver.TmpDir(cfg.TmpDir)
	leaser := driver.NewLocalLeaser(tmp)

	port, g, err := leaser.Acquire(driver.FindChrome(cfg.ChromePath), driver.ChromiumFlags(cfg))
	if err != nil {
		return nil, err
	}

	d := &Driver{
		cfg:    cfg,
		leaser: leaser,
		port:   port,
		g:      g,
		tabs:   make(map[string]*Tab),
		logger: log.With().Str("engine", string(bbt.Chrome)).Str("port", port).Logger(),
	}

	if err := d.refreshTabs(); err != nil {
		d.Close()
		return nil, err
	}
	if len(d.order) == 0 {
		target, err := g.NewTab()
		if err != nil {
			d.Close()
			return nil, errors.Wrap(err, "failed to open first tab")
		}
		d.addTab(target)
	}
	d.current = d.tabs[d.order[0]]

	if err := ctx.Err(); err != nil {
		d.Close()
		return nil, err
	}
	d.logger.Info().Msg("chrome started")
	return d, nil
}

func (d *Driver) addTab(target *gcd.ChromeTarget) {
	tab := newTab(d.g, target, navigationTimeout)
	d.tabs[tab.ID()] = tab
	d.order = append(d.order, tab.ID())
}

// refreshTabs connects to page targets opened since the last call and forgets tabs
// that were closed or detached
func (d *Driver) refreshTabs() error {
	d.lock.Lock()
	defer d.lock.Unlock()

	known := make(map[string]struct{}, len(d.tabs))
	for id := range d.tabs {
		known[id] = struct{}{}
	}
	targets, err := d.g.GetNewTargets(known)
	if err != nil {
		return driver.Classify(err)
	}
	for _, target := range targets {
		if target.Target.Type != "page" {
			continue
		}
		d.addTab(target)
	}

	order := d.order[:0]
	for _, id := range d.order {
		tab := d.tabs[id]
		if tab.alive(context.Background()) != nil {
			delete(d.tabs, id)
			continue
		}
		order = append(order, id)
	}
	d.order = order
	return nil
}

func (d *Driver) tab() (*Tab, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.current == nil {
		return nil, errors.Wrap(bbt.ErrNoSuchWindow, "the current window was closed")
	}
	return d.current, nil
}

// Find in the current document
func (d *Driver) Find(ctx context.Context, by *bbt.Locator) ([]bbt.Element, error) {
	t, err := d.tab()
	if err != nil {
		return nil, err
	}
	root, err := t.root(ctx)
	if err != nil {
		return nil, err
	}
	return find(ctx, t, root, by)
}

// Navigate the current tab
func (d *Driver) Navigate(ctx context.Context, url string) error {
	t, err := d.tab()
	if err != nil {
		return err
	}
	return t.Navigate(ctx, url)
}

// Refresh the current tab
func (d *Driver) Refresh(ctx context.Context) error {
	t, err := d.tab()
	if err != nil {
		return err
	}
	return t.Reload(ctx)
}

// Back in the current tab's history
func (d *Driver) Back(ctx context.Context) error {
	t, err := d.tab()
	if err != nil {
		return err
	}
	return t.Back(ctx)
}

// URL of the current tab
func (d *Driver) URL(ctx context.Context) (string, error) {
	t, err := d.tab()
	if err != nil {
		return "", err
	}
	return t.URL(ctx)
}

// HTML of the current document
func (d *Driver) HTML(ctx context.Context) (string, error) {
	t, err := d.tab()
	if err != nil {
		return "", err
	}
	return t.HTML(ctx)
}

// ExecuteScript in the current tab
func (d *Driver) ExecuteScript(ctx context.Context, script string, args ...interface{}) (interface{}, error) {
	t, err := d.tab()
	if err != nil {
		return nil, err
	}
	return t.ExecuteScript(ctx, script, args...)
}

// Windows returns the target ids of the open pages in the order they were seen
func (d *Driver) Windows(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := d.refreshTabs(); err != nil {
		return nil, err
	}
	d.lock.Lock()
	defer d.lock.Unlock()
	return append([]string(nil), d.order...), nil
}

// CurrentWindow handle
func (d *Driver) CurrentWindow(ctx context.Context) (string, error) {
	t, err := d.tab()
	if err != nil {
		return "", err
	}
	return t.ID(), nil
}

// SwitchWindow activates the page with handle
func (d *Driver) SwitchWindow(ctx context.Context, handle string) error {
	if err := d.refreshTabs(); err != nil {
		return err
	}

	d.lock.Lock()
	t, ok := d.tabs[handle]
	d.lock.Unlock()
	if !ok {
		return errors.Wrap(bbt.ErrNoSuchWindow, handle)
	}
	if err := d.g.ActivateTab(t.t); err != nil {
		return driver.Classify(err)
	}

	d.lock.Lock()
	d.current = t
	d.lock.Unlock()
	return nil
}

// CloseWindow closes the current page, leaving no current window
func (d *Driver) CloseWindow(ctx context.Context) error {
	t, err := d.tab()
	if err != nil {
		return err
	}
	if err := d.g.CloseTab(t.t); err != nil {
		return driver.Classify(err)
	}
	t.close()

	d.lock.Lock()
	delete(d.tabs, t.ID())
	for i, id := range d.order {
		if id == t.ID() {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	d.current = nil
	d.lock.Unlock()
	return nil
}

// MaximizeWindow of the current page
func (d *Driver) MaximizeWindow(ctx context.Context) error {
	t, err := d.tab()
	if err != nil {
		return err
	}
	windowID, _, err := t.t.Browser.GetWindowForTargetWithParams(&gcdapi.BrowserGetWindowForTargetParams{TargetId: t.ID()})
	if err != nil {
		return driver.Classify(err)
	}
	_, err = t.t.Browser.SetWindowBoundsWithParams(&gcdapi.BrowserSetWindowBoundsParams{
		WindowId: windowID,
		Bounds:   &gcdapi.BrowserBounds{WindowState: "maximized"},
	})
	return driver.Classify(err)
}

// SwitchFrame enters frame, an iframe or frame element of the current document
func (d *Driver) SwitchFrame(ctx context.Context, frame bbt.Element) error {
	t, err := d.tab()
	if err != nil {
		return err
	}
	el, ok := frame.(*Element)
	if !ok || el.tab != t {
		return errors.Wrap(bbt.ErrNoSuchFrame, "frame does not belong to the current window")
	}
	return t.enterFrame(ctx, el)
}

// SwitchDefault returns to the top level document
func (d *Driver) SwitchDefault(ctx context.Context) error {
	t, err := d.tab()
	if err != nil {
		return err
	}
	t.leaveFrames()
	return nil
}

// AlertPresent reports whether a javascript dialog is showing
func (d *Driver) AlertPresent(ctx context.Context) (bool, error) {
	t, err := d.tab()
	if err != nil {
		return false, err
	}
	if err := t.alive(ctx); err != nil {
		return false, err
	}
	return t.DialogOpen(), nil
}

// AcceptAlert accepts the showing dialog
func (d *Driver) AcceptAlert(ctx context.Context) error {
	t, err := d.tab()
	if err != nil {
		return err
	}
	if !t.DialogOpen() {
		return bbt.ErrNoAlert
	}
	return t.AcceptDialog(ctx)
}

// Close every tab and stop the browser process
func (d *Driver) Close() error {
	d.lock.Lock()
	for _, t := range d.tabs {
		t.close()
	}
	d.tabs = make(map[string]*Tab)
	d.order = nil
	d.current = nil
	d.lock.Unlock()

	if err := d.leaser.Return(d.port); err != nil {
		return errors.Wrap(err, "failed to stop chrome")
	}
	d.logger.Info().Msg("chrome stopped")
	return nil
}
