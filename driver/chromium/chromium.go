// Package chromium drives a chromium build through rod
package chromium

import (
	"context"
	"strconv"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gitlab.com/blackboxtests/bbt"
	"gitlab.com/blackboxtests/driver"
)

// Driver owns one launched chromium and the pages it has seen
type Driver struct {
	cfg      *bbt.Config
	launcher *launcher.Launcher
	browser  *rod.Browser
	lock     sync.Mutex
	windows  map[proto.TargetTargetID]*window
	order    []proto.TargetTargetID
	current  *window
	logger   zerolog.Logger
}

// Open launches chromium, from the configured path or the one found on this host.
// rod would otherwise download a browser, which tests must never do.
func Open(ctx context.Context, cfg *bbt.Config) (*Driver, error) {
	bin := cfg.ChromePath
	if bin == "" {
		found, ok := launcher.LookPath()
		if !ok {
			return nil, driver.ErrNoBrowser
		}
		bin = found
	}

	profile, err := driver.RandProfile(driver.TmpDir(cfg.TmpDir))
	if err != nil {
		return nil, err
	}

	l := launcher.New().
		Context(ctx).
		Bin(bin).
		Headless(cfg.Headless).
		UserDataDir(profile).
		Set("window-size", strconv.Itoa(cfg.WindowWidth)+","+strconv.Itoa(cfg.WindowHeight))
	u, err := l.Launch()
	if err != nil {
		l.Cleanup()
		return nil, errors.Wrap(err, "failed to launch chromium")
	}

	// the launch context only bounds startup, the browser lives until Close
	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		return nil, errors.Wrap(err, "failed to connect to chromium")
	}

	d := &Driver{
		cfg:      cfg,
		launcher: l,
		browser:  browser,
		windows:  make(map[proto.TargetTargetID]*window),
		logger:   log.With().Str("engine", string(bbt.Chromium)).Int("pid", l.PID()).Logger(),
	}

	if err := d.refreshWindows(); err != nil {
		d.Close()
		return nil, err
	}
	if len(d.order) == 0 {
		page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
		if err != nil {
			d.Close()
			return nil, classify(err)
		}
		d.lock.Lock()
		d.addWindow(page)
		d.lock.Unlock()
	}
	d.current = d.windows[d.order[0]]
	d.logger.Info().Msg("chromium started")
	return d, nil
}

func (d *Driver) addWindow(page *rod.Page) {
	w := newWindow(page)
	d.windows[page.TargetID] = w
	d.order = append(d.order, page.TargetID)
}

// refreshWindows attaches to pages opened since the last call and forgets closed ones.
// Handles keep the order they were first seen in.
func (d *Driver) refreshWindows() error {
	targets, err := proto.TargetGetTargets{}.Call(d.browser)
	if err != nil {
		return classify(err)
	}

	open := make(map[proto.TargetTargetID]struct{}, len(targets.TargetInfos))
	var fresh []proto.TargetTargetID
	d.lock.Lock()
	for _, target := range targets.TargetInfos {
		if target.Type != proto.TargetTargetInfoTypePage {
			continue
		}
		open[target.TargetID] = struct{}{}
		if _, ok := d.windows[target.TargetID]; !ok {
			fresh = append(fresh, target.TargetID)
		}
	}

	order := d.order[:0]
	for _, id := range d.order {
		if _, ok := open[id]; !ok {
			d.windows[id].close()
			delete(d.windows, id)
			if d.current != nil && d.current.id() == id {
				d.current = nil
			}
			continue
		}
		order = append(order, id)
	}
	d.order = order
	d.lock.Unlock()

	for _, id := range fresh {
		page, err := d.browser.PageFromTarget(id)
		if err != nil {
			// closed between the listing and the attach
			d.logger.Debug().Err(err).Str("target", string(id)).Msg("skipping page")
			continue
		}
		d.lock.Lock()
		d.addWindow(page)
		d.lock.Unlock()
	}
	return nil
}

func (d *Driver) window() (*window, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.current == nil {
		return nil, errors.Wrap(bbt.ErrNoSuchWindow, "the current window was closed")
	}
	return d.current, nil
}

// Find in the current document
func (d *Driver) Find(ctx context.Context, by *bbt.Locator) ([]bbt.Element, error) {
	w, err := d.window()
	if err != nil {
		return nil, err
	}
	q, err := by.Query()
	if err != nil {
		return nil, err
	}

	doc := w.document().Context(ctx)
	var found rod.Elements
	if q.Kind == bbt.QueryXPath {
		found, err = doc.ElementsX(q.Expr)
	} else {
		found, err = doc.Elements(q.Expr)
	}
	if err != nil {
		return nil, classify(err)
	}
	return w.wrap(found), nil
}

// Navigate the current page and wait for its load event
func (d *Driver) Navigate(ctx context.Context, url string) error {
	w, err := d.window()
	if err != nil {
		return err
	}
	return w.navigation(ctx, func(p *rod.Page) error {
		return p.Navigate(url)
	})
}

// Refresh the current page
func (d *Driver) Refresh(ctx context.Context) error {
	w, err := d.window()
	if err != nil {
		return err
	}
	return w.navigation(ctx, func(p *rod.Page) error {
		return p.Reload()
	})
}

// Back in the current page's history
func (d *Driver) Back(ctx context.Context) error {
	w, err := d.window()
	if err != nil {
		return err
	}
	history, err := w.page.Context(ctx).GetNavigationHistory()
	if err != nil {
		return classify(err)
	}
	if history.CurrentIndex <= 0 {
		return nil
	}
	return w.navigation(ctx, func(p *rod.Page) error {
		return p.NavigateBack()
	})
}

// URL of the current page
func (d *Driver) URL(ctx context.Context) (string, error) {
	w, err := d.window()
	if err != nil {
		return "", err
	}
	info, err := w.page.Context(ctx).Info()
	if err != nil {
		return "", classify(err)
	}
	return info.URL, nil
}

// HTML of the current document
func (d *Driver) HTML(ctx context.Context) (string, error) {
	w, err := d.window()
	if err != nil {
		return "", err
	}
	html, err := w.document().Context(ctx).HTML()
	return html, classify(err)
}

// ExecuteScript runs script as a function body in the current document. Elements
// are passed by reference, results come back by value.
func (d *Driver) ExecuteScript(ctx context.Context, script string, args ...interface{}) (interface{}, error) {
	w, err := d.window()
	if err != nil {
		return nil, err
	}
	jsArgs := make([]interface{}, len(args))
	for i, arg := range args {
		el, ok := arg.(*Element)
		if !ok {
			jsArgs[i] = arg
			continue
		}
		if el.window != w {
			return nil, errors.Wrap(bbt.ErrStaleElement, "element belongs to another window")
		}
		jsArgs[i] = el.el.Object
	}
	res, err := w.document().Context(ctx).Evaluate(rod.Eval("function () {\n"+script+"\n}", jsArgs...))
	if err != nil {
		return nil, classify(err)
	}
	return res.Value.Val(), nil
}

// Windows returns the target ids of the open pages in the order they were seen
func (d *Driver) Windows(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := d.refreshWindows(); err != nil {
		return nil, err
	}
	d.lock.Lock()
	defer d.lock.Unlock()
	handles := make([]string, len(d.order))
	for i, id := range d.order {
		handles[i] = string(id)
	}
	return handles, nil
}

// CurrentWindow handle
func (d *Driver) CurrentWindow(ctx context.Context) (string, error) {
	w, err := d.window()
	if err != nil {
		return "", err
	}
	return string(w.id()), nil
}

// SwitchWindow activates the page with handle
func (d *Driver) SwitchWindow(ctx context.Context, handle string) error {
	if err := d.refreshWindows(); err != nil {
		return err
	}

	d.lock.Lock()
	w, ok := d.windows[proto.TargetTargetID(handle)]
	d.lock.Unlock()
	if !ok {
		return errors.Wrap(bbt.ErrNoSuchWindow, handle)
	}
	if _, err := w.page.Context(ctx).Activate(); err != nil {
		return classify(err)
	}

	d.lock.Lock()
	d.current = w
	d.lock.Unlock()
	return nil
}

// CloseWindow closes the current page, leaving no current window
func (d *Driver) CloseWindow(ctx context.Context) error {
	w, err := d.window()
	if err != nil {
		return err
	}
	if err := w.page.Context(ctx).Close(); err != nil {
		return classify(err)
	}
	w.close()

	d.lock.Lock()
	delete(d.windows, w.id())
	for i, id := range d.order {
		if id == w.id() {
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
	w, err := d.window()
	if err != nil {
		return err
	}
	err = w.page.Context(ctx).SetWindow(&proto.BrowserBounds{WindowState: proto.BrowserWindowStateMaximized})
	return classify(err)
}

// SwitchFrame enters frame, an iframe or frame element of the current document
func (d *Driver) SwitchFrame(ctx context.Context, frame bbt.Element) error {
	w, err := d.window()
	if err != nil {
		return err
	}
	el, ok := frame.(*Element)
	if !ok || el.window != w {
		return errors.Wrap(bbt.ErrNoSuchFrame, "frame does not belong to the current window")
	}
	return w.enterFrame(ctx, el)
}

// SwitchDefault returns to the top level document
func (d *Driver) SwitchDefault(ctx context.Context) error {
	w, err := d.window()
	if err != nil {
		return err
	}
	w.leaveFrames()
	return nil
}

// AlertPresent reports whether a javascript dialog is showing
func (d *Driver) AlertPresent(ctx context.Context) (bool, error) {
	w, err := d.window()
	if err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return w.dialogOpen(), nil
}

// AcceptAlert accepts the showing dialog
func (d *Driver) AcceptAlert(ctx context.Context) error {
	w, err := d.window()
	if err != nil {
		return err
	}
	if !w.dialogOpen() {
		return bbt.ErrNoAlert
	}
	err = proto.PageHandleJavaScriptDialog{Accept: true}.Call(w.page.Context(ctx))
	if err != nil {
		return classify(err)
	}
	w.setDialogOpen(false)
	return nil
}

// Close the browser and remove its profile
func (d *Driver) Close() error {
	d.lock.Lock()
	for _, w := range d.windows {
		w.close()
	}
	d.windows = make(map[proto.TargetTargetID]*window)
	d.order = nil
	d.current = nil
	d.lock.Unlock()

	err := d.browser.Close()
	d.launcher.Kill()
	d.launcher.Cleanup()
	if err != nil {
		d.logger.Warn().Err(err).Msg("browser did not close cleanly")
	}
	d.logger.Info().Msg("chromium stopped")
	return nil
}
