// Package webkit drives playwright's WebKit build
package webkit

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	uuid "github.com/satori/go.uuid"
	"gitlab.com/blackboxtests/bbt"
	"gitlab.com/blackboxtests/driver"
)

// Driver owns the playwright server, one WebKit browser and a single context in it
type Driver struct {
	cfg     *bbt.Config
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	lock    sync.Mutex
	windows map[string]*window
	order   []string
	current *window
	timeout float64 // per action, in milliseconds
	logger  zerolog.Logger
}

// Open starts the playwright driver and launches WebKit. The browsers must already
// be installed, Open never downloads them.
func Open(ctx context.Context, cfg *bbt.Config) (*Driver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pw, err := playwright.Run(&playwright.RunOptions{SkipInstallBrowsers: true})
	if err != nil {
		return nil, errors.Wrap(err, "failed to start playwright")
	}

	browser, err := pw.WebKit.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
	})
	if err != nil {
		pw.Stop()
		return nil, errors.Wrap(err, "failed to launch webkit")
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: cfg.WindowWidth, Height: cfg.WindowHeight},
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, errors.Wrap(err, "failed to create browser context")
	}

	d := &Driver{
		cfg:     cfg,
		pw:      pw,
		browser: browser,
		context: bctx,
		windows: make(map[string]*window),
		timeout: actionTimeout(cfg),
		logger:  log.With().Str("engine", string(bbt.WebKit)).Logger(),
	}
	bctx.OnPage(func(p playwright.Page) {
		d.addWindow(p)
	})

	page, err := bctx.NewPage()
	if err != nil {
		d.Close()
		return nil, classify(err)
	}
	// OnPage may already have registered it
	w := d.addWindow(page)
	d.lock.Lock()
	d.current = w
	d.lock.Unlock()
	d.logger.Info().Str("version", browser.Version()).Msg("webkit started")
	return d, nil
}

// actions fail after a poll interval so the session's own retries stay in charge
func actionTimeout(cfg *bbt.Config) float64 {
	ms := float64(cfg.PollInterval / time.Millisecond)
	if ms < 100 {
		ms = 100
	}
	return ms
}

// addWindow registers p under a fresh handle, once
func (d *Driver) addWindow(p playwright.Page) *window {
	d.lock.Lock()
	defer d.lock.Unlock()
	if w := d.lookup(p); w != nil {
		return w
	}

	w := newWindow(uuid.NewV4().String(), p)
	d.windows[w.handle] = w
	d.order = append(d.order, w.handle)
	p.OnClose(func(playwright.Page) {
		d.removeWindow(w)
	})
	return w
}

func (d *Driver) lookup(p playwright.Page) *window {
	for _, w := range d.windows {
		if w.page == p {
			return w
		}
	}
	return nil
}

func (d *Driver) removeWindow(w *window) {
	d.lock.Lock()
	defer d.lock.Unlock()
	delete(d.windows, w.handle)
	for i, handle := range d.order {
		if handle == w.handle {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	if d.current == w {
		d.current = nil
	}
}

func (d *Driver) window(ctx context.Context) (*window, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.current == nil {
		return nil, errors.Wrap(bbt.ErrNoSuchWindow, "the current window was closed")
	}
	return d.current, nil
}

// Find in the current document
func (d *Driver) Find(ctx context.Context, by *bbt.Locator) ([]bbt.Element, error) {
	w, err := d.window(ctx)
	if err != nil {
		return nil, err
	}
	selector, err := selectorFor(by)
	if err != nil {
		return nil, err
	}
	found, err := w.document().QuerySelectorAll(selector)
	if err != nil {
		return nil, classify(err)
	}
	return w.wrap(d, found), nil
}

func selectorFor(by *bbt.Locator) (string, error) {
	q, err := by.Query()
	if err != nil {
		return "", err
	}
	if q.Kind == bbt.QueryXPath {
		return "xpath=" + q.Expr, nil
	}
	return "css=" + q.Expr, nil
}

// Navigate the current page and wait for its load event
func (d *Driver) Navigate(ctx context.Context, url string) error {
	w, err := d.window(ctx)
	if err != nil {
		return err
	}
	w.leaveFrames()
	_, err = w.page.Goto(url, playwright.PageGotoOptions{WaitUntil: playwright.WaitUntilStateLoad})
	return classify(err)
}

// Refresh the current page
func (d *Driver) Refresh(ctx context.Context) error {
	w, err := d.window(ctx)
	if err != nil {
		return err
	}
	w.leaveFrames()
	_, err = w.page.Reload(playwright.PageReloadOptions{WaitUntil: playwright.WaitUntilStateLoad})
	return classify(err)
}

// Back in the current page's history, a no-op on the first entry
func (d *Driver) Back(ctx context.Context) error {
	w, err := d.window(ctx)
	if err != nil {
		return err
	}
	w.leaveFrames()
	_, err = w.page.GoBack(playwright.PageGoBackOptions{WaitUntil: playwright.WaitUntilStateLoad})
	return classify(err)
}

// URL of the current page
func (d *Driver) URL(ctx context.Context) (string, error) {
	w, err := d.window(ctx)
	if err != nil {
		return "", err
	}
	return w.page.URL(), nil
}

// HTML of the current document
func (d *Driver) HTML(ctx context.Context) (string, error) {
	w, err := d.window(ctx)
	if err != nil {
		return "", err
	}
	html, err := w.document().Content()
	return html, classify(err)
}

// ExecuteScript runs script as a function body in the current document
func (d *Driver) ExecuteScript(ctx context.Context, script string, args ...interface{}) (interface{}, error) {
	w, err := d.window(ctx)
	if err != nil {
		return nil, err
	}
	pwArgs := make([]interface{}, len(args))
	for i, arg := range args {
		if el, ok := arg.(*Element); ok {
			pwArgs[i] = el.handle
			continue
		}
		pwArgs[i] = arg
	}
	res, err := w.document().Evaluate("(args) => (function () {\n"+script+"\n}).apply(window, args)", pwArgs)
	return res, classify(err)
}

// Windows in the order they were opened
func (d *Driver) Windows(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.lock.Lock()
	defer d.lock.Unlock()
	return append([]string(nil), d.order...), nil
}

// CurrentWindow handle
func (d *Driver) CurrentWindow(ctx context.Context) (string, error) {
	w, err := d.window(ctx)
	if err != nil {
		return "", err
	}
	return w.handle, nil
}

// SwitchWindow brings the page with handle to the front
func (d *Driver) SwitchWindow(ctx context.Context, handle string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.lock.Lock()
	w, ok := d.windows[handle]
	d.lock.Unlock()
	if !ok {
		return errors.Wrap(bbt.ErrNoSuchWindow, handle)
	}
	if err := w.page.BringToFront(); err != nil {
		return classify(err)
	}
	d.lock.Lock()
	d.current = w
	d.lock.Unlock()
	return nil
}

// CloseWindow closes the current page, leaving no current window
func (d *Driver) CloseWindow(ctx context.Context) error {
	w, err := d.window(ctx)
	if err != nil {
		return err
	}
	if err := w.page.Close(); err != nil {
		return classify(err)
	}
	d.removeWindow(w)
	return nil
}

// MaximizeWindow grows the viewport to the available screen, WebKit pages have no
// window of their own to maximize
func (d *Driver) MaximizeWindow(ctx context.Context) error {
	w, err := d.window(ctx)
	if err != nil {
		return err
	}
	v, err := w.page.Evaluate("() => ({ x: screen.availWidth, y: screen.availHeight })")
	if err != nil {
		return classify(err)
	}
	width, height, err := driver.ToFloatPoint(v)
	if err != nil {
		return err
	}
	return classify(w.page.SetViewportSize(int(width), int(height)))
}

// SwitchFrame enters frame
func (d *Driver) SwitchFrame(ctx context.Context, frame bbt.Element) error {
	w, err := d.window(ctx)
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
	w, err := d.window(ctx)
	if err != nil {
		return err
	}
	w.leaveFrames()
	return nil
}

// AlertPresent reports whether a dialog is waiting to be handled
func (d *Driver) AlertPresent(ctx context.Context) (bool, error) {
	w, err := d.window(ctx)
	if err != nil {
		return false, err
	}
	return w.pendingDialog() != nil, nil
}

// AcceptAlert accepts the waiting dialog
func (d *Driver) AcceptAlert(ctx context.Context) error {
	w, err := d.window(ctx)
	if err != nil {
		return err
	}
	dialog := w.takeDialog()
	if dialog == nil {
		return bbt.ErrNoAlert
	}
	return classify(dialog.Accept())
}

// Close the context, the browser and the playwright server
func (d *Driver) Close() error {
	d.lock.Lock()
	d.windows = make(map[string]*window)
	d.order = nil
	d.current = nil
	d.lock.Unlock()

	if err := d.context.Close(); err != nil {
		d.logger.Warn().Err(err).Msg("context did not close cleanly")
	}
	if err := d.browser.Close(); err != nil {
		d.logger.Warn().Err(err).Msg("browser did not close cleanly")
	}
	if err := d.pw.Stop(); err != nil {
		return errors.Wrap(err, "failed to stop playwright")
	}
	d.logger.Info().Msg("webkit stopped")
	return nil
}

func classify(err error) error {
	return driver.Classify(err)
}
