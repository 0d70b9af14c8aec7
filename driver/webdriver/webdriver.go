// Package webdriver drives firefox and edge through a W3C WebDriver endpoint with
// tebeka/selenium. The endpoint (selenium server, geckodriver or msedgedriver) is
// started outside of this process.
package webdriver

import (
	"context"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/firefox"
	"gitlab.com/blackboxtests/bbt"
	"gitlab.com/blackboxtests/driver"
)

// Driver is one remote WebDriver session
type Driver struct {
	cfg    *bbt.Config
	wd     selenium.WebDriver
	lock   sync.Mutex
	closed bool // the current window was closed and no other was switched to
	logger zerolog.Logger
}

// Capabilities for the configured engine
func Capabilities(cfg *bbt.Config) (selenium.Capabilities, error) {
	switch cfg.Engine {
	case bbt.Firefox:
		caps := selenium.Capabilities{"browserName": "firefox"}
		f := firefox.Capabilities{}
		if cfg.Headless {
			f.Args = append(f.Args, "-headless")
		}
		f.Args = append(f.Args, "--width="+strconv.Itoa(cfg.WindowWidth), "--height="+strconv.Itoa(cfg.WindowHeight))
		caps.AddFirefox(f)
		return caps, nil
	case bbt.Edge:
		args := []string{"--window-size=" + strconv.Itoa(cfg.WindowWidth) + "," + strconv.Itoa(cfg.WindowHeight)}
		if cfg.Headless {
			args = append(args, "--headless")
		}
		options := map[string]interface{}{"args": args}
		if bin := driver.FindEdge(cfg.EdgePath); bin != "" {
			options["binary"] = bin
		}
		return selenium.Capabilities{
			"browserName":    "MicrosoftEdge",
			"ms:edgeOptions": options,
		}, nil
	}
	return nil, &bbt.ConfigurationErr{Message: "webdriver does not drive " + string(cfg.Engine)}
}

// Open a session against cfg.WebDriverURL
func Open(ctx context.Context, cfg *bbt.Config) (*Driver, error) {
	caps, err := Capabilities(cfg)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	wd, err := selenium.NewRemote(caps, cfg.WebDriverURL)
	if err != nil {
		return nil, errors.Wrapf(classify(err), "failed to start %s session at %s", cfg.Engine, cfg.WebDriverURL)
	}

	d := &Driver{
		cfg:    cfg,
		wd:     wd,
		logger: log.With().Str("engine", string(cfg.Engine)).Str("session", wd.SessionID()).Logger(),
	}
	d.logger.Info().Msg("webdriver session started")
	return d, nil
}

// ready fails once ctx is done or the current window is gone. WebDriver calls can
// not be cancelled, so ctx is only checked between them.
func (d *Driver) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.closed {
		return errors.Wrap(bbt.ErrNoSuchWindow, "the current window was closed")
	}
	return nil
}

// Find in the current window and frame
func (d *Driver) Find(ctx context.Context, by *bbt.Locator) ([]bbt.Element, error) {
	if err := d.ready(ctx); err != nil {
		return nil, err
	}
	using, value, err := query(by)
	if err != nil {
		return nil, err
	}
	found, err := d.wd.FindElements(using, value)
	if err != nil {
		return nil, classify(err)
	}
	return d.wrap(found), nil
}

func (d *Driver) wrap(found []selenium.WebElement) []bbt.Element {
	elements := make([]bbt.Element, len(found))
	for i, we := range found {
		elements[i] = &Element{d: d, we: we}
	}
	return elements
}

// query uses the endpoint's own strategy where W3C defines one. id and name are not
// W3C strategies and go through a css query.
func query(by *bbt.Locator) (string, string, error) {
	switch by.Strategy() {
	case bbt.LinkText, bbt.PartialLinkText, bbt.TagName, bbt.XPath, bbt.CSSSelector:
		strategy, err := by.WebDriverBy()
		if err != nil {
			return "", "", err
		}
		return strategy, by.Key(), nil
	}

	q, err := by.Query()
	if err != nil {
		return "", "", err
	}
	if q.Kind == bbt.QueryXPath {
		return selenium.ByXPATH, q.Expr, nil
	}
	return selenium.ByCSSSelector, q.Expr, nil
}

// Navigate the current window, the endpoint waits for the load
func (d *Driver) Navigate(ctx context.Context, url string) error {
	if err := d.ready(ctx); err != nil {
		return err
	}
	return classify(d.wd.Get(url))
}

// Refresh the current window
func (d *Driver) Refresh(ctx context.Context) error {
	if err := d.ready(ctx); err != nil {
		return err
	}
	return classify(d.wd.Refresh())
}

// Back in the current window's history
func (d *Driver) Back(ctx context.Context) error {
	if err := d.ready(ctx); err != nil {
		return err
	}
	return classify(d.wd.Back())
}

// URL of the current window
func (d *Driver) URL(ctx context.Context) (string, error) {
	if err := d.ready(ctx); err != nil {
		return "", err
	}
	url, err := d.wd.CurrentURL()
	return url, classify(err)
}

// HTML of the current document
func (d *Driver) HTML(ctx context.Context) (string, error) {
	if err := d.ready(ctx); err != nil {
		return "", err
	}
	src, err := d.wd.PageSource()
	return src, classify(err)
}

// ExecuteScript in the current document, elements are passed as references
func (d *Driver) ExecuteScript(ctx context.Context, script string, args ...interface{}) (interface{}, error) {
	if err := d.ready(ctx); err != nil {
		return nil, err
	}
	wdArgs := make([]interface{}, len(args))
	for i, arg := range args {
		if el, ok := arg.(*Element); ok {
			wdArgs[i] = el.we
			continue
		}
		wdArgs[i] = arg
	}
	res, err := d.wd.ExecuteScript(script, wdArgs)
	return res, classify(err)
}

// Windows in the order the endpoint reports them
func (d *Driver) Windows(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	handles, err := d.wd.WindowHandles()
	return handles, classify(err)
}

// CurrentWindow handle
func (d *Driver) CurrentWindow(ctx context.Context) (string, error) {
	if err := d.ready(ctx); err != nil {
		return "", err
	}
	handle, err := d.wd.CurrentWindowHandle()
	return handle, classify(err)
}

// SwitchWindow to handle
func (d *Driver) SwitchWindow(ctx context.Context, handle string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := d.wd.SwitchWindow(handle); err != nil {
		return classify(err)
	}
	d.lock.Lock()
	d.closed = false
	d.lock.Unlock()
	return nil
}

// CloseWindow closes the current window, leaving no current window
func (d *Driver) CloseWindow(ctx context.Context) error {
	if err := d.ready(ctx); err != nil {
		return err
	}
	if err := d.wd.Close(); err != nil {
		return classify(err)
	}
	d.lock.Lock()
	d.closed = true
	d.lock.Unlock()
	return nil
}

// MaximizeWindow the current window
func (d *Driver) MaximizeWindow(ctx context.Context) error {
	if err := d.ready(ctx); err != nil {
		return err
	}
	return classify(d.wd.MaximizeWindow(""))
}

// SwitchFrame enters frame
func (d *Driver) SwitchFrame(ctx context.Context, frame bbt.Element) error {
	if err := d.ready(ctx); err != nil {
		return err
	}
	el, ok := frame.(*Element)
	if !ok || el.d != d {
		return errors.Wrap(bbt.ErrNoSuchFrame, "frame does not belong to this session")
	}
	return classify(d.wd.SwitchFrame(el.we))
}

// SwitchDefault returns to the top level document
func (d *Driver) SwitchDefault(ctx context.Context) error {
	if err := d.ready(ctx); err != nil {
		return err
	}
	return classify(d.wd.SwitchFrame(nil))
}

// AlertPresent when the endpoint reports alert text
func (d *Driver) AlertPresent(ctx context.Context) (bool, error) {
	if err := d.ready(ctx); err != nil {
		return false, err
	}
	_, err := d.wd.AlertText()
	if err == nil {
		return true, nil
	}
	err = classify(err)
	if errors.Is(err, bbt.ErrNoAlert) {
		return false, nil
	}
	return false, err
}

// AcceptAlert accepts the showing dialog
func (d *Driver) AcceptAlert(ctx context.Context) error {
	if err := d.ready(ctx); err != nil {
		return err
	}
	return classify(d.wd.AcceptAlert())
}

// Close ends the session and every window in it
func (d *Driver) Close() error {
	if err := d.wd.Quit(); err != nil {
		return errors.Wrap(classify(err), "failed to end webdriver session")
	}
	d.logger.Info().Msg("webdriver session ended")
	return nil
}
