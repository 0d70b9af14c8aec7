// Package static is a browserless engine. It fetches pages over HTTP, queries the
// parsed markup and runs inline scripts in goja. There is no layout, so locations
// are always the origin and nothing is ever obscured.
package static

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/antchfx/htmlquery"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	uuid "github.com/satori/go.uuid"
	"gitlab.com/blackboxtests/bbt"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/publicsuffix"
)

const (
	maxBody      = 16 << 20
	maxRedirects = 10 // script driven, http redirects are followed by the client
	fetchTimeout = 45 * time.Second
)

// Driver holds the windows of one session and the cookie jar they share
type Driver struct {
	cfg     *bbt.Config
	client  *http.Client
	lock    sync.Mutex
	windows map[string]*window
	order   []string
	current *window
	closed  bool
	logger  zerolog.Logger
}

// window is a history of loaded urls plus the document on screen
type window struct {
	handle  string
	history []*url.URL
	idx     int
	doc     *document
	frames  []*document // entered frames, innermost last
	dialog  *dialog

	pending *url.URL   // navigation requested by a script
	opens   []*url.URL // windows requested by a script
}

// document queries run against
func (w *window) document() *document {
	if len(w.frames) > 0 {
		return w.frames[len(w.frames)-1]
	}
	return w.doc
}

// Open a session. Nothing is launched, the first window shows about:blank.
func Open(ctx context.Context, cfg *bbt.Config) (*Driver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cookie jar")
	}

	d := &Driver{
		cfg:     cfg,
		client:  &http.Client{Jar: jar, Timeout: fetchTimeout},
		windows: make(map[string]*window),
		logger:  log.With().Str("engine", string(bbt.Static)).Logger(),
	}
	d.current = d.newWindow()
	d.logger.Info().Msg("static engine started")
	return d, nil
}

func (d *Driver) newWindow() *window {
	w := &window{handle: uuid.NewV4().String(), doc: blankDocument()}
	w.history = []*url.URL{w.doc.url}
	d.windows[w.handle] = w
	d.order = append(d.order, w.handle)
	return w
}

// window returns the current window with the driver locked. Every operation holds
// the lock until it returns.
func (d *Driver) window(ctx context.Context) (*window, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	d.lock.Lock()
	if d.closed {
		d.lock.Unlock()
		return nil, nil, errors.Wrap(bbt.ErrSessionClosed, "driver closed")
	}
	if d.current == nil {
		d.lock.Unlock()
		return nil, nil, errors.Wrap(bbt.ErrNoSuchWindow, "the current window was closed")
	}
	return d.current, d.lock.Unlock, nil
}

// fetch a document. Error statuses still render, like in a browser.
func (d *Driver) fetch(ctx context.Context, method string, u *url.URL, form url.Values) (*document, error) {
	if u.String() == "about:blank" {
		return blankDocument(), nil
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &bbt.ConfigurationErr{Message: "unsupported url scheme " + u.Scheme}
	}

	var body io.Reader
	if method == http.MethodPost {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := d.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errors.Wrapf(err, "failed to fetch %s", u)
	}
	defer resp.Body.Close()

	src, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", u)
	}
	d.logger.Debug().Str("method", method).Str("url", resp.Request.URL.String()).Int("status", resp.StatusCode).Msg("fetched")
	return parseDocument(resp.Request.URL, string(src))
}

// load replaces w's document. push records a new history entry after the current one.
func (d *Driver) load(ctx context.Context, w *window, method string, u *url.URL, form url.Values, push bool) error {
	for i := 0; ; i++ {
		doc, err := d.fetch(ctx, method, u, form)
		if err != nil {
			return err
		}

		w.doc.leave()
		w.doc = doc
		w.frames = nil
		w.pending = nil
		if push {
			w.history = append(w.history[:w.idx+1], doc.url)
			w.idx = len(w.history) - 1
		} else {
			w.history[w.idx] = doc.url
		}

		if err := d.runtime(w, doc).scripts(ctx); err != nil {
			return err
		}
		if w.pending == nil || i >= maxRedirects {
			break
		}
		// a script redirect replaces nothing, it is a new entry like a link
		u, method, form, push = w.pending, http.MethodGet, nil, true
	}
	return d.openPending(ctx, w)
}

// settle follows whatever a script asked for while running in w
func (d *Driver) settle(ctx context.Context, w *window) error {
	if w.pending != nil {
		return d.load(ctx, w, http.MethodGet, w.pending, nil, true)
	}
	return d.openPending(ctx, w)
}

// openPending opens the windows scripts asked for, without switching to them
func (d *Driver) openPending(ctx context.Context, w *window) error {
	opens := w.opens
	w.opens = nil
	for _, u := range opens {
		if err := d.open(ctx, u); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) open(ctx context.Context, u *url.URL) error {
	w := d.newWindow()
	d.logger.Debug().Str("window", w.handle).Str("url", u.String()).Msg("window opened")
	return d.load(ctx, w, http.MethodGet, u, nil, false)
}

// Find in the current document
func (d *Driver) Find(ctx context.Context, by *bbt.Locator) ([]bbt.Element, error) {
	w, unlock, err := d.window(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()
	doc := w.document()
	found, err := query(doc.root, by)
	if err != nil {
		return nil, err
	}
	return d.wrap(w, doc, found), nil
}

func (d *Driver) wrap(w *window, doc *document, found []*html.Node) []bbt.Element {
	elements := make([]bbt.Element, len(found))
	for i, n := range found {
		elements[i] = &Element{d: d, w: w, doc: doc, node: n}
	}
	return elements
}

// Navigate the current window
func (d *Driver) Navigate(ctx context.Context, raw string) error {
	w, unlock, err := d.window(ctx)
	if err != nil {
		return err
	}
	defer unlock()
	u, err := w.doc.resolve(raw)
	if err != nil {
		return &bbt.ConfigurationErr{Message: err.Error()}
	}
	return d.load(ctx, w, http.MethodGet, u, nil, true)
}

// Refresh fetches the current entry again
func (d *Driver) Refresh(ctx context.Context) error {
	w, unlock, err := d.window(ctx)
	if err != nil {
		return err
	}
	defer unlock()
	return d.load(ctx, w, http.MethodGet, w.history[w.idx], nil, false)
}

// Back to the previous entry, a no-op on the first one
func (d *Driver) Back(ctx context.Context) error {
	w, unlock, err := d.window(ctx)
	if err != nil {
		return err
	}
	defer unlock()
	if w.idx == 0 {
		return nil
	}
	w.idx--
	return d.load(ctx, w, http.MethodGet, w.history[w.idx], nil, false)
}

// URL of the current window's top level document
func (d *Driver) URL(ctx context.Context) (string, error) {
	w, unlock, err := d.window(ctx)
	if err != nil {
		return "", err
	}
	defer unlock()
	return w.doc.url.String(), nil
}

// HTML of the current document, including any changes made to it
func (d *Driver) HTML(ctx context.Context) (string, error) {
	w, unlock, err := d.window(ctx)
	if err != nil {
		return "", err
	}
	defer unlock()
	root := w.document().root
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Html {
			return htmlquery.OutputHTML(c, true), nil
		}
	}
	return htmlquery.OutputHTML(root, false), nil
}

// ExecuteScript runs script as a function body in the current document
func (d *Driver) ExecuteScript(ctx context.Context, script string, args ...interface{}) (interface{}, error) {
	w, unlock, err := d.window(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()
	res, err := d.runtime(w, w.document()).exec(ctx, script, args...)
	if err != nil {
		return nil, err
	}
	return res, d.settle(ctx, w)
}

// Windows in the order they were opened
func (d *Driver) Windows(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.closed {
		return nil, errors.Wrap(bbt.ErrSessionClosed, "driver closed")
	}
	return append([]string(nil), d.order...), nil
}

// CurrentWindow handle
func (d *Driver) CurrentWindow(ctx context.Context) (string, error) {
	w, unlock, err := d.window(ctx)
	if err != nil {
		return "", err
	}
	defer unlock()
	return w.handle, nil
}

// SwitchWindow makes handle the current window
func (d *Driver) SwitchWindow(ctx context.Context, handle string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.closed {
		return errors.Wrap(bbt.ErrSessionClosed, "driver closed")
	}
	w, ok := d.windows[handle]
	if !ok {
		return errors.Wrap(bbt.ErrNoSuchWindow, handle)
	}
	d.current = w
	return nil
}

// CloseWindow closes the current window, leaving no current window
func (d *Driver) CloseWindow(ctx context.Context) error {
	w, unlock, err := d.window(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	w.doc.leave()
	delete(d.windows, w.handle)
	for i, handle := range d.order {
		if handle == w.handle {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	d.current = nil
	return nil
}

// MaximizeWindow does nothing, there is no window to resize
func (d *Driver) MaximizeWindow(ctx context.Context) error {
	_, unlock, err := d.window(ctx)
	if err != nil {
		return err
	}
	unlock()
	return nil
}

// SwitchFrame loads the frame's content, once per frame element, and enters it
func (d *Driver) SwitchFrame(ctx context.Context, frame bbt.Element) error {
	w, unlock, err := d.window(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	el, ok := frame.(*Element)
	if !ok || el.w != w || el.doc != w.document() {
		return errors.Wrap(bbt.ErrNoSuchFrame, "frame does not belong to the current document")
	}
	if !el.doc.attached(el.node) {
		return errors.Wrap(bbt.ErrStaleElement, "frame element is detached")
	}
	if el.node.DataAtom != atom.Iframe && el.node.DataAtom != atom.Frame {
		return errors.Wrapf(bbt.ErrNoSuchFrame, "%s is not a frame", el.node.Data)
	}

	doc, ok := el.doc.frames[el.node]
	if !ok {
		doc, err = d.frameDocument(ctx, el.doc, el.node)
		if err != nil {
			return err
		}
		el.doc.frames[el.node] = doc
		if err := d.runtime(w, doc).scripts(ctx); err != nil {
			return err
		}
	}
	w.frames = append(w.frames, doc)
	return nil
}

func (d *Driver) frameDocument(ctx context.Context, parent *document, n *html.Node) (*document, error) {
	if src, ok := attr(n, "srcdoc"); ok {
		u, _ := url.Parse("about:srcdoc")
		return parseDocument(u, src)
	}
	src, _ := attr(n, "src")
	if strings.TrimSpace(src) == "" {
		return blankDocument(), nil
	}
	u, err := parent.resolve(src)
	if err != nil {
		return nil, err
	}
	return d.fetch(ctx, http.MethodGet, u, nil)
}

// SwitchDefault returns to the top level document
func (d *Driver) SwitchDefault(ctx context.Context) error {
	w, unlock, err := d.window(ctx)
	if err != nil {
		return err
	}
	defer unlock()
	w.frames = nil
	return nil
}

// AlertPresent reports a dialog raised by a script and not yet accepted
func (d *Driver) AlertPresent(ctx context.Context) (bool, error) {
	w, unlock, err := d.window(ctx)
	if err != nil {
		return false, err
	}
	defer unlock()
	return w.dialog != nil, nil
}

// AcceptAlert dismisses the pending dialog
func (d *Driver) AcceptAlert(ctx context.Context) error {
	w, unlock, err := d.window(ctx)
	if err != nil {
		return err
	}
	defer unlock()
	if w.dialog == nil {
		return bbt.ErrNoAlert
	}
	d.logger.Debug().Str("type", w.dialog.kind).Str("message", w.dialog.message).Msg("dialog accepted")
	w.dialog = nil
	return nil
}

// Close every window. Later calls fail with ErrSessionClosed.
func (d *Driver) Close() error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.closed {
		return nil
	}
	for _, w := range d.windows {
		w.doc.leave()
	}
	d.windows = make(map[string]*window)
	d.order = nil
	d.current = nil
	d.closed = true
	d.client.CloseIdleConnections()
	d.logger.Info().Msg("static engine stopped")
	return nil
}
