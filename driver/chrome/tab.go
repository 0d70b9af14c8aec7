package chrome

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/wirepair/gcd"
	"github.com/wirepair/gcd/gcdapi"
	"gitlab.com/blackboxtests/bbt"
	"gitlab.com/blackboxtests/driver"
)

const objectGroup = "blackboxtests"

// revive:exported
var (
	ErrNavigationTimedOut = errors.New("navigation timed out")
	ErrNavigating         = errors.New("error in navigation")
)

const callWrapper = `function (__args, ...__elements) {
  var args = JSON.parse(__args).map(function (a) {
    return a !== null && typeof a === "object" && a.__bbt_element !== undefined ? __elements[a.__bbt_element] : a;
  });
  return (%s).apply(this, args);
}`

type elementArg struct {
	Index int `json:"__bbt_element"`
}

// Tab is one page target of the browser, the unit a window handle refers to
type Tab struct {
	g                 *gcd.Gcd
	t                 *gcd.ChromeTarget
	frameLock         sync.Mutex
	frames            []string     // objectIds of the frame elements entered, outermost first
	frameDoc          string       // objectId of the current frame's document, empty for the top level
	isNavigatingFlag  atomic.Value // between Page.navigate and Page.loadEventFired
	dialogFlag        atomic.Value // a javascript dialog is showing
	crashed           atomic.Value // reason the target went away
	navigationCh      chan struct{}
	dialogCh          chan struct{}
	exitCh            chan struct{}
	closeOnce         sync.Once
	navigationTimeout time.Duration
}

func newTab(g *gcd.Gcd, target *gcd.ChromeTarget, navigationTimeout time.Duration) *Tab {
	t := &Tab{
		g:                 g,
		t:                 target,
		navigationCh:      make(chan struct{}, 1),
		dialogCh:          make(chan struct{}, 1),
		exitCh:            make(chan struct{}),
		navigationTimeout: navigationTimeout,
	}
	t.subscribeBrowserEvents()
	return t
}

// ID of the target, used as the window handle
func (t *Tab) ID() string {
	return t.t.Target.Id
}

func (t *Tab) close() {
	t.closeOnce.Do(func() {
		close(t.exitCh)
	})
}

func (t *Tab) alive(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if reason, ok := t.crashed.Load().(string); ok && reason != "" {
		return errors.Wrap(bbt.ErrSessionClosed, reason)
	}
	select {
	case <-t.exitCh:
		return bbt.ErrNoSuchWindow
	default:
	}
	return nil
}

func (t *Tab) setIsNavigating(set bool) {
	t.isNavigatingFlag.Store(set)
}

// IsNavigating answers if we currently navigating
func (t *Tab) IsNavigating() bool {
	if flag, ok := t.isNavigatingFlag.Load().(bool); ok {
		return flag
	}
	return false
}

func (t *Tab) setDialogOpen(open bool) {
	t.dialogFlag.Store(open)
}

// DialogOpen reports whether an alert, confirm or prompt is showing
func (t *Tab) DialogOpen() bool {
	if flag, ok := t.dialogFlag.Load().(bool); ok {
		return flag
	}
	return false
}

// Navigate to url and wait for the load event
func (t *Tab) Navigate(ctx context.Context, url string) error {
	return t.navigation(ctx, func() error {
		_, _, errText, err := t.t.Page.NavigateWithParams(&gcdapi.PageNavigateParams{Url: url, TransitionType: "typed"})
		if err != nil {
			return err
		}
		if errText != "" {
			return errors.Wrap(ErrNavigating, errText)
		}
		return nil
	})
}

// Reload the page, ignoring nothing in the cache
func (t *Tab) Reload(ctx context.Context) error {
	return t.navigation(ctx, func() error {
		_, err := t.t.Page.Reload(false, "")
		return err
	})
}

// Back to the previous navigation entry. Does nothing on the first entry.
func (t *Tab) Back(ctx context.Context) error {
	idx, entries, err := t.t.Page.GetNavigationHistory()
	if err != nil {
		return driver.Classify(err)
	}
	if idx <= 0 || idx > len(entries)-1 {
		return nil
	}
	prev := entries[idx-1]
	return t.navigation(ctx, func() error {
		_, err := t.t.Page.NavigateToHistoryEntry(prev.Id)
		return err
	})
}

func (t *Tab) navigation(ctx context.Context, navigate func() error) error {
	if err := t.alive(ctx); err != nil {
		return err
	}
	// drop a load event left over from an abandoned wait
	select {
	case <-t.navigationCh:
	default:
	}

	t.setIsNavigating(true)
	defer t.setIsNavigating(false)
	if err := navigate(); err != nil {
		return driver.Classify(err)
	}
	t.leaveFrames()
	return t.waitLoad(ctx)
}

func (t *Tab) waitLoad(ctx context.Context) error {
	timer := time.NewTimer(t.navigationTimeout)
	defer timer.Stop()

	select {
	case <-timer.C:
		return ErrNavigationTimedOut
	case <-ctx.Done():
		return ctx.Err()
	case <-t.exitCh:
		return bbt.ErrNoSuchWindow
	case <-t.navigationCh:
		return nil
	}
}

// URL of the top level document, by looking at the navigation history
func (t *Tab) URL(ctx context.Context) (string, error) {
	if err := t.alive(ctx); err != nil {
		return "", err
	}
	idx, entries, err := t.t.Page.GetNavigationHistory()
	if err != nil {
		return "", driver.Classify(err)
	}
	if idx < 0 || idx >= len(entries) {
		return "", nil
	}
	return entries[idx].Url, nil
}

// evaluate an expression in the top level context
func (t *Tab) evaluate(ctx context.Context, expression string, byValue bool) (*gcdapi.RuntimeRemoteObject, error) {
	if err := t.alive(ctx); err != nil {
		return nil, err
	}
	params := &gcdapi.RuntimeEvaluateParams{
		Expression:            expression,
		ObjectGroup:           objectGroup,
		IncludeCommandLineAPI: false,
		Silent:                true,
		ReturnByValue:         byValue,
		GeneratePreview:       false,
		UserGesture:           false,
		AwaitPromise:          false,
		ThrowOnSideEffect:     false,
		Timeout:               1000,
	}
	r, exp, err := t.t.Runtime.EvaluateWithParams(params)
	if err != nil {
		return nil, driver.Classify(err)
	}
	if exp != nil {
		return nil, exceptionErr(exp)
	}
	return r, nil
}

// callOn runs fn with objectID as this. Arguments that are elements of this tab are
// passed by reference, everything else as JSON.
func (t *Tab) callOn(ctx context.Context, objectID, fn string, byValue bool, args ...interface{}) (*gcdapi.RuntimeRemoteObject, error) {
	if err := t.alive(ctx); err != nil {
		return nil, err
	}

	values := make([]interface{}, len(args))
	callArgs := []*gcdapi.RuntimeCallArgument{nil}
	for i, arg := range args {
		el, ok := arg.(*Element)
		if !ok {
			values[i] = arg
			continue
		}
		if el.tab != t {
			return nil, errors.Wrap(bbt.ErrStaleElement, "element belongs to another window")
		}
		values[i] = elementArg{Index: len(callArgs) - 1}
		callArgs = append(callArgs, &gcdapi.RuntimeCallArgument{ObjectId: el.objectID})
	}
	encoded, err := json.Marshal(values)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode script arguments")
	}
	callArgs[0] = &gcdapi.RuntimeCallArgument{Value: string(encoded)}

	params := &gcdapi.RuntimeCallFunctionOnParams{
		FunctionDeclaration: fmt.Sprintf(callWrapper, fn),
		ObjectId:            objectID,
		Arguments:           callArgs,
		Silent:              true,
		ReturnByValue:       byValue,
		ObjectGroup:         objectGroup,
	}
	r, exp, err := t.t.Runtime.CallFunctionOnWithParams(params)
	if err != nil {
		return nil, driver.Classify(err)
	}
	if exp != nil {
		return nil, exceptionErr(exp)
	}
	return r, nil
}

// root is the document queries start from, the innermost frame's when one was entered
func (t *Tab) root(ctx context.Context) (string, error) {
	t.frameLock.Lock()
	doc := t.frameDoc
	t.frameLock.Unlock()
	if doc != "" {
		return doc, nil
	}

	r, err := t.evaluate(ctx, "document", false)
	if err != nil {
		return "", err
	}
	return r.ObjectId, nil
}

// elements reads the array objectID into element handles
func (t *Tab) elements(ctx context.Context, arrayID string) ([]bbt.Element, error) {
	r, err := t.callOn(ctx, arrayID, "function () { return this.length; }", true)
	if err != nil {
		return nil, err
	}
	length, ok := r.Value.(float64)
	if !ok {
		return nil, errors.Errorf("expected array length got %T", r.Value)
	}

	elements := make([]bbt.Element, 0, int(length))
	for i := 0; i < int(length); i++ {
		item, err := t.callOn(ctx, arrayID, "function (i) { return this[i]; }", false, i)
		if err != nil {
			return nil, err
		}
		elements = append(elements, &Element{tab: t, objectID: item.ObjectId})
	}
	return elements, nil
}

func (t *Tab) enterFrame(ctx context.Context, frame *Element) error {
	doc, err := frame.call(ctx, driver.ScriptFrame, false)
	if err != nil {
		return err
	}
	t.frameLock.Lock()
	t.frames = append(t.frames, frame.objectID)
	t.frameDoc = doc.ObjectId
	t.frameLock.Unlock()
	return nil
}

func (t *Tab) leaveFrames() {
	t.frameLock.Lock()
	t.frames = nil
	t.frameDoc = ""
	t.frameLock.Unlock()
}

// frameOffset sums the positions of the entered frames so element coordinates can be
// turned into top level viewport coordinates for input events.
func (t *Tab) frameOffset(ctx context.Context) (float64, float64, error) {
	t.frameLock.Lock()
	frames := append([]string(nil), t.frames...)
	t.frameLock.Unlock()

	var x, y float64
	for _, frame := range frames {
		r, err := t.callOn(ctx, frame, offsetScript, true)
		if err != nil {
			return 0, 0, err
		}
		fx, fy, err := driver.ToFloatPoint(r.Value)
		if err != nil {
			return 0, 0, err
		}
		x += fx
		y += fy
	}
	return x, y, nil
}

const offsetScript = `function () {
  var r = this.getBoundingClientRect();
  return { x: r.left + this.clientLeft, y: r.top + this.clientTop };
}`

// HTML of the current document
func (t *Tab) HTML(ctx context.Context) (string, error) {
	root, err := t.root(ctx)
	if err != nil {
		return "", err
	}
	r, err := t.callOn(ctx, root, "function () { return this.documentElement ? this.documentElement.outerHTML : ''; }", true)
	if err != nil {
		return "", err
	}
	return driver.ToString(r.Value)
}

// ExecuteScript runs script as the body of a function with args as its arguments,
// in the top level context. Results are returned by value.
func (t *Tab) ExecuteScript(ctx context.Context, script string, args ...interface{}) (interface{}, error) {
	window, err := t.evaluate(ctx, "window", false)
	if err != nil {
		return nil, err
	}
	r, err := t.callOn(ctx, window.ObjectId, "function () {\n"+script+"\n}", true, args...)
	if err != nil {
		return nil, err
	}
	return r.Value, nil
}

// AcceptDialog accepts the showing javascript dialog
func (t *Tab) AcceptDialog(ctx context.Context) error {
	if err := t.alive(ctx); err != nil {
		return err
	}
	if _, err := t.t.Page.HandleJavaScriptDialog(true, ""); err != nil {
		return driver.Classify(err)
	}
	t.setDialogOpen(false)
	return nil
}

func exceptionErr(exp *gcdapi.RuntimeExceptionDetails) error {
	msg := exp.Text
	if exp.Exception != nil && exp.Exception.Description != "" {
		msg = exp.Exception.Description
	}
	log.Debug().Str("exception", msg).Msg("script threw")
	return driver.Classify(errors.New(msg))
}
