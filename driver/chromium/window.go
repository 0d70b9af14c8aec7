package chromium

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog/log"
	"gitlab.com/blackboxtests/bbt"
	"gitlab.com/blackboxtests/driver"
)

// window is one page target plus the frames entered in it
type window struct {
	page      *rod.Page
	frameLock sync.Mutex
	frames    []*rod.Page // innermost last
	dialog    atomic.Bool
	dialogCh  chan struct{}
	stop      context.CancelFunc
}

func newWindow(page *rod.Page) *window {
	ctx, stop := context.WithCancel(context.Background())
	w := &window{
		page:     page,
		dialogCh: make(chan struct{}, 1),
		stop:     stop,
	}

	wait := page.Context(ctx).EachEvent(func(e *proto.PageJavascriptDialogOpening) {
		log.Debug().Str("type", string(e.Type)).Str("message", e.Message).Msg("dialog opened")
		w.setDialogOpen(true)
		select {
		case w.dialogCh <- struct{}{}:
		default:
		}
	}, func(e *proto.PageJavascriptDialogClosed) {
		w.setDialogOpen(false)
	})
	go wait()
	return w
}

func (w *window) id() proto.TargetTargetID {
	return w.page.TargetID
}

func (w *window) close() {
	w.stop()
}

func (w *window) setDialogOpen(open bool) {
	w.dialog.Store(open)
}

func (w *window) dialogOpen() bool {
	return w.dialog.Load()
}

// document queries run against, the innermost entered frame or the page
func (w *window) document() *rod.Page {
	w.frameLock.Lock()
	defer w.frameLock.Unlock()
	if len(w.frames) > 0 {
		return w.frames[len(w.frames)-1]
	}
	return w.page
}

func (w *window) enterFrame(ctx context.Context, frame *Element) error {
	if _, err := frame.value(ctx, driver.ScriptFrame); err != nil {
		return err
	}
	doc, err := frame.el.Context(ctx).Frame()
	if err != nil {
		return classify(err)
	}
	w.frameLock.Lock()
	w.frames = append(w.frames, doc)
	w.frameLock.Unlock()
	return nil
}

func (w *window) leaveFrames() {
	w.frameLock.Lock()
	w.frames = nil
	w.frameLock.Unlock()
}

func (w *window) wrap(found rod.Elements) []bbt.Element {
	elements := make([]bbt.Element, len(found))
	for i, el := range found {
		elements[i] = &Element{window: w, el: el}
	}
	return elements
}

// navigation runs navigate on the top level page and waits for the next load
func (w *window) navigation(ctx context.Context, navigate func(p *rod.Page) error) error {
	p := w.page.Context(ctx)
	if err := ctx.Err(); err != nil {
		return err
	}

	wait := p.WaitNavigation(proto.PageLifecycleEventNameLoad)
	if err := navigate(p); err != nil {
		return classify(err)
	}
	w.leaveFrames()
	wait()
	return ctx.Err()
}
