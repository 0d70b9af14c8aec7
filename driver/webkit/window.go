package webkit

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog/log"
	"gitlab.com/blackboxtests/bbt"
	"gitlab.com/blackboxtests/driver"
)

// window is a page plus the frames entered in it and the dialog it is showing
type window struct {
	handle   string
	page     playwright.Page
	lock     sync.Mutex
	frames   []playwright.Frame // innermost last
	dialog   playwright.Dialog
	dialogCh chan struct{}
}

func newWindow(handle string, page playwright.Page) *window {
	w := &window{
		handle:   handle,
		page:     page,
		dialogCh: make(chan struct{}, 1),
	}
	// with a listener registered playwright leaves the dialog open until it is handled
	page.OnDialog(func(dialog playwright.Dialog) {
		log.Debug().Str("type", dialog.Type()).Str("message", dialog.Message()).Msg("dialog opened")
		w.lock.Lock()
		w.dialog = dialog
		w.lock.Unlock()
		select {
		case w.dialogCh <- struct{}{}:
		default:
		}
	})
	return w
}

func (w *window) pendingDialog() playwright.Dialog {
	w.lock.Lock()
	defer w.lock.Unlock()
	return w.dialog
}

func (w *window) takeDialog() playwright.Dialog {
	w.lock.Lock()
	defer w.lock.Unlock()
	dialog := w.dialog
	w.dialog = nil
	return dialog
}

// document queries run against
func (w *window) document() playwright.Frame {
	w.lock.Lock()
	defer w.lock.Unlock()
	if len(w.frames) > 0 {
		return w.frames[len(w.frames)-1]
	}
	return w.page.MainFrame()
}

func (w *window) enterFrame(ctx context.Context, frame *Element) error {
	if _, err := frame.value(ctx, driver.ScriptFrame); err != nil {
		return err
	}
	doc, err := frame.handle.ContentFrame()
	if err != nil {
		return classify(err)
	}
	if doc == nil {
		return errors.Wrap(bbt.ErrNoSuchFrame, "element has no content frame")
	}
	w.lock.Lock()
	w.frames = append(w.frames, doc)
	w.lock.Unlock()
	return nil
}

func (w *window) leaveFrames() {
	w.lock.Lock()
	w.frames = nil
	w.lock.Unlock()
}

func (w *window) wrap(d *Driver, found []playwright.ElementHandle) []bbt.Element {
	elements := make([]bbt.Element, len(found))
	for i, handle := range found {
		elements[i] = &Element{d: d, window: w, handle: handle}
	}
	return elements
}
