package chrome

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
	"github.com/wirepair/gcd"
	"github.com/wirepair/gcd/gcdapi"
)

func (t *Tab) subscribeBrowserEvents() {
	t.t.DOM.Enable()
	t.t.Inspector.Enable()
	t.t.Page.Enable()
	t.t.Runtime.Enable()

	t.subscribeLoadEvent()
	t.subscribeTargetCrashed()
	t.subscribeTargetDetached()
	t.subscribeDialogOpening()
	t.subscribeDialogClosed()
}

func (t *Tab) subscribeTargetCrashed() {
	t.t.Subscribe("Inspector.targetCrashed", func(target *gcd.ChromeTarget, payload []byte) {
		t.crashed.Store("crashed")
		log.Warn().Str("target", t.ID()).Msg("tab crashed")
	})
}

func (t *Tab) subscribeTargetDetached() {
	t.t.Subscribe("Inspector.detached", func(target *gcd.ChromeTarget, payload []byte) {
		header := &gcdapi.InspectorDetachedEvent{}
		reason := "detached"
		if err := json.Unmarshal(payload, header); err == nil {
			reason = header.Params.Reason
		}
		t.crashed.Store(reason)
		log.Debug().Str("target", t.ID()).Str("reason", reason).Msg("tab detached")
	})
}

// signals a waiting navigation once the load event fires
func (t *Tab) subscribeLoadEvent() {
	t.t.Subscribe("Page.loadEventFired", func(target *gcd.ChromeTarget, payload []byte) {
		if !t.IsNavigating() {
			return
		}
		select {
		case t.navigationCh <- struct{}{}:
		case <-t.exitCh:
		default:
		}
	})
}

func (t *Tab) subscribeDialogOpening() {
	t.t.Subscribe("Page.javascriptDialogOpening", func(target *gcd.ChromeTarget, payload []byte) {
		header := &gcdapi.PageJavascriptDialogOpeningEvent{}
		if err := json.Unmarshal(payload, header); err == nil {
			log.Debug().Str("type", header.Params.Type).Str("message", header.Params.Message).Msg("dialog opened")
		}
		t.setDialogOpen(true)
		select {
		case t.dialogCh <- struct{}{}:
		default:
		}
	})
}

func (t *Tab) subscribeDialogClosed() {
	t.t.Subscribe("Page.javascriptDialogClosed", func(target *gcd.ChromeTarget, payload []byte) {
		t.setDialogOpen(false)
	})
}
