package chrome

import (
	"context"

	"github.com/wirepair/gcd/gcdapi"
	"gitlab.com/blackboxtests/driver"
)

// click at x, y. A click that opens a javascript dialog blocks the renderer until
// the dialog is handled, so the release is dispatched in the background and the
// click returns as soon as either the release or the dialog is reported.
func (t *Tab) click(ctx context.Context, x, y float64) error {
	select {
	case <-t.dialogCh:
	default:
	}

	mousePressedParams := &gcdapi.InputDispatchMouseEventParams{TheType: "mousePressed",
		X:          x,
		Y:          y,
		Button:     "left",
		ClickCount: 1,
	}
	if _, err := t.t.Input.DispatchMouseEventWithParams(mousePressedParams); err != nil {
		return driver.Classify(err)
	}

	mouseReleasedParams := &gcdapi.InputDispatchMouseEventParams{TheType: "mouseReleased",
		X:          x,
		Y:          y,
		Button:     "left",
		ClickCount: 1,
	}
	released := make(chan error, 1)
	go func() {
		_, err := t.t.Input.DispatchMouseEventWithParams(mouseReleasedParams)
		released <- err
	}()

	select {
	case err := <-released:
		return driver.Classify(err)
	case <-t.dialogCh:
		return nil
	case <-t.exitCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// moveMouse to the x, y coords provided.
func (t *Tab) moveMouse(x, y float64) error {
	mouseMovedParams := &gcdapi.InputDispatchMouseEventParams{TheType: "mouseMoved",
		X: x,
		Y: y,
	}

	_, err := t.t.Input.DispatchMouseEventWithParams(mouseMovedParams)
	return driver.Classify(err)
}

// sendKeys to whatever is focused. Use \n for Enter, \b for backspace or \t for Tab.
func (t *Tab) sendKeys(text string) error {
	inputParams := &gcdapi.InputDispatchKeyEventParams{TheType: "char"}

	for _, inputchar := range text {
		input := string(inputchar)

		switch input {
		case "\r", "\n", "\t", "\b":
			if err := t.pressSystemKey(input); err != nil {
				return err
			}
			continue
		}
		inputParams.Text = input
		if _, err := t.t.Input.DispatchKeyEventWithParams(inputParams); err != nil {
			return driver.Classify(err)
		}
	}
	return nil
}

func (t *Tab) pressSystemKey(systemKey string) error {
	inputParams := &gcdapi.InputDispatchKeyEventParams{TheType: "rawKeyDown"}

	switch systemKey {
	case "\b":
		inputParams.UnmodifiedText = "\b"
		inputParams.Text = "\b"
		inputParams.WindowsVirtualKeyCode = 8
		inputParams.NativeVirtualKeyCode = 8
	case "\t":
		inputParams.UnmodifiedText = "\t"
		inputParams.Text = "\t"
		inputParams.WindowsVirtualKeyCode = 9
		inputParams.NativeVirtualKeyCode = 9
	case "\r", "\n":
		inputParams.UnmodifiedText = "\r"
		inputParams.Text = "\r"
		inputParams.WindowsVirtualKeyCode = 13
		inputParams.NativeVirtualKeyCode = 13
	}

	for _, eventType := range []string{"rawKeyDown", "char", "keyUp"} {
		inputParams.TheType = eventType
		if _, err := t.t.Input.DispatchKeyEventWithParams(inputParams); err != nil {
			return driver.Classify(err)
		}
	}
	return nil
}
