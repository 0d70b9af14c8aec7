// Package drivertest checks an engine against the behaviour sessions rely on. Every
// engine's tests run it, the browser backed ones only when their browser is around.
package drivertest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/blackboxtests/bbt"
)

// Opener starts the engine under test
type Opener func(ctx context.Context) (bbt.Driver, error)

var pages = map[string]string{
	"/": `<html><head><title>start</title></head><body>
<table id="t"><tr><td>a</td><td>b</td></tr><tr><td>c</td><td>d</td></tr></table>
<input id="in" name="in" value="first">
<input id="box" type="checkbox">
<select id="sel"><option value="1">one</option><option value="2" selected>two</option></select>
<div id="gone" style="display:none">hidden</div>
<button id="ask" onclick="if (confirm('sure?')) { document.getElementById('answer').textContent = 'yes'; }">ask</button>
<span id="answer"></span>
<a id="next" href="/next">next page</a>
<iframe id="frame" name="frame" srcdoc="<p id='inner'>in the frame</p>"></iframe>
</body></html>`,
	"/next": `<html><body><p id="here">next</p></body></html>`,
}

// Server serves the pages Run drives
func Server(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	for path, body := range pages {
		body := body
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/" && r.URL.Path != "/next" {
				http.NotFound(w, r)
				return
			}
			fmt.Fprint(w, body)
		})
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func one(ctx context.Context, t *testing.T, d bbt.Driver, by *bbt.Locator) bbt.Element {
	found, err := d.Find(ctx, by)
	require.NoError(t, err, by.Describe())
	require.Len(t, found, 1, "%s: %s", by.Describe(), spew.Sdump(found))
	return found[0]
}

// eventually polls cond, engines report dialogs and navigation asynchronously
func eventually(t *testing.T, cond func() bool, msg string) {
	assert.Eventually(t, cond, 5*time.Second, 20*time.Millisecond, msg)
}

// Run drives the engine through navigation, queries, element state, scripts,
// frames, dialogs and staleness. The driver is closed when Run returns.
func Run(t *testing.T, open Opener) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	srv := Server(t)
	d, err := open(ctx)
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, d.Close())
	}()

	require.NoError(t, d.Navigate(ctx, srv.URL+"/"))
	u, err := d.URL(ctx)
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/", u)

	t.Run("Queries", func(t *testing.T) {
		cells, err := d.Find(ctx, bbt.ByXPath("//td"))
		require.NoError(t, err)
		require.Len(t, cells, 4)
		text, err := cells[3].Text(ctx)
		require.NoError(t, err)
		assert.Equal(t, "d", text)

		rows, err := one(ctx, t, d, bbt.ByID("t")).Find(ctx, bbt.ByTag("tr"))
		require.NoError(t, err)
		assert.Len(t, rows, 2)

		link := one(ctx, t, d, bbt.ByPartialLinkText("next"))
		tag, err := link.TagName(ctx)
		require.NoError(t, err)
		assert.Equal(t, "a", tag)

		none, err := d.Find(ctx, bbt.ByCSSSelector("#missing"))
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("State", func(t *testing.T) {
		shown, err := one(ctx, t, d, bbt.ByID("gone")).Displayed(ctx)
		require.NoError(t, err)
		assert.False(t, shown)

		opt := one(ctx, t, d, bbt.ByCSSSelector("#sel option[value='2']"))
		selected, err := opt.Selected(ctx)
		require.NoError(t, err)
		assert.True(t, selected)

		box := one(ctx, t, d, bbt.ByID("box"))
		require.NoError(t, box.Click(ctx))
		checked, err := box.Selected(ctx)
		require.NoError(t, err)
		assert.True(t, checked)

		missing, err := box.Attribute(ctx, "data-none")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("Typing", func(t *testing.T) {
		in := one(ctx, t, d, bbt.ByID("in"))
		require.NoError(t, in.Clear(ctx))
		require.NoError(t, in.SendKeys(ctx, "typed"))
		v, err := in.Attribute(ctx, "value")
		require.NoError(t, err)
		require.NotNil(t, v)
		assert.Equal(t, "typed", *v)
	})

	t.Run("Script", func(t *testing.T) {
		v, err := d.ExecuteScript(ctx, "return arguments[0] + arguments[1];", 1, 1)
		require.NoError(t, err)
		assert.EqualValues(t, 2, v, spew.Sdump(v))

		v, err = d.ExecuteScript(ctx, "return document.title;")
		require.NoError(t, err)
		assert.Equal(t, "start", v)
	})

	t.Run("Frame", func(t *testing.T) {
		require.NoError(t, d.SwitchFrame(ctx, one(ctx, t, d, bbt.ByFrame("frame"))))
		text, err := one(ctx, t, d, bbt.ByID("inner")).Text(ctx)
		require.NoError(t, err)
		assert.Equal(t, "in the frame", text)

		require.NoError(t, d.SwitchDefault(ctx))
		one(ctx, t, d, bbt.ByID("t"))
	})

	t.Run("Dialog", func(t *testing.T) {
		require.NoError(t, one(ctx, t, d, bbt.ByID("ask")).Click(ctx))
		eventually(t, func() bool {
			present, err := d.AlertPresent(ctx)
			return err == nil && present
		}, "dialog never opened")
		require.NoError(t, d.AcceptAlert(ctx))
		eventually(t, func() bool {
			els, err := d.Find(ctx, bbt.ByID("answer"))
			if err != nil || len(els) == 0 {
				return false
			}
			text, err := els[0].Text(ctx)
			return err == nil && text == "yes"
		}, "confirm was not accepted")

		present, err := d.AlertPresent(ctx)
		require.NoError(t, err)
		assert.False(t, present)
		assert.True(t, errors.Is(d.AcceptAlert(ctx), bbt.ErrNoAlert))
	})

	t.Run("Navigation", func(t *testing.T) {
		link := one(ctx, t, d, bbt.ByID("next"))
		require.NoError(t, link.Click(ctx))
		eventually(t, func() bool {
			u, err := d.URL(ctx)
			return err == nil && u == srv.URL+"/next"
		}, "link did not navigate")

		_, err := link.Text(ctx)
		assert.True(t, errors.Is(err, bbt.ErrStaleElement), "got %v", err)

		require.NoError(t, d.Back(ctx))
		u, err := d.URL(ctx)
		require.NoError(t, err)
		assert.Equal(t, srv.URL+"/", u)
		require.NoError(t, d.Refresh(ctx))
		one(ctx, t, d, bbt.ByID("t"))
	})

	t.Run("Windows", func(t *testing.T) {
		handles, err := d.Windows(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, handles)
		current, err := d.CurrentWindow(ctx)
		require.NoError(t, err)
		assert.Contains(t, handles, current)
		require.NoError(t, d.SwitchWindow(ctx, current))
		assert.Error(t, d.SwitchWindow(ctx, "no-such-window"))
	})
}
