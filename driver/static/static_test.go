package static_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/blackboxtests/bbt"
	"gitlab.com/blackboxtests/driver/drivertest"
	"gitlab.com/blackboxtests/driver/static"
	"gitlab.com/blackboxtests/session"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	exitCode := m.Run()
	if err := goleak.Find(); err != nil {
		fmt.Println(err)
		exitCode = 3
	}
	os.Exit(exitCode)
}

var pages = map[string]string{
	"/table": `<html><body>
<table id="t">
  <tr><td>a</td><td>b</td></tr>
</table>
</body></html>`,
	"/confirm": `<html><body>
<button id="del" onclick="if (confirm('sure?')) { document.getElementById('out').textContent = 'deleted'; }">Delete</button>
<span id="out"></span>
</body></html>`,
	"/form": `<html><body>
<form method="post" action="/submit">
  <input name="q" value="old">
  <input type="checkbox" id="c" name="c" value="yes">
  <select name="s"><option value="a">Ay</option><option value="b">Bee</option></select>
  <textarea name="t"></textarea>
  <input type="hidden" name="h" value="x">
  <button name="go" value="1">Go</button>
</form>
</body></html>`,
	"/search": `<html><body><form action="/results"><input name="q"></form></body></html>`,
	"/links": `<html><body>
<a id="next" href="/table">next</a>
<a id="blank" href="/table" target="_blank">new</a>
<a id="here" href="#top">top</a>
<div id="h" style="display: none">hidden</div>
</body></html>`,
	"/frames": `<html><body>
<iframe id="f" srcdoc="<p id='inner'>inside</p>"></iframe>
<p id="outer">out</p>
</body></html>`,
	"/redirect": `<html><body><script>window.location.href = '/table';</script></body></html>`,
}

func testServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	for path, body := range pages {
		body := body
		mux.HandleFunc(path, func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, body)
		})
	}
	echo := func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		parts := make([]string, 0, len(r.Form))
		for k, v := range r.Form {
			parts = append(parts, k+"="+strings.Join(v, ","))
		}
		sort.Strings(parts)
		fmt.Fprintf(w, `<html><body><pre id="result">%s %s</pre></body></html>`, r.Method, strings.Join(parts, " "))
	}
	mux.HandleFunc("/submit", echo)
	mux.HandleFunc("/results", echo)
	mux.HandleFunc("/login", func(w http.ResponseWriter, _ *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: "abc", Path: "/"})
		fmt.Fprint(w, `<html><body>ok</body></html>`)
	})
	mux.HandleFunc("/whoami", func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("sid")
		name := "nobody"
		if err == nil {
			name = c.Value
		}
		fmt.Fprintf(w, `<html><body><p id="who">%s</p></body></html>`, name)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testSession(t *testing.T) (*session.Session, *httptest.Server) {
	srv := testServer(t)
	cfg := bbt.NewConfig()
	cfg.Engine = bbt.Static
	cfg.ElementTimeout = 200 * time.Millisecond
	cfg.PollInterval = 5 * time.Millisecond
	cfg.AlertTimeout = 30 * time.Millisecond
	cfg.TableWait = 200 * time.Millisecond
	cfg.TableSettle = 0

	s, err := session.New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, s.Dispose()) })
	return s, srv
}

func text(t *testing.T, s *session.Session, by *bbt.Locator) string {
	v, err := s.Text(context.Background(), by, bbt.Required)
	require.NoError(t, err)
	require.NotNil(t, v)
	return *v
}

func TestConformance(t *testing.T) {
	drivertest.Run(t, func(ctx context.Context) (bbt.Driver, error) {
		return static.Open(ctx, bbt.NewConfig())
	})
}

func TestStartsBlank(t *testing.T) {
	s, _ := testSession(t)
	u, err := s.URL(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "about:blank", u)
}

func TestTableData(t *testing.T) {
	ctx := context.Background()
	s, srv := testSession(t)
	require.NoError(t, s.NavigateTo(ctx, srv.URL+"/table"))

	rows, err := s.TableData(ctx, bbt.ByID("t"), bbt.Required)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}}, rows)
}

func TestConfirmAccepted(t *testing.T) {
	ctx := context.Background()
	s, srv := testSession(t)
	require.NoError(t, s.NavigateTo(ctx, srv.URL+"/confirm"))

	require.NoError(t, s.Click(ctx, bbt.ByID("del"), bbt.Required))
	present, err := s.Driver().AlertPresent(ctx)
	require.NoError(t, err)
	assert.True(t, present)

	require.NoError(t, s.AcceptAlert(ctx))
	assert.Equal(t, "deleted", text(t, s, bbt.ByID("out")))

	// nothing left to accept
	require.NoError(t, s.AcceptAlert(ctx))
	assert.True(t, errors.Is(s.Driver().AcceptAlert(ctx), bbt.ErrNoAlert))
}

func TestPostForm(t *testing.T) {
	ctx := context.Background()
	s, srv := testSession(t)
	require.NoError(t, s.NavigateTo(ctx, srv.URL+"/form"))

	require.NoError(t, s.ClearAndSendKeys(ctx, bbt.ByName("q"), "hello", bbt.Required))
	require.NoError(t, s.Check(ctx, bbt.ByID("c"), bbt.Required))
	require.NoError(t, s.SelectText(ctx, bbt.ByName("s"), "Bee", bbt.Required))
	require.NoError(t, s.SendKeys(ctx, bbt.ByName("t"), "line", bbt.Required))

	checked, err := s.Selected(ctx, bbt.ByID("c"), bbt.Required)
	require.NoError(t, err)
	assert.True(t, checked)
	v, err := s.Value(ctx, bbt.ByName("s"), bbt.Required)
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "b", *v)

	require.NoError(t, s.Click(ctx, bbt.ByName("go"), bbt.Required))
	assert.Equal(t, "POST c=yes go=1 h=x q=hello s=b t=line", text(t, s, bbt.ByID("result")))

	u, err := s.URL(ctx)
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/submit", u)
}

func TestInvalidSelectorSurfaces(t *testing.T) {
	ctx := context.Background()
	s, srv := testSession(t)
	require.NoError(t, s.NavigateTo(ctx, srv.URL+"/form"))

	count, err := s.Count(ctx, bbt.ByCSSSelector("div[[["), bbt.Required)
	assert.Nil(t, count)
	var cfgErr *bbt.ConfigurationErr
	require.True(t, errors.As(err, &cfgErr), "got %T %v", err, err)
	assert.Contains(t, err.Error(), "div[[[")

	_, err = s.Count(ctx, bbt.ByXPath("//[broken"), bbt.Required)
	require.True(t, errors.As(err, &cfgErr), "got %T %v", err, err)
}

func TestFirstOptionSelectedByDefault(t *testing.T) {
	ctx := context.Background()
	s, srv := testSession(t)
	require.NoError(t, s.NavigateTo(ctx, srv.URL+"/form"))

	first := bbt.ByCSSSelector("select[name=s] option[value=a]")
	second := bbt.ByCSSSelector("select[name=s] option[value=b]")

	selected, err := s.Selected(ctx, first, bbt.Required)
	require.NoError(t, err)
	assert.True(t, selected)
	selected, err = s.Selected(ctx, second, bbt.Required)
	require.NoError(t, err)
	assert.False(t, selected)

	require.NoError(t, s.SelectValue(ctx, bbt.ByName("s"), "b", bbt.Required))
	selected, err = s.Selected(ctx, first, bbt.Required)
	require.NoError(t, err)
	assert.False(t, selected)
	selected, err = s.Selected(ctx, second, bbt.Required)
	require.NoError(t, err)
	assert.True(t, selected)
}

func TestEnterSubmitsGetForm(t *testing.T) {
	ctx := context.Background()
	s, srv := testSession(t)
	require.NoError(t, s.NavigateTo(ctx, srv.URL+"/search"))

	require.NoError(t, s.SendKeys(ctx, bbt.ByName("q"), "gox\b\n", bbt.Required))
	assert.Equal(t, "GET q=go", text(t, s, bbt.ByID("result")))

	u, err := s.URL(ctx)
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/results?q=go", u)
}

func TestLinksAndHistory(t *testing.T) {
	ctx := context.Background()
	s, srv := testSession(t)
	require.NoError(t, s.NavigateTo(ctx, srv.URL+"/links"))

	require.NoError(t, s.Click(ctx, bbt.ByID("here"), bbt.Required))
	u, err := s.URL(ctx)
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/links", u)

	require.NoError(t, s.Click(ctx, bbt.ByLinkText("next"), bbt.Required))
	u, err = s.URL(ctx)
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/table", u)

	require.NoError(t, s.Back(ctx))
	u, err = s.URL(ctx)
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/links", u)

	require.NoError(t, s.Refresh(ctx))
	shown, err := s.Displayed(ctx, bbt.ByID("h"), bbt.Optional)
	require.NoError(t, err)
	assert.False(t, shown)
}

func TestBackOnFirstEntry(t *testing.T) {
	ctx := context.Background()
	s, _ := testSession(t)
	require.NoError(t, s.Back(ctx))
	u, err := s.URL(ctx)
	require.NoError(t, err)
	assert.Equal(t, "about:blank", u)
}

func TestTargetBlankOpensWindow(t *testing.T) {
	ctx := context.Background()
	s, srv := testSession(t)
	require.NoError(t, s.NavigateTo(ctx, srv.URL+"/links"))
	first, err := s.Driver().CurrentWindow(ctx)
	require.NoError(t, err)

	require.NoError(t, s.Click(ctx, bbt.ByID("blank"), bbt.Required))
	handles, err := s.Windows(ctx)
	require.NoError(t, err)
	require.Len(t, handles, 2)
	current, err := s.Driver().CurrentWindow(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, current)

	require.NoError(t, s.SwitchToLastWindow(ctx))
	rows, err := s.TableData(ctx, bbt.ByID("t"), bbt.Required)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}}, rows)

	require.NoError(t, s.CloseTab(ctx))
	_, err = s.Driver().URL(ctx)
	assert.True(t, errors.Is(err, bbt.ErrNoSuchWindow), "got %v", err)

	require.NoError(t, s.SwitchToTab(ctx, 0))
	require.NoError(t, s.Close(ctx))
	handles, err = s.Windows(ctx)
	require.NoError(t, err)
	assert.Empty(t, handles)
}

func TestFrames(t *testing.T) {
	ctx := context.Background()
	s, srv := testSession(t)
	require.NoError(t, s.NavigateTo(ctx, srv.URL+"/frames"))

	require.NoError(t, s.SwitchToFrame(ctx, "f"))
	assert.Equal(t, "inside", text(t, s, bbt.ByID("inner")))
	count, err := s.Count(ctx, bbt.ByID("outer"), bbt.Optional)
	require.NoError(t, err)
	if count != nil {
		assert.Equal(t, 0, *count)
	}

	require.NoError(t, s.SwitchToDefaultContent(ctx))
	assert.Equal(t, "out", text(t, s, bbt.ByID("outer")))
}

func TestScriptRedirect(t *testing.T) {
	ctx := context.Background()
	s, srv := testSession(t)
	require.NoError(t, s.NavigateTo(ctx, srv.URL+"/redirect"))

	u, err := s.URL(ctx)
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/table", u)
}

func TestStaleAfterNavigate(t *testing.T) {
	ctx := context.Background()
	s, srv := testSession(t)
	require.NoError(t, s.NavigateTo(ctx, srv.URL+"/links"))

	found, err := s.Driver().Find(ctx, bbt.ByID("next"))
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.NoError(t, s.NavigateTo(ctx, srv.URL+"/table"))

	_, err = found[0].Text(ctx)
	assert.True(t, errors.Is(err, bbt.ErrStaleElement), "got %v", err)
	assert.True(t, errors.Is(found[0].Click(ctx), bbt.ErrStaleElement))
}

func TestExecuteScript(t *testing.T) {
	ctx := context.Background()
	s, srv := testSession(t)
	require.NoError(t, s.NavigateTo(ctx, srv.URL+"/confirm"))

	v, err := s.ExecuteScript(ctx, "return arguments[0] + 1;", 41)
	require.NoError(t, err)
	assert.EqualValues(t, 42, v)

	v, err = s.ExecuteScript(ctx, "return document.getElementById('del');")
	require.NoError(t, err)
	el, ok := v.(*static.Element)
	require.True(t, ok, "got %T", v)
	tag, err := el.TagName(ctx)
	require.NoError(t, err)
	assert.Equal(t, "button", tag)

	v, err = s.ExecuteScript(ctx, "return arguments[0].tagName;", el)
	require.NoError(t, err)
	assert.Equal(t, "BUTTON", v)

	require.NoError(t, s.ScrollToBottom(ctx))
	require.NoError(t, s.ScrollTo(ctx, bbt.ByID("del"), bbt.Required))

	_, err = s.ExecuteScript(ctx, "throw new Error('boom');")
	assert.Error(t, err)
}

func TestCancelledScriptDoesNotLeak(t *testing.T) {
	ctx := context.Background()
	s, srv := testSession(t)
	require.NoError(t, s.NavigateTo(ctx, srv.URL+"/confirm"))

	spin, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	_, err := s.ExecuteScript(spin, "while (true) {}")
	cancel()
	assert.Error(t, err)

	for i := 0; i < 50; i++ {
		short, cancel := context.WithTimeout(ctx, time.Duration(i%5)*100*time.Microsecond)
		_, _ = s.ExecuteScript(short, "var n = 0; for (var j = 0; j < 20000; j++) { n += j; } return n;")
		cancel()

		v, err := s.ExecuteScript(ctx, "return 1;")
		require.NoError(t, err, "run %d", i)
		assert.EqualValues(t, 1, v)
	}
}

func TestCookiesPersist(t *testing.T) {
	ctx := context.Background()
	s, srv := testSession(t)
	require.NoError(t, s.NavigateTo(ctx, srv.URL+"/login"))
	require.NoError(t, s.NavigateTo(ctx, srv.URL+"/whoami"))
	assert.Equal(t, "abc", text(t, s, bbt.ByID("who")))
}

func TestMaximizeAndHTML(t *testing.T) {
	ctx := context.Background()
	s, srv := testSession(t)
	require.NoError(t, s.NavigateTo(ctx, srv.URL+"/table"))

	ok, err := s.Maximize(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	src, err := s.HTML(ctx)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(src, "<html>"), src)
	assert.Contains(t, src, `<td>a</td>`)
}

func TestClosedDriver(t *testing.T) {
	ctx := context.Background()
	d, err := static.Open(ctx, bbt.NewConfig())
	require.NoError(t, err)
	require.NoError(t, d.Close())
	require.NoError(t, d.Close())

	_, err = d.URL(ctx)
	assert.True(t, errors.Is(err, bbt.ErrSessionClosed), "got %v", err)
	_, err = d.Windows(ctx)
	assert.True(t, errors.Is(err, bbt.ErrSessionClosed), "got %v", err)
}

func TestUnsupportedScheme(t *testing.T) {
	ctx := context.Background()
	d, err := static.Open(ctx, bbt.NewConfig())
	require.NoError(t, err)
	defer d.Close()

	err = d.Navigate(ctx, "ftp://example.com/")
	var cfgErr *bbt.ConfigurationErr
	assert.True(t, errors.As(err, &cfgErr), "got %T %v", err, err)
}
