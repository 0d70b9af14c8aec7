package session_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/blackboxtests/bbt"
	"gitlab.com/blackboxtests/mock"
)

func pageWith(by *bbt.Locator, elements ...bbt.Element) *mock.Page {
	return &mock.Page{
		Source:   "<html><body>test</body></html>",
		Elements: map[string][]bbt.Element{by.Describe(): elements},
	}
}

func TestOptionalMissingReturnsEmpty(t *testing.T) {
	ctx := context.Background()
	by := bbt.ByID("missing")
	s, _ := testSession(&mock.Page{})

	assert.NoError(t, s.Click(ctx, by, bbt.Optional))
	assert.NoError(t, s.Clear(ctx, by, bbt.Optional))
	assert.NoError(t, s.SendKeys(ctx, by, "x", bbt.Optional))
	assert.NoError(t, s.ClearAndSendKeys(ctx, by, "x", bbt.Optional))
	assert.NoError(t, s.Submit(ctx, by, bbt.Optional))
	assert.NoError(t, s.Check(ctx, by, bbt.Optional))
	assert.NoError(t, s.Hover(ctx, by, bbt.Optional))
	assert.NoError(t, s.ScrollTo(ctx, by, bbt.Optional))
	assert.NoError(t, s.SelectIndex(ctx, by, 0, bbt.Optional))
	assert.NoError(t, s.SelectText(ctx, by, "a", bbt.Optional))
	assert.NoError(t, s.SelectValue(ctx, by, "a", bbt.Optional))

	el, err := s.FindElement(ctx, by, bbt.Optional)
	assert.NoError(t, err)
	assert.Nil(t, el)

	for _, read := range []func() (*string, error){
		func() (*string, error) { return s.Text(ctx, by, bbt.Optional) },
		func() (*string, error) { return s.Attribute(ctx, by, "title", bbt.Optional) },
		func() (*string, error) { return s.Value(ctx, by, bbt.Optional) },
		func() (*string, error) { return s.Link(ctx, by, bbt.Optional) },
		func() (*string, error) { return s.OnClick(ctx, by, bbt.Optional) },
	} {
		v, err := read()
		assert.NoError(t, err)
		assert.Nil(t, v)
	}

	displayed, err := s.Displayed(ctx, by, bbt.Optional)
	assert.NoError(t, err)
	assert.False(t, displayed)

	selected, err := s.Selected(ctx, by, bbt.Optional)
	assert.NoError(t, err)
	assert.False(t, selected)

	options, err := s.SelectOptions(ctx, by, bbt.Optional)
	assert.NoError(t, err)
	assert.Empty(t, options)

	rows, err := s.TableData(ctx, by, bbt.Optional)
	assert.NoError(t, err)
	assert.Empty(t, rows)

	count, err := s.Count(ctx, by, bbt.Optional)
	require.NoError(t, err)
	require.NotNil(t, count)
	assert.Equal(t, 0, *count)

	texts, err := s.Texts(ctx, by, bbt.Optional)
	assert.NoError(t, err)
	assert.Empty(t, texts)

	displayeds, err := s.Displayeds(ctx, by, bbt.Optional)
	assert.NoError(t, err)
	assert.Empty(t, displayeds)

	ok, err := s.WaitToBeClickable(ctx, by, 20*time.Millisecond, bbt.Optional)
	assert.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.WaitForElementExists(ctx, by, 20*time.Millisecond, bbt.Optional)
	assert.NoError(t, err)
	assert.False(t, ok)

	assert.False(t, s.IsElementPresent(ctx, by, 20*time.Millisecond))
}

func TestRequiredMissingReportsLocator(t *testing.T) {
	ctx := context.Background()
	p := &mock.Page{Source: "<html><body><p>nothing here</p></body></html>"}
	s, _ := testSession(p)

	err := s.Click(ctx, bbt.ByID("login"), bbt.Required)
	var notFound *bbt.ElementNotFoundErr
	require.True(t, errors.As(err, &notFound), "got %T %v", err, err)
	assert.Contains(t, err.Error(), "Id login")
	assert.Contains(t, err.Error(), "nothing here")
	assert.True(t, errors.Is(err, bbt.ErrTimedOut))

	_, err = s.Text(ctx, bbt.ByCSSSelector(".name"), bbt.Required)
	require.True(t, errors.As(err, &notFound))
	assert.Contains(t, err.Error(), "CssSelector .name")
}

func TestHiddenElementIsNotClickable(t *testing.T) {
	ctx := context.Background()
	by := bbt.ByID("hidden")
	s, _ := testSession(pageWith(by, mock.MakeMockElement(&mock.Node{Hidden: true})))

	assert.False(t, s.IsElementPresent(ctx, by, 20*time.Millisecond))

	ok, err := s.WaitForElementExists(ctx, by, 20*time.Millisecond, bbt.Required)
	require.NoError(t, err)
	assert.True(t, ok)

	err = s.Click(ctx, by, bbt.Required)
	var notFound *bbt.ElementNotFoundErr
	require.True(t, errors.As(err, &notFound))
}

func TestPresenceSurvivesStaleReference(t *testing.T) {
	ctx := context.Background()
	by := bbt.ByID("rerendered")
	el := mock.MakeMockElement(&mock.Node{})
	stale := 2
	el.DisplayedFn = func(ctx context.Context) (bool, error) {
		if stale > 0 {
			stale--
			return false, errors.Wrap(bbt.ErrStaleElement, "rerendered")
		}
		return true, nil
	}
	s, _ := testSession(pageWith(by, el))

	assert.True(t, s.IsElementPresent(ctx, by, time.Second))
	assert.Equal(t, 0, stale)
}

func TestPresenceStaleUntilTimeout(t *testing.T) {
	ctx := context.Background()
	by := bbt.ByID("rerendered")
	el := mock.MakeMockElement(&mock.Node{})
	el.DisplayedFn = func(ctx context.Context) (bool, error) {
		return false, bbt.ErrStaleElement
	}
	s, _ := testSession(pageWith(by, el))

	start := time.Now()
	assert.False(t, s.IsElementPresent(ctx, by, 30*time.Millisecond))
	assert.True(t, time.Since(start) >= 30*time.Millisecond)
}

func TestObscuredUnsupportedCountsAsClickable(t *testing.T) {
	ctx := context.Background()
	by := bbt.ByID("btn")
	node := &mock.Node{}
	el := mock.MakeMockElement(node)
	el.ObscuredFn = func(ctx context.Context) (bool, error) {
		return false, errors.Wrap(bbt.ErrUnsupported, "static")
	}
	s, _ := testSession(pageWith(by, el))

	require.NoError(t, s.Click(ctx, by, bbt.Required))
	assert.Equal(t, 1, node.Clicks)
}

func TestStaleResolutionRecovers(t *testing.T) {
	ctx := context.Background()
	by := bbt.ByID("name")
	p := pageWith(by, mock.MakeMockElement(&mock.Node{Text: "bob"}))
	p.FindErrors = []error{bbt.ErrStaleElement, bbt.ErrStaleElement, bbt.ErrStaleElement}
	s, _ := testSession(p)

	text, err := s.Text(ctx, by, bbt.Required)
	require.NoError(t, err)
	require.NotNil(t, text)
	assert.Equal(t, "bob", *text)
	assert.Empty(t, p.FindErrors)
}

func TestStaleLoopEndsWithContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	d := mock.MakeMockDriver(&mock.Page{})
	d.FindFn = func(ctx context.Context, by *bbt.Locator) ([]bbt.Element, error) {
		return nil, errors.Wrap(bbt.ErrStaleElement, "replaced")
	}
	s := sessionFor(d)

	_, err := s.FindElement(ctx, bbt.ByID("spinning"), bbt.Optional)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestActionRetriesStaleElement(t *testing.T) {
	ctx := context.Background()
	by := bbt.ByName("q")
	node := &mock.Node{}
	el := mock.MakeMockElement(node)
	sendKeys := el.SendKeysFn
	stale := 2
	el.SendKeysFn = func(ctx context.Context, text string) error {
		if stale > 0 {
			stale--
			return bbt.ErrStaleElement
		}
		return sendKeys(ctx, text)
	}
	s, _ := testSession(pageWith(by, el))

	require.NoError(t, s.SendKeys(ctx, by, "golang", bbt.Required))
	assert.Equal(t, "golang", node.Keys)
}

func TestClickRetriesUntilDeadline(t *testing.T) {
	ctx := context.Background()
	by := bbt.ByID("submit")
	node := &mock.Node{}
	el := mock.MakeMockElement(node)
	click := el.ClickFn
	failures := 3
	el.ClickFn = func(ctx context.Context) error {
		if failures > 0 {
			failures--
			return errors.Wrap(bbt.ErrNotInteractable, "element click intercepted")
		}
		return click(ctx)
	}
	s, _ := testSession(pageWith(by, el))

	require.NoError(t, s.Click(ctx, by, bbt.Required))
	assert.Equal(t, 1, node.Clicks)
}

func TestClickFaultAfterDeadline(t *testing.T) {
	ctx := context.Background()
	by := bbt.ByID("submit")
	el := mock.MakeMockElement(&mock.Node{})
	el.ClickFn = func(ctx context.Context) error {
		return errors.New("unknown error: click failed")
	}
	s, _ := testSession(pageWith(by, el))

	err := s.Click(ctx, by, bbt.Required)
	var fault *bbt.DriverFaultErr
	require.True(t, errors.As(err, &fault), "got %T %v", err, err)
	assert.Equal(t, "click", fault.Op)

	assert.NoError(t, s.Click(ctx, by, bbt.Optional))
}

func TestClickStaleAfterDeadlineIsAbsorbed(t *testing.T) {
	ctx := context.Background()
	by := bbt.ByID("submit")
	el := mock.MakeMockElement(&mock.Node{})
	el.ClickFn = func(ctx context.Context) error {
		return bbt.ErrStaleElement
	}
	s, _ := testSession(pageWith(by, el))

	assert.NoError(t, s.Click(ctx, by, bbt.Required))
}

func TestSessionClosedSurfacesWhenOptional(t *testing.T) {
	ctx := context.Background()
	p := &mock.Page{FindErrors: []error{errors.Wrap(bbt.ErrNoSuchWindow, "target window already closed")}}
	s, _ := testSession(p)

	_, err := s.Text(ctx, bbt.ByID("x"), bbt.Optional)
	var closed *bbt.SessionClosedErr
	require.True(t, errors.As(err, &closed), "got %T %v", err, err)
	assert.Contains(t, err.Error(), "Id x")

	p.FindErrors = []error{bbt.ErrSessionClosed}
	_, err = s.Count(ctx, bbt.ByID("x"), bbt.Optional)
	require.True(t, errors.As(err, &closed))
}

func TestInputActions(t *testing.T) {
	ctx := context.Background()
	by := bbt.ByID("field")
	node := &mock.Node{Keys: "old", Location: bbt.Point{X: 10, Y: 300}}
	p := pageWith(by, mock.MakeMockElement(node))
	s, _ := testSession(p)

	require.NoError(t, s.ClearAndSendKeys(ctx, by, "new", bbt.Required))
	assert.Equal(t, "new", node.Keys)

	require.NoError(t, s.Submit(ctx, by, bbt.Required))
	assert.True(t, node.Submitted)

	require.NoError(t, s.Hover(ctx, by, bbt.Required))
	assert.True(t, node.Hovered)

	require.NoError(t, s.Check(ctx, by, bbt.Required))
	assert.Equal(t, 1, node.Clicks)
	assert.True(t, node.Selected)

	require.NoError(t, s.ScrollTo(ctx, by, bbt.Required))
	assert.Equal(t, []string{"window.scrollTo(0, 450)"}, p.Scripts)
}

func TestScalarReads(t *testing.T) {
	ctx := context.Background()
	by := bbt.ByLinkText("Home")
	node := &mock.Node{
		Tag:      "a",
		Text:     "Home",
		Selected: true,
		Attrs:    map[string]string{"href": "/home", "onclick": "go()", "value": "v"},
	}
	s, _ := testSession(pageWith(by, mock.MakeMockElement(node)))

	var inputs = []struct {
		read func() (*string, error)
		want string
	}{
		{func() (*string, error) { return s.Text(ctx, by, bbt.Required) }, "Home"},
		{func() (*string, error) { return s.Link(ctx, by, bbt.Required) }, "/home"},
		{func() (*string, error) { return s.OnClick(ctx, by, bbt.Required) }, "go()"},
		{func() (*string, error) { return s.Value(ctx, by, bbt.Required) }, "v"},
	}
	for _, in := range inputs {
		got, err := in.read()
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, in.want, *got)
	}

	title, err := s.Attribute(ctx, by, "title", bbt.Required)
	require.NoError(t, err)
	assert.Nil(t, title)

	displayed, err := s.Displayed(ctx, by, bbt.Required)
	require.NoError(t, err)
	assert.True(t, displayed)

	selected, err := s.Selected(ctx, by, bbt.Required)
	require.NoError(t, err)
	assert.True(t, selected)
}

func TestDisplayedDriverFaultIsFalse(t *testing.T) {
	ctx := context.Background()
	by := bbt.ByID("x")
	el := mock.MakeMockElement(&mock.Node{})
	el.DisplayedFn = func(ctx context.Context) (bool, error) {
		return false, errors.New("javascript error")
	}
	s, _ := testSession(pageWith(by, el))

	displayed, err := s.Displayed(ctx, by, bbt.Required)
	require.NoError(t, err)
	assert.False(t, displayed)
}

func TestPluralReadsKeepOrder(t *testing.T) {
	ctx := context.Background()
	by := bbt.ByTag("a")
	stale := mock.MakeMockElement(&mock.Node{Text: "gone"})
	stale.TextFn = func(ctx context.Context) (string, error) {
		return "", bbt.ErrStaleElement
	}
	stale.AttributeFn = func(ctx context.Context, name string) (*string, error) {
		return nil, bbt.ErrStaleElement
	}
	elements := []bbt.Element{
		mock.MakeMockElement(&mock.Node{Text: "one", Attrs: map[string]string{"href": "/1"}}),
		mock.MakeMockElement(&mock.Node{Text: "two"}),
		stale,
		mock.MakeMockElement(&mock.Node{Text: "four", Attrs: map[string]string{"href": "/4"}, Hidden: true}),
	}
	s, _ := testSession(pageWith(by, elements...))

	texts, err := s.Texts(ctx, by, bbt.Required)
	require.NoError(t, err)
	require.Len(t, texts, 4)
	assert.Equal(t, "one", *texts[0])
	assert.Equal(t, "two", *texts[1])
	assert.Nil(t, texts[2])
	assert.Equal(t, "four", *texts[3])

	links, err := s.Links(ctx, by, bbt.Required)
	require.NoError(t, err)
	require.Len(t, links, 4)
	assert.Equal(t, "/1", *links[0])
	assert.Nil(t, links[1])
	assert.Nil(t, links[2])
	assert.Equal(t, "/4", *links[3])

	onclicks, err := s.OnClicks(ctx, by, bbt.Required)
	require.NoError(t, err)
	assert.Len(t, onclicks, 4)

	values, err := s.Values(ctx, by, bbt.Required)
	require.NoError(t, err)
	assert.Len(t, values, 4)

	displayeds, err := s.Displayeds(ctx, by, bbt.Required)
	require.NoError(t, err)
	require.Len(t, displayeds, 4)
	assert.True(t, *displayeds[0])
	assert.False(t, *displayeds[3])

	count, err := s.Count(ctx, by, bbt.Required)
	require.NoError(t, err)
	assert.Equal(t, 4, *count)

	found, err := s.FindElements(ctx, by, bbt.Required)
	require.NoError(t, err)
	assert.Len(t, found, 4)
}

func TestQueryFailure(t *testing.T) {
	ctx := context.Background()
	by := bbt.ByXPath("//[broken")
	p := &mock.Page{FindErrors: []error{errors.New("invalid selector")}}
	s, _ := testSession(p)

	count, err := s.Count(ctx, by, bbt.Optional)
	assert.NoError(t, err)
	assert.Nil(t, count)

	p.FindErrors = []error{errors.New("invalid selector")}
	_, err = s.Texts(ctx, by, bbt.Required)
	var fault *bbt.DriverFaultErr
	require.True(t, errors.As(err, &fault), "got %T %v", err, err)
	assert.True(t, strings.Contains(err.Error(), "XPath //[broken"))
}

func TestSelect(t *testing.T) {
	ctx := context.Background()
	by := bbt.ByID("color")
	options, nodes := mock.MakeMockOptions("red", "green", "blue")
	sel := &mock.Node{Tag: "select", Children: map[string][]bbt.Element{bbt.ByTag("option").Describe(): options}}
	s, _ := testSession(pageWith(by, mock.MakeMockElement(sel)))

	texts, err := s.SelectOptions(ctx, by, bbt.Required)
	require.NoError(t, err)
	assert.Equal(t, []string{"red", "green", "blue"}, texts)

	require.NoError(t, s.SelectIndex(ctx, by, 2, bbt.Required))
	assert.True(t, nodes[2].Selected)

	require.NoError(t, s.SelectText(ctx, by, "green", bbt.Required))
	assert.True(t, nodes[1].Selected)

	require.NoError(t, s.SelectValue(ctx, by, "v0", bbt.Required))
	assert.True(t, nodes[0].Selected)

	// already selected options are left alone
	require.NoError(t, s.SelectValue(ctx, by, "v0", bbt.Required))
	assert.Equal(t, 1, nodes[0].Clicks)
}

func TestSelectOutOfRange(t *testing.T) {
	ctx := context.Background()
	by := bbt.ByID("color")
	options, nodes := mock.MakeMockOptions("red", "green")
	sel := &mock.Node{Tag: "select", Children: map[string][]bbt.Element{bbt.ByTag("option").Describe(): options}}
	s, _ := testSession(pageWith(by, mock.MakeMockElement(sel)))

	for _, i := range []int{2, -1} {
		err := s.SelectIndex(ctx, by, i, bbt.Required)
		var invalid *bbt.InvalidSelectionErr
		require.True(t, errors.As(err, &invalid), "index %d got %T %v", i, err, err)
	}

	require.NoError(t, s.SelectIndex(ctx, by, 2, bbt.Optional))
	require.NoError(t, s.SelectText(ctx, by, "purple", bbt.Optional))
	require.NoError(t, s.SelectValue(ctx, by, "red", bbt.Optional))
	for _, n := range nodes {
		assert.False(t, n.Selected)
		assert.Equal(t, 0, n.Clicks)
	}

	err := s.SelectValue(ctx, by, "red", bbt.Required)
	assert.Contains(t, err.Error(), "red")
}

func TestTableData(t *testing.T) {
	ctx := context.Background()
	by := bbt.ByID("t")
	row := func(cells ...string) bbt.Element {
		tds := make([]bbt.Element, len(cells))
		for i, c := range cells {
			tds[i] = mock.MakeMockElement(&mock.Node{Tag: "td", Text: c})
		}
		return mock.MakeMockElement(&mock.Node{Tag: "tr", Children: map[string][]bbt.Element{"Tag td": tds}})
	}
	table := &mock.Node{Tag: "table", Children: map[string][]bbt.Element{
		"Tag tr": {row("a", "b"), row("c", "d")},
	}}
	s, _ := testSession(pageWith(by, mock.MakeMockElement(table)))

	rows, err := s.TableData(ctx, by, bbt.Required)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}}, rows)

	start := time.Now()
	_, err = s.TableDataSettle(ctx, by, 25*time.Millisecond, bbt.Required)
	require.NoError(t, err)
	assert.True(t, time.Since(start) >= 25*time.Millisecond)
}

func TestTableDataStaleRowRestarts(t *testing.T) {
	ctx := context.Background()
	by := bbt.ByID("t")
	td := mock.MakeMockElement(&mock.Node{Tag: "td", Text: "a"})
	tr := mock.MakeMockElement(&mock.Node{Tag: "tr", Children: map[string][]bbt.Element{"Tag td": {td}}})
	find := tr.FindFn
	stale := 1
	tr.FindFn = func(ctx context.Context, by *bbt.Locator) ([]bbt.Element, error) {
		if stale > 0 {
			stale--
			return nil, bbt.ErrStaleElement
		}
		return find(ctx, by)
	}
	table := &mock.Node{Tag: "table", Children: map[string][]bbt.Element{"Tag tr": {tr}}}
	s, _ := testSession(pageWith(by, mock.MakeMockElement(table)))

	rows, err := s.TableData(ctx, by, bbt.Required)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a"}}, rows)
}

func TestTableDataSettleHonoursContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	by := bbt.ByID("t")
	s, _ := testSession(pageWith(by, mock.MakeMockElement(&mock.Node{Tag: "table"})))

	_, err := s.TableDataSettle(ctx, by, time.Minute, bbt.Required)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
