package bbt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/blackboxtests/bbt"
)

func TestChildByXPath(t *testing.T) {
	parent := bbt.ByID("parent")
	child := bbt.ChildByXPath(parent, "/div")

	assert.Equal(t, bbt.XPath, child.Strategy())
	assert.Equal(t, `//*[@id="parent"]/div`, child.Key())
	assert.Same(t, parent, child.Child())
	assert.Equal(t, `XPath //*[@id="parent"]/div`, child.Describe())
}

func TestChildByXPathNonIDParent(t *testing.T) {
	// not validated, the key is used as if it were an id
	child := bbt.ChildByXPath(bbt.ByCSSSelector(".menu"), "//a")
	assert.Equal(t, `//*[@id=".menu"]//a`, child.Key())
}

func TestDescribe(t *testing.T) {
	var inputs = []struct {
		in       *bbt.Locator
		expected string
	}{
		{bbt.ByID("login"), "Id login"},
		{bbt.ByName("user"), "Name user"},
		{bbt.ByLinkText("Sign in"), "LinkText Sign in"},
		{bbt.ByPartialLinkText("Sign"), "PartialLinkText Sign"},
		{bbt.ByTag("table"), "Tag table"},
		{bbt.ByXPath("//tr"), "XPath //tr"},
		{bbt.ByCSSSelector("#a > b"), "CssSelector #a > b"},
	}

	for _, in := range inputs {
		assert.Equal(t, in.expected, in.in.Describe())
		assert.Equal(t, in.expected, in.in.String())
	}
}

func TestByIDChild(t *testing.T) {
	nested := bbt.ByTag("span")
	l := bbt.ByID("outer", nested)
	assert.Same(t, nested, l.Child())
	assert.Nil(t, bbt.ByID("outer").Child())
}

func TestQuery(t *testing.T) {
	var inputs = []struct {
		in   *bbt.Locator
		kind bbt.QueryKind
		expr string
	}{
		{bbt.ByID("login"), bbt.QueryCSS, `[id="login"]`},
		{bbt.ByID(`we"ird`), bbt.QueryCSS, `[id="we\"ird"]`},
		{bbt.ByName("q"), bbt.QueryCSS, `[name="q"]`},
		{bbt.ByTag("td"), bbt.QueryCSS, "td"},
		{bbt.ByCSSSelector("div.a"), bbt.QueryCSS, "div.a"},
		{bbt.ByXPath("//div"), bbt.QueryXPath, "//div"},
		{bbt.ByLinkText("Home"), bbt.QueryXPath, `.//a[normalize-space(.)="Home"]`},
		{bbt.ByLinkText(`say "hi"`), bbt.QueryXPath, `.//a[normalize-space(.)='say "hi"']`},
		{bbt.ByPartialLinkText("Ho"), bbt.QueryXPath, `.//a[contains(normalize-space(.),"Ho")]`},
		{bbt.ByPartialLinkText(`it's "x"`), bbt.QueryXPath, `.//a[contains(normalize-space(.),concat("it's ",'"',"x",'"'))]`},
	}

	for _, in := range inputs {
		q, err := in.in.Query()
		require.NoError(t, err, in.in.Describe())
		assert.Equal(t, in.kind, q.Kind, in.in.Describe())
		assert.Equal(t, in.expr, q.Expr, in.in.Describe())
	}
}

func TestWebDriverBy(t *testing.T) {
	by, err := bbt.ByPartialLinkText("x").WebDriverBy()
	require.NoError(t, err)
	assert.Equal(t, "partial link text", by)

	by, err = bbt.ByCSSSelector("x").WebDriverBy()
	require.NoError(t, err)
	assert.Equal(t, "css selector", by)
}

func TestParseLocator(t *testing.T) {
	var inputs = []struct {
		in       string
		expected string
	}{
		{"id:login", "Id login"},
		{"name:q", "Name q"},
		{"link:Home", "LinkText Home"},
		{"partial:Ho", "PartialLinkText Ho"},
		{"tag:table", "Tag table"},
		{"xpath://a[@href]", "XPath //a[@href]"},
		{"css:a:hover", "CssSelector a:hover"},
		{"#login", "CssSelector #login"},
		{"a:hover", "CssSelector a:hover"},
	}

	for _, in := range inputs {
		l, err := bbt.ParseLocator(in.in)
		require.NoError(t, err)
		assert.Equal(t, in.expected, l.Describe())
	}

	_, err := bbt.ParseLocator("id:")
	var cfgErr *bbt.ConfigurationErr
	assert.ErrorAs(t, err, &cfgErr)
}

func TestParseEngine(t *testing.T) {
	e, err := bbt.ParseEngine(" Chrome ")
	require.NoError(t, err)
	assert.Equal(t, bbt.Chrome, e)

	_, err = bbt.ParseEngine("safari")
	var cfgErr *bbt.ConfigurationErr
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "safari")
}
