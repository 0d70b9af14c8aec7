package bbt

import (
	"fmt"
	"strings"
)

// Strategy determines how a Locator key is interpreted against the document
type Strategy int8

// revive:exported
const (
	ID Strategy = iota
	Name
	LinkText
	PartialLinkText
	TagName
	XPath
	CSSSelector
)

var strategyMap = map[Strategy]string{
	ID:              "Id",
	Name:            "Name",
	LinkText:        "LinkText",
	PartialLinkText: "PartialLinkText",
	TagName:         "Tag",
	XPath:           "XPath",
	CSSSelector:     "CssSelector",
}

func (s Strategy) String() string {
	if str, ok := strategyMap[s]; ok {
		return str
	}
	return "Unknown"
}

// strategy names as understood by W3C WebDriver endpoints
var webDriverByMap = map[Strategy]string{
	ID:              "id",
	Name:            "name",
	LinkText:        "link text",
	PartialLinkText: "partial link text",
	TagName:         "tag name",
	XPath:           "xpath",
	CSSSelector:     "css selector",
}

// QueryKind is the native query language an engine evaluates
type QueryKind int8

// revive:exported
const (
	QueryCSS QueryKind = iota
	QueryXPath
)

// Query is a Locator translated into CSS or XPath
type Query struct {
	Kind QueryKind
	Expr string
}

// Locator describes how to find an element. It is never modified after construction.
type Locator struct {
	strategy Strategy
	key      string
	child    *Locator
}

func newLocator(strategy Strategy, key string, child *Locator) *Locator {
	return &Locator{strategy: strategy, key: key, child: child}
}

// ByID locates by the id attribute, child is optional context for nested lookups
func ByID(id string, child ...*Locator) *Locator {
	var c *Locator
	if len(child) > 0 {
		c = child[0]
	}
	return newLocator(ID, id, c)
}

// ByName locates by the name attribute
func ByName(name string) *Locator {
	return newLocator(Name, name, nil)
}

// ByLinkText locates anchors whose visible text equals linkText
func ByLinkText(linkText string) *Locator {
	return newLocator(LinkText, linkText, nil)
}

// ByPartialLinkText locates anchors whose visible text contains linkText
func ByPartialLinkText(linkText string) *Locator {
	return newLocator(PartialLinkText, linkText, nil)
}

// ByTag locates by element tag name
func ByTag(tag string) *Locator {
	return newLocator(TagName, tag, nil)
}

// ByXPath locates by an XPath expression
func ByXPath(xpath string) *Locator {
	return newLocator(XPath, xpath, nil)
}

// ByCSSSelector locates by a CSS selector
func ByCSSSelector(selector string) *Locator {
	return newLocator(CSSSelector, selector, nil)
}

// ChildByXPath derives an XPath locator of the form //*[@id="{parent key}"]{relativeXPath}.
// The result is only correct when parent uses the ID strategy, other parents produce
// an expression that searches for an id equal to their key. This is not validated.
func ChildByXPath(parent *Locator, relativeXPath string) *Locator {
	return newLocator(XPath, fmt.Sprintf("//*[@id=\"%s\"]%s", parent.Key(), relativeXPath), parent)
}

// ByFrame locates an iframe or frame element whose id or name is nameOrID
func ByFrame(nameOrID string) *Locator {
	lit := xpathString(nameOrID)
	return newLocator(XPath, fmt.Sprintf("//iframe[@id=%[1]s or @name=%[1]s] | //frame[@id=%[1]s or @name=%[1]s]", lit), nil)
}

// Strategy of this locator
func (l *Locator) Strategy() Strategy {
	return l.strategy
}

// Key the strategy is applied to
func (l *Locator) Key() string {
	if l == nil {
		return ""
	}
	return l.key
}

// Child returns the nested locator this one was derived from or constructed with, may be nil
func (l *Locator) Child() *Locator {
	return l.child
}

// Describe returns "{strategy} {key}" for logs and errors
func (l *Locator) Describe() string {
	if l == nil {
		return "<nil locator>"
	}
	return l.strategy.String() + " " + l.key
}

func (l *Locator) String() string {
	return l.Describe()
}

// Query translates the locator into a CSS or XPath query for engines that do not
// support every strategy natively.
func (l *Locator) Query() (Query, error) {
	switch l.strategy {
	case ID:
		return Query{Kind: QueryCSS, Expr: "[id=" + cssString(l.key) + "]"}, nil
	case Name:
		return Query{Kind: QueryCSS, Expr: "[name=" + cssString(l.key) + "]"}, nil
	case TagName, CSSSelector:
		return Query{Kind: QueryCSS, Expr: l.key}, nil
	case XPath:
		return Query{Kind: QueryXPath, Expr: l.key}, nil
	case LinkText:
		return Query{Kind: QueryXPath, Expr: ".//a[normalize-space(.)=" + xpathString(strings.TrimSpace(l.key)) + "]"}, nil
	case PartialLinkText:
		return Query{Kind: QueryXPath, Expr: ".//a[contains(normalize-space(.)," + xpathString(strings.TrimSpace(l.key)) + ")]"}, nil
	}
	return Query{}, &ConfigurationErr{Message: "unsupported locator strategy " + l.strategy.String()}
}

// WebDriverBy returns the W3C WebDriver strategy name
func (l *Locator) WebDriverBy() (string, error) {
	if by, ok := webDriverByMap[l.strategy]; ok {
		return by, nil
	}
	return "", &ConfigurationErr{Message: "unsupported locator strategy " + l.strategy.String()}
}

func cssString(s string) string {
	s = strings.Replace(s, `\`, `\\`, -1)
	s = strings.Replace(s, `"`, `\"`, -1)
	return `"` + s + `"`
}

// xpath 1.0 has no escape sequences, mixed quotes need concat()
func xpathString(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	parts := strings.Split(s, `"`)
	quoted := make([]string, 0, len(parts)*2)
	for i, part := range parts {
		if i > 0 {
			quoted = append(quoted, `'"'`)
		}
		if part != "" {
			quoted = append(quoted, `"`+part+`"`)
		}
	}
	return "concat(" + strings.Join(quoted, ",") + ")"
}

var locatorPrefixes = map[string]func(string) *Locator{
	"id":      func(k string) *Locator { return ByID(k) },
	"name":    ByName,
	"link":    ByLinkText,
	"partial": ByPartialLinkText,
	"tag":     ByTag,
	"xpath":   ByXPath,
	"css":     ByCSSSelector,
}

// ParseLocator reads the "prefix:key" form used on the command line, for example
// css:#login or xpath://table/tr. A missing prefix is treated as css.
func ParseLocator(s string) (*Locator, error) {
	idx := strings.Index(s, ":")
	if idx <= 0 {
		return ByCSSSelector(s), nil
	}
	ctor, ok := locatorPrefixes[strings.ToLower(s[:idx])]
	if !ok {
		return ByCSSSelector(s), nil
	}
	key := s[idx+1:]
	if key == "" {
		return nil, &ConfigurationErr{Message: "empty locator key in " + s}
	}
	return ctor(key), nil
}
