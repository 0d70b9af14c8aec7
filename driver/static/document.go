package static

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"github.com/pkg/errors"
	"gitlab.com/blackboxtests/bbt"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const blankPage = "<html><head></head><body></body></html>"

// document is one parsed response. It goes away when its window navigates.
type document struct {
	url    *url.URL
	root   *html.Node
	gone   bool
	frames map[*html.Node]*document // loaded iframe content by frame element
	rt     *runtime                 // created on first script use
}

func parseDocument(u *url.URL, src string) (*document, error) {
	root, err := htmlquery.Parse(strings.NewReader(src))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse document")
	}
	return &document{url: u, root: root, frames: make(map[*html.Node]*document)}, nil
}

func blankDocument() *document {
	u, _ := url.Parse("about:blank")
	doc, _ := parseDocument(u, blankPage)
	return doc
}

// leave marks the document and every frame loaded in it as gone
func (doc *document) leave() {
	doc.gone = true
	for _, frame := range doc.frames {
		frame.leave()
	}
}

// attached reports whether n is still part of the document tree
func (doc *document) attached(n *html.Node) bool {
	if doc.gone {
		return false
	}
	for ; n != nil; n = n.Parent {
		if n == doc.root {
			return true
		}
	}
	return false
}

// query n's descendants, elements only, in document order
func query(n *html.Node, by *bbt.Locator) ([]*html.Node, error) {
	q, err := by.Query()
	if err != nil {
		return nil, err
	}

	if q.Kind == bbt.QueryCSS {
		matcher, err := cascadia.Compile(q.Expr)
		if err != nil {
			return nil, &bbt.ConfigurationErr{Message: "invalid css selector " + q.Expr + ": " + err.Error()}
		}
		return goquery.NewDocumentFromNode(n).FindMatcher(matcher).Nodes, nil
	}

	found, err := htmlquery.QueryAll(n, q.Expr)
	if err != nil {
		return nil, &bbt.ConfigurationErr{Message: "invalid xpath " + q.Expr + ": " + err.Error()}
	}
	elements := found[:0]
	for _, f := range found {
		if f.Type == html.ElementNode {
			elements = append(elements, f)
		}
	}
	return elements, nil
}

// resolve a reference found in the document against its url
func (doc *document) resolve(ref string) (*url.URL, error) {
	u, err := doc.url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid url %s", ref)
	}
	u.Fragment = ""
	return u, nil
}

func attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			return a.Val, true
		}
	}
	return "", false
}

func hasAttr(n *html.Node, name string) bool {
	_, ok := attr(n, name)
	return ok
}

func setAttr(n *html.Node, name, value string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}

func removeAttr(n *html.Node, name string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

func inputType(n *html.Node) string {
	if n.DataAtom != atom.Input {
		return ""
	}
	t, _ := attr(n, "type")
	t = strings.ToLower(strings.TrimSpace(t))
	if t == "" {
		return "text"
	}
	return t
}

// closest returns n or its nearest ancestor with tag a
func closest(n *html.Node, a atom.Atom) *html.Node {
	for ; n != nil; n = n.Parent {
		if n.Type == html.ElementNode && n.DataAtom == a {
			return n
		}
	}
	return nil
}

// form owning n, by ancestry or by the form attribute
func formOf(doc *document, n *html.Node) *html.Node {
	if id, ok := attr(n, "form"); ok {
		found, err := query(doc.root, bbt.ByID(id))
		if err == nil && len(found) > 0 && found[0].DataAtom == atom.Form {
			return found[0]
		}
	}
	return closest(n, atom.Form)
}

var notRendered = map[atom.Atom]bool{
	atom.Head:     true,
	atom.Script:   true,
	atom.Style:    true,
	atom.Template: true,
	atom.Noscript: true,
	atom.Title:    true,
	atom.Meta:     true,
	atom.Link:     true,
}

// displayed without layout: nothing on the path to the root hides it
func displayed(n *html.Node) bool {
	for el := n; el != nil; el = el.Parent {
		if el.Type != html.ElementNode {
			continue
		}
		if notRendered[el.DataAtom] || hasAttr(el, "hidden") || inputType(el) == "hidden" {
			return false
		}
		style, _ := attr(el, "style")
		style = strings.ToLower(strings.Replace(style, " ", "", -1))
		if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
			return false
		}
	}
	return true
}

func enabled(n *html.Node) bool {
	if hasAttr(n, "disabled") {
		return false
	}
	if n.DataAtom == atom.Option {
		for p := n.Parent; p != nil && p.Type == html.ElementNode; p = p.Parent {
			if (p.DataAtom == atom.Select || p.DataAtom == atom.Optgroup) && hasAttr(p, "disabled") {
				return false
			}
		}
	}
	return true
}

func selected(n *html.Node) bool {
	switch {
	case n.DataAtom == atom.Option:
		if hasAttr(n, "selected") {
			return true
		}
		// a single choice select with nothing marked shows its first option
		sel := closest(n.Parent, atom.Select)
		if sel == nil || hasAttr(sel, "multiple") {
			return false
		}
		opts := options(sel)
		for _, opt := range opts {
			if hasAttr(opt, "selected") {
				return false
			}
		}
		return len(opts) > 0 && opts[0] == n
	case inputType(n) == "checkbox", inputType(n) == "radio":
		return hasAttr(n, "checked")
	}
	return false
}

// text as rendered, whitespace collapsed
func text(n *html.Node) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		switch c.Type {
		case html.TextNode:
			parts = append(parts, strings.Fields(c.Data)...)
			return
		case html.ElementNode:
			if !displayed(c) {
				return
			}
			if c.DataAtom == atom.Br {
				parts = append(parts, "\n")
			}
		}
		for child := c.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return strings.TrimSpace(strings.Replace(strings.Join(parts, " "), " \n ", "\n", -1))
}

// value is the live value of a form control
func value(n *html.Node) (string, bool) {
	switch n.DataAtom {
	case atom.Textarea:
		return htmlquery.InnerText(n), true
	case atom.Select:
		for _, opt := range options(n) {
			if hasAttr(opt, "selected") {
				return optionValue(opt), true
			}
		}
		if opts := options(n); len(opts) > 0 && !hasAttr(n, "multiple") {
			return optionValue(opts[0]), true
		}
		return "", true
	case atom.Option:
		return optionValue(n), true
	case atom.Input:
		v, ok := attr(n, "value")
		if !ok && (inputType(n) == "checkbox" || inputType(n) == "radio") {
			return "on", true
		}
		return v, true
	case atom.Button:
		v, _ := attr(n, "value")
		return v, true
	}
	return "", false
}

func setValue(n *html.Node, v string) {
	if n.DataAtom == atom.Textarea {
		for c := n.FirstChild; c != nil; {
			next := c.NextSibling
			n.RemoveChild(c)
			c = next
		}
		n.AppendChild(&html.Node{Type: html.TextNode, Data: v})
		return
	}
	setAttr(n, "value", v)
}

func editable(n *html.Node) bool {
	if n.DataAtom == atom.Textarea {
		return true
	}
	switch inputType(n) {
	case "", "checkbox", "radio", "submit", "reset", "button", "image", "file", "hidden":
		return false
	}
	return true
}

func options(sel *html.Node) []*html.Node {
	found, _ := htmlquery.QueryAll(sel, ".//option")
	return found
}

func optionValue(opt *html.Node) string {
	if v, ok := attr(opt, "value"); ok {
		return v
	}
	return text(opt)
}
