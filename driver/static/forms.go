package static

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// activate runs n's click handler and then its default action. Called with the
// driver locked. Navigation started from a frame replaces the whole window.
func (d *Driver) activate(ctx context.Context, w *window, doc *document, n *html.Node) error {
	rt := d.runtime(w, doc)
	proceed := true
	if code, ok := attr(n, "onclick"); ok {
		var err error
		if proceed, err = rt.handler(ctx, n, code); err != nil {
			return err
		}
	}
	if proceed {
		if err := d.defaultAction(ctx, w, doc, n); err != nil {
			return err
		}
	}
	return d.settle(ctx, w)
}

func (d *Driver) defaultAction(ctx context.Context, w *window, doc *document, n *html.Node) error {
	if link := closest(n, atom.A); link != nil {
		return d.follow(ctx, w, doc, link)
	}

	switch n.DataAtom {
	case atom.Input:
		switch inputType(n) {
		case "checkbox":
			if hasAttr(n, "checked") {
				removeAttr(n, "checked")
			} else {
				setAttr(n, "checked", "")
			}
		case "radio":
			check(doc, n)
		case "submit", "image":
			if form := formOf(doc, n); form != nil {
				return d.submit(ctx, w, doc, form, n)
			}
		}
	case atom.Button:
		if t, _ := attr(n, "type"); t == "" || strings.EqualFold(t, "submit") {
			if form := formOf(doc, n); form != nil {
				return d.submit(ctx, w, doc, form, n)
			}
		}
	case atom.Option:
		choose(n)
	case atom.Label:
		if id, ok := attr(n, "for"); ok {
			found, err := htmlquery.QueryAll(doc.root, "//*[@id="+quote(id)+"]")
			if err == nil && len(found) > 0 {
				return d.defaultAction(ctx, w, doc, found[0])
			}
		}
	}
	return nil
}

// follow a link. javascript: links run their code, fragment links stay on the page.
func (d *Driver) follow(ctx context.Context, w *window, doc *document, link *html.Node) error {
	href, ok := attr(link, "href")
	if !ok {
		return nil
	}
	href = strings.TrimSpace(href)
	switch {
	case strings.HasPrefix(strings.ToLower(href), "javascript:"):
		code, err := url.PathUnescape(href[len("javascript:"):])
		if err != nil {
			code = href[len("javascript:"):]
		}
		_, err = d.runtime(w, doc).exec(ctx, code)
		return err
	case href == "" || strings.HasPrefix(href, "#"):
		return nil
	}

	u, err := doc.resolve(href)
	if err != nil {
		return err
	}
	if target, _ := attr(link, "target"); strings.EqualFold(target, "_blank") {
		w.opens = append(w.opens, u)
		return nil
	}
	w.pending = u
	return nil
}

// check a radio button and uncheck the rest of its group
func check(doc *document, radio *html.Node) {
	name, _ := attr(radio, "name")
	if name != "" {
		form := formOf(doc, radio)
		group, _ := htmlquery.QueryAll(doc.root, "//input[@name="+quote(name)+"]")
		for _, other := range group {
			if inputType(other) == "radio" && formOf(doc, other) == form {
				removeAttr(other, "checked")
			}
		}
	}
	setAttr(radio, "checked", "")
}

// choose an option, toggling it in a multiple select
func choose(opt *html.Node) {
	sel := closest(opt, atom.Select)
	if sel != nil && hasAttr(sel, "multiple") {
		if hasAttr(opt, "selected") {
			removeAttr(opt, "selected")
		} else {
			setAttr(opt, "selected", "")
		}
		return
	}
	if sel != nil {
		for _, other := range options(sel) {
			removeAttr(other, "selected")
		}
	}
	setAttr(opt, "selected", "")
}

// submit form the way its submitter asks, running onsubmit first
func (d *Driver) submit(ctx context.Context, w *window, doc *document, form, submitter *html.Node) error {
	if code, ok := attr(form, "onsubmit"); ok {
		proceed, err := d.runtime(w, doc).handler(ctx, form, code)
		if err != nil || !proceed {
			return err
		}
	}

	action, _ := attr(form, "action")
	method, _ := attr(form, "method")
	if submitter != nil {
		if v, ok := attr(submitter, "formaction"); ok {
			action = v
		}
		if v, ok := attr(submitter, "formmethod"); ok {
			method = v
		}
	}
	if strings.TrimSpace(action) == "" {
		action = doc.url.String()
	}
	u, err := doc.resolve(action)
	if err != nil {
		return err
	}

	values := formValues(doc, form, submitter)
	if strings.EqualFold(method, http.MethodPost) {
		w.pending = nil
		return d.load(ctx, w, http.MethodPost, u, values, true)
	}
	u.RawQuery = values.Encode()
	w.pending = u
	return nil
}

// formValues collects the successful controls of form in document order
func formValues(doc *document, form, submitter *html.Node) url.Values {
	values := url.Values{}
	controls, _ := htmlquery.QueryAll(doc.root, "//input|//select|//textarea|//button")
	for _, c := range controls {
		name, _ := attr(c, "name")
		if name == "" || hasAttr(c, "disabled") || formOf(doc, c) != form {
			continue
		}
		switch c.DataAtom {
		case atom.Input:
			switch inputType(c) {
			case "submit", "image":
				if c != submitter {
					continue
				}
			case "button", "reset", "file":
				continue
			case "checkbox", "radio":
				if !hasAttr(c, "checked") {
					continue
				}
			}
			v, _ := value(c)
			values.Add(name, v)
		case atom.Button:
			if c != submitter {
				continue
			}
			v, _ := value(c)
			values.Add(name, v)
		case atom.Select:
			if hasAttr(c, "multiple") {
				for _, opt := range options(c) {
					if hasAttr(opt, "selected") {
						values.Add(name, optionValue(opt))
					}
				}
				continue
			}
			v, _ := value(c)
			values.Add(name, v)
		case atom.Textarea:
			v, _ := value(c)
			values.Add(name, v)
		}
	}
	return values
}

func quote(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	return "'" + s + "'"
}
