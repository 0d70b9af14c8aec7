package static

import (
	"context"
	"strings"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/console"
	"github.com/dop251/goja_nodejs/require"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gitlab.com/blackboxtests/bbt"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// dialog raised by alert, confirm or prompt. Scripts do not block on it, confirm
// answers true and prompt its default as if it had been accepted already.
type dialog struct {
	kind    string
	message string
}

// logPrinter sends console output to the debug log
type logPrinter struct {
	url string
}

func (p logPrinter) Log(s string)   { log.Debug().Str("url", p.url).Msg(s) }
func (p logPrinter) Warn(s string)  { log.Warn().Str("url", p.url).Msg(s) }
func (p logPrinter) Error(s string) { log.Error().Str("url", p.url).Msg(s) }

const maxClickDepth = 8

// runtime is the script environment of one document: a goja VM with just enough of
// window and document for inline handlers and ExecuteScript
type runtime struct {
	d       *Driver
	w       *window
	doc     *document
	vm      *goja.Runtime
	ctx     context.Context
	proxies map[*html.Node]*goja.Object
	nodes   map[*goja.Object]*html.Node
	depth   int

	prevented bool
}

func (d *Driver) runtime(w *window, doc *document) *runtime {
	if doc.rt != nil {
		return doc.rt
	}
	vm := goja.New()
	registry := new(require.Registry)
	registry.RegisterNativeModule("console", console.RequireWithPrinter(logPrinter{url: doc.url.String()}))
	registry.Enable(vm)
	console.Enable(vm)

	r := &runtime{
		d:       d,
		w:       w,
		doc:     doc,
		vm:      vm,
		ctx:     context.Background(),
		proxies: make(map[*html.Node]*goja.Object),
		nodes:   make(map[*goja.Object]*html.Node),
	}
	r.installWindow()
	r.installDocument()
	doc.rt = r
	return r
}

// run fn with ctx able to interrupt it
func (r *runtime) run(ctx context.Context, fn func() (goja.Value, error)) (goja.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prev := r.ctx
	r.ctx = ctx
	interrupted := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		defer close(interrupted)
		r.vm.Interrupt(ctx.Err())
	})
	defer func() {
		if !stop() {
			<-interrupted
		}
		r.vm.ClearInterrupt()
		r.ctx = prev
	}()

	v, err := fn()
	if err != nil {
		var interruptErr *goja.InterruptedError
		if errors.As(err, &interruptErr) && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrap(err, "javascript error")
	}
	return v, nil
}

// exec runs script as a function body with args
func (r *runtime) exec(ctx context.Context, script string, args ...interface{}) (interface{}, error) {
	v, err := r.run(ctx, func() (goja.Value, error) {
		fn, err := r.compile("function () {\n" + script + "\n}")
		if err != nil {
			return nil, err
		}
		values := make([]goja.Value, len(args))
		for i, arg := range args {
			values[i] = r.toValue(arg)
		}
		return fn(r.vm.GlobalObject(), values...)
	})
	if err != nil {
		return nil, err
	}
	return r.export(v), nil
}

// handler runs an inline event handler attribute with n as this. A handler
// returning false cancels the default action.
func (r *runtime) handler(ctx context.Context, n *html.Node, code string) (bool, error) {
	v, err := r.run(ctx, func() (goja.Value, error) {
		fn, err := r.compile("function (event) {\n" + code + "\n}")
		if err != nil {
			return nil, err
		}
		return fn(r.proxy(n), r.event())
	})
	if err != nil {
		return false, err
	}
	if v != nil && !goja.IsUndefined(v) && !goja.IsNull(v) && !v.ToBoolean() {
		return false, nil
	}
	return !r.prevented, nil
}

func (r *runtime) compile(src string) (goja.Callable, error) {
	v, err := r.vm.RunString("(" + src + ")")
	if err != nil {
		return nil, err
	}
	fn, ok := goja.AssertFunction(v)
	if !ok {
		return nil, errors.New("script is not a function")
	}
	return fn, nil
}

func (r *runtime) event() *goja.Object {
	r.prevented = false
	ev := r.vm.NewObject()
	_ = ev.Set("preventDefault", func(goja.FunctionCall) goja.Value {
		r.prevented = true
		return goja.Undefined()
	})
	return ev
}

// scripts runs the document's inline script blocks in order. A failing block is
// logged and skipped, like a browser would.
func (r *runtime) scripts(ctx context.Context) error {
	blocks, err := query(r.doc.root, bbt.ByTag("script"))
	if err != nil {
		return err
	}
	for _, block := range blocks {
		if hasAttr(block, "src") {
			continue
		}
		if t, ok := attr(block, "type"); ok && t != "" && !strings.Contains(strings.ToLower(t), "javascript") {
			continue
		}
		_, err := r.run(ctx, func() (goja.Value, error) {
			return r.vm.RunString(scriptText(block))
		})
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			log.Debug().Err(err).Str("url", r.doc.url.String()).Msg("inline script failed")
		}
	}
	return nil
}

func scriptText(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

func (r *runtime) raise(kind, message string) {
	log.Debug().Str("type", kind).Str("message", message).Msg("dialog opened")
	r.w.dialog = &dialog{kind: kind, message: message}
}

func (r *runtime) installWindow() {
	vm := r.vm
	global := vm.GlobalObject()
	_ = global.Set("window", global)
	_ = global.Set("self", global)
	_ = global.Set("scrollX", 0)
	_ = global.Set("scrollY", 0)

	_ = global.Set("alert", func(call goja.FunctionCall) goja.Value {
		r.raise("alert", argString(call, 0))
		return goja.Undefined()
	})
	_ = global.Set("confirm", func(call goja.FunctionCall) goja.Value {
		r.raise("confirm", argString(call, 0))
		return vm.ToValue(true)
	})
	_ = global.Set("prompt", func(call goja.FunctionCall) goja.Value {
		r.raise("prompt", argString(call, 0))
		return vm.ToValue(argString(call, 1))
	})
	noop := func(goja.FunctionCall) goja.Value { return goja.Undefined() }
	_ = global.Set("scrollTo", noop)
	_ = global.Set("scrollBy", noop)
	_ = global.Set("focus", noop)
	_ = global.Set("open", func(call goja.FunctionCall) goja.Value {
		if u, err := r.doc.resolve(argString(call, 0)); err == nil {
			r.w.opens = append(r.w.opens, u)
		}
		return goja.Null()
	})

	location := vm.NewObject()
	_ = location.DefineAccessorProperty("href",
		vm.ToValue(func(goja.FunctionCall) goja.Value { return vm.ToValue(r.doc.url.String()) }),
		vm.ToValue(func(call goja.FunctionCall) goja.Value {
			r.assign(argString(call, 0))
			return goja.Undefined()
		}), goja.FLAG_TRUE, goja.FLAG_TRUE)
	_ = location.Set("assign", func(call goja.FunctionCall) goja.Value {
		r.assign(argString(call, 0))
		return goja.Undefined()
	})
	_ = location.Set("reload", func(goja.FunctionCall) goja.Value {
		r.w.pending = r.doc.url
		return goja.Undefined()
	})
	_ = location.Set("toString", func(goja.FunctionCall) goja.Value { return vm.ToValue(r.doc.url.String()) })
	_ = global.Set("location", location)
}

func (r *runtime) assign(ref string) {
	u, err := r.doc.resolve(ref)
	if err != nil {
		panic(r.vm.NewTypeError(err.Error()))
	}
	r.w.pending = u
}

func (r *runtime) installDocument() {
	vm := r.vm
	document := vm.NewObject()
	_ = document.Set("nodeType", 9)
	_ = document.DefineAccessorProperty("URL",
		vm.ToValue(func(goja.FunctionCall) goja.Value { return vm.ToValue(r.doc.url.String()) }),
		nil, goja.FLAG_FALSE, goja.FLAG_TRUE)
	_ = document.DefineAccessorProperty("title",
		vm.ToValue(func(goja.FunctionCall) goja.Value {
			found, _ := query(r.doc.root, bbt.ByTag("title"))
			if len(found) == 0 {
				return vm.ToValue("")
			}
			return vm.ToValue(strings.TrimSpace(scriptText(found[0])))
		}), nil, goja.FLAG_FALSE, goja.FLAG_TRUE)
	_ = document.DefineAccessorProperty("body",
		vm.ToValue(func(goja.FunctionCall) goja.Value {
			return r.first(r.doc.root, bbt.ByTag("body"))
		}), nil, goja.FLAG_FALSE, goja.FLAG_TRUE)
	_ = document.DefineAccessorProperty("documentElement",
		vm.ToValue(func(goja.FunctionCall) goja.Value {
			return r.first(r.doc.root, bbt.ByTag("html"))
		}), nil, goja.FLAG_FALSE, goja.FLAG_TRUE)
	r.installQueries(document, r.doc.root)
	_ = document.Set("getElementById", func(call goja.FunctionCall) goja.Value {
		return r.first(r.doc.root, bbt.ByID(argString(call, 0)))
	})
	_ = document.Set("getElementsByName", func(call goja.FunctionCall) goja.Value {
		return r.all(r.doc.root, bbt.ByName(argString(call, 0)))
	})
	_ = document.Set("getElementsByTagName", func(call goja.FunctionCall) goja.Value {
		return r.all(r.doc.root, bbt.ByTag(argString(call, 0)))
	})
	_ = vm.GlobalObject().Set("document", document)
}

func (r *runtime) installQueries(obj *goja.Object, n *html.Node) {
	_ = obj.Set("querySelector", func(call goja.FunctionCall) goja.Value {
		return r.first(n, bbt.ByCSSSelector(argString(call, 0)))
	})
	_ = obj.Set("querySelectorAll", func(call goja.FunctionCall) goja.Value {
		return r.all(n, bbt.ByCSSSelector(argString(call, 0)))
	})
}

func (r *runtime) first(n *html.Node, by *bbt.Locator) goja.Value {
	found, err := query(n, by)
	if err != nil {
		panic(r.vm.NewTypeError(err.Error()))
	}
	if len(found) == 0 {
		return goja.Null()
	}
	return r.proxy(found[0])
}

func (r *runtime) all(n *html.Node, by *bbt.Locator) goja.Value {
	found, err := query(n, by)
	if err != nil {
		panic(r.vm.NewTypeError(err.Error()))
	}
	items := make([]interface{}, len(found))
	for i, f := range found {
		items[i] = r.proxy(f)
	}
	return r.vm.NewArray(items...)
}

// proxy returns the script object standing for n, the same object every time
func (r *runtime) proxy(n *html.Node) *goja.Object {
	if obj, ok := r.proxies[n]; ok {
		return obj
	}

	vm := r.vm
	obj := vm.NewObject()
	r.proxies[n] = obj
	r.nodes[obj] = n

	getter := func(get func() interface{}) goja.Value {
		return vm.ToValue(func(goja.FunctionCall) goja.Value { return vm.ToValue(get()) })
	}
	setter := func(set func(v goja.Value)) goja.Value {
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			set(call.Argument(0))
			return goja.Undefined()
		})
	}
	flag := func(name string) func(v goja.Value) {
		return func(v goja.Value) {
			if v.ToBoolean() {
				setAttr(n, name, "")
				return
			}
			removeAttr(n, name)
		}
	}

	_ = obj.Set("nodeType", 1)
	_ = obj.Set("tagName", strings.ToUpper(n.Data))
	_ = obj.Set("scrollHeight", 0)
	_ = obj.DefineAccessorProperty("id", getter(func() interface{} { v, _ := attr(n, "id"); return v }), nil, goja.FLAG_FALSE, goja.FLAG_TRUE)
	_ = obj.DefineAccessorProperty("name", getter(func() interface{} { v, _ := attr(n, "name"); return v }), nil, goja.FLAG_FALSE, goja.FLAG_TRUE)
	_ = obj.DefineAccessorProperty("isConnected", getter(func() interface{} { return r.doc.attached(n) }), nil, goja.FLAG_FALSE, goja.FLAG_TRUE)
	_ = obj.DefineAccessorProperty("value",
		getter(func() interface{} { v, _ := value(n); return v }),
		setter(func(v goja.Value) { setValue(n, v.String()) }), goja.FLAG_FALSE, goja.FLAG_TRUE)
	_ = obj.DefineAccessorProperty("checked",
		getter(func() interface{} { return hasAttr(n, "checked") }),
		setter(flag("checked")), goja.FLAG_FALSE, goja.FLAG_TRUE)
	_ = obj.DefineAccessorProperty("selected",
		getter(func() interface{} { return hasAttr(n, "selected") }),
		setter(flag("selected")), goja.FLAG_FALSE, goja.FLAG_TRUE)
	_ = obj.DefineAccessorProperty("disabled",
		getter(func() interface{} { return hasAttr(n, "disabled") }),
		setter(flag("disabled")), goja.FLAG_FALSE, goja.FLAG_TRUE)
	_ = obj.DefineAccessorProperty("innerText", getter(func() interface{} { return text(n) }), nil, goja.FLAG_FALSE, goja.FLAG_TRUE)
	_ = obj.DefineAccessorProperty("textContent",
		getter(func() interface{} { return scriptText(n) }),
		setter(func(v goja.Value) { replaceText(n, v.String()) }), goja.FLAG_FALSE, goja.FLAG_TRUE)
	_ = obj.DefineAccessorProperty("parentElement",
		vm.ToValue(func(goja.FunctionCall) goja.Value {
			if n.Parent == nil || n.Parent.Type != html.ElementNode {
				return goja.Null()
			}
			return r.proxy(n.Parent)
		}), nil, goja.FLAG_FALSE, goja.FLAG_TRUE)
	_ = obj.DefineAccessorProperty("form",
		vm.ToValue(func(goja.FunctionCall) goja.Value {
			if form := formOf(r.doc, n); form != nil {
				return r.proxy(form)
			}
			return goja.Null()
		}), nil, goja.FLAG_FALSE, goja.FLAG_TRUE)

	_ = obj.Set("getAttribute", func(call goja.FunctionCall) goja.Value {
		if v, ok := attr(n, argString(call, 0)); ok {
			return vm.ToValue(v)
		}
		return goja.Null()
	})
	_ = obj.Set("hasAttribute", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(hasAttr(n, argString(call, 0)))
	})
	_ = obj.Set("setAttribute", func(call goja.FunctionCall) goja.Value {
		setAttr(n, argString(call, 0), argString(call, 1))
		return goja.Undefined()
	})
	_ = obj.Set("removeAttribute", func(call goja.FunctionCall) goja.Value {
		removeAttr(n, argString(call, 0))
		return goja.Undefined()
	})
	_ = obj.Set("focus", func(goja.FunctionCall) goja.Value { return goja.Undefined() })
	_ = obj.Set("scrollIntoView", func(goja.FunctionCall) goja.Value { return goja.Undefined() })
	_ = obj.Set("click", func(goja.FunctionCall) goja.Value {
		if r.depth >= maxClickDepth {
			return goja.Undefined()
		}
		r.depth++
		defer func() { r.depth-- }()
		if err := r.d.activate(r.ctx, r.w, r.doc, n); err != nil {
			panic(r.vm.NewGoError(err))
		}
		return goja.Undefined()
	})
	_ = obj.Set("submit", func(goja.FunctionCall) goja.Value {
		form := closest(n, atom.Form)
		if form == nil {
			panic(r.vm.NewTypeError("element is not in a form"))
		}
		if err := r.d.submit(r.ctx, r.w, r.doc, form, nil); err != nil {
			panic(r.vm.NewGoError(err))
		}
		return goja.Undefined()
	})
	r.installQueries(obj, n)
	return obj
}

func replaceText(n *html.Node, s string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	if s != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: s})
	}
}

func (r *runtime) toValue(arg interface{}) goja.Value {
	if el, ok := arg.(*Element); ok && el.doc == r.doc {
		return r.proxy(el.node)
	}
	return r.vm.ToValue(arg)
}

// export converts a script result, element objects come back as elements
func (r *runtime) export(v goja.Value) interface{} {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	if obj, ok := v.(*goja.Object); ok {
		if n, ok := r.nodes[obj]; ok {
			return &Element{d: r.d, w: r.w, doc: r.doc, node: n}
		}
	}
	return v.Export()
}

func argString(call goja.FunctionCall, i int) string {
	v := call.Argument(i)
	if goja.IsUndefined(v) || goja.IsNull(v) {
		return ""
	}
	return v.String()
}
