// Package driver holds what the browser engines share: the page scripts they inject,
// native error classification, browser discovery and process leasing.
package driver

import (
	"strings"

	packr "github.com/gobuffalo/packr/v2"
	"github.com/rs/zerolog/log"
)

// revive:exported
const (
	ScriptQuery     = "query.js"
	ScriptObscured  = "obscured.js"
	ScriptVisible   = "visible.js"
	ScriptClear     = "clear.js"
	ScriptSubmit    = "submit.js"
	ScriptLocation  = "location.js"
	ScriptCenter    = "center.js"
	ScriptText      = "text.js"
	ScriptState     = "state.js"
	ScriptAttribute = "attribute.js"
	ScriptFrame     = "frame.js"
)

var scripts = packr.New("scripts", "./scripts")

const staleGuard = `function () {
  if (this.nodeType === 1 && !this.isConnected) {
    throw new Error("stale element reference: node is detached from the document");
  }
  return (%s).apply(this, arguments);
}`

// Script returns the function source of the named script. The function is called
// with the element as this.
func Script(name string) string {
	src, err := scripts.FindString(name)
	if err != nil {
		log.Fatal().Err(err).Str("script", name).Msg("missing embedded script")
	}
	return strings.TrimSpace(src)
}

// ElementScript wraps the named script so calling it on a detached element throws a
// stale element error instead of reading the detached node.
func ElementScript(name string) string {
	return GuardScript(Script(name))
}

// GuardScript wraps the function source fn with the detached element check
func GuardScript(fn string) string {
	return strings.Replace(staleGuard, "%s", fn, 1)
}

// ArgumentsScript adapts the named script for WebDriver's execute endpoint, where the
// element arrives as arguments[0] and the script arguments follow it.
func ArgumentsScript(name string) string {
	return "var fn = " + ElementScript(name) + ";\nreturn fn.apply(arguments[0], Array.prototype.slice.call(arguments, 1));"
}
