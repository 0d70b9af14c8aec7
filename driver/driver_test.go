package driver_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/dop251/goja"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/blackboxtests/bbt"
	"gitlab.com/blackboxtests/driver"
)

var allScripts = []string{
	driver.ScriptQuery,
	driver.ScriptObscured,
	driver.ScriptVisible,
	driver.ScriptClear,
	driver.ScriptSubmit,
	driver.ScriptLocation,
	driver.ScriptCenter,
	driver.ScriptText,
	driver.ScriptState,
	driver.ScriptAttribute,
	driver.ScriptFrame,
}

func TestScriptsCompile(t *testing.T) {
	for _, name := range allScripts {
		t.Run(name, func(t *testing.T) {
			src := driver.Script(name)
			require.NotEmpty(t, src)

			_, err := goja.Compile(name, "("+src+")", false)
			assert.NoError(t, err)
			_, err = goja.Compile(name, "("+driver.ElementScript(name)+")", false)
			assert.NoError(t, err)
			_, err = goja.Compile(name, "(function () {\n"+driver.ArgumentsScript(name)+"\n})", false)
			assert.NoError(t, err)
		})
	}
}

func guarded(t *testing.T, vm *goja.Runtime, fn string) goja.Callable {
	v, err := vm.RunString("(" + driver.GuardScript(fn) + ")")
	require.NoError(t, err)
	call, ok := goja.AssertFunction(v)
	require.True(t, ok)
	return call
}

func TestGuardScriptDetached(t *testing.T) {
	vm := goja.New()
	call := guarded(t, vm, "function () { return 1; }")

	detached, err := vm.RunString("({ nodeType: 1, isConnected: false })")
	require.NoError(t, err)
	_, err = call(detached)
	require.Error(t, err)

	classified := driver.Classify(err)
	assert.True(t, errors.Is(classified, bbt.ErrStaleElement), "got %v", classified)
}

func TestGuardScriptPassesArguments(t *testing.T) {
	vm := goja.New()
	call := guarded(t, vm, "function (a, b) { return this.tag + a + b; }")

	attached, err := vm.RunString("({ nodeType: 1, isConnected: true, tag: 'td' })")
	require.NoError(t, err)
	v, err := call(attached, vm.ToValue("-"), vm.ToValue(2))
	require.NoError(t, err)
	assert.Equal(t, "td-2", v.Export())
}

func TestArgumentsScriptShiftsElement(t *testing.T) {
	vm := goja.New()
	// state.js reads tagName, disabled and selected
	v, err := vm.RunString("(function () {\n" + driver.ArgumentsScript(driver.ScriptState) + "\n})")
	require.NoError(t, err)
	call, ok := goja.AssertFunction(v)
	require.True(t, ok)

	el, err := vm.RunString("({ nodeType: 1, isConnected: true, tagName: 'INPUT', disabled: true, checked: true, type: 'checkbox' })")
	require.NoError(t, err)
	res, err := call(goja.Undefined(), el)
	require.NoError(t, err)

	state, err := driver.ToState(res.Export())
	require.NoError(t, err)
	assert.Equal(t, "input", state.Tag)
	assert.False(t, state.Enabled)
}

func TestClassify(t *testing.T) {
	var inputs = []struct {
		in       string
		expected error
	}{
		{"stale element reference: element is not attached to the page document", bbt.ErrStaleElement},
		{"Could not find object with given id", bbt.ErrStaleElement},
		{"Execution context was destroyed, most likely because of a navigation", bbt.ErrStaleElement},
		{"no such alert", bbt.ErrNoAlert},
		{"No dialog is showing", bbt.ErrNoAlert},
		{"no such frame", bbt.ErrNoSuchFrame},
		{"no such window: target window already closed", bbt.ErrNoSuchWindow},
		{"invalid session id", bbt.ErrSessionClosed},
		{"write tcp 127.0.0.1:9222: use of closed network connection", bbt.ErrSessionClosed},
		{"element click intercepted: Element <a> is not clickable at point (1, 2)", bbt.ErrNotInteractable},
		{"no such element: Unable to locate element", bbt.ErrNoSuchElement},
	}

	for _, in := range inputs {
		err := driver.Classify(errors.New(in.in))
		assert.True(t, errors.Is(err, in.expected), "%q classified as %v", in.in, err)
		assert.Contains(t, err.Error(), in.in)
	}
}

func TestClassifyUnchanged(t *testing.T) {
	assert.NoError(t, driver.Classify(nil))

	unknown := errors.New("something else went wrong")
	assert.Same(t, unknown, driver.Classify(unknown))

	ctxErr := errors.Wrap(context.DeadlineExceeded, "no such element")
	assert.Equal(t, ctxErr, driver.Classify(ctxErr))

	cfgErr := &bbt.ConfigurationErr{Message: "no such window"}
	assert.Equal(t, error(cfgErr), driver.Classify(cfgErr))

	wrapped := errors.Wrap(bbt.ErrNoAlert, "no such element")
	assert.Equal(t, wrapped, driver.Classify(wrapped))
}

func TestToPoint(t *testing.T) {
	p, err := driver.ToPoint(map[string]interface{}{"x": 10.7, "y": float64(20)})
	require.NoError(t, err)
	assert.Equal(t, bbt.Point{X: 10, Y: 20}, p)

	p, err = driver.ToPoint(json.RawMessage(`{"x":3,"y":4}`))
	require.NoError(t, err)
	assert.Equal(t, bbt.Point{X: 3, Y: 4}, p)

	x, y, err := driver.ToFloatPoint(map[string]interface{}{"x": 1.5, "y": 2.25})
	require.NoError(t, err)
	assert.Equal(t, 1.5, x)
	assert.Equal(t, 2.25, y)

	_, err = driver.ToPoint("nope")
	assert.Error(t, err)
}

func TestScalarConversions(t *testing.T) {
	b, err := driver.ToBool(true)
	require.NoError(t, err)
	assert.True(t, b)
	_, err = driver.ToBool("true")
	assert.Error(t, err)

	s, err := driver.ToOptionalString(nil)
	require.NoError(t, err)
	assert.Nil(t, s)
	s, err = driver.ToOptionalString("v")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "v", *s)
	_, err = driver.ToOptionalString(1)
	assert.Error(t, err)

	str, err := driver.ToString(nil)
	require.NoError(t, err)
	assert.Equal(t, "", str)
}

func TestChromiumFlags(t *testing.T) {
	cfg := bbt.NewConfig()
	cfg.WindowWidth = 800
	cfg.WindowHeight = 600

	flags := driver.ChromiumFlags(cfg)
	assert.Contains(t, flags, "--window-size=800,600")
	assert.Contains(t, flags, "--headless")
	assert.Equal(t, "about:blank", flags[len(flags)-1])

	cfg.Headless = false
	assert.NotContains(t, driver.ChromiumFlags(cfg), "--headless")
}

func TestTmpDirOverride(t *testing.T) {
	assert.Equal(t, "/var/bbt", driver.TmpDir("/var/bbt"))
	assert.NotEmpty(t, driver.TmpDir(""))
	assert.Equal(t, "/opt/edge", driver.FindEdge("/opt/edge"))
}
