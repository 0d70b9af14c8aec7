package bbt_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/blackboxtests/bbt"
)

func writeConfig(t *testing.T, contents string) string {
	path := filepath.Join(t.TempDir(), "bbt.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))
	return path
}

func TestConfigDefaults(t *testing.T) {
	cfg, err := bbt.LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, bbt.Chrome, cfg.Engine)
	assert.Equal(t, 10*time.Second, cfg.ElementTimeout)
	assert.Equal(t, 2*time.Second, cfg.AlertTimeout)
	assert.Equal(t, 5*time.Second, cfg.TableSettle)
	assert.Equal(t, 150, cfg.ScrollOffset)
}

func TestConfigFileThenEnv(t *testing.T) {
	path := writeConfig(t, `
engine = "Firefox"
element_timeout = "3s"
table_settle = "250ms"
webdriver_url = "http://grid:4444/wd/hub"
`)
	t.Setenv("BBT_ELEMENT_TIMEOUT", "7s")

	cfg, err := bbt.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, bbt.Firefox, cfg.Engine)
	assert.Equal(t, 7*time.Second, cfg.ElementTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.TableSettle)
	assert.Equal(t, "http://grid:4444/wd/hub", cfg.WebDriverURL)
	assert.Equal(t, 2*time.Second, cfg.AlertTimeout)
}

func TestConfigRejectsUnknownEngine(t *testing.T) {
	path := writeConfig(t, `engine = "lynx"`)

	_, err := bbt.LoadConfig(path)
	var cfgErr *bbt.ConfigurationErr
	require.ErrorAs(t, err, &cfgErr)
}

func TestConfigValidate(t *testing.T) {
	cfg := bbt.NewConfig()
	cfg.PollInterval = 0
	assert.Error(t, cfg.Validate())

	cfg = bbt.NewConfig()
	cfg.TableSettle = -time.Second
	assert.Error(t, cfg.Validate())

	cfg = bbt.NewConfig()
	cfg.Engine = "STATIC"
	require.NoError(t, cfg.Validate())
	assert.Equal(t, bbt.Static, cfg.Engine)
}

func TestErrorMessages(t *testing.T) {
	err := &bbt.ElementNotFoundErr{Description: bbt.ByID("missing").Describe(), HTML: "<html></html>"}
	assert.Contains(t, err.Error(), "Id missing")
	assert.Contains(t, err.Error(), "<html></html>")

	fault := &bbt.DriverFaultErr{Op: "click", Description: "Id x", Err: bbt.ErrNotInteractable}
	assert.ErrorIs(t, fault, bbt.ErrNotInteractable)

	closed := &bbt.SessionClosedErr{Err: bbt.ErrNoSuchWindow}
	assert.ErrorIs(t, closed, bbt.ErrNoSuchWindow)
}
