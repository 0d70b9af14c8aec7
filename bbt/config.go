package bbt

import (
	"os"
	"time"

	"github.com/mstoykov/envconfig"
	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// Config for a session. File values are decoded from TOML and BBT_* environment
// variables take precedence over the file.
type Config struct {
	Engine         Engine        `toml:"engine" envconfig:"BBT_ENGINE"`
	Headless       bool          `toml:"headless" envconfig:"BBT_HEADLESS"`
	ElementTimeout time.Duration `toml:"element_timeout" envconfig:"BBT_ELEMENT_TIMEOUT"` // clickable wait and click retry deadline
	PollInterval   time.Duration `toml:"poll_interval" envconfig:"BBT_POLL_INTERVAL"`
	AlertTimeout   time.Duration `toml:"alert_timeout" envconfig:"BBT_ALERT_TIMEOUT"`
	TableWait      time.Duration `toml:"table_wait" envconfig:"BBT_TABLE_WAIT"`
	TableSettle    time.Duration `toml:"table_settle" envconfig:"BBT_TABLE_SETTLE"` // sleep before reading rows
	ScrollOffset   int           `toml:"scroll_offset" envconfig:"BBT_SCROLL_OFFSET"`
	ChromePath     string        `toml:"chrome_path" envconfig:"BBT_CHROME_PATH"`
	EdgePath       string        `toml:"edge_path" envconfig:"BBT_EDGE_PATH"`
	WebDriverURL   string        `toml:"webdriver_url" envconfig:"BBT_WEBDRIVER_URL"`
	WindowWidth    int           `toml:"window_width" envconfig:"BBT_WINDOW_WIDTH"`
	WindowHeight   int           `toml:"window_height" envconfig:"BBT_WINDOW_HEIGHT"`
	TmpDir         string        `toml:"tmp_dir" envconfig:"BBT_TMP_DIR"`
}

// NewConfig with defaults
func NewConfig() *Config {
	return &Config{
		Engine:         Chrome,
		Headless:       true,
		ElementTimeout: 10 * time.Second,
		PollInterval:   500 * time.Millisecond,
		AlertTimeout:   2 * time.Second,
		TableWait:      5 * time.Second,
		TableSettle:    5 * time.Second,
		ScrollOffset:   150,
		WebDriverURL:   "http://localhost:4444/wd/hub",
		WindowWidth:    1024,
		WindowHeight:   768,
	}
}

// LoadConfig applies defaults, then the TOML file at path (if path is not empty),
// then environment overrides.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrap(err, "failed to open config")
		}
		defer f.Close()

		if err := toml.NewDecoder(f).Decode(cfg); err != nil {
			return nil, errors.Wrapf(err, "failed to decode %s", path)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, errors.Wrap(err, "failed to read environment")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate normalizes the engine name and rejects unusable timings
func (c *Config) Validate() error {
	engine, err := ParseEngine(string(c.Engine))
	if err != nil {
		return err
	}
	c.Engine = engine

	switch {
	case c.ElementTimeout <= 0:
		return &ConfigurationErr{Message: "element_timeout must be positive"}
	case c.PollInterval <= 0:
		return &ConfigurationErr{Message: "poll_interval must be positive"}
	case c.AlertTimeout < 0, c.TableWait < 0, c.TableSettle < 0:
		return &ConfigurationErr{Message: "alert_timeout, table_wait and table_settle can not be negative"}
	}
	return nil
}
