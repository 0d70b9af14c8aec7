package driver

import (
	"fmt"

	"gitlab.com/blackboxtests/bbt"
)

var startupFlags = []string{
	"--enable-automation",
	"--test-type",
	"--disable-client-side-phishing-detection",
	"--disable-component-update",
	"--disable-infobars",
	"--disable-ntp-popular-sites",
	"--disable-ntp-most-likely-favicons-from-server",
	"--disable-sync-app-list",
	"--disable-domain-reliability",
	"--disable-background-networking",
	"--disable-sync",
	"--disable-new-browser-first-run",
	"--disable-default-apps",
	"--disable-popup-blocking",
	"--disable-extensions",
	"--disable-features=TranslateUI",
	"--disable-gpu",
	"--disable-dev-shm-usage",
	"--no-sandbox",
	"--allow-running-insecure-content",
	"--no-first-run",
	"--safebrowsing-disable-auto-update",
	"--safebrowsing-disable-download-protection",
	"--password-store=basic",
}

// ChromiumFlags for starting chrome, chromium or edge under test. The initial
// about:blank page is always last.
func ChromiumFlags(cfg *bbt.Config) []string {
	flags := make([]string, 0, len(startupFlags)+3)
	flags = append(flags, startupFlags...)
	flags = append(flags, fmt.Sprintf("--window-size=%d,%d", cfg.WindowWidth, cfg.WindowHeight))
	if cfg.Headless {
		flags = append(flags, "--headless")
	}
	return append(flags, "about:blank")
}
