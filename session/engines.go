package session

import (
	"context"

	"gitlab.com/blackboxtests/bbt"
	"gitlab.com/blackboxtests/driver/chrome"
	"gitlab.com/blackboxtests/driver/chromium"
	"gitlab.com/blackboxtests/driver/static"
	"gitlab.com/blackboxtests/driver/webdriver"
	"gitlab.com/blackboxtests/driver/webkit"
)

func open(ctx context.Context, cfg *bbt.Config) (bbt.Driver, error) {
	switch cfg.Engine {
	case bbt.Chrome:
		return chrome.Open(ctx, cfg)
	case bbt.Chromium:
		return chromium.Open(ctx, cfg)
	case bbt.Firefox, bbt.Edge:
		return webdriver.Open(ctx, cfg)
	case bbt.WebKit:
		return webkit.Open(ctx, cfg)
	case bbt.Static:
		return static.Open(ctx, cfg)
	}
	return nil, &bbt.ConfigurationErr{Message: "unsupported browser engine " + string(cfg.Engine)}
}
