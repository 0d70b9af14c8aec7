package chromium_test

import (
	"context"
	"testing"

	"github.com/go-rod/rod/lib/launcher"
	"gitlab.com/blackboxtests/bbt"
	"gitlab.com/blackboxtests/driver/chromium"
	"gitlab.com/blackboxtests/driver/drivertest"
)

func TestConformance(t *testing.T) {
	cfg, err := bbt.LoadConfig("")
	if err != nil {
		t.Fatalf("failed to load config: %s\n", err)
	}
	if _, found := launcher.LookPath(); !found && cfg.ChromePath == "" {
		t.Skip("no chromium build found")
	}
	cfg.Engine = bbt.Chromium
	cfg.Headless = true

	drivertest.Run(t, func(ctx context.Context) (bbt.Driver, error) {
		return chromium.Open(ctx, cfg)
	})
}
