package webkit_test

import (
	"context"
	"os"
	"testing"

	"gitlab.com/blackboxtests/bbt"
	"gitlab.com/blackboxtests/driver/drivertest"
	"gitlab.com/blackboxtests/driver/webkit"
)

// playwright and its webkit build must be installed beforehand
func TestConformance(t *testing.T) {
	if os.Getenv("BBT_TEST_WEBKIT") == "" {
		t.Skip("BBT_TEST_WEBKIT not set")
	}
	cfg, err := bbt.LoadConfig("")
	if err != nil {
		t.Fatalf("failed to load config: %s\n", err)
	}
	cfg.Engine = bbt.WebKit
	cfg.Headless = true

	drivertest.Run(t, func(ctx context.Context) (bbt.Driver, error) {
		return webkit.Open(ctx, cfg)
	})
}
