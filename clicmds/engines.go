package clicmds

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/urfave/cli/v2"
	"gitlab.com/blackboxtests/bbt"
	"gitlab.com/blackboxtests/driver"
)

func EnginesFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "config to read browser paths from",
			Value: "",
		},
	}
}

// Engines lists the engines and what each needs on this machine
func Engines(ctx *cli.Context) error {
	cfg, err := bbt.LoadConfig(ctx.String("config"))
	if err != nil {
		return err
	}

	found := color.New(color.FgGreen).SprintFunc()
	missing := color.New(color.FgRed).SprintFunc()
	external := color.New(color.FgYellow).SprintFunc()

	for _, engine := range bbt.Engines {
		status := ""
		switch engine {
		case bbt.Chrome:
			status = binary(driver.FindChrome(cfg.ChromePath), found, missing)
		case bbt.Chromium:
			bin := cfg.ChromePath
			if bin == "" {
				bin, _ = launcher.LookPath()
			}
			status = binary(bin, found, missing)
		case bbt.Firefox:
			status = binary(driver.FindFirefox(), found, missing) + external(" (webdriver at "+cfg.WebDriverURL+")")
		case bbt.Edge:
			status = binary(driver.FindEdge(cfg.EdgePath), found, missing) + external(" (webdriver at "+cfg.WebDriverURL+")")
		case bbt.WebKit:
			status = external("installed by playwright")
		case bbt.Static:
			status = found("built in")
		}
		fmt.Fprintf(ctx.App.Writer, "%-9s %s\n", engine, status)
	}
	return nil
}

func binary(path string, found, missing func(a ...interface{}) string) string {
	if path == "" {
		return missing("not found")
	}
	return found(path)
}
