package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"gitlab.com/blackboxtests/clicmds"
)

func main() {
	app := cli.NewApp()
	app.Name = "bbt"
	app.Version = "0.1"
	app.Usage = "check what a black box test would see in a browser"
	app.Flags = []cli.Flag{
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "log at debug level",
			Value: false,
		},
	}
	app.Before = func(ctx *cli.Context) error {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		if ctx.Bool("debug") {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		}
		return nil
	}
	app.Commands = []*cli.Command{
		{
			Name:    "engines",
			Aliases: []string{"e"},
			Usage:   "list the browser engines and whether they can run here",
			Action:  clicmds.Engines,
			Flags:   clicmds.EnginesFlags(),
		},
		{
			Name:    "probe",
			Aliases: []string{"p"},
			Usage:   "load a page and report what a locator finds",
			Action:  clicmds.Probe,
			Flags:   clicmds.ProbeFlags(),
		},
	}
	err := app.Run(os.Args)
	if err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}
