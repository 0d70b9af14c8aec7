package clicmds

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"gitlab.com/blackboxtests/bbt"
	"gitlab.com/blackboxtests/session"
)

func ProbeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "url",
			Usage: "page to load",
			Value: "http://localhost/",
		},
		&cli.StringFlag{
			Name:  "config",
			Usage: "config to use",
			Value: "",
		},
		&cli.StringFlag{
			Name:  "engine",
			Usage: "browser engine, overrides the config",
			Value: "",
		},
		&cli.StringFlag{
			Name:     "locator",
			Usage:    "element to look for, prefix:key with id, name, link, partial, tag, xpath or css",
			Required: true,
		},
	}
}

// Probe opens a session, loads a page and reports what the locator finds on it
func Probe(ctx *cli.Context) error {
	cfg, err := bbt.LoadConfig(ctx.String("config"))
	if err != nil {
		return err
	}
	if engine := ctx.String("engine"); engine != "" {
		cfg.Engine = bbt.Engine(engine)
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	by, err := bbt.ParseLocator(ctx.String("locator"))
	if err != nil {
		return err
	}

	probeCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	s, err := session.New(probeCtx, cfg)
	if err != nil {
		log.Error().Err(err).Str("engine", string(cfg.Engine)).Msg("failed to open session")
		return err
	}
	defer func() {
		if err := s.Dispose(); err != nil {
			log.Warn().Err(err).Msg("failed to dispose session")
		}
	}()

	if err := s.NavigateTo(probeCtx, ctx.String("url")); err != nil {
		return err
	}

	present := s.IsElementPresent(probeCtx, by, cfg.ElementTimeout)
	count, err := s.Count(probeCtx, by, bbt.Optional)
	if err != nil {
		return err
	}
	text, err := s.Text(probeCtx, by, bbt.Optional)
	if err != nil {
		return err
	}

	label := color.New(color.Bold).SprintFunc()
	out := ctx.App.Writer
	fmt.Fprintf(out, "%s %s\n", label("locator:"), by.Describe())
	if present {
		fmt.Fprintf(out, "%s %s\n", label("clickable:"), color.GreenString("yes"))
	} else {
		fmt.Fprintf(out, "%s %s\n", label("clickable:"), color.RedString("no"))
	}
	if count != nil {
		fmt.Fprintf(out, "%s %d\n", label("count:"), *count)
	}
	if text != nil {
		fmt.Fprintf(out, "%s %q\n", label("text:"), *text)
	}
	return nil
}
