package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/crazy-max/unpayload/internal/app"
	"github.com/crazy-max/unpayload/internal/logging"
	"github.com/crazy-max/unpayload/pkg/config"
	"github.com/rs/zerolog/log"
)

var (
	unpayload *app.Unpayload
	cli       config.Cli
	version   = "dev"
	meta      = config.Meta{
		ID:     "unpayload",
		Name:   "Unpayload",
		Desc:   "Extract the compressed payload of a self-contained installer in a local folder",
		URL:    "https://github.com/crazy-max/unpayload",
		Author: "CrazyMax",
	}
)

func main() {
	var err error
	runtime.GOMAXPROCS(runtime.NumCPU())

	meta.Version = version
	meta.UserAgent = fmt.Sprintf("%s/%s go/%s %s", meta.ID, meta.Version, runtime.Version()[2:], strings.Title(runtime.GOOS)) //nolint:staticcheck // ignoring "SA1019: strings.Title is deprecated", as for our use we don't need full unicode support

	_ = kong.Parse(&cli,
		kong.Name(meta.ID),
		kong.Description(fmt.Sprintf("%s. More info: %s", meta.Desc, meta.URL)),
		kong.UsageOnError(),
		kong.Vars{
			"version": version,
		},
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}))

	// Logging
	if err = logging.Configure(cli); err != nil {
		log.Fatal().Err(err).Msg("cannot configure logging")
	}

	// Init
	if unpayload, err = app.New(meta, cli); err != nil {
		log.Fatal().Err(err).Msg("cannot initialize unpayload")
	}

	// Handle os signals
	channel := make(chan os.Signal, 1)
	signal.Notify(channel, os.Interrupt, SIGTERM)
	go func() {
		sig := <-channel
		log.Warn().Msgf("caught signal %v", sig)
		unpayload.Close()
	}()

	// Start
	if err = unpayload.Start(); err != nil {
		log.Fatal().Stack().Err(err).Send()
	}
}
