package cmd

import (
	"github.com/achilleasa/procrt/log"
	"github.com/urfave/cli"
)

var logger = log.New("procrt")

// Apply the config level first; the verbosity flags always win.
func setupLogging(ctx *cli.Context, configLevel string) {
	verbosity := 0
	switch {
	case ctx.GlobalBool("vv"):
		verbosity = 2
	case ctx.GlobalBool("v"):
		verbosity = 1
	}

	if err := log.Configure(configLevel, verbosity); err != nil {
		logger.Warningf("ignoring config log level: %v", err)
	}
}
