// SPDX-License-Identifier: BSL-1.1
// Copyright (c) 2026 MuVeraAI Corporation

// Command did-pkarr creates, publishes and resolves did:pkarr documents
// through pkarr relays.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"gopkg.in/urfave/cli.v1"

	"github.com/aumos-ai/did-pkarr/config"
)

func main() {
	app := cli.NewApp()
	app.Name = "did-pkarr"
	app.Usage = "manage did:pkarr identities"
	app.Version = "0.1.0"
	app.Commands = []cli.Command{
		commandKeygen,
		commandPublish,
		commandResolve,
		commandServe,
		commandConfig,
	}
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config, c",
			Usage:  "TOML configuration file",
			EnvVar: "DID_PKARR_CONFIG",
		},
		cli.BoolFlag{
			Name:  "debug, d",
			Usage: "log relay traffic and retries",
		},
	}
	app.Before = func(c *cli.Context) error {
		level := slog.LevelInfo
		if c.Bool("debug") {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		return nil
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig reads the --config file, if any, with the environment applied.
func loadConfig(c *cli.Context) (*config.Config, error) {
	return config.Load(c.GlobalString("config"))
}

// commandContext is cancelled on interrupt.
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func timeoutContext(d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d)
}
