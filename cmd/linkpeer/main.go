package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/antonionduarte/go-link-supervisor/cmd/linkpeer/peer"
	"github.com/antonionduarte/go-link-supervisor/pkg/link"
	"github.com/antonionduarte/go-link-supervisor/pkg/link/config"
)

func main() {
	app := &cli.App{
		Name:  "linkpeer",
		Usage: "bench peer that accepts the link client and logs what it sends",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen", Aliases: []string{"l"}, Value: ":8080", Usage: "address to accept the client on"},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "log level: debug, info, warn, error"},
			&cli.BoolFlag{Name: "reply", Usage: "answer each heartbeat with PONG#<seq>"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "linkpeer:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	logger := link.NewLoggerFromConfig(config.LoggingConfig{Level: c.String("log-level"), Format: "text"})
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := peer.New(logger.With("component", link.ComponentPeer), c.Bool("reply"))
	return server.ListenAndServe(ctx, c.String("listen"))
}
