package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/antonionduarte/go-link-supervisor/pkg/link"
	"github.com/antonionduarte/go-link-supervisor/pkg/link/config"
	"github.com/antonionduarte/go-link-supervisor/pkg/link/gpio"
	"github.com/antonionduarte/go-link-supervisor/pkg/link/net"
)

func main() {
	app := &cli.App{
		Name:  "linkclient",
		Usage: "keep a TCP link to a fixed peer alive and stream sensor frames over it",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML config file"},
			&cli.StringFlag{Name: "peer-ip", Usage: "peer IP address"},
			&cli.IntFlag{Name: "peer-port", Usage: "peer TCP port"},
			&cli.StringFlag{Name: "iface", Usage: "network interface watched by the link monitor"},
			&cli.StringFlag{Name: "log-level", Usage: "log level: debug, info, warn, error"},
			&cli.StringFlag{Name: "led", Usage: "sysfs LED name used as status indicator"},
			&cli.IntFlag{Name: "button", Value: -1, Usage: "GPIO number of the alert reset button"},
			&cli.Int64Flag{Name: "seed", Value: time.Now().UnixNano(), Usage: "seed of the simulated sensor"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "linkclient:", err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	if c.IsSet("peer-ip") {
		cfg.Peer.IP = c.String("peer-ip")
	}
	if c.IsSet("peer-port") {
		cfg.Peer.Port = c.Int("peer-port")
	}
	if c.IsSet("iface") {
		cfg.Link.Interface = c.String("iface")
	}
	if c.IsSet("log-level") {
		cfg.Logging.Level = c.String("log-level")
	}
	if c.IsSet("led") {
		cfg.GPIO.LED = c.String("led")
	}
	if c.IsSet("button") {
		cfg.GPIO.Button = c.Int("button")
	}
	return cfg, cfg.Validate()
}

func run(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	logger := link.NewLoggerFromConfig(cfg.Logging)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	indicator, closeIndicator := openIndicator(cfg, logger)
	defer closeIndicator()
	override, closeOverride := openOverride(cfg, logger)
	defer closeOverride()

	timeouts := net.Timeouts{
		Connect:   cfg.Timeouts.Connect,
		Send:      cfg.Timeouts.Send,
		Receive:   cfg.Timeouts.Receive,
		Heartbeat: cfg.Timeouts.Heartbeat,
		QueueWait: cfg.Timeouts.QueueWait,
		Probe:     cfg.Timeouts.Probe,
		KeepAlive: cfg.Timeouts.KeepAlive,
	}
	session := net.NewSession(timeouts, indicator, logger.With("component", link.ComponentSession))
	monitor := net.NewLinkMonitor(cfg.Link.Interface, logger.With("component", link.ComponentMonitor))

	supervisor := link.NewSupervisor(session, link.SupervisorConfig{
		Peer:            net.NewHost(cfg.Peer.Port, cfg.Peer.IP),
		Period:          cfg.Supervisor.Period,
		MaxAttempts:     cfg.Supervisor.MaxAttempts,
		StableWindow:    cfg.Supervisor.StableWindow,
		PayloadInterval: cfg.Supervisor.PayloadInterval,
		Monitor:         monitor,
		Override:        override,
		Indicator:       indicator,
		Payloads:        link.NewSimulatedSensor(c.Int64("seed")),
		Logger:          logger.With("component", link.ComponentSupervisor),
	})

	printer, err := newStatusPrinter(cfg.Status, monitor.Interface())
	if err != nil {
		return err
	}
	defer printer.Close()
	go printer.Run(ctx, supervisor, session)

	logger.Info("linkclient starting",
		"peer", cfg.Peer.IP, "port", cfg.Peer.Port, "iface", cfg.Link.Interface)

	if err := supervisor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("linkclient exiting")
	return nil
}

// openIndicator returns the configured LED, or a no-op indicator when no LED
// is configured or it cannot be opened.
func openIndicator(cfg *config.Config, logger *slog.Logger) (link.Indicator, func()) {
	if cfg.GPIO.LED == "" {
		return link.NopIndicator{}, func() {}
	}
	led, err := gpio.OpenLED(cfg.GPIO.LEDRoot, cfg.GPIO.LED, logger.With("component", link.ComponentGPIO))
	if err != nil {
		logger.Warn("led unavailable, running without indicator", "err", err)
		return link.NopIndicator{}, func() {}
	}
	return led, func() { _ = led.Close() }
}

func openOverride(cfg *config.Config, logger *slog.Logger) (link.Override, func()) {
	if cfg.GPIO.Button < 0 {
		return nil, func() {}
	}
	button, err := gpio.OpenButton(cfg.GPIO.GPIORoot, cfg.GPIO.Button, cfg.GPIO.ButtonActiveLow,
		logger.With("component", link.ComponentGPIO))
	if err != nil {
		logger.Warn("button unavailable, alert can only be cleared by restart", "err", err)
		return nil, func() {}
	}
	return button, func() { _ = button.Close() }
}
