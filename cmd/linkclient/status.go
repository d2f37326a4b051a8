package main

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/antonionduarte/go-link-supervisor/pkg/link"
	"github.com/antonionduarte/go-link-supervisor/pkg/link/config"
	"github.com/antonionduarte/go-link-supervisor/pkg/link/net"
)

// statusPrinter writes one console line per interval describing the link,
// optionally mirrored to a dated log file.
type statusPrinter struct {
	logger   *log.Logger
	interval time.Duration
	iface    string
	file     *os.File
}

func newStatusPrinter(cfg config.StatusConfig, iface string) (*statusPrinter, error) {
	logger := log.New()
	logger.SetFormatter(&log.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})

	p := &statusPrinter{logger: logger, interval: cfg.Interval, iface: iface}

	var out io.Writer = os.Stdout
	if cfg.File != "" {
		name := datedFileName(cfg.File, time.Now())
		file, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}
		p.file = file
		out = io.MultiWriter(os.Stdout, file)
	}
	logger.SetOutput(out)
	return p, nil
}

// datedFileName turns "status.log" into "status-2006-01-02.log".
func datedFileName(base string, now time.Time) string {
	date := now.Format("2006-01-02")
	if i := strings.LastIndex(base, "."); i > strings.LastIndex(base, "/") {
		return base[:i] + "-" + date + base[i:]
	}
	return base + "-" + date
}

func (p *statusPrinter) Run(ctx context.Context, supervisor *link.Supervisor, session *net.Session) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.print(supervisor.Status(), session.Stats())
		}
	}
}

func (p *statusPrinter) print(status link.Status, stats net.SessionStats) {
	entry := p.logger.WithFields(log.Fields{
		"state":     status.State.String(),
		"attempts":  status.Attempts,
		"iface":     p.iface,
		"link":      status.LinkUp,
		"running":   status.Running,
		"connected": status.Connected,
		"peer":      stats.Peer,
		"seq":       stats.Sequence,
		"queued":    stats.QueueDepth,
		"sent":      stats.BytesSent,
		"received":  stats.BytesReceived,
	})
	switch {
	case status.State == link.StateAlert:
		entry.Error("ALERT: press the reset button to resume")
	case status.Connected:
		entry.Info("connected")
	default:
		entry.Warn("not connected")
	}
}

func (p *statusPrinter) Close() error {
	if p.file == nil {
		return nil
	}
	return p.file.Close()
}
