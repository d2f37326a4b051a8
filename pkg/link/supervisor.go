package link

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/antonionduarte/go-link-supervisor/pkg/link/net"
)

// State is the supervisor's operating mode.
type State int32

const (
	// StateNormal keeps (re)connecting to the peer.
	StateNormal State = iota
	// StateAlert holds the session down until the override is asserted.
	StateAlert
)

func (s State) String() string {
	switch s {
	case StateNormal:
		return "normal"
	case StateAlert:
		return "alert"
	default:
		return "unknown"
	}
}

type (
	// SupervisorConfig carries the reconnection policy and the external
	// collaborators. Zero durations and counts take the package defaults.
	SupervisorConfig struct {
		Peer            net.Host
		Period          time.Duration
		MaxAttempts     int
		StableWindow    time.Duration
		PayloadInterval time.Duration

		Monitor   LinkChecker
		Override  Override
		Indicator Indicator
		Payloads  PayloadSource
		Logger    *slog.Logger
	}

	// Supervisor is the outer control loop. It owns the reconnection policy
	// and learns about session failures only by polling.
	Supervisor struct {
		cfg       SupervisorConfig
		session   Connector
		monitor   LinkChecker
		override  Override
		indicator Indicator
		payloads  PayloadSource
		logger    *slog.Logger
		now       func() time.Time

		// readable from any goroutine
		state     atomic.Int32
		attempts  atomic.Int32
		linkUp    atomic.Bool
		connected atomic.Bool

		// owned by the control loop
		linkKnown      bool
		connectedSince time.Time
		lastPayload    time.Time
	}

	// Status is a non-blocking snapshot of the supervisor and its session.
	Status struct {
		State     State
		Attempts  int
		LinkUp    bool
		Running   bool
		Connected bool
	}

	alwaysUp struct{}
)

const (
	DefaultPeriod          = 500 * time.Millisecond
	DefaultMaxAttempts     = 5
	DefaultStableWindow    = 10 * time.Second
	DefaultPayloadInterval = time.Second
)

func (alwaysUp) CheckLinkUp() bool { return true }

func NewSupervisor(session Connector, cfg SupervisorConfig) *Supervisor {
	if cfg.Period <= 0 {
		cfg.Period = DefaultPeriod
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.StableWindow <= 0 {
		cfg.StableWindow = DefaultStableWindow
	}
	if cfg.PayloadInterval <= 0 {
		cfg.PayloadInterval = DefaultPayloadInterval
	}

	s := &Supervisor{
		cfg:       cfg,
		session:   session,
		monitor:   cfg.Monitor,
		override:  cfg.Override,
		indicator: cfg.Indicator,
		payloads:  cfg.Payloads,
		logger:    cfg.Logger,
		now:       time.Now,
	}
	if s.monitor == nil {
		s.monitor = alwaysUp{}
	}
	if s.override == nil {
		s.override = nopOverride{}
	}
	if s.indicator == nil {
		s.indicator = NopIndicator{}
	}
	if s.logger == nil {
		s.logger = slog.Default().With("component", ComponentSupervisor)
	}
	return s
}

// Run executes one control cycle per period until ctx is cancelled, then
// stops the session and returns ctx.Err().
func (s *Supervisor) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Period)
	defer ticker.Stop()

	s.logger.Info("supervisor started",
		"peer", s.cfg.Peer.ToString(),
		"period", s.cfg.Period,
		"maxAttempts", s.cfg.MaxAttempts)

	s.Step(ctx)
	for {
		select {
		case <-ctx.Done():
			s.session.Stop()
			s.connected.Store(false)
			s.logger.Info("supervisor stopped", "state", s.State())
			return ctx.Err()
		case <-ticker.C:
			s.Step(ctx)
		}
	}
}

// Step runs a single control cycle.
func (s *Supervisor) Step(ctx context.Context) {
	now := s.now()

	s.pollLink()

	switch s.State() {
	case StateNormal:
		s.stepNormal(ctx, now)
	case StateAlert:
		s.stepAlert()
	}

	s.pollOverride()
}

func (s *Supervisor) State() State {
	return State(s.state.Load())
}

func (s *Supervisor) Attempts() int {
	return int(s.attempts.Load())
}

func (s *Supervisor) Status() Status {
	return Status{
		State:     s.State(),
		Attempts:  s.Attempts(),
		LinkUp:    s.linkUp.Load(),
		Running:   s.session.IsRunning(),
		Connected: s.connected.Load(),
	}
}

// pollLink watches for edges of the physical link. The first sample only
// sets the baseline.
func (s *Supervisor) pollLink() {
	up := s.monitor.CheckLinkUp()
	prev := s.linkUp.Swap(up)

	if !s.linkKnown {
		s.linkKnown = true
		if !up {
			s.logger.Warn("link down at startup")
		}
		return
	}

	switch {
	case prev && !up:
		s.logger.Warn("link down", "state", s.State())
		if s.State() == StateNormal {
			s.enterAlert("link down")
		}
	case !prev && up:
		if s.State() == StateAlert {
			s.logger.Info("link restored, override required to leave alert")
		} else {
			s.logger.Info("link restored")
		}
	}
}

func (s *Supervisor) stepNormal(ctx context.Context, now time.Time) {
	if !s.session.IsRunning() {
		s.connected.Store(false)

		// The session died on its own since the last cycle.
		if !s.connectedSince.IsZero() {
			s.connectedSince = time.Time{}
			s.recordFailure("connection lost")
			return
		}

		if err := s.session.Start(ctx, s.cfg.Peer); err != nil {
			s.recordFailure("connect failed", "err", err)
			return
		}
		// attempts is left alone here; only the stable window clears it,
		// so a connection that keeps dropping still reaches alert.
		s.connectedSince = now
		s.lastPayload = now
		s.connected.Store(true)
		s.logger.Info("connected", "peer", s.cfg.Peer.ToString(), "attempts", s.Attempts())
		s.indicator.Connected()
		return
	}

	if !s.session.IsConnected() {
		s.connected.Store(false)
		s.connectedSince = time.Time{}
		s.session.Stop()
		s.recordFailure("connection lost")
		return
	}
	s.connected.Store(true)

	if s.Attempts() > 0 && now.Sub(s.connectedSince) >= s.cfg.StableWindow {
		s.attempts.Store(0)
		s.logger.Info("connection stable, attempt counter reset", "stableFor", now.Sub(s.connectedSince))
	}

	if now.Sub(s.lastPayload) >= s.cfg.PayloadInterval {
		s.lastPayload = now
		s.sendPayload()
	}
}

// recordFailure counts one failed connect-or-stay-connected cycle and
// enters alert once the budget is spent.
func (s *Supervisor) recordFailure(msg string, args ...any) {
	n := s.attempts.Load()
	if n < int32(s.cfg.MaxAttempts) {
		n++
		s.attempts.Store(n)
	}
	s.logger.Warn(msg, append([]any{"attempt", n, "max", s.cfg.MaxAttempts}, args...)...)

	if int(n) >= s.cfg.MaxAttempts {
		s.enterAlert("attempts exhausted")
		return
	}
	s.indicator.Connecting()
}

func (s *Supervisor) sendPayload() {
	if s.payloads == nil {
		return
	}
	payload := s.payloads.NextPayload()
	if len(payload) == 0 {
		return
	}
	if err := s.session.EnqueueSend(payload); err != nil {
		s.logger.Warn("payload dropped", "bytes", len(payload), "err", err)
	}
}

func (s *Supervisor) stepAlert() {
	if s.session.IsRunning() {
		s.session.Stop()
	}
	s.indicator.Alert()
}

func (s *Supervisor) enterAlert(reason string) {
	s.state.Store(int32(StateAlert))
	s.session.Stop()
	s.connected.Store(false)
	s.connectedSince = time.Time{}
	s.logger.Error("entering alert", "reason", reason, "attempts", s.Attempts())
	s.indicator.Alert()
}

func (s *Supervisor) pollOverride() {
	if !s.override.Asserted() || s.State() != StateAlert {
		return
	}
	s.state.Store(int32(StateNormal))
	s.attempts.Store(0)
	s.logger.Info("override asserted, leaving alert")
	s.indicator.Connecting()
}
