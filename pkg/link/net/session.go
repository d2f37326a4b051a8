package net

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Session keeps one TCP connection to the peer alive. While running it owns
// two goroutines: a sender that drains the outbound queue and falls back to
// heartbeats when idle, and a receiver that drains inbound bytes and
// classifies socket errors.
//
// The running/connected flags and counters are plain atomics. Readers treat
// them as liveness hints that the next socket operation re-validates, so no
// lock spans them. connected is always cleared before running and set after
// it, which keeps connected ⇒ running.
type (
	Session struct {
		timeouts Timeouts
		notifier ActivityNotifier
		logger   *slog.Logger

		dial func(ctx context.Context, host Host, opts DialOptions) (*Handle, error)

		mu sync.Mutex // serializes Start and Stop
		wg sync.WaitGroup

		handle atomic.Pointer[Handle]
		queue  atomic.Pointer[Queue]
		peer   atomic.Pointer[Host]

		running          atomic.Bool
		connected        atomic.Bool
		sequence         atomic.Uint64 // never reset; spans restarts
		failedHeartbeats atomic.Int32
		bytesSent        atomic.Uint64
		bytesReceived    atomic.Uint64
	}

	// ActivityNotifier receives a pulse whenever data moves in either
	// direction. Implementations must not block.
	ActivityNotifier interface {
		Activity()
	}

	// Timeouts bounds every blocking point of a session.
	Timeouts struct {
		Connect   time.Duration
		Send      time.Duration
		Receive   time.Duration
		Heartbeat time.Duration
		QueueWait time.Duration
		Probe     time.Duration
		KeepAlive time.Duration
	}

	// SessionStats is a point-in-time view of a session. Reading it never
	// blocks on socket I/O.
	SessionStats struct {
		Peer             string
		Running          bool
		Connected        bool
		Sequence         uint64
		FailedHeartbeats int
		QueueDepth       int
		BytesSent        uint64
		BytesReceived    uint64
	}

	nopNotifier struct{}
)

const (
	// MaxFailedHeartbeats consecutive heartbeat send failures end a session.
	MaxFailedHeartbeats = 3

	// HeartbeatPrefix starts every heartbeat line: PING#<sequence>\n.
	HeartbeatPrefix = "PING#"

	receiveBufferSize = 1024
)

func (nopNotifier) Activity() {}

func DefaultTimeouts() Timeouts {
	return Timeouts{
		Connect:   5 * time.Second,
		Send:      10 * time.Second,
		Receive:   10 * time.Second,
		Heartbeat: 2 * time.Second,
		QueueWait: 2 * time.Second,
		Probe:     10 * time.Millisecond,
		KeepAlive: 15 * time.Second,
	}
}

// withDefaults fills zero fields from DefaultTimeouts.
func (t Timeouts) withDefaults() Timeouts {
	def := DefaultTimeouts()
	if t.Connect <= 0 {
		t.Connect = def.Connect
	}
	if t.Send <= 0 {
		t.Send = def.Send
	}
	if t.Receive <= 0 {
		t.Receive = def.Receive
	}
	if t.Heartbeat <= 0 {
		t.Heartbeat = def.Heartbeat
	}
	if t.QueueWait <= 0 {
		t.QueueWait = def.QueueWait
	}
	if t.Probe <= 0 {
		t.Probe = def.Probe
	}
	if t.KeepAlive <= 0 {
		t.KeepAlive = def.KeepAlive
	}
	return t
}

// HeartbeatMessage renders the keep-alive line for seq.
func HeartbeatMessage(seq uint64) []byte {
	return []byte(HeartbeatPrefix + strconv.FormatUint(seq, 10) + "\n")
}

func NewSession(timeouts Timeouts, notifier ActivityNotifier, logger *slog.Logger) *Session {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if logger == nil {
		logger = slog.Default().With("component", "session")
	}
	s := &Session{
		timeouts: timeouts.withDefaults(),
		notifier: notifier,
		logger:   logger,
		dial:     Dial,
	}
	s.queue.Store(NewQueue())
	return s
}

// Start connects to host and launches the sender and receiver. It fails
// with ErrAlreadyRunning while a previous Start is still active; a session
// that died on its own is cleaned up first.
func (s *Session) Start(ctx context.Context, host Host) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() {
		return ErrAlreadyRunning
	}
	s.teardownLocked()

	handle, err := s.dial(ctx, host, DialOptions{
		ConnectTimeout: s.timeouts.Connect,
		KeepAlive:      s.timeouts.KeepAlive,
	})
	if err != nil {
		s.logger.Warn("session connect failed", "peer", host.ToString(), "err", err)
		return err
	}

	queue := NewQueue()
	s.handle.Store(handle)
	s.queue.Store(queue)
	s.peer.Store(&host)
	s.failedHeartbeats.Store(0)

	s.running.Store(true)
	s.connected.Store(true)

	s.wg.Add(2)
	go s.senderLoop(handle, queue)
	go s.receiverLoop(handle)

	s.logger.Info("session established", "peer", host.ToString(), "local", handle.LocalAddr())
	return nil
}

// Stop ends the session and waits for both goroutines. It is safe to call
// repeatedly, from any state, and while a goroutine is failing the session.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	wasRunning := s.running.Load()
	s.connected.Store(false)
	s.running.Store(false)
	s.teardownLocked()

	if wasRunning {
		s.logger.Info("session stopped")
	}
}

// teardownLocked joins the goroutines of the last session and releases its
// handle. s.mu must be held and running must already be false.
func (s *Session) teardownLocked() {
	handle := s.handle.Load()
	handle.Interrupt()
	s.queue.Load().Close()

	s.wg.Wait()

	if handle != nil {
		if err := handle.Release(); err != nil {
			s.logger.Debug("handle release", "err", err)
		}
		s.handle.Store(nil)
	}
	s.failedHeartbeats.Store(0)
}

// IsConnected re-checks the socket for a pending error on every call, so a
// peer reset is seen between heartbeats.
func (s *Session) IsConnected() bool {
	if !s.connected.Load() {
		return false
	}
	if err := s.handle.Load().Probe(s.timeouts.Probe); err != nil {
		s.fail("liveness probe", err)
		return false
	}
	return true
}

func (s *Session) IsRunning() bool {
	return s.running.Load()
}

// EnqueueSend hands buf to the sender. The session takes ownership of buf.
func (s *Session) EnqueueSend(buf []byte) error {
	if !s.connected.Load() {
		return ErrNotConnected
	}
	if err := s.queue.Load().Enqueue(buf); err != nil {
		return fmt.Errorf("%w: %w", ErrNotConnected, err)
	}
	return nil
}

func (s *Session) Stats() SessionStats {
	stats := SessionStats{
		Running:          s.running.Load(),
		Connected:        s.connected.Load(),
		Sequence:         s.sequence.Load(),
		FailedHeartbeats: int(s.failedHeartbeats.Load()),
		QueueDepth:       s.queue.Load().Len(),
		BytesSent:        s.bytesSent.Load(),
		BytesReceived:    s.bytesReceived.Load(),
	}
	if peer := s.peer.Load(); peer != nil {
		stats.Peer = peer.ToString()
	}
	return stats
}

// fail marks the session dead from inside a worker or a probe. The worker
// then returns on its own; Stop does the rest.
func (s *Session) fail(reason string, err error) {
	s.connected.Store(false)
	if s.running.Swap(false) {
		s.logger.Warn("session terminated", "reason", reason, "err", err)
	}
}

func (s *Session) senderLoop(handle *Handle, queue *Queue) {
	defer s.wg.Done()

	for s.running.Load() {
		buf, ok := queue.Dequeue(s.timeouts.QueueWait)
		if !s.running.Load() {
			return
		}
		if ok {
			if !s.sendQueued(handle, buf) {
				return
			}
			continue
		}
		if !s.sendHeartbeat(handle) {
			return
		}
	}
}

func (s *Session) sendQueued(handle *Handle, buf []byte) bool {
	n, err := handle.Write(buf, s.timeouts.Send, func() bool {
		if !s.running.Load() {
			return false
		}
		s.logger.Debug("send timed out, retrying", "bytes", len(buf), "timeout", s.timeouts.Send)
		return true
	})
	s.bytesSent.Add(uint64(n))
	if err != nil {
		if s.running.Load() {
			s.fail("send", fmt.Errorf("%w: %w", ErrFatalIO, err))
		}
		return false
	}
	s.logger.Debug("payload sent", "bytes", n)
	s.notifier.Activity()
	return true
}

func (s *Session) sendHeartbeat(handle *Handle) bool {
	seq := s.sequence.Add(1)
	n, err := handle.Write(HeartbeatMessage(seq), s.timeouts.Heartbeat, nil)
	s.bytesSent.Add(uint64(n))
	if err != nil {
		if !s.running.Load() {
			return false
		}
		failures := s.failedHeartbeats.Add(1)
		s.logger.Warn("heartbeat failed", "seq", seq, "failures", failures, "err", err)
		if failures >= MaxFailedHeartbeats {
			s.fail("heartbeat", fmt.Errorf("%w: %d consecutive heartbeat failures", ErrFatalIO, failures))
			return false
		}
		return true
	}

	s.logger.Debug("heartbeat sent", "seq", seq)
	if s.failedHeartbeats.Swap(0) > 0 {
		s.logger.Info("heartbeat recovered", "seq", seq)
		s.notifier.Activity()
	}
	return true
}

func (s *Session) receiverLoop(handle *Handle) {
	defer s.wg.Done()

	buf := make([]byte, receiveBufferSize)
	for s.running.Load() {
		if err := handle.Probe(s.timeouts.Probe); err != nil {
			if s.running.Load() {
				s.fail("liveness probe", err)
			}
			return
		}

		n, err := handle.Read(buf, s.timeouts.Receive)
		if n > 0 {
			s.bytesReceived.Add(uint64(n))
			s.logger.Debug("received from peer", "bytes", n, "data", strconv.Quote(string(buf[:n])))
			s.notifier.Activity()
		}
		if err == nil {
			continue
		}
		if !s.running.Load() {
			return
		}
		if classifyIOError(err) == ErrFatalIO {
			s.fail("receive", err)
			return
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			continue
		}
		s.logger.Warn("receive error ignored", "err", err)
	}
}
