package net

import (
	"context"
	"errors"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// errTimeout is a net.Error reporting a timeout.
type errTimeout struct{}

func (errTimeout) Error() string   { return "i/o timeout" }
func (errTimeout) Timeout() bool   { return true }
func (errTimeout) Temporary() bool { return true }

var errInjected = errors.New("injected write failure")

// fakeConn is a net.Conn whose writes follow a script of results. Once the
// script is exhausted every write succeeds. Reads idle until closed.
type fakeConn struct {
	mu     sync.Mutex
	script []error
	writes []string
	calls  int

	closed chan struct{}
	once   sync.Once
}

func newFakeConn(script ...error) *fakeConn {
	return &fakeConn{script: script, closed: make(chan struct{})}
}

func (f *fakeConn) Read(b []byte) (int, error) {
	select {
	case <-f.closed:
		return 0, net.ErrClosed
	case <-time.After(5 * time.Millisecond):
		return 0, os.ErrDeadlineExceeded
	}
}

func (f *fakeConn) Write(b []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.script) > 0 {
		err := f.script[0]
		f.script = f.script[1:]
		if err != nil {
			return 0, err
		}
	}
	f.writes = append(f.writes, string(b))
	return len(b), nil
}

func (f *fakeConn) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) writeCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeConn) written() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.writes...)
}

func (f *fakeConn) LocalAddr() net.Addr              { return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 1} }
func (f *fakeConn) RemoteAddr() net.Addr             { return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 2} }
func (f *fakeConn) SetDeadline(time.Time) error      { return nil }
func (f *fakeConn) SetReadDeadline(time.Time) error  { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }

// countingNotifier counts activity pulses.
type countingNotifier struct {
	n atomic.Int32
}

func (c *countingNotifier) Activity() { c.n.Add(1) }

func (c *countingNotifier) count() int { return int(c.n.Load()) }

// fastTimeouts keeps session tests quick.
func fastTimeouts() Timeouts {
	return Timeouts{
		Connect:   time.Second,
		Send:      200 * time.Millisecond,
		Receive:   50 * time.Millisecond,
		Heartbeat: 50 * time.Millisecond,
		QueueWait: 5 * time.Millisecond,
		Probe:     time.Millisecond,
	}
}

// newFakeSession returns a session whose dial always yields conn.
func newFakeSession(conn net.Conn, notifier ActivityNotifier) *Session {
	s := NewSession(fastTimeouts(), notifier, nil)
	s.dial = func(_ context.Context, _ Host, _ DialOptions) (*Handle, error) {
		return newHandle(conn), nil
	}
	return s
}

func eventually(t *testing.T, timeout time.Duration, cond func() bool, format string, args ...any) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf(format, args...)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
