package net

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// DialOptions configures how a Handle is connected.
type DialOptions struct {
	ConnectTimeout time.Duration
	KeepAlive      time.Duration
}

// Handle owns one connected TCP socket. The socket is closed exactly once,
// on the first call to Release.
type Handle struct {
	conn        net.Conn
	released    atomic.Bool
	interrupted atomic.Bool
	once        sync.Once
	closeErr    error
}

// Dial allocates a socket and completes the handshake with host within
// opts.ConnectTimeout. Failures wrap ErrResource or ErrConnect.
func Dial(ctx context.Context, host Host, opts DialOptions) (*Handle, error) {
	keepAlive := opts.KeepAlive
	if keepAlive <= 0 {
		keepAlive = 15 * time.Second
	}
	dialer := net.Dialer{
		Timeout:   opts.ConnectTimeout,
		KeepAlive: keepAlive,
	}
	conn, err := dialer.DialContext(ctx, "tcp", host.Address())
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w: %w", host.ToString(), classifyDialError(err), err)
	}
	return newHandle(conn), nil
}

func newHandle(conn net.Conn) *Handle {
	return &Handle{conn: conn}
}

// Valid reports whether the handle still owns an open socket.
func (h *Handle) Valid() bool {
	return h != nil && h.conn != nil && !h.released.Load()
}

// Release closes the socket. Only the first call has an effect.
func (h *Handle) Release() error {
	if h == nil || h.conn == nil {
		return nil
	}
	var err error
	h.once.Do(func() {
		h.released.Store(true)
		h.closeErr = h.conn.Close()
		err = h.closeErr
	})
	return err
}

// Interrupt forces any blocked Read or Write to return with a timeout. It is
// sticky: a Read or Write that arms its own deadline afterwards still
// returns at once.
func (h *Handle) Interrupt() {
	if h.Valid() {
		h.interrupted.Store(true)
		_ = h.conn.SetDeadline(time.Now())
	}
}

// Write sends buf in full. A write that times out part way is resumed from
// where it stopped for as long as retry reports true; a nil retry gives up
// on the first timeout.
func (h *Handle) Write(buf []byte, timeout time.Duration, retry func() bool) (int, error) {
	if !h.Valid() {
		return 0, ErrHandleReleased
	}
	written := 0
	for written < len(buf) {
		if err := h.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return written, err
		}
		if h.interrupted.Load() {
			return written, os.ErrDeadlineExceeded
		}
		n, err := h.conn.Write(buf[written:])
		written += n
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() && retry != nil && retry() {
				continue
			}
			return written, err
		}
	}
	return written, nil
}

// Read performs one receive bounded by timeout.
func (h *Handle) Read(buf []byte, timeout time.Duration) (int, error) {
	if !h.Valid() {
		return 0, ErrHandleReleased
	}
	if err := h.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return 0, err
	}
	// Checked after arming so an Interrupt that raced the deadline wins.
	if h.interrupted.Load() {
		return 0, os.ErrDeadlineExceeded
	}
	return h.conn.Read(buf)
}

// Probe checks for a pending socket error without consuming data. It waits
// at most timeout for the kernel to report a hangup.
func (h *Handle) Probe(timeout time.Duration) error {
	if !h.Valid() {
		return ErrHandleReleased
	}
	return probeConn(h.conn, timeout)
}

func (h *Handle) LocalAddr() string {
	if !h.Valid() {
		return ""
	}
	return h.conn.LocalAddr().String()
}
