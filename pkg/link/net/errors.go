package net

import (
	"errors"
	"io"
	"net"
	"syscall"
)

var (
	// ErrResource reports that no socket could be allocated.
	ErrResource = errors.New("socket resource unavailable")
	// ErrConnect reports a refused, unreachable or timed out handshake.
	ErrConnect = errors.New("connect failed")
	// ErrTransientIO marks a send/receive hiccup that the loops absorb.
	ErrTransientIO = errors.New("transient i/o error")
	// ErrFatalIO marks an error that ends the current session.
	ErrFatalIO = errors.New("fatal i/o error")

	ErrNotConnected   = errors.New("session not connected")
	ErrAlreadyRunning = errors.New("session already running")
	ErrQueueClosed    = errors.New("outbound queue closed")
	ErrHandleReleased = errors.New("handle released")
)

// classifyIOError decides whether a socket error ends the session. Only
// errors that prove the peer or the transport is gone are fatal; timeouts
// and anything unrecognised are transient.
func classifyIOError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, io.EOF),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, syscall.ENOTCONN),
		// Aborted and keepalive-expired connections are as gone as a reset.
		errors.Is(err, syscall.ECONNABORTED),
		errors.Is(err, syscall.ETIMEDOUT),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, ErrHandleReleased):
		return ErrFatalIO
	}
	// ETIMEDOUT also reports Timeout(), so it is matched above first.
	return ErrTransientIO
}

// classifyDialError separates descriptor exhaustion from ordinary
// connection failures.
func classifyDialError(err error) error {
	switch {
	case errors.Is(err, syscall.EMFILE),
		errors.Is(err, syscall.ENFILE),
		errors.Is(err, syscall.ENOBUFS),
		errors.Is(err, syscall.ENOMEM):
		return ErrResource
	}
	return ErrConnect
}
