package net

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
	"testing"
)

func TestClassifyIOError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"orderly close", io.EOF, ErrFatalIO},
		{"reset", &net.OpError{Op: "read", Err: os.NewSyscallError("read", syscall.ECONNRESET)}, ErrFatalIO},
		{"broken pipe", fmt.Errorf("write: %w", syscall.EPIPE), ErrFatalIO},
		{"not connected", syscall.ENOTCONN, ErrFatalIO},
		{"keepalive timeout", &net.OpError{Op: "read", Err: os.NewSyscallError("read", syscall.ETIMEDOUT)}, ErrFatalIO},
		{"aborted", &net.OpError{Op: "write", Err: os.NewSyscallError("write", syscall.ECONNABORTED)}, ErrFatalIO},
		{"closed", net.ErrClosed, ErrFatalIO},
		{"deadline", os.ErrDeadlineExceeded, ErrTransientIO},
		{"would block", syscall.EAGAIN, ErrTransientIO},
		{"unknown", errors.New("something odd"), ErrTransientIO},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifyIOError(tc.err); got != tc.want {
				t.Fatalf("classifyIOError(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestClassifyDialError(t *testing.T) {
	if got := classifyDialError(os.NewSyscallError("socket", syscall.EMFILE)); got != ErrResource {
		t.Fatalf("EMFILE: got %v", got)
	}
	if got := classifyDialError(syscall.ECONNREFUSED); got != ErrConnect {
		t.Fatalf("ECONNREFUSED: got %v", got)
	}
}
