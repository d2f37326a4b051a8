//go:build linux

package net

import (
	"fmt"
	"net"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// probeConn reads SO_ERROR and polls the descriptor for error or hangup
// events. Connections that do not expose a descriptor are assumed healthy.
func probeConn(conn net.Conn, timeout time.Duration) error {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return nil
	}
	rc, err := sc.SyscallConn()
	if err != nil {
		return err
	}

	var probeErr error
	ctrlErr := rc.Control(func(fd uintptr) {
		soErr, err := unix.GetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_ERROR)
		if err != nil {
			probeErr = err
			return
		}
		if soErr != 0 {
			probeErr = syscall.Errno(soErr)
			return
		}

		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLRDHUP}}
		n, err := unix.Poll(fds, int(timeout/time.Millisecond))
		if err != nil {
			if err == unix.EINTR {
				return
			}
			probeErr = err
			return
		}
		if n == 0 {
			return
		}
		switch revents := fds[0].Revents; {
		case revents&unix.POLLERR != 0:
			probeErr = fmt.Errorf("poll: %w", syscall.ECONNRESET)
		case revents&(unix.POLLHUP|unix.POLLRDHUP) != 0:
			probeErr = fmt.Errorf("poll: peer hung up: %w", syscall.ENOTCONN)
		case revents&unix.POLLNVAL != 0:
			probeErr = fmt.Errorf("poll: %w", syscall.EBADF)
		}
	})
	if ctrlErr != nil {
		return ctrlErr
	}
	return probeErr
}
