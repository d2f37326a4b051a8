//go:build linux

package net

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// interfaceFlags asks the kernel for IFF_UP and IFF_RUNNING through
// SIOCGIFFLAGS on a throwaway datagram socket.
func interfaceFlags(name string) (up bool, running bool, err error) {
	ifr, err := unix.NewIfreq(name)
	if err != nil {
		return false, false, fmt.Errorf("ifreq %q: %w", name, err)
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return false, false, fmt.Errorf("socket: %w", err)
	}
	defer unix.Close(fd)

	if err := unix.IoctlIfreq(fd, unix.SIOCGIFFLAGS, ifr); err != nil {
		return false, false, fmt.Errorf("SIOCGIFFLAGS %q: %w", name, err)
	}
	flags := ifr.Uint16()
	return flags&unix.IFF_UP != 0, flags&unix.IFF_RUNNING != 0, nil
}
