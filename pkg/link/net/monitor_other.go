//go:build !linux

package net

import "net"

func interfaceFlags(name string) (up bool, running bool, err error) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return false, false, err
	}
	return iface.Flags&net.FlagUp != 0, iface.Flags&net.FlagRunning != 0, nil
}
