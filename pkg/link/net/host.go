package net

import (
	"net"
	"strconv"
)

// Host identifies the fixed peer the client keeps a connection to.
type Host struct {
	Port int
	IP   string
}

func NewHost(port int, ip string) Host {
	return Host{
		Port: port,
		IP:   ip,
	}
}

// Address returns the host in a form accepted by net.Dial. IPv6 literals are
// bracketed.
func (host Host) Address() string {
	return net.JoinHostPort(host.IP, strconv.Itoa(host.Port))
}

func (host Host) ToString() string {
	return host.Address()
}
