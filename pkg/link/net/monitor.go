package net

import "log/slog"

// LinkMonitor reports the physical state of one network interface,
// independent of any TCP session. It keeps no state between calls.
type LinkMonitor struct {
	iface  string
	logger *slog.Logger
}

func NewLinkMonitor(iface string, logger *slog.Logger) *LinkMonitor {
	if logger == nil {
		logger = slog.Default().With("component", "monitor")
	}
	return &LinkMonitor{iface: iface, logger: logger}
}

func (m *LinkMonitor) Interface() string {
	return m.iface
}

// CheckLinkUp is true only when the interface is administratively up and
// has carrier. An interface that cannot be queried counts as down.
func (m *LinkMonitor) CheckLinkUp() bool {
	up, running, err := interfaceFlags(m.iface)
	if err != nil {
		m.logger.Debug("interface query failed", "iface", m.iface, "err", err)
		return false
	}
	return up && running
}
