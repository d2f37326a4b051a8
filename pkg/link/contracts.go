package link

import (
	"context"

	"github.com/antonionduarte/go-link-supervisor/pkg/link/net"
)

type (
	// Connector is the part of a net.Session the supervisor drives.
	Connector interface {
		Start(ctx context.Context, host net.Host) error
		Stop()
		IsRunning() bool
		IsConnected() bool
		EnqueueSend(buf []byte) error
	}

	// LinkChecker reports whether the physical link is usable.
	LinkChecker interface {
		CheckLinkUp() bool
	}

	// Override is sampled once per control cycle; true while the operator
	// asserts the reset input. Debouncing is the implementation's job.
	Override interface {
		Asserted() bool
	}

	// Indicator is the actuator contract. Calls must return promptly; the
	// supervisor never reads actuator state back.
	Indicator interface {
		Connecting()
		Connected()
		Activity()
		Alert()
	}

	// PayloadSource yields the next application payload to send. A nil or
	// empty slice means nothing is due.
	PayloadSource interface {
		NextPayload() []byte
	}

	NopIndicator struct{}

	nopOverride struct{}
)

func (NopIndicator) Connecting() {}
func (NopIndicator) Connected()  {}
func (NopIndicator) Activity()   {}
func (NopIndicator) Alert()      {}

func (nopOverride) Asserted() bool { return false }
