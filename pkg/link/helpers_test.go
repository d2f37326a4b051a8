package link

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/antonionduarte/go-link-supervisor/pkg/link/net"
)

var errRefused = errors.New("connection refused")

// fakeConnector scripts Start results. Once the script runs out every
// Start succeeds.
type fakeConnector struct {
	mu        sync.Mutex
	script    []error
	running   bool
	connected bool
	starts    int
	stops     int
	sent      [][]byte
	sendErr   error
}

func (c *fakeConnector) Start(_ context.Context, _ net.Host) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.starts++
	if len(c.script) > 0 {
		err := c.script[0]
		c.script = c.script[1:]
		if err != nil {
			return err
		}
	}
	c.running, c.connected = true, true
	return nil
}

func (c *fakeConnector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stops++
	c.running, c.connected = false, false
}

func (c *fakeConnector) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *fakeConnector) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeConnector) EnqueueSend(buf []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, buf)
	return nil
}

// die simulates the session failing on its own.
func (c *fakeConnector) die() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running, c.connected = false, false
}

// drop leaves the workers running while the connection is gone.
func (c *fakeConnector) drop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
}

func (c *fakeConnector) counts() (starts, stops, sent int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.starts, c.stops, len(c.sent)
}

type fakeLink struct {
	mu sync.Mutex
	up bool
}

func (l *fakeLink) CheckLinkUp() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.up
}

func (l *fakeLink) set(up bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.up = up
}

type fakeOverride struct {
	mu       sync.Mutex
	asserted bool
}

func (o *fakeOverride) Asserted() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.asserted
}

func (o *fakeOverride) set(asserted bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.asserted = asserted
}

// recordingIndicator remembers the last pattern requested.
type recordingIndicator struct {
	mu         sync.Mutex
	last       string
	connecting int
	alerts     int
	activity   int
}

func (r *recordingIndicator) record(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = name
	switch name {
	case "connecting":
		r.connecting++
	case "alert":
		r.alerts++
	}
}

func (r *recordingIndicator) Connecting() { r.record("connecting") }
func (r *recordingIndicator) Connected()  { r.record("connected") }
func (r *recordingIndicator) Alert()      { r.record("alert") }
func (r *recordingIndicator) Activity() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activity++
}

func (r *recordingIndicator) lastCall() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

type fixedPayload []byte

func (p fixedPayload) NextPayload() []byte { return append([]byte(nil), p...) }

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type supervisorFixture struct {
	sup       *Supervisor
	conn      *fakeConnector
	link      *fakeLink
	override  *fakeOverride
	indicator *recordingIndicator
	clock     *fakeClock
}

func newSupervisorFixture(startScript ...error) *supervisorFixture {
	f := &supervisorFixture{
		conn:      &fakeConnector{script: startScript},
		link:      &fakeLink{up: true},
		override:  &fakeOverride{},
		indicator: &recordingIndicator{},
		clock:     newFakeClock(),
	}
	f.sup = NewSupervisor(f.conn, SupervisorConfig{
		Peer:      net.NewHost(8080, "127.0.0.1"),
		Monitor:   f.link,
		Override:  f.override,
		Indicator: f.indicator,
		Payloads:  fixedPayload{0xA5, 1, 2, 3, 4, 5, 6, 7, 8},
		Logger:    discardLogger(),
	})
	f.sup.now = f.clock.Now
	return f
}

// step advances the clock by one period and runs a cycle.
func (f *supervisorFixture) step() {
	f.clock.Advance(f.sup.cfg.Period)
	f.sup.Step(context.Background())
}
