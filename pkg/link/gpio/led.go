package gpio

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Mode is the steady pattern an LED is showing.
type Mode int

const (
	ModeOff Mode = iota
	ModeOn
	ModeBlink
)

const (
	ConnectingBlinkHz = 2
	AlertBlinkHz      = 8

	pulseWidth = 60 * time.Millisecond
)

func (m Mode) String() string {
	switch m {
	case ModeOff:
		return "off"
	case ModeOn:
		return "on"
	case ModeBlink:
		return "blink"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// LED drives a sysfs LED (<root>/<name>/brightness) from its own
// goroutine. It satisfies the link.Indicator contract:
//
//	Connecting -> blink at 2 Hz
//	Connected  -> steady on
//	Activity   -> short off pulse while steady on
//	Alert      -> blink at 8 Hz
type LED struct {
	name           string
	brightnessPath string
	logger         *slog.Logger

	mu   sync.Mutex
	mode Mode
	hz   int

	changed chan struct{}
	pulse   chan struct{}
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup

	lit bool // loop goroutine only
}

// OpenLED starts the driver for the LED called name under root (usually
// /sys/class/leds). The LED starts off.
func OpenLED(root, name string, logger *slog.Logger) (*LED, error) {
	if logger == nil {
		logger = slog.Default().With("component", "gpio")
	}
	path := filepath.Join(root, name, "brightness")
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("led %q: %w", name, err)
	}

	l := &LED{
		name:           name,
		brightnessPath: path,
		logger:         logger.With("led", name),
		changed:        make(chan struct{}, 1),
		pulse:          make(chan struct{}, 1),
		done:           make(chan struct{}),
	}
	l.write(false)

	l.wg.Add(1)
	go l.run()
	l.logger.Info("led initialized", "path", path)
	return l, nil
}

func (l *LED) SwitchOn()  { l.setMode(ModeOn, 0) }
func (l *LED) SwitchOff() { l.setMode(ModeOff, 0) }

// Blink toggles the LED hz times per second.
func (l *LED) Blink(hz int) {
	if hz <= 0 {
		hz = ConnectingBlinkHz
	}
	l.setMode(ModeBlink, hz)
}

func (l *LED) Mode() (Mode, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mode, l.hz
}

func (l *LED) Connecting() { l.Blink(ConnectingBlinkHz) }
func (l *LED) Connected()  { l.SwitchOn() }
func (l *LED) Alert()      { l.Blink(AlertBlinkHz) }

// Activity requests a short pulse. Pulses arriving while one is pending are
// merged.
func (l *LED) Activity() {
	select {
	case l.pulse <- struct{}{}:
	default:
	}
}

// Close stops the driver goroutine and leaves the LED off.
func (l *LED) Close() error {
	l.once.Do(func() {
		close(l.done)
		l.wg.Wait()
		l.write(false)
	})
	return nil
}

func (l *LED) setMode(mode Mode, hz int) {
	l.mu.Lock()
	if l.mode == mode && l.hz == hz {
		l.mu.Unlock()
		return
	}
	l.mode, l.hz = mode, hz
	l.mu.Unlock()

	l.logger.Debug("led mode", "mode", mode, "hz", hz)
	select {
	case l.changed <- struct{}{}:
	default:
	}
}

func (l *LED) run() {
	defer l.wg.Done()

	var ticker *time.Ticker
	var tick <-chan time.Time
	stopTicker := func() {
		if ticker != nil {
			ticker.Stop()
			ticker, tick = nil, nil
		}
	}
	defer stopTicker()

	for {
		select {
		case <-l.done:
			return

		case <-l.changed:
			stopTicker()
			mode, hz := l.Mode()
			switch mode {
			case ModeOn:
				l.write(true)
			case ModeOff:
				l.write(false)
			case ModeBlink:
				ticker = time.NewTicker(time.Second / time.Duration(2*hz))
				tick = ticker.C
				l.write(!l.lit)
			}

		case <-l.pulse:
			if mode, _ := l.Mode(); mode != ModeOn {
				continue
			}
			l.write(false)
			select {
			case <-time.After(pulseWidth):
			case <-l.done:
				return
			}
			if mode, _ := l.Mode(); mode == ModeOn {
				l.write(true)
			}

		case <-tick:
			l.write(!l.lit)
		}
	}
}

func (l *LED) write(on bool) {
	value := "0"
	if on {
		value = "255"
	}
	if err := os.WriteFile(l.brightnessPath, []byte(value), 0o644); err != nil {
		l.logger.Debug("led write failed", "err", err)
		return
	}
	l.lit = on
}
