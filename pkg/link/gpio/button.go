package gpio

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// exportSettle bounds how long OpenButton waits for the kernel to create
// the gpio directory after an export.
const exportSettle = time.Second

// Button samples a sysfs GPIO input (<root>/gpio<N>/value). It satisfies
// the link.Override contract.
type Button struct {
	root      string
	number    int
	activeLow bool
	valuePath string
	exported  bool
	logger    *slog.Logger

	// Debounce, if positive, requires two pressed readings this far apart.
	Debounce time.Duration
}

// OpenButton exports gpio number under root (usually /sys/class/gpio) if it
// is not exported yet and configures it as an input.
func OpenButton(root string, number int, activeLow bool, logger *slog.Logger) (*Button, error) {
	if logger == nil {
		logger = slog.Default().With("component", "gpio")
	}
	b := &Button{
		root:      root,
		number:    number,
		activeLow: activeLow,
		logger:    logger.With("gpio", number),
		Debounce:  20 * time.Millisecond,
	}
	dir := filepath.Join(root, "gpio"+strconv.Itoa(number))
	b.valuePath = filepath.Join(dir, "value")

	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(filepath.Join(root, "export"), []byte(strconv.Itoa(number)), 0o200); err != nil {
			return nil, fmt.Errorf("export gpio%d: %w", number, err)
		}
		b.exported = true
		if err := waitForPath(dir, exportSettle); err != nil {
			return nil, fmt.Errorf("export gpio%d: %w", number, err)
		}
	}

	if err := os.WriteFile(filepath.Join(dir, "direction"), []byte("in"), 0o644); err != nil {
		b.logger.Warn("cannot set direction", "err", err)
	}
	b.logger.Info("button initialized", "activeLow", activeLow)
	return b, nil
}

// Pressed reads the pin once. Read failures count as not pressed.
func (b *Button) Pressed() bool {
	data, err := os.ReadFile(b.valuePath)
	if err != nil || len(data) == 0 {
		if err != nil {
			b.logger.Debug("button read failed", "err", err)
		}
		return false
	}
	if b.activeLow {
		return data[0] == '0'
	}
	return data[0] == '1'
}

// Asserted is Pressed with debouncing.
func (b *Button) Asserted() bool {
	if !b.Pressed() {
		return false
	}
	if b.Debounce <= 0 {
		return true
	}
	time.Sleep(b.Debounce)
	return b.Pressed()
}

// Close unexports the pin if OpenButton exported it.
func (b *Button) Close() error {
	if !b.exported {
		return nil
	}
	b.exported = false
	return os.WriteFile(filepath.Join(b.root, "unexport"), []byte(strconv.Itoa(b.number)), 0o200)
}

func waitForPath(path string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		_, err := os.Stat(path)
		if err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(25 * time.Millisecond)
	}
}
