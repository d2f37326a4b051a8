package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/antonionduarte/go-link-supervisor/pkg/link/net"
)

// LoggingConfig controls how logs are emitted.
type LoggingConfig struct {
	// Level is one of: "debug", "info", "warn", "error".
	Level string `yaml:"level"`
	// Components is an optional list of components to include:
	// "supervisor", "session", "monitor", "gpio", "peer".
	// If empty, all components are logged.
	Components []string `yaml:"components"`
	// Format controls the handler type: "text" or "json".
	Format string `yaml:"format"`
}

// HostConfig is the peer address (ip:port) used in configs.
type HostConfig struct {
	IP   string `yaml:"ip"`
	Port int    `yaml:"port"`
}

// LinkConfig names the interface watched by the link monitor.
type LinkConfig struct {
	Interface string `yaml:"interface"`
}

// TimeoutsConfig bounds every blocking point of a session.
type TimeoutsConfig struct {
	Connect   time.Duration `yaml:"connect"`
	Send      time.Duration `yaml:"send"`
	Receive   time.Duration `yaml:"receive"`
	Heartbeat time.Duration `yaml:"heartbeat"`
	QueueWait time.Duration `yaml:"queueWait"`
	Probe     time.Duration `yaml:"probe"`
	KeepAlive time.Duration `yaml:"keepAlive"`
}

// SupervisorConfig tunes the reconnection policy.
type SupervisorConfig struct {
	Period          time.Duration `yaml:"period"`
	MaxAttempts     int           `yaml:"maxAttempts"`
	StableWindow    time.Duration `yaml:"stableWindow"`
	PayloadInterval time.Duration `yaml:"payloadInterval"`
}

// GPIOConfig locates the LED and button in sysfs. An empty LED name or a
// negative button number disables that device.
type GPIOConfig struct {
	LED             string `yaml:"led"`
	LEDRoot         string `yaml:"ledRoot"`
	Button          int    `yaml:"button"`
	ButtonActiveLow bool   `yaml:"buttonActiveLow"`
	GPIORoot        string `yaml:"gpioRoot"`
}

// StatusConfig controls the console status printer.
type StatusConfig struct {
	Interval time.Duration `yaml:"interval"`
	// File, if set, receives a copy of every status line. The date is
	// appended to the name, one file per day.
	File string `yaml:"file"`
}

// Config is the top-level YAML configuration structure.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Peer       HostConfig       `yaml:"peer"`
	Link       LinkConfig       `yaml:"link"`
	Timeouts   TimeoutsConfig   `yaml:"timeouts"`
	Supervisor SupervisorConfig `yaml:"supervisor"`
	GPIO       GPIOConfig       `yaml:"gpio"`
	Status     StatusConfig     `yaml:"status"`
}

const (
	DefaultInterface       = "eth0"
	DefaultPeerIP          = "192.168.1.100"
	DefaultPeerPort        = 8080
	DefaultPeriod          = 500 * time.Millisecond
	DefaultMaxAttempts     = 5
	DefaultStableWindow    = 10 * time.Second
	DefaultPayloadInterval = time.Second
	DefaultStatusInterval  = 5 * time.Second
	DefaultLEDRoot         = "/sys/class/leds"
	DefaultGPIORoot        = "/sys/class/gpio"
)

// Default returns a Config with every field set to its default.
func Default() *Config {
	cfg := &Config{GPIO: GPIOConfig{Button: -1, ButtonActiveLow: true}}
	cfg.applyDefaults()
	return cfg
}

func defaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:  "info",
		Format: "text",
	}
}

// applyDefaults fills in any zero-valued fields with sensible defaults.
func (c *Config) applyDefaults() {
	logging := defaultLoggingConfig()
	if c.Logging.Level == "" {
		c.Logging.Level = logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = logging.Format
	}

	if c.Peer.IP == "" {
		c.Peer.IP = DefaultPeerIP
	}
	if c.Peer.Port == 0 {
		c.Peer.Port = DefaultPeerPort
	}
	if c.Link.Interface == "" {
		c.Link.Interface = DefaultInterface
	}

	t, def := &c.Timeouts, net.DefaultTimeouts()
	setDuration(&t.Connect, def.Connect)
	setDuration(&t.Send, def.Send)
	setDuration(&t.Receive, def.Receive)
	setDuration(&t.Heartbeat, def.Heartbeat)
	setDuration(&t.QueueWait, def.QueueWait)
	setDuration(&t.Probe, def.Probe)
	setDuration(&t.KeepAlive, def.KeepAlive)

	s := &c.Supervisor
	setDuration(&s.Period, DefaultPeriod)
	setDuration(&s.StableWindow, DefaultStableWindow)
	setDuration(&s.PayloadInterval, DefaultPayloadInterval)
	if s.MaxAttempts <= 0 {
		s.MaxAttempts = DefaultMaxAttempts
	}

	if c.GPIO.LEDRoot == "" {
		c.GPIO.LEDRoot = DefaultLEDRoot
	}
	if c.GPIO.GPIORoot == "" {
		c.GPIO.GPIORoot = DefaultGPIORoot
	}

	setDuration(&c.Status.Interval, DefaultStatusInterval)
}

func setDuration(d *time.Duration, def time.Duration) {
	if *d <= 0 {
		*d = def
	}
}

// Validate reports settings no default can repair.
func (c *Config) Validate() error {
	if c.Peer.Port < 1 || c.Peer.Port > 65535 {
		return fmt.Errorf("peer.port %d out of range", c.Peer.Port)
	}
	if c.Supervisor.StableWindow < c.Supervisor.Period {
		return fmt.Errorf("supervisor.stableWindow %s shorter than period %s",
			c.Supervisor.StableWindow, c.Supervisor.Period)
	}
	return nil
}

// LoadConfig reads a YAML configuration file from path and returns the
// populated Config with defaults applied.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML bytes and applies defaults. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Config{GPIO: GPIOConfig{Button: -1, ButtonActiveLow: true}}
	if len(data) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && err != io.EOF {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
