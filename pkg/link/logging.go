package link

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/antonionduarte/go-link-supervisor/pkg/link/config"
)

// Component names used as the "component" attribute of every logger.
const (
	ComponentSupervisor = "supervisor"
	ComponentSession    = "session"
	ComponentMonitor    = "monitor"
	ComponentGPIO       = "gpio"
	ComponentPeer       = "peer"
)

// componentFilterHandler drops records whose component is not in the
// allowed set. Records without a component always pass.
type componentFilterHandler struct {
	next      slog.Handler
	allowed   map[string]struct{}
	component string // fixed via WithAttrs, if any
}

func NewComponentFilterHandler(next slog.Handler, allowedComponents []string) slog.Handler {
	allowed := make(map[string]struct{}, len(allowedComponents))
	for _, c := range allowedComponents {
		allowed[strings.TrimSpace(c)] = struct{}{}
	}
	return &componentFilterHandler{next: next, allowed: allowed}
}

func (h *componentFilterHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *componentFilterHandler) Handle(ctx context.Context, r slog.Record) error {
	component := h.component
	if component == "" {
		r.Attrs(func(a slog.Attr) bool {
			if a.Key == "component" && a.Value.Kind() == slog.KindString {
				component = a.Value.String()
				return false
			}
			return true
		})
	}
	if component != "" {
		if _, ok := h.allowed[component]; !ok {
			return nil
		}
	}
	return h.next.Handle(ctx, r)
}

func (h *componentFilterHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	component := h.component
	for _, a := range attrs {
		if a.Key == "component" && a.Value.Kind() == slog.KindString {
			component = a.Value.String()
		}
	}
	return &componentFilterHandler{
		next:      h.next.WithAttrs(attrs),
		allowed:   h.allowed,
		component: component,
	}
}

func (h *componentFilterHandler) WithGroup(name string) slog.Handler {
	return &componentFilterHandler{
		next:      h.next.WithGroup(name),
		allowed:   h.allowed,
		component: h.component,
	}
}

func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLoggerFromConfig builds the process logger writing to stderr.
func NewLoggerFromConfig(cfg config.LoggingConfig) *slog.Logger {
	return NewLogger(cfg, os.Stderr)
}

func NewLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLogLevel(cfg.Level)}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	if len(cfg.Components) > 0 {
		handler = NewComponentFilterHandler(handler, cfg.Components)
	}
	return slog.New(handler)
}
