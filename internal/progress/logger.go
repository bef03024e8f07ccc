package progress

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// ErrUnknownFormat is returned when an unrecognized log format is requested.
var ErrUnknownFormat = errors.New("unknown log format")

// Compile-time interface check.
var _ slog.Handler = (*PrettyHandler)(nil)

// PrettyHandler writes colored, human-oriented output to an io.Writer.
// Attributes registered via WithAttrs and WithGroup accumulate into a
// message prefix; inline record attributes are suppressed in pretty mode
// except duration, which renders dimmed after the message (json/text modes
// carry the full attribute set via the stdlib handlers).
type PrettyHandler struct {
	out    io.Writer
	level  slog.Leveler
	mu     *sync.Mutex
	prefix string
}

// NewPrettyHandler returns a PrettyHandler that writes to out at the given level.
func NewPrettyHandler(out io.Writer, level slog.Leveler) *PrettyHandler {
	return &PrettyHandler{
		out:   out,
		level: level,
		mu:    &sync.Mutex{},
	}
}

var _levelStyles = map[slog.Level]lipgloss.Style{
	slog.LevelDebug: lipgloss.NewStyle().Foreground(lipgloss.Color("8")), // dim
	slog.LevelWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("3")), // yellow
	slog.LevelError: lipgloss.NewStyle().Foreground(lipgloss.Color("1")), // red
}

var _durStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6")) // cyan

// Enabled reports whether the handler handles records at the given level.
func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle writes the record's message with ANSI color based on level.
func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	msg := h.prefix + r.Message

	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "duration" {
			msg += " " + _durStyle.Render(a.Value.String())
			return false
		}
		return true
	})

	line := msg
	switch {
	case r.Level >= slog.LevelError:
		line = _levelStyles[slog.LevelError].Render(msg)
	case r.Level >= slog.LevelWarn:
		line = _levelStyles[slog.LevelWarn].Render(msg)
	case r.Level < slog.LevelInfo:
		line = _levelStyles[slog.LevelDebug].Render(msg)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, line+"\n")
	return err
}

// WithAttrs returns a new handler that prepends the given attributes to messages.
func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	prefix := h.prefix
	for _, a := range attrs {
		prefix += a.Key + "=" + a.Value.String() + " "
	}
	return &PrettyHandler{out: h.out, level: h.level, mu: h.mu, prefix: prefix}
}

// WithGroup returns a new handler that prepends the group name to messages.
func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &PrettyHandler{out: h.out, level: h.level, mu: h.mu, prefix: h.prefix + name + "."}
}

// NewLogger creates a logger for the given format and level.
// Supported formats: "pretty", "json", "text".
func NewLogger(out io.Writer, format string, level slog.Level) (*slog.Logger, error) {
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	case "text":
		handler = slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	case "pretty":
		handler = NewPrettyHandler(out, level)
	default:
		return nil, fmt.Errorf("unknown format %q: %w", format, ErrUnknownFormat)
	}
	return slog.New(handler), nil
}
