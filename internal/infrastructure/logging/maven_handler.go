package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/term"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

// systemKey is rendered as a [SYSTEM] bracket instead of key=value
const systemKey = "system"

// MavenHandler is a slog.Handler that formats logs in Maven-style:
// [LEVEL] [SYSTEM] [HH:MM:SS] message key=value key=value
type MavenHandler struct {
	w              io.Writer
	level          slog.Leveler
	mu             *sync.Mutex
	system         string
	showTimestamps bool
	useColors      bool
	prefix         string // dotted group path applied to later attrs
	attrs          []string
}

// NewMavenHandler creates a new Maven-style handler
func NewMavenHandler(w io.Writer, opts *slog.HandlerOptions) *MavenHandler {
	h := &MavenHandler{
		w:              w,
		level:          slog.LevelInfo,
		mu:             &sync.Mutex{},
		showTimestamps: true,
		useColors:      isTerminal(w),
	}
	if opts != nil && opts.Level != nil {
		h.level = opts.Level
	}
	return h
}

// isTerminal checks if the writer is a terminal (for color output)
func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}

// Enabled reports whether the handler handles records at the given level.
func (h *MavenHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle formats and writes a log record
func (h *MavenHandler) Handle(_ context.Context, r slog.Record) error {
	var buf strings.Builder

	h.colored(&buf, h.levelColor(r.Level), "["+levelString(r.Level)+"]")

	if h.system != "" {
		buf.WriteString(" [")
		buf.WriteString(h.system)
		buf.WriteString("]")
	}

	if h.showTimestamps && !r.Time.IsZero() {
		buf.WriteString(" ")
		h.colored(&buf, colorGray, "["+r.Time.Format("15:04:05")+"]")
	}

	buf.WriteString(" ")
	buf.WriteString(r.Message)

	for _, a := range h.attrs {
		buf.WriteString(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		if a.Key != systemKey || h.prefix != "" {
			appendAttr(&buf, h.prefix, a)
		}
		return true
	})

	buf.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, buf.String())
	return err
}

// WithAttrs returns a new handler with the given attributes added
func (h *MavenHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := h.clone()
	for _, a := range attrs {
		if a.Key == systemKey && h.prefix == "" {
			clone.system = a.Value.String()
			continue
		}
		var buf strings.Builder
		appendAttr(&buf, h.prefix, a)
		clone.attrs = append(clone.attrs, buf.String())
	}
	return clone
}

// WithGroup returns a new handler that qualifies later attribute keys
// with name
func (h *MavenHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := h.clone()
	clone.prefix = h.prefix + name + "."
	return clone
}

func (h *MavenHandler) clone() *MavenHandler {
	attrs := make([]string, len(h.attrs))
	copy(attrs, h.attrs)
	return &MavenHandler{
		w:              h.w,
		level:          h.level,
		mu:             h.mu,
		system:         h.system,
		showTimestamps: h.showTimestamps,
		useColors:      h.useColors,
		prefix:         h.prefix,
		attrs:          attrs,
	}
}

func (h *MavenHandler) colored(buf *strings.Builder, color, s string) {
	if h.useColors {
		buf.WriteString(color)
		buf.WriteString(s)
		buf.WriteString(colorReset)
		return
	}
	buf.WriteString(s)
}

// appendAttr appends " key=value"; group attrs are flattened to dotted keys
func appendAttr(buf *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		groupPrefix := prefix
		if a.Key != "" {
			groupPrefix += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			appendAttr(buf, groupPrefix, ga)
		}
		return
	}

	buf.WriteString(" ")
	buf.WriteString(prefix)
	buf.WriteString(a.Key)
	buf.WriteString("=")
	buf.WriteString(formatValue(a.Value))
}

// formatValue quotes values containing spaces so key=value pairs stay
// unambiguous
func formatValue(v slog.Value) string {
	s := v.String()
	if v.Kind() == slog.KindString && (s == "" || strings.ContainsAny(s, " \t\"=")) {
		return strconv.Quote(s)
	}
	return s
}

// levelColor returns the ANSI color code for a log level (Maven-style)
func (h *MavenHandler) levelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return colorRed
	case level >= slog.LevelWarn:
		return colorYellow
	case level >= slog.LevelInfo:
		return colorCyan
	default:
		return colorGray
	}
}

// levelString returns a short, uppercase string for the log level
func levelString(level slog.Level) string {
	switch level {
	case slog.LevelDebug:
		return "DEBUG"
	case slog.LevelInfo:
		return "INFO"
	case slog.LevelWarn:
		return "WARN"
	case slog.LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", level)
	}
}
