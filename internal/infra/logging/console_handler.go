package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
)

const (
	ansiCodeReset     = "\033[0m"
	ansiCodeRed       = "\033[31m"
	ansiCodeGreen     = "\033[32m"
	ansiCodeYellow    = "\033[33m"
	ansiCodeCyan      = "\033[36m"
	ansiCodeGray      = "\033[90m"
	ansiCodeUnderline = "\033[4m"
)

//nolint:gochecknoglobals
var ansiCodeMap = map[slog.Level]string{
	slog.LevelDebug: ansiCodeCyan,
	slog.LevelInfo:  ansiCodeGreen,
	slog.LevelWarn:  ansiCodeYellow,
	slog.LevelError: ansiCodeRed,
}

// ConsoleHandler is a slog.Handler producing colored, human-readable lines for
// development. Levels can be overridden per logger name prefix.
type ConsoleHandler struct {
	output    io.Writer
	mu        *sync.Mutex
	level     slog.Level
	pkgLevels map[string]slog.Level

	attrs  []slog.Attr
	groups []string
}

var _ slog.Handler = (*ConsoleHandler)(nil)

// NewConsoleHandler creates a handler writing to output. pkgLevels maps logger name
// prefixes ("repo", "svc.authsvc") to the minimum level for loggers below them.
func NewConsoleHandler(output io.Writer, level slog.Level, pkgLevels map[string]slog.Level) *ConsoleHandler {
	return &ConsoleHandler{
		output:    output,
		mu:        new(sync.Mutex),
		level:     level,
		pkgLevels: pkgLevels,
	}
}

// levelFor resolves the most specific override for a dotted logger name.
func (h *ConsoleHandler) levelFor(name string) slog.Level {
	for key := name; key != ""; {
		if level, ok := h.pkgLevels[key]; ok {
			return level
		}

		idx := strings.LastIndex(key, ".")
		if idx < 0 {
			break
		}

		key = key[:idx]
	}

	return h.level
}

// Handle implements slog.Handler.
func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	attrs = append(attrs, h.attrs...)

	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, a)

		return true
	})

	var line strings.Builder

	line.WriteString(ansiCodeGray + r.Time.Format("15:04:05.000000") + ansiCodeReset)
	line.WriteString(" " + ansiCodeMap[r.Level] + "[" + r.Level.String() + "]" + ansiCodeReset)
	line.WriteString(" " + r.Message)

	var prefix string
	if len(h.groups) > 0 {
		prefix = strings.Join(h.groups, ".") + "."
	}

	if len(attrs) > 0 {
		line.WriteString(" " + ansiCodeGray + "|" + ansiCodeReset)
		renderAttrs(&line, prefix, attrs)
	}

	frame, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
	fn := strings.Split(frame.Function, string(os.PathSeparator))

	line.WriteString("\n-> " + ansiCodeGray + fn[len(fn)-1] + "()")
	line.WriteString(" in " + ansiCodeUnderline + frame.File + ":" + strconv.Itoa(frame.Line) + ansiCodeReset)

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, err := fmt.Fprintln(h.output, line.String()); err != nil {
		return fmt.Errorf("write log line: %w", err)
	}

	return nil
}

func renderAttrs(out *strings.Builder, prefix string, attrs []slog.Attr) {
	for _, attr := range attrs {
		if attr.Value.Kind() == slog.KindGroup {
			renderAttrs(out, prefix+attr.Key+".", attr.Value.Group())

			continue
		}

		out.WriteString(" " + prefix + attr.Key)
		out.WriteString("=" + ansiCodeGray + attr.Value.String() + ansiCodeReset)
	}
}

// WithAttrs implements slog.Handler. Setting the logger name attribute applies the
// matching level override.
func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)

	if len(h.groups) == 0 {
		for _, attr := range attrs {
			if attr.Key == LoggerNameKey {
				clone.level = h.levelFor(attr.Value.String())
			}
		}
	}

	return &clone
}

// WithGroup implements slog.Handler.
func (h *ConsoleHandler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.groups = append(append([]string{}, h.groups...), name)

	return &clone
}

// Enabled implements slog.Handler.
func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.level <= level
}
