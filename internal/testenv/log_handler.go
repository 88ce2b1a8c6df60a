// Package testenv provides helpers shared by the tests of this module.
package testenv

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/openslides/openslides.go/pkg/logger"
)

// TestLogHandler is a slog.Handler that prints the message index (starting
// from 0), level and message, without the timestamp, so that test log output
// is deterministic. It also keeps the printed lines for assertions.
//
// Handlers derived through WithAttrs or WithGroup share the index and the
// recorded lines with their parent.
type TestLogHandler struct {
	state *handlerState

	attrs  []slog.Attr
	groups []string

	ignoreErrorPrefixes []string
	ignoreDebug         bool
}

type handlerState struct {
	mu    sync.Mutex
	w     io.Writer
	index int
	lines []string
}

// TestLogHandlerOption configures a TestLogHandler.
type TestLogHandlerOption func(*TestLogHandler)

// WithIgnoreErrorPrefixes drops error messages starting with one of prefixes.
func WithIgnoreErrorPrefixes(prefixes ...string) TestLogHandlerOption {
	return func(h *TestLogHandler) {
		h.ignoreErrorPrefixes = prefixes
	}
}

// WithIgnoreDebug drops DEBUG messages.
func WithIgnoreDebug() TestLogHandlerOption {
	return func(h *TestLogHandler) {
		h.ignoreDebug = true
	}
}

// WithWriter prints to w instead of stdout.
func WithWriter(w io.Writer) TestLogHandlerOption {
	return func(h *TestLogHandler) {
		h.state.w = w
	}
}

func NewTestLogHandler(opts ...TestLogHandlerOption) *TestLogHandler {
	h := &TestLogHandler{state: &handlerState{w: os.Stdout}}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NewLogger wraps a TestLogHandler into a logger.Logger.
func NewLogger(opts ...TestLogHandlerOption) (logger.Logger, *TestLogHandler) {
	h := NewTestLogHandler(opts...)
	return logger.New(h), h
}

//nolint:gocritic
func (h *TestLogHandler) Handle(_ context.Context, r slog.Record) error {
	if r.Level == slog.LevelDebug && h.ignoreDebug {
		return nil
	}

	if r.Level == slog.LevelError {
		for _, prefix := range h.ignoreErrorPrefixes {
			if strings.HasPrefix(r.Message, prefix) {
				return nil
			}
		}
	}

	line := fmt.Sprintf("%s: %s", r.Level, r.Message)
	if attrs := h.attrsToString(&r); attrs != "" {
		line += " " + attrs
	}

	s := h.state
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "[%d] %s\n", s.index, line)
	s.lines = append(s.lines, line)
	s.index++
	return nil
}

// Lines returns the recorded lines without index, e.g. "WARN: cache miss key=a".
func (h *TestLogHandler) Lines() []string {
	h.state.mu.Lock()
	defer h.state.mu.Unlock()
	return append([]string(nil), h.state.lines...)
}

// Contains reports whether a recorded line contains substr.
func (h *TestLogHandler) Contains(substr string) bool {
	for _, l := range h.Lines() {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}

func (h *TestLogHandler) attrsToString(r *slog.Record) string {
	var sb strings.Builder

	for i, attr := range h.attrs {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(formatAttr(attr, ""))
	}

	prefix := ""
	if len(h.groups) > 0 {
		prefix = strings.Join(h.groups, ".") + "."
	}
	r.Attrs(func(a slog.Attr) bool {
		if sb.Len() > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(formatAttr(a, prefix))
		return true
	})
	return sb.String()
}

func formatAttr(a slog.Attr, prefix string) string {
	if a.Value.Kind() == slog.KindGroup {
		groupPrefix := prefix + a.Key + "."
		parts := make([]string, 0, len(a.Value.Group()))
		for _, ga := range a.Value.Group() {
			parts = append(parts, formatAttr(ga, groupPrefix))
		}
		return strings.Join(parts, ", ")
	}
	return fmt.Sprintf("%s%s=%v", prefix, a.Key, a.Value)
}

func (h *TestLogHandler) Enabled(context.Context, slog.Level) bool {
	return true
}

func (h *TestLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	prefix := ""
	if len(h.groups) > 0 {
		prefix = strings.Join(h.groups, ".") + "."
	}

	added := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		if prefix != "" {
			attr.Key = prefix + attr.Key
		}
		added = append(added, attr)
	}

	c := *h
	c.attrs = append(h.attrs[:len(h.attrs):len(h.attrs)], added...)
	return &c
}

func (h *TestLogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.groups = append(h.groups[:len(h.groups):len(h.groups)], name)
	return &c
}
