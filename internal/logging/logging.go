// Package logging wraps log/slog with a handler tailored to a command line
// tool: a plain timestamped line on stderr, plus an optional mirror to a
// log file when one is configured.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Handler formats records as "TIME LEVEL: message attr attr ..." and writes
// every record to file when one is set, and to stderr those at Warn and
// above (every record when debug is set).
type Handler struct {
	file  io.Writer
	h     slog.Handler
	mu    *sync.Mutex
	debug bool
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.h.Enabled(ctx, level)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{file: h.file, h: h.h.WithAttrs(attrs), mu: h.mu, debug: h.debug}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{file: h.file, h: h.h.WithGroup(name), mu: h.mu, debug: h.debug}
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	strs := []string{r.Time.Format("2006/01/02 15:04:05"), r.Level.String() + ":", r.Message}
	r.Attrs(func(a slog.Attr) bool {
		strs = append(strs, a.String())
		return true
	})
	line := strings.Join(strs, " ") + "\n"

	h.mu.Lock()
	defer h.mu.Unlock()

	var err error
	if h.file != nil {
		_, err = h.file.Write([]byte(line))
	}
	if h.debug || r.Level >= slog.LevelWarn {
		_, err = os.Stderr.Write([]byte(line))
	}
	return err
}

// New builds a logger writing to stderr, optionally also mirroring every
// record to file (nil disables mirroring). debug additionally echoes
// Info/Debug records to stderr; otherwise only Warn and above are shown
// there.
func New(file io.Writer, level slog.Level, debug bool) *slog.Logger {
	h := &Handler{
		file:  file,
		h:     slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: level}),
		mu:    &sync.Mutex{},
		debug: debug,
	}
	return slog.New(h)
}
