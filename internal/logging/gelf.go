package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/Graylog2/go-gelf/gelf"
)

// MessageWriter sends a GELF message. *gelf.Writer satisfies it.
type MessageWriter interface {
	WriteMessage(m *gelf.Message) error
}

// GELFHandler forwards slog records to Graylog.
type GELFHandler struct {
	w        MessageWriter
	level    slog.Leveler
	host     string
	facility string
	attrs    []slog.Attr
	group    string
}

// NewGELFWriter dials a Graylog UDP input.
func NewGELFWriter(address string) (*gelf.Writer, error) {
	w, err := gelf.NewWriter(address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to graylog at %s: %w", address, err)
	}
	return w, nil
}

// NewGELFHandler creates a handler writing records at or above level.
func NewGELFHandler(w MessageWriter, level string, facility string) *GELFHandler {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return &GELFHandler{
		w:        w,
		level:    parseLevel(level),
		host:     host,
		facility: facility,
	}
}

func (h *GELFHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *GELFHandler) Handle(_ context.Context, r slog.Record) error {
	extra := make(map[string]interface{}, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		extra["_"+a.Key] = a.Value.Resolve().Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		key := a.Key
		if h.group != "" {
			key = h.group + "." + key
		}
		extra["_"+key] = fmt.Sprint(a.Value.Resolve().Any())
		return true
	})

	return h.w.WriteMessage(&gelf.Message{
		Version:  "1.1",
		Host:     h.host,
		Short:    r.Message,
		TimeUnix: float64(r.Time.UnixNano()) / 1e9,
		Level:    syslogLevel(r.Level),
		Facility: h.facility,
		Extra:    extra,
	})
}

func (h *GELFHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	next.attrs = append(next.attrs, h.attrs...)
	for _, a := range attrs {
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		next.attrs = append(next.attrs, a)
	}
	return &next
}

func (h *GELFHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.group = strings.TrimPrefix(h.group+"."+name, ".")
	return &next
}

// syslogLevel maps slog levels onto the syslog severities GELF uses.
func syslogLevel(l slog.Level) int32 {
	switch {
	case l >= slog.LevelError:
		return 3
	case l >= slog.LevelWarn:
		return 4
	case l >= slog.LevelInfo:
		return 6
	default:
		return 7
	}
}
