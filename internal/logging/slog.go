package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// InstrumentationName identifies pitwall in the OTel log bridge.
const InstrumentationName = "pitwall"

// stdout is the console sink used when Setup gets no file.
var stdout io.Writer = os.Stdout

// SlogManager builds the service logger: a text handler on the log file (or
// stdout when there is none), plus optional OTel and GELF sinks, with
// per-record session attributes from a ContextProvider.
type SlogManager struct {
	logger      *slog.Logger
	logProvider *sdklog.LoggerProvider
	context     ContextProvider
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel accepts the slog level names in any case, plus "warning".
// Anything else is info.
func parseLevel(level string) slog.Level {
	if strings.EqualFold(level, "warning") {
		return slog.LevelWarn
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// SetContextProvider installs attributes added to every record. It takes
// effect on the next Setup.
func (m *SlogManager) SetContextProvider(p ContextProvider) {
	m.context = p
}

// Setup initializes the logger. If provider is nil, OTel logging is disabled.
// Extra handlers, such as a GELFHandler, receive every record as well.
func (m *SlogManager) Setup(file io.Writer, level string, provider *sdklog.LoggerProvider, extra ...slog.Handler) {
	lvl := parseLevel(level)
	m.logProvider = provider

	sink := file
	if sink == nil {
		sink = stdout
	}
	handlers := []slog.Handler{slog.NewTextHandler(sink, &slog.HandlerOptions{
		Level:       lvl,
		ReplaceAttr: utcTime,
	})}

	if provider != nil {
		handlers = append(handlers, otelslog.NewHandler(InstrumentationName, otelslog.WithLoggerProvider(provider)))
	}
	handlers = append(handlers, extra...)

	var h slog.Handler = NewMultiHandler(handlers...)
	if m.context != nil {
		h = NewContextHandler(h, m.context)
	}

	m.logger = slog.New(h)
	m.logger.Info("Logging initialized", "level", level)
}

func utcTime(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.TimeKey || a.Value.Kind() != slog.KindTime {
		return a
	}
	a.Value = slog.StringValue(a.Value.Time().UTC().Format(time.RFC3339))
	return a
}

// Logger returns the configured slog.Logger, or slog.Default before Setup.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Flush forces a flush of OTel logs if available.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}
