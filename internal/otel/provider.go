// Package otel sets up the OpenTelemetry log provider that backs the otelslog
// bridge, and hands out meters for the dispatcher and the simulation runner.
package otel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/metric"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/pitwall/pitwall/internal/config"
)

// DefaultServiceName is reported when the configuration names none.
const DefaultServiceName = "pitwall"

// ErrNoExporter is returned when OTel is enabled without a writer or endpoint.
var ErrNoExporter = errors.New("otel enabled but no log writer or endpoint configured")

// Config holds OTel configuration
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	BatchTimeout   time.Duration
	LogWriter      io.Writer // receives pretty-printed log records
	Endpoint       string    // OTLP/HTTP endpoint, optional
	Insecure       bool
}

// FromConfig builds a Config from the otel section of the configuration.
func FromConfig(cfg config.OTelConfig, version string, w io.Writer) Config {
	name := cfg.ServiceName
	if name == "" {
		name = DefaultServiceName
	}
	return Config{
		Enabled:        cfg.Enabled,
		ServiceName:    name,
		ServiceVersion: version,
		BatchTimeout:   cfg.BatchTimeout,
		LogWriter:      w,
		Endpoint:       cfg.Endpoint,
		Insecure:       cfg.Insecure,
	}
}

// Provider owns the log provider.
type Provider struct {
	logProvider *sdklog.LoggerProvider
	config      Config
}

// New creates a provider. A disabled configuration yields a provider whose
// LoggerProvider is nil.
func New(cfg Config) (*Provider, error) {
	p := &Provider{config: cfg}
	if !cfg.Enabled {
		return p, nil
	}

	ctx := context.Background()
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var processors []sdklog.Processor
	var exportOpts []sdklog.BatchProcessorOption
	if cfg.BatchTimeout > 0 {
		exportOpts = append(exportOpts, sdklog.WithExportTimeout(cfg.BatchTimeout))
	}

	if cfg.LogWriter != nil {
		fileExporter, err := stdoutlog.New(
			stdoutlog.WithWriter(cfg.LogWriter),
			stdoutlog.WithPrettyPrint(),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create file log exporter: %w", err)
		}
		processors = append(processors, sdklog.NewBatchProcessor(fileExporter, exportOpts...))
	}

	if cfg.Endpoint != "" {
		otlpOpts := []otlploghttp.Option{
			otlploghttp.WithEndpoint(cfg.Endpoint),
		}
		if cfg.Insecure {
			otlpOpts = append(otlpOpts, otlploghttp.WithInsecure())
		}
		otlpExporter, err := otlploghttp.New(ctx, otlpOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP log exporter: %w", err)
		}
		processors = append(processors, sdklog.NewBatchProcessor(otlpExporter, exportOpts...))
	}

	if len(processors) == 0 {
		return nil, ErrNoExporter
	}

	opts := []sdklog.LoggerProviderOption{sdklog.WithResource(res)}
	for _, proc := range processors {
		opts = append(opts, sdklog.WithProcessor(proc))
	}
	p.logProvider = sdklog.NewLoggerProvider(opts...)
	return p, nil
}

// LoggerProvider returns the log provider for the otelslog bridge, or nil
// when disabled.
func (p *Provider) LoggerProvider() *sdklog.LoggerProvider {
	return p.logProvider
}

// Meter returns a meter from the global meter provider, which is a no-op
// unless the embedding program installs one.
func (p *Provider) Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Flush forces a flush of all pending logs.
func (p *Provider) Flush(ctx context.Context) error {
	if p.logProvider == nil {
		return nil
	}
	if err := p.logProvider.ForceFlush(ctx); err != nil {
		return fmt.Errorf("log flush failed: %w", err)
	}
	return nil
}

// Shutdown flushes and stops the log provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.logProvider == nil {
		return nil
	}
	if err := p.logProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("log shutdown failed: %w", err)
	}
	return nil
}

// Enabled returns whether OTel is enabled
func (p *Provider) Enabled() bool {
	return p.config.Enabled
}
