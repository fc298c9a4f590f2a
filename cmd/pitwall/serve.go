package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/pitwall/pitwall/internal/api"
	"github.com/pitwall/pitwall/internal/cache"
	"github.com/pitwall/pitwall/internal/catalog"
	"github.com/pitwall/pitwall/internal/config"
	"github.com/pitwall/pitwall/internal/dispatcher"
	"github.com/pitwall/pitwall/internal/influx"
	"github.com/pitwall/pitwall/internal/logging"
	"github.com/pitwall/pitwall/internal/mockdata"
	"github.com/pitwall/pitwall/internal/monitor"
	intOtel "github.com/pitwall/pitwall/internal/otel"
	"github.com/pitwall/pitwall/internal/server"
	"github.com/pitwall/pitwall/internal/session"
	"github.com/pitwall/pitwall/internal/sim"
	"github.com/pitwall/pitwall/internal/storage"
	"github.com/pitwall/pitwall/internal/views"
	"github.com/pitwall/pitwall/internal/worker"
)

// service holds every long-lived component of a running pitwall.
type service struct {
	startTime time.Time
	logLevel  string
	logsDir   string

	slogManager *logging.SlogManager
	logger      *slog.Logger
	logFile     *os.File
	otel        *intOtel.Provider

	influx     *influx.Manager
	backend    storage.Backend
	dispatcher *dispatcher.Dispatcher
	worker     *worker.Manager
	session    *session.Session
	hub        *server.Hub
	server     *server.Server
	monitor    *monitor.Service
	uploader   *api.Client
}

func newService(configDir string) (*service, error) {
	s := &service{
		startTime:   time.Now(),
		slogManager: logging.NewSlogManager(),
	}
	s.slogManager.Setup(nil, "info", nil)
	s.logger = s.slogManager.Logger()

	if err := config.Load(configDir); err != nil {
		s.logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		s.logger.Info("Loaded config", "dir", configDir)
	}
	s.logLevel = config.GetString("logLevel")
	s.logsDir = config.GetString("logsDir")

	if err := s.setupLogging(); err != nil {
		return nil, err
	}
	if err := s.setupComponents(); err != nil {
		s.close()
		return nil, err
	}
	return s, nil
}

func (s *service) setupLogging() error {
	if err := os.MkdirAll(s.logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs dir: %w", err)
	}
	path := logging.LogFilePath(s.logsDir, ServiceName, s.startTime)
	if _, err := os.Stat(path); err == nil {
		_ = os.Rename(path, path+".old")
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	s.logFile = f

	var provider *sdklog.LoggerProvider
	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		s.otel, err = intOtel.New(intOtel.FromConfig(otelCfg, Version, f))
		if err != nil {
			s.logger.Error("Failed to initialize OTel provider", "error", err)
		} else {
			provider = s.otel.LoggerProvider()
			s.logger.Info("OTel provider initialized", "endpoint", otelCfg.Endpoint)
		}
	}

	var extra []slog.Handler
	if gl := config.GetGraylogConfig(); gl.Enabled {
		w, err := logging.NewGELFWriter(gl.Address)
		if err != nil {
			s.logger.Error("Graylog sink disabled", "error", err)
		} else {
			extra = append(extra, logging.NewGELFHandler(w, s.logLevel, ServiceName))
		}
	}

	s.slogManager.SetContextProvider(s.logContext)
	s.slogManager.Setup(f, s.logLevel, provider, extra...)
	s.logger = s.slogManager.Logger()
	s.logger.Info("Logging to file", "path", path, "version", Version, "buildDate", BuildDate)
	return nil
}

// logContext must not take the session lock: the session logs while holding it.
func (s *service) logContext() []slog.Attr {
	if s.session == nil {
		return nil
	}
	attrs := []slog.Attr{slog.String("sessionId", s.session.ID())}
	if s.monitor != nil {
		attrs = append(attrs, slog.String("phase", s.monitor.Last().Phase))
	}
	return attrs
}

func (s *service) setupComponents() error {
	simCfg := config.GetSimConfig()
	cat, err := loadCatalog(simCfg.CatalogFile)
	if err != nil {
		return err
	}

	s.dispatcher, err = dispatcher.New(logging.NewCommandLogger(
		logging.NewZerolog(s.logFile, s.logLevel, "dispatcher")))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}

	if influxCfg := config.GetInfluxConfig(); influxCfg.Enabled {
		backup := filepath.Join(s.logsDir, fmt.Sprintf("%s_influx_%s.lp.gz", ServiceName, s.startTime.Format("20060102_150405")))
		m := influx.NewManager(influxCfg, logging.NewZerolog(s.logFile, s.logLevel, "influx"), backup)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := m.Connect(ctx)
		cancel()
		if err != nil {
			s.logger.Error("InfluxDB metrics disabled", "error", err)
		} else {
			s.influx = m
		}
	}

	apiCfg := config.GetAPIConfig()
	if apiCfg.APIKey != "" {
		s.uploader = api.New(apiCfg.ServerURL, apiCfg.APIKey)
	}

	s.backend, err = createStorageBackend(config.GetStorageConfig(), storageDeps{
		Logger:   s.logger,
		DBLogger: logging.NewZerolog(s.logFile, s.logLevel, "database"),
		IDCache:  cache.NewIDCache(),
		Tag:      config.GetString("defaultTag"),
		API:      apiCfg,
		DB:       config.GetDBConfig(),
		Start:    s.startTime,
	})
	if err != nil {
		return err
	}
	if err := s.backend.Init(); err != nil {
		return fmt.Errorf("failed to initialize storage backend: %w", err)
	}

	deps := worker.Dependencies{
		Dispatcher: s.dispatcher,
		Influx:     s.influx,
		Logger:     s.logger,
	}
	if s.uploader != nil {
		deps.Uploader = s.uploader
	}
	s.worker = worker.NewManager(deps, s.backend)

	serverCfg := config.GetServerConfig()
	s.hub = server.NewHub(serverCfg.ClientBuffer, s.logger)

	mockCfg := config.GetMockDataConfig()
	seed := mockCfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	fetcher := mockdata.New(cat, rand.New(rand.NewSource(seed)),
		mockdata.WithLatency(mockCfg.Latency),
		mockdata.WithFailureRate(mockCfg.FailureRate),
	)

	s.session = session.New(cat, fetcher,
		session.WithLogger(s.logger),
		session.WithRaceLength(simCfg.RaceLaps),
		session.WithSpeedMultiplier(simCfg.SpeedMultiplier),
		session.WithRunnerOptions(sim.WithInterval(simCfg.FrameInterval)),
		session.WithRunHandler(s.worker.RunHandler()),
		session.WithFrameSink(s.worker.FrameSink(s.hub.Broadcast)),
	)
	s.worker.RegisterHandlers(s.session)
	s.worker.Start()

	s.server = server.New(serverCfg, server.Dependencies{
		Session:    s.session,
		Dispatcher: s.dispatcher,
		Views:      views.NewBuilder(s.session.Tires(), cache.NewTrackCache(), simCfg.ReferenceLapTime),
		Hub:        s.hub,
		Logger:     s.logger,
		Version:    Version,
	})

	monDeps := monitor.Dependencies{
		Session:      s.session,
		Recorder:     s.worker,
		Clients:      s.hub.Clients,
		Dir:          s.logsDir,
		InstanceName: ServiceName,
		Interval:     config.GetDuration("monitor.interval"),
		Logger:       s.logger,
	}
	if s.influx != nil {
		monDeps.Influx = s.influx
	}
	if p, ok := s.backend.(monitor.PerformanceRecorder); ok {
		monDeps.Performance = p
	}
	s.monitor = monitor.NewService(monDeps)
	return nil
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	cat, err := catalog.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return cat, nil
}

// checkViewer logs whether the replay viewer answers its healthcheck.
func (s *service) checkViewer(ctx context.Context) {
	if s.uploader == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.uploader.Healthcheck(ctx); err != nil {
		s.logger.Info("Replay viewer is offline", "error", err)
		return
	}
	s.logger.Info("Replay viewer is online")
}

// run serves until ctx is cancelled.
func (s *service) run(ctx context.Context) error {
	if err := s.monitor.Start(); err != nil {
		s.logger.Error("Failed to start status monitor", "error", err)
	}
	go s.checkViewer(ctx)

	// first fetch for the default pair
	s.session.Start()

	err := s.server.ListenAndServe(ctx)
	s.close()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// close stops components in dependency order. Components that were never
// created are skipped.
func (s *service) close() {
	if s.monitor != nil {
		s.monitor.Stop()
	}
	if s.hub != nil {
		s.hub.Close()
	}
	if s.session != nil {
		s.session.Close()
	}
	if s.worker != nil {
		s.worker.Close()
		recorded, dropped, failed := s.worker.Stats()
		s.logger.Info("Recorder stopped", "recorded", recorded, "dropped", dropped, "failed", failed)
	}
	if s.dispatcher != nil {
		s.dispatcher.Close()
	}
	if s.backend != nil {
		if err := s.backend.Close(); err != nil {
			s.logger.Error("Failed to close storage backend", "error", err)
		}
	}
	if s.influx != nil {
		if err := s.influx.Close(); err != nil {
			s.logger.Error("Failed to close InfluxDB manager", "error", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.slogManager.Flush(ctx); err != nil {
		s.logger.Warn("Failed to flush logs", "error", err)
	}
	if s.otel != nil {
		if err := s.otel.Shutdown(ctx); err != nil {
			s.logger.Warn("Failed to shut down OTel", "error", err)
		}
	}
	if s.logFile != nil {
		_ = s.logFile.Close()
	}
}
