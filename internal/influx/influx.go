// Package influx writes simulation progress and service status points to InfluxDB,
// falling back to a gzipped line-protocol file when the server is unreachable.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"

	"github.com/pitwall/pitwall/internal/config"
	"github.com/pitwall/pitwall/pkg/core"
)

// Bucket names.
const (
	BucketSimulation = "simulation"
	BucketService    = "service"
)

// ErrDisabled is returned by Connect when influx.enabled is false.
var ErrDisabled = errors.New("influx is disabled")

// DefaultBucketNames are the buckets created on connect.
var DefaultBucketNames = []string{BucketSimulation, BucketService}

// Manager handles InfluxDB connections and writes.
type Manager struct {
	Client      influxdb2.Client
	Writers     map[string]influxdb2_api.WriteAPI
	IsValid     bool
	BucketNames []string
	Logger      zerolog.Logger
	BackupPath  string

	cfg          config.InfluxConfig
	mu           sync.Mutex
	backupFile   *os.File
	backupWriter *gzip.Writer
}

// NewManager creates a new InfluxDB manager.
func NewManager(cfg config.InfluxConfig, log zerolog.Logger, backupPath string) *Manager {
	return &Manager{
		Writers:     make(map[string]influxdb2_api.WriteAPI),
		BucketNames: DefaultBucketNames,
		Logger:      log,
		BackupPath:  backupPath,
		cfg:         cfg,
	}
}

// URL is the server address built from the configuration.
func (m *Manager) URL() string {
	return fmt.Sprintf("%s://%s:%s", m.cfg.Protocol, m.cfg.Host, m.cfg.Port)
}

// Connect establishes a connection to InfluxDB, or opens the backup file when the ping fails.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.cfg.Enabled {
		return ErrDisabled
	}

	m.Client = influxdb2.NewClientWithOptions(
		m.URL(),
		m.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000),
	)

	running, err := m.Client.Ping(ctx)
	if err != nil || !running {
		m.IsValid = false
		m.Logger.Warn().Err(err).Str("backupPath", m.BackupPath).
			Msg("InfluxDB unreachable, writing to backup file")
		return m.openBackup()
	}

	if err := m.setupOrganizationAndBuckets(ctx); err != nil {
		return err
	}
	m.CreateWriters()
	m.IsValid = true
	m.Logger.Info().Str("url", m.URL()).Msg("InfluxDB client initialized")
	return nil
}

func (m *Manager) openBackup() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.backupWriter != nil {
		return nil
	}
	file, err := os.OpenFile(m.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	m.backupFile = file
	m.backupWriter = gzip.NewWriter(file)
	return nil
}

func (m *Manager) setupOrganizationAndBuckets(ctx context.Context) error {
	orgs := m.Client.OrganizationsAPI()

	org, err := orgs.FindOrganizationByName(ctx, m.cfg.Org)
	if err != nil {
		m.Logger.Info().Str("org", m.cfg.Org).Msg("Organization not found, creating")
		org, err = orgs.CreateOrganizationWithName(ctx, m.cfg.Org)
		if err != nil {
			return fmt.Errorf("error creating organization %s: %w", m.cfg.Org, err)
		}
	}

	// 30 day retention
	for _, bucket := range m.BucketNames {
		if _, err := m.Client.BucketsAPI().FindBucketByName(ctx, bucket); err == nil {
			continue
		}
		m.Logger.Info().Str("bucket", bucket).Msg("Bucket not found, creating")
		rule := domain.RetentionRuleTypeExpire
		_, err = m.Client.BucketsAPI().CreateBucketWithName(ctx, org, bucket, domain.RetentionRule{
			Type:         &rule,
			EverySeconds: 60 * 60 * 24 * 30,
		})
		if err != nil {
			return fmt.Errorf("error creating bucket %s: %w", bucket, err)
		}
	}
	return nil
}

// CreateWriters creates write APIs for all configured buckets.
func (m *Manager) CreateWriters() {
	for _, bucket := range m.BucketNames {
		w := m.Client.WriteAPI(m.cfg.Org, bucket)
		m.Writers[bucket] = w

		go func(bucketName string, errorsCh <-chan error) {
			for writeErr := range errorsCh {
				m.Logger.Error().Err(writeErr).Str("bucket", bucketName).
					Msg("Error sending data to InfluxDB")
			}
		}(bucket, w.Errors())
	}
	m.Logger.Debug().Int("buckets", len(m.BucketNames)).Msg("InfluxDB writers initialized")
}

// WritePoint writes a point to InfluxDB or the backup file.
func (m *Manager) WritePoint(bucket string, point *influxdb2_write.Point) error {
	if m.IsValid {
		w, ok := m.Writers[bucket]
		if !ok {
			return fmt.Errorf("influxDB bucket '%s' not registered", bucket)
		}
		w.WritePoint(point)
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.backupWriter == nil {
		return fmt.Errorf("influxDB client not initialized and backup writer not available")
	}
	// line protocol has no bucket, so it rides along as a tag
	point.AddTag("bucket", bucket).SortTags()
	line := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if _, err := m.backupWriter.Write([]byte(line)); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// FramePoint builds the progress point of one animation frame.
func FramePoint(f core.Frame) *influxdb2_write.Point {
	leader := f.State.Leader()
	return influxdb2_write.NewPoint(
		"progress",
		map[string]string{
			"session": f.SessionID,
			"phase":   f.Phase,
		},
		map[string]interface{}{
			"seq":        int64(f.Seq),
			"leader":     leader + 1,
			"distance1":  f.State[0].Distance,
			"distance2":  f.State[1].Distance,
			"elapsed1":   f.State[0].ElapsedLapTime,
			"elapsed2":   f.State[1].ElapsedLapTime,
			"gap":        f.State[0].ElapsedLapTime - f.State[1].ElapsedLapTime,
			"speed1":     f.Samples[0].Speed,
			"speed2":     f.Samples[1].Speed,
			"leaderGear": f.Samples[leader].Gear,
		},
		f.Time,
	)
}

// WriteFrame writes the progress point of a frame to the simulation bucket.
func (m *Manager) WriteFrame(f core.Frame) error {
	return m.WritePoint(BucketSimulation, FramePoint(f))
}

// WriteStatus writes a service status sample.
func (m *Manager) WriteStatus(t time.Time, tags map[string]string, fields map[string]interface{}) error {
	return m.WritePoint(BucketService, influxdb2_write.NewPoint("status", tags, fields, t))
}

// Close flushes the writers and closes the client and the backup file.
func (m *Manager) Close() error {
	for _, w := range m.Writers {
		w.Flush()
	}
	if m.Client != nil {
		m.Client.Close()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.backupWriter == nil {
		return nil
	}
	err := m.backupWriter.Close()
	if cerr := m.backupFile.Close(); err == nil {
		err = cerr
	}
	m.backupWriter = nil
	return err
}

// ProcessMetricData parses client-submitted metric args into a bucket name and point.
//
// Args: [bucket, measurement, ("tag::name::value" | "field::type::name::value")...]
// where type is string, int or float.
func ProcessMetricData(data []string, clean func(string) string) (
	bucket string,
	point *influxdb2_write.Point,
	err error,
) {
	if len(data) < 2 {
		return "", nil, fmt.Errorf("metric needs bucket and measurement, got %d args", len(data))
	}
	for i, v := range data {
		data[i] = clean(v)
	}

	bucket = data[0]
	point = influxdb2_write.NewPointWithMeasurement(data[1])

	for _, arg := range data[2:] {
		parts := strings.Split(arg, "::")
		switch {
		case parts[0] == "tag" && len(parts) >= 3:
			point.AddTag(parts[1], parts[2])
		case parts[0] == "field" && len(parts) >= 4:
			fieldType, fieldName, fieldValue := parts[1], parts[2], parts[3]
			switch fieldType {
			case "string":
				point.AddField(fieldName, fieldValue)
			case "int":
				v, err := strconv.Atoi(fieldValue)
				if err != nil {
					return "", nil, fmt.Errorf("error converting field value '%s' to int: %w", fieldValue, err)
				}
				point.AddField(fieldName, v)
			case "float":
				v, err := strconv.ParseFloat(fieldValue, 64)
				if err != nil {
					return "", nil, fmt.Errorf("error converting field value '%s' to float: %w", fieldValue, err)
				}
				point.AddField(fieldName, v)
			}
		}
	}

	return bucket, point, nil
}
