package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the name of the JSON config file looked up in the config dir.
const FileName = "pitwall.cfg.json"

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Address      string        `json:"address" mapstructure:"address"`
	ReadTimeout  time.Duration `json:"readTimeout" mapstructure:"readTimeout"`
	WriteTimeout time.Duration `json:"writeTimeout" mapstructure:"writeTimeout"`
	// ClientBuffer is the number of frames queued per websocket client
	ClientBuffer int `json:"clientBuffer" mapstructure:"clientBuffer"`
}

// SimConfig holds simulation tuning values
type SimConfig struct {
	SpeedMultiplier  float64       `json:"speedMultiplier" mapstructure:"speedMultiplier"`
	ReferenceLapTime float64       `json:"referenceLapTime" mapstructure:"referenceLapTime"`
	FrameInterval    time.Duration `json:"frameInterval" mapstructure:"frameInterval"`
	RaceLaps         int           `json:"raceLaps" mapstructure:"raceLaps"`
	CatalogFile      string        `json:"catalogFile" mapstructure:"catalogFile"`
}

// MockDataConfig holds settings for the mock data source
type MockDataConfig struct {
	Latency     time.Duration `json:"latency" mapstructure:"latency"`
	FailureRate float64       `json:"failureRate" mapstructure:"failureRate"`
	Seed        int64         `json:"seed" mapstructure:"seed"`
}

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds SQLite storage backend settings
type SQLiteConfig struct {
	DumpPath     string        `json:"dumpPath" mapstructure:"dumpPath"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// StorageConfig selects and configures the recording backend
type StorageConfig struct {
	Type   string       `json:"type" mapstructure:"type"`
	Memory MemoryConfig `json:"memory" mapstructure:"memory"`
	SQLite SQLiteConfig `json:"sqlite" mapstructure:"sqlite"`
}

// DBConfig holds Postgres connection settings
type DBConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// InfluxConfig holds InfluxDB connection settings
type InfluxConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Token    string `json:"token" mapstructure:"token"`
	Org      string `json:"org" mapstructure:"org"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// GraylogConfig holds GELF sink settings
type GraylogConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address"`
}

// APIConfig holds replay viewer settings
type APIConfig struct {
	ServerURL string `json:"serverUrl" mapstructure:"serverUrl"`
	APIKey    string `json:"apiKey" mapstructure:"apiKey"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// SetDefaults registers every default value. Load calls it; it is exported
// so the service can run without a config file.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./pitwall-logs")
	viper.SetDefault("defaultTag", "Practice")

	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("server.readTimeout", "10s")
	viper.SetDefault("server.writeTimeout", "10s")
	viper.SetDefault("server.clientBuffer", 64)

	viper.SetDefault("sim.speedMultiplier", 10.0)
	viper.SetDefault("sim.referenceLapTime", 88.0)
	viper.SetDefault("sim.frameInterval", "16ms")
	viper.SetDefault("sim.raceLaps", 50)
	viper.SetDefault("sim.catalogFile", "")

	viper.SetDefault("mockdata.latency", "500ms")
	viper.SetDefault("mockdata.failureRate", 0.0)
	viper.SetDefault("mockdata.seed", 0)

	viper.SetDefault("api.serverUrl", "http://localhost:5000")
	viper.SetDefault("api.apiKey", "")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "pitwall")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "pitwall-metrics")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./recordings")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.dumpPath", "./recordings")
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")

	viper.SetDefault("monitor.interval", "30s")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "pitwall")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration returns a duration config value.
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// GetServerConfig returns the HTTP API configuration.
func GetServerConfig() ServerConfig {
	return ServerConfig{
		Address:      viper.GetString("server.address"),
		ReadTimeout:  viper.GetDuration("server.readTimeout"),
		WriteTimeout: viper.GetDuration("server.writeTimeout"),
		ClientBuffer: viper.GetInt("server.clientBuffer"),
	}
}

// GetSimConfig returns the simulation configuration.
func GetSimConfig() SimConfig {
	return SimConfig{
		SpeedMultiplier:  viper.GetFloat64("sim.speedMultiplier"),
		ReferenceLapTime: viper.GetFloat64("sim.referenceLapTime"),
		FrameInterval:    viper.GetDuration("sim.frameInterval"),
		RaceLaps:         viper.GetInt("sim.raceLaps"),
		CatalogFile:      viper.GetString("sim.catalogFile"),
	}
}

// GetMockDataConfig returns the mock data source configuration.
func GetMockDataConfig() MockDataConfig {
	return MockDataConfig{
		Latency:     viper.GetDuration("mockdata.latency"),
		FailureRate: viper.GetFloat64("mockdata.failureRate"),
		Seed:        viper.GetInt64("mockdata.seed"),
	}
}

// GetStorageConfig returns the storage backend configuration.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			DumpPath:     viper.GetString("storage.sqlite.dumpPath"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
	}
}

// GetDBConfig returns the Postgres configuration.
func GetDBConfig() DBConfig {
	return DBConfig{
		Host:     viper.GetString("db.host"),
		Port:     viper.GetString("db.port"),
		Username: viper.GetString("db.username"),
		Password: viper.GetString("db.password"),
		Database: viper.GetString("db.database"),
	}
}

// GetInfluxConfig returns the InfluxDB configuration.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
	}
}

// GetOTelConfig returns the OpenTelemetry configuration.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetGraylogConfig returns the GELF sink configuration.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

// GetAPIConfig returns the replay viewer configuration.
func GetAPIConfig() APIConfig {
	return APIConfig{
		ServerURL: viper.GetString("api.serverUrl"),
		APIKey:    viper.GetString("api.apiKey"),
	}
}
