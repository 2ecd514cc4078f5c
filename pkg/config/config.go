// Package config provides hierarchical configuration management.
// Priority: defaults < system < user < project < env < explicit file
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all bpmnctx configuration.
type Config struct {
	Version int `yaml:"version"`

	Log       LogConfig       `yaml:"log"`
	Registry  RegistryConfig  `yaml:"registry"`
	Store     StoreConfig     `yaml:"store"`
	Export    ExportConfig    `yaml:"export"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Watch     WatchConfig     `yaml:"watch"`
	Batch     BatchConfig     `yaml:"batch"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level  string `yaml:"level"` // debug | info | warn | error
	JSON   bool   `yaml:"json"`
	Source bool   `yaml:"source"`
}

// RegistryConfig extends the type registry.
type RegistryConfig struct {
	// Aliases maps a prefixed type to an existing behaviour name,
	// e.g. "camunda:Connector": "ServiceTask".
	Aliases map[string]string `yaml:"aliases"`
}

// StoreConfig selects and configures the snapshot store.
type StoreConfig struct {
	Backend string           `yaml:"backend"` // file | redis | s3 | multi
	Multi   []string         `yaml:"multi"`   // backends written by "multi", first is primary
	File    FileStoreConfig  `yaml:"file"`
	Redis   RedisStoreConfig `yaml:"redis"`
	S3      S3StoreConfig    `yaml:"s3"`
	Retry   RetryConfig      `yaml:"retry"`
}

// RetryConfig controls retries of remote store calls (redis, s3).
type RetryConfig struct {
	Attempts int           `yaml:"attempts"` // 1 disables retries
	Delay    time.Duration `yaml:"delay"`    // first backoff, doubled per attempt
	MaxDelay time.Duration `yaml:"max_delay"`
	// Cooldown is how long the backend is skipped after Threshold
	// consecutive failed calls. Zero Threshold disables the breaker.
	Threshold int           `yaml:"threshold"`
	Cooldown  time.Duration `yaml:"cooldown"`
}

// FileStoreConfig for the local directory backend.
type FileStoreConfig struct {
	Dir string `yaml:"dir"`
}

// RedisStoreConfig for the Redis backend.
type RedisStoreConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

// S3StoreConfig for the S3 backend.
type S3StoreConfig struct {
	Bucket       string `yaml:"bucket"`
	Prefix       string `yaml:"prefix"`
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"` // MinIO / LocalStack
	AccessKey    string `yaml:"access_key"`
	SecretKey    string `yaml:"secret_key"`
	UsePathStyle bool   `yaml:"use_path_style"`
}

// ExportConfig controls tabular exports.
type ExportConfig struct {
	Format      string `yaml:"format"`      // parquet | xlsx | duckdb
	Compression string `yaml:"compression"` // snappy | zstd | gzip | lz4 | none
	Dir         string `yaml:"dir"`
}

// TelemetryConfig for optional tracing.
type TelemetryConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	ServiceName string  `yaml:"service_name"`
	Insecure    bool    `yaml:"insecure"`
	SampleRate  float64 `yaml:"sample_rate"`
}

// WatchConfig controls the file watcher.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// BatchConfig controls batch mapping.
type BatchConfig struct {
	Workers int `yaml:"workers"` // 0 = number of CPUs
}

// Default returns the default configuration.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	baseDir := filepath.Join(homeDir, ".bpmnctx")

	return &Config{
		Version: 1,
		Log: LogConfig{
			Level: "info",
		},
		Store: StoreConfig{
			Backend: "file",
			File: FileStoreConfig{
				Dir: filepath.Join(baseDir, "snapshots"),
			},
			Redis: RedisStoreConfig{
				Addr:   "localhost:6379",
				Prefix: "bpmnctx:",
				TTL:    7 * 24 * time.Hour,
			},
			S3: S3StoreConfig{
				Prefix: "bpmnctx/",
				Region: "us-east-1",
			},
			Retry: RetryConfig{
				Attempts:  3,
				Delay:     100 * time.Millisecond,
				MaxDelay:  2 * time.Second,
				Threshold: 5,
				Cooldown:  30 * time.Second,
			},
		},
		Export: ExportConfig{
			Format:      "parquet",
			Compression: "snappy",
			Dir:         ".",
		},
		Telemetry: TelemetryConfig{
			Endpoint:    "localhost:4317",
			ServiceName: "bpmnctx",
			Insecure:    true,
			SampleRate:  1.0,
		},
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
		},
	}
}

// Manager handles configuration loading and merging.
type Manager struct {
	mu     sync.RWMutex
	config *Config
	paths  []string // Paths that were loaded
}

// NewManager creates a new configuration manager.
func NewManager() *Manager {
	return &Manager{
		config: Default(),
	}
}

// Load loads configuration from all sources in priority order. Explicit files
// are applied last and, unlike the well-known locations, must exist.
func (m *Manager) Load(explicit ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.config = Default()
	m.paths = nil

	for _, path := range m.getConfigPaths() {
		if err := m.loadFile(path); err != nil {
			if !os.IsNotExist(err) {
				return err
			}
		} else {
			m.paths = append(m.paths, path)
		}
	}

	m.loadEnv()

	for _, path := range explicit {
		if path == "" {
			continue
		}
		if err := m.loadFile(path); err != nil {
			return err
		}
		m.paths = append(m.paths, path)
	}

	return nil
}

// getConfigPaths returns config file paths in priority order.
func (m *Manager) getConfigPaths() []string {
	var paths []string

	if runtime.GOOS != "windows" {
		paths = append(paths, "/etc/bpmnctx/config.yaml")
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".bpmnctx", "config.yaml"))
	}
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".bpmnctx.yaml"))
	}

	return paths
}

// loadFile loads a single config file and merges it.
func (m *Manager) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var partial Config
	if err := yaml.Unmarshal(data, &partial); err != nil {
		return err
	}

	m.merge(&partial)
	return nil
}

// merge merges non-zero values from src into config.
func (m *Manager) merge(src *Config) {
	dst := m.config

	// Log
	if src.Log.Level != "" {
		dst.Log.Level = src.Log.Level
	}
	if src.Log.JSON {
		dst.Log.JSON = true
	}
	if src.Log.Source {
		dst.Log.Source = true
	}

	// Registry
	for typ, name := range src.Registry.Aliases {
		if dst.Registry.Aliases == nil {
			dst.Registry.Aliases = make(map[string]string)
		}
		dst.Registry.Aliases[typ] = name
	}

	// Store
	if src.Store.Backend != "" {
		dst.Store.Backend = src.Store.Backend
	}
	if len(src.Store.Multi) > 0 {
		dst.Store.Multi = src.Store.Multi
	}
	if src.Store.File.Dir != "" {
		dst.Store.File.Dir = src.Store.File.Dir
	}
	if src.Store.Redis.Addr != "" {
		dst.Store.Redis.Addr = src.Store.Redis.Addr
	}
	if src.Store.Redis.Password != "" {
		dst.Store.Redis.Password = src.Store.Redis.Password
	}
	if src.Store.Redis.DB != 0 {
		dst.Store.Redis.DB = src.Store.Redis.DB
	}
	if src.Store.Redis.Prefix != "" {
		dst.Store.Redis.Prefix = src.Store.Redis.Prefix
	}
	if src.Store.Redis.TTL != 0 {
		dst.Store.Redis.TTL = src.Store.Redis.TTL
	}
	if src.Store.S3.Bucket != "" {
		dst.Store.S3.Bucket = src.Store.S3.Bucket
	}
	if src.Store.S3.Prefix != "" {
		dst.Store.S3.Prefix = src.Store.S3.Prefix
	}
	if src.Store.S3.Region != "" {
		dst.Store.S3.Region = src.Store.S3.Region
	}
	if src.Store.S3.Endpoint != "" {
		dst.Store.S3.Endpoint = src.Store.S3.Endpoint
	}
	if src.Store.S3.AccessKey != "" {
		dst.Store.S3.AccessKey = src.Store.S3.AccessKey
	}
	if src.Store.S3.SecretKey != "" {
		dst.Store.S3.SecretKey = src.Store.S3.SecretKey
	}
	if src.Store.S3.UsePathStyle {
		dst.Store.S3.UsePathStyle = true
	}
	if src.Store.Retry.Attempts != 0 {
		dst.Store.Retry.Attempts = src.Store.Retry.Attempts
	}
	if src.Store.Retry.Delay != 0 {
		dst.Store.Retry.Delay = src.Store.Retry.Delay
	}
	if src.Store.Retry.MaxDelay != 0 {
		dst.Store.Retry.MaxDelay = src.Store.Retry.MaxDelay
	}
	if src.Store.Retry.Threshold != 0 {
		dst.Store.Retry.Threshold = src.Store.Retry.Threshold
	}
	if src.Store.Retry.Cooldown != 0 {
		dst.Store.Retry.Cooldown = src.Store.Retry.Cooldown
	}

	// Export
	if src.Export.Format != "" {
		dst.Export.Format = src.Export.Format
	}
	if src.Export.Compression != "" {
		dst.Export.Compression = src.Export.Compression
	}
	if src.Export.Dir != "" {
		dst.Export.Dir = src.Export.Dir
	}

	// Telemetry
	if src.Telemetry.Enabled {
		dst.Telemetry.Enabled = true
	}
	if src.Telemetry.Endpoint != "" {
		dst.Telemetry.Endpoint = src.Telemetry.Endpoint
	}
	if src.Telemetry.ServiceName != "" {
		dst.Telemetry.ServiceName = src.Telemetry.ServiceName
	}
	if src.Telemetry.SampleRate != 0 {
		dst.Telemetry.SampleRate = src.Telemetry.SampleRate
	}

	// Watch, Batch
	if src.Watch.Debounce != 0 {
		dst.Watch.Debounce = src.Watch.Debounce
	}
	if src.Batch.Workers != 0 {
		dst.Batch.Workers = src.Batch.Workers
	}
}

// loadEnv loads configuration from environment variables.
func (m *Manager) loadEnv() {
	dst := m.config

	if v := os.Getenv("BPMNCTX_LOG_LEVEL"); v != "" {
		dst.Log.Level = v
	}
	if v := os.Getenv("BPMNCTX_STORE_BACKEND"); v != "" {
		dst.Store.Backend = v
	}
	if v := os.Getenv("BPMNCTX_STORE_DIR"); v != "" {
		dst.Store.File.Dir = v
	}
	if v := os.Getenv("BPMNCTX_REDIS_ADDR"); v != "" {
		dst.Store.Redis.Addr = v
	}
	if v := os.Getenv("BPMNCTX_S3_BUCKET"); v != "" {
		dst.Store.S3.Bucket = v
	}
	if v := os.Getenv("BPMNCTX_S3_ENDPOINT"); v != "" {
		dst.Store.S3.Endpoint = v
	}
	if v := os.Getenv("BPMNCTX_EXPORT_FORMAT"); v != "" {
		dst.Export.Format = v
	}
	if v := os.Getenv("BPMNCTX_OTLP_ENDPOINT"); v != "" {
		dst.Telemetry.Endpoint = v
		dst.Telemetry.Enabled = true
	}
	if v := os.Getenv("BPMNCTX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			dst.Batch.Workers = n
		}
	}
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// GetPaths returns the paths that were loaded.
func (m *Manager) GetPaths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paths
}

// Save writes the current config to path.
func (m *Manager) Save(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(m.config)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// UserPath returns the user config file location.
func UserPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".bpmnctx.yaml"
	}
	return filepath.Join(home, ".bpmnctx", "config.yaml")
}
