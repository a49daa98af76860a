// Package config loads the controller's YAML configuration into nested
// structs mirroring the dotted keys the core consumes (refresh.timeout,
// batch.period, reshard.interval, ...), applies defaults, and validates
// the result.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration document.
type Config struct {
	Refresh RefreshConfig `yaml:"refresh"`
	Batch   BatchConfig   `yaml:"batch"`
	Reshard ReshardConfig `yaml:"reshard"`
	Redis   RedisConfig   `yaml:"redis"`

	StateDir   string `yaml:"stateDir"`
	StatusFile string `yaml:"statusFile"`
	LogDir     string `yaml:"logDir"`

	Ingress IngressConfig `yaml:"ingress"`

	path string
}

// RefreshConfig controls the post-mutation topology settle delay.
type RefreshConfig struct {
	TimeoutSeconds int `yaml:"timeout"`
}

// BatchConfig controls how long add/remove stages accumulate work.
type BatchConfig struct {
	PeriodSeconds int `yaml:"period"`
}

// ReshardConfig controls reshard pacing and per-reshard/per-slot timeouts.
type ReshardConfig struct {
	IntervalSeconds           int `yaml:"interval"`
	TimeoutSeconds            int `yaml:"timeout"`
	MigrateSlotTimeoutSeconds int `yaml:"migrateSlotTimeout"`
}

// RedisConfig describes the seed cluster the controller connects to.
type RedisConfig struct {
	Cluster ClusterConfig `yaml:"cluster"`
}

// ClusterConfig holds the seed list, port, and refresh cadence.
type ClusterConfig struct {
	SeedServers     []string `yaml:"seedServers"`
	ServerPort      int      `yaml:"serverPort"`
	RefreshInterval int      `yaml:"refreshInterval"` // minutes
	Password        string   `yaml:"password"`
}

// IngressConfig describes the HTTP listener for task submission.
type IngressConfig struct {
	ListenAddr  string `yaml:"listenAddr"`
	ReplyWaitMS int    `yaml:"replyWaitMs"`
}

// ValidationError collects configuration problems found by Validate.
type ValidationError struct {
	Path   string
	Errors []string
}

func (e *ValidationError) Error() string {
	msg := "config validation failed"
	if e.Path != "" {
		msg += ": " + e.Path
	}
	for _, err := range e.Errors {
		msg += "\n - " + err
	}
	return msg
}

// Load reads and validates the YAML document at path.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", absPath, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	cfg.path = absPath
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Refresh.TimeoutSeconds <= 0 {
		c.Refresh.TimeoutSeconds = 5
	}
	if c.Batch.PeriodSeconds <= 0 {
		c.Batch.PeriodSeconds = 5
	}
	if c.Reshard.IntervalSeconds <= 0 {
		c.Reshard.IntervalSeconds = 60
	}
	if c.Reshard.TimeoutSeconds <= 0 {
		c.Reshard.TimeoutSeconds = 300
	}
	if c.Reshard.MigrateSlotTimeoutSeconds <= 0 {
		c.Reshard.MigrateSlotTimeoutSeconds = 60
	}
	if c.Redis.Cluster.ServerPort <= 0 {
		c.Redis.Cluster.ServerPort = 6379
	}
	if c.Redis.Cluster.RefreshInterval <= 0 {
		c.Redis.Cluster.RefreshInterval = 60
	}
	if c.StateDir == "" {
		c.StateDir = "state"
	}
	if c.StatusFile == "" {
		c.StatusFile = "state/status.json"
	}
	if c.LogDir == "" {
		c.LogDir = "logs"
	}
	if c.Ingress.ListenAddr == "" {
		c.Ingress.ListenAddr = ":8080"
	}
	if c.Ingress.ReplyWaitMS <= 0 {
		c.Ingress.ReplyWaitMS = 2000
	}
}

// Validate ensures the loaded config is usable.
func (c *Config) Validate() error {
	var errs []string

	if len(c.Redis.Cluster.SeedServers) == 0 {
		errs = append(errs, "redis.cluster.seedServers must have at least one entry")
	}
	if c.Redis.Cluster.ServerPort <= 0 {
		errs = append(errs, "redis.cluster.serverPort must be > 0")
	}
	if c.Refresh.TimeoutSeconds <= 0 {
		errs = append(errs, "refresh.timeout must be > 0")
	}
	if c.Batch.PeriodSeconds <= 0 {
		errs = append(errs, "batch.period must be > 0")
	}
	if c.Reshard.IntervalSeconds <= 0 {
		errs = append(errs, "reshard.interval must be > 0")
	}
	if c.Reshard.TimeoutSeconds <= 0 {
		errs = append(errs, "reshard.timeout must be > 0")
	}
	if c.Reshard.MigrateSlotTimeoutSeconds <= 0 {
		errs = append(errs, "reshard.migrateSlotTimeout must be > 0")
	}

	if len(errs) > 0 {
		return &ValidationError{Path: c.path, Errors: errs}
	}
	return nil
}

// RefreshTimeout returns the post-mutation settle delay as a duration.
func (c *Config) RefreshTimeout() time.Duration {
	return time.Duration(c.Refresh.TimeoutSeconds) * time.Second
}

// BatchPeriod returns the batching window as a duration.
func (c *Config) BatchPeriod() time.Duration {
	return time.Duration(c.Batch.PeriodSeconds) * time.Second
}

// ReshardInterval returns the minimum spacing between reshards.
func (c *Config) ReshardInterval() time.Duration {
	return time.Duration(c.Reshard.IntervalSeconds) * time.Second
}

// ReshardTimeout returns the whole-reshard deadline.
func (c *Config) ReshardTimeout() time.Duration {
	return time.Duration(c.Reshard.TimeoutSeconds) * time.Second
}

// MigrateSlotTimeout returns the per-slot MIGRATE deadline.
func (c *Config) MigrateSlotTimeout() time.Duration {
	return time.Duration(c.Reshard.MigrateSlotTimeoutSeconds) * time.Second
}

// ClusterRefreshInterval returns the periodic topology-refresh cadence.
func (c *Config) ClusterRefreshInterval() time.Duration {
	return time.Duration(c.Redis.Cluster.RefreshInterval) * time.Minute
}

// IngressReplyWait returns how long the HTTP ingress waits for a synchronous
// reply before responding 202 Accepted instead.
func (c *Config) IngressReplyWait() time.Duration {
	return time.Duration(c.Ingress.ReplyWaitMS) * time.Millisecond
}

// ConfigDir returns the directory the config file lives in, used to resolve
// relative state/log paths.
func (c *Config) ConfigDir() string {
	return filepath.Dir(c.path)
}

// ResolvedStateDir returns an absolute state directory path.
func (c *Config) ResolvedStateDir() string {
	if filepath.IsAbs(c.StateDir) {
		return c.StateDir
	}
	return filepath.Join(c.ConfigDir(), c.StateDir)
}

// ResolvedStatusFile returns an absolute status file path.
func (c *Config) ResolvedStatusFile() string {
	if filepath.IsAbs(c.StatusFile) {
		return c.StatusFile
	}
	return filepath.Join(c.ConfigDir(), c.StatusFile)
}

// ResolvedLogDir returns an absolute log directory path.
func (c *Config) ResolvedLogDir() string {
	if filepath.IsAbs(c.LogDir) {
		return c.LogDir
	}
	return filepath.Join(c.ConfigDir(), c.LogDir)
}

// EnsureStateDir creates the state and status directories if missing.
func (c *Config) EnsureStateDir() error {
	if err := os.MkdirAll(c.ResolvedStateDir(), 0o755); err != nil {
		return err
	}
	return os.MkdirAll(filepath.Dir(c.ResolvedStatusFile()), 0o755)
}

// Summary returns a one-line overview for startup logging.
func (c *Config) Summary() string {
	return fmt.Sprintf("seeds=%v port=%d refreshTimeout=%ds batchPeriod=%ds reshardInterval=%ds reshardTimeout=%ds migrateSlotTimeout=%ds stateDir=%s",
		c.Redis.Cluster.SeedServers, c.Redis.Cluster.ServerPort,
		c.Refresh.TimeoutSeconds, c.Batch.PeriodSeconds,
		c.Reshard.IntervalSeconds, c.Reshard.TimeoutSeconds, c.Reshard.MigrateSlotTimeoutSeconds,
		c.ResolvedStateDir())
}
