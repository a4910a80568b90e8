package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Storage backends.
const (
	BackendMemory  = "memory"
	BackendLevelDB = "leveldb"
	BackendBolt    = "bolt"
)

type Config struct {
	Service       string   `toml:"Service"`
	Environment   string   `toml:"Environment"`
	LogLevel      string   `toml:"LogLevel"`
	DataDir       string   `toml:"DataDir"`
	GenesisFile   string   `toml:"GenesisFile"`
	ListenAddress string   `toml:"ListenAddress"`
	MaxCallDepth  int      `toml:"MaxCallDepth"`
	Paused        []string `toml:"Paused"`

	Storage   StorageConfig   `toml:"storage"`
	Audit     AuditConfig     `toml:"audit"`
	API       APIConfig       `toml:"api"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

type StorageConfig struct {
	Backend string `toml:"Backend"`
	Path    string `toml:"Path"`
	// Sync flushes every write to disk before it is acknowledged.
	Sync bool `toml:"Sync"`
}

// AuditConfig controls the SQLite request journal. An empty Path disables it.
type AuditConfig struct {
	Path string `toml:"Path"`
}

// APIConfig guards the request endpoint. Bearer tokens are checked only when
// the environment variable named by AuthSecretEnv holds an HMAC secret.
// X-Forwarded-For is read only from peers listed in TrustedProxies (addresses
// or CIDR ranges). AllowAdminRequests admits fund and advance requests over
// HTTP.
type APIConfig struct {
	AuthSecretEnv      string   `toml:"AuthSecretEnv"`
	Issuer             string   `toml:"Issuer"`
	RequestsPerMinute  float64  `toml:"RequestsPerMinute"`
	Burst              int      `toml:"Burst"`
	TrustedProxies     []string `toml:"TrustedProxies"`
	AllowAdminRequests bool     `toml:"AllowAdminRequests"`
}

// TelemetryConfig drives the OTLP/HTTP trace exporter. Exporter headers come
// from OTEL_EXPORTER_OTLP_HEADERS.
type TelemetryConfig struct {
	Traces   bool   `toml:"Traces"`
	Endpoint string `toml:"Endpoint"`
	Insecure bool   `toml:"Insecure"`
}

// AuthSecret reads the configured secret from the environment.
func (a APIConfig) AuthSecret() string {
	name := strings.TrimSpace(a.AuthSecretEnv)
	if name == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(name))
}

// Load loads the configuration from the given path. A default file is
// written when none exists.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	} else if err != nil {
		return nil, err
	}

	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s: unknown key %q", path, undecoded[0].String())
	}
	cfg.applyDefaults()
	cfg.resolvePaths(filepath.Dir(path))
	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the configuration written for a fresh install.
func Default() *Config {
	return &Config{
		Service:       "bondswapd",
		Environment:   "dev",
		LogLevel:      "info",
		DataDir:       "./bondswap-data",
		GenesisFile:   "genesis.json",
		ListenAddress: "127.0.0.1:8080",
		MaxCallDepth:  16,
		Paused:        []string{},
		Storage: StorageConfig{
			Backend: BackendLevelDB,
			Path:    "state",
		},
		Audit: AuditConfig{Path: "audit.db"},
		API: APIConfig{
			AuthSecretEnv:     "BONDSWAP_API_SECRET",
			RequestsPerMinute: 600,
			Burst:             20,
			TrustedProxies:    []string{},
		},
	}
}

func (c *Config) applyDefaults() {
	def := Default()
	if strings.TrimSpace(c.Service) == "" {
		c.Service = def.Service
	}
	if strings.TrimSpace(c.Environment) == "" {
		c.Environment = def.Environment
	}
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = def.LogLevel
	}
	if c.MaxCallDepth == 0 {
		c.MaxCallDepth = def.MaxCallDepth
	}
	if c.Paused == nil {
		c.Paused = []string{}
	}
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = def.Storage.Backend
	}
	if c.API.RequestsPerMinute == 0 {
		c.API.RequestsPerMinute = def.API.RequestsPerMinute
	}
	if c.API.Burst == 0 {
		c.API.Burst = def.API.Burst
	}
}

// resolvePaths anchors relative data paths. DataDir is relative to the config
// file, the storage and audit paths to DataDir.
func (c *Config) resolvePaths(base string) {
	if c.DataDir != "" && !filepath.IsAbs(c.DataDir) {
		c.DataDir = filepath.Join(base, c.DataDir)
	}
	if c.GenesisFile != "" && !filepath.IsAbs(c.GenesisFile) {
		c.GenesisFile = filepath.Join(base, c.GenesisFile)
	}
	if c.Storage.Path != "" && !filepath.IsAbs(c.Storage.Path) {
		c.Storage.Path = filepath.Join(c.DataDir, c.Storage.Path)
	}
	if c.Audit.Path != "" && !filepath.IsAbs(c.Audit.Path) {
		c.Audit.Path = filepath.Join(c.DataDir, c.Audit.Path)
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	cfg.resolvePaths(filepath.Dir(path))
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
