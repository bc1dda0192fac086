package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds settings loaded from casier.yml.
type Config struct {
	// ServiceURL is the base URL of the document service (generation,
	// integrity check and downloads).
	ServiceURL   string `yaml:"serviceUrl,omitempty"`
	GeneratePath string `yaml:"generatePath,omitempty"`

	// Catalog is the YAML casier catalog; Graph the YAML dependency graph.
	Catalog string `yaml:"catalog,omitempty"`
	Graph   string `yaml:"graph,omitempty"`
	// KuzuPath, when set, loads the dependency graph from a KuzuDB directory
	// instead of Graph.
	KuzuPath string `yaml:"kuzuPath,omitempty"`

	// DatabaseDSN, when set, backs casiers, the graph, clients and artifacts
	// with Postgres.
	DatabaseDSN string `yaml:"databaseDsn,omitempty"`

	Redis RedisConfig `yaml:"redis,omitempty"`
	Log   LogConfig   `yaml:"log,omitempty"`
	Retry RetryConfig `yaml:"retry,omitempty"`

	GenerationTimeout time.Duration `yaml:"generationTimeout,omitempty"`
	HTTPTimeout       time.Duration `yaml:"httpTimeout,omitempty"`
	SessionFile       string        `yaml:"sessionFile,omitempty"`

	// Clients populates the in-memory directory when DatabaseDSN is empty.
	Clients []ClientConfig `yaml:"clients,omitempty"`
}

// ClientConfig declares a client and its evaluations.
type ClientConfig struct {
	ID          int64   `yaml:"id"`
	Name        string  `yaml:"name"`
	Evaluations []int64 `yaml:"evaluations,omitempty"`
}

// RedisConfig enables the shared dispatch lock when Addr is set.
type RedisConfig struct {
	Addr     string        `yaml:"addr,omitempty"`
	Password string        `yaml:"password,omitempty"`
	DB       int           `yaml:"db,omitempty"`
	LockTTL  time.Duration `yaml:"lockTtl,omitempty"`
}

// LogConfig selects the log level and encoding.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// RetryConfig tunes delivery retries. MaxRetries counts total attempts.
type RetryConfig struct {
	MaxRetries int           `yaml:"maxRetries,omitempty"`
	BaseDelay  time.Duration `yaml:"baseDelay,omitempty"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		ServiceURL:        "http://localhost:5000",
		GeneratePath:      "/api/documents/generate",
		Catalog:           "casiers.yml",
		Graph:             "graph.yml",
		Log:               LogConfig{Level: "info", Format: "console"},
		Retry:             RetryConfig{MaxRetries: 3, BaseDelay: 500 * time.Millisecond},
		GenerationTimeout: 5 * time.Minute,
		HTTPTimeout:       60 * time.Second,
		SessionFile:       ".casier-session.yml",
	}
}

// Load reads casier.yml or casier.yaml from dir, fills unset fields with
// Defaults and applies CASIER_* environment overrides. A missing file is not
// an error. Relative file paths are resolved against dir.
func Load(dir string) (*Config, error) {
	cfg := Defaults()
	for _, name := range []string{"casier.yml", "casier.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var file Config
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
		cfg.merge(file)
		break
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.resolve(dir)
	return &cfg, nil
}

// merge copies every non-zero field of o into c.
func (c *Config) merge(o Config) {
	setString(&c.ServiceURL, o.ServiceURL)
	setString(&c.GeneratePath, o.GeneratePath)
	setString(&c.Catalog, o.Catalog)
	setString(&c.Graph, o.Graph)
	setString(&c.KuzuPath, o.KuzuPath)
	setString(&c.DatabaseDSN, o.DatabaseDSN)
	setString(&c.Redis.Addr, o.Redis.Addr)
	setString(&c.Redis.Password, o.Redis.Password)
	setString(&c.Log.Level, o.Log.Level)
	setString(&c.Log.Format, o.Log.Format)
	setString(&c.SessionFile, o.SessionFile)
	if o.Redis.DB != 0 {
		c.Redis.DB = o.Redis.DB
	}
	if o.Redis.LockTTL != 0 {
		c.Redis.LockTTL = o.Redis.LockTTL
	}
	if o.Retry.MaxRetries != 0 {
		c.Retry.MaxRetries = o.Retry.MaxRetries
	}
	if o.Retry.BaseDelay != 0 {
		c.Retry.BaseDelay = o.Retry.BaseDelay
	}
	if o.GenerationTimeout != 0 {
		c.GenerationTimeout = o.GenerationTimeout
	}
	if o.HTTPTimeout != 0 {
		c.HTTPTimeout = o.HTTPTimeout
	}
	if len(o.Clients) > 0 {
		c.Clients = o.Clients
	}
}

func (c *Config) applyEnv() error {
	for name, dst := range map[string]*string{
		"CASIER_SERVICE_URL":    &c.ServiceURL,
		"CASIER_CATALOG":        &c.Catalog,
		"CASIER_GRAPH":          &c.Graph,
		"CASIER_KUZU_PATH":      &c.KuzuPath,
		"CASIER_DATABASE_DSN":   &c.DatabaseDSN,
		"CASIER_REDIS_ADDR":     &c.Redis.Addr,
		"CASIER_REDIS_PASSWORD": &c.Redis.Password,
		"CASIER_LOG_LEVEL":      &c.Log.Level,
		"CASIER_LOG_FORMAT":     &c.Log.Format,
	} {
		if v, ok := os.LookupEnv(name); ok {
			*dst = v
		}
	}
	if v, ok := os.LookupEnv("CASIER_MAX_RETRIES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: CASIER_MAX_RETRIES: %w", err)
		}
		c.Retry.MaxRetries = n
	}
	if v, ok := os.LookupEnv("CASIER_GENERATION_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: CASIER_GENERATION_TIMEOUT: %w", err)
		}
		c.GenerationTimeout = d
	}
	return nil
}

func (c *Config) resolve(dir string) {
	for _, p := range []*string{&c.Catalog, &c.Graph, &c.KuzuPath, &c.SessionFile} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
