package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	repcheck "github.com/lucasjlepore/rep-analyzer"
)

const (
	EnvVar        = "REP_ANALYZER_ENV"
	ConfigPathVar = "REP_ANALYZER_CONFIG"

	DefaultEnv  = "development"
	DefaultPath = "./config.toml"
)

type Config struct {
	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`
	// analysis
	FrameStride int     `toml:"frame_stride"`
	FPS         float64 `toml:"fps"`
	Format      string  `toml:"format"`
	// batch
	Workers     int `toml:"workers"`
	CacheSizeMB int `toml:"cache_size_mb"`

	Thresholds repcheck.Thresholds `toml:"thresholds"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	switch strings.ToLower(env) {
	case "dev", "development":
		return t.Development, nil
	case "prod", "production":
		return t.Production, nil
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
}

// Default is the base every config section is decoded over.
func Default() *Config {
	return &Config{
		LogLevel:    "info",
		FrameStride: 1,
		Format:      "parquet",
		Workers:     4,
		CacheSizeMB: 16,
		Thresholds:  repcheck.DefaultThresholds(),
	}
}

// Load reads the TOML file at path and returns the section for env. Each
// section starts from Default, so keys it omits keep their defaults.
func Load(env, path string) (*Config, error) {
	var sections map[string]toml.Primitive
	md, err := toml.DecodeFile(path, &sections)
	if err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}

	t := Toml{}
	for name, prim := range sections {
		cfg := Default()
		if err := md.PrimitiveDecode(prim, cfg); err != nil {
			return nil, fmt.Errorf("decode %s section: %w", name, err)
		}
		switch strings.ToLower(name) {
		case "development":
			t.Development = cfg
		case "production":
			t.Production = cfg
		}
	}

	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s config: %w", env, err)
	}
	return cfg, nil
}

// ResolveEnv prefers flagValue, then REP_ANALYZER_ENV, then DefaultEnv.
func ResolveEnv(flagValue string) string {
	return firstNonEmpty(flagValue, os.Getenv(EnvVar), DefaultEnv)
}

// ResolvePath prefers flagValue, then REP_ANALYZER_CONFIG, then DefaultPath.
func ResolvePath(flagValue string) string {
	return firstNonEmpty(flagValue, os.Getenv(ConfigPathVar), DefaultPath)
}

func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config section is missing")
	}
	if c.FrameStride < 1 {
		return fmt.Errorf("frame_stride must be >= 1, got %d", c.FrameStride)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", c.Workers)
	}
	if c.CacheSizeMB < 0 {
		return fmt.Errorf("cache_size_mb must be >= 0, got %d", c.CacheSizeMB)
	}
	if c.FPS < 0 {
		return fmt.Errorf("fps must be >= 0, got %v", c.FPS)
	}
	switch strings.ToLower(c.Format) {
	case "parquet", "csv":
	default:
		return fmt.Errorf("unsupported format %q (expected parquet|csv)", c.Format)
	}
	return c.Thresholds.Validate()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
