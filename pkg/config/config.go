package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed config.toml.sample
var configTemplate string

const (
	DefaultUpstreamURL     = "https://november7-730026606190.europe-west1.run.app/messages"
	DefaultPageLimit       = 100
	DefaultRequestTimeout  = 30 * time.Second
	DefaultRefreshInterval = 15 * time.Minute
	DefaultListenAddr      = "127.0.0.1:8080"
	DefaultFallbackName    = "messages.json"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "MSGSEARCH_"
)

type Config struct {
	UpstreamURL       string   `toml:"upstream_url"`
	PageLimit         int      `toml:"page_limit"`
	RequestTimeout    Duration `toml:"request_timeout"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
	RefreshInterval   Duration `toml:"refresh_interval"`
	RefreshOnStart    bool     `toml:"refresh_on_start"`
	FallbackPath      string   `toml:"fallback_path"`
	ListenAddr        string   `toml:"listen_addr"`
	MaxPageSize       int      `toml:"max_page_size"`
}

type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// GetDefaultConfig returns the configuration used when no file exists.
// The fallback file defaults to messages.json next to the executable, which is
// where the Lambda deployment package puts it.
func GetDefaultConfig() *Config {
	return &Config{
		UpstreamURL:     DefaultUpstreamURL,
		PageLimit:       DefaultPageLimit,
		RequestTimeout:  Duration{DefaultRequestTimeout},
		RefreshInterval: Duration{DefaultRefreshInterval},
		RefreshOnStart:  true,
		FallbackPath:    defaultFallbackPath(),
		ListenAddr:      DefaultListenAddr,
	}
}

func defaultFallbackPath() string {
	exe, err := os.Executable()
	if err != nil {
		return DefaultFallbackName
	}
	return filepath.Join(filepath.Dir(exe), DefaultFallbackName)
}

// LoadConfig reads the TOML file at configPath over the defaults and then
// applies environment overrides. A missing file is not an error.
func LoadConfig(configPath string) (*Config, error) {
	config := GetDefaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading config file: %w", err)
		default:
			if err := toml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("unmarshaling config: %w", err)
			}
		}
	}

	if err := config.ApplyEnv(os.LookupEnv); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// ApplyEnv overrides fields from MSGSEARCH_* variables returned by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvPrefix + "UPSTREAM_URL"); ok {
		c.UpstreamURL = v
	}
	if v, ok := lookup(EnvPrefix + "FALLBACK_PATH"); ok {
		c.FallbackPath = v
	}
	if v, ok := lookup(EnvPrefix + "LISTEN_ADDR"); ok {
		c.ListenAddr = v
	}
	if v, ok := lookup(EnvPrefix + "PAGE_LIMIT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing %sPAGE_LIMIT: %w", EnvPrefix, err)
		}
		c.PageLimit = n
	}
	if v, ok := lookup(EnvPrefix + "MAX_PAGE_SIZE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing %sMAX_PAGE_SIZE: %w", EnvPrefix, err)
		}
		c.MaxPageSize = n
	}
	if v, ok := lookup(EnvPrefix + "REQUESTS_PER_SECOND"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parsing %sREQUESTS_PER_SECOND: %w", EnvPrefix, err)
		}
		c.RequestsPerSecond = f
	}
	if v, ok := lookup(EnvPrefix + "REQUEST_TIMEOUT"); ok {
		if err := c.RequestTimeout.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("parsing %sREQUEST_TIMEOUT: %w", EnvPrefix, err)
		}
	}
	if v, ok := lookup(EnvPrefix + "REFRESH_INTERVAL"); ok {
		if err := c.RefreshInterval.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("parsing %sREFRESH_INTERVAL: %w", EnvPrefix, err)
		}
	}
	if v, ok := lookup(EnvPrefix + "REFRESH_ON_START"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parsing %sREFRESH_ON_START: %w", EnvPrefix, err)
		}
		c.RefreshOnStart = b
	}
	return nil
}

// Validate checks values that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	if c.UpstreamURL == "" {
		return errors.New("upstream_url is required")
	}
	if c.PageLimit <= 0 {
		return fmt.Errorf("page_limit must be positive, got %d", c.PageLimit)
	}
	if c.RequestTimeout.Duration <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", c.RequestTimeout.Duration)
	}
	if c.RefreshInterval.Duration < 0 {
		return fmt.Errorf("refresh_interval must not be negative, got %v", c.RefreshInterval.Duration)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must not be negative, got %v", c.RequestsPerSecond)
	}
	if c.MaxPageSize < 0 {
		return fmt.Errorf("max_page_size must not be negative, got %d", c.MaxPageSize)
	}
	return nil
}

func (c *Config) SaveConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(configPath, data, 0644)
}

// SaveTemplateConfig writes the commented sample configuration to configPath.
func (c *Config) SaveTemplateConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	template, err := c.generateConfigTemplate()
	if err != nil {
		return fmt.Errorf("generating config template: %w", err)
	}
	return os.WriteFile(configPath, []byte(template), 0644)
}

func (c *Config) generateConfigTemplate() (string, error) {
	dataDir, err := GetDefaultDataDir()
	if err != nil {
		return "", fmt.Errorf("getting default data directory: %w", err)
	}

	fallback := filepath.Join(dataDir, DefaultFallbackName)
	return strings.Replace(configTemplate, "/home/user/.local/share/msgsearch/messages.json", fallback, 1), nil
}

// GetDefaultDataDir returns the directory for locally written datasets.
func GetDefaultDataDir() (string, error) {
	// Use XDG_DATA_HOME if set, otherwise use ~/.local/share
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dataDir, "msgsearch"), nil
}

// GetConfigDir returns the configuration directory for msgsearch
func GetConfigDir() (string, error) {
	// Use XDG_CONFIG_HOME if set, otherwise use ~/.config
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "msgsearch"), nil
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}
