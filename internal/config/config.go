package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
	APIBind string `toml:"api_bind"`
}

// AMQP contains configuration for the event exchange.
type AMQP struct {
	URL      string `toml:"url"`
	Exchange string `toml:"exchange"`
	Prefetch int    `toml:"prefetch"`
}

// Neo4j contains configuration for the lineage graph store.
type Neo4j struct {
	URI      string `toml:"uri"`
	Username string `toml:"username"`
	Password string `toml:"password"`
}

// MinIO contains configuration for the object store.
type MinIO struct {
	Endpoint  string `toml:"endpoint"`
	PublicURL string `toml:"public_url"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Bucket    string `toml:"bucket"`
	UseSSL    bool   `toml:"use_ssl"`
}

// SMTP contains configuration for notification mail dispatch.
type SMTP struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	From     string `toml:"from"`
	FromName string `toml:"from_name"`
}

// Fetch contains limits for image download and normalization.
type Fetch struct {
	DownloadTimeout int   `toml:"download_timeout"`
	MaxImageBytes   int64 `toml:"max_image_bytes"`
	MaxDimension    int   `toml:"max_dimension"`
}

// Validation contains limits for intake URL probing.
type Validation struct {
	ProbeTimeout int    `toml:"probe_timeout"`
	MaxRedirects int    `toml:"max_redirects"`
	UserAgent    string `toml:"user_agent"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for darkroom services.
//
// Configuration sections by subsystem:
//   - Paths: image staging directory, log directory, API bind address
//   - AMQP: event exchange connection and topology
//   - Neo4j: lineage graph store connection
//   - MinIO: object store endpoints and bucket
//   - SMTP: notification mail transport
//   - Fetch: download limits and resize bound
//   - Validation: intake URL probe limits
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	AMQP       AMQP       `toml:"amqp"`
	Neo4j      Neo4j      `toml:"neo4j"`
	MinIO      MinIO      `toml:"minio"`
	SMTP       SMTP       `toml:"smtp"`
	Fetch      Fetch      `toml:"fetch"`
	Validation Validation `toml:"validation"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/darkroom/config.toml")
}

// SampleConfig returns the embedded sample configuration file contents.
func SampleConfig() string {
	return sampleConfig
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("darkroom.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for service operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}

	c.AMQP.URL = strings.TrimSpace(c.AMQP.URL)
	c.AMQP.Exchange = strings.TrimSpace(c.AMQP.Exchange)
	if c.AMQP.Prefetch <= 0 {
		c.AMQP.Prefetch = defaultAMQPPrefetch
	}

	c.Neo4j.URI = strings.TrimSpace(c.Neo4j.URI)
	c.MinIO.Endpoint = strings.TrimSpace(c.MinIO.Endpoint)
	c.MinIO.PublicURL = strings.TrimSpace(c.MinIO.PublicURL)
	c.MinIO.Bucket = strings.TrimSpace(c.MinIO.Bucket)
	c.SMTP.Host = strings.TrimSpace(c.SMTP.Host)

	if strings.TrimSpace(c.Validation.UserAgent) == "" {
		c.Validation.UserAgent = defaultUserAgent
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	return nil
}

// ExpandPath resolves ~ prefixes and returns an absolute path.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
