// Package config loads the service configuration.
//
// Values are layered: built-in defaults, then an optional TOML or YAML file,
// then a .env file, then PANEL_* environment variables. Later layers win.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// EnvConfigFile names the config file to load.
const EnvConfigFile = "PANEL_CONFIG_FILE"

// DefaultConfigFile is read when present and EnvConfigFile is unset.
const DefaultConfigFile = "config.toml"

// Config is the root configuration.
type Config struct {
	App       AppConfig       `toml:"app" yaml:"app"`
	Server    ServerConfig    `toml:"server" yaml:"server"`
	Database  DatabaseConfig  `toml:"database" yaml:"database"`
	Logging   LoggingConfig   `toml:"logging" yaml:"logging"`
	CORS      CORSConfig      `toml:"cors" yaml:"cors"`
	Discovery DiscoveryConfig `toml:"discovery" yaml:"discovery"`
	RateLimit RateLimitConfig `toml:"ratelimit" yaml:"ratelimit"`
}

type AppConfig struct {
	Name        string `toml:"name" yaml:"name" env:"PANEL_APP_NAME"`
	Description string `toml:"description" yaml:"description" env:"PANEL_APP_DESCRIPTION"`
	Version     string `toml:"version" yaml:"version" env:"PANEL_APP_VERSION"`
	Environment string `toml:"environment" yaml:"environment" env:"PANEL_APP_ENV"`
	Debug       bool   `toml:"debug" yaml:"debug" env:"PANEL_APP_DEBUG"`
}

// ServerConfig timeouts are in seconds.
type ServerConfig struct {
	Host            string `toml:"host" yaml:"host" env:"PANEL_SERVER_HOST"`
	Port            int    `toml:"port" yaml:"port" env:"PANEL_SERVER_PORT"`
	APIPrefix       string `toml:"api_prefix" yaml:"api_prefix" env:"PANEL_SERVER_API_PREFIX"`
	ReadTimeout     int    `toml:"read_timeout" yaml:"read_timeout" env:"PANEL_SERVER_READ_TIMEOUT"`
	WriteTimeout    int    `toml:"write_timeout" yaml:"write_timeout" env:"PANEL_SERVER_WRITE_TIMEOUT"`
	IdleTimeout     int    `toml:"idle_timeout" yaml:"idle_timeout" env:"PANEL_SERVER_IDLE_TIMEOUT"`
	ShutdownTimeout int    `toml:"shutdown_timeout" yaml:"shutdown_timeout" env:"PANEL_SERVER_SHUTDOWN_TIMEOUT"`
	// TrustProxyHeaders takes the client address from X-Forwarded-For and
	// X-Real-IP. Enable it only behind a proxy that overwrites them.
	TrustProxyHeaders bool `toml:"trust_proxy_headers" yaml:"trust_proxy_headers" env:"PANEL_SERVER_TRUST_PROXY_HEADERS"`
}

// Addr returns host:port for the listener.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

func (s ServerConfig) ReadTimeoutDuration() time.Duration     { return seconds(s.ReadTimeout) }
func (s ServerConfig) WriteTimeoutDuration() time.Duration    { return seconds(s.WriteTimeout) }
func (s ServerConfig) IdleTimeoutDuration() time.Duration     { return seconds(s.IdleTimeout) }
func (s ServerConfig) ShutdownTimeoutDuration() time.Duration { return seconds(s.ShutdownTimeout) }

// DatabaseConfig describes the PostgreSQL connection. DSN, when set, takes
// precedence over the individual fields.
type DatabaseConfig struct {
	DSN             string `toml:"dsn" yaml:"dsn" env:"PANEL_DB_DSN"`
	Host            string `toml:"host" yaml:"host" env:"PANEL_DB_HOST"`
	Port            int    `toml:"port" yaml:"port" env:"PANEL_DB_PORT"`
	User            string `toml:"user" yaml:"user" env:"PANEL_DB_USER"`
	Password        string `toml:"password" yaml:"password" env:"PANEL_DB_PASSWORD"`
	Name            string `toml:"name" yaml:"name" env:"PANEL_DB_NAME"`
	SSLMode         string `toml:"sslmode" yaml:"sslmode" env:"PANEL_DB_SSLMODE"`
	MaxOpenConns    int    `toml:"max_open_conns" yaml:"max_open_conns" env:"PANEL_DB_MAX_OPEN_CONNS"`
	MaxIdleConns    int    `toml:"max_idle_conns" yaml:"max_idle_conns" env:"PANEL_DB_MAX_IDLE_CONNS"`
	ConnMaxLifetime int    `toml:"conn_max_lifetime" yaml:"conn_max_lifetime" env:"PANEL_DB_CONN_MAX_LIFETIME"`
	AutoMigrate     bool   `toml:"auto_migrate" yaml:"auto_migrate" env:"PANEL_DB_AUTO_MIGRATE"`
}

// DataSourceName returns the connection string for lib/pq.
func (d DatabaseConfig) DataSourceName() string {
	if d.DSN != "" {
		return d.DSN
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:   "/" + d.Name,
	}
	if d.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": []string{d.SSLMode}}.Encode()
	}
	return u.String()
}

func (d DatabaseConfig) ConnMaxLifetimeDuration() time.Duration { return seconds(d.ConnMaxLifetime) }

type LoggingConfig struct {
	Level      string `toml:"level" yaml:"level" env:"PANEL_LOG_LEVEL"`
	Format     string `toml:"format" yaml:"format" env:"PANEL_LOG_FORMAT"`
	Output     string `toml:"output" yaml:"output" env:"PANEL_LOG_OUTPUT"`
	FilePrefix string `toml:"file_prefix" yaml:"file_prefix" env:"PANEL_LOG_FILE_PREFIX"`
}

// CORSConfig lists are separated by ';' when set from the environment.
type CORSConfig struct {
	AllowOrigins     []string `toml:"allow_origins" yaml:"allow_origins" env:"PANEL_CORS_ALLOW_ORIGINS"`
	AllowMethods     []string `toml:"allow_methods" yaml:"allow_methods" env:"PANEL_CORS_ALLOW_METHODS"`
	AllowHeaders     []string `toml:"allow_headers" yaml:"allow_headers" env:"PANEL_CORS_ALLOW_HEADERS"`
	ExposeHeaders    []string `toml:"expose_headers" yaml:"expose_headers" env:"PANEL_CORS_EXPOSE_HEADERS"`
	AllowCredentials bool     `toml:"allow_credentials" yaml:"allow_credentials" env:"PANEL_CORS_ALLOW_CREDENTIALS"`
	MaxAge           int      `toml:"max_age" yaml:"max_age" env:"PANEL_CORS_MAX_AGE"`
}

// DiscoveryConfig controls the capability scan.
type DiscoveryConfig struct {
	Bases          []string `toml:"bases" yaml:"bases" env:"PANEL_DISCOVERY_BASES"`
	RouterKind     string   `toml:"router_kind" yaml:"router_kind" env:"PANEL_DISCOVERY_ROUTER_KIND"`
	MiddlewareKind string   `toml:"middleware_kind" yaml:"middleware_kind" env:"PANEL_DISCOVERY_MIDDLEWARE_KIND"`
	RouterName     string   `toml:"router_name" yaml:"router_name" env:"PANEL_DISCOVERY_ROUTER_NAME"`
	PluginDir      string   `toml:"plugin_dir" yaml:"plugin_dir" env:"PANEL_DISCOVERY_PLUGIN_DIR"`
	MaxDepth       int      `toml:"max_depth" yaml:"max_depth" env:"PANEL_DISCOVERY_MAX_DEPTH"`
}

// RateLimitConfig configures the per-client limiter; zero disables it.
type RateLimitConfig struct {
	RequestsPerSecond float64 `toml:"requests_per_second" yaml:"requests_per_second" env:"PANEL_RATELIMIT_RPS"`
	Burst             int     `toml:"burst" yaml:"burst" env:"PANEL_RATELIMIT_BURST"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:        "AIPanelAdmin",
			Description: "AI panel admin service",
			Version:     "0.1.0",
			Environment: "development",
			Debug:       true,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			APIPrefix:       "/api",
			ReadTimeout:     30,
			WriteTimeout:    30,
			IdleTimeout:     120,
			ShutdownTimeout: 30,
		},
		Database: DatabaseConfig{
			Host:            "127.0.0.1",
			Port:            5432,
			User:            "admin",
			Password:        "123456",
			Name:            "aipaneladmin",
			SSLMode:         "disable",
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 300,
			AutoMigrate:     true,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stdout",
			FilePrefix: "logs/paneladmin",
		},
		CORS: CORSConfig{
			AllowOrigins: []string{"*"},
			AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders: []string{"Content-Type", "Authorization", "X-Trace-ID"},
			MaxAge:       600,
		},
		Discovery: DiscoveryConfig{
			Bases:          []string{"core", "plugins"},
			RouterKind:     "api",
			MiddlewareKind: "middleware",
			RouterName:     "router",
			PluginDir:      ".",
			MaxDepth:       8,
		},
	}
}

// Load builds the configuration. path overrides EnvConfigFile; an explicitly
// named file must exist while the default file is optional.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvConfigFile)
		explicit = path != ""
	}
	if !explicit {
		path = DefaultConfigFile
	}
	if err := cfg.loadFile(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	} else {
		cfg.resolvePaths(filepath.Dir(path))
	}

	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, c)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	default:
		return fmt.Errorf("config %s: unsupported format (use .toml, .yaml or .yml)", path)
	}
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// resolvePaths anchors relative paths from a config file at the file's
// directory. Paths from the environment stay relative to the working
// directory.
func (c *Config) resolvePaths(dir string) {
	if p := c.Discovery.PluginDir; p != "" && !filepath.IsAbs(p) {
		c.Discovery.PluginDir = filepath.Join(dir, p)
	}
}

func (c *Config) loadEnv() error {
	if err := envdecode.Decode(c); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return fmt.Errorf("decode environment: %w", err)
	}
	return nil
}

func (c *Config) normalize() {
	if c.Server.APIPrefix != "" {
		c.Server.APIPrefix = "/" + strings.Trim(c.Server.APIPrefix, "/")
		if c.Server.APIPrefix == "/" {
			c.Server.APIPrefix = ""
		}
	}
	c.CORS.AllowOrigins = trimAll(c.CORS.AllowOrigins)
	c.CORS.AllowMethods = trimAll(c.CORS.AllowMethods)
	c.CORS.AllowHeaders = trimAll(c.CORS.AllowHeaders)
	c.CORS.ExposeHeaders = trimAll(c.CORS.ExposeHeaders)
	c.Discovery.Bases = trimAll(c.Discovery.Bases)
}

func trimAll(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Server.Port < 0 || c.Server.Port > 65535:
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	case c.Database.DSN == "" && (c.Database.Port <= 0 || c.Database.Port > 65535):
		return fmt.Errorf("database.port %d out of range", c.Database.Port)
	case len(c.Discovery.Bases) == 0:
		return errors.New("discovery.bases must name at least one namespace")
	case c.Discovery.MaxDepth < 0:
		return fmt.Errorf("discovery.max_depth %d must not be negative", c.Discovery.MaxDepth)
	case c.RateLimit.RequestsPerSecond < 0 || c.RateLimit.Burst < 0:
		return errors.New("ratelimit values must not be negative")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format %q must be text or json", c.Logging.Format)
	}
	for _, base := range c.Discovery.Bases {
		if strings.ContainsAny(base, `/\ `) || strings.HasPrefix(base, ".") || strings.HasSuffix(base, ".") {
			return fmt.Errorf("discovery.bases: invalid namespace %q", base)
		}
	}
	return nil
}
