package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	StorageMemory = "memory"
	StorageSQL    = "sql"

	TracingOff    = "off"
	TracingStdout = "stdout"
)

type Config struct {
	Env               string
	HTTPAddr          string
	Storage           string
	DBDriver          string
	DBDSN             string
	LogLevel          slog.Level
	LogFormat         string
	ServiceName       string
	Tracing           string
	ShutdownTimeout   time.Duration
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	DefaultPageSize   int
	MaxUploadBytes    int64
}

func Default() Config {
	return Config{
		Env:               "dev",
		HTTPAddr:          ":8080",
		Storage:           StorageMemory,
		DBDriver:          "sqlite3",
		LogLevel:          slog.LevelInfo,
		ServiceName:       "taskapi",
		Tracing:           TracingOff,
		ShutdownTimeout:   5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
		DefaultPageSize:   10,
		MaxUploadBytes:    32 << 20,
	}
}

type fileConfig struct {
	Env               string `toml:"env"`
	HTTPAddr          string `toml:"http_addr"`
	Storage           string `toml:"storage"`
	ServiceName       string `toml:"service_name"`
	Tracing           string `toml:"tracing"`
	ShutdownTimeout   string `toml:"shutdown_timeout"`
	ReadHeaderTimeout string `toml:"read_header_timeout"`
	ReadTimeout       string `toml:"read_timeout"`
	WriteTimeout      string `toml:"write_timeout"`
	IdleTimeout       string `toml:"idle_timeout"`
	DefaultPageSize   *int   `toml:"default_page_size"`
	MaxUploadBytes    *int64 `toml:"max_upload_bytes"`
	DB                struct {
		Driver string `toml:"driver"`
		DSN    string `toml:"dsn"`
	} `toml:"db"`
	Log struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
	} `toml:"log"`
}

// Load reads .env (if present), then resolves the config from os.Args and the
// process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return Parse(os.Args[1:], os.LookupEnv)
}

// Parse applies, in increasing precedence: defaults, the TOML file named by
// -config or CONFIG_FILE, environment variables, flags.
func Parse(args []string, lookup func(string) (string, bool)) (Config, error) {
	fl := flag.NewFlagSet("taskapi", flag.ContinueOnError)
	configPath := fl.String("config", "", "path to a TOML config file")
	addr := fl.String("http", "", "listen address")
	storage := fl.String("storage", "", "storage backend: memory or sql")
	env := fl.String("env", "", "environment name")
	if err := fl.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := Default()
	path := *configPath
	if path == "" {
		path, _ = lookup("CONFIG_FILE")
	}
	if path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}
	if *addr != "" {
		cfg.HTTPAddr = *addr
	}
	if *storage != "" {
		cfg.Storage = *storage
	}
	if *env != "" {
		cfg.Env = *env
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "json"
		if cfg.Env == "dev" {
			cfg.LogFormat = "text"
		}
	}
	return cfg, cfg.validate()
}

func applyFile(cfg *Config, path string) error {
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	setString(&cfg.Env, fc.Env)
	setString(&cfg.HTTPAddr, fc.HTTPAddr)
	setString(&cfg.Storage, fc.Storage)
	setString(&cfg.ServiceName, fc.ServiceName)
	setString(&cfg.Tracing, fc.Tracing)
	setString(&cfg.DBDriver, fc.DB.Driver)
	setString(&cfg.DBDSN, fc.DB.DSN)
	setString(&cfg.LogFormat, fc.Log.Format)
	if fc.DefaultPageSize != nil {
		cfg.DefaultPageSize = *fc.DefaultPageSize
	}
	if fc.MaxUploadBytes != nil {
		cfg.MaxUploadBytes = *fc.MaxUploadBytes
	}
	var err error
	if fc.Log.Level != "" {
		if cfg.LogLevel, err = parseLevel(fc.Log.Level); err != nil {
			return fmt.Errorf("log.level: %w", err)
		}
	}
	for _, d := range []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"shutdown_timeout", fc.ShutdownTimeout, &cfg.ShutdownTimeout},
		{"read_header_timeout", fc.ReadHeaderTimeout, &cfg.ReadHeaderTimeout},
		{"read_timeout", fc.ReadTimeout, &cfg.ReadTimeout},
		{"write_timeout", fc.WriteTimeout, &cfg.WriteTimeout},
		{"idle_timeout", fc.IdleTimeout, &cfg.IdleTimeout},
	} {
		if err := setDuration(d.dst, d.raw); err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	getenv := func(key string) string {
		v, _ := lookup(key)
		return v
	}
	setString(&cfg.Env, getenv("APP_ENV"))
	setString(&cfg.HTTPAddr, getenv("HTTP_ADDR"))
	setString(&cfg.Storage, getenv("STORAGE"))
	setString(&cfg.DBDriver, getenv("DB_DRIVER"))
	setString(&cfg.DBDSN, getenv("DB_DSN"))
	setString(&cfg.LogFormat, getenv("LOG_FORMAT"))
	setString(&cfg.ServiceName, getenv("SERVICE_NAME"))
	setString(&cfg.Tracing, getenv("TRACING"))

	var err error
	if v := getenv("LOG_LEVEL"); v != "" {
		if cfg.LogLevel, err = parseLevel(v); err != nil {
			return fmt.Errorf("LOG_LEVEL: %w", err)
		}
	}
	for _, d := range []struct {
		key string
		dst *time.Duration
	}{
		{"SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout},
		{"READ_HEADER_TIMEOUT", &cfg.ReadHeaderTimeout},
		{"READ_TIMEOUT", &cfg.ReadTimeout},
		{"WRITE_TIMEOUT", &cfg.WriteTimeout},
		{"IDLE_TIMEOUT", &cfg.IdleTimeout},
	} {
		if err := setDuration(d.dst, getenv(d.key)); err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
	}
	if v := getenv("DEFAULT_PAGE_SIZE"); v != "" {
		if cfg.DefaultPageSize, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("DEFAULT_PAGE_SIZE: %w", err)
		}
	}
	if v := getenv("MAX_UPLOAD_BYTES"); v != "" {
		if cfg.MaxUploadBytes, err = strconv.ParseInt(v, 10, 64); err != nil {
			return fmt.Errorf("MAX_UPLOAD_BYTES: %w", err)
		}
	}
	return nil
}

func (c Config) validate() error {
	switch c.Storage {
	case StorageMemory, StorageSQL:
	default:
		return fmt.Errorf("unknown storage %q", c.Storage)
	}
	switch c.Tracing {
	case TracingOff, TracingStdout:
	default:
		return fmt.Errorf("unknown tracing exporter %q", c.Tracing)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	if c.DefaultPageSize < 0 {
		return errors.New("default page size must not be negative")
	}
	if c.MaxUploadBytes < 0 {
		return errors.New("max upload bytes must not be negative")
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	err := l.UnmarshalText([]byte(s))
	return l, err
}

func setDuration(dst *time.Duration, v string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
