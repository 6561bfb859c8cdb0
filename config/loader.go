package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the complete roundwise service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" env:"SERVER"`
	LLM       LLMConfig       `yaml:"llm" env:"LLM"`
	Models    ModelsConfig    `yaml:"models" env:"MODELS"`
	Store     StoreConfig     `yaml:"store" env:"STORE"`
	Progress  ProgressConfig  `yaml:"progress" env:"PROGRESS"`
	Log       LogConfig       `yaml:"log" env:"LOG"`
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	HTTPPort           int           `yaml:"http_port" env:"HTTP_PORT"`
	MetricsPort        int           `yaml:"metrics_port" env:"METRICS_PORT"`
	ReadTimeout        time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout       time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	CORSAllowedOrigins []string      `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS"`
	RateLimitPerSec    float64       `yaml:"rate_limit_per_sec" env:"RATE_LIMIT_PER_SEC"`
	RateLimitBurst     int           `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
}

// LLMConfig holds the upstream provider settings shared by all stages.
type LLMConfig struct {
	APIKey         string        `yaml:"api_key" env:"API_KEY"`
	BaseURL        string        `yaml:"base_url" env:"BASE_URL"`
	Referer        string        `yaml:"referer" env:"REFERER"`
	Title          string        `yaml:"title" env:"TITLE"`
	Timeout        time.Duration `yaml:"timeout" env:"TIMEOUT"`
	MaxConcurrent  int           `yaml:"max_concurrent" env:"MAX_CONCURRENT"`
	RequestsPerSec float64       `yaml:"requests_per_sec" env:"REQUESTS_PER_SEC"`
	Burst          int           `yaml:"burst" env:"BURST"`
}

// ModelsConfig selects models per pipeline role plus the list offered to
// clients when editing proposed experts.
type ModelsConfig struct {
	Gatekeeper         string   `yaml:"gatekeeper" env:"GATEKEEPER"`
	Notary             string   `yaml:"notary" env:"NOTARY"`
	ExpertDefault      string   `yaml:"expert_default" env:"EXPERT_DEFAULT"`
	Available          []string `yaml:"available" env:"AVAILABLE"`
	Temperature        float32  `yaml:"temperature" env:"TEMPERATURE"`
	ScoringTemperature float32  `yaml:"scoring_temperature" env:"SCORING_TEMPERATURE"`
}

// StoreConfig selects the conversation store backend.
type StoreConfig struct {
	// Driver is "sqlite" or "memory".
	Driver string `yaml:"driver" env:"DRIVER"`
	Path   string `yaml:"path" env:"PATH"`
}

// ProgressConfig selects the in-flight stage marker backend.
type ProgressConfig struct {
	// Backend is "memory" or "redis".
	Backend string      `yaml:"backend" env:"BACKEND"`
	Redis   RedisConfig `yaml:"redis" env:"REDIS"`
}

// RedisConfig holds Redis connection settings for the progress tracker.
type RedisConfig struct {
	Addr     string        `yaml:"addr" env:"ADDR"`
	Password string        `yaml:"password" env:"PASSWORD"`
	DB       int           `yaml:"db" env:"DB"`
	TTL      time.Duration `yaml:"ttl" env:"TTL"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" env:"LEVEL"`
	// Format is json or console.
	Format           string   `yaml:"format" env:"FORMAT"`
	OutputPaths      []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	EnableCaller     bool     `yaml:"enable_caller" env:"ENABLE_CALLER"`
	EnableStacktrace bool     `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig holds trace export settings.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled" env:"ENABLED"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	ServiceName  string  `yaml:"service_name" env:"SERVICE_NAME"`
	SampleRate   float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// Loader builds a Config with the documented precedence.
type Loader struct {
	configPath string
	dotenvPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader creates a loader with the ROUNDWISE env prefix.
func NewLoader() *Loader {
	return &Loader{envPrefix: "ROUNDWISE"}
}

// WithConfigPath sets the YAML config file path. A missing file is not an
// error; defaults and environment still apply.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithDotEnv folds the given .env file into the process environment
// before the override pass. Existing variables win.
func (l *Loader) WithDotEnv(path string) *Loader {
	l.dotenvPath = path
	return l
}

// WithEnvPrefix overrides the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator appends a validation step run after loading.
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load resolves the configuration.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.dotenvPath != "" {
		if err := godotenv.Load(l.dotenvPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("load dotenv file: %w", err)
		}
	}

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix); err != nil {
		return nil, fmt.Errorf("apply env overrides: %w", err)
	}

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}
	return cfg, nil
}

func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		envTag := t.Field(i).Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}
		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct && field.Type() != reflect.TypeOf(time.Duration(0)) {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}
		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("set %s: %w", envKey, err)
		}
	}
	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
			return nil
		}
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(i)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}
	return nil
}

// MustLoad loads from path and panics on failure. Intended for main.
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).WithDotEnv(".env").Load()
	if err != nil {
		panic(fmt.Sprintf("load config: %v", err))
	}
	return cfg
}

// Validate checks cross-field constraints that have no safe default.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, "invalid HTTP port")
	}
	if c.LLM.APIKey == "" {
		errs = append(errs, "llm.api_key is required")
	}
	if c.Models.Gatekeeper == "" || c.Models.Notary == "" || c.Models.ExpertDefault == "" {
		errs = append(errs, "models.gatekeeper, models.notary and models.expert_default are required")
	}
	switch c.Store.Driver {
	case "sqlite", "memory":
	default:
		errs = append(errs, fmt.Sprintf("unknown store driver %q", c.Store.Driver))
	}
	switch c.Progress.Backend {
	case "redis", "memory":
	default:
		errs = append(errs, fmt.Sprintf("unknown progress backend %q", c.Progress.Backend))
	}
	if c.Models.Temperature < 0 || c.Models.Temperature > 2 {
		errs = append(errs, "models.temperature must be between 0 and 2")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
