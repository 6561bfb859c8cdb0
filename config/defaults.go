package config

import "time"

// DefaultConfig returns the baseline configuration. Model names and the
// provider API key have no defaults and must come from the YAML file or
// the environment.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:        8080,
			MetricsPort:     9090,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    120 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateLimitPerSec: 10,
			RateLimitBurst:  20,
		},
		LLM: LLMConfig{
			BaseURL:        "https://openrouter.ai/api/v1",
			Timeout:        90 * time.Second,
			MaxConcurrent:  4,
			RequestsPerSec: 5,
			Burst:          10,
		},
		Models: ModelsConfig{
			Temperature:        0.7,
			ScoringTemperature: 0.5,
		},
		Store: StoreConfig{
			Driver: "sqlite",
			Path:   "roundwise.db",
		},
		Progress: ProgressConfig{
			Backend: "memory",
			Redis: RedisConfig{
				Addr: "localhost:6379",
				TTL:  10 * time.Minute,
			},
		},
		Log: LogConfig{
			Level:            "info",
			Format:           "json",
			OutputPaths:      []string{"stdout"},
			EnableCaller:     true,
			EnableStacktrace: false,
		},
		Telemetry: TelemetryConfig{
			Enabled:      false,
			OTLPEndpoint: "localhost:4317",
			ServiceName:  "roundwise",
			SampleRate:   1.0,
		},
	}
}
