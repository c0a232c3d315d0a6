package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"ENV"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`

	OpenAIAPIKey string `mapstructure:"OPENAI_API_KEY"`
	OpenAIModel  string `mapstructure:"OPENAI_MODEL"`

	// RouterMode selects the relevance judge: "llm" (default) or "keyword".
	RouterMode string `mapstructure:"ROUTER_MODE"`

	// RequestBudget bounds one whole assessment; BackendTimeout bounds a
	// single LLM call; PredictTimeout bounds a single prediction call.
	RequestBudget  time.Duration `mapstructure:"REQUEST_BUDGET"`
	BackendTimeout time.Duration `mapstructure:"BACKEND_TIMEOUT"`
	PredictTimeout time.Duration `mapstructure:"PREDICT_TIMEOUT"`

	// ModelEndpoints maps a ModelSpec target id to a prediction service URL,
	// parsed from MODEL_ENDPOINTS as "id=url,id=url". Unlisted targets fall
	// back to the registry default endpoint.
	ModelEndpoints map[string]string

	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	APIKeys        []string `mapstructure:"API_KEYS"`
	RateLimitRPS   float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int      `mapstructure:"RATE_LIMIT_BURST"`
	BodyLimit      string   `mapstructure:"BODY_LIMIT"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	v.SetDefault("ROUTER_MODE", "llm")
	v.SetDefault("REQUEST_BUDGET", "90s")
	v.SetDefault("BACKEND_TIMEOUT", "30s")
	v.SetDefault("PREDICT_TIMEOUT", "10s")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 25)
	v.SetDefault("RATE_LIMIT_BURST", 50)
	v.SetDefault("BODY_LIMIT", "256K")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("OPENAI_API_KEY")
	v.BindEnv("OPENAI_MODEL")
	v.BindEnv("ROUTER_MODE")
	v.BindEnv("REQUEST_BUDGET")
	v.BindEnv("BACKEND_TIMEOUT")
	v.BindEnv("PREDICT_TIMEOUT")
	v.BindEnv("MODEL_ENDPOINTS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("API_KEYS")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("BODY_LIMIT")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		if origins := v.GetString("CORS_ORIGINS"); origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}
	if cfg.APIKeys == nil {
		if keys := v.GetString("API_KEYS"); keys != "" {
			cfg.APIKeys = strings.Split(keys, ",")
		}
	}

	cfg.ModelEndpoints = parseEndpoints(v.GetString("MODEL_ENDPOINTS"))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// parseEndpoints parses "id=url,id=url" into a map. Entries without both an
// id and a url are skipped.
func parseEndpoints(s string) map[string]string {
	out := map[string]string{}
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		id, url, ok := strings.Cut(pair, "=")
		if !ok || id == "" || url == "" {
			continue
		}
		out[strings.TrimSpace(id)] = strings.TrimSpace(url)
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the configuration is safe to run. The OpenAI key may
// be absent: the server still starts in that state and answers 503 on the
// assessment endpoint until a key is provided, so keyword-mode smoke tests
// and /models work without credentials.
func (c *Config) Validate() error {
	if c.RouterMode != "llm" && c.RouterMode != "keyword" {
		return fmt.Errorf("ROUTER_MODE must be \"llm\" or \"keyword\", got %q", c.RouterMode)
	}
	if c.RequestBudget <= 0 {
		return fmt.Errorf("REQUEST_BUDGET must be positive, got %s", c.RequestBudget)
	}
	if c.BackendTimeout <= 0 {
		return fmt.Errorf("BACKEND_TIMEOUT must be positive, got %s", c.BackendTimeout)
	}
	if c.PredictTimeout <= 0 {
		return fmt.Errorf("PREDICT_TIMEOUT must be positive, got %s", c.PredictTimeout)
	}
	if c.BackendTimeout > c.RequestBudget || c.PredictTimeout > c.RequestBudget {
		return fmt.Errorf("backend timeouts must not exceed REQUEST_BUDGET (%s)", c.RequestBudget)
	}
	return nil
}
