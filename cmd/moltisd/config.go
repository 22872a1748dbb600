package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the single top-level configuration struct for the moltisd
// binary, populated from a YAML file with environment-variable overrides
// layered on top. Plain struct tags, no reflection-based binder.
type Config struct {
	Provider ProviderConfig `yaml:"provider"`
	Redis    RedisConfig    `yaml:"redis"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Agent    AgentConfig    `yaml:"agent"`
	Debug    bool           `yaml:"debug"`
}

// ProviderConfig selects and authenticates the model provider backing the
// Agent Run Loop and cron's isolated agent turns.
type ProviderConfig struct {
	Name         string `yaml:"name"` // "anthropic" or "openai"
	APIKeyEnv    string `yaml:"apiKeyEnv"`
	DefaultModel string `yaml:"defaultModel"`
}

// RedisConfig locates the Redis instance backing the Cron Store and MCP
// token/registration stores.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"passwordEnv"`
	DB       int    `yaml:"db"`
}

// MongoConfig locates the MongoDB instance backing the Session Store.
type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// AgentConfig configures the Agent Run Loop's defaults.
type AgentConfig struct {
	ToolMode         string `yaml:"toolMode"` // "native" or "prompt"
	SystemPromptBase string `yaml:"systemPromptBase"`
	MaxIterations    int    `yaml:"maxIterations"`
}

// LoadConfig reads a YAML config file and applies environment-variable
// overrides. A missing optional override env var leaves the YAML value in
// place.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	applyEnvOverrides(&cfg)

	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Mongo.Database == "" {
		cfg.Mongo.Database = "moltis"
	}
	if cfg.Agent.ToolMode == "" {
		cfg.Agent.ToolMode = "native"
	}
	if cfg.Agent.MaxIterations == 0 {
		cfg.Agent.MaxIterations = 20
	}

	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v, ok := os.LookupEnv("MOLTIS_PROVIDER_NAME"); ok {
		cfg.Provider.Name = v
	}
	if v, ok := os.LookupEnv("MOLTIS_PROVIDER_MODEL"); ok {
		cfg.Provider.DefaultModel = v
	}
	if v, ok := os.LookupEnv("MOLTIS_REDIS_ADDR"); ok {
		cfg.Redis.Addr = v
	}
	if v, ok := os.LookupEnv("MOLTIS_MONGO_URI"); ok {
		cfg.Mongo.URI = v
	}
	if v, ok := os.LookupEnv("MOLTIS_MONGO_DATABASE"); ok {
		cfg.Mongo.Database = v
	}
	if v, ok := os.LookupEnv("MOLTIS_DEBUG"); ok {
		cfg.Debug = v == "1" || v == "true"
	}
}

// resolveAPIKey reads the provider API key from the env var named by
// Provider.APIKeyEnv.
func (c ProviderConfig) resolveAPIKey() (string, error) {
	if c.APIKeyEnv == "" {
		return "", fmt.Errorf("config: provider.apiKeyEnv not set")
	}
	key, ok := os.LookupEnv(c.APIKeyEnv)
	if !ok || key == "" {
		return "", fmt.Errorf("config: environment variable %s not set", c.APIKeyEnv)
	}
	return key, nil
}

func (c RedisConfig) resolvePassword() string {
	if c.Password == "" {
		return ""
	}
	return os.Getenv(c.Password)
}
