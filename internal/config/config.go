package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
)

// Config is the top-level configuration structure.
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Solver   SolverConfig   `json:"solver"`
	FAQ      FAQConfig      `json:"faq"`
	Gateway  GatewayConfig  `json:"gateway"`
}

type ServerConfig struct {
	Port     int    `json:"port"`
	LogLevel string `json:"log_level"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `json:"postgres"`
	Neo4j    Neo4jConfig    `json:"neo4j"`
	Redis    RedisConfig    `json:"redis"`
	Qdrant   QdrantConfig   `json:"qdrant"`
}

type PostgresConfig struct {
	DSN string `json:"dsn"`
}

type Neo4jConfig struct {
	URI      string `json:"uri"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type RedisConfig struct {
	URL string `json:"url"`
	// TTLSeconds bounds how long a cached recommendation stays valid;
	// seat counts are a snapshot, so keep this short.
	TTLSeconds int `json:"ttl_seconds"`
}

type QdrantConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// SolverConfig bounds schedule search work per request.
type SolverConfig struct {
	DefaultBudget int `json:"default_budget"`
	MaxBudget     int `json:"max_budget"`
}

// FAQConfig points at the FAQ corpus and its retrieval backend.
type FAQConfig struct {
	Path      string          `json:"path"`
	Embedding EmbeddingConfig `json:"embedding"`
}

type EmbeddingConfig struct {
	Endpoint  string `json:"endpoint"`
	Model     string `json:"model"`
	Dimension int    `json:"dimension"`
}

type GatewayConfig struct {
	Slack   SlackGatewayConfig   `json:"slack"`
	Discord DiscordGatewayConfig `json:"discord"`
}

type SlackGatewayConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token"`
	AppToken string `json:"app_token"`
}

type DiscordGatewayConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token"`
}

// envVarRe matches ${VAR} and ${VAR:default} patterns.
var envVarRe = regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

// Load reads a JSON config file and substitutes environment variable references.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	resolved := envVarRe.ReplaceAllStringFunc(string(data), func(match string) string {
		parts := envVarRe.FindStringSubmatch(match)
		name := parts[1]
		defaultVal := parts[2]
		if v := os.Getenv(name); v != "" {
			return v
		}
		return defaultVal
	})

	var cfg Config
	if err := json.Unmarshal([]byte(resolved), &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 3210
	}
	if c.Solver.DefaultBudget == 0 {
		c.Solver.DefaultBudget = 200_000
	}
	if c.Solver.MaxBudget == 0 {
		c.Solver.MaxBudget = 2_000_000
	}
	if c.Database.Redis.TTLSeconds == 0 {
		c.Database.Redis.TTLSeconds = 300
	}
}
