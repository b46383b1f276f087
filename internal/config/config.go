// Package config loads settings for the chat server and client.
//
// Sources are applied in order: built-in defaults, a .env file if present,
// the YAML file named by CONFIG_FILE, then environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full set of settings for the server and the client.
type Config struct {
	Server   ServerConfig `yaml:"server"`
	Client   ClientConfig `yaml:"client"`
	LogLevel string       `yaml:"log_level"`
}

// ServerConfig configures the reference chat server in cmd/api. At most one
// of MongoURI and SQLitePath may be set; with neither the server keeps its
// data in memory.
type ServerConfig struct {
	MongoURI     string   `yaml:"mongodb_uri"`
	SQLitePath   string   `yaml:"sqlite_path"`
	Port         string   `yaml:"port"`
	HTTPPort     string   `yaml:"http_port"`
	RateLimitRPM int      `yaml:"rate_limit_rpm"`
	FailRate     float64  `yaml:"fail_rate"`
	SeedUsers    []string `yaml:"seed_users"`
}

// ClientConfig configures how a chat session reaches the server.
type ClientConfig struct {
	RemoteAddr string        `yaml:"remote_addr"`
	RPCTimeout time.Duration `yaml:"rpc_timeout"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "50051",
			HTTPPort:     "8081",
			RateLimitRPM: 60,
		},
		Client: ClientConfig{
			RemoteAddr: "localhost:50051",
			RPCTimeout: 10 * time.Second,
		},
		LogLevel: "info",
	}
}

// Load builds the effective configuration.
func Load() (*Config, error) {
	// a missing .env is normal
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv("MONGODB_URI"); ok {
		c.Server.MongoURI = v
	}
	if v, ok := os.LookupEnv("SQLITE_PATH"); ok {
		c.Server.SQLitePath = v
	}
	if v, ok := os.LookupEnv("PORT"); ok && v != "" {
		c.Server.Port = v
	}
	if v, ok := os.LookupEnv("HTTP_PORT"); ok && v != "" {
		c.Server.HTTPPort = v
	}
	if v, ok := os.LookupEnv("RATE_LIMIT_RPM"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_RPM: %w", err)
		}
		c.Server.RateLimitRPM = n
	}
	if v, ok := os.LookupEnv("FAIL_RATE"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("FAIL_RATE: %w", err)
		}
		c.Server.FailRate = f
	}
	if v, ok := os.LookupEnv("SEED_USERS"); ok {
		c.Server.SeedUsers = splitList(v)
	}
	if v, ok := os.LookupEnv("REMOTE_ADDR"); ok && v != "" {
		c.Client.RemoteAddr = v
	}
	if v, ok := os.LookupEnv("RPC_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("RPC_TIMEOUT: %w", err)
		}
		c.Client.RPCTimeout = d
	}
	if v, ok := os.LookupEnv("LOG_LEVEL"); ok && v != "" {
		c.LogLevel = v
	}
	return nil
}

// Validate rejects contradictory settings and fills zero values with
// defaults.
func (c *Config) Validate() error {
	if c.Server.MongoURI != "" && c.Server.SQLitePath != "" {
		return errors.New("config: MONGODB_URI and SQLITE_PATH are mutually exclusive")
	}
	if c.Server.FailRate < 0 || c.Server.FailRate > 1 {
		return fmt.Errorf("config: FAIL_RATE must be within [0, 1], got %v", c.Server.FailRate)
	}
	if c.Server.RateLimitRPM < 0 {
		return fmt.Errorf("config: RATE_LIMIT_RPM must not be negative, got %d", c.Server.RateLimitRPM)
	}

	def := Default()
	if c.Server.Port == "" {
		c.Server.Port = def.Server.Port
	}
	if c.Server.HTTPPort == "" {
		c.Server.HTTPPort = def.Server.HTTPPort
	}
	if c.Client.RemoteAddr == "" {
		c.Client.RemoteAddr = def.Client.RemoteAddr
	}
	if c.Client.RPCTimeout <= 0 {
		c.Client.RPCTimeout = def.Client.RPCTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	return nil
}

// Backend names the server storage the settings select.
func (s ServerConfig) Backend() string {
	switch {
	case s.MongoURI != "":
		return "mongo"
	case s.SQLitePath != "":
		return "sqlite"
	default:
		return "memory"
	}
}

// SEED_USERS is a comma separated list of "First Last" names.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
