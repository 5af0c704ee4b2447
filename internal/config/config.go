// Package config loads service configuration from defaults, an optional
// config file, a local .env, and environment variables, in that order of
// increasing precedence.
package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the service.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	DocStore DocStoreConfig `mapstructure:"doc_store"`
	Agent    AgentConfig    `mapstructure:"agent"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Vault    VaultConfig    `mapstructure:"vault"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig holds tools server configuration.
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

// DocStoreConfig holds document store connection settings. APIKey takes
// precedence over Username/Password when both are present.
type DocStoreConfig struct {
	URL      string `mapstructure:"url"`
	APIKey   string `mapstructure:"api_key"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// AgentConfig holds orchestrator agent settings.
type AgentConfig struct {
	ToolsServerURL string `mapstructure:"tools_server_url"`
}

// DispatchConfig throttles outbound recovery sends.
type DispatchConfig struct {
	SendsPerMinute int `mapstructure:"sends_per_minute"`
	Burst          int `mapstructure:"burst"`
}

// VaultConfig holds optional Vault settings for credential loading.
type VaultConfig struct {
	URL   string `mapstructure:"url"`
	Token string `mapstructure:"token"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load initializes viper with defaults, the optional config file, and
// environment bindings. A .env in the working directory is loaded first so
// local runs behave like the deployed service.
func Load() error {
	// Ignore a missing .env; it is a local convenience.
	_ = godotenv.Load()

	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("doc_store.url", "http://localhost:9200")
	viper.SetDefault("agent.tools_server_url", "http://localhost:8000")
	viper.SetDefault("dispatch.sends_per_minute", 120)
	viper.SetDefault("dispatch.burst", 10)
	viper.SetDefault("log.level", "info")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	viper.AutomaticEnv()

	bindings := map[string]string{
		"server.port":               "SERVER_PORT",
		"server.host":               "SERVER_HOST",
		"doc_store.url":             "DOC_STORE_URL",
		"doc_store.api_key":         "DOC_STORE_API_KEY",
		"doc_store.username":        "DOC_STORE_USERNAME",
		"doc_store.password":        "DOC_STORE_PASSWORD",
		"agent.tools_server_url":    "TOOLS_SERVER_URL",
		"dispatch.sends_per_minute": "DISPATCH_SENDS_PER_MINUTE",
		"dispatch.burst":            "DISPATCH_BURST",
		"vault.url":                 "VAULT_ADDR",
		"vault.token":               "VAULT_TOKEN",
		"log.level":                 "LOG_LEVEL",
	}
	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			return fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	return nil
}

// Get returns the current configuration.
func Get() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}
