// Package config loads the client configuration from the environment, with
// an optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"

	defaultServerAddress = "localhost:8080"
	defaultLogLevel      = "info"
	defaultEnv           = EnvLocal
	defaultConfigDir     = ".campsync"
	defaultScope         = "default"
)

type Config struct {
	Env           string `mapstructure:"app_env"`
	ServerAddress string `mapstructure:"server_address"`
	LogLevel      string `mapstructure:"log_level"`
	ConfigDir     string `mapstructure:"config_dir"`
	DataPath      string `mapstructure:"data_path"`
	Scope         string `mapstructure:"scope"`
	SyncInterval  int    `mapstructure:"sync_interval_seconds"`
	ProbeInterval int    `mapstructure:"probe_interval_seconds"`
	EnableTLS     bool   `mapstructure:"enable_tls"`
}

// MustLoad reads the client configuration, panicking on invalid values.
func MustLoad() *Config {
	// A .env next to the binary or one directory up covers local dev runs.
	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		envPath = "../.env"
	}
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			fmt.Printf("failed to load .env file: %v\n", err)
		}
	}

	viper.AutomaticEnv()

	viper.SetDefault("APP_ENV", defaultEnv)
	viper.SetDefault("SERVER_ADDRESS", defaultServerAddress)
	viper.SetDefault("LOG_LEVEL", defaultLogLevel)
	viper.SetDefault("CONFIG_DIR", defaultConfigDir)
	viper.SetDefault("SCOPE", defaultScope)
	viper.SetDefault("SYNC_INTERVAL_SECONDS", 30)
	viper.SetDefault("PROBE_INTERVAL_SECONDS", 10)
	viper.SetDefault("ENABLE_TLS", false)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	configDir := viper.GetString("CONFIG_DIR")
	if configDir == defaultConfigDir {
		configDir = filepath.Join(homeDir, configDir)
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		fmt.Printf("failed to create config directory: %v\n", err)
	}

	config := &Config{
		Env:           viper.GetString("APP_ENV"),
		ServerAddress: viper.GetString("SERVER_ADDRESS"),
		LogLevel:      viper.GetString("LOG_LEVEL"),
		ConfigDir:     configDir,
		DataPath:      filepath.Join(configDir, "campsync.db"),
		Scope:         viper.GetString("SCOPE"),
		SyncInterval:  viper.GetInt("SYNC_INTERVAL_SECONDS"),
		ProbeInterval: viper.GetInt("PROBE_INTERVAL_SECONDS"),
		EnableTLS:     viper.GetBool("ENABLE_TLS"),
	}

	if err := config.validate(); err != nil {
		panic(fmt.Sprintf("invalid configuration: %v", err))
	}

	return config
}

func (c *Config) validate() error {
	if c.ServerAddress == "" {
		return fmt.Errorf("server_address must not be empty")
	}
	if c.Scope == "" {
		return fmt.Errorf("scope must not be empty")
	}
	if c.SyncInterval <= 0 {
		return fmt.Errorf("sync_interval_seconds must be positive")
	}
	return nil
}

// IsProd reports whether the client runs against production.
func (c *Config) IsProd() bool {
	return c.Env == EnvProd
}

// IsLocal reports whether the client runs in local development.
func (c *Config) IsLocal() bool {
	return c.Env == EnvLocal || c.Env == ""
}
