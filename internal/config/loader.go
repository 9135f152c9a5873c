package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration from multiple sources in priority order:
// 1. Default values
// 2. Configuration file (relayd.toml)
// 3. Environment variables (RELAYD_ prefix)
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		if err := loadConfigFile(v, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	v.SetEnvPrefix("RELAYD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.configPath = configPath

	if err := ValidateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// LoadConfigFromDir loads configuration from a directory.
func LoadConfigFromDir(configDir string) (*Config, error) {
	return LoadConfig(ConfigPathFromDir(configDir))
}

func loadConfigFile(v *viper.Viper, configPath string) error {
	v.SetConfigFile(configPath)

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return fmt.Errorf("config file does not exist: %s", configPath)
	}

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	return nil
}

// SaveExampleConfig writes an example configuration file.
func SaveExampleConfig(configPath string) error {
	v := viper.New()
	for key, value := range exampleConfig() {
		v.Set(key, value)
	}

	v.SetConfigFile(configPath)
	if err := v.WriteConfig(); err != nil {
		return fmt.Errorf("failed to write example config: %w", err)
	}
	return nil
}

func exampleConfig() map[string]interface{} {
	return map[string]interface{}{
		"node.data_dir":   "/var/lib/relayd/db",
		"node.backend":    "pebble",
		"node.cache_size": 4096,
		"node.journal":    true,

		"relay.account":  "relay",
		"relay.currency": "RELAY",
		"relay.connectors": []map[string]interface{}{
			{"currency": "ABC", "issuer": "abc-issuer"},
			{"currency": "XYZ", "issuer": "xyz-issuer"},
		},

		"rpc.jsonrpc_addr": "127.0.0.1:5005",
		"rpc.ws_addr":      "127.0.0.1:6006",

		"history.enabled": false,
	}
}
