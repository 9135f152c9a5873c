// Package config loads and validates the relayd configuration from
// file, environment and defaults.
package config

import "path/filepath"

// Config represents the complete relayd configuration.
// This mirrors the structure of relayd.toml.
type Config struct {
	// Node-local storage
	Node NodeConfig `toml:"node" mapstructure:"node"`

	// Relay identity and connector currencies
	Relay RelayConfig `toml:"relay" mapstructure:"relay"`

	// Serving surfaces
	RPC RPCConfig `toml:"rpc" mapstructure:"rpc"`

	// Optional PostgreSQL event history
	History HistoryConfig `toml:"history" mapstructure:"history"`

	configPath string `toml:"-" mapstructure:"-"`
}

// NodeConfig configures the key-value store backing the ledger.
type NodeConfig struct {
	DataDir   string `toml:"data_dir" mapstructure:"data_dir"`
	Backend   string `toml:"backend" mapstructure:"backend"` // pebble, leveldb or memory
	CacheSize int    `toml:"cache_size" mapstructure:"cache_size"`
	Journal   bool   `toml:"journal" mapstructure:"journal"`
}

// RelayConfig declares the relay account, its currency and the
// connector currencies it converts between.
type RelayConfig struct {
	Account    string            `toml:"account" mapstructure:"account"`
	Currency   string            `toml:"currency" mapstructure:"currency"`
	Connectors []ConnectorConfig `toml:"connectors" mapstructure:"connectors"`
}

// ConnectorConfig declares one connector currency. Weight and Base
// default to the half-weight curve when both are zero.
type ConnectorConfig struct {
	Currency string `toml:"currency" mapstructure:"currency"`
	Issuer   string `toml:"issuer" mapstructure:"issuer"`
	Weight   uint64 `toml:"weight" mapstructure:"weight"`
	Base     uint64 `toml:"base" mapstructure:"base"`
}

// RPCConfig configures the serving endpoints.
type RPCConfig struct {
	JSONRPCAddr string `toml:"jsonrpc_addr" mapstructure:"jsonrpc_addr"`
	WSAddr      string `toml:"ws_addr" mapstructure:"ws_addr"`
	GRPCAddr    string `toml:"grpc_addr" mapstructure:"grpc_addr"`
	GRPCEnabled bool   `toml:"grpc_enabled" mapstructure:"grpc_enabled"`
}

// HistoryConfig configures the optional PostgreSQL history sink.
type HistoryConfig struct {
	Enabled  bool   `toml:"enabled" mapstructure:"enabled"`
	Host     string `toml:"host" mapstructure:"host"`
	Port     string `toml:"port" mapstructure:"port"`
	Database string `toml:"database" mapstructure:"database"`
	User     string `toml:"user" mapstructure:"user"`
	Password string `toml:"password" mapstructure:"password"`
}

// DefaultConfigPath returns the default configuration file path.
func DefaultConfigPath() string {
	return "relayd.toml"
}

// ConfigPathFromDir returns the configuration path for a directory.
func ConfigPathFromDir(configDir string) string {
	return filepath.Join(configDir, "relayd.toml")
}

// GetConfigPath returns the path the configuration was loaded from,
// empty when built entirely from defaults and environment.
func (c *Config) GetConfigPath() string {
	return c.configPath
}
