package config

import "github.com/spf13/viper"

// setDefaults sets all default values.
func setDefaults(v *viper.Viper) {
	// Node storage defaults
	v.SetDefault("node.data_dir", "/var/lib/relayd/db")
	v.SetDefault("node.backend", "pebble")
	v.SetDefault("node.cache_size", 4096)
	v.SetDefault("node.journal", true)

	// Relay defaults; account and currency have no sensible defaults
	// and must come from the config file or environment.
	v.SetDefault("relay.account", "")
	v.SetDefault("relay.currency", "")

	// Serving defaults
	v.SetDefault("rpc.jsonrpc_addr", "127.0.0.1:5005")
	v.SetDefault("rpc.ws_addr", "127.0.0.1:6006")
	v.SetDefault("rpc.grpc_addr", "127.0.0.1:50051")
	v.SetDefault("rpc.grpc_enabled", false)

	// History defaults
	v.SetDefault("history.enabled", false)
	v.SetDefault("history.host", "localhost")
	v.SetDefault("history.port", "5432")
	v.SetDefault("history.database", "relay_history")
	v.SetDefault("history.user", "postgres")
	v.SetDefault("history.password", "postgres")
}
