package config

import "fmt"

// ValidateConfig performs validation on the complete configuration.
func ValidateConfig(config *Config) error {
	if err := validateNode(&config.Node); err != nil {
		return fmt.Errorf("node config validation failed: %w", err)
	}
	if err := validateRelay(&config.Relay); err != nil {
		return fmt.Errorf("relay config validation failed: %w", err)
	}
	if err := validateRPC(&config.RPC); err != nil {
		return fmt.Errorf("rpc config validation failed: %w", err)
	}
	return nil
}

func validateNode(node *NodeConfig) error {
	switch node.Backend {
	case "pebble", "leveldb", "memory":
	default:
		return fmt.Errorf("unknown backend %q (supported: pebble, leveldb, memory)", node.Backend)
	}
	if node.Backend != "memory" && node.DataDir == "" {
		return fmt.Errorf("data_dir is required for backend %q", node.Backend)
	}
	if node.CacheSize < 0 {
		return fmt.Errorf("cache_size cannot be negative")
	}
	return nil
}

func validateRelay(relay *RelayConfig) error {
	if relay.Account == "" {
		return fmt.Errorf("relay account is required")
	}
	if relay.Currency == "" {
		return fmt.Errorf("relay currency is required")
	}

	seen := map[string]bool{relay.Currency: true}
	for i, conn := range relay.Connectors {
		if conn.Currency == "" {
			return fmt.Errorf("connector %d missing currency", i)
		}
		if conn.Issuer == "" {
			return fmt.Errorf("connector %s missing issuer", conn.Currency)
		}
		if seen[conn.Currency] {
			return fmt.Errorf("duplicate currency %s", conn.Currency)
		}
		seen[conn.Currency] = true

		// Both zero means use the built-in half-weight curve.
		if conn.Weight == 0 && conn.Base == 0 {
			continue
		}
		if conn.Weight == 0 || conn.Weight > conn.Base {
			return fmt.Errorf("connector %s weight must satisfy 0 < weight <= base", conn.Currency)
		}
	}
	return nil
}

func validateRPC(rpc *RPCConfig) error {
	if rpc.JSONRPCAddr == "" {
		return fmt.Errorf("jsonrpc_addr is required")
	}
	if rpc.GRPCEnabled && rpc.GRPCAddr == "" {
		return fmt.Errorf("grpc_addr is required when grpc is enabled")
	}
	return nil
}
