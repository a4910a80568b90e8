package config

import (
	"fmt"
	"net"
	"strings"
)

var MaxCallDepthLimit = 64

func ValidateConfig(c *Config) error {
	if c == nil {
		return fmt.Errorf("config: nil")
	}
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendLevelDB, BackendBolt:
		if strings.TrimSpace(c.Storage.Path) == "" {
			return fmt.Errorf("storage: path required for %s backend", c.Storage.Backend)
		}
	default:
		return fmt.Errorf("storage: unknown backend %q", c.Storage.Backend)
	}
	if c.MaxCallDepth <= 0 || c.MaxCallDepth > MaxCallDepthLimit {
		return fmt.Errorf("max_call_depth must be in 1..%d", MaxCallDepthLimit)
	}
	if strings.TrimSpace(c.ListenAddress) == "" {
		return fmt.Errorf("listen_address must be set")
	}
	if c.API.RequestsPerMinute < 0 || c.API.Burst < 0 {
		return fmt.Errorf("api: rate limits must not be negative")
	}
	for _, proxy := range c.API.TrustedProxies {
		proxy = strings.TrimSpace(proxy)
		if _, _, err := net.ParseCIDR(proxy); err != nil && net.ParseIP(proxy) == nil {
			return fmt.Errorf("api: invalid trusted proxy %q", proxy)
		}
	}
	for _, name := range c.Paused {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("paused: empty contract name")
		}
	}
	return nil
}
