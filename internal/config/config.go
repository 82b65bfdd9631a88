// Package config loads the gateway's environment configuration and the
// rendered YAML provider file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/suxyu/archgw/internal/catalog"
)

// Defaults applied when the routing block is absent from the YAML file.
const (
	DefaultRoutingModel    = "Arch-Router"
	DefaultRoutingProvider = "arch-router"
)

// Config holds the process-level configuration, read from the environment.
type Config struct {
	BindAddress      string
	ConfigPath       string
	UpstreamEndpoint string

	// Zero means no client timeout; the HTTP connection lifetime is the only
	// cancellation signal.
	RouterTimeout   time.Duration
	UpstreamTimeout time.Duration

	Version   string
	Telemetry TelemetryConfig
}

type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		BindAddress:      envStr("BIND_ADDRESS", "0.0.0.0:9091"),
		ConfigPath:       envStr("ARCH_CONFIG_PATH_RENDERED", "./arch_config_rendered.yaml"),
		UpstreamEndpoint: envStr("LLM_PROVIDER_ENDPOINT", "http://localhost:12001/v1/chat/completions"),
		RouterTimeout:    envDuration("ROUTER_TIMEOUT", 0),
		UpstreamTimeout:  envDuration("UPSTREAM_TIMEOUT", 0),
		Version:          envStr("ARCHGW_VERSION", "0.1.0"),
		Telemetry: TelemetryConfig{
			Enabled:      envBool("OTEL_ENABLED", false),
			OTLPEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:  envStr("OTEL_SERVICE_NAME", "archgw-router"),
		},
	}
}

// Gateway is the schema of the rendered YAML config file.
type Gateway struct {
	LlmProviders []catalog.Provider `yaml:"llm_providers"`
	Routing      *Routing           `yaml:"routing,omitempty"`
}

// Routing selects the router model and the provider hint used for routing
// traffic.
type Routing struct {
	Model       string `yaml:"model,omitempty"`
	LlmProvider string `yaml:"llm_provider,omitempty"`
}

// LoadGatewayFile reads and parses the rendered gateway config. Failures here
// are fatal at startup.
func LoadGatewayFile(path string) (*Gateway, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read gateway config %s: %w", path, err)
	}

	var gw Gateway
	if err := yaml.Unmarshal(contents, &gw); err != nil {
		return nil, fmt.Errorf("parse gateway config %s: %w", path, err)
	}
	if len(gw.LlmProviders) == 0 {
		return nil, fmt.Errorf("gateway config %s: llm_providers is required", path)
	}
	return &gw, nil
}

// RoutingModel returns the configured router model identifier.
func (g *Gateway) RoutingModel() string {
	if g.Routing != nil && g.Routing.Model != "" {
		return g.Routing.Model
	}
	return DefaultRoutingModel
}

// RoutingProvider returns the provider hint sent with routing traffic.
func (g *Gateway) RoutingProvider() string {
	if g.Routing != nil && g.Routing.LlmProvider != "" {
		return g.Routing.LlmProvider
	}
	return DefaultRoutingProvider
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
