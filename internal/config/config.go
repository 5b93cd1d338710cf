package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config application configuration structure
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	NATS      NATSConfig      `yaml:"nats"`
	Chains    ChainsConfig    `yaml:"chains"`
	Proof     ProofConfig     `yaml:"proof"`
	Auth      AuthConfig      `yaml:"auth"`
	Admin     AdminConfig     `yaml:"admin"`
	CORS      CORSConfig      `yaml:"cors"`
	Orders    OrdersConfig    `yaml:"orders"`
	Treasury  TreasuryConfig  `yaml:"treasury"`
}

// ServerConfig server configuration
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig database configuration
type DatabaseConfig struct {
	DSN    string `yaml:"dsn"`
	Driver string `yaml:"driver"`
}

// NATSConfig NATS message server configuration
type NATSConfig struct {
	URL             string `yaml:"url"`
	Timeout         int    `yaml:"timeout"`
	ReconnectWait   int    `yaml:"reconnect_wait"`
	MaxReconnects   int    `yaml:"max_reconnects"`
	EnableJetStream bool   `yaml:"enable_jetstream"`
	StreamName      string `yaml:"stream_name"`
}

// ChainsConfig per-chain gateway configuration
type ChainsConfig struct {
	// CallTimeout bounds every single gateway round trip (seconds)
	CallTimeout int                       `yaml:"call_timeout"`
	Networks    map[string]NetworkConfig  `yaml:"networks"`
}

// NetworkConfig configuration for one supported chain
type NetworkConfig struct {
	Kind           string   `yaml:"kind"` // "evm" or "rpc"
	ChainID        int64    `yaml:"chain_id"`
	Name           string   `yaml:"name"`
	RPCEndpoints   []string `yaml:"rpc_endpoints"`
	BridgeContract string   `yaml:"bridge_contract"`
	PrivateKey     string   `yaml:"private_key"` // loaded from env in practice
	NativeDecimals int32    `yaml:"native_decimals"`
}

// ProofConfig proof service configuration
type ProofConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout int    `yaml:"timeout"` // seconds; proof generation is slow
}

// AuthConfig JWT authentication configuration
type AuthConfig struct {
	JWTSecret   string `yaml:"jwt_secret"`
	TokenExpiry int    `yaml:"token_expiry"` // hours
}

// AdminConfig admin API access control configuration
type AdminConfig struct {
	TOTPSecret string   `yaml:"totp_secret"`
	AllowedIPs []string `yaml:"allowed_ips"`
}

// CORSConfig CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins"`
	AllowCredentials bool     `yaml:"allow_credentials"`
	MaxAge           int      `yaml:"max_age"`
}

// OrdersConfig order lifecycle configuration
type OrdersConfig struct {
	SweepInterval int `yaml:"sweep_interval"` // seconds between ExpireStale runs
}

// TreasuryConfig treasury workflow configuration
type TreasuryConfig struct {
	WorkflowInterval int `yaml:"workflow_interval"` // seconds between workflow checks
}

// AppConfig global configuration instance
var AppConfig *Config

// LoadConfig loads configuration from the given YAML file and applies
// environment variable overrides
func LoadConfig(configPath string) error {
	config := defaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse config file: %w", err)
		}
		fmt.Printf("✅ [Config] Loaded configuration from %s\n", configPath)
	}

	overrideFromEnv(config)

	fmt.Printf("📋 [Config] Proof service: BaseURL=%s, Timeout=%ds\n", config.Proof.BaseURL, config.Proof.Timeout)
	fmt.Printf("📋 [Config] Chains configured: %d\n", len(config.Chains.Networks))

	AppConfig = config
	return nil
}

// defaultConfig returns the built-in defaults applied before the YAML file
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Driver: "postgres",
		},
		Chains: ChainsConfig{
			CallTimeout: 30,
			Networks:    make(map[string]NetworkConfig),
		},
		Proof: ProofConfig{
			Timeout: 600,
		},
		Auth: AuthConfig{
			TokenExpiry: 24,
		},
		Orders: OrdersConfig{
			SweepInterval: 30,
		},
		Treasury: TreasuryConfig{
			WorkflowInterval: 60,
		},
		NATS: NATSConfig{
			StreamName: "bridge-events",
		},
	}
}

// overrideFromEnv applies environment variable overrides
func overrideFromEnv(config *Config) {
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		config.Database.DSN = dsn
	}

	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if proofURL := os.Getenv("PROOF_BASE_URL"); proofURL != "" {
		config.Proof.BaseURL = proofURL
	}
	if proofTimeout := os.Getenv("PROOF_TIMEOUT"); proofTimeout != "" {
		if t, err := strconv.Atoi(proofTimeout); err == nil {
			config.Proof.Timeout = t
		}
	}

	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		config.NATS.URL = natsURL
	}

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Auth.JWTSecret = secret
	}
	if totp := os.Getenv("ADMIN_TOTP_SECRET"); totp != "" {
		config.Admin.TOTPSecret = totp
	}

	// Per-network private keys and RPC endpoints
	// Network-specific variables (e.g. SEPOLIA_PRIVATE_KEY) win over the
	// generic PRIVATE_KEY fallback
	for networkName, networkConfig := range config.Chains.Networks {
		envKey := fmt.Sprintf("%s_PRIVATE_KEY", strings.ToUpper(networkName))
		if privateKey := os.Getenv(envKey); privateKey != "" {
			networkConfig.PrivateKey = privateKey
		} else if privateKey := os.Getenv("PRIVATE_KEY"); privateKey != "" {
			networkConfig.PrivateKey = privateKey
		}

		envRPC := fmt.Sprintf("%s_RPC_ENDPOINTS", strings.ToUpper(networkName))
		if rpcEndpoints := os.Getenv(envRPC); rpcEndpoints != "" {
			networkConfig.RPCEndpoints = strings.Split(rpcEndpoints, ",")
		}

		config.Chains.Networks[networkName] = networkConfig
	}
}
