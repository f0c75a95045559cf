package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/chainsafe/cbdc-gateway/pkg/fabricsdk/ledger"
)

// Identity store backends.
const (
	IdentityBackendWallet   = "wallet"
	IdentityBackendPostgres = "postgres"
)

// EnvPrefix prefixes environment overrides, e.g. CBDC_SERVER_PORT.
const EnvPrefix = "CBDC"

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	SSLMode      string `mapstructure:"ssl_mode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// FabricConfig locates the network and the token chaincode.
type FabricConfig struct {
	TopologyPath string `mapstructure:"topology_path"`
	// Organization is the default org for network reads.
	Organization string         `mapstructure:"organization"`
	Channel      string         `mapstructure:"channel"`
	Chaincode    string         `mapstructure:"chaincode"`
	Timeouts     TimeoutsConfig `mapstructure:"timeouts"`
}

// TimeoutsConfig bounds each phase of a ledger call.
type TimeoutsConfig struct {
	Evaluate     time.Duration `mapstructure:"evaluate"`
	Endorse      time.Duration `mapstructure:"endorse"`
	Submit       time.Duration `mapstructure:"submit"`
	CommitStatus time.Duration `mapstructure:"commit_status"`
}

// Ledger converts the configured timeouts, filling unset phases with the default.
func (t TimeoutsConfig) Ledger() ledger.Timeouts {
	return ledger.Timeouts{
		Evaluate:     t.Evaluate,
		Endorse:      t.Endorse,
		Submit:       t.Submit,
		CommitStatus: t.CommitStatus,
	}.WithDefaults()
}

// IdentityConfig selects where enrolled identities are read from.
type IdentityConfig struct {
	Backend      string         `mapstructure:"backend"`
	WalletPath   string         `mapstructure:"wallet_path"`
	Database     DatabaseConfig `mapstructure:"database"`
	MasterKeyEnv string         `mapstructure:"master_key_env"`
}

// AuthConfig contains bearer token settings. When disabled the caller is
// taken from the X-Identity header.
type AuthConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	HMACSecret string `mapstructure:"hmac_secret"`
	JWKSURL    string `mapstructure:"jwks_url"`
	Issuer     string `mapstructure:"issuer"`
}

// QueryConfig bounds transaction query pages.
type QueryConfig struct {
	MaxPageSize int `mapstructure:"max_page_size"`
}

// MetricsConfig toggles the prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// =============================================================================
// API SERVER CONFIG
// =============================================================================

// APIServerConfig represents the gateway HTTP server configuration
type APIServerConfig struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Fabric   FabricConfig   `mapstructure:"fabric"`
	Identity IdentityConfig `mapstructure:"identity"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Query    QueryConfig    `mapstructure:"query"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// LoadAPIServer loads API server configuration from file
func LoadAPIServer(configPath string) (*APIServerConfig, error) {
	v, err := read(configPath, setAPIServerDefaults)
	if err != nil {
		return nil, err
	}

	var config APIServerConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateAPIServer(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setAPIServerDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8081)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "5m")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")

	setCommonDefaults(v)

	// Auth defaults
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.hmac_secret", "")
	v.SetDefault("auth.jwks_url", "")
	v.SetDefault("auth.issuer", "")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
}

func validateAPIServer(config *APIServerConfig) error {
	if config.Server.Port <= 0 {
		return fmt.Errorf("server.port must be positive")
	}
	if err := validateCommon(&config.Fabric, &config.Identity, &config.Query); err != nil {
		return err
	}
	if config.Auth.Enabled && config.Auth.HMACSecret == "" && config.Auth.JWKSURL == "" {
		return fmt.Errorf("auth.hmac_secret or auth.jwks_url is required when auth is enabled")
	}
	return nil
}

// =============================================================================
// CLI CONFIG
// =============================================================================

// CLIConfig represents the operator CLI configuration
type CLIConfig struct {
	Logging  LoggingConfig  `mapstructure:"logging"`
	Fabric   FabricConfig   `mapstructure:"fabric"`
	Identity IdentityConfig `mapstructure:"identity"`
	Query    QueryConfig    `mapstructure:"query"`
}

// LoadCLI loads CLI configuration from file. An empty path uses defaults
// and environment overrides only.
func LoadCLI(configPath string) (*CLIConfig, error) {
	v, err := read(configPath, func(v *viper.Viper) {
		setCommonDefaults(v)
		// the CLI prints JSON on stdout; keep logs out of the way
		v.SetDefault("logging.level", "warn")
		v.SetDefault("logging.format", "console")
		v.SetDefault("logging.output_path", "stderr")
	})
	if err != nil {
		return nil, err
	}

	var config CLIConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateCommon(&config.Fabric, &config.Identity, &config.Query); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func read(configPath string, defaults func(*viper.Viper)) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults(v)

	if configPath == "" {
		return v, nil
	}
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return v, nil
}

func setCommonDefaults(v *viper.Viper) {
	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output_path", "stdout")

	// Fabric defaults
	v.SetDefault("fabric.topology_path", "network/topology.example.yaml")
	v.SetDefault("fabric.organization", "CentralBank")
	v.SetDefault("fabric.channel", "")
	v.SetDefault("fabric.chaincode", "")
	v.SetDefault("fabric.timeouts.evaluate", ledger.DefaultTimeout)
	v.SetDefault("fabric.timeouts.endorse", ledger.DefaultTimeout)
	v.SetDefault("fabric.timeouts.submit", ledger.DefaultTimeout)
	v.SetDefault("fabric.timeouts.commit_status", ledger.DefaultTimeout)

	// Identity defaults
	v.SetDefault("identity.backend", IdentityBackendWallet)
	v.SetDefault("identity.wallet_path", "wallet")
	v.SetDefault("identity.master_key_env", "CBDC_MASTER_KEY")
	v.SetDefault("identity.database.host", "localhost")
	v.SetDefault("identity.database.port", 5432)
	v.SetDefault("identity.database.ssl_mode", "disable")
	v.SetDefault("identity.database.database", "cbdc_identities")
	v.SetDefault("identity.database.user", "")
	v.SetDefault("identity.database.password", "")
	v.SetDefault("identity.database.max_open_conns", 10)

	// Query defaults
	v.SetDefault("query.max_page_size", 100)
}

func validateCommon(fabric *FabricConfig, id *IdentityConfig, query *QueryConfig) error {
	if fabric.TopologyPath == "" {
		return fmt.Errorf("fabric.topology_path is required")
	}
	switch id.Backend {
	case IdentityBackendWallet:
		if id.WalletPath == "" {
			return fmt.Errorf("identity.wallet_path is required for the wallet backend")
		}
	case IdentityBackendPostgres:
		if id.Database.Host == "" {
			return fmt.Errorf("identity.database.host is required for the postgres backend")
		}
		if id.MasterKeyEnv == "" {
			return fmt.Errorf("identity.master_key_env is required for the postgres backend")
		}
	default:
		return fmt.Errorf("identity.backend must be %q or %q, got %q",
			IdentityBackendWallet, IdentityBackendPostgres, id.Backend)
	}
	if query.MaxPageSize < 1 {
		return fmt.Errorf("query.max_page_size must be positive")
	}
	return nil
}

// GetConnectionString returns a PostgreSQL connection string
func (c *DatabaseConfig) GetConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
