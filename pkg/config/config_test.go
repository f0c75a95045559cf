package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainsafe/cbdc-gateway/pkg/fabricsdk/ledger"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAPIServer_Defaults(t *testing.T) {
	path := writeConfig(t, `
fabric:
  topology_path: ./network.yaml
  timeouts:
    submit: 45s
`)

	cfg, err := LoadAPIServer(path)
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "./network.yaml", cfg.Fabric.TopologyPath)
	assert.Equal(t, "CentralBank", cfg.Fabric.Organization)
	assert.Equal(t, IdentityBackendWallet, cfg.Identity.Backend)
	assert.Equal(t, 100, cfg.Query.MaxPageSize)
	assert.True(t, cfg.Metrics.Enabled)
	assert.False(t, cfg.Auth.Enabled)

	timeouts := cfg.Fabric.Timeouts.Ledger()
	assert.Equal(t, 45*time.Second, timeouts.Submit)
	assert.Equal(t, ledger.DefaultTimeout, timeouts.Evaluate)
	assert.Equal(t, ledger.DefaultTimeout, timeouts.CommitStatus)
}

func TestLoadAPIServer_EnvOverride(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 8081\n")
	t.Setenv("CBDC_SERVER_PORT", "9443")
	t.Setenv("CBDC_AUTH_ENABLED", "true")
	t.Setenv("CBDC_AUTH_HMAC_SECRET", "s3cret")

	cfg, err := LoadAPIServer(path)
	require.NoError(t, err)
	assert.Equal(t, 9443, cfg.Server.Port)
	assert.True(t, cfg.Auth.Enabled)
	assert.Equal(t, "s3cret", cfg.Auth.HMACSecret)
}

func TestLoadAPIServer_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"auth without key material", "auth:\n  enabled: true\n"},
		{"unknown identity backend", "identity:\n  backend: ldap\n"},
		{"postgres without master key env", "identity:\n  backend: postgres\n  master_key_env: \"\"\n"},
		{"empty wallet path", "identity:\n  wallet_path: \"\"\n"},
		{"zero page size", "query:\n  max_page_size: 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadAPIServer(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "config validation failed")
		})
	}
}

func TestLoadAPIServer_MissingFile(t *testing.T) {
	_, err := LoadAPIServer(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadCLI_NoFile(t *testing.T) {
	t.Setenv("CBDC_FABRIC_ORGANIZATION", "BankA")

	cfg, err := LoadCLI("")
	require.NoError(t, err)
	assert.Equal(t, "BankA", cfg.Fabric.Organization)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "stderr", cfg.Logging.OutputPath)
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(LoggingConfig{Level: "debug", Format: "json", OutputPath: "stdout"})
	require.NoError(t, err)
	require.NotNil(t, logger)

	_, err = NewLogger(LoggingConfig{Level: "loud"})
	require.Error(t, err)
}
