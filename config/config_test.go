package config

import (
	"flag"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/syncstack/follower/shared/testutil/assert"
	"github.com/syncstack/follower/shared/testutil/require"
	"github.com/syncstack/follower/types"
)

func requiredFlagSet(t *testing.T) *flag.FlagSet {
	set := flag.NewFlagSet("test", 0)
	set.String("main-node-url", "http://localhost:3050", "")
	set.String("l1-endpoint", "http://localhost:8545", "")
	set.Uint64("l2-chain-id", 270, "")
	set.Uint64("l1-chain-id", 9, "")
	set.String("database-url", "postgres://localhost/follower", "")
	set.Int("healthcheck-port", 3081, "")
	set.String("datadir", t.TempDir(), "")
	set.String("l1-batch-commit-data-generator-mode", "rollup", "")
	return set
}

func TestLoad_RequiredAndDefaults(t *testing.T) {
	cliCtx := cli.NewContext(&cli.App{}, requiredFlagSet(t), nil)
	cfg, err := Load(cliCtx)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:3050", cfg.Required.MainNodeURL)
	assert.Equal(t, uint64(270), cfg.Required.L2ChainID)
	assert.Equal(t, types.CommitmentModeRollup, cfg.Optional.CommitmentMode)
	// Remote values are resolved against the live chain during assembly.
	assert.Equal(t, (*Remote)(nil), cfg.Remote)
	// No monitoring port means no exporter.
	assert.Equal(t, (*Monitoring)(nil), cfg.Monitoring)
}

func TestLoad_MissingRequiredValues(t *testing.T) {
	tests := []struct {
		omit    string
		zero    string
		wantErr string
	}{
		{"main-node-url", "", "main node URL is required"},
		{"l1-endpoint", "", "L1 endpoint URL is required"},
		{"l2-chain-id", "0", "L2 chain id is required"},
		{"database-url", "", "database URL is required"},
		{"healthcheck-port", "0", "health check port is required"},
	}
	for _, tt := range tests {
		t.Run(tt.omit, func(t *testing.T) {
			set := requiredFlagSet(t)
			require.NoError(t, set.Set(tt.omit, tt.zero))
			cliCtx := cli.NewContext(&cli.App{}, set, nil)
			_, err := Load(cliCtx)
			require.ErrorContains(t, tt.wantErr, err)
		})
	}
}

func TestLoad_MonitoringEnabledByPort(t *testing.T) {
	set := requiredFlagSet(t)
	set.String("monitoring-host", "127.0.0.1", "")
	set.Int("monitoring-port", 8080, "")
	cliCtx := cli.NewContext(&cli.App{}, set, nil)
	cfg, err := Load(cliCtx)
	require.NoError(t, err)
	require.NotNil(t, cfg.Monitoring)
	assert.Equal(t, 8080, cfg.Monitoring.Port)
}

func TestDebugNamespaceEnabled(t *testing.T) {
	cfg := &Config{}
	cfg.Optional.APINamespaces = []string{"eth", "net"}
	assert.Equal(t, false, cfg.DebugNamespaceEnabled())
	cfg.Optional.APINamespaces = []string{"eth", "debug"}
	assert.Equal(t, true, cfg.DebugNamespaceEnabled())
}
