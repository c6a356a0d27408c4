// Package config holds the follower node configuration surface. The bundle
// is grouped the way the node consumes it: required values that must be set,
// optional values with defaults, remote values derived from the chain itself,
// and experimental tunables.
package config

import (
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/syncstack/follower/cmd/follower/flags"
	"github.com/syncstack/follower/shared/cmd"
	"github.com/syncstack/follower/types"
)

// Required holds values without which the node cannot run at all.
type Required struct {
	MainNodeURL     string
	L1EndpointURL   string
	L2ChainID       uint64
	L1ChainID       uint64
	HealthCheckPort int
	DatabaseURL     string
	StateCachePath  string
}

// Optional holds values with usable defaults.
type Optional struct {
	MainNodeRateLimitRPS       int64
	DatabaseMaxConnections     int
	SlowQueryThreshold         time.Duration
	HealthCheckSlowTimeLimit   time.Duration
	HealthCheckHardTimeLimit   time.Duration
	SealQueueCapacity          int
	ProtectiveReadsPersistence bool
	APINamespaces              []string
	HTTPPort                   int
	WSPort                     int
	PruningEnabled             bool
	PruningRemovalDelay        time.Duration
	PruningChunkSize           uint64
	PruningDataRetention       time.Duration
	CommitmentMode             types.CommitmentMode
}

// Remote holds values derived from the chain rather than local flags. They
// are fetched from the main node once the upstream client exists.
type Remote struct {
	// BridgeAddr is the shared bridge contract on L2 that sealed blocks
	// reference.
	BridgeAddr common.Address
	// DiamondProxyAddr is the rollup contract on L1 that batch
	// commitments are recorded against.
	DiamondProxyAddr common.Address
}

// Experimental holds tunables that are subject to change between releases.
type Experimental struct {
	StateCacheBlockCapacity        int
	StateCacheMaxOpenFiles         int
	CommitmentGeneratorParallelism int
}

// Consensus holds the consensus participation settings. Key material lives
// in a separate secret store, see secrets.go.
type Consensus struct {
	SecretsPath string
	PublicAddr  string
}

// Monitoring holds the optional prometheus exporter settings. A nil value
// disables the exporter.
type Monitoring struct {
	Host string
	Port int
}

// Config is the full follower node configuration. It is read-only once
// loaded; only the node builder holds it during assembly.
type Config struct {
	Required     Required
	Optional     Optional
	Remote       *Remote
	Experimental Experimental
	Consensus    Consensus
	Monitoring   *Monitoring
	DataDir      string
}

// Load builds the configuration from CLI flag values and validates the
// required group. Remote values are left unset; they are fetched against the
// live chain during node assembly.
func Load(cliCtx *cli.Context) (*Config, error) {
	cfg := &Config{
		Required: Required{
			MainNodeURL:     cliCtx.String(flags.MainNodeURLFlag.Name),
			L1EndpointURL:   cliCtx.String(flags.L1EndpointFlag.Name),
			L2ChainID:       cliCtx.Uint64(flags.L2ChainIDFlag.Name),
			L1ChainID:       cliCtx.Uint64(flags.L1ChainIDFlag.Name),
			HealthCheckPort: cliCtx.Int(flags.HealthCheckPortFlag.Name),
			DatabaseURL:     cliCtx.String(flags.DatabaseURLFlag.Name),
			StateCachePath:  cliCtx.String(cmd.DataDirFlag.Name),
		},
		Optional: Optional{
			MainNodeRateLimitRPS:       cliCtx.Int64(flags.MainNodeRateLimitFlag.Name),
			DatabaseMaxConnections:     cliCtx.Int(flags.DatabaseMaxConnectionsFlag.Name),
			SlowQueryThreshold:         cliCtx.Duration(flags.SlowQueryThresholdFlag.Name),
			HealthCheckSlowTimeLimit:   cliCtx.Duration(flags.HealthCheckSlowLimitFlag.Name),
			HealthCheckHardTimeLimit:   cliCtx.Duration(flags.HealthCheckHardLimitFlag.Name),
			SealQueueCapacity:          cliCtx.Int(flags.SealQueueCapacityFlag.Name),
			ProtectiveReadsPersistence: cliCtx.Bool(flags.ProtectiveReadsFlag.Name),
			APINamespaces:              splitNamespaces(cliCtx.String(flags.APINamespacesFlag.Name)),
			HTTPPort:                   cliCtx.Int(flags.HTTPPortFlag.Name),
			WSPort:                     cliCtx.Int(flags.WSPortFlag.Name),
			PruningEnabled:             cliCtx.Bool(flags.PruningEnabledFlag.Name),
			PruningRemovalDelay:        cliCtx.Duration(flags.PruningRemovalDelayFlag.Name),
			PruningChunkSize:           cliCtx.Uint64(flags.PruningChunkSizeFlag.Name),
			PruningDataRetention:       cliCtx.Duration(flags.PruningDataRetentionFlag.Name),
		},
		Experimental: Experimental{
			StateCacheBlockCapacity:        cliCtx.Int(flags.StateCacheBlockCapacityFlag.Name),
			StateCacheMaxOpenFiles:         cliCtx.Int(flags.StateCacheMaxOpenFilesFlag.Name),
			CommitmentGeneratorParallelism: cliCtx.Int(flags.CommitmentParallelismFlag.Name),
		},
		Consensus: Consensus{
			SecretsPath: cliCtx.String(flags.ConsensusSecretsFlag.Name),
			PublicAddr:  cliCtx.String(flags.ConsensusPublicAddrFlag.Name),
		},
		DataDir: cliCtx.String(cmd.DataDirFlag.Name),
	}

	mode, err := types.ParseCommitmentMode(cliCtx.String(flags.CommitmentModeFlag.Name))
	if err != nil {
		return nil, errors.Wrap(err, "could not parse commitment mode")
	}
	cfg.Optional.CommitmentMode = mode

	if port := cliCtx.Int(cmd.MonitoringPortFlag.Name); port > 0 {
		cfg.Monitoring = &Monitoring{
			Host: cliCtx.String(cmd.MonitoringHostFlag.Name),
			Port: port,
		}
	}

	if err := cfg.validateRequired(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validateRequired() error {
	switch {
	case c.Required.MainNodeURL == "":
		return errors.New("main node URL is required")
	case c.Required.L1EndpointURL == "":
		return errors.New("L1 endpoint URL is required")
	case c.Required.L2ChainID == 0:
		return errors.New("L2 chain id is required")
	case c.Required.L1ChainID == 0:
		return errors.New("L1 chain id is required")
	case c.Required.DatabaseURL == "":
		return errors.New("database URL is required")
	case c.Required.HealthCheckPort == 0:
		return errors.New("health check port is required")
	}
	return nil
}

// DebugNamespaceEnabled reports whether the debug API namespace was enabled.
// The batch executor only captures call traces when it is.
func (c *Config) DebugNamespaceEnabled() bool {
	for _, ns := range c.Optional.APINamespaces {
		if ns == "debug" {
			return true
		}
	}
	return false
}

func splitNamespaces(raw string) []string {
	var out []string
	for _, ns := range strings.Split(raw, ",") {
		ns = strings.TrimSpace(ns)
		if ns != "" {
			out = append(out, ns)
		}
	}
	return out
}
