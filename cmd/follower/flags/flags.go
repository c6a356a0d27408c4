// Package flags defines follower node specific command line flags.
package flags

import (
	"time"

	"github.com/urfave/cli/v2"
)

var (
	// ComponentsFlag selects which node components to run.
	ComponentsFlag = &cli.StringFlag{
		Name:  "components",
		Usage: "Comma-separated list of node components to run (core, tree, tree_api, tree_fetcher, http_api, ws_api).",
		Value: "core",
	}
	// MainNodeURLFlag defines the JSON-RPC endpoint of the upstream main node.
	MainNodeURLFlag = &cli.StringFlag{
		Name:  "main-node-url",
		Usage: "JSON-RPC endpoint of the main node the follower replicates from.",
	}
	// MainNodeRateLimitFlag caps outgoing requests to the main node.
	MainNodeRateLimitFlag = &cli.Int64Flag{
		Name:  "main-node-rate-limit",
		Usage: "Maximum requests per second issued to the main node.",
		Value: 100,
	}
	// L1EndpointFlag defines the JSON-RPC endpoint of the L1 chain.
	L1EndpointFlag = &cli.StringFlag{
		Name:  "l1-endpoint",
		Usage: "JSON-RPC endpoint of the L1 chain used for consistency verification.",
	}
	// L2ChainIDFlag defines the chain id of the replicated rollup chain.
	L2ChainIDFlag = &cli.Uint64Flag{
		Name:  "l2-chain-id",
		Usage: "Chain id of the rollup chain this node follows.",
	}
	// L1ChainIDFlag defines the chain id of the L1 chain.
	L1ChainIDFlag = &cli.Uint64Flag{
		Name:  "l1-chain-id",
		Usage: "Chain id of the L1 chain the rollup commits to.",
		Value: 1,
	}
	// DatabaseURLFlag defines the postgres connection URL.
	DatabaseURLFlag = &cli.StringFlag{
		Name:  "database-url",
		Usage: "Postgres connection URL for the node state database.",
	}
	// DatabaseMaxConnectionsFlag caps the connection pool size.
	DatabaseMaxConnectionsFlag = &cli.IntFlag{
		Name:  "database-max-connections",
		Usage: "Maximum number of connections held by each database pool.",
		Value: 50,
	}
	// SlowQueryThresholdFlag defines when a query is reported as slow.
	SlowQueryThresholdFlag = &cli.DurationFlag{
		Name:  "database-slow-query-threshold",
		Usage: "Queries slower than this threshold are logged as slow.",
		Value: 3 * time.Second,
	}
	// HealthCheckPortFlag defines the port of the health check server.
	HealthCheckPortFlag = &cli.IntFlag{
		Name:  "healthcheck-port",
		Usage: "Port serving aggregated component health checks.",
		Value: 3081,
	}
	// HealthCheckSlowLimitFlag defines when a health response is logged as slow.
	HealthCheckSlowLimitFlag = &cli.DurationFlag{
		Name:  "healthcheck-slow-time-limit",
		Usage: "Health responses slower than this are logged as slow.",
		Value: 3 * time.Second,
	}
	// HealthCheckHardLimitFlag bounds a health check response.
	HealthCheckHardLimitFlag = &cli.DurationFlag{
		Name:  "healthcheck-hard-time-limit",
		Usage: "Hard deadline for a single health check response.",
		Value: 10 * time.Second,
	}
	// SealQueueCapacityFlag bounds the block seal queue of the persistence stage.
	SealQueueCapacityFlag = &cli.IntFlag{
		Name:  "seal-queue-capacity",
		Usage: "Capacity of the block seal queue; backpressures replication when full.",
		Value: 10,
	}
	// ProtectiveReadsFlag enables persistence of protective reads.
	ProtectiveReadsFlag = &cli.BoolFlag{
		Name:  "protective-reads-persistence",
		Usage: "Persist protective reads so reads can be revalidated without re-execution.",
	}
	// APINamespacesFlag lists the enabled API namespaces.
	APINamespacesFlag = &cli.StringFlag{
		Name:  "api-namespaces",
		Usage: "Comma-separated list of enabled API namespaces (eth, net, web3, debug).",
		Value: "eth,net,web3",
	}
	// HTTPPortFlag defines the port of the HTTP API server.
	HTTPPortFlag = &cli.IntFlag{
		Name:  "http-port",
		Usage: "Port of the HTTP read API.",
		Value: 3060,
	}
	// WSPortFlag defines the port of the WebSocket API server.
	WSPortFlag = &cli.IntFlag{
		Name:  "ws-port",
		Usage: "Port of the WebSocket read API.",
		Value: 3061,
	}
	// PruningEnabledFlag turns on historical state pruning.
	PruningEnabledFlag = &cli.BoolFlag{
		Name:  "pruning-enabled",
		Usage: "Enable removal of historical state outside the retention window.",
	}
	// PruningRemovalDelayFlag defines the pause between pruning passes.
	PruningRemovalDelayFlag = &cli.DurationFlag{
		Name:  "pruning-removal-delay",
		Usage: "Delay between pruning iterations.",
		Value: time.Minute,
	}
	// PruningChunkSizeFlag defines how many batches one pruning pass removes.
	PruningChunkSizeFlag = &cli.Uint64Flag{
		Name:  "pruning-chunk-size",
		Usage: "Number of batches pruned in a single pass.",
		Value: 10,
	}
	// PruningDataRetentionFlag defines how much history is kept.
	PruningDataRetentionFlag = &cli.DurationFlag{
		Name:  "pruning-data-retention",
		Usage: "How long batch data is retained before becoming prunable.",
		Value: time.Hour,
	}
	// CommitmentModeFlag selects the batch commitment data generator mode.
	CommitmentModeFlag = &cli.StringFlag{
		Name:  "l1-batch-commit-data-generator-mode",
		Usage: "Batch commitment mode, must match the deployed L1 contract (rollup, validium).",
		Value: "rollup",
	}
	// CommitmentParallelismFlag caps the commitment generator parallelism.
	CommitmentParallelismFlag = &cli.IntFlag{
		Name:  "commitment-generator-max-parallelism",
		Usage: "Maximum number of batches the commitment generator processes concurrently.",
		Value: 10,
	}
	// StateCacheBlockCapacityFlag tunes the replication driver block cache.
	StateCacheBlockCapacityFlag = &cli.IntFlag{
		Name:  "state-cache-block-capacity",
		Usage: "Number of blocks held by the replication driver cache.",
		Value: 128,
	}
	// StateCacheMaxOpenFilesFlag bounds open file handles of the state cache.
	StateCacheMaxOpenFilesFlag = &cli.IntFlag{
		Name:  "state-cache-max-open-files",
		Usage: "Maximum open file handles used by the local state cache.",
		Value: 512,
	}
	// ConsensusSecretsFlag points at the consensus secret store.
	ConsensusSecretsFlag = &cli.StringFlag{
		Name:  "consensus-secrets-path",
		Usage: "Path to the yaml file holding consensus key material.",
	}
	// ConsensusPublicAddrFlag is the address advertised to consensus peers.
	ConsensusPublicAddrFlag = &cli.StringFlag{
		Name:  "consensus-public-addr",
		Usage: "Public address advertised to the consensus network.",
	}
)
