// Package mainnode implements the JSON-RPC client for the upstream main
// node. Every subsystem that replays or reconciles chain data goes through
// this client, which enforces a request rate limit so that one follower
// cannot overload the upstream authority.
package mainnode

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/kevinms/leakybucket-go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/syncstack/follower/types"
)

var log = logrus.WithField("prefix", "mainnode")

const rateLimiterKey = "main-node"

// Config holds the client construction parameters.
type Config struct {
	EndpointURL  string
	RateLimitRPS int64
	ChainID      uint64
}

// Client is a rate-limited JSON-RPC client scoped to the rollup chain id.
type Client struct {
	rpcClient *rpc.Client
	limiter   *leakybucket.Collector
	chainID   uint64
}

// Dial connects to the main node endpoint.
func Dial(ctx context.Context, cfg *Config) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, cfg.EndpointURL)
	if err != nil {
		return nil, errors.Wrapf(err, "could not dial main node at %s", cfg.EndpointURL)
	}
	rps := cfg.RateLimitRPS
	if rps <= 0 {
		rps = 100
	}
	return &Client{
		rpcClient: rpcClient,
		limiter:   leakybucket.NewCollector(float64(rps), rps, false),
		chainID:   cfg.ChainID,
	}, nil
}

// ChainID returns the chain id this client is scoped to.
func (c *Client) ChainID() uint64 {
	return c.chainID
}

// RemoteChainID queries the chain id the connected endpoint actually reports.
func (c *Client) RemoteChainID(ctx context.Context) (uint64, error) {
	var result hexutil.Big
	if err := c.call(ctx, &result, "eth_chainId"); err != nil {
		return 0, errors.Wrap(err, "could not fetch main node chain id")
	}
	return (*big.Int)(&result).Uint64(), nil
}

// LatestSealedBatch returns the number of the newest batch sealed upstream.
func (c *Client) LatestSealedBatch(ctx context.Context) (types.L1BatchNumber, error) {
	var result hexutil.Uint64
	if err := c.call(ctx, &result, "sync_latestSealedBatch"); err != nil {
		return 0, errors.Wrap(err, "could not fetch latest sealed batch")
	}
	return types.L1BatchNumber(result), nil
}

// FetchBatch returns the full batch envelope for replay, or nil if the batch
// is not sealed upstream yet.
func (c *Client) FetchBatch(ctx context.Context, number types.L1BatchNumber) (*types.BatchEnvelope, error) {
	var result *types.BatchEnvelope
	if err := c.call(ctx, &result, "sync_getBatch", hexutil.Uint64(number)); err != nil {
		return nil, errors.Wrapf(err, "could not fetch batch %d", number)
	}
	return result, nil
}

// BatchStatus returns the upstream-reported lifecycle status of a batch.
func (c *Client) BatchStatus(ctx context.Context, number types.L1BatchNumber) (types.BatchStatus, error) {
	var result string
	if err := c.call(ctx, &result, "sync_batchStatus", hexutil.Uint64(number)); err != nil {
		return "", errors.Wrapf(err, "could not fetch status of batch %d", number)
	}
	return types.BatchStatus(result), nil
}

// TreeRoot returns the externally computed tree root for a batch.
func (c *Client) TreeRoot(ctx context.Context, number types.L1BatchNumber) (common.Hash, error) {
	var result common.Hash
	if err := c.call(ctx, &result, "sync_treeRoot", hexutil.Uint64(number)); err != nil {
		return common.Hash{}, errors.Wrapf(err, "could not fetch tree root of batch %d", number)
	}
	return result, nil
}

// BridgeContracts returns the chain-derived contract addresses: the L2
// shared bridge and the L1 rollup contract.
func (c *Client) BridgeContracts(ctx context.Context) (bridge, diamondProxy common.Address, err error) {
	var result struct {
		Bridge       common.Address `json:"bridge"`
		DiamondProxy common.Address `json:"diamondProxy"`
	}
	if err := c.call(ctx, &result, "sync_bridgeContracts"); err != nil {
		return common.Address{}, common.Address{}, errors.Wrap(err, "could not fetch bridge contracts")
	}
	return result.Bridge, result.DiamondProxy, nil
}

// call issues a JSON-RPC request once the rate limiter admits it.
func (c *Client) call(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	for c.limiter.Add(rateLimiterKey, 1) == 0 {
		timer := time.NewTimer(c.limiter.TillEmpty(rateLimiterKey))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
	return c.rpcClient.CallContext(ctx, result, method, args...)
}

// Close tears down the underlying RPC connection.
func (c *Client) Close() {
	c.rpcClient.Close()
}

// String implements fmt.Stringer for diagnostics.
func (c *Client) String() string {
	return fmt.Sprintf("main node client (chain id %d)", c.chainID)
}
