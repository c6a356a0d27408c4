// Package eth implements the query client for the L1 chain. The follower
// uses it to cross-check locally replicated batches against what the rollup
// contract on L1 actually recorded.
package eth

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"

	"github.com/syncstack/follower/types"
)

// Client wraps an ethclient scoped to the L1 chain id.
type Client struct {
	ec      *ethclient.Client
	chainID uint64
}

// Dial connects to the L1 endpoint.
func Dial(ctx context.Context, chainID uint64, endpointURL string) (*Client, error) {
	ec, err := ethclient.DialContext(ctx, endpointURL)
	if err != nil {
		return nil, errors.Wrapf(err, "could not dial L1 endpoint at %s", endpointURL)
	}
	return &Client{ec: ec, chainID: chainID}, nil
}

// ChainID returns the chain id this client is scoped to.
func (c *Client) ChainID() uint64 {
	return c.chainID
}

// RemoteChainID queries the chain id the connected endpoint actually reports.
func (c *Client) RemoteChainID(ctx context.Context) (uint64, error) {
	id, err := c.ec.ChainID(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "could not fetch L1 chain id")
	}
	return id.Uint64(), nil
}

// CommitmentMode reads the commitment mode the deployed rollup contract was
// configured with.
func (c *Client) CommitmentMode(ctx context.Context, contract common.Address) (types.CommitmentMode, error) {
	out, err := c.callContract(ctx, contract, "getPubdataPricingMode()")
	if err != nil {
		return "", errors.Wrap(err, "could not read contract commitment mode")
	}
	if len(out) < 32 {
		return "", errors.Errorf("unexpected contract response length %d", len(out))
	}
	if new(big.Int).SetBytes(out[:32]).Sign() == 0 {
		return types.CommitmentModeRollup, nil
	}
	return types.CommitmentModeValidium, nil
}

// StoredBatchCommitment reads the commitment recorded on L1 for a batch. A
// zero hash means the batch is not committed yet.
func (c *Client) StoredBatchCommitment(ctx context.Context, contract common.Address, number types.L1BatchNumber) (common.Hash, error) {
	out, err := c.callContract(ctx, contract, "storedBatchHash(uint256)", common.BigToHash(new(big.Int).SetUint64(uint64(number))).Bytes()...)
	if err != nil {
		return common.Hash{}, errors.Wrapf(err, "could not read stored commitment of batch %d", number)
	}
	return common.BytesToHash(out), nil
}

// TotalBatchesCommitted reads how many batches the rollup contract has seen.
func (c *Client) TotalBatchesCommitted(ctx context.Context, contract common.Address) (types.L1BatchNumber, error) {
	out, err := c.callContract(ctx, contract, "getTotalBatchesCommitted()")
	if err != nil {
		return 0, errors.Wrap(err, "could not read total committed batches")
	}
	return types.L1BatchNumber(new(big.Int).SetBytes(out).Uint64()), nil
}

func (c *Client) callContract(ctx context.Context, contract common.Address, signature string, args ...byte) ([]byte, error) {
	data := crypto.Keccak256([]byte(signature))[:4]
	data = append(data, args...)
	return c.ec.CallContract(ctx, ethereum.CallMsg{
		To:   &contract,
		Data: data,
	}, nil)
}

// Close tears down the underlying connection.
func (c *Client) Close() {
	c.ec.Close()
}
