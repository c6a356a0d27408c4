// Package api serves the follower's read API over HTTP and WebSocket. Both
// servers expose the same JSON-RPC surface backed by the replicated local
// state; neither accepts writes, a follower has nothing to write.
package api

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/syncstack/follower/client/mainnode"
	"github.com/syncstack/follower/db"
	"github.com/syncstack/follower/merkle"
	"github.com/syncstack/follower/sync/driver"
	"github.com/syncstack/follower/types"
)

// Backend bundles the resources the API servers read from: the database
// pools, the replication driver's cache, the upstream client, and the tree
// handle when the tree component runs in this process.
type Backend struct {
	Pools  *db.PoolSet
	Driver *driver.Service
	Client *mainnode.Client
	// Tree is nil when neither tree nor tree_api was selected.
	Tree *merkle.Service
}

// FollowerAPI is the JSON-RPC receiver registered under the "follower"
// namespace.
type FollowerAPI struct {
	b *Backend
}

// NewFollowerAPI builds the RPC receiver.
func NewFollowerAPI(b *Backend) *FollowerAPI {
	return &FollowerAPI{b: b}
}

// LastSealedBatch returns the number of the newest locally sealed batch.
func (api *FollowerAPI) LastSealedBatch() uint64 {
	return uint64(api.b.Driver.LastSealed())
}

// GetBlock returns a replayed block from the driver cache or storage.
func (api *FollowerAPI) GetBlock(ctx context.Context, number uint64) (*types.Block, error) {
	if block, ok := api.b.Driver.CachedBlock(types.L2BlockNumber(number)); ok {
		return block, nil
	}
	if api.b.Pools == nil {
		return nil, nil
	}
	var timestamp int64
	row := api.b.Pools.QueryRow(ctx, "SELECT timestamp FROM l2_blocks WHERE number = $1", int64(number))
	if err := row.Scan(&timestamp); err != nil {
		return nil, errors.Wrapf(err, "could not load block %d", number)
	}
	return &types.Block{
		Number:    types.L2BlockNumber(number),
		Timestamp: uint64(timestamp),
	}, nil
}

// TreeRoot returns the Merkle tree root for a batch. It requires the tree
// component to run in this process.
func (api *FollowerAPI) TreeRoot(number uint64) (common.Hash, error) {
	if api.b.Tree == nil || !api.b.Tree.APIEnabled() {
		return common.Hash{}, errors.New("tree API is not enabled on this node")
	}
	root, ok := api.b.Tree.Root(types.L1BatchNumber(number))
	if !ok {
		return common.Hash{}, errors.Errorf("tree has not processed batch %d yet", number)
	}
	return root, nil
}

// SyncStatus reports how far behind the upstream head this node is.
func (api *FollowerAPI) SyncStatus(ctx context.Context) (map[string]uint64, error) {
	local := uint64(api.b.Driver.LastSealed())
	upstream, err := api.b.Client.LatestSealedBatch(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "could not fetch upstream head")
	}
	lag := uint64(0)
	if uint64(upstream) > local {
		lag = uint64(upstream) - local
	}
	return map[string]uint64{
		"localBatch":    local,
		"upstreamBatch": uint64(upstream),
		"lag":           lag,
	}, nil
}
