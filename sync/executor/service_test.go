package executor

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/syncstack/follower/shared/testutil/assert"
	"github.com/syncstack/follower/shared/testutil/require"
	"github.com/syncstack/follower/types"
)

func envelopeWithTxs(number types.L1BatchNumber, txs ...types.Transaction) *types.BatchEnvelope {
	var digest []byte
	for _, tx := range txs {
		digest = append(digest, tx.Hash.Bytes()...)
	}
	return &types.BatchEnvelope{
		Number:    number,
		StateRoot: crypto.Keccak256Hash(digest),
		Blocks: []types.Block{
			{Number: types.L2BlockNumber(number), Transactions: txs},
		},
	}
}

func TestExecute_AcceptsValidBatch(t *testing.T) {
	svc := NewService(context.Background(), &Config{OptionalBytecodeCompression: true})
	env := envelopeWithTxs(1,
		types.Transaction{Hash: common.HexToHash("0x01"), BytecodeCompressed: true},
		types.Transaction{Hash: common.HexToHash("0x02"), BytecodeCompressed: true},
	)
	require.NoError(t, svc.execute(env))
}

func TestExecute_ToleratesUncompressedBytecode(t *testing.T) {
	// Historical batches predate mandatory compression, so the follower
	// runs with compression optional.
	svc := NewService(context.Background(), &Config{OptionalBytecodeCompression: true})
	env := envelopeWithTxs(1, types.Transaction{Hash: common.HexToHash("0x01")})
	require.NoError(t, svc.execute(env))

	strict := NewService(context.Background(), &Config{})
	err := strict.execute(env)
	require.ErrorContains(t, "lacks bytecode compression", err)
}

func TestExecute_StateRootMismatch(t *testing.T) {
	svc := NewService(context.Background(), &Config{OptionalBytecodeCompression: true})
	env := envelopeWithTxs(7, types.Transaction{Hash: common.HexToHash("0x01")})
	env.StateRoot = common.HexToHash("0xdead")
	err := svc.execute(env)
	require.ErrorContains(t, "state root mismatch after replay", err)
}

func TestExecute_CallTracesOnlyWhenRequested(t *testing.T) {
	tx := types.Transaction{Hash: common.HexToHash("0x01"), RawData: []byte("payload"), BytecodeCompressed: true}

	svc := NewService(context.Background(), &Config{OptionalBytecodeCompression: true})
	env := envelopeWithTxs(1, tx)
	require.NoError(t, svc.execute(env))
	assert.Equal(t, 0, len(env.CallTraces))

	tracing := NewService(context.Background(), &Config{OptionalBytecodeCompression: true, SaveCallTraces: true})
	env = envelopeWithTxs(1, tx)
	require.NoError(t, tracing.execute(env))
	assert.Equal(t, 1, len(env.CallTraces))
}
