// Package types defines the domain objects shared across the follower's
// subsystems: batch and block numbers, commitment modes, and the envelopes
// handed between the replication pipeline stages.
package types

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// L1BatchNumber is the sequence number of a batch committed to L1.
type L1BatchNumber uint64

// L2BlockNumber is the sequence number of an L2 block within the rollup chain.
type L2BlockNumber uint64

// CommitmentMode describes how batch commitment data is generated for L1.
type CommitmentMode string

const (
	// CommitmentModeRollup publishes full pubdata on L1.
	CommitmentModeRollup CommitmentMode = "rollup"
	// CommitmentModeValidium publishes state diff hashes only.
	CommitmentModeValidium CommitmentMode = "validium"
)

// Valid reports whether the mode is a member of the closed enumeration.
func (m CommitmentMode) Valid() bool {
	return m == CommitmentModeRollup || m == CommitmentModeValidium
}

func (m CommitmentMode) String() string {
	return string(m)
}

// ParseCommitmentMode converts a configuration string into a CommitmentMode.
func ParseCommitmentMode(s string) (CommitmentMode, error) {
	m := CommitmentMode(s)
	if !m.Valid() {
		return "", fmt.Errorf("unknown commitment mode: %q", s)
	}
	return m, nil
}

// Transaction is a replayed upstream transaction. The follower never builds
// transactions of its own; it re-executes what the main node already sealed.
type Transaction struct {
	Hash               common.Hash
	RawData            []byte
	BytecodeCompressed bool
}

// Block is an ordered group of transactions within a batch.
type Block struct {
	Number       L2BlockNumber
	Timestamp    uint64
	Transactions []Transaction
}

// BatchEnvelope is the unit of work flowing through the replication
// pipeline: the input feed produces envelopes in batch-number order, the
// executor re-executes them, and the persistence stage seals them.
type BatchEnvelope struct {
	Number    L1BatchNumber
	Blocks    []Block
	StateRoot common.Hash
	// CallTraces is populated by the executor only when trace capture
	// is enabled.
	CallTraces [][]byte
	// ProtectiveReads carries the data needed to re-validate reads
	// without re-execution, when persistence of protective reads is on.
	ProtectiveReads [][]byte
}

// BatchCommitment is the output of the commitment generator for one batch.
type BatchCommitment struct {
	Number     L1BatchNumber
	Mode       CommitmentMode
	Commitment common.Hash
}

// BatchStatus mirrors the upstream-reported lifecycle stage of a batch.
type BatchStatus string

const (
	// BatchSealed means the batch is sealed locally but not yet on L1.
	BatchSealed BatchStatus = "sealed"
	// BatchCommitted means the batch commitment is recorded on L1.
	BatchCommitted BatchStatus = "committed"
	// BatchProven means the validity proof was verified on L1.
	BatchProven BatchStatus = "proven"
	// BatchExecuted means the batch is final on L1.
	BatchExecuted BatchStatus = "executed"
)
