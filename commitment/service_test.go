package commitment

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/syncstack/follower/shared/testutil/assert"
	"github.com/syncstack/follower/types"
)

func TestDigest_ModeChangesTheCommitment(t *testing.T) {
	payload := []byte("batch payload")

	rollup := Digest(types.CommitmentModeRollup, payload)
	assert.Equal(t, crypto.Keccak256Hash(payload), rollup)

	// Validium keeps pubdata off L1, committing to a hash of the hash.
	validium := Digest(types.CommitmentModeValidium, payload)
	assert.Equal(t, crypto.Keccak256Hash(crypto.Keccak256(payload)), validium)

	assert.NotEqual(t, rollup, validium)
}

func TestDigest_Deterministic(t *testing.T) {
	payload := []byte("batch payload")
	assert.Equal(t, Digest(types.CommitmentModeRollup, payload), Digest(types.CommitmentModeRollup, payload))
}
