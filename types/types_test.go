package types

import (
	"testing"

	"github.com/syncstack/follower/shared/testutil/assert"
	"github.com/syncstack/follower/shared/testutil/require"
)

func TestParseCommitmentMode(t *testing.T) {
	mode, err := ParseCommitmentMode("rollup")
	require.NoError(t, err)
	assert.Equal(t, CommitmentModeRollup, mode)

	mode, err = ParseCommitmentMode("validium")
	require.NoError(t, err)
	assert.Equal(t, CommitmentModeValidium, mode)

	_, err = ParseCommitmentMode("plasma")
	require.ErrorContains(t, "unknown commitment mode", err)
}
