package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/syncstack/follower/shared/testutil/assert"
	"github.com/syncstack/follower/shared/testutil/require"
)

func TestReadConsensusSecrets_MissingPath(t *testing.T) {
	_, err := ReadConsensusSecrets("")
	assert.ErrorContains(t, "consensus secrets path is not set", err)
}

func TestReadConsensusSecrets_MissingFile(t *testing.T) {
	_, err := ReadConsensusSecrets(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, "could not read consensus secrets", err)
}

func TestReadConsensusSecrets_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.yaml")
	// A bare scalar cannot unmarshal into the secrets mapping.
	require.NoError(t, os.WriteFile(path, []byte("not-a-map"), 0600))
	_, err := ReadConsensusSecrets(path)
	assert.ErrorContains(t, "could not unmarshal consensus secrets", err)
}

func TestReadConsensusSecrets_MissingNodeKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.yaml")
	require.NoError(t, os.WriteFile(path, []byte("validator_key: abc\n"), 0600))
	_, err := ReadConsensusSecrets(path)
	assert.ErrorContains(t, "missing the node key", err)
}

func TestReadConsensusSecrets_OK(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.yaml")
	require.NoError(t, os.WriteFile(path, []byte("validator_key: abc\nnode_key: def\n"), 0600))
	secrets, err := ReadConsensusSecrets(path)
	require.NoError(t, err)
	assert.Equal(t, "abc", secrets.ValidatorKey)
	assert.Equal(t, "def", secrets.NodeKey)
}
