package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// ConsensusSecrets is the key material read from the consensus secret store.
type ConsensusSecrets struct {
	ValidatorKey string `yaml:"validator_key"`
	NodeKey      string `yaml:"node_key"`
}

// ReadConsensusSecrets loads consensus key material from the secret store at
// the given path. Any failure here is fatal to node assembly; consensus
// participation cannot start without keys.
func ReadConsensusSecrets(path string) (*ConsensusSecrets, error) {
	if path == "" {
		return nil, errors.New("consensus secrets path is not set")
	}
	raw, err := os.ReadFile(path) // #nosec G304 -- operator-provided path
	if err != nil {
		return nil, errors.Wrapf(err, "could not read consensus secrets at %s", path)
	}
	secrets := &ConsensusSecrets{}
	if err := yaml.Unmarshal(raw, secrets); err != nil {
		return nil, errors.Wrap(err, "could not unmarshal consensus secrets")
	}
	if secrets.NodeKey == "" {
		return nil, errors.New("consensus secrets are missing the node key")
	}
	return secrets, nil
}
