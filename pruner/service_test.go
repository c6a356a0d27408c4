package pruner

import (
	"testing"

	"github.com/syncstack/follower/shared/testutil/assert"
	"github.com/syncstack/follower/types"
)

func TestPrunableUpTo(t *testing.T) {
	tests := []struct {
		name   string
		sealed types.L1BatchNumber
		pruned types.L1BatchNumber
		retain uint64
		want   types.L1BatchNumber
	}{
		{"nothing sealed", 0, 0, 100, 0},
		{"everything inside retention", 50, 0, 100, 0},
		{"window advanced", 150, 0, 100, 50},
		{"already pruned past window", 150, 60, 100, 60},
		{"no retention", 10, 0, 0, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PrunableUpTo(tt.sealed, tt.pruned, tt.retain))
		})
	}
}
