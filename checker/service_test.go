package checker

import (
	"testing"

	"github.com/syncstack/follower/shared/testutil/assert"
	"github.com/syncstack/follower/types"
)

func TestRecheckWindow(t *testing.T) {
	tests := []struct {
		sealed   types.L1BatchNumber
		wantFrom types.L1BatchNumber
		wantTo   types.L1BatchNumber
	}{
		{sealed: 0, wantFrom: 0, wantTo: 0},
		{sealed: 1, wantFrom: 1, wantTo: 1},
		{sealed: 5, wantFrom: 1, wantTo: 5},
		{sealed: 10, wantFrom: 1, wantTo: 10},
		{sealed: 11, wantFrom: 2, wantTo: 11},
		{sealed: 1000, wantFrom: 991, wantTo: 1000},
	}
	for _, tt := range tests {
		from, to := RecheckWindow(tt.sealed)
		assert.Equal(t, tt.wantFrom, from, "sealed=%d", tt.sealed)
		assert.Equal(t, tt.wantTo, to, "sealed=%d", tt.sealed)
	}
}
