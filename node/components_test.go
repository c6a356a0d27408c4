package node

import (
	"testing"

	"github.com/syncstack/follower/shared/testutil/assert"
	"github.com/syncstack/follower/shared/testutil/require"
)

func TestParseComponents(t *testing.T) {
	set, err := parseComponents("core, tree,tree_api")
	require.NoError(t, err)
	assert.DeepEqual(t, []Component{ComponentCore, ComponentTreeBuilder, ComponentTreeAPI}, set)

	// Duplicates collapse.
	set, err = parseComponents("core,core,http_api")
	require.NoError(t, err)
	assert.DeepEqual(t, []Component{ComponentCore, ComponentHTTPAPI}, set)

	_, err = parseComponents("core,flux_capacitor")
	require.ErrorContains(t, `unknown component "flux_capacitor"`, err)

	_, err = parseComponents(" , ")
	require.ErrorContains(t, "at least one component", err)
}

func TestValidateComponents(t *testing.T) {
	require.NoError(t, validateComponents([]Component{ComponentCore}))
	require.NoError(t, validateComponents([]Component{ComponentCore, ComponentTreeBuilder, ComponentTreeAPI}))
	require.NoError(t, validateComponents([]Component{ComponentCore, ComponentTreeFetcher}))

	err := validateComponents([]Component{ComponentTreeBuilder})
	require.ErrorContains(t, "tree must run on the same machine as core", err)

	// tree without core fails on the co-requirement even when tree_api is
	// also illegal; the first violation wins.
	err = validateComponents([]Component{ComponentTreeBuilder, ComponentTreeAPI})
	require.ErrorContains(t, "tree must run on the same machine as core", err)

	err = validateComponents([]Component{ComponentCore, ComponentTreeAPI})
	require.ErrorContains(t, "tree_api requires the tree component", err)
}

func TestSortComponents_APIServersLast(t *testing.T) {
	in := []Component{ComponentHTTPAPI, ComponentCore, ComponentWSAPI, ComponentTreeFetcher}
	got := sortComponents(in)
	assert.DeepEqual(t, []Component{ComponentCore, ComponentTreeFetcher, ComponentHTTPAPI, ComponentWSAPI}, got)

	// Input order among producers and among consumers is preserved.
	in = []Component{ComponentWSAPI, ComponentTreeFetcher, ComponentHTTPAPI, ComponentCore}
	got = sortComponents(in)
	assert.DeepEqual(t, []Component{ComponentTreeFetcher, ComponentCore, ComponentWSAPI, ComponentHTTPAPI}, got)

	// The input slice is not mutated.
	assert.Equal(t, ComponentWSAPI, in[0])
}

func TestSortComponents_Deterministic(t *testing.T) {
	in := []Component{ComponentCore, ComponentTreeBuilder, ComponentHTTPAPI}
	first := sortComponents(in)
	second := sortComponents(in)
	assert.DeepEqual(t, first, second)
}
