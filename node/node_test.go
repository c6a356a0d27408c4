package node

import (
	"flag"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/syncstack/follower/config"
	"github.com/syncstack/follower/shared/testutil/assert"
	"github.com/syncstack/follower/shared/testutil/require"
)

func newTestFlagSet(t *testing.T, components string) *flag.FlagSet {
	set := flag.NewFlagSet("test", 0)
	set.String("components", components, "")
	set.String("main-node-url", "http://localhost:3050", "")
	set.String("l1-endpoint", "http://localhost:8545", "")
	set.Uint64("l2-chain-id", 270, "")
	set.Uint64("l1-chain-id", 9, "")
	set.String("database-url", "postgres://localhost/follower", "")
	set.Int("healthcheck-port", 3081, "")
	set.String("datadir", t.TempDir(), "")
	set.String("l1-batch-commit-data-generator-mode", "rollup", "")
	return set
}

func TestNew_RejectsIllegalComponentSets(t *testing.T) {
	tests := []struct {
		components string
		wantErr    string
	}{
		{"tree", "tree must run on the same machine as core"},
		{"tree,tree_api", "tree must run on the same machine as core"},
		{"core,tree_api", "tree_api requires the tree component"},
		{"core,warp_drive", `unknown component "warp_drive"`},
	}
	for _, tt := range tests {
		t.Run(tt.components, func(t *testing.T) {
			app := cli.App{}
			cliCtx := cli.NewContext(&app, newTestFlagSet(t, tt.components), nil)
			// Validation fails before anything dials out, so the
			// build errors without a database or RPC endpoint.
			_, err := New(cliCtx)
			require.ErrorContains(t, tt.wantErr, err)
		})
	}
}

func TestNew_RejectsIncompleteConfiguration(t *testing.T) {
	app := cli.App{}
	set := flag.NewFlagSet("test", 0)
	set.String("components", "core", "")
	set.String("l1-batch-commit-data-generator-mode", "rollup", "")
	cliCtx := cli.NewContext(&app, set, nil)
	_, err := New(cliCtx)
	require.ErrorContains(t, "main node URL is required", err)
}

func TestLayerPlan_CoreWithTreeFetcher(t *testing.T) {
	cfg := &config.Config{}
	cfg.Optional.PruningEnabled = true
	got := layerPlan(sortComponents([]Component{ComponentCore, ComponentTreeFetcher}), cfg)
	assert.DeepEqual(t, []string{
		"healthcheck",
		"db_metrics", "persistence", "feed", "executor", "driver",
		"consensus", "pruner", "checker", "commitment", "batchstatus",
		"treefetcher",
	}, got)
}

func TestLayerPlan_PruningPresentOnlyWhenEnabled(t *testing.T) {
	cfg := &config.Config{}
	withoutPruning := layerPlan([]Component{ComponentCore}, cfg)
	for _, layer := range withoutPruning {
		assert.NotEqual(t, "pruner", layer)
	}

	cfg.Optional.PruningEnabled = true
	withPruning := layerPlan([]Component{ComponentCore}, cfg)
	assert.Equal(t, len(withoutPruning)+1, len(withPruning))
}

func TestLayerPlan_MonitoringPresentOnlyWhenConfigured(t *testing.T) {
	cfg := &config.Config{}
	plan := layerPlan([]Component{ComponentCore}, cfg)
	assert.NotEqual(t, "prometheus", plan[1])

	cfg.Monitoring = &config.Monitoring{Host: "127.0.0.1", Port: 8080}
	plan = layerPlan([]Component{ComponentCore}, cfg)
	assert.Equal(t, "prometheus", plan[1])
}

func TestLayerPlan_TreeAPIAddsNoLayers(t *testing.T) {
	cfg := &config.Config{}
	withTree := layerPlan([]Component{ComponentCore, ComponentTreeBuilder}, cfg)
	withTreeAPI := layerPlan([]Component{ComponentCore, ComponentTreeBuilder, ComponentTreeAPI}, cfg)
	assert.DeepEqual(t, withTree, withTreeAPI)
}

func TestLayerPlan_APIServersExpandLast(t *testing.T) {
	cfg := &config.Config{}
	set := sortComponents([]Component{ComponentHTTPAPI, ComponentWSAPI, ComponentCore})
	plan := layerPlan(set, cfg)
	assert.Equal(t, "ws_api", plan[len(plan)-1])
	assert.Equal(t, "http_api", plan[len(plan)-2])
}

func TestLayerPlan_Deterministic(t *testing.T) {
	cfg := &config.Config{}
	cfg.Optional.PruningEnabled = true
	set := sortComponents([]Component{ComponentCore, ComponentTreeBuilder, ComponentHTTPAPI})
	first := layerPlan(set, cfg)
	second := layerPlan(set, cfg)
	assert.DeepEqual(t, first, second)
}
