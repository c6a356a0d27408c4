package node

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Component identifies a selectable subsystem of the follower node. The set
// of requested components drives which services the builder registers.
type Component int

const (
	// ComponentCore runs state replication and all of its housekeeping
	// services. It is the only component with node-wide responsibilities.
	ComponentCore Component = iota
	// ComponentTreeBuilder maintains the Merkle tree locally.
	ComponentTreeBuilder
	// ComponentTreeAPI exposes the locally built tree over the API surface.
	// It contributes no services of its own; it only changes how the tree
	// builder is configured.
	ComponentTreeAPI
	// ComponentTreeFetcher pulls externally computed tree roots instead of
	// building the tree locally.
	ComponentTreeFetcher
	// ComponentHTTPAPI serves the JSON-RPC API over HTTP.
	ComponentHTTPAPI
	// ComponentWSAPI serves the JSON-RPC API over WebSocket.
	ComponentWSAPI
)

var componentNames = map[Component]string{
	ComponentCore:        "core",
	ComponentTreeBuilder: "tree",
	ComponentTreeAPI:     "tree_api",
	ComponentTreeFetcher: "tree_fetcher",
	ComponentHTTPAPI:     "http_api",
	ComponentWSAPI:       "ws_api",
}

// String returns the flag-level spelling of the component.
func (c Component) String() string {
	if name, ok := componentNames[c]; ok {
		return name
	}
	return "unknown"
}

// parseComponents turns the comma separated flag value into a component set.
// Duplicates collapse into a single entry. Unknown names are an error.
func parseComponents(raw string) ([]Component, error) {
	byName := make(map[string]Component, len(componentNames))
	for c, name := range componentNames {
		byName[name] = c
	}

	var set []Component
	seen := make(map[Component]bool)
	for _, field := range strings.Split(raw, ",") {
		name := strings.TrimSpace(field)
		if name == "" {
			continue
		}
		c, ok := byName[name]
		if !ok {
			return nil, errors.Errorf("unknown component %q", name)
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		set = append(set, c)
	}
	if len(set) == 0 {
		return nil, errors.New("at least one component must be requested")
	}
	return set, nil
}

// validateComponents checks cross-component legality against the whole set
// before anything is registered. It reports the first violation only.
func validateComponents(set []Component) error {
	present := make(map[Component]bool, len(set))
	for _, c := range set {
		present[c] = true
	}
	if present[ComponentTreeBuilder] && !present[ComponentCore] {
		return errors.New("tree must run on the same machine as core; add the core component")
	}
	if present[ComponentTreeAPI] && !present[ComponentTreeBuilder] {
		return errors.New("tree_api requires the tree component on this machine")
	}
	return nil
}

// sortComponents orders the set for expansion: API serving components go
// last so every resource they read is already registered, everything else
// keeps its relative order.
func sortComponents(set []Component) []Component {
	ordered := make([]Component, len(set))
	copy(ordered, set)
	isConsumer := func(c Component) bool {
		return c == ComponentHTTPAPI || c == ComponentWSAPI
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return !isConsumer(ordered[i]) && isConsumer(ordered[j])
	})
	return ordered
}
