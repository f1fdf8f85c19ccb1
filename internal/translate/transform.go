package translate

import (
	"strconv"
	"strings"

	"github.com/roach88/flume/internal/ident"
	"github.com/roach88/flume/internal/queryir"
)

// Transformation rewrites a query graph before translation.
//
// Apply returns the graph to translate onward: either g unchanged (when
// the pass finds nothing to do) or a rewritten graph. A pass that
// rewrites consumes its input graph; callers must translate the returned
// graph and discard g.
type Transformation interface {
	// Name identifies the pass in logs and error messages.
	Name() string

	// Apply runs the pass. Fresh nodes take their ids from ids.
	Apply(g *queryir.Graph, ids ident.Source) (*queryir.Graph, error)
}

// MergeScopes deduplicates structurally identical scope brackets.
//
// Two scope nodes merge when they open the same logical scope over the
// same predecessor; two unscope nodes merge when they close the same
// scope-id set over the same predecessor. The earlier node (in graph
// insertion order) survives, later duplicates map to it, and the rewrite
// redirects every downstream reference and repairs scope pairings.
//
// Such duplicates arise when independent query fragments each bracket the
// same stream; merging them keeps the executable graph from opening the
// same bracket twice.
type MergeScopes struct{}

// Name implements Transformation.
func (MergeScopes) Name() string { return "merge_scopes" }

// Apply implements Transformation.
func (MergeScopes) Apply(g *queryir.Graph, ids ident.Source) (*queryir.Graph, error) {
	type scopeKey struct {
		scope  ident.ScopeID
		parent ident.NodeID
	}
	type unscopeKey struct {
		scopes string
		parent ident.NodeID
	}

	table := queryir.NewTranslationTable()
	firstScope := make(map[scopeKey]*queryir.Scope)
	firstUnscope := make(map[unscopeKey]*queryir.Unscope)

	for _, n := range g.Nodes() {
		switch v := n.(type) {
		case *queryir.Scope:
			p := v.Parents()[0]
			if p == nil {
				continue
			}
			key := scopeKey{scope: v.ScopeID(), parent: p.ID()}
			if first, ok := firstScope[key]; ok && first.CanMergeWith(v) {
				table.Map(v, first)
			} else {
				firstScope[key] = v
			}
		case *queryir.Unscope:
			p := v.Parents()[0]
			if p == nil {
				continue
			}
			key := unscopeKey{scopes: scopeSetKey(v.ScopeIDs()), parent: p.ID()}
			if first, ok := firstUnscope[key]; ok && first.CanMergeWith(v) {
				table.Map(v, first)
			} else {
				firstUnscope[key] = v
			}
		}
	}

	if table.Len() == 0 {
		return g, nil
	}
	return queryir.Rewrite(g, ids, table)
}

// scopeSetKey renders a deduplicated, ascending scope-id list as a map
// key. ScopeIDs() already guarantees the ordering.
func scopeSetKey(ids []ident.ScopeID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(int64(id), 10)
	}
	return strings.Join(parts, ",")
}
