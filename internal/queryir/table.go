package queryir

import "github.com/roach88/flume/internal/ident"

// TranslationTable records node substitutions made by a rewrite pass:
// replaced node id -> replacement node. The lifecycle operations consult
// it (one hop, see ApplyTranslation); the rewrite pass owns and extends
// it. An empty table makes every redirection a no-op.
type TranslationTable struct {
	entries map[ident.NodeID]Node
}

// NewTranslationTable creates an empty table.
func NewTranslationTable() *TranslationTable {
	return &TranslationTable{entries: make(map[ident.NodeID]Node)}
}

// Map records that old has been replaced by repl. Re-mapping the same
// node overwrites the earlier entry.
func (t *TranslationTable) Map(old, repl Node) {
	if old == nil || repl == nil {
		return
	}
	t.entries[old.ID()] = repl
}

// Lookup returns the replacement recorded for n, if any. A nil table or
// nil node looks up nothing.
func (t *TranslationTable) Lookup(n Node) (Node, bool) {
	if t == nil || n == nil {
		return nil, false
	}
	repl, ok := t.entries[n.ID()]
	return repl, ok
}

// Len returns the number of recorded substitutions.
func (t *TranslationTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}
