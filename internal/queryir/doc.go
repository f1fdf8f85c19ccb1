// Package queryir defines the query intermediate representation: a typed,
// directed acyclic graph of stream operations produced by a construction
// front end and consumed by the translation builder.
//
// ARCHITECTURE:
//
// Nodes and Edges:
// Each node is one operation over a stream of elements (map, filter,
// aggregate, combine, union, scoped grouping, terminal consumption). A
// node's Parents() are its data-flow predecessors: elements flow from the
// parents into the node. Parent lists are fixed at construction and never
// mutated afterwards; rewrites replace nodes wholesale and record each
// substitution in a TranslationTable.
//
// Scope Pairing:
// Scope and Unscope nodes additionally carry cross-links that are not
// data-flow edges: each Scope knows the Unscopes that terminate it, and
// each Unscope knows the Scopes it terminates. The two sides must stay
// mutually consistent across copy, merge, redirection, and deletion. All
// pairing state lives in id-keyed sets and every mutation funnels through
// two internal primitives (pair/unpair), so a half-linked pair is
// unrepresentable.
//
// Identity:
// Node ids come from an ident.Source passed into every constructor. Scope
// ids are allocated separately; structural duplicates of the same logical
// scope share a scope id while having distinct node ids.
//
// CRITICAL PATTERNS:
//
// Sealed Node Interface:
// Node carries an unexported marker method, so the variant set is closed
// and backend type switches can treat an unknown variant as a hard error
// rather than silently skipping it.
//
// Single-Hop Redirection:
// ApplyTranslation consults the translation table exactly once per
// counterpart - no transitive chasing. Chained replacements are resolved
// by the rewrite pass (see Rewrite), which applies substitutions in
// dependency order and extends the table as it goes.
//
// Graph construction is single-threaded per graph: no locking here. The
// ident allocator is the only state shared across concurrently built
// graphs.
package queryir
