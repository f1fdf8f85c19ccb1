// Package translate builds executable pipelines from query graphs.
//
// ARCHITECTURE:
//
// Build Stages:
// Each Build call runs a fixed sequence: generate a build token, validate
// the graph (opt-in via WithValidation), apply the registered
// transformations in order, walk the graph in dependency order, and
// translate node by node. Translating a node constructs its executable
// counterpart, records it in the build context, and attaches it to the
// already-translated parents. Because the walk is parents-first, a parent
// miss during attachment is an ordering violation, never a race.
//
// Build Context:
// The Context carries everything one build accumulates: the query-node to
// executable-node mapping, the entry root, and the function memo. It has
// two phases. While accumulating, translation records nodes; Executable()
// finalizes it into a pipeline, after which further recording fails with
// CONTEXT_FINALIZED. One context never outlives its build.
//
// Function Resolution:
// Named references resolve against the Registry (names NFC normalized on
// both ends); inline references compile as-is. Resolution is memoized per
// build keyed by the reference, so every use site of one reference shares
// a single compiled function. Whether the resolved function fits the use
// site (mapper for a map node, and so on) is checked when the executable
// node is constructed.
//
// CRITICAL PATTERNS:
//
// Build Tokens:
// Every build gets a token from the TokenGenerator up front. The token
// travels into the pipeline, every BuildError, and every log line, so a
// failed build in production logs correlates with the call that made it.
//
// Graph Consumption by Transformations:
// A transformation that rewrites the graph consumes its input: scope
// pairing state on shared nodes is edited during cloning. Translate the
// transformation's output and discard the input. Builders without
// rewriting transformations treat the graph as read-only and may build
// from it concurrently.
package translate
