// Package exec defines the executable graph produced by translation and a
// reference batch runtime for it.
//
// ARCHITECTURE:
//
// Downstream Edges:
// Executable edges point the opposite way from the IR: each node holds the
// consumers attached to it, each with the input port it feeds. Translation
// attaches every new node to its already-translated parents, so by the
// time a graph is complete, pushing an element into the entry Root cascades
// it depth-first through the whole structure. This edge direction is why
// the executable union never stores its branches - only how many there are.
//
// Messages and Markers:
// Elements and control markers flow through the same channel-free push
// path. A Scope node brackets each incoming element with open/close
// markers carrying its scope id; an end-of-input marker follows the last
// element of a batch. Aggregate and Combine treat markers as group
// delimiters (one buffer frame per open bracket), Unscope swallows the
// markers of the scope ids it closes, Union forwards a marker once all of
// its input ports have seen it. Markers are assumed to reach every input
// port of a multi-input node: a scope must enclose either all or none of
// the branches feeding a combine or union.
//
// Per-Run State:
// Nodes are immutable after translation finalizes. All mutable progress
// (frame buffers, marker arrivals) lives in a per-execution state table,
// so one pipeline may serve any number of concurrent executions. Each
// execution owns its inputs while they flow; nothing is shared between
// runs.
//
// CRITICAL PATTERNS:
//
// Single Construction Path:
// Nodes are created by their constructors and wired exclusively through
// Attach during translation. Attaching after the pipeline is handed out
// is a contract violation; nothing re-checks it at run time.
package exec
