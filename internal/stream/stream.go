// Package stream defines the element and function vocabulary shared by the
// query IR and the executable graph.
//
// Elements are dynamically typed: the IR describes operations over streams
// of arbitrary values, and static element typing is the concern of the
// fluent construction layer above this module. Each transform kind has one
// function shape; a declared function participates in translation either
// inline (identified by its function value) or through a registry name.
package stream

// Element is a single value flowing through an executable graph.
type Element = any

// Mapper produces exactly one output element per input element.
type Mapper func(Element) Element

// FlatMapper produces zero or more output elements per input element,
// emitted in slice order.
type FlatMapper func(Element) []Element

// Predicate decides whether an element is kept.
type Predicate func(Element) bool

// Aggregator reduces a completed group of elements to a single element.
// The group may be empty.
type Aggregator func([]Element) Element

// Combiner merges one element from each of two parallel branches.
// A side that ran short in its pairing is passed as nil.
type Combiner func(left, right Element) Element

// Sink receives elements arriving at a terminal consumer.
type Sink func(Element)
