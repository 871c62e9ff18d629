// Package pass defines the unit of work a flow schedules.
//
// A Pass runs against a graph.Model and reports whether it changed the model.
// The Catalog maps pass names to passes and is the lookup the executor uses.
// Pass internals are opaque to flows and to the executor.
package pass
