// Package graph defines the computation-graph model that passes read and
// mutate: ordered nodes with an op and named attributes, directed edges, and
// graph-level attributes.
//
// Passes see the graph only through the Model interface. Graph is the
// in-memory implementation. This package has no third-party dependencies.
package graph
