// Package flow implements the domain layer for backend pass pipelines.
//
// This package follows the same rules as the other domain packages:
//   - Contains only pure Go code with standard library imports
//   - Defines the value types (Name, Definition, Plan) and the Registry entity
//   - Implements domain logic (requirement flattening, cycle detection, splicing)
//   - Has no knowledge of infrastructure concerns (YAML files, databases, tracing)
//
// # Core Types
//
// Name identifies a flow as "<backend>:<flow>". The empty backend is the global
// namespace and renders as the bare flow name.
//
// Definition is an immutable flow: an ordered pass list plus an ordered list of
// prerequisite flows. Definitions are only created through Registry.Register
// (directly or via Composer.Derive).
//
// # Registry
//
// Registry is append-only during bring-up:
//   - Register rejects duplicate names and references to unregistered flows
//   - Freeze ends bring-up; Reset clears everything (test isolation)
//   - List yields definitions of one backend in registration order
//
// # Resolution
//
// Resolver flattens a flow into a Plan by depth-first traversal of requirements
// in declared order, emitting each prerequisite's passes before the flow's own
// and keeping the first occurrence of a repeated pass. Results are memoized per
// flow until the source registry is reset.
//
// # Composition
//
// Composer.Derive builds a backend-specific flow from another backend's flow by
// copying its requirement list and splicing new prerequisites before or after
// named anchors. The base definition is never modified.
package flow
