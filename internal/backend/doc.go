// Package backend brings up target backends from pipeline files and serves
// plan resolution and compilation requests against them.
//
// Bring-up happens once: pipeline files are ordered so that a backend's
// parent registers before it, each file's passes are built into the pass
// catalog, its flows are registered (or derived from another backend's flow)
// in file order, and the flow registry is frozen. After that the Service is
// read-only and safe for concurrent use.
package backend
