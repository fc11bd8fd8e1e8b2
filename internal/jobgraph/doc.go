// Package jobgraph assembles named computation nodes into one submittable
// batch.
//
// # Why JobGraph Exists
//
// Composite runs (micromechanics unit cells feeding a reduction, feeding a
// layer model, feeding an infill model) are submitted to the service as one
// batch. Each node consumes either a shared material or the future output of
// another node in the same batch. The builder validates that wiring locally,
// before anything touches the network, so a dangling reference is reported
// as an *InvalidGraphError instead of a remote job failure minutes later.
//
// # Rules
//
//   - Node and material names are unique within their own namespace.
//   - A binding may only name a material that is already registered or a node
//     that was already added. Appending in dependency order is therefore
//     mandatory, and cycles cannot be expressed.
//   - Construction is atomic: Build either returns a complete, valid Graph or
//     an error and no graph.
//
// # Shapes
//
// Two shapes cover almost every real run:
//
//	linear chain:  material -> cell -> layer -> infill
//	fan-in:        cell_a ─┐
//	                       ├─> reduction -> layer
//	               cell_b ─┘
//
// Builder.Chain and Builder.FanIn wire those shapes without spelling out
// every binding by hand.
//
// The builder never calls the network. Submitting the batch and extracting
// the terminal node's result are the job client's responsibility.
package jobgraph
