// Package dag provides a small, ordered directed acyclic graph of named
// vertices. It knows nothing about jobs: the job graph builder uses it to
// record which node feeds which and to prove the result is acyclic before
// a batch is handed to the service.
//
// Insertion order breaks ties in TopologicalOrder, so a graph built in
// dependency order round-trips to the same order.
package dag
