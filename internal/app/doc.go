// Package app contains the core application logic. It wires configuration,
// transport, job client and poller together and implements the user-facing
// operations (run a graph, submit a spec, query, cancel and watch jobs),
// decoupled from any specific entrypoint like a CLI.
package app
