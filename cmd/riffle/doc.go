// Package main hosts the riffle CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into
// JSON-RPC calls against a running riffled daemon: navigation, mode
// switches, status and page queries, command execution with the page
// environment, and configuration scaffolding. Socket resolution prefers
// the --socket flag, then the RIFFLE_SOCKET environment riffled exports
// to executed commands, then the configuration file.
package main
