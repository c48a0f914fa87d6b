// Package ipc exposes the daemon over JSON-RPC Unix sockets and ships the
// matching client used by the CLI.
//
// It owns socket lifecycle management and the request/response DTOs. The
// server drives the manager through a small Controller surface: queries
// (Status, Pages, Execute) wait for the manager's reply, while navigation
// and mode commands are acknowledged as soon as they are handed over, since
// the manager applies them asynchronously.
//
// Reuse these types when adding new RPC endpoints to keep the protocol
// stable for scripts driving the daemon.
package ipc
