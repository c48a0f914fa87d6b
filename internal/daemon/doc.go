// Package daemon runs one riffled instance: it acquires the single
// instance lock, drives the manager loop, mirrors position changes into
// the session store, and hosts the control socket.
//
// One daemon maps to one opened archive set. A second instance pointed at
// the same socket directory fails fast on the lock file instead of
// stealing the socket.
package daemon
