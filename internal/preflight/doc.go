// Package preflight provides readiness checks for the filesystem paths and
// external commands riffled depends on.
//
// The daemon runs RunAll once before serving. Directory and command failures
// abort startup so a broken environment surfaces immediately instead of as
// scattered page errors later; low temp space only produces a warning since
// small archives may still extract.
//
// Each check is gated by its config toggle -- disabled features are skipped.
package preflight
