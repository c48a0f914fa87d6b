// Package logging assembles structured slog loggers and formatting helpers
// used across riffle components.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes standardized field keys so pipeline code tags log
// lines with archive paths, page names, and work categories in a uniform
// shape. The package also provides a no-op logger for tests and wiring code
// that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup to ensure new
// components emit data with the same shape and routing guarantees as the rest
// of the system.
package logging
