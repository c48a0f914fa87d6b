// Package session persists the last viewed position per archive in SQLite
// so a reopened archive resumes where the reader left off.
//
// The Store keeps one row per archive path: page index and name, the view
// modes active when the page was shown, and an update timestamp. The daemon
// writes a row on every position change and prunes rows that have not been
// touched in months, so the database stays small without user intervention.
//
// Schema changes bump the version in store.go; an incompatible database is
// reported as ErrSchemaMismatch and the user deletes the file to rebuild.
package session
