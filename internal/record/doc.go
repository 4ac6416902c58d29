// Package record defines the persisted record kinds of devstash.
//
// Records are plain JSON-tagged structs. Singletons (Config) live in one file
// per installation; items (Script, TerminalCollection, Session) live in
// per-root collections described by an Index.
//
// Validation and normalization of records read from disk is done by the
// schema package; this package only carries shapes and defaults.
package record
