// Package schema validates and normalizes untyped JSON into typed records.
//
// Each record kind has one Validator. The stock validators are backed by CUE
// definitions embedded from schemas.cue: raw bytes are extracted as JSON,
// unified with the closed definition for the kind, checked for
// concreteness, then decoded into the Go type. Decoding through
// encoding/json is where representational variance is normalized, e.g.
// ISO-8601 timestamp strings become time.Time.
//
// Validators are pure: they do no I/O and keep no state between calls.
// They are used on read, to catch on-disk drift, and on write, so that only
// well-formed records are persisted.
package schema
