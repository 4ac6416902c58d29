// Package filestore is the crash-safe single-file channel every record goes
// through.
//
// A Channel[T] writes one record kind to files under a root directory:
//
//   - Write validates the record, optionally encrypts it, writes path.tmp,
//     fsyncs it, copies the current file to path.bak (best effort), then
//     renames path.tmp over path. The rename is the only commit point, so a
//     reader sees the old complete file or the new complete file.
//   - Read sniffs the raw bytes for the cryptobox header before anything
//     else. Encrypted files are decrypted and a decryption failure is
//     returned to the caller. Plain or decrypted bytes are validated; if
//     that fails the file is quarantined to path.bak.<unix-millis>, a fresh
//     default is written in its place, and the default is returned with
//     OutcomeCorrupt ("heal on read").
//   - Every path is resolved against the root and rejected with
//     CodePathInvalid before any I/O if it would escape it.
//
// Quarantine files are never overwritten and never pruned.
//
// The channel keeps no locks. Two writers racing on the same path are
// resolved by whichever rename lands last.
package filestore
