// Package journal records filestore events in a SQLite database.
//
// Journal implements filestore.Observer, so wiring it into the channel
// options gives an append-only history of every write, delete, heal,
// quarantine and decryption failure under a data directory. The journal is
// a side channel: the filestore logs and drops observer errors, and the
// records themselves never depend on it.
//
// The database uses WAL mode and a single connection, like every SQLite
// store in this codebase.
package journal
