// Package repository exposes the devstash records as typed repositories.
//
// ConfigRepository manages the singleton config.json. ScriptRepository,
// TerminalCollectionRepository and SessionRepository manage per-project
// collections keyed by root path, each backed by a collection.Store.
//
// Every mutation reads the whole collection for a key, changes it in
// memory and writes it back. Batch operations group requests by key:
// a group is applied all-or-nothing, and groups are independent of each
// other.
package repository
