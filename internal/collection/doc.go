// Package collection implements the index + reference-file pattern used for
// keyed collections.
//
// Each collection kind owns a directory under the data root:
//
//	scripts/index.json                 {"version":1,"entries":[{"key":..,"referenceFile":..}]}
//	scripts/<slug>-<uuid>.json         one JSON array per key
//
// Keys are logical identifiers, normally project root paths. They are
// cleaned and NFC-normalized before use, so "/p/café" typed on macOS and on
// Linux map to the same entry.
//
// Every mutation rewrites a whole document. The collection file is written
// before its index entry, so an index entry never points at a file that was
// not committed. A collection file without an index entry is a tolerated
// orphan; an entry whose file has gone missing reports not-found until the
// next SaveCollection for that key rewrites it.
package collection
