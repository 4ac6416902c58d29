package record

// CurrentIndexVersion is the index document version written by this build.
const CurrentIndexVersion = 1

// IndexEntry maps a logical key to the file holding its collection.
// ReferenceFile is relative to the data directory.
type IndexEntry struct {
	Key           string `json:"key" yaml:"key"`
	ReferenceFile string `json:"referenceFile" yaml:"referenceFile"`
}

// Index is the set of entries for one collection kind, unique by key.
type Index struct {
	Version int          `json:"version" yaml:"version"`
	Entries []IndexEntry `json:"entries" yaml:"entries"`
}

// EmptyIndex returns an index with no entries.
func EmptyIndex() Index {
	return Index{Version: CurrentIndexVersion, Entries: []IndexEntry{}}
}

// Lookup returns the reference file for key.
func (idx Index) Lookup(key string) (string, bool) {
	for _, e := range idx.Entries {
		if e.Key == key {
			return e.ReferenceFile, true
		}
	}
	return "", false
}

// With returns a copy of idx with key mapped to ref, replacing any previous
// entry for key.
func (idx Index) With(key, ref string) Index {
	out := Index{Version: idx.Version, Entries: make([]IndexEntry, 0, len(idx.Entries)+1)}
	replaced := false
	for _, e := range idx.Entries {
		if e.Key == key {
			out.Entries = append(out.Entries, IndexEntry{Key: key, ReferenceFile: ref})
			replaced = true
			continue
		}
		out.Entries = append(out.Entries, e)
	}
	if !replaced {
		out.Entries = append(out.Entries, IndexEntry{Key: key, ReferenceFile: ref})
	}
	if out.Version == 0 {
		out.Version = CurrentIndexVersion
	}
	return out
}

// Without returns a copy of idx with the entry for key removed.
func (idx Index) Without(key string) Index {
	out := Index{Version: idx.Version, Entries: make([]IndexEntry, 0, len(idx.Entries))}
	for _, e := range idx.Entries {
		if e.Key != key {
			out.Entries = append(out.Entries, e)
		}
	}
	if out.Version == 0 {
		out.Version = CurrentIndexVersion
	}
	return out
}

// Keys returns the keys of all entries in index order.
func (idx Index) Keys() []string {
	keys := make([]string, len(idx.Entries))
	for i, e := range idx.Entries {
		keys[i] = e.Key
	}
	return keys
}
