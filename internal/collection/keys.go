package collection

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// IndexFile is the name of the index document inside a collection dir.
const IndexFile = "index.json"

const maxSlugLen = 32

// keyNamespace seeds the name-based UUIDs used for reference files.
var keyNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("devstash:collection-key/v1"))

// NormalizeKey returns the canonical form of key: cleaned as a path and
// NFC-normalized. An empty key stays empty.
func NormalizeKey(key string) string {
	if strings.TrimSpace(key) == "" {
		return ""
	}
	return norm.NFC.String(filepath.Clean(key))
}

// DeriveReferenceFile returns the reference file for key inside dir. The
// result depends only on the normalized key, so repeated calls agree
// before anything is persisted.
func DeriveReferenceFile(dir, key string) string {
	nk := NormalizeKey(key)
	id := uuid.NewSHA1(keyNamespace, []byte(nk))
	return path.Join(filepath.ToSlash(dir), slugify(filepath.Base(nk))+"-"+id.String()+".json")
}

// slugify keeps lowercase ASCII letters and digits and folds everything else
// to single dashes.
func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
		if b.Len() >= maxSlugLen {
			break
		}
	}
	slug := strings.Trim(b.String(), "-")
	if len(slug) > maxSlugLen {
		slug = strings.Trim(slug[:maxSlugLen], "-")
	}
	if slug == "" {
		return "root"
	}
	return slug
}
