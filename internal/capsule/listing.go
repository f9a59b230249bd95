package capsule

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Entry pairs one ciphertext artifact with its metadata-derived status.
// A capsule whose metadata is missing or unreadable still gets an entry,
// with Err set, so a damaged store remains listable.
type Entry struct {
	Name        string
	CapsulePath string
	Info        StatusInfo
	Err         error
}

// List enumerates the capsules in the store directory by globbing
// ciphertext artifacts and pairing each with its metadata artifact by
// suffix convention. Entries come back sorted by name. An absent store
// directory yields an empty listing, not an error.
func (s *Store) List() ([]Entry, error) {
	if _, err := os.Stat(s.dir); os.IsNotExist(err) {
		return []Entry{}, nil
	}

	matches, err := filepath.Glob(filepath.Join(s.dir, "*"+CiphertextSuffix))
	if err != nil {
		// Only a malformed pattern reaches here; the pattern is fixed.
		return nil, err
	}

	now := time.Now().UTC()
	entries := make([]Entry, 0, len(matches))
	for _, capsulePath := range matches {
		name := strings.TrimSuffix(filepath.Base(capsulePath), CiphertextSuffix)

		entry := Entry{Name: name, CapsulePath: capsulePath}
		raw, err := readArtifact(capsulePath + ".meta")
		if err != nil {
			entry.Err = err
			entries = append(entries, entry)
			continue
		}
		meta, err := decodeMetadata(raw)
		if err != nil {
			entry.Err = err
			entries = append(entries, entry)
			continue
		}
		entry.Info = s.statusOf(name, meta, now)
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}
