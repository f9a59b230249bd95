package capsule

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"tcfs/internal/errs"
)

// writeFileAtomic writes data to path via a uniquely named temp file in
// the same directory, syncs it, and renames it into place. A crash leaves
// either the old content or the new, never a torn file.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp := path + ".tmp-" + uuid.NewString()

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return errs.Wrap(errs.FileAccessDenied, fmt.Sprintf("cannot create %s", filepath.Base(path)), err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return errs.Wrap(errs.FileAccessDenied, fmt.Sprintf("cannot write %s", filepath.Base(path)), err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return errs.Wrap(errs.FileAccessDenied, fmt.Sprintf("cannot sync %s", filepath.Base(path)), err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return errs.Wrap(errs.FileAccessDenied, fmt.Sprintf("cannot close %s", filepath.Base(path)), err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errs.Wrap(errs.FileAccessDenied, fmt.Sprintf("cannot finalize %s", filepath.Base(path)), err)
	}
	return nil
}

// readArtifact reads a capsule artifact, mapping filesystem failures onto
// the error taxonomy.
func readArtifact(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.Wrap(errs.FileNotFound, fmt.Sprintf("artifact not found: %s", path), err)
		}
		return nil, errs.Wrap(errs.FileAccessDenied, fmt.Sprintf("cannot read artifact: %s", path), err)
	}
	return data, nil
}

// Shred performs best-effort secure deletion: overwrite with zeroes,
// sync, remove. Failures are reported as warnings, never as errors; on
// modern filesystems backups, snapshots, and wear leveling may retain
// data regardless.
func Shred(path string) []string {
	var warnings []string

	file, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("warning: failed to open file for shredding: %v", err))
		return warnings
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		warnings = append(warnings, fmt.Sprintf("warning: failed to stat file for shredding: %v", err))
		return warnings
	}
	size := info.Size()

	zeroes := make([]byte, 4096)
	var written int64
	for written < size {
		toWrite := int64(len(zeroes))
		if written+toWrite > size {
			toWrite = size - written
		}
		n, err := file.Write(zeroes[:toWrite])
		if err != nil {
			file.Close()
			warnings = append(warnings, fmt.Sprintf("warning: failed to overwrite file during shredding: %v", err))
			return warnings
		}
		written += int64(n)
	}

	if err := file.Sync(); err != nil {
		warnings = append(warnings, fmt.Sprintf("warning: failed to sync file during shredding: %v", err))
	}
	file.Close()

	if err := os.Remove(path); err != nil {
		warnings = append(warnings, fmt.Sprintf("warning: failed to remove file after shredding: %v", err))
	}

	return warnings
}

// resolve maps a caller-supplied capsule name onto the artifact pair.
// Accepts the plain name ("notes.txt") or the suffixed artifact name
// ("notes.txt.tcfs").
func (s *Store) resolve(name string) (ciphertextPath, metaPath string) {
	base := filepath.Base(name)
	if strings.HasSuffix(base, CiphertextSuffix) {
		base = strings.TrimSuffix(base, CiphertextSuffix)
	}
	ciphertextPath = filepath.Join(s.dir, base+CiphertextSuffix)
	metaPath = filepath.Join(s.dir, base+MetadataSuffix)
	return ciphertextPath, metaPath
}
