package capsule

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"tcfs/internal/crypto"
	"tcfs/internal/errs"
	"tcfs/internal/policy"
)

// Store operates on the capsules inside one store directory. It assumes
// one process per capsule at a time; there is no cross-process locking.
type Store struct {
	dir    string
	crypto crypto.Provider
	log    *slog.Logger
}

// NewStore creates a store rooted at dir using the given crypto backend.
// A nil logger falls back to slog.Default.
func NewStore(dir string, provider crypto.Provider, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{dir: dir, crypto: provider, log: logger}
}

// Dir returns the store directory.
func (s *Store) Dir() string { return s.dir }

// LockRequest carries the parameters for locking a file.
type LockRequest struct {
	// InputPath is the plaintext file to lock. It is shredded after the
	// capsule is durably written.
	InputPath string
	// UnlockAt is the RFC3339 unlock instant.
	UnlockAt string
	// Owner is required; Label and Notes are free-form.
	Owner string
	Label string
	Notes string
	// GraceSeconds widens the gate tolerance; it opens the gate earlier,
	// never later.
	GraceSeconds uint32
	// KDF is recorded in the policy. The data key itself is random, not
	// derived, so the choice only matters to later tooling.
	KDF crypto.KDF
	// KeepSource skips shredding of the input file.
	KeepSource bool
}

// LockResult reports where the capsule landed and any best-effort
// warnings from source deletion.
type LockResult struct {
	CapsulePath  string
	MetadataPath string
	Policy       policy.Policy
	Warnings     []string
}

// Lock encrypts the input file into a new capsule and then destroys the
// source. Ordering is deliberate: ciphertext artifact first, metadata
// artifact second, source deletion last. The metadata artifact is
// authoritative for recoverability, so if its write fails the ciphertext
// artifact is removed as orphaned garbage and the source is left intact.
// Source deletion failure is a warning, not an error: the capsule's
// cryptographic guarantee does not depend on it.
func (s *Store) Lock(req LockRequest) (LockResult, error) {
	unlockAt, err := policy.ParseTime(req.UnlockAt)
	if err != nil {
		return LockResult{}, err
	}

	pol := policy.Policy{
		UnlockAt:     unlockAt,
		Owner:        req.Owner,
		Label:        req.Label,
		Notes:        req.Notes,
		GraceSeconds: req.GraceSeconds,
		Algorithm:    crypto.AlgorithmAES256GCM,
		KDF:          req.KDF,
	}
	if err := pol.Validate(); err != nil {
		return LockResult{}, err
	}

	plaintext, err := s.readInput(req.InputPath)
	if err != nil {
		return LockResult{}, err
	}

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return LockResult{}, errs.Wrap(errs.FileAccessDenied, "cannot create store directory", err)
	}

	key, err := s.crypto.GenerateKey()
	if err != nil {
		return LockResult{}, err
	}
	defer key.Destroy()

	iv, err := s.crypto.GenerateIV()
	if err != nil {
		return LockResult{}, err
	}

	enc, err := s.crypto.Encrypt(plaintext, key, iv)
	if err != nil {
		return LockResult{}, err
	}

	ciphertextPath, metaPath := s.resolve(filepath.Base(req.InputPath))

	if err := writeFileAtomic(ciphertextPath, enc.Ciphertext, 0o600); err != nil {
		return LockResult{}, err
	}

	meta := Metadata{
		Policy:           pol,
		IV:               s.crypto.ToBase64(enc.IV),
		Tag:              s.crypto.ToBase64(enc.Tag),
		DataKeyEncrypted: s.crypto.ToBase64(key.Bytes()),
		CreatedAt:        policy.FormatTime(time.Now()),
		OriginalFilename: filepath.Base(req.InputPath),
		ToolVersion:      ToolVersion,
	}

	metaJSON, err := encodeMetadata(meta)
	if err != nil {
		os.Remove(ciphertextPath)
		return LockResult{}, err
	}
	if err := writeFileAtomic(metaPath, metaJSON, 0o600); err != nil {
		// Without metadata the capsule does not exist; the ciphertext
		// artifact is orphaned garbage and the source must survive.
		os.Remove(ciphertextPath)
		return LockResult{}, err
	}

	s.log.Info("capsule created",
		"capsule", ciphertextPath,
		"unlock_at", policy.FormatTime(pol.UnlockAt),
		"owner", pol.Owner)

	var warnings []string
	if !req.KeepSource {
		warnings = Shred(req.InputPath)
		for _, w := range warnings {
			s.log.Warn("source shredding", "detail", w)
		}
	}

	return LockResult{
		CapsulePath:  ciphertextPath,
		MetadataPath: metaPath,
		Policy:       pol,
		Warnings:     warnings,
	}, nil
}

// readInput loads the plaintext source, bounding its size.
func (s *Store) readInput(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.Wrap(errs.FileNotFound, fmt.Sprintf("input file not found: %s", path), err)
		}
		return nil, errs.Wrap(errs.FileAccessDenied, fmt.Sprintf("cannot stat input file: %s", path), err)
	}
	if info.IsDir() {
		return nil, errs.Newf(errs.InvalidArgument, "input is a directory: %s", path)
	}
	if info.Size() > MaxInputSize {
		return nil, errs.Newf(errs.InvalidArgument, "input exceeds maximum size of %d bytes", int64(MaxInputSize))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.FileAccessDenied, fmt.Sprintf("cannot read input file: %s", path), err)
	}
	return data, nil
}

// StatusInfo describes one capsule's gate state at the moment of the
// query.
type StatusInfo struct {
	Name             string
	Owner            string
	Label            string
	Notes            string
	UnlockAt         time.Time
	EffectiveUnlock  time.Time
	Remaining        time.Duration
	Unlockable       bool
	GraceSeconds     uint32
	Algorithm        string
	KDF              string
	CreatedAt        string
	OriginalFilename string
	ToolVersion      string
}

// Status reads only the metadata artifact and reports the gate state. It
// never touches the ciphertext. The stored policy is parsed with strict
// validation disabled.
func (s *Store) Status(name string) (StatusInfo, error) {
	_, metaPath := s.resolve(name)

	raw, err := readArtifact(metaPath)
	if err != nil {
		return StatusInfo{}, err
	}
	meta, err := decodeMetadata(raw)
	if err != nil {
		return StatusInfo{}, err
	}

	return s.statusOf(name, meta, time.Now().UTC()), nil
}

func (s *Store) statusOf(name string, meta Metadata, now time.Time) StatusInfo {
	pol := meta.Policy
	return StatusInfo{
		Name:             name,
		Owner:            pol.Owner,
		Label:            pol.Label,
		Notes:            pol.Notes,
		UnlockAt:         pol.UnlockAt,
		EffectiveUnlock:  pol.EffectiveUnlockTime(),
		Remaining:        pol.TimeRemainingAt(now),
		Unlockable:       pol.IsUnlockableAt(now),
		GraceSeconds:     pol.GraceSeconds,
		Algorithm:        pol.Algorithm.String(),
		KDF:              pol.KDF.String(),
		CreatedAt:        meta.CreatedAt,
		OriginalFilename: meta.OriginalFilename,
		ToolVersion:      meta.ToolVersion,
	}
}

// UnlockResult reports the outcome of an unlock attempt. Unlocked false
// with a nil error means the gate is still closed, which is a normal
// outcome, not a failure.
type UnlockResult struct {
	Unlocked   bool
	OutputPath string
	UnlockAt   time.Time
	Remaining  time.Duration
}

// Unlock recovers the plaintext of a capsule. The gate check is
// unconditional and happens before any decrypt call: while the gate is
// closed, decryption is not attempted even though the key and ciphertext
// are physically at hand. An authentication failure after the gate is
// open surfaces as DecryptionFailed, which is never confusable with the
// gate being closed.
func (s *Store) Unlock(name, outputPath string) (UnlockResult, error) {
	ciphertextPath, metaPath := s.resolve(name)

	raw, err := readArtifact(metaPath)
	if err != nil {
		return UnlockResult{}, err
	}
	meta, err := decodeMetadata(raw)
	if err != nil {
		return UnlockResult{}, err
	}
	pol := meta.Policy

	now := time.Now().UTC()
	if !pol.IsUnlockableAt(now) {
		s.log.Info("gate closed",
			"capsule", ciphertextPath,
			"remaining_seconds", int64(pol.TimeRemainingAt(now).Seconds()))
		return UnlockResult{
			Unlocked:  false,
			UnlockAt:  pol.UnlockAt,
			Remaining: pol.TimeRemainingAt(now),
		}, nil
	}

	iv, err := s.crypto.FromBase64(meta.IV)
	if err != nil {
		return UnlockResult{}, errs.Wrap(errs.InvalidMetadata, "malformed iv in metadata", err)
	}
	tag, err := s.crypto.FromBase64(meta.Tag)
	if err != nil {
		return UnlockResult{}, errs.Wrap(errs.InvalidMetadata, "malformed tag in metadata", err)
	}
	keyBytes, err := s.crypto.FromBase64(meta.DataKeyEncrypted)
	if err != nil {
		return UnlockResult{}, errs.Wrap(errs.InvalidMetadata, "malformed data key in metadata", err)
	}

	key, err := crypto.NewKey(keyBytes)
	if err != nil {
		crypto.WipeBytes(keyBytes)
		return UnlockResult{}, err
	}
	defer key.Destroy()

	ciphertext, err := readArtifact(ciphertextPath)
	if err != nil {
		return UnlockResult{}, err
	}

	plaintext, err := s.crypto.Decrypt(crypto.EncryptedData{
		Ciphertext: ciphertext,
		IV:         crypto.IV(iv),
		Tag:        crypto.Tag(tag),
	}, key, crypto.IV(iv))
	if err != nil {
		return UnlockResult{}, err
	}

	if outputPath == "" {
		outputPath = meta.OriginalFilename
	}
	if outputPath == "" {
		return UnlockResult{}, errs.New(errs.InvalidArgument, "no output path and no original filename in metadata")
	}

	if err := writeFileAtomic(outputPath, plaintext, 0o600); err != nil {
		return UnlockResult{}, err
	}

	s.log.Info("capsule unlocked", "capsule", ciphertextPath, "output", outputPath)

	return UnlockResult{
		Unlocked:   true,
		OutputPath: outputPath,
		UnlockAt:   pol.UnlockAt,
	}, nil
}
