// Package capsule implements the persistence protocol that binds a
// ciphertext artifact to its policy metadata. A capsule is two files
// sharing one logical identity: <name>.tcfs holds the raw ciphertext with
// no header, and <name>.tcfs.meta holds the JSON metadata record. The
// pair is created atomically by Lock, read by Status and Unlock, and
// never mutated in place.
package capsule

import (
	"encoding/json"

	"tcfs/internal/errs"
	"tcfs/internal/policy"
)

const (
	// CiphertextSuffix marks the raw ciphertext artifact.
	CiphertextSuffix = ".tcfs"
	// MetadataSuffix marks the metadata artifact, paired with its
	// ciphertext by filename convention.
	MetadataSuffix = ".tcfs.meta"

	// ToolVersion is recorded in every metadata artifact.
	ToolVersion = "0.1.0"

	// MaxInputSize bounds the plaintext accepted by Lock.
	MaxInputSize = 64 * 1024 * 1024
)

// Metadata is the authoritative on-disk record for a capsule. The
// iv, tag, and data key are base64; timestamps are RFC3339 UTC.
//
// DataKeyEncrypted holds the raw AEAD key, base64-encoded with no
// additional wrapping. The name is kept for on-disk compatibility. The
// consequence: whoever can read the metadata artifact can decrypt the
// capsule regardless of the time gate. Filesystem access control is the
// real trust boundary; the gate is enforced in code, not in the
// cryptography.
type Metadata struct {
	Policy           policy.Policy `json:"policy"`
	IV               string        `json:"iv"`
	Tag              string        `json:"tag"`
	DataKeyEncrypted string        `json:"data_key_encrypted"`
	CreatedAt        string        `json:"created_at"`
	OriginalFilename string        `json:"original_filename"`
	ToolVersion      string        `json:"tool_version"`
}

// encodeMetadata renders the metadata record as indented JSON.
func encodeMetadata(meta Metadata) ([]byte, error) {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "cannot marshal metadata", err)
	}
	return append(data, '\n'), nil
}

// decodeMetadata parses a metadata record and checks that every field
// required for decryption is present. Policy validation is skipped here:
// a stored policy whose unlock time has passed is legitimate.
func decodeMetadata(data []byte) (Metadata, error) {
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return Metadata{}, errs.Wrap(errs.InvalidMetadata, "malformed metadata json", err)
	}
	if meta.IV == "" || meta.Tag == "" || meta.DataKeyEncrypted == "" {
		return Metadata{}, errs.New(errs.InvalidMetadata, "missing encryption parameters in metadata")
	}
	if meta.Policy.UnlockAt.IsZero() {
		return Metadata{}, errs.New(errs.InvalidMetadata, "missing policy in metadata")
	}
	return meta, nil
}
