package crypto

import (
	"github.com/awnumar/memguard"

	"tcfs/internal/errs"
)

// Sizes for the supported algorithm (AES-256-GCM).
const (
	KeySize    = 32
	IVSize     = 12
	TagSize    = 16
	SaltSize   = 16
	SHA256Size = 32
)

// Algorithm identifies a content-encryption cipher.
type Algorithm uint8

const (
	AlgorithmAES256GCM Algorithm = iota
)

func (a Algorithm) String() string {
	switch a {
	case AlgorithmAES256GCM:
		return "AES-256-GCM"
	default:
		return "unknown"
	}
}

// ParseAlgorithm converts the on-disk algorithm name back to its enum value.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch s {
	case "AES-256-GCM":
		return AlgorithmAES256GCM, nil
	default:
		return 0, errs.Newf(errs.InvalidArgument, "unknown algorithm %q", s)
	}
}

// KDF identifies a key derivation function.
type KDF uint8

const (
	// KDFPBKDF2 is iterative derivation with a tunable work factor.
	KDFPBKDF2 KDF = iota
	// KDFArgon2id is memory-hard derivation with time, memory, and
	// parallelism factors.
	KDFArgon2id
)

func (k KDF) String() string {
	switch k {
	case KDFPBKDF2:
		return "pbkdf2"
	case KDFArgon2id:
		return "argon2id"
	default:
		return "unknown"
	}
}

// ParseKDF converts the on-disk KDF name back to its enum value.
func ParseKDF(s string) (KDF, error) {
	switch s {
	case "pbkdf2":
		return KDFPBKDF2, nil
	case "argon2id":
		return KDFArgon2id, nil
	default:
		return 0, errs.Newf(errs.InvalidArgument, "unknown kdf %q", s)
	}
}

// KDFParams carries the tunable factors for key derivation.
// Iterations is the work factor for pbkdf2 and the time cost for argon2id.
// MemoryKB and Parallelism apply to argon2id only.
type KDFParams struct {
	Type        KDF
	Iterations  uint32
	MemoryKB    uint32
	Parallelism uint8
}

// Key is 32 bytes of secret key material. The holder owns the backing
// bytes exclusively and must call Destroy on every exit path, normal or
// error, before the key goes out of scope.
type Key struct {
	bytes []byte
}

// NewKey takes ownership of b as key material. b must be exactly KeySize
// bytes.
func NewKey(b []byte) (Key, error) {
	if len(b) != KeySize {
		return Key{}, errs.Newf(errs.InvalidKey, "key must be %d bytes, got %d", KeySize, len(b))
	}
	return Key{bytes: b}, nil
}

// Bytes exposes the raw key material. The slice aliases the key's backing
// memory; it becomes garbage after Destroy.
func (k Key) Bytes() []byte { return k.bytes }

// Empty reports whether the key holds no material.
func (k Key) Empty() bool { return len(k.bytes) == 0 }

// Destroy overwrites the backing bytes before they are released.
// Safe to call on an empty key and safe to call more than once.
func (k Key) Destroy() {
	if len(k.bytes) > 0 {
		memguard.WipeBytes(k.bytes)
	}
}

// IV is a 12-byte initialization vector. Not secret; stored in metadata.
type IV []byte

// Tag is a 16-byte AEAD authentication tag. Not secret.
type Tag []byte

// Salt is random input to key derivation. Not secret.
type Salt []byte

// EncryptedData binds a ciphertext to the IV and tag it was sealed with.
// The tag and IV travel beside the ciphertext, never framed inside it.
type EncryptedData struct {
	Ciphertext []byte
	IV         IV
	Tag        Tag
}
