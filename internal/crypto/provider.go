// Package crypto is the stateless cryptographic engine behind tcfs:
// random key, IV, and salt generation, password-based key derivation,
// AEAD encrypt/decrypt, SHA-256, and the hex/base64 codecs used by the
// metadata artifact. Everything is reached through the Provider interface
// so the production backend and the deterministic test backend are
// interchangeable.
package crypto

import "tcfs/internal/errs"

// Provider is the capability set every crypto backend implements.
//
// Encrypt is deterministic for a fixed (plaintext, key, iv); all
// randomness lives in IV choice, which the caller must make unique per
// key. Decrypt is all-or-nothing: any single-bit tamper anywhere in
// ciphertext, IV, tag, or key produces a hard failure, never partial
// plaintext.
type Provider interface {
	// Name identifies the backend. Recorded nowhere on disk; used to keep
	// test output distinguishable from production output.
	Name() string

	// GenerateKey returns KeySize bytes of cryptographically secure
	// randomness. Fails with CryptoInitFailed if the random source is
	// unavailable. The caller owns the key and must Destroy it.
	GenerateKey() (Key, error)

	// GenerateIV returns IVSize bytes of secure randomness.
	GenerateIV() (IV, error)

	// GenerateSalt returns SaltSize bytes of secure randomness.
	GenerateSalt() (Salt, error)

	// DeriveKey deterministically derives a KeySize-byte key from a
	// password and salt. The same (password, salt, params) always yields
	// the same key. The caller owns the key and must Destroy it.
	DeriveKey(password string, salt Salt, params KDFParams) (Key, error)

	// Encrypt seals plaintext under key and iv. The returned ciphertext
	// has the same length as the plaintext; the tag is TagSize bytes.
	Encrypt(plaintext []byte, key Key, iv IV) (EncryptedData, error)

	// Decrypt opens enc under key and iv, verifying the tag first.
	Decrypt(enc EncryptedData, key Key, iv IV) ([]byte, error)

	// SHA256 returns the 32-byte digest of data. Empty input has a
	// well-defined non-empty digest.
	SHA256(data []byte) []byte

	// ToHex encodes data as uppercase hex.
	ToHex(data []byte) string

	// FromHex decodes hex (either case). Odd-length or non-hex input
	// fails with InvalidArgument.
	FromHex(s string) ([]byte, error)

	// ToBase64 encodes data as standard base64.
	ToBase64(data []byte) string

	// FromBase64 decodes standard base64. Empty input yields empty
	// output.
	FromBase64(s string) ([]byte, error)
}

// Backend names accepted by NewProvider.
const (
	BackendAESGCM = "aesgcm"
	BackendMock   = "mock"
)

// NewProvider returns the backend with the given name. The empty string
// selects the production backend. The mock backend is deterministic and
// insecure; nothing should select it outside tests and environments that
// cannot reach real randomness.
func NewProvider(name string) (Provider, error) {
	switch name {
	case "", BackendAESGCM:
		return &aesGCMProvider{}, nil
	case BackendMock:
		return NewMockProvider(), nil
	default:
		return nil, errs.Newf(errs.InvalidArgument, "unknown crypto backend %q", name)
	}
}
