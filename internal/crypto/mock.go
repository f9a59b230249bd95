package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"tcfs/internal/errs"
)

// MockProvider is a deterministic, INSECURE backend for tests and for
// environments without a usable random source. Keys, IVs, and salts come
// from a counter, encryption is an XOR keystream, and the tag is an
// HMAC-SHA256 truncation. It honors the Provider contract, including
// all-or-nothing decryption, but provides no secrecy whatsoever.
type MockProvider struct {
	codecs
	counter uint64
}

// NewMockProvider returns a mock backend with its counter at zero, so a
// fresh instance always produces the same sequence of keys and IVs.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (m *MockProvider) Name() string { return BackendMock }

// nextBytes produces n deterministic bytes from the instance counter.
func (m *MockProvider) nextBytes(n int) []byte {
	out := make([]byte, 0, n)
	for len(out) < n {
		m.counter++
		var block [8]byte
		binary.BigEndian.PutUint64(block[:], m.counter)
		sum := sha256.Sum256(append([]byte("tcfs-mock-stream"), block[:]...))
		out = append(out, sum[:]...)
	}
	return out[:n]
}

func (m *MockProvider) GenerateKey() (Key, error) {
	return Key{bytes: m.nextBytes(KeySize)}, nil
}

func (m *MockProvider) GenerateIV() (IV, error) {
	return IV(m.nextBytes(IVSize)), nil
}

func (m *MockProvider) GenerateSalt() (Salt, error) {
	return Salt(m.nextBytes(SaltSize)), nil
}

func (m *MockProvider) DeriveKey(password string, salt Salt, params KDFParams) (Key, error) {
	if len(salt) == 0 {
		return Key{}, errs.New(errs.InvalidArgument, "salt must not be empty")
	}
	switch params.Type {
	case KDFPBKDF2:
		if params.Iterations == 0 {
			return Key{}, errs.New(errs.InvalidArgument, "pbkdf2 iterations must be positive")
		}
	case KDFArgon2id:
		if params.Iterations == 0 || params.MemoryKB == 0 || params.Parallelism == 0 {
			return Key{}, errs.New(errs.InvalidArgument, "argon2id requires positive time, memory, and parallelism factors")
		}
	default:
		return Key{}, errs.Newf(errs.NotImplemented, "kdf %q is not supported", params.Type)
	}

	// One hash over all inputs: deterministic in (password, salt, params),
	// no actual stretching.
	h := sha256.New()
	fmt.Fprintf(h, "tcfs-mock-kdf|%s|%d|%d|%d|", params.Type, params.Iterations, params.MemoryKB, params.Parallelism)
	h.Write(salt)
	h.Write([]byte(password))
	return Key{bytes: h.Sum(nil)}, nil
}

// keystream derives an XOR pad for the given key, iv, and length.
func mockKeystream(key Key, iv IV, n int) []byte {
	out := make([]byte, 0, n)
	var block uint64
	for len(out) < n {
		h := sha256.New()
		h.Write([]byte("tcfs-mock-pad"))
		h.Write(key.bytes)
		h.Write(iv)
		var counter [8]byte
		binary.BigEndian.PutUint64(counter[:], block)
		h.Write(counter[:])
		out = append(out, h.Sum(nil)...)
		block++
	}
	return out[:n]
}

func mockTag(key Key, iv IV, ciphertext []byte) Tag {
	mac := hmac.New(sha256.New, key.bytes)
	mac.Write(iv)
	mac.Write(ciphertext)
	return Tag(mac.Sum(nil)[:TagSize])
}

func (m *MockProvider) Encrypt(plaintext []byte, key Key, iv IV) (EncryptedData, error) {
	if len(key.bytes) != KeySize {
		return EncryptedData{}, errs.Newf(errs.InvalidKey, "key must be %d bytes, got %d", KeySize, len(key.bytes))
	}
	if len(iv) != IVSize {
		return EncryptedData{}, errs.Newf(errs.InvalidIV, "iv must be %d bytes, got %d", IVSize, len(iv))
	}

	pad := mockKeystream(key, iv, len(plaintext))
	ct := make([]byte, len(plaintext))
	for i := range plaintext {
		ct[i] = plaintext[i] ^ pad[i]
	}

	ivCopy := make(IV, IVSize)
	copy(ivCopy, iv)

	return EncryptedData{Ciphertext: ct, IV: ivCopy, Tag: mockTag(key, iv, ct)}, nil
}

func (m *MockProvider) Decrypt(enc EncryptedData, key Key, iv IV) ([]byte, error) {
	if len(key.bytes) != KeySize {
		return nil, errs.Newf(errs.InvalidKey, "key must be %d bytes, got %d", KeySize, len(key.bytes))
	}
	if len(iv) != IVSize {
		return nil, errs.Newf(errs.InvalidIV, "iv must be %d bytes, got %d", IVSize, len(iv))
	}
	if len(enc.Tag) != TagSize {
		return nil, errs.Newf(errs.DecryptionFailed, "tag must be %d bytes, got %d", TagSize, len(enc.Tag))
	}

	// Verify before any plaintext is produced.
	if !hmac.Equal(enc.Tag, mockTag(key, iv, enc.Ciphertext)) {
		return nil, errs.New(errs.DecryptionFailed, "authentication failed: wrong key or corrupted data")
	}

	pad := mockKeystream(key, iv, len(enc.Ciphertext))
	plaintext := make([]byte, len(enc.Ciphertext))
	for i := range enc.Ciphertext {
		plaintext[i] = enc.Ciphertext[i] ^ pad[i]
	}
	return plaintext, nil
}
