package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"io"

	"github.com/awnumar/memguard"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"

	"tcfs/internal/errs"
)

// aesGCMProvider is the production backend: AES-256-GCM on the platform
// CSPRNG, with PBKDF2-HMAC-SHA256 and Argon2id for derivation.
type aesGCMProvider struct {
	codecs
}

func (p *aesGCMProvider) Name() string { return BackendAESGCM }

func (p *aesGCMProvider) GenerateKey() (Key, error) {
	b := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return Key{}, errs.Wrap(errs.CryptoInitFailed, "key generation failed", err)
	}
	return Key{bytes: b}, nil
}

func (p *aesGCMProvider) GenerateIV() (IV, error) {
	b := make([]byte, IVSize)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, errs.Wrap(errs.CryptoInitFailed, "iv generation failed", err)
	}
	return IV(b), nil
}

func (p *aesGCMProvider) GenerateSalt() (Salt, error) {
	b := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, errs.Wrap(errs.CryptoInitFailed, "salt generation failed", err)
	}
	return Salt(b), nil
}

func (p *aesGCMProvider) DeriveKey(password string, salt Salt, params KDFParams) (Key, error) {
	if len(salt) == 0 {
		return Key{}, errs.New(errs.InvalidArgument, "salt must not be empty")
	}

	switch params.Type {
	case KDFPBKDF2:
		if params.Iterations == 0 {
			return Key{}, errs.New(errs.InvalidArgument, "pbkdf2 iterations must be positive")
		}
		derived := pbkdf2.Key([]byte(password), salt, int(params.Iterations), KeySize, sha256.New)
		return Key{bytes: derived}, nil

	case KDFArgon2id:
		if params.Iterations == 0 || params.MemoryKB == 0 || params.Parallelism == 0 {
			return Key{}, errs.New(errs.InvalidArgument, "argon2id requires positive time, memory, and parallelism factors")
		}
		derived := argon2.IDKey([]byte(password), salt, params.Iterations, params.MemoryKB, params.Parallelism, KeySize)
		return Key{bytes: derived}, nil

	default:
		return Key{}, errs.Newf(errs.NotImplemented, "kdf %q is not supported", params.Type)
	}
}

func (p *aesGCMProvider) Encrypt(plaintext []byte, key Key, iv IV) (EncryptedData, error) {
	gcm, err := newGCM(key, iv)
	if err != nil {
		return EncryptedData{}, err
	}

	// Seal appends ciphertext then tag; split them so the tag travels
	// beside the ciphertext rather than inside it.
	sealed := gcm.Seal(nil, iv, plaintext, nil)
	ct := sealed[:len(plaintext)]
	tag := make(Tag, TagSize)
	copy(tag, sealed[len(plaintext):])

	ivCopy := make(IV, IVSize)
	copy(ivCopy, iv)

	return EncryptedData{Ciphertext: ct, IV: ivCopy, Tag: tag}, nil
}

func (p *aesGCMProvider) Decrypt(enc EncryptedData, key Key, iv IV) ([]byte, error) {
	if len(enc.Tag) != TagSize {
		return nil, errs.Newf(errs.DecryptionFailed, "tag must be %d bytes, got %d", TagSize, len(enc.Tag))
	}

	gcm, err := newGCM(key, iv)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(enc.Ciphertext)+TagSize)
	sealed = append(sealed, enc.Ciphertext...)
	sealed = append(sealed, enc.Tag...)

	plaintext, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, errs.Wrap(errs.DecryptionFailed, "authentication failed: wrong key or corrupted data", err)
	}
	return plaintext, nil
}

func newGCM(key Key, iv IV) (cipher.AEAD, error) {
	if len(key.bytes) != KeySize {
		return nil, errs.Newf(errs.InvalidKey, "key must be %d bytes, got %d", KeySize, len(key.bytes))
	}
	if len(iv) != IVSize {
		return nil, errs.Newf(errs.InvalidIV, "iv must be %d bytes, got %d", IVSize, len(iv))
	}

	block, err := aes.NewCipher(key.bytes)
	if err != nil {
		return nil, errs.Wrap(errs.CryptoInitFailed, "cipher initialization failed", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errs.Wrap(errs.CryptoInitFailed, "gcm initialization failed", err)
	}
	return gcm, nil
}

// WipeBytes overwrites b in place. Used for intermediate secret buffers
// that are not wrapped in a Key.
func WipeBytes(b []byte) {
	if len(b) > 0 {
		memguard.WipeBytes(b)
	}
}
