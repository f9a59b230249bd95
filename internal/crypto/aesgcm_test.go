package crypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tcfs/internal/errs"
)

func newAESProvider(t *testing.T) Provider {
	t.Helper()
	p, err := NewProvider(BackendAESGCM)
	require.NoError(t, err)
	return p
}

func TestAESGCM_RejectsWrongKeyLength(t *testing.T) {
	p := newAESProvider(t)
	iv, err := p.GenerateIV()
	require.NoError(t, err)

	shortKey := Key{bytes: make([]byte, 16)}
	_, err = p.Encrypt([]byte("data"), shortKey, iv)
	assert.Equal(t, errs.InvalidKey, errs.CodeOf(err))

	_, err = p.Decrypt(EncryptedData{Ciphertext: []byte("x"), IV: iv, Tag: make(Tag, TagSize)}, shortKey, iv)
	assert.Equal(t, errs.InvalidKey, errs.CodeOf(err))
}

func TestAESGCM_RejectsWrongIVLength(t *testing.T) {
	p := newAESProvider(t)
	key, err := p.GenerateKey()
	require.NoError(t, err)
	defer key.Destroy()

	_, err = p.Encrypt([]byte("data"), key, IV(make([]byte, 16)))
	assert.Equal(t, errs.InvalidIV, errs.CodeOf(err))
}

func TestAESGCM_RejectsWrongTagLength(t *testing.T) {
	p := newAESProvider(t)
	key, err := p.GenerateKey()
	require.NoError(t, err)
	defer key.Destroy()
	iv, err := p.GenerateIV()
	require.NoError(t, err)

	enc, err := p.Encrypt([]byte("data"), key, iv)
	require.NoError(t, err)

	enc.Tag = enc.Tag[:8]
	_, err = p.Decrypt(enc, key, iv)
	assert.Equal(t, errs.DecryptionFailed, errs.CodeOf(err))
}

func TestAESGCM_CiphertextDoesNotAliasInput(t *testing.T) {
	p := newAESProvider(t)
	key, err := p.GenerateKey()
	require.NoError(t, err)
	defer key.Destroy()
	iv, err := p.GenerateIV()
	require.NoError(t, err)

	pt := []byte("original content")
	enc, err := p.Encrypt(pt, key, iv)
	require.NoError(t, err)

	assert.False(t, bytes.Equal(pt, enc.Ciphertext), "ciphertext must differ from plaintext")

	// Mutating the returned IV must not affect a stored copy of the input.
	enc.IV[0] ^= 0xFF
	assert.NotEqual(t, enc.IV, iv)
}

func TestAESGCM_DistinctIVsProduceDistinctCiphertext(t *testing.T) {
	p := newAESProvider(t)
	key, err := p.GenerateKey()
	require.NoError(t, err)
	defer key.Destroy()

	pt := []byte("same plaintext, fresh iv")
	iv1, err := p.GenerateIV()
	require.NoError(t, err)
	iv2, err := p.GenerateIV()
	require.NoError(t, err)

	enc1, err := p.Encrypt(pt, key, iv1)
	require.NoError(t, err)
	enc2, err := p.Encrypt(pt, key, iv2)
	require.NoError(t, err)

	assert.NotEqual(t, enc1.Ciphertext, enc2.Ciphertext)
}

func TestKey_NewKeyEnforcesLength(t *testing.T) {
	_, err := NewKey(make([]byte, 31))
	assert.Equal(t, errs.InvalidKey, errs.CodeOf(err))

	key, err := NewKey(make([]byte, KeySize))
	require.NoError(t, err)
	assert.False(t, key.Empty())
	key.Destroy()
}

func TestKey_DestroyWipesBackingBytes(t *testing.T) {
	raw := bytes.Repeat([]byte{0xA5}, KeySize)
	key, err := NewKey(raw)
	require.NoError(t, err)

	key.Destroy()
	assert.Equal(t, make([]byte, KeySize), raw, "backing bytes must be zeroed")

	// Destroy is idempotent.
	key.Destroy()
}

func TestKey_EmptyKeyDestroyIsSafe(t *testing.T) {
	var key Key
	assert.True(t, key.Empty())
	key.Destroy()
}
