package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessageCarriesCode(t *testing.T) {
	err := New(FileNotFound, "capsule missing")
	assert.Equal(t, "file_not_found: capsule missing", err.Error())
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("disk on fire")
	err := Wrap(FileAccessDenied, "cannot read artifact", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "disk on fire")
	assert.Equal(t, FileAccessDenied, CodeOf(err))
}

func TestCodeOfThroughWrappingChain(t *testing.T) {
	inner := New(DecryptionFailed, "tag mismatch")
	outer := fmt.Errorf("unlock failed: %w", inner)

	assert.Equal(t, DecryptionFailed, CodeOf(outer))
	assert.True(t, IsCode(outer, DecryptionFailed))
	assert.False(t, IsCode(outer, TimeNotReached))
}

func TestCodeOfNonTaggedError(t *testing.T) {
	assert.Equal(t, Code(0), CodeOf(errors.New("plain")))
	assert.Equal(t, Code(0), CodeOf(nil))
}

func TestIsMatchesByCodeAlone(t *testing.T) {
	err := Newf(InvalidPolicy, "owner %q rejected", "")
	assert.True(t, errors.Is(err, New(InvalidPolicy, "different text")))
	assert.False(t, errors.Is(err, New(InvalidArgument, "different code")))
}

func TestCodeStrings(t *testing.T) {
	cases := map[Code]string{
		CryptoInitFailed:  "crypto_init_failed",
		EncryptionFailed:  "encryption_failed",
		DecryptionFailed:  "decryption_failed",
		InvalidKey:        "invalid_key",
		InvalidIV:         "invalid_iv",
		InvalidTimeFormat: "invalid_time_format",
		TimeNotReached:    "time_not_reached",
		FileNotFound:      "file_not_found",
		FileAccessDenied:  "file_access_denied",
		InvalidMetadata:   "invalid_metadata",
		CorruptedData:     "corrupted_data",
		InvalidPolicy:     "invalid_policy",
		InvalidArgument:   "invalid_argument",
		Internal:          "internal",
		NotImplemented:    "not_implemented",
	}
	for code, want := range cases {
		assert.Equal(t, want, code.String())
	}
	assert.Equal(t, "code(200)", Code(200).String())
}

func TestMustReturnsValueOnSuccess(t *testing.T) {
	v := Must(42, nil)
	assert.Equal(t, 42, v)
	require.NotPanics(t, func() { MustOK(nil) })
}

func TestMustPanicsOnError(t *testing.T) {
	require.Panics(t, func() {
		Must(0, New(Internal, "invariant violated"))
	})
	require.Panics(t, func() {
		MustOK(New(Internal, "invariant violated"))
	})
}
