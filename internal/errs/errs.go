// Package errs defines the closed error taxonomy shared by every tcfs
// component. Operations return *Error values carrying a Code plus a human
// readable message; callers branch on the code, never on message text.
package errs

import (
	"errors"
	"fmt"
)

// Code identifies a failure kind. The set is closed: new codes are added
// here, never invented at call sites.
type Code uint8

const (
	// CryptoInitFailed means the crypto backend or its random source is
	// unavailable.
	CryptoInitFailed Code = iota + 1
	// EncryptionFailed means AEAD sealing failed.
	EncryptionFailed
	// DecryptionFailed means AEAD opening failed: wrong key, altered
	// ciphertext, altered tag, or altered IV. Never partial output.
	DecryptionFailed
	// InvalidKey means key material has the wrong length or is malformed.
	InvalidKey
	// InvalidIV means the IV has the wrong length or is malformed.
	InvalidIV
	// InvalidTimeFormat means a timestamp failed to parse as RFC3339.
	InvalidTimeFormat
	// TimeNotReached means the unlock gate is still closed.
	TimeNotReached
	// FileNotFound means a required artifact does not exist.
	FileNotFound
	// FileAccessDenied means an artifact exists but cannot be read or
	// written.
	FileAccessDenied
	// InvalidMetadata means the metadata artifact is corrupt or missing a
	// required field.
	InvalidMetadata
	// CorruptedData means an artifact's content is inconsistent with its
	// metadata.
	CorruptedData
	// InvalidPolicy means a policy failed creation-time validation.
	InvalidPolicy
	// InvalidArgument means a caller-supplied value is unusable.
	InvalidArgument
	// Internal marks a violated internal invariant.
	Internal
	// NotImplemented marks a declared but unsupported variant.
	NotImplemented
)

var codeNames = map[Code]string{
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

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("code(%d)", uint8(c))
}

// Error is a tagged failure: a Code from the closed set plus human text.
// It optionally wraps an underlying cause for errors.Is/As chains.
type Error struct {
	Code    Code
	Message string
	cause   error
}

// New creates an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error that records cause as its underlying error.
// A nil cause behaves like New.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is reports whether target is an *Error with the same code, so
// errors.Is(err, errs.New(errs.FileNotFound, "")) matches by code alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// CodeOf extracts the Code from err. Returns 0 if err is nil or carries no
// *Error anywhere in its chain.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// Must returns v or panics if err is non-nil. Reaching for a value on a
// failed operation is a programming bug, not a runtime condition, so the
// failure is loud.
func Must[T any](v T, err error) T {
	if err != nil {
		panic(fmt.Sprintf("errs.Must on error result: %v", err))
	}
	return v
}

// MustOK panics if err is non-nil. The no-payload counterpart of Must.
func MustOK(err error) {
	if err != nil {
		panic(fmt.Sprintf("errs.MustOK on error result: %v", err))
	}
}
