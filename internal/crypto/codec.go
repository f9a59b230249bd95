package crypto

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"

	"tcfs/internal/errs"
)

// codecs implements the hashing and encoding half of Provider. Both
// backends share it: encodings and SHA-256 have a single correct answer,
// so there is nothing to mock.
type codecs struct{}

func (codecs) SHA256(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

func (codecs) ToHex(data []byte) string {
	return strings.ToUpper(hex.EncodeToString(data))
}

func (codecs) FromHex(s string) ([]byte, error) {
	b, err := hex.DecodeString(strings.ToLower(s))
	if err != nil {
		return nil, errs.Wrap(errs.InvalidArgument, "invalid hex input", err)
	}
	return b, nil
}

func (codecs) ToBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

func (codecs) FromBase64(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidArgument, "invalid base64 input", err)
	}
	return b, nil
}
