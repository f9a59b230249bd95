package policy

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tcfs/internal/crypto"
	"tcfs/internal/errs"
)

func TestParseTime(t *testing.T) {
	got, err := ParseTime("2027-06-15T12:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2027, 6, 15, 12, 0, 0, 0, time.UTC), got)

	// Offsets normalize to UTC.
	got, err = ParseTime("2027-06-15T17:00:00+05:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2027, 6, 15, 12, 0, 0, 0, time.UTC), got)
	assert.Equal(t, time.UTC, got.Location())

	for _, bad := range []string{"", "tomorrow", "2027-06-15", "2027-13-45T99:99:99Z"} {
		_, err := ParseTime(bad)
		assert.Equal(t, errs.InvalidTimeFormat, errs.CodeOf(err), "input %q", bad)
	}
}

func TestFormatTimeSecondResolution(t *testing.T) {
	in := time.Date(2027, 6, 15, 12, 0, 0, 123456789, time.UTC)
	assert.Equal(t, "2027-06-15T12:00:00Z", FormatTime(in))
}

func TestGate_PastUnlockTimeIsOpen(t *testing.T) {
	now := time.Now().UTC()
	p := Policy{UnlockAt: now.Add(-time.Hour), Owner: "alice@example.com"}

	assert.True(t, p.IsUnlockableAt(now))
	assert.Equal(t, time.Duration(0), p.TimeRemainingAt(now))
}

func TestGate_FutureUnlockTimeIsClosed(t *testing.T) {
	now := time.Now().UTC()
	p := Policy{UnlockAt: now.Add(time.Hour), Owner: "alice@example.com"}

	assert.False(t, p.IsUnlockableAt(now))
	remaining := p.TimeRemainingAt(now)
	assert.InDelta(t, 3600, remaining.Seconds(), 1)
}

func TestGate_GraceOpensEarlierNeverLater(t *testing.T) {
	now := time.Now().UTC()

	// Unlock in 1500s with 1800s grace: the effective gate is already in
	// the past.
	p := Policy{UnlockAt: now.Add(1500 * time.Second), GraceSeconds: 1800, Owner: "alice@example.com"}
	assert.True(t, p.IsUnlockableAt(now))
	assert.Equal(t, time.Duration(0), p.TimeRemainingAt(now))

	// Grace smaller than the distance to the unlock instant leaves the
	// gate closed, with the remainder shortened by the grace.
	p = Policy{UnlockAt: now.Add(time.Hour), GraceSeconds: 600, Owner: "alice@example.com"}
	assert.False(t, p.IsUnlockableAt(now))
	assert.InDelta(t, 3000, p.TimeRemainingAt(now).Seconds(), 1)
}

func TestGate_ExactBoundaryIsOpen(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	p := Policy{UnlockAt: now, Owner: "alice@example.com"}
	assert.True(t, p.IsUnlockableAt(now), "now >= effective unlock time opens the gate")
}

func TestValidate(t *testing.T) {
	future := time.Now().UTC().Add(time.Hour)

	cases := []struct {
		name   string
		policy Policy
		code   errs.Code
	}{
		{"valid", Policy{UnlockAt: future, Owner: "alice@example.com"}, 0},
		{"empty owner", Policy{UnlockAt: future}, errs.InvalidPolicy},
		{"zero unlock time", Policy{Owner: "alice@example.com"}, errs.InvalidPolicy},
		{"past unlock time", Policy{UnlockAt: time.Now().UTC().Add(-time.Minute), Owner: "alice@example.com"}, errs.InvalidPolicy},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.policy.Validate()
			if tc.code == 0 {
				assert.NoError(t, err)
			} else {
				assert.Equal(t, tc.code, errs.CodeOf(err))
			}
		})
	}
}

func TestValidate_GraceIsIrrelevant(t *testing.T) {
	// A past unlock time stays invalid at creation even when a huge grace
	// period would have opened the gate anyway.
	p := Policy{
		UnlockAt:     time.Now().UTC().Add(-time.Minute),
		Owner:        "alice@example.com",
		GraceSeconds: 86400,
	}
	assert.Equal(t, errs.InvalidPolicy, errs.CodeOf(p.Validate()))
}

func TestJSONRoundTrip(t *testing.T) {
	original := Policy{
		UnlockAt:     time.Date(2028, 3, 1, 9, 30, 15, 0, time.UTC),
		Owner:        "alice@example.com",
		Label:        "tax documents",
		Notes:        "open after the audit window",
		GraceSeconds: 300,
		Algorithm:    crypto.AlgorithmAES256GCM,
		KDF:          crypto.KDFArgon2id,
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	restored, err := ParseJSON(data, false)
	require.NoError(t, err)
	assert.Equal(t, original, restored)
}

func TestJSONRoundTrip_SubsecondPrecisionIsDropped(t *testing.T) {
	original := Policy{
		UnlockAt: time.Date(2028, 3, 1, 9, 30, 15, 999999999, time.UTC),
		Owner:    "alice@example.com",
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	restored, err := ParseJSON(data, false)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2028, 3, 1, 9, 30, 15, 0, time.UTC), restored.UnlockAt)
}

func TestJSONWireFormat(t *testing.T) {
	p := Policy{
		UnlockAt:     time.Date(2028, 3, 1, 9, 30, 15, 0, time.UTC),
		Owner:        "alice@example.com",
		GraceSeconds: 60,
	}

	data, err := json.Marshal(p)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "2028-03-01T09:30:15Z", raw["unlock_at"])
	assert.Equal(t, "alice@example.com", raw["owner"])
	assert.Equal(t, float64(60), raw["grace_seconds"])
	assert.Equal(t, "AES-256-GCM", raw["algorithm"])
	assert.Equal(t, "pbkdf2", raw["kdf"])
}

func TestParseJSON_SkipValidationAllowsPastPolicies(t *testing.T) {
	// A capsule whose unlock time has passed is still a legitimate,
	// possibly already unlockable, capsule.
	data := []byte(`{"unlock_at":"2020-01-01T00:00:00Z","owner":"alice@example.com","label":"","notes":"","grace_seconds":0,"algorithm":"AES-256-GCM","kdf":"pbkdf2"}`)

	_, err := ParseJSON(data, false)
	assert.Equal(t, errs.InvalidPolicy, errs.CodeOf(err), "strict parse must reject a past unlock time")

	p, err := ParseJSON(data, true)
	require.NoError(t, err)
	assert.True(t, p.IsUnlockable())
}

func TestParseJSON_Malformed(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"not json", "{{{"},
		{"missing unlock_at", `{"owner":"alice@example.com"}`},
		{"bad unlock_at", `{"unlock_at":"next tuesday","owner":"alice@example.com"}`},
		{"unknown algorithm", `{"unlock_at":"2030-01-01T00:00:00Z","owner":"a","algorithm":"ROT13"}`},
		{"unknown kdf", `{"unlock_at":"2030-01-01T00:00:00Z","owner":"a","kdf":"md5"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseJSON([]byte(tc.data), true)
			require.Error(t, err)
		})
	}
}

func TestParseJSON_MissingEnumFieldsDefault(t *testing.T) {
	data := []byte(`{"unlock_at":"2030-01-01T00:00:00Z","owner":"alice@example.com"}`)

	p, err := ParseJSON(data, true)
	require.NoError(t, err)
	assert.Equal(t, crypto.AlgorithmAES256GCM, p.Algorithm)
	assert.Equal(t, crypto.KDFPBKDF2, p.KDF)
}

func TestEffectiveUnlockTime(t *testing.T) {
	unlock := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	p := Policy{UnlockAt: unlock, GraceSeconds: 900}
	assert.Equal(t, unlock.Add(-15*time.Minute), p.EffectiveUnlockTime())
}

func TestString(t *testing.T) {
	p := Policy{
		UnlockAt: time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC),
		Owner:    "alice@example.com",
		Label:    "will",
	}
	s := p.String()
	assert.Contains(t, s, "2030-01-01T12:00:00Z")
	assert.Contains(t, s, "alice@example.com")
	assert.Contains(t, s, "pbkdf2")
}
