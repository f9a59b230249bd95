// Package policy implements the time gate that controls when a capsule
// may be decrypted. A Policy holds only the unlock instant and the grace
// period; whether the gate is open is recomputed from the wall clock on
// every query, never stored.
package policy

import (
	"encoding/json"
	"fmt"
	"time"

	"tcfs/internal/crypto"
	"tcfs/internal/errs"
)

// timeLayout is the on-disk timestamp form: RFC3339 UTC at second
// resolution. Sub-second precision does not round-trip and is not meant
// to.
const timeLayout = "2006-01-02T15:04:05Z"

// Policy is the time-gate configuration bound to a capsule. Treat it as
// immutable once Validate has accepted it.
type Policy struct {
	UnlockAt     time.Time
	Owner        string
	Label        string
	Notes        string
	GraceSeconds uint32
	Algorithm    crypto.Algorithm
	KDF          crypto.KDF
}

// ParseTime parses an RFC3339 timestamp and normalizes it to UTC.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, errs.Newf(errs.InvalidTimeFormat, "invalid time %q, expected RFC3339", s)
	}
	return t.UTC(), nil
}

// FormatTime renders t as RFC3339 UTC at second resolution.
func FormatTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(timeLayout)
}

// EffectiveUnlockTime is the instant the gate actually opens: the unlock
// instant pulled earlier by the grace period. Grace is tolerance for
// clock skew between lock and unlock, never an added delay.
func (p Policy) EffectiveUnlockTime() time.Time {
	return p.UnlockAt.Add(-time.Duration(p.GraceSeconds) * time.Second)
}

// IsUnlockableAt reports whether the gate is open at the given instant.
func (p Policy) IsUnlockableAt(now time.Time) bool {
	return !now.Before(p.EffectiveUnlockTime())
}

// IsUnlockable reports whether the gate is open now.
func (p Policy) IsUnlockable() bool {
	return p.IsUnlockableAt(time.Now().UTC())
}

// TimeRemainingAt returns how long until the gate opens, or zero if it is
// already open.
func (p Policy) TimeRemainingAt(now time.Time) time.Duration {
	effective := p.EffectiveUnlockTime()
	if !now.Before(effective) {
		return 0
	}
	return effective.Sub(now)
}

// TimeRemaining returns how long until the gate opens, measured from now.
func (p Policy) TimeRemaining() time.Duration {
	return p.TimeRemainingAt(time.Now().UTC())
}

// Validate is the strict creation-time check: owner present and unlock
// instant strictly in the future. Grace period is deliberately irrelevant
// here. Deserialization for an unlock attempt skips this check, since a
// policy whose unlock time has passed is a legitimate, possibly already
// unlockable, capsule.
func (p Policy) Validate() error {
	if p.Owner == "" {
		return errs.New(errs.InvalidPolicy, "owner cannot be empty")
	}
	if p.UnlockAt.IsZero() {
		return errs.New(errs.InvalidPolicy, "unlock time must be set")
	}
	if !p.UnlockAt.After(time.Now().UTC()) {
		return errs.New(errs.InvalidPolicy, "unlock time must be in the future")
	}
	return nil
}

// policyJSON is the canonical wire form of a Policy.
type policyJSON struct {
	UnlockAt     string `json:"unlock_at"`
	Owner        string `json:"owner"`
	Label        string `json:"label"`
	Notes        string `json:"notes"`
	GraceSeconds uint32 `json:"grace_seconds"`
	Algorithm    string `json:"algorithm"`
	KDF          string `json:"kdf"`
}

// MarshalJSON renders the policy in its canonical wire form, with the
// unlock instant at second resolution.
func (p Policy) MarshalJSON() ([]byte, error) {
	return json.Marshal(policyJSON{
		UnlockAt:     FormatTime(p.UnlockAt),
		Owner:        p.Owner,
		Label:        p.Label,
		Notes:        p.Notes,
		GraceSeconds: p.GraceSeconds,
		Algorithm:    p.Algorithm.String(),
		KDF:          p.KDF.String(),
	})
}

// UnmarshalJSON parses the wire form without the strict-future check, so
// unmarshaling a stored capsule whose unlock time has passed succeeds.
// Use ParseJSON to validate at creation time.
func (p *Policy) UnmarshalJSON(data []byte) error {
	var raw policyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return errs.Wrap(errs.InvalidPolicy, "malformed policy json", err)
	}

	if raw.UnlockAt == "" {
		return errs.New(errs.InvalidPolicy, "missing unlock_at field")
	}
	unlockAt, err := ParseTime(raw.UnlockAt)
	if err != nil {
		return fmt.Errorf("parsing unlock_at: %w", err)
	}

	// Absent algorithm and kdf fields fall back to the defaults; values
	// that are present but unknown are rejected.
	algorithm := crypto.AlgorithmAES256GCM
	if raw.Algorithm != "" {
		var err error
		algorithm, err = crypto.ParseAlgorithm(raw.Algorithm)
		if err != nil {
			return errs.Newf(errs.InvalidPolicy, "unsupported algorithm %q", raw.Algorithm)
		}
	}
	kdf := crypto.KDFPBKDF2
	if raw.KDF != "" {
		var err error
		kdf, err = crypto.ParseKDF(raw.KDF)
		if err != nil {
			return errs.Newf(errs.InvalidPolicy, "unsupported kdf %q", raw.KDF)
		}
	}

	*p = Policy{
		UnlockAt:     unlockAt,
		Owner:        raw.Owner,
		Label:        raw.Label,
		Notes:        raw.Notes,
		GraceSeconds: raw.GraceSeconds,
		Algorithm:    algorithm,
		KDF:          kdf,
	}
	return nil
}

// ParseJSON decodes a policy from its wire form. With skipValidation
// false it additionally applies the strict creation-time check; the
// unlock and status paths pass true, since their policies may be
// legitimately in the past.
func ParseJSON(data []byte, skipValidation bool) (Policy, error) {
	var p Policy
	if err := json.Unmarshal(data, &p); err != nil {
		return Policy{}, err
	}
	if !skipValidation {
		if err := p.Validate(); err != nil {
			return Policy{}, err
		}
	}
	return p, nil
}

// String renders a single-line summary for logs and status output.
func (p Policy) String() string {
	return fmt.Sprintf("Policy{unlock_at=%s, owner=%s, label=%s, grace_seconds=%d, algorithm=%s, kdf=%s}",
		FormatTime(p.UnlockAt), p.Owner, p.Label, p.GraceSeconds, p.Algorithm, p.KDF)
}
