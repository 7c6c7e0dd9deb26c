package identity

import (
	"strings"

	"github.com/afrinict/nbcportal-sub001/internal/domain/shared"
)

// RoleTier is a department-scoped privilege level. Tiers are ordered:
// TierReadOnly < TierWrite < TierAdmin. The zero value is not a valid tier.
type RoleTier uint8

const (
	TierReadOnly RoleTier = iota + 1
	TierWrite
	TierAdmin
)

var tierNames = map[RoleTier]string{
	TierReadOnly: "read_only",
	TierWrite:    "write",
	TierAdmin:    "admin",
}

// AllTiers returns every valid tier in ascending privilege order
func AllTiers() []RoleTier {
	return []RoleTier{TierReadOnly, TierWrite, TierAdmin}
}

// ParseRoleTier parses the wire name of a tier ("admin", "write", "read_only")
func ParseRoleTier(s string) (RoleTier, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for tier, n := range tierNames {
		if n == name {
			return tier, nil
		}
	}
	return 0, shared.NewDomainError(shared.CodeInvalidInput, "Unknown role tier: "+s)
}

// IsValid reports whether t is one of the three defined tiers
func (t RoleTier) IsValid() bool {
	_, ok := tierNames[t]
	return ok
}

// String returns the wire name of the tier
func (t RoleTier) String() string {
	if n, ok := tierNames[t]; ok {
		return n
	}
	return "unknown"
}

// AtLeast reports whether t grants at least the privilege of other
func (t RoleTier) AtLeast(other RoleTier) bool {
	return t.IsValid() && t >= other
}

// MarshalText implements encoding.TextMarshaler
func (t RoleTier) MarshalText() ([]byte, error) {
	if !t.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Invalid role tier")
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (t *RoleTier) UnmarshalText(b []byte) error {
	parsed, err := ParseRoleTier(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
