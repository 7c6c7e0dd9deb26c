package identity

import (
	"encoding/json"
	"math/bits"
	"sort"

	"github.com/afrinict/nbcportal-sub001/internal/domain/shared"
)

// Capability is a single named permission
type Capability uint16

const (
	CanRead Capability = 1 << iota
	CanWrite
	CanDelete
	CanManageUsers
	CanApproveApplications
	CanViewAnalytics
	CanManageRoles
	CanAssignApplications
)

var capabilityNames = map[Capability]string{
	CanRead:                "can_read",
	CanWrite:               "can_write",
	CanDelete:              "can_delete",
	CanManageUsers:         "can_manage_users",
	CanApproveApplications: "can_approve_applications",
	CanViewAnalytics:       "can_view_analytics",
	CanManageRoles:         "can_manage_roles",
	CanAssignApplications:  "can_assign_applications",
}

// String returns the wire name of the capability
func (c Capability) String() string {
	if n, ok := capabilityNames[c]; ok {
		return n
	}
	return "unknown"
}

// ParseCapability parses a capability wire name such as "can_delete"
func ParseCapability(s string) (Capability, error) {
	for c, n := range capabilityNames {
		if n == s {
			return c, nil
		}
	}
	return 0, shared.NewDomainError(shared.CodeInvalidInput, "Unknown capability: "+s)
}

// CapabilitySet is an immutable set of capabilities
type CapabilitySet uint16

// EmptySet grants nothing. It is what callers fall back to on NotFound.
const EmptySet CapabilitySet = 0

// AllCapabilities is the set held by admins and department admins
const AllCapabilities = CapabilitySet(CanRead | CanWrite | CanDelete | CanManageUsers |
	CanApproveApplications | CanViewAnalytics | CanManageRoles | CanAssignApplications)

// capabilityMatrix is the single source of truth for what each tier holds.
var capabilityMatrix = map[RoleTier]CapabilitySet{
	TierReadOnly: NewCapabilitySet(CanRead, CanViewAnalytics),
	TierWrite:    NewCapabilitySet(CanRead, CanViewAnalytics, CanWrite),
	TierAdmin:    AllCapabilities,
}

// NewCapabilitySet builds a set from individual capabilities
func NewCapabilitySet(caps ...Capability) CapabilitySet {
	var s CapabilitySet
	for _, c := range caps {
		s |= CapabilitySet(c)
	}
	return s
}

// CapabilitiesFor returns the capability set of a tier, or EmptySet for an invalid tier
func CapabilitiesFor(tier RoleTier) CapabilitySet {
	return capabilityMatrix[tier]
}

// Has reports whether c is in the set
func (s CapabilitySet) Has(c Capability) bool {
	return c != 0 && s&CapabilitySet(c) == CapabilitySet(c)
}

// Len returns the number of capabilities in the set
func (s CapabilitySet) Len() int {
	return bits.OnesCount16(uint16(s))
}

// Names returns the sorted wire names of the capabilities in the set
func (s CapabilitySet) Names() []string {
	names := make([]string, 0, s.Len())
	for c, n := range capabilityNames {
		if s.Has(c) {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}

// MarshalJSON encodes the set as an object of capability flags
func (s CapabilitySet) MarshalJSON() ([]byte, error) {
	flags := make(map[string]bool, len(capabilityNames))
	for c, n := range capabilityNames {
		flags[n] = s.Has(c)
	}
	return json.Marshal(flags)
}

// Authorize reports whether set permits capability. It has no side effects.
func Authorize(set CapabilitySet, capability Capability) bool {
	return set.Has(capability)
}
