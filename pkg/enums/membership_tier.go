package enums

import "fmt"

// MembershipTier names the membership levels sold through the purchase surface.
type MembershipTier string

const (
	MembershipTierSupporter MembershipTier = "supporter"
	MembershipTierPatron    MembershipTier = "patron"
	MembershipTierFounder   MembershipTier = "founder"
)

var validMembershipTiers = []MembershipTier{
	MembershipTierSupporter,
	MembershipTierPatron,
	MembershipTierFounder,
}

// String implements fmt.Stringer.
func (m MembershipTier) String() string {
	return string(m)
}

// IsValid reports whether the tier is recognized.
func (m MembershipTier) IsValid() bool {
	for _, candidate := range validMembershipTiers {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMembershipTier converts a raw string into a MembershipTier.
func ParseMembershipTier(value string) (MembershipTier, error) {
	for _, candidate := range validMembershipTiers {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid membership tier %q", value)
}
