package enums

import "strings"

// DiscountTier identifies the discount card presented at checkout. Any tier
// other than "none" earns the flat discount; tiers are not differentiated.
type DiscountTier string

const (
	DiscountTierNone   DiscountTier = "none"
	DiscountTierSenior DiscountTier = "senior"
	DiscountTierPWD    DiscountTier = "pwd"
)

// String implements fmt.Stringer.
func (d DiscountTier) String() string {
	return string(d)
}

// IsNone reports whether the tier earns no discount.
func (d DiscountTier) IsNone() bool {
	return strings.EqualFold(string(d), string(DiscountTierNone)) || strings.TrimSpace(string(d)) == ""
}
