package enums

import "fmt"

// MenuTag is the merchandising tag shown against a menu item.
type MenuTag string

const (
	MenuTagNormal   MenuTag = "normal"
	MenuTagFeatured MenuTag = "featured"
	MenuTagSale     MenuTag = "sale"
)

var validMenuTags = []MenuTag{
	MenuTagNormal,
	MenuTagFeatured,
	MenuTagSale,
}

// String implements fmt.Stringer.
func (m MenuTag) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MenuTag.
func (m MenuTag) IsValid() bool {
	for _, candidate := range validMenuTags {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMenuTag converts raw input into a MenuTag.
func ParseMenuTag(value string) (MenuTag, error) {
	for _, candidate := range validMenuTags {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid menu tag %q", value)
}
