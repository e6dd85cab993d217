package ticket

import "strings"

// Category is the routing classification assigned to a feedback item. The set
// is closed; Unclassified is the terminal category when confidence is
// insufficient or the text-understanding service fails irrecoverably.
type Category string

const (
	CategoryBug            Category = "bug"
	CategoryFeatureRequest Category = "feature_request"
	CategoryPraise         Category = "praise"
	CategoryComplaint      Category = "complaint"
	CategoryUnclassified   Category = "unclassified"
)

var allCategories = []Category{
	CategoryBug,
	CategoryFeatureRequest,
	CategoryPraise,
	CategoryComplaint,
	CategoryUnclassified,
}

// categoryAliases maps labels the understanding service is known to emit onto
// the canonical enum. The service is prompted for canonical values but cannot
// be trusted to comply.
var categoryAliases = map[string]Category{
	"bug":             CategoryBug,
	"bug report":      CategoryBug,
	"feature_request": CategoryFeatureRequest,
	"feature request": CategoryFeatureRequest,
	"feature":         CategoryFeatureRequest,
	"praise":          CategoryPraise,
	"complaint":       CategoryComplaint,
	"unclassified":    CategoryUnclassified,
	"unknown":         CategoryUnclassified,
	"spam":            CategoryUnclassified,
}

// AllCategories returns the ordered list of known categories.
func AllCategories() []Category {
	cp := make([]Category, len(allCategories))
	copy(cp, allCategories)
	return cp
}

// ParseCategory converts a service-provided label into a known Category.
func ParseCategory(value string) (Category, bool) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "", false
	}
	if cat, ok := categoryAliases[normalized]; ok {
		return cat, true
	}
	return "", false
}

// Label returns the human-readable form used in exports and CLI output.
func (c Category) Label() string {
	switch c {
	case CategoryBug:
		return "Bug"
	case CategoryFeatureRequest:
		return "Feature Request"
	case CategoryPraise:
		return "Praise"
	case CategoryComplaint:
		return "Complaint"
	case CategoryUnclassified:
		return "Unclassified"
	default:
		return string(c)
	}
}
