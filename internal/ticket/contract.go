package ticket

import (
	"fmt"
	"sort"
	"strings"
)

// Extraction field names. Each category binds a fixed subset of these.
const (
	FieldReproductionSteps   = "reproduction_steps"
	FieldSeverityGuess       = "severity_guess"
	FieldUserImpact          = "user_impact"
	FieldRequestedCapability = "requested_capability"
	FieldSummary             = "summary"
)

// contracts declares the exact field set each category's extraction payload
// must carry. Unclassified items never reach extraction and have no contract.
var contracts = map[Category][]string{
	CategoryBug:            {FieldReproductionSteps, FieldSeverityGuess},
	CategoryFeatureRequest: {FieldUserImpact, FieldRequestedCapability},
	CategoryPraise:         {FieldSummary},
	CategoryComplaint:      {FieldSummary},
}

// ContractFields returns the required extraction field names for a category in
// stable order. The boolean reports whether the category has a contract.
func ContractFields(category Category) ([]string, bool) {
	fields, ok := contracts[category]
	if !ok {
		return nil, false
	}
	cp := make([]string, len(fields))
	copy(cp, fields)
	sort.Strings(cp)
	return cp, true
}

// ExtractionResult is a category-specific structured payload mapping contract
// field names to extracted text.
type ExtractionResult map[string]string

// ValidateContract checks that the result's field set matches the category's
// contract exactly: no missing required fields, no extraneous fields, no blank
// values.
func (r ExtractionResult) ValidateContract(category Category) error {
	required, ok := contracts[category]
	if !ok {
		return fmt.Errorf("category %s has no extraction contract", category)
	}

	var missing, blank []string
	for _, field := range required {
		value, present := r[field]
		if !present {
			missing = append(missing, field)
			continue
		}
		if strings.TrimSpace(value) == "" {
			blank = append(blank, field)
		}
	}

	var extra []string
	requiredSet := make(map[string]struct{}, len(required))
	for _, field := range required {
		requiredSet[field] = struct{}{}
	}
	for field := range r {
		if _, ok := requiredSet[field]; !ok {
			extra = append(extra, field)
		}
	}
	sort.Strings(extra)

	switch {
	case len(missing) > 0:
		return fmt.Errorf("extraction for %s missing fields: %s", category, strings.Join(missing, ", "))
	case len(extra) > 0:
		return fmt.Errorf("extraction for %s has extraneous fields: %s", category, strings.Join(extra, ", "))
	case len(blank) > 0:
		return fmt.Errorf("extraction for %s has blank fields: %s", category, strings.Join(blank, ", "))
	}
	return nil
}

// Fields returns the result's field names in stable order.
func (r ExtractionResult) Fields() []string {
	fields := make([]string, 0, len(r))
	for field := range r {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// Clone returns an independent copy of the result.
func (r ExtractionResult) Clone() ExtractionResult {
	if r == nil {
		return nil
	}
	cp := make(ExtractionResult, len(r))
	for k, v := range r {
		cp[k] = v
	}
	return cp
}
