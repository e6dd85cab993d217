package ticket

import "strings"

// ReviewVerdict enumerates the outcomes the quality gate may return.
type ReviewVerdict string

const (
	VerdictAccept ReviewVerdict = "accept"
	VerdictRevise ReviewVerdict = "revise"
	VerdictReject ReviewVerdict = "reject"
)

// ReviewOutcome is the quality gate's decision for one ticket revision. Note
// is required for revise and reject verdicts.
type ReviewOutcome struct {
	Verdict ReviewVerdict
	Note    string
}

// Accept constructs an accepting outcome.
func Accept() ReviewOutcome {
	return ReviewOutcome{Verdict: VerdictAccept}
}

// Revise constructs an outcome requesting another extraction pass.
func Revise(note string) ReviewOutcome {
	return ReviewOutcome{Verdict: VerdictRevise, Note: strings.TrimSpace(note)}
}

// Reject constructs a permanently rejecting outcome.
func Reject(note string) ReviewOutcome {
	return ReviewOutcome{Verdict: VerdictReject, Note: strings.TrimSpace(note)}
}

// ParseVerdict converts a service-provided label into a known verdict.
func ParseVerdict(value string) (ReviewVerdict, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "accept", "approved", "approve":
		return VerdictAccept, true
	case "revise", "revision":
		return VerdictRevise, true
	case "reject", "rejected":
		return VerdictReject, true
	default:
		return "", false
	}
}
