package reconcile

// ConfidenceClass buckets a match score for the apply/skip decision
type ConfidenceClass int

const (
	Low ConfidenceClass = iota
	Medium
	High
)

// Class thresholds
const (
	highThreshold   = 0.8
	mediumThreshold = 0.6
)

// Classify maps a score to its class: High at 0.8 and above, Medium from
// 0.6 up to 0.8, Low below 0.6
func Classify(score float64) ConfidenceClass {
	switch {
	case score >= highThreshold:
		return High
	case score >= mediumThreshold:
		return Medium
	default:
		return Low
	}
}

// String returns the lower-case class name used in logs, metrics and storage
func (c ConfidenceClass) String() string {
	switch c {
	case High:
		return "high"
	case Medium:
		return "medium"
	default:
		return "low"
	}
}

// Applies reports whether matches of this class are written to the ledger
func (c ConfidenceClass) Applies() bool {
	return c == High
}
