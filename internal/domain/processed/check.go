// Package processed tracks which ledger transactions have already been
// annotated, so that repeated runs never write the same memo twice.
//
// Two independent signals are used:
//   - idempotence-by-id: the durable Ledger of transaction ids (authoritative)
//   - idempotence-by-content: a heuristic that inspects the memo for
//     markers this engine writes
package processed

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/eshaffer321/ledger-reconciler/internal/domain/model"
)

// IdempotenceCheck decides whether a transaction was already handled.
type IdempotenceCheck interface {
	Name() string
	AlreadyProcessed(tx model.Transaction) bool
}

// DefaultMaxMemoLength is the memo length above which a transaction is
// assumed to have been annotated already.
const DefaultMaxMemoLength = 100

var itemCountMarker = regexp.MustCompile(`\b\d+ items:`)

// defaultMarkers are substrings only this engine writes into memos
var defaultMarkers = []string{
	"Order:",
	"(Couldn't identify items)",
	"S&S: ",
}

// ContentHeuristic flags transactions whose memo already looks annotated.
type ContentHeuristic struct {
	maxLength int
	markers   []string
}

// NewContentHeuristic creates a heuristic check. A maxLength of zero or
// less uses DefaultMaxMemoLength.
func NewContentHeuristic(maxLength int, extraMarkers ...string) *ContentHeuristic {
	if maxLength <= 0 {
		maxLength = DefaultMaxMemoLength
	}
	markers := make([]string, 0, len(defaultMarkers)+len(extraMarkers))
	markers = append(markers, defaultMarkers...)
	for _, m := range extraMarkers {
		if m != "" {
			markers = append(markers, m)
		}
	}
	return &ContentHeuristic{maxLength: maxLength, markers: markers}
}

// Name identifies the check in logs
func (h *ContentHeuristic) Name() string {
	return "idempotence-by-content"
}

// AlreadyProcessed reports whether the memo carries an item-count marker,
// an order-link marker, or is longer than the configured threshold.
func (h *ContentHeuristic) AlreadyProcessed(tx model.Transaction) bool {
	memo := tx.Memo
	if memo == "" {
		return false
	}
	if utf8.RuneCountInString(memo) > h.maxLength {
		return true
	}
	if itemCountMarker.MatchString(memo) {
		return true
	}
	for _, marker := range h.markers {
		if strings.Contains(memo, marker) {
			return true
		}
	}
	return false
}

var _ IdempotenceCheck = (*ContentHeuristic)(nil)
