// Package memo builds the annotation written to a matched ledger
// transaction and sanitizes it for the ledger API.
//
// Example memos:
//
//	Wireless Headphones
//	3 items: USB Cable, Soap, Paper Towels...
//	S&S: Paper Towels
//	Amazon Order: 112-555 (Charge 1 of 2) - 2 items: Lamp, Bulbs
package memo

import (
	"fmt"
	"strings"

	"github.com/eshaffer321/ledger-reconciler/internal/domain/model"
)

const (
	// Separator joins an existing memo and the proposed annotation
	Separator = " | "

	// SubscriptionMarker prefixes summaries of recurring orders
	SubscriptionMarker = "S&S: "

	// maxListedItems is how many titles a multi-item summary lists
	maxListedItems = 3

	ellipsis = "..."
)

// Options tune memo layout
type Options struct {
	// IncludeOrderLink writes "<Retailer> Order: <id> - <summary>" for
	// single matches instead of the bare summary.
	IncludeOrderLink bool
}

// Synthesizer proposes memos for a single retailer.
type Synthesizer struct {
	retailer model.Retailer
	opts     Options
}

// NewSynthesizer creates a synthesizer for retailer
func NewSynthesizer(retailer model.Retailer, opts Options) *Synthesizer {
	return &Synthesizer{retailer: retailer, opts: opts}
}

// Propose returns the sanitized memo for a single-charge match.
func (s *Synthesizer) Propose(tx model.Transaction, order model.Order) string {
	summary := s.Summary(order)
	if s.opts.IncludeOrderLink && order.OrderID != "" {
		summary = fmt.Sprintf("%s Order: %s - %s", s.retailerName(order), order.OrderID, summary)
	}
	return Sanitize(withExisting(tx.Memo, summary))
}

// ProposeGroupMember returns the memo for the k-th (1-based) of n
// transactions paying a split-charge order.
func (s *Synthesizer) ProposeGroupMember(tx model.Transaction, order model.Order, k, n int) string {
	body := fmt.Sprintf("%s Order: %s (Charge %d of %d) - %s",
		s.retailerName(order), order.OrderID, k, n, s.Summary(order))
	return Sanitize(withExisting(tx.Memo, body))
}

// Summary describes the order contents without any order link or
// existing memo. The result is not sanitized.
func (s *Synthesizer) Summary(order model.Order) string {
	var summary string

	switch len(order.Items) {
	case 0:
		kind := "Order"
		if order.IsReturn {
			kind = "Return"
		}
		summary = fmt.Sprintf("%s %s (Couldn't identify items)", s.retailerName(order), kind)
	case 1:
		summary = s.cleanTitle(order.Items[0].Title)
	default:
		titles := make([]string, 0, maxListedItems)
		for i, item := range order.Items {
			if i == maxListedItems {
				break
			}
			titles = append(titles, s.cleanTitle(item.Title))
		}
		summary = fmt.Sprintf("%d items: %s", len(order.Items), strings.Join(titles, ", "))
		if len(order.Items) > maxListedItems {
			summary += ellipsis
		}
	}

	if s.retailer.IsSubscription(order.OrderID) {
		summary = SubscriptionMarker + summary
	}
	return summary
}

// cleanTitle keeps the text before the first comma and strips decorative
// suffixes such as subscription labels.
func (s *Synthesizer) cleanTitle(title string) string {
	if idx := strings.Index(title, ","); idx >= 0 {
		title = title[:idx]
	}
	title = strings.TrimSpace(title)
	return strings.TrimSpace(s.retailer.StripDecorativeSuffix(title))
}

func (s *Synthesizer) retailerName(order model.Order) string {
	if name := s.retailer.Name(); name != "" {
		return name
	}
	return order.Retailer
}

func withExisting(existing, proposed string) string {
	existing = strings.TrimSpace(existing)
	if existing == "" {
		return proposed
	}
	return existing + Separator + proposed
}
