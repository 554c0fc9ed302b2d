package model

import "strings"

// RetailerSpec describes how a retailer shows up in the ledger and in its
// order ids. It is the mutable, config-facing form; matchers use Retailer.
type RetailerSpec struct {
	Name                 string
	PayeeAliases         []string
	PayeeBlacklist       []string
	SubscriptionPrefixes []string
	DecorativeSuffixes   []string
}

// Retailer is an immutable retailer profile. Build one with NewRetailer.
type Retailer struct {
	name                 string
	aliases              []string
	blacklist            []string
	subscriptionPrefixes []string
	decorativeSuffixes   []string
}

// NewRetailer copies spec into an immutable profile. Aliases and
// blacklist entries are lowercased for case-insensitive matching; empty
// entries are dropped.
func NewRetailer(spec RetailerSpec) Retailer {
	return Retailer{
		name:                 spec.Name,
		aliases:              lowerNonEmpty(spec.PayeeAliases),
		blacklist:            lowerNonEmpty(spec.PayeeBlacklist),
		subscriptionPrefixes: nonEmpty(spec.SubscriptionPrefixes),
		decorativeSuffixes:   nonEmpty(spec.DecorativeSuffixes),
	}
}

// DefaultAmazonSpec returns the alias and suffix conventions for Amazon.
func DefaultAmazonSpec() RetailerSpec {
	return RetailerSpec{
		Name:                 "Amazon",
		PayeeAliases:         []string{"amazon", "amzn"},
		PayeeBlacklist:       []string{"transfer", "payment thank you", "autopay"},
		SubscriptionPrefixes: []string{"S01-"},
		DecorativeSuffixes:   []string{" - Subscribe & Save", " (Subscribe & Save)"},
	}
}

// Name returns the display name used in memos
func (r Retailer) Name() string {
	return r.name
}

// MatchesPayee reports whether text mentions one of the retailer's aliases
// and contains none of the blacklisted substrings.
func (r Retailer) MatchesPayee(text string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, banned := range r.blacklist {
		if strings.Contains(lower, banned) {
			return false
		}
	}
	for _, alias := range r.aliases {
		if strings.Contains(lower, alias) {
			return true
		}
	}
	return false
}

// IsSubscription reports whether the order id follows the retailer's
// recurring-order convention. Unknown conventions are treated as regular
// orders.
func (r Retailer) IsSubscription(orderID string) bool {
	for _, prefix := range r.subscriptionPrefixes {
		if strings.HasPrefix(orderID, prefix) {
			return true
		}
	}
	return false
}

// StripDecorativeSuffix removes the first configured suffix found at the
// end of title.
func (r Retailer) StripDecorativeSuffix(title string) string {
	for _, suffix := range r.decorativeSuffixes {
		if strings.HasSuffix(title, suffix) {
			return strings.TrimSuffix(title, suffix)
		}
	}
	return title
}

func lowerNonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
