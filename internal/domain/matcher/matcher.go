// Package matcher pairs retailer orders with ledger transactions.
//
// Matching happens in two passes:
//   - Matcher scores every candidate transaction against every order and
//     keeps the best order scoring at least MinConfidence
//   - GroupMatcher takes what is left and looks for groups of 2-5
//     transactions that together pay a split-charge order
//
// The amount is always a hard gate (within 1 cent by default), as is a
// 14 day date ceiling. Returns get a 7 day grace period on the date term.
//
// Example usage:
//
//	retailer := model.NewRetailer(model.DefaultAmazonSpec())
//	memos := memo.NewSynthesizer(retailer, memo.Options{})
//	m := matcher.NewMatcher(matcher.DefaultConfig(), retailer, memos, nil)
//	candidates := m.Candidates(transactions)
//	matches := m.FindMatches(candidates, orders)
package matcher

import (
	"strings"

	"github.com/eshaffer321/ledger-reconciler/internal/domain/model"
	"github.com/eshaffer321/ledger-reconciler/internal/domain/processed"
)

// Matcher finds single-transaction matches for one retailer
type Matcher struct {
	config   Config
	retailer model.Retailer
	scorer   *Scorer
	memos    MemoProposer
	seen     processed.IdempotenceCheck
}

// NewMatcher creates a new matcher. seen filters transactions whose memo
// shows they were already annotated; nil uses the default content
// heuristic.
func NewMatcher(config Config, retailer model.Retailer, memos MemoProposer, seen processed.IdempotenceCheck) *Matcher {
	config = config.withDefaults()
	if seen == nil {
		seen = processed.NewContentHeuristic(0)
	}
	return &Matcher{
		config:   config,
		retailer: retailer,
		scorer:   NewScorer(config, retailer),
		memos:    memos,
		seen:     seen,
	}
}

// Scorer returns the scorer used by this matcher
func (m *Matcher) Scorer() *Scorer {
	return m.scorer
}

// Candidates drops transactions that were already annotated or that carry
// no sign of belonging to this retailer.
func (m *Matcher) Candidates(transactions []model.Transaction) []model.Transaction {
	var out []model.Transaction
	for _, tx := range transactions {
		if m.seen.AlreadyProcessed(tx) {
			continue
		}
		if !m.retailer.MatchesPayee(tx.PayeeName) && !m.retailer.MatchesPayee(tx.Memo) {
			continue
		}
		out = append(out, tx)
	}
	return out
}

// FindMatches returns at most one match per candidate transaction.
// Each transaction takes the order with the strictly highest score (the
// earliest order wins ties) provided it reaches MinConfidence. Orders are
// not made exclusive here.
func (m *Matcher) FindMatches(transactions []model.Transaction, orders []model.Order) []model.Match {
	orders = m.retailerOrders(orders)

	var matches []model.Match
	for _, tx := range m.Candidates(transactions) {
		bestIdx := -1
		var bestScore float64
		var bestReasons []string

		for i, order := range orders {
			score, reasons := m.scorer.Explain(tx, order)
			if score > bestScore {
				bestIdx, bestScore, bestReasons = i, score, reasons
			}
		}

		if bestIdx < 0 || bestScore < m.config.MinConfidence {
			continue
		}

		order := orders[bestIdx]
		matches = append(matches, model.Match{
			Kind:       model.MatchSingle,
			Members:    []model.Member{{Transaction: tx, ProposedMemo: m.memos.Propose(tx, order)}},
			Order:      order,
			Confidence: bestScore,
			Reasons:    bestReasons,
		})
	}
	return matches
}

// retailerOrders keeps orders from this retailer. Orders without a
// retailer name are assumed to belong to it.
func (m *Matcher) retailerOrders(orders []model.Order) []model.Order {
	name := m.retailer.Name()
	if name == "" {
		return orders
	}
	out := make([]model.Order, 0, len(orders))
	for _, o := range orders {
		if o.Retailer == "" || strings.EqualFold(o.Retailer, name) {
			out = append(out, o)
		}
	}
	return out
}

// Unassigned returns the transactions in txs that appear in none of the
// matches, preserving input order.
func Unassigned(txs []model.Transaction, matches []model.Match) []model.Transaction {
	used := make(map[string]bool)
	for _, match := range matches {
		for _, member := range match.Members {
			used[member.Transaction.ID] = true
		}
	}
	var out []model.Transaction
	for _, tx := range txs {
		if !used[tx.ID] {
			out = append(out, tx)
		}
	}
	return out
}
