package matcher

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/ledger-reconciler/internal/domain/datemath"
	"github.com/eshaffer321/ledger-reconciler/internal/domain/model"
)

// GroupMatcher matches split-charge orders to groups of transactions
type GroupMatcher struct {
	config   Config
	retailer model.Retailer
	scorer   *Scorer
	memos    MemoProposer
}

// NewGroupMatcher creates a group matcher sharing the single matcher's
// scoring rules
func NewGroupMatcher(config Config, retailer model.Retailer, memos MemoProposer) *GroupMatcher {
	config = config.withDefaults()
	return &GroupMatcher{
		config:   config,
		retailer: retailer,
		scorer:   NewScorer(config, retailer),
		memos:    memos,
	}
}

// FindMatches looks for transaction groups paying split-charge orders.
//
// Transactions are sorted by date and groups are enumerated depth-first,
// so that for a sorted slice [a b c] the candidates are tried in the order
// ab, abc, ac, bc. Only groups of GroupMinSize to GroupMaxSize members
// whose first and last dates are at most GroupWindowDays apart are
// generated. For each split order (in input order) the first group that
// passes every check wins; its members are then unavailable to later
// orders. This is a greedy search, not a globally optimal partition.
func (g *GroupMatcher) FindMatches(unmatched []model.Transaction, orders []model.Order) []model.Match {
	sorted := make([]model.Transaction, len(unmatched))
	copy(sorted, unmatched)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Date != sorted[j].Date {
			return sorted[i].Date.Before(sorted[j].Date)
		}
		return sorted[i].ID < sorted[j].ID
	})

	assigned := make(map[string]bool)
	var matches []model.Match

	for _, order := range orders {
		if !order.IsSplit() || !order.HasTotal() || !g.belongsToRetailer(order) {
			continue
		}

		eligible := g.eligible(sorted, order, assigned)
		if len(eligible) < g.config.GroupMinSize {
			continue
		}

		group, score, reasons := g.firstAccepted(eligible, order)
		if group == nil {
			continue
		}

		members := make([]model.Member, 0, len(group))
		for k, tx := range group {
			assigned[tx.ID] = true
			members = append(members, model.Member{
				Transaction:  tx,
				ProposedMemo: g.memos.ProposeGroupMember(tx, order, k+1, len(group)),
			})
		}

		matches = append(matches, model.Match{
			Kind:       model.MatchGroup,
			Members:    members,
			Order:      order,
			Confidence: score,
			Reasons:    reasons,
		})
	}

	return matches
}

// eligible keeps unassigned transactions with an amount whose date is
// within the hard ceiling of the order date. Order is preserved.
func (g *GroupMatcher) eligible(sorted []model.Transaction, order model.Order, assigned map[string]bool) []model.Transaction {
	out := make([]model.Transaction, 0, len(sorted))
	for _, tx := range sorted {
		if assigned[tx.ID] || !tx.HasAmount() {
			continue
		}
		if !g.scorer.withinCeiling(tx, order) {
			continue
		}
		out = append(out, tx)
	}
	return out
}

// firstAccepted walks candidate groups in enumeration order and returns
// the first one whose sum matches the order total and whose score reaches
// MinConfidence.
func (g *GroupMatcher) firstAccepted(txs []model.Transaction, order model.Order) ([]model.Transaction, float64, []string) {
	target := order.AbsTotal()
	limit := target.Add(g.config.AmountTolerance)

	var (
		found   []model.Transaction
		score   float64
		reasons []string
	)

	idx := make([]int, 0, g.config.GroupMaxSize)

	var walk func(sum decimal.Decimal) bool
	walk = func(sum decimal.Decimal) bool {
		if len(idx) >= g.config.GroupMinSize && g.scorer.amountsMatch(sum, target) {
			group := pick(txs, idx)
			if s, r := g.scorer.ExplainGroup(group, order); s >= g.config.MinConfidence {
				found, score, reasons = group, s, r
				return true
			}
		}
		if len(idx) == g.config.GroupMaxSize {
			return false
		}

		first := txs[idx[0]]
		sign := first.Amount.Decimal.Sign()
		for j := idx[len(idx)-1] + 1; j < len(txs); j++ {
			if datemath.DaysDifference(txs[j].Date, first.Date) > g.config.GroupWindowDays {
				break // sorted by date, later transactions are further away
			}
			if txs[j].Amount.Decimal.Sign() != sign {
				continue // a refund never offsets a charge inside one group
			}
			next := sum.Add(txs[j].AbsAmount())
			if next.GreaterThan(limit) {
				continue // magnitudes only grow the sum
			}
			idx = append(idx, j)
			if walk(next) {
				return true
			}
			idx = idx[:len(idx)-1]
		}
		return false
	}

	for i := range txs {
		if !txs[i].Date.IsValid() || txs[i].Amount.Decimal.IsZero() || txs[i].AbsAmount().GreaterThan(limit) {
			continue
		}
		idx = append(idx[:0], i)
		if walk(txs[i].AbsAmount()) {
			return found, score, reasons
		}
	}
	return nil, 0, nil
}

func (g *GroupMatcher) belongsToRetailer(order model.Order) bool {
	name := g.retailer.Name()
	return name == "" || order.Retailer == "" || strings.EqualFold(order.Retailer, name)
}

func pick(txs []model.Transaction, idx []int) []model.Transaction {
	out := make([]model.Transaction, len(idx))
	for i, j := range idx {
		out[i] = txs[j]
	}
	return out
}
