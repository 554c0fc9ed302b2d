package reconcile

import (
	"github.com/eshaffer321/ledger-reconciler/internal/domain/matcher"
	"github.com/eshaffer321/ledger-reconciler/internal/domain/memo"
	"github.com/eshaffer321/ledger-reconciler/internal/domain/model"
	"github.com/eshaffer321/ledger-reconciler/internal/domain/processed"
)

// Engine holds the matchers for one retailer
type Engine struct {
	Retailer model.Retailer
	Single   *matcher.Matcher
	Group    *matcher.GroupMatcher
}

// NewEngine builds the single and group matchers for a retailer profile.
// heuristic is the content-based idempotence check; nil uses the default.
func NewEngine(spec model.RetailerSpec, config matcher.Config, memoOpts memo.Options, heuristic processed.IdempotenceCheck) Engine {
	retailer := model.NewRetailer(spec)
	memos := memo.NewSynthesizer(retailer, memoOpts)
	return Engine{
		Retailer: retailer,
		Single:   matcher.NewMatcher(config, retailer, memos, heuristic),
		Group:    matcher.NewGroupMatcher(config, retailer, memos),
	}
}

// match runs the single pass and then the group pass on what the single
// pass left. It returns the matches and the number of candidates.
func (e Engine) match(pool []model.Transaction, orders []model.Order) ([]model.Match, int) {
	candidates := e.Single.Candidates(pool)
	singles := e.Single.FindMatches(candidates, orders)
	leftovers := matcher.Unassigned(candidates, singles)
	groups := e.Group.FindMatches(leftovers, orders)
	return append(singles, groups...), len(candidates)
}
