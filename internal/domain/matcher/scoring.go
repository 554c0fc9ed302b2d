package matcher

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/ledger-reconciler/internal/domain/datemath"
	"github.com/eshaffer321/ledger-reconciler/internal/domain/model"
)

// Scorer computes confidence scores in [0,1] for transaction/order pairs.
type Scorer struct {
	config   Config
	retailer model.Retailer
}

// NewScorer creates a scorer bound to one retailer profile
func NewScorer(config Config, retailer model.Retailer) *Scorer {
	return &Scorer{config: config.withDefaults(), retailer: retailer}
}

// Score returns the single-match confidence for tx against order.
func (s *Scorer) Score(tx model.Transaction, order model.Order) float64 {
	score, _ := s.Explain(tx, order)
	return score
}

// Explain returns the single-match score together with the factors that
// contributed to it.
//
// The amount is a hard gate: anything more than AmountTolerance away
// scores zero. So does a date distance beyond DateCeiling.
func (s *Scorer) Explain(tx model.Transaction, order model.Order) (float64, []string) {
	if !tx.HasAmount() || !order.HasTotal() {
		return 0, nil
	}
	if !s.amountsMatch(tx.AbsAmount(), order.AbsTotal()) {
		return 0, nil
	}

	reasons := []string{fmt.Sprintf("amount %s matches order total", order.AbsTotal().StringFixed(2))}
	score := singleBaseWeight

	days := datemath.EffectiveDaysDifference(tx.Date, order.OrderDate, order.IsReturn)
	if days > s.config.DateCeiling {
		return 0, nil
	}
	score += s.dateTerm(float64(days)) * singleDateWeight
	reasons = append(reasons, dateReason(float64(days), order.IsReturn))

	if s.retailer.MatchesPayee(tx.PayeeName) {
		score += singlePayeeWeight
		reasons = append(reasons, fmt.Sprintf("payee %q matches %s", tx.PayeeName, s.retailer.Name()))
	}

	return round(math.Min(1.0, score)), reasons
}

// ScoreGroup returns the confidence that txs together pay order.
func (s *Scorer) ScoreGroup(txs []model.Transaction, order model.Order) float64 {
	score, _ := s.ExplainGroup(txs, order)
	return score
}

// ExplainGroup scores a transaction group against a split-charge order.
// Members must all be charges or all be refunds, and the magnitude of their
// signed sum must match the order total. The date term uses the
// average member distance; the payee term requires every member to match.
func (s *Scorer) ExplainGroup(txs []model.Transaction, order model.Order) (float64, []string) {
	if len(txs) == 0 || !order.HasTotal() {
		return 0, nil
	}

	sum := decimal.Zero
	for _, tx := range txs {
		if !tx.HasAmount() || tx.Amount.Decimal.Sign() != txs[0].Amount.Decimal.Sign() {
			return 0, nil
		}
		sum = sum.Add(tx.Amount.Decimal)
	}
	if sum.IsZero() || !s.amountsMatch(sum.Abs(), order.AbsTotal()) {
		return 0, nil
	}

	reasons := []string{fmt.Sprintf("%d charges sum to order total %s", len(txs), order.AbsTotal().StringFixed(2))}
	score := groupAmountWeight

	totalDays := 0
	allPayees := true
	for _, tx := range txs {
		totalDays += datemath.EffectiveDaysDifference(tx.Date, order.OrderDate, order.IsReturn)
		if !s.retailer.MatchesPayee(tx.PayeeName) {
			allPayees = false
		}
	}
	avgDays := float64(totalDays) / float64(len(txs))
	score += s.dateTerm(avgDays) * groupDateWeight
	reasons = append(reasons, "average "+dateReason(avgDays, order.IsReturn))

	if allPayees {
		score += groupPayeeWeight
		reasons = append(reasons, fmt.Sprintf("all payees match %s", s.retailer.Name()))
	}

	return round(math.Min(1.0, score)), reasons
}

// amountsMatch compares magnitudes within AmountTolerance
func (s *Scorer) amountsMatch(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(s.config.AmountTolerance)
}

// dateTerm decays linearly from 1 at zero days to 0 at DateDecay days
func (s *Scorer) dateTerm(days float64) float64 {
	return math.Max(0, 1-days/float64(s.config.DateDecay))
}

// withinCeiling reports whether tx is close enough to order to be scored
func (s *Scorer) withinCeiling(tx model.Transaction, order model.Order) bool {
	return datemath.EffectiveDaysDifference(tx.Date, order.OrderDate, order.IsReturn) <= s.config.DateCeiling
}

func dateReason(days float64, isReturn bool) string {
	if isReturn {
		return fmt.Sprintf("date diff %.1f days (return grace applied)", days)
	}
	return fmt.Sprintf("date diff %.1f days", days)
}

// round keeps four decimal places so that additive float weights land
// exactly on values such as 1.0
func round(v float64) float64 {
	return math.Round(v*10000) / 10000
}
