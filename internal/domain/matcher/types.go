package matcher

import (
	"github.com/shopspring/decimal"

	"github.com/eshaffer321/ledger-reconciler/internal/domain/model"
)

// Score weights. Single matches earn a base score once the amount gate
// passes; group matches split the scale between amount, date and payee.
const (
	singleBaseWeight  = 0.70
	singleDateWeight  = 0.20
	singlePayeeWeight = 0.10

	groupAmountWeight = 0.50
	groupDateWeight   = 0.30
	groupPayeeWeight  = 0.20
)

// Config holds matcher configuration
type Config struct {
	AmountTolerance decimal.Decimal // Default: 0.01 (1 cent)
	DateCeiling     int             // Hard reject beyond this many days (default: 14)
	DateDecay       int             // Days over which the date term decays to zero (default: 7)
	MinConfidence   float64         // Matches below this are dropped (default: 0.5)

	GroupMinSize    int // Smallest transaction group tried (default: 2)
	GroupMaxSize    int // Largest transaction group tried (default: 5)
	GroupWindowDays int // Max days between any two group members (default: 7)
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		AmountTolerance: decimal.New(1, -2),
		DateCeiling:     14,
		DateDecay:       7,
		MinConfidence:   0.5,
		GroupMinSize:    2,
		GroupMaxSize:    5,
		GroupWindowDays: 7,
	}
}

// withDefaults fills zero fields from DefaultConfig
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.AmountTolerance.IsZero() {
		c.AmountTolerance = d.AmountTolerance
	}
	if c.DateCeiling <= 0 {
		c.DateCeiling = d.DateCeiling
	}
	if c.DateDecay <= 0 {
		c.DateDecay = d.DateDecay
	}
	if c.MinConfidence <= 0 {
		c.MinConfidence = d.MinConfidence
	}
	if c.GroupMinSize < 2 {
		c.GroupMinSize = d.GroupMinSize
	}
	if c.GroupMaxSize < c.GroupMinSize {
		c.GroupMaxSize = d.GroupMaxSize
	}
	if c.GroupWindowDays <= 0 {
		c.GroupWindowDays = d.GroupWindowDays
	}
	return c
}

// MemoProposer builds the memo attached to each match member
type MemoProposer interface {
	Propose(tx model.Transaction, order model.Order) string
	ProposeGroupMember(tx model.Transaction, order model.Order, k, n int) string
}
