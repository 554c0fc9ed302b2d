// Package model holds the normalized records the reconciliation engine
// works on. Every collaborator (ledger client, order sources) converts its
// native format into these types before handing data to the matcher.
package model

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Transaction is a ledger transaction as fetched from the ledger API.
// Amount is signed: negative values are expenses, positive values are
// inflows such as refunds.
type Transaction struct {
	ID        string
	Date      civil.Date // zero value when the ledger date could not be parsed
	Amount    decimal.NullDecimal
	PayeeName string
	Memo      string
}

// HasAmount reports whether the ledger supplied an amount.
func (t Transaction) HasAmount() bool {
	return t.Amount.Valid
}

// AbsAmount returns the magnitude of the transaction amount.
func (t Transaction) AbsAmount() decimal.Decimal {
	return t.Amount.Decimal.Abs()
}

// OrderItem is a single line on a retailer order
type OrderItem struct {
	Title     string
	UnitPrice decimal.Decimal
	Quantity  int
}

// LineTotal returns unit price times quantity
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order is a purchase (or refund) record from a retailer.
type Order struct {
	OrderID     string
	Retailer    string
	OrderDate   civil.Date
	TotalAmount decimal.NullDecimal
	Items       []OrderItem
	IsReturn    bool

	// SplitChargeAmounts lists the individual card charges when the retailer
	// settled the order across several charges. Empty or single-element
	// means the order was charged once.
	SplitChargeAmounts []decimal.Decimal
}

// HasTotal reports whether the retailer supplied a total.
func (o Order) HasTotal() bool {
	return o.TotalAmount.Valid
}

// AbsTotal returns the magnitude of the order total, since refunds carry
// positive amounts by convention but some sources report them negative.
func (o Order) AbsTotal() decimal.Decimal {
	return o.TotalAmount.Decimal.Abs()
}

// IsSplit reports whether the order was settled as two or more charges.
func (o Order) IsSplit() bool {
	return len(o.SplitChargeAmounts) >= 2
}

// MatchKind distinguishes one-transaction matches from split-charge groups.
type MatchKind string

const (
	MatchSingle MatchKind = "single"
	MatchGroup  MatchKind = "group"
)

// Member is one transaction inside a match together with the memo that
// would be written to it.
type Member struct {
	Transaction  Transaction
	ProposedMemo string
}

// Match pairs one order with the transaction(s) judged to pay for it.
// Single matches have exactly one member; group matches have two or more,
// ordered by date.
type Match struct {
	Kind       MatchKind
	Members    []Member
	Order      Order
	Confidence float64
	Reasons    []string
}

// IsGroup reports whether the match covers a split-charge order.
func (m Match) IsGroup() bool {
	return m.Kind == MatchGroup
}

// Transactions returns the matched transactions in member order.
func (m Match) Transactions() []Transaction {
	txs := make([]Transaction, 0, len(m.Members))
	for _, member := range m.Members {
		txs = append(txs, member.Transaction)
	}
	return txs
}

// ProposedMemo returns the memo of the first member. For single matches
// this is the only memo.
func (m Match) ProposedMemo() string {
	if len(m.Members) == 0 {
		return ""
	}
	return m.Members[0].ProposedMemo
}
