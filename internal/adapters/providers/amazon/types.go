package amazon

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// CLIOutput represents the JSON output from amazon-order-scraper CLI
type CLIOutput struct {
	Orders []CLIOrder `json:"orders"`
}

// CLIOrder represents an order from the CLI output
type CLIOrder struct {
	OrderID      string           `json:"orderId"`
	OrderDate    string           `json:"orderDate"` // ISO 8601: "2025-12-13"
	Total        string           `json:"total"`     // "$116.20"
	Subtotal     string           `json:"subtotal"`
	Tax          string           `json:"tax"`
	Shipping     string           `json:"shipping"`
	Items        []CLIOrderItem   `json:"items"`
	Transactions []CLITransaction `json:"transactions"`
}

// CLIOrderItem represents an item from the CLI output
type CLIOrderItem struct {
	Name     string `json:"name"`
	Price    string `json:"price"` // line total, "$14.99"
	Quantity int    `json:"quantity"`
}

// CLITransaction represents a payment transaction from the CLI output
type CLITransaction struct {
	Date        string `json:"date"`
	Amount      string `json:"amount"`
	Type        string `json:"type"`  // "charge" or "refund"
	Last4       string `json:"last4"` // card digits; empty for points and gift cards
	Description string `json:"description"`
}

// Transaction types reported by the CLI
const (
	TxCharge = "charge"
	TxRefund = "refund"
)

// ParsedOrder is the internal representation after parsing CLI output.
// Total is invalid when the CLI left it blank.
type ParsedOrder struct {
	ID           string
	Date         civil.Date
	Total        decimal.NullDecimal
	Subtotal     decimal.Decimal
	Tax          decimal.Decimal
	Shipping     decimal.Decimal
	Items        []ParsedOrderItem
	Transactions []ParsedTransaction
}

// ParsedOrderItem is the internal representation of an order item
type ParsedOrderItem struct {
	Name     string
	Price    decimal.Decimal
	Quantity int
}

// ParsedTransaction is the internal representation of a payment
type ParsedTransaction struct {
	Date        civil.Date
	Amount      decimal.Decimal
	Type        string
	Last4       string
	Description string
}

// IsBankCharge reports whether the payment hit a card and will show up in
// the ledger
func (t ParsedTransaction) IsBankCharge() bool {
	return t.Type != TxRefund && t.Amount.IsPositive() && t.Last4 != ""
}
