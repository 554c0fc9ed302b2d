package amazon

import (
	"errors"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/ledger-reconciler/internal/domain/model"
)

var (
	// ErrPaymentPending indicates an order has no bank charges yet because it hasn't shipped
	ErrPaymentPending = errors.New("payment pending: order has not been charged yet (awaiting shipment)")

	// ErrNoBankCharges indicates the order was paid entirely with gift cards or points,
	// so no ledger transaction exists for it
	ErrNoBankCharges = errors.New("no bank charges found (order paid entirely with gift cards/points)")
)

// FinalCharges returns the card charges for the order in CLI order.
// Multi-shipment orders return several charges. Refunds and payments
// without card digits (points, gift cards) are excluded.
func (o *ParsedOrder) FinalCharges() ([]decimal.Decimal, error) {
	if len(o.Transactions) == 0 {
		return nil, ErrPaymentPending
	}

	var charges []decimal.Decimal
	var hasNonBankPayments bool
	for _, tx := range o.Transactions {
		if tx.Type == TxRefund || !tx.Amount.IsPositive() {
			continue
		}
		if !tx.IsBankCharge() {
			hasNonBankPayments = true
			continue
		}
		charges = append(charges, tx.Amount)
	}

	if len(charges) == 0 {
		if hasNonBankPayments {
			return nil, ErrNoBankCharges
		}
		return nil, ErrPaymentPending
	}
	return charges, nil
}

// NonBankAmount returns the total paid via points, gift cards and
// promotional credits
func (o *ParsedOrder) NonBankAmount() decimal.Decimal {
	total := decimal.Zero
	for _, tx := range o.Transactions {
		if tx.Type == TxRefund || !tx.Amount.IsPositive() || tx.Last4 != "" {
			continue
		}
		total = total.Add(tx.Amount)
	}
	return total
}

// Refunds returns the refund payments with a non-zero amount
func (o *ParsedOrder) Refunds() []ParsedTransaction {
	var out []ParsedTransaction
	for _, tx := range o.Transactions {
		if tx.Type == TxRefund && !tx.Amount.IsZero() {
			out = append(out, tx)
		}
	}
	return out
}

// ToOrders converts a parsed order into normalized orders: one purchase
// order totalling its card charges, plus one return order per refund.
//
// When the purchase cannot be matched (payment pending, or paid without a
// card) the returned error says why; any return orders are still returned.
func ToOrders(p *ParsedOrder, retailer string, logger *slog.Logger) ([]model.Order, error) {
	if logger == nil {
		logger = slog.Default()
	}
	items := toItems(p.Items)

	var orders []model.Order
	charges, chargeErr := p.FinalCharges()
	if chargeErr == nil {
		total := decimal.Zero
		for _, c := range charges {
			total = total.Add(c)
		}

		order := model.Order{
			OrderID:     p.ID,
			Retailer:    retailer,
			OrderDate:   p.Date,
			TotalAmount: model.Amount(total),
			Items:       items,
		}
		if len(charges) > 1 {
			order.SplitChargeAmounts = charges
			logger.Debug("order settled as split charges",
				slog.String("order_id", p.ID),
				slog.Int("charges", len(charges)))
		}
		if nonBank := p.NonBankAmount(); nonBank.IsPositive() {
			logger.Debug("order partially paid without a card",
				slog.String("order_id", p.ID),
				slog.String("non_bank_amount", nonBank.String()))
		}
		orders = append(orders, order)
	}

	for _, refund := range p.Refunds() {
		date := refund.Date
		if date.IsZero() {
			date = p.Date
		}
		orders = append(orders, model.Order{
			OrderID:     p.ID,
			Retailer:    retailer,
			OrderDate:   date,
			TotalAmount: model.Amount(refund.Amount.Abs()),
			Items:       items,
			IsReturn:    true,
		})
	}

	return orders, chargeErr
}

// toItems maps CLI line totals to unit prices
func toItems(parsed []ParsedOrderItem) []model.OrderItem {
	items := make([]model.OrderItem, 0, len(parsed))
	for _, it := range parsed {
		unit := it.Price
		if it.Quantity > 1 {
			unit = it.Price.Div(decimal.NewFromInt(int64(it.Quantity)))
		}
		items = append(items, model.OrderItem{
			Title:     it.Name,
			UnitPrice: unit,
			Quantity:  it.Quantity,
		})
	}
	return items
}
