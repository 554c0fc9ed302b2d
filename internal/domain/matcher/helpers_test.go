package matcher

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/eshaffer321/ledger-reconciler/internal/domain/memo"
	"github.com/eshaffer321/ledger-reconciler/internal/domain/model"
)

var baseDate = civil.Date{Year: 2024, Month: time.January, Day: 20}

func amazonRetailer() model.Retailer {
	return model.NewRetailer(model.DefaultAmazonSpec())
}

func newTestMatcher(config Config) *Matcher {
	r := amazonRetailer()
	return NewMatcher(config, r, memo.NewSynthesizer(r, memo.Options{}), nil)
}

func newTestGroupMatcher(config Config) *GroupMatcher {
	r := amazonRetailer()
	return NewGroupMatcher(config, r, memo.NewSynthesizer(r, memo.Options{}))
}

// makeTransaction builds a test transaction dated offset days from baseDate
func makeTransaction(id, amount string, offset int, payee string) model.Transaction {
	return model.Transaction{
		ID:        id,
		Date:      baseDate.AddDays(offset),
		Amount:    model.MustAmount(amount),
		PayeeName: payee,
	}
}

func makeOrder(id, total string, items ...string) model.Order {
	o := model.Order{
		OrderID:     id,
		Retailer:    "Amazon",
		OrderDate:   baseDate,
		TotalAmount: model.MustAmount(total),
	}
	for _, title := range items {
		o.Items = append(o.Items, model.OrderItem{Title: title, Quantity: 1})
	}
	return o
}

func makeSplitOrder(id string, charges ...string) model.Order {
	sum := decimal.Zero
	amounts := make([]decimal.Decimal, 0, len(charges))
	for _, c := range charges {
		d := decimal.RequireFromString(c)
		amounts = append(amounts, d)
		sum = sum.Add(d)
	}
	o := makeOrder(id, sum.String(), "Desk Lamp", "LED Bulbs")
	o.SplitChargeAmounts = amounts
	return o
}
