package memo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eshaffer321/ledger-reconciler/internal/domain/model"
)

func amazon() *Synthesizer {
	return NewSynthesizer(model.NewRetailer(model.DefaultAmazonSpec()), Options{})
}

func items(titles ...string) []model.OrderItem {
	out := make([]model.OrderItem, 0, len(titles))
	for _, title := range titles {
		out = append(out, model.OrderItem{Title: title, Quantity: 1})
	}
	return out
}

func TestPropose_SingleItem(t *testing.T) {
	order := model.Order{OrderID: "123", Items: items("Wireless Headphones")}
	assert.Equal(t, "Wireless Headphones", amazon().Propose(model.Transaction{}, order))
}

func TestPropose_TitleTruncatedAtComma(t *testing.T) {
	order := model.Order{OrderID: "123", Items: items("Anker USB-C Cable, 6ft, Braided")}
	assert.Equal(t, "Anker USB-C Cable", amazon().Propose(model.Transaction{}, order))
}

func TestPropose_DecorativeSuffixStripped(t *testing.T) {
	order := model.Order{OrderID: "123", Items: items("Paper Towels - Subscribe & Save")}
	assert.Equal(t, "Paper Towels", amazon().Propose(model.Transaction{}, order))
}

func TestPropose_NoItems(t *testing.T) {
	s := amazon()

	order := model.Order{OrderID: "123"}
	assert.Equal(t, "Amazon Order (Couldn't identify items)", s.Propose(model.Transaction{}, order))

	order.IsReturn = true
	assert.Equal(t, "Amazon Return (Couldn't identify items)", s.Propose(model.Transaction{}, order))
}

func TestPropose_MultipleItems(t *testing.T) {
	s := amazon()

	t.Run("three items listed in full", func(t *testing.T) {
		order := model.Order{Items: items("Lamp", "Bulbs, 4 pack", "Shade")}
		assert.Equal(t, "3 items: Lamp, Bulbs, Shade", s.Propose(model.Transaction{}, order))
	})

	t.Run("more than three gets ellipsis", func(t *testing.T) {
		order := model.Order{Items: items("Lamp", "Bulbs", "Shade", "Cord", "Hook")}
		assert.Equal(t, "5 items: Lamp, Bulbs, Shade...", s.Propose(model.Transaction{}, order))
	})
}

func TestPropose_SubscriptionPrefix(t *testing.T) {
	order := model.Order{OrderID: "S01-9988776", Items: items("Coffee Pods")}
	assert.Equal(t, "S&S: Coffee Pods", amazon().Propose(model.Transaction{}, order))
}

func TestPropose_ExistingMemoPrepended(t *testing.T) {
	order := model.Order{Items: items("Coffee Pods")}
	tx := model.Transaction{Memo: "office"}
	assert.Equal(t, "office | Coffee Pods", amazon().Propose(tx, order))
}

func TestPropose_OrderLinkOption(t *testing.T) {
	s := NewSynthesizer(model.NewRetailer(model.DefaultAmazonSpec()), Options{IncludeOrderLink: true})
	order := model.Order{OrderID: "112-555", Items: items("Lamp")}
	assert.Equal(t, "Amazon Order: 112-555 - Lamp", s.Propose(model.Transaction{}, order))
}

func TestProposeGroupMember(t *testing.T) {
	s := amazon()
	order := model.Order{OrderID: "112-555", Items: items("Lamp", "Bulbs")}

	assert.Equal(t, "Amazon Order: 112-555 (Charge 1 of 2) - 2 items: Lamp, Bulbs",
		s.ProposeGroupMember(model.Transaction{}, order, 1, 2))
	assert.Equal(t, "Amazon Order: 112-555 (Charge 2 of 2) - 2 items: Lamp, Bulbs",
		s.ProposeGroupMember(model.Transaction{}, order, 2, 2))
}

func TestSanitize_RemovesDisallowed(t *testing.T) {
	assert.Equal(t, "Cafe 50 off  Mug", Sanitize("Cafe 50% off $ Mug"))
	assert.Equal(t, "Kids' Toy - Blue & Red: 2+ yrs", Sanitize("Kids' Toy - Blue & Red: 2+ yrs™"))
	assert.Equal(t, "LineBreak", Sanitize("Line\nBreak"))
	assert.Equal(t, "Crème brûlée", Sanitize("Crème brûlée"))
}

func TestSanitize_KeepsTemplateParentheses(t *testing.T) {
	assert.Equal(t, "(Charge 1 of 2)", Sanitize("(Charge 1 of 2)"))
	assert.Equal(t, "Amazon Order: 9 (Couldn't identify items)", Sanitize("Amazon Order: 9 (Couldn't identify items)"))
	assert.Equal(t, "Mug set 2", Sanitize("Mug [set] {2}"), "other brackets are dropped")
}

func TestSanitize_CollapsesWideSpacesToTwo(t *testing.T) {
	assert.Equal(t, "a  b", Sanitize("a    b"), "four spaces become exactly two")
	assert.Equal(t, "a  b", Sanitize("a   b"))
	assert.Equal(t, "a  b", Sanitize("a  b"), "two spaces are left alone")
	assert.Equal(t, "a b", Sanitize("a b"))
}

func TestSanitize_Truncates(t *testing.T) {
	out := Sanitize(strings.Repeat("ab", MaxLength))
	assert.Len(t, []rune(out), MaxLength)
}

func TestSanitize_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"Wireless Headphones",
		"a  $  b     c",
		"weird   ™   spacing ###   here",
		strings.Repeat("word    ", 120),
		"office | Amazon Order: 1 (Charge 1 of 2) - 2 items: A, B",
	}

	for _, in := range inputs {
		once := Sanitize(in)
		assert.Equal(t, once, Sanitize(once), "input %q", in)
	}
}
