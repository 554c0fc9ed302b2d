package amazon

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// ParseCLIOutput parses the JSON output from amazon-order-scraper
func ParseCLIOutput(r io.Reader) (*CLIOutput, error) {
	var output CLIOutput
	if err := json.NewDecoder(r).Decode(&output); err != nil {
		return nil, fmt.Errorf("failed to decode CLI output: %w", err)
	}
	return &output, nil
}

// ParseCLIOutputBytes parses the JSON output from a byte slice
func ParseCLIOutputBytes(data []byte) (*CLIOutput, error) {
	var output CLIOutput
	if err := json.Unmarshal(data, &output); err != nil {
		return nil, fmt.Errorf("failed to decode CLI output: %w", err)
	}
	return &output, nil
}

// ConvertCLIOrder converts a CLIOrder to a ParsedOrder
func ConvertCLIOrder(cliOrder CLIOrder) (*ParsedOrder, error) {
	order := &ParsedOrder{ID: cliOrder.OrderID}

	if cliOrder.OrderDate != "" {
		date, err := parseDate(cliOrder.OrderDate)
		if err != nil {
			return nil, fmt.Errorf("failed to parse order date %q: %w", cliOrder.OrderDate, err)
		}
		order.Date = date
	}

	if strings.TrimSpace(cliOrder.Total) != "" {
		total, err := parseAmount(cliOrder.Total)
		if err != nil {
			return nil, fmt.Errorf("failed to parse total %q: %w", cliOrder.Total, err)
		}
		order.Total = decimal.NewNullDecimal(total)
	}

	// Optional amounts only fail on non-empty invalid values
	for _, f := range []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"subtotal", cliOrder.Subtotal, &order.Subtotal},
		{"tax", cliOrder.Tax, &order.Tax},
		{"shipping", cliOrder.Shipping, &order.Shipping},
	} {
		v, err := parseAmount(f.raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = v
	}

	// Any item or payment parse error fails the order to avoid silent data loss
	for i, cliItem := range cliOrder.Items {
		item, err := convertCLIItem(cliItem)
		if err != nil {
			return nil, fmt.Errorf("failed to parse item %d (%q): %w", i, cliItem.Name, err)
		}
		order.Items = append(order.Items, item)
	}

	for i, cliTx := range cliOrder.Transactions {
		tx, err := convertCLITransaction(cliTx)
		if err != nil {
			return nil, fmt.Errorf("failed to parse transaction %d: %w", i, err)
		}
		order.Transactions = append(order.Transactions, tx)
	}

	return order, nil
}

func convertCLIItem(cliItem CLIOrderItem) (ParsedOrderItem, error) {
	price, err := parseAmount(cliItem.Price)
	if err != nil {
		return ParsedOrderItem{}, fmt.Errorf("failed to parse item price %q: %w", cliItem.Price, err)
	}

	quantity := cliItem.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	return ParsedOrderItem{
		Name:     cliItem.Name,
		Price:    price,
		Quantity: quantity,
	}, nil
}

func convertCLITransaction(cliTx CLITransaction) (ParsedTransaction, error) {
	tx := ParsedTransaction{
		Type:        strings.ToLower(strings.TrimSpace(cliTx.Type)),
		Last4:       strings.TrimSpace(cliTx.Last4),
		Description: cliTx.Description,
	}

	if cliTx.Date != "" {
		date, err := parseDate(cliTx.Date)
		if err != nil {
			return ParsedTransaction{}, fmt.Errorf("failed to parse transaction date %q: %w", cliTx.Date, err)
		}
		tx.Date = date
	}

	amount, err := parseAmount(cliTx.Amount)
	if err != nil {
		return ParsedTransaction{}, fmt.Errorf("failed to parse transaction amount %q: %w", cliTx.Amount, err)
	}
	tx.Amount = amount

	return tx, nil
}

// parseAmount parses a currency string like "$116.20", "-$50.00" or
// "$1,234.56". Empty input is zero.
func parseAmount(s string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(s)
	if cleaned == "" {
		return decimal.Zero, nil
	}

	negative := strings.HasPrefix(cleaned, "-")
	cleaned = strings.TrimPrefix(cleaned, "-")
	cleaned = strings.TrimPrefix(cleaned, "$")
	cleaned = strings.ReplaceAll(cleaned, ",", "")

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount: %w", err)
	}
	if negative {
		amount = amount.Neg()
	}
	return amount, nil
}

// parseDate parses an ISO 8601 date, an RFC 3339 timestamp or the long US
// form "January 2, 2006"
func parseDate(s string) (civil.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return civil.Date{}, fmt.Errorf("empty date string")
	}

	if d, err := civil.ParseDate(s); err == nil {
		return d, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return civil.DateOf(t), nil
	}
	if t, err := time.Parse("January 2, 2006", s); err == nil {
		return civil.DateOf(t), nil
	}

	return civil.Date{}, fmt.Errorf("unable to parse date %q", s)
}
