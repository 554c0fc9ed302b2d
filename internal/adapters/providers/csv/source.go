// Package csv provides an OrderSource backed by an exported order CSV.
//
// The file needs a header row. Recognized columns (case-insensitive):
//
//	order_id, order_date, total, item_title, item_price, quantity,
//	is_return, charge_amounts
//
// Rows sharing an order_id (and return flag) form one order with one item
// per row. total and charge_amounts may be repeated on every row or given
// once; the first non-empty value wins. charge_amounts is a
// semicolon-separated list of the card charges of a split order.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/eshaffer321/ledger-reconciler/internal/adapters/providers"
	"github.com/eshaffer321/ledger-reconciler/internal/domain/model"
)

// Column names
const (
	colOrderID       = "order_id"
	colOrderDate     = "order_date"
	colTotal         = "total"
	colItemTitle     = "item_title"
	colItemPrice     = "item_price"
	colQuantity      = "quantity"
	colIsReturn      = "is_return"
	colChargeAmounts = "charge_amounts"
)

// ErrMissingColumn is returned when a required header column is absent
var ErrMissingColumn = errors.New("csv: missing required column")

var dateLayouts = []string{"2006-01-02", "01/02/2006", "1/2/2006", time.RFC3339}

// Config holds configuration for the CSV source
type Config struct {
	Path     string
	Retailer string
}

// Source implements providers.OrderSource over a CSV export
type Source struct {
	path     string
	retailer string
	logger   *slog.Logger
}

var _ providers.OrderSource = (*Source)(nil)

// NewSource creates a CSV order source
func NewSource(logger *slog.Logger, cfg Config) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{
		path:     cfg.Path,
		retailer: cfg.Retailer,
		logger:   logger.With(slog.String("source", "csv")),
	}
}

// Name returns the source identifier
func (s *Source) Name() string {
	return "csv"
}

// Retailer returns the retailer name stamped on orders
func (s *Source) Retailer() string {
	return s.retailer
}

// HealthCheck verifies the export is readable
func (s *Source) HealthCheck(context.Context) error {
	if _, err := os.Stat(s.path); err != nil {
		return fmt.Errorf("orders csv not available: %w", err)
	}
	return nil
}

// FetchOrders reads the export and returns the orders inside opts' range
func (s *Source) FetchOrders(ctx context.Context, opts providers.FetchOptions) ([]model.Order, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open orders csv: %w", err)
	}
	defer f.Close()

	orders, err := s.Parse(ctx, f)
	if err != nil {
		return nil, err
	}

	var out []model.Order
	for _, o := range orders {
		if opts.MaxOrders > 0 && len(out) >= opts.MaxOrders {
			break
		}
		if opts.InRange(o.OrderDate) {
			out = append(out, o)
		}
	}

	s.logger.Info("loaded orders from csv",
		slog.String("path", s.path),
		slog.Int("parsed", len(orders)),
		slog.Int("in_range", len(out)))
	return out, nil
}

// groupKey separates a return from its purchase under the same order id
type groupKey struct {
	id       string
	isReturn bool
}

type orderBuilder struct {
	order    model.Order
	hasTotal bool
}

// Parse reads all orders from r in first-seen order. Malformed rows are
// logged and skipped.
func (s *Source) Parse(ctx context.Context, r io.Reader) ([]model.Order, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	cols := indexColumns(header)
	for _, required := range []string{colOrderID, colOrderDate} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}

	var keys []groupKey
	builders := make(map[groupKey]*orderBuilder)

	line := 1
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read csv line %d: %w", line, err)
		}

		row := rowView{cols: cols, record: record}
		if err := s.addRow(row, &keys, builders); err != nil {
			s.logger.Warn("skipping malformed csv row",
				slog.Int("line", line),
				slog.String("error", err.Error()))
		}
	}

	orders := make([]model.Order, 0, len(keys))
	for _, k := range keys {
		orders = append(orders, builders[k].order)
	}
	return orders, nil
}

func (s *Source) addRow(row rowView, keys *[]groupKey, builders map[groupKey]*orderBuilder) error {
	id := row.get(colOrderID)
	if id == "" {
		return fmt.Errorf("empty %s", colOrderID)
	}

	isReturn := false
	if raw := row.get(colIsReturn); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid %s %q", colIsReturn, raw)
		}
		isReturn = v
	}

	key := groupKey{id: id, isReturn: isReturn}
	b, exists := builders[key]
	if !exists {
		date, err := parseDate(row.get(colOrderDate))
		if err != nil {
			return err
		}
		b = &orderBuilder{order: model.Order{
			OrderID:   id,
			Retailer:  s.retailer,
			OrderDate: date,
			IsReturn:  isReturn,
		}}
	}

	if !b.hasTotal {
		if raw := row.get(colTotal); raw != "" {
			total, err := parseAmount(raw)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", colTotal, err)
			}
			b.order.TotalAmount = model.Amount(total)
			b.hasTotal = true
		}
	}

	if len(b.order.SplitChargeAmounts) == 0 {
		if raw := row.get(colChargeAmounts); raw != "" {
			charges, err := parseCharges(raw)
			if err != nil {
				return err
			}
			b.order.SplitChargeAmounts = charges
		}
	}

	if title := row.get(colItemTitle); title != "" {
		item, err := parseItem(title, row.get(colItemPrice), row.get(colQuantity))
		if err != nil {
			return err
		}
		b.order.Items = append(b.order.Items, item)
	}

	if !exists {
		builders[key] = b
		*keys = append(*keys, key)
	}
	return nil
}

func parseItem(title, rawPrice, rawQty string) (model.OrderItem, error) {
	item := model.OrderItem{Title: title, Quantity: 1}
	if rawPrice != "" {
		price, err := parseAmount(rawPrice)
		if err != nil {
			return model.OrderItem{}, fmt.Errorf("invalid %s for %q: %w", colItemPrice, title, err)
		}
		item.UnitPrice = price
	}
	if rawQty != "" {
		qty, err := strconv.Atoi(rawQty)
		if err != nil {
			return model.OrderItem{}, fmt.Errorf("invalid %s for %q: %w", colQuantity, title, err)
		}
		if qty > 0 {
			item.Quantity = qty
		}
	}
	return item, nil
}

func parseCharges(raw string) ([]decimal.Decimal, error) {
	var charges []decimal.Decimal
	for _, part := range strings.Split(raw, ";") {
		if part = strings.TrimSpace(part); part == "" {
			continue
		}
		c, err := parseAmount(part)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", colChargeAmounts, err)
		}
		charges = append(charges, c)
	}
	return charges, nil
}

// parseAmount accepts "25.99", "$25.99", "-$5.00" and "$1,234.56"
func parseAmount(s string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(s)
	negative := strings.HasPrefix(cleaned, "-")
	cleaned = strings.TrimPrefix(cleaned, "-")
	cleaned = strings.TrimPrefix(cleaned, "$")
	cleaned = strings.ReplaceAll(cleaned, ",", "")

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, err
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

func parseDate(s string) (civil.Date, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civil.DateOf(t), nil
		}
	}
	return civil.Date{}, fmt.Errorf("invalid %s %q", colOrderDate, s)
}

func indexColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}
	return cols
}

// rowView reads named fields from a record, tolerating short rows
type rowView struct {
	cols   map[string]int
	record []string
}

func (r rowView) get(name string) string {
	i, ok := r.cols[name]
	if !ok || i >= len(r.record) {
		return ""
	}
	return strings.TrimSpace(r.record[i])
}
