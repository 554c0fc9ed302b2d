package csv

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/ledger-reconciler/internal/adapters/providers"
)

const sampleCSV = `order_id,order_date,total,item_title,item_price,quantity,is_return,charge_amounts
T-100,2024-01-18,25.99,Wireless Headphones,25.99,1,,
T-200,2024-01-19,$150.00,Desk Lamp,100.00,1,false,100.00;50.00
T-200,2024-01-19,,LED Bulbs,25.00,2,false,
T-200,2024-01-25,40.00,LED Bulbs,20.00,2,true,
T-300,12/30/2023,9.99,Old Order,9.99,1,,
T-400,not-a-date,1.00,Broken,1.00,1,,
`

func newTestSource(t *testing.T, content string) *Source {
	t.Helper()
	path := filepath.Join(t.TempDir(), "orders.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return NewSource(nil, Config{Path: path, Retailer: "Target"})
}

func januaryOptions() providers.FetchOptions {
	return providers.FetchOptions{
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
	}
}

func TestSource_Identity(t *testing.T) {
	s := NewSource(nil, Config{Path: "x.csv", Retailer: "Target"})
	assert.Equal(t, "csv", s.Name())
	assert.Equal(t, "Target", s.Retailer())
}

func TestSource_FetchOrders(t *testing.T) {
	s := newTestSource(t, sampleCSV)

	orders, err := s.FetchOrders(context.Background(), januaryOptions())
	require.NoError(t, err)

	// T-300 is out of range, T-400 has a bad date
	require.Len(t, orders, 3)

	single := orders[0]
	assert.Equal(t, "T-100", single.OrderID)
	assert.Equal(t, "Target", single.Retailer)
	assert.Equal(t, civil.Date{Year: 2024, Month: time.January, Day: 18}, single.OrderDate)
	assert.True(t, decimal.RequireFromString("25.99").Equal(single.TotalAmount.Decimal))
	assert.False(t, single.IsSplit())

	split := orders[1]
	assert.Equal(t, "T-200", split.OrderID)
	assert.False(t, split.IsReturn)
	assert.True(t, decimal.RequireFromString("150").Equal(split.TotalAmount.Decimal))
	require.True(t, split.IsSplit())
	assert.Equal(t, "50", split.SplitChargeAmounts[1].String())
	require.Len(t, split.Items, 2)
	assert.Equal(t, "LED Bulbs", split.Items[1].Title)
	assert.Equal(t, 2, split.Items[1].Quantity)

	ret := orders[2]
	assert.Equal(t, "T-200", ret.OrderID)
	assert.True(t, ret.IsReturn)
	assert.Equal(t, civil.Date{Year: 2024, Month: time.January, Day: 25}, ret.OrderDate)
}

func TestSource_FetchOrders_MaxOrders(t *testing.T) {
	s := newTestSource(t, sampleCSV)

	opts := januaryOptions()
	opts.MaxOrders = 2
	orders, err := s.FetchOrders(context.Background(), opts)
	require.NoError(t, err)
	assert.Len(t, orders, 2)
}

func TestSource_Parse_MissingTotal(t *testing.T) {
	s := NewSource(nil, Config{})
	orders, err := s.Parse(context.Background(), strings.NewReader("order_id,order_date,item_title\nA,2024-01-01,Thing\n"))
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.False(t, orders[0].HasTotal())
	assert.Equal(t, 1, orders[0].Items[0].Quantity)
}

func TestSource_Parse_HeaderHandling(t *testing.T) {
	s := NewSource(nil, Config{})

	orders, err := s.Parse(context.Background(), strings.NewReader("\ufeffOrder_ID, Order_Date ,Total\nA,2024-01-01,5\n"))
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "A", orders[0].OrderID)

	_, err = s.Parse(context.Background(), strings.NewReader("id,date\nA,2024-01-01\n"))
	assert.True(t, errors.Is(err, ErrMissingColumn))

	orders, err = s.Parse(context.Background(), strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestSource_Parse_SkipsMalformedRows(t *testing.T) {
	s := NewSource(nil, Config{})
	input := "order_id,order_date,total,is_return\n,2024-01-01,1\nB,2024-01-01,abc\nC,2024-01-01,3,maybe\nD,2024-01-02,4\n"

	orders, err := s.Parse(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "D", orders[0].OrderID)
}

func TestSource_Parse_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSource(nil, Config{}).Parse(ctx, strings.NewReader(sampleCSV))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSource_MissingFile(t *testing.T) {
	s := NewSource(nil, Config{Path: filepath.Join(t.TempDir(), "none.csv")})
	assert.Error(t, s.HealthCheck(context.Background()))

	_, err := s.FetchOrders(context.Background(), providers.FetchOptions{})
	assert.Error(t, err)
}
