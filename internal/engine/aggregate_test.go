package engine

import (
	"reflect"
	"testing"
)

func TestUniqueSKUQuantitiesMaxWins(t *testing.T) {
	// Duplicate lines for the same SKU must resolve to max, not sum.
	skus, qty := UniqueSKUQuantities([]NormalizedRow{
		{SKU: "A", Quantity: 2},
		{SKU: "A", Quantity: 5},
		{SKU: "B", Quantity: 1},
		{SKU: "", Quantity: 9},
	})

	if !reflect.DeepEqual(skus, []string{"A", "B"}) {
		t.Fatalf("unexpected sku order: %v", skus)
	}
	if qty["A"] != 5 {
		t.Fatalf("expected max quantity 5 for A, got %v", qty["A"])
	}
	if qty["B"] != 1 {
		t.Fatalf("unexpected quantity for B: %v", qty["B"])
	}
}

func TestAnalyzeEndToEnd(t *testing.T) {
	e := New(AmazonProfile())

	master := []RawRecord{
		{"Seller SKU": "X1", "Product Name": "Widget", "COGS": 10.0},
	}
	rows := []RawRecord{
		{"order-id": "O1", "sku": "X1", "amount": 50.0, "quantity-purchased": 2.0, "transaction-type": "Order", "posted-date": "2024-03-10"},
		{"order-id": "O1", "sku": "X1", "amount": 5.0, "quantity-purchased": 2.0, "transaction-type": "Order", "posted-date": "2024-03-11"},
	}

	res := e.Analyze(rows, master)

	if len(res.Sheets.OrderSummary) != 1 {
		t.Fatalf("expected 1 order, got %d", len(res.Sheets.OrderSummary))
	}
	o := res.Sheets.OrderSummary[0]
	if o.TotalAmount != 55 {
		t.Fatalf("total amount: got %v, want 55", o.TotalAmount)
	}
	if o.TotalQuantity != 2 {
		t.Fatalf("total quantity: got %v, want 2 (max, not sum)", o.TotalQuantity)
	}
	if o.OrderCost != 20 {
		t.Fatalf("order cost: got %v, want 20", o.OrderCost)
	}
	if o.FinalAmount != 35 {
		t.Fatalf("final amount: got %v, want 35", o.FinalAmount)
	}
	if o.MissingCostSKUCount != 0 {
		t.Fatalf("missing cost count: got %d, want 0", o.MissingCostSKUCount)
	}
	if o.Date != "2024-03-10T00:00:00Z" {
		t.Fatalf("expected earliest date of the group, got %q", o.Date)
	}
}

func TestAnalyzeFinalAmountInvariant(t *testing.T) {
	e := New(AmazonProfile())
	master := []RawRecord{
		{"Seller SKU": "A", "COGS": 3.5},
		{"Seller SKU": "B", "COGS": 2.0},
	}
	rows := []RawRecord{
		{"order-id": "O1", "sku": "A", "amount": 10.0, "qty": 1.0},
		{"order-id": "O1", "sku": "B", "amount": 4.0, "qty": 2.0},
		{"order-id": "O2", "sku": "A", "amount": -7.0, "qty": 1.0, "transaction-type": "Refund"},
	}

	res := e.Analyze(rows, master)
	for _, o := range res.Sheets.OrderSummary {
		if o.FinalAmount != o.TotalAmount-o.OrderCost {
			t.Fatalf("invariant broken for %s: %v != %v - %v", o.OrderID, o.FinalAmount, o.TotalAmount, o.OrderCost)
		}
	}
}

func TestAnalyzeMissingCostSKU(t *testing.T) {
	e := New(AmazonProfile())
	rows := []RawRecord{
		{"order-id": "O1", "sku": "NOPE-1", "amount": 25.0, "qty": 1.0},
	}

	res := e.Analyze(rows, nil)

	o := res.Sheets.OrderSummary[0]
	if o.OrderCost != 0 {
		t.Fatalf("unknown sku must contribute 0 cost, got %v", o.OrderCost)
	}
	if o.MissingCostSKUCount != 1 {
		t.Fatalf("expected 1 missing-cost sku, got %d", o.MissingCostSKUCount)
	}
	if len(res.Sheets.MissingCostOrders) != 1 {
		t.Fatalf("expected 1 missing-cost detail row, got %d", len(res.Sheets.MissingCostOrders))
	}
	d := res.Sheets.MissingCostOrders[0]
	if !d.CostMissing || d.TotalCost != 0 {
		t.Fatalf("unexpected detail row: %+v", d)
	}
}

func TestAnalyzeZeroCostCountsAsMissing(t *testing.T) {
	e := New(AmazonProfile())
	master := []RawRecord{{"Seller SKU": "Z0", "COGS": 0.0}}
	rows := []RawRecord{{"order-id": "O1", "sku": "Z0", "amount": 10.0, "qty": 1.0}}

	res := e.Analyze(rows, master)
	if res.Sheets.OrderSummary[0].MissingCostSKUCount != 1 {
		t.Fatalf("zero unit cost must count as missing")
	}
	if !res.Sheets.OrderUniqueSKUs[0].CostMissing {
		t.Fatalf("zero unit cost must flag CostMissing")
	}
}

func TestAnalyzeRefundPriority(t *testing.T) {
	e := New(AmazonProfile())
	rows := []RawRecord{
		{"order-id": "O1", "sku": "A", "amount": 10.0, "qty": 1.0, "transaction-type": "Order"},
		{"order-id": "O1", "sku": "A", "amount": -10.0, "qty": 1.0, "transaction-type": "Refund"},
	}

	res := e.Analyze(rows, nil)
	if got := res.Sheets.OrderSummary[0].Type; got != TypeRefund {
		t.Fatalf("Refund must take priority over Order, got %q", got)
	}
}

func TestAnalyzeTypeClassification(t *testing.T) {
	e := New(AmazonProfile())

	cases := []struct {
		types []string
		want  string
	}{
		{[]string{"ServiceFee", "Order Payment"}, TypeOrder},
		{[]string{"", ""}, TypeOrder},
		{[]string{"Adjustment", "ServiceFee"}, "Adjustment,ServiceFee"},
		{[]string{"ServiceFee", "Adjustment"}, "Adjustment,ServiceFee"},
	}
	for _, c := range cases {
		rows := make([]RawRecord, 0, len(c.types))
		for _, tt := range c.types {
			rows = append(rows, RawRecord{"order-id": "O1", "amount": 1.0, "transaction-type": tt})
		}
		res := e.Analyze(rows, nil)
		if got := res.Sheets.OrderSummary[0].Type; got != c.want {
			t.Fatalf("types %v: got %q, want %q", c.types, got, c.want)
		}
	}
}

func TestAnalyzeNegativeOrdersExcludeRefunds(t *testing.T) {
	e := New(AmazonProfile())
	master := []RawRecord{{"Seller SKU": "A", "COGS": 100.0}}
	rows := []RawRecord{
		// A plain order that loses money.
		{"order-id": "O1", "sku": "A", "amount": 10.0, "qty": 1.0, "transaction-type": "Order"},
		// A refund, negative by nature, must not be flagged.
		{"order-id": "O2", "sku": "A", "amount": -50.0, "qty": 1.0, "transaction-type": "Refund"},
	}

	res := e.Analyze(rows, master)
	if len(res.Sheets.NegativeOrders) != 1 {
		t.Fatalf("expected exactly the losing order flagged, got %d", len(res.Sheets.NegativeOrders))
	}
	if res.Sheets.NegativeOrders[0].OrderID != "O1" {
		t.Fatalf("unexpected negative order: %+v", res.Sheets.NegativeOrders[0])
	}
}

func TestAnalyzeInactiveSKUs(t *testing.T) {
	e := New(AmazonProfile())
	master := []RawRecord{
		{"Seller SKU": "X1", "Product Name": "Widget", "COGS": 10.0},
		{"Seller SKU": "Z9", "Product Name": "Dusty", "COGS": 4.0},
	}
	rows := []RawRecord{
		{"order-id": "O1", "sku": "X1", "amount": 20.0, "qty": 1.0},
	}

	res := e.Analyze(rows, master)

	if len(res.Sheets.InactiveSKUs) != 1 {
		t.Fatalf("expected 1 inactive sku, got %d", len(res.Sheets.InactiveSKUs))
	}
	in := res.Sheets.InactiveSKUs[0]
	if in.SKU != "Z9" {
		t.Fatalf("unexpected inactive sku: %+v", in)
	}
	if in.LastOrderDate != nil {
		t.Fatalf("inactive sku has no order date in this file, got %v", *in.LastOrderDate)
	}

	sum := res.Sheets.InactiveSKUSummary[0]
	if sum.TotalMasterSKUs != 2 || sum.InactiveSKUs != 1 || sum.PercentInactive != 50 {
		t.Fatalf("unexpected inactive summary: %+v", sum)
	}
}

func TestAnalyzeUnknownOrderRowsKept(t *testing.T) {
	e := New(AmazonProfile())
	rows := []RawRecord{
		{"amount": 3.0, "transaction-type": "ServiceFee"},
		{"amount": 4.0, "transaction-type": "ServiceFee"},
	}

	res := e.Analyze(rows, nil)
	if len(res.Sheets.OrderSummary) != 1 {
		t.Fatalf("unknown-order rows must form their own group, got %d groups", len(res.Sheets.OrderSummary))
	}
	o := res.Sheets.OrderSummary[0]
	if o.OrderID != UnknownOrderID || o.TotalAmount != 7 {
		t.Fatalf("unexpected unknown group: %+v", o)
	}
}

func TestAnalyzeEmptyInputs(t *testing.T) {
	e := New(AmazonProfile())
	res := e.Analyze(nil, nil)

	if res.Totals.TotalOrders != 0 || res.Totals.TotalSales != 0 {
		t.Fatalf("unexpected totals: %+v", res.Totals)
	}
	if res.Sheets.OrderSummary == nil || res.Sheets.InactiveSKUSummary == nil {
		t.Fatalf("empty input must still produce well-formed tables")
	}
	if res.Sheets.InactiveSKUSummary[0].PercentInactive != 0 {
		t.Fatalf("empty master must report 0%% inactive, got %v", res.Sheets.InactiveSKUSummary[0].PercentInactive)
	}
}

func TestAnalyzeIdempotent(t *testing.T) {
	e := New(AmazonProfile())
	master := []RawRecord{
		{"Seller SKU": "X1", "Product Name": "Widget", "COGS": 10.0},
		{"Seller SKU": "Y2", "Product Name": "Gadget", "COGS": 4.0},
	}
	rows := []RawRecord{
		{"order-id": "O1", "sku": "X1", "amount": 50.0, "qty": 2.0, "posted-date": "2024-03-10", "transaction-type": "Order"},
		{"order-id": "O2", "sku": "Y2", "amount": 12.0, "qty": 1.0, "posted-date": "2024-04-01", "transaction-type": "Order"},
		{"order-id": "O2", "sku": "X1", "amount": 9.0, "qty": 3.0, "posted-date": "2024-04-01", "transaction-type": "Order"},
		{"amount": 2.5},
	}

	first := e.Analyze(rows, master)
	second := e.Analyze(rows, master)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("analyze is not deterministic")
	}
}

func TestAnalyzeTotalsMatchSummaries(t *testing.T) {
	e := New(AmazonProfile())
	master := []RawRecord{{"Seller SKU": "A", "COGS": 2.0}}
	rows := []RawRecord{
		{"order-id": "O1", "sku": "A", "amount": 10.0, "qty": 1.0},
		{"order-id": "O2", "sku": "A", "amount": 6.0, "qty": 2.0},
	}

	res := e.Analyze(rows, master)
	var sales, cogs, profit float64
	for _, o := range res.Sheets.OrderSummary {
		sales += o.TotalAmount
		cogs += o.OrderCost
		profit += o.FinalAmount
	}
	if res.Totals.TotalSales != sales || res.Totals.TotalCogs != cogs || res.Totals.TotalProfit != profit {
		t.Fatalf("totals do not match summaries: %+v", res.Totals)
	}
	if res.Totals.TotalOrders != 2 {
		t.Fatalf("expected 2 orders, got %d", res.Totals.TotalOrders)
	}
}
