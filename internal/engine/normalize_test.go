package engine

import "testing"

func TestNumCoercion(t *testing.T) {
	cases := []struct {
		in   any
		want float64
	}{
		{nil, 0},
		{"", 0},
		{"  12.50 ", 12.5},
		{"1,234.56", 1234.56},
		{"abc", 0},
		{42, 42},
		{int64(7), 7},
		{3.25, 3.25},
		{true, 0},
	}
	for _, c := range cases {
		if got := Num(c.in); got != c.want {
			t.Fatalf("Num(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestExtractSKUToken(t *testing.T) {
	if got := ExtractSKUToken("Order item ABC-123 shipped"); got != "ABC-123" {
		t.Fatalf("unexpected token: %q", got)
	}
	if got := ExtractSKUToken("no sku here"); got != "" {
		t.Fatalf("expected empty token, got %q", got)
	}
	if got := ExtractSKUToken(""); got != "" {
		t.Fatalf("expected empty token for empty text, got %q", got)
	}
	// Two-character runs are too short to be a SKU.
	if got := ExtractSKUToken("ab XY cd WIDGET_9"); got != "WIDGET_9" {
		t.Fatalf("unexpected token: %q", got)
	}
}

func TestNormalizeRowResolvesSKUFromDescription(t *testing.T) {
	e := New(AmazonProfile())
	row := e.NormalizeRow(RawRecord{
		"order-id":           "O1",
		"amount":             "10",
		"amount-description": "FBA fee for ABC-123",
	}, MasterIndex{})

	if row.SKU != "ABC-123" {
		t.Fatalf("expected SKU from description, got %q", row.SKU)
	}
}

func TestNormalizeRowUnknownOrderID(t *testing.T) {
	e := New(AmazonProfile())
	row := e.NormalizeRow(RawRecord{"amount": "5"}, MasterIndex{})

	if row.OrderID != UnknownOrderID {
		t.Fatalf("expected %q sentinel, got %q", UnknownOrderID, row.OrderID)
	}
}

func TestNormalizeRowJoinsMaster(t *testing.T) {
	e := New(AmazonProfile())
	index := MasterIndex{"X1": {SKU: "X1", ProductName: "Widget", UnitCost: 10}}

	row := e.NormalizeRow(RawRecord{
		"Order-Id":           "O1",
		"SKU":                " X1 ",
		"Amount":             50.0,
		"Quantity-Purchased": 2.0,
	}, index)

	if row.SKU != "X1" {
		t.Fatalf("expected trimmed SKU, got %q", row.SKU)
	}
	if row.MasterName != "Widget" || row.MasterUnitCost != 10 {
		t.Fatalf("master join failed: %+v", row)
	}
	if row.Amount != 50 || row.Quantity != 2 {
		t.Fatalf("numeric fields wrong: %+v", row)
	}
}

func TestNormalizeRowCoercesBadNumbers(t *testing.T) {
	e := New(AmazonProfile())
	row := e.NormalizeRow(RawRecord{
		"order-id": "O1",
		"amount":   "not-a-number",
		"qty":      nil,
	}, MasterIndex{})

	if row.Amount != 0 || row.Quantity != 0 {
		t.Fatalf("expected coercion to zero, got %+v", row)
	}
}

func TestParseTimestampLayouts(t *testing.T) {
	for _, s := range []string{
		"2024-03-15",
		"2024-03-15T10:30:00Z",
		"2024-03-15 10:30:00",
		"15.03.2024",
	} {
		if _, ok := ParseTimestamp(s); !ok {
			t.Fatalf("expected %q to parse", s)
		}
	}
	if _, ok := ParseTimestamp("not a date"); ok {
		t.Fatalf("expected parse failure")
	}
	if _, ok := ParseTimestamp(""); ok {
		t.Fatalf("expected parse failure for empty string")
	}
}
