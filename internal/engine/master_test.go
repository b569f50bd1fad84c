package engine

import "testing"

func TestBuildMasterIndex(t *testing.T) {
	e := New(AmazonProfile())
	index, order := e.BuildMasterIndex([]RawRecord{
		{"Seller SKU": " X1 ", "Product Name": "Widget", "COGS": "10"},
		{"Seller SKU": "", "Product Name": "dropped", "COGS": "1"},
		{"sku": "Y2", "product": "Gadget", "cost": "bad-value"},
	})

	if len(index) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(index))
	}
	if len(order) != 2 || order[0] != "X1" || order[1] != "Y2" {
		t.Fatalf("unexpected sku order: %v", order)
	}

	x1 := index["X1"]
	if x1.ProductName != "Widget" || x1.UnitCost != 10 {
		t.Fatalf("unexpected X1 entry: %+v", x1)
	}
	if index["Y2"].UnitCost != 0 {
		t.Fatalf("unparsable cost should coerce to 0, got %v", index["Y2"].UnitCost)
	}
}

func TestBuildMasterIndexLastWriteWins(t *testing.T) {
	e := New(AmazonProfile())
	index, order := e.BuildMasterIndex([]RawRecord{
		{"Seller SKU": "X1", "Product Name": "Old", "COGS": 5.0},
		{"Seller SKU": "X1", "Product Name": "New", "COGS": 8.0},
	})

	if len(order) != 1 {
		t.Fatalf("duplicate sku should keep one position, got %v", order)
	}
	if index["X1"].ProductName != "New" || index["X1"].UnitCost != 8 {
		t.Fatalf("expected last write to win: %+v", index["X1"])
	}
}

func TestBuildMasterIndexSKUCaseSensitive(t *testing.T) {
	e := New(AmazonProfile())
	index, _ := e.BuildMasterIndex([]RawRecord{
		{"Seller SKU": "abc", "COGS": 1.0},
		{"Seller SKU": "ABC", "COGS": 2.0},
	})

	if len(index) != 2 {
		t.Fatalf("sku keys are case-sensitive, expected 2 entries, got %d", len(index))
	}
}
