package engine

import "testing"

func TestResolveCaseAndWhitespaceInsensitive(t *testing.T) {
	rec := RawRecord{"  Quantity-Purchased ": 3.0}

	v, ok := Resolve(rec, "quantity-purchased")
	if !ok {
		t.Fatalf("expected a match")
	}
	if v.(float64) != 3.0 {
		t.Fatalf("unexpected value: %v", v)
	}
}

func TestResolveFirstCandidateWins(t *testing.T) {
	rec := RawRecord{"qty": 7.0, "quantity-purchased": 2.0}

	v, ok := Resolve(rec, "quantity-purchased", "qty")
	if !ok || v.(float64) != 2.0 {
		t.Fatalf("expected quantity-purchased to win, got %v (ok=%v)", v, ok)
	}
}

func TestResolvePreservesFalsyValues(t *testing.T) {
	rec := RawRecord{"amount": 0.0, "flag": false, "note": ""}

	if v, ok := Resolve(rec, "amount"); !ok || v.(float64) != 0.0 {
		t.Fatalf("zero amount must be returned as present, got %v (ok=%v)", v, ok)
	}
	if v, ok := Resolve(rec, "flag"); !ok || v.(bool) != false {
		t.Fatalf("false must be returned as present, got %v (ok=%v)", v, ok)
	}
	if v, ok := Resolve(rec, "note"); !ok || v.(string) != "" {
		t.Fatalf("empty string must be returned as present, got %v (ok=%v)", v, ok)
	}
}

func TestResolveMissingKey(t *testing.T) {
	rec := RawRecord{"sku": "A1"}

	if _, ok := Resolve(rec, "order-id"); ok {
		t.Fatalf("expected no match for missing key")
	}
	if _, ok := Resolve(RawRecord{}, "sku"); ok {
		t.Fatalf("expected no match on empty record")
	}
}

func TestResolveNonEmptySkipsBlankValues(t *testing.T) {
	rec := RawRecord{"quantity-purchased": "  ", "qty": "4"}

	v, ok := ResolveNonEmpty(rec, "quantity-purchased", "qty")
	if !ok || v.(string) != "4" {
		t.Fatalf("expected blank quantity-purchased to fall through to qty, got %v (ok=%v)", v, ok)
	}
}

func TestProfileFor(t *testing.T) {
	if p := ProfileFor("flipkart"); p.Marketplace != "flipkart" {
		t.Fatalf("unexpected profile: %s", p.Marketplace)
	}
	if p := ProfileFor("AMAZON"); p.Marketplace != "amazon" {
		t.Fatalf("unexpected profile: %s", p.Marketplace)
	}
	if p := ProfileFor("ebay"); p.Marketplace != "amazon" {
		t.Fatalf("unknown marketplace should default to amazon, got %s", p.Marketplace)
	}
}
