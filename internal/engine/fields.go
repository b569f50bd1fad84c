// Package engine implements the settlement reconciliation pipeline: it joins
// raw marketplace settlement rows against the cost-of-goods master, groups
// them into orders and produces the summary, diagnostic and P&L tables.
// The engine is pure: it performs no I/O and is deterministic for a given
// input snapshot.
package engine

import "strings"

// RawRecord is one settlement or master row as read from a spreadsheet.
// Keys are the original header cells; casing and separators vary by export,
// so access always goes through Resolve.
type RawRecord map[string]any

// Resolve returns the value for the first candidate column name that matches
// a record key. Matching is case-insensitive with surrounding whitespace
// trimmed on both sides. The candidate order encodes which vendor column
// variants are authoritative and is preserved exactly.
//
// The boolean reports whether any candidate matched, so values that happen to
// be zero, empty or false still come back as present.
func Resolve(rec RawRecord, candidates ...string) (any, bool) {
	if len(rec) == 0 {
		return nil, false
	}

	keys := make(map[string]string, len(rec))
	for k := range rec {
		nk := normalizeFieldName(k)
		// Keep the lexicographically smallest original key so duplicate
		// headers resolve the same way on every run.
		if prev, ok := keys[nk]; !ok || k < prev {
			keys[nk] = k
		}
	}

	for _, c := range candidates {
		if orig, ok := keys[normalizeFieldName(c)]; ok {
			return rec[orig], true
		}
	}
	return nil, false
}

// ResolveNonEmpty walks the candidates and returns the first value that is
// present and not blank. Order id and quantity columns are frequently present
// but empty in settlement exports, in which case the next alias should win.
func ResolveNonEmpty(rec RawRecord, candidates ...string) (any, bool) {
	for _, c := range candidates {
		v, ok := Resolve(rec, c)
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			continue
		}
		return v, true
	}
	return nil, false
}

func normalizeFieldName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Profile carries the ordered column-name aliases for one marketplace export
// format. The pipeline logic is identical across marketplaces; only the
// profile differs.
type Profile struct {
	Marketplace string

	AmountFields          []string
	QuantityFields        []string
	SKUFields             []string
	OrderIDFields         []string
	DescriptionFields     []string
	PostedDateFields      []string
	PostedDateTimeFields  []string
	TransactionTypeFields []string

	// Master file aliases.
	MasterSKUFields  []string
	MasterNameFields []string
	MasterCostFields []string
}

// AmazonProfile matches Amazon settlement exports. The alias order mirrors
// the column priority of the vendor format, e.g. quantity-purchased is more
// authoritative than a generic qty column.
func AmazonProfile() Profile {
	return Profile{
		Marketplace:           "amazon",
		AmountFields:          []string{"amount", "total-amount", "total_amount"},
		QuantityFields:        []string{"quantity-purchased", "quantity purchased", "quantity_purchased", "qty", "quantity"},
		SKUFields:             []string{"sku", "skus", "seller sku", "seller-sku", "seller_sku", "sellersku"},
		OrderIDFields:         []string{"merchant-order-id", "merchant order id", "merchantorderid", "order-id", "order id", "orderid", "order_id"},
		DescriptionFields:     []string{"amount-description", "description", "item description"},
		PostedDateFields:      []string{"posted-date", "posted date", "posted_date"},
		PostedDateTimeFields:  []string{"posted-date-time", "posted date time", "posted_date_time"},
		TransactionTypeFields: []string{"transaction-type", "transaction type", "transaction_type", "type"},
		MasterSKUFields:       []string{"seller sku", "seller-sku", "sku"},
		MasterNameFields:      []string{"product name", "productname", "product"},
		MasterCostFields:      []string{"cogs", "cog", "cost"},
	}
}

// FlipkartProfile matches Flipkart settlement exports.
func FlipkartProfile() Profile {
	return Profile{
		Marketplace:           "flipkart",
		AmountFields:          []string{"total amount", "total_amount", "amount"},
		QuantityFields:        []string{"quantity", "qty", "quantity-purchased"},
		SKUFields:             []string{"sku", "seller sku", "seller-sku", "item sku"},
		OrderIDFields:         []string{"order id", "order-id", "orderid", "order_id"},
		DescriptionFields:     []string{"description", "item description"},
		PostedDateFields:      []string{"order_date", "order date", "order-date"},
		PostedDateTimeFields:  []string{"order_date_time", "order date time", "order-date-time"},
		TransactionTypeFields: []string{"transaction type", "transaction-type", "transaction_type", "event type", "type"},
		MasterSKUFields:       []string{"seller sku", "seller-sku", "sku"},
		MasterNameFields:      []string{"product name", "productname", "product"},
		MasterCostFields:      []string{"cogs", "cog", "cost"},
	}
}

// ProfileFor returns the alias profile for a marketplace name, defaulting to
// the Amazon profile for unknown values.
func ProfileFor(marketplace string) Profile {
	switch strings.ToLower(strings.TrimSpace(marketplace)) {
	case "flipkart":
		return FlipkartProfile()
	default:
		return AmazonProfile()
	}
}
