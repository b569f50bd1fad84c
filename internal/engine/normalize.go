package engine

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Num coerces an arbitrary spreadsheet cell value to a float64. Anything that
// does not parse to a finite number becomes 0; every monetary and quantity
// read in the pipeline goes through this single primitive so NaN can never
// reach a downstream sum.
func Num(v any) float64 {
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0
		}
		return n
	case float32:
		return Num(float64(n))
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		return Num(string(n))
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0
		}
		s = strings.ReplaceAll(s, ",", "")
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0
		}
		return f
	default:
		return 0
	}
}

// Str renders a cell value as a trimmed string; nil becomes "".
func Str(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strings.TrimSpace(strconv.FormatFloat(s, 'f', -1, 64))
	case json.Number:
		return strings.TrimSpace(string(s))
	case bool:
		return strconv.FormatBool(s)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	default:
		return ""
	}
}

// skuTokenPattern matches a SKU-shaped token inside free text: three or more
// characters drawn from uppercase letters, digits, hyphen and underscore.
var skuTokenPattern = regexp.MustCompile(`[A-Z0-9_-]{3,}`)

// ExtractSKUToken pulls the first SKU-shaped token out of a description-like
// field. Used as a fallback when the export carries no explicit SKU column.
func ExtractSKUToken(text string) string {
	if text == "" {
		return ""
	}
	return skuTokenPattern.FindString(text)
}

// dateLayouts lists the timestamp shapes seen across settlement exports, most
// specific first.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006-01",
	"02.01.2006 15:04:05",
	"02.01.2006",
	"01/02/2006 15:04:05",
	"01/02/2006",
	"2 Jan 2006",
	"Jan 2, 2006",
}

// ParseTimestamp attempts to parse a settlement timestamp. The boolean is
// false when no known layout matches; callers treat that as "no date", never
// as an error.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// NormalizeRow maps one raw settlement record to its canonical shape, joining
// product name and unit cost from the master index. Missing numeric fields
// coerce to 0 and a missing order id becomes the "UNKNOWN" sentinel; such
// rows stay in the pipeline and form their own group.
func (e *Engine) NormalizeRow(rec RawRecord, index MasterIndex) NormalizedRow {
	p := e.profile

	amountVal, _ := Resolve(rec, p.AmountFields...)
	amount := Num(amountVal)

	qtyVal, _ := ResolveNonEmpty(rec, p.QuantityFields...)
	quantity := Num(qtyVal)

	skuVal, _ := Resolve(rec, p.SKUFields...)
	sku := Str(skuVal)
	if sku == "" {
		descVal, _ := Resolve(rec, p.DescriptionFields...)
		sku = ExtractSKUToken(Str(descVal))
	}

	orderIDVal, _ := ResolveNonEmpty(rec, p.OrderIDFields...)
	orderID := Str(orderIDVal)
	if orderID == "" {
		orderID = UnknownOrderID
	}

	postedDateVal, _ := Resolve(rec, p.PostedDateFields...)
	postedDateTimeVal, _ := Resolve(rec, p.PostedDateTimeFields...)

	typeVal, _ := Resolve(rec, p.TransactionTypeFields...)

	entry := index[sku]

	return NormalizedRow{
		OrderID:         orderID,
		SKU:             sku,
		Quantity:        quantity,
		Amount:          amount,
		PostedDate:      Str(postedDateVal),
		PostedDateTime:  Str(postedDateTimeVal),
		TransactionType: Str(typeVal),
		MasterName:      entry.ProductName,
		MasterUnitCost:  entry.UnitCost,
		Raw:             rec,
	}
}
