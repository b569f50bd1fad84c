package engine

import (
	"math"
	"sort"
	"strings"
	"time"
)

const (
	// UnknownOrderID groups rows whose order id could not be resolved.
	UnknownOrderID = "UNKNOWN"

	// TypeOrder and TypeRefund are the two canonical order classifications.
	TypeOrder  = "Order"
	TypeRefund = "Refund"

	inactiveReason = "never ordered (in this file)"
)

// Engine runs the reconciliation pipeline for one marketplace profile.
// It is stateless between calls and safe to reuse.
type Engine struct {
	profile Profile
}

// New returns an engine bound to the given marketplace profile.
func New(profile Profile) *Engine {
	return &Engine{profile: profile}
}

// Profile returns the alias profile the engine was built with.
func (e *Engine) Profile() Profile {
	return e.profile
}

// orderGroup is the set of normalized rows sharing one order id, in input
// order.
type orderGroup struct {
	orderID string
	rows    []NormalizedRow
}

// groupByOrder partitions rows by order id, preserving the order in which
// each order id was first seen.
func groupByOrder(rows []NormalizedRow) []orderGroup {
	byID := make(map[string]int)
	groups := make([]orderGroup, 0)
	for _, r := range rows {
		id := r.OrderID
		if id == "" {
			id = UnknownOrderID
		}
		idx, ok := byID[id]
		if !ok {
			idx = len(groups)
			byID[id] = idx
			groups = append(groups, orderGroup{orderID: id})
		}
		groups[idx].rows = append(groups[idx].rows, r)
	}
	return groups
}

// UniqueSKUQuantities collapses the lines of one order group into one
// quantity per distinct non-empty SKU, keeping the maximum quantity seen.
// Max rather than sum guards against the same SKU appearing on an order line
// and again on an adjustment line. The returned slice carries the SKUs in
// first-appearance order.
func UniqueSKUQuantities(rows []NormalizedRow) ([]string, map[string]float64) {
	order := make([]string, 0, len(rows))
	qty := make(map[string]float64, len(rows))
	for _, r := range rows {
		sku := strings.TrimSpace(r.SKU)
		if sku == "" {
			continue
		}
		q := Num(r.Quantity)
		if prev, seen := qty[sku]; !seen {
			order = append(order, sku)
			qty[sku] = q
		} else if prev < q {
			qty[sku] = q
		}
	}
	return order, qty
}

// classifyType reduces the transaction-type tags of an order group to one
// label. Refund wins over Order; a group with no tags at all defaults to
// Order; anything else becomes the sorted distinct tags joined by commas.
func classifyType(rows []NormalizedRow) string {
	seen := make(map[string]struct{})
	types := make([]string, 0)
	for _, r := range rows {
		t := strings.TrimSpace(r.TransactionType)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		types = append(types, t)
	}
	for _, t := range types {
		if strings.Contains(t, TypeRefund) {
			return TypeRefund
		}
	}
	for _, t := range types {
		if strings.Contains(t, TypeOrder) {
			return TypeOrder
		}
	}
	if len(types) == 0 {
		return TypeOrder
	}
	sort.Strings(types)
	return strings.Join(types, ",")
}

// groupDate returns the earliest parseable timestamp of the group as an
// RFC3339 UTC string, preferring each row's posted date over its posted
// date-time. Empty string when nothing parses.
func groupDate(rows []NormalizedRow) string {
	var min time.Time
	found := false
	for _, r := range rows {
		candidate := r.PostedDate
		if candidate == "" {
			candidate = r.PostedDateTime
		}
		t, ok := ParseTimestamp(candidate)
		if !ok {
			continue
		}
		if !found || t.Before(min) {
			min = t
			found = true
		}
	}
	if !found {
		return ""
	}
	return min.UTC().Format(time.RFC3339)
}

// round2 rounds to two decimal places. Accumulation always happens at full
// precision; rounding is applied once at emission.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Analyze runs the full pipeline over a settlement snapshot and the master
// snapshot. It never fails on malformed business data: unresolvable fields
// coerce to safe defaults and empty inputs produce well-formed empty tables.
func (e *Engine) Analyze(rawRows, masterRows []RawRecord) *Result {
	index, masterOrder := e.BuildMasterIndex(masterRows)

	processed := make([]NormalizedRow, 0, len(rawRows))
	for _, rec := range rawRows {
		processed = append(processed, e.NormalizeRow(rec, index))
	}

	groups := groupByOrder(processed)

	summaries := make([]OrderSummary, 0, len(groups))
	details := make([]SKUOrderDetail, 0, len(processed))

	for _, g := range groups {
		skuOrder, skuQty := UniqueSKUQuantities(g.rows)

		totalAmount := 0.0
		for _, r := range g.rows {
			totalAmount += Num(r.Amount)
		}

		totalQuantity := 0.0
		orderCost := 0.0
		missing := 0
		names := make([]string, 0, len(skuOrder))
		pairs := make([]string, 0, len(skuOrder))

		for _, sku := range skuOrder {
			q := skuQty[sku]
			totalQuantity += q

			entry, known := index[sku]
			cost := Num(entry.UnitCost)
			orderCost += cost * q
			if !known || cost == 0 {
				missing++
			}
			if entry.ProductName != "" {
				names = append(names, entry.ProductName)
			}
			pairs = append(pairs, sku+":"+entry.ProductName)

			details = append(details, SKUOrderDetail{
				OrderID:         g.orderID,
				SKU:             sku,
				QuantityInOrder: q,
				UnitCost:        cost,
				CostMissing:     !(cost > 0),
				TotalCost:       cost * q,
			})
		}

		summaries = append(summaries, OrderSummary{
			Date:                groupDate(g.rows),
			OrderID:             g.orderID,
			Type:                classifyType(g.rows),
			SKUs:                strings.Join(skuOrder, ", "),
			TotalQuantity:       totalQuantity,
			TotalAmount:         totalAmount,
			OrderCost:           orderCost,
			FinalAmount:         totalAmount - orderCost,
			MissingCostSKUCount: missing,
			ProductNames:        strings.Join(names, ", "),
			SKUNamePairs:        strings.Join(pairs, ", "),
		})
	}

	skuMap := make([]MasterEntry, 0, len(masterOrder))
	for _, sku := range masterOrder {
		skuMap = append(skuMap, index[sku])
	}

	negative := make([]OrderSummary, 0)
	for _, o := range summaries {
		// Refunds are expected to be negative; only plain orders with a
		// negative final amount are anomalies.
		if o.FinalAmount < 0 && o.Type == TypeOrder {
			negative = append(negative, o)
		}
	}

	missingCost := make([]SKUOrderDetail, 0)
	for _, d := range details {
		if d.CostMissing {
			missingCost = append(missingCost, d)
		}
	}

	inactive := e.inactiveSKUs(index, masterOrder, processed)

	total := len(masterOrder)
	summary := InactiveSKUSummary{
		TotalMasterSKUs: total,
		InactiveSKUs:    len(inactive),
		PercentInactive: round2(float64(len(inactive)) / math.Max(1, float64(total)) * 100),
	}

	totals := Totals{TotalOrders: len(summaries)}
	for _, o := range summaries {
		totals.TotalSales += o.TotalAmount
		totals.TotalCogs += o.OrderCost
		totals.TotalProfit += o.FinalAmount
	}

	return &Result{
		Sheets: Sheets{
			OrderSummary:       summaries,
			OrderUniqueSKUs:    details,
			RawConcat:          processed,
			SKUMap:             skuMap,
			NegativeOrders:     negative,
			MissingCostOrders:  missingCost,
			InactiveSKUs:       inactive,
			InactiveSKUSummary: []InactiveSKUSummary{summary},
		},
		Totals: totals,
	}
}

// inactiveSKUs lists master SKUs absent from the settlement rows of this run,
// in master order. Their last order date is nil by definition.
func (e *Engine) inactiveSKUs(index MasterIndex, masterOrder []string, rows []NormalizedRow) []InactiveSKU {
	seen := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		sku := strings.TrimSpace(r.SKU)
		if sku != "" {
			seen[sku] = struct{}{}
		}
	}

	out := make([]InactiveSKU, 0)
	for _, sku := range masterOrder {
		if _, active := seen[sku]; active {
			continue
		}
		entry := index[sku]
		out = append(out, InactiveSKU{
			SKU:         sku,
			ProductName: entry.ProductName,
			UnitCost:    entry.UnitCost,
			Reason:      inactiveReason,
		})
	}
	return out
}
