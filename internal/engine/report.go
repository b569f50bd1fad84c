package engine

import (
	"math"
	"sort"
	"strings"
)

const (
	// pnlTopN is the leaderboard cutoff of the monthly P&L view.
	pnlTopN = 20

	// unknownSKUKey collects order summaries that list no SKU at all.
	unknownSKUKey = "__UNKNOWN__"
)

// monthKey buckets an order date into "YYYY-MM". Empty or unparseable dates
// land in the addressable "Unknown" bucket rather than being dropped.
func monthKey(date string) string {
	t, ok := ParseTimestamp(date)
	if !ok {
		return "Unknown"
	}
	return t.UTC().Format("2006-01")
}

type skuAccumulator struct {
	qty     float64
	sales   float64
	cogs    float64
	profit  float64
	refunds int
}

// MonthlyReport rolls the order summary table up into monthly P&L buckets,
// global totals and SKU leaderboards.
//
// Refund detection here is deliberately looser than the order aggregator's
// classification: an order counts as a refund contribution when its type
// contains "refund" (case-insensitive) OR its final amount is negative. The
// two rules diverge in the source system and are both kept as authored.
//
// When an order lists several SKUs, quantity, sales, cost and profit are
// split equally across them, not weighted by per-SKU quantity. A known
// simplification, preserved.
func MonthlyReport(orders []OrderSummary) *Report {
	report := &Report{
		Months:        []MonthlyBucket{},
		TopByQuantity: []SKUStat{},
		TopByProfit:   []SKUStat{},
		RawCount:      len(orders),
	}
	if len(orders) == 0 {
		return report
	}

	bucketIdx := make(map[string]int)
	buckets := make([]MonthlyBucket, 0)

	var global struct {
		sales, unitsSold, refundAmount, cogs, netProfit float64
		refundCount                                     int
	}

	skuStats := make(map[string]*skuAccumulator)
	skuOrder := make([]string, 0)

	stat := func(sku string) *skuAccumulator {
		s, ok := skuStats[sku]
		if !ok {
			s = &skuAccumulator{}
			skuStats[sku] = s
			skuOrder = append(skuOrder, sku)
		}
		return s
	}

	for _, o := range orders {
		key := monthKey(o.Date)
		idx, ok := bucketIdx[key]
		if !ok {
			idx = len(buckets)
			bucketIdx[key] = idx
			buckets = append(buckets, MonthlyBucket{Month: key})
		}
		b := &buckets[idx]

		sales := Num(o.TotalAmount)
		qty := Num(o.TotalQuantity)
		cogs := Num(o.OrderCost)
		final := Num(o.FinalAmount)

		b.Sales += sales
		b.UnitsSold += qty
		b.COGS += cogs
		b.NetProfit += final

		global.sales += sales
		global.unitsSold += qty
		global.cogs += cogs
		global.netProfit += final

		isRefund := strings.Contains(strings.ToLower(o.Type), "refund") || final < 0
		if isRefund {
			refundAmt := 0.0
			if final < 0 {
				refundAmt = -final
			}
			b.RefundAmount += refundAmt
			b.RefundCount++
			global.refundAmount += refundAmt
			global.refundCount++
		}

		skus := splitSKUList(o.SKUs)
		if len(skus) == 0 {
			s := stat(unknownSKUKey)
			s.qty += qty
			s.sales += sales
			s.cogs += cogs
			s.profit += final
			if isRefund {
				s.refunds++
			}
			continue
		}

		n := float64(len(skus))
		perQty := 0.0
		if qty > 0 {
			perQty = qty / n
		}
		for _, sku := range skus {
			s := stat(sku)
			s.qty += perQty
			s.sales += sales / n
			s.cogs += cogs / n
			s.profit += final / n
			if isRefund {
				s.refunds++
			}
		}
	}

	for i := range buckets {
		b := &buckets[i]
		if b.UnitsSold != 0 {
			b.ASP = b.Sales / b.UnitsSold
			b.SellableReturnPct = float64(b.RefundCount) / b.UnitsSold * 100
		}
		b.GrossProfit = b.Sales - b.COGS
		if b.Sales != 0 {
			b.GrossMargin = b.GrossProfit / b.Sales * 100
			b.NetMargin = b.NetProfit / b.Sales * 100
			b.RefundPercent = b.RefundAmount / b.Sales * 100
		}
		b.Sales = round2(b.Sales)
		b.COGS = round2(b.COGS)
		b.GrossProfit = round2(b.GrossProfit)
		b.NetProfit = round2(b.NetProfit)
		b.ASP = round2(b.ASP)
		b.GrossMargin = round2(b.GrossMargin)
		b.NetMargin = round2(b.NetMargin)
		b.RefundAmount = round2(b.RefundAmount)
		b.RefundPercent = round2(b.RefundPercent)
		b.SellableReturnPct = round2(b.SellableReturnPct)
	}

	// Lexicographically descending month keys, which is reverse chronological
	// for YYYY-MM.
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Month > buckets[j].Month
	})
	report.Months = buckets

	report.Totals = ReportTotals{
		Sales:        round2(global.sales),
		UnitsSold:    math.Round(global.unitsSold),
		RefundAmount: round2(global.refundAmount),
		RefundCount:  global.refundCount,
		COGS:         round2(global.cogs),
		NetProfit:    round2(global.netProfit),
		GrossProfit:  round2(global.sales - global.cogs),
	}
	if global.sales != 0 {
		report.Totals.GrossMargin = round2((global.sales - global.cogs) / global.sales * 100)
	}

	stats := make([]SKUStat, 0, len(skuOrder))
	for _, sku := range skuOrder {
		s := skuStats[sku]
		stats = append(stats, SKUStat{
			SKU:      sku,
			Quantity: round2(s.qty),
			Sales:    round2(s.sales),
			Profit:   round2(s.profit),
			Refunds:  s.refunds,
		})
	}

	report.TopByQuantity = topStats(stats, pnlTopN, func(a, b SKUStat) bool {
		if a.Quantity != b.Quantity {
			return a.Quantity > b.Quantity
		}
		return a.SKU < b.SKU
	})
	report.TopByProfit = topStats(stats, pnlTopN, func(a, b SKUStat) bool {
		if a.Profit != b.Profit {
			return a.Profit > b.Profit
		}
		return a.SKU < b.SKU
	})

	return report
}

// TopSellingSKUs ranks SKUs by summed order quantity. Unlike the monthly
// report's equal split, this consumer attributes the full order quantity to
// every SKU listed on the order.
func TopSellingSKUs(orders []OrderSummary, limit int) []SKURank {
	totals := make(map[string]float64)
	order := make([]string, 0)

	for _, o := range orders {
		qty := Num(o.TotalQuantity)
		for _, sku := range splitSKUList(o.SKUs) {
			if _, ok := totals[sku]; !ok {
				order = append(order, sku)
			}
			totals[sku] += qty
		}
	}

	ranks := make([]SKURank, 0, len(order))
	for _, sku := range order {
		ranks = append(ranks, SKURank{SKU: sku, Quantity: totals[sku]})
	}
	sort.Slice(ranks, func(i, j int) bool {
		if ranks[i].Quantity != ranks[j].Quantity {
			return ranks[i].Quantity > ranks[j].Quantity
		}
		return ranks[i].SKU < ranks[j].SKU
	})
	if limit > 0 && len(ranks) > limit {
		ranks = ranks[:limit]
	}
	return ranks
}

func topStats(stats []SKUStat, limit int, less func(a, b SKUStat) bool) []SKUStat {
	out := make([]SKUStat, len(stats))
	copy(out, stats)
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func splitSKUList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
