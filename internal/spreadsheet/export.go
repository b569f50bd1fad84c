package spreadsheet

import (
	"encoding/json"

	"github.com/sellerledger/backend-go/internal/engine"
)

// ResultSheets flattens an analysis result into exportable tables, in the
// order they appear in the analyzed workbook.
func ResultSheets(res *engine.Result) []Sheet {
	return []Sheet{
		orderSummarySheet("order_summary", res.Sheets.OrderSummary),
		skuDetailSheet("order_unique_skus", res.Sheets.OrderUniqueSKUs),
		rawConcatSheet(res.Sheets.RawConcat),
		skuMapSheet(res.Sheets.SKUMap),
		orderSummarySheet("negative_orders", res.Sheets.NegativeOrders),
		skuDetailSheet("missing_cost_orders", res.Sheets.MissingCostOrders),
		inactiveSheet(res.Sheets.InactiveSKUs),
		inactiveSummarySheet(res.Sheets.InactiveSKUSummary),
	}
}

func orderSummarySheet(name string, orders []engine.OrderSummary) Sheet {
	rows := make([][]any, 0, len(orders))
	for _, o := range orders {
		rows = append(rows, []any{
			o.Date, o.OrderID, o.Type, o.SKUs,
			o.TotalQuantity, o.TotalAmount, o.OrderCost, o.FinalAmount,
			o.MissingCostSKUCount, o.ProductNames, o.SKUNamePairs,
		})
	}
	return Sheet{
		Name: name,
		Header: []string{
			"date", "order_id", "type", "skus",
			"total_quantity", "total_amount", "order_cost", "final_amount",
			"missing_cost_sku_count", "product_names", "sku_name_pairs",
		},
		Rows: rows,
	}
}

func skuDetailSheet(name string, details []engine.SKUOrderDetail) Sheet {
	rows := make([][]any, 0, len(details))
	for _, d := range details {
		rows = append(rows, []any{
			d.OrderID, d.SKU, d.QuantityInOrder, d.UnitCost, d.CostMissing, d.TotalCost,
		})
	}
	return Sheet{
		Name:   name,
		Header: []string{"order_id", "sku", "sku_quantity_in_order", "unit_cost", "cost_missing", "total_cost"},
		Rows:   rows,
	}
}

func rawConcatSheet(rows []engine.NormalizedRow) Sheet {
	out := make([][]any, 0, len(rows))
	for _, r := range rows {
		// The source record rides along as JSON for auditability.
		raw, err := json.Marshal(r.Raw)
		if err != nil {
			raw = []byte("{}")
		}
		out = append(out, []any{
			r.OrderID, r.SKU, r.Quantity, r.Amount,
			r.PostedDate, r.PostedDateTime, r.TransactionType,
			r.MasterName, r.MasterUnitCost, string(raw),
		})
	}
	return Sheet{
		Name: "raw_concat",
		Header: []string{
			"order_id", "sku", "quantity", "amount",
			"posted_date", "posted_date_time", "transaction_type",
			"product_name_master", "master_unit_cost", "raw",
		},
		Rows: out,
	}
}

func skuMapSheet(entries []engine.MasterEntry) Sheet {
	rows := make([][]any, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []any{e.SKU, e.ProductName, e.UnitCost})
	}
	return Sheet{
		Name:   "sku_map",
		Header: []string{"sku", "product_name", "unit_cost"},
		Rows:   rows,
	}
}

func inactiveSheet(skus []engine.InactiveSKU) Sheet {
	rows := make([][]any, 0, len(skus))
	for _, s := range skus {
		var last any
		if s.LastOrderDate != nil {
			last = *s.LastOrderDate
		}
		rows = append(rows, []any{s.SKU, s.ProductName, s.UnitCost, last, s.Reason})
	}
	return Sheet{
		Name:   "inactive_skus",
		Header: []string{"sku", "product_name", "unit_cost", "last_order_date", "reason"},
		Rows:   rows,
	}
}

func inactiveSummarySheet(rows []engine.InactiveSKUSummary) Sheet {
	out := make([][]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, []any{r.TotalMasterSKUs, r.InactiveSKUs, r.PercentInactive})
	}
	return Sheet{
		Name:   "inactive_sku_summary",
		Header: []string{"total_master_skus", "skus_with_no_orders_in_file", "percent_inactive"},
		Rows:   out,
	}
}
