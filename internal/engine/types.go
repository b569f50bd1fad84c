package engine

// MasterEntry is one row of the cost-of-goods master after resolution.
// SKU keys are trimmed but case-sensitive.
type MasterEntry struct {
	SKU         string    `json:"sku"`
	ProductName string    `json:"product_name"`
	UnitCost    float64   `json:"unit_cost"`
	Raw         RawRecord `json:"-"`
}

// MasterIndex maps trimmed SKU to its master entry. Last write wins for
// duplicated SKUs.
type MasterIndex map[string]MasterEntry

// NormalizedRow is the canonical shape of one settlement line. It is derived
// per run and never persisted on its own.
type NormalizedRow struct {
	OrderID         string    `json:"order_id"`
	SKU             string    `json:"sku"`
	Quantity        float64   `json:"quantity"`
	Amount          float64   `json:"amount"`
	PostedDate      string    `json:"posted_date"`
	PostedDateTime  string    `json:"posted_date_time"`
	TransactionType string    `json:"transaction_type"`
	MasterName      string    `json:"product_name_master"`
	MasterUnitCost  float64   `json:"master_unit_cost"`
	Raw             RawRecord `json:"raw"`
}

// OrderSummary is one aggregated record per order id.
//
// TotalQuantity sums the per-SKU maximum quantities, not every line, so
// duplicate settlement lines for the same SKU never double-count.
// FinalAmount is always TotalAmount - OrderCost.
type OrderSummary struct {
	Date                string  `json:"date"`
	OrderID             string  `json:"order_id"`
	Type                string  `json:"type"`
	SKUs                string  `json:"skus"`
	TotalQuantity       float64 `json:"total_quantity"`
	TotalAmount         float64 `json:"total_amount"`
	OrderCost           float64 `json:"order_cost"`
	FinalAmount         float64 `json:"final_amount"`
	MissingCostSKUCount int     `json:"missing_cost_sku_count"`
	ProductNames        string  `json:"product_names"`
	SKUNamePairs        string  `json:"sku_name_pairs"`
}

// SKUOrderDetail is the per-order per-SKU cost attribution line.
// CostMissing is true whenever the unit cost is not a positive number.
type SKUOrderDetail struct {
	OrderID         string  `json:"order_id"`
	SKU             string  `json:"sku"`
	QuantityInOrder float64 `json:"sku_quantity_in_order"`
	UnitCost        float64 `json:"unit_cost"`
	CostMissing     bool    `json:"cost_missing"`
	TotalCost       float64 `json:"total_cost"`
}

// InactiveSKU is a master SKU that never appeared in the analyzed settlement
// file. LastOrderDate is nil by construction: the SKU has no order in this
// file.
type InactiveSKU struct {
	SKU           string  `json:"sku"`
	ProductName   string  `json:"product_name"`
	UnitCost      float64 `json:"unit_cost"`
	LastOrderDate *string `json:"last_order_date"`
	Reason        string  `json:"reason"`
}

// InactiveSKUSummary is the single-row rollup of the inactive SKU table.
type InactiveSKUSummary struct {
	TotalMasterSKUs int     `json:"total_master_skus"`
	InactiveSKUs    int     `json:"skus_with_no_orders_in_file"`
	PercentInactive float64 `json:"percent_inactive"`
}

// Totals is the global rollup of one analysis run.
type Totals struct {
	TotalSales  float64 `json:"total_sales"`
	TotalCogs   float64 `json:"total_cogs"`
	TotalProfit float64 `json:"total_profit"`
	TotalOrders int     `json:"total_orders"`
}

// Sheets holds the named result tables of one analysis run, in the order they
// are exported to the workbook.
type Sheets struct {
	OrderSummary       []OrderSummary       `json:"order_summary"`
	OrderUniqueSKUs    []SKUOrderDetail     `json:"order_unique_skus"`
	RawConcat          []NormalizedRow      `json:"raw_concat"`
	SKUMap             []MasterEntry        `json:"sku_map"`
	NegativeOrders     []OrderSummary       `json:"negative_orders"`
	MissingCostOrders  []SKUOrderDetail     `json:"missing_cost_orders"`
	InactiveSKUs       []InactiveSKU        `json:"inactive_skus"`
	InactiveSKUSummary []InactiveSKUSummary `json:"inactive_sku_summary"`
}

// Result is the full output of Analyze.
type Result struct {
	Sheets Sheets `json:"sheets"`
	Totals Totals `json:"totals"`
}

// MonthlyBucket accumulates P&L figures for one calendar month. The month key
// is "YYYY-MM", or "Unknown" for orders without a parseable date. Ratio
// fields are rounded to two decimals at emission only.
type MonthlyBucket struct {
	Month             string  `json:"month"`
	Sales             float64 `json:"sales"`
	UnitsSold         float64 `json:"units_sold"`
	RefundAmount      float64 `json:"refund_amount"`
	RefundCount       int     `json:"refund_count"`
	COGS              float64 `json:"cogs"`
	GrossProfit       float64 `json:"gross_profit"`
	NetProfit         float64 `json:"net_profit"`
	ASP               float64 `json:"asp"`
	GrossMargin       float64 `json:"gross_margin"`
	NetMargin         float64 `json:"net_margin"`
	RefundPercent     float64 `json:"refund_percent"`
	SellableReturnPct float64 `json:"sellable_return_percent"`
}

// ReportTotals mirrors MonthlyBucket without the month dimension.
type ReportTotals struct {
	Sales        float64 `json:"sales"`
	UnitsSold    float64 `json:"units_sold"`
	RefundAmount float64 `json:"refund_amount"`
	RefundCount  int     `json:"refund_count"`
	COGS         float64 `json:"cogs"`
	NetProfit    float64 `json:"net_profit"`
	GrossProfit  float64 `json:"gross_profit"`
	GrossMargin  float64 `json:"gross_margin"`
}

// SKUStat is one leaderboard row of the monthly report.
type SKUStat struct {
	SKU      string  `json:"sku"`
	Quantity float64 `json:"qty"`
	Sales    float64 `json:"sales"`
	Profit   float64 `json:"profit"`
	Refunds  int     `json:"refunds"`
}

// Report is the monthly P&L view derived from the order summary table.
type Report struct {
	Months        []MonthlyBucket `json:"months"`
	Totals        ReportTotals    `json:"totals"`
	TopByQuantity []SKUStat       `json:"top_by_qty"`
	TopByProfit   []SKUStat       `json:"top_by_profit"`
	RawCount      int             `json:"raw_count"`
}

// SKURank is one row of the top-selling leaderboard, a separate consumer of
// the order summary table with its own attribution rule and cutoff.
type SKURank struct {
	SKU      string  `json:"sku"`
	Quantity float64 `json:"qty"`
}
