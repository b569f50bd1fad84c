package engine

// BuildMasterIndex converts raw master records into an index keyed by trimmed
// SKU, together with the SKU discovery order so derived tables stay
// deterministic. Records without a resolvable SKU are skipped; unparsable
// unit costs coerce to 0. Duplicate SKUs overwrite the earlier entry but keep
// their first position in the order.
func (e *Engine) BuildMasterIndex(masterRows []RawRecord) (MasterIndex, []string) {
	p := e.profile

	index := make(MasterIndex, len(masterRows))
	order := make([]string, 0, len(masterRows))

	for _, rec := range masterRows {
		skuVal, _ := Resolve(rec, p.MasterSKUFields...)
		sku := Str(skuVal)
		if sku == "" {
			continue
		}

		nameVal, _ := Resolve(rec, p.MasterNameFields...)
		costVal, _ := Resolve(rec, p.MasterCostFields...)

		if _, seen := index[sku]; !seen {
			order = append(order, sku)
		}
		index[sku] = MasterEntry{
			SKU:         sku,
			ProductName: Str(nameVal),
			UnitCost:    Num(costVal),
			Raw:         rec,
		}
	}

	return index, order
}
