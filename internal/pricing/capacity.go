package pricing

// BatteryCatalogue resolves a battery product id to its rated capacity in kWh.
type BatteryCatalogue interface {
	ResolveBatteryCapacity(productID string) (float64, bool)
}

// CatalogueFunc adapts a function to BatteryCatalogue.
type CatalogueFunc func(productID string) (float64, bool)

func (f CatalogueFunc) ResolveBatteryCapacity(productID string) (float64, bool) {
	return f(productID)
}

// CapacityTable is an in-memory catalogue keyed by product id.
type CapacityTable map[string]float64

func (t CapacityTable) ResolveBatteryCapacity(productID string) (float64, bool) {
	v, ok := t[productID]
	return v, ok
}

// BatteryCapacity sums capacity × quantity over battery lines. Lines whose
// product cannot be resolved (removed from the catalogue, no product id, or a
// non-positive rating) contribute nothing.
func BatteryCapacity(items []LineItem, catalogue BatteryCatalogue) float64 {
	if catalogue == nil {
		return 0
	}
	total := 0.0
	for _, item := range items {
		if item.Kind != KindBattery || item.ProductID == "" {
			continue
		}
		capacity, ok := catalogue.ResolveBatteryCapacity(item.ProductID)
		if !ok || capacity <= 0 {
			continue
		}
		total += capacity * float64(item.Quantity)
	}
	return total
}
