package cart

// Money represents a monetary value stored in minor units.
type Money = int64

// Line is a single cart position at evaluation time. Lines are built fresh
// per evaluation call and never persisted by this service.
type Line struct {
	ItemID     string `json:"itemId"`
	CategoryID string `json:"categoryId"`
	UnitPrice  Money  `json:"unitPrice"`
	Qty        int    `json:"qty"`
}

// Snapshot is an immutable view of a cart. Totals are always recomputed from
// the lines so they cannot drift from the line data.
type Snapshot struct {
	Lines []Line
}

// Subtotal sums unit price times quantity over all lines.
func (s Snapshot) Subtotal() Money {
	var total Money
	for _, l := range s.Lines {
		if l.Qty <= 0 || l.UnitPrice <= 0 {
			continue
		}
		total += Money(l.Qty) * l.UnitPrice
	}
	return total
}

// ItemCount sums the quantities over all lines.
func (s Snapshot) ItemCount() int {
	var count int
	for _, l := range s.Lines {
		if l.Qty <= 0 {
			continue
		}
		count += l.Qty
	}
	return count
}

// CategorySubtotal sums unit price times quantity over the lines belonging to
// the given category.
func (s Snapshot) CategorySubtotal(categoryID string) Money {
	if categoryID == "" {
		return 0
	}
	var total Money
	for _, l := range s.Lines {
		if l.Qty <= 0 || l.UnitPrice <= 0 {
			continue
		}
		if l.CategoryID == categoryID {
			total += Money(l.Qty) * l.UnitPrice
		}
	}
	return total
}

// HasCategory reports whether any line belongs to the given category.
func (s Snapshot) HasCategory(categoryID string) bool {
	if categoryID == "" {
		return false
	}
	for _, l := range s.Lines {
		if l.CategoryID == categoryID {
			return true
		}
	}
	return false
}
