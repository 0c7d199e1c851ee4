package scenario

// Shape is the order flow a scenario generates.
type Shape int32

const (
	// ShapeSimple places a pair of non-crossing orders.
	ShapeSimple Shape = iota
	// ShapeMatch places one crossing buy/sell pair.
	ShapeMatch
	// ShapeCancel places one order and withdraws it.
	ShapeCancel
	// ShapeUnmatched streams same-side orders that never cross.
	ShapeUnmatched
	// ShapeMatching streams crossing buy/sell pairs.
	ShapeMatching
	// ShapeDual streams crossing pairs round-robin over two symbols.
	ShapeDual
)

// Spec is one pre-registered scenario.
type Spec struct {
	ID    int
	Name  string
	Shape Shape
	// Pairs is the target count: orders for unmatched runs, trade
	// pairs for matching and dual runs.
	Pairs int
}

var catalog = []Spec{
	{ID: 1, Name: "simple orders", Shape: ShapeSimple},
	{ID: 2, Name: "matching trade", Shape: ShapeMatch},
	{ID: 3, Name: "cancel", Shape: ShapeCancel},

	{ID: 10, Name: "unmatched stress 1K", Shape: ShapeUnmatched, Pairs: 1_000},
	{ID: 11, Name: "unmatched stress 10K", Shape: ShapeUnmatched, Pairs: 10_000},
	{ID: 12, Name: "unmatched stress 100K", Shape: ShapeUnmatched, Pairs: 100_000},

	{ID: 20, Name: "matching stress 1K", Shape: ShapeMatching, Pairs: 1_000},
	{ID: 21, Name: "matching stress 10K", Shape: ShapeMatching, Pairs: 10_000},
	{ID: 22, Name: "matching stress 100K", Shape: ShapeMatching, Pairs: 100_000},
	{ID: 23, Name: "matching stress 250K", Shape: ShapeMatching, Pairs: 250_000},
	{ID: 24, Name: "matching stress 500K", Shape: ShapeMatching, Pairs: 500_000},
	{ID: 25, Name: "matching stress 250M", Shape: ShapeMatching, Pairs: 250_000_000},

	{ID: 30, Name: "dual processor 500K", Shape: ShapeDual, Pairs: 500_000},
	{ID: 31, Name: "dual processor 1M", Shape: ShapeDual, Pairs: 1_000_000},
	{ID: 32, Name: "dual processor 100M", Shape: ShapeDual, Pairs: 100_000_000},
}

// Lookup returns the scenario registered under id.
func Lookup(id int) (Spec, bool) {
	for _, s := range catalog {
		if s.ID == id {
			return s, true
		}
	}
	return Spec{}, false
}

// Catalog lists every registered scenario in id order.
func Catalog() []Spec {
	out := make([]Spec, len(catalog))
	copy(out, catalog)
	return out
}
