package models

// Provenance records where a dataset came from.
type Provenance string

const (
	// ProvenanceLive means the primary upstream answered.
	ProvenanceLive Provenance = "live"
	// ProvenanceSecondary means the primary failed and the CSV feed answered.
	ProvenanceSecondary Provenance = "secondary"
	// ProvenanceFallback means both upstreams failed and built-in rows were used.
	ProvenanceFallback Provenance = "fallback"
)

// Degraded reports whether the data did not come from the primary source.
func (p Provenance) Degraded() bool {
	return p != ProvenanceLive
}

// Dataset is a fetched list tagged with its provenance.
type Dataset[T any] struct {
	Items      []T        `json:"items"`
	Provenance Provenance `json:"provenance"`
}

// Len returns the number of items.
func (d Dataset[T]) Len() int {
	return len(d.Items)
}

// Page returns the 1-based page of size limit. Out of range pages are empty.
func (d Dataset[T]) Page(page, limit int) []T {
	return Paginate(d.Items, page, limit)
}

// Paginate slices items to the 1-based page of size limit.
func Paginate[T any](items []T, page, limit int) []T {
	start, ok := PageOffset(page, limit, len(items))
	if !ok {
		return []T{}
	}
	end := len(items)
	if limit < end-start {
		end = start + limit
	}
	return items[start:end]
}

// PageOffset returns the index of the first item on a 1-based page. ok is
// false when the page is invalid or starts past n; the product is never
// formed in that case so huge page numbers cannot overflow.
func PageOffset(page, limit, n int) (offset int, ok bool) {
	if page < 1 || limit < 1 || n < 1 {
		return 0, false
	}
	if page-1 > (n-1)/limit {
		return 0, false
	}
	return (page - 1) * limit, true
}
