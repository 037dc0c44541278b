package domain

// Product is the unit of sale. Stock lives in two places: the counter store,
// authoritative for reservation decisions, and the durable row, authoritative
// for accounting.
type Product struct {
	ID    string
	Stock int
}
