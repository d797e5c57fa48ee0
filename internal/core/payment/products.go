package payment

import "sort"

// Product is a purchasable credit package.
type Product struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Price   int    `json:"price"`
	Credits int    `json:"credits"`
}

var catalog = map[string]Product{
	"prod_basic_10_credits":    {ID: "prod_basic_10_credits", Name: "Базовий", Price: 1, Credits: 10},
	"prod_standard_20_credits": {ID: "prod_standard_20_credits", Name: "Стандарт", Price: 1400, Credits: 20},
	"prod_prof_60_credits":     {ID: "prod_prof_60_credits", Name: "Професійний", Price: 3200, Credits: 60},
}

// FindProduct looks up a catalog entry by id.
func FindProduct(id string) (Product, bool) {
	p, ok := catalog[id]
	return p, ok
}

// Products returns the catalog ordered by price.
func Products() []Product {
	out := make([]Product, 0, len(catalog))
	for _, p := range catalog {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out
}
