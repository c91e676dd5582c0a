package api

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type product struct {
	ID    int     `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// The demo catalog the merchant terminal sells from. Prices are in SEK.
var products = []product{
	{ID: 1, Name: "Wireless Headphones", Price: 199},
	{ID: 2, Name: "Smart Watch", Price: 299},
	{ID: 3, Name: "USB-C Charger", Price: 99},
}

// RegisterCatalogRoutes exposes the static product list the terminal UI
// renders. Carts are assembled client-side; only the total reaches the
// order endpoints.
func RegisterCatalogRoutes(mux *http.ServeMux) {
	mux.Handle("/api/products", otelhttp.NewHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"products": products,
			"currency": "SEK",
		})
	}), "products-list"))
}
