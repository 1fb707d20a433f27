package cart

import cartsvc "github.com/angelmondragon/servicecart/internal/cart"

type addItemResponse struct {
	Item cartsvc.LineItem `json:"item"`
	Cart cartsvc.Snapshot `json:"cart"`
}

type containsResponse struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	InCart   bool   `json:"inCart"`
}
