package cart

import cartsvc "github.com/angelmondragon/servicecart/internal/cart"

type addItemRequest struct {
	Title             string   `json:"title" validate:"required,max=200"`
	Category          string   `json:"category" validate:"max=120"`
	BasePrice         float64  `json:"basePrice"`
	EstimatedDuration string   `json:"estimatedDuration" validate:"max=120"`
	SelectedOptions   []string `json:"selectedOptions" validate:"max=50,dive,max=200"`
	Customizations    string   `json:"customizations" validate:"max=2000"`
	Description       string   `json:"description" validate:"max=2000"`
	// Quantity defaults to 1 when omitted or zero.
	Quantity int `json:"quantity"`
}

func (p addItemRequest) descriptor() cartsvc.ServiceDescriptor {
	return cartsvc.ServiceDescriptor{
		Title:             p.Title,
		Category:          p.Category,
		BasePrice:         p.BasePrice,
		EstimatedDuration: p.EstimatedDuration,
		SelectedOptions:   p.SelectedOptions,
		Customizations:    p.Customizations,
		Description:       p.Description,
	}
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}
