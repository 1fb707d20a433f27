package cart

import "github.com/shopspring/decimal"

const (
	// SlotKey is the fixed key the cart list is persisted under.
	SlotKey = "serviceCart"
	// EventCartUpdated is emitted after every effective cart mutation.
	EventCartUpdated = "cartUpdated"
)

// ServiceDescriptor is the catalog data a caller supplies when adding a service.
type ServiceDescriptor struct {
	Title             string   `json:"title"`
	Category          string   `json:"category"`
	BasePrice         float64  `json:"basePrice"`
	EstimatedDuration string   `json:"estimatedDuration"`
	SelectedOptions   []string `json:"selectedOptions,omitempty"`
	Customizations    string   `json:"customizations,omitempty"`
	Description       string   `json:"description,omitempty"`
}

// LineItem is one row of the cart. Quantity is always at least 1.
type LineItem struct {
	ID string `json:"id"`
	ServiceDescriptor
	Quantity int `json:"quantity"`
}

// Snapshot is a derived, point-in-time view of the cart.
type Snapshot struct {
	Items     []LineItem `json:"items"`
	Subtotal  float64    `json:"subtotal"`
	Total     float64    `json:"total"`
	ItemCount int        `json:"itemCount"`
}

// State is the hydration state of a Store.
type State int

const (
	StateLoading State = iota
	StateReady
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	}
	return "unknown"
}

type businessKey struct {
	title    string
	category string
}

func keyOf(title, category string) businessKey {
	return businessKey{title: title, category: category}
}

func (d ServiceDescriptor) clone() ServiceDescriptor {
	if d.SelectedOptions != nil {
		d.SelectedOptions = append([]string(nil), d.SelectedOptions...)
	}
	return d
}

func (l LineItem) clone() LineItem {
	l.ServiceDescriptor = l.ServiceDescriptor.clone()
	return l
}

func cloneItems(items []LineItem) []LineItem {
	out := make([]LineItem, len(items))
	for i, item := range items {
		out[i] = item.clone()
	}
	return out
}

func subtotalOf(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		line := decimal.NewFromFloat(item.BasePrice).Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(line)
	}
	return total
}

func itemCountOf(items []LineItem) int {
	count := 0
	for _, item := range items {
		count += item.Quantity
	}
	return count
}
