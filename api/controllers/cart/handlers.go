package cart

import (
	"context"
	"net/http"

	"github.com/angelmondragon/servicecart/api/middleware"
	"github.com/angelmondragon/servicecart/api/responses"
	"github.com/angelmondragon/servicecart/api/validators"
	cartsvc "github.com/angelmondragon/servicecart/internal/cart"
	pkgerrors "github.com/angelmondragon/servicecart/pkg/errors"
	"github.com/angelmondragon/servicecart/pkg/logger"
)

// Carts resolves the calling visitor's cart. *cart.Registry satisfies it.
type Carts interface {
	Get(ctx context.Context, visitorID string) (*cartsvc.Store, error)
}

// Fetch returns the visitor's cart snapshot.
func Fetch(carts Carts, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := visitorStore(w, r, carts, logg)
		if !ok {
			return
		}
		responses.WriteSuccess(w, store.Snapshot())
	}
}

// AddItem adds a service to the cart, or bumps its quantity when it is already there.
func AddItem(carts Carts, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := visitorStore(w, r, carts, logg)
		if !ok {
			return
		}

		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := store.AddItem(r.Context(), payload.descriptor(), payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, addItemResponse{Item: item, Cart: store.Snapshot()})
	}
}

// UpdateQuantity sets an item's quantity. Quantities below 1 remove the item.
func UpdateQuantity(carts Carts, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := visitorStore(w, r, carts, logg)
		if !ok {
			return
		}

		itemID, err := validators.PathParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		store.UpdateQuantity(r.Context(), itemID, *payload.Quantity)
		responses.WriteSuccess(w, store.Snapshot())
	}
}

// RemoveItem drops an item. Unknown ids leave the cart untouched.
func RemoveItem(carts Carts, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := visitorStore(w, r, carts, logg)
		if !ok {
			return
		}

		itemID, err := validators.PathParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		store.RemoveItem(r.Context(), itemID)
		responses.WriteSuccess(w, store.Snapshot())
	}
}

// Clear empties the cart.
func Clear(carts Carts, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := visitorStore(w, r, carts, logg)
		if !ok {
			return
		}
		store.Clear(r.Context())
		responses.WriteSuccess(w, store.Snapshot())
	}
}

// Contains reports whether a service with the given title and category is in the cart.
func Contains(carts Carts, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := visitorStore(w, r, carts, logg)
		if !ok {
			return
		}

		title, err := validators.RequiredQuery(r, "title", 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		category := validators.SanitizeString(r.URL.Query().Get("category"), 120)

		responses.WriteSuccess(w, containsResponse{
			Title:    title,
			Category: category,
			InCart:   store.Contains(title, category),
		})
	}
}

func visitorStore(w http.ResponseWriter, r *http.Request, carts Carts, logg *logger.Logger) (*cartsvc.Store, bool) {
	if carts == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart registry unavailable"))
		return nil, false
	}
	store, err := carts.Get(r.Context(), middleware.VisitorIDFromContext(r.Context()))
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return nil, false
	}
	return store, true
}
