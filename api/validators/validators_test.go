package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/angelmondragon/servicecart/pkg/errors"
)

type itemPayload struct {
	Title    string `json:"title" validate:"required"`
	Quantity int    `json:"quantity" validate:"gte=0,max=99"`
}

func TestDecodeJSONBodyValidates(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"quantity":120}`))
	var payload itemPayload
	err := DecodeJSONBody(req, &payload)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("unexpected details %T", typed.Details())
	}
	if details["title"] != "is required" || details["quantity"] != "must be at most 99" {
		t.Fatalf("unexpected details %v", details)
	}
}

func TestDecodeJSONRejectsUnknownFieldsAndEmptyBody(t *testing.T) {
	var payload itemPayload
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"SEO","price":1}`))
	if err := DecodeJSON(req, &payload); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected unknown field to fail, got %v", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	err := DecodeJSON(req, &payload)
	if typed := pkgerrors.As(err); typed == nil || typed.Message() != "request body required" {
		t.Fatalf("expected body required error, got %v", err)
	}
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=10&bad=x&big=500", nil)
	if v, err := ParseQueryInt(req, "limit", 25, 1, 100); err != nil || v != 10 {
		t.Fatalf("expected 10, got %d %v", v, err)
	}
	if v, err := ParseQueryInt(req, "missing", 25, 1, 100); err != nil || v != 25 {
		t.Fatalf("expected default, got %d %v", v, err)
	}
	if _, err := ParseQueryInt(req, "bad", 25, 1, 100); err == nil {
		t.Fatal("expected numeric error")
	}
	if _, err := ParseQueryInt(req, "big", 25, 1, 100); err == nil {
		t.Fatal("expected range error")
	}
}

func TestRequiredQueryAndPathParam(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?title=%20Logo%20Design%20&category=", nil)
	if v, err := RequiredQuery(req, "title", 200); err != nil || v != "Logo Design" {
		t.Fatalf("unexpected title %q %v", v, err)
	}
	if _, err := RequiredQuery(req, "category", 200); err == nil {
		t.Fatal("expected blank category to fail")
	}

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("itemId", " item-1 ")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	if v, err := PathParam(req, "itemId"); err != nil || v != "item-1" {
		t.Fatalf("unexpected path param %q %v", v, err)
	}
	if _, err := PathParam(req, "other"); err == nil {
		t.Fatal("expected missing path param to fail")
	}
}

func TestSanitizeStringKeepsRunesWhole(t *testing.T) {
	if got := SanitizeString("  café  ", 4); got != "caf" {
		t.Fatalf("expected rune-safe cut, got %q", got)
	}
	if got := SanitizeString(" hello ", 0); got != "hello" {
		t.Fatalf("unexpected %q", got)
	}
}
