package validators

import (
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/luminoshop/cartsync/pkg/errors"
)

type addItemBody struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

func TestDecodeJSONBody(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("POST", "/cart/items", strings.NewReader(`{"product_id":"prod-1","quantity":2}`))
	var body addItemBody
	if err := DecodeJSONBody(r, &body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body.ProductID != "prod-1" || body.Quantity != 2 {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("POST", "/cart/items", strings.NewReader(`{"product_id":"prod-1","quantity":1,"qty":3}`))
	var body addItemBody
	err := DecodeJSONBody(r, &body)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeJSONBodyReportsFieldMessages(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("POST", "/cart/items", strings.NewReader(`{"quantity":0}`))
	var body addItemBody
	err := DecodeJSONBody(r, &body)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("expected field details, got %T", typed.Details())
	}
	if details["product_id"] != "is required" {
		t.Fatalf("unexpected message for product_id: %q", details["product_id"])
	}
}
