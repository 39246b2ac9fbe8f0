package httpserver

import (
	"net/http"
	"testing"

	"cutin/internal/cart"
)

const (
	burgerFromJoe = `{"merchant":{"id":"merch-1","name":"Joe's Diner"},"item":{"id":"burger","name":"Burger","price":"55.50"}}`
	pieFromSam    = `{"merchant":{"id":"merch-2","name":"Sam's Pies"},"item":{"id":"pie","name":"Pie","price":30}}`
)

func TestCart_AddAndIncrement(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/cart/items", "alice-token", burgerFromJoe)
	expectStatus(t, rec, http.StatusOK)
	var first cartResponse
	decodeBody(t, rec, &first)
	if first.Outcome != cart.OutcomeAdded || first.TotalQty != 1 {
		t.Fatalf("unexpected first add %+v", first)
	}

	rec = ts.do(http.MethodPost, "/cart/items", "alice-token", burgerFromJoe)
	expectStatus(t, rec, http.StatusOK)
	var second cartResponse
	decodeBody(t, rec, &second)
	if second.Outcome != cart.OutcomeIncremented || second.TotalQty != 2 || second.Total.String() != "111" {
		t.Fatalf("unexpected second add %+v", second)
	}
	if second.Cart.MerchantName == nil || *second.Cart.MerchantName != "Joe's Diner" {
		t.Fatalf("expected merchant name on cart, got %+v", second.Cart)
	}
}

func TestCart_CartsAreScopedToTheCaller(t *testing.T) {
	bob := *alice
	bob.ID = "cust-2"
	ts := newTestServer(t)
	ts.auth.tokens["bob-token"] = &bob

	expectStatus(t, ts.do(http.MethodPost, "/cart/items", "alice-token", burgerFromJoe), http.StatusOK)

	var body cartResponse
	decodeBody(t, ts.do(http.MethodGet, "/cart", "bob-token", nil), &body)
	if len(body.Cart.Items) != 0 {
		t.Fatalf("expected bob's cart to be empty, got %+v", body.Cart)
	}
}

func TestCart_ConflictAndClearAndAdd(t *testing.T) {
	ts := newTestServer(t)
	expectStatus(t, ts.do(http.MethodPost, "/cart/items", "alice-token", burgerFromJoe), http.StatusOK)

	rec := ts.do(http.MethodPost, "/cart/items", "alice-token", pieFromSam)
	expectStatus(t, rec, http.StatusConflict)
	var conflict cartResponse
	decodeBody(t, rec, &conflict)
	if conflict.Outcome != cart.OutcomeConflict || conflict.Conflict == nil {
		t.Fatalf("expected conflict details, got %+v", conflict)
	}
	if conflict.Conflict.CurrentMerchantID != "merch-1" || conflict.Conflict.Item.ID != "pie" {
		t.Fatalf("unexpected conflict %+v", conflict.Conflict)
	}

	var pending cartResponse
	decodeBody(t, ts.do(http.MethodGet, "/cart", "alice-token", nil), &pending)
	if pending.Conflict == nil || pending.TotalQty != 1 {
		t.Fatalf("expected pending conflict and untouched cart, got %+v", pending)
	}

	rec = ts.do(http.MethodPost, "/cart/conflict", "alice-token", `{"decision":"clear_and_add"}`)
	expectStatus(t, rec, http.StatusOK)
	var resolved cartResponse
	decodeBody(t, rec, &resolved)
	if resolved.Cart.MerchantID == nil || *resolved.Cart.MerchantID != "merch-2" {
		t.Fatalf("expected cart to switch merchant, got %+v", resolved.Cart)
	}
	if len(resolved.Cart.Items) != 1 || resolved.Cart.Items[0].ID != "pie" {
		t.Fatalf("expected only the pie, got %+v", resolved.Cart.Items)
	}

	expectStatus(t, ts.do(http.MethodPost, "/cart/conflict", "alice-token", `{"decision":"cancel"}`), http.StatusConflict)
}

func TestCart_CancelConflictKeepsCart(t *testing.T) {
	ts := newTestServer(t)
	ts.do(http.MethodPost, "/cart/items", "alice-token", burgerFromJoe)
	ts.do(http.MethodPost, "/cart/items", "alice-token", pieFromSam)

	rec := ts.do(http.MethodPost, "/cart/conflict", "alice-token", `{"decision":"cancel"}`)
	expectStatus(t, rec, http.StatusOK)
	var body cartResponse
	decodeBody(t, rec, &body)
	if *body.Cart.MerchantID != "merch-1" || body.TotalQty != 1 {
		t.Fatalf("expected joe's cart unchanged, got %+v", body)
	}
}

func TestCart_UnknownDecision(t *testing.T) {
	ts := newTestServer(t)
	expectStatus(t, ts.do(http.MethodPost, "/cart/conflict", "alice-token", `{"decision":"merge"}`), http.StatusBadRequest)
}

func TestCart_RejectedAdd(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodPost, "/cart/items", "alice-token", `{"merchant":{"id":""},"item":{"id":"burger","price":1}}`)
	expectStatus(t, rec, http.StatusBadRequest)
	var body cartResponse
	decodeBody(t, rec, &body)
	if body.Outcome != cart.OutcomeRejected {
		t.Fatalf("expected rejected outcome, got %+v", body)
	}
}

func TestCart_QuantityRemoveAndClear(t *testing.T) {
	ts := newTestServer(t)
	ts.do(http.MethodPost, "/cart/items", "alice-token", burgerFromJoe)
	ts.do(http.MethodPost, "/cart/items", "alice-token", `{"merchant":{"id":"merch-1"},"item":{"id":"chips","name":"Chips","price":"20"}}`)

	var body cartResponse
	rec := ts.do(http.MethodPatch, "/cart/items/burger", "alice-token", `{"qty":3}`)
	expectStatus(t, rec, http.StatusOK)
	decodeBody(t, rec, &body)
	if body.TotalQty != 4 {
		t.Fatalf("expected 4 units, got %d", body.TotalQty)
	}

	rec = ts.do(http.MethodPatch, "/cart/items/burger", "alice-token", `{"qty":0}`)
	decodeBody(t, rec, &body)
	if body.TotalQty != 2 {
		t.Fatalf("expected quantity clamped to one, got %d units", body.TotalQty)
	}
	expectStatus(t, ts.do(http.MethodPatch, "/cart/items/burger", "alice-token", `{}`), http.StatusBadRequest)

	rec = ts.do(http.MethodDelete, "/cart/items/chips", "alice-token", nil)
	decodeBody(t, rec, &body)
	if len(body.Cart.Items) != 1 || body.Cart.MerchantID == nil {
		t.Fatalf("expected burger left with merchant kept, got %+v", body.Cart)
	}

	rec = ts.do(http.MethodDelete, "/cart", "alice-token", nil)
	expectStatus(t, rec, http.StatusOK)
	decodeBody(t, rec, &body)
	if len(body.Cart.Items) != 0 || body.Cart.MerchantID != nil {
		t.Fatalf("expected empty cart, got %+v", body.Cart)
	}
}
