package cart

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cutin/internal/domain"
)

// ErrMalformedSnapshot is returned by Decode for snapshots that violate the cart invariants.
var ErrMalformedSnapshot = errors.New("malformed cart snapshot")

// Encode serialises a cart state for storage.
func Encode(state domain.CartState) ([]byte, error) {
	if state.Items == nil {
		state.Items = []domain.CartItem{}
	}
	return json.Marshal(state)
}

// Decode parses a stored snapshot. Quantities below one are raised to one; a
// snapshot whose items have no owning merchant, repeat an id or carry a negative
// price is rejected.
func Decode(raw []byte) (domain.CartState, error) {
	var state domain.CartState
	if err := json.Unmarshal(raw, &state); err != nil {
		return domain.CartState{}, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	if state.MerchantID != nil && strings.TrimSpace(*state.MerchantID) == "" {
		state.MerchantID = nil
	}
	if state.Items == nil {
		state.Items = []domain.CartItem{}
	}
	if len(state.Items) > 0 && state.MerchantID == nil {
		return domain.CartState{}, fmt.Errorf("%w: items without merchant", ErrMalformedSnapshot)
	}
	seen := make(map[string]struct{}, len(state.Items))
	for i := range state.Items {
		it := &state.Items[i]
		if it.ID == "" {
			return domain.CartState{}, fmt.Errorf("%w: item without id", ErrMalformedSnapshot)
		}
		if _, dup := seen[it.ID]; dup {
			return domain.CartState{}, fmt.Errorf("%w: duplicate item %q", ErrMalformedSnapshot, it.ID)
		}
		seen[it.ID] = struct{}{}
		if it.Price.IsNegative() {
			return domain.CartState{}, fmt.Errorf("%w: negative price for %q", ErrMalformedSnapshot, it.ID)
		}
		if it.Qty < 1 {
			it.Qty = 1
		}
	}
	return state, nil
}
