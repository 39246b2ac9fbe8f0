package domain

import "github.com/shopspring/decimal"

func init() {
	// Prices and totals travel as JSON numbers; exact text is kept either way.
	decimal.MarshalJSONWithoutQuotes = true
}

// CartItem is a menu item plus a quantity. Name and price are captured when the
// item is first added and are never refreshed afterwards.
type CartItem struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Qty   int             `json:"qty"`
}

// CartState is the in-progress, unsubmitted order of one customer.
type CartState struct {
	MerchantID   *string    `json:"merchantId"`
	MerchantName *string    `json:"merchantName"`
	Items        []CartItem `json:"items"`
}

// MerchantRef identifies the merchant owning an item being added to a cart.
type MerchantRef struct {
	ID   string  `json:"id"`
	Name *string `json:"name,omitempty"`
}

// NewCartItem is the payload of an add; quantity is implicitly one.
type NewCartItem struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// EmptyCart returns a cart with no merchant and no items.
func EmptyCart() CartState {
	return CartState{Items: []CartItem{}}
}

// Clone returns a deep copy that shares no memory with s.
func (s CartState) Clone() CartState {
	out := CartState{
		MerchantID:   cloneString(s.MerchantID),
		MerchantName: cloneString(s.MerchantName),
		Items:        make([]CartItem, len(s.Items)),
	}
	copy(out.Items, s.Items)
	return out
}

// Total is the sum of price times quantity over all items.
func (s CartState) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range s.Items {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Qty))))
	}
	return total
}

// TotalQty is the sum of quantities over all items.
func (s CartState) TotalQty() int {
	n := 0
	for _, it := range s.Items {
		n += it.Qty
	}
	return n
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
