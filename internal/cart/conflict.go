package cart

import "cutin/internal/domain"

// Outcome describes what AddItem did.
type Outcome string

const (
	// OutcomeAdded means a new line item was appended.
	OutcomeAdded Outcome = "added"
	// OutcomeIncremented means an existing line item gained one unit.
	OutcomeIncremented Outcome = "incremented"
	// OutcomeConflict means the cart belongs to another merchant and a decision is pending.
	OutcomeConflict Outcome = "conflict"
	// OutcomeRejected means the merchant or item payload was unusable; nothing changed.
	OutcomeRejected Outcome = "rejected"
)

// Decision resolves a pending merchant conflict.
type Decision string

const (
	DecisionCancel      Decision = "cancel"
	DecisionClearAndAdd Decision = "clear_and_add"
)

// Valid reports whether d is a known decision.
func (d Decision) Valid() bool {
	return d == DecisionCancel || d == DecisionClearAndAdd
}

// Conflict is an add that was held back because the cart already belongs to a different merchant.
type Conflict struct {
	CurrentMerchantID   string             `json:"currentMerchantId"`
	CurrentMerchantName *string            `json:"currentMerchantName"`
	Merchant            domain.MerchantRef `json:"merchant"`
	Item                domain.NewCartItem `json:"item"`
}

// AddResult is returned by AddItem. State is the cart after the call.
type AddResult struct {
	Outcome  Outcome          `json:"outcome"`
	Conflict *Conflict        `json:"conflict,omitempty"`
	State    domain.CartState `json:"cart"`
}
