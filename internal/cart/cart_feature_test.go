package cart_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"cutin/internal/cart"
	"cutin/internal/domain"

	"github.com/cucumber/godog"
	"github.com/shopspring/decimal"
)

type cartTestContext struct {
	storage *cart.MemoryStorage
	store   *cart.Store
	last    cart.AddResult
}

func (c *cartTestContext) reset() {
	c.storage = cart.NewMemoryStorage()
	c.store = nil
	c.last = cart.AddResult{}
}

func (c *cartTestContext) open() error {
	c.store = cart.Open(context.Background(), c.storage, cart.WithDebounce(time.Hour))
	select {
	case <-c.store.Ready():
		return nil
	case <-time.After(2 * time.Second):
		return errors.New("cart restore timed out")
	}
}

func (c *cartTestContext) anEmptyCart() error {
	return c.open()
}

func (c *cartTestContext) iAdd(itemID, itemName string, price int, merchantID, merchantName string) error {
	name := merchantName
	c.last = c.store.AddItem(
		domain.MerchantRef{ID: merchantID, Name: &name},
		domain.NewCartItem{ID: itemID, Name: itemName, Price: decimal.NewFromInt(int64(price))},
	)
	return nil
}

func (c *cartTestContext) theCartHolds(itemID, itemName string, price int, merchantID, merchantName string) error {
	if err := c.iAdd(itemID, itemName, price, merchantID, merchantName); err != nil {
		return err
	}
	if c.last.Outcome != cart.OutcomeAdded && c.last.Outcome != cart.OutcomeIncremented {
		return fmt.Errorf("setup add was %s", c.last.Outcome)
	}
	return nil
}

func (c *cartTestContext) theAddOutcomeIs(outcome string) error {
	if string(c.last.Outcome) != outcome {
		return fmt.Errorf("expected outcome %q, got %q", outcome, c.last.Outcome)
	}
	return nil
}

func (c *cartTestContext) iDecideTo(decision string) error {
	if _, ok := c.store.ResolveConflict(cart.Decision(decision)); !ok {
		return errors.New("no conflict was pending")
	}
	return nil
}

func (c *cartTestContext) iSetTheQuantity(itemID string, qty int) error {
	c.store.ChangeQty(itemID, qty)
	return nil
}

func (c *cartTestContext) iRemove(itemID string) error {
	c.store.RemoveItem(itemID)
	return nil
}

func (c *cartTestContext) iClearTheCart() error {
	c.store.Clear()
	return nil
}

func (c *cartTestContext) theCartIsReopened() error {
	if err := c.store.Close(context.Background()); err != nil {
		return err
	}
	return c.open()
}

func (c *cartTestContext) theCartBelongsTo(merchantID, merchantName string) error {
	st := c.store.Snapshot()
	if st.MerchantID == nil || *st.MerchantID != merchantID {
		return fmt.Errorf("expected merchant %q, got %v", merchantID, st.MerchantID)
	}
	if st.MerchantName == nil || *st.MerchantName != merchantName {
		return fmt.Errorf("expected merchant name %q, got %v", merchantName, st.MerchantName)
	}
	return nil
}

func (c *cartTestContext) theCartHasNoMerchant() error {
	st := c.store.Snapshot()
	if st.MerchantID != nil || st.MerchantName != nil {
		return fmt.Errorf("expected no merchant, got %v/%v", st.MerchantID, st.MerchantName)
	}
	return nil
}

func (c *cartTestContext) theCartHasLine(qty int, itemID, itemName string, price int) error {
	for _, it := range c.store.Snapshot().Items {
		if it.ID != itemID {
			continue
		}
		if it.Qty != qty || it.Name != itemName || !it.Price.Equal(decimal.NewFromInt(int64(price))) {
			return fmt.Errorf("unexpected line %+v", it)
		}
		return nil
	}
	return fmt.Errorf("item %q not in cart", itemID)
}

func (c *cartTestContext) theCartHasLines(n int) error {
	if got := len(c.store.Snapshot().Items); got != n {
		return fmt.Errorf("expected %d lines, got %d", n, got)
	}
	return nil
}

func (c *cartTestContext) theCartTotalIs(total int) error {
	if got := c.store.Total(); !got.Equal(decimal.NewFromInt(int64(total))) {
		return fmt.Errorf("expected total %d, got %s", total, got)
	}
	return nil
}

func (c *cartTestContext) theCartHoldsUnits(n int) error {
	if got := c.store.TotalQty(); got != n {
		return fmt.Errorf("expected %d units, got %d", n, got)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &cartTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^an empty cart$`, tc.anEmptyCart)
	ctx.Step(`^the cart holds "([^"]*)" "([^"]*)" priced (\d+) from merchant "([^"]*)" "([^"]*)"$`, tc.theCartHolds)

	// When steps
	ctx.Step(`^I add "([^"]*)" "([^"]*)" priced (\d+) from merchant "([^"]*)" "([^"]*)"$`, tc.iAdd)
	ctx.Step(`^I decide to "([^"]*)"$`, tc.iDecideTo)
	ctx.Step(`^I set the quantity of "([^"]*)" to (-?\d+)$`, tc.iSetTheQuantity)
	ctx.Step(`^I remove "([^"]*)"$`, tc.iRemove)
	ctx.Step(`^I clear the cart$`, tc.iClearTheCart)
	ctx.Step(`^the cart is reopened$`, tc.theCartIsReopened)

	// Then steps
	ctx.Step(`^the add outcome is "([^"]*)"$`, tc.theAddOutcomeIs)
	ctx.Step(`^the cart belongs to merchant "([^"]*)" "([^"]*)"$`, tc.theCartBelongsTo)
	ctx.Step(`^the cart has no merchant$`, tc.theCartHasNoMerchant)
	ctx.Step(`^the cart has (\d+) of "([^"]*)" "([^"]*)" priced (\d+)$`, tc.theCartHasLine)
	ctx.Step(`^the cart has (\d+) lines$`, tc.theCartHasLines)
	ctx.Step(`^the cart total is (\d+)$`, tc.theCartTotalIs)
	ctx.Step(`^the cart holds (\d+) units$`, tc.theCartHoldsUnits)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"../../features/cart.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
