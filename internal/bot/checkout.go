package bot

import (
	"context"
	"fmt"

	"github.com/shuaiyuancn/2026-better-booking/internal/audit"
	"github.com/shuaiyuancn/2026-better-booking/internal/browser"
	"github.com/shuaiyuancn/2026-better-booking/internal/domain"
	"github.com/shuaiyuancn/2026-better-booking/internal/internaltypes"
	"github.com/shuaiyuancn/2026-better-booking/internal/site"
)

// CheckoutFiller picks the new-card option and fills the billing address.
type CheckoutFiller struct {
	Profile site.Profile
	Log     *audit.Logger
}

// Fill returns an error only when the new-card option cannot be selected.
// A billing field that cannot be filled is logged and skipped.
func (f CheckoutFiller) Fill(ctx context.Context, sess browser.Session, acct domain.Account, pay domain.PaymentProfile) error {
	c := f.Profile.Controls
	field := f.Profile.Timeouts.Field

	if len(c.SavedCard) > 0 {
		if saved, err := browser.First(ctx, sess, field, c.SavedCard...); err == nil {
			if on, _ := saved.Checked(); on {
				if err := browser.SetChecked(saved, false); err != nil {
					f.Log.Warn(ctx, "Could not switch off saved card", err)
				}
			}
		}
	}

	newCard, err := browser.First(ctx, sess, field, c.NewCard...)
	if err != nil {
		return fmt.Errorf("%w: new card option: %v", internaltypes.ErrFieldInteraction, err)
	}
	if err := browser.SetChecked(newCard, true); err != nil {
		return fmt.Errorf("select new card: %w", err)
	}

	name := acct.Name
	if first, _ := domain.SplitName(name); first == "" {
		name = pay.CardholderName
	}
	first, last := domain.SplitName(name)

	fields := []struct {
		label string
		locs  []browser.Locator
		value string
	}{
		{"first name", c.FirstName, first},
		{"last name", c.LastName, last},
		{"address line 1", c.Address1, pay.AddressLine1},
		{"town/city", c.Town, pay.City},
		{"postcode", c.Postcode, pay.Postcode},
	}
	for _, fl := range fields {
		el, err := browser.First(ctx, sess, field, fl.locs...)
		if err == nil {
			err = el.Fill(fl.value)
		}
		if err != nil {
			f.Log.Warn(ctx, "Error filling billing "+fl.label, err)
		}
	}
	return nil
}
