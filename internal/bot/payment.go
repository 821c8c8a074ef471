package bot

import (
	"context"
	"fmt"

	"github.com/shuaiyuancn/2026-better-booking/internal/browser"
	"github.com/shuaiyuancn/2026-better-booking/internal/internaltypes"
	"github.com/shuaiyuancn/2026-better-booking/internal/site"
)

// Card holds decrypted card details for one run.
type Card struct {
	Name   string
	Number string
	Expiry string
	CVV    string
}

// PaymentFrameFiller types card details into the hosted payment widget.
type PaymentFrameFiller struct {
	Profile site.Profile
}

func (f PaymentFrameFiller) Fill(ctx context.Context, sess browser.Session, card Card) error {
	if card.Number == "" || card.CVV == "" {
		return fmt.Errorf("%w: card details did not decrypt", internaltypes.ErrFieldInteraction)
	}

	frame, err := browser.WaitFrame(ctx, sess, f.Profile.Markers.PaymentFrame, f.Profile.Timeouts.Frame)
	if err != nil {
		return fmt.Errorf("payment frame: %w", err)
	}

	c := f.Profile.Controls
	fields := []struct {
		label string
		locs  []browser.Locator
		value string
	}{
		{"cardholder name", c.CardName, card.Name},
		{"card number", c.CardNumber, card.Number},
		{"expiry", c.CardExpiry, card.Expiry},
		{"cvc", c.CardCVC, card.CVV},
	}
	for _, fl := range fields {
		el, err := browser.First(ctx, frame, f.Profile.Timeouts.Field, fl.locs...)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", internaltypes.ErrFieldInteraction, fl.label, err)
		}
		if err := browser.Type(ctx, el, fl.value, f.Profile.Timeouts.KeyDelay); err != nil {
			return fmt.Errorf("%s: %w", fl.label, err)
		}
	}
	return nil
}
