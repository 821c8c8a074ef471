package bot

import (
	"context"
	"fmt"

	"github.com/shuaiyuancn/2026-better-booking/internal/browser"
	"github.com/shuaiyuancn/2026-better-booking/internal/domain"
	"github.com/shuaiyuancn/2026-better-booking/internal/site"
)

// ProbeResult is what the availability page showed for a task.
type ProbeResult struct {
	URL       string
	NoResults bool
	// Slots are the slot link hrefs in page order.
	Slots []string
	// Match is the slot a run would pick, if any.
	Match string
}

// Probe loads the availability page for t and reads the slot links without
// clicking anything or logging in. It is used to check a site profile against
// the live site.
func Probe(ctx context.Context, l browser.Launcher, p site.Profile, t domain.Task) (ProbeResult, error) {
	res := ProbeResult{URL: p.AvailabilityURL(t)}

	sess, err := l.Open(ctx)
	if err != nil {
		return res, fmt.Errorf("open browser: %w", err)
	}
	defer sess.Close()

	nctx, cancel := context.WithTimeout(ctx, p.Timeouts.Navigate)
	defer cancel()
	if err := sess.Navigate(nctx, res.URL); err != nil {
		return res, fmt.Errorf("load %s: %w", res.URL, err)
	}

	if btn, err := browser.First(ctx, sess, p.Timeouts.Consent, p.Controls.CookieAccept...); err == nil {
		_ = btn.Click()
	}
	if browser.Exists(ctx, sess, p.Controls.NoResults...) {
		res.NoResults = true
		return res, nil
	}

	els, err := browser.All(ctx, sess, p.Timeouts.Slots, p.Controls.Slots...)
	if err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		// No visible slots is an answer, not a failure.
		return res, nil
	}
	var slots []domain.Slot
	for _, el := range els {
		href, ok, err := el.Attr("href")
		if err != nil || !ok || href == "" {
			continue
		}
		res.Slots = append(res.Slots, href)
		slots = append(slots, domain.Slot{ID: href, Index: len(slots)})
	}
	if s, ok := domain.SelectSlot(t.PreferredStart, slots); ok {
		res.Match = s.ID
	}
	return res, nil
}
