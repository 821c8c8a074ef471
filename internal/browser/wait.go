package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/shuaiyuancn/2026-better-booking/internal/internaltypes"
)

var ErrNoFrame = errors.New("frame not attached")

// PollInterval is how often the wait helpers re-query a scope.
var PollInterval = 100 * time.Millisecond

// First waits up to timeout for any of locs to match. Locators are tried in
// order on every round, so an earlier locator wins when several match.
func First(ctx context.Context, s Scope, timeout time.Duration, locs ...Locator) (Element, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var lastErr error
	for {
		for _, l := range locs {
			els, err := s.Query(ctx, l)
			if err != nil {
				lastErr = err
				continue
			}
			if len(els) > 0 {
				return els[0], nil
			}
		}
		if err := sleep(ctx, PollInterval); err != nil {
			if lastErr != nil {
				return nil, fmt.Errorf("%w waiting for %s: %v", internaltypes.ErrTiming, describe(locs), lastErr)
			}
			return nil, fmt.Errorf("%w waiting for %s", internaltypes.ErrTiming, describe(locs))
		}
	}
}

// All waits up to timeout for the first locator in locs that matches and
// returns every element it matches, in page order.
func All(ctx context.Context, s Scope, timeout time.Duration, locs ...Locator) ([]Element, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		for _, l := range locs {
			els, err := s.Query(ctx, l)
			if err == nil && len(els) > 0 {
				return els, nil
			}
		}
		if err := sleep(ctx, PollInterval); err != nil {
			return nil, fmt.Errorf("%w waiting for %s", internaltypes.ErrTiming, describe(locs))
		}
	}
}

// Exists reports whether any of locs matches right now.
func Exists(ctx context.Context, s Scope, locs ...Locator) bool {
	for _, l := range locs {
		if els, err := s.Query(ctx, l); err == nil && len(els) > 0 {
			return true
		}
	}
	return false
}

// WaitURL waits until the session URL contains marker. The query and
// fragment are not searched, so a redirect parameter naming marker does not
// count.
func WaitURL(ctx context.Context, s Session, marker string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var last string
	for {
		if u, err := s.URL(ctx); err == nil {
			last = u
			if strings.Contains(stripQuery(u), marker) {
				return nil
			}
		}
		if err := sleep(ctx, PollInterval); err != nil {
			return fmt.Errorf("%w waiting for url %q (at %q)", internaltypes.ErrTiming, marker, last)
		}
	}
}

func stripQuery(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		return u[:i]
	}
	return u
}

// WaitFrame waits until an embedded frame whose source contains marker is
// attached.
func WaitFrame(ctx context.Context, s Session, marker string, timeout time.Duration) (Scope, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		f, err := s.Frame(ctx, marker)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, ErrNoFrame) {
			return nil, err
		}
		if err := sleep(ctx, PollInterval); err != nil {
			return nil, fmt.Errorf("%w waiting for frame %q", internaltypes.ErrTiming, marker)
		}
	}
}

// Type clears el and enters text one character at a time, at most one
// character per delay.
func Type(ctx context.Context, el Element, text string, delay time.Duration) error {
	if err := el.Fill(""); err != nil {
		return err
	}
	// rate.Every of a non-positive delay is rate.Inf, which never waits.
	lim := rate.NewLimiter(rate.Every(delay), 1)
	for _, r := range text {
		if err := lim.Wait(ctx); err != nil {
			return fmt.Errorf("%w: typing interrupted: %v", internaltypes.ErrTiming, err)
		}
		if err := el.Append(string(r)); err != nil {
			return err
		}
	}
	return nil
}

// SetChecked clicks el once if its checked state is not want, then checks
// that the click took.
func SetChecked(el Element, want bool) error {
	got, err := el.Checked()
	if err != nil {
		return err
	}
	if got == want {
		return nil
	}
	if err := el.Click(); err != nil {
		return err
	}
	if got, err = el.Checked(); err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("%w: checkbox still %t", internaltypes.ErrFieldInteraction, got)
	}
	return nil
}

func describe(locs []Locator) string {
	parts := make([]string, len(locs))
	for i, l := range locs {
		parts[i] = l.String()
	}
	return strings.Join(parts, " | ")
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
