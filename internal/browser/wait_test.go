package browser_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shuaiyuancn/2026-better-booking/internal/browser"
	"github.com/shuaiyuancn/2026-better-booking/internal/browser/browsertest"
	"github.com/shuaiyuancn/2026-better-booking/internal/internaltypes"
)

func init() {
	browser.PollInterval = 5 * time.Millisecond
}

func TestFirst(t *testing.T) {
	ctx := context.Background()

	t.Run("EarlierLocatorWins", func(t *testing.T) {
		s := browsertest.NewSession()
		byLabel := &browsertest.Element{Name: "label"}
		byName := &browsertest.Element{Name: "name"}
		s.Page().Show(browser.Label("Card"), byLabel)
		s.Page().Show(browser.Name("cardnumber"), byName)

		el, err := browser.First(ctx, s, time.Second, browser.Label("Card"), browser.Placeholder("Card number"), browser.Name("cardnumber"))
		require.NoError(t, err)
		assert.Same(t, byLabel, el)
	})

	t.Run("FallsBack", func(t *testing.T) {
		s := browsertest.NewSession()
		byName := &browsertest.Element{Name: "name"}
		s.Page().Show(browser.Name("cardnumber"), byName)

		el, err := browser.First(ctx, s, time.Second, browser.Label("Card"), browser.Name("cardnumber"))
		require.NoError(t, err)
		assert.Same(t, byName, el)
	})

	t.Run("TimesOut", func(t *testing.T) {
		s := browsertest.NewSession()
		_, err := browser.First(ctx, s, 20*time.Millisecond, browser.Button("Book now"))
		assert.ErrorIs(t, err, internaltypes.ErrTiming)
		assert.Contains(t, err.Error(), "Book now")
	})

	t.Run("WaitsForLateElement", func(t *testing.T) {
		s := browsertest.NewSession()
		go func() {
			time.Sleep(20 * time.Millisecond)
			s.Page().Show(browser.Button("Book now"), &browsertest.Element{})
		}()
		_, err := browser.First(ctx, s, time.Second, browser.Button("Book now"))
		assert.NoError(t, err)
	})
}

func TestWaitURL(t *testing.T) {
	ctx := context.Background()
	s := browsertest.NewSession()
	s.SetURL("https://example.test/basket")

	err := browser.WaitURL(ctx, s, "/checkout", 20*time.Millisecond)
	assert.ErrorIs(t, err, internaltypes.ErrTiming)

	s.SetURL("https://example.test/checkout")
	assert.NoError(t, browser.WaitURL(ctx, s, "/checkout", time.Second))

	s.SetURL("https://example.test/checkout?step=2#card")
	assert.NoError(t, browser.WaitURL(ctx, s, "/checkout", time.Second))
}

func TestWaitURLIgnoresRedirectParameter(t *testing.T) {
	ctx := context.Background()
	s := browsertest.NewSession()
	back := "https://example.test/location/hendon/by-time"
	s.SetURL("https://example.test/login?redirect=" + back)

	err := browser.WaitURL(ctx, s, back, 20*time.Millisecond)
	assert.ErrorIs(t, err, internaltypes.ErrTiming)

	s.SetURL(back)
	assert.NoError(t, browser.WaitURL(ctx, s, back, time.Second))
}

func TestWaitFrame(t *testing.T) {
	ctx := context.Background()
	s := browsertest.NewSession()

	_, err := browser.WaitFrame(ctx, s, "opayo", 20*time.Millisecond)
	assert.ErrorIs(t, err, internaltypes.ErrTiming)

	s.AttachFrame("opayo")
	f, err := browser.WaitFrame(ctx, s, "opayo", time.Second)
	require.NoError(t, err)
	assert.NotNil(t, f)
}

func TestType(t *testing.T) {
	el := &browsertest.Element{Value: "stale"}
	require.NoError(t, browser.Type(context.Background(), el, "4111", time.Millisecond))
	assert.Equal(t, "4111", el.Value)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := browser.Type(ctx, &browsertest.Element{}, "4111", time.Hour)
	assert.ErrorIs(t, err, internaltypes.ErrTiming)
}

func TestSetChecked(t *testing.T) {
	box := &browsertest.Element{Checkable: true}
	require.NoError(t, browser.SetChecked(box, true))
	assert.True(t, box.Check)
	require.NoError(t, browser.SetChecked(box, true))
	assert.Equal(t, 1, box.Clicks)

	stuck := &browsertest.Element{}
	err := browser.SetChecked(stuck, true)
	assert.ErrorIs(t, err, internaltypes.ErrFieldInteraction)
}

func TestLocatorValidate(t *testing.T) {
	assert.NoError(t, browser.Label("Postcode").Validate())
	assert.Error(t, browser.Locator{By: "xpath", Value: "//a"}.Validate())
	assert.Error(t, browser.CSS(" ").Validate())
}
