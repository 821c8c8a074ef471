package site

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shuaiyuancn/2026-better-booking/internal/browser"
	"github.com/shuaiyuancn/2026-better-booking/internal/domain"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestAvailabilityURL(t *testing.T) {
	p := Default()
	date := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		facility string
		duration int
		want     string
	}{
		{"short key", "hendon", 40, "https://bookings.better.org.uk/location/hendon-leisure-centre/badminton-40min/2025-01-10/by-time"},
		{"full slug", "barnet-copthall-leisure-centre", 60, "https://bookings.better.org.uk/location/barnet-copthall-leisure-centre/badminton-60min/2025-01-10/by-time"},
		{"unknown slug passes through", "some-other-centre", 40, "https://bookings.better.org.uk/location/some-other-centre/badminton-40min/2025-01-10/by-time"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.AvailabilityURL(domain.Task{Facility: tt.facility, Duration: tt.duration, TargetDate: date})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("EmptyPathGivesDefault", func(t *testing.T) {
		p, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, Default(), p)
	})

	t.Run("OverridesMerge", func(t *testing.T) {
		t.Setenv("BOOKING_BASE", "https://staging.example.test/location")
		path := filepath.Join(t.TempDir(), "site.yaml")
		content := `
base_url: ${BOOKING_BASE}
controls:
  book_now:
    - by: button
      value: Reserve
      exact: true
timeouts:
  confirmation: 45s
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		p, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "https://staging.example.test/location", p.BaseURL)
		assert.Equal(t, []browser.Locator{browser.ExactButton("Reserve")}, p.Controls.BookNow)
		assert.Equal(t, 45*time.Second, p.Timeouts.Confirmation)
		assert.Equal(t, Default().Controls.Slots, p.Controls.Slots)
		assert.Equal(t, 10*time.Second, p.Timeouts.Slots)
	})

	t.Run("RejectsBadLocator", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "site.yaml")
		content := `
controls:
  pay_now:
    - by: xpath
      value: //button
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		_, err := Load(path)
		assert.ErrorContains(t, err, "pay_now")
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	p := Default()
	p.ActivityPath = "badminton"
	assert.ErrorContains(t, p.Validate(), "activity_path")

	p = Default()
	p.Controls.PayNow = nil
	assert.ErrorContains(t, p.Validate(), "pay_now")

	p = Default()
	p.Timeouts.Checkout = 0
	assert.ErrorContains(t, p.Validate(), "checkout")
}
