package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shuaiyuancn/2026-better-booking/internal/browser/browsertest"
	"github.com/shuaiyuancn/2026-better-booking/internal/domain"
)

func probeTask(start string) domain.Task {
	return domain.Task{
		Facility:       "hendon",
		TargetDate:     time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		Duration:       40,
		PreferredStart: start,
	}
}

func TestProbe(t *testing.T) {
	ctx := context.Background()

	t.Run("ListsSlotsWithoutClicking", func(t *testing.T) {
		fs := newFakeSite(testProfile(), "17:20", "18:00")
		l := &browsertest.Launcher{Session: fs.sess}

		res, err := Probe(ctx, l, fs.p, probeTask("18:00"))
		require.NoError(t, err)

		assert.Equal(t, "https://bookings.better.org.uk/location/hendon-leisure-centre/badminton-40min/2025-01-10/by-time", res.URL)
		assert.False(t, res.NoResults)
		require.Len(t, res.Slots, 2)
		assert.Equal(t, fs.slots[1].Attrs["href"], res.Match)
		assert.Zero(t, fs.slots[0].Clicks+fs.slots[1].Clicks)
		assert.True(t, fs.sess.Closed)
	})

	t.Run("NoPreferredMatch", func(t *testing.T) {
		fs := newFakeSite(testProfile(), "17:20")
		res, err := Probe(ctx, &browsertest.Launcher{Session: fs.sess}, fs.p, probeTask("21:00"))
		require.NoError(t, err)
		assert.Len(t, res.Slots, 1)
		assert.Empty(t, res.Match)
	})

	t.Run("NoResultsBanner", func(t *testing.T) {
		fs := newFakeSite(testProfile())
		fs.sess.OnNavigate = func(string) {
			fs.sess.Page().Show(fs.p.Controls.NoResults[0], &browsertest.Element{Name: "no results"})
		}
		res, err := Probe(ctx, &browsertest.Launcher{Session: fs.sess}, fs.p, probeTask(""))
		require.NoError(t, err)
		assert.True(t, res.NoResults)
		assert.Empty(t, res.Slots)
	})

	t.Run("LaunchFailure", func(t *testing.T) {
		_, err := Probe(ctx, &browsertest.Launcher{Err: errors.New("no chrome")}, testProfile(), probeTask(""))
		assert.ErrorContains(t, err, "no chrome")
	})
}
