package bot

import (
	"github.com/shuaiyuancn/2026-better-booking/internal/browser"
	"github.com/shuaiyuancn/2026-better-booking/internal/domain"
)

// SelectSlot applies the slot policy to located slot links. Links without an
// href are skipped.
func SelectSlot(preferred string, els []browser.Element) (browser.Element, domain.Slot, bool) {
	var slots []domain.Slot
	var byIndex []browser.Element
	for _, el := range els {
		href, ok, err := el.Attr("href")
		if err != nil || !ok || href == "" {
			continue
		}
		slots = append(slots, domain.Slot{ID: href, Index: len(slots)})
		byIndex = append(byIndex, el)
	}
	s, ok := domain.SelectSlot(preferred, slots)
	if !ok {
		return nil, domain.Slot{}, false
	}
	return byIndex[s.Index], s, true
}
