package domain

import "strings"

// Slot is a reservable interval as the availability page lists it. ID is the
// slot link, which embeds the start time as "/slot/HH:MM-HH:MM/".
type Slot struct {
	ID    string
	Index int
}

// SlotToken is the substring a slot identifier must contain to start at hhmm.
func SlotToken(hhmm string) string {
	return "/slot/" + hhmm
}

// SelectSlot picks the slot to book. With a preferred start it returns the
// first slot whose identifier contains that start time exactly, and never
// substitutes a different time. Without one it returns the first slot in page
// order.
func SelectSlot(preferred string, slots []Slot) (Slot, bool) {
	if len(slots) == 0 {
		return Slot{}, false
	}
	if preferred == "" {
		return slots[0], true
	}
	token := SlotToken(preferred)
	for _, s := range slots {
		if strings.Contains(s.ID, token) {
			return s, true
		}
	}
	return Slot{}, false
}
