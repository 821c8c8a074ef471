package domain

import "time"

// Cooldown is the minimum gap between two runs of the same RUNNING task.
const Cooldown = 300 * time.Second

// Due reports whether the scheduler should dispatch t at now.
func Due(t Task, now time.Time, cooldown time.Duration) bool {
	switch t.Status {
	case StatusPending:
		return true
	case StatusRunning:
		if t.LastCheckedAt == nil {
			return true
		}
		return now.Sub(*t.LastCheckedAt) >= cooldown
	}
	return false
}
