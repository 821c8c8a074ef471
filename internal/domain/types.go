package domain

import (
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// Durations the site sells, in minutes.
var Durations = []int{40, 60}

type Task struct {
	ID               int64
	AccountID        int64
	PaymentProfileID int64
	Facility         string
	TargetDate       time.Time
	Duration         int

	// PreferredStart is an "HH:MM" start time; empty means any slot.
	PreferredStart string

	Status        Status
	LastCheckedAt *time.Time
	CreatedAt     time.Time
}

func (t Task) Date() string { return t.TargetDate.Format(DateLayout) }

func (t Task) Validate() error {
	if t.AccountID < 1 {
		return fmt.Errorf("account_id required")
	}
	if t.PaymentProfileID < 1 {
		return fmt.Errorf("payment_profile_id required")
	}
	if _, ok := LookupFacility(t.Facility); !ok {
		return fmt.Errorf("unknown facility %q", t.Facility)
	}
	if t.TargetDate.IsZero() {
		return fmt.Errorf("target_date required")
	}
	if !validDuration(t.Duration) {
		return fmt.Errorf("duration must be one of %v minutes", Durations)
	}
	if t.PreferredStart != "" {
		if _, err := time.Parse("15:04", t.PreferredStart); err != nil {
			return fmt.Errorf("preferred start must be HH:MM: %w", err)
		}
	}
	return nil
}

func validDuration(d int) bool {
	for _, v := range Durations {
		if v == d {
			return true
		}
	}
	return false
}

type Account struct {
	ID                int64
	Name              string
	Email             string
	PasswordEncrypted string
}

type PaymentProfile struct {
	ID                  int64
	AccountID           int64
	Alias               string
	CardholderName      string
	CardNumberEncrypted string
	ExpiryMonth         string
	ExpiryYear          string
	CVVEncrypted        string
	AddressLine1        string
	City                string
	Postcode            string
}

// Expiry is the month and year as the payment widget wants them, e.g. "0927".
func (p PaymentProfile) Expiry() string {
	return strings.TrimSpace(p.ExpiryMonth) + strings.TrimSpace(p.ExpiryYear)
}

type Booking struct {
	ID        int64
	TaskID    int64
	Reference string
	Resource  string
	Price     string
	BookedAt  time.Time
}

type LogLevel string

const (
	LevelInfo  LogLevel = "INFO"
	LevelWarn  LogLevel = "WARN"
	LevelError LogLevel = "ERROR"
)

type LogEntry struct {
	ID        int64
	Level     LogLevel
	Source    string
	Message   string
	TaskID    *int64
	Timestamp time.Time
}

// SplitName splits a display name into first and last name for billing forms.
// A single word gets the last name "User".
func SplitName(name string) (first, last string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], "User"
	}
	return parts[0], parts[len(parts)-1]
}
