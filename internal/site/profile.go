// Package site describes the booking website as data: where pages live, how
// to recognise them, and how to find each control. The defaults match
// bookings.better.org.uk; a YAML file can override any part.
package site

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shuaiyuancn/2026-better-booking/internal/browser"
	"github.com/shuaiyuancn/2026-better-booking/internal/domain"
)

type Profile struct {
	BaseURL string `yaml:"base_url"`
	// ActivityPath is the duration segment, with %d for minutes.
	ActivityPath string   `yaml:"activity_path"`
	Markers      Markers  `yaml:"markers"`
	Controls     Controls `yaml:"controls"`
	Timeouts     Timeouts `yaml:"timeouts"`
}

// Markers are substrings that identify a page or frame by its URL.
type Markers struct {
	Slot         string `yaml:"slot"`
	Checkout     string `yaml:"checkout"`
	Confirmation string `yaml:"confirmation"`
	PaymentFrame string `yaml:"payment_frame"`
}

// Controls lists, for every control the flow touches, the locators to try in
// order. Lists marked optional may be empty.
type Controls struct {
	CookieAccept []browser.Locator `yaml:"cookie_accept"`
	NoResults    []browser.Locator `yaml:"no_results"`
	LoginLink    []browser.Locator `yaml:"login_link"`
	Slots        []browser.Locator `yaml:"slots"`
	BookNow      []browser.Locator `yaml:"book_now"`
	SessionFull  []browser.Locator `yaml:"session_full"`

	// ResourceToggle opens the alternative resource list. Optional.
	ResourceToggle []browser.Locator `yaml:"resource_toggle"`
	ResourceOption []browser.Locator `yaml:"resource_option"`

	LoginEmail    []browser.Locator `yaml:"login_email"`
	LoginPassword []browser.Locator `yaml:"login_password"`
	LoginSubmit   []browser.Locator `yaml:"login_submit"`

	// SavedCard is the stored-card option that must be switched off. Optional.
	SavedCard []browser.Locator `yaml:"saved_card"`
	NewCard   []browser.Locator `yaml:"new_card"`
	FirstName []browser.Locator `yaml:"first_name"`
	LastName  []browser.Locator `yaml:"last_name"`
	Address1  []browser.Locator `yaml:"address_line_1"`
	Town      []browser.Locator `yaml:"town"`
	Postcode  []browser.Locator `yaml:"postcode"`

	CardName   []browser.Locator `yaml:"card_name"`
	CardNumber []browser.Locator `yaml:"card_number"`
	CardExpiry []browser.Locator `yaml:"card_expiry"`
	CardCVC    []browser.Locator `yaml:"card_cvc"`

	Terms  []browser.Locator `yaml:"terms"`
	PayNow []browser.Locator `yaml:"pay_now"`

	// Reference and Price are read from the confirmation page. Optional.
	Reference []browser.Locator `yaml:"reference"`
	Price     []browser.Locator `yaml:"price"`
}

type Timeouts struct {
	Navigate     time.Duration `yaml:"navigate"`
	Consent      time.Duration `yaml:"consent"`
	Slots        time.Duration `yaml:"slots"`
	BookNow      time.Duration `yaml:"book_now"`
	Login        time.Duration `yaml:"login"`
	Checkout     time.Duration `yaml:"checkout"`
	Field        time.Duration `yaml:"field"`
	Frame        time.Duration `yaml:"frame"`
	Confirmation time.Duration `yaml:"confirmation"`
	// Settle is the pause after the neutral click that re-runs validation.
	Settle   time.Duration `yaml:"settle"`
	KeyDelay time.Duration `yaml:"key_delay"`
}

// AvailabilityURL is the by-time listing for a task's facility, duration and
// date.
func (p Profile) AvailabilityURL(t domain.Task) string {
	facility := strings.TrimSpace(t.Facility)
	if f, ok := domain.LookupFacility(facility); ok {
		facility = f.Slug
	}
	return fmt.Sprintf("%s/%s/%s/%s/by-time",
		strings.TrimRight(p.BaseURL, "/"), facility, fmt.Sprintf(p.ActivityPath, t.Duration), t.Date())
}

// Load reads a YAML profile over the defaults. Keys the file leaves out keep
// their default; a list in the file replaces the default list. Environment
// variables in the file are expanded.
func Load(path string) (Profile, error) {
	p := Default()
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read site profile: %w", err)
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &p); err != nil {
		return Profile{}, fmt.Errorf("parse site profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Profile{}, fmt.Errorf("site profile %s: %w", path, err)
	}
	return p, nil
}

func (p Profile) Validate() error {
	u, err := url.Parse(p.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("base_url %q is not an absolute URL", p.BaseURL)
	}
	if strings.Count(p.ActivityPath, "%d") != 1 {
		return fmt.Errorf("activity_path %q needs exactly one %%d", p.ActivityPath)
	}
	for name, v := range map[string]string{
		"slot":          p.Markers.Slot,
		"checkout":      p.Markers.Checkout,
		"confirmation":  p.Markers.Confirmation,
		"payment_frame": p.Markers.PaymentFrame,
	} {
		if v == "" {
			return fmt.Errorf("markers.%s is empty", name)
		}
	}

	c := p.Controls
	required := map[string][]browser.Locator{
		"cookie_accept":   c.CookieAccept,
		"no_results":      c.NoResults,
		"login_link":      c.LoginLink,
		"slots":           c.Slots,
		"book_now":        c.BookNow,
		"session_full":    c.SessionFull,
		"resource_option": c.ResourceOption,
		"login_email":     c.LoginEmail,
		"login_password":  c.LoginPassword,
		"login_submit":    c.LoginSubmit,
		"new_card":        c.NewCard,
		"first_name":      c.FirstName,
		"last_name":       c.LastName,
		"address_line_1":  c.Address1,
		"town":            c.Town,
		"postcode":        c.Postcode,
		"card_name":       c.CardName,
		"card_number":     c.CardNumber,
		"card_expiry":     c.CardExpiry,
		"card_cvc":        c.CardCVC,
		"terms":           c.Terms,
		"pay_now":         c.PayNow,
	}
	optional := map[string][]browser.Locator{
		"resource_toggle": c.ResourceToggle,
		"saved_card":      c.SavedCard,
		"reference":       c.Reference,
		"price":           c.Price,
	}
	for name, locs := range required {
		if len(locs) == 0 {
			return fmt.Errorf("controls.%s is empty", name)
		}
	}
	for _, set := range []map[string][]browser.Locator{required, optional} {
		for name, locs := range set {
			for _, l := range locs {
				if err := l.Validate(); err != nil {
					return fmt.Errorf("controls.%s: %w", name, err)
				}
			}
		}
	}

	t := p.Timeouts
	for name, d := range map[string]time.Duration{
		"navigate":     t.Navigate,
		"consent":      t.Consent,
		"slots":        t.Slots,
		"book_now":     t.BookNow,
		"login":        t.Login,
		"checkout":     t.Checkout,
		"field":        t.Field,
		"frame":        t.Frame,
		"confirmation": t.Confirmation,
	} {
		if d <= 0 {
			return fmt.Errorf("timeouts.%s must be positive", name)
		}
	}
	if t.Settle < 0 || t.KeyDelay < 0 {
		return fmt.Errorf("timeouts.settle and timeouts.key_delay must not be negative")
	}
	return nil
}
