package site

import (
	"time"

	"github.com/shuaiyuancn/2026-better-booking/internal/browser"
)

type locs = []browser.Locator

// Default is the profile for bookings.better.org.uk.
func Default() Profile {
	return Profile{
		BaseURL:      "https://bookings.better.org.uk/location",
		ActivityPath: "badminton-%dmin",
		Markers: Markers{
			Slot:         "/slot/",
			Checkout:     "/checkout",
			Confirmation: "/confirmation",
			PaymentFrame: "opayo",
		},
		Controls: Controls{
			CookieAccept: locs{browser.Button("Accept All Cookies"), browser.CSS("#onetrust-accept-btn-handler")},
			NoResults:    locs{browser.Text("No results were found at this centre")},
			LoginLink:    locs{browser.CSS("header a[href*='/login']"), browser.ExactButton("Sign in")},
			Slots:        locs{browser.CSS("a[href*='/slot/']")},
			BookNow:      locs{browser.Button("Book now")},
			SessionFull:  locs{browser.Text("Session full"), browser.Text("fully booked")},

			ResourceToggle: locs{browser.Button("Change court"), browser.Button("Choose a different court")},
			ResourceOption: locs{
				browser.CSS("input[type='radio'][name*='court']:not([disabled])"),
				browser.CSS("[data-testid*='court-option']:not([aria-disabled='true'])"),
			},

			LoginEmail:    locs{browser.Label("Email address or customer ID"), browser.Placeholder("Email"), browser.Name("username")},
			LoginPassword: locs{browser.ExactLabel("Password"), browser.Name("password")},
			LoginSubmit:   locs{browser.ExactButton("Log in")},

			SavedCard: locs{browser.Label("Use saved card"), browser.Label("Pay with saved card")},
			NewCard:   locs{browser.Label("Pay with a different card"), browser.Label("Pay with a new card")},
			FirstName: locs{browser.Label("First name"), browser.Name("firstName")},
			LastName:  locs{browser.Label("Last name"), browser.Name("lastName")},
			Address1:  locs{browser.Label("Address line 1"), browser.Name("addressLine1")},
			Town:      locs{browser.Label("Town/city"), browser.Name("city")},
			Postcode:  locs{browser.Label("Postcode"), browser.Name("postcode")},

			CardName:   locs{browser.Label("Name"), browser.Placeholder("Name on card"), browser.Name("cardholderName")},
			CardNumber: locs{browser.Label("Card number"), browser.Label("Card"), browser.Placeholder("Card number"), browser.Name("cardNumber")},
			CardExpiry: locs{browser.Label("Expiry"), browser.Placeholder("MM/YY"), browser.Name("expiryDate")},
			CardCVC:    locs{browser.Label("CVC"), browser.Placeholder("CVC"), browser.Name("securityCode")},

			Terms:  locs{browser.Label("I agree to the Terms and Conditions")},
			PayNow: locs{browser.Button("Pay now")},
		},
		Timeouts: Timeouts{
			Navigate:     30 * time.Second,
			Consent:      5 * time.Second,
			Slots:        10 * time.Second,
			BookNow:      10 * time.Second,
			Login:        10 * time.Second,
			Checkout:     15 * time.Second,
			Field:        5 * time.Second,
			Frame:        10 * time.Second,
			Confirmation: 30 * time.Second,
			Settle:       1 * time.Second,
			KeyDelay:     50 * time.Millisecond,
		},
	}
}
