package bot

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/shuaiyuancn/2026-better-booking/internal/audit"
	"github.com/shuaiyuancn/2026-better-booking/internal/browser"
	"github.com/shuaiyuancn/2026-better-booking/internal/browser/browsertest"
	"github.com/shuaiyuancn/2026-better-booking/internal/domain"
	"github.com/shuaiyuancn/2026-better-booking/internal/site"
	"github.com/shuaiyuancn/2026-better-booking/internal/store"
	"github.com/shuaiyuancn/2026-better-booking/internal/vault"
)

const (
	testPassword = "hunter2"
	testCard     = "4111111111111111"
	testCVV      = "123"
)

var testNow = time.Date(2025, 1, 9, 21, 30, 0, 0, time.UTC)

func init() {
	browser.PollInterval = 2 * time.Millisecond
}

func testProfile() site.Profile {
	p := site.Default()
	p.Timeouts = site.Timeouts{
		Navigate:     time.Second,
		Consent:      10 * time.Millisecond,
		Slots:        50 * time.Millisecond,
		BookNow:      50 * time.Millisecond,
		Login:        50 * time.Millisecond,
		Checkout:     100 * time.Millisecond,
		Field:        30 * time.Millisecond,
		Frame:        50 * time.Millisecond,
		Confirmation: 100 * time.Millisecond,
		Settle:       time.Millisecond,
	}
	return p
}

// fakeSite scripts the booking site: availability listing, Book now,
// optional login, checkout with a payment frame, and confirmation.
type fakeSite struct {
	p    site.Profile
	sess *browsertest.Session

	slots    []*browsertest.Element
	bookNow  *browsertest.Element
	email    *browsertest.Element
	password *browsertest.Element
	logIn    *browsertest.Element

	newCard *browsertest.Element
	billing map[string]*browsertest.Element
	card    map[string]*browsertest.Element
	terms   *browsertest.Element
	payNow  *browsertest.Element

	requireLogin bool
	loggedIn     bool
	confirms     bool
	noFrame      bool
}

func newFakeSite(p site.Profile, slotTimes ...string) *fakeSite {
	c := p.Controls
	fs := &fakeSite{
		p:        p,
		sess:     browsertest.NewSession(),
		bookNow:  &browsertest.Element{Name: "book now"},
		email:    &browsertest.Element{Name: "email"},
		password: &browsertest.Element{Name: "password"},
		logIn:    &browsertest.Element{Name: "log in"},
		newCard:  &browsertest.Element{Name: "new card", Checkable: true},
		terms:    &browsertest.Element{Name: "terms", Checkable: true},
		payNow:   &browsertest.Element{Name: "pay now"},
		billing: map[string]*browsertest.Element{
			"first":    {Name: "first"},
			"last":     {Name: "last"},
			"address":  {Name: "address"},
			"town":     {Name: "town"},
			"postcode": {Name: "postcode"},
		},
		card: map[string]*browsertest.Element{
			"name":   {Name: "card name"},
			"number": {Name: "card number"},
			"expiry": {Name: "expiry"},
			"cvc":    {Name: "cvc"},
		},
		confirms: true,
	}

	for _, tt := range slotTimes {
		el := &browsertest.Element{
			Name:  "slot " + tt,
			Attrs: map[string]string{"href": "/location/hendon-leisure-centre/badminton-40min/2025-01-10/slot/" + tt + "-00:00/1"},
		}
		el.OnClick = func() { fs.sess.Page().Show(c.BookNow[0], fs.bookNow) }
		fs.slots = append(fs.slots, el)
	}

	fs.sess.OnNavigate = func(string) {
		if len(fs.slots) > 0 {
			fs.sess.Page().Show(c.Slots[0], fs.slots...)
		}
	}
	fs.bookNow.OnClick = func() {
		if fs.requireLogin && !fs.loggedIn {
			page := fs.sess.Page()
			page.Show(c.LoginEmail[0], fs.email)
			page.Show(c.LoginPassword[0], fs.password)
			page.Show(c.LoginSubmit[0], fs.logIn)
			return
		}
		fs.toCheckout()
	}
	fs.logIn.OnClick = func() {
		fs.loggedIn = true
		page := fs.sess.Page()
		page.Hide(c.LoginEmail[0])
		page.Hide(c.LoginPassword[0])
		page.Hide(c.LoginSubmit[0])
	}
	fs.payNow.OnClick = func() {
		if fs.confirms {
			fs.sess.SetURL("https://bookings.better.org.uk/basket/confirmation")
		}
	}
	return fs
}

func (fs *fakeSite) toCheckout() {
	c := fs.p.Controls
	fs.sess.SetURL("https://bookings.better.org.uk/basket/checkout")

	page := fs.sess.Page()
	page.Show(c.NewCard[0], fs.newCard)
	page.Show(c.FirstName[0], fs.billing["first"])
	page.Show(c.LastName[0], fs.billing["last"])
	page.Show(c.Address1[0], fs.billing["address"])
	page.Show(c.Town[0], fs.billing["town"])
	page.Show(c.Postcode[0], fs.billing["postcode"])
	page.Show(c.Terms[0], fs.terms)
	page.Show(c.PayNow[0], fs.payNow)

	if fs.noFrame {
		return
	}
	frame := fs.sess.AttachFrame(fs.p.Markers.PaymentFrame)
	frame.Show(c.CardName[0], fs.card["name"])
	frame.Show(c.CardNumber[0], fs.card["number"])
	frame.Show(c.CardExpiry[0], fs.card["expiry"])
	frame.Show(c.CardCVC[0], fs.card["cvc"])
}

type fixture struct {
	mem      *store.Memory
	site     *fakeSite
	launcher *browsertest.Launcher
	orch     *Orchestrator
	metrics  *Metrics
	logs     *bytes.Buffer
	task     domain.Task
}

// newFixture seeds an account, a payment profile and a RUNNING task for
// hendon on 2025-01-10, 40 minutes, and wires an orchestrator to fs.
func newFixture(t *testing.T, fs *fakeSite, mutate ...func(*domain.Task)) *fixture {
	t.Helper()

	key, err := vault.GenerateKey()
	require.NoError(t, err)
	v, err := vault.New(key)
	require.NoError(t, err)
	enc := func(s string) string {
		out, err := v.Encrypt(s)
		require.NoError(t, err)
		return out
	}

	mem := store.NewMemory()
	accountID := mem.PutAccount(domain.Account{Name: "Jo Bloggs", Email: "jo@example.com", PasswordEncrypted: enc(testPassword)})
	paymentID := mem.PutPayment(domain.PaymentProfile{
		AccountID:           accountID,
		Alias:               "main",
		CardholderName:      "J BLOGGS",
		CardNumberEncrypted: enc(testCard),
		ExpiryMonth:         "09",
		ExpiryYear:          "27",
		CVVEncrypted:        enc(testCVV),
		AddressLine1:        "1 High Street",
		City:                "London",
		Postcode:            "NW4 1AA",
	})

	task := domain.Task{
		AccountID:        accountID,
		PaymentProfileID: paymentID,
		Facility:         "hendon",
		TargetDate:       time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		Duration:         40,
		Status:           domain.StatusRunning,
	}
	for _, m := range mutate {
		m(&task)
	}
	task.ID = mem.PutTask(task)

	var buf bytes.Buffer
	stores := mem.Stores()
	launcher := &browsertest.Launcher{Session: fs.sess}
	metrics := NewMetrics(prometheus.NewRegistry())

	return &fixture{
		mem:      mem,
		site:     fs,
		launcher: launcher,
		metrics:  metrics,
		logs:     &buf,
		task:     task,
		orch: &Orchestrator{
			Stores:   stores,
			Vault:    v,
			Launcher: launcher,
			Profile:  fs.p,
			Log:      audit.New(zerolog.New(&buf), stores.Logs, "BookingBot"),
			Metrics:  metrics,
			Now:      func() time.Time { return testNow },
		},
	}
}

func (f *fixture) run(t *testing.T) Outcome {
	t.Helper()
	return f.orch.Run(context.Background(), f.task)
}

func (f *fixture) stored(t *testing.T) domain.Task {
	t.Helper()
	got, err := f.mem.Stores().Tasks.Get(context.Background(), f.task.ID)
	require.NoError(t, err)
	return got
}

func (f *fixture) messages(level domain.LogLevel) []string {
	var out []string
	for _, e := range f.mem.LogEntries() {
		if e.Level == level {
			out = append(out, e.Message)
		}
	}
	return out
}
