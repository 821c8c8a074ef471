// Package bot drives one booking attempt for one task against the booking
// site. A run walks a fixed sequence of phases; each phase either continues,
// soft-stops (nothing to book yet, try again after the cooldown) or
// hard-stops (something went wrong, also retried later). Only a missing
// account or payment profile, or one that does not match the task, fails a
// task outright.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shuaiyuancn/2026-better-booking/internal/audit"
	"github.com/shuaiyuancn/2026-better-booking/internal/browser"
	"github.com/shuaiyuancn/2026-better-booking/internal/domain"
	"github.com/shuaiyuancn/2026-better-booking/internal/internaltypes"
	"github.com/shuaiyuancn/2026-better-booking/internal/site"
	"github.com/shuaiyuancn/2026-better-booking/internal/store"
	"github.com/shuaiyuancn/2026-better-booking/internal/vault"
)

const (
	PlaceholderReference = "CONFIRMED"
	PlaceholderResource  = "Auto-Assigned"
	PlaceholderPrice     = "Unknown"
)

type Outcome string

const (
	OutcomeBooked  Outcome = "booked"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
	// OutcomeRepaired means a booking already existed and only the status
	// was brought in line.
	OutcomeRepaired    Outcome = "repaired"
	OutcomeSoftStop    Outcome = "soft_stop"
	OutcomeHardStop    Outcome = "hard_stop"
	OutcomeUnconfirmed Outcome = "unconfirmed"
	// OutcomeUnrecorded means payment went through but the booking row
	// could not be written.
	OutcomeUnrecorded Outcome = "unrecorded"
)

type Phase string

const (
	PhaseStart        Phase = "start"
	PhaseResolve      Phase = "resolve"
	PhaseSession      Phase = "session"
	PhaseNavigate     Phase = "navigate"
	PhaseConsent      Phase = "consent"
	PhaseAvailability Phase = "availability"
	PhaseLogin        Phase = "login"
	PhaseSlots        Phase = "slots"
	PhaseSelect       Phase = "select"
	PhaseBookNow      Phase = "book_now"
	PhaseCheckout     Phase = "checkout"
	PhaseBilling      Phase = "billing"
	PhasePayment      Phase = "payment"
	PhaseSubmit       Phase = "submit"
	PhaseConfirmation Phase = "confirmation"
	PhaseRecord       Phase = "record"
)

// Orchestrator runs tasks. The zero value is not usable: Stores, Vault,
// Launcher, Profile and Log are required.
type Orchestrator struct {
	Stores   store.Stores
	Vault    vault.Vault
	Launcher browser.Launcher
	Profile  site.Profile
	Log      *audit.Logger
	Metrics  *Metrics

	// ArtifactsDir enables snapshots and recordings when set.
	ArtifactsDir string
	// RecordRetry governs writing a booking after payment. Zero fields take
	// defaults.
	RecordRetry RetryPolicy
	Now         func() time.Time

	unrecorded unrecorded
}

// stop ends a run early.
type stop struct {
	outcome Outcome
	msg     string
	err     error
}

func soft(msg string) *stop { return &stop{outcome: OutcomeSoftStop, msg: msg} }

func hard(msg string, err error) *stop { return &stop{outcome: OutcomeHardStop, msg: msg, err: err} }

type run struct {
	o       *Orchestrator
	task    domain.Task
	log     *audit.Logger
	phase   Phase
	sess    browser.Session
	art     *Artifacts
	account domain.Account
	payment domain.PaymentProfile
	pageURL string
}

// Run makes one booking attempt for t. It never panics and never returns an
// error; the outcome is for metrics and tests.
func (o *Orchestrator) Run(ctx context.Context, t domain.Task) (out Outcome) {
	started := o.now()
	r := &run{
		o:     o,
		task:  t,
		log:   o.Log.ForTask(t.ID, uuid.NewString()),
		phase: PhaseStart,
	}

	defer func() {
		if p := recover(); p != nil {
			r.log.Error(ctx, fmt.Sprintf("Unexpected error in bot run (phase %s)", r.phase), fmt.Errorf("panic: %v", p))
			out = OutcomeHardStop
		}
		switch out {
		case OutcomeBooked, OutcomeRepaired, OutcomeSkipped:
		default:
			if err := o.Stores.Tasks.Touch(context.WithoutCancel(ctx), t.ID, o.now()); err != nil {
				r.log.Error(ctx, "Failed to refresh last checked time", err)
			}
		}
		o.Metrics.observe(out, r.phase, o.now().Sub(started).Seconds())
	}()

	return r.execute(ctx)
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (r *run) execute(ctx context.Context) Outcome {
	t := r.task
	r.log.Info(ctx, fmt.Sprintf("Starting task %d for %s on %s", t.ID, t.Facility, t.Date()))

	switch t.Status {
	case domain.StatusRunning:
	case domain.StatusPending:
		if err := r.o.Stores.Tasks.Transition(ctx, t.ID, domain.StatusPending, domain.StatusRunning); err != nil {
			r.log.Warn(ctx, "Could not claim task", err)
			return OutcomeSkipped
		}
		r.task.Status = domain.StatusRunning
	default:
		r.log.Info(ctx, fmt.Sprintf("Task is %s; nothing to do", t.Status))
		return OutcomeSkipped
	}

	if out, done := r.flushUnrecorded(context.WithoutCancel(ctx)); done {
		return out
	}
	if out, done := r.guardExistingBooking(ctx); done {
		return out
	}

	r.phase = PhaseResolve
	if err := r.resolve(ctx); err != nil {
		if !errors.Is(err, internaltypes.ErrConfiguration) {
			r.log.Error(ctx, "Could not load account or payment profile", err)
			return OutcomeHardStop
		}
		r.log.Error(ctx, fmt.Sprintf("Failed to fetch user/payment for task %d", t.ID), err)
		if terr := r.o.Stores.Tasks.Transition(ctx, t.ID, domain.StatusRunning, domain.StatusFailed); terr != nil {
			r.log.Error(ctx, "Could not mark task failed", terr)
		}
		return OutcomeFailed
	}

	r.phase = PhaseSession
	sess, err := r.o.Launcher.Open(ctx)
	if err != nil {
		r.log.Error(ctx, "Could not start browser session", err)
		return OutcomeHardStop
	}
	defer func() {
		if err := sess.Close(); err != nil {
			r.log.Warn(ctx, "Browser session did not close cleanly", err)
		}
	}()
	r.sess = sess

	r.art = StartArtifacts(ctx, r.o.ArtifactsDir, sess, r.log, t.ID, r.o.now())
	defer r.art.Close(ctx)

	phases := []struct {
		phase Phase
		fn    func(context.Context) *stop
	}{
		{PhaseNavigate, r.navigate},
		{PhaseConsent, r.consent},
		{PhaseAvailability, r.availability},
		{PhaseLogin, r.preemptiveLogin},
		{PhaseSlots, r.chooseAndBook},
		{PhaseCheckout, r.checkout},
		{PhaseBilling, r.billing},
		{PhasePayment, r.pay},
		{PhaseSubmit, r.submit},
		{PhaseConfirmation, r.confirm},
	}
	for _, p := range phases {
		r.phase = p.phase
		if s := p.fn(ctx); s != nil {
			return r.finish(ctx, s)
		}
	}
	return OutcomeBooked
}

func (r *run) finish(ctx context.Context, s *stop) Outcome {
	if s.outcome == OutcomeSoftStop {
		r.log.Info(ctx, s.msg)
	} else {
		r.log.Error(ctx, s.msg, s.err)
	}
	return s.outcome
}

// guardExistingBooking keeps booking at most once: a task that already has a
// booking is only moved to SUCCESS, and a task whose booking state cannot be
// read is not driven at all.
func (r *run) guardExistingBooking(ctx context.Context) (Outcome, bool) {
	b, err := r.o.Stores.Bookings.ForTask(ctx, r.task.ID)
	switch {
	case errors.Is(err, internaltypes.ErrNotFound):
		return "", false
	case err != nil:
		r.log.Error(ctx, "Could not check for an existing booking", err)
		return OutcomeHardStop, true
	}
	r.log.Warn(ctx, fmt.Sprintf("Booking %s already recorded for this task; marking it successful", b.Reference), nil)
	if err := r.o.Stores.Tasks.Transition(ctx, r.task.ID, domain.StatusRunning, domain.StatusSuccess); err != nil {
		r.log.Error(ctx, "Could not mark task successful", err)
	}
	return OutcomeRepaired, true
}

// resolve loads the task's account and payment profile. A missing row is a
// configuration error; anything else is a store failure worth retrying.
func (r *run) resolve(ctx context.Context) error {
	acct, err := r.o.Stores.Accounts.Get(ctx, r.task.AccountID)
	if err != nil {
		return missing(fmt.Sprintf("account %d", r.task.AccountID), err)
	}
	pay, err := r.o.Stores.Payments.Get(ctx, r.task.PaymentProfileID)
	if err != nil {
		return missing(fmt.Sprintf("payment profile %d", r.task.PaymentProfileID), err)
	}
	if pay.AccountID != 0 && acct.ID != 0 && pay.AccountID != acct.ID {
		return fmt.Errorf("%w: payment profile %d belongs to account %d", internaltypes.ErrConfiguration, pay.ID, pay.AccountID)
	}
	r.account, r.payment = acct, pay
	return nil
}

func missing(what string, err error) error {
	if errors.Is(err, internaltypes.ErrNotFound) {
		return fmt.Errorf("%w: %s not found", internaltypes.ErrConfiguration, what)
	}
	return fmt.Errorf("load %s: %w", what, err)
}

func (r *run) navigate(ctx context.Context) *stop {
	r.pageURL = r.o.Profile.AvailabilityURL(r.task)
	r.log.Info(ctx, "Checking URL: "+r.pageURL)

	nctx, cancel := context.WithTimeout(ctx, r.o.Profile.Timeouts.Navigate)
	defer cancel()
	if err := r.sess.Navigate(nctx, r.pageURL); err != nil {
		return hard("Could not load availability page", err)
	}
	r.art.Snapshot(ctx, CheckpointPageLoad)
	return nil
}

func (r *run) consent(ctx context.Context) *stop {
	p := r.o.Profile
	btn, err := browser.First(ctx, r.sess, p.Timeouts.Consent, p.Controls.CookieAccept...)
	if err != nil {
		return nil
	}
	if err := btn.Click(); err != nil {
		r.log.Zerolog().Debug().Err(err).Msg("cookie consent click failed")
	}
	return nil
}

func (r *run) availability(ctx context.Context) *stop {
	if browser.Exists(ctx, r.sess, r.o.Profile.Controls.NoResults...) {
		r.art.Snapshot(ctx, CheckpointSlotsNotFound)
		return soft("No slots found.")
	}
	return nil
}

func (r *run) auth() AuthFlow {
	return AuthFlow{
		Profile:  r.o.Profile,
		Email:    r.account.Email,
		Password: r.o.Vault.Decrypt(r.account.PasswordEncrypted),
		Log:      r.log,
	}
}

func (r *run) preemptiveLogin(ctx context.Context) *stop {
	if !browser.Exists(ctx, r.sess, r.o.Profile.Controls.LoginLink...) {
		return nil
	}
	r.log.Info(ctx, "Logging in before choosing a slot...")
	if !r.auth().Preemptive(ctx, r.sess, r.returnMarker()) {
		r.log.Warn(ctx, "Pre-emptive login failed; will retry if asked", nil)
	}
	if u, err := r.sess.URL(ctx); err != nil || !strings.Contains(u, r.returnMarker()) {
		nctx, cancel := context.WithTimeout(ctx, r.o.Profile.Timeouts.Navigate)
		defer cancel()
		if err := r.sess.Navigate(nctx, r.pageURL); err != nil {
			return hard("Could not return to availability page after login", err)
		}
	}
	return nil
}

// returnMarker identifies the availability page regardless of query string.
func (r *run) returnMarker() string {
	u := r.pageURL
	if i := strings.Index(u, "/location/"); i >= 0 {
		return u[i:]
	}
	return u
}

func (r *run) chooseAndBook(ctx context.Context) *stop {
	p := r.o.Profile

	els, err := browser.All(ctx, r.sess, p.Timeouts.Slots, p.Controls.Slots...)
	if err != nil || len(els) == 0 {
		r.art.Snapshot(ctx, CheckpointSlotsNotFound)
		return soft("Timeout waiting for slots (or none visible).")
	}
	r.art.Snapshot(ctx, CheckpointSlotsFound)

	r.phase = PhaseSelect
	if r.task.PreferredStart != "" {
		r.log.Info(ctx, fmt.Sprintf("Looking for slot starting at %s...", r.task.PreferredStart))
	}
	el, slot, ok := SelectSlot(r.task.PreferredStart, els)
	if !ok {
		if r.task.PreferredStart != "" {
			return soft(fmt.Sprintf("No slot found matching time %s.", r.task.PreferredStart))
		}
		return soft("No booking slots found.")
	}

	r.log.Info(ctx, "Clicking slot "+slot.ID)
	if err := el.Click(); err != nil {
		return hard("Could not click slot", err)
	}

	r.phase = PhaseBookNow
	return r.bookNow(ctx)
}

func (r *run) bookNow(ctx context.Context) *stop {
	p := r.o.Profile
	btn, err := browser.First(ctx, r.sess, p.Timeouts.BookNow, p.Controls.BookNow...)
	full := browser.Exists(ctx, r.sess, p.Controls.SessionFull...)
	if err != nil && !full {
		return hard("Could not click 'Book now' (maybe disabled/court selection needed?)", err)
	}
	if !full {
		enabled, eerr := btn.Enabled()
		full = eerr == nil && !enabled
	}

	if full {
		if s := r.substituteResource(ctx); s != nil {
			return s
		}
		btn, err = browser.First(ctx, r.sess, p.Timeouts.BookNow, p.Controls.BookNow...)
		if err != nil {
			return hard("Could not find 'Book now' after choosing another court", err)
		}
		if enabled, _ := btn.Enabled(); !enabled {
			return hard("'Book now' still disabled after choosing another court", nil)
		}
	}

	if err := btn.Click(); err != nil {
		return hard("Could not click 'Book now'", err)
	}
	return nil
}

// substituteResource picks the last alternative resource the page offers.
func (r *run) substituteResource(ctx context.Context) *stop {
	c := r.o.Profile.Controls
	field := r.o.Profile.Timeouts.Field

	r.log.Info(ctx, "Selected court is full; choosing another")
	if len(c.ResourceToggle) > 0 {
		if toggle, err := browser.First(ctx, r.sess, field, c.ResourceToggle...); err == nil {
			if err := toggle.Click(); err != nil {
				r.log.Warn(ctx, "Could not open court list", err)
			}
		}
	}
	options, err := browser.All(ctx, r.sess, field, c.ResourceOption...)
	if err != nil {
		return hard("Session full and no alternative court offered", err)
	}
	last := options[len(options)-1]
	label, _ := last.Text()
	if err := last.Click(); err != nil {
		return hard("Could not choose alternative court", err)
	}
	r.log.Info(ctx, fmt.Sprintf("Chose alternative court %q (%d offered)", strings.TrimSpace(label), len(options)))
	r.art.Snapshot(ctx, CheckpointResourceSubstituted)
	return nil
}

// checkout waits for the checkout page, signing in first if the site asks.
func (r *run) checkout(ctx context.Context) *stop {
	p := r.o.Profile
	marker := p.Markers.Checkout

	cctx, cancel := context.WithTimeout(ctx, p.Timeouts.Checkout)
	defer cancel()
	for {
		if u, err := r.sess.URL(cctx); err == nil && strings.Contains(u, marker) {
			break
		}
		if browser.Exists(cctx, r.sess, p.Controls.LoginEmail...) {
			r.phase = PhaseLogin
			r.log.Info(ctx, "Logging in...")
			if !r.auth().Inline(ctx, r.sess) {
				r.log.Warn(ctx, "Login failed; continuing", nil)
			}
			if btn, err := browser.First(ctx, r.sess, p.Timeouts.BookNow, p.Controls.BookNow...); err == nil {
				if err := btn.Click(); err != nil {
					r.log.Warn(ctx, "Could not click 'Book now' after login", err)
				}
			}
			r.phase = PhaseCheckout
			break
		}
		select {
		case <-cctx.Done():
			return hard("Failed to reach checkout page.", fmt.Errorf("%w: %v", internaltypes.ErrTiming, cctx.Err()))
		case <-time.After(browser.PollInterval):
		}
	}

	if err := browser.WaitURL(ctx, r.sess, marker, p.Timeouts.Checkout); err != nil {
		return hard("Failed to reach checkout page.", err)
	}
	r.log.Info(ctx, "At Checkout. Filling billing details...")
	return nil
}

func (r *run) billing(ctx context.Context) *stop {
	f := CheckoutFiller{Profile: r.o.Profile, Log: r.log}
	if err := f.Fill(ctx, r.sess, r.account, r.payment); err != nil {
		return hard("Could not select payment with a new card", err)
	}
	return nil
}

func (r *run) pay(ctx context.Context) *stop {
	r.log.Info(ctx, "Filling Card Details...")
	v := r.o.Vault
	card := Card{
		Name:   r.payment.CardholderName,
		Number: v.Decrypt(r.payment.CardNumberEncrypted),
		Expiry: r.payment.Expiry(),
		CVV:    v.Decrypt(r.payment.CVVEncrypted),
	}
	if err := (PaymentFrameFiller{Profile: r.o.Profile}).Fill(ctx, r.sess, card); err != nil {
		return hard("Error filling payment frame", err)
	}
	r.art.Snapshot(ctx, CheckpointPaymentFilled)
	return nil
}

func (r *run) submit(ctx context.Context) *stop {
	p := r.o.Profile
	r.log.Info(ctx, "Finalizing...")

	terms, err := browser.First(ctx, r.sess, p.Timeouts.Field, p.Controls.Terms...)
	if err == nil {
		err = browser.SetChecked(terms, true)
	}
	if err != nil {
		return hard("Could not accept terms and conditions", err)
	}

	btn, err := browser.First(ctx, r.sess, p.Timeouts.Field, p.Controls.PayNow...)
	if err != nil {
		return hard("Could not find 'Pay now'", err)
	}
	if enabled, _ := btn.Enabled(); !enabled {
		// A click on empty space blurs the last field and runs validation.
		if err := r.sess.ClickAt(ctx, 0, 0); err != nil {
			r.log.Warn(ctx, "Neutral click failed", err)
		}
		select {
		case <-ctx.Done():
			return hard("Run cancelled", ctx.Err())
		case <-time.After(p.Timeouts.Settle):
		}
		if enabled, _ := btn.Enabled(); !enabled {
			return hard("Pay Now button is still disabled after filling.", fmt.Errorf("%w: pay now disabled", internaltypes.ErrFieldInteraction))
		}
	}
	r.art.Snapshot(ctx, CheckpointPrePay)

	if err := btn.Click(); err != nil {
		return hard("Could not click 'Pay now'", err)
	}
	return nil
}

func (r *run) confirm(ctx context.Context) *stop {
	p := r.o.Profile
	if err := browser.WaitURL(ctx, r.sess, p.Markers.Confirmation, p.Timeouts.Confirmation); err != nil {
		r.art.Snapshot(ctx, CheckpointConfirmationTimeout)
		return &stop{
			outcome: OutcomeUnconfirmed,
			msg:     "Timeout waiting for confirmation. Payment may have been taken; check the account before this task retries.",
			err:     err,
		}
	}
	r.art.Snapshot(ctx, CheckpointConfirmation)

	// Payment has gone through; the record is written even if the worker is
	// shutting down.
	r.phase = PhaseRecord
	wctx := context.WithoutCancel(ctx)
	b := domain.Booking{
		TaskID:    r.task.ID,
		Reference: r.scrape(ctx, p.Controls.Reference, PlaceholderReference),
		Resource:  PlaceholderResource,
		Price:     r.scrape(ctx, p.Controls.Price, PlaceholderPrice),
		BookedAt:  r.o.now().UTC(),
	}
	if err := r.record(wctx, b); err != nil {
		if !errors.Is(err, internaltypes.ErrDuplicate) {
			return r.recordLater(wctx, b, err)
		}
		r.log.Warn(ctx, "Booking was already recorded for this task", err)
	}
	if err := r.o.Stores.Tasks.Transition(wctx, r.task.ID, domain.StatusRunning, domain.StatusSuccess); err != nil {
		// Most likely STOPPED while the run was in flight.
		r.log.Error(ctx, "Booking recorded but task status could not be set to SUCCESS", err)
	}
	r.log.Info(ctx, "Booking Successful!")
	return nil
}

// scrape reads a value from the confirmation page, falling back to def.
func (r *run) scrape(ctx context.Context, locs []browser.Locator, def string) string {
	if len(locs) == 0 {
		return def
	}
	el, err := browser.First(ctx, r.sess, r.o.Profile.Timeouts.Field, locs...)
	if err != nil {
		return def
	}
	text, err := el.Text()
	if text = strings.TrimSpace(text); err != nil || text == "" {
		return def
	}
	return text
}
