package bot

import (
	"context"
	"fmt"

	"github.com/shuaiyuancn/2026-better-booking/internal/audit"
	"github.com/shuaiyuancn/2026-better-booking/internal/browser"
	"github.com/shuaiyuancn/2026-better-booking/internal/site"
)

// AuthFlow signs the session in. It reports whether the login form was
// submitted and, for a pre-emptive login, whether the session came back to
// the page it started on. It never panics and never returns an error: a false
// result means the caller should carry on as if still signed out.
type AuthFlow struct {
	Profile  site.Profile
	Email    string
	Password string
	Log      *audit.Logger
}

// Preemptive follows the login affordance from the current page, signs in and
// waits to land back on returnURL.
func (a AuthFlow) Preemptive(ctx context.Context, sess browser.Session, returnURL string) (ok bool) {
	defer a.recover(ctx, &ok)

	link, err := browser.First(ctx, sess, a.Profile.Timeouts.Field, a.Profile.Controls.LoginLink...)
	if err != nil {
		a.Log.Warn(ctx, "Login link disappeared", err)
		return false
	}
	if err := link.Click(); err != nil {
		a.Log.Warn(ctx, "Could not open login form", err)
		return false
	}
	if !a.submit(ctx, sess) {
		return false
	}
	if err := browser.WaitURL(ctx, sess, returnURL, a.Profile.Timeouts.Login); err != nil {
		a.Log.Warn(ctx, "Login did not return to the availability page", err)
		return false
	}
	return true
}

// Inline fills a login form already on screen and submits it.
func (a AuthFlow) Inline(ctx context.Context, sess browser.Session) (ok bool) {
	defer a.recover(ctx, &ok)
	return a.submit(ctx, sess)
}

func (a AuthFlow) submit(ctx context.Context, sess browser.Session) bool {
	c := a.Profile.Controls
	field := a.Profile.Timeouts.Field

	if a.Email == "" || a.Password == "" {
		a.Log.Warn(ctx, "Login skipped", fmt.Errorf("account has no usable email or password"))
		return false
	}

	email, err := browser.First(ctx, sess, a.Profile.Timeouts.Login, c.LoginEmail...)
	if err != nil {
		a.Log.Warn(ctx, "Login form not found", err)
		return false
	}
	if err := email.Fill(a.Email); err != nil {
		a.Log.Warn(ctx, "Could not fill login id", err)
		return false
	}
	pwd, err := browser.First(ctx, sess, field, c.LoginPassword...)
	if err == nil {
		err = pwd.Fill(a.Password)
	}
	if err != nil {
		a.Log.Warn(ctx, "Could not fill password", err)
		return false
	}
	btn, err := browser.First(ctx, sess, field, c.LoginSubmit...)
	if err == nil {
		err = btn.Click()
	}
	if err != nil {
		a.Log.Warn(ctx, "Could not submit login form", err)
		return false
	}
	return true
}

func (a AuthFlow) recover(ctx context.Context, ok *bool) {
	if p := recover(); p != nil {
		a.Log.Warn(ctx, "Login aborted", fmt.Errorf("panic: %v", p))
		*ok = false
	}
}
