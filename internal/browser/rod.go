package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/shuaiyuancn/2026-better-booking/internal/internaltypes"
)

// actionTimeout bounds a single element action. rod retries clicks until the
// element is interactable, so an unbounded action could hang a run.
const actionTimeout = 10 * time.Second

// RodLauncher starts one Chromium process per session.
type RodLauncher struct {
	Headless  bool
	Bin       string
	NoSandbox bool
}

func (l RodLauncher) Open(ctx context.Context) (Session, error) {
	ln := launcher.New().Headless(l.Headless).NoSandbox(l.NoSandbox)
	if l.Bin != "" {
		ln = ln.Bin(l.Bin)
	}
	u, err := ln.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		ln.Kill()
		ln.Cleanup()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = b.Close()
		ln.Kill()
		ln.Cleanup()
		return nil, fmt.Errorf("open page: %w", err)
	}

	base, cancel := context.WithCancel(context.Background())
	return &rodSession{
		rodScope: rodScope{page: page, base: base},
		browser:  b,
		launcher: ln,
		cancel:   cancel,
	}, nil
}

type rodSession struct {
	rodScope
	browser  *rod.Browser
	launcher *launcher.Launcher
	cancel   context.CancelFunc
}

func (s *rodSession) Navigate(ctx context.Context, url string) error {
	p := s.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return classify(ctx, fmt.Errorf("navigate %s: %w", url, err))
	}
	if err := p.WaitLoad(); err != nil {
		return classify(ctx, fmt.Errorf("load %s: %w", url, err))
	}
	return nil
}

func (s *rodSession) URL(ctx context.Context) (string, error) {
	info, err := s.page.Context(ctx).Info()
	if err != nil {
		return "", classify(ctx, err)
	}
	return info.URL, nil
}

func (s *rodSession) Frame(ctx context.Context, marker string) (Scope, error) {
	frames, err := s.page.Context(ctx).Elements("iframe")
	if err != nil {
		return nil, classify(ctx, err)
	}
	for _, f := range frames {
		src, err := f.Attribute("src")
		if err != nil || src == nil || !strings.Contains(*src, marker) {
			continue
		}
		fp, err := f.Frame()
		if err != nil {
			return nil, classify(ctx, fmt.Errorf("enter frame: %w", err))
		}
		return &rodScope{page: fp, base: s.base}, nil
	}
	return nil, ErrNoFrame
}

func (s *rodSession) ClickAt(ctx context.Context, x, y float64) error {
	p := s.page.Context(ctx)
	if err := p.Mouse.MoveTo(proto.Point{X: x, Y: y}); err != nil {
		return classify(ctx, err)
	}
	return classify(ctx, p.Mouse.Click(proto.InputMouseButtonLeft, 1))
}

func (s *rodSession) Screenshot(ctx context.Context) ([]byte, error) {
	b, err := s.page.Context(ctx).Screenshot(true, nil)
	if err != nil {
		return nil, classify(ctx, err)
	}
	return b, nil
}

func (s *rodSession) Record(ctx context.Context, dir string) (Recording, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	rctx, cancel := context.WithCancel(ctx)
	p := s.page.Context(rctx)

	rec := &rodRecording{page: s.page, cancel: cancel, done: make(chan struct{})}
	wait := p.EachEvent(func(e *proto.PageScreencastFrame) {
		n := atomic.AddInt64(&rec.frames, 1)
		_ = os.WriteFile(filepath.Join(dir, fmt.Sprintf("frame-%06d.jpg", n)), e.Data, 0o644)
		_ = proto.PageScreencastFrameAck{SessionID: e.SessionID}.Call(p)
	})

	quality, every := 60, 2
	err := proto.PageStartScreencast{
		Format:        proto.PageStartScreencastFormatJpeg,
		Quality:       &quality,
		EveryNthFrame: &every,
	}.Call(p)
	if err != nil {
		cancel()
		return nil, err
	}

	go func() {
		wait()
		close(rec.done)
	}()
	return rec, nil
}

func (s *rodSession) Close() error {
	s.cancel()
	err := s.browser.Close()
	s.launcher.Kill()
	s.launcher.Cleanup()
	return err
}

type rodRecording struct {
	page   *rod.Page
	cancel context.CancelFunc
	done   chan struct{}
	frames int64
}

func (r *rodRecording) Stop() error {
	err := proto.PageStopScreencast{}.Call(r.page)
	r.cancel()
	<-r.done
	if atomic.LoadInt64(&r.frames) == 0 && err == nil {
		err = errors.New("no frames recorded")
	}
	return err
}

// rodScope looks elements up in a page or frame. Found elements are rebound
// to base, which lives as long as the session, so they outlive the wait that
// found them.
type rodScope struct {
	page *rod.Page
	base context.Context
}

func (s *rodScope) Query(ctx context.Context, loc Locator) ([]Element, error) {
	if err := loc.Validate(); err != nil {
		return nil, err
	}
	els, err := s.page.Context(ctx).ElementsByJS(rod.Eval(queryJS, string(loc.By), loc.Value, loc.Exact))
	if err != nil {
		return nil, classify(ctx, err)
	}
	out := make([]Element, len(els))
	for i, el := range els {
		out[i] = &rodElement{el: el, base: s.base}
	}
	return out, nil
}

type rodElement struct {
	el   *rod.Element
	base context.Context
}

// bound returns the element with a fresh action deadline.
func (e *rodElement) bound() (*rod.Element, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(e.base, actionTimeout)
	return e.el.Context(ctx), cancel
}

func (e *rodElement) Click() error {
	el, cancel := e.bound()
	defer cancel()
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		// Styled checkboxes hide the real input behind their label.
		if _, jsErr := el.Eval(`() => this.click()`); jsErr != nil {
			return fmt.Errorf("%w: click: %v", internaltypes.ErrFieldInteraction, err)
		}
	}
	return nil
}

func (e *rodElement) Fill(text string) error {
	el, cancel := e.bound()
	defer cancel()
	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("%w: select: %v", internaltypes.ErrFieldInteraction, err)
	}
	if err := el.Type(input.Backspace); err != nil {
		return fmt.Errorf("%w: clear: %v", internaltypes.ErrFieldInteraction, err)
	}
	if text == "" {
		return nil
	}
	return e.Append(text)
}

func (e *rodElement) Append(text string) error {
	el, cancel := e.bound()
	defer cancel()
	if err := el.Input(text); err != nil {
		return fmt.Errorf("%w: input: %v", internaltypes.ErrFieldInteraction, err)
	}
	return nil
}

func (e *rodElement) Attr(name string) (string, bool, error) {
	el, cancel := e.bound()
	defer cancel()
	v, err := el.Attribute(name)
	if err != nil || v == nil {
		return "", false, err
	}
	return *v, true, nil
}

func (e *rodElement) Text() (string, error) {
	el, cancel := e.bound()
	defer cancel()
	return el.Text()
}

func (e *rodElement) Enabled() (bool, error) {
	el, cancel := e.bound()
	defer cancel()
	disabled, err := el.Disabled()
	if err != nil {
		return false, err
	}
	if disabled {
		return false, nil
	}
	aria, err := el.Attribute("aria-disabled")
	if err != nil {
		return false, err
	}
	return aria == nil || *aria != "true", nil
}

func (e *rodElement) Checked() (bool, error) {
	el, cancel := e.bound()
	defer cancel()
	v, err := el.Property("checked")
	if err != nil {
		return false, err
	}
	return v.Bool(), nil
}

// classify turns a wait that ran out of time into a timing error.
func classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", internaltypes.ErrTiming, err)
	}
	return err
}

// queryJS resolves a Locator inside the page. It returns matching elements in
// document order, dropping ones that are not rendered. Checkboxes and radios
// are kept because sites often hide them behind a styled label.
const queryJS = `(by, value, exact) => {
	const norm = (s) => (s || '').replace(/\s+/g, ' ').trim();
	const want = exact ? norm(value) : norm(value).toLowerCase();
	const match = (s) => exact ? norm(s) === want : norm(s).toLowerCase().includes(want);
	const all = (sel) => Array.from(document.querySelectorAll(sel));
	const shown = (el) => {
		if (el.type === 'checkbox' || el.type === 'radio') return true;
		const r = el.getBoundingClientRect();
		const st = getComputedStyle(el);
		return r.width > 0 && r.height > 0 && st.visibility !== 'hidden' && st.display !== 'none';
	};
	let found = [];
	switch (by) {
	case 'css':
		found = all(value);
		break;
	case 'label':
		for (const l of all('label')) {
			if (!match(l.textContent)) continue;
			const c = l.control || (l.htmlFor && document.getElementById(l.htmlFor));
			if (c) found.push(c);
		}
		for (const el of all('[aria-label]')) {
			if (match(el.getAttribute('aria-label'))) found.push(el);
		}
		break;
	case 'placeholder':
		found = all('[placeholder]').filter((el) => match(el.getAttribute('placeholder')));
		break;
	case 'name':
		found = all('[name]').filter((el) => match(el.getAttribute('name')));
		break;
	case 'button':
		found = all('button, [role=button], input[type=submit], input[type=button], a')
			.filter((el) => match(el.textContent || el.value || el.getAttribute('aria-label')));
		break;
	case 'text':
		found = all('body *').filter((el) =>
			match(el.textContent) && !Array.from(el.children).some((c) => match(c.textContent)));
		break;
	}
	return Array.from(new Set(found)).filter(shown);
}`
