// Package browsertest is a scripted in-memory browser for tests. A test
// places elements under the exact locators the code under test will query and
// wires clicks and navigations to callbacks that change what is shown.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/shuaiyuancn/2026-better-booking/internal/browser"
	"github.com/shuaiyuancn/2026-better-booking/internal/internaltypes"
)

type Point struct{ X, Y float64 }

type Session struct {
	mu     sync.Mutex
	url    string
	page   *Scope
	frames map[string]*Scope

	// OnNavigate runs after the URL changes.
	OnNavigate func(url string)
	// OnClickAt runs after a coordinate click.
	OnClickAt func(p Point)

	FailScreenshot bool
	FailRecord     bool

	Navigations []string
	ClicksAt    []Point
	Screenshots int
	Recordings  []string
	Closed      bool
}

func NewSession() *Session {
	s := &Session{frames: make(map[string]*Scope)}
	s.page = &Scope{s: s, elems: make(map[string][]*Element)}
	return s
}

// Page is the top-level document.
func (s *Session) Page() *Scope { return s.page }

// AttachFrame adds an embedded frame whose source contains marker.
func (s *Session) AttachFrame(marker string) *Scope {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := &Scope{s: s, elems: make(map[string][]*Element)}
	s.frames[marker] = f
	return f
}

// SetURL moves the session without running OnNavigate, as a redirect would.
func (s *Session) SetURL(u string) {
	s.mu.Lock()
	s.url = u
	s.mu.Unlock()
}

func (s *Session) Query(ctx context.Context, loc browser.Locator) ([]browser.Element, error) {
	return s.page.Query(ctx, loc)
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.url = url
	s.Navigations = append(s.Navigations, url)
	cb := s.OnNavigate
	s.mu.Unlock()
	if cb != nil {
		cb(url)
	}
	return nil
}

func (s *Session) URL(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url, nil
}

func (s *Session) Frame(ctx context.Context, marker string) (browser.Scope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.frames[marker]; ok {
		return f, nil
	}
	return nil, browser.ErrNoFrame
}

func (s *Session) ClickAt(ctx context.Context, x, y float64) error {
	s.mu.Lock()
	p := Point{X: x, Y: y}
	s.ClicksAt = append(s.ClicksAt, p)
	cb := s.OnClickAt
	s.mu.Unlock()
	if cb != nil {
		cb(p)
	}
	return nil
}

func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailScreenshot {
		return nil, errors.New("screenshot failed")
	}
	s.Screenshots++
	return []byte("\x89PNG"), nil
}

func (s *Session) Record(ctx context.Context, dir string) (browser.Recording, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailRecord {
		return nil, errors.New("recording failed")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, "frame-000001.jpg"), []byte("jpg"), 0o644); err != nil {
		return nil, err
	}
	s.Recordings = append(s.Recordings, dir)
	return recording{}, nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed = true
	return nil
}

type recording struct{}

func (recording) Stop() error { return nil }

// Scope holds the elements shown in a page or frame, keyed by locator.
type Scope struct {
	s     *Session
	elems map[string][]*Element
}

// Show makes els the matches for loc, replacing earlier ones.
func (sc *Scope) Show(loc browser.Locator, els ...*Element) {
	sc.s.mu.Lock()
	defer sc.s.mu.Unlock()
	for _, e := range els {
		e.s = sc.s
	}
	sc.elems[loc.String()] = els
}

func (sc *Scope) Hide(loc browser.Locator) {
	sc.s.mu.Lock()
	defer sc.s.mu.Unlock()
	delete(sc.elems, loc.String())
}

func (sc *Scope) Query(ctx context.Context, loc browser.Locator) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sc.s.mu.Lock()
	defer sc.s.mu.Unlock()
	els := sc.elems[loc.String()]
	out := make([]browser.Element, len(els))
	for i, e := range els {
		out[i] = e
	}
	return out, nil
}

// Element is a scripted control. Read its fields only after the code under
// test has returned.
type Element struct {
	s *Session

	Name     string
	Value    string
	Attrs    map[string]string
	Content  string
	Disabled bool
	Check    bool
	// Checkable makes a click toggle Check.
	Checkable bool
	FailFill  bool

	OnClick func()

	Clicks int
}

func (e *Element) lock() func() {
	if e.s == nil {
		return func() {}
	}
	e.s.mu.Lock()
	return e.s.mu.Unlock
}

func (e *Element) Click() error {
	unlock := e.lock()
	e.Clicks++
	if e.Checkable {
		e.Check = !e.Check
	}
	cb := e.OnClick
	unlock()
	if cb != nil {
		cb()
	}
	return nil
}

func (e *Element) Fill(text string) error {
	defer e.lock()()
	if e.FailFill {
		return fmt.Errorf("%w: %s not editable", internaltypes.ErrFieldInteraction, e.Name)
	}
	e.Value = text
	return nil
}

func (e *Element) Append(text string) error {
	defer e.lock()()
	if e.FailFill {
		return fmt.Errorf("%w: %s not editable", internaltypes.ErrFieldInteraction, e.Name)
	}
	e.Value += text
	return nil
}

func (e *Element) Attr(name string) (string, bool, error) {
	defer e.lock()()
	v, ok := e.Attrs[name]
	return v, ok, nil
}

func (e *Element) Text() (string, error) {
	defer e.lock()()
	return e.Content, nil
}

func (e *Element) Enabled() (bool, error) {
	defer e.lock()()
	return !e.Disabled, nil
}

func (e *Element) Checked() (bool, error) {
	defer e.lock()()
	return e.Check, nil
}

// SetDisabled changes the enabled state from a callback.
func (e *Element) SetDisabled(d bool) {
	defer e.lock()()
	e.Disabled = d
}

// Launcher hands out one scripted session.
type Launcher struct {
	Session *Session
	Err     error
	Opened  int
}

func (l *Launcher) Open(ctx context.Context) (browser.Session, error) {
	if l.Err != nil {
		return nil, l.Err
	}
	l.Opened++
	return l.Session, nil
}
