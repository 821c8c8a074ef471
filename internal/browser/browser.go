// Package browser is the narrow capability set the booking flow needs from an
// interactive web session. The orchestrator depends only on these interfaces;
// rod.go drives a real Chromium and browsertest provides a scripted double.
package browser

import (
	"context"
	"fmt"
	"strings"
)

// Strategy is how a Locator finds elements.
type Strategy string

const (
	ByCSS         Strategy = "css"
	ByLabel       Strategy = "label"
	ByPlaceholder Strategy = "placeholder"
	ByName        Strategy = "name"
	ByButton      Strategy = "button"
	ByText        Strategy = "text"
)

// Locator is one way of finding a control. Text based strategies match
// case-insensitively on a substring unless Exact is set.
type Locator struct {
	By    Strategy `yaml:"by"`
	Value string   `yaml:"value"`
	Exact bool     `yaml:"exact,omitempty"`
}

func CSS(sel string) Locator { return Locator{By: ByCSS, Value: sel} }
func Label(text string) Locator { return Locator{By: ByLabel, Value: text} }
func ExactLabel(text string) Locator { return Locator{By: ByLabel, Value: text, Exact: true} }
func Placeholder(text string) Locator { return Locator{By: ByPlaceholder, Value: text} }
func Name(name string) Locator { return Locator{By: ByName, Value: name, Exact: true} }
func Button(text string) Locator { return Locator{By: ByButton, Value: text} }
func ExactButton(text string) Locator { return Locator{By: ByButton, Value: text, Exact: true} }
func Text(text string) Locator { return Locator{By: ByText, Value: text} }

func (l Locator) String() string {
	if l.Exact {
		return fmt.Sprintf("%s=%q!", l.By, l.Value)
	}
	return fmt.Sprintf("%s=%q", l.By, l.Value)
}

func (l Locator) Validate() error {
	switch l.By {
	case ByCSS, ByLabel, ByPlaceholder, ByName, ByButton, ByText:
	default:
		return fmt.Errorf("locator %q: unknown strategy", l.By)
	}
	if strings.TrimSpace(l.Value) == "" {
		return fmt.Errorf("locator %s: empty value", l.By)
	}
	return nil
}

// Element is a located control. It stays usable after the wait that found it
// returns; each action carries its own deadline.
type Element interface {
	Click() error
	// Fill replaces the control's value.
	Fill(text string) error
	// Append adds text at the end of the control's value, as keystrokes would.
	Append(text string) error
	Attr(name string) (string, bool, error)
	Text() (string, error)
	Enabled() (bool, error)
	Checked() (bool, error)
}

// Scope is anything elements can be looked up in: a page or an embedded frame.
type Scope interface {
	// Query returns the elements matching loc right now, without waiting.
	Query(ctx context.Context, loc Locator) ([]Element, error)
}

type Session interface {
	Scope
	Navigate(ctx context.Context, url string) error
	URL(ctx context.Context) (string, error)
	// Frame returns the embedded frame whose source contains marker, or
	// ErrNoFrame when none is attached yet.
	Frame(ctx context.Context, marker string) (Scope, error)
	// ClickAt clicks the page at viewport coordinates.
	ClickAt(ctx context.Context, x, y float64) error
	Screenshot(ctx context.Context) ([]byte, error)
	// Record starts writing session frames into dir until the returned
	// Recording is stopped.
	Record(ctx context.Context, dir string) (Recording, error)
	Close() error
}

type Recording interface {
	Stop() error
}

// Launcher opens isolated sessions. Each session owns its own browser.
type Launcher interface {
	Open(ctx context.Context) (Session, error)
}
