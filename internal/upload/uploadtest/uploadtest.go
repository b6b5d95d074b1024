// Package uploadtest provides a scripted in-memory Opener for exercising the
// upload state machine and the dispatcher without a browser.
package uploadtest

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"transcripter/internal/language"
	"transcripter/internal/proxy"
	"transcripter/internal/upload"
)

// Screen is what the page shows during one probe round.
type Screen struct {
	Ready     bool
	Language  string
	Challenge bool
	Retry     bool
	// ClickFails makes every click on this screen fail.
	ClickFails bool
}

// Script drives every session opened through one proxy.
type Script struct {
	OpenErr     error
	OpenDelay   time.Duration
	SubmitErr error
	// SubmitDelay holds SubmitFile; a delay past the call's timeout fails it
	// with context.DeadlineExceeded.
	SubmitDelay time.Duration
	NoConfirm   bool
	// RevealHangs makes every Reveal wait out its timeout, as a page that
	// dropped the paragraph node would.
	RevealHangs bool
	// Screens are consumed one per probe round; the last one repeats.
	// An empty list behaves as a single ready screen.
	Screens    []Screen
	Paragraphs int
	Markup     string
}

// Opener hands out scripted sessions and records what they did.
type Opener struct {
	Page    upload.Page
	Default Script
	Scripts map[string]Script

	mu        sync.Mutex
	opens     map[string]int
	submits   map[string]int
	active    map[string]int
	maxActive int
	closed    int
	opened    int
}

// NewOpener returns an opener whose sessions follow def unless a per-proxy
// script is registered with Script.
func NewOpener(def Script) *Opener {
	return &Opener{
		Page:    upload.DefaultPage(),
		Default: def,
		Scripts: map[string]Script{},
		opens:   map[string]int{},
		submits: map[string]int{},
		active:  map[string]int{},
	}
}

// Script registers the behaviour for sessions routed through proxy id.
func (o *Opener) Script(id string, s Script) *Opener {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Scripts[id] = s
	return o
}

// Open implements upload.Opener.
func (o *Opener) Open(ctx context.Context, _ string, via proxy.Proxy) (upload.Session, error) {
	o.mu.Lock()
	script, ok := o.Scripts[via.ID()]
	if !ok {
		script = o.Default
	}
	o.opens[via.ID()]++
	o.mu.Unlock()

	if script.OpenDelay > 0 {
		select {
		case <-time.After(script.OpenDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if script.OpenErr != nil {
		return nil, script.OpenErr
	}
	o.mu.Lock()
	o.opened++
	o.mu.Unlock()
	return &session{opener: o, script: script, page: o.Page, round: -1}, nil
}

// Opens returns how many sessions were requested through proxy id.
func (o *Opener) Opens(id string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opens[id]
}

// Submits returns how many times path was submitted.
func (o *Opener) Submits(path string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.submits[path]
}

// MaxConcurrentSubmits is the largest number of sessions that were
// simultaneously between SubmitFile and Close for the same path.
func (o *Opener) MaxConcurrentSubmits() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.maxActive
}

// Unclosed returns how many successfully opened sessions were never closed.
func (o *Opener) Unclosed() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opened - o.closed
}

type element struct {
	sel   upload.Selector
	index int
}

type session struct {
	opener    *Opener
	script    Script
	page      upload.Page
	round     int
	submitted string
	closed    bool
}

func (s *session) screen() Screen {
	if len(s.script.Screens) == 0 {
		return Screen{Ready: true}
	}
	idx := s.round
	if idx < 0 {
		idx = 0
	}
	if idx >= len(s.script.Screens) {
		idx = len(s.script.Screens) - 1
	}
	return s.script.Screens[idx]
}

func (s *session) Locate(ctx context.Context, sel upload.Selector, _ time.Duration) (upload.Element, bool) {
	if ctx.Err() != nil {
		return nil, false
	}
	if sel == s.page.Ready {
		s.round++
	}
	screen := s.screen()
	switch {
	case sel == s.page.Confirm:
		return element{sel: sel}, !s.script.NoConfirm
	case sel == s.page.Ready:
		return element{sel: sel}, screen.Ready
	case sel == s.page.Challenge:
		return element{sel: sel}, screen.Challenge
	case sel == s.page.Retry:
		return element{sel: sel}, screen.Retry
	case sel == s.page.Continue:
		return element{sel: sel}, screen.Language != ""
	case sel == s.page.Transcript:
		return element{sel: sel}, true
	case sel.Kind == upload.ByID && strings.HasPrefix(sel.Value, s.page.ParagraphPrefix):
		n, err := strconv.Atoi(strings.TrimPrefix(sel.Value, s.page.ParagraphPrefix))
		return element{sel: sel, index: n}, err == nil && n < s.script.Paragraphs
	case sel.Kind == upload.ByText && screen.Language != "":
		return element{sel: sel}, language.Matches(sel.Value, screen.Language)
	default:
		return nil, false
	}
}

func (s *session) Click(ctx context.Context, el upload.Element, _ time.Duration) bool {
	if ctx.Err() != nil || el == nil {
		return false
	}
	return !s.screen().ClickFails
}

func (s *session) Reveal(ctx context.Context, el upload.Element, timeout time.Duration) error {
	if _, ok := el.(element); !ok {
		return errors.New("foreign element")
	}
	if s.script.RevealHangs {
		return hang(ctx, timeout)
	}
	return ctx.Err()
}

// hang blocks until timeout elapses or ctx ends. A zero timeout never elapses.
func hang(ctx context.Context, timeout time.Duration) error {
	if timeout <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}
	select {
	case <-time.After(timeout):
		return context.DeadlineExceeded
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *session) SubmitFile(ctx context.Context, path string, timeout time.Duration) error {
	if s.script.SubmitErr != nil {
		return s.script.SubmitErr
	}
	o := s.opener
	o.mu.Lock()
	o.submits[path]++
	o.active[path]++
	if o.active[path] > o.maxActive {
		o.maxActive = o.active[path]
	}
	o.mu.Unlock()
	s.submitted = path

	if timeout > 0 && s.script.SubmitDelay > timeout {
		return hang(ctx, timeout)
	}
	if s.script.SubmitDelay > 0 {
		select {
		case <-time.After(s.script.SubmitDelay):
		case <-ctx.Done():
		}
	}
	return nil
}

func (s *session) ReadMarkup(ctx context.Context, el upload.Element, _ time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.script.Markup != "" {
		return s.script.Markup, nil
	}
	var b strings.Builder
	b.WriteString("<div id=\"textArea\">")
	for i := 0; i < s.script.Paragraphs; i++ {
		b.WriteString("<p id=\"paragraph_" + strconv.Itoa(i) + "\">line " + strconv.Itoa(i) + "</p>")
	}
	b.WriteString("</div>")
	return b.String(), nil
}

func (s *session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	o := s.opener
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed++
	if s.submitted != "" {
		o.active[s.submitted]--
	}
	return nil
}
