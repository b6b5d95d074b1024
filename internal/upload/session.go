package upload

import (
	"context"
	"time"

	"transcripter/internal/proxy"
)

// SelectorKind selects how a Selector's value is matched.
type SelectorKind int

const (
	// ByID matches the element id attribute.
	ByID SelectorKind = iota
	// ByText matches elements whose trimmed text equals the value, ignoring case.
	ByText
	// ByTextContains matches elements whose text contains the value, ignoring case.
	ByTextContains
	// ByXPath evaluates the value as an XPath expression.
	ByXPath
)

// Selector locates an element on the remote page.
type Selector struct {
	Kind  SelectorKind
	Value string
}

// ID selects the element whose id attribute equals value.
func ID(value string) Selector { return Selector{Kind: ByID, Value: value} }

// Text selects elements whose trimmed text equals value, ignoring case.
func Text(value string) Selector { return Selector{Kind: ByText, Value: value} }

// TextContains selects elements whose text includes value, ignoring case.
func TextContains(value string) Selector { return Selector{Kind: ByTextContains, Value: value} }

// XPath selects elements with a raw XPath expression.
func XPath(value string) Selector { return Selector{Kind: ByXPath, Value: value} }

// Element is an opaque handle returned by Session.Locate and only meaningful
// to the session that produced it.
type Element any

// Session is one remote browsing context routed through a single egress.
// Every call gives up once timeout elapses. Locate and Click report absence
// or failure with false; the rest return an error wrapping
// context.DeadlineExceeded.
type Session interface {
	Locate(ctx context.Context, sel Selector, timeout time.Duration) (Element, bool)
	Click(ctx context.Context, el Element, timeout time.Duration) bool
	Reveal(ctx context.Context, el Element, timeout time.Duration) error
	SubmitFile(ctx context.Context, path string, timeout time.Duration) error
	ReadMarkup(ctx context.Context, el Element, timeout time.Duration) (string, error)
	Close() error
}

// Opener starts sessions. Open returns once the upload page is usable.
type Opener interface {
	Open(ctx context.Context, url string, via proxy.Proxy) (Session, error)
}

// Page names the controls of the remote upload flow.
type Page struct {
	FileInput       Selector
	Confirm         Selector
	Ready           Selector
	Challenge       Selector
	Retry           Selector
	Continue        Selector
	Transcript      Selector
	ParagraphPrefix string
}

// DefaultPage returns the selectors of the video-to-text upload flow.
func DefaultPage() Page {
	return Page{
		FileInput:       ID("file-input"),
		Confirm:         XPath(`//div[contains(@class, 'win-confirm-button') and contains(text(), 'Upload')]`),
		Ready:           ID("transcript_button"),
		Challenge:       TextContains("checking if the site connection is secure"),
		Retry:           Text("retry"),
		Continue:        Text("continue"),
		Transcript:      ID("textArea"),
		ParagraphPrefix: "paragraph_",
	}
}

// LanguageOption selects the prompt entry for a language label.
func (p Page) LanguageOption(label string) Selector {
	return Text(label)
}
