package browser

import (
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"

	"transcripter/internal/upload"
)

const (
	upperAlpha = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerAlpha = "abcdefghijklmnopqrstuvwxyz"
)

// query translates a selector into a chromedp query and its option.
func query(sel upload.Selector) (string, chromedp.QueryOption) {
	switch sel.Kind {
	case upload.ByID:
		return fmt.Sprintf("[id=%q]", sel.Value), chromedp.ByQuery
	case upload.ByText:
		return textXPath(sel.Value, false), chromedp.BySearch
	case upload.ByTextContains:
		return textXPath(sel.Value, true), chromedp.BySearch
	default:
		return sel.Value, chromedp.BySearch
	}
}

// textXPath matches elements owning a text node equal to, or containing,
// needle after whitespace normalization, ignoring ASCII case.
func textXPath(needle string, contains bool) string {
	folded := xpathLiteral(strings.ToLower(strings.Join(strings.Fields(needle), " ")))
	text := fmt.Sprintf("translate(normalize-space(.), '%s', '%s')", upperAlpha, lowerAlpha)
	if contains {
		return fmt.Sprintf("//*[text()[contains(%s, %s)]]", text, folded)
	}
	return fmt.Sprintf("//*[text()[%s = %s]]", text, folded)
}

// xpathLiteral quotes s for XPath 1.0, which has no escape sequences.
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	quoted := make([]string, 0, 2*len(parts))
	for i, part := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		quoted = append(quoted, "'"+part+"'")
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}
