package language

import (
	"strings"

	"golang.org/x/text/cases"
	xlanguage "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Default is the prompt label used when a project declares no language.
const Default = "english"

type entry struct {
	code2 string // ISO 639-1
	code3 string // ISO 639-2 primary
	alt3  string // ISO 639-2 alternate (e.g. "fre" vs "fra")
	label string // prompt label as rendered by the remote page, lowercase
}

var languages = []entry{
	{"en", "eng", "", "english"},
	{"es", "spa", "", "spanish"},
	{"fr", "fra", "fre", "french"},
	{"de", "deu", "ger", "german"},
	{"it", "ita", "", "italian"},
	{"pt", "por", "", "portuguese"},
	{"ja", "jpn", "", "japanese"},
	{"ko", "kor", "", "korean"},
	{"zh", "zho", "chi", "chinese"},
	{"ru", "rus", "", "russian"},
	{"ar", "ara", "", "arabic"},
	{"hi", "hin", "", "hindi"},
	{"nl", "nld", "dut", "dutch"},
	{"pl", "pol", "", "polish"},
	{"sv", "swe", "", "swedish"},
	{"da", "dan", "", "danish"},
	{"no", "nor", "", "norwegian"},
	{"fi", "fin", "", "finnish"},
	{"tr", "tur", "", "turkish"},
	{"uk", "ukr", "", "ukrainian"},
}

var index = map[string]*entry{}

func init() {
	for i := range languages {
		e := &languages[i]
		index[e.code2] = e
		index[e.code3] = e
		if e.alt3 != "" {
			index[e.alt3] = e
		}
		index[e.label] = e
	}
}

// Normalize converts a sidecar language value to its prompt label. Known
// codes and words map through the table; other valid BCP 47 tags resolve to
// their English name; anything else is lowercased and passed through. Empty
// input yields Default.
func Normalize(value string) string {
	key := strings.ToLower(strings.TrimSpace(value))
	if key == "" {
		return Default
	}
	if e, ok := index[key]; ok {
		return e.label
	}
	if len(key) <= 3 {
		if tag, err := xlanguage.Parse(key); err == nil {
			if name := display.English.Languages().Name(tag); name != "" {
				return strings.ToLower(name)
			}
		}
	}
	return key
}

// Matches reports whether text rendered by the remote page names the same
// language as label, ignoring case and surrounding whitespace.
func Matches(label, text string) bool {
	// Casers carry state; one per call keeps Matches safe for concurrent attempts.
	fold := cases.Fold()
	return fold.String(strings.TrimSpace(label)) == fold.String(strings.TrimSpace(text))
}

// DisplayName returns a title-cased language name for tables and logs.
func DisplayName(value string) string {
	return cases.Title(xlanguage.English).String(Normalize(value))
}

// Code returns the ISO 639-1 code for a recognized value, or "" when unknown.
func Code(value string) string {
	if e, ok := index[strings.ToLower(strings.TrimSpace(value))]; ok {
		return e.code2
	}
	return ""
}
