package language

import "testing"

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"":          "english",
		"   ":       "english",
		"en":        "english",
		"ENG":       "english",
		"English":   "english",
		"fre":       "french",
		"Deutsch":   "deutsch",
		" spanish ": "spanish",
		"ZH":        "chinese",
	}
	for input, want := range cases {
		if got := Normalize(input); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestNormalizeFallsBackToDisplayNames(t *testing.T) {
	if got := Normalize("cs"); got != "czech" {
		t.Fatalf("Normalize(cs) = %q, want czech", got)
	}
}

func TestMatchesIgnoresCase(t *testing.T) {
	if !Matches("english", "  English ") {
		t.Fatal("expected case-insensitive match")
	}
	if Matches("english", "englishx") {
		t.Fatal("unexpected match")
	}
}

func TestDisplayNameAndCode(t *testing.T) {
	if got := DisplayName("en"); got != "English" {
		t.Fatalf("DisplayName(en) = %q", got)
	}
	if got := Code("German"); got != "de" {
		t.Fatalf("Code(German) = %q", got)
	}
	if got := Code("klingon"); got != "" {
		t.Fatalf("Code(klingon) = %q", got)
	}
}
