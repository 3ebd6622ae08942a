package dedupe

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// unicodeEscapePattern matches the <U+XXXX> hex codepoint escapes some
// exporters emit in place of non-ASCII characters. Compiled once for the
// process and read-only afterwards.
var unicodeEscapePattern = regexp.MustCompile(`<U\+([0-9A-Fa-f]+)>`)

// titleReplacements is applied in order to lowercased titles. It strips HTML
// sup/sub markup and folds the Greek-letter spellings that vary between
// databases indexing the same article.
var titleReplacements = [...][2]string{
	{"&lt;", "<"},
	{"&gt;", ">"},
	{"<sup>", ""},
	{"</sup>", ""},
	{"<sub>", ""},
	{"</sub>", ""},
	{"<inf>", ""},
	{"</inf>", ""},
	{"beta", "b"},
	{"alpha", "a"},
	{"α", "a"},
	{"ß", "b"},
	{"γ", "g"},
}

// issnAnnotations are the publisher qualifiers stripped before validation.
var issnAnnotations = strings.NewReplacer("(Electronic)", "", "(Linking)", "", "(Print)", "")

// expandUnicodeEscapes replaces <U+XXXX> escapes with the characters they
// name. An escape that does not name a valid codepoint is left as written.
func expandUnicodeEscapes(s string) string {
	return unicodeEscapePattern.ReplaceAllStringFunc(s, func(match string) string {
		hex := match[len("<U+") : len(match)-1]
		code, err := strconv.ParseUint(hex, 16, 32)
		if err != nil || !utf8.ValidRune(rune(code)) {
			return match
		}
		return string(rune(code))
	})
}

// normalizeTitle converts a raw title to its comparison form: unicode escapes
// expanded, lowercased, markup and Greek variants folded, everything but
// letters and digits dropped. An empty raw title cannot be normalized and is
// reported as an invalid citation; a title that merely normalizes to the
// empty string is valid.
func normalizeTitle(title string) (string, error) {
	if title == "" {
		return "", fmt.Errorf("%w: empty title", ErrInvalidCitation)
	}
	s := strings.ToLower(strings.TrimSpace(expandUnicodeEscapes(title)))
	for _, r := range titleReplacements {
		s = strings.ReplaceAll(s, r[0], r[1])
	}
	return keepAlphanumeric(s), nil
}

// formatJournalName reduces a journal name to its comparison form. Conference
// proceedings append session metadata after a ". Conference" marker, so the
// name is truncated there first. A nil name stays nil; an empty name becomes
// the empty string, a real "no journal" value that can still compare equal.
func formatJournalName(name *string) *string {
	if name == nil {
		return nil
	}
	s, _, _ := strings.Cut(*name, ". Conference")
	s = keepAlphanumeric(strings.ToLower(strings.TrimSpace(s)))
	return &s
}

// normalizeVolume extracts the first run of ASCII digits from a raw volume,
// tolerating publisher annotations like "74 Suppl 1" or "Part A. 242".
// Returns the empty string when the volume has no digits.
func normalizeVolume(volume string) string {
	start := -1
	for i, r := range volume {
		if r >= '0' && r <= '9' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			return volume[start:i]
		}
	}
	if start >= 0 {
		return volume[start:]
	}
	return ""
}

// formatISSN validates and canonicalizes an ISSN to XXXX-XXXX form. After
// stripping annotations exactly two shapes are accepted: eight digits (or a
// trailing X) with a hyphen at position four, or eight without a hyphen.
// Anything else is rejected, not repaired.
func formatISSN(issn string) (string, bool) {
	clean := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '-' || r == 'X' {
			return r
		}
		return -1
	}, issnAnnotations.Replace(strings.TrimSpace(issn)))

	digits := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == 'X' {
			return r
		}
		return -1
	}, clean)

	switch {
	case len(clean) == 9 && len(digits) == 8 && clean[4] == '-':
		return clean, true
	case len(clean) == 8 && len(digits) == 8:
		return digits[:4] + "-" + digits[4:], true
	default:
		return "", false
	}
}

// keepAlphanumeric drops every rune that is not a letter or a number.
func keepAlphanumeric(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
