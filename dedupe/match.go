package dedupe

import (
	"github.com/xrash/smetrics"

	"github.com/matsen/citedupe/citation"
)

// Title similarity thresholds. A shared DOI is strong but not absolute
// evidence (typos and placeholder DOIs exist), so DOI equality is always
// corroborated by title similarity plus at least one bibliographic field.
// Citations without DOIs need materially higher title similarity instead.
const (
	doiTitleSimilarity    = 0.85
	noDOITitleSimilarity  = 0.93
	strictTitleSimilarity = 0.99
)

// Jaro-Winkler parameters: the standard 0.7 boost threshold and 4-rune prefix.
const (
	jwBoostThreshold = 0.7
	jwPrefixSize     = 4
)

// normalizedCitation is the comparison-ready view of one citation. Views live
// for a single bucket's matching pass and are discarded after clustering.
type normalizedCitation struct {
	original *citation.Citation
	index    int // position in the caller's input slice
	title    string
	journal  *string // nil when the citation has no journal
	abbrev   *string
	issn     []string
	volume   string // "" when absent or without digits
}

// normalizeCitation builds the comparison view for one citation. index is the
// citation's position in the caller's input, used for source-label lookup.
func normalizeCitation(c *citation.Citation, index int) (normalizedCitation, error) {
	title, err := normalizeTitle(c.Title)
	if err != nil {
		return normalizedCitation{}, err
	}
	view := normalizedCitation{
		original: c,
		index:    index,
		title:    title,
		journal:  formatJournalName(c.Journal),
		abbrev:   formatJournalName(c.JournalAbbr),
	}
	if c.Volume != nil {
		view.volume = normalizeVolume(*c.Volume)
	}
	for _, issn := range c.ISSN {
		if formatted, ok := formatISSN(issn); ok {
			view.issn = append(view.issn, formatted)
		}
	}
	return view, nil
}

// isDuplicate decides whether two citations describe the same publication.
func isDuplicate(a, b *normalizedCitation) bool {
	journalMatch := journalsMatch(a, b)
	issnMatch := matchISSNs(a.issn, b.issn)
	volumeMatch := a.volume != "" && b.volume != "" && a.volume == b.volume
	pagesMatch := optEqual(a.original.Pages, b.original.Pages)
	yearMatch := yearsEqual(a.original.Year, b.original.Year)

	doiA, doiB := a.original.DOI, b.original.DOI
	if doiA != nil && *doiA != "" && doiB != nil && *doiB != "" {
		doisEqual := *doiA == *doiB
		similarity := jaroSimilarity(a.title, b.title)

		// Same DOI with a journal or ISSN match; same DOI with near-identical
		// titles and a volume or pages match; or, even across differing DOIs,
		// near-identical titles with every other field agreeing.
		return (doisEqual && similarity >= doiTitleSimilarity && (journalMatch || issnMatch)) ||
			(doisEqual && similarity >= strictTitleSimilarity && (volumeMatch || pagesMatch)) ||
			(similarity >= strictTitleSimilarity && yearMatch && (volumeMatch || pagesMatch) && (journalMatch || issnMatch))
	}

	// Jaro-Winkler's prefix bonus tolerates titles that differ only by a
	// trailing subtitle or punctuation.
	similarity := jaroWinklerSimilarity(a.title, b.title)

	return (similarity >= noDOITitleSimilarity && (volumeMatch || pagesMatch) && (journalMatch || issnMatch)) ||
		(similarity >= strictTitleSimilarity && yearMatch && volumeMatch && pagesMatch)
}

// Equal normalized titles score 1 without consulting smetrics. That covers
// two titles that normalized to the empty string, which smetrics would score
// 0 even though they are equal comparison forms. smetrics compares byte
// sequences, so titles keeping non-ASCII letters after folding can score
// slightly differently near the thresholds than a rune-wise comparison.
func jaroSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	return smetrics.Jaro(a, b)
}

func jaroWinklerSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	return smetrics.JaroWinkler(a, b, jwBoostThreshold, jwPrefixSize)
}

// journalsMatch compares normalized journal names and abbreviations,
// including full-name to abbreviation cross matches. A side with no journal
// never matches; an empty-but-present journal can.
func journalsMatch(a, b *normalizedCitation) bool {
	return optEqual(a.journal, b.journal) ||
		optEqual(a.abbrev, b.abbrev) ||
		optEqual(a.journal, b.abbrev) ||
		optEqual(a.abbrev, b.journal)
}

// matchISSNs reports whether the two normalized ISSN lists intersect.
func matchISSNs(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

// yearsEqual treats two absent years as equal.
func yearsEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// optEqual reports whether both values are present and equal.
func optEqual(a, b *string) bool {
	return a != nil && b != nil && *a == *b
}
