// Package citation defines the core domain types for bibliographic citations.
package citation

// Author represents an author of a citation.
type Author struct {
	FamilyName  string  `json:"family_name"`           // Family name (surname)
	GivenName   string  `json:"given_name"`            // Given name (first name)
	Affiliation *string `json:"affiliation,omitempty"` // Optional affiliation
}

// Citation represents a single bibliographic record with its metadata.
//
// Records come from upstream parsers (RIS, PubMed, EndNote XML, CSV) and are
// never mutated by this library. Optional fields are pointers so that an
// absent value is distinguishable from a present-but-empty one.
type Citation struct {
	Type        []string            `json:"citation_type,omitempty"` // Record types, e.g. "JOUR"
	Title       string              `json:"title"`
	Authors     []Author            `json:"authors,omitempty"`
	Journal     *string             `json:"journal,omitempty"`      // Full journal name
	JournalAbbr *string             `json:"journal_abbr,omitempty"` // Journal abbreviation
	Year        *int                `json:"year,omitempty"`         // Publication year
	Volume      *string             `json:"volume,omitempty"`
	Issue       *string             `json:"issue,omitempty"`
	Pages       *string             `json:"pages,omitempty"` // Page range, compared verbatim
	ISSN        []string            `json:"issn,omitempty"`
	DOI         *string             `json:"doi,omitempty"`
	PMID        *string             `json:"pmid,omitempty"`
	PMCID       *string             `json:"pmc_id,omitempty"`
	Abstract    *string             `json:"abstract_text,omitempty"`
	Keywords    []string            `json:"keywords,omitempty"`
	URLs        []string            `json:"urls,omitempty"`
	Language    *string             `json:"language,omitempty"`
	MeSHTerms   []string            `json:"mesh_terms,omitempty"`
	Publisher   *string             `json:"publisher,omitempty"`
	ExtraFields map[string][]string `json:"extra_fields,omitempty"` // Fields with no standard slot
	Source      *string             `json:"source,omitempty"`       // Provenance label, e.g. "PubMed"
}

// DuplicateGroup pairs one canonical citation with the duplicates detected
// for it. A group with no duplicates is a citation that matched nothing.
// The unique citation is never also present in Duplicates.
type DuplicateGroup struct {
	Unique     Citation   `json:"unique"`
	Duplicates []Citation `json:"duplicates"`
}

// Clone returns a deep copy of the citation. The copy shares no slices, maps,
// or pointed-to values with the original.
func (c Citation) Clone() Citation {
	clone := c
	clone.Type = cloneStrings(c.Type)
	clone.Authors = cloneAuthors(c.Authors)
	clone.Journal = cloneString(c.Journal)
	clone.JournalAbbr = cloneString(c.JournalAbbr)
	clone.Year = cloneInt(c.Year)
	clone.Volume = cloneString(c.Volume)
	clone.Issue = cloneString(c.Issue)
	clone.Pages = cloneString(c.Pages)
	clone.ISSN = cloneStrings(c.ISSN)
	clone.DOI = cloneString(c.DOI)
	clone.PMID = cloneString(c.PMID)
	clone.PMCID = cloneString(c.PMCID)
	clone.Abstract = cloneString(c.Abstract)
	clone.Keywords = cloneStrings(c.Keywords)
	clone.URLs = cloneStrings(c.URLs)
	clone.Language = cloneString(c.Language)
	clone.MeSHTerms = cloneStrings(c.MeSHTerms)
	clone.Publisher = cloneString(c.Publisher)
	clone.ExtraFields = cloneExtraFields(c.ExtraFields)
	clone.Source = cloneString(c.Source)
	return clone
}

// Clone returns a deep copy of the author.
func (a Author) Clone() Author {
	clone := a
	clone.Affiliation = cloneString(a.Affiliation)
	return clone
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func cloneAuthors(authors []Author) []Author {
	if authors == nil {
		return nil
	}
	out := make([]Author, len(authors))
	for i, a := range authors {
		out[i] = a.Clone()
	}
	return out
}

func cloneExtraFields(fields map[string][]string) map[string][]string {
	if fields == nil {
		return nil
	}
	out := make(map[string][]string, len(fields))
	for k, v := range fields {
		out[k] = cloneStrings(v)
	}
	return out
}
