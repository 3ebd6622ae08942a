// Package dedupe identifies duplicate bibliographic citations.
//
// Citations are compared pairwise after normalization using DOI-aware and
// DOI-less rule sets built on title similarity, journal names, ISSNs,
// volumes, pages, and years. Matches are grouped by a greedy single pass and
// each group gets one canonical citation chosen by source preference,
// abstract presence, and DOI presence. Year-based partitioning bounds the
// quadratic comparison cost and enables parallel processing of the year
// buckets.
//
//	dedup := dedupe.New().WithConfig(dedupe.Config{
//		GroupByYear:       true,
//		RunInParallel:     true,
//		SourcePreferences: []string{"PubMed", "Embase"},
//	})
//	groups, err := dedup.FindDuplicates(citations)
//
// Group membership is deterministic for a given input and configuration, but
// the order of groups in the output is not: it depends on bucket iteration
// and, in parallel mode, on scheduling.
package dedupe

import (
	"errors"
	"fmt"
	"sync"

	"github.com/matsen/citedupe/citation"
)

// Engine errors. Callers test with errors.Is.
var (
	// ErrInvalidCitation reports a citation whose required field could not be
	// normalized, in practice an empty title from malformed upstream parsing.
	ErrInvalidCitation = errors.New("invalid citation")
	// ErrProcessing reports an internal normalization failure. Currently
	// unused: it is reserved for defensive failures that a well-formed
	// citation should never trigger.
	ErrProcessing = errors.New("processing failed")
	// ErrConfig reports an invalid configuration or source-label list.
	ErrConfig = errors.New("invalid configuration")
)

// noSourceLabel fills in for citations beyond the end of a caller-supplied
// source-label list.
const noSourceLabel = "no source"

// maxBucketWorkers bounds concurrent year-bucket processing.
const maxBucketWorkers = 8

// Config controls partitioning, parallelism, and canonical selection.
type Config struct {
	// GroupByYear partitions citations by publication year before matching,
	// so only citations from the same year are compared. A significant
	// speedup for large batches; on by default.
	GroupByYear bool
	// RunInParallel processes year buckets concurrently. Only meaningful
	// together with GroupByYear and forced off without it.
	RunInParallel bool
	// SourcePreferences ranks provenance labels for canonical selection,
	// highest priority first. Empty means no preference.
	SourcePreferences []string
}

// DefaultConfig returns the default configuration: year grouping on, parallel
// processing off, no source preferences.
func DefaultConfig() Config {
	return Config{GroupByYear: true}
}

// Deduplicator groups citations that describe the same publication.
type Deduplicator struct {
	config Config
}

// New returns a Deduplicator with the default configuration.
func New() *Deduplicator {
	return &Deduplicator{config: DefaultConfig()}
}

// WithConfig replaces the configuration and returns the deduplicator.
// RunInParallel is forced off when GroupByYear is disabled, since parallelism
// only applies to year buckets.
func (d *Deduplicator) WithConfig(cfg Config) *Deduplicator {
	if !cfg.GroupByYear {
		cfg.RunInParallel = false
	}
	d.config = cfg
	return d
}

// FindDuplicates analyzes the citations and returns groups of duplicates,
// one canonical citation per group. The input is never mutated; returned
// groups hold independent copies. Source labels for canonical selection come
// from each citation's Source field.
//
// On error no groups are returned: the whole call is all-or-nothing.
func (d *Deduplicator) FindDuplicates(citations []citation.Citation) ([]citation.DuplicateGroup, error) {
	sources := make([]string, len(citations))
	for i, c := range citations {
		if c.Source != nil {
			sources[i] = *c.Source
		} else {
			sources[i] = noSourceLabel
		}
	}
	return d.run(citations, sources)
}

// FindDuplicatesWithSources is FindDuplicates with source labels supplied
// positionally instead of read from the citations. A label list longer than
// the citations is a configuration error; a shorter one is padded with
// "no source".
func (d *Deduplicator) FindDuplicatesWithSources(citations []citation.Citation, sourceLabels []string) ([]citation.DuplicateGroup, error) {
	if len(sourceLabels) > len(citations) {
		return nil, fmt.Errorf("%w: %d source labels for %d citations", ErrConfig, len(sourceLabels), len(citations))
	}
	sources := make([]string, len(citations))
	for i := range sources {
		if i < len(sourceLabels) {
			sources[i] = sourceLabels[i]
		} else {
			sources[i] = noSourceLabel
		}
	}
	return d.run(citations, sources)
}

func (d *Deduplicator) run(citations []citation.Citation, sources []string) ([]citation.DuplicateGroup, error) {
	if len(citations) == 0 {
		return nil, nil
	}

	if !d.config.GroupByYear {
		all := make([]int, len(citations))
		for i := range all {
			all[i] = i
		}
		return d.processBucket(citations, sources, all)
	}

	buckets := groupByYear(citations)
	if d.config.RunInParallel {
		return d.processBucketsParallel(citations, sources, buckets)
	}

	var groups []citation.DuplicateGroup
	for _, bucket := range buckets {
		bucketGroups, err := d.processBucket(citations, sources, bucket)
		if err != nil {
			return nil, err
		}
		groups = append(groups, bucketGroups...)
	}
	return groups, nil
}

// groupByYear buckets citation indices by publication year. Citations without
// a year share a single bucket keyed 0.
func groupByYear(citations []citation.Citation) map[int][]int {
	buckets := make(map[int][]int)
	for i, c := range citations {
		year := 0
		if c.Year != nil {
			year = *c.Year
		}
		buckets[year] = append(buckets[year], i)
	}
	return buckets
}

// processBucketsParallel runs processBucket over disjoint buckets with
// bounded concurrency. Buckets share no mutable state; each goroutine writes
// only its own result slot. The first error wins and aborts the call.
func (d *Deduplicator) processBucketsParallel(citations []citation.Citation, sources []string, buckets map[int][]int) ([]citation.DuplicateGroup, error) {
	ordered := make([][]int, 0, len(buckets))
	for _, bucket := range buckets {
		ordered = append(ordered, bucket)
	}

	results := make([][]citation.DuplicateGroup, len(ordered))
	sem := make(chan struct{}, maxBucketWorkers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for i, bucket := range ordered {
		wg.Add(1)
		go func(idx int, bucket []int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			mu.Lock()
			failed := firstErr != nil
			mu.Unlock()
			if failed {
				return
			}

			groups, err := d.processBucket(citations, sources, bucket)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			results[idx] = groups
		}(i, bucket)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	var groups []citation.DuplicateGroup
	for _, r := range results {
		groups = append(groups, r...)
	}
	return groups, nil
}

// processBucket normalizes one bucket of citations and clusters it with a
// greedy single pass: each unclaimed citation seeds a group and claims every
// later-scanned unclaimed citation that matches it. Grouping is
// similarity-to-seed only, not transitive closure, so a chain A~B~C with
// A not similar to C leaves C outside A's group.
func (d *Deduplicator) processBucket(citations []citation.Citation, sources []string, bucket []int) ([]citation.DuplicateGroup, error) {
	views := make([]normalizedCitation, len(bucket))
	for i, idx := range bucket {
		view, err := normalizeCitation(&citations[idx], idx)
		if err != nil {
			return nil, err
		}
		views[i] = view
	}

	var groups []citation.DuplicateGroup
	claimed := make([]bool, len(views))

	for i := range views {
		if claimed[i] {
			continue
		}

		members := []int{i} // bucket-local positions, seed first
		for j := range views {
			if j == i || claimed[j] {
				continue
			}
			if isDuplicate(&views[i], &views[j]) {
				members = append(members, j)
				claimed[j] = true
			}
		}

		if len(members) == 1 {
			groups = append(groups, citation.DuplicateGroup{
				Unique: views[i].original.Clone(),
			})
			continue
		}

		claimed[i] = true
		unique := d.selectUnique(views, sources, members)
		group := citation.DuplicateGroup{Unique: views[unique].original.Clone()}
		for _, m := range members {
			if m != unique {
				group.Duplicates = append(group.Duplicates, views[m].original.Clone())
			}
		}
		groups = append(groups, group)
	}
	return groups, nil
}

// selectUnique picks the canonical member of a duplicate group: first by
// source preference, then by abstract presence with a DOI tie-break, falling
// back to the first member in input order.
func (d *Deduplicator) selectUnique(views []normalizedCitation, sources []string, members []int) int {
	if len(members) == 1 {
		return members[0]
	}

	for _, preferred := range d.config.SourcePreferences {
		for _, m := range members {
			if sources[views[m].index] == preferred {
				return m
			}
		}
	}

	var withAbstract []int
	for _, m := range members {
		if a := views[m].original.Abstract; a != nil && *a != "" {
			withAbstract = append(withAbstract, m)
		}
	}
	switch len(withAbstract) {
	case 0:
		return members[0]
	case 1:
		return withAbstract[0]
	default:
		for _, m := range withAbstract {
			if doi := views[m].original.DOI; doi != nil && *doi != "" {
				return m
			}
		}
		return withAbstract[0]
	}
}
