// Package catalog holds the immutable word collection served during play.
package catalog

import (
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/verte-zerg/worddrop/internal/model"
)

// Rand is the random source used for sampling.
type Rand interface {
	Intn(n int) int
}

// Catalog is an ordered, deduplicated set of word entries. It is never
// mutated after Build; changes produce a new Catalog.
type Catalog struct {
	entries []model.WordEntry
	byTier  map[model.Difficulty][]model.WordEntry
	index   map[string]int
}

// Duplicate records a word dropped because an earlier lesson already had it.
type Duplicate struct {
	Word          string
	KeptLesson    string
	DroppedLesson string
}

// Rejection records an entry that cannot be turned into a challenge.
type Rejection struct {
	Word   string
	Lesson string
	Reason string
}

// BuildReport lists what Build dropped.
type BuildReport struct {
	Duplicates []Duplicate
	Rejected   []Rejection
}

// Build merges lessons in order into a Catalog. Words are folded to lowercase;
// the first occurrence of a word wins.
func Build(lessons ...model.Lesson) (*Catalog, BuildReport) {
	fold := cases.Lower(language.English)
	c := &Catalog{
		byTier: map[model.Difficulty][]model.WordEntry{},
		index:  map[string]int{},
	}
	var report BuildReport
	for _, lesson := range lessons {
		for _, entry := range lesson.Entries {
			entry.Word = fold.String(strings.TrimSpace(entry.Word))
			if entry.SourceLesson == "" {
				entry.SourceLesson = lesson.ID
			}
			if reason := rejectReason(entry); reason != "" {
				slog.Warn("rejected word entry", "word", entry.Word, "lesson", entry.SourceLesson, "reason", reason)
				report.Rejected = append(report.Rejected, Rejection{Word: entry.Word, Lesson: entry.SourceLesson, Reason: reason})
				continue
			}
			if i, ok := c.index[entry.Word]; ok {
				dup := Duplicate{Word: entry.Word, KeptLesson: c.entries[i].SourceLesson, DroppedLesson: entry.SourceLesson}
				slog.Warn("dropped duplicate word", "word", dup.Word, "kept", dup.KeptLesson, "dropped", dup.DroppedLesson)
				report.Duplicates = append(report.Duplicates, dup)
				continue
			}
			c.index[entry.Word] = len(c.entries)
			c.entries = append(c.entries, entry)
			c.byTier[entry.Difficulty] = append(c.byTier[entry.Difficulty], entry)
		}
	}
	if n := len(report.Duplicates); n > 0 {
		slog.Warn("duplicate words dropped from catalog", "count", n)
	}
	return c, report
}

func rejectReason(entry model.WordEntry) string {
	if !entry.Difficulty.Valid() {
		return "difficulty must be 1, 2 or 3"
	}
	if len([]rune(entry.Word)) < 2 {
		return "word must have at least two letters"
	}
	return ""
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// Entries returns a copy of all entries in catalog order.
func (c *Catalog) Entries() []model.WordEntry {
	if c == nil {
		return nil
	}
	return append([]model.WordEntry(nil), c.entries...)
}

// ByDifficulty returns the entries of exactly tier d, in catalog order.
// The returned slice must not be modified.
func (c *Catalog) ByDifficulty(d model.Difficulty) []model.WordEntry {
	if c == nil {
		return nil
	}
	return c.byTier[d]
}

// Difficulties returns the tiers that have at least one entry, ascending.
func (c *Catalog) Difficulties() []model.Difficulty {
	if c == nil {
		return nil
	}
	tiers := make([]model.Difficulty, 0, len(c.byTier))
	for d, list := range c.byTier {
		if len(list) > 0 {
			tiers = append(tiers, d)
		}
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i] < tiers[j] })
	return tiers
}

// Contains reports whether word (any case) is in the catalog.
func (c *Catalog) Contains(word string) bool {
	if c == nil {
		return false
	}
	_, ok := c.index[cases.Lower(language.English).String(word)]
	return ok
}

// Sample returns a new Catalog with n entries chosen uniformly without
// replacement. When n >= Len the receiver itself is returned.
func (c *Catalog) Sample(rng Rand, n int) *Catalog {
	if n >= c.Len() {
		return c
	}
	if n < 0 {
		n = 0
	}
	idx := make([]int, len(c.entries))
	for i := range idx {
		idx[i] = i
	}
	// Partial Fisher-Yates; the first n slots are the sample.
	for i := 0; i < n; i++ {
		j := i + rng.Intn(len(idx)-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	chosen := idx[:n]
	sort.Ints(chosen)
	out := &Catalog{
		entries: make([]model.WordEntry, 0, n),
		byTier:  map[model.Difficulty][]model.WordEntry{},
		index:   make(map[string]int, n),
	}
	for _, i := range chosen {
		entry := c.entries[i]
		out.index[entry.Word] = len(out.entries)
		out.entries = append(out.entries, entry)
		out.byTier[entry.Difficulty] = append(out.byTier[entry.Difficulty], entry)
	}
	return out
}
