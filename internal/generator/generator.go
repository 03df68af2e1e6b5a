// Package generator picks the next word and blanks some of its letters.
package generator

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/verte-zerg/worddrop/internal/catalog"
	"github.com/verte-zerg/worddrop/internal/model"
)

const (
	maxDraws       = 50
	maxWindow      = 15
	windowFraction = 0.7
)

var (
	// ErrNotAvailable means the catalog has no words at the requested tier.
	ErrNotAvailable = errors.New("no words available at this difficulty")
	// ErrNotReady means no catalog has been loaded yet.
	ErrNotReady = errors.New("word catalog is not loaded")
)

// Rand is the random source for all draws. *rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
	Float64() float64
}

// Generator selects challenges and remembers recently served words for the
// lifetime of one play session.
type Generator struct {
	rnd    Rand
	recent []string
}

// New returns a Generator seeded with the current time.
func New() *Generator {
	return NewWithRand(rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewWithRand returns a Generator drawing from rnd.
func NewWithRand(rnd Rand) *Generator {
	return &Generator{rnd: rnd}
}

// WindowCapacity returns the recency window size for a tier with n words.
func WindowCapacity(n int) int {
	c := int(float64(n) * windowFraction)
	if c > maxWindow {
		return maxWindow
	}
	return c
}

// Recent returns recently served words, most recent first.
func (g *Generator) Recent() []string {
	return append([]string(nil), g.recent...)
}

// Reset forgets the recency window.
func (g *Generator) Reset() {
	g.recent = nil
}

// Select returns a challenge for a word of exactly tier d. bonus blanks one
// extra letter.
func (g *Generator) Select(cat *catalog.Catalog, d model.Difficulty, bonus bool) (model.Challenge, error) {
	if cat == nil {
		return model.Challenge{}, ErrNotReady
	}
	subset := cat.ByDifficulty(d)
	if len(subset) == 0 {
		return model.Challenge{}, fmt.Errorf("%w: tier %d", ErrNotAvailable, d)
	}
	capacity := WindowCapacity(len(subset))
	g.trim(capacity)

	entry := g.pick(subset)
	g.remember(entry.Word, capacity)

	count := MissingCount(g.rnd, d, bonus, len([]rune(entry.Word)))
	return Blank(g.rnd, entry, count), nil
}

// SelectAny returns a challenge for any word in cat regardless of tier.
// Exams use it so every word of the sampled catalog can be served. The
// missing-letter count follows the chosen word's own tier.
func (g *Generator) SelectAny(cat *catalog.Catalog, bonus bool) (model.Challenge, error) {
	if cat == nil {
		return model.Challenge{}, ErrNotReady
	}
	entries := cat.Entries()
	if len(entries) == 0 {
		return model.Challenge{}, fmt.Errorf("%w: catalog is empty", ErrNotAvailable)
	}
	capacity := WindowCapacity(len(entries))
	g.trim(capacity)

	entry := g.pick(entries)
	g.remember(entry.Word, capacity)

	count := MissingCount(g.rnd, entry.Difficulty, bonus, len([]rune(entry.Word)))
	return Blank(g.rnd, entry, count), nil
}

// SelectWidened behaves like Select, but when tier d is empty it serves the
// nearest non-empty tier instead and logs the substitution.
func (g *Generator) SelectWidened(cat *catalog.Catalog, d model.Difficulty, bonus bool) (model.Challenge, error) {
	ch, err := g.Select(cat, d, bonus)
	if !errors.Is(err, ErrNotAvailable) {
		return ch, err
	}
	for _, alt := range nearestTiers(d) {
		if len(cat.ByDifficulty(alt)) == 0 {
			continue
		}
		slog.Warn("difficulty widened", "requested", int(d), "served", int(alt))
		return g.Select(cat, alt, bonus)
	}
	return model.Challenge{}, err
}

func nearestTiers(d model.Difficulty) []model.Difficulty {
	tiers := []model.Difficulty{}
	for dist := 1; dist < len(model.AllDifficulties()); dist++ {
		for _, alt := range []model.Difficulty{d - model.Difficulty(dist), d + model.Difficulty(dist)} {
			if alt.Valid() {
				tiers = append(tiers, alt)
			}
		}
	}
	return tiers
}

func (g *Generator) pick(subset []model.WordEntry) model.WordEntry {
	inWindow := make(map[string]int, len(g.recent))
	for i, w := range g.recent {
		inWindow[w] = i
	}
	for i := 0; i < maxDraws; i++ {
		entry := subset[g.rnd.Intn(len(subset))]
		if _, seen := inWindow[entry.Word]; !seen {
			return entry
		}
	}

	fresh := make([]model.WordEntry, 0, len(subset))
	for _, entry := range subset {
		if _, seen := inWindow[entry.Word]; !seen {
			fresh = append(fresh, entry)
		}
	}
	if len(fresh) > 0 {
		return fresh[g.rnd.Intn(len(fresh))]
	}

	// Every candidate is in the window: serve the one seen longest ago.
	oldest := subset[0]
	oldestPos := -1
	for _, entry := range subset {
		if pos := inWindow[entry.Word]; pos > oldestPos {
			oldest, oldestPos = entry, pos
		}
	}
	return oldest
}

func (g *Generator) remember(word string, capacity int) {
	for i, w := range g.recent {
		if w == word {
			g.recent = append(g.recent[:i], g.recent[i+1:]...)
			break
		}
	}
	g.recent = append([]string{word}, g.recent...)
	g.trim(capacity)
}

func (g *Generator) trim(capacity int) {
	if len(g.recent) > capacity {
		g.recent = g.recent[:capacity]
	}
}

// MissingCount returns how many letters to blank for a word of wordLen runes.
func MissingCount(rnd Rand, d model.Difficulty, bonus bool, wordLen int) int {
	count := 1
	switch d {
	case model.DifficultyMedium:
		if rnd.Float64() >= 0.5 {
			count = 2
		}
	case model.DifficultyHard:
		count = 3
		if rnd.Float64() < 0.3 {
			count = 2
		}
	}
	if bonus {
		count++
	}
	if count > wordLen-1 {
		count = wordLen - 1
	}
	if count < 1 {
		count = 1
	}
	return count
}

// Blank builds a challenge from entry with count distinct letters hidden.
func Blank(rnd Rand, entry model.WordEntry, count int) model.Challenge {
	runes := []rune(entry.Word)
	positions := make([]int, len(runes))
	for i := range positions {
		positions[i] = i
	}
	if count > len(runes) {
		count = len(runes)
	}
	for i := 0; i < count; i++ {
		j := i + rnd.Intn(len(positions)-i)
		positions[i], positions[j] = positions[j], positions[i]
	}
	missing := append([]int(nil), positions[:count]...)
	sort.Ints(missing)

	display := append([]rune(nil), runes...)
	var letters strings.Builder
	for _, idx := range missing {
		letters.WriteRune(runes[idx])
		display[idx] = model.Placeholder
	}
	return model.Challenge{
		Original:       entry.Word,
		Meaning:        entry.Meaning,
		Phonetic:       entry.Phonetic,
		MissingIndices: missing,
		Display:        string(display),
		MissingLetters: letters.String(),
		Difficulty:     entry.Difficulty,
	}
}

// Fill writes letters into the blanked positions of ch.Display, in order.
// Surplus letters are ignored; missing ones leave the placeholder.
func Fill(ch model.Challenge, letters string) string {
	out := []rune(ch.Display)
	typed := []rune(letters)
	for i, idx := range ch.MissingIndices {
		if i >= len(typed) {
			break
		}
		if idx < len(out) {
			out[idx] = typed[i]
		}
	}
	return string(out)
}

// CheckAnswer reports whether input matches the hidden letters, ignoring case
// and surrounding space.
func CheckAnswer(ch model.Challenge, input string) bool {
	return strings.EqualFold(strings.TrimSpace(input), ch.MissingLetters)
}
