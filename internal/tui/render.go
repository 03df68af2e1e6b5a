package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/worddrop/internal/model"
)

type styledRune struct {
	s     string
	width int
	blank bool
}

// buildStyledRunes renders the challenge display with typed letters written
// into the blanks, in order. The next blank to fill carries the cursor.
func buildStyledRunes(ch model.Challenge, typed []rune) []styledRune {
	display := []rune(ch.Display)
	missing := []rune(ch.MissingLetters)
	slot := make(map[int]int, len(ch.MissingIndices))
	for i, idx := range ch.MissingIndices {
		slot[idx] = i
	}

	out := make([]styledRune, 0, len(display))
	for i, r := range display {
		n, isBlank := slot[i]
		shown := r
		style := knownStyle
		if isBlank {
			switch {
			case n < len(typed):
				shown = typed[n]
				style = incorrectStyle
				if n < len(missing) && strings.EqualFold(string(typed[n]), string(missing[n])) {
					style = correctStyle
				}
			case n == len(typed):
				style = cursorStyle
			default:
				style = pendingStyle
			}
		}
		out = append(out, styledRune{
			s:     style.Render(string(shown)),
			width: runewidth.RuneWidth(shown),
			blank: isBlank,
		})
	}
	return out
}

func renderStyledRunes(runes []styledRune) string {
	var b strings.Builder
	for _, item := range runes {
		b.WriteString(item.s)
	}
	return b.String()
}

// spaced renders runes with one column between letters, which keeps
// adjacent blanks readable.
func spaced(runes []styledRune) string {
	var b strings.Builder
	for i, item := range runes {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(item.s)
	}
	return b.String()
}

func displayWidth(runes []styledRune) int {
	total := 0
	for _, item := range runes {
		total += item.width
	}
	return total
}
