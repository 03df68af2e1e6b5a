package exam

import (
	"fmt"
	"strings"

	"github.com/verte-zerg/worddrop/internal/progress"
)

// LevelInfo describes one exam level.
type LevelInfo struct {
	ID    string
	Name  string
	Scope string
	// WordCount is the number of words drawn for the exam. Zero means the
	// level is not configured yet.
	WordCount int
	// Lessons, when set, build the exam vocabulary instead of the current pool.
	Lessons []string
}

// MajorInfo is a branch of levels closed by a final exam.
type MajorInfo struct {
	ID        string
	Name      string
	BadgeName string
	Levels    []LevelInfo
	Final     LevelInfo
	// Unlocks lists series opened when this branch's badge is earned.
	Unlocks []string
}

// SeriesInfo is a top-level exam track. A flat series has a single major
// with an empty ID.
type SeriesInfo struct {
	ID       string
	Name     string
	Unlocked bool
	// Requires is the badge that opens the series, as a (series, major) pair.
	Requires *progress.LevelRef
	Majors   []MajorInfo
}

// Flat reports whether the series has no major levels.
func (s SeriesInfo) Flat() bool {
	return len(s.Majors) == 1 && s.Majors[0].ID == ""
}

// Levels is the ordered exam catalog.
type Levels []SeriesInfo

func level(id, name, scope string, words int) LevelInfo {
	return LevelInfo{ID: id, Name: name, Scope: scope, WordCount: words}
}

func final(scope string, words int) LevelInfo {
	return LevelInfo{ID: progress.FinalExam, Name: "Final exam", Scope: scope, WordCount: words}
}

func grade(n int) MajorInfo {
	id := fmt.Sprintf("grade%d", n)
	m := MajorInfo{
		ID:        id,
		Name:      fmt.Sprintf("Grade %d", n),
		BadgeName: fmt.Sprintf("Grade %d", n),
		Levels: []LevelInfo{
			level("term1", "Term 1", fmt.Sprintf("Grade %d term 1, units 1-6", n), 20),
			level("term2", "Term 2", fmt.Sprintf("Grade %d term 2, units 1-6", n), 20),
		},
		Final: final(fmt.Sprintf("Grade %d full-year review", n), 40),
	}
	if n == 6 {
		m.Unlocks = []string{"extracurricular", "academic"}
	}
	return m
}

// DefaultLevels returns the built-in exam catalog.
func DefaultLevels() Levels {
	return Levels{
		{
			ID: "phonics", Name: "Phonics", Unlocked: true,
			Majors: []MajorInfo{{
				BadgeName: "Phonics Master",
				Levels: []LevelInfo{
					level("shortVowels", "Short vowels", "/æ/ /e/ /ɪ/ /ɒ/ /ʌ/ /ʊ/ words", 20),
					level("longVowels", "Long vowels", "/iː/ /uː/ /ɜː/ /ə/ words", 20),
					level("diphthongs", "Diphthongs", "/eɪ/ /aɪ/ /ɔɪ/ /əʊ/ /aʊ/ /ɪə/ /eə/ /ʊə/ words", 20),
					level("consonants", "Consonants", "/p/ /b/ /t/ /d/ /k/ /g/ /f/ /v/ words", 20),
					level("complexSounds", "Complex sounds", "/tʃ/ /dʒ/ /ʃ/ /ʒ/ /θ/ /ð/ words", 15),
				},
				Final:   final("All phonics sounds", 40),
				Unlocks: []string{"primaryGrades"},
			}},
		},
		{
			ID: "primaryGrades", Name: "Primary grades",
			Requires: &progress.LevelRef{Series: "phonics"},
			Majors:   []MajorInfo{grade(3), grade(4), grade(5), grade(6)},
		},
		{
			ID: "extracurricular", Name: "Extracurricular reading",
			Requires: &progress.LevelRef{Series: "primaryGrades", Major: "grade6"},
			Majors: []MajorInfo{
				{
					ID: "flyGuy", Name: "Fly Guy", BadgeName: "Fly Guy",
					Levels: []LevelInfo{
						level("book1to5", "Books 1-5", "Fly Guy books 1-5", 20),
						level("book6to10", "Books 6-10", "Fly Guy books 6-10", 20),
						level("book11to15", "Books 11-15", "Fly Guy books 11-15", 20),
					},
					Final: final("Fly Guy series review", 40),
				},
				{ID: "magicTreeHouse", Name: "Magic Tree House", BadgeName: "Magic Tree House", Final: final("Magic Tree House vocabulary (not configured)", 0)},
				{ID: "dragonBall", Name: "Dragon Ball", BadgeName: "Dragon Ball", Final: final("Dragon Ball vocabulary (not configured)", 0)},
				{ID: "harryPotter", Name: "Harry Potter", BadgeName: "Harry Potter", Final: final("Harry Potter vocabulary (not configured)", 0)},
			},
		},
		{
			ID: "academic", Name: "Academic",
			Requires: &progress.LevelRef{Series: "primaryGrades", Major: "grade6"},
			Majors: []MajorInfo{
				{
					ID: "middleSchool", Name: "Middle school", BadgeName: "Middle School",
					Levels: termLevels("grade", 7, 9),
					Final:  final("Middle school review (not configured)", 0),
				},
				{
					ID: "highSchool", Name: "High school", BadgeName: "High School",
					Levels: termLevels("senior", 1, 3),
					Final:  final("High school review (not configured)", 0),
				},
				{
					ID: "cet4", Name: "CET-4", BadgeName: "CET-4",
					Levels: []LevelInfo{
						level("coreVocab", "Core vocabulary", "CET-4 core vocabulary (not configured)", 0),
						level("highFreqVocab", "High-frequency vocabulary", "CET-4 high-frequency vocabulary (not configured)", 0),
						level("advancedVocab", "Advanced vocabulary", "CET-4 advanced vocabulary (not configured)", 0),
					},
					Final: final("CET-4 review (not configured)", 0),
				},
			},
		},
	}
}

func termLevels(prefix string, from, to int) []LevelInfo {
	var out []LevelInfo
	for y := from; y <= to; y++ {
		for term := 1; term <= 2; term++ {
			id := fmt.Sprintf("%s%dTerm%d", prefix, y, term)
			name := fmt.Sprintf("%s %d term %d", strings.ToUpper(prefix[:1])+prefix[1:], y, term)
			out = append(out, level(id, name, name+" vocabulary (not configured)", 0))
		}
	}
	return out
}

// Layout returns the progress tree shape of the catalog.
func (l Levels) Layout() progress.Layout {
	layout := make(progress.Layout, 0, len(l))
	for _, s := range l {
		sl := progress.SeriesLayout{ID: s.ID, Name: s.Name, Unlocked: s.Unlocked}
		for _, m := range s.Majors {
			bl := progress.BranchLayout{ID: m.ID, BadgeName: m.BadgeName}
			for _, lv := range m.Levels {
				bl.Levels = append(bl.Levels, lv.ID)
			}
			sl.Majors = append(sl.Majors, bl)
		}
		layout = append(layout, sl)
	}
	return layout
}

// Series returns the series with id.
func (l Levels) Series(id string) (SeriesInfo, bool) {
	for _, s := range l {
		if s.ID == id {
			return s, true
		}
	}
	return SeriesInfo{}, false
}

func (l Levels) major(series, major string) (SeriesInfo, MajorInfo, int, bool) {
	s, ok := l.Series(series)
	if !ok {
		return SeriesInfo{}, MajorInfo{}, 0, false
	}
	for i, m := range s.Majors {
		if m.ID == major {
			return s, m, i, true
		}
	}
	return SeriesInfo{}, MajorInfo{}, 0, false
}

// Normalize maps the loose (series, level) form used for flat series onto the
// canonical ref with an empty major.
func (l Levels) Normalize(ref progress.LevelRef) progress.LevelRef {
	s, ok := l.Series(ref.Series)
	if !ok || !s.Flat() || ref.Major == "" {
		return ref
	}
	if ref.Minor == "" {
		return progress.LevelRef{Series: ref.Series, Minor: ref.Major}
	}
	if ref.Minor == progress.FinalExam || ref.Major == progress.FinalExam {
		return progress.LevelRef{Series: ref.Series, Minor: progress.FinalExam}
	}
	return ref
}

// Lookup returns the level addressed by ref.
func (l Levels) Lookup(ref progress.LevelRef) (LevelInfo, error) {
	ref = l.Normalize(ref)
	_, m, _, ok := l.major(ref.Series, ref.Major)
	if !ok {
		return LevelInfo{}, fmt.Errorf("%w: %s", ErrUnknownLevel, ref)
	}
	if ref.IsFinal() {
		return m.Final, nil
	}
	for _, lv := range m.Levels {
		if lv.ID == ref.Minor {
			return lv, nil
		}
	}
	return LevelInfo{}, fmt.Errorf("%w: %s", ErrUnknownLevel, ref)
}

// All returns every level in catalog order, each branch's final exam last.
func (l Levels) All() []progress.LevelRef {
	var refs []progress.LevelRef
	for _, s := range l {
		for _, m := range s.Majors {
			for _, lv := range m.Levels {
				refs = append(refs, progress.LevelRef{Series: s.ID, Major: m.ID, Minor: lv.ID})
			}
			refs = append(refs, progress.LevelRef{Series: s.ID, Major: m.ID, Minor: progress.FinalExam})
		}
	}
	return refs
}

// DisplayName returns a human label for ref.
func (l Levels) DisplayName(ref progress.LevelRef) string {
	ref = l.Normalize(ref)
	s, m, _, ok := l.major(ref.Series, ref.Major)
	if !ok {
		return ref.String()
	}
	prefix := m.Name
	if s.Flat() {
		prefix = s.Name
	}
	if ref.IsFinal() {
		return prefix + " - Final exam"
	}
	lv, err := l.Lookup(ref)
	if err != nil {
		return ref.String()
	}
	if s.Flat() {
		return lv.Name
	}
	return prefix + " - " + lv.Name
}

// Override changes the configuration of one level.
type Override struct {
	WordCount *int
	Lessons   []string
}

// Configure returns a copy of l with overrides applied. Keys are level refs
// in "series/major/minor" or, for flat series, "series/minor" form.
func (l Levels) Configure(overrides map[string]Override) (Levels, error) {
	out := make(Levels, len(l))
	for i, s := range l {
		s.Majors = append([]MajorInfo(nil), s.Majors...)
		for j := range s.Majors {
			s.Majors[j].Levels = append([]LevelInfo(nil), s.Majors[j].Levels...)
		}
		out[i] = s
	}
	for key, ov := range overrides {
		ref, err := ParseRef(key)
		if err != nil {
			return nil, err
		}
		ref = out.Normalize(ref)
		target := out.levelPtr(ref)
		if target == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownLevel, key)
		}
		if ov.WordCount != nil {
			if *ov.WordCount < 0 {
				return nil, fmt.Errorf("word count for %s must be >= 0", key)
			}
			target.WordCount = *ov.WordCount
		}
		if ov.Lessons != nil {
			target.Lessons = append([]string(nil), ov.Lessons...)
		}
	}
	return out, nil
}

func (l Levels) levelPtr(ref progress.LevelRef) *LevelInfo {
	for i := range l {
		if l[i].ID != ref.Series {
			continue
		}
		for j := range l[i].Majors {
			m := &l[i].Majors[j]
			if m.ID != ref.Major {
				continue
			}
			if ref.IsFinal() {
				return &m.Final
			}
			for k := range m.Levels {
				if m.Levels[k].ID == ref.Minor {
					return &m.Levels[k]
				}
			}
		}
	}
	return nil
}

// ParseRef parses "series/major/minor" or "series/minor".
func ParseRef(s string) (progress.LevelRef, error) {
	parts := strings.Split(strings.Trim(strings.TrimSpace(s), "/"), "/")
	switch len(parts) {
	case 2:
		return progress.LevelRef{Series: parts[0], Minor: parts[1]}, nil
	case 3:
		return progress.LevelRef{Series: parts[0], Major: parts[1], Minor: parts[2]}, nil
	default:
		return progress.LevelRef{}, fmt.Errorf("invalid level %q (expected series/major/minor or series/level)", s)
	}
}
