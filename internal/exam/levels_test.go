package exam

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/worddrop/internal/progress"
)

func ref(series, major, minor string) progress.LevelRef {
	return progress.LevelRef{Series: series, Major: major, Minor: minor}
}

func TestUnlockRules(t *testing.T) {
	levels := DefaultLevels()
	tree := progress.Defaults(levels.Layout())

	require.True(t, levels.IsUnlocked(tree, ref("phonics", "", "shortVowels")))
	require.False(t, levels.IsUnlocked(tree, ref("phonics", "", "longVowels")))
	require.False(t, levels.IsUnlocked(tree, ref("phonics", "", progress.FinalExam)))

	tree["phonics"].Branch.Levels["shortVowels"].Passed = true
	require.True(t, levels.IsUnlocked(tree, ref("phonics", "", "longVowels")))

	for _, rec := range tree["phonics"].Branch.Levels {
		rec.Passed = true
	}
	require.True(t, levels.IsUnlocked(tree, ref("phonics", "", progress.FinalExam)))
	require.False(t, levels.IsUnlocked(tree, ref("primaryGrades", "grade3", "term1")))

	tree["phonics"].Branch.Badge.Earned = true
	require.True(t, levels.IsUnlocked(tree, ref("primaryGrades", "grade3", "term1")))
	require.False(t, levels.IsUnlocked(tree, ref("primaryGrades", "grade4", "term1")))

	tree["primaryGrades"].Majors["grade3"].Badge.Earned = true
	require.True(t, levels.IsUnlocked(tree, ref("primaryGrades", "grade4", "term1")))
	require.False(t, levels.IsUnlocked(tree, ref("extracurricular", "flyGuy", "book1to5")))
}

func TestAwardOpensSeries(t *testing.T) {
	levels := DefaultLevels()
	tree := progress.Defaults(levels.Layout())
	at := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	final := ref("phonics", "", progress.FinalExam)

	require.False(t, levels.Award(tree, final, at), "final not passed")
	tree["phonics"].Branch.FinalExam.Passed = true
	require.False(t, levels.Award(tree, ref("phonics", "", "shortVowels"), at))
	require.True(t, levels.Award(tree, final, at))
	require.True(t, tree["primaryGrades"].Unlocked)
	require.Equal(t, at, *tree["phonics"].Branch.Badge.EarnedAt)
	require.False(t, levels.Award(tree, final, at.Add(time.Hour)), "already earned")
	require.Equal(t, at, *tree["phonics"].Branch.Badge.EarnedAt)

	tree["primaryGrades"].Majors["grade6"].FinalExam.Passed = true
	require.True(t, levels.Award(tree, ref("primaryGrades", "grade6", progress.FinalExam), at))
	require.True(t, tree["extracurricular"].Unlocked)
	require.True(t, tree["academic"].Unlocked)
}

func TestNextAvailable(t *testing.T) {
	levels := DefaultLevels()
	tree := progress.Defaults(levels.Layout())

	next, ok := levels.NextAvailable(tree)
	require.True(t, ok)
	require.Equal(t, ref("phonics", "", "shortVowels"), next)

	for _, rec := range tree["phonics"].Branch.Levels {
		rec.Passed = true
	}
	next, ok = levels.NextAvailable(tree)
	require.True(t, ok)
	require.Equal(t, ref("phonics", "", progress.FinalExam), next)

	tree["phonics"].Branch.FinalExam.Passed = true
	next, ok = levels.NextAvailable(tree)
	require.False(t, ok, "grades stay locked until the badge is awarded")

	levels.Award(tree, ref("phonics", "", progress.FinalExam), time.Now())
	next, ok = levels.NextAvailable(tree)
	require.True(t, ok)
	require.Equal(t, ref("primaryGrades", "grade3", "term1"), next)
}

func TestCheckEligibility(t *testing.T) {
	levels := DefaultLevels()
	tree := progress.Defaults(levels.Layout())
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	require.ErrorIs(t, levels.CheckEligibility(tree, ref("phonics", "", "nope"), now), ErrUnknownLevel)
	require.ErrorIs(t, levels.CheckEligibility(tree, ref("phonics", "", "longVowels"), now), ErrLevelLocked)

	rec := tree["phonics"].Branch.Levels["shortVowels"]
	rec.RecordAttempt(50, false, now, nil)
	err := levels.CheckEligibility(tree, ref("phonics", "", "shortVowels"), now.Add(29*time.Minute+59*time.Second))
	var cd *CooldownError
	require.ErrorAs(t, err, &cd)
	require.Equal(t, 1, cd.Remaining)
	require.NoError(t, levels.CheckEligibility(tree, ref("phonics", "", "shortVowels"), now.Add(30*time.Minute)))
}

func TestNormalizeAndLookup(t *testing.T) {
	levels := DefaultLevels()

	loose := progress.LevelRef{Series: "phonics", Major: "diphthongs"}
	require.Equal(t, ref("phonics", "", "diphthongs"), levels.Normalize(loose))
	require.Equal(t, ref("phonics", "", progress.FinalExam), levels.Normalize(ref("phonics", progress.FinalExam, progress.FinalExam)))
	require.Equal(t, ref("primaryGrades", "grade3", "term1"), levels.Normalize(ref("primaryGrades", "grade3", "term1")))

	info, err := levels.Lookup(loose)
	require.NoError(t, err)
	require.Equal(t, 20, info.WordCount)

	info, err = levels.Lookup(ref("phonics", "", "complexSounds"))
	require.NoError(t, err)
	require.Equal(t, 15, info.WordCount)

	info, err = levels.Lookup(ref("academic", "cet4", "coreVocab"))
	require.NoError(t, err)
	require.Zero(t, info.WordCount)

	_, err = levels.Lookup(ref("primaryGrades", "grade9", "term1"))
	require.ErrorIs(t, err, ErrUnknownLevel)
}

func TestDisplayName(t *testing.T) {
	levels := DefaultLevels()
	require.Equal(t, "Short vowels", levels.DisplayName(ref("phonics", "", "shortVowels")))
	require.Equal(t, "Phonics - Final exam", levels.DisplayName(ref("phonics", "", progress.FinalExam)))
	require.Equal(t, "Grade 3 - Term 1", levels.DisplayName(ref("primaryGrades", "grade3", "term1")))
	require.Equal(t, "Fly Guy - Final exam", levels.DisplayName(ref("extracurricular", "flyGuy", progress.FinalExam)))
	require.Equal(t, "x/y/z", levels.DisplayName(ref("x", "y", "z")))
}

func TestConfigureDoesNotMutate(t *testing.T) {
	base := DefaultLevels()
	five := 5
	out, err := base.Configure(map[string]Override{
		"phonics/shortVowels":                   {WordCount: &five},
		"academic/cet4/coreVocab":               {WordCount: &five, Lessons: []string{"cet4/core"}},
		"extracurricular/harryPotter/finalExam": {Lessons: []string{"books/hp"}},
	})
	require.NoError(t, err)

	info, err := out.Lookup(ref("phonics", "", "shortVowels"))
	require.NoError(t, err)
	require.Equal(t, 5, info.WordCount)
	info, err = out.Lookup(ref("academic", "cet4", "coreVocab"))
	require.NoError(t, err)
	require.Equal(t, []string{"cet4/core"}, info.Lessons)
	info, err = out.Lookup(ref("extracurricular", "harryPotter", progress.FinalExam))
	require.NoError(t, err)
	require.Equal(t, []string{"books/hp"}, info.Lessons)

	orig, err := base.Lookup(ref("phonics", "", "shortVowels"))
	require.NoError(t, err)
	require.Equal(t, 20, orig.WordCount)

	_, err = base.Configure(map[string]Override{"phonics/nope": {WordCount: &five}})
	require.ErrorIs(t, err, ErrUnknownLevel)
	neg := -1
	_, err = base.Configure(map[string]Override{"phonics/shortVowels": {WordCount: &neg}})
	require.Error(t, err)
	_, err = base.Configure(map[string]Override{"phonics": {}})
	require.Error(t, err)
}

func TestParseRef(t *testing.T) {
	r, err := ParseRef("primaryGrades/grade3/term1")
	require.NoError(t, err)
	require.Equal(t, ref("primaryGrades", "grade3", "term1"), r)

	r, err = ParseRef("/phonics/finalExam/")
	require.NoError(t, err)
	require.Equal(t, ref("phonics", "", progress.FinalExam), r)

	_, err = ParseRef("phonics")
	require.Error(t, err)
	_, err = ParseRef("a/b/c/d")
	require.Error(t, err)
}

func TestPendingHandoff(t *testing.T) {
	h := newHarness(t, DefaultLevels())
	ctx := context.Background()

	_, ok, err := ConsumePending(ctx, h.kv)
	require.NoError(t, err)
	require.False(t, ok)

	want := ref("primaryGrades", "grade4", "term2")
	require.NoError(t, SavePending(ctx, h.kv, want))
	got, ok, err := ConsumePending(ctx, h.kv)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, want, got)

	_, ok, err = ConsumePending(ctx, h.kv)
	require.NoError(t, err)
	require.False(t, ok, "consumed once")

	require.NoError(t, h.kv.Set(ctx, PendingKey, []byte(`{broken`)))
	_, ok, err = ConsumePending(ctx, h.kv)
	require.NoError(t, err)
	require.False(t, ok)
	_, ok, err = ConsumePending(ctx, h.kv)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestParseQuery(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    progress.LevelRef
		ok      bool
		wantErr bool
	}{
		{name: "full", raw: "?mode=exam&series=primaryGrades&major=grade3&minor=term1", want: ref("primaryGrades", "grade3", "term1"), ok: true},
		{name: "flat", raw: "mode=exam&series=phonics&major=shortVowels", want: ref("phonics", "shortVowels", ""), ok: true},
		{name: "not exam", raw: "mode=play&series=phonics"},
		{name: "empty", raw: ""},
		{name: "no series", raw: "mode=exam&major=grade3", wantErr: true},
		{name: "no level", raw: "mode=exam&series=phonics", wantErr: true},
		{name: "bad escape", raw: "mode=exam&series=%zz", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := ParseQuery(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.want, got)
		})
	}
}
