package missed

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/worddrop/internal/model"
	"github.com/verte-zerg/worddrop/internal/store"
)

func newBook(t *testing.T) (*Book, *time.Time) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "missed.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	clock := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	b := New(st)
	b.now = func() time.Time { return clock }
	return b, &clock
}

func TestRecordAndList(t *testing.T) {
	b, clock := newBook(t)
	ctx := context.Background()

	require.NoError(t, b.Record(ctx, model.WordEntry{Word: "Apple", Meaning: "fruit"}))
	*clock = clock.Add(time.Minute)
	require.NoError(t, b.Record(ctx, model.WordEntry{Word: "tree"}, model.WordEntry{Word: "apple"}))

	list, err := b.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "apple", list[0].Word)
	require.Equal(t, 2, list[0].Count)
	require.Equal(t, "fruit", list[0].Meaning, "first meaning is kept")
	require.True(t, list[0].CreateTime.Before(list[0].LastUpdate))
	require.Equal(t, "tree", list[1].Word)
}

func TestLessonUsesMediumDifficulty(t *testing.T) {
	b, _ := newBook(t)
	ctx := context.Background()
	require.NoError(t, b.Record(ctx, model.WordEntry{Word: "moon", Phonetic: "/muːn/"}))

	lesson, err := b.Lesson(ctx)
	require.NoError(t, err)
	require.Equal(t, LessonID, lesson.ID)
	require.Len(t, lesson.Entries, 1)
	require.Equal(t, model.DifficultyMedium, lesson.Entries[0].Difficulty)
	require.Equal(t, "/muːn/", lesson.Entries[0].Phonetic)
}

func TestRemoveAndClear(t *testing.T) {
	b, _ := newBook(t)
	ctx := context.Background()
	require.NoError(t, b.Record(ctx, model.WordEntry{Word: "cat"}, model.WordEntry{Word: "dog"}))

	require.NoError(t, b.Remove(ctx, "CAT"))
	require.NoError(t, b.Remove(ctx, "nothing"))
	list, err := b.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, b.Clear(ctx))
	list, err = b.List(ctx)
	require.NoError(t, err)
	require.Empty(t, list)
}
