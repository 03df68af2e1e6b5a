package exam

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/worddrop/internal/catalog"
	"github.com/verte-zerg/worddrop/internal/model"
	"github.com/verte-zerg/worddrop/internal/prefs"
	"github.com/verte-zerg/worddrop/internal/progress"
	"github.com/verte-zerg/worddrop/internal/store"
)

var shortVowels = progress.LevelRef{Series: "phonics", Minor: "shortVowels"}

type harness struct {
	ctrl  *Controller
	ps    *progress.Store
	pool  *catalog.Pool
	prefs *prefs.Prefs
	kv    *store.Store
	full  *catalog.Catalog
	clock *time.Time
}

func bigCatalog(n int) *catalog.Catalog {
	l := model.Lesson{ID: "big"}
	for i := 0; i < n; i++ {
		l.Entries = append(l.Entries, model.WordEntry{Word: fmt.Sprintf("w%04d", i), Difficulty: model.DifficultyEasy})
	}
	cat, _ := catalog.Build(l)
	return cat
}

func newHarness(t *testing.T, levels Levels, opts ...Option) *harness {
	t.Helper()
	kv, err := store.Open(filepath.Join(t.TempDir(), "exam.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	clock := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	h := &harness{kv: kv, clock: &clock, full: bigCatalog(500)}
	h.ps = progress.NewStore(kv, levels.Layout(), progress.WithClock(func() time.Time { return *h.clock }))
	h.pool = catalog.NewPool(h.full)
	h.prefs = prefs.New(kv)
	opts = append([]Option{WithRand(rand.New(rand.NewSource(7)))}, opts...)
	h.ctrl = NewController(levels, h.ps, h.pool, h.prefs, opts...)
	return h
}

func (h *harness) mode(t *testing.T) model.PlayMode {
	t.Helper()
	mode, err := h.prefs.Mode(context.Background())
	require.NoError(t, err)
	return mode
}

func (h *harness) record(t *testing.T, ref progress.LevelRef) progress.LevelRecord {
	t.Helper()
	tree, err := h.ps.Load(context.Background())
	require.NoError(t, err)
	rec, err := tree.Record(ref)
	require.NoError(t, err)
	return *rec
}

func TestStartRestrictsCatalogAndCompleteRestores(t *testing.T) {
	h := newHarness(t, DefaultLevels())
	ctx := context.Background()

	sess, err := h.ctrl.Start(ctx, shortVowels)
	require.NoError(t, err)
	require.Equal(t, StateActive, h.ctrl.State())
	require.Equal(t, 20, sess.TargetWordCount)
	require.NotEmpty(t, sess.ID)
	require.Equal(t, model.ModeChallenge, h.mode(t))

	cur := h.pool.Current()
	require.Equal(t, 20, cur.Len())
	for _, e := range cur.Entries() {
		require.True(t, h.full.Contains(e.Word))
	}

	*h.clock = h.clock.Add(4 * time.Minute)
	h.ctrl.Observe(18, 20)
	res, err := h.ctrl.Complete(ctx, h.ctrl.CorrectRate())
	require.NoError(t, err)
	require.Equal(t, 90, res.Score)
	require.True(t, res.Passed)
	require.Equal(t, 1, res.Attempts)
	require.NotNil(t, res.BestDuration)
	require.Equal(t, 240, *res.BestDuration)
	require.Nil(t, res.CooldownUntil)

	require.Same(t, h.full, h.pool.Current())
	require.Equal(t, model.ModeCasual, h.mode(t))
	require.Equal(t, StateIdle, h.ctrl.State())

	rec := h.record(t, shortVowels)
	require.True(t, rec.Passed)
	require.Equal(t, 90, rec.Score)
}

func TestFailedExamStartsCooldown(t *testing.T) {
	h := newHarness(t, DefaultLevels())
	ctx := context.Background()
	require.NoError(t, h.prefs.SetMode(ctx, model.ModeChallenge))

	_, err := h.ctrl.Start(ctx, shortVowels)
	require.NoError(t, err)
	res, err := h.ctrl.Complete(ctx, CorrectRate(17, 20))
	require.NoError(t, err)
	require.Equal(t, 85, res.Score)
	require.False(t, res.Passed)
	require.NotNil(t, res.CooldownUntil)
	require.Equal(t, h.clock.Add(30*time.Minute), *res.CooldownUntil)

	*h.clock = h.clock.Add(10 * time.Minute)
	_, err = h.ctrl.Start(ctx, shortVowels)
	var cd *CooldownError
	require.ErrorAs(t, err, &cd)
	require.Equal(t, 20*60, cd.Remaining)
	require.Contains(t, err.Error(), "20:00")

	require.Equal(t, StateIdle, h.ctrl.State())
	require.Same(t, h.full, h.pool.Current())
	require.Equal(t, model.ModeChallenge, h.mode(t))
	require.Equal(t, 1, h.record(t, shortVowels).Attempts)

	*h.clock = h.clock.Add(20 * time.Minute)
	_, err = h.ctrl.Start(ctx, shortVowels)
	require.NoError(t, err)
	h.ctrl.Cancel(ctx)
}

func TestCancelLeavesProgressUntouched(t *testing.T) {
	h := newHarness(t, DefaultLevels())
	ctx := context.Background()

	_, err := h.ctrl.Start(ctx, shortVowels)
	require.NoError(t, err)
	h.ctrl.Observe(3, 4)
	h.ctrl.Cancel(ctx)

	require.Equal(t, StateIdle, h.ctrl.State())
	require.Same(t, h.full, h.pool.Current())
	require.Equal(t, model.ModeCasual, h.mode(t))
	require.Equal(t, 0, h.record(t, shortVowels).Attempts)

	_, err = h.ctrl.Complete(ctx, 100)
	require.ErrorIs(t, err, ErrNoSession)
	h.ctrl.Cancel(ctx)
}

func TestSecondStartRejected(t *testing.T) {
	h := newHarness(t, DefaultLevels())
	ctx := context.Background()

	first, err := h.ctrl.Start(ctx, shortVowels)
	require.NoError(t, err)
	_, err = h.ctrl.Start(ctx, shortVowels)
	require.ErrorIs(t, err, ErrSessionActive)

	sess, ok := h.ctrl.Session()
	require.True(t, ok)
	require.Equal(t, first.ID, sess.ID)
}

func TestStartRejectsLockedAndUnknown(t *testing.T) {
	h := newHarness(t, DefaultLevels())
	ctx := context.Background()

	_, err := h.ctrl.Start(ctx, progress.LevelRef{Series: "phonics", Minor: "longVowels"})
	require.ErrorIs(t, err, ErrLevelLocked)
	_, err = h.ctrl.Start(ctx, progress.LevelRef{Series: "primaryGrades", Major: "grade3", Minor: "term1"})
	require.ErrorIs(t, err, ErrLevelLocked)
	_, err = h.ctrl.Start(ctx, progress.LevelRef{Series: "nope", Minor: "x"})
	require.ErrorIs(t, err, ErrUnknownLevel)
	require.Equal(t, model.ModeCasual, h.mode(t))
}

func TestZeroWordCountIsConfigError(t *testing.T) {
	zero := 0
	levels, err := DefaultLevels().Configure(map[string]Override{"phonics/shortVowels": {WordCount: &zero}})
	require.NoError(t, err)
	h := newHarness(t, levels)
	ctx := context.Background()

	_, err = h.ctrl.Start(ctx, shortVowels)
	var cfg *ConfigError
	require.ErrorAs(t, err, &cfg)
	require.Equal(t, StateIdle, h.ctrl.State())
	require.Equal(t, model.ModeCasual, h.mode(t))
	require.Same(t, h.full, h.pool.Current())
}

func TestSmallCatalogUsesEverything(t *testing.T) {
	h := newHarness(t, DefaultLevels())
	small := bigCatalog(5)
	h.pool.Swap(small)

	sess, err := h.ctrl.Start(context.Background(), shortVowels)
	require.NoError(t, err)
	require.Equal(t, 5, sess.CatalogSize)
	h.ctrl.Cancel(context.Background())
	require.Same(t, small, h.pool.Current())
}

type staticSource map[string][]model.WordEntry

func (s staticSource) Lessons(_ context.Context, ids []string) ([]model.Lesson, error) {
	var out []model.Lesson
	for _, id := range ids {
		out = append(out, model.Lesson{ID: id, Entries: s[id]})
	}
	return out, nil
}

func TestLessonExamRestoresRegularCatalog(t *testing.T) {
	levels, err := DefaultLevels().Configure(map[string]Override{"phonics/shortVowels": {Lessons: []string{"vowels"}}})
	require.NoError(t, err)
	src := staticSource{"vowels": {
		{Word: "cat", Difficulty: model.DifficultyEasy},
		{Word: "pig", Difficulty: model.DifficultyEasy},
	}}
	regular := bigCatalog(50)
	h := newHarness(t, levels,
		WithPending(func() *catalog.Pending { return catalog.Ready(regular) }),
		WithLessonLoader(catalog.NewLoader(src)))
	h.pool.Swap(nil)
	ctx := context.Background()

	sess, err := h.ctrl.Start(ctx, shortVowels)
	require.NoError(t, err)
	require.Equal(t, 2, sess.CatalogSize)
	require.True(t, h.pool.Current().Contains("cat"))
	h.ctrl.Cancel(ctx)
	require.Same(t, regular, h.pool.Current())

	_, err = h.ctrl.Start(ctx, shortVowels)
	require.NoError(t, err)
	require.Equal(t, 2, h.pool.Current().Len())
	_, err = h.ctrl.Complete(ctx, 100)
	require.NoError(t, err)
	require.Same(t, regular, h.pool.Current())
	require.Equal(t, model.ModeCasual, h.mode(t))
}

type blockingSource struct {
	release chan struct{}
}

func (b blockingSource) Lessons(ctx context.Context, ids []string) ([]model.Lesson, error) {
	select {
	case <-b.release:
		return []model.Lesson{{ID: "late", Entries: []model.WordEntry{{Word: "late", Difficulty: 1}}}}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func blockingPending(t *testing.T) func() *catalog.Pending {
	src := blockingSource{release: make(chan struct{})}
	t.Cleanup(func() { close(src.release) })
	loader := catalog.NewLoader(src)
	return func() *catalog.Pending {
		return loader.Load(context.Background(), []string{"late"})
	}
}

func TestLoadTimeout(t *testing.T) {
	h := newHarness(t, DefaultLevels(), WithPending(blockingPending(t)), WithLoadTimeout(20*time.Millisecond))
	ctx := context.Background()

	_, err := h.ctrl.Start(ctx, shortVowels)
	require.ErrorIs(t, err, ErrLoadTimeout)
	require.Equal(t, StateIdle, h.ctrl.State())
	require.Equal(t, model.ModeCasual, h.mode(t))
	require.Same(t, h.full, h.pool.Current())
}

func TestCancelWhileLoading(t *testing.T) {
	h := newHarness(t, DefaultLevels(), WithPending(blockingPending(t)), WithLoadTimeout(5*time.Second))
	ctx := context.Background()

	errc := make(chan error, 1)
	go func() {
		_, err := h.ctrl.Start(ctx, shortVowels)
		errc <- err
	}()
	require.Eventually(t, func() bool { return h.ctrl.State() == StateLoading }, time.Second, 5*time.Millisecond)
	h.ctrl.Cancel(ctx)
	require.Equal(t, StateIdle, h.ctrl.State())
	require.Equal(t, model.ModeCasual, h.mode(t))

	select {
	case err := <-errc:
		require.ErrorIs(t, err, ErrCancelled)
	case <-time.After(time.Second):
		t.Fatalf("start did not return after cancel")
	}
	require.Same(t, h.full, h.pool.Current())
	require.Equal(t, 0, h.record(t, shortVowels).Attempts)
}

func TestFinalExamAwardsBadge(t *testing.T) {
	h := newHarness(t, DefaultLevels())
	ctx := context.Background()

	tree, err := h.ps.Load(ctx)
	require.NoError(t, err)
	for _, rec := range tree["phonics"].Branch.Levels {
		rec.Passed = true
	}
	require.NoError(t, h.ps.Save(ctx, tree))

	final := progress.LevelRef{Series: "phonics", Minor: progress.FinalExam}
	sess, err := h.ctrl.Start(ctx, final)
	require.NoError(t, err)
	require.Equal(t, 40, sess.TargetWordCount)

	res, err := h.ctrl.Complete(ctx, 100)
	require.NoError(t, err)
	require.Len(t, res.NewBadges, 1)
	require.Equal(t, "Phonics Master", res.NewBadges[0].Name)

	tree, err = h.ps.Load(ctx)
	require.NoError(t, err)
	require.True(t, tree["phonics"].Branch.Badge.Earned)
	require.True(t, tree["primaryGrades"].Unlocked)

	_, err = h.ctrl.Start(ctx, progress.LevelRef{Series: "primaryGrades", Major: "grade3", Minor: "term1"})
	require.NoError(t, err)
}

func TestCorrectRate(t *testing.T) {
	require.Equal(t, 0, CorrectRate(0, 0))
	require.Equal(t, 90, CorrectRate(18, 20))
	require.Equal(t, 85, CorrectRate(17, 20))
	require.Equal(t, 67, CorrectRate(2, 3))
	require.Equal(t, 100, CorrectRate(5, 5))
}
