// Package exam runs certification exam sessions.
package exam

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/worddrop/internal/badges"
	"github.com/verte-zerg/worddrop/internal/catalog"
	"github.com/verte-zerg/worddrop/internal/model"
	"github.com/verte-zerg/worddrop/internal/progress"
)

// PassThreshold is the minimum correct rate, in percent, that passes.
const PassThreshold = 90

const defaultLoadTimeout = 10 * time.Second

// State is the controller state.
type State int

const (
	StateIdle State = iota
	StateChecking
	StateLoading
	StateActive
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateChecking:
		return "checking"
	case StateLoading:
		return "loading"
	case StateActive:
		return "active"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ModeStore reads and writes the player's play mode.
type ModeStore interface {
	Mode(ctx context.Context) (model.PlayMode, error)
	SetMode(ctx context.Context, mode model.PlayMode) error
}

// Session is the running exam. It only lives between Start and
// Complete or Cancel.
type Session struct {
	ID              string
	Ref             progress.LevelRef
	Level           LevelInfo
	StartTime       time.Time
	TargetWordCount int
	CatalogSize     int
	backup          *catalog.Catalog
	priorMode       model.PlayMode
}

// Result is the outcome of a completed exam.
type Result struct {
	SessionID     string
	Ref           progress.LevelRef
	Score         int
	Passed        bool
	Attempts      int
	BestScore     int
	BestDuration  *int
	Duration      time.Duration
	CooldownUntil *time.Time
	NewBadges     []badges.Badge
}

// Controller runs at most one exam at a time.
type Controller struct {
	levels   Levels
	progress *progress.Store
	pool     *catalog.Pool
	modes    ModeStore
	pending  func() *catalog.Pending
	lessons  *catalog.Loader
	rnd      catalog.Rand
	timeout  time.Duration

	mu           sync.Mutex
	state        State
	token        uint64
	loadingPrior model.PlayMode
	abortLoad    context.CancelFunc
	session      *Session
	hits         int
	fallen       int
}

// Option configures a Controller.
type Option func(*Controller)

// WithRand sets the source used to sample exam vocabulary.
func WithRand(rnd catalog.Rand) Option {
	return func(c *Controller) { c.rnd = rnd }
}

// WithLoadTimeout bounds how long Start waits for the catalog.
func WithLoadTimeout(d time.Duration) Option {
	return func(c *Controller) { c.timeout = d }
}

// WithPending supplies the in-flight load of the regular catalog. Without it
// Start uses whatever the pool holds.
func WithPending(fn func() *catalog.Pending) Option {
	return func(c *Controller) { c.pending = fn }
}

// WithLessonLoader enables building exam vocabulary from a level's own
// lessons. Without it such levels sample the regular catalog.
func WithLessonLoader(l *catalog.Loader) Option {
	return func(c *Controller) { c.lessons = l }
}

// NewController wires a controller.
func NewController(levels Levels, ps *progress.Store, pool *catalog.Pool, modes ModeStore, opts ...Option) *Controller {
	c := &Controller{
		levels:   levels,
		progress: ps,
		pool:     pool,
		modes:    modes,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
		timeout:  defaultLoadTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Levels returns the level catalog.
func (c *Controller) Levels() Levels {
	return c.levels
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns a copy of the running session.
func (c *Controller) Session() (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return Session{}, false
	}
	return *c.session, true
}

// Start checks eligibility, forces challenge mode, installs a sampled
// catalog of the level's word count and activates the session. A rejected
// start changes nothing.
func (c *Controller) Start(ctx context.Context, ref progress.LevelRef) (Session, error) {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return Session{}, ErrSessionActive
	}
	ref = c.levels.Normalize(ref)
	c.state = StateChecking
	info, prior, err := c.check(ctx, ref)
	if err != nil {
		c.state = StateIdle
		c.mu.Unlock()
		return Session{}, err
	}
	c.state = StateLoading
	c.token++
	token := c.token
	c.loadingPrior = prior
	pending := c.source(ctx, info)
	var regular *catalog.Pending
	if c.ownLessons(info) {
		regular = c.regular()
	}
	waitCtx, cancel := context.WithTimeout(ctx, c.timeout)
	c.abortLoad = cancel
	c.mu.Unlock()

	cat, loadErr := pending.Wait(waitCtx)
	var unrestricted *catalog.Catalog
	if loadErr == nil && regular != nil {
		if full, err := regular.Wait(waitCtx); err == nil {
			unrestricted = full
		} else {
			slog.Warn("failed to load regular catalog for exam backup", "level", ref.String(), "error", err)
		}
	}
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.abortLoad = nil
	if c.token != token || c.state != StateLoading {
		slog.Info("discarding catalog load for cancelled exam", "level", ref.String())
		return Session{}, ErrCancelled
	}
	if err := c.loadFailure(ref, cat, loadErr); err != nil {
		c.restoreMode(ctx, prior)
		c.state = StateIdle
		return Session{}, err
	}

	backup := cat
	if c.ownLessons(info) {
		backup = unrestricted
		if backup == nil {
			backup = c.pool.Current()
		}
	}
	restricted := cat.Sample(c.rnd, info.WordCount)
	c.pool.Swap(restricted)
	c.session = &Session{
		ID:              uuid.NewString(),
		Ref:             ref,
		Level:           info,
		StartTime:       c.progress.Now(),
		TargetWordCount: info.WordCount,
		CatalogSize:     restricted.Len(),
		backup:          backup,
		priorMode:       prior,
	}
	c.hits, c.fallen = 0, 0
	c.state = StateActive
	slog.Info("exam started", "session", c.session.ID, "level", ref.String(), "words", restricted.Len())
	return *c.session, nil
}

// check runs under c.mu.
func (c *Controller) check(ctx context.Context, ref progress.LevelRef) (LevelInfo, model.PlayMode, error) {
	info, err := c.levels.Lookup(ref)
	if err != nil {
		return LevelInfo{}, "", err
	}
	tree, err := c.progress.Load(ctx)
	if err != nil {
		return LevelInfo{}, "", err
	}
	if err := c.levels.CheckEligibility(tree, ref, c.progress.Now()); err != nil {
		slog.Info("exam start rejected", "level", ref.String(), "reason", err)
		return LevelInfo{}, "", err
	}
	if info.WordCount <= 0 {
		return LevelInfo{}, "", &ConfigError{Ref: ref, Reason: "word count is zero"}
	}
	prior, err := c.modes.Mode(ctx)
	if err != nil {
		return LevelInfo{}, "", fmt.Errorf("failed to read play mode: %w", err)
	}
	if err := c.modes.SetMode(ctx, model.ModeChallenge); err != nil {
		return LevelInfo{}, "", fmt.Errorf("failed to set play mode: %w", err)
	}
	return info, prior, nil
}

// ownLessons reports whether the level loads its own lessons instead of
// sampling the regular catalog.
func (c *Controller) ownLessons(info LevelInfo) bool {
	return len(info.Lessons) > 0 && c.lessons != nil
}

func (c *Controller) source(ctx context.Context, info LevelInfo) *catalog.Pending {
	if c.ownLessons(info) {
		return c.lessons.Load(ctx, info.Lessons)
	}
	if len(info.Lessons) > 0 {
		slog.Warn("lesson loading unavailable, sampling the current catalog", "level", info.ID)
	}
	return c.regular()
}

// regular resolves the unrestricted catalog: the host's pending load, else
// whatever the pool holds.
func (c *Controller) regular() *catalog.Pending {
	if c.pending != nil {
		if p := c.pending(); p != nil {
			return p
		}
	}
	if cur := c.pool.Current(); cur != nil {
		return catalog.Ready(cur)
	}
	return catalog.Failed(catalog.ErrNoLessons)
}

func (c *Controller) loadFailure(ref progress.LevelRef, cat *catalog.Catalog, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ErrLoadTimeout
	case errors.Is(err, catalog.ErrNoLessons):
		return &ConfigError{Ref: ref, Reason: "no lesson source", Err: err}
	case err != nil:
		return fmt.Errorf("failed to load exam vocabulary: %w", err)
	case cat.Len() == 0:
		return &ConfigError{Ref: ref, Reason: "vocabulary is empty"}
	}
	return nil
}

// Observe records the host's running counters.
func (c *Controller) Observe(hits, fallen int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateActive {
		return
	}
	c.hits, c.fallen = hits, fallen
}

// CorrectRate returns the rate of the observed counters.
func (c *Controller) CorrectRate() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CorrectRate(c.hits, c.fallen)
}

// CorrectRate returns round(hits/fallen*100), or 0 when nothing has fallen.
func CorrectRate(hits, fallen int) int {
	if fallen <= 0 {
		return 0
	}
	return int(math.Round(float64(hits) / float64(fallen) * 100))
}

// Complete scores the running exam, persists the attempt and restores the
// prior catalog and play mode. When saving fails the restore still happens
// and the error is returned with the result.
func (c *Controller) Complete(ctx context.Context, correctRate int) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateActive || c.session == nil {
		return Result{}, ErrNoSession
	}
	sess := c.session
	defer c.finish(ctx)

	now := c.progress.Now()
	tree, err := c.progress.Load(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to record exam result: %w", err)
	}
	rec, err := tree.Record(sess.Ref)
	if err != nil {
		return Result{}, fmt.Errorf("failed to record exam result: %w", err)
	}

	layout := c.progress.Layout()
	before := badges.Earned(tree, layout)
	passed := correctRate >= PassThreshold
	elapsed := now.Sub(sess.StartTime)
	secs := int(elapsed.Round(time.Second) / time.Second)
	rec.RecordAttempt(correctRate, passed, now, &secs)
	if passed {
		c.levels.Award(tree, sess.Ref, now)
	}

	res := Result{
		SessionID:     sess.ID,
		Ref:           sess.Ref,
		Score:         correctRate,
		Passed:        passed,
		Attempts:      rec.Attempts,
		BestScore:     rec.Score,
		BestDuration:  rec.BestDuration,
		Duration:      elapsed,
		CooldownUntil: rec.CooldownUntil,
		NewBadges:     badges.Newly(before, badges.Earned(tree, layout)),
	}
	slog.Info("exam completed", "session", sess.ID, "level", sess.Ref.String(), "score", correctRate, "passed", passed)
	if err := c.progress.Save(ctx, tree); err != nil {
		return res, err
	}
	return res, nil
}

// Cancel abandons any exam without recording an attempt. It never fails; a
// start still waiting for its catalog returns ErrCancelled.
func (c *Controller) Cancel(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case StateLoading:
		c.token++
		if c.abortLoad != nil {
			c.abortLoad()
		}
		c.restoreMode(ctx, c.loadingPrior)
		c.state = StateIdle
		slog.Info("exam cancelled while loading")
	case StateActive:
		slog.Info("exam cancelled", "session", c.session.ID, "level", c.session.Ref.String())
		c.finish(ctx)
	}
}

// finish restores the backup catalog and mode. Runs under c.mu.
func (c *Controller) finish(ctx context.Context) {
	if c.session != nil {
		c.pool.Swap(c.session.backup)
		c.restoreMode(ctx, c.session.priorMode)
	}
	c.session = nil
	c.hits, c.fallen = 0, 0
	c.state = StateIdle
}

func (c *Controller) restoreMode(ctx context.Context, mode model.PlayMode) {
	if mode == "" {
		return
	}
	if err := c.modes.SetMode(ctx, mode); err != nil {
		slog.Error("failed to restore play mode", "mode", string(mode), "error", err)
	}
}
