package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/verte-zerg/worddrop/internal/model"
)

// ErrNoLessons is returned when a load is requested with no lesson ids.
var ErrNoLessons = errors.New("no lesson sources enabled")

// LessonSource resolves lesson ids to parsed lessons.
type LessonSource interface {
	Lessons(ctx context.Context, ids []string) ([]model.Lesson, error)
}

// ExtraSource contributes one additional lesson after the selected ones,
// such as the missed-words book.
type ExtraSource interface {
	Lesson(ctx context.Context) (model.Lesson, error)
}

// Loader builds catalogs in the background.
type Loader struct {
	lessons LessonSource
	extras  []ExtraSource
}

// NewLoader returns a Loader reading from lessons plus any extra sources.
func NewLoader(lessons LessonSource, extras ...ExtraSource) *Loader {
	return &Loader{lessons: lessons, extras: extras}
}

// Pending is the result of an asynchronous catalog build.
type Pending struct {
	done   chan struct{}
	cat    *Catalog
	report BuildReport
	err    error
}

// Ready returns an already resolved Pending for c.
func Ready(c *Catalog) *Pending {
	p := &Pending{done: make(chan struct{}), cat: c}
	close(p.done)
	return p
}

// Failed returns an already resolved Pending carrying err.
func Failed(err error) *Pending {
	p := &Pending{done: make(chan struct{}), err: err}
	close(p.done)
	return p
}

// Done is closed once the build has finished.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the build finishes or ctx ends.
func (p *Pending) Wait(ctx context.Context) (*Catalog, error) {
	select {
	case <-p.done:
		return p.cat, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Report returns the build report. Only meaningful after Done is closed.
func (p *Pending) Report() BuildReport {
	<-p.done
	return p.report
}

// Load starts building a catalog from ids and returns immediately.
func (l *Loader) Load(ctx context.Context, ids []string) *Pending {
	if len(ids) == 0 && len(l.extras) == 0 {
		return Failed(ErrNoLessons)
	}
	p := &Pending{done: make(chan struct{})}
	go func() {
		defer close(p.done)
		p.cat, p.report, p.err = l.build(ctx, ids)
	}()
	return p
}

func (l *Loader) build(ctx context.Context, ids []string) (*Catalog, BuildReport, error) {
	var lessons []model.Lesson
	if len(ids) > 0 {
		loaded, err := l.lessons.Lessons(ctx, ids)
		if err != nil {
			return nil, BuildReport{}, fmt.Errorf("failed to load lessons: %w", err)
		}
		lessons = loaded
	}
	for _, extra := range l.extras {
		lesson, err := extra.Lesson(ctx)
		if err != nil {
			slog.Warn("skipping extra word source", "error", err)
			continue
		}
		if len(lesson.Entries) > 0 {
			lessons = append(lessons, lesson)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, BuildReport{}, err
	}
	cat, report := Build(lessons...)
	slog.Info("catalog loaded", "lessons", len(lessons), "words", cat.Len(), "duplicates", len(report.Duplicates))
	return cat, report, nil
}
