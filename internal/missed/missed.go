// Package missed keeps the book of words the player failed.
package missed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/verte-zerg/worddrop/internal/model"
	"github.com/verte-zerg/worddrop/internal/store"
)

const (
	// Key holds the book as a JSON object keyed by lowercase word.
	Key = "missedWords"
	// LessonID tags catalog entries that come from the book.
	LessonID = "missed"
)

// Entry is one missed word.
type Entry struct {
	Word       string    `json:"word"`
	Phonetic   string    `json:"phonetic"`
	Meaning    string    `json:"meaning"`
	Count      int       `json:"count"`
	CreateTime time.Time `json:"createTime"`
	LastUpdate time.Time `json:"lastUpdate"`
}

// Book stores missed words in a KV store.
type Book struct {
	kv  store.KV
	now func() time.Time
}

// New returns a Book backed by kv.
func New(kv store.KV) *Book {
	return &Book{kv: kv, now: time.Now}
}

func (b *Book) load(ctx context.Context) (map[string]Entry, error) {
	raw, err := b.kv.Get(ctx, Key)
	if errors.Is(err, store.ErrNotFound) {
		return map[string]Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read missed words: %w", err)
	}
	entries := map[string]Entry{}
	if err := json.Unmarshal(raw, &entries); err != nil {
		slog.Warn("missed words are corrupt, starting over", "error", err)
		return map[string]Entry{}, nil
	}
	return entries, nil
}

func (b *Book) save(ctx context.Context, entries map[string]Entry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode missed words: %w", err)
	}
	if err := b.kv.Set(ctx, Key, data); err != nil {
		return fmt.Errorf("failed to save missed words: %w", err)
	}
	return nil
}

// Record adds words to the book, bumping the count of words already in it.
func (b *Book) Record(ctx context.Context, words ...model.WordEntry) error {
	if len(words) == 0 {
		return nil
	}
	entries, err := b.load(ctx)
	if err != nil {
		return err
	}
	fold := cases.Lower(language.English)
	now := b.now().UTC()
	for _, w := range words {
		key := fold.String(strings.TrimSpace(w.Word))
		if key == "" {
			continue
		}
		e, ok := entries[key]
		if !ok {
			e = Entry{Word: key, Phonetic: w.Phonetic, Meaning: w.Meaning, CreateTime: now}
		}
		e.Count++
		e.LastUpdate = now
		entries[key] = e
	}
	return b.save(ctx, entries)
}

// List returns the book, most recently missed first.
func (b *Book) List(ctx context.Context) ([]Entry, error) {
	entries, err := b.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastUpdate.Equal(out[j].LastUpdate) {
			return out[i].LastUpdate.After(out[j].LastUpdate)
		}
		return out[i].Word < out[j].Word
	})
	return out, nil
}

// Remove deletes one word from the book.
func (b *Book) Remove(ctx context.Context, word string) error {
	entries, err := b.load(ctx)
	if err != nil {
		return err
	}
	key := cases.Lower(language.English).String(strings.TrimSpace(word))
	if _, ok := entries[key]; !ok {
		return nil
	}
	delete(entries, key)
	return b.save(ctx, entries)
}

// Clear empties the book.
func (b *Book) Clear(ctx context.Context) error {
	if err := b.kv.Delete(ctx, Key); err != nil {
		return fmt.Errorf("failed to clear missed words: %w", err)
	}
	return nil
}

// Lesson returns the book as a lesson of medium-difficulty words.
func (b *Book) Lesson(ctx context.Context) (model.Lesson, error) {
	list, err := b.List(ctx)
	if err != nil {
		return model.Lesson{}, err
	}
	lesson := model.Lesson{ID: LessonID, Entries: make([]model.WordEntry, 0, len(list))}
	for _, e := range list {
		lesson.Entries = append(lesson.Entries, model.WordEntry{
			Word:         e.Word,
			Meaning:      e.Meaning,
			Phonetic:     e.Phonetic,
			Difficulty:   model.DifficultyMedium,
			SourceLesson: LessonID,
		})
	}
	return lesson, nil
}
