// Package wordlist loads lesson word lists from files.
package wordlist

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/worddrop/internal/model"
)

// ErrUnknownLesson is returned when a requested lesson id has no file.
var ErrUnknownLesson = errors.New("unknown lesson")

var lessonExts = []string{".yaml", ".yml", ".json", ".txt"}

// lessonFile covers both the flat and the grouped lesson layouts.
type lessonFile struct {
	Words          []model.WordEntry      `json:"words" yaml:"words"`
	PhonicsLessons map[string]lessonGroup `json:"phonicsLessons" yaml:"phonicsLessons"`
}

type lessonGroup struct {
	Words []model.WordEntry `json:"words" yaml:"words"`
}

// Library resolves lesson ids to files under a root directory. A lesson id is
// the file path relative to the root, slash separated, without extension.
type Library struct {
	root string
}

// NewLibrary returns a Library rooted at dir.
func NewLibrary(dir string) *Library {
	return &Library{root: dir}
}

// Root returns the lesson directory.
func (l *Library) Root() string {
	return l.root
}

// List returns all lesson ids, sorted.
func (l *Library) List() ([]string, error) {
	paths, err := l.index()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(paths))
	for id := range paths {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Lessons loads the requested lessons in the given order. Files that fail to
// parse are skipped with a warning; ids with no file are an error.
func (l *Library) Lessons(ctx context.Context, ids []string) ([]model.Lesson, error) {
	paths, err := l.index()
	if err != nil {
		return nil, err
	}
	lessons := make([]model.Lesson, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path, ok := paths[id]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownLesson, id)
		}
		lesson, err := LoadFile(path, id)
		if err != nil {
			slog.Warn("skipping invalid lesson file", "path", path, "error", err)
			continue
		}
		lessons = append(lessons, lesson)
	}
	return lessons, nil
}

func (l *Library) index() (map[string]string, error) {
	paths := map[string]string{}
	err := filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == l.root {
				return err
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if !supportedExt(ext) {
			return nil
		}
		rel, err := filepath.Rel(l.root, path)
		if err != nil {
			return nil
		}
		id := filepath.ToSlash(strings.TrimSuffix(rel, filepath.Ext(rel)))
		if prev, ok := paths[id]; ok {
			slog.Warn("duplicate lesson id, keeping first file", "id", id, "kept", prev, "ignored", path)
			return nil
		}
		paths[id] = path
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read lessons directory: %w", err)
	}
	return paths, nil
}

func supportedExt(ext string) bool {
	for _, e := range lessonExts {
		if e == ext {
			return true
		}
	}
	return false
}

// LoadFile parses one lesson file. Entries keep file order and are tagged with id.
func LoadFile(path, id string) (model.Lesson, error) {
	var entries []model.WordEntry
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		entries, err = loadStructured(path, yaml.Unmarshal)
	case ".json":
		entries, err = loadStructured(path, json.Unmarshal)
	case ".txt":
		entries, err = loadPlain(path)
	default:
		err = fmt.Errorf("unsupported lesson file type %q", filepath.Ext(path))
	}
	if err != nil {
		return model.Lesson{}, err
	}
	if len(entries) == 0 {
		return model.Lesson{}, fmt.Errorf("lesson has no words")
	}
	for i := range entries {
		entries[i].SourceLesson = id
		entries[i].Word = strings.TrimSpace(entries[i].Word)
		if entries[i].Difficulty == 0 {
			entries[i].Difficulty = model.DifficultyEasy
		}
	}
	return model.Lesson{ID: id, Entries: entries}, nil
}

func loadStructured(path string, unmarshal func([]byte, any) error) ([]model.WordEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file lessonFile
	if err := unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode lesson: %w", err)
	}
	if len(file.PhonicsLessons) == 0 {
		return file.Words, nil
	}
	// Groups are flattened in key order; maps carry no file order.
	keys := make([]string, 0, len(file.PhonicsLessons))
	for key := range file.PhonicsLessons {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	var entries []model.WordEntry
	for _, key := range keys {
		entries = append(entries, file.PhonicsLessons[key].Words...)
	}
	return entries, nil
}

func loadPlain(path string) ([]model.WordEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only word list.
			_ = cerr
		}
	}()

	var entries []model.WordEntry
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !LettersOnly(line) {
			slog.Debug("skipping non-letter word", "path", path, "word", line)
			continue
		}
		entries = append(entries, model.WordEntry{
			Word:       line,
			Difficulty: InferDifficulty(line),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
