// Package prefs stores player preferences.
package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/verte-zerg/worddrop/internal/model"
	"github.com/verte-zerg/worddrop/internal/store"
)

const (
	// LessonsKey holds the enabled lesson ids as a JSON array.
	LessonsKey = "selectedLibraries"
	// ModeKey holds the play mode as a JSON string.
	ModeKey = "gameMode"
)

// Prefs reads and writes preferences in a KV store.
type Prefs struct {
	kv store.KV
}

// New returns Prefs backed by kv.
func New(kv store.KV) *Prefs {
	return &Prefs{kv: kv}
}

// Lessons returns the enabled lesson ids. Nothing saved yields nil.
func (p *Prefs) Lessons(ctx context.Context) ([]string, error) {
	raw, err := p.kv.Get(ctx, LessonsKey)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read lesson selection: %w", err)
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		slog.Warn("ignoring malformed lesson selection", "error", err)
		return nil, nil
	}
	return ids, nil
}

// SetLessons saves the enabled lesson ids, dropping blanks and repeats.
func (p *Prefs) SetLessons(ctx context.Context, ids []string) error {
	seen := make(map[string]bool, len(ids))
	clean := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		clean = append(clean, id)
	}
	data, err := json.Marshal(clean)
	if err != nil {
		return fmt.Errorf("failed to encode lesson selection: %w", err)
	}
	if err := p.kv.Set(ctx, LessonsKey, data); err != nil {
		return fmt.Errorf("failed to save lesson selection: %w", err)
	}
	return nil
}

// Mode returns the saved play mode, casual when unset or unknown.
func (p *Prefs) Mode(ctx context.Context) (model.PlayMode, error) {
	raw, err := p.kv.Get(ctx, ModeKey)
	if errors.Is(err, store.ErrNotFound) {
		return model.ModeCasual, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read play mode: %w", err)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return model.ModeCasual, nil
	}
	mode, err := model.ParsePlayMode(s)
	if err != nil {
		return model.ModeCasual, nil
	}
	return mode, nil
}

// SetMode saves the play mode.
func (p *Prefs) SetMode(ctx context.Context, mode model.PlayMode) error {
	if _, err := model.ParsePlayMode(string(mode)); err != nil {
		return err
	}
	data, err := json.Marshal(string(mode))
	if err != nil {
		return fmt.Errorf("failed to encode play mode: %w", err)
	}
	if err := p.kv.Set(ctx, ModeKey, data); err != nil {
		return fmt.Errorf("failed to save play mode: %w", err)
	}
	return nil
}
