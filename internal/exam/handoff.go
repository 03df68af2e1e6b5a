package exam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/verte-zerg/worddrop/internal/progress"
	"github.com/verte-zerg/worddrop/internal/store"
)

// PendingKey holds an exam queued for the next game launch.
const PendingKey = "session.currentExam"

// SavePending queues ref to start on the next launch.
func SavePending(ctx context.Context, kv store.KV, ref progress.LevelRef) error {
	data, err := json.Marshal(ref)
	if err != nil {
		return fmt.Errorf("failed to encode pending exam: %w", err)
	}
	if err := kv.Set(ctx, PendingKey, data); err != nil {
		return fmt.Errorf("failed to save pending exam: %w", err)
	}
	return nil
}

// ConsumePending returns and clears the queued exam, if any. A malformed
// entry is discarded.
func ConsumePending(ctx context.Context, kv store.KV) (progress.LevelRef, bool, error) {
	data, err := kv.Get(ctx, PendingKey)
	if errors.Is(err, store.ErrNotFound) {
		return progress.LevelRef{}, false, nil
	}
	if err != nil {
		return progress.LevelRef{}, false, fmt.Errorf("failed to read pending exam: %w", err)
	}
	if err := kv.Delete(ctx, PendingKey); err != nil {
		return progress.LevelRef{}, false, fmt.Errorf("failed to clear pending exam: %w", err)
	}
	var ref progress.LevelRef
	if err := json.Unmarshal(data, &ref); err != nil || ref.Series == "" {
		slog.Warn("discarding malformed pending exam", "value", string(data))
		return progress.LevelRef{}, false, nil
	}
	return ref, true, nil
}

// ParseQuery reads an exam trigger of the form
// mode=exam&series=<id>&major=<id>&minor=<id>. It reports false when the
// query does not ask for an exam.
func ParseQuery(raw string) (progress.LevelRef, bool, error) {
	values, err := url.ParseQuery(strings.TrimPrefix(strings.TrimSpace(raw), "?"))
	if err != nil {
		return progress.LevelRef{}, false, fmt.Errorf("invalid exam query: %w", err)
	}
	if values.Get("mode") != "exam" {
		return progress.LevelRef{}, false, nil
	}
	ref := progress.LevelRef{
		Series: values.Get("series"),
		Major:  values.Get("major"),
		Minor:  values.Get("minor"),
	}
	if ref.Series == "" {
		return progress.LevelRef{}, false, fmt.Errorf("invalid exam query: series is required")
	}
	if ref.Major == "" && ref.Minor == "" {
		return progress.LevelRef{}, false, fmt.Errorf("invalid exam query: major or minor is required")
	}
	return ref, true, nil
}
