package progress

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/verte-zerg/worddrop/internal/store"
)

const (
	// Key is the KV key holding the progress tree.
	Key = "certification"
	// ExportVersion is written into export envelopes.
	ExportVersion = "1.0"
)

// Envelope is the export file format.
type Envelope struct {
	Version    string    `json:"version"`
	ExportTime time.Time `json:"exportTime"`
	Data       Tree      `json:"data"`
}

// ImportError describes a rejected import payload.
type ImportError struct {
	Reason string
	Err    error
}

func (e *ImportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid progress import: %s: %v", e.Reason, e.Err)
	}
	return "invalid progress import: " + e.Reason
}

func (e *ImportError) Unwrap() error {
	return e.Err
}

// Store is the only writer of persisted exam progress.
type Store struct {
	kv     store.KV
	layout Layout
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore returns a Store persisting to kv with the canonical shape of layout.
func NewStore(kv store.KV, layout Layout, opts ...Option) *Store {
	s := &Store{kv: kv, layout: layout, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the store clock in UTC.
func (s *Store) Now() time.Time {
	return s.now().UTC()
}

// Layout returns the canonical layout.
func (s *Store) Layout() Layout {
	return s.layout
}

// Defaults returns a fresh canonical tree.
func (s *Store) Defaults() Tree {
	return Defaults(s.layout)
}

// Load returns the saved tree merged onto the defaults. Missing or corrupt
// data yields the defaults. A storage failure also yields the defaults, along
// with the error.
func (s *Store) Load(ctx context.Context) (Tree, error) {
	raw, err := s.kv.Get(ctx, Key)
	if errors.Is(err, store.ErrNotFound) {
		return s.Defaults(), nil
	}
	if err != nil {
		return s.Defaults(), fmt.Errorf("failed to read progress: %w", err)
	}
	var loaded map[string]any
	if err := json.Unmarshal(raw, &loaded); err != nil {
		slog.Warn("saved progress is not valid JSON, using defaults", "error", err)
		return s.Defaults(), nil
	}
	tree, err := mergeOntoDefaults(s.layout, loaded)
	if err != nil {
		slog.Warn("saved progress has an unexpected shape, using defaults", "error", err)
		return s.Defaults(), nil
	}
	return tree, nil
}

// Save persists tree. Last write wins.
func (s *Store) Save(ctx context.Context, tree Tree) error {
	data, err := json.Marshal(tree)
	if err != nil {
		return fmt.Errorf("failed to encode progress: %w", err)
	}
	if err := s.kv.Set(ctx, Key, data); err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}
	return nil
}

// Reset deletes saved progress and returns the defaults.
func (s *Store) Reset(ctx context.Context) (Tree, error) {
	if err := s.kv.Delete(ctx, Key); err != nil {
		return nil, fmt.Errorf("failed to reset progress: %w", err)
	}
	return s.Defaults(), nil
}

// Export writes the current tree wrapped in a versioned envelope.
func (s *Store) Export(ctx context.Context, w io.Writer) error {
	tree, err := s.Load(ctx)
	if err != nil {
		return err
	}
	env := Envelope{Version: ExportVersion, ExportTime: s.Now(), Data: tree}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(env); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}

// Import validates an export envelope, merges its data onto the defaults and
// saves the result. Nothing is written when validation fails.
func (s *Store) Import(ctx context.Context, r io.Reader) (Tree, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read import: %w", err)
	}
	var doc any
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&doc); err != nil {
		return nil, &ImportError{Reason: "not valid JSON", Err: err}
	}
	if err := validateEnvelope(doc); err != nil {
		return nil, &ImportError{Reason: "missing version or data", Err: err}
	}
	data, _ := doc.(map[string]any)["data"].(map[string]any)
	tree, err := mergeOntoDefaults(s.layout, data)
	if err != nil {
		return nil, &ImportError{Reason: "data has an unexpected shape", Err: err}
	}
	if err := s.Save(ctx, tree); err != nil {
		return nil, err
	}
	return tree, nil
}
