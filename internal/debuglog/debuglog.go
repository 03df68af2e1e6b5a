// Package debuglog captures log records into a persisted ring so they can be
// reviewed after the fact.
package debuglog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/verte-zerg/worddrop/internal/store"
)

const (
	// Key holds the persisted entries as a JSON array.
	Key = "debugLogs"
	// MaxEntries bounds how many entries are kept.
	MaxEntries = 1000
)

// ErrBadPassword is returned when the debug log password does not match.
var ErrBadPassword = errors.New("debug log password does not match")

// Entry is one captured log record.
type Entry struct {
	Time    time.Time         `json:"timestamp"`
	Level   string            `json:"level"`
	Message string            `json:"message"`
	Attrs   map[string]string `json:"attrs,omitempty"`
}

// Ring buffers entries in memory until Flush writes them out.
type Ring struct {
	kv store.KV

	mu      sync.Mutex
	pending []Entry
}

// NewRing returns a Ring backed by kv.
func NewRing(kv store.KV) *Ring {
	return &Ring{kv: kv}
}

// Add buffers an entry. Only the newest MaxEntries are buffered.
func (r *Ring) Add(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = append(r.pending, e)
	if over := len(r.pending) - MaxEntries; over > 0 {
		r.pending = append(r.pending[:0], r.pending[over:]...)
	}
}

// Pending returns the number of buffered entries.
func (r *Ring) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Flush appends the buffered entries to the persisted ones, keeping the
// newest MaxEntries.
func (r *Ring) Flush(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.pending) == 0 {
		return nil
	}
	stored, err := r.load(ctx)
	if err != nil {
		return err
	}
	all := append(stored, r.pending...)
	if over := len(all) - MaxEntries; over > 0 {
		all = all[over:]
	}
	data, err := json.Marshal(all)
	if err != nil {
		return fmt.Errorf("failed to encode debug logs: %w", err)
	}
	if err := r.kv.Set(ctx, Key, data); err != nil {
		return fmt.Errorf("failed to save debug logs: %w", err)
	}
	r.pending = nil
	return nil
}

// List returns persisted entries followed by buffered ones, oldest first.
func (r *Ring) List(ctx context.Context) ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	all := append(stored, r.pending...)
	if over := len(all) - MaxEntries; over > 0 {
		all = all[over:]
	}
	return all, nil
}

// Clear drops buffered and persisted entries.
func (r *Ring) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = nil
	if err := r.kv.Delete(ctx, Key); err != nil {
		return fmt.Errorf("failed to clear debug logs: %w", err)
	}
	return nil
}

func (r *Ring) load(ctx context.Context) ([]Entry, error) {
	raw, err := r.kv.Get(ctx, Key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read debug logs: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		// Corrupt history is replaced on the next flush.
		return nil, nil
	}
	return entries, nil
}

// HashPassword returns a bcrypt hash for the debug log password.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Verify checks password against hash. An empty hash means no password is
// configured and everything is allowed.
func Verify(hash, password string) error {
	if hash == "" {
		return nil
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return ErrBadPassword
	}
	return nil
}
