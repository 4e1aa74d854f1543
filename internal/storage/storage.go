// Package storage keeps an audit trail of calls issued through the API client.
// It is never consulted to answer requests.
package storage

import (
	"crypto/sha1" //nolint:gosec // non-cryptographic id generation
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrBusy is returned when another process holds the history file lock.
var ErrBusy = errors.New("history store is locked by another process")

// Entry is one recorded call.
type Entry struct {
	ID          string    `json:"id"`
	Method      string    `json:"method"`
	URL         string    `json:"url"`
	StatusCode  int       `json:"status_code,omitempty"`
	DurationMs  int64     `json:"duration_ms"`
	Error       string    `json:"error,omitempty"`
	BodySnippet string    `json:"body_snippet,omitempty"`
	At          time.Time `json:"at"`
}

// Store records call history.
type Store interface {
	Close() error
	Record(e Entry) error
	// Recent returns up to limit entries, newest first. limit <= 0 returns all.
	Recent(limit int) ([]Entry, error)
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	EntryTTL        time.Duration
	CleanupInterval time.Duration
}

const (
	defaultEntryTTL        = 7 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return Noop(), nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.EntryTTL <= 0 {
		opts.EntryTTL = defaultEntryTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

// entryID derives a stable identifier for an entry lacking one.
func entryID(e Entry) string {
	sum := sha1.Sum([]byte(e.Method + " " + e.URL + " " + strconv.FormatInt(e.At.UnixNano(), 10)))
	return hex.EncodeToString(sum[:8])
}

// Noop returns a Store that discards entries and reports no history.
func Noop() Store { return noopStore{} }

type noopStore struct{}

func (noopStore) Close() error                { return nil }
func (noopStore) Record(Entry) error          { return nil }
func (noopStore) Recent(int) ([]Entry, error) { return nil, nil }
