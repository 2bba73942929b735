// Package dedup implements DedupLedger (spec.md §3, §4.12 step 5): a
// persisted set of media IDs already successfully processed, consulted
// before dispatch and updated on success, with flushes batched onto a
// background goroutine and a per-category skip-duplicates toggle.
package dedup

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio/v2"

	"github.com/berrizdl/core/internal/domain"
)

// Category is one of the independently toggleable dedup buckets
// (spec.md §4.12 step 5: "image, video, post, notice").
type Category string

const (
	CategoryImage  Category = "image"
	CategoryVideo  Category = "video"
	CategoryPost   Category = "post"
	CategoryNotice Category = "notice"
)

// Toggles controls whether each category's dedup check is enforced.
type Toggles map[Category]bool

// Enabled reports whether c is configured to skip duplicates, defaulting
// to enabled when the category is unset.
func (t Toggles) Enabled(c Category) bool {
	v, ok := t[c]
	if !ok {
		return true
	}
	return v
}

// onDiskSet is the gob-encoded blob written to path.
type onDiskSet struct {
	Seen map[Category]map[string]struct{}
}

// Ledger is the DedupLedger.
type Ledger struct {
	path    string
	toggles Toggles

	mu    sync.Mutex
	seen  map[Category]map[string]struct{}
	dirty bool

	pending chan struct{}
	closing chan struct{}
	wg      sync.WaitGroup
}

// Load opens the ledger at path, decoding its gob blob if present, or
// starting empty if the file doesn't exist yet.
func Load(path string, toggles Toggles) (*Ledger, error) {
	l := &Ledger{
		path:    path,
		toggles: toggles,
		seen:    make(map[Category]map[string]struct{}),
		pending: make(chan struct{}, 1),
		closing: make(chan struct{}),
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// fresh ledger
	case err != nil:
		return nil, fmt.Errorf("dedup: read %s: %w", path, err)
	default:
		var disk onDiskSet
		if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&disk); err != nil {
			return nil, fmt.Errorf("dedup: decode %s: %w", path, err)
		}
		if disk.Seen != nil {
			l.seen = disk.Seen
		}
	}

	l.wg.Add(1)
	go l.flushLoop()
	return l, nil
}

// Seen reports whether id in category has already been processed. When
// the category's toggle is off, duplicates are never suppressed and this
// always reports false.
func (l *Ledger) Seen(category Category, id string) bool {
	if !l.toggles.Enabled(category) {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.seen[category][id]
	return ok
}

// MarkDone records id in category as processed and schedules a
// background flush to disk.
func (l *Ledger) MarkDone(category Category, id string) {
	l.mu.Lock()
	if l.seen[category] == nil {
		l.seen[category] = make(map[string]struct{})
	}
	l.seen[category][id] = struct{}{}
	l.dirty = true
	l.mu.Unlock()

	select {
	case l.pending <- struct{}{}:
	default:
	}
}

// CategoryFor maps a MediaType onto its dedup category.
func CategoryFor(t domain.MediaType) Category {
	switch t {
	case domain.MediaVOD, domain.MediaLive:
		return CategoryVideo
	case domain.MediaPhoto:
		return CategoryImage
	case domain.MediaPost:
		return CategoryPost
	case domain.MediaNotice:
		return CategoryNotice
	default:
		return CategoryVideo
	}
}

func (l *Ledger) flushLoop() {
	defer l.wg.Done()
	for {
		select {
		case <-l.pending:
			if err := l.flush(); err != nil {
				// best effort; the next MarkDone or the final Close retries
				continue
			}
		case <-l.closing:
			// drain one last pending signal, if any, before the final flush
			select {
			case <-l.pending:
			default:
			}
			_ = l.flush()
			return
		}
	}
}

func (l *Ledger) flush() error {
	l.mu.Lock()
	if !l.dirty {
		l.mu.Unlock()
		return nil
	}
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(onDiskSet{Seen: l.seen})
	if err == nil {
		l.dirty = false
	}
	l.mu.Unlock()
	if err != nil {
		return fmt.Errorf("dedup: encode: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("dedup: mkdir: %w", err)
	}
	if err := renameio.WriteFile(l.path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("dedup: atomic write: %w", err)
	}
	return nil
}

// Close flushes any pending state synchronously and stops the background
// goroutine (spec.md §4.12 step 6: "the dedup ledger is flushed to disk"
// on cancellation).
func (l *Ledger) Close() error {
	close(l.closing)
	l.wg.Wait()
	return nil
}
