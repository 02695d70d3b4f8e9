// Package registry keeps the ordered collection of user-registered sources
// and writes it through to a Storage on every mutation.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/logger"
)

var (
	// ErrInvalidSource is returned by Add and Rename when required fields are missing.
	ErrInvalidSource = domain.ErrInvalidSource
	// ErrNotFound is returned by Rename when no source has the given id.
	ErrNotFound = errors.New("source not found")
	// ErrNotRenamable is returned by Rename for sources without a display name.
	ErrNotRenamable = errors.New("only direct link sources can be renamed")
)

// Registry is the ordered source collection.
//
// Every mutation encodes the whole collection and writes it under one key
// before the in-memory state changes, so a failed write leaves both sides
// untouched. Duplicate repositories are allowed.
type Registry struct {
	mu      sync.RWMutex
	storage Storage
	key     string
	logger  logger.Logger
	sources []domain.Source

	// records that failed to decode, written back untouched on every commit
	unreadable []Unreadable

	now   func() time.Time
	newID func() (domain.SourceID, error)
}

// Open loads the collection stored under key.
// A missing key yields an empty registry.
func Open(ctx context.Context, storage Storage, key string, log logger.Logger) (*Registry, error) {
	if key == "" {
		key = DefaultKey
	}
	r := &Registry{
		storage: storage,
		key:     key,
		logger:  log,
		now:     time.Now,
		newID:   newSourceID,
	}
	if err := r.load(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func newSourceID() (domain.SourceID, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate source id: %w", err)
	}
	return domain.SourceID(id.String()), nil
}

func (r *Registry) load(ctx context.Context) error {
	data, err := r.storage.Get(ctx, r.key)
	if err != nil {
		return fmt.Errorf("failed to read sources: %w", err)
	}

	sources, unreadable, err := Decode(data)
	if err != nil {
		return err
	}
	for _, u := range unreadable {
		r.logger.Warn("keeping unreadable source record as stored",
			logger.String("key", r.key),
			logger.Error(u.Err))
	}

	r.sources = sources
	r.unreadable = unreadable
	r.logger.Info("sources loaded",
		logger.String("key", r.key),
		logger.Int("count", len(sources)))
	return nil
}

// List returns a copy of the collection in insertion order.
func (r *Registry) List() []domain.Source {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Source, len(r.sources))
	for i, s := range r.sources {
		out[i] = s.Clone()
	}
	return out
}

// Len returns the number of registered sources.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sources)
}

// Get returns the source with the given id.
func (r *Registry) Get(id domain.SourceID) (domain.Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if i := r.indexOf(id); i >= 0 {
		return r.sources[i].Clone(), true
	}
	return domain.Source{}, false
}

// HasRepo reports whether owner/name is already registered, ignoring case.
func (r *Registry) HasRepo(owner, name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.sources {
		if s.IsRepo(owner, name) {
			return true
		}
	}
	return false
}

// Add assigns an id and a creation time to src, validates it, appends it and persists.
func (r *Registry) Add(ctx context.Context, src domain.Source) (domain.Source, error) {
	src = src.Clone()
	if err := src.Validate(); err != nil {
		return domain.Source{}, err
	}

	id, err := r.newID()
	if err != nil {
		return domain.Source{}, err
	}
	src.ID = id
	src.AddedAt = r.now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()

	next := make([]domain.Source, 0, len(r.sources)+1)
	next = append(next, r.sources...)
	next = append(next, src)
	if err := r.commit(ctx, next); err != nil {
		return domain.Source{}, err
	}

	r.logger.Info("source added",
		logger.String("id", string(src.ID)),
		logger.String("kind", string(src.Kind)))
	return src.Clone(), nil
}

// Remove deletes the source with the given id. Unknown ids are ignored.
func (r *Registry) Remove(ctx context.Context, id domain.SourceID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		r.logger.Debug("remove ignored, unknown source", logger.String("id", string(id)))
		return nil
	}

	next := make([]domain.Source, 0, len(r.sources)-1)
	next = append(next, r.sources[:i]...)
	next = append(next, r.sources[i+1:]...)
	if err := r.commit(ctx, next); err != nil {
		return err
	}

	r.logger.Info("source removed", logger.String("id", string(id)))
	return nil
}

// Rename changes the display name of a direct link source.
func (r *Registry) Rename(ctx context.Context, id domain.SourceID, name string) (domain.Source, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Source{}, fmt.Errorf("%w: display name is required", ErrInvalidSource)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return domain.Source{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	switch r.sources[i].Kind {
	case domain.KindDirectLink:
	case domain.KindRepoRelease:
		return domain.Source{}, fmt.Errorf("%w: %s", ErrNotRenamable, id)
	default:
		return domain.Source{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidSource, r.sources[i].Kind)
	}

	next := make([]domain.Source, len(r.sources))
	copy(next, r.sources)
	renamed := next[i].Clone()
	renamed.Link.DisplayName = name
	next[i] = renamed

	if err := r.commit(ctx, next); err != nil {
		return domain.Source{}, err
	}

	r.logger.Info("source renamed",
		logger.String("id", string(id)),
		logger.String("name", name))
	return renamed.Clone(), nil
}

// commit persists next in full, then makes it the in-memory state. Caller holds r.mu.
func (r *Registry) commit(ctx context.Context, next []domain.Source) error {
	data, err := Encode(next, r.unreadable...)
	if err != nil {
		return err
	}
	if err := r.storage.Set(ctx, r.key, data); err != nil {
		return fmt.Errorf("failed to persist sources: %w", err)
	}
	r.sources = next
	return nil
}

func (r *Registry) indexOf(id domain.SourceID) int {
	for i, s := range r.sources {
		if s.ID == id {
			return i
		}
	}
	return -1
}
