// Package ports defines the contracts between the application layer and its
// adapters. Methods take a context first, speak in domain types and report
// failures with domain errors (ErrNotFound, ErrConflict, ...).
package ports

import (
	"context"
	"time"

	"github.com/jsamuelsen/blogdraft/internal/domain"
)

// Pagination defaults for PostFilter.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	// MaxPage keeps Offset far from integer overflow.
	MaxPage = 1_000_000
)

// PostFilter selects and pages through posts. Tags match when a post carries
// any of them.
type PostFilter struct {
	Status domain.Status
	Tags   []string
	Page   int
	Limit  int
}

// Normalize clamps paging values into range.
func (f PostFilter) Normalize() PostFilter {
	f.Page = min(max(f.Page, 1), MaxPage)

	switch {
	case f.Limit < 1:
		f.Limit = DefaultPageSize
	case f.Limit > MaxPageSize:
		f.Limit = MaxPageSize
	}

	return f
}

// Offset is the number of rows skipped before the current page, computed on
// the normalized filter.
func (f PostFilter) Offset() int {
	n := f.Normalize()
	return (n.Page - 1) * n.Limit
}

// PostRepository persists posts.
//
// List returns posts ordered by UpdatedAt, newest first.
type PostRepository interface {
	List(ctx context.Context, filter PostFilter) ([]*domain.Post, error)

	// Count returns how many posts match filter, ignoring paging.
	Count(ctx context.Context, filter PostFilter) (int, error)

	// GetByID returns domain.ErrNotFound when id is unknown.
	GetByID(ctx context.Context, id string) (*domain.Post, error)

	// Create returns domain.ErrConflict when the slug is taken.
	Create(ctx context.Context, post *domain.Post) error

	// Update returns domain.ErrNotFound or domain.ErrConflict.
	Update(ctx context.Context, post *domain.Post) error

	// Delete returns domain.ErrNotFound when id is unknown.
	Delete(ctx context.Context, id string) error
}

// Cache stores opaque values by key.
type Cache interface {
	// Get returns domain.ErrNotFound on a miss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value; a ttl of 0 means no expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete is a no-op for missing keys.
	Delete(ctx context.Context, key string) error
}

// DraftSaver is the persistence endpoint used by the auto-save coordinator.
// An empty id creates a new post; otherwise the post with that id is updated.
// The saved post is always stored with status draft.
type DraftSaver interface {
	SaveDraft(ctx context.Context, draft domain.Draft, id string) (*domain.Post, error)
}

// Publisher promotes a draft to published, creating it when id is empty.
type Publisher interface {
	Publish(ctx context.Context, draft domain.Draft, id string) (*domain.Post, error)
}
