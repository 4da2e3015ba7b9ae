// Package memory is an in-process ports.PostRepository.
package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/jsamuelsen/blogdraft/internal/domain"
	"github.com/jsamuelsen/blogdraft/internal/ports"
)

// Repository keeps posts in a map guarded by a RWMutex. Posts are copied on
// the way in and out so callers never share state with the store.
type Repository struct {
	mu    sync.RWMutex
	posts map[string]*domain.Post
}

var _ ports.PostRepository = (*Repository)(nil)

// New creates an empty repository.
func New() *Repository {
	return &Repository{posts: make(map[string]*domain.Post)}
}

// Name implements ports.HealthChecker.
func (r *Repository) Name() string { return "memory" }

// Check implements ports.HealthChecker; memory storage is always available.
func (r *Repository) Check(context.Context) error { return nil }

func (r *Repository) List(_ context.Context, f ports.PostFilter) ([]*domain.Post, error) {
	r.mu.RLock()
	matched := r.match(f)
	r.mu.RUnlock()

	slices.SortFunc(matched, func(a, b *domain.Post) int {
		return cmp.Or(b.UpdatedAt.Compare(a.UpdatedAt), strings.Compare(a.ID, b.ID))
	})

	f = f.Normalize()

	start := min(f.Offset(), len(matched))
	end := min(start+f.Limit, len(matched))

	return matched[start:end], nil
}

func (r *Repository) Count(_ context.Context, f ports.PostFilter) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.match(f)), nil
}

// match must be called with r.mu held.
func (r *Repository) match(f ports.PostFilter) []*domain.Post {
	out := make([]*domain.Post, 0, len(r.posts))

	for _, p := range r.posts {
		if f.Status != "" && p.Status != f.Status {
			continue
		}

		if len(f.Tags) > 0 && !slices.ContainsFunc(f.Tags, func(t string) bool { return slices.Contains(p.Tags, t) }) {
			continue
		}

		out = append(out, clone(p))
	}

	return out
}

func (r *Repository) GetByID(_ context.Context, id string) (*domain.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.posts[id]
	if !ok {
		return nil, domain.NewNotFoundError(domain.EntityPost, id)
	}

	return clone(p), nil
}

func (r *Repository) Create(_ context.Context, post *domain.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.posts[post.ID]; ok {
		return domain.NewConflictError(domain.EntityPost, "id", post.ID)
	}

	if err := r.slugFree(post); err != nil {
		return err
	}

	r.posts[post.ID] = clone(post)

	return nil
}

func (r *Repository) Update(_ context.Context, post *domain.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.posts[post.ID]; !ok {
		return domain.NewNotFoundError(domain.EntityPost, post.ID)
	}

	if err := r.slugFree(post); err != nil {
		return err
	}

	r.posts[post.ID] = clone(post)

	return nil
}

func (r *Repository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.posts[id]; !ok {
		return domain.NewNotFoundError(domain.EntityPost, id)
	}

	delete(r.posts, id)

	return nil
}

// slugFree must be called with r.mu held. Empty slugs never collide.
func (r *Repository) slugFree(post *domain.Post) error {
	if post.Slug == "" {
		return nil
	}

	for id, other := range r.posts {
		if id != post.ID && other.Slug == post.Slug {
			return domain.NewConflictError(domain.EntityPost, "slug", post.Slug)
		}
	}

	return nil
}

func clone(p *domain.Post) *domain.Post {
	c := *p
	c.Tags = slices.Clone(p.Tags)

	return &c
}
