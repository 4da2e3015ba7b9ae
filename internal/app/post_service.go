// Package app contains the use cases of the blog service. It coordinates the
// domain rules with storage and caching through ports and knows nothing about
// HTTP or SQL.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"k8s.io/utils/clock"

	"github.com/jsamuelsen/blogdraft/internal/domain"
	"github.com/jsamuelsen/blogdraft/internal/platform/logging"
	"github.com/jsamuelsen/blogdraft/internal/ports"
)

// DefaultCacheTTL is used when PostServiceConfig.CacheTTL is zero.
const DefaultCacheTTL = 5 * time.Minute

// PostService implements listing, reading, saving, publishing and deleting
// posts.
type PostService struct {
	repo     ports.PostRepository
	cache    ports.Cache
	cacheTTL time.Duration
	clock    clock.PassiveClock
	newID    func() string
	exec     *Executor
	logger   *slog.Logger
}

// PostServiceConfig wires a PostService. Cache is optional.
type PostServiceConfig struct {
	Repository  ports.PostRepository
	Cache       ports.Cache
	CacheTTL    time.Duration
	Clock       clock.PassiveClock
	IDGenerator func() string
	Logger      *slog.Logger
}

// NewPostService creates a PostService.
func NewPostService(cfg PostServiceConfig) *PostService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger = logger.With(slog.String("component", "app.PostService"))

	svc := &PostService{
		repo:     cfg.Repository,
		cache:    cfg.Cache,
		cacheTTL: cfg.CacheTTL,
		clock:    cfg.Clock,
		newID:    cfg.IDGenerator,
		exec:     NewExecutor(logger),
		logger:   logger,
	}

	if svc.cacheTTL <= 0 {
		svc.cacheTTL = DefaultCacheTTL
	}

	if svc.clock == nil {
		svc.clock = clock.RealClock{}
	}

	if svc.newID == nil {
		svc.newID = uuid.NewString
	}

	return svc
}

// PostPage is one page of a filtered listing.
type PostPage struct {
	Posts      []*domain.Post
	Total      int
	TotalPages int
	Page       int
	Limit      int
}

// SaveResult is the outcome of SaveDraft and Publish.
type SaveResult struct {
	Post    *domain.Post
	Created bool
}

// List returns the requested page, newest update first.
func (s *PostService) List(ctx context.Context, filter ports.PostFilter) (*PostPage, error) {
	f := filter.Normalize()
	f.Tags = domain.NormalizeTags(f.Tags)

	posts, total, err := Parallel2(ctx,
		func(ctx context.Context) ([]*domain.Post, error) { return s.repo.List(ctx, f) },
		func(ctx context.Context) (int, error) { return s.repo.Count(ctx, f) },
	)
	if err != nil {
		return nil, fmt.Errorf("listing posts: %w", err)
	}

	return &PostPage{
		Posts:      posts,
		Total:      total,
		TotalPages: (total + f.Limit - 1) / f.Limit,
		Page:       f.Page,
		Limit:      f.Limit,
	}, nil
}

// Get returns one post, reading through the cache when one is configured.
func (s *PostService) Get(ctx context.Context, id string) (*domain.Post, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	if post, ok := s.cached(ctx, id); ok {
		return post, nil
	}

	post, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting post: %w", err)
	}

	s.remember(ctx, post)

	return post, nil
}

// SaveDraft creates (empty id) or updates a post with status draft.
func (s *PostService) SaveDraft(ctx context.Context, in domain.PostInput, id string) (*SaveResult, error) {
	in.Status = domain.StatusDraft

	return s.upsert(ctx, "save_draft", in, id)
}

// Publish creates (empty id) or updates a post with status published.
func (s *PostService) Publish(ctx context.Context, in domain.PostInput, id string) (*SaveResult, error) {
	in.Status = domain.StatusPublished

	return s.upsert(ctx, "publish", in, id)
}

// Delete removes a post and evicts it from the cache.
func (s *PostService) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting post: %w", err)
	}

	s.forget(ctx, id)
	s.log(ctx).InfoContext(ctx, "post deleted", slog.String("post_id", id))

	return nil
}

type upsertRequest struct {
	id    string
	input domain.PostInput
}

type upsertOutcome struct {
	post    *domain.Post
	created bool
}

func (s *PostService) upsert(ctx context.Context, name string, in domain.PostInput, id string) (*SaveResult, error) {
	op := Operation[upsertRequest, upsertOutcome, *SaveResult]{
		Name: name,
		Validate: func(_ context.Context, req upsertRequest) error {
			if req.id != "" {
				if err := validateID(req.id); err != nil {
					return err
				}
			}

			return req.input.Validate()
		},
		Perform: s.performUpsert,
		Verify: func(ctx context.Context, _ upsertRequest, done upsertOutcome) (upsertOutcome, error) {
			stored, err := s.repo.GetByID(ctx, done.post.ID)
			if err != nil {
				return upsertOutcome{}, fmt.Errorf("reading back post: %w", err)
			}

			return upsertOutcome{post: stored, created: done.created}, nil
		},
		Archive: func(ctx context.Context, _ upsertRequest, done upsertOutcome) error {
			s.remember(ctx, done.post)
			return nil
		},
		Respond: func(ctx context.Context, _ upsertRequest, done upsertOutcome) (*SaveResult, error) {
			s.log(ctx).InfoContext(ctx, "post saved",
				slog.String("post_id", done.post.ID),
				slog.String("status", string(done.post.Status)),
				slog.Bool("created", done.created),
			)

			return &SaveResult{Post: done.post, Created: done.created}, nil
		},
	}

	return Execute(ctx, s.exec, op, upsertRequest{id: id, input: in.Normalize()})
}

func (s *PostService) performUpsert(ctx context.Context, req upsertRequest) (upsertOutcome, error) {
	now := s.clock.Now().UTC()

	if req.id == "" {
		post := domain.NewPost(s.newID(), req.input, now)
		if err := s.repo.Create(ctx, post); err != nil {
			return upsertOutcome{}, fmt.Errorf("creating post: %w", err)
		}

		return upsertOutcome{post: post, created: true}, nil
	}

	post, err := s.repo.GetByID(ctx, req.id)
	if err != nil {
		return upsertOutcome{}, fmt.Errorf("loading post: %w", err)
	}

	post.Revise(req.input, now)

	if err := s.repo.Update(ctx, post); err != nil {
		return upsertOutcome{}, fmt.Errorf("updating post: %w", err)
	}

	return upsertOutcome{post: post}, nil
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.NewValidationError("id", "invalid blog ID")
	}

	return nil
}

func cacheKey(id string) string {
	return "post:" + id
}

// cached returns the cached post for id. Cache failures are logged and
// treated as misses.
func (s *PostService) cached(ctx context.Context, id string) (*domain.Post, bool) {
	if s.cache == nil {
		return nil, false
	}

	raw, err := s.cache.Get(ctx, cacheKey(id))
	if err != nil {
		if !domain.IsNotFound(err) {
			s.log(ctx).WarnContext(ctx, "cache read failed", slog.String("post_id", id), slog.Any("error", err))
		}

		return nil, false
	}

	var post domain.Post
	if err := json.Unmarshal(raw, &post); err != nil {
		s.log(ctx).WarnContext(ctx, "discarding corrupt cache entry", slog.String("post_id", id), slog.Any("error", err))
		s.forget(ctx, id)

		return nil, false
	}

	return &post, true
}

func (s *PostService) remember(ctx context.Context, post *domain.Post) {
	if s.cache == nil {
		return
	}

	raw, err := json.Marshal(post)
	if err != nil {
		return
	}

	if err := s.cache.Set(ctx, cacheKey(post.ID), raw, s.cacheTTL); err != nil {
		s.log(ctx).WarnContext(ctx, "cache write failed", slog.String("post_id", post.ID), slog.Any("error", err))
	}
}

func (s *PostService) forget(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}

	if err := s.cache.Delete(ctx, cacheKey(id)); err != nil {
		s.log(ctx).WarnContext(ctx, "cache eviction failed", slog.String("post_id", id), slog.Any("error", err))
	}
}

func (s *PostService) log(ctx context.Context) *slog.Logger {
	return logging.FromContextOr(ctx, s.logger)
}
