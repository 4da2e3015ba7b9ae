// Package storagetest verifies that a ports.PostRepository behaves the way
// the application layer expects.
package storagetest

import (
	"context"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/blogdraft/internal/domain"
	"github.com/jsamuelsen/blogdraft/internal/ports"
)

// Factory returns an empty repository for one subtest.
type Factory func(t *testing.T) ports.PostRepository

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// NewPost builds a valid post updated `age` after epoch.
func NewPost(title string, status domain.Status, age time.Duration, tags ...string) *domain.Post {
	in := domain.PostInput{
		Title:   title,
		Content: "content for " + title,
		Tags:    tags,
		Status:  status,
	}.Normalize()

	return domain.NewPost(uuid.NewString(), in, epoch.Add(age))
}

// Run executes the shared repository contract.
func Run(t *testing.T, newRepo Factory) {
	t.Helper()

	t.Run("create and get", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		post := NewPost("My Post", domain.StatusDraft, 0, "go", "web")
		require.NoError(t, repo.Create(ctx, post))

		got, err := repo.GetByID(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, post.Title, got.Title)
		assert.Equal(t, post.Content, got.Content)
		assert.Equal(t, []string{"go", "web"}, got.Tags)
		assert.Equal(t, domain.StatusDraft, got.Status)
		assert.Equal(t, domain.DefaultAuthor, got.Author)
		assert.Equal(t, "my-post", got.Slug)
		assert.True(t, post.CreatedAt.Equal(got.CreatedAt))
		assert.True(t, post.UpdatedAt.Equal(got.UpdatedAt))
	})

	t.Run("get unknown", func(t *testing.T) {
		_, err := newRepo(t).GetByID(context.Background(), uuid.NewString())
		assert.True(t, domain.IsNotFound(err))
	})

	t.Run("duplicate slug conflicts", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		require.NoError(t, repo.Create(ctx, NewPost("Same Title", domain.StatusDraft, 0)))

		err := repo.Create(ctx, NewPost("same title!", domain.StatusDraft, time.Minute))
		assert.True(t, domain.IsConflict(err), "got %v", err)
	})

	t.Run("empty slugs do not conflict", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		require.NoError(t, repo.Create(ctx, NewPost("???", domain.StatusDraft, 0)))
		require.NoError(t, repo.Create(ctx, NewPost("!!!", domain.StatusDraft, time.Minute)))
	})

	t.Run("update", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		post := NewPost("Original", domain.StatusDraft, 0, "a")
		require.NoError(t, repo.Create(ctx, post))

		post.Revise(domain.PostInput{
			Title:   "Renamed",
			Content: "updated content",
			Tags:    []string{"b"},
			Status:  domain.StatusPublished,
			Author:  "ann",
		}, epoch.Add(time.Hour))
		require.NoError(t, repo.Update(ctx, post))

		got, err := repo.GetByID(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", got.Title)
		assert.Equal(t, "renamed", got.Slug)
		assert.Equal(t, []string{"b"}, got.Tags)
		assert.Equal(t, domain.StatusPublished, got.Status)
		assert.Equal(t, "ann", got.Author)
		assert.True(t, epoch.Add(time.Hour).Equal(got.UpdatedAt))
	})

	t.Run("update unknown", func(t *testing.T) {
		err := newRepo(t).Update(context.Background(), NewPost("Ghost", domain.StatusDraft, 0))
		assert.True(t, domain.IsNotFound(err))
	})

	t.Run("update into taken slug conflicts", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		require.NoError(t, repo.Create(ctx, NewPost("Taken", domain.StatusDraft, 0)))

		other := NewPost("Other", domain.StatusDraft, 0)
		require.NoError(t, repo.Create(ctx, other))

		other.Revise(domain.PostInput{Title: "Taken", Content: other.Content, Status: domain.StatusDraft}, epoch)
		assert.True(t, domain.IsConflict(repo.Update(ctx, other)))
	})

	t.Run("delete", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		post := NewPost("Doomed", domain.StatusDraft, 0)
		require.NoError(t, repo.Create(ctx, post))
		require.NoError(t, repo.Delete(ctx, post.ID))

		_, err := repo.GetByID(ctx, post.ID)
		assert.True(t, domain.IsNotFound(err))
		assert.True(t, domain.IsNotFound(repo.Delete(ctx, post.ID)))
	})

	t.Run("list filters sorts and pages", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		for i := range 5 {
			status := domain.StatusDraft
			if i%2 == 0 {
				status = domain.StatusPublished
			}

			tags := []string{"all"}
			if i < 2 {
				tags = append(tags, "early")
			}

			require.NoError(t, repo.Create(ctx, NewPost(fmt.Sprintf("Post %d", i), status, time.Duration(i)*time.Minute, tags...)))
		}

		all, err := repo.List(ctx, ports.PostFilter{Page: 1, Limit: 10})
		require.NoError(t, err)
		require.Len(t, all, 5)
		assert.Equal(t, "Post 4", all[0].Title, "newest update first")
		assert.Equal(t, "Post 0", all[4].Title)

		published, err := repo.List(ctx, ports.PostFilter{Status: domain.StatusPublished, Page: 1, Limit: 10})
		require.NoError(t, err)
		assert.Len(t, published, 3)

		n, err := repo.Count(ctx, ports.PostFilter{Status: domain.StatusDraft})
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		early, err := repo.List(ctx, ports.PostFilter{Tags: []string{"early", "missing"}, Page: 1, Limit: 10})
		require.NoError(t, err)
		assert.Len(t, early, 2)

		n, err = repo.Count(ctx, ports.PostFilter{Tags: []string{"early"}, Status: domain.StatusPublished})
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		page2, err := repo.List(ctx, ports.PostFilter{Page: 2, Limit: 2})
		require.NoError(t, err)
		require.Len(t, page2, 2)
		assert.Equal(t, "Post 2", page2[0].Title)

		beyond, err := repo.List(ctx, ports.PostFilter{Page: 9, Limit: 2})
		require.NoError(t, err)
		assert.Empty(t, beyond)
	})

	t.Run("tag filter does not match substrings", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		require.NoError(t, repo.Create(ctx, NewPost("Golang", domain.StatusDraft, 0, "golang")))

		n, err := repo.Count(ctx, ports.PostFilter{Tags: []string{"go"}})
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("huge page is empty", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		require.NoError(t, repo.Create(ctx, NewPost("Only", domain.StatusDraft, 0)))

		var (
			posts []*domain.Post
			err   error
		)

		assert.NotPanics(t, func() {
			posts, err = repo.List(ctx, ports.PostFilter{Page: 461168601842738792, Limit: 20})
		})
		require.NoError(t, err)
		assert.Empty(t, posts)
	})

	t.Run("equal update times order by id", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		var ids []string

		for i := range 6 {
			post := NewPost(fmt.Sprintf("Tied %d", i), domain.StatusDraft, 0)
			require.NoError(t, repo.Create(ctx, post))
			ids = append(ids, post.ID)
		}

		slices.Sort(ids)

		var got []string

		for page := 1; page <= 3; page++ {
			posts, err := repo.List(ctx, ports.PostFilter{Page: page, Limit: 2})
			require.NoError(t, err)

			for _, p := range posts {
				got = append(got, p.ID)
			}
		}

		assert.Equal(t, ids, got)
	})
}
