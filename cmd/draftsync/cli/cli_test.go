package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/blogdraft/internal/adapters/draftfile"
	httpadapter "github.com/jsamuelsen/blogdraft/internal/adapters/http"
	"github.com/jsamuelsen/blogdraft/internal/adapters/http/handlers"
	"github.com/jsamuelsen/blogdraft/internal/adapters/storage/memory"
	"github.com/jsamuelsen/blogdraft/internal/app"
	"github.com/jsamuelsen/blogdraft/internal/app/autosave"
	"github.com/jsamuelsen/blogdraft/internal/domain"
	"github.com/jsamuelsen/blogdraft/internal/ports"
)

// blogAPI runs the real router over an in-memory repository.
type blogAPI struct {
	url  string
	repo *memory.Repository
}

func newBlogAPI(t *testing.T) *blogAPI {
	t.Helper()

	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := memory.New()
	health := ports.NewHealthRegistry()
	require.NoError(t, health.Register(repo))

	engine := gin.New()
	httpadapter.SetupRouter(engine, httpadapter.RouterConfig{
		Logger:      logger,
		ServiceName: "blogdraft-test",
		Health:      handlers.NewHealthHandler(health, handlers.NewBuildInfo("test", "none", ""), nil),
		Blogs: handlers.NewBlogHandler(app.NewPostService(app.PostServiceConfig{
			Repository: repo,
			Logger:     logger,
		}), nil),
		RequestTimeout: 5 * time.Second,
	})

	server := httptest.NewServer(engine)
	t.Cleanup(server.Close)

	return &blogAPI{url: server.URL, repo: repo}
}

func (a *blogAPI) execute(ctx context.Context, args ...string) (string, error) {
	root := NewRootCmd("test", "abc123")

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"--base-url", a.url, "--log-level", "error"}, args...))

	err := root.ExecuteContext(ctx)

	return out.String(), err
}

func (a *blogAPI) post(t *testing.T, id string) *domain.Post {
	t.Helper()

	p, err := a.repo.GetByID(context.Background(), id)
	require.NoError(t, err)

	return p
}

func writeDraft(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func readID(t *testing.T, path string) string {
	t.Helper()

	doc, err := draftfile.Read(path)
	require.NoError(t, err)

	return doc.ID
}

func TestPublish(t *testing.T) {
	api := newBlogAPI(t)
	ctx := context.Background()
	path := writeDraft(t, t.TempDir(), "hello.md",
		"---\ntitle: Hello world\ntags: Go, web\n---\n\nThis is the body of the post.\n")

	out, err := api.execute(ctx, "publish", path)
	require.NoError(t, err)
	assert.Contains(t, out, `published "Hello world"`)

	id := readID(t, path)
	require.NotEmpty(t, id)

	post := api.post(t, id)
	assert.Equal(t, domain.StatusPublished, post.Status)
	assert.Equal(t, []string{"go", "web"}, post.Tags)

	// Publishing again updates the same post.
	require.NoError(t, draftfile.Write(path, &draftfile.Document{ID: id, Draft: domain.Draft{
		Title: "Hello again", Content: "This is the body of the post.",
	}}))

	_, err = api.execute(ctx, "publish", path)
	require.NoError(t, err)
	assert.Equal(t, "Hello again", api.post(t, id).Title)

	n, err := api.repo.Count(ctx, ports.PostFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPush(t *testing.T) {
	api := newBlogAPI(t)
	ctx := context.Background()
	dir := t.TempDir()

	first := writeDraft(t, dir, "first.md", "---\ntitle: First post\n---\nFirst body content.\n")
	second := writeDraft(t, dir, "second.md", "---\ntitle: Second post\n---\nSecond body content.\n")
	blank := writeDraft(t, dir, "blank.md", "---\ntitle: \"  \"\n---\n\n")

	out, err := api.execute(ctx, "push", "--workers", "2", first, second, blank)
	require.NoError(t, err)
	assert.Contains(t, out, "skipped "+blank)

	for _, path := range []string{first, second} {
		id := readID(t, path)
		require.NotEmpty(t, id, path)
		assert.Equal(t, domain.StatusDraft, api.post(t, id).Status)
		assert.Contains(t, out, "saved "+path+" as "+id)
	}

	assert.Empty(t, readID(t, blank))

	invalid := writeDraft(t, dir, "short.md", "---\ntitle: Hi\n---\nLong enough body.\n")
	_, err = api.execute(ctx, "push", invalid)
	require.ErrorContains(t, err, "saving "+invalid)
	require.ErrorContains(t, err, "title must be at least 3 characters")
}

func TestList(t *testing.T) {
	api := newBlogAPI(t)
	ctx := context.Background()
	dir := t.TempDir()

	draft := writeDraft(t, dir, "draft.md", "---\ntitle: Work in progress\ntags: [go]\n---\nNot finished yet.\n")
	done := writeDraft(t, dir, "done.md", "---\ntitle: Finished post\n---\nAll done and dusted.\n")

	_, err := api.execute(ctx, "push", draft)
	require.NoError(t, err)
	_, err = api.execute(ctx, "publish", done)
	require.NoError(t, err)

	out, err := api.execute(ctx, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Work in progress")
	assert.Contains(t, out, "Finished post")
	assert.Contains(t, out, "page 1 of 1, 2 posts")

	out, err = api.execute(ctx, "list", "--status", "published")
	require.NoError(t, err)
	assert.NotContains(t, out, "Work in progress")
	assert.Contains(t, out, "Finished post")

	out, err = api.execute(ctx, "list", "--tags", "GO")
	require.NoError(t, err)
	assert.Contains(t, out, "Work in progress")
	assert.NotContains(t, out, "Finished post")

	_, err = api.execute(ctx, "list", "--status", "archived")
	require.ErrorContains(t, err, "--status")
}

func TestDelete(t *testing.T) {
	api := newBlogAPI(t)
	ctx := context.Background()
	path := writeDraft(t, t.TempDir(), "gone.md", "---\ntitle: Short lived\n---\nThis will be deleted.\n")

	_, err := api.execute(ctx, "push", path)
	require.NoError(t, err)

	id := readID(t, path)

	out, err := api.execute(ctx, "delete", id)
	require.NoError(t, err)
	assert.Equal(t, "deleted "+id+"\n", out)

	_, err = api.repo.GetByID(ctx, id)
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = api.execute(ctx, "delete", id)
	require.ErrorContains(t, err, "Blog not found")
}

func TestWatch(t *testing.T) {
	api := newBlogAPI(t)
	path := writeDraft(t, t.TempDir(), "live.md", "---\ntitle: Live draft\n---\nTyping as we speak.\n")

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	type outcome struct {
		out string
		err error
	}

	done := make(chan outcome, 1)

	go func() {
		out, err := api.execute(ctx, "watch", path, "--debounce", "20ms", "--interval", "1h")
		done <- outcome{out, err}
	}()

	var id string

	require.Eventually(t, func() bool {
		doc, err := draftfile.Read(path)
		if err != nil {
			return false
		}

		id = doc.ID

		return id != ""
	}, 5*time.Second, 20*time.Millisecond, "post id never written back")

	assert.Equal(t, "Live draft", api.post(t, id).Title)

	require.NoError(t, draftfile.Write(path, &draftfile.Document{ID: id, Draft: domain.Draft{
		Title: "Live draft, revised", Content: "Typing as we speak, still.",
	}}))

	require.Eventually(t, func() bool {
		p, err := api.repo.GetByID(context.Background(), id)
		return err == nil && p.Title == "Live draft, revised"
	}, 5*time.Second, 20*time.Millisecond, "edit never saved")

	cancel()

	select {
	case res := <-done:
		require.NoError(t, res.err)
		assert.True(t, strings.HasPrefix(res.out, "watching "+path+"\n"), "output: %s", res.out)
		assert.Contains(t, res.out, `saved "Live draft, revised"`)
	case <-time.After(10 * time.Second):
		t.Fatal("watch did not stop")
	}

	n, err := api.repo.Count(context.Background(), ports.PostFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, n, "edits must update, not create")
}

func TestVersion(t *testing.T) {
	root := NewRootCmd("1.2.3", "abc123")

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Equal(t, "draftsync 1.2.3 (abc123)\n", out.String())
}

func TestReporter(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		res  autosave.Result
		want string
	}{
		{
			name: "incomplete draft",
			res:  autosave.Result{Outcome: autosave.SkippedEmpty, Trigger: autosave.TriggerManual},
			want: "nothing to save: title or content is empty\n",
		},
		{
			name: "unchanged on manual save",
			res:  autosave.Result{Outcome: autosave.SkippedUnchanged, Trigger: autosave.TriggerManual},
			want: "no changes since the last save\n",
		},
		{
			name: "unchanged on interval is silent",
			res:  autosave.Result{Outcome: autosave.SkippedUnchanged, Trigger: autosave.TriggerInterval},
			want: "",
		},
		{
			name: "failure",
			res:  autosave.Result{Outcome: autosave.Failed, Trigger: autosave.TriggerDebounce, Err: errors.New("boom")},
			want: "save failed (debounce): failed to save draft\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer

			rep := &reporter{
				out:    &out,
				path:   filepath.Join(dir, "unused.md"),
				logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
			}
			rep.report(tt.res)

			assert.Equal(t, tt.want, out.String())
		})
	}
}
