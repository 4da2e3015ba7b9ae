package acl

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/jsamuelsen/blogdraft/internal/adapters/clients"
	"github.com/jsamuelsen/blogdraft/internal/adapters/http/dto"
	"github.com/jsamuelsen/blogdraft/internal/domain"
	"github.com/jsamuelsen/blogdraft/internal/platform/logging"
	"github.com/jsamuelsen/blogdraft/internal/ports"
)

const blogsPath = "/api/v1/blogs"

// BlogClient talks to the blog API on behalf of draftsync. It is the
// ports.DraftSaver the auto-save coordinator writes through.
type BlogClient struct {
	client  *clients.Client
	service string
	logger  *slog.Logger
}

var (
	_ ports.DraftSaver    = (*BlogClient)(nil)
	_ ports.Publisher     = (*BlogClient)(nil)
	_ ports.HealthChecker = (*BlogClient)(nil)
)

// NewBlogClient wraps client. service names the API in errors and logs.
func NewBlogClient(client *clients.Client, service string, logger *slog.Logger) *BlogClient {
	if logger == nil {
		logger = slog.Default()
	}

	return &BlogClient{client: client, service: service, logger: logger}
}

// Page is one page of GET /blogs.
type Page struct {
	Posts      []*domain.Post
	Total      int
	TotalPages int
	Page       int
}

// SaveDraft creates (empty id) or updates the post as a draft.
func (b *BlogClient) SaveDraft(ctx context.Context, draft domain.Draft, id string) (*domain.Post, error) {
	return b.upsert(ctx, "save draft", "/save-draft", draft, domain.StatusDraft, id)
}

// Publish creates (empty id) or updates the post as published.
func (b *BlogClient) Publish(ctx context.Context, draft domain.Draft, id string) (*domain.Post, error) {
	return b.upsert(ctx, "publish", "/publish", draft, domain.StatusPublished, id)
}

func (b *BlogClient) upsert(ctx context.Context, op, route string, draft domain.Draft, status domain.Status, id string) (*domain.Post, error) {
	body := dto.NewBlogRequest(draft, status)

	var (
		resp *http.Response
		err  error
	)

	if id == "" {
		resp, err = b.client.Post(ctx, blogsPath+route, body)
	} else {
		resp, err = b.client.Put(ctx, blogsPath+route+"/"+url.PathEscape(id), body)
	}

	if err != nil {
		return nil, MapTransportError(err, b.service, op)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := MapResponse(resp, b.service, op, id); err != nil {
		b.log(ctx).WarnContext(ctx, "blog API rejected request",
			slog.String("operation", op),
			slog.Int("status", resp.StatusCode),
			slog.Any("error", err),
		)

		return nil, err
	}

	msg, err := DecodeResponse[dto.MessageResponse](resp.Body)
	if err != nil {
		return nil, b.malformed(op, err)
	}

	if msg.Blog == nil {
		return nil, b.malformed(op, fmt.Errorf("response has no blog"))
	}

	post, err := translatePost(msg.Blog)
	if err != nil {
		return nil, b.malformed(op, err)
	}

	b.log(ctx).Log(ctx, logging.LevelTrace, "blog API accepted request",
		slog.String("operation", op),
		slog.String("post_id", post.ID),
		slog.Int("status", resp.StatusCode),
	)

	return post, nil
}

// Get fetches one post.
func (b *BlogClient) Get(ctx context.Context, id string) (*domain.Post, error) {
	const op = "get blog"

	resp, err := b.client.Get(ctx, blogsPath+"/"+url.PathEscape(id))
	if err != nil {
		return nil, MapTransportError(err, b.service, op)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := MapResponse(resp, b.service, op, id); err != nil {
		return nil, err
	}

	ext, err := DecodeResponse[dto.BlogResponse](resp.Body)
	if err != nil {
		return nil, b.malformed(op, err)
	}

	post, err := translatePost(ext)
	if err != nil {
		return nil, b.malformed(op, err)
	}

	return post, nil
}

// List fetches one page of posts matching f.
func (b *BlogClient) List(ctx context.Context, f ports.PostFilter) (*Page, error) {
	const op = "list blogs"

	q := url.Values{}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}

	if len(f.Tags) > 0 {
		q.Set("tags", strings.Join(f.Tags, ","))
	}

	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}

	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}

	path := blogsPath
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	resp, err := b.client.Get(ctx, path)
	if err != nil {
		return nil, MapTransportError(err, b.service, op)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := MapResponse(resp, b.service, op, ""); err != nil {
		return nil, err
	}

	ext, err := DecodeResponse[dto.BlogListResponse](resp.Body)
	if err != nil {
		return nil, b.malformed(op, err)
	}

	posts, err := TranslateSlice(ext.Blogs, func(r **dto.BlogResponse) (*domain.Post, error) {
		return translatePost(*r)
	})
	if err != nil {
		return nil, b.malformed(op, err)
	}

	return &Page{Posts: posts, Total: ext.Total, TotalPages: ext.TotalPages, Page: ext.CurrentPage}, nil
}

// Delete removes a post.
func (b *BlogClient) Delete(ctx context.Context, id string) error {
	const op = "delete blog"

	resp, err := b.client.Delete(ctx, blogsPath+"/"+url.PathEscape(id))
	if err != nil {
		return MapTransportError(err, b.service, op)
	}
	defer func() { _ = resp.Body.Close() }()

	return MapResponse(resp, b.service, op, id)
}

// Name implements ports.HealthChecker.
func (b *BlogClient) Name() string { return b.service }

// Check implements ports.HealthChecker by probing the API's liveness route.
func (b *BlogClient) Check(ctx context.Context) error {
	resp, err := b.client.Get(ctx, "/-/live")
	if err != nil {
		return MapTransportError(err, b.service, "health check")
	}
	defer func() { _ = resp.Body.Close() }()

	return MapResponse(resp, b.service, "health check", "")
}

func (b *BlogClient) malformed(op string, err error) error {
	return &RemoteError{
		Service:   b.service,
		Operation: op,
		Message:   "unexpected response from " + b.service,
		Err:       domain.NewUnavailableError(b.service, err),
	}
}

func (b *BlogClient) log(ctx context.Context) *slog.Logger {
	return logging.FromContextOr(ctx, b.logger)
}
