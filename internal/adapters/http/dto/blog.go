package dto

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/jsamuelsen/blogdraft/internal/domain"
	"github.com/jsamuelsen/blogdraft/internal/ports"
)

const (
	MsgDraftSaved    = "Draft saved successfully"
	MsgBlogPublished = "Blog published successfully"
	MsgBlogDeleted   = "Blog deleted successfully"
)

var errTagsFormat = errors.New("tags must be an array of strings or a comma separated string")

// TagList accepts either ["a","b"] or "a, b" on the wire.
type TagList []string

func (t *TagList) UnmarshalJSON(b []byte) error {
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		*t = list
		return nil
	}

	var raw string
	if err := json.Unmarshal(b, &raw); err == nil {
		*t = domain.ParseTags(raw)
		return nil
	}

	return errTagsFormat
}

// BlogRequest is the body of the save-draft and publish endpoints. Length
// rules are enforced by the domain after trimming.
type BlogRequest struct {
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Tags    TagList `json:"tags"             validate:"max=50,dive,max=50"`
	Status  string  `json:"status,omitempty" validate:"omitempty,oneof=draft published"`
	Author  string  `json:"author,omitempty" validate:"max=100"`
}

// Input converts the request into a domain input.
func (r BlogRequest) Input() domain.PostInput {
	return domain.PostInput{
		Title:   r.Title,
		Content: r.Content,
		Tags:    []string(r.Tags),
		Status:  domain.Status(r.Status),
		Author:  r.Author,
	}
}

// Draft converts the request into an editor snapshot.
func (r BlogRequest) Draft() domain.Draft {
	return domain.Draft{Title: r.Title, Content: r.Content, Tags: []string(r.Tags)}
}

// NewBlogRequest builds the body the draft client sends.
func NewBlogRequest(d domain.Draft, status domain.Status) BlogRequest {
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}

	return BlogRequest{Title: d.Title, Content: d.Content, Tags: tags, Status: string(status)}
}

// ListQuery holds the filters of GET /blogs.
type ListQuery struct {
	PageQuery

	Status string `form:"status" validate:"omitempty,oneof=draft published"`
	Tags   string `form:"tags"`
}

// Filter converts the query into a normalized repository filter.
func (q ListQuery) Filter() ports.PostFilter {
	f := ports.PostFilter{Status: domain.Status(q.Status)}
	if q.Tags != "" {
		f.Tags = domain.ParseTags(q.Tags)
	}

	return q.Apply(f)
}

// BlogResponse is a post on the wire.
type BlogResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	Status    string    `json:"status"`
	Author    string    `json:"author"`
	Slug      string    `json:"slug,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ToBlogResponse converts a domain post.
func ToBlogResponse(p *domain.Post) *BlogResponse {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}

	return &BlogResponse{
		ID:        p.ID,
		Title:     p.Title,
		Content:   p.Content,
		Tags:      tags,
		Status:    string(p.Status),
		Author:    p.Author,
		Slug:      p.Slug,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// Post converts the response back into a domain post.
func (r *BlogResponse) Post() *domain.Post {
	return &domain.Post{
		ID:        r.ID,
		Title:     r.Title,
		Content:   r.Content,
		Tags:      r.Tags,
		Status:    domain.Status(r.Status),
		Author:    r.Author,
		Slug:      r.Slug,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// BlogListResponse is the body of GET /blogs.
type BlogListResponse struct {
	Blogs []*BlogResponse `json:"blogs"`
	PageMeta
}

// NewBlogListResponse converts a page of posts.
func NewBlogListResponse(posts []*domain.Post, meta PageMeta) *BlogListResponse {
	blogs := make([]*BlogResponse, 0, len(posts))
	for _, p := range posts {
		blogs = append(blogs, ToBlogResponse(p))
	}

	return &BlogListResponse{Blogs: blogs, PageMeta: meta}
}

// MessageResponse confirms a write. Blog is omitted for deletes.
type MessageResponse struct {
	Message string        `json:"message"`
	Blog    *BlogResponse `json:"blog,omitempty"`
}
