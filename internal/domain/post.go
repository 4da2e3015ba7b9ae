package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Status is the publication state of a post.
type Status string

// Post statuses.
const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// Field limits enforced by Validate.
const (
	TitleMinLength   = 3
	TitleMaxLength   = 200
	ContentMinLength = 10
)

// DefaultAuthor is stored when a post is saved without an author.
const DefaultAuthor = "Anonymous"

// EntityPost is the entity name used in domain errors.
const EntityPost = "blog"

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusDraft || s == StatusPublished
}

// ParseStatus converts a raw string into a Status.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", NewValidationError("status", "must be one of draft, published")
	}

	return s, nil
}

// Post is a blog document.
type Post struct {
	ID      string
	Title   string
	Content string
	Tags    []string
	Status  Status
	Author  string

	// Slug is derived from Title and unique across posts. Titles without
	// any letters or digits produce an empty slug.
	Slug string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PostInput carries the user-editable fields of a post.
type PostInput struct {
	Title   string
	Content string
	Tags    []string
	Status  Status
	Author  string
}

// Normalize returns a copy with trimmed text, normalized tags and the
// default author applied.
func (in PostInput) Normalize() PostInput {
	out := in
	out.Title = strings.TrimSpace(in.Title)
	out.Content = strings.TrimSpace(in.Content)
	out.Tags = NormalizeTags(in.Tags)
	out.Author = strings.TrimSpace(in.Author)

	if out.Author == "" {
		out.Author = DefaultAuthor
	}

	return out
}

// Validate checks the business rules on a normalized input.
func (in PostInput) Validate() error {
	var errs ValidationErrors

	switch n := utf8.RuneCountInString(in.Title); {
	case n == 0:
		errs = append(errs, &ValidationError{Field: "title", Message: "is required"})
	case n < TitleMinLength:
		errs = append(errs, &ValidationError{Field: "title", Message: "must be at least 3 characters"})
	case n > TitleMaxLength:
		errs = append(errs, &ValidationError{Field: "title", Message: "must be at most 200 characters"})
	}

	switch n := utf8.RuneCountInString(in.Content); {
	case n == 0:
		errs = append(errs, &ValidationError{Field: "content", Message: "is required"})
	case n < ContentMinLength:
		errs = append(errs, &ValidationError{Field: "content", Message: "must be at least 10 characters"})
	}

	if in.Status != "" && !in.Status.Valid() {
		errs = append(errs, &ValidationError{Field: "status", Message: "must be one of draft, published"})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// NewPost builds a post from a normalized input.
func NewPost(id string, in PostInput, now time.Time) *Post {
	return &Post{
		ID:        id,
		Title:     in.Title,
		Content:   in.Content,
		Tags:      in.Tags,
		Status:    in.Status,
		Author:    in.Author,
		Slug:      Slugify(in.Title),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Revise applies in to p. The slug is regenerated only when the title changes.
func (p *Post) Revise(in PostInput, now time.Time) {
	if p.Title != in.Title {
		p.Slug = Slugify(in.Title)
	}

	p.Title = in.Title
	p.Content = in.Content
	p.Tags = in.Tags
	p.Status = in.Status
	p.Author = in.Author
	p.UpdatedAt = now
}

// Draft is the editor's snapshot of a post being written.
type Draft struct {
	Title   string
	Content string
	Tags    []string
}

// Blank reports whether both title and content are empty after trimming.
func (d Draft) Blank() bool {
	return strings.TrimSpace(d.Title) == "" && strings.TrimSpace(d.Content) == ""
}

// Complete reports whether both title and content are non-empty after trimming.
func (d Draft) Complete() bool {
	return strings.TrimSpace(d.Title) != "" && strings.TrimSpace(d.Content) != ""
}

// Input converts the draft into a post input with the given status.
func (d Draft) Input(status Status) PostInput {
	return PostInput{
		Title:   d.Title,
		Content: d.Content,
		Tags:    d.Tags,
		Status:  status,
	}
}

// Slugify lowercases title and joins its alphanumeric runs with dashes.
func Slugify(title string) string {
	var b strings.Builder

	pendingDash := false

	for _, r := range strings.ToLower(title) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}

			b.WriteRune(r)

			pendingDash = false

			continue
		}

		pendingDash = true
	}

	return b.String()
}

// NormalizeTags trims and lowercases tags, dropping empties and duplicates.
// The first occurrence of each tag keeps its position.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))

	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}

		if _, ok := seen[t]; ok {
			continue
		}

		seen[t] = struct{}{}
		out = append(out, t)
	}

	return out
}

// ParseTags splits a comma separated list and normalizes the result.
func ParseTags(raw string) []string {
	return NormalizeTags(strings.Split(raw, ","))
}
