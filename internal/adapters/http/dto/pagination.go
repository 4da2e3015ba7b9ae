package dto

import "github.com/jsamuelsen/blogdraft/internal/ports"

// PageQuery is the page/limit pair accepted by list endpoints. Values out of
// range are rejected by validation; zero means "use the default".
type PageQuery struct {
	Page  int `form:"page"  json:"page"  validate:"omitempty,gte=1,lte=1000000"`
	Limit int `form:"limit" json:"limit" validate:"omitempty,gte=1,lte=100"`
}

// PageMeta describes where a page sits in the full result set.
type PageMeta struct {
	TotalPages  int `json:"totalPages"`
	CurrentPage int `json:"currentPage"`
	Total       int `json:"total"`
}

// Apply copies the query into a repository filter and normalizes it.
func (q PageQuery) Apply(f ports.PostFilter) ports.PostFilter {
	f.Page = q.Page
	f.Limit = q.Limit

	return f.Normalize()
}

// NewPageMeta computes the page count for total items split by limit.
func NewPageMeta(total, page, limit int) PageMeta {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}

	return PageMeta{TotalPages: pages, CurrentPage: page, Total: total}
}
