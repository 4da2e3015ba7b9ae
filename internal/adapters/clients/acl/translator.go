package acl

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/jsamuelsen/blogdraft/internal/adapters/http/dto"
	"github.com/jsamuelsen/blogdraft/internal/domain"
)

// Translator converts an upstream DTO into a domain value, rejecting
// payloads the domain cannot accept.
type Translator[E, D any] func(ext *E) (*D, error)

// DecodeResponse decodes a JSON body into T. It does not close body.
func DecodeResponse[T any](body io.Reader) (*T, error) {
	if body == nil {
		return nil, fmt.Errorf("response body is nil")
	}

	var out T
	if err := json.NewDecoder(body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return &out, nil
}

// TranslateSlice applies translate to every item and stops at the first
// failure.
func TranslateSlice[E, D any](items []E, translate Translator[E, D]) ([]*D, error) {
	out := make([]*D, 0, len(items))

	for i := range items {
		d, err := translate(&items[i])
		if err != nil {
			return nil, fmt.Errorf("translating item %d: %w", i, err)
		}

		out = append(out, d)
	}

	return out, nil
}

// translatePost validates an upstream blog and converts it.
func translatePost(ext *dto.BlogResponse) (*domain.Post, error) {
	if _, err := uuid.Parse(ext.ID); err != nil {
		return nil, domain.NewValidationError("id", "upstream returned an invalid blog ID")
	}

	status, err := domain.ParseStatus(ext.Status)
	if err != nil {
		return nil, err
	}

	post := ext.Post()
	post.Status = status

	if post.Tags == nil {
		post.Tags = []string{}
	}

	return post, nil
}
