package autosave

import (
	"errors"

	"github.com/jsamuelsen/blogdraft/internal/domain"
)

// DefaultFailureMessage is shown when a failed save carries no message from
// the server.
const DefaultFailureMessage = "failed to save draft"

// ErrClosed is returned for saves requested after Close.
var ErrClosed = errors.New("autosave: coordinator closed")

// Outcome classifies a save attempt.
type Outcome string

const (
	Saved            Outcome = "saved"
	SkippedEmpty     Outcome = "skipped_empty"
	SkippedUnchanged Outcome = "skipped_unchanged"
	Failed           Outcome = "failed"
)

// Trigger names what started a save attempt.
type Trigger string

const (
	TriggerDebounce Trigger = "debounce"
	TriggerInterval Trigger = "interval"
	TriggerManual   Trigger = "manual"
)

// Result reports one save attempt. Post is set when Outcome is Saved, Err
// when it is Failed.
type Result struct {
	Outcome Outcome
	Trigger Trigger
	Post    *domain.Post
	Err     error
}

// publicMessenger is implemented by errors that carry a message written for
// the author, such as the error body returned by the blog API.
type publicMessenger interface {
	PublicMessage() string
}

// Message returns the text to show the author for a failed save, or "" when
// the attempt did not fail.
func (r Result) Message() string {
	if r.Outcome != Failed {
		return ""
	}

	var pm publicMessenger
	if errors.As(r.Err, &pm) && pm.PublicMessage() != "" {
		return pm.PublicMessage()
	}

	return DefaultFailureMessage
}

// reachedEndpoint reports whether the attempt called the draft endpoint.
func (r Result) reachedEndpoint() bool {
	return r.Outcome == Saved || r.Outcome == Failed
}
