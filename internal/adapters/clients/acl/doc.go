// Package acl is the anti-corruption layer between draftsync and the blog
// API. Wire DTOs stay in here; callers only see domain posts and domain
// errors.
//
// # Error translation
//
// Every failed call returns a [*RemoteError]. It carries the upstream status,
// code and message, and unwraps to a domain error:
//
//   - 404 → [domain.ErrNotFound] (a [*domain.NotFoundError] for the post id)
//   - 409 → [domain.ErrConflict]
//   - 400/422 → [domain.ValidationErrors] built from the envelope details,
//     or a single [*domain.ValidationError]
//   - 429/5xx, transport failures, open circuit → [domain.ErrUnavailable]
//
// [RemoteError.PublicMessage] is what the auto-save coordinator shows the
// author, so upstream validation messages such as "title must be at least 3
// characters" reach the editor unchanged.
package acl
