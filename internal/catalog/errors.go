package catalog

import (
	"errors"
	"fmt"
	"net/http"

	"spotify2mp3/internal/shared"
)

// ErrEntityNotFound is returned when the catalog has no data for an id
var ErrEntityNotFound = errors.New("catalog entity not found")

// RetrievalError wraps a transport or HTTP failure while loading an entity
type RetrievalError struct {
	Kind Kind
	ID   string
	Err  error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("error retrieving %s %s: %v", e.Kind, e.ID, e.Err)
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}

func notFound(kind Kind, id string) error {
	return fmt.Errorf("%w: %s %s", ErrEntityNotFound, kind, id)
}

// classifyLoadError maps a service failure onto the entity error kinds.
// Only a 404 on a playlist lookup counts as not found; everything else is a retrieval error.
func classifyLoadError(kind Kind, id string, err error) error {
	if errors.Is(err, ErrEntityNotFound) {
		return err
	}
	if kind == KindPlaylist && shared.StatusCodeOf(err) == http.StatusNotFound {
		return notFound(kind, id)
	}
	return &RetrievalError{Kind: kind, ID: id, Err: err}
}
