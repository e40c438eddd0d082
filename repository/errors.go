package repository

import "fmt"

// EntityNotFoundError reports that MustGet could not find an entity. It is
// a domain-level outcome distinct from Get returning (nil, false, nil):
// callers that treat absence as exceptional opt into it via MustGet.
type EntityNotFoundError struct {
	Entity string
	ID     any
}

// Error implements the error interface.
func (e *EntityNotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Entity, e.ID)
}
