package core

import (
	"context"

	"genecatalog/pkg/domain"
)

// Loader is the capability set every gene source provides. LoadAll returns
// the full normalized collection or an error; it never returns a partial
// collection.
type Loader interface {
	LoadAll(ctx context.Context) ([]domain.GeneRecord, error)
	IsAvailable(ctx context.Context) bool
	Name() string
}
