package core

import (
	"fmt"

	"genecatalog/pkg/domain"
)

// Registry is the closed, read-only set of gene sources known to the
// catalog, kept in registration order.
type Registry struct {
	order []domain.SourceDescriptor
	byID  map[domain.SourceID]domain.SourceDescriptor
}

// NewRegistry builds a registry from descriptors. IDs must be non-empty
// and unique.
func NewRegistry(descriptors ...domain.SourceDescriptor) (*Registry, error) {
	r := &Registry{byID: make(map[domain.SourceID]domain.SourceDescriptor, len(descriptors))}
	for _, d := range descriptors {
		if d.ID == "" {
			return nil, fmt.Errorf("source descriptor %q has empty id", d.Name)
		}
		if _, dup := r.byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate source id %s", d.ID)
		}
		r.byID[d.ID] = d
		r.order = append(r.order, d)
	}
	return r, nil
}

// DefaultRegistry registers the file and service sources. The service
// source is toggled by serviceEnabled.
func DefaultRegistry(serviceEnabled bool) *Registry {
	r, _ := NewRegistry(
		domain.SourceDescriptor{
			ID:          domain.SourceFile,
			Name:        "CSV File",
			Description: "Static gene table bundled with the catalog",
			Enabled:     true,
		},
		domain.SourceDescriptor{
			ID:          domain.SourceService,
			Name:        "Backend API",
			Description: "Paginated gene listing service",
			Enabled:     serviceEnabled,
		},
	)
	return r
}

// List returns every descriptor in registration order.
func (r *Registry) List() []domain.SourceDescriptor {
	out := make([]domain.SourceDescriptor, len(r.order))
	copy(out, r.order)
	return out
}

// Describe returns the descriptor for id.
func (r *Registry) Describe(id domain.SourceID) (domain.SourceDescriptor, error) {
	d, ok := r.byID[id]
	if !ok {
		return domain.SourceDescriptor{}, domain.NewError(domain.KindUnknownSource, id, nil)
	}
	return d, nil
}

// Has reports whether id is registered.
func (r *Registry) Has(id domain.SourceID) bool {
	_, ok := r.byID[id]
	return ok
}
