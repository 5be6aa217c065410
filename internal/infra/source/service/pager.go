package service

import (
	"context"
	"errors"

	"golang.org/x/time/rate"

	"genecatalog/pkg/domain"
)

const (
	// DefaultPageSize is the number of rows requested per page.
	DefaultPageSize = 1000
	// MaxPageSize is the largest limit the listing service accepts.
	MaxPageSize = 1000
)

// PageFunc fetches the page starting at skip holding at most limit rows.
type PageFunc func(ctx context.Context, skip, limit int) ([]Row, error)

// Pager assembles a complete row set from a page-limited endpoint. Pages are
// requested strictly in sequence because each offset depends on the last.
type Pager struct {
	PageSize int
	// Limiter paces page requests when set.
	Limiter *rate.Limiter
}

// FetchAll requests pages until one comes back short or empty. Any failure
// aborts the whole fetch and returns no rows.
func (p Pager) FetchAll(ctx context.Context, fetch PageFunc) ([]Row, error) {
	limit := p.PageSize
	if limit <= 0 {
		limit = DefaultPageSize
	}
	var all []Row
	for skip := 0; ; skip += limit {
		if err := ctx.Err(); err != nil {
			return nil, domain.NewError(domain.KindFetchFailed, domain.SourceService, err)
		}
		if p.Limiter != nil {
			if err := p.Limiter.Wait(ctx); err != nil {
				return nil, domain.NewError(domain.KindFetchFailed, domain.SourceService, err)
			}
		}
		page, err := fetch(ctx, skip, limit)
		if err != nil {
			return nil, pageError(err)
		}
		all = append(all, page...)
		if len(page) < limit {
			return all, nil
		}
	}
}

func pageError(err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	return domain.NewError(domain.KindFetchFailed, domain.SourceService, err)
}
