package paging

import (
	"context"

	"github.com/Peripli/service-manager/pkg/log"
	"github.com/pkg/errors"
)

// Pager walks a paged source one page at a time
type Pager[T any] interface {
	// GetResult should return the current fetched results.
	// In case Next() is called it should return the next result if they are fetched
	GetResult() []T

	// Next should try to fetch the next result and when succeed,
	// GetResult() should return the fetched result
	Next(context.Context) error

	HasNext() bool
}

// CursorPager is a Pager over a Loader starting at a given cursor
type CursorPager[T any] struct {
	loader Loader[T]
	next   Cursor
	result []T
}

// NewCursorPager creates a pager positioned before the page at start
func NewCursorPager[T any](loader Loader[T], start Cursor) *CursorPager[T] {
	return &CursorPager[T]{
		loader: loader,
		next:   start,
	}
}

// GetResult returns the items of the last fetched page
func (p *CursorPager[T]) GetResult() []T {
	return p.result
}

// Next fetches the following page
func (p *CursorPager[T]) Next(ctx context.Context) error {
	if !p.next.HasNext() {
		return ErrNoMorePages
	}
	page, err := p.loader.Load(ctx, p.next)
	if err != nil {
		return err
	}
	p.result = page.Items
	p.next = page.Next
	return nil
}

// HasNext reports whether another page can be fetched
func (p *CursorPager[T]) HasNext() bool {
	return p.next.HasNext()
}

// ProcessFunc handles the items of one page
type ProcessFunc[T any] func([]T) error

// PageProcessor feeds every page of a Pager to a ProcessFunc
type PageProcessor[T any] struct {
	Pager Pager[T]
}

// Process fetches pages until the pager is exhausted, fn fails or ctx is cancelled
func (p *PageProcessor[T]) Process(ctx context.Context, fn ProcessFunc[T]) error {
	for p.Pager.HasNext() {
		select {
		case <-ctx.Done():
			log.C(ctx).Info("Page processing cancelled")
			return ctx.Err()
		default:
		}

		if err := p.Pager.Next(ctx); err != nil {
			return errors.Wrap(err, "error during page fetch")
		}

		if err := fn(p.Pager.GetResult()); err != nil {
			return err
		}
	}

	return nil
}
