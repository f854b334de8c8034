package query

import (
	"context"
	"strconv"
)

// Pageable is satisfied by PostQuery and TagQuery.
type Pageable[T any] interface {
	Count(ctx context.Context) (int, error)
	Fetch(ctx context.Context, limit, offset int) ([]T, error)
}

// Page is one slice of a paginated result. Short final pages are kept as they
// are, never merged into the previous page.
type Page[T any] struct {
	Number   int
	NumPages int
	PerPage  int
	Total    int
	Items    []T
}

// PageNumber clamps the raw "page" parameter into [1, numPages]. Anything that
// is not a number selects the first page.
func PageNumber(raw string, total, perPage int) (number, numPages int) {
	numPages = 1
	if perPage > 0 && total > 0 {
		numPages = (total + perPage - 1) / perPage
	}
	number, err := strconv.Atoi(raw)
	if err != nil || number < 1 {
		number = 1
	}
	if number > numPages {
		number = numPages
	}
	return number, numPages
}

// Paginate counts q and fetches the page selected by raw.
func Paginate[T any](ctx context.Context, q Pageable[T], raw string, perPage int) (*Page[T], error) {
	total, err := q.Count(ctx)
	if err != nil {
		return nil, err
	}
	number, numPages := PageNumber(raw, total, perPage)
	page := &Page[T]{Number: number, NumPages: numPages, PerPage: perPage, Total: total}
	if total == 0 {
		return page, nil
	}
	page.Items, err = q.Fetch(ctx, perPage, (number-1)*perPage)
	if err != nil {
		return nil, err
	}
	return page, nil
}

func (p *Page[T]) HasPrevious() bool { return p.Number > 1 }

func (p *Page[T]) HasNext() bool { return p.Number < p.NumPages }

func (p *Page[T]) PreviousNumber() int { return p.Number - 1 }

func (p *Page[T]) NextNumber() int { return p.Number + 1 }

func (p *Page[T]) HasOtherPages() bool { return p.NumPages > 1 }
