package enrollment

import (
	"context"
	"fmt"
	"time"
)

// Page is one bounded slice of eligible enrollments.
type Page struct {
	// Number is the 1-based position of the page in the run.
	Number int
	Refs   []Ref
}

// Len returns the number of enrollments in the page.
func (p Page) Len() int { return len(p.Refs) }

// Pager is a lazy, finite sequence of eligible enrollment pages. It is
// restartable: Cursor reports the last ID handed out and WithCursor
// resumes after it.
type Pager struct {
	store  Store
	cutoff time.Time
	size   int

	cursor int64
	pages  int
	done   bool
}

// PagerOption configures a Pager.
type PagerOption func(*Pager)

// WithCursor resumes paging after the given enrollment ID.
func WithCursor(afterID int64) PagerOption {
	return func(p *Pager) { p.cursor = afterID }
}

// NewPager returns a Pager over store for cutoff with pages of at most
// size enrollments.
func NewPager(store Store, cutoff time.Time, size int, opts ...PagerOption) *Pager {
	p := &Pager{
		store:  store,
		cutoff: cutoff,
		size:   size,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Next reads the next page. The boolean is false once the sequence is
// exhausted; the returned page is then empty.
func (p *Pager) Next(ctx context.Context) (Page, bool, error) {
	if p.done {
		return Page{}, false, nil
	}
	if p.size <= 0 {
		return Page{}, false, fmt.Errorf("enrollment: invalid page size %d", p.size)
	}

	refs, err := p.store.PageEligible(ctx, p.cutoff, p.cursor, p.size)
	if err != nil {
		return Page{}, false, err
	}
	if len(refs) == 0 {
		p.done = true
		return Page{}, false, nil
	}
	if len(refs) < p.size {
		// Short page: nothing is left behind the cursor.
		p.done = true
	}

	p.cursor = refs[len(refs)-1].ID
	p.pages++
	return Page{Number: p.pages, Refs: refs}, true, nil
}

// Cursor returns the ID of the last enrollment handed out.
func (p *Pager) Cursor() int64 { return p.cursor }

// Pages returns how many non-empty pages have been read.
func (p *Pager) Pages() int { return p.pages }
