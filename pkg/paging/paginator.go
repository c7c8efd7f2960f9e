/*
 * Copyright 2018 The Service Manager Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package paging

import (
	"context"
	"sync"

	"github.com/Peripli/service-manager/pkg/log"
	"github.com/pkg/errors"
)

// ErrLoadInProgress is returned when more items are requested while a previous load has not finished
var ErrLoadInProgress = errors.New("a page is already being loaded")

// State is the state of a Paginator
type State int

const (
	// Idle means the paginator waits for a load more trigger
	Idle State = iota
	// Loading means a page fetch is in flight
	Loading
	// Exhausted means the last page has been loaded
	Exhausted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Snapshot is a consistent copy of the paginator state
type Snapshot[T any] struct {
	Items   []T
	Current Cursor
	Next    Cursor
	State   State
	Total   int
	Pages   int
	Loads   int
	Err     error
}

// HasNext reports whether another page can be requested
func (s Snapshot[T]) HasNext() bool {
	return s.Next.HasNext()
}

// Paginator accumulates the items of consecutive pages of a Loader.
// Only one load may be in flight at a time.
type Paginator[T any] struct {
	mutex  sync.Mutex
	loader Loader[T]

	items   []T
	current Cursor
	next    Cursor
	total   int
	pages   int
	loads   int
	loading bool
	lastErr error
}

// NewPaginator creates a paginator in the idle state pre-populated with first, which was loaded from origin
func NewPaginator[T any](loader Loader[T], origin Cursor, first *Page[T]) *Paginator[T] {
	p := &Paginator[T]{
		loader:  loader,
		current: origin,
		items:   []T{},
	}
	if first != nil {
		p.items = Append(p.items, first.Items)
		p.next = first.Next
		p.total = first.Total
		p.pages = first.Pages
		p.loads = 1
	}
	return p
}

// LoadMore fetches the page after the last loaded one and appends its items.
// It returns the appended items. When there are no more pages it returns ErrNoMorePages and when
// a load is already running it returns ErrLoadInProgress; in both cases the state is untouched.
// A failed fetch leaves the cursor where it was so the same page can be requested again.
func (p *Paginator[T]) LoadMore(ctx context.Context) ([]T, error) {
	p.mutex.Lock()
	if p.loading {
		p.mutex.Unlock()
		return nil, ErrLoadInProgress
	}
	if !p.next.HasNext() {
		p.mutex.Unlock()
		return nil, ErrNoMorePages
	}
	cursor := p.next
	p.loading = true
	p.mutex.Unlock()

	log.C(ctx).Debugf("Loading page %s", cursor)
	page, err := p.loader.Load(ctx, cursor)

	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.loading = false
	if err != nil {
		p.lastErr = err
		return nil, err
	}
	if page == nil {
		page = &Page[T]{}
	}

	p.items = Append(p.items, page.Items)
	p.current = cursor
	p.next = page.Next
	p.total = page.Total
	p.pages = page.Pages
	p.loads++
	p.lastErr = nil
	log.C(ctx).Debugf("Loaded %d items from %s, %d accumulated", len(page.Items), cursor, len(p.items))

	return page.Items, nil
}

// Snapshot returns a copy of the current state
func (p *Paginator[T]) Snapshot() Snapshot[T] {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	state := Idle
	switch {
	case p.loading:
		state = Loading
	case !p.next.HasNext():
		state = Exhausted
	}

	return Snapshot[T]{
		Items:   Append(nil, p.items),
		Current: p.current,
		Next:    p.next,
		State:   state,
		Total:   p.total,
		Pages:   p.pages,
		Loads:   p.loads,
		Err:     p.lastErr,
	}
}

// Len returns the number of accumulated items
func (p *Paginator[T]) Len() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return len(p.items)
}
