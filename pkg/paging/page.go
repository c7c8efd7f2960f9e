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

	"github.com/pkg/errors"
)

// ErrNoMorePages is returned when a page is requested past the last one
var ErrNoMorePages = errors.New("no more pages")

// Cursor is an opaque locator of a page. The zero value means there are no further pages.
type Cursor string

// NoMorePages is the cursor returned by the last page
const NoMorePages Cursor = ""

// HasNext reports whether the cursor points to a page that can be loaded
func (c Cursor) HasNext() bool {
	return c != NoMorePages
}

func (c Cursor) String() string {
	return string(c)
}

// Page is the result of loading a single cursor
type Page[T any] struct {
	// Next is the cursor of the following page or NoMorePages
	Next Cursor

	// Items are the page entries in the order returned by the source
	Items []T

	// Total is the number of items across all pages, when the source reports it
	Total int

	// Pages is the number of pages, when the source reports it
	Pages int
}

// Loader fetches one page for a cursor
//
// Implementations must not be called with NoMorePages.
type Loader[T any] interface {
	Load(ctx context.Context, cursor Cursor) (*Page[T], error)
}

// LoaderFunc adapts a function to the Loader interface
type LoaderFunc[T any] func(ctx context.Context, cursor Cursor) (*Page[T], error)

// Load calls f(ctx, cursor)
func (f LoaderFunc[T]) Load(ctx context.Context, cursor Cursor) (*Page[T], error) {
	return f(ctx, cursor)
}

// Append returns a new list holding existing followed by incoming.
// Neither argument is modified and the result never shares existing's backing array.
func Append[T any](existing, incoming []T) []T {
	result := make([]T, 0, len(existing)+len(incoming))
	result = append(result, existing...)
	return append(result, incoming...)
}
