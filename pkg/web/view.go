// Package web renders the character gallery as HTML. The components live in views.templ, run
// templ generate after changing it.
package web

import "github.com/Peripli/character-gallery/pkg/characterapi"

// LoadMorePath is the endpoint the load more control posts to
const LoadMorePath = "/characters/more"

// GalleryView is the data needed to render the gallery
type GalleryView struct {
	Title      string
	Characters []characterapi.Character
	HasMore    bool
	Page       int
	Pages      int
	Total      int
	Error      string
}
