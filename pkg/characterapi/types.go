package characterapi

import (
	"net/url"

	"github.com/spf13/cast"
)

// Place is a named location reference of a character
type Place struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Character type used for responses from the character API
type Character struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	Status   string   `json:"status"`
	Species  string   `json:"species"`
	Type     string   `json:"type"`
	Gender   string   `json:"gender"`
	Origin   Place    `json:"origin"`
	Location Place    `json:"location"`
	Image    string   `json:"image"`
	Episode  []string `json:"episode"`
	URL      string   `json:"url"`
	Created  string   `json:"created"`
}

// Info is the paging block of a listing response
type Info struct {
	Count int     `json:"count"`
	Pages int     `json:"pages"`
	Next  *string `json:"next"`
	Prev  *string `json:"prev"`
}

// Characters type used for listing responses from the character API
type Characters struct {
	Info    Info        `json:"info"`
	Results []Character `json:"results"`
}

// PageNumber extracts the page query parameter of a cursor URL. The first page has no
// parameter and yields 1; unparsable cursors yield 0.
func PageNumber(cursor string) int {
	u, err := url.Parse(cursor)
	if err != nil || cursor == "" {
		return 0
	}
	page := u.Query().Get("page")
	if page == "" {
		return 1
	}
	n, err := cast.ToIntE(page)
	if err != nil || n < 1 {
		return 0
	}
	return n
}
