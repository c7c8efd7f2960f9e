package web

import (
	"net/http"
	"strings"

	"github.com/a-h/templ"
)

// RequestHeaderKey is the HTMX request header used to detect partial updates.
const RequestHeaderKey = "HX-Request"

// IsHTMXRequest reports whether the request was initiated by HTMX.
func IsHTMXRequest(r *http.Request) bool {
	if r == nil {
		return false
	}
	return strings.EqualFold(r.Header.Get(RequestHeaderKey), "true")
}

// Render writes component with the given status code.
func Render(w http.ResponseWriter, r *http.Request, status int, component templ.Component) {
	templ.Handler(component, templ.WithStatus(status)).ServeHTTP(w, r)
}

// RenderPage renders fragment for HTMX requests and full otherwise.
func RenderPage(w http.ResponseWriter, r *http.Request, status int, fragment, full templ.Component) {
	if IsHTMXRequest(r) && fragment != nil {
		Render(w, r, status, fragment)
		return
	}
	Render(w, r, status, full)
}
