package middleware

import (
	"net/http"

	"github.com/Peripli/character-gallery/pkg/httputils"
	"github.com/Peripli/service-manager/pkg/log"
	"golang.org/x/crypto/bcrypt"
)

const notAuthorized = "Not Authorized"

// BasicAuth only lets requests through that carry username and a password matching the bcrypt passwordHash
func BasicAuth(username, passwordHash string) func(handler http.Handler) http.Handler {
	return func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !authorized(r, username, passwordHash) {
				log.C(r.Context()).Debug("Rejecting request without valid basic credentials")
				w.Header().Set("WWW-Authenticate", `Basic realm="gallery"`)
				httputils.WriteResponse(w, http.StatusUnauthorized, httputils.HTTPErrorResponse{
					ErrorKey:     notAuthorized,
					ErrorMessage: "You are not authorized to access this resource",
				})
				return
			}
			handler.ServeHTTP(w, r)
		})
	}
}

func authorized(r *http.Request, username, passwordHash string) bool {
	u, p, isOk := r.BasicAuth()
	if !isOk || u != username {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(p)) == nil
}
