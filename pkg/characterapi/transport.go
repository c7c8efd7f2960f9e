package characterapi

import (
	"crypto/tls"
	"net/http"
)

// UserAgentTransport implements http.RoundTripper interface and sets the User-Agent header
// before delegating to the underlying RoundTripper
type UserAgentTransport struct {
	UserAgent string

	Rt http.RoundTripper
}

// RoundTrip implements http.RoundTrip and adds the user agent header before delegating to the
// underlying RoundTripper
func (t UserAgentTransport) RoundTrip(request *http.Request) (*http.Response, error) {
	if t.UserAgent != "" && request.Header.Get("User-Agent") == "" {
		request = request.Clone(request.Context())
		request.Header.Set("User-Agent", t.UserAgent)
	}

	return t.Rt.RoundTrip(request)
}

// NewSkipSSLTransport returns a transport cloned from http.DefaultTransport with TLS verification
// switched according to skipSSLValidation
func NewSkipSSLTransport(skipSSLValidation bool) *http.Transport {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{
		InsecureSkipVerify: skipSSLValidation,
	}
	return transport
}
