package server_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/Peripli/character-gallery/pkg/characterapi"
	. "github.com/Peripli/character-gallery/pkg/server"
	"github.com/Peripli/character-gallery/pkg/session"
	"github.com/onsi/gomega/ghttp"

	. "github.com/onsi/gomega"
)

const firstPageJSON = `{
  "info": {"count": 3, "pages": 2, "next": "%s/api/character/?page=2", "prev": null},
  "results": [
    {"id": 1, "name": "Rick Sanchez", "image": "https://rickandmortyapi.com/api/character/avatar/1.jpeg"},
    {"id": 2, "name": "Morty Smith", "image": "https://rickandmortyapi.com/api/character/avatar/2.jpeg"}
  ]
}`

const lastPageJSON = `{
  "info": {"count": 3, "pages": 2, "next": null, "prev": "%s/api/character/"},
  "results": [
    {"id": 3, "name": "Summer Smith", "image": "https://rickandmortyapi.com/api/character/avatar/3.jpeg"}
  ]
}`

// fakeAPI serves a two page character catalogue. Either page can be switched to fail.
type fakeAPI struct {
	*ghttp.Server

	mutex            sync.Mutex
	firstPageStatus  int
	secondPageStatus int
	secondPageDelay  time.Duration
}

func newFakeAPI() *fakeAPI {
	api := &fakeAPI{
		Server:           ghttp.NewServer(),
		firstPageStatus:  http.StatusOK,
		secondPageStatus: http.StatusOK,
	}
	api.RouteToHandler(http.MethodGet, "/api/character/", func(w http.ResponseWriter, r *http.Request) {
		api.mutex.Lock()
		status, body, delay := api.firstPageStatus, firstPageJSON, time.Duration(0)
		if r.URL.Query().Get("page") == "2" {
			status, body, delay = api.secondPageStatus, lastPageJSON, api.secondPageDelay
		}
		api.mutex.Unlock()

		time.Sleep(delay)

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			fmt.Fprint(w, `{"error": "UpstreamError", "description": "portal gun malfunction"}`)
			return
		}
		fmt.Fprintf(w, body, api.URL())
	})
	return api
}

func (a *fakeAPI) failFirstPage(status int) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.firstPageStatus = status
}

func (a *fakeAPI) failSecondPage(status int) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.secondPageStatus = status
}

func (a *fakeAPI) delaySecondPage(delay time.Duration) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.secondPageDelay = delay
}

func (a *fakeAPI) requestsFor(page string) int {
	count := 0
	for _, request := range a.ReceivedRequests() {
		if request.URL.Query().Get("page") == page {
			count++
		}
	}
	return count
}

type galleryFixture struct {
	api      *fakeAPI
	sessions *session.Store
	server   *httptest.Server
}

func newGalleryFixture(options ...func(controller *GalleryController)) *galleryFixture {
	api := newFakeAPI()

	apiSettings := characterapi.DefaultSettings()
	apiSettings.URL = api.URL() + "/api/character/"
	client, err := characterapi.NewClient(apiSettings)
	Expect(err).ToNot(HaveOccurred())

	controller := &GalleryController{
		Client:         client,
		Sessions:       session.NewStore(time.Minute, 10),
		Title:          "All the Ricks",
		RequestTimeout: 2 * time.Second,
		PingPeriod:     time.Minute,
	}
	for _, option := range options {
		option(controller)
	}
	srv, err := New(DefaultSettings(), controller)
	Expect(err).ToNot(HaveOccurred())

	return &galleryFixture{
		api:      api,
		sessions: controller.Sessions,
		server:   httptest.NewServer(srv.Router),
	}
}

func (f *galleryFixture) close() {
	f.server.Close()
	f.api.Close()
}

func sessionCookie(response *http.Response) string {
	for _, cookie := range response.Cookies() {
		if cookie.Name == SessionCookie {
			return cookie.Value
		}
	}
	return ""
}
