package gallery_test

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"

	. "github.com/Peripli/character-gallery/pkg/gallery"
	"github.com/Peripli/service-manager/pkg/env/envfakes"
	"github.com/gavv/httpexpect"
	"golang.org/x/crypto/bcrypt"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

const singlePageJSON = `{
  "info": {"count": 1, "pages": 1, "next": null, "prev": null},
  "results": [{"id": 1, "name": "Rick Sanchez", "image": "https://rickandmortyapi.com/api/character/avatar/1.jpeg"}]
}`

func basicAuth(user, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+password))
}

var _ = Describe("Gallery", func() {
	var (
		ctx       context.Context
		fakeEnv   *envfakes.FakeEnvironment
		settings  *Settings
		apiServer *ghttp.Server
	)

	BeforeEach(func() {
		ctx = context.TODO()
		apiServer = ghttp.NewServer()
		apiServer.RouteToHandler(http.MethodGet, "/api/character/", ghttp.RespondWith(http.StatusOK, singlePageJSON))

		settings = validSettings()
		settings.API.URL = apiServer.URL() + "/api/character/"
		fakeEnv = &envfakes.FakeEnvironment{}
		fakeEnv.UnmarshalStub = func(value interface{}) error {
			if val, ok := value.(*Settings); ok {
				*val = *settings
			}
			return nil
		}
	})

	AfterEach(func() {
		apiServer.Close()
	})

	Describe("New", func() {
		Context("when setting up config fails", func() {
			It("should panic", func() {
				fakeEnv.UnmarshalStub = nil
				fakeEnv.UnmarshalReturns(fmt.Errorf("error"))

				Expect(func() {
					New(ctx, fakeEnv)
				}).To(Panic())
			})
		})

		Context("when validating config fails", func() {
			It("should panic", func() {
				settings.Log.Level = "loud"

				Expect(func() {
					New(ctx, fakeEnv)
				}).To(Panic())
			})
		})

		Context("when no errors occur", func() {
			var (
				testServer    *httptest.Server
				galleryServer *httpexpect.Expect
			)

			JustBeforeEach(func() {
				g := New(ctx, fakeEnv)
				testServer = httptest.NewServer(g.Server.Router)
				galleryServer = httpexpect.New(GinkgoT(), testServer.URL)
			})

			AfterEach(func() {
				testServer.Close()
			})

			It("bootstraps successfully", func() {
				galleryServer.GET("/healthz").Expect().Status(http.StatusOK)
				galleryServer.GET("/").Expect().Status(http.StatusOK).Body().Contains("Rick Sanchez")
			})

			Context("with basic auth configured", func() {
				BeforeEach(func() {
					hash, err := bcrypt.GenerateFromPassword([]byte("pickle"), bcrypt.MinCost)
					Expect(err).ToNot(HaveOccurred())
					settings.Gallery.User = "rick"
					settings.Gallery.PasswordHash = string(hash)
				})

				It("requires credentials", func() {
					galleryServer.GET("/").Expect().Status(http.StatusUnauthorized)
					galleryServer.GET("/").WithHeader("Authorization", basicAuth("rick", "morty")).Expect().Status(http.StatusUnauthorized)
					galleryServer.GET("/").WithHeader("Authorization", basicAuth("rick", "pickle")).Expect().Status(http.StatusOK)
				})
			})
		})
	})
})
