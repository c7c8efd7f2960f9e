package middleware_test

import (
	"net/http"
	"net/http/httptest"

	. "github.com/Peripli/character-gallery/pkg/server/middleware"
	"github.com/Peripli/service-manager/pkg/log"
	"golang.org/x/crypto/bcrypt"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

var _ = Describe("Basic Authentication", func() {
	const (
		validUsername   = "validUsername"
		validPassword   = "validPassword"
		invalidUser     = "invalidUser"
		invalidPassword = "invalidPassword"
	)

	var handler http.Handler

	BeforeEach(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte(validPassword), bcrypt.MinCost)
		Expect(err).ToNot(HaveOccurred())
		handler = BasicAuth(validUsername, string(hash))(okHandler)
	})

	DescribeTable("when given a request with basic authorization",
		func(expectedStatus int, username, password string) {
			request := httptest.NewRequest(http.MethodGet, "/", nil)
			request.SetBasicAuth(username, password)
			recorder := httptest.NewRecorder()

			handler.ServeHTTP(recorder, request)

			Expect(recorder.Code).To(Equal(expectedStatus))
		},
		Entry("returns 401 for empty username", http.StatusUnauthorized, "", validPassword),
		Entry("returns 401 for empty password", http.StatusUnauthorized, validUsername, ""),
		Entry("returns 401 for invalid credentials", http.StatusUnauthorized, invalidUser, invalidPassword),
		Entry("returns 401 for a valid user with a wrong password", http.StatusUnauthorized, validUsername, invalidPassword),
		Entry("returns 200 for valid credentials", http.StatusOK, validUsername, validPassword),
	)

	It("asks for credentials when none are sent", func() {
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

		Expect(recorder.Code).To(Equal(http.StatusUnauthorized))
		Expect(recorder.Header().Get("WWW-Authenticate")).To(ContainSubstring("Basic"))
		Expect(recorder.Body.String()).To(ContainSubstring("Not Authorized"))
	})
})

var _ = Describe("LogRequest", func() {
	It("propagates the correlation id of the request", func() {
		var correlationID interface{}
		handler := LogRequest()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			correlationID = log.C(r.Context()).Data[log.FieldCorrelationID]
		}))
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		request.Header.Set(CorrelationIDHeader, "abc")
		recorder := httptest.NewRecorder()

		handler.ServeHTTP(recorder, request)

		Expect(correlationID).To(Equal("abc"))
		Expect(recorder.Header().Get(CorrelationIDHeader)).To(Equal("abc"))
	})

	It("generates a correlation id when none is sent", func() {
		recorder := httptest.NewRecorder()
		LogRequest()(okHandler).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

		Expect(recorder.Header().Get(CorrelationIDHeader)).ToNot(BeEmpty())
	})
})

var _ = Describe("Recover", func() {
	It("recovers from panics", func() {
		handler := Recover()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("expected")
		}))
		recorder := httptest.NewRecorder()

		Expect(func() {
			handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
		}).ToNot(Panic())
		Expect(recorder.Code).To(Equal(http.StatusInternalServerError))
	})
})
