package server_test

import (
	"net/http"
	"strings"
	"time"

	. "github.com/Peripli/character-gallery/pkg/server"
	"github.com/Peripli/character-gallery/pkg/session"
	"github.com/gavv/httpexpect"
	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Websocket", func() {
	var (
		fixture *galleryFixture
		options []func(controller *GalleryController)
		id      string
		conn    *websocket.Conn
	)

	BeforeEach(func() {
		options = nil
	})

	JustBeforeEach(func() {
		fixture = newGalleryFixture(options...)
		response := httpexpect.New(GinkgoT(), fixture.server.URL).GET("/").Expect().Status(http.StatusOK)
		id = sessionCookie(response.Raw())
		Expect(id).ToNot(BeEmpty())

		var err error
		url := "ws" + strings.TrimPrefix(fixture.server.URL, "http") + "/ws?session=" + id
		conn, _, err = websocket.DefaultDialer.Dial(url, nil)
		Expect(err).ToNot(HaveOccurred())
	})

	AfterEach(func() {
		conn.Close()
		fixture.close()
	})

	send := func(message string) gjson.Result {
		Expect(conn.WriteMessage(websocket.TextMessage, []byte(message))).To(Succeed())
		_, reply, err := conn.ReadMessage()
		Expect(err).ToNot(HaveOccurred())
		return gjson.ParseBytes(reply)
	}

	It("replies with the next page", func() {
		reply := send(`{"type": "load_more"}`)

		Expect(reply.Get("type").String()).To(Equal(MessagePage))
		Expect(reply.Get("characters.#").Int()).To(Equal(int64(1)))
		Expect(reply.Get("characters.0.name").String()).To(Equal("Summer Smith"))
		Expect(reply.Get("has_more").Bool()).To(BeFalse())
		Expect(reply.Get("next").Type).To(Equal(gjson.Null))
	})

	It("replies with done once all pages are loaded", func() {
		send(`{"type": "load_more"}`)
		reply := send(`{"type": "load_more"}`)

		Expect(reply.Get("type").String()).To(Equal(MessageDone))
		Expect(fixture.api.requestsFor("2")).To(Equal(1))
	})

	It("replies with an error when the page cannot be loaded", func() {
		fixture.api.failSecondPage(http.StatusBadGateway)

		reply := send(`{"type": "load_more"}`)
		Expect(reply.Get("type").String()).To(Equal(MessageError))
		Expect(reply.Get("message").String()).To(ContainSubstring("Could not load characters"))

		fixture.api.failSecondPage(http.StatusOK)
		reply = send(`{"type": "load_more"}`)
		Expect(reply.Get("type").String()).To(Equal(MessagePage))
	})

	It("rejects unknown messages", func() {
		reply := send(`{"type": "schwifty"}`)
		Expect(reply.Get("type").String()).To(Equal(MessageError))
		Expect(reply.Get("message").String()).To(ContainSubstring("schwifty"))

		reply = send(`not json`)
		Expect(reply.Get("type").String()).To(Equal(MessageError))
	})

	It("ends the session when the connection closes", func() {
		Expect(conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))).To(Succeed())

		Eventually(fixture.sessions.Len).Should(Equal(0))
	})

	Context("when the session ttl is short", func() {
		BeforeEach(func() {
			options = append(options, func(controller *GalleryController) {
				controller.Sessions = session.NewStore(100*time.Millisecond, 10)
			})
		})

		It("keeps the session alive while messages arrive", func() {
			for i := 0; i < 6; i++ {
				time.Sleep(40 * time.Millisecond)
				reply := send(`{"type": "load_more"}`)
				Expect(reply.Get("type").String()).ToNot(Equal(MessageError))
			}

			Expect(fixture.sessions.Sweep()).To(Equal(0))
			Expect(fixture.sessions.Len()).To(Equal(1))
		})
	})

	Context("when a load takes longer than the ping period", func() {
		BeforeEach(func() {
			options = append(options, func(controller *GalleryController) {
				controller.PingPeriod = 25 * time.Millisecond
			})
		})

		It("keeps the connection open", func() {
			fixture.api.delaySecondPage(200 * time.Millisecond)

			reply := send(`{"type": "load_more"}`)
			Expect(reply.Get("type").String()).To(Equal(MessagePage))

			reply = send(`{"type": "load_more"}`)
			Expect(reply.Get("type").String()).To(Equal(MessageDone))
			Expect(fixture.sessions.Len()).To(Equal(1))
		})
	})

	Context("when the session is unknown", func() {
		It("refuses the upgrade", func() {
			url := "ws" + strings.TrimPrefix(fixture.server.URL, "http") + "/ws?session=unknown"
			_, response, err := websocket.DefaultDialer.Dial(url, nil)
			Expect(err).To(HaveOccurred())
			Expect(response.StatusCode).To(Equal(http.StatusGone))
		})
	})
})
