package session

import (
	"context"
	"sync"
	"time"

	"github.com/Peripli/character-gallery/pkg/characterapi"
	"github.com/Peripli/character-gallery/pkg/paging"
	"github.com/gofrs/uuid"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Store", func() {
	var (
		store  *Store
		now    time.Time
		loader paging.Loader[characterapi.Character]
		first  *paging.Page[characterapi.Character]
	)

	BeforeEach(func() {
		now = time.Date(2021, 1, 31, 12, 0, 0, 0, time.UTC)
		store = NewStore(time.Minute, 2)
		store.now = func() time.Time { return now }
		loader = paging.LoaderFunc[characterapi.Character](func(ctx context.Context, cursor paging.Cursor) (*paging.Page[characterapi.Character], error) {
			return &paging.Page[characterapi.Character]{}, nil
		})
		first = &paging.Page[characterapi.Character]{
			Next:  "page2",
			Items: []characterapi.Character{{ID: 1, Name: "Rick"}, {ID: 2, Name: "Morty"}},
		}
	})

	Describe("Create", func() {
		It("creates a session holding the first page", func() {
			session, err := store.Create(loader, "page1", first)
			Expect(err).ToNot(HaveOccurred())

			_, err = uuid.FromString(session.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(session.Paginator.Len()).To(Equal(2))
			Expect(session.Paginator.Snapshot().Next).To(Equal(paging.Cursor("page2")))
			Expect(store.Len()).To(Equal(1))
		})

		It("creates independent sessions", func() {
			s1, err := store.Create(loader, "page1", first)
			Expect(err).ToNot(HaveOccurred())
			s2, err := store.Create(loader, "page1", first)
			Expect(err).ToNot(HaveOccurred())

			Expect(s1.ID).ToNot(Equal(s2.ID))
			Expect(s1.Paginator).ToNot(BeIdenticalTo(s2.Paginator))
		})

		It("refuses sessions above the limit", func() {
			for i := 0; i < 2; i++ {
				_, err := store.Create(loader, "page1", first)
				Expect(err).ToNot(HaveOccurred())
			}

			_, err := store.Create(loader, "page1", first)
			Expect(err).To(Equal(ErrLimitReached))
		})
	})

	Describe("Get", func() {
		It("returns ErrNotFound for unknown ids", func() {
			_, err := store.Get("unknown")
			Expect(err).To(Equal(ErrNotFound))
		})

		It("marks the session as used", func() {
			session, err := store.Create(loader, "page1", first)
			Expect(err).ToNot(HaveOccurred())

			now = now.Add(30 * time.Second)
			found, err := store.Get(session.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(found).To(BeIdenticalTo(session))
			Expect(found.LastSeen()).To(Equal(now))
		})
	})

	Describe("Touch", func() {
		It("keeps a used session from expiring", func() {
			session, err := store.Create(loader, "page1", first)
			Expect(err).ToNot(HaveOccurred())

			now = now.Add(45 * time.Second)
			Expect(store.Touch(session.ID)).To(Succeed())
			now = now.Add(45 * time.Second)

			Expect(store.Sweep()).To(Equal(0))
			Expect(session.LastSeen()).To(Equal(now.Add(-45 * time.Second)))
		})

		It("returns ErrNotFound for unknown ids", func() {
			Expect(store.Touch("unknown")).To(Equal(ErrNotFound))
		})
	})

	Describe("Delete", func() {
		It("discards the session", func() {
			session, err := store.Create(loader, "page1", first)
			Expect(err).ToNot(HaveOccurred())

			store.Delete(session.ID)
			_, err = store.Get(session.ID)
			Expect(err).To(Equal(ErrNotFound))
		})
	})

	Describe("Sweep", func() {
		It("removes only the sessions idle for longer than the ttl", func() {
			stale, err := store.Create(loader, "page1", first)
			Expect(err).ToNot(HaveOccurred())

			now = now.Add(45 * time.Second)
			fresh, err := store.Create(loader, "page1", first)
			Expect(err).ToNot(HaveOccurred())

			now = now.Add(30 * time.Second)
			Expect(store.Sweep()).To(Equal(1))

			_, err = store.Get(stale.ID)
			Expect(err).To(Equal(ErrNotFound))
			_, err = store.Get(fresh.ID)
			Expect(err).ToNot(HaveOccurred())
		})
	})

	Describe("Start", func() {
		It("sweeps periodically until the context is cancelled", func() {
			_, err := store.Create(loader, "page1", first)
			Expect(err).ToNot(HaveOccurred())
			store.ttl = -time.Second

			ctx, cancel := context.WithCancel(context.Background())
			group := &sync.WaitGroup{}
			store.Start(ctx, 10*time.Millisecond, group)

			Eventually(store.Len).Should(BeZero())
			cancel()
			group.Wait()
		})
	})
})
