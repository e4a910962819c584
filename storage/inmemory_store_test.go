package storage_test

import (
	"context"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/pktgen/protocol"
	"github.com/luma/pktgen/storage"
)

var _ = Describe("storage / InmemoryStore", func() {
	var (
		ctx   context.Context
		store *storage.InmemoryStore
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = storage.NewInmemoryStore()
	})

	AfterEach(func() {
		store.Close()
	})

	byID := func(id int64) storage.Match {
		return func(cached protocol.Values) bool {
			return cached["id"] == id
		}
	}

	Describe("Close()", func() {
		It("does not panic when closed twice", func() {
			Expect(func() { store.Close() }).NotTo(Panic())
			Expect(func() { store.Close() }).NotTo(Panic())
		})
	})

	It("an empty inmemory store equals {}", func() {
		value, err := store.Backup()
		Expect(err).To(Succeed())
		Expect(string(value)).To(Equal(`{}`))
	})

	Describe("Replace() / Lookup()", func() {
		It("misses before anything is cached", func() {
			_, ok := store.Lookup(ctx, 1, 42, nil)
			Expect(ok).To(BeFalse())
		})

		It("can read an entry that is written", func() {
			Expect(store.Replace(ctx, 1, 42, byID(7), protocol.Values{"id": int64(7), "x": int64(1)})).To(Succeed())

			values, ok := store.Lookup(ctx, 1, 42, byID(7))
			Expect(ok).To(BeTrue())
			Expect(values["x"]).To(Equal(int64(1)))
			Expect(store.Len()).To(Equal(1))
		})

		It("keeps entries with colliding hashes apart", func() {
			Expect(store.Replace(ctx, 1, 42, byID(1), protocol.Values{"id": int64(1)})).To(Succeed())
			Expect(store.Replace(ctx, 1, 42, byID(2), protocol.Values{"id": int64(2)})).To(Succeed())
			Expect(store.Replace(ctx, 1, 42, byID(1), protocol.Values{"id": int64(1), "x": true})).To(Succeed())

			Expect(store.Len()).To(Equal(2))

			values, ok := store.Lookup(ctx, 1, 42, byID(1))
			Expect(ok).To(BeTrue())
			Expect(values["x"]).To(BeTrue())
		})

		It("sends on the update channel when entries change", func() {
			updateChan := store.ListenToUpdates()
			Expect(store.Replace(ctx, 3, 9, nil, protocol.Values{})).To(Succeed())

			update, ok := <-updateChan
			Expect(ok).To(BeTrue())
			Expect(update).To(Equal(&storage.Update{Packet: 3, Hash: 9}))
		})
	})

	Describe("Reset()", func() {
		It("drops every entry of the packet type only", func() {
			Expect(store.Replace(ctx, 1, 1, nil, protocol.Values{})).To(Succeed())
			Expect(store.Replace(ctx, 1, 2, nil, protocol.Values{})).To(Succeed())
			Expect(store.Replace(ctx, 2, 1, nil, protocol.Values{})).To(Succeed())

			Expect(store.Reset(ctx, 1)).To(Equal(2))
			Expect(store.Len()).To(Equal(1))

			_, ok := store.Lookup(ctx, 1, 1, nil)
			Expect(ok).To(BeFalse())
			_, ok = store.Lookup(ctx, 2, 1, nil)
			Expect(ok).To(BeTrue())
		})
	})

	Describe("Backup()", func() {
		It("snapshots entries as JSON", func() {
			Expect(store.Replace(ctx, 5, 255, nil, protocol.Values{"name": "x"})).To(Succeed())

			value, err := store.Backup()
			Expect(err).To(Succeed())
			Expect(value).To(MatchJSON(`{"packet_5":{"k00000000000000ff":[{"name":"x"}]}}`))
		})
	})
})
