package history_test

import (
	"context"
	"path/filepath"

	"github.com/mudler/LocalDiffusion/core/history"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("History", func() {
	var (
		store *history.Store
		ctx   context.Context
		path  string
	)

	BeforeEach(func() {
		ctx = context.Background()
		path = filepath.Join(GinkgoT().TempDir(), "history.db")
		var err error
		store, err = history.Open(path)
		Expect(err).ToNot(HaveOccurred())
	})

	AfterEach(func() {
		Expect(store.Close()).To(Succeed())
	})

	It("stores and finds records", func() {
		Expect(store.Add(ctx, history.Record{
			Filename: "a.png", Kind: history.KindTextToImage, Prompt: "a red cube", Steps: 30, GuidanceScale: 7.5, Width: 512, Height: 512,
		})).To(Succeed())

		r, err := store.Get(ctx, "a.png")
		Expect(err).ToNot(HaveOccurred())
		Expect(r.Prompt).To(Equal("a red cube"))
		Expect(r.Kind).To(Equal(history.KindTextToImage))
		Expect(r.CreatedAt.IsZero()).To(BeFalse())
	})

	It("looks up many files at once", func() {
		Expect(store.Add(ctx, history.Record{Filename: "a.png", Prompt: "a"})).To(Succeed())
		Expect(store.Add(ctx, history.Record{Filename: "b.png", Prompt: "b"})).To(Succeed())

		found, err := store.Lookup(ctx, []string{"a.png", "b.png", "c.png"})
		Expect(err).ToNot(HaveOccurred())
		Expect(found).To(HaveLen(2))
		Expect(found["b.png"].Prompt).To(Equal("b"))
		Expect(found).ToNot(HaveKey("c.png"))

		empty, err := store.Lookup(ctx, nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(empty).To(BeEmpty())
	})

	It("removes records", func() {
		Expect(store.Add(ctx, history.Record{Filename: "a.png"})).To(Succeed())
		Expect(store.Remove(ctx, "a.png")).To(Succeed())
		_, err := store.Get(ctx, "a.png")
		Expect(err).To(MatchError(history.ErrNotFound))
	})

	It("rejects duplicate file names", func() {
		Expect(store.Add(ctx, history.Record{Filename: "a.png"})).To(Succeed())
		Expect(store.Add(ctx, history.Record{Filename: "a.png"})).ToNot(Succeed())
	})

	It("persists across reopen", func() {
		Expect(store.Add(ctx, history.Record{Filename: "a.png", Prompt: "kept"})).To(Succeed())
		Expect(store.Close()).To(Succeed())

		var err error
		store, err = history.Open(path)
		Expect(err).ToNot(HaveOccurred())
		r, err := store.Get(ctx, "a.png")
		Expect(err).ToNot(HaveOccurred())
		Expect(r.Prompt).To(Equal("kept"))
	})
})
