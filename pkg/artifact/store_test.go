package artifact_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mudler/LocalDiffusion/pkg/artifact"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type recordingMirror struct {
	mu      sync.Mutex
	put     map[string][]byte
	removed []string
	err     error
}

func (m *recordingMirror) Put(ctx context.Context, filename string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.put == nil {
		m.put = map[string][]byte{}
	}
	m.put[filename] = data
	return m.err
}

func (m *recordingMirror) Remove(ctx context.Context, filename string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, filename)
	return m.err
}

type fakeObjectAPI struct {
	puts    []*s3.PutObjectInput
	deletes []*s3.DeleteObjectInput
}

func (f *fakeObjectAPI) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.puts = append(f.puts, params)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjectAPI) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deletes = append(f.deletes, params)
	return &s3.DeleteObjectOutput{}, nil
}

var _ = Describe("Store", func() {
	var (
		dir   string
		store *artifact.Store
		ctx   context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		dir = filepath.Join(GinkgoT().TempDir(), "outputs")
		var err error
		store, err = artifact.NewStore(dir, "/outputs")
		Expect(err).ToNot(HaveOccurred())
	})

	It("creates the directory", func() {
		Expect(dir).To(BeADirectory())
	})

	Context("Save", func() {
		It("writes the bytes under a random png name", func() {
			a, err := store.Save(ctx, []byte("image-bytes"))
			Expect(err).ToNot(HaveOccurred())
			Expect(a.Filename).To(MatchRegexp(`^[0-9a-f-]{36}\.png$`))
			Expect(a.ID + ".png").To(Equal(a.Filename))
			Expect(a.URL).To(Equal("/outputs/" + a.Filename))
			Expect(a.Size).To(Equal(int64(len("image-bytes"))))

			data, err := os.ReadFile(a.Path)
			Expect(err).ToNot(HaveOccurred())
			Expect(data).To(Equal([]byte("image-bytes")))
		})

		It("uses a distinct name for every image", func() {
			a, err := store.Save(ctx, []byte("a"))
			Expect(err).ToNot(HaveOccurred())
			b, err := store.Save(ctx, []byte("b"))
			Expect(err).ToNot(HaveOccurred())
			Expect(a.ID).ToNot(Equal(b.ID))
		})

		It("leaves no temporary files behind", func() {
			_, err := store.Save(ctx, []byte("a"))
			Expect(err).ToNot(HaveOccurred())
			entries, err := os.ReadDir(dir)
			Expect(err).ToNot(HaveOccurred())
			Expect(entries).To(HaveLen(1))
		})

		It("normalizes the url prefix", func() {
			s, err := artifact.NewStore(dir, "images/")
			Expect(err).ToNot(HaveOccurred())
			Expect(s.URL("x.png")).To(Equal("/images/x.png"))
		})
	})

	Context("List", func() {
		It("is empty for a new store", func() {
			list, err := store.List()
			Expect(err).ToNot(HaveOccurred())
			Expect(list).To(BeEmpty())
		})

		It("returns the images newest first", func() {
			base := time.Now().Add(-time.Hour)
			var ids []string
			for i := 0; i < 3; i++ {
				a, err := store.Save(ctx, []byte{byte(i)})
				Expect(err).ToNot(HaveOccurred())
				ts := base.Add(time.Duration(i) * time.Minute)
				Expect(os.Chtimes(a.Path, ts, ts)).To(Succeed())
				ids = append(ids, a.ID)
			}

			list, err := store.List()
			Expect(err).ToNot(HaveOccurred())
			Expect(list).To(HaveLen(3))
			Expect(list[0].ID).To(Equal(ids[2]))
			Expect(list[1].ID).To(Equal(ids[1]))
			Expect(list[2].ID).To(Equal(ids[0]))
		})

		It("skips directories, hidden and non image files", func() {
			Expect(os.Mkdir(filepath.Join(dir, "nested.png"), 0750)).To(Succeed())
			Expect(os.WriteFile(filepath.Join(dir, ".tmp-123"), []byte("x"), 0644)).To(Succeed())
			Expect(os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644)).To(Succeed())
			Expect(os.WriteFile(filepath.Join(dir, "old.jpg"), []byte("x"), 0644)).To(Succeed())
			_, err := store.Save(ctx, []byte("a"))
			Expect(err).ToNot(HaveOccurred())

			list, err := store.List()
			Expect(err).ToNot(HaveOccurred())
			Expect(list).To(HaveLen(2))
		})
	})

	Context("Get", func() {
		It("finds a stored image", func() {
			a, err := store.Save(ctx, []byte("a"))
			Expect(err).ToNot(HaveOccurred())
			got, err := store.Get(a.Filename)
			Expect(err).ToNot(HaveOccurred())
			Expect(got.ID).To(Equal(a.ID))
		})

		It("reports unknown images", func() {
			_, err := store.Get("missing.png")
			Expect(errors.Is(err, artifact.ErrNotFound)).To(BeTrue())
		})
	})

	Context("Delete", func() {
		It("removes the image from the listing", func() {
			a, err := store.Save(ctx, []byte("a"))
			Expect(err).ToNot(HaveOccurred())
			b, err := store.Save(ctx, []byte("b"))
			Expect(err).ToNot(HaveOccurred())

			Expect(store.Delete(ctx, a.Filename)).To(Succeed())
			Expect(a.Path).ToNot(BeAnExistingFile())

			list, err := store.List()
			Expect(err).ToNot(HaveOccurred())
			Expect(list).To(HaveLen(1))
			Expect(list[0].ID).To(Equal(b.ID))
		})

		It("returns ErrNotFound for unknown images", func() {
			err := store.Delete(ctx, "6f1e4f0c-0000-4000-8000-000000000000.png")
			Expect(errors.Is(err, artifact.ErrNotFound)).To(BeTrue())
		})

		It("returns ErrNotFound when deleting twice", func() {
			a, err := store.Save(ctx, []byte("a"))
			Expect(err).ToNot(HaveOccurred())
			Expect(store.Delete(ctx, a.Filename)).To(Succeed())
			Expect(errors.Is(store.Delete(ctx, a.Filename), artifact.ErrNotFound)).To(BeTrue())
		})

		It("rejects names outside the store", func() {
			outside := filepath.Join(filepath.Dir(dir), "keep.png")
			Expect(os.WriteFile(outside, []byte("x"), 0644)).To(Succeed())

			for _, name := range []string{"../keep.png", "a/b.png", `..\keep.png`, ".hidden.png", "", "file.txt", ".."} {
				Expect(errors.Is(store.Delete(ctx, name), artifact.ErrInvalidName)).To(BeTrue(), name)
			}
			Expect(outside).To(BeAnExistingFile())
		})
	})

	Context("with a mirror", func() {
		It("mirrors saves and deletes", func() {
			m := &recordingMirror{}
			s, err := artifact.NewStore(dir, "/outputs", artifact.WithMirror(m))
			Expect(err).ToNot(HaveOccurred())

			a, err := s.Save(ctx, []byte("a"))
			Expect(err).ToNot(HaveOccurred())
			Expect(m.put).To(HaveKeyWithValue(a.Filename, []byte("a")))

			Expect(s.Delete(ctx, a.Filename)).To(Succeed())
			Expect(m.removed).To(ConsistOf(a.Filename))
		})

		It("does not fail when the mirror does", func() {
			m := &recordingMirror{err: errors.New("bucket unavailable")}
			s, err := artifact.NewStore(dir, "/outputs", artifact.WithMirror(m))
			Expect(err).ToNot(HaveOccurred())

			a, err := s.Save(ctx, []byte("a"))
			Expect(err).ToNot(HaveOccurred())
			Expect(a.Path).To(BeAnExistingFile())
			Expect(s.Delete(ctx, a.Filename)).To(Succeed())
		})
	})
})

var _ = Describe("S3Mirror", func() {
	It("uploads and removes objects under the prefix", func() {
		api := &fakeObjectAPI{}
		m := &artifact.S3Mirror{Client: api, Bucket: "images", Prefix: "/generated/"}

		Expect(m.Put(context.Background(), "abc.png", []byte("data"))).To(Succeed())
		Expect(api.puts).To(HaveLen(1))
		Expect(aws.ToString(api.puts[0].Bucket)).To(Equal("images"))
		Expect(aws.ToString(api.puts[0].Key)).To(Equal("generated/abc.png"))
		Expect(aws.ToString(api.puts[0].ContentType)).To(Equal("image/png"))

		Expect(m.Remove(context.Background(), "abc.png")).To(Succeed())
		Expect(api.deletes).To(HaveLen(1))
		Expect(aws.ToString(api.deletes[0].Key)).To(Equal("generated/abc.png"))
	})

	It("uses the bare file name without a prefix", func() {
		api := &fakeObjectAPI{}
		m := &artifact.S3Mirror{Client: api, Bucket: "images"}
		Expect(m.Put(context.Background(), "abc.jpg", []byte("data"))).To(Succeed())
		Expect(aws.ToString(api.puts[0].Key)).To(Equal("abc.jpg"))
		Expect(aws.ToString(api.puts[0].ContentType)).To(Equal("image/jpeg"))
	})
})
