package localai_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/mudler/LocalDiffusion/pkg/backend/localai"
	"github.com/mudler/LocalDiffusion/pkg/model"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type fakeServer struct {
	*httptest.Server
	mu       sync.Mutex
	requests []map[string]any
	auth     string
	fail     bool
}

func newFakeServer(models ...string) *fakeServer {
	f := &fakeServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/models", func(w http.ResponseWriter, r *http.Request) {
		data := []map[string]any{}
		for _, m := range models {
			data = append(data, map[string]any{"id": m, "object": "model", "created": 0, "owned_by": "localai"})
		}
		json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data})
	})
	mux.HandleFunc("POST /v1/images/generations", func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.requests = append(f.requests, body)
		f.auth = r.Header.Get("Authorization")
		fail := f.fail
		f.mu.Unlock()

		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "out of memory", "type": "server_error"}})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"created": 0,
			"data":    []map[string]any{{"b64_json": base64.StdEncoding.EncodeToString([]byte("generated"))}},
		})
	})
	f.Server = httptest.NewServer(mux)
	return f
}

var _ = Describe("LocalAI backend", func() {
	var server *fakeServer

	BeforeEach(func() {
		server = newFakeServer("stablediffusion")
	})

	AfterEach(func() {
		server.Close()
	})

	load := func() model.Pipeline {
		p, err := localai.Load(context.Background(), model.LoadOptions{
			Model:    "stablediffusion",
			Endpoint: server.URL,
			APIKey:   "secret",
		})
		Expect(err).ToNot(HaveOccurred())
		return p
	}

	It("fails to load a model the server does not know", func() {
		_, err := localai.Load(context.Background(), model.LoadOptions{Model: "missing", Endpoint: server.URL})
		Expect(err).To(MatchError(ContainSubstring("not available")))
	})

	It("fails to load without an endpoint", func() {
		_, err := localai.Load(context.Background(), model.LoadOptions{Model: "stablediffusion"})
		Expect(err).To(HaveOccurred())
	})

	It("fails to load when the server is unreachable", func() {
		url := server.URL
		server.Close()
		_, err := localai.Load(context.Background(), model.LoadOptions{Model: "stablediffusion", Endpoint: url})
		Expect(err).To(HaveOccurred())
	})

	It("generates an image from text", func() {
		p := load()
		out, err := p.TextToImage(context.Background(), model.TextToImageParams{
			Prompt:         "a red cube",
			NegativePrompt: "blurry",
			Steps:          25,
			GuidanceScale:  7.5,
			Width:          512,
			Height:         768,
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(out).To(Equal([]byte("generated")))

		Expect(server.requests).To(HaveLen(1))
		req := server.requests[0]
		Expect(req["prompt"]).To(Equal("a red cube|blurry"))
		Expect(req["model"]).To(Equal("stablediffusion"))
		Expect(req["size"]).To(Equal("512x768"))
		Expect(req["response_format"]).To(Equal("b64_json"))
		Expect(req["step"]).To(BeNumerically("==", 25))
		Expect(req["cfg_scale"]).To(BeNumerically("==", 7.5))
		Expect(server.auth).To(Equal("Bearer secret"))
	})

	It("sends the source image for image to image", func() {
		p := load()
		out, err := p.ImageToImage(context.Background(), model.ImageToImageParams{
			Source:        []byte("source"),
			Prompt:        "oil painting",
			Strength:      0.6,
			Steps:         30,
			GuidanceScale: 7,
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(out).To(Equal([]byte("generated")))

		req := server.requests[0]
		Expect(req["prompt"]).To(Equal("oil painting"))
		Expect(req["file"]).To(Equal(base64.StdEncoding.EncodeToString([]byte("source"))))
		Expect(req["mode"]).To(BeNumerically("==", localai.Img2ImgMode))
		Expect(req["strength"]).To(BeNumerically("==", 0.6))
	})

	It("returns server errors", func() {
		p := load()
		server.mu.Lock()
		server.fail = true
		server.mu.Unlock()
		_, err := p.TextToImage(context.Background(), model.TextToImageParams{Prompt: "x", Width: 512, Height: 512})
		Expect(err).To(HaveOccurred())
	})

	It("joins prompts", func() {
		Expect(localai.Prompt("a", "")).To(Equal("a"))
		Expect(localai.Prompt("a", "b")).To(Equal("a|b"))
	})
})
