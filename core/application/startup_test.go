package application_test

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/mudler/LocalDiffusion/core/application"
	"github.com/mudler/LocalDiffusion/core/config"
	"github.com/mudler/LocalDiffusion/pkg/model"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type stubPipeline struct{}

func (stubPipeline) TextToImage(ctx context.Context, p model.TextToImageParams) ([]byte, error) {
	return []byte("png"), nil
}

func (stubPipeline) ImageToImage(ctx context.Context, p model.ImageToImageParams) ([]byte, error) {
	return []byte("png"), nil
}

var _ = Describe("Application startup", func() {
	var (
		tmp    string
		ctx    context.Context
		cancel context.CancelFunc
	)

	BeforeEach(func() {
		tmp = GinkgoT().TempDir()
		ctx, cancel = context.WithCancel(context.Background())
	})

	AfterEach(func() {
		cancel()
	})

	options := func(loader model.Loader, extra ...config.AppOption) []config.AppOption {
		return append([]config.AppOption{
			config.WithContext(ctx),
			config.WithOutputsDir(filepath.Join(tmp, "outputs")),
			config.WithModel("sd15"),
			config.WithDevice("cpu"),
			config.WithModelLoader(loader),
		}, extra...)
	}

	It("loads the model synchronously when asked to", func() {
		app, err := application.New(options(func(ctx context.Context, o model.LoadOptions) (model.Pipeline, error) {
			return stubPipeline{}, nil
		}, config.EnableWaitForModel)...)
		Expect(err).ToNot(HaveOccurred())
		Expect(app.ModelHandle().Ready()).To(BeTrue())
		Expect(filepath.Join(tmp, "outputs")).To(BeADirectory())
		Expect(app.MetricsService()).ToNot(BeNil())
		Expect(app.HistoryStore()).To(BeNil())
		Expect(app.Shutdown()).To(Succeed())
		Expect(app.Shutdown()).To(Succeed())
	})

	It("loads the model in the background by default", func() {
		release := make(chan struct{})
		app, err := application.New(options(func(ctx context.Context, o model.LoadOptions) (model.Pipeline, error) {
			<-release
			return stubPipeline{}, nil
		})...)
		Expect(err).ToNot(HaveOccurred())
		Expect(app.ModelHandle().Ready()).To(BeFalse())

		close(release)
		Eventually(app.ModelHandle().Ready).Should(BeTrue())
	})

	It("keeps serving when the model fails to load", func() {
		app, err := application.New(options(func(ctx context.Context, o model.LoadOptions) (model.Pipeline, error) {
			return nil, errors.New("no such model")
		}, config.EnableWaitForModel)...)
		Expect(err).ToNot(HaveOccurred())
		Expect(app.ModelHandle().State()).To(Equal(model.StateFailed))
	})

	It("opens the history database when configured", func() {
		app, err := application.New(options(func(ctx context.Context, o model.LoadOptions) (model.Pipeline, error) {
			return stubPipeline{}, nil
		}, config.WithHistoryDatabase(filepath.Join(tmp, "history.db")), config.DisableMetricsEndpoint)...)
		Expect(err).ToNot(HaveOccurred())
		Expect(app.HistoryStore()).ToNot(BeNil())
		Expect(app.MetricsService()).To(BeNil())
		Expect(app.Shutdown()).To(Succeed())
	})

	It("refuses an unknown backend", func() {
		_, err := application.New(
			config.WithContext(ctx),
			config.WithOutputsDir(filepath.Join(tmp, "outputs")),
			config.WithModel("sd15"),
			config.WithBackend("nope"),
		)
		Expect(err).To(HaveOccurred())
	})
})
