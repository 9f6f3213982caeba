package middleware_test

import (
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/labstack/echo/v4"
	"github.com/mudler/LocalDiffusion/core/http/middleware"
	"github.com/mudler/LocalDiffusion/core/services"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("MetricsMiddleware", func() {
	var (
		e       *echo.Echo
		metrics *services.MetricsService
	)

	BeforeEach(func() {
		var err error
		metrics, err = services.NewMetricsService()
		Expect(err).ToNot(HaveOccurred())

		e = echo.New()
		e.Use(middleware.MetricsMiddleware(metrics, "/outputs"))
		ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
		e.GET("/gallery", ok)
		e.DELETE("/delete/:filename", ok)
		e.GET("/outputs/*", ok)
	})

	AfterEach(func() {
		Expect(metrics.Shutdown()).To(Succeed())
	})

	scrape := func() string {
		rec := httptest.NewRecorder()
		metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		body, err := io.ReadAll(rec.Body)
		Expect(err).ToNot(HaveOccurred())
		return string(body)
	}

	serve := func(method, path string) {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	}

	It("labels calls with the route pattern", func() {
		serve(http.MethodGet, "/gallery")
		serve(http.MethodDelete, "/delete/abc.png")

		body := scrape()
		Expect(body).To(ContainSubstring(`path="/gallery"`))
		Expect(body).To(ContainSubstring(`path="/delete/:filename"`))
		Expect(body).ToNot(ContainSubstring("abc.png"))
	})

	It("skips static files", func() {
		serve(http.MethodGet, "/outputs/abc.png")
		Expect(scrape()).ToNot(ContainSubstring(`path="/outputs/*"`))
	})
})
