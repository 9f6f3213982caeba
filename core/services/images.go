package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mudler/LocalDiffusion/core/config"
	"github.com/mudler/LocalDiffusion/core/history"
	"github.com/mudler/LocalDiffusion/core/schema"
	"github.com/mudler/LocalDiffusion/pkg/artifact"
	"github.com/mudler/LocalDiffusion/pkg/model"
	"github.com/mudler/LocalDiffusion/pkg/utils"
	"github.com/mudler/xlog"
	"github.com/samber/lo"
)

// Generator is the part of the model gateway used to produce images.
type Generator interface {
	TextToImage(ctx context.Context, p model.TextToImageParams) ([]byte, error)
	ImageToImage(ctx context.Context, p model.ImageToImageParams) ([]byte, error)
	Backend() string
	Model() string
}

// ImageService runs generation requests through the model and stores the
// results.
type ImageService struct {
	appConfig *config.ApplicationConfig
	generator Generator
	store     *artifact.Store
	history   *history.Store
	metrics   *MetricsService
}

type ImageServiceOption func(*ImageService)

func WithHistory(h *history.Store) ImageServiceOption {
	return func(s *ImageService) {
		s.history = h
	}
}

func WithMetrics(m *MetricsService) ImageServiceOption {
	return func(s *ImageService) {
		s.metrics = m
	}
}

func NewImageService(appConfig *config.ApplicationConfig, generator Generator, store *artifact.Store, opts ...ImageServiceOption) *ImageService {
	s := &ImageService{
		appConfig: appConfig,
		generator: generator,
		store:     store,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *ImageService) TextToImage(ctx context.Context, req *schema.GenerateRequest) (*artifact.Artifact, error) {
	if err := req.Validate(s.appConfig.Limits()); err != nil {
		return nil, err
	}

	start := time.Now()
	out, err := s.generator.TextToImage(ctx, model.TextToImageParams{
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		Steps:          req.NumInferenceSteps,
		GuidanceScale:  req.GuidanceScale,
		Width:          req.Width,
		Height:         req.Height,
	})
	a, err := s.persist(ctx, history.KindTextToImage, out, err, start)
	if err != nil {
		return nil, err
	}

	s.record(ctx, history.Record{
		Filename:       a.Filename,
		Kind:           history.KindTextToImage,
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		Steps:          req.NumInferenceSteps,
		GuidanceScale:  req.GuidanceScale,
		Width:          req.Width,
		Height:         req.Height,
		DurationMS:     time.Since(start).Milliseconds(),
	})
	return a, nil
}

func (s *ImageService) ImageToImage(ctx context.Context, req *schema.ImageToImageRequest) (*artifact.Artifact, error) {
	if err := req.Validate(s.appConfig.Limits()); err != nil {
		return nil, err
	}

	source, err := utils.PrepareSourceImage(req.Image, s.appConfig.MaxSourceDimension)
	if err != nil {
		return nil, &schema.ValidationError{Field: "file", Message: err.Error()}
	}

	start := time.Now()
	out, err := s.generator.ImageToImage(ctx, model.ImageToImageParams{
		Source:         source,
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		Strength:       req.Strength,
		Steps:          req.NumInferenceSteps,
		GuidanceScale:  req.GuidanceScale,
	})
	a, err := s.persist(ctx, history.KindImageToImage, out, err, start)
	if err != nil {
		return nil, err
	}

	s.record(ctx, history.Record{
		Filename:       a.Filename,
		Kind:           history.KindImageToImage,
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		Steps:          req.NumInferenceSteps,
		GuidanceScale:  req.GuidanceScale,
		Strength:       req.Strength,
		DurationMS:     time.Since(start).Milliseconds(),
	})
	return a, nil
}

// persist stores the output of a generation. Nothing is written when the
// generation failed.
func (s *ImageService) persist(ctx context.Context, kind string, out []byte, err error, start time.Time) (*artifact.Artifact, error) {
	if err == nil {
		out, err = utils.EnsurePNG(out)
		if err != nil {
			err = &model.InferenceError{Op: kind, Err: err}
		}
	}
	if s.metrics != nil {
		s.metrics.ObserveGeneration(kind, time.Since(start).Seconds(), err)
	}
	if err != nil {
		xlog.Error("image generation failed", "kind", kind, "error", err)
		return nil, err
	}

	a, err := s.store.Save(ctx, out)
	if err != nil {
		return nil, fmt.Errorf("failed to save generated image: %w", err)
	}
	xlog.Info("image generated", "kind", kind, "filename", a.Filename, "duration", time.Since(start))
	return a, nil
}

func (s *ImageService) record(ctx context.Context, r history.Record) {
	if s.history == nil {
		return
	}
	r.Backend = s.generator.Backend()
	r.Model = s.generator.Model()
	if err := s.history.Add(ctx, r); err != nil {
		xlog.Warn("failed to record image history", "filename", r.Filename, "error", err)
	}
}

// Gallery lists the stored images, newest first, together with the prompts
// that produced them when they are known.
func (s *ImageService) Gallery(ctx context.Context) ([]schema.GalleryImage, error) {
	artifacts, err := s.store.List()
	if err != nil {
		return nil, err
	}

	records := map[string]history.Record{}
	if s.history != nil && len(artifacts) > 0 {
		names := lo.Map(artifacts, func(a *artifact.Artifact, _ int) string { return a.Filename })
		if records, err = s.history.Lookup(ctx, names); err != nil {
			xlog.Warn("failed to read image history", "error", err)
			records = map[string]history.Record{}
		}
	}

	return lo.Map(artifacts, func(a *artifact.Artifact, _ int) schema.GalleryImage {
		if r, ok := records[a.Filename]; ok {
			return galleryImage(a, &r)
		}
		return galleryImage(a, nil)
	}), nil
}

// Image describes a single stored image.
func (s *ImageService) Image(ctx context.Context, filename string) (schema.GalleryImage, error) {
	a, err := s.store.Get(filename)
	if err != nil {
		return schema.GalleryImage{}, err
	}
	if s.history == nil {
		return galleryImage(a, nil), nil
	}

	r, err := s.history.Get(ctx, filename)
	if err != nil {
		if !errors.Is(err, history.ErrNotFound) {
			xlog.Warn("failed to read image history", "filename", filename, "error", err)
		}
		return galleryImage(a, nil), nil
	}
	return galleryImage(a, r), nil
}

func galleryImage(a *artifact.Artifact, r *history.Record) schema.GalleryImage {
	img := schema.GalleryImage{
		Filename: a.Filename,
		URL:      a.URL,
		Created:  float64(a.Created.UnixNano()) / float64(time.Second),
	}
	if r != nil {
		img.Kind = r.Kind
		img.Prompt = r.Prompt
		img.NegativePrompt = r.NegativePrompt
	}
	return img
}

func (s *ImageService) Delete(ctx context.Context, filename string) error {
	if err := s.store.Delete(ctx, filename); err != nil {
		return err
	}
	if s.history != nil {
		if err := s.history.Remove(ctx, filename); err != nil {
			xlog.Warn("failed to remove image history", "filename", filename, "error", err)
		}
	}
	xlog.Info("image deleted", "filename", filename)
	return nil
}
