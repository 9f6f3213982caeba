package schema

import (
	"fmt"
	"math"
	"strings"
)

// Limits bounds the parameters accepted from clients.
type Limits struct {
	MaxSteps         int
	MaxGuidanceScale float64
	MaxWidth         int
	MaxHeight        int
}

const MinDimension = 64

var DefaultLimits = Limits{
	MaxSteps:         150,
	MaxGuidanceScale: 30,
	MaxWidth:         2048,
	MaxHeight:        2048,
}

func (r *GenerateRequest) Validate(l Limits) error {
	if err := validatePrompt(r.Prompt); err != nil {
		return err
	}
	if err := validateCommon(l, r.NumInferenceSteps, r.GuidanceScale); err != nil {
		return err
	}
	if err := validateDimension("width", r.Width, l.MaxWidth); err != nil {
		return err
	}
	return validateDimension("height", r.Height, l.MaxHeight)
}

func (r *ImageToImageRequest) Validate(l Limits) error {
	if len(r.Image) == 0 {
		return &ValidationError{Field: "file", Message: "an image file is required"}
	}
	if err := validatePrompt(r.Prompt); err != nil {
		return err
	}
	if err := validateCommon(l, r.NumInferenceSteps, r.GuidanceScale); err != nil {
		return err
	}
	if !finite(r.Strength) || r.Strength < 0 || r.Strength > 1 {
		return &ValidationError{Field: "strength", Message: "must be between 0 and 1"}
	}
	return nil
}

func validatePrompt(p string) error {
	if strings.TrimSpace(p) == "" {
		return &ValidationError{Field: "prompt", Message: "must not be empty"}
	}
	return nil
}

func validateCommon(l Limits, steps int, guidance float64) error {
	if steps < 1 || (l.MaxSteps > 0 && steps > l.MaxSteps) {
		return &ValidationError{Field: "num_inference_steps", Message: fmt.Sprintf("must be between 1 and %d", l.MaxSteps)}
	}
	if !finite(guidance) || guidance < 0 || (l.MaxGuidanceScale > 0 && guidance > l.MaxGuidanceScale) {
		return &ValidationError{Field: "guidance_scale", Message: fmt.Sprintf("must be between 0 and %g", l.MaxGuidanceScale)}
	}
	return nil
}

// finite reports whether v is neither NaN nor infinite.
func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func validateDimension(field string, v, maxV int) error {
	if v < MinDimension || (maxV > 0 && v > maxV) {
		return &ValidationError{Field: field, Message: fmt.Sprintf("must be between %d and %d", MinDimension, maxV)}
	}
	if v%8 != 0 {
		return &ValidationError{Field: field, Message: "must be a multiple of 8"}
	}
	return nil
}
