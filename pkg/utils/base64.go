package utils

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
)

var dataURIPattern = regexp.MustCompile(`^data:([^;]+);base64,`)

// DecodeBase64Image decodes a base64 image payload as returned by the
// inference backends. A data URI prefix, if any, is stripped first.
func DecodeBase64Image(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if match := dataURIPattern.FindString(s); match != "" {
		s = strings.TrimPrefix(s, match)
	}
	if s == "" {
		return nil, fmt.Errorf("empty image payload")
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("not valid base64 image data: %w", err)
	}
	return data, nil
}

// EncodeBase64Image is the inverse of DecodeBase64Image, without the data URI.
func EncodeBase64Image(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}
