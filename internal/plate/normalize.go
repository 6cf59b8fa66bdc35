package plate

import (
	"errors"
	"strings"
)

var (
	ErrLowConfidence = errors.New("detection confidence below threshold")
	ErrInvalidFormat = errors.New("invalid plate format")
)

// MinLength is the shortest canonical plate accepted.
const MinLength = 4

// Normalize canonicalizes raw OCR text into a plate identifier: strips
// whitespace and separators, keeps alphanumerics, uppercases. Detections
// below minConfidence are rejected before any text handling.
func Normalize(raw string, confidence, minConfidence float64) (string, error) {
	if confidence < minConfidence {
		return "", ErrLowConfidence
	}

	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - 'a' + 'A')
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		}
	}

	normalized := b.String()
	if len(normalized) < MinLength {
		return "", ErrInvalidFormat
	}
	return normalized, nil
}
