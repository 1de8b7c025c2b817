package describer

import (
	"context"
	"errors"
	"strings"
)

// ErrNoText is returned when the model produced no usable text for an
// image. It is an ordinary outcome, not a failure: callers log it and move
// on to the next file.
var ErrNoText = errors.New("model produced no text")

// Describer annotates an image using a specific LLM.
type Describer interface {
	// Name returns the name of the backing LLM, e.g. "ollama"
	Name() string

	// Model returns the model identifier used for requests, e.g. "llava:7b"
	Model() string

	// Caption returns a one sentence English description of the provided
	// image. The image data should be the full contents of the image file
	// including the header. The provided ctx is used as a parent context
	// for the request to the LLM server.
	Caption(ctx context.Context, image []byte) (string, error)

	// Keywords returns a comma-space separated list of keywords for the
	// provided image, normalized with NormalizeKeywords.
	Keywords(ctx context.Context, image []byte) (string, error)

	// IsHealthy returns whether the LLM server is healthy.
	IsHealthy() bool
}

// NormalizeKeywords cleans up a raw comma separated keyword string: split
// on commas, trim each piece, drop empties, rejoin with ", ". Idempotent.
func NormalizeKeywords(raw string) string {
	var kept []string
	for _, piece := range strings.Split(raw, ",") {
		if piece = strings.TrimSpace(piece); piece != "" {
			kept = append(kept, piece)
		}
	}

	return strings.Join(kept, ", ")
}
