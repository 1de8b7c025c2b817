// Package phototagger annotates photo libraries in place. It asks a local
// vision model for a caption and a keyword list for every image under a
// folder and writes the answers back into each file's own metadata, EXIF
// for JPEG and tEXt chunks for PNG.
package phototagger

import (
	"net/http"

	"github.com/rattadan/AI-Photo-tagger/describer"
	"github.com/rattadan/AI-Photo-tagger/internal/ollama"
)

const (
	// DefaultServer is the stock local Ollama endpoint.
	DefaultServer = "http://localhost:11434"

	// DefaultModel is the vision model used for captioning and keywording.
	DefaultModel = "llava:7b"
)

type InitOptions struct {
	OllamaServer string // if empty uses DefaultServer
	Model        string // if empty uses DefaultModel

	HttpClient *http.Client // if nil uses a client with a 60s timeout
}

type PhotoTagger struct {
	describer.Describer
}

func Init(pio InitOptions) *PhotoTagger {
	srvAddr := pio.OllamaServer
	if srvAddr == "" {
		srvAddr = DefaultServer
	}
	model := pio.Model
	if model == "" {
		model = DefaultModel
	}

	return &PhotoTagger{
		Describer: ollama.Init(model, srvAddr, pio.HttpClient),
	}
}
