package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/rattadan/AI-Photo-tagger/describer"
)

const (
	captionPrompt  = "Describe this image in one sentence."
	keywordsPrompt = "List 5 relevant keywords for this image, comma-separated, no explanation, just the words."

	requestTimeout = 60 * time.Second
)

type generateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images"`
}

// Each streamed line carries a fragment of the reply. Some serving stacks
// put the text in "message" instead of "response", so both are read with
// "response" taking precedence.
type generateResponse struct {
	Response string `json:"response"`
	Message  string `json:"message"`
	Done     bool   `json:"done"`
}

type ollama struct {
	model   string
	srvAddr string

	client *http.Client
}

var _ describer.Describer = &ollama{}

func Init(model, srvAddr string, httpClient *http.Client) *ollama {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}

	return &ollama{
		model:   model,
		srvAddr: srvAddr,
		client:  httpClient,
	}
}

func (o *ollama) Name() string { return "ollama" }

func (o *ollama) Model() string { return o.model }

func (o *ollama) IsHealthy() bool {
	resp, err := o.client.Get(o.srvAddr)
	if err != nil {
		return false
	}
	resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

func (o *ollama) Caption(ctx context.Context, image []byte) (string, error) {
	return o.generate(ctx, captionPrompt, image)
}

func (o *ollama) Keywords(ctx context.Context, image []byte) (string, error) {
	raw, err := o.generate(ctx, keywordsPrompt, image)
	if err != nil {
		return "", err
	}

	return describer.NormalizeKeywords(raw), nil
}

func (o *ollama) generate(ctx context.Context, prompt string, image []byte) (string, error) {
	data := generateRequest{
		Model:  o.model,
		Prompt: prompt,
		Images: []string{base64.StdEncoding.EncodeToString(image)},
	}

	body, err := json.Marshal(&data)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.srvAddr+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode > 299 {
		return "", fmt.Errorf("server returned %s", resp.Status)
	}

	return accumulate(resp.Body)
}

// accumulate consumes a stream of newline-delimited JSON fragments and
// concatenates the text they carry, reading the body incrementally. A line
// that fails to parse is logged and skipped, it does not abort the stream.
func accumulate(r io.Reader) (string, error) {
	content := new(strings.Builder)

	lr := bufio.NewScanner(r)
	for lr.Scan() {
		line := lr.Bytes()
		if len(line) == 0 {
			continue
		}

		var frag generateResponse
		if err := json.Unmarshal(line, &frag); err != nil {
			log.Printf("skipping malformed stream line: %v", err)
			continue
		}

		if frag.Response != "" {
			content.WriteString(frag.Response)
		} else {
			content.WriteString(frag.Message)
		}
	}
	if err := lr.Err(); err != nil {
		return "", err
	}

	out := strings.TrimSpace(content.String())
	if out == "" {
		return "", describer.ErrNoText
	}

	return out, nil
}
