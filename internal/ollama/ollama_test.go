package ollama

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rattadan/AI-Photo-tagger/describer"
)

// streamServer returns a test server that replies to every request with
// the given lines, newline-delimited.
func streamServer(t *testing.T, lines ...string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		for _, l := range lines {
			fmt.Fprintln(w, l)
		}
	}))
	t.Cleanup(srv.Close)

	return srv
}

func TestGenerateAccumulatesStream(t *testing.T) {
	srv := streamServer(t,
		`{"response":"A "}`,
		`{"response":"cat"}`,
		`{garbage}`,
		`{"response":" sleeping."}`,
		`{"done":true}`,
	)

	o := Init("llava:7b", srv.URL, srv.Client())
	got, err := o.generate(t.Context(), captionPrompt, []byte("imagebytes"))
	if err != nil {
		t.Fatal(err)
	}
	if expected, actual := "A cat sleeping.", got; expected != actual {
		t.Errorf("Expected %q, got %q", expected, actual)
	}
}

func TestGenerateRequestBody(t *testing.T) {
	imgdata := []byte{0xFF, 0xD8, 0xFF, 0xE0}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if expected, actual := "/api/generate", req.URL.Path; expected != actual {
			t.Errorf("Expected path %q, got %q", expected, actual)
		}
		if expected, actual := "application/json", req.Header.Get("Content-Type"); expected != actual {
			t.Errorf("Expected content type %q, got %q", expected, actual)
		}

		var greq generateRequest
		if err := json.NewDecoder(req.Body).Decode(&greq); err != nil {
			t.Errorf("Unexpected error decoding request: %s", err)
		}
		if expected, actual := "llava:7b", greq.Model; expected != actual {
			t.Errorf("Expected model %q, got %q", expected, actual)
		}
		if expected, actual := captionPrompt, greq.Prompt; expected != actual {
			t.Errorf("Expected prompt %q, got %q", expected, actual)
		}
		if len(greq.Images) != 1 || greq.Images[0] != base64.StdEncoding.EncodeToString(imgdata) {
			t.Errorf("Expected a single base64 image, got %v", greq.Images)
		}

		fmt.Fprintln(w, `{"response":"ok","done":true}`)
	}))
	defer srv.Close()

	o := Init("llava:7b", srv.URL, srv.Client())
	if _, err := o.Caption(t.Context(), imgdata); err != nil {
		t.Fatal(err)
	}
}

func TestGenerateMessageFallback(t *testing.T) {
	srv := streamServer(t,
		`{"message":"A "}`,
		`{"response":"red "}`,
		`{"message":"apple."}`,
	)

	o := Init("llava:7b", srv.URL, srv.Client())
	got, err := o.generate(t.Context(), captionPrompt, nil)
	if err != nil {
		t.Fatal(err)
	}
	if expected, actual := "A red apple.", got; expected != actual {
		t.Errorf("Expected %q, got %q", expected, actual)
	}
}

func TestGenerateNoText(t *testing.T) {
	t.Run("empty body", func(t *testing.T) {
		srv := streamServer(t)

		o := Init("llava:7b", srv.URL, srv.Client())
		if _, err := o.generate(t.Context(), captionPrompt, nil); !errors.Is(err, describer.ErrNoText) {
			t.Errorf("Expected ErrNoText, got %v", err)
		}
	})

	t.Run("whitespace only", func(t *testing.T) {
		srv := streamServer(t, `{"response":"  "}`, `{"done":true}`)

		o := Init("llava:7b", srv.URL, srv.Client())
		if _, err := o.generate(t.Context(), captionPrompt, nil); !errors.Is(err, describer.ErrNoText) {
			t.Errorf("Expected ErrNoText, got %v", err)
		}
	})
}

func TestGenerateServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	o := Init("llava:7b", srv.URL, srv.Client())
	if _, err := o.Caption(t.Context(), nil); err == nil {
		t.Error("Expected an error for a non-2xx status")
	}
}

func TestKeywordsNormalized(t *testing.T) {
	srv := streamServer(t, `{"response":"cat, , dog ,  mountain,sky ,"}`)

	o := Init("llava:7b", srv.URL, srv.Client())
	got, err := o.Keywords(t.Context(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if expected, actual := "cat, dog, mountain, sky", got; expected != actual {
		t.Errorf("Expected %q, got %q", expected, actual)
	}
}

func TestIsHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	o := Init("llava:7b", srv.URL, srv.Client())
	if !o.IsHealthy() {
		t.Error("Expected healthy server")
	}

	srv.Close()
	if o.IsHealthy() {
		t.Error("Expected unhealthy server after close")
	}
}
