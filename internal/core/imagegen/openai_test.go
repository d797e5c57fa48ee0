package imagegen

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIProviderGenerate(t *testing.T) {
	var gotPrompt, gotModel, gotFilename string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/images/edits", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotPrompt = r.FormValue("prompt")
		gotModel = r.FormValue("model")
		if _, header, err := r.FormFile("image"); err == nil {
			gotFilename = header.Filename
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"created":1,"data":[{"b64_json":"` + base64.StdEncoding.EncodeToString(pngHeader) + `"}]}`))
	}))
	defer srv.Close()

	cfg := openai.DefaultConfig("sk-test")
	cfg.BaseURL = srv.URL + "/v1"
	p := NewOpenAIProviderWithConfig(cfg, "")

	res, err := p.Generate(context.Background(), &Request{Prompt: "stage it", Image: []byte("photo"), ContentType: "image/jpeg"})
	require.NoError(t, err)
	assert.Equal(t, pngHeader, res.Image)
	assert.Equal(t, "image/png", res.ContentType)
	assert.Equal(t, "stage it", gotPrompt)
	assert.Equal(t, "gpt-image-1", gotModel)
	assert.Equal(t, "room.jpg", gotFilename)
}

func TestOpenAIProviderEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"created":1,"data":[]}`))
	}))
	defer srv.Close()

	cfg := openai.DefaultConfig("sk-test")
	cfg.BaseURL = srv.URL + "/v1"
	_, err := NewOpenAIProviderWithConfig(cfg, "gpt-image-1").Generate(context.Background(), &Request{Image: []byte("x")})
	assert.ErrorIs(t, err, ErrEmptyResult)
}
