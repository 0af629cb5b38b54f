package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTranslator struct {
	result *Result
	err    error
	got    []Request
}

func (s *stubTranslator) Translate(ctx context.Context, req Request) (*Result, error) {
	s.got = append(s.got, req)
	return s.result, s.err
}

func visionServer(svc Translator) *httptest.Server {
	h := NewHandler(svc, log.New(io.Discard))
	r := chi.NewRouter()
	h.Routes(r)
	return httptest.NewServer(r)
}

func postImage(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url+"/v1/image/translate", "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	return resp
}

func TestTranslateImage(t *testing.T) {
	stub := &stubTranslator{result: &Result{
		DetectedLanguage: "ja",
		TextBlocks:       []TextBlock{{Original: "出口", Translation: "Exit"}},
		Summary:          "An exit sign.",
	}}
	srv := visionServer(stub)
	defer srv.Close()

	image := []byte("fake-png-bytes")
	resp := postImage(t, srv.URL, apiRequest{
		Image:          base64.StdEncoding.EncodeToString(image),
		TargetLanguage: "en",
	})
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out apiResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.True(t, out.Success)
	require.NotNil(t, out.Data)
	assert.Equal(t, "ja", out.Data.DetectedLanguage)
	require.Len(t, out.Data.TextBlocks, 1)
	assert.Equal(t, "Exit", out.Data.TextBlocks[0].Translation)

	require.Len(t, stub.got, 1)
	assert.Equal(t, image, stub.got[0].Image, "handler must pass decoded bytes")
	assert.Equal(t, "en", stub.got[0].TargetLanguage)
}

func TestTranslateImageValidation(t *testing.T) {
	stub := &stubTranslator{}
	srv := visionServer(stub)
	defer srv.Close()

	cases := []struct {
		name string
		req  apiRequest
	}{
		{"missing image", apiRequest{TargetLanguage: "en"}},
		{"missing target", apiRequest{Image: base64.StdEncoding.EncodeToString([]byte("x"))}},
		{"bad base64", apiRequest{Image: "%%%not-base64%%%", TargetLanguage: "en"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postImage(t, srv.URL, tc.req)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
	assert.Empty(t, stub.got, "invalid requests must not reach the model")
}

func TestTranslateImageTooLarge(t *testing.T) {
	stub := &stubTranslator{}
	srv := visionServer(stub)
	defer srv.Close()

	oversized := make([]byte, MaxImageBytes+1)
	resp := postImage(t, srv.URL, apiRequest{
		Image:          base64.StdEncoding.EncodeToString(oversized),
		TargetLanguage: "en",
	})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Empty(t, stub.got)
}

func TestTranslateImageBadJSON(t *testing.T) {
	srv := visionServer(&stubTranslator{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/image/translate", "application/json",
		strings.NewReader("{broken"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTranslateImageModelFailure(t *testing.T) {
	stub := &stubTranslator{err: errors.New("model: quota exhausted")}
	srv := visionServer(stub)
	defer srv.Close()

	resp := postImage(t, srv.URL, apiRequest{
		Image:          base64.StdEncoding.EncodeToString([]byte("x")),
		TargetLanguage: "en",
	})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	var out apiResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.False(t, out.Success)
	assert.NotContains(t, out.Error, "quota", "model error detail stays server-side")
}
