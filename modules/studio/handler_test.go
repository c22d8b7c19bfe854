package studio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asset-studio-server/modules/asset"
	"asset-studio-server/modules/generation"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type stubRunner struct {
	result *asset.GenerationResult
	err    error
	got    asset.ProductImage
	called bool
}

func (s *stubRunner) Run(ctx context.Context, image asset.ProductImage, _ generation.Observer) (*asset.GenerationResult, error) {
	s.called = true
	s.got = image
	return s.result, s.err
}

func newRouter(runner Runner) *mux.Router {
	r := mux.NewRouter()
	NewHandler(runner, 0, time.Minute, zerolog.Nop()).RegisterRoutes(r)
	return r
}

func generateRequest(t *testing.T, contentType string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="product"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/assets/generate", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHandleGenerate_Success(t *testing.T) {
	runner := &stubRunner{result: &asset.GenerationResult{
		Description: "Red Sneaker",
		SuccessfulAssets: []asset.GeneratedAsset{
			asset.NewGeneratedAsset(asset.VideoPromotional, "v", []byte("mp4"), "video/mp4"),
			asset.NewGeneratedAsset(asset.ProductPhotoWhiteBG, "p", pngHeader, "image/png"),
		},
		FailedCategories: []asset.Category{asset.AdPromotionalBanner},
	}}
	rec := httptest.NewRecorder()

	newRouter(runner).ServeHTTP(rec, generateRequest(t, "image/png", pngHeader))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", runner.got.MIMEType)

	var body struct {
		Success          bool                   `json:"success"`
		Description      string                 `json:"description"`
		SuccessfulAssets []asset.GeneratedAsset `json:"successfulAssets"`
		FailedCategories []asset.Category       `json:"failedCategories"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "Red Sneaker", body.Description)
	require.Len(t, body.SuccessfulAssets, 2)
	assert.Equal(t, asset.MediaVideo, body.SuccessfulAssets[0].MediaKind)
	assert.Equal(t, []asset.Category{asset.AdPromotionalBanner}, body.FailedCategories)
}

func TestHandleGenerate_InvalidUpload(t *testing.T) {
	runner := &stubRunner{}
	rec := httptest.NewRecorder()

	newRouter(runner).ServeHTTP(rec, generateRequest(t, "application/pdf", []byte("%PDF-1.4")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, runner.called)
	assert.Contains(t, rec.Body.String(), asset.ErrInvalidFileType.Error())
}

func TestHandleGenerate_RunErrors(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("describe product: %w", errors.New("quota")), http.StatusBadGateway},
		{generation.ErrNoRelevantCategories, http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: %w", generation.ErrAllGenerationsFailed, errors.New("boom")), http.StatusBadGateway},
		{fmt.Errorf("describe product: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			newRouter(&stubRunner{err: tc.err}).ServeHTTP(rec, generateRequest(t, "image/png", pngHeader))

			assert.Equal(t, tc.want, rec.Code)
			var body GenerateResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, tc.err.Error(), body.Error)
		})
	}
}

func TestHandleCategories(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(&stubRunner{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/categories", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Categories []asset.CategoryInfo `json:"categories"`
		Defaults   []asset.Category     `json:"defaults"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Categories, len(asset.AllCategories()))
	assert.Equal(t, asset.DefaultCategories, body.Defaults)
}

func TestHandleGenerate_ClientGone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	req := generateRequest(t, "image/png", pngHeader).WithContext(ctx)
	runner := &stubRunner{err: fmt.Errorf("describe product: %w", context.Canceled)}
	cancel()
	rec := httptest.NewRecorder()

	newRouter(runner).ServeHTTP(rec, req)

	assert.True(t, runner.called)
	assert.Empty(t, rec.Body.String())
	assert.Empty(t, rec.Header().Get("Content-Type"))
}

func TestHandleGenerate_CanceledWhileClientConnected(t *testing.T) {
	rec := httptest.NewRecorder()
	runner := &stubRunner{err: fmt.Errorf("generate images: %w", context.Canceled)}

	newRouter(runner).ServeHTTP(rec, generateRequest(t, "image/png", pngHeader))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	var body GenerateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
}
